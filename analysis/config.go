package analysis

import (
	"github.com/GoGoWen/impala/catalog"
)

const (
	defStructFileFormat    = catalog.FormatORC
	defEnableColumnMasking = true
	defMaxStructDepth      = 100
	defExpandComplexTypes  = false
)

// Analyzer configuration. Used to customize analysis behavior
type Config struct {
	// The only storage format a struct column can be projected from
	StructFileFormat catalog.FileFormat

	// Whether column masking policies are consulted at all
	EnableColumnMasking bool

	// Maximum nesting of struct expansion, deeper structs are refused
	MaxStructDepth int

	// Whether star expansion includes struct columns, collections are never
	// expanded
	ExpandComplexTypes bool
}

func DefaultConfig() Config {
	return Config{
		StructFileFormat:    defStructFileFormat,
		EnableColumnMasking: defEnableColumnMasking,
		MaxStructDepth:      defMaxStructDepth,
		ExpandComplexTypes:  defExpandComplexTypes,
	}
}
