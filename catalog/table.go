package catalog

import (
	"fmt"
	"strings"
)

type TableKind int

const (
	TableFS = TableKind(iota) // filesystem backed, ie ORC/Parquet/Text files
	TableKudu
	TableHBase
	TableDataSource
)

func (k TableKind) String() string {
	switch k {
	case TableFS:
		return "FS"
	case TableKudu:
		return "KUDU"
	case TableHBase:
		return "HBASE"
	case TableDataSource:
		return "DATA_SOURCE"
	default:
		return "UNKNOWN"
	}
}

func ParseTableKind(s string) (TableKind, error) {
	switch strings.ToLower(s) {
	case "", "fs", "hdfs":
		return TableFS, nil
	case "kudu":
		return TableKudu, nil
	case "hbase":
		return TableHBase, nil
	case "data_source", "datasource":
		return TableDataSource, nil
	default:
		return TableFS, fmt.Errorf("unknown table kind %q", s)
	}
}

type FileFormat int

const (
	FormatText = FileFormat(iota)
	FormatParquet
	FormatORC
	FormatAvro
	FormatSequenceFile
	FormatRCFile
	FormatJSON
)

func (f FileFormat) String() string {
	switch f {
	case FormatText:
		return "TEXT"
	case FormatParquet:
		return "PARQUET"
	case FormatORC:
		return "ORC"
	case FormatAvro:
		return "AVRO"
	case FormatSequenceFile:
		return "SEQUENCE_FILE"
	case FormatRCFile:
		return "RC_FILE"
	case FormatJSON:
		return "JSON"
	default:
		return "UNKNOWN"
	}
}

func ParseFileFormat(s string) (FileFormat, error) {
	switch strings.ToLower(s) {
	case "text", "textfile":
		return FormatText, nil
	case "parquet":
		return FormatParquet, nil
	case "orc":
		return FormatORC, nil
	case "avro":
		return FormatAvro, nil
	case "sequence_file", "sequencefile":
		return FormatSequenceFile, nil
	case "rc_file", "rcfile":
		return FormatRCFile, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown file format %q", s)
	}
}

// ColumnStats is what the metastore knows about a single column. Both counts
// use -1 for "unknown".
type ColumnStats struct {
	NumDistinctValues int64
	NumNulls          int64
}

// UnknownStats is used for columns without statistics, and for every derived
// slot (struct fields, sort slots etc ...)
var UnknownStats = ColumnStats{NumDistinctValues: -1, NumNulls: -1}

func (self ColumnStats) HasNulls() bool      { return self.NumNulls > 0 }
func (self ColumnStats) HasNullsStats() bool { return self.NumNulls != -1 }

type Column struct {
	Name     string
	Type     Type
	Nullable bool
	Stats    ColumnStats
	Position int
}

type Table struct {
	Db          string
	Name        string
	Kind        TableKind
	Columns     []*Column
	NumRows     int64        // -1 if unknown
	FileFormats []FileFormat // one per partition format in use, FS tables only
	Masks       map[string]string

	// LoadError is set when the table metadata could not be loaded, a table
	// like this must never be registered inside of a query scope.
	LoadError string
}

func NewTable(db, name string, columns ...*Column) *Table {
	t := &Table{
		Db:          strings.ToLower(db),
		Name:        strings.ToLower(name),
		Kind:        TableFS,
		NumRows:     -1,
		FileFormats: []FileFormat{FormatParquet},
		Masks:       make(map[string]string),
	}
	for _, c := range columns {
		t.AddColumn(c)
	}
	return t
}

// NewColumn creates a nullable column with unknown statistics
func NewColumn(name string, ty Type) *Column {
	return &Column{
		Name:     strings.ToLower(name),
		Type:     ty,
		Nullable: true,
		Stats:    UnknownStats,
	}
}

func (self *Table) AddColumn(c *Column) {
	c.Position = len(self.Columns)
	self.Columns = append(self.Columns, c)
}

func (self *Table) FullName() string { return self.Db + "." + self.Name }

func (self *Table) IsLoaded() bool { return self.LoadError == "" }

// Column does a case insensitive lookup, nil if not found
func (self *Table) Column(name string) *Column {
	for _, c := range self.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// StructType views the table schema as a struct, ie one field per column. This
// is what path resolution walks through.
func (self *Table) StructType() *StructType {
	fields := []StructField{}
	for _, c := range self.Columns {
		fields = append(fields, Field(c.Name, c.Type))
	}
	return NewStruct(fields...)
}

// MaskExpr returns the mask expression registered on the given column
func (self *Table) MaskExpr(column string) (string, bool) {
	for k, v := range self.Masks {
		if strings.EqualFold(k, column) {
			return v, true
		}
	}
	return "", false
}
