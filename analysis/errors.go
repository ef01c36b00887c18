package analysis

import (
	"errors"
	"fmt"
)

// Two error channels exist. User facing problems, ie the query is wrong or
// asks for something we cannot do, are returned as *AnalysisError. A broken
// internal invariant is a bug and is raised as a panic carrying an
// *InternalError, it is never recovered by this package.

type ErrorKind int

const (
	KindUnsupportedType = ErrorKind(iota)
	KindInvalidType
	KindStructFormat
	KindStructCollectionField
	KindResolution
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnsupportedType:
		return "unsupported-type"
	case KindInvalidType:
		return "invalid-type"
	case KindStructFormat:
		return "struct-format"
	case KindStructCollectionField:
		return "struct-collection-field"
	case KindResolution:
		return "resolution"
	default:
		return "unknown"
	}
}

// AnalysisError indicates the query cannot be analyzed.
type AnalysisError struct {
	Kind    ErrorKind
	Message string
}

func (e *AnalysisError) Error() string { return e.Message }

func errAnalysis(kind ErrorKind, format string, args ...interface{}) *AnalysisError {
	return &AnalysisError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func errResolution(format string, args ...interface{}) *AnalysisError {
	return errAnalysis(KindResolution, format, args...)
}

// IsKind reports whether err, or anything it wraps, is an *AnalysisError of
// the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// InternalError is the panic value of a violated invariant.
type InternalError struct {
	Invariant string
	Message   string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error [%s]: %s", e.Invariant, e.Message)
}

func internalf(invariant string, format string, args ...interface{}) {
	panic(&InternalError{Invariant: invariant, Message: fmt.Sprintf(format, args...)})
}

func assertf(cond bool, invariant string, format string, args ...interface{}) {
	if !cond {
		internalf(invariant, format, args...)
	}
}

// ErrTableLoading is reported by a scope when the metadata of a table that is
// referenced by a path cannot be loaded.
var ErrTableLoading = errors.New("table metadata could not be loaded")

// CompileError is returned by Compile, it carries the failing query
type CompileError struct {
	Query string
	Err   error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %q: %s", e.Query, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }
