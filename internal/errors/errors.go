// Package errors provides the error kinds raised while de-identifying and
// defacing imaging records.
//
// Every error carries a Kind and the path of the unit it applies to, so a
// caller can decide whether to abort the run or skip a record or series:
//
//	var perr *errors.Error
//	if errors.As(err, &perr) && perr.Kind == errors.KindSliceIndex {
//	    report.Skip(perr.Path, perr.Reason)
//	}
//
//	if errors.Is(err, errors.ErrDiscovery) {
//	    return err
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Kind classifies a failure.
type Kind string

const (
	// KindDiscovery: the root directory is missing or unreadable. Aborts a run.
	KindDiscovery Kind = "DISCOVERY"
	// KindRecordParse: a record file could not be parsed. Skips that record.
	KindRecordParse Kind = "RECORD_PARSE"
	// KindAlignment: converted volumes cannot be aligned with their inputs. Skips defacing.
	KindAlignment Kind = "ALIGNMENT"
	// KindSliceIndex: a record's slice index lies outside the volume. Skips the series.
	KindSliceIndex Kind = "SLICE_INDEX"
	// KindIntegrity: pixel geometry or value range does not fit the record. Skips the record.
	KindIntegrity Kind = "INTEGRITY"
	// KindTool: an external tool failed or produced no output. Skips the series.
	KindTool Kind = "TOOL"
	// KindConfig: the configuration is invalid.
	KindConfig Kind = "CONFIG"
)

// Scope returns the unit a failure of this kind applies to.
func (k Kind) Scope() string {
	switch k {
	case KindDiscovery, KindConfig:
		return "run"
	case KindRecordParse, KindIntegrity:
		return "record"
	default:
		return "series"
	}
}

// Error is a classified failure attached to a path.
type Error struct {
	Kind   Kind   `json:"kind"`
	Path   string `json:"path,omitempty"`
	Reason string `json:"reason"`
	cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Reason
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Kind: e.Kind, Path: e.Path, Reason: e.Reason, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrDiscovery   = &Error{Kind: KindDiscovery, Reason: "discovery failed"}
	ErrRecordParse = &Error{Kind: KindRecordParse, Reason: "record parse failed"}
	ErrAlignment   = &Error{Kind: KindAlignment, Reason: "alignment failed"}
	ErrSliceIndex  = &Error{Kind: KindSliceIndex, Reason: "slice index out of range"}
	ErrIntegrity   = &Error{Kind: KindIntegrity, Reason: "integrity check failed"}
	ErrTool        = &Error{Kind: KindTool, Reason: "external tool failed"}
	ErrConfig      = &Error{Kind: KindConfig, Reason: "invalid configuration"}
)

func newf(kind Kind, path string, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Reason: fmt.Sprintf(format, args...), cause: cause}
}

// Discovery creates a discovery error for root.
func Discovery(root string, cause error, format string, args ...any) *Error {
	return newf(KindDiscovery, root, cause, format, args...)
}

// RecordParse creates a parse error for a record file.
func RecordParse(path string, cause error) *Error {
	return newf(KindRecordParse, path, cause, "cannot read record")
}

// Alignment creates an alignment error.
func Alignment(format string, args ...any) *Error {
	return newf(KindAlignment, "", nil, format, args...)
}

// SliceIndex creates a slice index error for a record file.
func SliceIndex(path string, index, depth int) *Error {
	return newf(KindSliceIndex, path, nil, "slice index %d outside volume depth 1..%d", index, depth)
}

// Integrity creates an integrity error for a record file.
func Integrity(path string, format string, args ...any) *Error {
	return newf(KindIntegrity, path, nil, format, args...)
}

// Tool creates an external tool error.
func Tool(path string, cause error, format string, args ...any) *Error {
	return newf(KindTool, path, cause, format, args...)
}

// Config creates a configuration error.
func Config(format string, args ...any) *Error {
	return newf(KindConfig, "", nil, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
