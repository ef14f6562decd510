// Package errors provides structured error handling for the mining pipeline.
// It implements errors with codes, context, and stack traces.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Code identifies an error class for programmatic handling.
type Code string

const (
	// Configuration errors (1xx) — fatal, surfaced before any computation.
	CodeInvalidPercentile  Code = "E101"
	CodeInvalidSegMethod   Code = "E102"
	CodeEmptyFeatureList   Code = "E103"
	CodeInvalidThreshold   Code = "E104"
	CodeInvalidGranularity Code = "E105"

	// Log / input errors (2xx)
	CodeFileNotFound     Code = "E201"
	CodeInvalidFormat    Code = "E202"
	CodeParseFailed      Code = "E203"
	CodeInvalidTimestamp Code = "E204"
	CodeMissingAttribute Code = "E205"

	// Mining errors (3xx)
	CodeFeatureExtraction Code = "E301"
	CodeClassification    Code = "E302"
	CodePathConstruction  Code = "E303"

	// Statistics errors (4xx)
	CodeDegenerateTable Code = "E401"
	CodePartitionSplit  Code = "E402"

	// Output errors (5xx)
	CodeWriteFailed Code = "E501"
	CodeExportQuery Code = "E502"

	// System errors (9xx)
	CodeContextCanceled Code = "E901"
	CodePanic           Code = "E902"
	CodeUnknown         Code = "E999"
)

// Error is the base error type for the framework.
type Error struct {
	Code       Code
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace []Frame
}

// Frame represents a stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		sb.WriteString(" (")
		first := true
		for k, v := range e.Context {
			if !first {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, v))
			first = false
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target error.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new Error.
func New(code Code, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		StackTrace: captureStack(2),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// captureStack captures the current stack trace.
func captureStack(skip int) []Frame {
	var frames []Frame
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	pcs = pcs[:n]

	cf := runtime.CallersFrames(pcs)
	for {
		frame, more := cf.Next()
		frames = append(frames, Frame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})
		if !more || len(frames) >= 10 {
			break
		}
	}
	return frames
}

// FormatStack returns a formatted stack trace.
func (e *Error) FormatStack() string {
	var sb strings.Builder
	for _, f := range e.StackTrace {
		sb.WriteString(fmt.Sprintf("  at %s\n    %s:%d\n", f.Function, f.File, f.Line))
	}
	return sb.String()
}

// --- Convenience constructors ---

// InvalidPercentile reports a percentile outside the open (50, 100) interval.
func InvalidPercentile(p float64) *Error {
	return New(CodeInvalidPercentile, "percentile must lie strictly between 50 and 100").
		WithContext("p", p)
}

// UnsupportedSegMethod reports an unknown segmentation method.
func UnsupportedSegMethod(method string) *Error {
	return New(CodeInvalidSegMethod, "unsupported segmentation method").
		WithContext("method", method)
}

// MissingAttribute reports an event missing a required attribute. The case
// and event indices identify where the defect sits so frame boundaries are
// never silently defaulted.
func MissingAttribute(attr string, caseID string, eventIdx int) *Error {
	return New(CodeMissingAttribute, "event is missing a required attribute").
		WithContext("attribute", attr).
		WithContext("case", caseID).
		WithContext("event", eventIdx)
}

// ContextCanceled creates a cancellation error.
func ContextCanceled(operation string) *Error {
	return New(CodeContextCanceled, "operation canceled").
		WithContext("operation", operation)
}

// --- Error checking utilities ---

// IsCode checks if an error has a specific code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsConfiguration returns true for fatal configuration errors, which must
// abort a run before any computation starts.
func IsConfiguration(err error) bool {
	switch GetCode(err) {
	case CodeInvalidPercentile, CodeInvalidSegMethod, CodeEmptyFeatureList,
		CodeInvalidThreshold, CodeInvalidGranularity:
		return true
	default:
		return false
	}
}
