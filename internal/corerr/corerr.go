// Package corerr defines the CoreError taxonomy shared by every pipeline
// component: a single typed error with a code, an optional diagnostic
// location, and a fix hint, matching the teacher's practice of wrapping
// underlying errors with fmt.Errorf("...: %w", err) rather than panicking.
package corerr

import (
	"errors"
	"fmt"
)

// Code classifies a CoreError per the error taxonomy.
type Code int

const (
	// CodeValidation covers plan/template/preset/fixture config structural failures.
	CodeValidation Code = iota
	// CodeCurve covers InvalidSampleCount, InvalidCycles, UnknownCurveKind.
	CodeCurve
	// CodeGeometry covers unknown geometry IDs or classification bugs.
	CodeGeometry
	// CodeTemplate covers unknown template/preset IDs or pattern-ID validation failures.
	CodeTemplate
	// CodeBoundary records a DMX value clamp event (informational, not fatal).
	CodeBoundary
	// CodeEmission covers output file/XML emission failures.
	CodeEmission
	// CodeParse covers XSQ parsing failures.
	CodeParse
)

func (c Code) String() string {
	switch c {
	case CodeValidation:
		return "ValidationError"
	case CodeCurve:
		return "CurveError"
	case CodeGeometry:
		return "GeometryError"
	case CodeTemplate:
		return "TemplateError"
	case CodeBoundary:
		return "BoundaryViolation"
	case CodeEmission:
		return "EmissionError"
	case CodeParse:
		return "ParseError"
	default:
		return "UnknownError"
	}
}

// CoreError is the single error type returned by every fallible operation in
// the pipeline. Section/Step/Fixture are diagnostic location fields, left
// empty when not applicable.
type CoreError struct {
	Code    Code
	Section string
	Step    string
	Fixture string
	Hint    string
	Err     error
}

func (e *CoreError) Error() string {
	msg := e.Code.String()
	if e.Section != "" {
		msg += fmt.Sprintf(" [section=%s]", e.Section)
	}
	if e.Step != "" {
		msg += fmt.Sprintf(" [step=%s]", e.Step)
	}
	if e.Fixture != "" {
		msg += fmt.Sprintf(" [fixture=%s]", e.Fixture)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Hint != "" {
		msg += " (hint: " + e.Hint + ")"
	}
	return msg
}

func (e *CoreError) Unwrap() error { return e.Err }

// Is reports whether target is a *CoreError with the same Code, so callers
// can dispatch with errors.Is(err, corerr.Validation(nil)) style checks, or
// more idiomatically with HasCode.
func (e *CoreError) Is(target error) bool {
	var t *CoreError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// HasCode reports whether err is (or wraps) a CoreError with the given code.
func HasCode(err error, code Code) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

func Validation(err error, location ...string) *CoreError {
	return newErr(CodeValidation, err, location...)
}

func Curve(err error, location ...string) *CoreError {
	return newErr(CodeCurve, err, location...)
}

func Geometry(err error, location ...string) *CoreError {
	return newErr(CodeGeometry, err, location...)
}

func Template(err error, location ...string) *CoreError {
	return newErr(CodeTemplate, err, location...)
}

func Boundary(err error, location ...string) *CoreError {
	return newErr(CodeBoundary, err, location...)
}

func Emission(err error, location ...string) *CoreError {
	return newErr(CodeEmission, err, location...)
}

func Parse(err error, location ...string) *CoreError {
	return newErr(CodeParse, err, location...)
}

// newErr builds a CoreError. location is an optional (section, step,
// fixture) triple, filled left-to-right; omitted trailing values stay empty.
func newErr(code Code, err error, location ...string) *CoreError {
	ce := &CoreError{Code: code, Err: err}
	if len(location) > 0 {
		ce.Section = location[0]
	}
	if len(location) > 1 {
		ce.Step = location[1]
	}
	if len(location) > 2 {
		ce.Fixture = location[2]
	}
	return ce
}

// WithHint attaches a fix hint and returns the same error for chaining.
func (e *CoreError) WithHint(hint string) *CoreError {
	e.Hint = hint
	return e
}
