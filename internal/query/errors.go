package query

import (
	"errors"
	"fmt"
)

// Error reports a directive that could not be built or merged.
//
// Errors are never recovered inside this package: construction fails
// synchronously and the merge algebra returns the error to the caller of
// Combine (and from there to the prefetch collector and the planner).
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Directive is the classifier of the directive that failed.
	Directive string

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes directive errors.
type ErrorCode string

const (
	// ErrCodeStructure indicates an arity, type, or cardinality violation.
	ErrCodeStructure ErrorCode = "CONSTRAINT_STRUCTURE"

	// ErrCodeConflicting indicates two tree-shaped directives with
	// irreconcilable explicit sub-directives (differing stop conditions).
	ErrCodeConflicting ErrorCode = "CONFLICTING_DIRECTIVE"

	// ErrCodeIncombinable indicates two reference directives that cannot be
	// proven equivalent enough to merge.
	ErrCodeIncombinable ErrorCode = "INCOMBINABLE_DIRECTIVE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Directive != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Directive, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsStructureError returns true if err is a constraint structure error.
// Uses errors.As to handle wrapped errors.
func IsStructureError(err error) bool {
	return hasCode(err, ErrCodeStructure)
}

// IsConflictingError returns true if err is a conflicting directive error.
func IsConflictingError(err error) bool {
	return hasCode(err, ErrCodeConflicting)
}

// IsIncombinableError returns true if err is an incombinable directive error.
func IsIncombinableError(err error) bool {
	return hasCode(err, ErrCodeIncombinable)
}

func hasCode(err error, code ErrorCode) bool {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code == code
	}
	return false
}

func structureError(directive, format string, args ...any) *Error {
	return &Error{
		Code:      ErrCodeStructure,
		Directive: directive,
		Message:   fmt.Sprintf(format, args...),
	}
}

// conflictingError names both directives so the rejected query can be traced
// back to the pair that caused it.
func conflictingError(a, b Node, reason string) *Error {
	return &Error{
		Code:      ErrCodeConflicting,
		Directive: a.Name(),
		Message:   fmt.Sprintf("cannot combine %s with %s: %s", Format(a), Format(b), reason),
	}
}

func incombinableError(a, b Node, reason string) *Error {
	return &Error{
		Code:      ErrCodeIncombinable,
		Directive: a.Name(),
		Message:   fmt.Sprintf("cannot combine %s with %s: %s", Format(a), Format(b), reason),
	}
}
