package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/rmatrack/internal/rma"
)

// Code categorizes lifecycle errors.
type Code string

const (
	// CodeAccessDenied indicates the identity is in no role set.
	CodeAccessDenied Code = "ACCESS_DENIED"

	// CodeValidation indicates a required field is missing or malformed.
	CodeValidation Code = "VALIDATION"

	// CodeNotFound indicates no record has the requested id.
	CodeNotFound Code = "NOT_FOUND"

	// CodePermission indicates the identity does not own the stage.
	CodePermission Code = "PERMISSION"

	// CodeInvalidState indicates the record is not in the stage's status.
	CodeInvalidState Code = "INVALID_STATE"

	// CodeConflict indicates the record changed since the caller read it.
	CodeConflict Code = "CONFLICT"

	// CodePersistence indicates the table or an attachment could not be written.
	CodePersistence Code = "PERSISTENCE"
)

// Error is a rejected or failed lifecycle operation.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// RecordID identifies the affected record, if any.
	RecordID string

	// Identity is the caller.
	Identity string

	// Fields lists the offending request fields (validation errors).
	Fields []string

	// Err is the underlying cause (persistence errors).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.RecordID != "" {
		fmt.Fprintf(&b, " (rma=%s)", e.RecordID)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the Code of err, or "" if err is not an *Error.
func CodeOf(err error) Code {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsAccessDenied returns true if err is an access denial.
func IsAccessDenied(err error) bool { return CodeOf(err) == CodeAccessDenied }

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsNotFound returns true if err is a missing-record error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsPermission returns true if err is a stage permission error.
func IsPermission(err error) bool { return CodeOf(err) == CodePermission }

// IsInvalidState returns true if err is a wrong-status error.
func IsInvalidState(err error) bool { return CodeOf(err) == CodeInvalidState }

// IsConflict returns true if err is a stale-version error.
func IsConflict(err error) bool { return CodeOf(err) == CodeConflict }

// IsPersistence returns true if err is a write failure.
func IsPersistence(err error) bool { return CodeOf(err) == CodePersistence }

func newAccessDenied(identity string) *Error {
	return &Error{
		Code:     CodeAccessDenied,
		Message:  "you do not have permission to access this system",
		Identity: identity,
	}
}

func newValidation(identity string, fields []string, msg string) *Error {
	if msg == "" {
		msg = "please complete all required fields: " + strings.Join(fields, ", ")
	}
	return &Error{Code: CodeValidation, Message: msg, Identity: identity, Fields: fields}
}

func newNotFound(identity, id string) *Error {
	return &Error{Code: CodeNotFound, Message: "record not found", RecordID: id, Identity: identity}
}

func newPermission(identity, stage string) *Error {
	return &Error{
		Code:     CodePermission,
		Message:  fmt.Sprintf("%s is not allowed to perform %s", identity, stage),
		Identity: identity,
	}
}

func newInvalidState(identity, id string, have, want rma.Status) *Error {
	return &Error{
		Code:     CodeInvalidState,
		Message:  fmt.Sprintf("record is %s, must be %s", have, want),
		RecordID: id,
		Identity: identity,
	}
}

func newConflict(identity, id string, expected, actual int64) *Error {
	return &Error{
		Code:     CodeConflict,
		Message:  fmt.Sprintf("record changed: expected version %d, found %d", expected, actual),
		RecordID: id,
		Identity: identity,
	}
}

func newPersistence(identity, id, msg string, err error) *Error {
	return &Error{Code: CodePersistence, Message: msg, RecordID: id, Identity: identity, Err: err}
}
