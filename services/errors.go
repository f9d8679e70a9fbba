package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrorCode classifies every failure the booking core reports to a caller.
type ErrorCode string

const (
	CodeInvalidFormat         ErrorCode = "invalid_format"
	CodeNotFound              ErrorCode = "not_found"
	CodeInactive              ErrorCode = "inactive"
	CodeCapacityExceeded      ErrorCode = "capacity_exceeded"
	CodeConflict              ErrorCode = "conflict"
	CodeNoAvailability        ErrorCode = "no_availability"
	CodeMissingName           ErrorCode = "missing_name"
	CodeMissingContact        ErrorCode = "missing_contact"
	CodeAlreadyCanceled       ErrorCode = "already_canceled"
	CodeNotCancelable         ErrorCode = "not_cancelable"
	CodeInvalidStatus         ErrorCode = "invalid_status"
	CodeTokenInvalidOrExpired ErrorCode = "token_invalid_or_expired"
	CodeForbidden             ErrorCode = "forbidden"
)

// NonFieldErrors is the field key for errors not tied to one input.
const NonFieldErrors = "non_field_errors"

type FieldError struct {
	Field   string
	Message string
}

// BookingError is a structured, field-attributable domain error.
type BookingError struct {
	Code    ErrorCode
	Message string
	Fields  []FieldError
}

func (e *BookingError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Is matches any BookingError with the same code, so errors.Is(err, ErrConflict) works
// regardless of message and fields.
func (e *BookingError) Is(target error) bool {
	t, ok := target.(*BookingError)
	return ok && t.Code == e.Code
}

// FieldMap groups messages by field name.
func (e *BookingError) FieldMap() map[string][]string {
	if len(e.Fields) == 0 {
		return nil
	}
	out := make(map[string][]string, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Field] = append(out[f.Field], f.Message)
	}
	return out
}

var (
	ErrInvalidFormat         = &BookingError{Code: CodeInvalidFormat}
	ErrNotFound              = &BookingError{Code: CodeNotFound}
	ErrInactive              = &BookingError{Code: CodeInactive}
	ErrCapacityExceeded      = &BookingError{Code: CodeCapacityExceeded}
	ErrConflict              = &BookingError{Code: CodeConflict}
	ErrNoAvailability        = &BookingError{Code: CodeNoAvailability}
	ErrMissingName           = &BookingError{Code: CodeMissingName}
	ErrMissingContact        = &BookingError{Code: CodeMissingContact}
	ErrAlreadyCanceled       = &BookingError{Code: CodeAlreadyCanceled}
	ErrNotCancelable         = &BookingError{Code: CodeNotCancelable}
	ErrInvalidStatus         = &BookingError{Code: CodeInvalidStatus}
	ErrTokenInvalidOrExpired = &BookingError{Code: CodeTokenInvalidOrExpired}
	ErrForbidden             = &BookingError{Code: CodeForbidden}
)

func newError(code ErrorCode, message string) *BookingError {
	return &BookingError{Code: code, Message: message}
}

func fieldError(code ErrorCode, field, message string) *BookingError {
	return &BookingError{
		Code:    code,
		Message: message,
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}

// overlapTriggerMessage is raised by the reservations triggers in database/triggers.
const overlapTriggerMessage = "reservation_overlap"

// isOverlapViolation reports whether err comes from the storage-level overlap backstop.
func isOverlapViolation(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1644 {
		return true
	}
	return strings.Contains(err.Error(), overlapTriggerMessage)
}

// WithField attributes a BookingError without fields to field. Other errors are
// returned unchanged.
func WithField(err error, field string) error {
	var be *BookingError
	if !errors.As(err, &be) || len(be.Fields) > 0 {
		return err
	}
	return fieldError(be.Code, field, be.Error())
}
