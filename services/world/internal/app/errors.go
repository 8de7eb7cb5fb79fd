package app

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"mozhi/pkg/store"
)

var (
	// ErrCoverStorageDisabled indicates no object store was configured.
	ErrCoverStorageDisabled = errors.New("cover storage not configured")
	// ErrCoverTooLarge indicates an upload over the configured cover limit.
	ErrCoverTooLarge = errors.New("cover file too large")
	// ErrCoverType indicates an upload that is not an accepted image type.
	ErrCoverType = errors.New("unsupported cover type")
)

// Error is a domain failure with an explicit HTTP status. Its message is
// safe to show to clients.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

func notFound(what string) *Error {
	return &Error{Status: http.StatusNotFound, Message: what + " not found"}
}

func conflict(format string, args ...any) *Error {
	return &Error{Status: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}

// FieldError describes one invalid input field. Loc is the path to the
// field, starting with where it came from ("body", "query", "path").
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationError is a rejected request whose details name the offending
// fields.
type ValidationError struct {
	Details []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, strings.Join(d.Loc, ".")+": "+d.Msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalidField(field, msg, typ string) *ValidationError {
	return &ValidationError{Details: []FieldError{{Loc: []string{"body", field}, Msg: msg, Type: typ}}}
}

func badReference(field string) *ValidationError {
	return invalidField(field, "referenced record does not exist in this book", "value_error.reference")
}

// storeError turns store sentinels that reflect client mistakes into
// explicit errors. Everything else passes through untouched.
func storeError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return notFound(what)
	case errors.Is(err, store.ErrDuplicate):
		return conflict("%s already exists", what)
	case errors.Is(err, store.ErrForeignKey):
		return &ValidationError{Details: []FieldError{{Loc: []string{"body"}, Msg: "referenced record does not exist", Type: "value_error.reference"}}}
	case errors.Is(err, store.ErrCheckViolation):
		return &ValidationError{Details: []FieldError{{Loc: []string{"body"}, Msg: "value violates a constraint", Type: "value_error.constraint"}}}
	}
	return err
}
