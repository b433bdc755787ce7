package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("requested resource not found")
	ErrForbidden     = errors.New("forbidden access")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInternal      = errors.New("internal server error")
)

// Error is a tagged failure: Kind is one of the sentinels above and Message
// is what the caller is shown.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// NewError builds a tagged failure of the given kind with a formatted message.
func NewError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Kind reports which sentinel err belongs to, or ErrInternal when it is untagged.
func Kind(err error) error {
	for _, k := range []error{ErrInvalidInput, ErrNotFound, ErrForbidden, ErrAlreadyExists} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}

// Message returns the text safe to show a client. Untagged errors are hidden.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if Kind(err) != ErrInternal {
		return err.Error()
	}
	return ErrInternal.Error()
}

// IsUniqueViolation reports whether err carries Postgres SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrAlreadyExists) {
		return http.StatusBadRequest
	}
	if IsUniqueViolation(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
