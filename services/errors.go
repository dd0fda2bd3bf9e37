package services

import (
	"errors"
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Kind classifies a use case failure. The boundary layer maps an error to a
// transport status with StatusFor, which uses Kind.HTTPStatus.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindDuplicateName
	KindDuplicateEmail
	KindNotFound
	KindAuthentication
)

const internalDetail = "internal server error"

// String is the stable error code written into API error bodies.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindDuplicateName:
		return "duplicate_name"
	case KindDuplicateEmail:
		return "duplicate_email"
	case KindNotFound:
		return "not_found"
	case KindAuthentication:
		return "authentication_failed"
	default:
		return "internal_error"
	}
}

// HTTPStatus is the status code for the kind; see StatusFor.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindDuplicateName, KindDuplicateEmail:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error is the only error type returned by use case methods.
// Detail is safe to show to callers; cause is kept for logging.
type Error struct {
	Kind   Kind
	Detail string
	cause  error
}

// Sentinels for errors.Is comparisons by kind.
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrDuplicateName  = &Error{Kind: KindDuplicateName}
	ErrDuplicateEmail = &Error{Kind: KindDuplicateEmail}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrInternal       = &Error{Kind: KindInternal}
)

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another *Error of the same kind, so the package sentinels work
// with errors.Is regardless of detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Detail == "" || t.Detail == e.Detail)
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func internalError(cause error) *Error {
	return &Error{Kind: KindInternal, Detail: internalDetail, cause: cause}
}

// KindOf reports the classification of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// StatusFor maps a use case error to its HTTP status. A nil error is 200.
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return KindOf(err).HTTPStatus()
}

// PublicDetail is the message a caller may see for err.
func PublicDetail(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return internalDetail
}

// normalize turns any error escaping a use case into an *Error. Model
// validation failures become validation errors; everything else unexpected
// is internal.
func normalize(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return &Error{Kind: KindValidation, Detail: verrs.Error(), cause: err}
	}
	return internalError(err)
}
