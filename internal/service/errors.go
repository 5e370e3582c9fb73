package service

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/atinyakov/crowdfund/internal/models"
	"github.com/atinyakov/crowdfund/internal/repository"
)

var (
	// ErrUnauthorized is returned for unknown logins, wrong passwords and
	// tokens of profiles that no longer exist.
	ErrUnauthorized = errors.New("invalid credentials")
	// ErrForbidden is returned when the caller may not act on the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when the addressed resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when a lifecycle action is not allowed
	// from the project's current status.
	ErrInvalidTransition = models.ErrInvalidTransition
	// ErrValidation wraps field errors of a rejected payload.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when the write collides with existing state.
	ErrConflict = errors.New("conflict")
)

// invalid wraps a payload validation error so that both ErrValidation and the
// field map can be recovered by callers.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

// reason is a client-facing message classified by one of the sentinels.
type reason struct {
	kind error
	msg  string
}

func (e *reason) Error() string { return e.msg }
func (e *reason) Unwrap() error { return e.kind }

// because builds an error matching kind whose text is the formatted message.
func because(kind error, format string, args ...any) error {
	return &reason{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// missing translates a repository lookup failure for the named entity.
func missing(what string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return because(ErrNotFound, "%s not found", what)
	}
	return err
}

// errMessageRequired is the field error of a missing moderator comment.
var errMessageRequired = validationErrors("message", "cannot be blank")

func validationErrors(field, msg string) validation.Errors {
	return validation.Errors{field: errors.New(msg)}
}
