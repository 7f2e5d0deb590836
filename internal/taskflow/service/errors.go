package service

import (
	"errors"
	"strings"
)

var (
	ErrDuplicateEmail         = errors.New("user already exists with this email")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidCurrentPassword = errors.New("current password is incorrect")
	ErrInvalidRole            = errors.New("invalid role, allowed values are: user, admin")
	ErrInvalidResetToken      = errors.New("password reset token is invalid or has expired")

	ErrAlreadyBootstrapped   = errors.New("system already bootstrapped")
	ErrBootstrapUnauthorized = errors.New("unauthorized bootstrap attempt")

	ErrTaskNotFound    = errors.New("task not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrForbidden       = errors.New("not authorized to access this resource")
)

// FieldError is one failed input check.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every failed check of an input, not just the first.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation error: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// err returns e when any check failed, nil otherwise.
func (e *ValidationError) err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
