package services

import (
	"errors"
	"fmt"

	"collab/internal/repositories"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNotFound             = errors.New("not found")
	ErrSelfRequestForbidden = errors.New("self request forbidden")
	ErrDuplicateRequest     = errors.New("duplicate request")
	ErrInvalidMessage       = errors.New("invalid message")
	ErrNotAuthorized        = errors.New("not authorized")
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrInvalidInput         = errors.New("invalid input")
	ErrConflict             = errors.New("conflict")
	ErrInvalidCredentials   = errors.New("invalid credentials")
)

// Error is a domain error with a message fit for the API caller.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrProjectNotFound = &Error{Kind: ErrNotFound, Message: "project not found"}
	ErrMatchNotFound   = &Error{Kind: ErrNotFound, Message: "match not found"}
	ErrUserNotFound    = &Error{Kind: ErrNotFound, Message: "user not found"}

	errSelfRequest   = &Error{Kind: ErrSelfRequestForbidden, Message: "you cannot request to join your own project"}
	errDuplicate     = &Error{Kind: ErrDuplicateRequest, Message: "you have already sent a request for this project"}
	errAlreadyMember = &Error{Kind: ErrConflict, Message: "you are already a member of this project"}
)

func isRecordNotFound(err error) bool {
	return errors.Is(err, repositories.ErrRecordNotFound)
}
