package fault

import (
	"errors"
)

// Domain outcomes shared by the registration workflow and the attendance
// verifier, matched with errors.Is at the HTTP boundary.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrConflict      = errors.New("already registered for this event")
	ErrFull          = errors.New("event is full")
	ErrNotAllowed    = errors.New("organizers cannot register for their own event")
	ErrNotRegistered = errors.New("not registered for this event")
	ErrValidation    = errors.New("invalid input")
)
