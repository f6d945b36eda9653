package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when an action is not available on the
	// current screen.
	ErrInvalidTransition = errors.New("action not available on this screen")

	// ErrPending is returned while a dispatch is in flight.
	ErrPending = errors.New("a submission is still in progress")

	// ErrNoResponse gates advancing past an unanswered item.
	ErrNoResponse = errors.New("choose a response before continuing")

	// ErrUnknownItem is returned when recording against an id not in the pool.
	ErrUnknownItem = errors.New("item is not part of this pool")

	// ErrInvalidSlot is returned for slots other than A and B.
	ErrInvalidSlot = errors.New("slot must be A or B")

	// ErrUnknownForm is returned when choosing a form that is not configured.
	ErrUnknownForm = errors.New("unknown form")
)

// ValidationReason distinguishes why an email was rejected.
type ValidationReason string

const (
	ReasonFormat ValidationReason = "format"
	ReasonDomain ValidationReason = "domain"
)

// ValidationError is returned by Identify; the session stays on the identify
// screen and the message is shown inline.
type ValidationError struct {
	Reason  ValidationReason
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid email (%s): %s", e.Reason, e.Message)
}
