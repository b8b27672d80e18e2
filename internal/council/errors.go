// ABOUTME: Typed council errors carrying a kind, a message and a hint for the caller
// ABOUTME: Kinds map to validation, not-found and conflict rejections; everything else is infra

package council

import "errors"

// Kind classifies a rejected operation
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a rejection with no state change. Message is shown to the agent,
// Hint tells it what to do next.
type Error struct {
	Kind    Kind
	Message string
	Hint    string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind when the target carries no message,
// so errors.Is(err, ErrConflict) works for every conflict.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" {
		return t.Kind == e.Kind
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// Kind sentinels for errors.Is
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConflict   = &Error{Kind: KindConflict}
)

// ErrNoOpenRound is returned by CurrentRound between a close and the next open
var ErrNoOpenRound = &Error{
	Kind:    KindNotFound,
	Message: "No open round",
	Hint:    "A new round should open automatically within 30 seconds.",
}

// ErrRoundClosed is returned when writing to, or settling, a round that is already closed
var ErrRoundClosed = &Error{
	Kind:    KindConflict,
	Message: "Round is closed",
	Hint:    "Wait for the next round to start.",
}

// ErrRoundNotFound is returned when a round id does not exist
var ErrRoundNotFound = &Error{
	Kind:    KindNotFound,
	Message: "Round not found",
	Hint:    "Fetch /api/round/current for the latest round_id.",
}

func validationError(message, hint string) *Error {
	return &Error{Kind: KindValidation, Message: message, Hint: hint}
}

func notFoundError(message, hint string) *Error {
	return &Error{Kind: KindNotFound, Message: message, Hint: hint}
}

func conflictError(message, hint string) *Error {
	return &Error{Kind: KindConflict, Message: message, Hint: hint}
}

// AsError extracts a council *Error from err, if any
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
