package domain

import "fmt"

// ErrorKind classifies a failed operation. Kinds are sentinels matched with errors.Is.
type ErrorKind string

func (k ErrorKind) Error() string { return string(k) }

// Error kinds surfaced by ledger operations.
const (
	// ErrNotFound reports a referenced asset or participant that is absent.
	ErrNotFound ErrorKind = "not found"
	// ErrUnauthorized reports a caller org that does not match the org mapped to the required role.
	ErrUnauthorized ErrorKind = "unauthorized"
	// ErrNotOwner reports an actor that is not the current owner on an owner-restricted operation.
	ErrNotOwner ErrorKind = "not owner"
	// ErrInvalidQuantity reports a split or transfer quantity outside (0, asset.qty].
	ErrInvalidQuantity ErrorKind = "invalid quantity"
	// ErrUnregisteredParticipant reports registration against an unknown originator.
	ErrUnregisteredParticipant ErrorKind = "unregistered participant"
	// ErrUnavailable reports a transfer attempted on an asset whose availability gate is closed.
	ErrUnavailable ErrorKind = "unavailable"
	// ErrInvalidArgument reports malformed input: bad JSON, unknown role, unparsable number.
	ErrInvalidArgument ErrorKind = "invalid argument"
	// ErrConflict reports an optimistic commit that lost against a concurrent writer.
	ErrConflict ErrorKind = "conflict"
)

// Error is the structured failure returned to callers. It names the violated
// precondition and unwraps to its Kind.
type Error struct {
	Kind   ErrorKind
	Entity EntityType
	ID     string
	Reason string
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Entity != "" {
		msg = fmt.Sprintf("%s: %s", e.Entity, msg)
		if e.ID != "" {
			msg = fmt.Sprintf("%s %s: %s", e.Entity, e.ID, e.Kind)
		}
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Unwrap exposes the kind so errors.Is(err, ErrNotFound) works.
func (e *Error) Unwrap() error { return e.Kind }

// NewError builds an *Error with a formatted reason.
func NewError(kind ErrorKind, entity EntityType, id, format string, args ...any) *Error {
	reason := format
	if len(args) > 0 {
		reason = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Entity: entity, ID: id, Reason: reason}
}

// NotFound reports that the record identified by id does not exist.
func NotFound(entity EntityType, id string) *Error {
	return &Error{Kind: ErrNotFound, Entity: entity, ID: id}
}

// InvalidArgument reports malformed caller input.
func InvalidArgument(format string, args ...any) *Error {
	return NewError(ErrInvalidArgument, "", "", format, args...)
}
