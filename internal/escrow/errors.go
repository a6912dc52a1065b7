package escrow

import (
	"errors"
	"fmt"
)

// Kind classifies an escrow failure. Every kind is a synchronous, caller-facing
// failure; only KindConflict may succeed when the same request is sent again.
type Kind string

const (
	KindUnknown                 Kind = "UNKNOWN"
	KindNotFound                Kind = "NOT_FOUND"
	KindInvalidStatusTransition Kind = "INVALID_STATUS_TRANSITION"
	KindInvalidReleaseAmount    Kind = "INVALID_RELEASE_AMOUNT"
	KindSettingsNotFound        Kind = "SETTINGS_NOT_FOUND"
	KindInvalidInput            Kind = "INVALID_INPUT"
	KindConflict                Kind = "CONFLICT"
)

// Error is a domain error carrying a Kind and optional metadata for the caller.
type Error struct {
	Kind     Kind
	Message  string
	Metadata map[string]string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound                = &Error{Kind: KindNotFound, Message: "escrow not found"}
	ErrInvalidStatusTransition = &Error{Kind: KindInvalidStatusTransition, Message: "invalid status transition"}
	ErrInvalidReleaseAmount    = &Error{Kind: KindInvalidReleaseAmount, Message: "invalid release amount"}
	ErrSettingsNotFound        = &Error{Kind: KindSettingsNotFound, Message: "escrow settings not found"}
	ErrInvalidInput            = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrConflict                = &Error{Kind: KindConflict, Message: "conflict"}
)

func newError(kind Kind, msg string, meta map[string]string) *Error {
	return &Error{Kind: kind, Message: msg, Metadata: meta}
}

// NotFound reports a missing escrow (or other referenced record).
func NotFound(what, ref string) error {
	return newError(KindNotFound, what+" not found", map[string]string{"ref": ref})
}

// InvalidInput reports malformed caller input.
func InvalidInput(msg string) error {
	return newError(KindInvalidInput, msg, nil)
}

// Conflict reports a write that lost against a concurrent writer or a uniqueness clash.
func Conflict(msg string, err error) error {
	e := newError(KindConflict, msg, nil)
	e.Err = err
	return e
}

// SettingsNotFound reports that the deposit policy could not be resolved.
func SettingsNotFound(err error) error {
	e := newError(KindSettingsNotFound, "escrow settings not found", nil)
	e.Err = err
	return e
}

// KindOf extracts the kind of err, or KindUnknown for non-domain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// MetadataOf returns the metadata attached to a domain error, if any.
func MetadataOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Metadata
	}
	return nil
}
