package service

import (
	"errors"
	"fmt"
)

// Kind classifies service failures; the HTTP layer maps each kind to a
// status code.
type Kind int

const (
	KindUnauthorized Kind = iota + 1
	KindConflict
	KindForbidden
	KindNotFound
	KindInvalid
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid"
	case KindStorage:
		return "storage"
	}
	return "unknown"
}

// Refresh-flow reasons. Sign-in never gets a reason so the caller cannot
// tell an unknown email from a wrong password.
const (
	ReasonRefreshExpired = "REFRESH_EXPIRED"
	ReasonRefreshInvalid = "REFRESH_INVALID"
)

// Error is the typed failure every service returns. Reason is safe to show
// to clients; Err is the internal cause and is only logged.
type Error struct {
	Kind   Kind
	Reason string
	Fields map[string]string // per-field messages for KindInvalid
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrUnauthorized) match any Error of that kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

var (
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrInvalid      = &Error{Kind: KindInvalid}
)

func unauthorized(reason string, cause error) error {
	return &Error{Kind: KindUnauthorized, Reason: reason, Err: cause}
}

func conflict(reason string) error {
	return &Error{Kind: KindConflict, Reason: reason}
}

func notFound(reason string) error {
	return &Error{Kind: KindNotFound, Reason: reason}
}

func forbidden(reason string) error {
	return &Error{Kind: KindForbidden, Reason: reason}
}

func storageErr(op string, err error) error {
	return &Error{Kind: KindStorage, Err: fmt.Errorf("%s: %w", op, err)}
}
