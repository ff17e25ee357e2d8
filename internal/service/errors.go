package service

import (
	"errors"
	"fmt"
)

// Kind classifies the errors the engine reports to callers
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindInvalidInput         Kind = "invalid_input"
	KindInsufficientCatalog  Kind = "insufficient_catalog"
	KindCycleNotEnded        Kind = "cycle_not_ended"
	KindPredictorUnavailable Kind = "predictor_unavailable"
	KindConcurrencyConflict  Kind = "concurrency_conflict"
)

// Error is a classified service error. Sentinels with an empty Message match
// any Error of the same Kind under errors.Is.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrInvalidInput         = &Error{Kind: KindInvalidInput}
	ErrInsufficientCatalog  = &Error{Kind: KindInsufficientCatalog}
	ErrCycleNotEnded        = &Error{Kind: KindCycleNotEnded}
	ErrPredictorUnavailable = &Error{Kind: KindPredictorUnavailable}
	ErrConcurrencyConflict  = &Error{Kind: KindConcurrencyConflict}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of a service error, or "" for anything else
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
