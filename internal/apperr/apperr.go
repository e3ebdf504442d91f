// Package apperr defines the error taxonomy shared by the interview engine.
//
// Every error returned by the core carries a Kind so that callers can branch
// with errors.Is against the sentinel values below, regardless of how many
// times it was wrapped on the way up.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindInvalidState Kind = "invalid_state"
	KindUnavailable  Kind = "collaborator_unavailable"
	KindCamera       Kind = "camera_unavailable"
	KindNotFound     Kind = "not_found"
)

// Sentinels for errors.Is.
var (
	ErrValidation              = &Error{Kind: KindValidation}
	ErrInvalidState            = &Error{Kind: KindInvalidState}
	ErrCollaboratorUnavailable = &Error{Kind: KindUnavailable}
	ErrCameraUnavailable       = &Error{Kind: KindCamera}
	ErrNotFound                = &Error{Kind: KindNotFound}
)

// Error is a classified error with an optional operation name and cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so sentinels compare by kind only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Validation reports bad caller input.
func Validation(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// InvalidState reports an operation attempted in the wrong lifecycle state.
func InvalidState(op, format string, args ...any) error {
	return &Error{Kind: KindInvalidState, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Unavailable reports an unreachable, failing or timed out collaborator.
func Unavailable(op string, err error) error {
	return &Error{Kind: KindUnavailable, Op: op, Msg: "collaborator unavailable", Err: err}
}

// Camera reports that the camera could not be acquired.
func Camera(op string, err error) error {
	return &Error{Kind: KindCamera, Op: op, Msg: "camera unavailable", Err: err}
}

// NotFound reports a missing session or report.
func NotFound(op, format string, args ...any) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
