// Package apperr defines the error taxonomy shared by the services.
//
// Every service operation returns (data, error). Errors that cross a service
// boundary are *Error values carrying a Kind; raw driver errors are folded
// into a Kind by Classify. Only KindNetwork is retried.
package apperr

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Kind is the category of a failure.
type Kind string

const (
	KindPermission Kind = "permission"
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindNetwork    Kind = "network"
	KindAuth       Kind = "auth"
)

// Error is a categorized, user-presentable error.
// Message is safe to show to the caller; Err is the underlying cause (if any)
// and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on Kind and Message against another *Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Message == "" || e.Message == t.Message)
}

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// Permission returns an authorization-denied error with the given reason.
func Permission(reason string) *Error { return newErr(KindPermission, reason, nil) }

// Validation returns a malformed-input error.
func Validation(msg string) *Error { return newErr(KindValidation, msg, nil) }

// Validationf is Validation with formatting.
func Validationf(format string, args ...any) *Error {
	return newErr(KindValidation, fmt.Sprintf(format, args...), nil)
}

// Conflict returns a state-precondition error.
func Conflict(msg string) *Error { return newErr(KindConflict, msg, nil) }

// NotFound returns a missing-record error.
func NotFound(msg string) *Error { return newErr(KindNotFound, msg, nil) }

// Auth returns a missing or expired session error.
func Auth(msg string) *Error { return newErr(KindAuth, msg, nil) }

// Network wraps a transport or remote failure.
func Network(msg string, cause error) *Error { return newErr(KindNetwork, msg, cause) }

// Wrap attaches a cause to a categorized error without changing its message.
func Wrap(kind Kind, msg string, cause error) *Error { return newErr(kind, msg, cause) }

// KindOf returns the Kind of err, or "" when err is nil or uncategorized.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is categorized as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable reports whether an operation that failed with err may succeed
// if attempted again. Only network failures qualify.
func IsRetryable(err error) bool {
	return IsKind(err, KindNetwork)
}

// Classify converts a raw store error into an *Error. Already-categorized
// errors pass through unchanged. notFoundMsg is used for mongo.ErrNoDocuments.
func Classify(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return newErr(KindNotFound, notFoundMsg, err)
	case mongo.IsDuplicateKeyError(err):
		return newErr(KindConflict, "Record already exists", err)
	case errors.Is(err, context.Canceled):
		return newErr(KindNetwork, "Request was canceled", err)
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err):
		return newErr(KindNetwork, "The data store did not respond in time", err)
	default:
		// Anything else coming back from the remote store is treated as a
		// transport failure so the executor may retry it.
		return newErr(KindNetwork, "The data store is unavailable", err)
	}
}
