// internal/app/system/authz/decision.go
package authz

import (
	"fmt"

	"github.com/dalemusser/fellowship/internal/app/system/apperr"
)

// Decision is the result of every authorization query. It is one of:
//   - allowed
//   - denied, with a human-readable reason
//   - failed, when the engine could not evaluate the question (no session,
//     store unavailable). Failed decisions are never allowed.
//
// Callers that need to stop on anything but "allowed" use Err.
type Decision struct {
	allowed bool
	reason  string
	err     error
}

// Allow returns an allowed Decision.
func Allow() Decision { return Decision{allowed: true} }

// Deny returns a denied Decision with reason.
func Deny(reason string) Decision { return Decision{reason: reason} }

// Denyf returns a denied Decision with a formatted reason.
func Denyf(format string, args ...any) Decision {
	return Decision{reason: fmt.Sprintf(format, args...)}
}

// Fail returns a Decision for a check that could not be evaluated.
func Fail(err error) Decision {
	return Decision{reason: err.Error(), err: err}
}

// Allowed reports whether the operation may proceed.
func (d Decision) Allowed() bool { return d.allowed }

// Reason is the denial reason; empty when allowed.
func (d Decision) Reason() string { return d.reason }

// Err converts the Decision into an error suitable for returning from a
// service: nil when allowed, a permission error when denied, and the
// underlying categorized error when evaluation failed.
func (d Decision) Err() error {
	switch {
	case d.allowed:
		return nil
	case d.err != nil:
		return d.err
	default:
		return apperr.Permission(d.reason)
	}
}
