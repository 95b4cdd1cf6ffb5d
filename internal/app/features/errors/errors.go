// internal/app/features/errors/errors.go
package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/fellowship/internal/app/system/apperr"
	"github.com/dalemusser/fellowship/internal/app/system/auth"
	"github.com/dalemusser/fellowship/internal/app/system/resilient"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SessionResetter clears the caller's session cookie.
type SessionResetter interface {
	Reset(w http.ResponseWriter, r *http.Request)
}

// IdentityInvalidator drops a cached caller identity.
type IdentityInvalidator interface {
	InvalidateUser(id primitive.ObjectID)
}

// Renderer writes service errors as JSON. It is shared by every API feature
// so that status codes and the auth-failure cleanup stay consistent.
type Renderer struct {
	sessions SessionResetter
	cache    IdentityInvalidator
	log      *zap.Logger
}

// NewRenderer constructs a Renderer. sessions and cache may be nil.
func NewRenderer(sessions SessionResetter, cache IdentityInvalidator, logger *zap.Logger) *Renderer {
	return &Renderer{sessions: sessions, cache: cache, log: logger}
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindPermission:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindNetwork:
		return http.StatusServiceUnavailable
	case apperr.KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err. An auth failure also clears the session cookie and the
// caller's cached identity, so the next request starts from sign-in.
func (rr *Renderer) Error(w http.ResponseWriter, r *http.Request, err error) {
	if stderrors.Is(err, resilient.ErrSuperseded) {
		err = apperr.Conflict("A newer request for this resource replaced this one")
	}

	var ae *apperr.Error
	if !stderrors.As(err, &ae) {
		rr.log.Error("unclassified error",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "internal", "Something went wrong. Please try again.")
		return
	}

	status := StatusFor(ae.Kind)
	switch {
	case status >= http.StatusInternalServerError:
		rr.log.Warn("request failed",
			zap.String("path", r.URL.Path),
			zap.String("kind", string(ae.Kind)),
			zap.Error(err))
	default:
		rr.log.Debug("request rejected",
			zap.String("path", r.URL.Path),
			zap.String("kind", string(ae.Kind)),
			zap.String("message", ae.Message))
	}

	if ae.Kind == apperr.KindAuth {
		if rr.sessions != nil {
			rr.sessions.Reset(w, r)
		}
		if uid, ok := auth.UserIDFrom(r.Context()); ok && rr.cache != nil {
			rr.cache.InvalidateUser(uid)
		}
	}

	WriteError(w, status, string(ae.Kind), ae.Message)
}

// BadRequest writes a validation error for malformed input.
func (rr *Renderer) BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	rr.Error(w, r, apperr.Validation(msg))
}
