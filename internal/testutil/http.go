package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/dalemusser/fellowship/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// NewRequest builds a request signed in as userID (unless zero).
func NewRequest(method, target string, body io.Reader, userID primitive.ObjectID) *http.Request {
	r := httptest.NewRequest(method, target, body)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if !userID.IsZero() {
		r = auth.WithTestUser(r, userID)
	}
	return r
}
