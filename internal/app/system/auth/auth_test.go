package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/fellowship/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	if _, err := auth.NewSessionManager("", "s", "", false, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty session key")
	}
}

func TestUserIDFrom_ZeroIDNotFound(t *testing.T) {
	ctx := auth.WithUserID(context.Background(), primitive.NilObjectID)
	if _, ok := auth.UserIDFrom(ctx); ok {
		t.Error("expected zero ObjectID to be reported as not found")
	}
}

func TestRequireSignedIn_NoUser_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)
	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/groups", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireSignedIn_WithUser_PassesThrough(t *testing.T) {
	sm := newTestSessionManager(t)
	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := auth.WithTestUser(httptest.NewRequest("GET", "/api/groups", nil), primitive.NewObjectID())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestSignIn_ThenLoadSessionUser(t *testing.T) {
	sm := newTestSessionManager(t)
	userID := primitive.NewObjectID()

	// Sign in and capture the cookie.
	signRec := httptest.NewRecorder()
	if err := sm.SignIn(signRec, httptest.NewRequest("POST", "/signin", nil), userID); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	cookies := signRec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	var got primitive.ObjectID
	handler := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.UserIDFrom(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/groups", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got != userID {
		t.Errorf("user id: got %s, want %s", got.Hex(), userID.Hex())
	}
}

func TestLoadSessionUser_TamperedCookieIsSignedOut(t *testing.T) {
	sm := newTestSessionManager(t)

	called := false
	handler := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := auth.UserIDFrom(r.Context()); ok {
			t.Error("expected no user for tampered cookie")
		}
	}))

	req := httptest.NewRequest("GET", "/api/groups", nil)
	req.AddCookie(&http.Cookie{Name: "test-session", Value: "not-a-valid-signed-value"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Fatal("expected next handler to run")
	}
}
