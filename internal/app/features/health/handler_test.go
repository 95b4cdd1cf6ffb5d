package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/fellowship/internal/app/features/health"
	"github.com/dalemusser/fellowship/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context, *readpref.ReadPref) error { return f.err }

type fakeRedis struct{ err error }

func (f fakeRedis) Ping(context.Context) error { return f.err }

type response struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Events   string `json:"events"`
	Message  string `json:"message"`
}

func serve(t *testing.T, h *health.Handler) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	h.Serve(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec, resp
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := health.NewHandler(db.Client(), nil, zap.NewNop())

	rec, resp := serve(t, handler)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if resp.Status != "ok" {
		t.Errorf("status: got %q, want %q", resp.Status, "ok")
	}
	if resp.Database != "connected" {
		t.Errorf("database: got %q, want %q", resp.Database, "connected")
	}
	if resp.Events != "" {
		t.Errorf("events: got %q, want omitted", resp.Events)
	}
}

func TestServe_DatabaseDown(t *testing.T) {
	handler := health.NewHandler(fakePinger{err: errors.New("no reachable servers")}, nil, zap.NewNop())

	rec, resp := serve(t, handler)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	if resp.Status != "error" || resp.Database != "disconnected" {
		t.Errorf("got %+v", resp)
	}
	if resp.Message != "Database unavailable" {
		t.Errorf("message: got %q", resp.Message)
	}
}

func TestServe_RedisStates(t *testing.T) {
	tests := []struct {
		name       string
		redisErr   error
		wantStatus string
		wantEvents string
	}{
		{"redis up", nil, "ok", "connected"},
		{"redis down", errors.New("connection refused"), "degraded", "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := health.NewHandler(fakePinger{}, fakeRedis{err: tt.redisErr}, zap.NewNop())
			rec, resp := serve(t, handler)

			if rec.Code != http.StatusOK {
				t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status: got %q, want %q", resp.Status, tt.wantStatus)
			}
			if resp.Events != tt.wantEvents {
				t.Errorf("events: got %q, want %q", resp.Events, tt.wantEvents)
			}
		})
	}
}
