package groups_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	uierrors "github.com/dalemusser/fellowship/internal/app/features/errors"
	"github.com/dalemusser/fellowship/internal/app/features/groups"
	"github.com/dalemusser/fellowship/internal/app/services/creation"
	"github.com/dalemusser/fellowship/internal/app/services/lifecycle"
	"github.com/dalemusser/fellowship/internal/app/system/auth"
	"github.com/dalemusser/fellowship/internal/app/system/authz"
	"github.com/dalemusser/fellowship/internal/app/system/events"
	"github.com/dalemusser/fellowship/internal/app/system/resilient"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"github.com/dalemusser/fellowship/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	store   *testutil.MemStore
	handler *groups.Handler
	church  primitive.ObjectID
	service models.ChurchService
	admin   models.User
	member  models.User
}

func retryConfig() resilient.Config {
	return resilient.Config{Name: "test", MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s := testutil.NewMemStore()
	e := &env{store: s, church: primitive.NewObjectID()}
	e.service = s.AddService(e.church)
	e.admin = s.AddUser(e.church, models.UserRoleChurchAdmin)
	e.member = s.AddUser(e.church)

	logger := zap.NewNop()
	engine := authz.NewEngine(s.Users, s.Groups, s.Memberships, logger)
	rec := &events.Recorder{}
	saga := creation.New(s.Services, s.Groups, s.Memberships, engine, rec, logger)
	svc := lifecycle.New(s.Groups, s.Memberships, engine, rec, retryConfig(), logger)
	errs := uierrors.NewRenderer(nil, engine, logger)
	e.handler = groups.NewHandler(saga, svc, s.Groups, engine, retryConfig(), errs, logger)
	return e
}

type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) apiResponse {
	t.Helper()
	var resp apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response %q: %v", rec.Body.String(), err)
	}
	if into != nil && resp.Error == nil {
		if err := json.Unmarshal(resp.Data, into); err != nil {
			t.Fatalf("failed to parse data: %v", err)
		}
	}
	return resp
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func withID(r *http.Request, id primitive.ObjectID) *http.Request {
	return testutil.WithChiURLParam(r, "id", id.Hex())
}

/* --------------------------------- create --------------------------------- */

func TestHandleCreate_AdminCreatesPendingGroup(t *testing.T) {
	e := newEnv(t)
	body := jsonBody(t, map[string]any{
		"church_id":   e.church.Hex(),
		"service_id":  e.service.ID.Hex(),
		"name":        "Young Adults",
		"meeting_day": "thursday",
		"capacity":    12,
	})

	rec := httptest.NewRecorder()
	e.handler.HandleCreate(rec, testutil.NewRequest("POST", "/api/groups", body, e.admin.ID))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	var g models.Group
	decode(t, rec, &g)
	if g.Status != models.GroupPending {
		t.Errorf("status = %q, want pending", g.Status)
	}
	if g.Name != "Young Adults" {
		t.Errorf("name = %q", g.Name)
	}
	if e.store.ActiveLeaderCount(g.ID) != 1 {
		t.Errorf("expected the admin creator to lead the new group")
	}
}

func TestHandleCreate_Rejections(t *testing.T) {
	e := newEnv(t)
	otherChurch := primitive.NewObjectID()

	tests := []struct {
		name     string
		body     string
		userID   primitive.ObjectID
		wantCode int
		wantKind string
	}{
		{
			name:     "malformed JSON",
			body:     `{"name":`,
			userID:   e.admin.ID,
			wantCode: http.StatusBadRequest,
			wantKind: "validation",
		},
		{
			name:     "unknown field",
			body:     `{"name":"x","color":"red"}`,
			userID:   e.admin.ID,
			wantCode: http.StatusBadRequest,
			wantKind: "validation",
		},
		{
			name:     "other church",
			body:     `{"church_id":"` + otherChurch.Hex() + `","service_id":"` + e.service.ID.Hex() + `","name":"x"}`,
			userID:   e.member.ID,
			wantCode: http.StatusForbidden,
			wantKind: "permission",
		},
		{
			name:     "signed out",
			body:     `{"church_id":"` + e.church.Hex() + `","service_id":"` + e.service.ID.Hex() + `","name":"x"}`,
			wantCode: http.StatusUnauthorized,
			wantKind: "auth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.handler.HandleCreate(rec, testutil.NewRequest("POST", "/api/groups", strings.NewReader(tt.body), tt.userID))

			if rec.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			resp := decode(t, rec, nil)
			if resp.Error == nil || resp.Error.Kind != tt.wantKind {
				t.Errorf("error = %+v, want kind %q", resp.Error, tt.wantKind)
			}
		})
	}
	if n := e.store.GroupCount(); n != 0 {
		t.Errorf("expected no groups created, got %d", n)
	}
}

/* ---------------------------------- read ---------------------------------- */

func TestServeList_FiltersByStatus(t *testing.T) {
	e := newEnv(t)
	e.store.AddGroup(e.church, e.member.ID, models.GroupPending)
	e.store.AddGroup(e.church, e.member.ID, models.GroupApproved)
	e.store.AddGroup(e.church, e.member.ID, models.GroupApproved)
	e.store.AddGroup(primitive.NewObjectID(), e.member.ID, models.GroupApproved)

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?status=approved", 2},
		{"?status=pending", 1},
		{"?status=closed", 0},
	}

	for _, tt := range tests {
		t.Run("query"+tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.handler.ServeList(rec, testutil.NewRequest("GET", "/api/groups"+tt.query, nil, e.member.ID))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
			}
			var got []models.Group
			decode(t, rec, &got)
			if len(got) != tt.want {
				t.Errorf("got %d groups, want %d", len(got), tt.want)
			}
		})
	}
}

func TestServeList_Rejections(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name     string
		query    string
		wantCode int
	}{
		{"other church", "?church_id=" + primitive.NewObjectID().Hex(), http.StatusForbidden},
		{"bad church id", "?church_id=nope", http.StatusBadRequest},
		{"bad status", "?status=archived", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.handler.ServeList(rec, testutil.NewRequest("GET", "/api/groups"+tt.query, nil, e.member.ID))
			if rec.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rec.Code)
			}
		})
	}
}

func TestServeGroup(t *testing.T) {
	e := newEnv(t)
	g := e.store.AddGroup(e.church, e.member.ID, models.GroupApproved)
	foreign := e.store.AddGroup(primitive.NewObjectID(), e.member.ID, models.GroupApproved)

	tests := []struct {
		name     string
		id       string
		wantCode int
	}{
		{"own church", g.ID.Hex(), http.StatusOK},
		{"other church", foreign.ID.Hex(), http.StatusForbidden},
		{"missing", primitive.NewObjectID().Hex(), http.StatusNotFound},
		{"bad id", "xyz", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewRequest("GET", "/api/groups/"+tt.id, nil, e.member.ID)
			req = testutil.WithChiURLParam(req, "id", tt.id)
			rec := httptest.NewRecorder()
			e.handler.ServeGroup(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rec.Code)
			}
		})
	}
}

/* --------------------------------- status --------------------------------- */

func TestHandleApprove_ThenConflict(t *testing.T) {
	e := newEnv(t)
	g := e.store.AddGroup(e.church, e.member.ID, models.GroupPending)

	rec := httptest.NewRecorder()
	e.handler.HandleApprove(rec, withID(testutil.NewRequest("POST", "/", nil, e.admin.ID), g.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var got models.Group
	decode(t, rec, &got)
	if got.Status != models.GroupApproved {
		t.Errorf("status = %q, want approved", got.Status)
	}

	rec = httptest.NewRecorder()
	e.handler.HandleApprove(rec, withID(testutil.NewRequest("POST", "/", nil, e.admin.ID), g.ID))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
	resp := decode(t, rec, nil)
	if resp.Error.Message != lifecycle.MsgGroupNotPending {
		t.Errorf("message = %q, want %q", resp.Error.Message, lifecycle.MsgGroupNotPending)
	}
}

func TestHandleApprove_MemberForbidden(t *testing.T) {
	e := newEnv(t)
	g := e.store.AddGroup(e.church, e.member.ID, models.GroupPending)

	rec := httptest.NewRecorder()
	e.handler.HandleApprove(rec, withID(testutil.NewRequest("POST", "/", nil, e.member.ID), g.ID))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
	if e.store.Group(g.ID).Status != models.GroupPending {
		t.Error("group status changed despite the denial")
	}
}

func TestHandleDecline_StoresReason(t *testing.T) {
	e := newEnv(t)
	g := e.store.AddGroup(e.church, e.member.ID, models.GroupPending)

	req := testutil.NewRequest("POST", "/", jsonBody(t, map[string]string{"reason": "Room unavailable"}), e.admin.ID)
	rec := httptest.NewRecorder()
	e.handler.HandleDecline(rec, withID(req, g.ID))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	stored := e.store.Group(g.ID)
	if stored.Status != models.GroupDenied {
		t.Errorf("status = %q, want denied", stored.Status)
	}
	if stored.DeclineReason != "Room unavailable" {
		t.Errorf("reason = %q", stored.DeclineReason)
	}
}

func TestHandleClose_RequiresApproved(t *testing.T) {
	e := newEnv(t)
	approved := e.store.AddGroup(e.church, e.member.ID, models.GroupApproved)
	pending := e.store.AddGroup(e.church, e.member.ID, models.GroupPending)

	rec := httptest.NewRecorder()
	e.handler.HandleClose(rec, withID(testutil.NewRequest("POST", "/", nil, e.admin.ID), approved.ID))
	if rec.Code != http.StatusOK {
		t.Errorf("close approved: expected status %d, got %d", http.StatusOK, rec.Code)
	}

	rec = httptest.NewRecorder()
	e.handler.HandleClose(rec, withID(testutil.NewRequest("POST", "/", nil, e.admin.ID), pending.ID))
	if rec.Code != http.StatusConflict {
		t.Errorf("close pending: expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}

func TestHandleBatchApprove_Accounting(t *testing.T) {
	e := newEnv(t)
	p1 := e.store.AddGroup(e.church, e.member.ID, models.GroupPending)
	p2 := e.store.AddGroup(e.church, e.member.ID, models.GroupPending)
	done := e.store.AddGroup(e.church, e.member.ID, models.GroupApproved)
	missing := primitive.NewObjectID()

	ids := []string{p1.ID.Hex(), done.ID.Hex(), p2.ID.Hex(), missing.Hex()}
	req := testutil.NewRequest("POST", "/api/groups/batch-approve", jsonBody(t, map[string]any{"group_ids": ids}), e.admin.ID)
	rec := httptest.NewRecorder()
	e.handler.HandleBatchApprove(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var got struct {
		Successful []primitive.ObjectID `json:"successful"`
		Failed     []struct {
			GroupID primitive.ObjectID `json:"group_id"`
			Kind    string             `json:"kind"`
		} `json:"failed"`
	}
	decode(t, rec, &got)

	if len(got.Successful)+len(got.Failed) != len(ids) {
		t.Fatalf("successful %d + failed %d != %d", len(got.Successful), len(got.Failed), len(ids))
	}
	if len(got.Successful) != 2 || got.Successful[0] != p1.ID || got.Successful[1] != p2.ID {
		t.Errorf("successful = %v, want [%s %s]", got.Successful, p1.ID.Hex(), p2.ID.Hex())
	}
	wantKinds := map[primitive.ObjectID]string{done.ID: "conflict", missing: "not_found"}
	for _, f := range got.Failed {
		if wantKinds[f.GroupID] != f.Kind {
			t.Errorf("failure for %s: kind %q, want %q", f.GroupID.Hex(), f.Kind, wantKinds[f.GroupID])
		}
	}
}

func TestHandleBatchApprove_Rejections(t *testing.T) {
	e := newEnv(t)

	tooMany := make([]string, 201)
	for i := range tooMany {
		tooMany[i] = primitive.NewObjectID().Hex()
	}

	tests := []struct {
		name     string
		body     any
		userID   primitive.ObjectID
		wantCode int
	}{
		{"empty list", map[string]any{"group_ids": []string{}}, e.admin.ID, http.StatusBadRequest},
		{"too many", map[string]any{"group_ids": tooMany}, e.admin.ID, http.StatusBadRequest},
		{"signed out", map[string]any{"group_ids": []string{primitive.NewObjectID().Hex()}}, primitive.NilObjectID, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.handler.HandleBatchApprove(rec, testutil.NewRequest("POST", "/", jsonBody(t, tt.body), tt.userID))
			if rec.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rec.Code)
			}
		})
	}
}

/* --------------------------------- routes --------------------------------- */

func TestRoutes_RequireSignIn(t *testing.T) {
	e := newEnv(t)
	sm, err := auth.NewSessionManager(strings.Repeat("k", 32), "fellowship-session", "", false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	router := groups.Routes(e.handler, sm)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}
