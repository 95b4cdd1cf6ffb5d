package notes_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dalemusser/fellowship/internal/app/system/apperr"
	"github.com/dalemusser/fellowship/internal/app/system/auth"
	"github.com/dalemusser/fellowship/internal/app/system/authz"
	"github.com/dalemusser/fellowship/internal/app/system/events"
	"github.com/dalemusser/fellowship/internal/app/system/notes"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"github.com/dalemusser/fellowship/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newRecorder(s *testutil.MemStore, mode string) *notes.Recorder {
	engine := authz.NewEngine(s.Users, s.Groups, s.Memberships, zap.NewNop())
	return notes.NewRecorder(s.Notes, s.Memberships, engine, zap.NewNop(), mode)
}

func TestHandle_NoteTypes(t *testing.T) {
	tests := []struct {
		typ      events.Type
		prev     string
		wantType string
		wantText string
	}{
		{events.GroupApproved, models.GroupPending, models.NoteStatusChange, "Group approved"},
		{events.GroupClosed, models.GroupApproved, models.NoteStatusChange, "Group closed"},
		{events.MemberPromoted, models.RoleMember, models.NoteRoleChange, "Promoted to leader"},
		{events.MemberDemoted, models.RoleLeader, models.NoteRoleChange, "Demoted to member"},
		{events.MemberRemoved, models.MembershipActive, models.NoteStatusChange, "Removed from group"},
		{events.MemberLeft, models.MembershipActive, models.NoteStatusChange, "Left the group"},
		{events.JoinRequested, "", models.NoteStatusChange, "Requested to join"},
		{events.JoinRequested, models.MembershipInactive, models.NoteStatusChange, "Requested to rejoin"},
		{events.JoinApproved, models.MembershipPending, models.NoteJourneyChange, "Join request approved"},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ)+"/"+tt.prev, func(t *testing.T) {
			s := testutil.NewMemStore()
			r := newRecorder(s, notes.ModeAll)
			mid := primitive.NewObjectID()

			if err := r.Handle(context.Background(), events.Event{
				Type:          tt.typ,
				GroupID:       primitive.NewObjectID(),
				MembershipID:  mid,
				ActorID:       primitive.NewObjectID(),
				PreviousValue: tt.prev,
			}); err != nil {
				t.Fatalf("Handle: %v", err)
			}
			got := s.AllNotes()
			if len(got) != 1 {
				t.Fatalf("notes = %d, want 1", len(got))
			}
			if got[0].NoteType != tt.wantType || got[0].Content != tt.wantText {
				t.Errorf("note = %s %q, want %s %q", got[0].NoteType, got[0].Content, tt.wantType, tt.wantText)
			}
			if got[0].MembershipID == nil || *got[0].MembershipID != mid {
				t.Error("note should reference the membership")
			}
			if got[0].PreviousValue != tt.prev {
				t.Errorf("previous value = %q, want %q", got[0].PreviousValue, tt.prev)
			}
		})
	}
}

func TestHandle_Modes(t *testing.T) {
	e := events.Event{Type: events.GroupApproved, GroupID: primitive.NewObjectID()}
	tests := []struct {
		mode  string
		notes int
	}{
		{notes.ModeAll, 1},
		{notes.ModeDB, 1},
		{notes.ModeLog, 0},
		{notes.ModeOff, 0},
		{"bogus", 1},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			s := testutil.NewMemStore()
			if err := newRecorder(s, tt.mode).Handle(context.Background(), e); err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if n := len(s.AllNotes()); n != tt.notes {
				t.Errorf("notes = %d, want %d", n, tt.notes)
			}
		})
	}
}

func TestHandle_StoreFailureNotPropagated(t *testing.T) {
	s := testutil.NewMemStore()
	s.FailOn(testutil.OpNotesAppend, errors.New("write concern timeout"))
	r := newRecorder(s, notes.ModeDB)

	err := r.Handle(context.Background(), events.Event{Type: events.MemberRemoved, GroupID: primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("Handle returned %v, want nil", err)
	}
}

func TestHandle_UnknownEventIgnored(t *testing.T) {
	s := testutil.NewMemStore()
	_ = newRecorder(s, notes.ModeAll).Handle(context.Background(), events.Event{Type: "church.renamed"})
	if n := len(s.AllNotes()); n != 0 {
		t.Errorf("notes = %d, want 0", n)
	}
}

func TestAddManualAndList(t *testing.T) {
	s := testutil.NewMemStore()
	church := primitive.NewObjectID()
	leader := s.AddUser(church, models.UserRoleGroupLeader)
	member := s.AddUser(church)
	outsider := s.AddUser(church)
	g := s.AddGroup(church, leader.ID, models.GroupApproved)
	s.AddMembership(g, leader.ID, models.RoleLeader, models.MembershipActive)
	m := s.AddMembership(g, member.ID, models.RoleMember, models.MembershipActive)
	r := newRecorder(s, notes.ModeAll)

	leaderCtx := auth.WithUserID(context.Background(), leader.ID)
	n, err := r.AddManual(leaderCtx, m.ID, "Asked about <b>childcare</b>")
	if err != nil {
		t.Fatalf("AddManual: %v", err)
	}
	if n.NoteType != models.NoteManual || n.Content != "Asked about childcare" || n.CreatedBy != leader.ID {
		t.Errorf("note = %+v", n)
	}

	outsiderCtx := auth.WithUserID(context.Background(), outsider.ID)
	if _, err := r.AddManual(outsiderCtx, m.ID, "hi"); !apperr.IsKind(err, apperr.KindPermission) {
		t.Errorf("outsider: want permission error, got %v", err)
	}
	if _, err := r.AddManual(leaderCtx, m.ID, "<p></p>"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("empty: want validation error, got %v", err)
	}
	if _, err := r.AddManual(leaderCtx, m.ID, strings.Repeat("x", notes.MaxContentLength+1)); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("too long: want validation error, got %v", err)
	}
	if _, err := r.AddManual(context.Background(), m.ID, "hi"); !apperr.IsKind(err, apperr.KindAuth) {
		t.Errorf("no session: want auth error, got %v", err)
	}

	list, err := r.List(leaderCtx, m.ID, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("notes = %d, want 1", len(list))
	}
	if _, err := r.List(outsiderCtx, m.ID, 10); !apperr.IsKind(err, apperr.KindPermission) {
		t.Errorf("outsider list: want permission error, got %v", err)
	}
}
