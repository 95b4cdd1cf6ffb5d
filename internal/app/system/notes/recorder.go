// internal/app/system/notes/recorder.go
package notes

import (
	"context"
	"unicode/utf8"

	"github.com/dalemusser/fellowship/internal/app/system/apperr"
	"github.com/dalemusser/fellowship/internal/app/system/authz"
	"github.com/dalemusser/fellowship/internal/app/system/events"
	"github.com/dalemusser/fellowship/internal/app/system/htmlsanitize"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Recording modes.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// MaxContentLength bounds a manual note, in characters.
const MaxContentLength = 2000

// Store is the append-only note collection.
type Store interface {
	Append(ctx context.Context, n models.MembershipNote) (models.MembershipNote, error)
	ListByMembership(ctx context.Context, membershipID primitive.ObjectID, limit int64) ([]models.MembershipNote, error)
}

// MembershipSource loads the membership a manual note is attached to.
type MembershipSource interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.GroupMembership, error)
}

// Recorder turns lifecycle events into membership notes and records manual
// notes written by leaders.
type Recorder struct {
	store       Store
	memberships MembershipSource
	authz       *authz.Engine
	log         *zap.Logger
	mode        string
}

func NewRecorder(store Store, memberships MembershipSource, engine *authz.Engine, logger *zap.Logger, mode string) *Recorder {
	switch mode {
	case ModeAll, ModeDB, ModeLog, ModeOff:
	default:
		mode = ModeAll
	}
	return &Recorder{store: store, memberships: memberships, authz: engine, log: logger, mode: mode}
}

// Handle implements events.Subscriber. Store failures are logged and never
// returned, so a note that cannot be written does not affect the transition
// that produced it.
func (r *Recorder) Handle(ctx context.Context, e events.Event) error {
	if r == nil || r.mode == ModeOff {
		return nil
	}
	n, ok := noteFor(e)
	if !ok {
		return nil
	}

	if r.mode == ModeAll || r.mode == ModeLog {
		r.logNote(n, e)
	}
	if r.mode == ModeAll || r.mode == ModeDB {
		if _, err := r.store.Append(ctx, n); err != nil {
			r.log.Error("failed to store membership note",
				zap.Error(err),
				zap.String("event_type", string(e.Type)),
				zap.String("group_id", e.GroupID.Hex()))
		}
	}
	return nil
}

func (r *Recorder) logNote(n models.MembershipNote, e events.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("note_type", n.NoteType),
		zap.String("event_type", string(e.Type)),
		zap.String("group_id", n.GroupID.Hex()),
		zap.String("created_by", n.CreatedBy.Hex()),
		zap.String("previous_value", n.PreviousValue),
		zap.String("new_value", n.NewValue),
	}
	if n.MembershipID != nil {
		fields = append(fields, zap.String("membership_id", n.MembershipID.Hex()))
	}
	if n.UserID != nil {
		fields = append(fields, zap.String("user_id", n.UserID.Hex()))
	}
	r.log.Info("membership note", fields...)
}

// noteFor maps an event to the note it produces.
func noteFor(e events.Event) (models.MembershipNote, bool) {
	n := models.MembershipNote{
		GroupID:       e.GroupID,
		CreatedBy:     e.ActorID,
		PreviousValue: e.PreviousValue,
		NewValue:      e.NewValue,
		CreatedAt:     e.OccurredAt,
	}
	if !e.MembershipID.IsZero() {
		id := e.MembershipID
		n.MembershipID = &id
	}
	if !e.UserID.IsZero() {
		id := e.UserID
		n.UserID = &id
	}

	switch e.Type {
	case events.GroupRequestSubmitted:
		n.NoteType = models.NoteStatusChange
		n.Content = "Group request submitted"
	case events.GroupApproved:
		n.NoteType = models.NoteStatusChange
		n.Content = "Group approved"
	case events.GroupDeclined:
		n.NoteType = models.NoteStatusChange
		n.Content = "Group declined"
		if e.Reason != "" {
			n.Content += ": " + e.Reason
		}
	case events.GroupClosed:
		n.NoteType = models.NoteStatusChange
		n.Content = "Group closed"
	case events.MemberPromoted:
		n.NoteType = models.NoteRoleChange
		n.Content = "Promoted to leader"
	case events.MemberDemoted:
		n.NoteType = models.NoteRoleChange
		n.Content = "Demoted to member"
	case events.MemberRemoved:
		n.NoteType = models.NoteStatusChange
		n.Content = "Removed from group"
	case events.MemberLeft:
		n.NoteType = models.NoteStatusChange
		n.Content = "Left the group"
	case events.JoinRequested:
		n.NoteType = models.NoteStatusChange
		if e.PreviousValue != "" {
			n.Content = "Requested to rejoin"
		} else {
			n.Content = "Requested to join"
		}
	case events.JoinApproved:
		n.NoteType = models.NoteJourneyChange
		n.Content = "Join request approved"
	case events.JoinDeclined:
		n.NoteType = models.NoteStatusChange
		n.Content = "Join request declined"
	default:
		return models.MembershipNote{}, false
	}
	return n, true
}

// AddManual records a note written by a leader or admin on a membership.
// Unlike event notes, failures here are returned to the caller.
func (r *Recorder) AddManual(ctx context.Context, membershipID primitive.ObjectID, content string) (models.MembershipNote, error) {
	caller, err := r.authz.Caller(ctx)
	if err != nil {
		return models.MembershipNote{}, err
	}

	content = htmlsanitize.PlainText(content)
	if content == "" {
		return models.MembershipNote{}, apperr.Validation("Note content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return models.MembershipNote{}, apperr.Validationf("Note content must be at most %d characters", MaxContentLength)
	}

	m, err := r.memberships.GetByID(ctx, membershipID)
	if err != nil {
		return models.MembershipNote{}, apperr.Classify(err, "Membership not found")
	}

	dec := r.authz.ValidateRLSCompliance(ctx, authz.TableMembershipNotes, authz.OpInsert, authz.RowPayload{
		GroupID:   m.GroupID,
		UserID:    m.UserID,
		CreatedBy: caller.ID,
	})
	if err := dec.Err(); err != nil {
		return models.MembershipNote{}, err
	}

	n := models.MembershipNote{
		MembershipID: &m.ID,
		GroupID:      m.GroupID,
		UserID:       &m.UserID,
		NoteType:     models.NoteManual,
		Content:      content,
		CreatedBy:    caller.ID,
	}
	saved, err := r.store.Append(ctx, n)
	if err != nil {
		return models.MembershipNote{}, apperr.Classify(err, "Membership not found")
	}
	return saved, nil
}

// List returns a membership's notes, newest first. Readers must be able to
// manage the membership's group.
func (r *Recorder) List(ctx context.Context, membershipID primitive.ObjectID, limit int64) ([]models.MembershipNote, error) {
	m, err := r.memberships.GetByID(ctx, membershipID)
	if err != nil {
		return nil, apperr.Classify(err, "Membership not found")
	}
	if err := r.authz.CanManageGroupMembership(ctx, m.GroupID).Err(); err != nil {
		return nil, err
	}
	out, err := r.store.ListByMembership(ctx, membershipID, limit)
	if err != nil {
		return nil, apperr.Classify(err, "Membership not found")
	}
	return out, nil
}
