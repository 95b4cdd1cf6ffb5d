// internal/domain/models/membershipnote.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Note types.
const (
	NoteManual        = "manual"
	NoteStatusChange  = "status_change"
	NoteRoleChange    = "role_change"
	NoteJourneyChange = "journey_change"
)

// MembershipNote is an append-only record of a state transition (or a
// manual note) on a membership or group. Notes are never updated.
type MembershipNote struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	MembershipID  *primitive.ObjectID `bson:"membership_id,omitempty" json:"membership_id,omitempty"`
	GroupID       primitive.ObjectID  `bson:"group_id" json:"group_id"`
	UserID        *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	NoteType      string              `bson:"note_type" json:"note_type"`
	PreviousValue string              `bson:"previous_value,omitempty" json:"previous_value,omitempty"`
	NewValue      string              `bson:"new_value,omitempty" json:"new_value,omitempty"`
	Content       string              `bson:"content,omitempty" json:"content,omitempty"`
	CreatedBy     primitive.ObjectID  `bson:"created_by" json:"created_by"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
}
