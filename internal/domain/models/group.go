// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group status values. A group starts pending and only moves along the
// edges pending→approved, pending→denied and approved→closed.
const (
	GroupPending  = "pending"
	GroupApproved = "approved"
	GroupDenied   = "denied"
	GroupClosed   = "closed"
)

// Group is a community group attached to one of a church's services.
//
// NOTE:
//   - Members and leaders are not embedded; they live in group_memberships.
//   - Status is only changed through the lifecycle service, which checks the
//     source status as part of the update filter.
type Group struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	ChurchID    primitive.ObjectID `bson:"church_id" json:"church_id"`
	ServiceID   primitive.ObjectID `bson:"service_id" json:"service_id"`
	CreatorID   primitive.ObjectID `bson:"creator_id" json:"creator_id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	MeetingDay  string             `bson:"meeting_day,omitempty" json:"meeting_day,omitempty"`
	Location    string             `bson:"location,omitempty" json:"location,omitempty"`
	Capacity    int                `bson:"capacity,omitempty" json:"capacity,omitempty"`

	Status          string              `bson:"status" json:"status"`
	DeclineReason   string              `bson:"decline_reason,omitempty" json:"decline_reason,omitempty"`
	StatusChangedBy *primitive.ObjectID `bson:"status_changed_by,omitempty" json:"status_changed_by,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
