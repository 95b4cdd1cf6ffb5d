// internal/domain/models/groupmembership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership roles.
const (
	RoleMember = "member"
	RoleLeader = "leader"
)

// Membership statuses. Inactive is a soft delete; archived rows are kept for
// history. Both may be brought back to pending by a new join request.
const (
	MembershipPending  = "pending"
	MembershipActive   = "active"
	MembershipInactive = "inactive"
	MembershipArchived = "archived"
)

// GroupMembership is the authoritative join between users and groups.
// Exactly one document per (group_id, user_id); a rejoin reuses the row.
type GroupMembership struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChurchID       primitive.ObjectID `bson:"church_id" json:"church_id"`
	GroupID        primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID         primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role           string             `bson:"role" json:"role"`     // "leader" | "member"
	Status         string             `bson:"status" json:"status"` // pending | active | inactive | archived
	ContactConsent bool               `bson:"contact_consent" json:"contact_consent"`
	RequestMessage string             `bson:"request_message,omitempty" json:"request_message,omitempty"`
	JoinedAt       *time.Time         `bson:"joined_at,omitempty" json:"joined_at,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsActiveLeader reports whether the membership counts toward the group's leader set.
func (m GroupMembership) IsActiveLeader() bool {
	return m.Role == RoleLeader && m.Status == MembershipActive
}
