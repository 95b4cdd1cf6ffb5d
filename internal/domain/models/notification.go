// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification kinds written to the outbox.
const (
	NotifyGroupRequestSubmitted = "group_request_submitted"
	NotifyGroupApproved         = "group_approved"
	NotifyGroupDeclined         = "group_declined"
	NotifyJoinRequestReceived   = "join_request_received"
	NotifyJoinRequestApproved   = "join_request_approved"
	NotifyJoinRequestDeclined   = "join_request_declined"
)

// Notification is an outbox row picked up by the delivery system.
type Notification struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Kind         string               `bson:"kind" json:"kind"`
	RecipientIDs []primitive.ObjectID `bson:"recipient_ids" json:"recipient_ids"`
	ChurchID     primitive.ObjectID   `bson:"church_id" json:"church_id"`
	GroupID      primitive.ObjectID   `bson:"group_id" json:"group_id"`
	Title        string               `bson:"title" json:"title"`
	Body         string               `bson:"body,omitempty" json:"body,omitempty"`
	CreatedAt    time.Time            `bson:"created_at" json:"created_at"`
}
