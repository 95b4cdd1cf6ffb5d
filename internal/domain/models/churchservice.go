// internal/domain/models/churchservice.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChurchService is a recurring worship service (e.g. "Sunday 9:00") that
// groups are attached to. A service belongs to exactly one church.
type ChurchService struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	ChurchID  primitive.ObjectID `bson:"church_id" json:"church_id"`
	Name      string             `bson:"name" json:"name"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
