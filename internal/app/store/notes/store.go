// internal/app/store/notes/store.go
package notestore

import (
	"context"
	"time"

	"github.com/dalemusser/fellowship/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the append-only membership_notes collection.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("membership_notes")}
}

// Append inserts a note. There is no update or delete.
func (s *Store) Append(ctx context.Context, n models.MembershipNote) (models.MembershipNote, error) {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, n); err != nil {
		return models.MembershipNote{}, err
	}
	return n, nil
}

// ListByMembership returns a membership's notes, newest first.
func (s *Store) ListByMembership(ctx context.Context, membershipID primitive.ObjectID, limit int64) ([]models.MembershipNote, error) {
	return s.find(ctx, bson.M{"membership_id": membershipID}, limit)
}

func (s *Store) find(ctx context.Context, filter bson.M, limit int64) ([]models.MembershipNote, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.MembershipNote
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
