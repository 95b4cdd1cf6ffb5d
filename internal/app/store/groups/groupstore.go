// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/fellowship/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

// ErrStatusMismatch is returned by UpdateStatus when the group exists but is
// no longer in the expected source status.
var ErrStatusMismatch = errors.New("group status does not match the expected source status")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// Create inserts a new group. Status defaults to pending.
func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	g.NameCI = text.Fold(g.Name)
	if g.Status == "" {
		g.Status = models.GroupPending
	}
	g.CreatedAt = now
	g.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// UpdateStatus moves a group from one status to another. The source status
// is part of the filter, so two racing writers cannot both succeed: the
// loser gets ErrStatusMismatch. A missing group yields mongo.ErrNoDocuments.
func (s *Store) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to string, actorID primitive.ObjectID, reason string) (models.Group, error) {
	set := bson.M{
		"status":            to,
		"status_changed_by": actorID,
		"updated_at":        time.Now().UTC(),
	}
	if reason != "" {
		set["decline_reason"] = reason
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var g models.Group
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set}, opts).Decode(&g)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Group{}, err
	}

	// Distinguish "wrong status" from "no such group".
	if _, gerr := s.GetByID(ctx, id); gerr != nil {
		return models.Group{}, gerr
	}
	return models.Group{}, ErrStatusMismatch
}

// Delete removes a group by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByChurch returns a church's groups, optionally filtered by status,
// sorted by name.
func (s *Store) ListByChurch(ctx context.Context, churchID primitive.ObjectID, status string) ([]models.Group, error) {
	filter := bson.M{"church_id": churchID}
	if status != "" {
		filter["status"] = status
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []models.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}
