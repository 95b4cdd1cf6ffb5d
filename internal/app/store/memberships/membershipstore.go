// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/fellowship/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_memberships")}
}

var errBadRole = errors.New(`role must be "leader" or "member"`)

var (
	ErrDuplicateMembership = errors.New("user already has a membership in this group")
	// ErrStateChanged is returned when a conditional update or delete matched
	// nothing because the row moved on since it was read.
	ErrStateChanged = errors.New("membership changed since it was read")
)

// Insert creates a membership row. The unique (group_id, user_id) index
// turns a second row for the same pair into ErrDuplicateMembership.
func (s *Store) Insert(ctx context.Context, m models.GroupMembership) (models.GroupMembership, error) {
	if m.Role != models.RoleLeader && m.Role != models.RoleMember {
		return models.GroupMembership{}, errBadRole
	}
	now := time.Now().UTC()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.GroupMembership{}, ErrDuplicateMembership
		}
		return models.GroupMembership{}, err
	}
	return m, nil
}

// GetByID loads a membership by its ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.GroupMembership, error) {
	var m models.GroupMembership
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return models.GroupMembership{}, err
	}
	return m, nil
}

// Get loads the membership row for (groupID, userID).
func (s *Store) Get(ctx context.Context, groupID, userID primitive.ObjectID) (models.GroupMembership, error) {
	var m models.GroupMembership
	if err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Decode(&m); err != nil {
		return models.GroupMembership{}, err
	}
	return m, nil
}

// UpdateRole changes an active membership's role from one value to another.
func (s *Store) UpdateRole(ctx context.Context, id primitive.ObjectID, from, to string) error {
	if to != models.RoleLeader && to != models.RoleMember {
		return errBadRole
	}
	return s.updateOne(ctx,
		bson.M{"_id": id, "role": from, "status": models.MembershipActive},
		bson.M{"role": to},
	)
}

// UpdateStatus moves a membership between statuses. joinedAt is written when non-nil.
func (s *Store) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to string, joinedAt *time.Time) error {
	set := bson.M{"status": to}
	if joinedAt != nil {
		set["joined_at"] = joinedAt.UTC()
	}
	return s.updateOne(ctx, bson.M{"_id": id, "status": from}, set)
}

// Reopen turns an inactive or archived row back into a pending join request.
// The role is reset to member.
func (s *Store) Reopen(ctx context.Context, id primitive.ObjectID, from string, contactConsent bool, message string) error {
	return s.updateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{
		"status":          models.MembershipPending,
		"role":            models.RoleMember,
		"contact_consent": contactConsent,
		"request_message": message,
	})
}

// DeletePending removes a membership that is still a pending request.
func (s *Store) DeletePending(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "status": models.MembershipPending})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrStateChanged
	}
	return nil
}

// ListByGroup returns a group's memberships, optionally filtered by status.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, status string) ([]models.GroupMembership, error) {
	filter := bson.M{"group_id": groupID}
	if status != "" {
		filter["status"] = status
	}
	return s.find(ctx, filter)
}

// ListActiveLeaders returns the group's leader set.
func (s *Store) ListActiveLeaders(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMembership, error) {
	return s.find(ctx, bson.M{
		"group_id": groupID,
		"role":     models.RoleLeader,
		"status":   models.MembershipActive,
	})
}

// CountActiveLeaders returns the size of the group's leader set.
func (s *Store) CountActiveLeaders(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"group_id": groupID,
		"role":     models.RoleLeader,
		"status":   models.MembershipActive,
	})
}

// IsActiveLeader reports whether userID is an active leader of groupID.
func (s *Store) IsActiveLeader(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{
		"group_id": groupID,
		"user_id":  userID,
		"role":     models.RoleLeader,
		"status":   models.MembershipActive,
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) updateOne(ctx context.Context, filter bson.M, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrStateChanged
	}
	return nil
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.GroupMembership, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.GroupMembership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
