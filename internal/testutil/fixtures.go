package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/fellowship/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data in MongoDB.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts an active user in churchID holding roles.
func (f *Fixtures) CreateUser(ctx context.Context, fullName string, churchID primitive.ObjectID, roles ...string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		ChurchID:   churchID,
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      primitive.NewObjectID().Hex() + "@example.com",
		Roles:      append([]string{models.UserRoleMember}, roles...),
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateService inserts a church service.
func (f *Fixtures) CreateService(ctx context.Context, churchID primitive.ObjectID, name string) models.ChurchService {
	f.t.Helper()

	cs := models.ChurchService{
		ID:        primitive.NewObjectID(),
		ChurchID:  churchID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("church_services").InsertOne(ctx, cs); err != nil {
		f.t.Fatalf("failed to create test service: %v", err)
	}
	return cs
}

// CreateGroup inserts a group with the given status.
func (f *Fixtures) CreateGroup(ctx context.Context, churchID, creatorID primitive.ObjectID, name, status string) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		ID:        primitive.NewObjectID(),
		ChurchID:  churchID,
		ServiceID: primitive.NewObjectID(),
		CreatorID: creatorID,
		Name:      name,
		NameCI:    text.Fold(name),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// CreateMembership inserts a membership row.
func (f *Fixtures) CreateMembership(ctx context.Context, g models.Group, userID primitive.ObjectID, role, status string) models.GroupMembership {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.GroupMembership{
		ID:        primitive.NewObjectID(),
		ChurchID:  g.ChurchID,
		GroupID:   g.ID,
		UserID:    userID,
		Role:      role,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == models.MembershipActive {
		m.JoinedAt = &now
	}
	if _, err := f.db.Collection("group_memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}
