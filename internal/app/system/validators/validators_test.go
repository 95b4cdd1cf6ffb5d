package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/fellowship/internal/app/system/validators"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"github.com/dalemusser/fellowship/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func setup(t *testing.T) *mongo.Database {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return db
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	collMap := make(map[string]bool)
	for _, name := range names {
		collMap[name] = true
	}
	for _, expected := range []string{
		"users",
		"groups",
		"group_memberships",
		"church_services",
		"membership_notes",
		"notifications",
	} {
		if !collMap[expected] {
			t.Errorf("expected collection %q to exist", expected)
		}
	}
}

func TestGroupsValidator(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	valid := func() bson.M {
		return bson.M{
			"_id":        primitive.NewObjectID(),
			"church_id":  primitive.NewObjectID(),
			"service_id": primitive.NewObjectID(),
			"creator_id": primitive.NewObjectID(),
			"name":       "Young Adults",
			"name_ci":    "young adults",
			"status":     models.GroupPending,
		}
	}

	tests := []struct {
		name    string
		mutate  func(bson.M)
		wantErr bool
	}{
		{"valid", func(bson.M) {}, false},
		{"every status", func(d bson.M) { d["status"] = models.GroupClosed }, false},
		{"missing church", func(d bson.M) { delete(d, "church_id") }, true},
		{"blank name", func(d bson.M) { d["name"] = "   " }, true},
		{"unknown status", func(d bson.M) { d["status"] = "archived" }, true},
		{"negative capacity", func(d bson.M) { d["capacity"] = -3 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := valid()
			tt.mutate(doc)
			_, err := db.Collection("groups").InsertOne(ctx, doc)
			if (err != nil) != tt.wantErr {
				t.Errorf("InsertOne err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGroupMembershipsValidator(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	valid := func() bson.M {
		return bson.M{
			"_id":        primitive.NewObjectID(),
			"church_id":  primitive.NewObjectID(),
			"group_id":   primitive.NewObjectID(),
			"user_id":    primitive.NewObjectID(),
			"role":       models.RoleMember,
			"status":     models.MembershipPending,
			"created_at": time.Now().UTC(),
		}
	}

	tests := []struct {
		name    string
		mutate  func(bson.M)
		wantErr bool
	}{
		{"valid", func(bson.M) {}, false},
		{"archived leader", func(d bson.M) { d["role"] = models.RoleLeader; d["status"] = models.MembershipArchived }, false},
		{"missing user", func(d bson.M) { delete(d, "user_id") }, true},
		{"unknown role", func(d bson.M) { d["role"] = "owner" }, true},
		{"unknown status", func(d bson.M) { d["status"] = "denied" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := valid()
			tt.mutate(doc)
			_, err := db.Collection("group_memberships").InsertOne(ctx, doc)
			if (err != nil) != tt.wantErr {
				t.Errorf("InsertOne err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUsersValidator_Roles(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, role := range []string{
		models.UserRoleMember,
		models.UserRoleGroupLeader,
		models.UserRoleChurchAdmin,
		models.UserRoleSuperAdmin,
	} {
		_, err := db.Collection("users").InsertOne(ctx, bson.M{
			"full_name": "Role " + role,
			"roles":     bson.A{role},
			"status":    "active",
		})
		if err != nil {
			t.Errorf("role %q should be accepted: %v", role, err)
		}
	}

	_, err := db.Collection("users").InsertOne(ctx, bson.M{
		"full_name": "Bad Role",
		"roles":     bson.A{"coordinator"},
		"status":    "active",
	})
	if err == nil {
		t.Error("expected unknown role to be rejected")
	}
}

func TestMembershipNotesValidator(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := db.Collection("membership_notes").InsertOne(ctx, bson.M{
		"group_id":   primitive.NewObjectID(),
		"note_type":  models.NoteRoleChange,
		"created_by": primitive.NewObjectID(),
		"created_at": time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("valid note rejected: %v", err)
	}

	_, err = db.Collection("membership_notes").InsertOne(ctx, bson.M{
		"group_id":   primitive.NewObjectID(),
		"note_type":  "gossip",
		"created_by": primitive.NewObjectID(),
		"created_at": time.Now().UTC(),
	})
	if err == nil {
		t.Error("expected unknown note_type to be rejected")
	}
}

func TestNotifications_NoValidator(t *testing.T) {
	db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := db.Collection("notifications").InsertOne(ctx, bson.M{"anything": "goes"}); err != nil {
		t.Errorf("notifications should accept any document: %v", err)
	}
}
