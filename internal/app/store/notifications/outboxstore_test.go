package outboxstore_test

import (
	"testing"
	"time"

	outboxstore "github.com/dalemusser/fellowship/internal/app/store/notifications"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"github.com/dalemusser/fellowship/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Insert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := outboxstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()

	if _, err := store.Insert(ctx, models.Notification{
		Kind:         models.NotifyJoinRequestReceived,
		RecipientIDs: []primitive.ObjectID{alice, bob},
		Title:        "New join request",
		CreatedAt:    time.Now().UTC().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	latest, err := store.Insert(ctx, models.Notification{
		Kind:         models.NotifyGroupApproved,
		RecipientIDs: []primitive.ObjectID{alice},
		Title:        "Approved",
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if latest.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	coll := db.Collection("notifications")
	tests := []struct {
		name      string
		recipient primitive.ObjectID
		want      int64
	}{
		{"alice", alice, 2},
		{"bob", bob, 1},
	}
	for _, tt := range tests {
		n, err := coll.CountDocuments(ctx, bson.M{"recipient_ids": tt.recipient})
		if err != nil {
			t.Fatalf("CountDocuments failed: %v", err)
		}
		if n != tt.want {
			t.Errorf("%s: got %d notifications, want %d", tt.name, n, tt.want)
		}
	}
}

func TestStore_DeleteOlderThan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := outboxstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	for _, age := range []time.Duration{48 * time.Hour, 36 * time.Hour, time.Hour} {
		if _, err := store.Insert(ctx, models.Notification{Kind: models.NotifyGroupApproved, CreatedAt: now.Add(-age)}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	n, err := store.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted: got %d, want 2", n)
	}
}
