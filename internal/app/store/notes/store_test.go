package notestore_test

import (
	"testing"
	"time"

	notestore "github.com/dalemusser/fellowship/internal/app/store/notes"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"github.com/dalemusser/fellowship/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_AppendAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	groupID := primitive.NewObjectID()
	membershipID := primitive.NewObjectID()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, content := range []string{"first", "second", "third"} {
		_, err := store.Append(ctx, models.MembershipNote{
			MembershipID: &membershipID,
			GroupID:      groupID,
			NoteType:     models.NoteManual,
			Content:      content,
			CreatedBy:    primitive.NewObjectID(),
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	// A group-level note with no membership.
	n, err := store.Append(ctx, models.MembershipNote{GroupID: groupID, NoteType: models.NoteStatusChange})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if n.ID.IsZero() || n.CreatedAt.IsZero() {
		t.Errorf("expected ID and CreatedAt to be set, got %+v", n)
	}

	got, err := store.ListByMembership(ctx, membershipID, 2)
	if err != nil {
		t.Fatalf("ListByMembership failed: %v", err)
	}
	if len(got) != 2 || got[0].Content != "third" || got[1].Content != "second" {
		t.Errorf("ListByMembership: got %+v", got)
	}

	all, err := store.ListByMembership(ctx, membershipID, 0)
	if err != nil {
		t.Fatalf("ListByMembership failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListByMembership without limit: got %d, want 3", len(all))
	}
}
