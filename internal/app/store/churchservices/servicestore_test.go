package servicestore_test

import (
	"errors"
	"testing"

	servicestore "github.com/dalemusser/fellowship/internal/app/store/churchservices"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"github.com/dalemusser/fellowship/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := servicestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	church := primitive.NewObjectID()
	cs, err := store.Create(ctx, models.ChurchService{ChurchID: church, Name: "Sunday 11am"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.GetByID(ctx, cs.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.ChurchID != church || got.Name != "Sunday 11am" {
		t.Errorf("GetByID: got %+v", got)
	}

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}
