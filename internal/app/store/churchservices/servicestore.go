// internal/app/store/churchservices/servicestore.go
package servicestore

import (
	"context"
	"time"

	"github.com/dalemusser/fellowship/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("church_services")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.ChurchService, error) {
	var cs models.ChurchService
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&cs); err != nil {
		return models.ChurchService{}, err
	}
	return cs, nil
}

func (s *Store) Create(ctx context.Context, cs models.ChurchService) (models.ChurchService, error) {
	if cs.ID.IsZero() {
		cs.ID = primitive.NewObjectID()
	}
	cs.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, cs); err != nil {
		return models.ChurchService{}, err
	}
	return cs, nil
}
