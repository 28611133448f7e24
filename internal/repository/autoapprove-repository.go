package repository

import (
	"access_service/internal/models"
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type AutoApproveRepository struct {
	collection *mongo.Collection
}

func NewAutoApproveRepository(db *mongo.Database) *AutoApproveRepository {
	return &AutoApproveRepository{
		collection: db.Collection("AutoApproveConfig"),
	}
}

func (r *AutoApproveRepository) Find(ctx context.Context) (*models.AutoApproveConfig, error) {
	var config models.AutoApproveConfig
	err := r.collection.FindOne(ctx, bson.M{}).Decode(&config)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

func (r *AutoApproveRepository) Save(ctx context.Context, config *models.AutoApproveConfig) error {
	if config.ID.IsZero() {
		config.ID = bson.NewObjectID()
	}

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": config.ID}, config, opts)
	if err != nil {
		return fmt.Errorf("failed to save auto approve config: %w", err)
	}
	return nil
}
