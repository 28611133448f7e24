package repository

import (
	"access_service/internal/models"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type ProjectConfigRepository struct {
	collection *mongo.Collection
}

func NewProjectConfigRepository(db *mongo.Database) *ProjectConfigRepository {
	return &ProjectConfigRepository{
		collection: db.Collection("ProjectBasicConfig"),
	}
}

func (r *ProjectConfigRepository) FindAll(ctx context.Context) ([]*models.ProjectBasicConfig, error) {
	opts := options.Find().SetSort(bson.M{"projectName": 1})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var projects []*models.ProjectBasicConfig
	if err = cursor.All(ctx, &projects); err != nil {
		return nil, err
	}

	return projects, nil
}

func (r *ProjectConfigRepository) FindByProjectNodeID(ctx context.Context, projectNodeID string) (*models.ProjectBasicConfig, error) {
	var project models.ProjectBasicConfig
	err := r.collection.FindOne(ctx, bson.M{"projectNodeId": projectNodeID}).Decode(&project)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

func (r *ProjectConfigRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.ProjectBasicConfig, error) {
	var project models.ProjectBasicConfig
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&project)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}
