package repository

import (
	"access_service/internal/models"
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type HierarchyRepository struct {
	nodes  *mongo.Collection
	levels *mongo.Collection
}

func NewHierarchyRepository(db *mongo.Database) *HierarchyRepository {
	return &HierarchyRepository{
		nodes:  db.Collection("OrganizationHierarchy"),
		levels: db.Collection("HierarchyLevel"),
	}
}

func (r *HierarchyRepository) FindAllNodes(ctx context.Context) ([]*models.HierarchyNode, error) {
	cursor, err := r.nodes.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var nodes []*models.HierarchyNode
	if err = cursor.All(ctx, &nodes); err != nil {
		return nil, err
	}

	return nodes, nil
}

func (r *HierarchyRepository) FindAllLevels(ctx context.Context) ([]*models.HierarchyLevel, error) {
	opts := options.Find().SetSort(bson.M{"order": 1})

	cursor, err := r.levels.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var levels []*models.HierarchyLevel
	if err = cursor.All(ctx, &levels); err != nil {
		return nil, err
	}

	return levels, nil
}
