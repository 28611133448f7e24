package repository

import (
	"access_service/internal/models"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type AccessRequestRepository struct {
	collection *mongo.Collection
}

func NewAccessRequestRepository(db *mongo.Database) *AccessRequestRepository {
	return &AccessRequestRepository{
		collection: db.Collection("AccessRequest"),
	}
}

func (r *AccessRequestRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.AccessRequest, error) {
	var request models.AccessRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&request)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

func (r *AccessRequestRepository) FindByUsername(ctx context.Context, username string) ([]*models.AccessRequest, error) {
	return r.findAll(ctx, bson.M{"username": username})
}

func (r *AccessRequestRepository) FindByUsernameAndStatus(ctx context.Context, username, status string) ([]*models.AccessRequest, error) {
	return r.findAll(ctx, bson.M{"username": username, "status": status})
}

func (r *AccessRequestRepository) FindByStatus(ctx context.Context, status string) ([]*models.AccessRequest, error) {
	return r.findAll(ctx, bson.M{"status": status})
}

func (r *AccessRequestRepository) findAll(ctx context.Context, filter bson.M) ([]*models.AccessRequest, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []*models.AccessRequest
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, err
	}

	return requests, nil
}

func (r *AccessRequestRepository) Save(ctx context.Context, request *models.AccessRequest) (*models.AccessRequest, error) {
	if request.ID.IsZero() {
		request.ID = bson.NewObjectID()
	}

	currentTime := int(time.Now().Unix())
	if request.CreatedAt == 0 {
		request.CreatedAt = currentTime
	}
	request.UpdatedAt = currentTime

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": request.ID}, request, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to save access request: %w", err)
	}
	return request, nil
}

func (r *AccessRequestRepository) SaveAll(ctx context.Context, requests []*models.AccessRequest) ([]*models.AccessRequest, error) {
	for _, request := range requests {
		if _, err := r.Save(ctx, request); err != nil {
			return nil, err
		}
	}
	return requests, nil
}

func (r *AccessRequestRepository) DeleteByID(ctx context.Context, id bson.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete access request: %w", err)
	}
	return nil
}

func (r *AccessRequestRepository) Delete(ctx context.Context, request *models.AccessRequest) error {
	return r.DeleteByID(ctx, request.ID)
}

func (r *AccessRequestRepository) DeleteByUsername(ctx context.Context, username string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"username": username})
	if err != nil {
		return fmt.Errorf("failed to delete access requests: %w", err)
	}
	return nil
}
