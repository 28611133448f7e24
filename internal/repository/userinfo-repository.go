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

type UserInfoRepository struct {
	collection *mongo.Collection
}

func NewUserInfoRepository(db *mongo.Database) *UserInfoRepository {
	return &UserInfoRepository{
		collection: db.Collection("UserInfo"),
	}
}

func (r *UserInfoRepository) FindByUsername(ctx context.Context, username string) (*models.UserInfo, error) {
	var user models.UserInfo
	err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Save replaces the whole document. Grant operations mutate a defensive
// copy and write it back in one replace, so concurrent writers race with
// last-writer-wins semantics rather than merging fields.
func (r *UserInfoRepository) Save(ctx context.Context, user *models.UserInfo) (*models.UserInfo, error) {
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}

	currentTime := int(time.Now().Unix())
	if user.CreatedAt == 0 {
		user.CreatedAt = currentTime
	}
	user.UpdatedAt = currentTime

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to save user info: %w", err)
	}
	return user, nil
}

func (r *UserInfoRepository) FindUsersByProjectAccess(ctx context.Context, projectNodeID string) ([]*models.UserInfo, error) {
	filter := bson.M{
		"projectsAccess.accessNodes": bson.M{
			"$elemMatch": bson.M{
				"accessLevel":        models.LevelProject,
				"accessItems.itemId": projectNodeID,
			},
		},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*models.UserInfo
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}

	return users, nil
}

func (r *UserInfoRepository) FindAll(ctx context.Context, page, limit int) ([]*models.UserInfo, error) {
	opts := options.Find()
	opts.SetSort(bson.M{"createdAt": -1})
	if page > 0 && limit > 0 {
		opts.SetSkip(int64((page - 1) * limit))
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*models.UserInfo
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}

	return users, nil
}

func (r *UserInfoRepository) DeleteByUsername(ctx context.Context, username string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"username": username})
	if err != nil {
		return fmt.Errorf("failed to delete user info: %w", err)
	}
	return nil
}
