package service

import (
	"access_service/internal/models"
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Store interfaces mirror the repository methods the engine touches so the
// decision logic can be exercised against in-memory fakes.

type UserInfoStore interface {
	FindByUsername(ctx context.Context, username string) (*models.UserInfo, error)
	Save(ctx context.Context, user *models.UserInfo) (*models.UserInfo, error)
	FindUsersByProjectAccess(ctx context.Context, projectNodeID string) ([]*models.UserInfo, error)
}

type AccessRequestStore interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*models.AccessRequest, error)
	FindByUsername(ctx context.Context, username string) ([]*models.AccessRequest, error)
	FindByUsernameAndStatus(ctx context.Context, username, status string) ([]*models.AccessRequest, error)
	Save(ctx context.Context, request *models.AccessRequest) (*models.AccessRequest, error)
	SaveAll(ctx context.Context, requests []*models.AccessRequest) ([]*models.AccessRequest, error)
	DeleteByID(ctx context.Context, id bson.ObjectID) error
	Delete(ctx context.Context, request *models.AccessRequest) error
}

type ProjectStore interface {
	FindAll(ctx context.Context) ([]*models.ProjectBasicConfig, error)
	FindByProjectNodeID(ctx context.Context, projectNodeID string) (*models.ProjectBasicConfig, error)
}

type HierarchyStore interface {
	FindAllNodes(ctx context.Context) ([]*models.HierarchyNode, error)
	FindAllLevels(ctx context.Context) ([]*models.HierarchyLevel, error)
}

type AutoApproveStore interface {
	Find(ctx context.Context) (*models.AutoApproveConfig, error)
}

// TreeSource supplies a read-only snapshot of the organization tree.
type TreeSource interface {
	ConfigTree(ctx context.Context) (*HierarchyTree, error)
}

// TokenRefresher bumps a user's token expiry after a successful grant so an
// existing session reflects new permissions without re-login.
type TokenRefresher interface {
	UpdateExpiryDate(ctx context.Context, username string) error
}

type AutoApprover interface {
	IsAutoApproveEnabled(ctx context.Context, role string) bool
}

// Notifiers are best effort: a failed notification never fails the
// operation that triggered it.

type RequestNotifier interface {
	NotifyAccessRequested(ctx context.Context, request *models.AccessRequest)
}

type DecisionNotifier interface {
	NotifyAccessDecision(ctx context.Context, request *models.AccessRequest, status string)
}
