package models

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// HierarchyNode is one rung of the organization tree. Project nodes live in
// the same tree with LevelID PROJECT, so descendant walks from an account or
// portfolio node reach the projects underneath it.
type HierarchyNode struct {
	ID       bson.ObjectID `bson:"_id,omitempty" json:"id"`
	NodeID   string        `bson:"nodeId" json:"nodeId" validate:"required"`
	NodeName string        `bson:"nodeName" json:"nodeName"`
	LevelID  string        `bson:"levelId" json:"levelId"`
	ParentID string        `bson:"parentId,omitempty" json:"parentId"`
}

// HierarchyLevel orders the levels; higher Order means more specific.
// PROJECT carries the largest Order.
type HierarchyLevel struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	LevelID   string        `bson:"levelId" json:"levelId"`
	LevelName string        `bson:"levelName" json:"levelName"`
	Order     int           `bson:"order" json:"order"`
}

type HierarchyValue struct {
	LevelID string `bson:"levelId" json:"levelId"`
	Value   string `bson:"value" json:"value"`
}

type ProjectBasicConfig struct {
	ID            bson.ObjectID    `bson:"_id,omitempty" json:"id"`
	ProjectName   string           `bson:"projectName" json:"projectName"`
	ProjectNodeID string           `bson:"projectNodeId" json:"projectNodeId"`
	Hierarchy     []HierarchyValue `bson:"hierarchy" json:"hierarchy"`
	CreatedAt     int              `bson:"createdAt" json:"createdAt"`
}

// AutoApproveConfig is a single seeded document listing the roles whose
// access requests skip manual review.
type AutoApproveConfig struct {
	ID      bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Enabled bool          `bson:"enabled" json:"enabled"`
	Roles   []string      `bson:"roles" json:"roles"`
}

// ProjectSummary is the resolved view of one granted project.
type ProjectSummary struct {
	ProjectID     string           `json:"projectId"`
	ProjectNodeID string           `json:"projectNodeId"`
	ProjectName   string           `json:"projectName"`
	Hierarchy     []HierarchyValue `json:"hierarchy"`
}

type RoleWiseProjects struct {
	Role     string           `json:"role"`
	Projects []ProjectSummary `json:"projects"`
}
