package models

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	RoleSuperAdmin    = "ROLE_SUPERADMIN"
	RoleProjectAdmin  = "ROLE_PROJECT_ADMIN"
	RoleProjectViewer = "ROLE_PROJECT_VIEWER"
	RoleViewer        = "ROLE_VIEWER"
	RoleGuest         = "ROLE_GUEST"
)

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// LevelProject is the most specific hierarchy level; grants at this level
// target project nodes directly and are never batched.
const LevelProject = "PROJECT"

type AccessItem struct {
	ItemID string `bson:"itemId" json:"itemId" validate:"required"`
}

type AccessNode struct {
	AccessLevel string       `bson:"accessLevel" json:"accessLevel"`
	AccessItems []AccessItem `bson:"accessItems" json:"accessItems"`
}

type ProjectsAccess struct {
	Role        string       `bson:"role" json:"role"`
	AccessNodes []AccessNode `bson:"accessNodes" json:"accessNodes"`
}

type UserInfo struct {
	ID             bson.ObjectID    `bson:"_id,omitempty" json:"id"`
	Username       string           `bson:"username" json:"username" validate:"required"`
	Authorities    []string         `bson:"authorities" json:"authorities"`
	ProjectsAccess []ProjectsAccess `bson:"projectsAccess" json:"projectsAccess"`
	Email          string           `bson:"email,omitempty" json:"email"`
	DisplayName    string           `bson:"displayName,omitempty" json:"displayName"`
	CreatedAt      int              `bson:"createdAt" json:"createdAt"`
	UpdatedAt      int              `bson:"updatedAt" json:"updatedAt"`
}

type AccessRequest struct {
	ID             bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Username       string        `bson:"username" json:"username" validate:"required"`
	Role           string        `bson:"role" json:"role" validate:"required"`
	AccessNode     AccessNode    `bson:"accessNode" json:"accessNode"`
	Status         string        `bson:"status" json:"status"`
	ReviewComments string        `bson:"reviewComments,omitempty" json:"reviewComments"`
	CreatedAt      int           `bson:"createdAt" json:"createdAt"`
	UpdatedAt      int           `bson:"updatedAt" json:"updatedAt"`
}

type AccessRequestDecision struct {
	Role           string `bson:"role" json:"role"`
	Status         string `bson:"status" json:"status"`
	ReviewComments string `bson:"reviewComments,omitempty" json:"reviewComments"`
}

// Copy returns a deep copy of the user. Grant paths mutate the copy and
// persist it whole, so a failed mutation never leaves a half-applied user
// in any cache held by the caller.
func (u *UserInfo) Copy() *UserInfo {
	clone := *u
	clone.Authorities = append([]string(nil), u.Authorities...)
	clone.ProjectsAccess = make([]ProjectsAccess, 0, len(u.ProjectsAccess))
	for _, pa := range u.ProjectsAccess {
		clone.ProjectsAccess = append(clone.ProjectsAccess, pa.Copy())
	}
	return &clone
}

func (pa ProjectsAccess) Copy() ProjectsAccess {
	clone := ProjectsAccess{Role: pa.Role}
	clone.AccessNodes = make([]AccessNode, 0, len(pa.AccessNodes))
	for _, node := range pa.AccessNodes {
		clone.AccessNodes = append(clone.AccessNodes, AccessNode{
			AccessLevel: node.AccessLevel,
			AccessItems: append([]AccessItem(nil), node.AccessItems...),
		})
	}
	return clone
}

func (u *UserInfo) HasAuthority(role string) bool {
	for _, authority := range u.Authorities {
		if authority == role {
			return true
		}
	}
	return false
}

func (n AccessNode) ItemIDs() []string {
	ids := make([]string, 0, len(n.AccessItems))
	for _, item := range n.AccessItems {
		ids = append(ids, item.ItemID)
	}
	return ids
}

func (n AccessNode) HasItem(itemID string) bool {
	for _, item := range n.AccessItems {
		if item.ItemID == itemID {
			return true
		}
	}
	return false
}
