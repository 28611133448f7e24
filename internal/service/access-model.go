package service

import (
	"access_service/internal/models"
)

// Pure helpers over a working copy of UserInfo. Callers mutate a defensive
// copy and persist it whole; nothing here touches a store.

// flattenAccess folds every granted item into level->values regardless of
// owning role.
func flattenAccess(user *models.UserInfo) LevelValueMap {
	result := make(LevelValueMap)
	for _, pa := range user.ProjectsAccess {
		for _, node := range pa.AccessNodes {
			for _, item := range node.AccessItems {
				result.Add(node.AccessLevel, item.ItemID)
			}
		}
	}
	return result
}

// findRoleOfAccessItem returns the role currently owning an item at a
// level, or empty when the item is unowned. An item has at most one owner.
func findRoleOfAccessItem(user *models.UserInfo, levelID, itemID string) string {
	for _, pa := range user.ProjectsAccess {
		for _, node := range pa.AccessNodes {
			if node.AccessLevel == levelID && node.HasItem(itemID) {
				return pa.Role
			}
		}
	}
	return ""
}

func removeAccessItem(user *models.UserInfo, levelID, itemID string) {
	for pi := range user.ProjectsAccess {
		pa := &user.ProjectsAccess[pi]
		for ni := range pa.AccessNodes {
			node := &pa.AccessNodes[ni]
			if node.AccessLevel != levelID {
				continue
			}
			kept := node.AccessItems[:0]
			for _, item := range node.AccessItems {
				if item.ItemID != itemID {
					kept = append(kept, item)
				}
			}
			node.AccessItems = kept
		}
	}
}

// removeChildren purges every granted item subsumed by the given
// descendant map, under any role.
func removeChildren(user *models.UserInfo, children LevelValueMap) {
	for pi := range user.ProjectsAccess {
		pa := &user.ProjectsAccess[pi]
		for ni := range pa.AccessNodes {
			node := &pa.AccessNodes[ni]
			kept := node.AccessItems[:0]
			for _, item := range node.AccessItems {
				if !children.Contains(node.AccessLevel, item.ItemID) {
					kept = append(kept, item)
				}
			}
			node.AccessItems = kept
		}
	}
}

// addAccessItem places an item under the role's node for the level,
// creating the ProjectsAccess or AccessNode when missing.
func addAccessItem(user *models.UserInfo, role, levelID, itemID string) {
	for pi := range user.ProjectsAccess {
		pa := &user.ProjectsAccess[pi]
		if pa.Role != role {
			continue
		}
		for ni := range pa.AccessNodes {
			node := &pa.AccessNodes[ni]
			if node.AccessLevel != levelID {
				continue
			}
			if !node.HasItem(itemID) {
				node.AccessItems = append(node.AccessItems, models.AccessItem{ItemID: itemID})
			}
			return
		}
		pa.AccessNodes = append(pa.AccessNodes, models.AccessNode{
			AccessLevel: levelID,
			AccessItems: []models.AccessItem{{ItemID: itemID}},
		})
		return
	}
	user.ProjectsAccess = append(user.ProjectsAccess, models.ProjectsAccess{
		Role: role,
		AccessNodes: []models.AccessNode{{
			AccessLevel: levelID,
			AccessItems: []models.AccessItem{{ItemID: itemID}},
		}},
	})
}

// cleanUserInfo prunes empty nodes and entries and resyncs authorities with
// the roles actually present. Idempotent: running it twice equals once.
func cleanUserInfo(user *models.UserInfo) {
	if user.HasAuthority(models.RoleSuperAdmin) {
		user.Authorities = []string{models.RoleSuperAdmin}
		user.ProjectsAccess = nil
		return
	}

	guest := false
	for _, pa := range user.ProjectsAccess {
		if pa.Role == models.RoleGuest {
			guest = true
			break
		}
	}

	cleaned := make([]models.ProjectsAccess, 0, len(user.ProjectsAccess))
	for _, pa := range user.ProjectsAccess {
		if guest && pa.Role != models.RoleGuest {
			continue
		}
		nodes := make([]models.AccessNode, 0, len(pa.AccessNodes))
		for _, node := range pa.AccessNodes {
			if len(node.AccessItems) > 0 {
				nodes = append(nodes, node)
			}
		}
		if len(nodes) > 0 {
			cleaned = append(cleaned, models.ProjectsAccess{Role: pa.Role, AccessNodes: nodes})
		}
	}
	user.ProjectsAccess = cleaned

	if len(cleaned) == 0 {
		user.Authorities = []string{models.RoleViewer}
		return
	}

	authorities := make([]string, 0, len(cleaned))
	for _, pa := range cleaned {
		authorities = append(authorities, pa.Role)
	}
	user.Authorities = authorities
}

// hasNonDefaultAccess reports whether the user holds anything beyond the
// default viewer role. A brand new user admits any request.
func hasNonDefaultAccess(user *models.UserInfo) bool {
	if user == nil {
		return false
	}
	if len(user.ProjectsAccess) > 0 {
		return true
	}
	for _, authority := range user.Authorities {
		if authority != models.RoleViewer {
			return true
		}
	}
	return false
}
