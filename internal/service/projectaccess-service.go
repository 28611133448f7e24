package service

import (
	"access_service/internal/models"
	"access_service/internal/repository"
	"context"
	"fmt"
	"log"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ProjectAccessService is the access-control engine: it applies grant
// decisions to a user's access model while keeping the set-algebra
// invariants (single ownership per item, no grants beneath a granted
// ancestor, descendant purge on ancestor grant) and answers authorization
// queries. It holds no state of its own; everything lives in the stores.
type ProjectAccessService struct {
	userRepo    UserInfoStore
	requestRepo AccessRequestStore
	projectRepo ProjectStore
	hierarchy   TreeSource
	tokenSvc    TokenRefresher
	notifier    DecisionNotifier
}

func NewProjectAccessService(hierarchy TreeSource, tokenSvc TokenRefresher, notifier DecisionNotifier) *ProjectAccessService {
	return &ProjectAccessService{
		userRepo:    repository.Repositories_instance.UserInfoRepository,
		requestRepo: repository.Repositories_instance.AccessRequestRepository,
		projectRepo: repository.Repositories_instance.ProjectConfigRepository,
		hierarchy:   hierarchy,
		tokenSvc:    tokenSvc,
		notifier:    notifier,
	}
}

func NewProjectAccessServiceWithStores(users UserInfoStore, requests AccessRequestStore, projects ProjectStore, hierarchy TreeSource, tokenSvc TokenRefresher, notifier DecisionNotifier) *ProjectAccessService {
	return &ProjectAccessService{
		userRepo:    users,
		requestRepo: requests,
		projectRepo: projects,
		hierarchy:   hierarchy,
		tokenSvc:    tokenSvc,
		notifier:    notifier,
	}
}

// GrantAccess applies an approval decision to a user's access model and
// marks the request APPROVED. The listener is invoked exactly once.
func (s *ProjectAccessService) GrantAccess(ctx context.Context, requestID bson.ObjectID, decision *models.AccessRequestDecision, listener GrantAccessListener) {
	s.grantAccess(ctx, requestID, decision).dispatch(listener)
}

func (s *ProjectAccessService) grantAccess(ctx context.Context, requestID bson.ObjectID, decision *models.AccessRequestDecision) grantOutcome {
	request, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return grantOutcome{message: fmt.Sprintf("Error loading access request: %s", err)}
	}
	if request == nil {
		return grantOutcome{message: "Access request not found"}
	}

	if decision != nil && decision.Role != "" {
		request.Role = decision.Role
	}
	if decision != nil && decision.ReviewComments != "" {
		request.ReviewComments = decision.ReviewComments
	}

	if err := s.deleteSupersededApprovals(ctx, request); err != nil {
		log.Printf("Warning: failed to delete superseded approvals for %s: %v", request.Username, err)
	}

	user, err := s.userRepo.FindByUsername(ctx, request.Username)
	if err != nil {
		return grantOutcome{request: request, message: fmt.Sprintf("Error loading user: %s", err)}
	}
	if user == nil {
		return grantOutcome{request: request, message: "User not found"}
	}

	working := user.Copy()

	if request.Role == models.RoleSuperAdmin {
		working.Authorities = []string{models.RoleSuperAdmin}
		working.ProjectsAccess = nil
	} else {
		tree, err := s.hierarchy.ConfigTree(ctx)
		if err != nil {
			return grantOutcome{request: request, message: fmt.Sprintf("Error loading hierarchy tree: %s", err)}
		}
		children := tree.ChildrenMap(request.AccessNode.AccessLevel, request.AccessNode.ItemIDs())

		if !hasNonDefaultAccess(working) {
			working.ProjectsAccess = []models.ProjectsAccess{{
				Role:        request.Role,
				AccessNodes: []models.AccessNode{request.AccessNode},
			}}
		} else {
			applyAccessNode(working, request.Role, request.AccessNode, children)
		}
		cleanUserInfo(working)
	}

	saved, err := s.userRepo.Save(ctx, working)
	if err != nil {
		return grantOutcome{request: request, message: fmt.Sprintf("Error saving user: %s", err)}
	}

	request.Status = models.StatusApproved
	if _, err := s.requestRepo.Save(ctx, request); err != nil {
		return grantOutcome{request: request, message: fmt.Sprintf("Error saving access request: %s", err)}
	}

	if s.tokenSvc != nil {
		if err := s.tokenSvc.UpdateExpiryDate(ctx, saved.Username); err != nil {
			log.Printf("Warning: failed to refresh token expiry for %s: %v", saved.Username, err)
		}
	}
	if s.notifier != nil {
		s.notifier.NotifyAccessDecision(ctx, request, models.StatusApproved)
	}

	return grantOutcome{ok: true, userInfo: saved, request: request}
}

// deleteSupersededApprovals removes other APPROVED requests targeting any of
// the same items; approval of a new role for an item supersedes the stale
// approved record.
func (s *ProjectAccessService) deleteSupersededApprovals(ctx context.Context, request *models.AccessRequest) error {
	approved, err := s.requestRepo.FindByUsernameAndStatus(ctx, request.Username, models.StatusApproved)
	if err != nil {
		return err
	}
	for _, other := range approved {
		if other.ID == request.ID {
			continue
		}
		if other.AccessNode.AccessLevel != request.AccessNode.AccessLevel {
			continue
		}
		if !itemsOverlap(other.AccessNode, request.AccessNode) {
			continue
		}
		if err := s.requestRepo.Delete(ctx, other); err != nil {
			return err
		}
	}
	return nil
}

// applyAccessNode runs the per-item admit/move/add algorithm: an item owned
// by the target role is a no-op, an item owned elsewhere moves roles, and an
// unowned item first purges its now-subsumed descendants.
func applyAccessNode(user *models.UserInfo, role string, node models.AccessNode, children LevelValueMap) {
	for _, item := range node.AccessItems {
		owner := findRoleOfAccessItem(user, node.AccessLevel, item.ItemID)
		switch {
		case owner == role:
			// already granted under this role
		case owner != "":
			removeAccessItem(user, node.AccessLevel, item.ItemID)
			addAccessItem(user, role, node.AccessLevel, item.ItemID)
		default:
			removeChildren(user, children)
			addAccessItem(user, role, node.AccessLevel, item.ItemID)
		}
	}
}

func itemsOverlap(a, b models.AccessNode) bool {
	for _, item := range a.AccessItems {
		if b.HasItem(item.ItemID) {
			return true
		}
	}
	return false
}

// HasProjectEditPermission reports whether the user may edit the project:
// superadmins always, otherwise only holders of the project-admin role over
// that specific project.
func (s *ProjectAccessService) HasProjectEditPermission(ctx context.Context, projectNodeID, username string) (bool, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	if user.HasAuthority(models.RoleSuperAdmin) {
		return true, nil
	}

	roleWise, err := s.getProjectAccessesWithRole(ctx, user)
	if err != nil {
		return false, err
	}
	for _, rw := range roleWise {
		if rw.Role != models.RoleProjectAdmin {
			continue
		}
		for _, project := range rw.Projects {
			if project.ProjectNodeID == projectNodeID || project.ProjectID == projectNodeID {
				return true, nil
			}
		}
	}
	return false, nil
}

// CanTriggerProcessorFor requires edit permission over every listed project.
func (s *ProjectAccessService) CanTriggerProcessorFor(ctx context.Context, projectNodeIDs []string, username string) (bool, error) {
	for _, projectNodeID := range projectNodeIDs {
		ok, err := s.HasProjectEditPermission(ctx, projectNodeID, username)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// GetAccessRoleOfNearestParent walks the project's hierarchy values from the
// most specific level upward and returns the role granted at the first
// matching level, or empty when nothing matches.
func (s *ProjectAccessService) GetAccessRoleOfNearestParent(ctx context.Context, project *models.ProjectBasicConfig, username string) (string, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil || project == nil {
		return "", nil
	}
	if user.HasAuthority(models.RoleSuperAdmin) {
		return models.RoleSuperAdmin, nil
	}

	tree, err := s.hierarchy.ConfigTree(ctx)
	if err != nil {
		return "", err
	}

	candidates := []models.HierarchyValue{{LevelID: models.LevelProject, Value: project.ProjectNodeID}}
	sorted := append([]models.HierarchyValue(nil), project.Hierarchy...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return tree.LevelOrder(sorted[i].LevelID) > tree.LevelOrder(sorted[j].LevelID)
	})
	candidates = append(candidates, sorted...)

	for _, candidate := range candidates {
		for _, pa := range user.ProjectsAccess {
			for _, node := range pa.AccessNodes {
				if node.AccessLevel == candidate.LevelID && node.HasItem(candidate.Value) {
					return pa.Role, nil
				}
			}
		}
	}
	return "", nil
}

// GetProjectAccessesWithRole resolves a user's access nodes into concrete
// projects grouped by role.
func (s *ProjectAccessService) GetProjectAccessesWithRole(ctx context.Context, username string) ([]models.RoleWiseProjects, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return s.getProjectAccessesWithRole(ctx, user)
}

func (s *ProjectAccessService) getProjectAccessesWithRole(ctx context.Context, user *models.UserInfo) ([]models.RoleWiseProjects, error) {
	projects, err := s.projectRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	if user.HasAuthority(models.RoleSuperAdmin) {
		all := make([]models.ProjectSummary, 0, len(projects))
		for _, project := range projects {
			all = append(all, summarize(project))
		}
		return []models.RoleWiseProjects{{Role: models.RoleSuperAdmin, Projects: all}}, nil
	}

	byNodeID := make(map[string]*models.ProjectBasicConfig, len(projects))
	for _, project := range projects {
		byNodeID[project.ProjectNodeID] = project
	}

	var result []models.RoleWiseProjects
	for _, pa := range user.ProjectsAccess {
		seen := make(map[string]bool)
		var resolved []models.ProjectSummary
		for _, node := range pa.AccessNodes {
			if node.AccessLevel == models.LevelProject {
				for _, item := range node.AccessItems {
					project, ok := byNodeID[item.ItemID]
					if ok && !seen[project.ProjectNodeID] {
						seen[project.ProjectNodeID] = true
						resolved = append(resolved, summarize(project))
					}
				}
				continue
			}
			for _, project := range projects {
				if seen[project.ProjectNodeID] {
					continue
				}
				if hierarchyMatches(project, node) {
					seen[project.ProjectNodeID] = true
					resolved = append(resolved, summarize(project))
				}
			}
		}
		result = append(result, models.RoleWiseProjects{Role: pa.Role, Projects: resolved})
	}
	return result, nil
}

// GetProjects flattens the role-wise resolution into a de-duplicated list.
func (s *ProjectAccessService) GetProjects(ctx context.Context, username string) ([]models.ProjectSummary, error) {
	roleWise, err := s.GetProjectAccessesWithRole(ctx, username)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var projects []models.ProjectSummary
	for _, rw := range roleWise {
		for _, project := range rw.Projects {
			if !seen[project.ProjectNodeID] {
				seen[project.ProjectNodeID] = true
				projects = append(projects, project)
			}
		}
	}
	return projects, nil
}

func hierarchyMatches(project *models.ProjectBasicConfig, node models.AccessNode) bool {
	for _, hv := range project.Hierarchy {
		if hv.LevelID == node.AccessLevel && node.HasItem(hv.Value) {
			return true
		}
	}
	return false
}

func summarize(project *models.ProjectBasicConfig) models.ProjectSummary {
	return models.ProjectSummary{
		ProjectID:     project.ID.Hex(),
		ProjectNodeID: project.ProjectNodeID,
		ProjectName:   project.ProjectName,
		Hierarchy:     project.Hierarchy,
	}
}

// UpdateAccessOfUserInfo replaces a user's grants with the desired access,
// replaying access nodes broadest level first through the same per-item
// algorithm grants use, then deletes approved requests the new model no
// longer covers.
func (s *ProjectAccessService) UpdateAccessOfUserInfo(ctx context.Context, username string, desired []models.ProjectsAccess) (*models.UserInfo, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s not found", username)
	}

	working := user.Copy()

	superadmin := false
	for _, pa := range desired {
		if pa.Role == models.RoleSuperAdmin {
			superadmin = true
			break
		}
	}

	if superadmin {
		working.Authorities = []string{models.RoleSuperAdmin}
		working.ProjectsAccess = nil
	} else {
		tree, err := s.hierarchy.ConfigTree(ctx)
		if err != nil {
			return nil, err
		}

		working.ProjectsAccess = nil
		working.Authorities = []string{models.RoleViewer}

		for _, pa := range desired {
			nodes := append([]models.AccessNode(nil), pa.AccessNodes...)
			sort.SliceStable(nodes, func(i, j int) bool {
				return tree.LevelOrder(nodes[i].AccessLevel) < tree.LevelOrder(nodes[j].AccessLevel)
			})
			for _, node := range nodes {
				children := tree.ChildrenMap(node.AccessLevel, node.ItemIDs())
				granted := flattenAccess(working)
				admitted := models.AccessNode{AccessLevel: node.AccessLevel}
				for _, item := range node.AccessItems {
					parents := tree.ParentMap(node.AccessLevel, []string{item.ItemID})
					if parents.Overlaps(granted) {
						// an already-applied broader grant covers this item
						continue
					}
					admitted.AccessItems = append(admitted.AccessItems, item)
				}
				if len(admitted.AccessItems) > 0 {
					applyAccessNode(working, pa.Role, admitted, children)
				}
			}
		}
		cleanUserInfo(working)
	}

	saved, err := s.userRepo.Save(ctx, working)
	if err != nil {
		return nil, err
	}

	obsolete, err := s.GetObsoleteAccessRequests(ctx, saved)
	if err != nil {
		log.Printf("Warning: failed to compute obsolete access requests for %s: %v", username, err)
		return saved, nil
	}
	for _, request := range obsolete {
		if err := s.requestRepo.Delete(ctx, request); err != nil {
			log.Printf("Warning: failed to delete obsolete access request %s: %v", request.ID.Hex(), err)
		}
	}

	return saved, nil
}

// GetObsoleteAccessRequests lists APPROVED requests whose (role, level,
// item) triple is no longer present in the user's access model. Approved
// requests must never outlive the access they produced.
func (s *ProjectAccessService) GetObsoleteAccessRequests(ctx context.Context, user *models.UserInfo) ([]*models.AccessRequest, error) {
	approved, err := s.requestRepo.FindByUsernameAndStatus(ctx, user.Username, models.StatusApproved)
	if err != nil {
		return nil, err
	}

	var obsolete []*models.AccessRequest
	for _, request := range approved {
		if request.Role == models.RoleSuperAdmin {
			if !user.HasAuthority(models.RoleSuperAdmin) {
				obsolete = append(obsolete, request)
			}
			continue
		}
		covered := true
		for _, item := range request.AccessNode.AccessItems {
			if findRoleOfAccessItem(user, request.AccessNode.AccessLevel, item.ItemID) != request.Role {
				covered = false
				break
			}
		}
		if !covered {
			obsolete = append(obsolete, request)
		}
	}
	return obsolete, nil
}

// GetUsersWithProjectAccess lists users holding a direct grant on the
// project node.
func (s *ProjectAccessService) GetUsersWithProjectAccess(ctx context.Context, projectNodeID string) ([]*models.UserInfo, error) {
	return s.userRepo.FindUsersByProjectAccess(ctx, projectNodeID)
}
