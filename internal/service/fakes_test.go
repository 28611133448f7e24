package service

import (
	"access_service/internal/models"
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// In-memory stores backing the engine tests. They mirror the repository
// contracts, including nil-without-error on missing documents.

type fakeUserStore struct {
	users map[string]*models.UserInfo
}

func newFakeUserStore(users ...*models.UserInfo) *fakeUserStore {
	store := &fakeUserStore{users: make(map[string]*models.UserInfo)}
	for _, user := range users {
		store.users[user.Username] = user
	}
	return store
}

func (s *fakeUserStore) FindByUsername(_ context.Context, username string) (*models.UserInfo, error) {
	return s.users[username], nil
}

func (s *fakeUserStore) Save(_ context.Context, user *models.UserInfo) (*models.UserInfo, error) {
	stored := user.Copy()
	s.users[user.Username] = stored
	return stored, nil
}

func (s *fakeUserStore) FindUsersByProjectAccess(_ context.Context, projectNodeID string) ([]*models.UserInfo, error) {
	var matched []*models.UserInfo
	for _, user := range s.users {
		for _, pa := range user.ProjectsAccess {
			for _, node := range pa.AccessNodes {
				if node.AccessLevel == models.LevelProject && node.HasItem(projectNodeID) {
					matched = append(matched, user)
				}
			}
		}
	}
	return matched, nil
}

type fakeRequestStore struct {
	requests []*models.AccessRequest
}

func newFakeRequestStore(requests ...*models.AccessRequest) *fakeRequestStore {
	store := &fakeRequestStore{}
	for _, request := range requests {
		store.Save(context.Background(), request)
	}
	return store
}

func (s *fakeRequestStore) FindByID(_ context.Context, id bson.ObjectID) (*models.AccessRequest, error) {
	for _, request := range s.requests {
		if request.ID == id {
			return request, nil
		}
	}
	return nil, nil
}

func (s *fakeRequestStore) FindByUsername(_ context.Context, username string) ([]*models.AccessRequest, error) {
	var matched []*models.AccessRequest
	for _, request := range s.requests {
		if request.Username == username {
			matched = append(matched, request)
		}
	}
	return matched, nil
}

func (s *fakeRequestStore) FindByUsernameAndStatus(_ context.Context, username, status string) ([]*models.AccessRequest, error) {
	var matched []*models.AccessRequest
	for _, request := range s.requests {
		if request.Username == username && request.Status == status {
			matched = append(matched, request)
		}
	}
	return matched, nil
}

func (s *fakeRequestStore) Save(_ context.Context, request *models.AccessRequest) (*models.AccessRequest, error) {
	if request.ID.IsZero() {
		request.ID = bson.NewObjectID()
	}
	for i, existing := range s.requests {
		if existing.ID == request.ID {
			s.requests[i] = request
			return request, nil
		}
	}
	s.requests = append(s.requests, request)
	return request, nil
}

func (s *fakeRequestStore) SaveAll(ctx context.Context, requests []*models.AccessRequest) ([]*models.AccessRequest, error) {
	for _, request := range requests {
		if _, err := s.Save(ctx, request); err != nil {
			return nil, err
		}
	}
	return requests, nil
}

func (s *fakeRequestStore) DeleteByID(_ context.Context, id bson.ObjectID) error {
	kept := s.requests[:0]
	for _, request := range s.requests {
		if request.ID != id {
			kept = append(kept, request)
		}
	}
	s.requests = kept
	return nil
}

func (s *fakeRequestStore) Delete(ctx context.Context, request *models.AccessRequest) error {
	return s.DeleteByID(ctx, request.ID)
}

type fakeProjectStore struct {
	projects []*models.ProjectBasicConfig
}

func (s *fakeProjectStore) FindAll(_ context.Context) ([]*models.ProjectBasicConfig, error) {
	return s.projects, nil
}

func (s *fakeProjectStore) FindByProjectNodeID(_ context.Context, projectNodeID string) (*models.ProjectBasicConfig, error) {
	for _, project := range s.projects {
		if project.ProjectNodeID == projectNodeID {
			return project, nil
		}
	}
	return nil, nil
}

type fakeHierarchyStore struct {
	nodes  []*models.HierarchyNode
	levels []*models.HierarchyLevel
}

func (s *fakeHierarchyStore) FindAllNodes(_ context.Context) ([]*models.HierarchyNode, error) {
	return s.nodes, nil
}

func (s *fakeHierarchyStore) FindAllLevels(_ context.Context) ([]*models.HierarchyLevel, error) {
	return s.levels, nil
}

type fakeTokenRefresher struct {
	refreshed []string
}

func (f *fakeTokenRefresher) UpdateExpiryDate(_ context.Context, username string) error {
	f.refreshed = append(f.refreshed, username)
	return nil
}

type notifiedDecision struct {
	request *models.AccessRequest
	status  string
}

// fakeNotifier records both request and decision notifications.
type fakeNotifier struct {
	requested []*models.AccessRequest
	decisions []notifiedDecision
}

func (f *fakeNotifier) NotifyAccessRequested(_ context.Context, request *models.AccessRequest) {
	f.requested = append(f.requested, request)
}

func (f *fakeNotifier) NotifyAccessDecision(_ context.Context, request *models.AccessRequest, status string) {
	f.decisions = append(f.decisions, notifiedDecision{request: request, status: status})
}

type fakeAutoApprover struct {
	roles map[string]bool
}

func (f *fakeAutoApprover) IsAutoApproveEnabled(_ context.Context, role string) bool {
	return f.roles[role]
}

// Listener captures mirroring the handler adapters.

type captureRequestListener struct {
	calls   int
	ok      bool
	request *models.AccessRequest
	message string
}

func (l *captureRequestListener) OnSuccess(request *models.AccessRequest) {
	l.calls++
	l.ok = true
	l.request = request
}

func (l *captureRequestListener) OnFailure(message string) {
	l.calls++
	l.message = message
}

type captureGrantListener struct {
	calls    int
	ok       bool
	userInfo *models.UserInfo
	request  *models.AccessRequest
	message  string
}

func (l *captureGrantListener) OnSuccess(userInfo *models.UserInfo) {
	l.calls++
	l.ok = true
	l.userInfo = userInfo
}

func (l *captureGrantListener) OnFailure(request *models.AccessRequest, message string) {
	l.calls++
	l.request = request
	l.message = message
}

// Fixture tree:
//
//	org1
//	├── deptA
//	│   ├── team1 ── proj1, proj2
//	│   └── team2 ── proj3
//	└── deptB
//	    └── team3 ── proj4
func fixtureHierarchy() *fakeHierarchyStore {
	return &fakeHierarchyStore{
		nodes: []*models.HierarchyNode{
			{NodeID: "org1", NodeName: "Org 1", LevelID: "ORG"},
			{NodeID: "deptA", NodeName: "Dept A", LevelID: "DEPT", ParentID: "org1"},
			{NodeID: "deptB", NodeName: "Dept B", LevelID: "DEPT", ParentID: "org1"},
			{NodeID: "team1", NodeName: "Team 1", LevelID: "TEAM", ParentID: "deptA"},
			{NodeID: "team2", NodeName: "Team 2", LevelID: "TEAM", ParentID: "deptA"},
			{NodeID: "team3", NodeName: "Team 3", LevelID: "TEAM", ParentID: "deptB"},
			{NodeID: "proj1", NodeName: "Project 1", LevelID: models.LevelProject, ParentID: "team1"},
			{NodeID: "proj2", NodeName: "Project 2", LevelID: models.LevelProject, ParentID: "team1"},
			{NodeID: "proj3", NodeName: "Project 3", LevelID: models.LevelProject, ParentID: "team2"},
			{NodeID: "proj4", NodeName: "Project 4", LevelID: models.LevelProject, ParentID: "team3"},
		},
		levels: []*models.HierarchyLevel{
			{LevelID: "ORG", LevelName: "Organization", Order: 1},
			{LevelID: "DEPT", LevelName: "Department", Order: 2},
			{LevelID: "TEAM", LevelName: "Team", Order: 3},
			{LevelID: models.LevelProject, LevelName: "Project", Order: 4},
		},
	}
}

func fixtureProjects() *fakeProjectStore {
	hierarchyOf := func(dept, team string) []models.HierarchyValue {
		return []models.HierarchyValue{
			{LevelID: "ORG", Value: "org1"},
			{LevelID: "DEPT", Value: dept},
			{LevelID: "TEAM", Value: team},
		}
	}
	return &fakeProjectStore{projects: []*models.ProjectBasicConfig{
		{ID: bson.NewObjectID(), ProjectName: "Project 1", ProjectNodeID: "proj1", Hierarchy: hierarchyOf("deptA", "team1")},
		{ID: bson.NewObjectID(), ProjectName: "Project 2", ProjectNodeID: "proj2", Hierarchy: hierarchyOf("deptA", "team1")},
		{ID: bson.NewObjectID(), ProjectName: "Project 3", ProjectNodeID: "proj3", Hierarchy: hierarchyOf("deptA", "team2")},
		{ID: bson.NewObjectID(), ProjectName: "Project 4", ProjectNodeID: "proj4", Hierarchy: hierarchyOf("deptB", "team3")},
	}}
}

// accessEnv wires both services against the in-memory stores.
type accessEnv struct {
	users    *fakeUserStore
	requests *fakeRequestStore
	projects *fakeProjectStore
	token    *fakeTokenRefresher
	notifier *fakeNotifier
	approver *fakeAutoApprover
	access   *ProjectAccessService
	intake   *AccessRequestService
}

func newAccessEnv(users ...*models.UserInfo) *accessEnv {
	env := &accessEnv{
		users:    newFakeUserStore(users...),
		requests: newFakeRequestStore(),
		projects: fixtureProjects(),
		token:    &fakeTokenRefresher{},
		notifier: &fakeNotifier{},
		approver: &fakeAutoApprover{roles: make(map[string]bool)},
	}
	hierarchy := NewHierarchyServiceWithStore(fixtureHierarchy())
	env.access = NewProjectAccessServiceWithStores(env.users, env.requests, env.projects, hierarchy, env.token, env.notifier)
	env.intake = NewAccessRequestServiceWithStores(env.users, env.requests, hierarchy, env.approver, env.access, env.notifier)
	return env
}

func viewerUser(username string) *models.UserInfo {
	return &models.UserInfo{
		Username:    username,
		Authorities: []string{models.RoleViewer},
	}
}

func userWithAccess(username string, access ...models.ProjectsAccess) *models.UserInfo {
	user := viewerUser(username)
	user.ProjectsAccess = access
	cleanUserInfo(user)
	return user
}

func projectNode(items ...string) models.AccessNode {
	node := models.AccessNode{AccessLevel: models.LevelProject}
	for _, item := range items {
		node.AccessItems = append(node.AccessItems, models.AccessItem{ItemID: item})
	}
	return node
}

func accessNode(level string, items ...string) models.AccessNode {
	node := models.AccessNode{AccessLevel: level}
	for _, item := range items {
		node.AccessItems = append(node.AccessItems, models.AccessItem{ItemID: item})
	}
	return node
}

func pendingRequest(username, role string, node models.AccessNode) *models.AccessRequest {
	return &models.AccessRequest{
		Username:   username,
		Role:       role,
		Status:     models.StatusPending,
		AccessNode: node,
	}
}
