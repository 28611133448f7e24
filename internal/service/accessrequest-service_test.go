package service

import (
	"access_service/internal/models"
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestHandleAccessRequest_SuperAdminWithScopeRejected(t *testing.T) {
	env := newAccessEnv(viewerUser("alice"))
	request := pendingRequest("alice", models.RoleSuperAdmin, projectNode("proj1"))

	admissible, reason, err := env.intake.HandleAccessRequest(context.Background(), request)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if admissible {
		t.Error("Expected a scoped superadmin request to be inadmissible")
	}
	if reason != "Superadmin role cannot be combined with project or hierarchy access" {
		t.Errorf("Unexpected reason: %q", reason)
	}
}

func TestHandleAccessRequest_SuperAdminWithoutScopeAdmissible(t *testing.T) {
	env := newAccessEnv(viewerUser("alice"))
	request := pendingRequest("alice", models.RoleSuperAdmin, models.AccessNode{})

	admissible, _, err := env.intake.HandleAccessRequest(context.Background(), request)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !admissible {
		t.Error("Expected an unscoped superadmin request to be admissible")
	}
}

func TestHandleAccessRequest_NewUserAdmissible(t *testing.T) {
	env := newAccessEnv() // user does not even exist yet
	request := pendingRequest("newbie", models.RoleProjectViewer, projectNode("proj1"))

	admissible, _, err := env.intake.HandleAccessRequest(context.Background(), request)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !admissible {
		t.Error("Expected a request from a brand new user to be admissible")
	}
}

func TestHandleAccessRequest_AncestorAlreadyHeld(t *testing.T) {
	user := userWithAccess("bob", models.ProjectsAccess{
		Role:        models.RoleProjectViewer,
		AccessNodes: []models.AccessNode{accessNode("DEPT", "deptA")},
	})
	env := newAccessEnv(user)

	// proj1 sits under deptA; the dept grant already covers it
	request := pendingRequest("bob", models.RoleProjectAdmin, projectNode("proj1"))
	admissible, reason, err := env.intake.HandleAccessRequest(context.Background(), request)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if admissible {
		t.Error("Expected a request under an already-held ancestor to be inadmissible")
	}
	if reason != "Already has access to parent level" {
		t.Errorf("Unexpected reason: %q", reason)
	}

	// proj4 lives under deptB, no conflict there
	request = pendingRequest("bob", models.RoleProjectAdmin, projectNode("proj4"))
	admissible, _, err = env.intake.HandleAccessRequest(context.Background(), request)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !admissible {
		t.Error("Expected a request outside the held subtree to be admissible")
	}
}

func TestCreateAccessRequest_FansOutProjectItems(t *testing.T) {
	env := newAccessEnv(viewerUser("carol"))
	request := pendingRequest("carol", models.RoleProjectViewer, projectNode("proj1", "proj2", "proj4"))

	listener := &captureRequestListener{}
	env.intake.CreateAccessRequest(context.Background(), request, listener)
	if !listener.ok {
		t.Fatalf("Expected request to succeed, got failure: %s", listener.message)
	}

	saved, _ := env.requests.FindByUsername(context.Background(), "carol")
	if len(saved) != 3 {
		t.Fatalf("Expected 3 fanned-out requests, got %d", len(saved))
	}
	for _, r := range saved {
		if r.Status != models.StatusPending {
			t.Errorf("Expected PENDING status, got %s", r.Status)
		}
		if len(r.AccessNode.AccessItems) != 1 {
			t.Errorf("Expected one item per request, got %d", len(r.AccessNode.AccessItems))
		}
	}
	if len(env.notifier.requested) != 3 {
		t.Errorf("Expected a notification per request, got %d", len(env.notifier.requested))
	}
}

func TestCreateAccessRequest_HierarchyLevelNotFannedOut(t *testing.T) {
	env := newAccessEnv(viewerUser("carol"))
	request := pendingRequest("carol", models.RoleProjectViewer, accessNode("TEAM", "team1", "team2"))

	listener := &captureRequestListener{}
	env.intake.CreateAccessRequest(context.Background(), request, listener)
	if !listener.ok {
		t.Fatalf("Expected request to succeed, got failure: %s", listener.message)
	}

	saved, _ := env.requests.FindByUsername(context.Background(), "carol")
	if len(saved) != 1 {
		t.Fatalf("Expected a single request above project level, got %d", len(saved))
	}
	if len(saved[0].AccessNode.AccessItems) != 2 {
		t.Errorf("Expected both items on one request, got %d", len(saved[0].AccessNode.AccessItems))
	}
}

func TestCreateAccessRequest_DuplicatePendingRejected(t *testing.T) {
	env := newAccessEnv(viewerUser("dave"))
	existing := pendingRequest("dave", models.RoleProjectViewer, projectNode("proj1"))
	env.requests.Save(context.Background(), existing)

	listener := &captureRequestListener{}
	env.intake.CreateAccessRequest(context.Background(), pendingRequest("dave", models.RoleProjectViewer, projectNode("proj1")), listener)

	if listener.ok {
		t.Fatal("Expected a duplicate pending request to be rejected")
	}
	if listener.message != "Duplicate pending access request" {
		t.Errorf("Unexpected message: %q", listener.message)
	}
	saved, _ := env.requests.FindByUsername(context.Background(), "dave")
	if len(saved) != 1 {
		t.Errorf("Expected no new request to be stored, got %d", len(saved))
	}
}

func TestCreateAccessRequest_RoleChangeUpdatesPendingInPlace(t *testing.T) {
	env := newAccessEnv(viewerUser("erin"))
	existing := pendingRequest("erin", models.RoleProjectViewer, projectNode("proj1"))
	env.requests.Save(context.Background(), existing)

	listener := &captureRequestListener{}
	env.intake.CreateAccessRequest(context.Background(), pendingRequest("erin", models.RoleProjectAdmin, projectNode("proj1")), listener)

	if !listener.ok {
		t.Fatalf("Expected the role change to succeed, got failure: %s", listener.message)
	}
	saved, _ := env.requests.FindByUsername(context.Background(), "erin")
	if len(saved) != 1 {
		t.Fatalf("Expected the pending request to be updated, not duplicated, got %d", len(saved))
	}
	if saved[0].Role != models.RoleProjectAdmin {
		t.Errorf("Expected role updated to %s, got %s", models.RoleProjectAdmin, saved[0].Role)
	}
	if saved[0].ID != existing.ID {
		t.Error("Expected the same request record to be kept")
	}
}

func TestCreateAccessRequest_DifferentPendingBlocks(t *testing.T) {
	env := newAccessEnv(viewerUser("frank"))
	existing := pendingRequest("frank", models.RoleProjectViewer, projectNode("proj1"))
	env.requests.Save(context.Background(), existing)

	listener := &captureRequestListener{}
	env.intake.CreateAccessRequest(context.Background(), pendingRequest("frank", models.RoleProjectViewer, projectNode("proj2")), listener)

	if listener.ok {
		t.Fatal("Expected a second request for different access to be blocked")
	}
	if listener.message != "User already has a pending request for different access" {
		t.Errorf("Unexpected message: %q", listener.message)
	}
}

func TestCreateAccessRequest_AlreadyGrantedRejected(t *testing.T) {
	env := newAccessEnv(viewerUser("gina"))
	approved := pendingRequest("gina", models.RoleProjectViewer, projectNode("proj1"))
	approved.Status = models.StatusApproved
	env.requests.Save(context.Background(), approved)

	listener := &captureRequestListener{}
	env.intake.CreateAccessRequest(context.Background(), pendingRequest("gina", models.RoleProjectViewer, projectNode("proj1")), listener)

	if listener.ok {
		t.Fatal("Expected a request fully covered by an approval to be rejected")
	}
	if listener.message != "Requested access already granted" {
		t.Errorf("Unexpected message: %q", listener.message)
	}
}

func TestCreateAccessRequest_ApprovedItemsFilteredOut(t *testing.T) {
	env := newAccessEnv(viewerUser("hank"))
	approved := pendingRequest("hank", models.RoleProjectViewer, projectNode("proj1"))
	approved.Status = models.StatusApproved
	env.requests.Save(context.Background(), approved)

	listener := &captureRequestListener{}
	env.intake.CreateAccessRequest(context.Background(), pendingRequest("hank", models.RoleProjectViewer, projectNode("proj1", "proj2")), listener)

	if !listener.ok {
		t.Fatalf("Expected the partially new request to succeed, got failure: %s", listener.message)
	}
	pending, _ := env.requests.FindByUsernameAndStatus(context.Background(), "hank", models.StatusPending)
	if len(pending) != 1 {
		t.Fatalf("Expected one pending request, got %d", len(pending))
	}
	if !pending[0].AccessNode.HasItem("proj2") || pending[0].AccessNode.HasItem("proj1") {
		t.Errorf("Expected only the ungranted item to remain, got %v", pending[0].AccessNode.AccessItems)
	}
}

func TestCreateAccessRequest_AutoApprovedImmediately(t *testing.T) {
	env := newAccessEnv(viewerUser("ivy"))
	env.approver.roles[models.RoleProjectViewer] = true

	listener := &captureRequestListener{}
	env.intake.CreateAccessRequest(context.Background(), pendingRequest("ivy", models.RoleProjectViewer, projectNode("proj1")), listener)
	if !listener.ok {
		t.Fatalf("Expected request to succeed, got failure: %s", listener.message)
	}

	approved, _ := env.requests.FindByUsernameAndStatus(context.Background(), "ivy", models.StatusApproved)
	if len(approved) != 1 {
		t.Fatalf("Expected the request to be auto-approved, got %d approved records", len(approved))
	}
	user := env.users.users["ivy"]
	if got := findRoleOfAccessItem(user, models.LevelProject, "proj1"); got != models.RoleProjectViewer {
		t.Errorf("Expected proj1 granted by auto-approval, owner is %q", got)
	}
}

func TestCreateAccessRequest_NoAutoApproveForOtherRoles(t *testing.T) {
	env := newAccessEnv(viewerUser("jay"))
	env.approver.roles[models.RoleProjectViewer] = true

	listener := &captureRequestListener{}
	env.intake.CreateAccessRequest(context.Background(), pendingRequest("jay", models.RoleProjectAdmin, projectNode("proj1")), listener)
	if !listener.ok {
		t.Fatalf("Expected request to succeed, got failure: %s", listener.message)
	}

	pending, _ := env.requests.FindByUsernameAndStatus(context.Background(), "jay", models.StatusPending)
	if len(pending) != 1 {
		t.Errorf("Expected an admin request to stay pending, got %d pending records", len(pending))
	}
}

func TestRejectAccessRequest(t *testing.T) {
	env := newAccessEnv(viewerUser("kim"))
	request := pendingRequest("kim", models.RoleProjectAdmin, projectNode("proj1"))
	env.requests.Save(context.Background(), request)

	decision := &models.AccessRequestDecision{ReviewComments: "scope too broad"}
	listener := &captureGrantListener{}
	env.intake.RejectAccessRequest(context.Background(), request.ID, decision, listener)

	if !listener.ok {
		t.Fatalf("Expected rejection to succeed, got failure: %s", listener.message)
	}
	if request.Status != models.StatusRejected {
		t.Errorf("Expected status %s, got %s", models.StatusRejected, request.Status)
	}
	if request.ReviewComments != "scope too broad" {
		t.Errorf("Expected review comments recorded, got %q", request.ReviewComments)
	}
	// the user's access model is untouched by a rejection
	user := env.users.users["kim"]
	if len(user.ProjectsAccess) != 0 {
		t.Errorf("Expected no access granted on rejection, got %v", user.ProjectsAccess)
	}
	if len(env.notifier.decisions) != 1 || env.notifier.decisions[0].status != models.StatusRejected {
		t.Errorf("Expected one rejection notification, got %v", env.notifier.decisions)
	}
}

func TestRejectAccessRequest_NotFound(t *testing.T) {
	env := newAccessEnv()

	listener := &captureGrantListener{}
	env.intake.RejectAccessRequest(context.Background(), bson.NewObjectID(), nil, listener)

	if listener.ok {
		t.Fatal("Expected rejection of an unknown request to fail")
	}
	if listener.message != "Access request not found" {
		t.Errorf("Unexpected message: %q", listener.message)
	}
}

func TestIsAccessRequestDeletable(t *testing.T) {
	env := newAccessEnv()
	pending := pendingRequest("lena", models.RoleProjectViewer, projectNode("proj1"))
	approved := pendingRequest("lena", models.RoleProjectViewer, projectNode("proj2"))
	approved.Status = models.StatusApproved

	tests := []struct {
		name        string
		request     *models.AccessRequest
		caller      string
		authorities []string
		want        bool
	}{
		{"owner deletes own pending", pending, "lena", nil, true},
		{"stranger cannot delete", pending, "mia", nil, false},
		{"superadmin can delete", pending, "mia", []string{models.RoleSuperAdmin}, true},
		{"approved is immutable", approved, "lena", nil, false},
		{"approved immutable even for superadmin", approved, "mia", []string{models.RoleSuperAdmin}, false},
		{"nil request", nil, "lena", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := env.intake.IsAccessRequestDeletable(tt.request, tt.caller, tt.authorities)
			if got != tt.want {
				t.Errorf("IsAccessRequestDeletable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeleteAccessRequestByID(t *testing.T) {
	env := newAccessEnv()
	request := pendingRequest("nina", models.RoleProjectViewer, projectNode("proj1"))
	env.requests.Save(context.Background(), request)

	// denied: different caller without superadmin, request stays
	deleted, err := env.intake.DeleteAccessRequestByID(context.Background(), request.ID, "stranger", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if deleted {
		t.Error("Expected deletion by a stranger to be a no-op")
	}
	if remaining, _ := env.requests.FindByUsername(context.Background(), "nina"); len(remaining) != 1 {
		t.Fatalf("Expected the request to survive, got %d records", len(remaining))
	}

	// permitted: the owner removes it
	deleted, err = env.intake.DeleteAccessRequestByID(context.Background(), request.ID, "nina", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !deleted {
		t.Error("Expected the owner to delete the pending request")
	}
	if remaining, _ := env.requests.FindByUsername(context.Background(), "nina"); len(remaining) != 0 {
		t.Errorf("Expected no requests left, got %d", len(remaining))
	}
}

func TestGetAccessRequests_StatusFilter(t *testing.T) {
	env := newAccessEnv()
	pending := pendingRequest("olga", models.RoleProjectViewer, projectNode("proj1"))
	env.requests.Save(context.Background(), pending)
	approved := pendingRequest("olga", models.RoleProjectViewer, projectNode("proj2"))
	approved.Status = models.StatusApproved
	env.requests.Save(context.Background(), approved)

	all, err := env.intake.GetAccessRequests(context.Background(), "olga", "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 requests without filter, got %d", len(all))
	}

	onlyPending, err := env.intake.GetAccessRequests(context.Background(), "olga", models.StatusPending)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(onlyPending) != 1 || onlyPending[0].ID != pending.ID {
		t.Errorf("Expected only the pending request, got %d records", len(onlyPending))
	}
}
