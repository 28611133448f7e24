package service

import (
	"access_service/internal/models"
	"access_service/internal/repository"
	"context"
	"fmt"
	"log"
	"slices"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// AccessRequestService owns the request lifecycle: intake validation,
// fan-out, auto-approval, rejection and guarded deletion.
type AccessRequestService struct {
	userRepo      UserInfoStore
	requestRepo   AccessRequestStore
	hierarchy     TreeSource
	autoApprove   AutoApprover
	projectAccess *ProjectAccessService
	notifier      RequestNotifier
}

func NewAccessRequestService(hierarchy TreeSource, autoApprove AutoApprover, projectAccess *ProjectAccessService, notifier RequestNotifier) *AccessRequestService {
	return &AccessRequestService{
		userRepo:      repository.Repositories_instance.UserInfoRepository,
		requestRepo:   repository.Repositories_instance.AccessRequestRepository,
		hierarchy:     hierarchy,
		autoApprove:   autoApprove,
		projectAccess: projectAccess,
		notifier:      notifier,
	}
}

func NewAccessRequestServiceWithStores(users UserInfoStore, requests AccessRequestStore, hierarchy TreeSource, autoApprove AutoApprover, projectAccess *ProjectAccessService, notifier RequestNotifier) *AccessRequestService {
	return &AccessRequestService{
		userRepo:      users,
		requestRepo:   requests,
		hierarchy:     hierarchy,
		autoApprove:   autoApprove,
		projectAccess: projectAccess,
		notifier:      notifier,
	}
}

// HandleAccessRequest decides whether a candidate request may be queued at
// all: superadmin requests must carry no scope, and a request for an item
// whose ancestor the user already holds is redundant.
func (s *AccessRequestService) HandleAccessRequest(ctx context.Context, request *models.AccessRequest) (bool, string, error) {
	scoped := request.AccessNode.AccessLevel != "" || len(request.AccessNode.AccessItems) > 0
	if request.Role == models.RoleSuperAdmin {
		if scoped {
			return false, "Superadmin role cannot be combined with project or hierarchy access", nil
		}
		return true, "", nil
	}

	user, err := s.userRepo.FindByUsername(ctx, request.Username)
	if err != nil {
		return false, "", err
	}
	if !hasNonDefaultAccess(user) {
		// new user: nothing held yet, nothing to conflict with
		return true, "", nil
	}

	tree, err := s.hierarchy.ConfigTree(ctx)
	if err != nil {
		return false, "", err
	}

	globalParentMap := tree.ParentMap(request.AccessNode.AccessLevel, request.AccessNode.ItemIDs())
	existingAccessMap := flattenAccess(user)
	if globalParentMap.Overlaps(existingAccessMap) {
		return false, "Already has access to parent level", nil
	}

	return true, "", nil
}

// CreateAccessRequest validates and persists a request, fanning PROJECT
// level requests out to one per item, then runs auto-approval and notifies
// administrators. The listener is invoked exactly once.
func (s *AccessRequestService) CreateAccessRequest(ctx context.Context, request *models.AccessRequest, listener AccessRequestListener) {
	s.createAccessRequest(ctx, request).dispatch(listener)
}

func (s *AccessRequestService) createAccessRequest(ctx context.Context, request *models.AccessRequest) requestOutcome {
	admissible, reason, err := s.HandleAccessRequest(ctx, request)
	if err != nil {
		return requestOutcome{message: fmt.Sprintf("Error validating access request: %s", err)}
	}
	if !admissible {
		return requestOutcome{message: reason}
	}

	existing, err := s.requestRepo.FindByUsername(ctx, request.Username)
	if err != nil {
		return requestOutcome{message: fmt.Sprintf("Error loading existing requests: %s", err)}
	}

	for _, other := range existing {
		if other.Status != models.StatusPending {
			continue
		}
		if sameAccessNode(other.AccessNode, request.AccessNode) {
			if other.Role == request.Role {
				return requestOutcome{message: "Duplicate pending access request"}
			}
			// role change on the pending request, updated in place
			other.Role = request.Role
			saved, err := s.requestRepo.Save(ctx, other)
			if err != nil {
				return requestOutcome{message: fmt.Sprintf("Error updating pending request: %s", err)}
			}
			return requestOutcome{ok: true, request: saved}
		}
		return requestOutcome{message: "User already has a pending request for different access"}
	}

	// items already approved under the requested role need no re-request
	filtered := models.AccessNode{AccessLevel: request.AccessNode.AccessLevel}
	for _, item := range request.AccessNode.AccessItems {
		approved := false
		for _, other := range existing {
			if other.Status == models.StatusApproved && other.Role == request.Role &&
				other.AccessNode.AccessLevel == request.AccessNode.AccessLevel &&
				other.AccessNode.HasItem(item.ItemID) {
				approved = true
				break
			}
		}
		if !approved {
			filtered.AccessItems = append(filtered.AccessItems, item)
		}
	}
	if request.AccessNode.AccessLevel != "" && len(filtered.AccessItems) == 0 {
		return requestOutcome{message: "Requested access already granted"}
	}
	request.AccessNode = filtered

	requests := fanOut(request)
	saved, err := s.requestRepo.SaveAll(ctx, requests)
	if err != nil {
		return requestOutcome{message: fmt.Sprintf("Error saving access request: %s", err)}
	}

	if s.autoApprove != nil && s.autoApprove.IsAutoApproveEnabled(ctx, request.Role) {
		decision := &models.AccessRequestDecision{Status: models.StatusApproved}
		for _, r := range saved {
			s.projectAccess.GrantAccess(ctx, r.ID, decision, autoApproveListener{})
		}
	}

	if s.notifier != nil {
		for _, r := range saved {
			s.notifier.NotifyAccessRequested(ctx, r)
		}
	}

	return requestOutcome{ok: true, request: saved[0]}
}

// fanOut splits a PROJECT level request into one request per item; grants
// at project level are never batched.
func fanOut(request *models.AccessRequest) []*models.AccessRequest {
	request.Status = models.StatusPending
	if request.AccessNode.AccessLevel != models.LevelProject || len(request.AccessNode.AccessItems) <= 1 {
		return []*models.AccessRequest{request}
	}

	requests := make([]*models.AccessRequest, 0, len(request.AccessNode.AccessItems))
	for _, item := range request.AccessNode.AccessItems {
		requests = append(requests, &models.AccessRequest{
			Username: request.Username,
			Role:     request.Role,
			Status:   models.StatusPending,
			AccessNode: models.AccessNode{
				AccessLevel: models.LevelProject,
				AccessItems: []models.AccessItem{item},
			},
		})
	}
	return requests
}

// RejectAccessRequest marks the request REJECTED with the reviewer's
// comment. Success is judged purely by the persisted status.
func (s *AccessRequestService) RejectAccessRequest(ctx context.Context, requestID bson.ObjectID, decision *models.AccessRequestDecision, listener GrantAccessListener) {
	s.rejectAccessRequest(ctx, requestID, decision).dispatch(listener)
}

func (s *AccessRequestService) rejectAccessRequest(ctx context.Context, requestID bson.ObjectID, decision *models.AccessRequestDecision) grantOutcome {
	request, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return grantOutcome{message: fmt.Sprintf("Error loading access request: %s", err)}
	}
	if request == nil {
		return grantOutcome{message: "Access request not found"}
	}

	request.Status = models.StatusRejected
	if decision != nil && decision.ReviewComments != "" {
		request.ReviewComments = decision.ReviewComments
	}

	saved, err := s.requestRepo.Save(ctx, request)
	if err != nil {
		return grantOutcome{request: request, message: fmt.Sprintf("Error saving access request: %s", err)}
	}
	if saved.Status != models.StatusRejected {
		return grantOutcome{request: saved, message: "Access request status was not updated"}
	}

	user, err := s.userRepo.FindByUsername(ctx, saved.Username)
	if err != nil {
		log.Printf("Warning: failed to load user %s after rejection: %v", saved.Username, err)
	}

	if s.projectAccess != nil && s.projectAccess.notifier != nil {
		s.projectAccess.notifier.NotifyAccessDecision(ctx, saved, models.StatusRejected)
	}

	return grantOutcome{ok: true, userInfo: user, request: saved}
}

// IsAccessRequestDeletable permits deletion only of a PENDING request, and
// only by its owner or a superadmin.
func (s *AccessRequestService) IsAccessRequestDeletable(request *models.AccessRequest, callerUsername string, callerAuthorities []string) bool {
	if request == nil || request.Status != models.StatusPending {
		return false
	}
	if request.Username == callerUsername {
		return true
	}
	return slices.Contains(callerAuthorities, models.RoleSuperAdmin)
}

// DeleteAccessRequestByID is a query-then-act no-op when not permitted; it
// reports false instead of failing.
func (s *AccessRequestService) DeleteAccessRequestByID(ctx context.Context, requestID bson.ObjectID, callerUsername string, callerAuthorities []string) (bool, error) {
	request, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return false, err
	}
	if !s.IsAccessRequestDeletable(request, callerUsername, callerAuthorities) {
		log.Printf("Access request %s is not deletable by %s", requestID.Hex(), callerUsername)
		return false, nil
	}
	if err := s.requestRepo.DeleteByID(ctx, requestID); err != nil {
		return false, err
	}
	return true, nil
}

// GetAccessRequests lists a user's requests, optionally filtered by status.
func (s *AccessRequestService) GetAccessRequests(ctx context.Context, username, status string) ([]*models.AccessRequest, error) {
	if status != "" {
		return s.requestRepo.FindByUsernameAndStatus(ctx, username, status)
	}
	return s.requestRepo.FindByUsername(ctx, username)
}

func sameAccessNode(a, b models.AccessNode) bool {
	if a.AccessLevel != b.AccessLevel || len(a.AccessItems) != len(b.AccessItems) {
		return false
	}
	for _, item := range a.AccessItems {
		if !b.HasItem(item.ItemID) {
			return false
		}
	}
	return true
}
