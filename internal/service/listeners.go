package service

import (
	"access_service/internal/models"
	"log"
)

// AccessRequestListener receives the outcome of a request submission.
// It is invoked exactly once, synchronously, before the call returns.
type AccessRequestListener interface {
	OnSuccess(request *models.AccessRequest)
	OnFailure(message string)
}

// GrantAccessListener receives the outcome of a grant or reject decision.
// It is invoked exactly once, synchronously, before the call returns.
type GrantAccessListener interface {
	OnSuccess(userInfo *models.UserInfo)
	OnFailure(request *models.AccessRequest, message string)
}

// grantOutcome is the engine's internal result value; listeners are driven
// from it in one place instead of being called from the middle of the
// mutation sequence.
type grantOutcome struct {
	ok       bool
	userInfo *models.UserInfo
	request  *models.AccessRequest
	message  string
}

func (o grantOutcome) dispatch(listener GrantAccessListener) {
	if listener == nil {
		return
	}
	if o.ok {
		listener.OnSuccess(o.userInfo)
		return
	}
	listener.OnFailure(o.request, o.message)
}

type requestOutcome struct {
	ok      bool
	request *models.AccessRequest
	message string
}

func (o requestOutcome) dispatch(listener AccessRequestListener) {
	if listener == nil {
		return
	}
	if o.ok {
		listener.OnSuccess(o.request)
		return
	}
	listener.OnFailure(o.message)
}

// autoApproveListener logs grant outcomes of auto-approved requests.
// Auto-approval failures fall through to manual review and are never
// surfaced to the requester.
type autoApproveListener struct{}

func (autoApproveListener) OnSuccess(userInfo *models.UserInfo) {
	log.Printf("Auto approved access request for user %s", userInfo.Username)
}

func (autoApproveListener) OnFailure(request *models.AccessRequest, message string) {
	if request != nil {
		log.Printf("Auto approval skipped for request %s: %s", request.ID.Hex(), message)
		return
	}
	log.Printf("Auto approval skipped: %s", message)
}
