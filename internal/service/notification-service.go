package service

import (
	"access_service/internal/config"
	"access_service/internal/events"
	"access_service/internal/models"
	"context"
	"fmt"
	"log"
	"os"
)

// NotificationService composes admin notification events and hands them to
// the publisher. Dispatch is best effort: a failed publish or hostname
// lookup is logged and the triggering operation proceeds.
type NotificationService struct {
	publisher  events.Publisher
	recipients []string
	enabled    bool
}

func NewNotificationService(publisher events.Publisher) *NotificationService {
	return &NotificationService{
		publisher:  publisher,
		recipients: config.ServiceConfig.AdminEmails,
		enabled:    config.ServiceConfig.NotificationOn,
	}
}

func (s *NotificationService) NotifyAccessRequested(ctx context.Context, request *models.AccessRequest) {
	if !s.enabled {
		return
	}

	event := events.NewAccessNotificationEvent(events.AccessRequested)
	event.Username = request.Username
	event.Role = request.Role
	event.AccessLevel = request.AccessNode.AccessLevel
	event.Items = request.AccessNode.ItemIDs()
	event.Status = request.Status
	event.Recipients = s.recipients
	event.Subject = fmt.Sprintf("New access request from %s", request.Username)
	event.ServerHost = serverHost()
	event.NotificationKey = "Access_Request_Status"
	event.Topic = "access-request"

	if err := s.publisher.PublishAccessEvent(ctx, event); err != nil {
		log.Printf("Warning: failed to publish access requested event: %v", err)
	}
}

func (s *NotificationService) NotifyAccessDecision(ctx context.Context, request *models.AccessRequest, status string) {
	if !s.enabled {
		return
	}

	eventType := events.AccessGranted
	if status == models.StatusRejected {
		eventType = events.AccessRejected
	}

	event := events.NewAccessNotificationEvent(eventType)
	event.Username = request.Username
	event.Role = request.Role
	event.AccessLevel = request.AccessNode.AccessLevel
	event.Items = request.AccessNode.ItemIDs()
	event.Status = status
	event.ReviewComments = request.ReviewComments
	event.Recipients = s.recipients
	event.Subject = fmt.Sprintf("Access request %s for %s", status, request.Username)
	event.ServerHost = serverHost()
	event.NotificationKey = "Access_Request_Decision"
	event.Topic = "access-request"

	if err := s.publisher.PublishAccessEvent(ctx, event); err != nil {
		log.Printf("Warning: failed to publish access decision event: %v", err)
	}
}

// serverHost resolves the host for mail templates; resolution failure is
// logged and the notification proceeds with an empty host.
func serverHost() string {
	host, err := os.Hostname()
	if err != nil {
		log.Printf("Warning: failed to resolve server hostname: %v", err)
		return ""
	}
	return host
}
