package events

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"
)

type EventType string

const (
	// AccessRequested is published when a new access request awaits review
	AccessRequested EventType = "access.requested"
	// AccessGranted is published when an administrator approves a request
	AccessGranted EventType = "access.granted"
	// AccessRejected is published when an administrator rejects a request
	AccessRejected EventType = "access.rejected"
	// UserDeleted is consumed when the auth service removes an account
	UserDeleted EventType = "user.deleted"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Version   string    `json:"version"`
}

// AccessNotificationEvent carries everything the notification consumer
// needs to render and send an email: recipients, subject, template fields
// and the routing topic.
type AccessNotificationEvent struct {
	BaseEvent
	Username        string   `json:"username"`
	Role            string   `json:"role"`
	AccessLevel     string   `json:"access_level"`
	Items           []string `json:"items"`
	Status          string   `json:"status"`
	ReviewComments  string   `json:"review_comments,omitempty"`
	Recipients      []string `json:"recipients"`
	Subject         string   `json:"subject"`
	ServerHost      string   `json:"server_host"`
	NotificationKey string   `json:"notification_key"`
	Topic           string   `json:"topic"`
}

func NewAccessNotificationEvent(eventType EventType) *AccessNotificationEvent {
	return &AccessNotificationEvent{
		BaseEvent: BaseEvent{
			ID:        generateEventID(),
			Type:      eventType,
			Timestamp: time.Now().Unix(),
			Version:   "1.0",
		},
	}
}

func (e *AccessNotificationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

type UserDeletedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// generateEventID generates a unique ID for an event
func generateEventID() string {
	suffix := make([]byte, 3)
	rand.Read(suffix)
	return time.Now().Format("20060102150405") + "-" + hex.EncodeToString(suffix)
}
