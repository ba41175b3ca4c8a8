package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "INFO"
	NotificationTypeSuccess NotificationType = "SUCCESS"
	NotificationTypeWarning NotificationType = "WARNING"
	NotificationTypeAlert   NotificationType = "ALERT"
)

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "LOW"
	NotificationPriorityMedium NotificationPriority = "MEDIUM"
	NotificationPriorityHigh   NotificationPriority = "HIGH"
	NotificationPriorityUrgent NotificationPriority = "URGENT"
)

type RelatedEntityType string

const (
	RelatedEntityTriage      RelatedEntityType = "TRIAGE"
	RelatedEntityAppointment RelatedEntityType = "APPOINTMENT"
)

type Notification struct {
	ID                uuid.UUID            `json:"id" db:"id"`
	RecipientID       *uuid.UUID           `json:"recipientId,omitempty" db:"recipient_id"`
	Title             string               `json:"title" db:"title"`
	Message           string               `json:"message" db:"message"`
	Type              NotificationType     `json:"type" db:"type"`
	Priority          NotificationPriority `json:"priority" db:"priority"`
	Read              bool                 `json:"read" db:"read"`
	ReadAt            *time.Time           `json:"readAt,omitempty" db:"read_at"`
	RelatedEntityType RelatedEntityType    `json:"relatedEntityType,omitempty" db:"related_entity_type"`
	RelatedEntityID   *uuid.UUID           `json:"relatedEntityId,omitempty" db:"related_entity_id"`
	CreatedAt         time.Time            `json:"createdAt" db:"created_at"`
	ExpiresAt         *time.Time           `json:"expiresAt,omitempty" db:"expires_at"`
}

// Expired reports whether the notification is past its expiry at now.
func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && n.ExpiresAt.Before(now)
}

type CreateNotificationRequest struct {
	RecipientID uuid.UUID            `json:"recipientId" binding:"required"`
	Title       string               `json:"title" binding:"required,max=200"`
	Message     string               `json:"message" binding:"required,max=1000"`
	Type        NotificationType     `json:"type" binding:"required,oneof=INFO SUCCESS WARNING ALERT"`
	Priority    NotificationPriority `json:"priority" binding:"required,oneof=LOW MEDIUM HIGH URGENT"`
	ExpiresAt   *time.Time           `json:"expiresAt"`
}

type UpdateNotificationRequest struct {
	Title   *string `json:"title" binding:"omitempty,max=200"`
	Message *string `json:"message" binding:"omitempty,max=1000"`
}

// NotificationFilters narrows notification listings. Zero values match everything.
type NotificationFilters struct {
	RecipientID *uuid.UUID
	UnreadOnly  bool
}

type UnreadCount struct {
	Count int64 `json:"count"`
}
