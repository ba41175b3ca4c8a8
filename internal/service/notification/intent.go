package notification

import (
	"time"

	"github.com/google/uuid"

	"github.com/vitalapp/clinic-api/internal/model"
)

// Intent is a notification a policy decided to send, before it is stored.
// RecipientID is nil until a recipient has been resolved.
type Intent struct {
	RecipientID       *uuid.UUID
	Title             string
	Message           string
	Type              model.NotificationType
	Priority          model.NotificationPriority
	RelatedEntityType model.RelatedEntityType
	RelatedEntityID   uuid.UUID
}

// Notification renders the intent as an unread notification created at now.
func (i Intent) Notification(now time.Time) *model.Notification {
	related := i.RelatedEntityID
	return &model.Notification{
		RecipientID:       i.RecipientID,
		Title:             i.Title,
		Message:           i.Message,
		Type:              i.Type,
		Priority:          i.Priority,
		RelatedEntityType: i.RelatedEntityType,
		RelatedEntityID:   &related,
		CreatedAt:         now,
	}
}
