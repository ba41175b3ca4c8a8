package notification

import (
	"fmt"

	"github.com/vitalapp/clinic-api/internal/model"
)

const triageAlertTitle = "TRIAJE DE ALTA PRIORIDAD"

// TriagePolicy alerts every active user about high severity triages.
type TriagePolicy struct{}

// Evaluate returns one intent per active user when the severity is at least
// model.HighPrioritySeverity, and nil otherwise.
func (TriagePolicy) Evaluate(t model.Triage, activeUsers []*model.User) []Intent {
	if t.SeverityLevel < model.HighPrioritySeverity {
		return nil
	}

	priority := model.NotificationPriorityHigh
	if t.SeverityLevel >= model.MaxSeverity {
		priority = model.NotificationPriorityUrgent
	}
	msg := fmt.Sprintf("Nuevo triaje con severidad %d para paciente ID: %s", t.SeverityLevel, t.PatientID)

	intents := make([]Intent, 0, len(activeUsers))
	for _, u := range activeUsers {
		if !u.Active {
			continue
		}
		recipient := u.ID
		intents = append(intents, Intent{
			RecipientID:       &recipient,
			Title:             triageAlertTitle,
			Message:           msg,
			Type:              model.NotificationTypeAlert,
			Priority:          priority,
			RelatedEntityType: model.RelatedEntityTriage,
			RelatedEntityID:   t.ID,
		})
	}
	return intents
}
