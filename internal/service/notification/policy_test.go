package notification

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalapp/clinic-api/internal/model"
)

func users(n int, active bool) []*model.User {
	out := make([]*model.User, n)
	for i := range out {
		out[i] = &model.User{Base: model.Base{ID: uuid.New()}, Active: active}
	}
	return out
}

func triageWith(severity int) model.Triage {
	return model.Triage{Base: model.Base{ID: uuid.New()}, PatientID: uuid.New(), SeverityLevel: severity}
}

func TestTriagePolicy_BelowThreshold(t *testing.T) {
	for _, sev := range []int{1, 2, 3} {
		assert.Empty(t, TriagePolicy{}.Evaluate(triageWith(sev), users(5, true)), "severity %d", sev)
	}
}

func TestTriagePolicy_SeverityFiveIsUrgent(t *testing.T) {
	tr := triageWith(5)
	recipients := users(3, true)

	intents := TriagePolicy{}.Evaluate(tr, recipients)
	require.Len(t, intents, 3)
	for i, in := range intents {
		assert.Equal(t, recipients[i].ID, *in.RecipientID)
		assert.Equal(t, model.NotificationTypeAlert, in.Type)
		assert.Equal(t, model.NotificationPriorityUrgent, in.Priority)
		assert.Equal(t, "TRIAJE DE ALTA PRIORIDAD", in.Title)
		assert.Equal(t, "Nuevo triaje con severidad 5 para paciente ID: "+tr.PatientID.String(), in.Message)
		assert.Equal(t, model.RelatedEntityTriage, in.RelatedEntityType)
		assert.Equal(t, tr.ID, in.RelatedEntityID)
	}
}

func TestTriagePolicy_SeverityFourIsHighForActiveOnly(t *testing.T) {
	recipients := append(users(2, true), users(2, false)...)

	intents := TriagePolicy{}.Evaluate(triageWith(4), recipients)
	require.Len(t, intents, 2)
	for _, in := range intents {
		assert.Equal(t, model.NotificationPriorityHigh, in.Priority)
	}
}

func TestTriagePolicy_NoActiveUsers(t *testing.T) {
	assert.Empty(t, TriagePolicy{}.Evaluate(triageWith(5), nil))
}

func TestAppointmentPolicy(t *testing.T) {
	a := model.Appointment{
		Base:        model.Base{ID: uuid.New()},
		ScheduledAt: time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC),
	}

	cases := []struct {
		status   model.AppointmentStatus
		title    string
		message  string
		typ      model.NotificationType
		priority model.NotificationPriority
	}{
		{model.AppointmentStatusConfirmed, "Cita Confirmada", "Tu cita del 2024-07-01T09:30 ha sido confirmada", model.NotificationTypeSuccess, model.NotificationPriorityMedium},
		{model.AppointmentStatusCancelled, "Cita Cancelada", "Tu cita del 2024-07-01T09:30 ha sido cancelada", model.NotificationTypeWarning, model.NotificationPriorityHigh},
		{model.AppointmentStatusInProgress, "Cita en Progreso", "Tu cita está en progreso", model.NotificationTypeInfo, model.NotificationPriorityLow},
	}
	for _, tc := range cases {
		in := AppointmentPolicy{}.Evaluate(a, model.AppointmentStatusScheduled, tc.status)
		require.NotNil(t, in, tc.status)
		assert.Equal(t, tc.title, in.Title)
		assert.Equal(t, tc.message, in.Message)
		assert.Equal(t, tc.typ, in.Type)
		assert.Equal(t, tc.priority, in.Priority)
		assert.Equal(t, model.RelatedEntityAppointment, in.RelatedEntityType)
		assert.Equal(t, a.ID, in.RelatedEntityID)
		assert.Nil(t, in.RecipientID)
	}

	for _, s := range []model.AppointmentStatus{model.AppointmentStatusScheduled, model.AppointmentStatusCompleted, model.AppointmentStatusNoShow} {
		assert.Nil(t, AppointmentPolicy{}.Evaluate(a, model.AppointmentStatusConfirmed, s), s)
	}
}
