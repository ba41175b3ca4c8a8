package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/repository"
	"github.com/vitalapp/clinic-api/pkg/event"
	"github.com/vitalapp/clinic-api/pkg/logger"
	"github.com/vitalapp/clinic-api/pkg/metrics"
)

// Listener names as they appear in logs and metrics.
const (
	TriageListenerName           = "triage-notifications"
	AppointmentListenerName      = "appointment-notifications"
	AppointmentCreatedLoggerName = "appointment-created-log"
)

// ActiveUsers lists the staff that receives triage alerts.
type ActiveUsers interface {
	ListActive(ctx context.Context) ([]*model.User, error)
}

// Listener turns domain events into stored notifications.
type Listener struct {
	notifications *Service
	activeUsers   ActiveUsers
	patients      repository.PatientRepository
	users         repository.UserRepository
	triage        TriagePolicy
	appointment   AppointmentPolicy
	metrics       *metrics.Metrics
	log           *logger.Logger
}

func NewListener(notifications *Service, activeUsers ActiveUsers, patients repository.PatientRepository, users repository.UserRepository, m *metrics.Metrics, log *logger.Logger) *Listener {
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Listener{
		notifications: notifications,
		activeUsers:   activeUsers,
		patients:      patients,
		users:         users,
		metrics:       m,
		log:           log.With("notification-listener"),
	}
}

// Subscriber is the registration side of the event bus.
type Subscriber interface {
	Subscribe(t event.EventType, name string, h event.Handler) error
}

// Register subscribes the listener methods to their event types.
func (l *Listener) Register(bus Subscriber) error {
	subs := []struct {
		eventType event.EventType
		name      string
		handler   event.Handler
	}{
		{model.EventTriageCreated, TriageListenerName, func(ctx context.Context, e event.Event) error {
			ev, ok := e.(model.TriageCreatedEvent)
			if !ok {
				return fmt.Errorf("unexpected event %T", e)
			}
			return l.OnTriageCreated(ctx, ev)
		}},
		{model.EventAppointmentStatusChanged, AppointmentListenerName, func(ctx context.Context, e event.Event) error {
			ev, ok := e.(model.AppointmentStatusChangedEvent)
			if !ok {
				return fmt.Errorf("unexpected event %T", e)
			}
			return l.OnAppointmentStatusChanged(ctx, ev)
		}},
		{model.EventAppointmentCreated, AppointmentCreatedLoggerName, func(ctx context.Context, e event.Event) error {
			ev, ok := e.(model.AppointmentCreatedEvent)
			if !ok {
				return fmt.Errorf("unexpected event %T", e)
			}
			return l.OnAppointmentCreated(ctx, ev)
		}},
	}

	for _, s := range subs {
		if err := bus.Subscribe(s.eventType, s.name, s.handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", s.name, err)
		}
	}
	return nil
}

// OnTriageCreated alerts every active user about a high severity triage.
// Each recipient is written separately; one failure does not stop the rest.
func (l *Listener) OnTriageCreated(ctx context.Context, ev model.TriageCreatedEvent) error {
	if ev.SeverityLevel < model.HighPrioritySeverity {
		l.log.Debug("triage below alert threshold", "triage_id", ev.Triage.ID.String(), "severity", ev.SeverityLevel)
		return nil
	}

	users, err := l.activeUsers.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("load active users: %w", err)
	}

	intents := l.triage.Evaluate(ev.Triage, users)
	if len(intents) == 0 {
		l.log.Warn("high priority triage has no active recipients",
			"triage_id", ev.Triage.ID.String(), "severity", ev.SeverityLevel)
		return nil
	}

	var errs []error
	delivered := 0
	for _, intent := range intents {
		if _, err := l.notifications.Deliver(ctx, intent); err != nil {
			l.log.Error(err, "failed to notify recipient",
				"triage_id", ev.Triage.ID.String(), "recipient_id", intent.RecipientID.String())
			errs = append(errs, err)
			continue
		}
		delivered++
	}

	l.log.Info("triage alert sent",
		"triage_id", ev.Triage.ID.String(),
		"severity", ev.SeverityLevel,
		"delivered", delivered,
		"failed", len(errs))
	return errors.Join(errs...)
}

// OnAppointmentStatusChanged notifies the patient's linked portal user.
// Without an active linked user the intent is counted as undeliverable.
func (l *Listener) OnAppointmentStatusChanged(ctx context.Context, ev model.AppointmentStatusChangedEvent) error {
	intent := l.appointment.Evaluate(ev.Appointment, ev.OldStatus, ev.NewStatus)
	if intent == nil {
		return nil
	}

	patient, err := l.patients.Get(ctx, ev.PatientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			l.log.Warn("appointment patient not found", "appointment_id", ev.Appointment.ID.String(), "patient_id", ev.PatientID.String())
			l.undeliverable(intent)
			return nil
		}
		return fmt.Errorf("load patient: %w", err)
	}

	if patient.UserID == nil {
		l.undeliverable(intent)
		return nil
	}
	u, err := l.users.Get(ctx, *patient.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("load linked user: %w", err)
	}
	if err != nil || !u.Active {
		l.undeliverable(intent)
		return nil
	}

	recipient := u.ID
	intent.RecipientID = &recipient
	if _, err := l.notifications.Deliver(ctx, *intent); err != nil {
		return err
	}

	l.log.Info("appointment notification sent",
		"appointment_id", ev.Appointment.ID.String(),
		"old_status", string(ev.OldStatus),
		"new_status", string(ev.NewStatus),
		"recipient_id", recipient.String())
	return nil
}

func (l *Listener) undeliverable(intent *Intent) {
	l.metrics.NotificationsUndeliverable.WithLabelValues(string(intent.RelatedEntityType)).Inc()
	l.log.Info("notification prepared but not delivered",
		"title", intent.Title,
		"related_entity_type", string(intent.RelatedEntityType),
		"related_entity_id", intent.RelatedEntityID.String())
}

func (l *Listener) OnAppointmentCreated(_ context.Context, ev model.AppointmentCreatedEvent) error {
	l.log.Info("appointment booked",
		"appointment_id", ev.Appointment.ID.String(),
		"patient_id", ev.PatientID.String(),
		"scheduled_at", ev.Appointment.ScheduledAt)
	return nil
}
