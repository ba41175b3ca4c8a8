package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/repository"
	"github.com/vitalapp/clinic-api/internal/repository/memory"
	"github.com/vitalapp/clinic-api/internal/service/user"
	"github.com/vitalapp/clinic-api/pkg/event"
	"github.com/vitalapp/clinic-api/pkg/messaging"
	"github.com/vitalapp/clinic-api/pkg/metrics"
	"github.com/vitalapp/clinic-api/pkg/security"
)

type fixture struct {
	repos    *repository.Repositories
	users    *user.Service
	svc      *Service
	listener *Listener
	metrics  *metrics.Metrics
	broker   *messaging.MemoryBroker
}

// failingNotifications rejects writes for one recipient.
type failingNotifications struct {
	repository.NotificationRepository
	failFor uuid.UUID
}

func (f *failingNotifications) Create(ctx context.Context, n *model.Notification) error {
	if n.RecipientID != nil && *n.RecipientID == f.failFor {
		return errors.New("disk full")
	}
	return f.NotificationRepository.Create(ctx, n)
}

func newFixture(t *testing.T, wrap func(repository.NotificationRepository) repository.NotificationRepository) *fixture {
	t.Helper()
	repos := memory.NewRepositories(memory.NewDB())
	notifications := repos.Notifications
	if wrap != nil {
		notifications = wrap(notifications)
	}
	m := metrics.NewNop()
	broker := messaging.NewMemoryBroker()
	users := user.NewService(repos.Users, security.NewBcryptHasher(bcrypt.MinCost), time.Minute, nil)
	svc := NewService(notifications, repos.Users, Config{Broker: broker}, m, nil)
	return &fixture{
		repos:    repos,
		users:    users,
		svc:      svc,
		listener: NewListener(svc, users, repos.Patients, repos.Users, m, nil),
		metrics:  m,
		broker:   broker,
	}
}

func (f *fixture) addUsers(t *testing.T, names ...string) []*model.User {
	t.Helper()
	out := make([]*model.User, 0, len(names))
	for _, name := range names {
		u, err := f.users.Create(context.Background(), &model.CreateUserRequest{
			Username: name, Email: name + "@clinic.test", Password: "secret1",
		})
		require.NoError(t, err)
		out = append(out, u)
	}
	return out
}

func (f *fixture) all(t *testing.T) []*model.Notification {
	t.Helper()
	out, err := f.svc.List(context.Background())
	require.NoError(t, err)
	return out
}

func triageEvent(severity int) model.TriageCreatedEvent {
	tr := model.Triage{Base: model.Base{ID: uuid.New()}, PatientID: uuid.New(), SeverityLevel: severity}
	return model.TriageCreatedEvent{Triage: tr, PatientID: tr.PatientID, SeverityLevel: severity, Timestamp: time.Now()}
}

func TestOnTriageCreated_LowSeverityWritesNothing(t *testing.T) {
	f := newFixture(t, nil)
	f.addUsers(t, "ana", "beto", "carla", "dario", "elena")
	active, err := f.users.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 5)

	require.NoError(t, f.listener.OnTriageCreated(context.Background(), triageEvent(3)))
	assert.Empty(t, f.all(t))
}

func TestOnTriageCreated_UrgentForEveryActiveUser(t *testing.T) {
	f := newFixture(t, nil)
	users := f.addUsers(t, "ana", "beto", "carla")

	require.NoError(t, f.listener.OnTriageCreated(context.Background(), triageEvent(5)))

	for _, u := range users {
		mine, err := f.svc.ListMine(context.Background(), model.Principal{UserID: u.ID})
		require.NoError(t, err)
		require.Len(t, mine, 1, u.Username)
		assert.Equal(t, model.NotificationPriorityUrgent, mine[0].Priority)
		assert.Equal(t, model.NotificationTypeAlert, mine[0].Type)
		assert.False(t, mine[0].Read)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.NotificationsCreated.WithLabelValues("ALERT", "URGENT")))
}

func TestOnTriageCreated_SkipsInactiveUsers(t *testing.T) {
	f := newFixture(t, nil)
	users := f.addUsers(t, "ana", "beto", "carla")
	inactive := false
	_, err := f.users.Update(context.Background(), users[1].ID, &model.UpdateUserRequest{Active: &inactive})
	require.NoError(t, err)

	require.NoError(t, f.listener.OnTriageCreated(context.Background(), triageEvent(4)))

	got := f.all(t)
	require.Len(t, got, 2)
	for _, n := range got {
		assert.NotEqual(t, users[1].ID, *n.RecipientID)
		assert.Equal(t, model.NotificationPriorityHigh, n.Priority)
	}
}

func TestOnTriageCreated_OneFailingRecipientDoesNotStopOthers(t *testing.T) {
	f := newFixture(t, func(r repository.NotificationRepository) repository.NotificationRepository {
		return &failingNotifications{NotificationRepository: r, failFor: uuid.Nil}
	})
	users := f.addUsers(t, "ana", "beto", "carla")
	target := users[1].ID
	f.svc.repo.(*failingNotifications).failFor = target

	err := f.listener.OnTriageCreated(context.Background(), triageEvent(5))
	assert.ErrorContains(t, err, "disk full")

	got := f.all(t)
	require.Len(t, got, 2)
	for _, n := range got {
		assert.NotEqual(t, target, *n.RecipientID)
	}
}

func TestOnTriageCreated_NoActiveUsers(t *testing.T) {
	f := newFixture(t, nil)
	assert.NoError(t, f.listener.OnTriageCreated(context.Background(), triageEvent(5)))
	assert.Empty(t, f.all(t))
}

func statusEvent(patientID uuid.UUID, old, new model.AppointmentStatus) model.AppointmentStatusChangedEvent {
	a := model.Appointment{Base: model.Base{ID: uuid.New()}, PatientID: patientID, ScheduledAt: time.Now().Add(time.Hour)}
	return model.AppointmentStatusChangedEvent{Appointment: a, OldStatus: old, NewStatus: new, PatientID: patientID}
}

func TestOnAppointmentStatusChanged_DeliversToLinkedUser(t *testing.T) {
	f := newFixture(t, nil)
	portal := f.addUsers(t, "paciente")[0]
	patient := &model.Patient{FullName: "Ana", DocumentNumber: "10001", Active: true, UserID: &portal.ID}
	require.NoError(t, f.repos.Patients.Create(context.Background(), patient))

	ev := statusEvent(patient.ID, model.AppointmentStatusScheduled, model.AppointmentStatusCancelled)
	require.NoError(t, f.listener.OnAppointmentStatusChanged(context.Background(), ev))

	mine, err := f.svc.ListMine(context.Background(), model.Principal{UserID: portal.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Cita Cancelada", mine[0].Title)
	assert.Equal(t, model.NotificationTypeWarning, mine[0].Type)
	assert.Equal(t, model.NotificationPriorityHigh, mine[0].Priority)
	assert.Equal(t, ev.Appointment.ID, *mine[0].RelatedEntityID)
}

func TestOnAppointmentStatusChanged_UnlinkedPatientIsUndeliverable(t *testing.T) {
	f := newFixture(t, nil)
	patient := &model.Patient{FullName: "Ana", DocumentNumber: "10001", Active: true}
	require.NoError(t, f.repos.Patients.Create(context.Background(), patient))

	ev := statusEvent(patient.ID, model.AppointmentStatusScheduled, model.AppointmentStatusConfirmed)
	require.NoError(t, f.listener.OnAppointmentStatusChanged(context.Background(), ev))

	assert.Empty(t, f.all(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.NotificationsUndeliverable.WithLabelValues("APPOINTMENT")))
}

func TestOnAppointmentStatusChanged_CompletedProducesNothing(t *testing.T) {
	f := newFixture(t, nil)
	ev := statusEvent(uuid.New(), model.AppointmentStatusInProgress, model.AppointmentStatusCompleted)
	require.NoError(t, f.listener.OnAppointmentStatusChanged(context.Background(), ev))
	assert.Empty(t, f.all(t))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.NotificationsUndeliverable.WithLabelValues("APPOINTMENT")))
}

func TestOnAppointmentStatusChanged_MissingPatient(t *testing.T) {
	f := newFixture(t, nil)
	ev := statusEvent(uuid.New(), model.AppointmentStatusScheduled, model.AppointmentStatusInProgress)
	assert.NoError(t, f.listener.OnAppointmentStatusChanged(context.Background(), ev))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.NotificationsUndeliverable.WithLabelValues("APPOINTMENT")))
}

func TestRegister_DeliversThroughBus(t *testing.T) {
	f := newFixture(t, nil)
	users := f.addUsers(t, "ana", "beto")

	bus := event.NewBus(event.Config{QueueSize: 8}, nil, f.metrics)
	require.NoError(t, f.listener.Register(bus))

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, triageEvent(5))
	cancel()

	require.NoError(t, bus.Close(context.Background()))
	assert.Len(t, f.all(t), len(users))
}

func TestDeliver_MirrorsToRecipientChannel(t *testing.T) {
	f := newFixture(t, nil)
	u := f.addUsers(t, "ana")[0]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := f.svc.Subscribe(ctx, model.Principal{UserID: u.ID})
	require.NoError(t, err)

	require.NoError(t, f.listener.OnTriageCreated(context.Background(), triageEvent(4)))

	select {
	case payload := <-stream:
		assert.Contains(t, string(payload), "TRIAJE DE ALTA PRIORIDAD")
	case <-time.After(time.Second):
		t.Fatal("notification was not mirrored")
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.NotificationsMirrored.WithLabelValues("ok")))
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *recordingMailer) SendCustom(_ context.Context, to, _ string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return nil
}

func TestDeliver_EmailsUrgentOnly(t *testing.T) {
	repos := memory.NewRepositories(memory.NewDB())
	mailer := &recordingMailer{}
	users := user.NewService(repos.Users, security.NewBcryptHasher(bcrypt.MinCost), time.Minute, nil)
	svc := NewService(repos.Notifications, repos.Users, Config{Mailer: mailer}, nil, nil)
	listener := NewListener(svc, users, repos.Patients, repos.Users, nil, nil)

	_, err := users.Create(context.Background(), &model.CreateUserRequest{Username: "ana", Email: "ana@clinic.test", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, listener.OnTriageCreated(context.Background(), triageEvent(4)))
	assert.Empty(t, mailer.sent)

	require.NoError(t, listener.OnTriageCreated(context.Background(), triageEvent(5)))
	assert.Equal(t, []string{"ana@clinic.test"}, mailer.sent)
}
