package triage

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/repository/memory"
	apperrors "github.com/vitalapp/clinic-api/pkg/errors"
	"github.com/vitalapp/clinic-api/pkg/event"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func setup(t *testing.T) (*Service, *recordingPublisher, *model.Patient) {
	t.Helper()
	repos := memory.NewRepositories(memory.NewDB())
	pub := &recordingPublisher{}
	patient := &model.Patient{FullName: "Ana Gomez", DocumentNumber: "10001", Gender: model.GenderFemale, Active: true}
	require.NoError(t, repos.Patients.Create(context.Background(), patient))
	return NewService(repos.Triages, repos.Patients, pub, nil), pub, patient
}

func validRequest(patientID uuid.UUID, severity int) *model.CreateTriageRequest {
	hr := 90
	return &model.CreateTriageRequest{
		PatientID:         patientID,
		Symptoms:          "dolor toracico",
		BloodPressure:     "140/90",
		HeartRate:         &hr,
		SeverityLevel:     severity,
		RecommendedAction: "ECG inmediato",
	}
}

func TestCreate_PublishesOnce(t *testing.T) {
	svc, pub, patient := setup(t)
	principal := model.Principal{UserID: uuid.New(), Username: "nurse"}

	tr, err := svc.Create(context.Background(), principal, validRequest(patient.ID, 5))
	require.NoError(t, err)
	assert.Equal(t, model.TriageStatusPending, tr.Status)
	require.NotNil(t, tr.CreatedBy)
	assert.Equal(t, principal.UserID, *tr.CreatedBy)

	require.Len(t, pub.events, 1)
	ev, ok := pub.events[0].(model.TriageCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, tr.ID, ev.Triage.ID)
	assert.Equal(t, patient.ID, ev.PatientID)
	assert.Equal(t, 5, ev.SeverityLevel)
}

func TestCreate_InvalidRequestPublishesNothing(t *testing.T) {
	svc, pub, patient := setup(t)
	req := validRequest(patient.ID, 6)
	req.BloodPressure = "high"

	_, err := svc.Create(context.Background(), model.Principal{}, req)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Details, "severityLevel")
	assert.Contains(t, appErr.Details, "bloodPressure")
	assert.Empty(t, pub.events)
}

func TestCreate_UnknownPatient(t *testing.T) {
	svc, pub, _ := setup(t)
	_, err := svc.Create(context.Background(), model.Principal{}, validRequest(uuid.New(), 3))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
	assert.Empty(t, pub.events)
}

func TestUpdateAndStatus_DoNotPublish(t *testing.T) {
	svc, pub, patient := setup(t)
	ctx := context.Background()
	tr, err := svc.Create(ctx, model.Principal{}, validRequest(patient.ID, 2))
	require.NoError(t, err)

	notes := "estable"
	updated, err := svc.Update(ctx, tr.ID, &model.UpdateTriageRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "estable", updated.Notes)

	done, err := svc.UpdateStatus(ctx, tr.ID, model.TriageStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.TriageStatusCompleted, done.Status)

	assert.Len(t, pub.events, 1)

	_, err = svc.UpdateStatus(ctx, tr.ID, "DONE")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrValidation))
}

func TestListByPatientAndStatus(t *testing.T) {
	svc, _, patient := setup(t)
	ctx := context.Background()
	first, err := svc.Create(ctx, model.Principal{}, validRequest(patient.ID, 2))
	require.NoError(t, err)
	_, err = svc.Create(ctx, model.Principal{}, validRequest(patient.ID, 3))
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, first.ID, model.TriageStatusInProgress)
	require.NoError(t, err)

	byPatient, err := svc.ListByPatient(ctx, patient.ID)
	require.NoError(t, err)
	assert.Len(t, byPatient, 2)

	inProgress, err := svc.ListByStatus(ctx, model.TriageStatusInProgress)
	require.NoError(t, err)
	require.Len(t, inProgress, 1)
	assert.Equal(t, first.ID, inProgress[0].ID)

	require.NoError(t, svc.Delete(ctx, first.ID))
	assert.True(t, apperrors.HasCode(svc.Delete(ctx, first.ID), apperrors.ErrNotFound))
}
