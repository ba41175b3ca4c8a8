package triage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/repository"
	apperrors "github.com/vitalapp/clinic-api/pkg/errors"
	"github.com/vitalapp/clinic-api/pkg/event"
	"github.com/vitalapp/clinic-api/pkg/logger"
	"github.com/vitalapp/clinic-api/pkg/validator"
)

const resource = "triage"

type Service struct {
	repo      repository.TriageRepository
	patients  repository.PatientRepository
	publisher event.Publisher
	validate  validator.Validator
	log       *logger.Logger
	now       func() time.Time
}

func NewService(repo repository.TriageRepository, patients repository.PatientRepository, publisher event.Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:      repo,
		patients:  patients,
		publisher: publisher,
		validate:  validator.New(),
		log:       log.With("triage-service"),
		now:       time.Now,
	}
}

// Create stores a PENDING triage recorded by principal and publishes
// TriageCreatedEvent once it is persisted.
func (s *Service) Create(ctx context.Context, principal model.Principal, req *model.CreateTriageRequest) (*model.Triage, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.patients.Get(ctx, req.PatientID); err != nil {
		return nil, repository.MapError("patient", "get", err)
	}

	t := &model.Triage{
		PatientID:         req.PatientID,
		Symptoms:          req.Symptoms,
		BloodPressure:     req.BloodPressure,
		HeartRate:         req.HeartRate,
		Temperature:       req.Temperature,
		OxygenSaturation:  req.OxygenSaturation,
		SeverityLevel:     req.SeverityLevel,
		RecommendedAction: req.RecommendedAction,
		Status:            model.TriageStatusPending,
		Notes:             req.Notes,
	}
	if principal.UserID != uuid.Nil {
		createdBy := principal.UserID
		t.CreatedBy = &createdBy
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, repository.MapError(resource, "create", err)
	}

	s.log.Info("triage created",
		"triage_id", t.ID.String(),
		"patient_id", t.PatientID.String(),
		"severity", t.SeverityLevel)

	s.publisher.Publish(ctx, model.TriageCreatedEvent{
		Triage:        *t,
		PatientID:     t.PatientID,
		SeverityLevel: t.SeverityLevel,
		Timestamp:     s.now(),
	})
	return t, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Triage, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, repository.MapError(resource, "get", err)
	}
	return t, nil
}

func (s *Service) List(ctx context.Context, filters model.TriageFilters) ([]*model.Triage, error) {
	triages, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, repository.MapError(resource, "list", err)
	}
	return triages, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Triage, error) {
	return s.List(ctx, model.TriageFilters{PatientID: &patientID})
}

func (s *Service) ListByStatus(ctx context.Context, status model.TriageStatus) ([]*model.Triage, error) {
	return s.List(ctx, model.TriageFilters{Status: status})
}

// Update edits vitals and notes. It never publishes.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateTriageRequest) (*model.Triage, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, repository.MapError(resource, "get", err)
	}
	if req.Version != nil && *req.Version != t.Version {
		return nil, apperrors.NewConflict(resource, repository.ErrVersionConflict)
	}

	if req.BloodPressure != nil {
		t.BloodPressure = *req.BloodPressure
	}
	if req.HeartRate != nil {
		t.HeartRate = req.HeartRate
	}
	if req.Temperature != nil {
		t.Temperature = req.Temperature
	}
	if req.OxygenSaturation != nil {
		t.OxygenSaturation = req.OxygenSaturation
	}
	if req.RecommendedAction != nil {
		t.RecommendedAction = *req.RecommendedAction
	}
	if req.Notes != nil {
		t.Notes = *req.Notes
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, repository.MapError(resource, "update", err)
	}
	return t, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status model.TriageStatus) (*model.Triage, error) {
	if err := s.validate.Validate(&model.UpdateTriageStatusRequest{Status: status}); err != nil {
		return nil, err
	}

	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, repository.MapError(resource, "get", err)
	}
	if t.Status == status {
		return t, nil
	}

	t.Status = status
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, repository.MapError(resource, "update", err)
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return repository.MapError(resource, "delete", err)
	}
	return nil
}
