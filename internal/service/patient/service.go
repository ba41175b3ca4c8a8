package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/repository"
	"github.com/vitalapp/clinic-api/internal/search"
	apperrors "github.com/vitalapp/clinic-api/pkg/errors"
	"github.com/vitalapp/clinic-api/pkg/logger"
	"github.com/vitalapp/clinic-api/pkg/validator"
)

const resource = "patient"

type Service struct {
	repo     repository.PatientRepository
	users    repository.UserRepository
	validate validator.Validator
	log      *logger.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now for age computation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo repository.PatientRepository, users repository.UserRepository, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		repo:     repo,
		users:    users,
		validate: validator.New(),
		log:      log.With("patient-service"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchPage returns one page of patient summaries matching q.
func (s *Service) FetchPage(ctx context.Context, q search.PatientQuery) (search.Page[model.PatientSummary], error) {
	pageReq, err := search.NewPageRequest(q.Page, q.Size)
	if err != nil {
		return search.Page[model.PatientSummary]{}, err
	}

	sort := search.NewSort(q.SortBy, q.SortDirection)
	pred := search.FromFilter(q.Filter)

	records, total, err := s.repo.Find(ctx, pred, sort, pageReq)
	if err != nil {
		return search.Page[model.PatientSummary]{}, repository.MapError(resource, "search", err)
	}

	now := s.now()
	content := make([]model.PatientSummary, 0, len(records))
	for _, p := range records {
		content = append(content, p.Summary(now))
	}
	return search.NewPage(content, pageReq, total), nil
}

func (s *Service) Create(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByDocumentNumber(ctx, req.DocumentNumber)
	if err != nil {
		return nil, repository.MapError(resource, "check", err)
	}
	if exists {
		return nil, apperrors.NewDuplicate(
			fmt.Sprintf("patient with document number %s already exists", req.DocumentNumber), nil)
	}
	if err := s.checkUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	p := &model.Patient{
		FullName:         strings.TrimSpace(req.FullName),
		DocumentNumber:   req.DocumentNumber,
		BirthDate:        req.BirthDate,
		Phone:            req.Phone,
		Address:          req.Address,
		Gender:           req.Gender,
		EmergencyContact: req.EmergencyContact,
		EmergencyPhone:   req.EmergencyPhone,
		Active:           true,
		UserID:           req.UserID,
	}
	p.Age = p.AgeAt(s.now())

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, repository.MapError(resource, "create", err)
	}

	s.log.Info("patient created", "patient_id", p.ID.String())
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, repository.MapError(resource, "get", err)
	}
	p.Age = p.AgeAt(s.now())
	return p, nil
}

func (s *Service) GetByDocumentNumber(ctx context.Context, documentNumber string) (*model.Patient, error) {
	p, err := s.repo.GetByDocumentNumber(ctx, documentNumber)
	if err != nil {
		return nil, repository.MapError(resource, "get", err)
	}
	p.Age = p.AgeAt(s.now())
	return p, nil
}

// SearchByName matches fullName case-insensitively, ordered by name.
func (s *Service) SearchByName(ctx context.Context, name string) ([]model.PatientSummary, error) {
	pred := search.NewPatientPredicate().FullName(name).Build()
	return s.findAll(ctx, pred, search.NewSort(string(search.FieldFullName), string(search.Asc)))
}

func (s *Service) ListActive(ctx context.Context) ([]model.PatientSummary, error) {
	active := true
	pred := search.NewPatientPredicate().Active(&active).Build()
	return s.findAll(ctx, pred, search.NewSort(string(search.FieldFullName), string(search.Asc)))
}

func (s *Service) findAll(ctx context.Context, pred search.Predicate, sort search.Sort) ([]model.PatientSummary, error) {
	records, err := s.repo.FindAll(ctx, pred, sort)
	if err != nil {
		return nil, repository.MapError(resource, "list", err)
	}
	now := s.now()
	out := make([]model.PatientSummary, 0, len(records))
	for _, p := range records {
		out = append(out, p.Summary(now))
	}
	return out, nil
}

// Update applies the set fields of req. The document number is immutable.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, repository.MapError(resource, "get", err)
	}
	if req.Version != nil && *req.Version != p.Version {
		return nil, apperrors.NewConflict(resource, repository.ErrVersionConflict)
	}

	if req.FullName != nil {
		p.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.BirthDate != nil {
		p.BirthDate = req.BirthDate
	}
	if req.Phone != nil {
		p.Phone = *req.Phone
	}
	if req.Address != nil {
		p.Address = *req.Address
	}
	if req.Gender != nil {
		p.Gender = *req.Gender
	}
	if req.EmergencyContact != nil {
		p.EmergencyContact = *req.EmergencyContact
	}
	if req.EmergencyPhone != nil {
		p.EmergencyPhone = *req.EmergencyPhone
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	if req.UserID != nil {
		if err := s.checkUser(ctx, req.UserID); err != nil {
			return nil, err
		}
		p.UserID = req.UserID
	}
	p.Age = p.AgeAt(s.now())

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, repository.MapError(resource, "update", err)
	}
	return p, nil
}

// Deactivate marks the patient inactive. Inactive patients keep their
// document number reserved.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, repository.MapError(resource, "get", err)
	}
	if !p.Active {
		return p, nil
	}
	p.Active = false
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, repository.MapError(resource, "deactivate", err)
	}

	s.log.Info("patient deactivated", "patient_id", id.String())
	return p, nil
}

// Delete removes the patient together with its appointments and triages.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.repo.Delete(ctx, id)
	if err != nil {
		return repository.MapError(resource, "delete", err)
	}

	s.log.Info("patient deleted",
		"patient_id", id.String(),
		"appointments_deleted", res.Appointments,
		"triages_deleted", res.Triages)
	return nil
}

func (s *Service) checkUser(ctx context.Context, userID *uuid.UUID) error {
	if userID == nil || s.users == nil {
		return nil
	}
	if _, err := s.users.Get(ctx, *userID); err != nil {
		return repository.MapError("user", "get", err)
	}
	return nil
}
