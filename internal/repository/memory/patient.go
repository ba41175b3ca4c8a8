package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/repository"
	"github.com/vitalapp/clinic-api/internal/search"
)

type patientRepository struct {
	db *DB
}

func NewPatientRepository(db *DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, p := range r.db.patients {
		if p.DocumentNumber == patient.DocumentNumber {
			return repository.ErrDuplicate
		}
	}
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	now := time.Now()
	patient.CreatedAt = now
	patient.UpdatedAt = now
	patient.Version = 1

	r.db.patients[patient.ID] = clone(patient)
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(p), nil
}

func (r *patientRepository) GetByDocumentNumber(ctx context.Context, documentNumber string) (*model.Patient, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, p := range r.db.patients {
		if p.DocumentNumber == documentNumber {
			return clone(p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *patientRepository) ExistsByDocumentNumber(ctx context.Context, documentNumber string) (bool, error) {
	_, err := r.GetByDocumentNumber(ctx, documentNumber)
	if err == repository.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.patients[patient.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Version != patient.Version {
		return repository.ErrVersionConflict
	}
	for id, p := range r.db.patients {
		if id != patient.ID && p.DocumentNumber == patient.DocumentNumber {
			return repository.ErrDuplicate
		}
	}

	patient.Version++
	patient.CreatedAt = current.CreatedAt
	patient.UpdatedAt = time.Now()
	r.db.patients[patient.ID] = clone(patient)
	return nil
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) (*repository.PatientDeleteResult, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.patients[id]; !ok {
		return nil, repository.ErrNotFound
	}

	res := &repository.PatientDeleteResult{}
	for aid, a := range r.db.appointments {
		if a.PatientID == id {
			delete(r.db.appointments, aid)
			res.Appointments++
		}
	}
	for tid, t := range r.db.triages {
		if t.PatientID == id {
			delete(r.db.triages, tid)
			res.Triages++
		}
	}
	delete(r.db.patients, id)
	return res, nil
}

func (r *patientRepository) Find(ctx context.Context, pred search.Predicate, s search.Sort, page search.PageRequest) ([]*model.Patient, int64, error) {
	all, err := r.FindAll(ctx, pred, s)
	if err != nil {
		return nil, 0, err
	}

	total := int64(len(all))
	start := page.Offset()
	if start < 0 || start >= len(all) {
		return []*model.Patient{}, total, nil
	}
	end := start + page.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *patientRepository) FindAll(ctx context.Context, pred search.Predicate, s search.Sort) ([]*model.Patient, error) {
	r.db.mu.RLock()
	matches := make([]*model.Patient, 0, len(r.db.patients))
	for _, p := range r.db.patients {
		if pred.Match(p) {
			matches = append(matches, clone(p))
		}
	}
	r.db.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		c := search.Compare(matches[i], matches[j], s.Field)
		if s.Descending() {
			c = -c
		}
		if c == 0 && s.Field != search.FieldID {
			return search.Compare(matches[i], matches[j], search.FieldID) < 0
		}
		return c < 0
	})
	return matches, nil
}
