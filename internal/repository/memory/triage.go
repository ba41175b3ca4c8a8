package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/repository"
)

type triageRepository struct {
	db *DB
}

func NewTriageRepository(db *DB) repository.TriageRepository {
	return &triageRepository{db: db}
}

func (r *triageRepository) Create(ctx context.Context, triage *model.Triage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.patients[triage.PatientID]; !ok {
		return repository.ErrNotFound
	}
	if triage.ID == uuid.Nil {
		triage.ID = uuid.New()
	}
	now := time.Now()
	triage.CreatedAt = now
	triage.UpdatedAt = now
	triage.Version = 1

	r.db.triages[triage.ID] = clone(triage)
	return nil
}

func (r *triageRepository) Get(ctx context.Context, id uuid.UUID) (*model.Triage, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	t, ok := r.db.triages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(t), nil
}

func (r *triageRepository) Update(ctx context.Context, triage *model.Triage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.triages[triage.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Version != triage.Version {
		return repository.ErrVersionConflict
	}

	triage.Version++
	triage.CreatedAt = current.CreatedAt
	triage.UpdatedAt = time.Now()
	r.db.triages[triage.ID] = clone(triage)
	return nil
}

func (r *triageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.triages[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.triages, id)
	return nil
}

func (r *triageRepository) List(ctx context.Context, filters model.TriageFilters) ([]*model.Triage, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*model.Triage, 0)
	for _, t := range r.db.triages {
		if filters.PatientID != nil && t.PatientID != *filters.PatientID {
			continue
		}
		if filters.Status != "" && t.Status != filters.Status {
			continue
		}
		out = append(out, clone(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
