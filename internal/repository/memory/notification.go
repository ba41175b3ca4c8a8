package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/repository"
)

type notificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	r.db.notifications[n.ID] = clone(n)
	return nil
}

func (r *notificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	n, ok := r.db.notifications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(n), nil
}

func (r *notificationRepository) Update(ctx context.Context, n *model.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.notifications[n.ID]; !ok {
		return repository.ErrNotFound
	}
	r.db.notifications[n.ID] = clone(n)
	return nil
}

func (r *notificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.notifications[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.notifications, id)
	return nil
}

func (r *notificationRepository) List(ctx context.Context, filters model.NotificationFilters) ([]*model.Notification, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*model.Notification, 0)
	for _, n := range r.db.notifications {
		if filters.RecipientID != nil && (n.RecipientID == nil || *n.RecipientID != *filters.RecipientID) {
			continue
		}
		if filters.UnreadOnly && n.Read {
			continue
		}
		out = append(out, clone(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	unread, err := r.List(ctx, model.NotificationFilters{RecipientID: &recipientID, UnreadOnly: true})
	if err != nil {
		return 0, err
	}
	return int64(len(unread)), nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) (*model.Notification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	n, ok := r.db.notifications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	n.Read = true
	if n.ReadAt == nil {
		n.ReadAt = &at
	}
	return clone(n), nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, at time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var count int64
	for _, n := range r.db.notifications {
		if n.Read || n.RecipientID == nil || *n.RecipientID != recipientID {
			continue
		}
		readAt := at
		n.Read = true
		n.ReadAt = &readAt
		count++
	}
	return count, nil
}

func (r *notificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var count int64
	for id, n := range r.db.notifications {
		if n.Expired(now) {
			delete(r.db.notifications, id)
			count++
		}
	}
	return count, nil
}
