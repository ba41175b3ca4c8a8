package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vitalapp/clinic-api/internal/email"
	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/repository"
	"github.com/vitalapp/clinic-api/pkg/circuitbreaker"
	apperrors "github.com/vitalapp/clinic-api/pkg/errors"
	"github.com/vitalapp/clinic-api/pkg/logger"
	"github.com/vitalapp/clinic-api/pkg/messaging"
	"github.com/vitalapp/clinic-api/pkg/metrics"
	"github.com/vitalapp/clinic-api/pkg/validator"
)

const resource = "notification"

// ErrStreamUnavailable is returned by Subscribe when no broker is configured.
var ErrStreamUnavailable = errors.New("notification stream is not configured")

// Config wires the optional delivery channels. A nil Broker disables
// mirroring; a nil Mailer disables email.
type Config struct {
	Broker        messaging.Broker
	Mailer        email.Service
	MailBreaker   *circuitbreaker.CircuitBreaker
	ChannelPrefix string
}

type Service struct {
	repo     repository.NotificationRepository
	users    repository.UserRepository
	cfg      Config
	validate validator.Validator
	metrics  *metrics.Metrics
	log      *logger.Logger
	now      func() time.Time
}

func NewService(repo repository.NotificationRepository, users repository.UserRepository, cfg Config, m *metrics.Metrics, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	if cfg.Mailer != nil && cfg.MailBreaker == nil {
		cfg.MailBreaker = circuitbreaker.New(circuitbreaker.DefaultConfig("smtp"), log)
	}
	return &Service{
		repo:     repo,
		users:    users,
		cfg:      cfg,
		validate: validator.New(),
		metrics:  m,
		log:      log.With("notification-service"),
		now:      time.Now,
	}
}

// Deliver persists the intent and fans it out to the optional channels.
// Only the persist step can fail the call.
func (s *Service) Deliver(ctx context.Context, intent Intent) (*model.Notification, error) {
	n := intent.Notification(s.now())
	if err := s.store(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) Create(ctx context.Context, req *model.CreateNotificationRequest) (*model.Notification, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.users.Get(ctx, req.RecipientID); err != nil {
		return nil, repository.MapError("recipient", "get", err)
	}

	recipient := req.RecipientID
	n := &model.Notification{
		RecipientID: &recipient,
		Title:       req.Title,
		Message:     req.Message,
		Type:        req.Type,
		Priority:    req.Priority,
		CreatedAt:   s.now(),
		ExpiresAt:   req.ExpiresAt,
	}
	if err := s.store(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) store(ctx context.Context, n *model.Notification) error {
	if err := s.repo.Create(ctx, n); err != nil {
		return repository.MapError(resource, "create", err)
	}
	s.metrics.NotificationsCreated.WithLabelValues(string(n.Type), string(n.Priority)).Inc()

	s.mirror(ctx, n)
	if n.Priority == model.NotificationPriorityUrgent {
		s.mail(ctx, n)
	}
	return nil
}

func (s *Service) mirror(ctx context.Context, n *model.Notification) {
	if s.cfg.Broker == nil || n.RecipientID == nil {
		return
	}
	channel := messaging.NotificationChannel(s.cfg.ChannelPrefix, n.RecipientID.String())
	if err := s.cfg.Broker.Publish(ctx, channel, n); err != nil {
		s.metrics.NotificationsMirrored.WithLabelValues("failed").Inc()
		s.log.Error(err, "failed to mirror notification", "notification_id", n.ID.String(), "channel", channel)
		return
	}
	s.metrics.NotificationsMirrored.WithLabelValues("ok").Inc()
}

func (s *Service) mail(ctx context.Context, n *model.Notification) {
	if s.cfg.Mailer == nil || n.RecipientID == nil {
		return
	}
	u, err := s.users.Get(ctx, *n.RecipientID)
	if err != nil {
		s.log.Error(err, "failed to load recipient for email", "notification_id", n.ID.String())
		return
	}

	err = s.cfg.MailBreaker.Execute(ctx, func(ctx context.Context) error {
		return s.cfg.Mailer.SendCustom(ctx, u.Email, n.Title, n.Message)
	})
	if err != nil {
		s.metrics.EmailsSent.WithLabelValues("failed").Inc()
		s.log.Error(err, "failed to email notification", "notification_id", n.ID.String())
		return
	}
	s.metrics.EmailsSent.WithLabelValues("ok").Inc()
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, repository.MapError(resource, "get", err)
	}
	return n, nil
}

func (s *Service) List(ctx context.Context) ([]*model.Notification, error) {
	return s.list(ctx, model.NotificationFilters{})
}

func (s *Service) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*model.Notification, error) {
	return s.list(ctx, model.NotificationFilters{RecipientID: &recipientID})
}

func (s *Service) ListUnread(ctx context.Context, recipientID uuid.UUID) ([]*model.Notification, error) {
	return s.list(ctx, model.NotificationFilters{RecipientID: &recipientID, UnreadOnly: true})
}

func (s *Service) list(ctx context.Context, filters model.NotificationFilters) ([]*model.Notification, error) {
	out, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, repository.MapError(resource, "list", err)
	}
	return out, nil
}

func (s *Service) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	n, err := s.repo.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, repository.MapError(resource, "count", err)
	}
	return n, nil
}

// ListMine returns the principal's unread notifications, newest first.
func (s *Service) ListMine(ctx context.Context, principal model.Principal) ([]*model.Notification, error) {
	return s.ListUnread(ctx, principal.UserID)
}

func (s *Service) CountMine(ctx context.Context, principal model.Principal) (int64, error) {
	return s.CountUnread(ctx, principal.UserID)
}

// MarkAllMine marks every unread notification of the principal as read and
// returns how many changed.
func (s *Service) MarkAllMine(ctx context.Context, principal model.Principal) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, principal.UserID, s.now())
	if err != nil {
		return 0, repository.MapError(resource, "mark", err)
	}
	return n, nil
}

func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	n, err := s.repo.MarkRead(ctx, id, s.now())
	if err != nil {
		return nil, repository.MapError(resource, "mark", err)
	}
	return n, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateNotificationRequest) (*model.Notification, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, repository.MapError(resource, "get", err)
	}
	if req.Title != nil {
		n.Title = *req.Title
	}
	if req.Message != nil {
		n.Message = *req.Message
	}
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, repository.MapError(resource, "update", err)
	}
	return n, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return repository.MapError(resource, "delete", err)
	}
	return nil
}

// DeleteExpired removes notifications whose expiry is before now.
func (s *Service) DeleteExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, repository.MapError(resource, "expire", err)
	}
	if n > 0 {
		s.metrics.NotificationsExpired.Add(float64(n))
		s.log.Info("expired notifications deleted", "count", n)
	}
	return n, nil
}

// Subscribe streams the principal's mirrored notifications until ctx ends.
func (s *Service) Subscribe(ctx context.Context, principal model.Principal) (<-chan []byte, error) {
	if s.cfg.Broker == nil {
		return nil, &apperrors.AppError{Code: apperrors.ErrInternal, Message: ErrStreamUnavailable.Error(), Err: ErrStreamUnavailable}
	}
	channel := messaging.NotificationChannel(s.cfg.ChannelPrefix, principal.UserID.String())
	msgs, err := s.cfg.Broker.Subscribe(ctx, channel)
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
