package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/hospitalcore/notification-service/internal/model"
)

// ErrSendFailed marks a dispatch whose delivery attempt failed. The stored
// record already reflects status "failed" by the time it is returned.
var ErrSendFailed = errors.New("notification send failed")

//go:generate mockgen -source=service.go -destination=../../mocks/service/notification/mock.go -package=mocks

type notificationRepository interface {
	Create(ctx context.Context, n model.Notification) (model.Notification, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (model.Notification, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (model.Notification, error)
	GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (model.Notification, error)
	GetStatusByID(ctx context.Context, id uuid.UUID) (string, error)
	GetByExternalID(ctx context.Context, externalID string) ([]model.Notification, error)
	GetByRecipient(ctx context.Context, recipient, notificationType string) ([]model.Notification, error)
}

// Notifier is the transport capability for a single channel. One attempt,
// success or error; retries are not this layer's concern.
type Notifier interface {
	Send(to, subject, msg string) error
}

type cache interface {
	SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
	GetWithRetry(ctx context.Context, strategy retry.Strategy, key string) (string, error)
}

// Service implements the dispatch pipeline: it creates the pending record,
// invokes the transport for the notification type, and finalizes the stored
// status so that the response and the record never disagree.
type Service struct {
	repo      notificationRepository
	notifiers map[string]Notifier
	cache     cache
}

func NewService(
	repo notificationRepository,
	notifiers map[string]Notifier,
	cache cache,
) *Service {
	return &Service{repo: repo, notifiers: notifiers, cache: cache}
}

// Dispatch runs one notification through the pipeline.
//
// The record is persisted as "pending" before the delivery attempt so a
// crash mid-flight still leaves an auditable trace. After the attempt the
// status is finalized with a second write. A failed finalize write
// propagates its own error even when delivery succeeded; that limitation is
// preferred over reporting a status the store does not hold.
func (s *Service) Dispatch(ctx context.Context, strategy retry.Strategy, n model.Notification) (model.Notification, error) {
	n.ID = uuid.New()
	n.Status = model.StatusPending
	n.SentAt = time.Now().UTC()
	if n.Type == model.TypeSMS {
		n.Subject = ""
	}

	created, err := s.repo.Create(ctx, n)
	if err != nil {
		return model.Notification{}, fmt.Errorf("create notification: %w", err)
	}

	s.cacheStatus(ctx, strategy, created.ID, created.Status)

	sendErr := s.send(created)

	status := model.StatusSent
	if sendErr != nil {
		status = model.StatusFailed
	}

	updated, err := s.repo.UpdateStatus(ctx, created.ID, status)
	if err != nil {
		return model.Notification{}, fmt.Errorf("update notification status: %w", err)
	}

	s.cacheStatus(ctx, strategy, updated.ID, updated.Status)

	if sendErr != nil {
		return updated, fmt.Errorf("%w: %v", ErrSendFailed, sendErr)
	}

	return updated, nil
}

// send performs a single delivery attempt over the transport selected by
// the notification type. An unknown type reaching this stage counts as a
// failed attempt; upstream validation should have rejected it already.
func (s *Service) send(n model.Notification) error {
	notifier, ok := s.notifiers[n.Type]
	if !ok {
		return fmt.Errorf("unknown notification type %q", n.Type)
	}

	if err := notifier.Send(n.Recipient, n.Subject, n.Message); err != nil {
		return fmt.Errorf("send %s to %s: %w", n.Type, n.Recipient, err)
	}

	return nil
}

// SoftDelete marks a notification as deleted. The store's conditional
// update is the sole idempotency guard: deleting a missing or already
// deleted notification surfaces the repository's not-found error.
func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID) (model.Notification, error) {
	n, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return model.Notification{}, fmt.Errorf("soft delete notification: %w", err)
	}

	return n, nil
}

// GetByID retrieves a notification record. Soft-deleted records are only
// visible when the caller explicitly asks for them.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (model.Notification, error) {
	n, err := s.repo.GetByID(ctx, id, includeDeleted)
	if err != nil {
		return model.Notification{}, fmt.Errorf("get notification: %w", err)
	}

	return n, nil
}

// GetStatusByID returns the notification status, preferring the cache and
// falling back to the store on a miss.
func (s *Service) GetStatusByID(ctx context.Context, strategy retry.Strategy, id uuid.UUID) (string, error) {
	status, err := s.cache.GetWithRetry(ctx, strategy, id.String())
	if err != nil && !errors.Is(err, redis.Nil) {
		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to get notification status from cache")
	}

	if err != nil {
		status, err = s.repo.GetStatusByID(ctx, id)
		if err != nil {
			return "", fmt.Errorf("get notification status: %w", err)
		}

		s.cacheStatus(ctx, strategy, id, status)
	}

	return status, nil
}

// GetByExternalID lists the notifications recorded for an originating entity.
func (s *Service) GetByExternalID(ctx context.Context, externalID string) ([]model.Notification, error) {
	notifications, err := s.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("get notifications by external id: %w", err)
	}

	return notifications, nil
}

// GetByRecipient lists the notifications recorded for a recipient and type.
func (s *Service) GetByRecipient(ctx context.Context, recipient, notificationType string) ([]model.Notification, error) {
	notifications, err := s.repo.GetByRecipient(ctx, recipient, notificationType)
	if err != nil {
		return nil, fmt.Errorf("get notifications by recipient: %w", err)
	}

	return notifications, nil
}

// cacheStatus is best-effort: a cache failure is logged, never surfaced.
func (s *Service) cacheStatus(ctx context.Context, strategy retry.Strategy, id uuid.UUID, status string) {
	if err := s.cache.SetWithRetry(ctx, strategy, id.String(), status); err != nil {
		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to cache notification status")
	}
}
