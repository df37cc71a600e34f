package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/wb-go/wbf/dbpg"

	"github.com/hospitalcore/notification-service/internal/model"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotificationExists   = errors.New("notification already exists")
)

// uniqueViolation is the Postgres error code for a unique constraint violation.
const uniqueViolation = "23505"

const notificationColumns = `
	notification_id, type, recipient, subject, message, external_id,
	status, deleted, sent_at, created_at, updated_at`

// Repository provides methods to interact with the notifications table.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new notification repository.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new notification record. The caller supplies the
// identifier; a collision returns ErrNotificationExists, which the primary
// key enforces defensively even though identifiers are freshly generated.
func (r *Repository) Create(ctx context.Context, n model.Notification) (model.Notification, error) {
	query := `
		INSERT INTO notifications (
		    notification_id, type, recipient, subject, message, external_id, status, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at;
    `

	err := r.db.QueryRowContext(
		ctx, query, n.ID, n.Type, n.Recipient, n.Subject, n.Message, n.ExternalID, n.Status, n.SentAt,
	).Scan(&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return model.Notification{}, ErrNotificationExists
		}

		return model.Notification{}, fmt.Errorf("failed to create notification: %w", err)
	}

	return n, nil
}

// UpdateStatus updates the status of a notification by its ID and returns
// the updated record.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (model.Notification, error) {
	query := `
		UPDATE notifications
		SET status = $1, updated_at = NOW()
		WHERE notification_id = $2
		RETURNING` + notificationColumns + `;
    `

	n, err := r.scanNotification(r.db.QueryRowContext(ctx, query, status, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Notification{}, ErrNotificationNotFound
		}

		return model.Notification{}, fmt.Errorf("failed to update notification status: %w", err)
	}

	return n, nil
}

// SoftDelete marks a notification as deleted. The deleted = FALSE condition
// makes the transition atomic: of two concurrent calls on the same ID exactly
// one matches a row, the other gets ErrNotificationNotFound. An already
// deleted or nonexistent notification also returns ErrNotificationNotFound.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) (model.Notification, error) {
	query := `
		UPDATE notifications
		SET deleted = TRUE, updated_at = NOW()
		WHERE notification_id = $1 AND deleted = FALSE
		RETURNING` + notificationColumns + `;
    `

	n, err := r.scanNotification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Notification{}, ErrNotificationNotFound
		}

		return model.Notification{}, fmt.Errorf("failed to soft delete notification: %w", err)
	}

	return n, nil
}

// GetByID retrieves a notification by its ID. Soft-deleted records are
// hidden unless includeDeleted is set.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (model.Notification, error) {
	query := `
		SELECT` + notificationColumns + `
		FROM notifications
		WHERE notification_id = $1 AND (deleted = FALSE OR $2);
    `

	n, err := r.scanNotification(r.db.QueryRowContext(ctx, query, id, includeDeleted))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Notification{}, ErrNotificationNotFound
		}

		return model.Notification{}, fmt.Errorf("failed to get notification: %w", err)
	}

	return n, nil
}

// GetStatusByID retrieves the status of a notification by its ID.
func (r *Repository) GetStatusByID(ctx context.Context, id uuid.UUID) (string, error) {
	query := `
		SELECT status
		FROM notifications
		WHERE notification_id = $1;
    `

	var status string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotificationNotFound
		}

		return "", fmt.Errorf("failed to get notification status: %w", err)
	}

	return status, nil
}

// GetByExternalID retrieves all notifications linked to the caller's
// originating entity, newest first.
func (r *Repository) GetByExternalID(ctx context.Context, externalID string) ([]model.Notification, error) {
	query := `
		SELECT` + notificationColumns + `
		FROM notifications
		WHERE external_id = $1 AND deleted = FALSE
		ORDER BY sent_at DESC;
    `

	return r.queryNotifications(ctx, query, externalID)
}

// GetByRecipient retrieves all notifications sent to a recipient over a
// given channel, newest first.
func (r *Repository) GetByRecipient(ctx context.Context, recipient, notificationType string) ([]model.Notification, error) {
	query := `
		SELECT` + notificationColumns + `
		FROM notifications
		WHERE recipient = $1 AND type = $2 AND deleted = FALSE
		ORDER BY sent_at DESC;
    `

	return r.queryNotifications(ctx, query, recipient, notificationType)
}

func (r *Repository) queryNotifications(ctx context.Context, query string, args ...interface{}) ([]model.Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(
			&n.ID, &n.Type, &n.Recipient, &n.Subject, &n.Message, &n.ExternalID,
			&n.Status, &n.Deleted, &n.SentAt, &n.CreatedAt, &n.UpdatedAt,
		); err != nil {
			return nil, err
		}

		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(notifications) == 0 {
		return nil, ErrNotificationNotFound
	}

	return notifications, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanNotification(row rowScanner) (model.Notification, error) {
	var n model.Notification
	err := row.Scan(
		&n.ID, &n.Type, &n.Recipient, &n.Subject, &n.Message, &n.ExternalID,
		&n.Status, &n.Deleted, &n.SentAt, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return model.Notification{}, err
	}

	return n, nil
}
