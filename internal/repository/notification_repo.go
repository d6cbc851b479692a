package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mezatapp/mezat/internal/domain"
)

// NotificationRepository persists (recipient, message, category) tuples.  The
// delivery pipeline (push, e-mail) consumes this table downstream; rows may be
// duplicated when a close attempt is retried, which the pipeline tolerates.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Insert stores one notification row.
func (r *NotificationRepository) Insert(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_id, message, category, created_at)
		VALUES (:id, :recipient_id, :message, :category, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, n)
	if err != nil {
		return fmt.Errorf("notification_repo.Insert: %w", err)
	}
	return nil
}

// ListByRecipient returns a user's notifications, newest first.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]*domain.Notification, error) {
	var ns []*domain.Notification
	err := r.db.SelectContext(ctx, &ns,
		`SELECT * FROM notifications WHERE recipient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		recipientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("notification_repo.ListByRecipient: %w", err)
	}
	return ns, nil
}
