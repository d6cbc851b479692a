package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mezatapp/mezat/internal/domain"
	"github.com/mezatapp/mezat/internal/repository"
)

// NotificationService is the durable notification sink used by the auction
// closer.  It writes rows that a downstream delivery pipeline (push, e-mail)
// picks up asynchronously, so a slow mail provider never delays closing.
type NotificationService struct {
	repo *repository.NotificationRepository
}

// NewNotificationService creates a notification sink backed by Postgres.
func NewNotificationService(repo *repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// Notify records one notification for a recipient.
func (s *NotificationService) Notify(ctx context.Context, recipientID uuid.UUID, message, category string) error {
	n := &domain.Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Message:     message,
		Category:    category,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		return fmt.Errorf("gateway.Notify: %w", err)
	}
	return nil
}
