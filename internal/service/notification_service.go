package service

import (
	"context"

	"github.com/postforge/autoposter/internal/models"
	"github.com/postforge/autoposter/internal/repository"
)

type NotificationService interface {
	List(ctx context.Context, userID int64, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID int64) error
}

type notificationService struct {
	nr repository.NotificationRepository
}

func NewNotificationService(nr repository.NotificationRepository) NotificationService {
	return &notificationService{
		nr: nr,
	}
}

func (s *notificationService) List(ctx context.Context, userID int64, limit int) ([]*models.Notification, error) {
	return s.nr.ListByUserID(ctx, userID, limit)
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID int64) error {
	return s.nr.MarkRead(ctx, notificationID, userID)
}
