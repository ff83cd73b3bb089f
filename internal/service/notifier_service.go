package service

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/postforge/autoposter/internal/queue"
)

// NotifierService fans user-facing events out to the notification queue.
// Delivery is best effort: a dead Redis never blocks a sweep.
type NotifierService interface {
	Notify(ctx context.Context, payload queue.NotificationPayload)
}

type notifierService struct {
	client *asynq.Client
}

func NewNotifierService(client *asynq.Client) NotifierService {
	return &notifierService{client: client}
}

func (s *notifierService) Notify(ctx context.Context, payload queue.NotificationPayload) {
	if s.client == nil {
		return
	}
	if err := queue.EnqueueNotification(s.client, payload); err != nil {
		slog.Info(err.Error())
	}
}
