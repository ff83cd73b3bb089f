package queue

import (
	config "github.com/postforge/autoposter/configs"
	"github.com/postforge/autoposter/internal/repository"
)

type Queue struct {
	cfg config.Config
	nr  repository.NotificationRepository
	ur  repository.UserRepository
}

func NewQueue(
	cfg config.Config,
	nr repository.NotificationRepository,
	ur repository.UserRepository) *Queue {
	return &Queue{
		cfg: cfg,
		nr:  nr,
		ur:  ur,
	}
}

const TaskTypeNotify = "notification:deliver"

type NotificationPayload struct {
	UserID int64  `json:"user_id"`
	PostID *int64 `json:"post_id,omitempty"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}
