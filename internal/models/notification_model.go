package models

import "time"

type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Type      string    `db:"type" json:"type"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	PostID    *int64    `db:"post_id" json:"post_id"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const (
	NotificationDraftReady    = "draft_ready"
	NotificationReviewExpired = "review_expired"
	NotificationPublished     = "published"
	NotificationPublishFailed = "publish_failed"
)
