package models

import "time"

// PublishAttempt is one row of the append-only audit trail the publish
// sweep writes, success or failure.
type PublishAttempt struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	PostID         int64     `db:"post_id" json:"post_id"`
	LinkedinPostID string    `db:"linkedin_post_id" json:"linkedin_post_id"`
	ErrorMessage   string    `db:"error_message" json:"error_message"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
