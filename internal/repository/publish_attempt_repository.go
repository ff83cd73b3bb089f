package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postforge/autoposter/internal/models"
)

type PublishAttemptRepository interface {
	Create(ctx context.Context, attempt *models.PublishAttempt) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PublishAttempt, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.PublishAttempt, error)
}

type publishAttemptRepository struct {
	db *sql.DB
}

func NewPublishAttemptRepository(db *sql.DB) PublishAttemptRepository {
	return &publishAttemptRepository{db: db}
}

func (r *publishAttemptRepository) Create(ctx context.Context, attempt *models.PublishAttempt) (int64, error) {
	query := `
		INSERT INTO publish_attempts (user_id, post_id, linkedin_post_id, error_message)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, attempt.UserID, attempt.PostID, attempt.LinkedinPostID, attempt.ErrorMessage).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *publishAttemptRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PublishAttempt, error) {
	query := `SELECT id, user_id, post_id, linkedin_post_id, error_message, created_at
		FROM publish_attempts WHERE post_id = $1 ORDER BY created_at DESC`
	return r.queryAttempts(ctx, query, postID)
}

func (r *publishAttemptRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.PublishAttempt, error) {
	query := `SELECT id, user_id, post_id, linkedin_post_id, error_message, created_at
		FROM publish_attempts WHERE user_id = $1 ORDER BY created_at DESC`
	return r.queryAttempts(ctx, query, userID)
}

func (r *publishAttemptRepository) queryAttempts(ctx context.Context, query string, arg interface{}) ([]*models.PublishAttempt, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var attempts []*models.PublishAttempt
	for rows.Next() {
		var attempt models.PublishAttempt
		err := rows.Scan(&attempt.ID, &attempt.UserID, &attempt.PostID, &attempt.LinkedinPostID, &attempt.ErrorMessage, &attempt.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		attempts = append(attempts, &attempt)
	}
	return attempts, nil
}
