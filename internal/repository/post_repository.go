package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/postforge/autoposter/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListByUserID(ctx context.Context, userID int64, status string) ([]*models.Post, error)
	ListScheduledInWindow(ctx context.Context, from, to time.Time) ([]*models.Post, error)
	ListPendingReviewBefore(ctx context.Context, deadline time.Time) ([]*models.Post, error)
	ListApprovedDue(ctx context.Context, now time.Time) ([]*models.Post, error)
	GetLastPublishedInSeries(ctx context.Context, seriesID int64) (*models.Post, error)
	HasUpcomingPost(ctx context.Context, userID int64, from time.Time) (bool, error)
	StoreDraft(ctx context.Context, post *models.Post) (bool, error)
	ReplaceDraftContent(ctx context.Context, post *models.Post) (bool, error)
	UpdateStatus(ctx context.Context, postID int64, from, to string) (bool, error)
	Approve(ctx context.Context, postID int64, editedContent string, imageURLs []string) (bool, error)
	ClearDraft(ctx context.Context, postID int64, from, to, reason string) (bool, error)
	MarkPublished(ctx context.Context, postID int64, linkedinPostID string, publishedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, postID int64, reason string) (bool, error)
	SetMediaAsset(ctx context.Context, postID int64, asset string) error
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, status, topic, notes, content, edited_content,
	media_type, media_url, media_mime_type, html_content, image_urls, page_count,
	provider, model, linkedin_media_asset, linkedin_post_id, failure_reason,
	scheduled_for, review_deadline, published_at, series_id, topic_index,
	previous_post_summary, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	var reviewDeadline, publishedAt sql.NullTime
	var seriesID, topicIndex sql.NullInt64

	err := row.Scan(&post.ID, &post.UserID, &post.Status, &post.Topic, &post.Notes,
		&post.Content, &post.EditedContent, &post.MediaType, &post.MediaURL,
		&post.MediaMimeType, &post.HTMLContent, pq.Array(&post.ImageURLs),
		&post.PageCount, &post.Provider, &post.Model, &post.LinkedinMediaAsset,
		&post.LinkedinPostID, &post.FailureReason, &post.ScheduledFor,
		&reviewDeadline, &publishedAt, &seriesID, &topicIndex,
		&post.PreviousPostSummary, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if reviewDeadline.Valid {
		post.ReviewDeadline = &reviewDeadline.Time
	}
	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}
	if seriesID.Valid {
		post.SeriesID = &seriesID.Int64
	}
	if topicIndex.Valid {
		post.TopicIndex = &topicIndex.Int64
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, status, topic, notes, media_type, provider, model, scheduled_for, series_id, topic_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, post.UserID, post.Status, post.Topic, post.Notes,
			post.MediaType, post.Provider, post.Model, post.ScheduledFor, post.SeriesID, post.TopicIndex).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, post.UserID, post.Status, post.Topic, post.Notes,
			post.MediaType, post.Provider, post.Model, post.ScheduledFor, post.SeriesID, post.TopicIndex).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ListByUserID(ctx context.Context, userID int64, status string) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1`
	args := []interface{}{userID}

	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY scheduled_for DESC`

	return r.queryPosts(ctx, query, args...)
}

func (r *postRepository) ListScheduledInWindow(ctx context.Context, from, to time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = $1 AND scheduled_for >= $2 AND scheduled_for < $3
		ORDER BY scheduled_for`
	return r.queryPosts(ctx, query, models.PostStatusScheduled, from, to)
}

func (r *postRepository) ListPendingReviewBefore(ctx context.Context, deadline time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = $1 AND review_deadline IS NOT NULL AND review_deadline <= $2
		ORDER BY review_deadline`
	return r.queryPosts(ctx, query, models.PostStatusPendingReview, deadline)
}

func (r *postRepository) ListApprovedDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for`
	return r.queryPosts(ctx, query, models.PostStatusApproved, now)
}

func (r *postRepository) GetLastPublishedInSeries(ctx context.Context, seriesID int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE series_id = $1 AND status = $2
		ORDER BY published_at DESC
		LIMIT 1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, seriesID, models.PostStatusPublished))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) HasUpcomingPost(ctx context.Context, userID int64, from time.Time) (bool, error) {
	query := `SELECT 1 FROM posts
		WHERE user_id = $1 AND scheduled_for >= $2 AND status = ANY($3)
		LIMIT 1`

	open := []string{models.PostStatusScheduled, models.PostStatusPendingReview, models.PostStatusApproved}

	var result int
	err := r.db.QueryRowContext(ctx, query, userID, from, pq.Array(open)).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return result == 1, nil
}

// StoreDraft writes generated content and moves the post to pending_review
// in a single conditional update, so a post that already left scheduled
// state is not overwritten. A false return means the precondition was
// lost, not an error.
func (r *postRepository) StoreDraft(ctx context.Context, post *models.Post) (bool, error) {
	query := `
		UPDATE posts
		SET status = $2,
			content = $3,
			media_type = $4,
			media_url = $5,
			media_mime_type = $6,
			html_content = $7,
			image_urls = $8,
			page_count = $9,
			provider = $10,
			model = $11,
			previous_post_summary = $12,
			review_deadline = $13,
			failure_reason = '',
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $14
	`
	result, err := r.db.ExecContext(ctx, query, post.ID, models.PostStatusPendingReview,
		post.Content, post.MediaType, post.MediaURL, post.MediaMimeType, post.HTMLContent,
		imageURLsArg(post.ImageURLs), post.PageCount, post.Provider, post.Model,
		post.PreviousPostSummary, post.ReviewDeadline, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return oneRowAffected(result)
}

// ReplaceDraftContent regenerates content in place without changing status.
// The current status is still a precondition so an in-flight cutoff or
// review action wins the race.
func (r *postRepository) ReplaceDraftContent(ctx context.Context, post *models.Post) (bool, error) {
	query := `
		UPDATE posts
		SET content = $2,
			edited_content = '',
			media_type = $3,
			media_url = $4,
			media_mime_type = $5,
			html_content = $6,
			image_urls = $7,
			page_count = $8,
			provider = $9,
			model = $10,
			previous_post_summary = $11,
			linkedin_media_asset = '',
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $12
	`
	result, err := r.db.ExecContext(ctx, query, post.ID, post.Content, post.MediaType,
		post.MediaURL, post.MediaMimeType, post.HTMLContent, imageURLsArg(post.ImageURLs),
		post.PageCount, post.Provider, post.Model, post.PreviousPostSummary, post.Status)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return oneRowAffected(result)
}

func (r *postRepository) UpdateStatus(ctx context.Context, postID int64, from, to string) (bool, error) {
	query := `
		UPDATE posts
		SET status = $3,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $2
	`
	result, err := r.db.ExecContext(ctx, query, postID, from, to)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return oneRowAffected(result)
}

func (r *postRepository) Approve(ctx context.Context, postID int64, editedContent string, imageURLs []string) (bool, error) {
	query := `
		UPDATE posts
		SET status = $2,
			edited_content = COALESCE(NULLIF($3, ''), edited_content),
			image_urls = COALESCE($4, image_urls),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query, postID, models.PostStatusApproved,
		editedContent, imageURLsArg(imageURLs), models.PostStatusPendingReview)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return oneRowAffected(result)
}

// ClearDraft wipes generated content and moves the post between review
// states (reject, regenerate). Cached media asset references are cleared
// so the next publish uploads fresh media.
func (r *postRepository) ClearDraft(ctx context.Context, postID int64, from, to, reason string) (bool, error) {
	query := `
		UPDATE posts
		SET status = $3,
			content = '',
			edited_content = '',
			media_url = '',
			media_mime_type = '',
			html_content = '',
			image_urls = NULL,
			linkedin_media_asset = '',
			failure_reason = $4,
			review_deadline = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $2
	`
	result, err := r.db.ExecContext(ctx, query, postID, from, to, reason)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return oneRowAffected(result)
}

func (r *postRepository) MarkPublished(ctx context.Context, postID int64, linkedinPostID string, publishedAt time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET status = $2,
			linkedin_post_id = $3,
			published_at = $4,
			failure_reason = '',
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query, postID, models.PostStatusPublished,
		linkedinPostID, publishedAt, models.PostStatusApproved)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return oneRowAffected(result)
}

func (r *postRepository) MarkFailed(ctx context.Context, postID int64, reason string) (bool, error) {
	query := `
		UPDATE posts
		SET status = $2,
			failure_reason = $3,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, postID, models.PostStatusFailed,
		reason, models.PostStatusApproved)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return oneRowAffected(result)
}

// SetMediaAsset caches the remote asset reference so a publish retry skips
// re-uploading the same media.
func (r *postRepository) SetMediaAsset(ctx context.Context, postID int64, asset string) error {
	query := `
		UPDATE posts
		SET linkedin_media_asset = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, postID, asset)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := `SELECT 1 FROM posts WHERE id = $1 AND user_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return result == 1, nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) queryPosts(ctx context.Context, query string, args ...interface{}) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func imageURLsArg(urls []string) interface{} {
	if len(urls) == 0 {
		return nil
	}
	return pq.Array(urls)
}

func oneRowAffected(result sql.Result) (bool, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}
