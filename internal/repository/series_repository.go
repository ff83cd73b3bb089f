package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/postforge/autoposter/internal/models"
)

type SeriesRepository interface {
	Create(ctx context.Context, series *models.Series) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Series, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Series, error)
	GetActiveByUserID(ctx context.Context, userID int64) (*models.Series, error)
	AdvanceIndex(ctx context.Context, seriesID int64, expectedIndex int) (bool, error)
	Update(ctx context.Context, series *models.Series) error
	Remove(ctx context.Context, id int64) error
}

type seriesRepository struct {
	db *sql.DB
}

func NewSeriesRepository(db *sql.DB) SeriesRepository {
	return &seriesRepository{db: db}
}

const seriesColumns = `id, user_id, title, category, template_id, topic_queue, current_index, created_at, updated_at`

func scanSeries(row rowScanner) (*models.Series, error) {
	var series models.Series
	var templateID sql.NullInt64
	var queueJSON []byte

	err := row.Scan(&series.ID, &series.UserID, &series.Title, &series.Category,
		&templateID, &queueJSON, &series.CurrentIndex, &series.CreatedAt, &series.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if templateID.Valid {
		series.TemplateID = &templateID.Int64
	}
	if len(queueJSON) > 0 {
		if err := json.Unmarshal(queueJSON, &series.TopicQueue); err != nil {
			return nil, err
		}
	}
	return &series, nil
}

func (r *seriesRepository) Create(ctx context.Context, series *models.Series) (int64, error) {
	queueJSON, err := json.Marshal(series.TopicQueue)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	query := `
		INSERT INTO series (user_id, title, category, template_id, topic_queue, current_index)
		VALUES ($1, $2, $3, $4, $5, 0)
		RETURNING id
	`

	var id int64
	err = r.db.QueryRowContext(ctx, query, series.UserID, series.Title, series.Category,
		series.TemplateID, queueJSON).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *seriesRepository) GetByID(ctx context.Context, id int64) (*models.Series, error) {
	query := `SELECT ` + seriesColumns + ` FROM series WHERE id = $1`

	series, err := scanSeries(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return series, nil
}

func (r *seriesRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Series, error) {
	query := `SELECT ` + seriesColumns + ` FROM series WHERE user_id = $1 ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var list []*models.Series
	for rows.Next() {
		series, err := scanSeries(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		list = append(list, series)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return list, nil
}

// GetActiveByUserID returns the most recently touched series that still has
// unconsumed topics, or nil when every series is exhausted.
func (r *seriesRepository) GetActiveByUserID(ctx context.Context, userID int64) (*models.Series, error) {
	query := `SELECT ` + seriesColumns + ` FROM series
		WHERE user_id = $1 AND jsonb_array_length(topic_queue) > current_index
		ORDER BY updated_at DESC
		LIMIT 1`

	series, err := scanSeries(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return series, nil
}

// AdvanceIndex is the compare-and-increment that consumes one queue slot.
// It only succeeds when the stored index still equals expectedIndex and a
// topic exists at that position, so concurrent publishers and stale posts
// cannot double-advance or walk past the end of the queue.
func (r *seriesRepository) AdvanceIndex(ctx context.Context, seriesID int64, expectedIndex int) (bool, error) {
	query := `
		UPDATE series
		SET current_index = current_index + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND current_index = $2 AND jsonb_array_length(topic_queue) > $2
	`
	result, err := r.db.ExecContext(ctx, query, seriesID, expectedIndex)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return oneRowAffected(result)
}

func (r *seriesRepository) Update(ctx context.Context, series *models.Series) error {
	queueJSON, err := json.Marshal(series.TopicQueue)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	query := `
		UPDATE series
		SET title = $2,
			category = $3,
			template_id = $4,
			topic_queue = $5,
			updated_at = $6
		WHERE id = $1
	`
	_, err = r.db.ExecContext(ctx, query, series.ID, series.Title, series.Category,
		series.TemplateID, queueJSON, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *seriesRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM series WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
