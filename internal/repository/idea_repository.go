package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postforge/autoposter/internal/models"
)

type IdeaRepository interface {
	Create(ctx context.Context, idea *models.Idea) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Idea, error)
	ListByUserID(ctx context.Context, userID int64, includeUsed bool) ([]*models.Idea, error)
	GetFirstUnused(ctx context.Context, userID int64, seriesID *int64) (*models.Idea, error)
	MarkUsed(ctx context.Context, tx *sql.Tx, id int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type ideaRepository struct {
	db *sql.DB
}

func NewIdeaRepository(db *sql.DB) IdeaRepository {
	return &ideaRepository{db: db}
}

const ideaColumns = `id, user_id, text, series_id, used, created_at`

func scanIdea(row rowScanner) (*models.Idea, error) {
	var idea models.Idea
	var seriesID sql.NullInt64

	err := row.Scan(&idea.ID, &idea.UserID, &idea.Text, &seriesID, &idea.Used, &idea.CreatedAt)
	if err != nil {
		return nil, err
	}
	if seriesID.Valid {
		idea.SeriesID = &seriesID.Int64
	}
	return &idea, nil
}

func (r *ideaRepository) Create(ctx context.Context, idea *models.Idea) (int64, error) {
	query := `
		INSERT INTO ideas (user_id, text, series_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, idea.UserID, idea.Text, idea.SeriesID).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *ideaRepository) GetByID(ctx context.Context, id int64) (*models.Idea, error) {
	query := `SELECT ` + ideaColumns + ` FROM ideas WHERE id = $1`

	idea, err := scanIdea(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return idea, nil
}

func (r *ideaRepository) ListByUserID(ctx context.Context, userID int64, includeUsed bool) ([]*models.Idea, error) {
	query := `SELECT ` + ideaColumns + ` FROM ideas WHERE user_id = $1`
	if !includeUsed {
		query += ` AND used = FALSE`
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var ideas []*models.Idea
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		ideas = append(ideas, idea)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return ideas, nil
}

// GetFirstUnused returns the oldest unused idea for the user. When a series
// is given, ideas tagged to that series come first, then untagged ideas;
// ideas tagged to a different series are never returned for it.
func (r *ideaRepository) GetFirstUnused(ctx context.Context, userID int64, seriesID *int64) (*models.Idea, error) {
	var query string
	var args []interface{}

	if seriesID != nil {
		query = `SELECT ` + ideaColumns + ` FROM ideas
			WHERE user_id = $1 AND used = FALSE AND (series_id = $2 OR series_id IS NULL)
			ORDER BY (series_id IS NULL), created_at
			LIMIT 1`
		args = []interface{}{userID, *seriesID}
	} else {
		query = `SELECT ` + ideaColumns + ` FROM ideas
			WHERE user_id = $1 AND used = FALSE
			ORDER BY created_at
			LIMIT 1`
		args = []interface{}{userID}
	}

	idea, err := scanIdea(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return idea, nil
}

// MarkUsed consumes an idea exactly once. The used = FALSE precondition
// makes a concurrent second selection lose the race instead of reusing
// the idea.
func (r *ideaRepository) MarkUsed(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	query := `UPDATE ideas SET used = TRUE WHERE id = $1 AND used = FALSE`

	var result sql.Result
	var err error

	if tx != nil {
		result, err = tx.ExecContext(ctx, query, id)
	} else {
		result, err = r.db.ExecContext(ctx, query, id)
	}
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return oneRowAffected(result)
}

func (r *ideaRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM ideas WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
