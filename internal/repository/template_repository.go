package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postforge/autoposter/internal/models"
)

type TemplateRepository interface {
	Create(ctx context.Context, template *models.Template) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Template, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Template, error)
	Remove(ctx context.Context, id int64) error
}

type templateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) Create(ctx context.Context, template *models.Template) (int64, error) {
	query := `
		INSERT INTO templates (user_id, name, html, page_count)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, template.UserID, template.Name, template.HTML, template.PageCount).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *templateRepository) GetByID(ctx context.Context, id int64) (*models.Template, error) {
	query := `SELECT id, user_id, name, html, page_count, created_at FROM templates WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var template models.Template
	err := row.Scan(&template.ID, &template.UserID, &template.Name, &template.HTML, &template.PageCount, &template.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &template, nil
}

func (r *templateRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Template, error) {
	query := `SELECT id, user_id, name, html, page_count, created_at FROM templates WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var templates []*models.Template
	for rows.Next() {
		var template models.Template
		err := rows.Scan(&template.ID, &template.UserID, &template.Name, &template.HTML, &template.PageCount, &template.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		templates = append(templates, &template)
	}
	return templates, nil
}

func (r *templateRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM templates WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
