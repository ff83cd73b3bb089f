package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/postforge/autoposter/internal/models"
	"github.com/postforge/autoposter/internal/repository"
	"github.com/postforge/autoposter/internal/transfer"
)

type TemplateService interface {
	Create(ctx context.Context, userID int64, req *transfer.CreateTemplateRequest) (int64, error)
	List(ctx context.Context, userID int64) ([]*models.Template, error)
	Remove(ctx context.Context, userID, templateID int64) error
}

type templateService struct {
	tr repository.TemplateRepository
}

func NewTemplateService(tr repository.TemplateRepository) TemplateService {
	return &templateService{
		tr: tr,
	}
}

func (s *templateService) Create(ctx context.Context, userID int64, req *transfer.CreateTemplateRequest) (int64, error) {
	if userID == 0 {
		err := errors.New("User is not valid")
		slog.Info(err.Error())
		return 0, err
	}

	template := &models.Template{
		UserID:    userID,
		Name:      req.Name,
		HTML:      req.HTML,
		PageCount: req.PageCount,
	}

	return s.tr.Create(ctx, template)
}

func (s *templateService) List(ctx context.Context, userID int64) ([]*models.Template, error) {
	return s.tr.ListByUserID(ctx, userID)
}

func (s *templateService) Remove(ctx context.Context, userID, templateID int64) error {
	if userID == 0 {
		err := errors.New("User is not valid")
		slog.Info(err.Error())
		return err
	}

	template, err := s.tr.GetByID(ctx, templateID)
	if err != nil {
		return err
	}
	if template == nil || template.UserID != userID {
		err = errors.New("Template doesn't exist")
		slog.Info(err.Error())
		return err
	}

	return s.tr.Remove(ctx, templateID)
}
