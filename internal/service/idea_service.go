package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/postforge/autoposter/internal/models"
	"github.com/postforge/autoposter/internal/repository"
	"github.com/postforge/autoposter/internal/transfer"
)

type IdeaService interface {
	Create(ctx context.Context, userID int64, req *transfer.CreateIdeaRequest) (int64, error)
	List(ctx context.Context, userID int64, includeUsed bool) ([]*models.Idea, error)
	Remove(ctx context.Context, userID, ideaID int64) error
}

type ideaService struct {
	ir repository.IdeaRepository
	sr repository.SeriesRepository
}

func NewIdeaService(ir repository.IdeaRepository, sr repository.SeriesRepository) IdeaService {
	return &ideaService{
		ir: ir,
		sr: sr,
	}
}

func (s *ideaService) Create(ctx context.Context, userID int64, req *transfer.CreateIdeaRequest) (int64, error) {
	if userID == 0 {
		err := errors.New("User is not valid")
		slog.Info(err.Error())
		return 0, err
	}

	if req.SeriesID != nil {
		series, err := s.sr.GetByID(ctx, *req.SeriesID)
		if err != nil {
			return 0, err
		}
		if series == nil || series.UserID != userID {
			err = errors.New("Series doesn't exist")
			slog.Info(err.Error())
			return 0, err
		}
	}

	idea := &models.Idea{
		UserID:   userID,
		Text:     req.Text,
		SeriesID: req.SeriesID,
	}

	return s.ir.Create(ctx, idea)
}

func (s *ideaService) List(ctx context.Context, userID int64, includeUsed bool) ([]*models.Idea, error) {
	return s.ir.ListByUserID(ctx, userID, includeUsed)
}

func (s *ideaService) Remove(ctx context.Context, userID, ideaID int64) error {
	if userID == 0 {
		err := errors.New("User is not valid")
		slog.Info(err.Error())
		return err
	}

	idea, err := s.ir.GetByID(ctx, ideaID)
	if err != nil {
		return err
	}
	if idea == nil || idea.UserID != userID {
		err = errors.New("Idea doesn't exist")
		slog.Info(err.Error())
		return err
	}

	return s.ir.Remove(ctx, ideaID)
}
