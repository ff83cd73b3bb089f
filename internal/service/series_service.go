package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/postforge/autoposter/internal/models"
	"github.com/postforge/autoposter/internal/repository"
	"github.com/postforge/autoposter/internal/transfer"
)

type SeriesService interface {
	Create(ctx context.Context, userID int64, req *transfer.CreateSeriesRequest) (int64, error)
	List(ctx context.Context, userID int64) ([]*models.Series, error)
	SeriesInfo(ctx context.Context, userID, seriesID int64) (*models.Series, error)
	Update(ctx context.Context, userID, seriesID int64, req *transfer.CreateSeriesRequest) error
	Remove(ctx context.Context, userID, seriesID int64) error
}

type seriesService struct {
	sr repository.SeriesRepository
	tr repository.TemplateRepository
}

func NewSeriesService(sr repository.SeriesRepository, tr repository.TemplateRepository) SeriesService {
	return &seriesService{
		sr: sr,
		tr: tr,
	}
}

func (s *seriesService) Create(ctx context.Context, userID int64, req *transfer.CreateSeriesRequest) (int64, error) {
	if userID == 0 {
		err := errors.New("User is not valid")
		slog.Info(err.Error())
		return 0, err
	}

	if req.TemplateID != nil {
		template, err := s.tr.GetByID(ctx, *req.TemplateID)
		if err != nil {
			return 0, err
		}
		if template == nil || template.UserID != userID {
			err = errors.New("Template doesn't exist")
			slog.Info(err.Error())
			return 0, err
		}
	}

	series := &models.Series{
		UserID:     userID,
		Title:      req.Title,
		Category:   req.Category,
		TemplateID: req.TemplateID,
		TopicQueue: topicQueue(req.Topics),
	}

	return s.sr.Create(ctx, series)
}

func (s *seriesService) List(ctx context.Context, userID int64) ([]*models.Series, error) {
	return s.sr.ListByUserID(ctx, userID)
}

func (s *seriesService) SeriesInfo(ctx context.Context, userID, seriesID int64) (*models.Series, error) {
	return s.ownedSeries(ctx, userID, seriesID)
}

// Update replaces the series metadata and topic queue. The consumed part
// of the queue is kept in place so current_index stays meaningful; only
// the unconsumed tail is replaced.
func (s *seriesService) Update(ctx context.Context, userID, seriesID int64, req *transfer.CreateSeriesRequest) error {
	series, err := s.ownedSeries(ctx, userID, seriesID)
	if err != nil {
		return err
	}

	series.Title = req.Title
	series.Category = req.Category
	series.TemplateID = req.TemplateID

	consumed := series.TopicQueue
	if series.CurrentIndex < len(consumed) {
		consumed = consumed[:series.CurrentIndex]
	}
	series.TopicQueue = append(consumed, topicQueue(req.Topics)...)

	return s.sr.Update(ctx, series)
}

func (s *seriesService) Remove(ctx context.Context, userID, seriesID int64) error {
	if _, err := s.ownedSeries(ctx, userID, seriesID); err != nil {
		return err
	}
	return s.sr.Remove(ctx, seriesID)
}

func (s *seriesService) ownedSeries(ctx context.Context, userID, seriesID int64) (*models.Series, error) {
	if userID == 0 {
		err := errors.New("User is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	series, err := s.sr.GetByID(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	if series == nil || series.UserID != userID {
		err = errors.New("Series doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}
	return series, nil
}

func topicQueue(topics []transfer.TopicRequest) []models.SeriesTopic {
	queue := make([]models.SeriesTopic, 0, len(topics))
	for _, t := range topics {
		queue = append(queue, models.SeriesTopic{Title: t.Title, Notes: t.Notes})
	}
	return queue
}
