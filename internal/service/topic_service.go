package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/postforge/autoposter/internal/models"
	"github.com/postforge/autoposter/internal/repository"
	"github.com/postforge/autoposter/internal/transfer"
)

// ErrNoTopic means the idea bank is empty and no series has topics left.
var ErrNoTopic = errors.New("no unused idea and no remaining series topic")

type TopicService interface {
	SelectTopic(ctx context.Context, userID int64, seriesID *int64) (*transfer.TopicSelection, error)
}

type topicService struct {
	ir repository.IdeaRepository
	sr repository.SeriesRepository
}

func NewTopicService(ir repository.IdeaRepository, sr repository.SeriesRepository) TopicService {
	return &topicService{ir: ir, sr: sr}
}

// SelectTopic picks the next thing to post about. Ideas always win over
// the series queue; a selected idea is consumed immediately while a
// series topic stays in the queue until the post actually publishes.
func (s *topicService) SelectTopic(ctx context.Context, userID int64, seriesID *int64) (*transfer.TopicSelection, error) {
	for attempt := 0; attempt < 3; attempt++ {
		idea, err := s.ir.GetFirstUnused(ctx, userID, seriesID)
		if err != nil {
			return nil, err
		}
		if idea == nil {
			break
		}

		consumed, err := s.ir.MarkUsed(ctx, nil, idea.ID)
		if err != nil {
			return nil, err
		}
		if !consumed {
			// another selection got this idea first, try the next one
			continue
		}

		selection := &transfer.TopicSelection{
			Topic:  idea.Text,
			Source: transfer.TopicSourceIdea,
		}
		if idea.SeriesID != nil {
			series, err := s.sr.GetByID(ctx, *idea.SeriesID)
			if err != nil {
				slog.Info(err.Error())
			} else if series != nil {
				selection.SeriesID = &series.ID
				selection.SeriesTitle = series.Title
			}
		}
		return selection, nil
	}

	return s.selectFromSeries(ctx, userID, seriesID)
}

func (s *topicService) selectFromSeries(ctx context.Context, userID int64, seriesID *int64) (*transfer.TopicSelection, error) {
	var series *models.Series
	var err error

	if seriesID != nil {
		series, err = s.sr.GetByID(ctx, *seriesID)
		if err != nil {
			return nil, err
		}
		if series == nil || series.UserID != userID {
			return nil, fmt.Errorf("series %d not found", *seriesID)
		}
	} else {
		series, err = s.sr.GetActiveByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if series == nil {
			return nil, ErrNoTopic
		}
	}

	topic, ok := series.NextTopic()
	if !ok {
		return nil, ErrNoTopic
	}

	index := int64(series.CurrentIndex)
	return &transfer.TopicSelection{
		Topic:       topic.Title,
		Notes:       topic.Notes,
		Source:      transfer.TopicSourceSeries,
		SeriesID:    &series.ID,
		SeriesTitle: series.Title,
		TopicIndex:  &index,
	}, nil
}
