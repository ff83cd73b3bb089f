package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	config "github.com/postforge/autoposter/configs"
	"github.com/postforge/autoposter/internal/models"
	"github.com/postforge/autoposter/internal/repository"
	"github.com/postforge/autoposter/internal/transfer"
)

type PlannerService interface {
	RunSweep(ctx context.Context) (*transfer.SweepResult, error)
	SchedulePost(ctx context.Context, userID int64, req *transfer.SchedulePostRequest) (int64, error)
}

type plannerService struct {
	cfg config.Config
	pr  repository.PostRepository
	pf  repository.ProfileRepository
	ts  TopicService
}

func NewPlannerService(
	cfg config.Config,
	pr repository.PostRepository,
	pf repository.ProfileRepository,
	ts TopicService) PlannerService {
	return &plannerService{
		cfg: cfg,
		pr:  pr,
		pf:  pf,
		ts:  ts,
	}
}

// RunSweep plans one placeholder post per profile whose pipeline is
// empty. A profile that already has an open post anywhere in the future
// is left alone, so running the sweep twice never doubles the plan.
func (s *plannerService) RunSweep(ctx context.Context) (*transfer.SweepResult, error) {
	started := time.Now()
	result := &transfer.SweepResult{RunID: uuid.NewString(), Success: true}
	defer func() { observeSweep(sweepKindSchedule, result, started) }()

	profiles, err := s.pf.List(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, profile := range profiles {
		slot, ok, err := NextScheduledSlot(profile.PostingSchedule, profile.Timezone, now)
		if err != nil {
			result.Add(0, profile.UserID, transfer.SweepResultError, err.Error())
			continue
		}
		if !ok {
			result.Add(0, profile.UserID, transfer.SweepResultSkipped, "posting disabled for every weekday")
			continue
		}

		hasUpcoming, err := s.pr.HasUpcomingPost(ctx, profile.UserID, now)
		if err != nil {
			result.Add(0, profile.UserID, transfer.SweepResultError, err.Error())
			continue
		}
		if hasUpcoming {
			result.Add(0, profile.UserID, transfer.SweepResultSkipped, "an open post is already planned")
			continue
		}

		selection, err := s.ts.SelectTopic(ctx, profile.UserID, nil)
		if errors.Is(err, ErrNoTopic) {
			result.Add(0, profile.UserID, transfer.SweepResultSkipped, err.Error())
			continue
		}
		if err != nil {
			result.Add(0, profile.UserID, transfer.SweepResultError, err.Error())
			continue
		}

		postID, err := s.createPlaceholder(ctx, profile, selection, slot, "", "")
		if err != nil {
			result.Add(0, profile.UserID, transfer.SweepResultError, err.Error())
			continue
		}
		result.Add(postID, profile.UserID, transfer.SweepResultScheduled, "")
	}

	return result, nil
}

// SchedulePost is the user-initiated entry point. The topic, series,
// media type, and time are all optional; whatever is missing comes from
// the selector, the profile schedule, and the profile preferences.
func (s *plannerService) SchedulePost(ctx context.Context, userID int64, req *transfer.SchedulePostRequest) (int64, error) {
	if userID == 0 {
		err := errors.New("User is not valid")
		slog.Info(err.Error())
		return 0, err
	}

	profile, found, err := s.pf.GetByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !found {
		err = errors.New("autoposter profile not found")
		slog.Info(err.Error())
		return 0, err
	}

	var selection *transfer.TopicSelection
	if req.Topic != "" {
		selection = &transfer.TopicSelection{
			Topic:    req.Topic,
			Notes:    req.Notes,
			Source:   transfer.TopicSourceManual,
			SeriesID: req.SeriesID,
		}
	} else {
		selection, err = s.ts.SelectTopic(ctx, userID, req.SeriesID)
		if err != nil {
			return 0, err
		}
	}

	now := time.Now()
	var slot time.Time
	if req.ScheduledFor != nil {
		slot = *req.ScheduledFor
		if !slot.After(now) {
			err = errors.New("scheduled time must be in the future")
			slog.Info(err.Error())
			return 0, err
		}
	} else {
		var ok bool
		slot, ok, err = NextScheduledSlot(profile.PostingSchedule, profile.Timezone, now)
		if err != nil {
			return 0, err
		}
		if !ok {
			err = errors.New("no posting slot is enabled, pass scheduled_for explicitly")
			slog.Info(err.Error())
			return 0, err
		}
	}

	return s.createPlaceholder(ctx, profile, selection, slot, req.MediaType, req.Model)
}

func (s *plannerService) createPlaceholder(ctx context.Context, profile *models.AutoposterProfile,
	selection *transfer.TopicSelection, slot time.Time, mediaType, model string) (int64, error) {
	if mediaType == "" {
		mediaType = profile.PreferredMediaType
	}
	if mediaType == "" {
		mediaType = models.MediaTypeText
	}
	if model == "" {
		model = profile.PreferredModel
	}

	post := &models.Post{
		UserID:       profile.UserID,
		Status:       models.PostStatusScheduled,
		Topic:        selection.Topic,
		Notes:        selection.Notes,
		MediaType:    mediaType,
		Provider:     profile.PreferredProvider,
		Model:        model,
		ScheduledFor: slot,
		SeriesID:     selection.SeriesID,
		TopicIndex:   selection.TopicIndex,
	}

	return s.pr.Create(ctx, nil, post)
}
