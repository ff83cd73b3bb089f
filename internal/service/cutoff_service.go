package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/postforge/autoposter/internal/models"
	"github.com/postforge/autoposter/internal/queue"
	"github.com/postforge/autoposter/internal/repository"
	"github.com/postforge/autoposter/internal/transfer"
)

type CutoffService interface {
	RunSweep(ctx context.Context) (*transfer.SweepResult, error)
}

type cutoffService struct {
	pr repository.PostRepository
	nt NotifierService
}

func NewCutoffService(pr repository.PostRepository, nt NotifierService) CutoffService {
	return &cutoffService{pr: pr, nt: nt}
}

// RunSweep expires drafts whose review deadline passed without a decision.
// Expired posts go to skipped and never publish; the series they belong to
// is not advanced, its topic stays available for the next placeholder.
func (s *cutoffService) RunSweep(ctx context.Context) (*transfer.SweepResult, error) {
	started := time.Now()
	result := &transfer.SweepResult{RunID: uuid.NewString(), Success: true}
	defer func() { observeSweep(sweepKindCutoff, result, started) }()

	posts, err := s.pr.ListPendingReviewBefore(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	for _, post := range posts {
		expired, err := s.pr.UpdateStatus(ctx, post.ID, models.PostStatusPendingReview, models.PostStatusSkipped)
		if err != nil {
			result.Add(post.ID, post.UserID, transfer.SweepResultError, err.Error())
			continue
		}
		if !expired {
			result.Add(post.ID, post.UserID, transfer.SweepResultSkipped, "post was reviewed while sweeping")
			continue
		}

		s.nt.Notify(ctx, queue.NotificationPayload{
			UserID: post.UserID,
			PostID: &post.ID,
			Type:   models.NotificationReviewExpired,
			Title:  "A draft expired without review",
			Body:   fmt.Sprintf("The draft about %q passed its review deadline and was skipped.", post.Topic),
		})
		result.Add(post.ID, post.UserID, transfer.SweepResultExpired, "")
	}

	return result, nil
}
