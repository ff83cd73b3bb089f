package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/postforge/autoposter/internal/models"
	"github.com/postforge/autoposter/internal/queue"
	"github.com/postforge/autoposter/internal/repository"
	"github.com/postforge/autoposter/internal/transfer"
)

// postPublishTimeout bounds one post's media downloads and uploads.
const postPublishTimeout = 3 * time.Minute

type PublisherService interface {
	RunSweep(ctx context.Context) (*transfer.SweepResult, error)
	Retry(ctx context.Context, userID, postID int64) error
}

type publisherService struct {
	pr     repository.PostRepository
	pf     repository.ProfileRepository
	sr     repository.SeriesRepository
	pa     repository.PublishAttemptRepository
	li     LinkedinService
	nt     NotifierService
	client *http.Client
}

func NewPublisherService(
	pr repository.PostRepository,
	pf repository.ProfileRepository,
	sr repository.SeriesRepository,
	pa repository.PublishAttemptRepository,
	li LinkedinService,
	nt NotifierService) PublisherService {
	return &publisherService{
		pr: pr,
		pf: pf,
		sr: sr,
		pa: pa,
		li: li,
		nt: nt,
		client: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// publishRun caches profiles and access tokens for the duration of one
// sweep, so several due posts for the same user refresh the token once.
type publishRun struct {
	profiles map[int64]*models.AutoposterProfile
	tokens   map[int64]string
}

// RunSweep publishes every approved post whose slot has arrived. One
// post's failure marks that post failed and the sweep moves on; only the
// candidate query is a hard error.
func (s *publisherService) RunSweep(ctx context.Context) (*transfer.SweepResult, error) {
	started := time.Now()
	result := &transfer.SweepResult{RunID: uuid.NewString(), Success: true}
	defer func() { observeSweep(sweepKindPublish, result, started) }()

	posts, err := s.pr.ListApprovedDue(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	run := &publishRun{
		profiles: make(map[int64]*models.AutoposterProfile),
		tokens:   make(map[int64]string),
	}

	for _, post := range posts {
		s.publishOne(ctx, run, post, result)
	}

	return result, nil
}

// Retry puts a failed post back in front of the publish sweep.
func (s *publisherService) Retry(ctx context.Context, userID, postID int64) error {
	if userID == 0 {
		err := errors.New("User is not valid")
		slog.Info(err.Error())
		return err
	}

	isOwner, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !isOwner {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return err
	}
	if post.Status != models.PostStatusFailed {
		err = fmt.Errorf("post is %s, only failed posts can be retried", post.Status)
		slog.Info(err.Error())
		return err
	}

	moved, err := s.pr.UpdateStatus(ctx, postID, models.PostStatusFailed, models.PostStatusApproved)
	if err != nil {
		return err
	}
	if !moved {
		err = errors.New("post changed state while retrying")
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (s *publisherService) publishOne(ctx context.Context, run *publishRun, post *models.Post, result *transfer.SweepResult) {
	ctx, cancel := context.WithTimeout(ctx, postPublishTimeout)
	defer cancel()

	profile, err := s.profileFor(ctx, run, post.UserID)
	if err != nil {
		result.Add(post.ID, post.UserID, transfer.SweepResultError, err.Error())
		return
	}
	if profile == nil {
		result.Add(post.ID, post.UserID, transfer.SweepResultSkipped, "no autoposter profile")
		return
	}

	if !profile.LinkedinConnected || profile.LinkedinMemberURN == "" {
		s.fail(ctx, result, post, "linkedin is not connected")
		return
	}

	accessToken, err := s.tokenFor(ctx, run, profile)
	if err != nil {
		slog.Info(err.Error())
		s.fail(ctx, result, post, "linkedin access token expired and could not be refreshed")
		return
	}

	assets, err := s.resolveMediaAssets(ctx, post, profile, accessToken)
	if err != nil {
		slog.Info(err.Error())
		s.fail(ctx, result, post, reasonFromError(err))
		return
	}

	linkedinPostID, err := s.li.CreatePost(ctx, accessToken, profile.LinkedinMemberURN, post.FinalText(), assets)
	if err != nil {
		slog.Info(err.Error())
		s.fail(ctx, result, post, "linkedin rejected the post")
		return
	}

	published, err := s.pr.MarkPublished(ctx, post.ID, linkedinPostID, time.Now())
	if err != nil || !published {
		// the remote post exists either way, keep the audit trail honest
		slog.Info(fmt.Sprintf("post %d published remotely as %s but left approved state first", post.ID, linkedinPostID))
		s.recordAttempt(ctx, post, linkedinPostID, "post state changed during publish")
		result.Add(post.ID, post.UserID, transfer.SweepResultSkipped, "post state changed during publish")
		return
	}

	if post.SeriesID != nil && post.TopicIndex != nil {
		advanced, err := s.sr.AdvanceIndex(ctx, *post.SeriesID, int(*post.TopicIndex))
		if err != nil {
			slog.Info(err.Error())
		} else if !advanced {
			slog.Info(fmt.Sprintf("series %d already moved past index %d", *post.SeriesID, *post.TopicIndex))
		}
	}

	s.recordAttempt(ctx, post, linkedinPostID, "")
	s.nt.Notify(ctx, queue.NotificationPayload{
		UserID: post.UserID,
		PostID: &post.ID,
		Type:   models.NotificationPublished,
		Title:  "Your post is live",
		Body:   fmt.Sprintf("The post about %q was published to LinkedIn.", post.Topic),
	})
	result.Add(post.ID, post.UserID, transfer.SweepResultPublished, "")
}

// resolveMediaAssets turns the post's stored media into LinkedIn asset
// URNs. Single-asset uploads are cached on the post so a retry after a
// late failure does not upload the same bytes again.
func (s *publisherService) resolveMediaAssets(ctx context.Context, post *models.Post,
	profile *models.AutoposterProfile, accessToken string) ([]string, error) {
	switch post.MediaType {
	case models.MediaTypeText, "":
		return nil, nil

	case models.MediaTypeImage, models.MediaTypeVideo:
		if post.LinkedinMediaAsset != "" {
			return []string{post.LinkedinMediaAsset}, nil
		}
		if post.MediaURL == "" {
			return nil, errors.New("post has no generated media to upload")
		}

		data, err := s.downloadMedia(ctx, post.MediaURL)
		if err != nil {
			return nil, err
		}

		var asset string
		if post.MediaType == models.MediaTypeVideo {
			asset, err = s.li.UploadVideo(ctx, accessToken, profile.LinkedinMemberURN, data)
		} else {
			asset, err = s.li.UploadImage(ctx, accessToken, profile.LinkedinMemberURN, data)
		}
		if err != nil {
			return nil, err
		}

		if err := s.pr.SetMediaAsset(ctx, post.ID, asset); err != nil {
			slog.Info(err.Error())
		}
		return []string{asset}, nil

	case models.MediaTypeHTML:
		if len(post.ImageURLs) == 0 {
			return nil, errors.New("no rendered pages were attached at approval")
		}

		assets := make([]string, 0, len(post.ImageURLs))
		for _, pageURL := range post.ImageURLs {
			data, err := s.downloadMedia(ctx, pageURL)
			if err != nil {
				return nil, err
			}
			asset, err := s.li.UploadImage(ctx, accessToken, profile.LinkedinMemberURN, data)
			if err != nil {
				return nil, err
			}
			assets = append(assets, asset)
		}
		return assets, nil

	default:
		return nil, fmt.Errorf("unknown media type %q", post.MediaType)
	}
}

func (s *publisherService) downloadMedia(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, errors.New("stored media could not be downloaded")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stored media download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Info(err.Error())
		return nil, errors.New("stored media could not be read")
	}
	return data, nil
}

func (s *publisherService) profileFor(ctx context.Context, run *publishRun, userID int64) (*models.AutoposterProfile, error) {
	if profile, ok := run.profiles[userID]; ok {
		return profile, nil
	}

	profile, found, err := s.pf.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		run.profiles[userID] = nil
		return nil, nil
	}
	run.profiles[userID] = profile
	return profile, nil
}

func (s *publisherService) tokenFor(ctx context.Context, run *publishRun, profile *models.AutoposterProfile) (string, error) {
	if token, ok := run.tokens[profile.UserID]; ok {
		return token, nil
	}

	token, err := s.li.EnsureAccessToken(ctx, profile)
	if err != nil {
		return "", err
	}
	run.tokens[profile.UserID] = token
	return token, nil
}

// fail moves the post to failed with a sanitized reason and records the
// attempt. A post that already left approved is reported as a skip.
func (s *publisherService) fail(ctx context.Context, result *transfer.SweepResult, post *models.Post, reason string) {
	failed, err := s.pr.MarkFailed(ctx, post.ID, reason)
	if err != nil {
		result.Add(post.ID, post.UserID, transfer.SweepResultError, err.Error())
		return
	}
	if !failed {
		result.Add(post.ID, post.UserID, transfer.SweepResultSkipped, "post left approved state during publish")
		return
	}

	s.recordAttempt(ctx, post, "", reason)
	s.nt.Notify(ctx, queue.NotificationPayload{
		UserID: post.UserID,
		PostID: &post.ID,
		Type:   models.NotificationPublishFailed,
		Title:  "A post failed to publish",
		Body:   fmt.Sprintf("The post about %q could not be published: %s", post.Topic, reason),
	})
	result.Add(post.ID, post.UserID, transfer.SweepResultFailed, reason)
}

func (s *publisherService) recordAttempt(ctx context.Context, post *models.Post, linkedinPostID, errorMessage string) {
	attempt := &models.PublishAttempt{
		UserID:         post.UserID,
		PostID:         post.ID,
		LinkedinPostID: linkedinPostID,
		ErrorMessage:   errorMessage,
	}
	if _, err := s.pa.Create(ctx, attempt); err != nil {
		slog.Info(err.Error())
	}
}
