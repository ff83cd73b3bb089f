package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	config "github.com/postforge/autoposter/configs"
	"github.com/postforge/autoposter/internal/models"
	"github.com/postforge/autoposter/internal/queue"
	"github.com/postforge/autoposter/internal/repository"
	"github.com/postforge/autoposter/internal/transfer"
)

const (
	// generationWindow is how far ahead of the scheduled slot a draft is
	// produced. Posts further out are left for a later run.
	generationWindow = 28 * time.Hour

	// postGenerationTimeout bounds one post's worth of provider calls so a
	// hung video operation cannot stall the whole sweep.
	postGenerationTimeout = 5 * time.Minute

	providerGemini = "gemini"
)

type GeneratorService interface {
	RunSweep(ctx context.Context) (*transfer.SweepResult, error)
	GenerateNow(ctx context.Context, userID, postID int64) error
	Regenerate(ctx context.Context, userID, postID int64) error
}

type generatorService struct {
	cfg config.Config
	pr  repository.PostRepository
	pf  repository.ProfileRepository
	sr  repository.SeriesRepository
	tr  repository.TemplateRepository
	ai  GeminiService
	st  StorageService
	nt  NotifierService
}

func NewGeneratorService(
	cfg config.Config,
	pr repository.PostRepository,
	pf repository.ProfileRepository,
	sr repository.SeriesRepository,
	tr repository.TemplateRepository,
	ai GeminiService,
	st StorageService,
	nt NotifierService) GeneratorService {
	return &generatorService{
		cfg: cfg,
		pr:  pr,
		pf:  pf,
		sr:  sr,
		tr:  tr,
		ai:  ai,
		st:  st,
		nt:  nt,
	}
}

// RunSweep drafts content for every scheduled post whose slot falls inside
// the generation window. A post that fails stays scheduled and is picked
// up again by the next run; only the batch query itself is a hard error.
func (s *generatorService) RunSweep(ctx context.Context) (*transfer.SweepResult, error) {
	started := time.Now()
	result := &transfer.SweepResult{RunID: uuid.NewString(), Success: true}
	defer func() { observeSweep(sweepKindGenerate, result, started) }()

	now := time.Now()
	posts, err := s.pr.ListScheduledInWindow(ctx, now, now.Add(generationWindow))
	if err != nil {
		return nil, err
	}

	for _, post := range posts {
		profile, found, err := s.pf.GetByUserID(ctx, post.UserID)
		if err != nil {
			result.Add(post.ID, post.UserID, transfer.SweepResultError, err.Error())
			continue
		}
		if !found {
			result.Add(post.ID, post.UserID, transfer.SweepResultSkipped, "no autoposter profile")
			continue
		}

		if err := s.generate(ctx, post, profile, now); err != nil {
			slog.Info(err.Error())
			result.Add(post.ID, post.UserID, outcomeForGenerationError(err), reasonFromError(err))
			continue
		}
		result.Add(post.ID, post.UserID, transfer.SweepResultGenerated, "")
	}

	return result, nil
}

// GenerateNow drafts one scheduled post immediately on behalf of its owner,
// skipping the window check.
func (s *generatorService) GenerateNow(ctx context.Context, userID, postID int64) error {
	post, profile, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if post.Status != models.PostStatusScheduled {
		err = fmt.Errorf("post is %s, only scheduled posts can be generated", post.Status)
		slog.Info(err.Error())
		return err
	}

	return s.generate(ctx, post, profile, time.Now())
}

// Regenerate redoes the draft of a reviewed post. Posts that already have a
// draft in front of the reviewer are regenerated in place; rejected, failed,
// and skipped posts are reset to scheduled so the next sweep redrafts them.
func (s *generatorService) Regenerate(ctx context.Context, userID, postID int64) error {
	post, profile, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	switch post.Status {
	case models.PostStatusPendingReview, models.PostStatusApproved:
		return s.regenerateInPlace(ctx, post, profile)
	case models.PostStatusRejected, models.PostStatusFailed, models.PostStatusSkipped:
		reset, err := s.pr.ClearDraft(ctx, post.ID, post.Status, models.PostStatusScheduled, "")
		if err != nil {
			return err
		}
		if !reset {
			err = errors.New("post changed state while resetting it")
			slog.Info(err.Error())
			return err
		}
		return nil
	case models.PostStatusScheduled:
		err = errors.New("post has no draft yet")
		slog.Info(err.Error())
		return err
	default:
		err = fmt.Errorf("post is %s and cannot be regenerated", post.Status)
		slog.Info(err.Error())
		return err
	}
}

func (s *generatorService) ownedPost(ctx context.Context, userID, postID int64) (*models.Post, *models.AutoposterProfile, error) {
	if userID == 0 {
		err := errors.New("User is not valid")
		slog.Info(err.Error())
		return nil, nil, err
	}

	isOwner, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, nil, err
	}
	if !isOwner {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return nil, nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	if post == nil {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return nil, nil, err
	}

	profile, found, err := s.pf.GetByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		err = errors.New("autoposter profile not found")
		slog.Info(err.Error())
		return nil, nil, err
	}

	return post, profile, nil
}

var (
	errDraftSuperseded      = errors.New("post left the scheduled state while generating")
	errProfileMisconfigured = errors.New("profile configuration is invalid")
)

// generate drafts the post content and moves scheduled -> pending_review.
// The review deadline is computed up front so a misconfigured profile skips
// the post before any provider call is made.
func (s *generatorService) generate(ctx context.Context, post *models.Post, profile *models.AutoposterProfile, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, postGenerationTimeout)
	defer cancel()

	deadline, err := ReviewDeadlineAt(post.ScheduledFor, profile.Timezone, profile.ReviewDeadlineHour, now)
	if err != nil {
		return fmt.Errorf("%w: %v", errProfileMisconfigured, err)
	}
	post.ReviewDeadline = &deadline

	if err := s.buildDraft(ctx, post, profile); err != nil {
		return err
	}

	stored, err := s.pr.StoreDraft(ctx, post)
	if err != nil {
		return err
	}
	if !stored {
		return errDraftSuperseded
	}

	s.nt.Notify(ctx, queue.NotificationPayload{
		UserID: post.UserID,
		PostID: &post.ID,
		Type:   models.NotificationDraftReady,
		Title:  "A draft is ready for review",
		Body:   fmt.Sprintf("Your post about %q is drafted and waiting for your review.", post.Topic),
	})
	return nil
}

func (s *generatorService) regenerateInPlace(ctx context.Context, post *models.Post, profile *models.AutoposterProfile) error {
	ctx, cancel := context.WithTimeout(ctx, postGenerationTimeout)
	defer cancel()

	if err := s.buildDraft(ctx, post, profile); err != nil {
		return err
	}

	replaced, err := s.pr.ReplaceDraftContent(ctx, post)
	if err != nil {
		return err
	}
	if !replaced {
		err = errors.New("post changed state while regenerating")
		slog.Info(err.Error())
		return err
	}
	return nil
}

// buildDraft fills the post's content and media fields from the AI
// provider. It mutates the post but persists nothing.
func (s *generatorService) buildDraft(ctx context.Context, post *models.Post, profile *models.AutoposterProfile) error {
	prompt := &transfer.GenerationPrompt{
		Topic:   post.Topic,
		Notes:   post.Notes,
		Persona: profile.Persona,
	}

	if post.SeriesID != nil {
		series, err := s.sr.GetByID(ctx, *post.SeriesID)
		if err != nil {
			return err
		}
		if series != nil {
			prompt.SeriesTitle = series.Title
			if series.TemplateID != nil {
				template, err := s.tr.GetByID(ctx, *series.TemplateID)
				if err != nil {
					return err
				}
				if template != nil {
					prompt.TemplateHTML = template.HTML
					prompt.PageCount = template.PageCount
				}
			}
		}

		last, err := s.pr.GetLastPublishedInSeries(ctx, *post.SeriesID)
		if err != nil {
			return err
		}
		if last != nil {
			post.PreviousPostSummary = ContinuitySummary(last.FinalText())
			prompt.Continuity = post.PreviousPostSummary
		}
	}

	prompt.Model = s.resolveModel(post, profile)
	mediaType := resolveMediaType(post, profile)

	content, err := s.ai.GenerateText(ctx, prompt)
	if err != nil {
		return err
	}

	post.Content = content
	post.MediaType = mediaType
	post.Model = prompt.Model
	post.Provider = providerGemini
	post.MediaURL = ""
	post.MediaMimeType = ""
	post.HTMLContent = ""
	post.ImageURLs = nil
	post.PageCount = 0

	switch mediaType {
	case models.MediaTypeImage:
		data, mimeType, err := s.ai.GenerateImage(ctx, mediaPrompt(prompt), "")
		if err != nil {
			return err
		}
		url, resolvedMime, err := s.storeMedia(ctx, data, mimeType)
		if err != nil {
			return err
		}
		post.MediaURL = url
		post.MediaMimeType = resolvedMime

	case models.MediaTypeVideo:
		data, mimeType, err := s.ai.GenerateVideo(ctx, mediaPrompt(prompt), "")
		if err != nil {
			return err
		}
		url, resolvedMime, err := s.storeMedia(ctx, data, mimeType)
		if err != nil {
			return err
		}
		post.MediaURL = url
		post.MediaMimeType = resolvedMime

	case models.MediaTypeHTML:
		html, err := s.ai.GenerateHTML(ctx, prompt)
		if err != nil {
			return err
		}
		post.HTMLContent = html
		post.PageCount = prompt.PageCount
		if post.PageCount <= 0 {
			post.PageCount = 1
		}
	}

	return nil
}

func (s *generatorService) storeMedia(ctx context.Context, data []byte, mimeType string) (string, string, error) {
	if mimeType == "" {
		if kind, err := filetype.Match(data); err == nil && kind != types.Unknown {
			mimeType = kind.MIME.Value
		} else {
			mimeType = "application/octet-stream"
		}
	}

	key, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return "", "", err
	}

	url, err := s.st.Upload(ctx, key, data, mimeType)
	if err != nil {
		return "", "", err
	}
	return url, mimeType, nil
}

func (s *generatorService) resolveModel(post *models.Post, profile *models.AutoposterProfile) string {
	if post.Model != "" {
		return post.Model
	}
	if profile.PreferredModel != "" {
		return profile.PreferredModel
	}
	return s.cfg.AI.DefaultModel
}

func resolveMediaType(post *models.Post, profile *models.AutoposterProfile) string {
	if post.MediaType != "" {
		return post.MediaType
	}
	if profile.PreferredMediaType != "" {
		return profile.PreferredMediaType
	}
	return models.MediaTypeText
}

func mediaPrompt(p *transfer.GenerationPrompt) string {
	prompt := "Illustration for a LinkedIn post about: " + p.Topic
	if p.Notes != "" {
		prompt += ". " + p.Notes
	}
	return prompt
}

// outcomeForGenerationError separates lost preconditions and profile
// misconfiguration, which leave the post untouched for a later run, from
// real provider and storage failures.
func outcomeForGenerationError(err error) string {
	if errors.Is(err, errDraftSuperseded) || errors.Is(err, errProfileMisconfigured) {
		return transfer.SweepResultSkipped
	}
	return transfer.SweepResultError
}

func reasonFromError(err error) string {
	var pErr *ProviderError
	if errors.As(err, &pErr) {
		return pErr.Message
	}
	return err.Error()
}
