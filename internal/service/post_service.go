package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/postforge/autoposter/internal/models"
	"github.com/postforge/autoposter/internal/repository"
	"github.com/postforge/autoposter/internal/transfer"
)

type PostService interface {
	List(ctx context.Context, userID int64, status string) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	Approve(ctx context.Context, userID, postID int64, req *transfer.ApprovePostRequest, pages []*multipart.FileHeader) error
	Reject(ctx context.Context, userID, postID int64, reason string) error
	Attempts(ctx context.Context, userID, postID int64) ([]*models.PublishAttempt, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	pr repository.PostRepository
	pa repository.PublishAttemptRepository
	st StorageService
}

func NewPostService(
	pr repository.PostRepository,
	pa repository.PublishAttemptRepository,
	st StorageService) PostService {
	return &postService{
		pr: pr,
		pa: pa,
		st: st,
	}
}

func (s *postService) List(ctx context.Context, userID int64, status string) ([]*models.Post, error) {
	if status != "" && !knownStatus(status) {
		err := fmt.Errorf("unknown status %q", status)
		slog.Info(err.Error())
		return nil, err
	}
	return s.pr.ListByUserID(ctx, userID, status)
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	return s.ownedPost(ctx, userID, postID)
}

// Approve accepts a pending draft, optionally with the reviewer's edited
// text. For html posts the rendered page captures come along as multipart
// files and are persisted to storage in their display order.
func (s *postService) Approve(ctx context.Context, userID, postID int64, req *transfer.ApprovePostRequest, pages []*multipart.FileHeader) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if post.Status != models.PostStatusPendingReview {
		err = fmt.Errorf("post is %s, only pending posts can be approved", post.Status)
		slog.Info(err.Error())
		return err
	}

	var imageURLs []string
	if post.MediaType == models.MediaTypeHTML {
		if len(pages) == 0 {
			err = errors.New("rendered page images are required to approve an html post")
			slog.Info(err.Error())
			return err
		}
		imageURLs, err = s.storePages(ctx, pages)
		if err != nil {
			return err
		}
	}

	editedContent := ""
	if req != nil {
		editedContent = req.EditedContent
	}

	approved, err := s.pr.Approve(ctx, postID, editedContent, imageURLs)
	if err != nil {
		return err
	}
	if !approved {
		err = errors.New("post changed state while approving")
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Reject discards the draft. The post keeps its slot and topic and waits
// for an explicit regenerate.
func (s *postService) Reject(ctx context.Context, userID, postID int64, reason string) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if post.Status != models.PostStatusPendingReview {
		err = fmt.Errorf("post is %s, only pending posts can be rejected", post.Status)
		slog.Info(err.Error())
		return err
	}

	rejected, err := s.pr.ClearDraft(ctx, postID, models.PostStatusPendingReview, models.PostStatusRejected, reason)
	if err != nil {
		return err
	}
	if !rejected {
		err = errors.New("post changed state while rejecting")
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (s *postService) Attempts(ctx context.Context, userID, postID int64) ([]*models.PublishAttempt, error) {
	if _, err := s.ownedPost(ctx, userID, postID); err != nil {
		return nil, err
	}
	return s.pa.ListByPostID(ctx, postID)
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	if _, err := s.ownedPost(ctx, userID, postID); err != nil {
		return err
	}

	err := s.pr.Remove(ctx, postID)
	if err != nil {
		return fmt.Errorf("Error removing post")
	}
	return nil
}

func (s *postService) ownedPost(ctx context.Context, userID, postID int64) (*models.Post, error) {
	if userID == 0 {
		err := errors.New("User is not valid")
		slog.Info(err.Error())
		return nil, err
	}
	if postID == 0 {
		err := errors.New("post id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("Error getting post info")
	}
	if post == nil {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

// storePages uploads rendered carousel pages in the order they were sent.
func (s *postService) storePages(ctx context.Context, pages []*multipart.FileHeader) ([]string, error) {
	allowedTypes := map[string]struct{}{
		"jpg": {}, "png": {},
	}

	urls := make([]string, 0, len(pages))
	for _, page := range pages {
		pageContent, err := page.Open()
		if err != nil {
			return nil, fmt.Errorf("error opening file: %w", err)
		}

		pageBytes, err := io.ReadAll(pageContent)
		pageContent.Close()
		if err != nil {
			return nil, fmt.Errorf("error reading file content: %w", err)
		}

		pageType, err := filetype.Match(pageBytes)
		if err != nil || pageType == types.Unknown {
			return nil, errors.New("unsupported file type")
		}
		if _, ok := allowedTypes[pageType.Extension]; !ok {
			return nil, fmt.Errorf("file type %s is not allowed", pageType.Extension)
		}

		key, err := gonanoid.New()
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}

		url, err := s.st.Upload(ctx, key, pageBytes, pageType.MIME.Value)
		if err != nil {
			return nil, fmt.Errorf("error uploading file: %w", err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func knownStatus(status string) bool {
	switch status {
	case models.PostStatusScheduled, models.PostStatusPendingReview, models.PostStatusApproved,
		models.PostStatusRejected, models.PostStatusSkipped, models.PostStatusPublished, models.PostStatusFailed:
		return true
	}
	return false
}
