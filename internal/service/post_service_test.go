package service

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"strings"
	"testing"
	"time"

	"github.com/postforge/autoposter/internal/models"
	"github.com/postforge/autoposter/internal/transfer"
)

type postFixture struct {
	posts    *fakePostRepo
	attempts *fakeAttemptRepo
	storage  *fakeStorage
	svc      PostService
}

func newPostFixture() *postFixture {
	posts := newFakePostRepo()
	attempts := &fakeAttemptRepo{}
	storage := &fakeStorage{}
	return &postFixture{
		posts:    posts,
		attempts: attempts,
		storage:  storage,
		svc:      NewPostService(posts, attempts, storage),
	}
}

func addReviewPost(posts *fakePostRepo, userID int64, mediaType string) int64 {
	deadline := time.Now().Add(4 * time.Hour)
	return posts.add(&models.Post{
		UserID:         userID,
		Topic:          "how to hire your first engineer",
		Status:         models.PostStatusPendingReview,
		MediaType:      mediaType,
		Content:        "draft body",
		ScheduledFor:   time.Now().Add(24 * time.Hour),
		ReviewDeadline: &deadline,
	})
}

// pageFiles builds multipart file headers the way fiber hands them to the
// approve handler.
func pageFiles(t *testing.T, pages ...[]byte) []*multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for i, page := range pages {
		fw, err := w.CreateFormFile("pages", fmt.Sprintf("page-%d.png", i+1))
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write(page); err != nil {
			t.Fatalf("write page: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("ReadForm: %v", err)
	}
	return form.File["pages"]
}

func TestApproveTextPostKeepsEditedContent(t *testing.T) {
	f := newPostFixture()
	postID := addReviewPost(f.posts, 7, models.MediaTypeText)

	req := &transfer.ApprovePostRequest{EditedContent: "draft body, polished"}
	if err := f.svc.Approve(context.Background(), 7, postID, req, nil); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	post := f.posts.get(postID)
	if post.Status != models.PostStatusApproved {
		t.Errorf("status = %s, want %s", post.Status, models.PostStatusApproved)
	}
	if post.EditedContent != "draft body, polished" {
		t.Errorf("edited content = %q", post.EditedContent)
	}
	if post.Content != "draft body" {
		t.Errorf("original draft = %q, want untouched", post.Content)
	}
	if len(f.storage.uploads) != 0 {
		t.Errorf("uploads = %d, want none for a text post", len(f.storage.uploads))
	}
}

func TestApproveWithoutEditKeepsDraft(t *testing.T) {
	f := newPostFixture()
	postID := addReviewPost(f.posts, 7, models.MediaTypeText)

	if err := f.svc.Approve(context.Background(), 7, postID, nil, nil); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	post := f.posts.get(postID)
	if post.Status != models.PostStatusApproved {
		t.Errorf("status = %s, want %s", post.Status, models.PostStatusApproved)
	}
	if post.EditedContent != "" {
		t.Errorf("edited content = %q, want empty", post.EditedContent)
	}
}

func TestApproveHTMLPostStoresPages(t *testing.T) {
	f := newPostFixture()
	postID := addReviewPost(f.posts, 7, models.MediaTypeHTML)

	png1 := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 1}
	png2 := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 2}
	pages := pageFiles(t, png1, png2)

	if err := f.svc.Approve(context.Background(), 7, postID, nil, pages); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	if len(f.storage.uploads) != 2 {
		t.Fatalf("uploads = %d, want 2", len(f.storage.uploads))
	}
	if !bytes.Equal(f.storage.uploads[0].data, png1) || !bytes.Equal(f.storage.uploads[1].data, png2) {
		t.Error("pages were not uploaded in display order")
	}
	for _, up := range f.storage.uploads {
		if up.contentType != "image/png" {
			t.Errorf("content type = %q, want image/png", up.contentType)
		}
	}

	post := f.posts.get(postID)
	if post.Status != models.PostStatusApproved {
		t.Fatalf("status = %s, want %s", post.Status, models.PostStatusApproved)
	}
	if len(post.ImageURLs) != 2 {
		t.Fatalf("image urls = %v, want 2 entries", post.ImageURLs)
	}
	for i, up := range f.storage.uploads {
		if want := "https://cdn.test/" + up.key; post.ImageURLs[i] != want {
			t.Errorf("image url %d = %q, want %q", i, post.ImageURLs[i], want)
		}
	}
}

func TestApproveHTMLRequiresPages(t *testing.T) {
	f := newPostFixture()
	postID := addReviewPost(f.posts, 7, models.MediaTypeHTML)

	err := f.svc.Approve(context.Background(), 7, postID, nil, nil)
	if err == nil || err.Error() != "rendered page images are required to approve an html post" {
		t.Fatalf("err = %v", err)
	}
	if post := f.posts.get(postID); post.Status != models.PostStatusPendingReview {
		t.Errorf("status = %s, want draft untouched", post.Status)
	}
}

func TestApprovePageTypeValidation(t *testing.T) {
	tests := []struct {
		name    string
		page    []byte
		wantErr string
	}{
		{
			name:    "unrecognized bytes",
			page:    []byte("not an image at all"),
			wantErr: "unsupported file type",
		},
		{
			name:    "gif is recognized but not allowed",
			page:    []byte("GIF89a\x01\x00\x01\x00"),
			wantErr: "file type gif is not allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPostFixture()
			postID := addReviewPost(f.posts, 7, models.MediaTypeHTML)

			err := f.svc.Approve(context.Background(), 7, postID, nil, pageFiles(t, tt.page))
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("err = %v, want %q", err, tt.wantErr)
			}
			if post := f.posts.get(postID); post.Status != models.PostStatusPendingReview {
				t.Errorf("status = %s, want draft untouched", post.Status)
			}
			if len(f.storage.uploads) != 0 {
				t.Errorf("uploads = %d, want none", len(f.storage.uploads))
			}
		})
	}
}

func TestApproveUploadFailureKeepsDraft(t *testing.T) {
	f := newPostFixture()
	f.storage.err = errFake("bucket unavailable")
	postID := addReviewPost(f.posts, 7, models.MediaTypeHTML)

	page := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 1}
	err := f.svc.Approve(context.Background(), 7, postID, nil, pageFiles(t, page))
	if err == nil || !strings.Contains(err.Error(), "error uploading file") {
		t.Fatalf("err = %v", err)
	}
	if post := f.posts.get(postID); post.Status != models.PostStatusPendingReview {
		t.Errorf("status = %s, want draft untouched", post.Status)
	}
}

func TestApproveRequiresPendingReview(t *testing.T) {
	f := newPostFixture()
	postID := f.posts.add(&models.Post{
		UserID:       7,
		Status:       models.PostStatusScheduled,
		MediaType:    models.MediaTypeText,
		ScheduledFor: time.Now().Add(24 * time.Hour),
	})

	err := f.svc.Approve(context.Background(), 7, postID, nil, nil)
	if err == nil || err.Error() != "post is scheduled, only pending posts can be approved" {
		t.Fatalf("err = %v", err)
	}
}

func TestApproveLosesRaceToCutoff(t *testing.T) {
	f := newPostFixture()
	postID := addReviewPost(f.posts, 7, models.MediaTypeText)

	// The cutoff sweep expires the draft between the status read and the
	// conditional approve.
	f.posts.afterGet = func() {
		f.posts.afterGet = nil
		f.posts.UpdateStatus(context.Background(), postID, models.PostStatusPendingReview, models.PostStatusSkipped)
	}

	err := f.svc.Approve(context.Background(), 7, postID, nil, nil)
	if err == nil || err.Error() != "post changed state while approving" {
		t.Fatalf("err = %v", err)
	}
	if post := f.posts.get(postID); post.Status != models.PostStatusSkipped {
		t.Errorf("status = %s, want the sweep's outcome to stand", post.Status)
	}
}

func TestRejectClearsDraft(t *testing.T) {
	f := newPostFixture()
	postID := addReviewPost(f.posts, 7, models.MediaTypeText)
	stored := f.posts.get(postID)
	stored.EditedContent = "half-finished edit"
	slot := stored.ScheduledFor

	if err := f.svc.Reject(context.Background(), 7, postID, "tone is off"); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	post := f.posts.get(postID)
	if post.Status != models.PostStatusRejected {
		t.Fatalf("status = %s, want %s", post.Status, models.PostStatusRejected)
	}
	if post.Content != "" || post.EditedContent != "" || post.ReviewDeadline != nil {
		t.Errorf("draft not cleared: content=%q edited=%q deadline=%v", post.Content, post.EditedContent, post.ReviewDeadline)
	}
	if post.FailureReason != "tone is off" {
		t.Errorf("reason = %q", post.FailureReason)
	}
	if !post.ScheduledFor.Equal(slot) || post.Topic == "" {
		t.Error("rejected post should keep its slot and topic for regeneration")
	}
}

func TestRejectRequiresPendingReview(t *testing.T) {
	f := newPostFixture()
	now := time.Now()
	postID := f.posts.add(&models.Post{
		UserID:       7,
		Status:       models.PostStatusPublished,
		MediaType:    models.MediaTypeText,
		ScheduledFor: now.Add(-24 * time.Hour),
		PublishedAt:  &now,
	})

	err := f.svc.Reject(context.Background(), 7, postID, "too late")
	if err == nil || err.Error() != "post is published, only pending posts can be rejected" {
		t.Fatalf("err = %v", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	f := newPostFixture()
	addReviewPost(f.posts, 7, models.MediaTypeText)
	f.posts.add(&models.Post{UserID: 7, Status: models.PostStatusPublished, ScheduledFor: time.Now().Add(-24 * time.Hour)})
	f.posts.add(&models.Post{UserID: 8, Status: models.PostStatusPublished, ScheduledFor: time.Now().Add(-24 * time.Hour)})

	all, err := f.svc.List(context.Background(), 7, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len(all) = %d, want 2", len(all))
	}

	published, err := f.svc.List(context.Background(), 7, models.PostStatusPublished)
	if err != nil {
		t.Fatalf("List published: %v", err)
	}
	if len(published) != 1 || published[0].Status != models.PostStatusPublished {
		t.Errorf("published = %+v, want the single published post", published)
	}

	if _, err := f.svc.List(context.Background(), 7, "bogus"); err == nil || err.Error() != `unknown status "bogus"` {
		t.Errorf("err = %v, want unknown status rejection", err)
	}
}

func TestAttemptsScopedToPost(t *testing.T) {
	f := newPostFixture()
	postID := addReviewPost(f.posts, 7, models.MediaTypeText)
	otherID := addReviewPost(f.posts, 9, models.MediaTypeText)

	f.attempts.Create(context.Background(), &models.PublishAttempt{UserID: 7, PostID: postID, ErrorMessage: "linkedin rejected the post"})
	f.attempts.Create(context.Background(), &models.PublishAttempt{UserID: 7, PostID: postID, LinkedinPostID: "urn:li:share:123"})
	f.attempts.Create(context.Background(), &models.PublishAttempt{UserID: 9, PostID: otherID})

	attempts, err := f.svc.Attempts(context.Background(), 7, postID)
	if err != nil {
		t.Fatalf("Attempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("len(attempts) = %d, want 2", len(attempts))
	}

	if _, err := f.svc.Attempts(context.Background(), 7, otherID); err == nil || err.Error() != "Post doesn't exist" {
		t.Errorf("err = %v, want ownership rejection", err)
	}
}

func TestRemovePost(t *testing.T) {
	f := newPostFixture()
	postID := addReviewPost(f.posts, 7, models.MediaTypeText)

	if err := f.svc.Remove(context.Background(), 7, postID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if f.posts.get(postID) != nil {
		t.Error("post still present after remove")
	}

	if err := f.svc.Remove(context.Background(), 9, addReviewPost(f.posts, 7, models.MediaTypeText)); err == nil {
		t.Error("expected ownership rejection for another user's post")
	}
}

func TestPostOwnershipGuards(t *testing.T) {
	f := newPostFixture()
	postID := addReviewPost(f.posts, 7, models.MediaTypeText)

	tests := []struct {
		name    string
		userID  int64
		postID  int64
		wantErr string
	}{
		{name: "missing user", userID: 0, postID: postID, wantErr: "User is not valid"},
		{name: "missing post id", userID: 7, postID: 0, wantErr: "post id is not valid"},
		{name: "someone else's post", userID: 9, postID: postID, wantErr: "Post doesn't exist"},
		{name: "unknown post", userID: 7, postID: 404, wantErr: "Post doesn't exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.PostInfo(context.Background(), tt.postID, tt.userID)
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
