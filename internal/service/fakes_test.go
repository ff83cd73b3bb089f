package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/postforge/autoposter/internal/models"
	"github.com/postforge/autoposter/internal/queue"
	"github.com/postforge/autoposter/internal/transfer"
)

// In-memory repository fakes. Conditional updates honor the same
// preconditions as the SQL they stand in for, so the race-handling paths
// can be exercised by flipping state between calls.

type fakePostRepo struct {
	mu     sync.Mutex
	nextID int64
	posts  map[int64]*models.Post
	order  []int64

	listErr error
	// afterListPending runs after ListPendingReviewBefore snapshots its
	// result, before the caller acts on it.
	afterListPending func()
	// afterGet runs after GetByID snapshots its result, before the
	// caller acts on it.
	afterGet func()
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[int64]*models.Post)}
}

func clonePost(p *models.Post) *models.Post {
	cp := *p
	return &cp
}

func (f *fakePostRepo) add(post *models.Post) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	post.ID = f.nextID
	f.posts[post.ID] = clonePost(post)
	f.order = append(f.order, post.ID)
	return post.ID
}

func (f *fakePostRepo) get(id int64) *models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts[id]
}

func (f *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	return f.add(post), nil
}

func (f *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	f.mu.Lock()
	post, ok := f.posts[id]
	var cp *models.Post
	if ok {
		cp = clonePost(post)
	}
	f.mu.Unlock()
	if f.afterGet != nil {
		f.afterGet()
	}
	return cp, nil
}

func (f *fakePostRepo) ListByUserID(ctx context.Context, userID int64, status string) ([]*models.Post, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Post
	for _, id := range f.order {
		p := f.posts[id]
		if p.UserID == userID && (status == "" || p.Status == status) {
			out = append(out, clonePost(p))
		}
	}
	return out, nil
}

func (f *fakePostRepo) ListScheduledInWindow(ctx context.Context, from, to time.Time) ([]*models.Post, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Post
	for _, id := range f.order {
		p := f.posts[id]
		if p.Status == models.PostStatusScheduled && !p.ScheduledFor.Before(from) && p.ScheduledFor.Before(to) {
			out = append(out, clonePost(p))
		}
	}
	return out, nil
}

func (f *fakePostRepo) ListPendingReviewBefore(ctx context.Context, deadline time.Time) ([]*models.Post, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	var out []*models.Post
	for _, id := range f.order {
		p := f.posts[id]
		if p.Status == models.PostStatusPendingReview && p.ReviewDeadline != nil && !p.ReviewDeadline.After(deadline) {
			out = append(out, clonePost(p))
		}
	}
	f.mu.Unlock()
	if f.afterListPending != nil {
		f.afterListPending()
	}
	return out, nil
}

func (f *fakePostRepo) ListApprovedDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Post
	for _, id := range f.order {
		p := f.posts[id]
		if p.Status == models.PostStatusApproved && !p.ScheduledFor.After(now) {
			out = append(out, clonePost(p))
		}
	}
	return out, nil
}

func (f *fakePostRepo) GetLastPublishedInSeries(ctx context.Context, seriesID int64) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *models.Post
	for _, id := range f.order {
		p := f.posts[id]
		if p.Status != models.PostStatusPublished || p.SeriesID == nil || *p.SeriesID != seriesID {
			continue
		}
		if last == nil || (p.PublishedAt != nil && last.PublishedAt != nil && p.PublishedAt.After(*last.PublishedAt)) {
			last = p
		}
	}
	if last == nil {
		return nil, nil
	}
	return clonePost(last), nil
}

func (f *fakePostRepo) HasUpcomingPost(ctx context.Context, userID int64, from time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.order {
		p := f.posts[id]
		if p.UserID != userID || p.ScheduledFor.Before(from) {
			continue
		}
		switch p.Status {
		case models.PostStatusScheduled, models.PostStatusPendingReview, models.PostStatusApproved:
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePostRepo) StoreDraft(ctx context.Context, post *models.Post) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.posts[post.ID]
	if !ok || stored.Status != models.PostStatusScheduled {
		return false, nil
	}
	stored.Status = models.PostStatusPendingReview
	stored.Content = post.Content
	stored.MediaType = post.MediaType
	stored.MediaURL = post.MediaURL
	stored.MediaMimeType = post.MediaMimeType
	stored.HTMLContent = post.HTMLContent
	stored.ImageURLs = post.ImageURLs
	stored.PageCount = post.PageCount
	stored.Provider = post.Provider
	stored.Model = post.Model
	stored.PreviousPostSummary = post.PreviousPostSummary
	stored.ReviewDeadline = post.ReviewDeadline
	stored.FailureReason = ""
	return true, nil
}

func (f *fakePostRepo) ReplaceDraftContent(ctx context.Context, post *models.Post) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.posts[post.ID]
	if !ok || stored.Status != post.Status {
		return false, nil
	}
	stored.Content = post.Content
	stored.EditedContent = ""
	stored.MediaType = post.MediaType
	stored.MediaURL = post.MediaURL
	stored.MediaMimeType = post.MediaMimeType
	stored.HTMLContent = post.HTMLContent
	stored.ImageURLs = post.ImageURLs
	stored.PageCount = post.PageCount
	stored.Provider = post.Provider
	stored.Model = post.Model
	stored.PreviousPostSummary = post.PreviousPostSummary
	stored.LinkedinMediaAsset = ""
	return true, nil
}

func (f *fakePostRepo) UpdateStatus(ctx context.Context, postID int64, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.posts[postID]
	if !ok || stored.Status != from {
		return false, nil
	}
	stored.Status = to
	return true, nil
}

func (f *fakePostRepo) Approve(ctx context.Context, postID int64, editedContent string, imageURLs []string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.posts[postID]
	if !ok || stored.Status != models.PostStatusPendingReview {
		return false, nil
	}
	stored.Status = models.PostStatusApproved
	if editedContent != "" {
		stored.EditedContent = editedContent
	}
	if imageURLs != nil {
		stored.ImageURLs = imageURLs
	}
	return true, nil
}

func (f *fakePostRepo) ClearDraft(ctx context.Context, postID int64, from, to, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.posts[postID]
	if !ok || stored.Status != from {
		return false, nil
	}
	stored.Status = to
	stored.Content = ""
	stored.EditedContent = ""
	stored.MediaURL = ""
	stored.MediaMimeType = ""
	stored.HTMLContent = ""
	stored.ImageURLs = nil
	stored.LinkedinMediaAsset = ""
	stored.FailureReason = reason
	stored.ReviewDeadline = nil
	return true, nil
}

func (f *fakePostRepo) MarkPublished(ctx context.Context, postID int64, linkedinPostID string, publishedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.posts[postID]
	if !ok || stored.Status != models.PostStatusApproved {
		return false, nil
	}
	stored.Status = models.PostStatusPublished
	stored.LinkedinPostID = linkedinPostID
	stored.PublishedAt = &publishedAt
	stored.FailureReason = ""
	return true, nil
}

func (f *fakePostRepo) MarkFailed(ctx context.Context, postID int64, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.posts[postID]
	if !ok || stored.Status != models.PostStatusApproved {
		return false, nil
	}
	stored.Status = models.PostStatusFailed
	stored.FailureReason = reason
	return true, nil
}

func (f *fakePostRepo) SetMediaAsset(ctx context.Context, postID int64, asset string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if stored, ok := f.posts[postID]; ok {
		stored.LinkedinMediaAsset = asset
	}
	return nil
}

func (f *fakePostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.posts[postID]
	return ok && stored.UserID == userID, nil
}

func (f *fakePostRepo) Remove(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.posts, id)
	return nil
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[int64]*models.AutoposterProfile

	updateTokenErr error
	tokenUpdates   int
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[int64]*models.AutoposterProfile)}
}

func (f *fakeProfileRepo) add(p *models.AutoposterProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.profiles[p.UserID] = &cp
}

func (f *fakeProfileRepo) Create(ctx context.Context, profile *models.AutoposterProfile) (int64, error) {
	f.add(profile)
	return profile.UserID, nil
}

func (f *fakeProfileRepo) GetByUserID(ctx context.Context, userID int64) (*models.AutoposterProfile, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, false, nil
	}
	cp := *p
	return &cp, true, nil
}

func (f *fakeProfileRepo) List(ctx context.Context) ([]*models.AutoposterProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.AutoposterProfile, 0, len(f.profiles))
	for _, p := range f.profiles {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeProfileRepo) ListTokenExpiring(ctx context.Context, from, to time.Time) ([]*models.AutoposterProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.AutoposterProfile
	for _, p := range f.profiles {
		if p.LinkedinConnected && p.LinkedinRefreshToken != "" &&
			!p.LinkedinTokenExpiry.Before(from) && !p.LinkedinTokenExpiry.After(to) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeProfileRepo) Update(ctx context.Context, profile *models.AutoposterProfile) error {
	f.add(profile)
	return nil
}

func (f *fakeProfileRepo) ConnectLinkedin(ctx context.Context, userID int64, memberURN, accessToken, refreshToken string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil
	}
	p.LinkedinConnected = true
	p.LinkedinMemberURN = memberURN
	p.LinkedinAccessToken = accessToken
	p.LinkedinRefreshToken = refreshToken
	p.LinkedinTokenExpiry = expiry
	return nil
}

func (f *fakeProfileRepo) DisconnectLinkedin(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil
	}
	p.LinkedinConnected = false
	p.LinkedinMemberURN = ""
	p.LinkedinAccessToken = ""
	p.LinkedinRefreshToken = ""
	p.LinkedinTokenExpiry = time.Time{}
	return nil
}

func (f *fakeProfileRepo) UpdateLinkedinToken(ctx context.Context, userID int64, oldAccessToken, accessToken, refreshToken string, expiry time.Time) error {
	if f.updateTokenErr != nil {
		return f.updateTokenErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok || p.LinkedinAccessToken != oldAccessToken {
		return errNoRowsAffected
	}
	f.tokenUpdates++
	if accessToken != "" {
		p.LinkedinAccessToken = accessToken
	}
	if refreshToken != "" {
		p.LinkedinRefreshToken = refreshToken
	}
	p.LinkedinTokenExpiry = expiry
	return nil
}

var errNoRowsAffected = errFake("no rows affected; token was already replaced")

type errFake string

func (e errFake) Error() string { return string(e) }

type fakeSeriesRepo struct {
	mu     sync.Mutex
	nextID int64
	series map[int64]*models.Series
}

func newFakeSeriesRepo() *fakeSeriesRepo {
	return &fakeSeriesRepo{series: make(map[int64]*models.Series)}
}

func (f *fakeSeriesRepo) add(s *models.Series) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s.ID = f.nextID
	cp := *s
	f.series[s.ID] = &cp
	return s.ID
}

func (f *fakeSeriesRepo) get(id int64) *models.Series {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.series[id]
}

func (f *fakeSeriesRepo) Create(ctx context.Context, series *models.Series) (int64, error) {
	series.CurrentIndex = 0
	return f.add(series), nil
}

func (f *fakeSeriesRepo) GetByID(ctx context.Context, id int64) (*models.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.series[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSeriesRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Series
	for _, s := range f.series {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeSeriesRepo) GetActiveByUserID(ctx context.Context, userID int64) (*models.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.series {
		if s.UserID == userID && s.CurrentIndex < len(s.TopicQueue) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeSeriesRepo) AdvanceIndex(ctx context.Context, seriesID int64, expectedIndex int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.series[seriesID]
	if !ok || s.CurrentIndex != expectedIndex || expectedIndex >= len(s.TopicQueue) {
		return false, nil
	}
	s.CurrentIndex++
	return true, nil
}

func (f *fakeSeriesRepo) Update(ctx context.Context, series *models.Series) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *series
	f.series[series.ID] = &cp
	return nil
}

func (f *fakeSeriesRepo) Remove(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.series, id)
	return nil
}

type fakeIdeaRepo struct {
	mu     sync.Mutex
	nextID int64
	ideas  []*models.Idea

	// raceOnce makes the next MarkUsed lose as if a concurrent selection
	// consumed the idea first.
	raceOnce bool
}

func newFakeIdeaRepo() *fakeIdeaRepo {
	return &fakeIdeaRepo{}
}

func (f *fakeIdeaRepo) add(idea *models.Idea) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	idea.ID = f.nextID
	cp := *idea
	f.ideas = append(f.ideas, &cp)
	return idea.ID
}

func (f *fakeIdeaRepo) Create(ctx context.Context, idea *models.Idea) (int64, error) {
	return f.add(idea), nil
}

func (f *fakeIdeaRepo) GetByID(ctx context.Context, id int64) (*models.Idea, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, idea := range f.ideas {
		if idea.ID == id {
			cp := *idea
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeIdeaRepo) ListByUserID(ctx context.Context, userID int64, includeUsed bool) ([]*models.Idea, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Idea
	for _, idea := range f.ideas {
		if idea.UserID != userID {
			continue
		}
		if !includeUsed && idea.Used {
			continue
		}
		cp := *idea
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeIdeaRepo) GetFirstUnused(ctx context.Context, userID int64, seriesID *int64) (*models.Idea, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if seriesID != nil {
		for _, idea := range f.ideas {
			if idea.UserID == userID && !idea.Used && idea.SeriesID != nil && *idea.SeriesID == *seriesID {
				cp := *idea
				return &cp, nil
			}
		}
		for _, idea := range f.ideas {
			if idea.UserID == userID && !idea.Used && idea.SeriesID == nil {
				cp := *idea
				return &cp, nil
			}
		}
		return nil, nil
	}
	for _, idea := range f.ideas {
		if idea.UserID == userID && !idea.Used {
			cp := *idea
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeIdeaRepo) MarkUsed(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, idea := range f.ideas {
		if idea.ID != id {
			continue
		}
		if idea.Used {
			return false, nil
		}
		idea.Used = true
		if f.raceOnce {
			f.raceOnce = false
			return false, nil
		}
		return true, nil
	}
	return false, nil
}

func (f *fakeIdeaRepo) Remove(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, idea := range f.ideas {
		if idea.ID == id {
			f.ideas = append(f.ideas[:i], f.ideas[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeTemplateRepo struct {
	mu        sync.Mutex
	nextID    int64
	templates map[int64]*models.Template
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: make(map[int64]*models.Template)}
}

func (f *fakeTemplateRepo) add(t *models.Template) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t.ID = f.nextID
	cp := *t
	f.templates[t.ID] = &cp
	return t.ID
}

func (f *fakeTemplateRepo) Create(ctx context.Context, template *models.Template) (int64, error) {
	return f.add(template), nil
}

func (f *fakeTemplateRepo) GetByID(ctx context.Context, id int64) (*models.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTemplateRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Template
	for _, t := range f.templates {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTemplateRepo) Remove(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.templates, id)
	return nil
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts []*models.PublishAttempt
}

func (f *fakeAttemptRepo) Create(ctx context.Context, attempt *models.PublishAttempt) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *attempt
	cp.ID = int64(len(f.attempts) + 1)
	f.attempts = append(f.attempts, &cp)
	return cp.ID, nil
}

func (f *fakeAttemptRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PublishAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PublishAttempt
	for _, a := range f.attempts {
		if a.PostID == postID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAttemptRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.PublishAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PublishAttempt
	for _, a := range f.attempts {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Collaborator fakes.

type fakeNotifier struct {
	mu       sync.Mutex
	payloads []queue.NotificationPayload
}

func (f *fakeNotifier) Notify(ctx context.Context, payload queue.NotificationPayload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
}

func (f *fakeNotifier) byType(notificationType string) []queue.NotificationPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []queue.NotificationPayload
	for _, p := range f.payloads {
		if p.Type == notificationType {
			out = append(out, p)
		}
	}
	return out
}

type fakeTopicSelector struct {
	selection *transfer.TopicSelection
	err       error
	calls     int
}

func (f *fakeTopicSelector) SelectTopic(ctx context.Context, userID int64, seriesID *int64) (*transfer.TopicSelection, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.selection
	return &cp, nil
}

type fakeGemini struct {
	text    string
	textErr error
	// onText runs before GenerateText returns, inside the generation of
	// one post, which is where draft races happen.
	onText func()

	html      string
	htmlErr   error
	image     []byte
	imageMime string
	imageErr  error
	video     []byte
	videoErr  error

	prompts []*transfer.GenerationPrompt
}

func (f *fakeGemini) GenerateText(ctx context.Context, p *transfer.GenerationPrompt) (string, error) {
	cp := *p
	f.prompts = append(f.prompts, &cp)
	if f.onText != nil {
		f.onText()
	}
	if f.textErr != nil {
		return "", f.textErr
	}
	if f.text == "" {
		return "generated content", nil
	}
	return f.text, nil
}

func (f *fakeGemini) GenerateImage(ctx context.Context, prompt, model string) ([]byte, string, error) {
	if f.imageErr != nil {
		return nil, "", f.imageErr
	}
	return f.image, f.imageMime, nil
}

func (f *fakeGemini) GenerateVideo(ctx context.Context, prompt, model string) ([]byte, string, error) {
	if f.videoErr != nil {
		return nil, "", f.videoErr
	}
	return f.video, "video/mp4", nil
}

func (f *fakeGemini) GenerateHTML(ctx context.Context, p *transfer.GenerationPrompt) (string, error) {
	cp := *p
	f.prompts = append(f.prompts, &cp)
	if f.htmlErr != nil {
		return "", f.htmlErr
	}
	if f.html == "" {
		return "<html><section class=\"page\">one</section></html>", nil
	}
	return f.html, nil
}

type storedObject struct {
	key         string
	contentType string
	data        []byte
}

type fakeStorage struct {
	mu      sync.Mutex
	uploads []storedObject
	err     error
}

func (f *fakeStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, storedObject{key: key, contentType: contentType, data: data})
	return "https://cdn.test/" + key, nil
}

type createdPost struct {
	author string
	text   string
	assets []string
}

type fakeLinkedin struct {
	mu sync.Mutex

	token      string
	tokenErr   error
	tokenCalls int

	imageAssets []string
	imageCalls  int
	imageErr    error

	videoAsset string
	videoCalls int
	videoErr   error

	postID    string
	createErr error
	created   []createdPost
	// onCreate runs after the remote post is created, before the local
	// state is updated.
	onCreate func()
}

func (f *fakeLinkedin) GetAuthURL(state string) string { return "https://linkedin.test/auth" }

func (f *fakeLinkedin) LinkedinCallback(ctx context.Context, code string, userID int64) error {
	return nil
}

func (f *fakeLinkedin) Disconnect(ctx context.Context, userID int64) error { return nil }

func (f *fakeLinkedin) EnsureAccessToken(ctx context.Context, profile *models.AutoposterProfile) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenCalls++
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	if f.token == "" {
		return "access-token", nil
	}
	return f.token, nil
}

func (f *fakeLinkedin) UploadImage(ctx context.Context, accessToken, ownerURN string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.imageErr != nil {
		return "", f.imageErr
	}
	asset := "urn:li:image:fake"
	if f.imageCalls < len(f.imageAssets) {
		asset = f.imageAssets[f.imageCalls]
	}
	f.imageCalls++
	return asset, nil
}

func (f *fakeLinkedin) UploadVideo(ctx context.Context, accessToken, ownerURN string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videoCalls++
	if f.videoErr != nil {
		return "", f.videoErr
	}
	if f.videoAsset == "" {
		return "urn:li:video:fake", nil
	}
	return f.videoAsset, nil
}

func (f *fakeLinkedin) CreatePost(ctx context.Context, accessToken, authorURN, text string, assetURNs []string) (string, error) {
	f.mu.Lock()
	f.created = append(f.created, createdPost{author: authorURN, text: text, assets: assetURNs})
	onCreate := f.onCreate
	f.mu.Unlock()
	if onCreate != nil {
		onCreate()
	}
	if f.createErr != nil {
		return "", f.createErr
	}
	if f.postID == "" {
		return "urn:li:share:123", nil
	}
	return f.postID, nil
}

// Builders.

func allWeekSchedule(postTime string) [7]models.DaySchedule {
	var schedule [7]models.DaySchedule
	for i := range schedule {
		schedule[i] = models.DaySchedule{Enabled: true, PostTime: postTime}
	}
	return schedule
}

func testProfile(userID int64) *models.AutoposterProfile {
	return &models.AutoposterProfile{
		ID:                 userID,
		UserID:             userID,
		PostingSchedule:    allWeekSchedule("09:00"),
		Timezone:           "UTC",
		ReviewDeadlineHour: 8,
		PreferredMediaType: models.MediaTypeText,
		LinkedinConnected:  true,
		LinkedinMemberURN:  "urn:li:person:abc",
	}
}
