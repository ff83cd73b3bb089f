package models

import "time"

type Post struct {
	ID                  int64      `db:"id" json:"id"`
	UserID              int64      `db:"user_id" json:"user_id"`
	Status              string     `db:"status" json:"status"` // scheduled, pending_review, approved, rejected, skipped, published, failed
	Topic               string     `db:"topic" json:"topic"`
	Notes               string     `db:"notes" json:"notes"`
	Content             string     `db:"content" json:"content"`
	EditedContent       string     `db:"edited_content" json:"edited_content"`
	MediaType           string     `db:"media_type" json:"media_type"` // text, image, video, html
	MediaURL            string     `db:"media_url" json:"media_url"`
	MediaMimeType       string     `db:"media_mime_type" json:"media_mime_type"`
	HTMLContent         string     `db:"html_content" json:"html_content"`
	ImageURLs           []string   `db:"image_urls" json:"image_urls"`
	PageCount           int        `db:"page_count" json:"page_count"`
	Provider            string     `db:"provider" json:"provider"`
	Model               string     `db:"model" json:"model"`
	LinkedinMediaAsset  string     `db:"linkedin_media_asset" json:"linkedin_media_asset"`
	LinkedinPostID      string     `db:"linkedin_post_id" json:"linkedin_post_id"`
	FailureReason       string     `db:"failure_reason" json:"failure_reason"`
	ScheduledFor        time.Time  `db:"scheduled_for" json:"scheduled_for"`
	ReviewDeadline      *time.Time `db:"review_deadline" json:"review_deadline"`
	PublishedAt         *time.Time `db:"published_at" json:"published_at"`
	SeriesID            *int64     `db:"series_id" json:"series_id"`
	TopicIndex          *int64     `db:"topic_index" json:"topic_index"`
	PreviousPostSummary string     `db:"previous_post_summary" json:"previous_post_summary"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusScheduled     = "scheduled"
	PostStatusPendingReview = "pending_review"
	PostStatusApproved      = "approved"
	PostStatusRejected      = "rejected"
	PostStatusSkipped       = "skipped"
	PostStatusPublished     = "published"
	PostStatusFailed        = "failed"
)

const (
	MediaTypeText  = "text"
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
	MediaTypeHTML  = "html"
)

// validTransitions is the closed set of status changes the sweeps and the
// review API may request. Every status write in the repository carries the
// from-status as a precondition.
var validTransitions = map[string][]string{
	PostStatusScheduled:     {PostStatusPendingReview},
	PostStatusPendingReview: {PostStatusApproved, PostStatusRejected, PostStatusSkipped, PostStatusScheduled},
	PostStatusApproved:      {PostStatusPublished, PostStatusFailed},
	PostStatusRejected:      {PostStatusScheduled},
	PostStatusFailed:        {PostStatusApproved, PostStatusScheduled},
	PostStatusSkipped:       {PostStatusScheduled},
	PostStatusPublished:     {},
}

func CanTransition(from, to string) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether the pipeline is done with a post. The
// review API can still revive skipped posts through regeneration.
func IsTerminalStatus(status string) bool {
	return status == PostStatusPublished || status == PostStatusSkipped
}

// FinalText is the text that goes to LinkedIn: the user's edit when one
// exists, otherwise the generated content.
func (p *Post) FinalText() string {
	if p.EditedContent != "" {
		return p.EditedContent
	}
	return p.Content
}
