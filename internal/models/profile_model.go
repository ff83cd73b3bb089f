package models

import "time"

// DaySchedule is one weekday entry of the posting schedule. PostTime is a
// local wall-clock time ("15:04") interpreted in the profile's Timezone.
type DaySchedule struct {
	Enabled  bool   `json:"enabled"`
	PostTime string `json:"post_time"`
}

type AutoposterProfile struct {
	ID                   int64          `db:"id" json:"id"`
	UserID               int64          `db:"user_id" json:"user_id"`
	PostingSchedule      [7]DaySchedule `db:"posting_schedule" json:"posting_schedule"` // index 0 = Sunday
	Timezone             string         `db:"timezone" json:"timezone"`
	DraftGenerationHour  int            `db:"draft_generation_hour" json:"draft_generation_hour"`
	ReviewDeadlineHour   int            `db:"review_deadline_hour" json:"review_deadline_hour"`
	PreferredMediaType   string         `db:"preferred_media_type" json:"preferred_media_type"`
	PreferredProvider    string         `db:"preferred_provider" json:"preferred_provider"`
	PreferredModel       string         `db:"preferred_model" json:"preferred_model"`
	Persona              string         `db:"persona" json:"persona"`
	LinkedinConnected    bool           `db:"linkedin_connected" json:"linkedin_connected"`
	LinkedinMemberURN    string         `db:"linkedin_member_urn" json:"-"`
	LinkedinAccessToken  string         `db:"linkedin_access_token" json:"-"`
	LinkedinRefreshToken string         `db:"linkedin_refresh_token" json:"-"`
	LinkedinTokenExpiry  time.Time      `db:"linkedin_token_expiry" json:"-"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}

// TokenExpired reports whether the stored LinkedIn access token is past
// (or within a minute of) its expiry.
func (p *AutoposterProfile) TokenExpired(now time.Time) bool {
	if p.LinkedinTokenExpiry.IsZero() {
		return true
	}
	return !now.Add(time.Minute).Before(p.LinkedinTokenExpiry)
}
