package transfer

import "time"

type SchedulePostRequest struct {
	Topic        string     `json:"topic"`
	Notes        string     `json:"notes"`
	SeriesID     *int64     `json:"series_id"`
	MediaType    string     `json:"media_type" validate:"omitempty,oneof=text image video html"`
	Model        string     `json:"model"`
	ScheduledFor *time.Time `json:"scheduled_for"`
}

type ApprovePostRequest struct {
	EditedContent string `json:"edited_content"`
}

type RejectPostRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type CreateSeriesRequest struct {
	Title      string         `json:"title" validate:"required,max=200"`
	Category   string         `json:"category" validate:"max=100"`
	TemplateID *int64         `json:"template_id"`
	Topics     []TopicRequest `json:"topics" validate:"required,min=1,dive"`
}

type TopicRequest struct {
	Title string `json:"title" validate:"required,max=300"`
	Notes string `json:"notes" validate:"max=2000"`
}

type CreateIdeaRequest struct {
	Text     string `json:"text" validate:"required,max=2000"`
	SeriesID *int64 `json:"series_id"`
}

type CreateTemplateRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	HTML      string `json:"html" validate:"required"`
	PageCount int    `json:"page_count" validate:"min=1,max=10"`
}

type UpdateProfileRequest struct {
	PostingSchedule    *[7]DayScheduleRequest `json:"posting_schedule"`
	Timezone           string                 `json:"timezone" validate:"omitempty,max=64"`
	ReviewDeadlineHour *int                   `json:"review_deadline_hour" validate:"omitempty,min=0,max=23"`
	PreferredMediaType string                 `json:"preferred_media_type" validate:"omitempty,oneof=text image video html"`
	PreferredProvider  string                 `json:"preferred_provider" validate:"max=100"`
	PreferredModel     string                 `json:"preferred_model" validate:"max=100"`
	Persona            string                 `json:"persona" validate:"max=4000"`
}

type DayScheduleRequest struct {
	Enabled  bool   `json:"enabled"`
	PostTime string `json:"post_time" validate:"omitempty,len=5"`
}
