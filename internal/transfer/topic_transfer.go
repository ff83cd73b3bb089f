package transfer

// Topic sources.
const (
	TopicSourceIdea   = "idea"
	TopicSourceSeries = "series"
	TopicSourceManual = "manual"
)

// TopicSelection is what the selector hands the planner: the text to
// write about plus the series bookkeeping the publisher needs later.
// TopicIndex is only set for series topics and records the queue
// position the post was cut from.
type TopicSelection struct {
	Topic       string `json:"topic"`
	Notes       string `json:"notes,omitempty"`
	Source      string `json:"source"`
	SeriesID    *int64 `json:"series_id,omitempty"`
	SeriesTitle string `json:"series_title,omitempty"`
	TopicIndex  *int64 `json:"topic_index,omitempty"`
}
