package models

import "time"

type SeriesTopic struct {
	Title string `json:"title"`
	Notes string `json:"notes,omitempty"`
}

type Series struct {
	ID           int64         `db:"id" json:"id"`
	UserID       int64         `db:"user_id" json:"user_id"`
	Title        string        `db:"title" json:"title"`
	Category     string        `db:"category" json:"category"`
	TemplateID   *int64        `db:"template_id" json:"template_id"`
	TopicQueue   []SeriesTopic `db:"topic_queue" json:"topic_queue"`
	CurrentIndex int           `db:"current_index" json:"current_index"` // next unconsumed queue position
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// NextTopic returns the queue entry at CurrentIndex, or false when the
// queue is exhausted.
func (s *Series) NextTopic() (SeriesTopic, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.TopicQueue) {
		return SeriesTopic{}, false
	}
	return s.TopicQueue[s.CurrentIndex], true
}
