package transfer

// Sweep result statuses as they appear in the per-post results list.
const (
	SweepResultGenerated = "generated"
	SweepResultScheduled = "scheduled"
	SweepResultPublished = "published"
	SweepResultExpired   = "expired"
	SweepResultSkipped   = "skipped"
	SweepResultFailed    = "failed"
	SweepResultError     = "error"
)

type SweepPostResult struct {
	PostID int64  `json:"post_id"`
	UserID int64  `json:"user_id"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// SweepResult is the body every sweep endpoint returns. Processed counts
// posts whose state changed; Skipped counts candidates left untouched this
// run (operational skips and per-post errors included).
type SweepResult struct {
	RunID     string            `json:"run_id"`
	Success   bool              `json:"success"`
	Processed int               `json:"processed"`
	Skipped   int               `json:"skipped"`
	Results   []SweepPostResult `json:"results"`
}

func (r *SweepResult) Add(postID, userID int64, status, detail string) {
	r.Results = append(r.Results, SweepPostResult{PostID: postID, UserID: userID, Status: status, Detail: detail})
	switch status {
	case SweepResultSkipped, SweepResultError:
		r.Skipped++
	default:
		r.Processed++
	}
}
