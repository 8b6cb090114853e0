package dto

import "time"

// CreateSummaryRequest is the body of both the blocking and the streaming summary endpoints
type CreateSummaryRequest struct {
	Transcript string `json:"transcript" validate:"required,notblank" example:"Alice: let's ship v2 in July.\nBob: agreed, I'll prepare the release notes."`
}

// ActionItemResponse is a single task extracted from the meeting
type ActionItemResponse struct {
	Task     string `json:"task" example:"Prepare the release notes"`
	Assignee string `json:"assignee" example:"Bob"`
}

// SummaryResponse is the public view of a stored summary.
// The original transcript is not exposed.
type SummaryResponse struct {
	ID           string               `json:"id" example:"8f14e45f-ceea-467f-a0e6-0d1f4b1c2e3a"`
	PublicID     string               `json:"public_id" example:"3b1d2c4e-5f60-4a7b-8c9d-0e1f2a3b4c5d"`
	Overview     string               `json:"overview" example:"The team agreed to ship v2 in July."`
	KeyDecisions []string             `json:"key_decisions"`
	ActionItems  []ActionItemResponse `json:"action_items"`
	CreatedAt    time.Time            `json:"created_at"`
}

// ListSummariesResponse wraps every stored summary, newest first
type ListSummariesResponse struct {
	Summaries []SummaryResponse `json:"summaries"`
	Total     int               `json:"total"`
}
