package entities

import (
	"time"

	"gorm.io/datatypes"
)

// MeetingSummary is a stored summary. It is written once and never updated.
type MeetingSummary struct {
	ID                 string                          `json:"id" gorm:"type:varchar(36);primaryKey"`
	PublicID           string                          `json:"public_id" gorm:"type:varchar(36);not null;uniqueIndex"`
	OriginalTranscript string                          `json:"original_transcript" gorm:"type:text;not null"`
	Overview           string                          `json:"overview" gorm:"type:text;not null"`
	KeyDecisions       datatypes.JSONSlice[string]     `json:"key_decisions" gorm:"type:jsonb"`
	ActionItems        datatypes.JSONSlice[ActionItem] `json:"action_items" gorm:"type:jsonb"`
	CreatedAt          time.Time                       `json:"created_at"`
}

// TableName specifies the table name for MeetingSummary
func (MeetingSummary) TableName() string {
	return "meeting_summaries"
}

// NewMeetingSummary creates a MeetingSummary from an extracted summary.
// The internal ID is left for the store to assign.
func NewMeetingSummary(publicID, transcript string, s *StructuredSummary, createdAt time.Time) *MeetingSummary {
	m := &MeetingSummary{
		PublicID:           publicID,
		OriginalTranscript: transcript,
		KeyDecisions:       datatypes.JSONSlice[string]{},
		ActionItems:        datatypes.JSONSlice[ActionItem]{},
		CreatedAt:          createdAt,
	}
	if s != nil {
		m.Overview = s.Overview
		m.KeyDecisions = append(m.KeyDecisions, s.KeyDecisions...)
		m.ActionItems = append(m.ActionItems, s.ActionItems...)
	}
	return m
}
