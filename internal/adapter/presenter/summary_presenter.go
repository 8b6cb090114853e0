package presenter

import (
	"github.com/johnquangdev/meeting-digest/internal/adapter/dto"
	"github.com/johnquangdev/meeting-digest/internal/domain/entities"
)

// ToSummaryResponse converts a stored summary to its API shape
func ToSummaryResponse(summary *entities.MeetingSummary) *dto.SummaryResponse {
	if summary == nil {
		return nil
	}

	decisions := make([]string, 0, len(summary.KeyDecisions))
	decisions = append(decisions, summary.KeyDecisions...)

	items := make([]dto.ActionItemResponse, 0, len(summary.ActionItems))
	for _, item := range summary.ActionItems {
		items = append(items, dto.ActionItemResponse{
			Task:     item.Task,
			Assignee: item.Assignee,
		})
	}

	return &dto.SummaryResponse{
		ID:           summary.ID,
		PublicID:     summary.PublicID,
		Overview:     summary.Overview,
		KeyDecisions: decisions,
		ActionItems:  items,
		CreatedAt:    summary.CreatedAt,
	}
}

// ToListSummariesResponse converts a list of summaries, skipping nil entries
func ToListSummariesResponse(summaries []*entities.MeetingSummary) *dto.ListSummariesResponse {
	responses := make([]dto.SummaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		if resp := ToSummaryResponse(summary); resp != nil {
			responses = append(responses, *resp)
		}
	}

	return &dto.ListSummariesResponse{
		Summaries: responses,
		Total:     len(responses),
	}
}
