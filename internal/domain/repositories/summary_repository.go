package repositories

import (
	"context"

	"github.com/johnquangdev/meeting-digest/internal/domain/entities"
)

// SummaryRepository defines persistence operations for meeting summaries.
// Find methods return (nil, nil) when no record matches.
type SummaryRepository interface {
	// Save assigns the internal ID when empty and stores the record
	Save(ctx context.Context, s *entities.MeetingSummary) error
	// FindAll returns every summary, newest first
	FindAll(ctx context.Context) ([]*entities.MeetingSummary, error)
	FindByID(ctx context.Context, id string) (*entities.MeetingSummary, error)
	FindByPublicID(ctx context.Context, publicID string) (*entities.MeetingSummary, error)
}
