package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/meeting-digest/internal/domain/entities"
	"github.com/johnquangdev/meeting-digest/internal/domain/repositories"
)

// summaryRepository implements SummaryRepository on postgres via GORM
type summaryRepository struct {
	db *gorm.DB
}

// NewSummaryRepository creates a new summary repository
func NewSummaryRepository(db *gorm.DB) repositories.SummaryRepository {
	return &summaryRepository{db: db}
}

// Save inserts a new summary. Records are never updated.
func (r *summaryRepository) Save(ctx context.Context, s *entities.MeetingSummary) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("failed to insert summary: %w", err)
	}
	return nil
}

// FindAll retrieves every summary, newest first
func (r *summaryRepository) FindAll(ctx context.Context) ([]*entities.MeetingSummary, error) {
	var summaries []*entities.MeetingSummary
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	return summaries, nil
}

// FindByID retrieves a summary by its internal ID
func (r *summaryRepository) FindByID(ctx context.Context, id string) (*entities.MeetingSummary, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByPublicID retrieves a summary by its sharing ID
func (r *summaryRepository) FindByPublicID(ctx context.Context, publicID string) (*entities.MeetingSummary, error) {
	return r.findOne(ctx, "public_id = ?", publicID)
}

func (r *summaryRepository) findOne(ctx context.Context, query string, arg string) (*entities.MeetingSummary, error) {
	var summary entities.MeetingSummary
	err := r.db.WithContext(ctx).
		Where(query, arg).
		First(&summary).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find summary: %w", err)
	}
	return &summary, nil
}
