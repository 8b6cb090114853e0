package ai

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-digest/internal/domain/entities"
	domainrepo "github.com/johnquangdev/meeting-digest/internal/domain/repositories"
	usecaseErrors "github.com/johnquangdev/meeting-digest/internal/usecase/errors"
)

const (
	// characters of raw model output written to the log on parse failure
	rawLogLimit    = 500
	archiveTimeout = 30 * time.Second
	archivePrefix  = "failed-responses"
)

// ModelClient is the remote model used to generate summaries
type ModelClient interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	StreamGenerateContent(ctx context.Context, prompt string) iter.Seq2[string, error]
}

// ResponseArchiver keeps model output that could not be parsed
type ResponseArchiver interface {
	ArchiveFailedResponse(ctx context.Context, key, raw string) error
}

// Service defines summary generation and lookup
type Service interface {
	// GenerateAndStore summarizes a transcript and persists the result once
	GenerateAndStore(ctx context.Context, transcript string) (*entities.MeetingSummary, error)
	// GenerateStream relays readable model text as it arrives. Nothing is persisted.
	GenerateStream(ctx context.Context, transcript string) iter.Seq2[string, error]
	ListSummaries(ctx context.Context) ([]*entities.MeetingSummary, error)
	GetSummary(ctx context.Context, id string) (*entities.MeetingSummary, error)
	GetSummaryByPublicID(ctx context.Context, publicID string) (*entities.MeetingSummary, error)
	// Shutdown waits for pending archive uploads
	Shutdown(ctx context.Context) error
}

type aiService struct {
	client    ModelClient
	repo      domainrepo.SummaryRepository
	archiver  ResponseArchiver
	parser    *Parser
	logger    *zap.Logger
	now       func() time.Time

	// archiveMu guards closed and archiveWg.Add against Shutdown
	archiveMu sync.Mutex
	closed    bool
	archiveWg sync.WaitGroup
}

// NewAIService constructs a new AI service. archiver may be nil.
func NewAIService(
	client ModelClient,
	repo domainrepo.SummaryRepository,
	archiver ResponseArchiver,
	logger *zap.Logger,
) Service {
	return &aiService{
		client:   client,
		repo:     repo,
		archiver: archiver,
		parser:   NewParser(),
		logger:   logger,
		now:      time.Now,
	}
}

// GenerateAndStore runs prompt -> model -> parser and saves the summary under
// a fresh public id. Model and parse errors are returned unchanged and
// nothing is saved.
func (s *aiService) GenerateAndStore(ctx context.Context, transcript string) (*entities.MeetingSummary, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("%w: %w", usecaseErrors.ErrInvalidInput, entities.ErrEmptyTranscript)
	}

	publicID := uuid.NewString()
	start := time.Now()

	if s.logger != nil {
		s.logger.Info("🤖 Generating summary",
			zap.String("public_id", publicID),
			zap.Int("transcript_length", len(transcript)),
		)
	}

	raw, err := s.client.GenerateContent(ctx, BuildSummaryPrompt(transcript))
	if err != nil {
		if s.logger != nil {
			s.logger.Error("❌ Model call failed",
				zap.String("public_id", publicID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	summary, err := s.parser.ParseSummaryResponse(raw)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("❌ Failed to parse model response",
				zap.String("public_id", publicID),
				zap.String("raw_response", truncate(raw, rawLogLimit)),
				zap.Error(err),
			)
		}
		s.archiveFailedResponse(raw)
		return nil, err
	}

	record := entities.NewMeetingSummary(publicID, transcript, summary, s.now().UTC())
	if err := s.repo.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("%w: %w", usecaseErrors.ErrPersistence, err)
	}

	if s.logger != nil {
		s.logger.Info("✅ Summary stored",
			zap.String("id", record.ID),
			zap.String("public_id", record.PublicID),
			zap.Int("key_decisions", len(record.KeyDecisions)),
			zap.Int("action_items", len(record.ActionItems)),
			zap.Duration("latency", time.Since(start)),
		)
	}
	return record, nil
}

// GenerateStream yields the non-empty text of each upstream fragment in
// order. An upstream failure is yielded once, after the fragments already
// delivered, and ends the sequence.
func (s *aiService) GenerateStream(ctx context.Context, transcript string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if strings.TrimSpace(transcript) == "" {
			yield("", fmt.Errorf("%w: %w", usecaseErrors.ErrInvalidInput, entities.ErrEmptyTranscript))
			return
		}

		if s.logger != nil {
			s.logger.Info("📡 Streaming summary", zap.Int("transcript_length", len(transcript)))
		}

		delivered := 0
		for fragment, err := range s.client.StreamGenerateContent(ctx, BuildSummaryPrompt(transcript)) {
			if err != nil {
				if s.logger != nil {
					s.logger.Error("❌ Summary stream failed",
						zap.Int("fragment_count", delivered),
						zap.Error(err),
					)
				}
				yield("", err)
				return
			}

			text := s.parser.ExtractFragmentText(fragment)
			if text == "" {
				continue
			}
			delivered++
			if !yield(text, nil) {
				return
			}
		}

		if s.logger != nil {
			s.logger.Info("✅ Summary stream completed", zap.Int("fragment_count", delivered))
		}
	}
}

func (s *aiService) ListSummaries(ctx context.Context) ([]*entities.MeetingSummary, error) {
	summaries, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", usecaseErrors.ErrPersistence, err)
	}
	if summaries == nil {
		summaries = []*entities.MeetingSummary{}
	}
	return summaries, nil
}

func (s *aiService) GetSummary(ctx context.Context, id string) (*entities.MeetingSummary, error) {
	summary, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", usecaseErrors.ErrPersistence, err)
	}
	if summary == nil {
		return nil, usecaseErrors.ErrSummaryNotFound
	}
	return summary, nil
}

func (s *aiService) GetSummaryByPublicID(ctx context.Context, publicID string) (*entities.MeetingSummary, error) {
	summary, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", usecaseErrors.ErrPersistence, err)
	}
	if summary == nil {
		return nil, usecaseErrors.ErrSummaryNotFound
	}
	return summary, nil
}

// Shutdown stops accepting archive uploads and waits for the pending ones
func (s *aiService) Shutdown(ctx context.Context) error {
	s.archiveMu.Lock()
	s.closed = true
	s.archiveMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.archiveWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pending archive uploads: %w", ctx.Err())
	}
}

// archiveFailedResponse uploads raw output in the background. It never
// affects the error returned to the caller. After Shutdown it only logs.
func (s *aiService) archiveFailedResponse(raw string) {
	if s.archiver == nil {
		return
	}

	key := fmt.Sprintf("%s/%s/%s.txt", archivePrefix, s.now().UTC().Format("2006-01-02"), uuid.NewString())

	s.archiveMu.Lock()
	if s.closed {
		s.archiveMu.Unlock()
		if s.logger != nil {
			s.logger.Warn("⚠️ Skipping archive of model response during shutdown", zap.String("key", key))
		}
		return
	}
	s.archiveWg.Add(1)
	s.archiveMu.Unlock()

	go func() {
		defer s.archiveWg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()

		if err := s.archiver.ArchiveFailedResponse(ctx, key, raw); err != nil {
			if s.logger != nil {
				s.logger.Warn("⚠️ Failed to archive model response", zap.String("key", key), zap.Error(err))
			}
			return
		}
		if s.logger != nil {
			s.logger.Info("📦 Archived unparseable model response", zap.String("key", key))
		}
	}()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
