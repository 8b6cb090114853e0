package repository

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-digest/internal/domain/entities"
	"github.com/johnquangdev/meeting-digest/internal/domain/repositories"
	"github.com/johnquangdev/meeting-digest/internal/infrastructure/cache"
)

const publicIDKeyPrefix = "summary:public:"

// cachedSummaryRepository serves FindByPublicID from a cache in front of
// another repository. Summaries are immutable, so entries never need
// invalidation. Cache failures are logged and fall through to the store.
type cachedSummaryRepository struct {
	repositories.SummaryRepository
	cache  cache.Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedSummaryRepository wraps inner with a read-through public-id cache
func NewCachedSummaryRepository(inner repositories.SummaryRepository, store cache.Store, ttl time.Duration, logger *zap.Logger) repositories.SummaryRepository {
	return &cachedSummaryRepository{
		SummaryRepository: inner,
		cache:             store,
		ttl:               ttl,
		logger:            logger,
	}
}

func (r *cachedSummaryRepository) Save(ctx context.Context, s *entities.MeetingSummary) error {
	if err := r.SummaryRepository.Save(ctx, s); err != nil {
		return err
	}
	r.put(ctx, s)
	return nil
}

func (r *cachedSummaryRepository) FindByPublicID(ctx context.Context, publicID string) (*entities.MeetingSummary, error) {
	key := publicIDKeyPrefix + publicID

	value, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.warn("cache read failed", key, err)
	}
	if ok {
		var summary entities.MeetingSummary
		decodeErr := json.Unmarshal([]byte(value), &summary)
		if decodeErr == nil {
			return &summary, nil
		}
		r.warn("dropping undecodable cache entry", key, decodeErr)
		if err := r.cache.Delete(ctx, key); err != nil {
			r.warn("cache delete failed", key, err)
		}
	}

	summary, err := r.SummaryRepository.FindByPublicID(ctx, publicID)
	if err != nil || summary == nil {
		return summary, err
	}
	r.put(ctx, summary)
	return summary, nil
}

func (r *cachedSummaryRepository) put(ctx context.Context, s *entities.MeetingSummary) {
	key := publicIDKeyPrefix + s.PublicID
	value, err := json.Marshal(s)
	if err != nil {
		r.warn("cache encode failed", key, err)
		return
	}
	if err := r.cache.Set(ctx, key, string(value), r.ttl); err != nil {
		r.warn("cache write failed", key, err)
	}
}

func (r *cachedSummaryRepository) warn(msg, key string, err error) {
	if r.logger != nil {
		r.logger.Warn(msg, zap.String("key", key), zap.Error(err))
	}
}
