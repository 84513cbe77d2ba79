package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"ebaystore/parser/internal/domain"
)

// ProgressStore persists and reloads crawl progress for a target store.
// Exactly one crawl run owns a store at a time; concurrent writers are not
// supported.
type ProgressStore interface {
	Load(ctx context.Context, target string) (*domain.CrawlProgress, error)
	Save(ctx context.Context, progress *domain.CrawlProgress) error
}

type redisProgressStore struct {
	redisClient *redis.Client
	keyPrefix   string
}

// NewRedisProgressStore keeps crawl progress in Redis, keyed by target store.
func NewRedisProgressStore(redisClient *redis.Client) ProgressStore {
	return &redisProgressStore{
		redisClient: redisClient,
		keyPrefix:   "ebaystore:progress:",
	}
}

func (s *redisProgressStore) Load(ctx context.Context, target string) (*domain.CrawlProgress, error) {
	key := s.keyPrefix + target
	val, err := s.redisClient.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return domain.NewCrawlProgress(target), nil // No progress saved yet
		}
		return nil, fmt.Errorf("failed to load progress for %s: %w", target, err)
	}

	var progress domain.CrawlProgress
	if err := json.Unmarshal([]byte(val), &progress); err != nil {
		return nil, fmt.Errorf("failed to decode progress for %s: %w", target, err)
	}
	return &progress, nil
}

func (s *redisProgressStore) Save(ctx context.Context, progress *domain.CrawlProgress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to encode progress for %s: %w", progress.Target, err)
	}

	key := s.keyPrefix + progress.Target
	if err := s.redisClient.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save progress for %s: %w", progress.Target, err)
	}
	return nil
}
