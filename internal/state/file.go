package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ebaystore/parser/internal/domain"
)

type fileProgressStore struct {
	dir string
}

// NewFileProgressStore keeps crawl progress as a JSON checkpoint file per
// target, rewritten atomically so a crash mid-save never corrupts the
// previous checkpoint.
func NewFileProgressStore(dir string) ProgressStore {
	return &fileProgressStore{dir: dir}
}

func (s *fileProgressStore) path(target string) string {
	return filepath.Join(s.dir, target, "scrape-progress.json")
}

func (s *fileProgressStore) Load(ctx context.Context, target string) (*domain.CrawlProgress, error) {
	data, err := os.ReadFile(s.path(target))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewCrawlProgress(target), nil // No progress saved yet
		}
		return nil, fmt.Errorf("failed to read checkpoint for %s: %w", target, err)
	}

	var progress domain.CrawlProgress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint for %s: %w", target, err)
	}
	if progress.Target == "" {
		progress.Target = target
	}
	return &progress, nil
}

func (s *fileProgressStore) Save(ctx context.Context, progress *domain.CrawlProgress) error {
	path := s.path(progress.Target)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint for %s: %w", progress.Target, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint for %s: %w", progress.Target, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace checkpoint for %s: %w", progress.Target, err)
	}
	return nil
}
