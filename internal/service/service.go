package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"ebaystore/parser/internal/client"
	"ebaystore/parser/internal/config"
	"ebaystore/parser/internal/domain"
	"ebaystore/parser/internal/metrics"
	"ebaystore/parser/internal/repository"
	"ebaystore/parser/internal/state"
)

// checkpointBatchSize is how many newly processed items accumulate before
// progress is persisted. A crash loses at most one partial batch.
const checkpointBatchSize = 5

// Service runs the identifier-driven store scrape: one item is fully fetched,
// extracted and checkpointed before the next begins.
type Service struct {
	client  client.EbayClient
	store   state.ProgressStore
	repo    repository.RecordRepository // optional, may be nil
	metrics *metrics.Metrics
	cfg     config.EbayConfig
}

func NewService(
	ebayClient client.EbayClient,
	progressStore state.ProgressStore,
	repo repository.RecordRepository,
	m *metrics.Metrics,
	cfg config.EbayConfig,
) *Service {
	return &Service{
		client:  ebayClient,
		store:   progressStore,
		repo:    repo,
		metrics: m,
		cfg:     cfg,
	}
}

// Run walks the store listing (or the seed file), extracts every item not
// already processed, and returns the accumulated progress. One item's failure
// never aborts the batch; only a checkpoint persistence failure is fatal.
func (s *Service) Run(ctx context.Context) (*domain.CrawlProgress, error) {
	target := s.cfg.Store

	progress := domain.NewCrawlProgress(target)
	if s.cfg.Resume {
		loaded, err := s.store.Load(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("failed to resume progress: %w", err)
		}
		progress = loaded
		log.Infof("🔄 Resumed %s: %d products, %d errors already processed",
			target, len(progress.Records), len(progress.Errors))
	}

	ids, err := s.collectIDs(ctx)
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxItems > 0 && len(ids) > s.cfg.MaxItems {
		ids = ids[:s.cfg.MaxItems]
	}
	log.Infof("🛒 Items to process: %d", len(ids))

	processed := progress.Processed()
	newly := 0
	skipped := 0

	for i, id := range ids {
		if ctx.Err() != nil {
			log.Warnf("🛑 Run cancelled after %d of %d items", i, len(ids))
			break
		}
		if _, done := processed[id]; done {
			skipped++
			continue
		}

		itemURL := fmt.Sprintf("%s/itm/%s", s.cfg.BaseURL, id)
		log.Infof("[%d/%d] %s", i+1, len(ids), id)

		record, err := s.client.GetItem(ctx, id)
		if err != nil {
			log.Errorf("❌ Failed to extract item %s: %v", id, err)
			progress.AddError(domain.ErrorRecord{
				ItemID:    id,
				URL:       itemURL,
				Message:   err.Error(),
				Timestamp: time.Now(),
			})
		} else {
			progress.AddRecord(*record)
			s.metrics.IncItems()
			s.saveToRepository(ctx, record)
		}

		newly++
		if newly%checkpointBatchSize == 0 {
			if err := s.store.Save(ctx, progress); err != nil {
				return nil, fmt.Errorf("failed to persist checkpoint: %w", err)
			}
		}
	}

	if err := s.store.Save(ctx, progress); err != nil {
		return nil, fmt.Errorf("failed to persist final checkpoint: %w", err)
	}

	log.Infof("✅ Run complete for %s: %d products, %d errors (%d already processed)",
		target, len(progress.Records), len(progress.Errors), skipped)
	return progress, nil
}

func (s *Service) collectIDs(ctx context.Context) ([]domain.ItemID, error) {
	if s.cfg.SeedFile != "" {
		ids, err := LoadSeedIDs(s.cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load seed file: %w", err)
		}
		log.Infof("🌱 Loaded %d item IDs from %s", len(ids), s.cfg.SeedFile)
		return ids, nil
	}

	log.Infof("📄 Collecting item IDs from store %s", s.cfg.Store)
	return s.client.CollectItemIDs(ctx, s.cfg.Store)
}

// saveToRepository mirrors the record into the optional database. A
// repository failure is logged, not fatal: the checkpoint is the source of
// truth.
func (s *Service) saveToRepository(ctx context.Context, record *domain.DetailRecord) {
	if s.repo == nil {
		return
	}
	if err := s.repo.SaveRecord(ctx, s.cfg.Store, record); err != nil {
		log.Errorf("❌ Failed to save record %s to repository: %v", record.ItemID, err)
	}
}
