package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"ebaystore/parser/internal/classify"
	"ebaystore/parser/internal/client"
	"ebaystore/parser/internal/config"
	"ebaystore/parser/internal/crawl"
	"ebaystore/parser/internal/domain"
	"ebaystore/parser/internal/metrics"
	"ebaystore/parser/internal/repository"
	"ebaystore/parser/internal/service"
	"ebaystore/parser/internal/sink"
	"ebaystore/parser/internal/state"
)

// Container holds all initialized components
type Container struct {
	Config        *config.Config
	Client        client.EbayClient
	Repository    repository.RecordRepository
	ProgressStore state.ProgressStore
	Metrics       *metrics.Metrics

	Service *service.Service
	Crawler *crawl.Crawler

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized
func New(cfg *config.Config) (*Container, error) {
	container := &Container{
		Config:  cfg,
		Metrics: metrics.NewMetrics(),
	}

	progressStore, err := container.newProgressStore(cfg)
	if err != nil {
		return nil, err
	}
	container.ProgressStore = progressStore

	if cfg.Database.Enabled {
		db, err := pgxpool.New(context.Background(),
			fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
				cfg.Database.Host,
				cfg.Database.Port,
				cfg.Database.User,
				cfg.Database.Password,
				cfg.Database.Name,
			))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		container.db = db
		container.Repository = repository.NewRecordRepository(db)
		log.Info("✅ Connected to PostgreSQL successfully")
	}

	switch cfg.Mode {
	case config.ModeItems:
		ebayClient := client.NewEbayClient(cfg.Ebay, container.Metrics)
		container.Client = ebayClient
		container.Service = service.NewService(
			ebayClient,
			progressStore,
			container.Repository,
			container.Metrics,
			cfg.Ebay,
		)
	case config.ModeLinks:
		fetcher := client.NewPageFetcher(cfg.Ebay.Timeout, cfg.Ebay.BlockedWaitSecs, container.Metrics)
		classifier, err := newClassifier(cfg.Crawl)
		if err != nil {
			return nil, err
		}
		crawler, err := crawl.NewCrawler(fetcher, classifier, container.Metrics, cfg.Crawl)
		if err != nil {
			return nil, err
		}
		container.Crawler = crawler
	}

	return container, nil
}

func (c *Container) newProgressStore(cfg *config.Config) (state.ProgressStore, error) {
	if cfg.State.Backend != "redis" {
		return state.NewFileProgressStore(cfg.State.Dir), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})

	// Test connection
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("✅ Connected to Redis successfully")

	c.redis = rdb
	return state.NewRedisProgressStore(rdb), nil
}

// newClassifier loads known-URL lists when configured and falls back to the
// built-in path patterns otherwise.
func newClassifier(cfg config.CrawlConfig) (*classify.Classifier, error) {
	knownProducts, err := loadURLList(cfg.ProductURLFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load product URL list: %w", err)
	}
	knownCategories, err := loadURLList(cfg.CategoryURLFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load category URL list: %w", err)
	}
	return classify.NewDefault(knownProducts, knownCategories), nil
}

func loadURLList(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			urls = append(urls, line)
		}
	}
	return urls, nil
}

// Run executes the configured mode and writes the tabular output.
func (c *Container) Run(ctx context.Context) error {
	switch c.Config.Mode {
	case config.ModeItems:
		progress, err := c.Service.Run(ctx)
		if err != nil {
			return err
		}
		return c.writeItemOutput(progress)
	case config.ModeLinks:
		seeds, err := loadURLList(c.Config.Crawl.SeedFile)
		if err != nil {
			return fmt.Errorf("failed to load seed file: %w", err)
		}
		result, err := c.Crawler.Run(ctx, seeds)
		if err != nil {
			return err
		}
		return c.writeCrawlOutput(result)
	default:
		return fmt.Errorf("unknown mode %q", c.Config.Mode)
	}
}

func (c *Container) writeItemOutput(progress *domain.CrawlProgress) error {
	outDir := filepath.Join(c.Config.Output.Dir, progress.Target)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	format := c.Config.Output.Format
	vendor := c.Config.Output.Vendor
	if vendor == "" {
		vendor = progress.Target
	}

	if format == "csv" || format == "both" {
		path := filepath.Join(outDir, "products.csv")
		writer, err := sink.NewCSVWriter(path, vendor)
		if err != nil {
			return err
		}
		if err := writer.Write(progress.Records); err != nil {
			writer.Close()
			return err
		}
		if err := writer.Close(); err != nil {
			return err
		}
		log.Infof("💾 Wrote %d products to %s", len(progress.Records), path)
	}

	if format == "xlsx" || format == "both" {
		path := filepath.Join(outDir, "products.xlsx")
		summary := sink.ReportSummary{
			Store:      progress.Target,
			Date:       time.Now(),
			Items:      len(progress.Records),
			Errors:     len(progress.Errors),
			WithCompat: countWithCompat(progress.Records),
		}
		if err := sink.WriteExcelReport(path, progress.Records, summary); err != nil {
			return err
		}
		log.Infof("💾 Wrote Excel report to %s", path)
	}

	return nil
}

func countWithCompat(records []domain.DetailRecord) int {
	n := 0
	for _, r := range records {
		if len(r.CompatMakes) > 0 || len(r.CompatYears) > 0 {
			n++
		}
	}
	return n
}

func (c *Container) writeCrawlOutput(result *crawl.Result) error {
	outDir := filepath.Join(c.Config.Output.Dir, c.Config.Crawl.Domain)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	pages := make([]sink.PageRow, 0, len(result.Pages))
	for _, p := range result.Pages {
		pages = append(pages, sink.PageRow{
			PageURL:   p.URL,
			PageTitle: p.Title,
			Images:    p.Images,
		})
	}

	pagesPath := filepath.Join(outDir, "pages.csv")
	if err := sink.WritePagesCSV(pagesPath, pages); err != nil {
		return err
	}
	log.Infof("💾 Wrote %d pages to %s", len(pages), pagesPath)

	imagesPath := filepath.Join(outDir, "unique-images.csv")
	if err := sink.WriteUniqueImagesCSV(imagesPath, result.Images); err != nil {
		return err
	}
	log.Infof("💾 Wrote %d unique images to %s", len(result.Images), imagesPath)

	return nil
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		c.redis.Close()
	}

	log.Info("Container shut down successfully")
	return nil
}
