package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Run modes.
const (
	ModeItems = "items" // identifier-driven store scrape
	ModeLinks = "links" // breadth-first link-following crawl
)

// Compatibility extraction modes.
const (
	CompatSkip       = "skip"
	CompatSampled    = "sampled"
	CompatExhaustive = "exhaustive"
)

// Config holds all configuration for the application
type Config struct {
	Mode     string         `mapstructure:"mode"`
	Ebay     EbayConfig     `mapstructure:"ebay"`
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	State    StateConfig    `mapstructure:"state"`
	Output   OutputConfig   `mapstructure:"output"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// EbayConfig holds target-store configuration for the item-driven mode.
type EbayConfig struct {
	BaseURL         string  `mapstructure:"base_url"`
	Store           string  `mapstructure:"store"`
	Timeout         int     `mapstructure:"timeout"`
	ItemsPerPage    int     `mapstructure:"items_per_page"`
	DelaySeconds    float64 `mapstructure:"delay_seconds"`
	MaxItems        int     `mapstructure:"max_items"` // 0 = unlimited
	CompatMode      string  `mapstructure:"compat_mode"`
	Resume          bool    `mapstructure:"resume"`
	SeedFile        string  `mapstructure:"seed_file"`
	BlockedWaitSecs int     `mapstructure:"blocked_wait_seconds"`
}

// CrawlConfig holds link-following mode configuration.
type CrawlConfig struct {
	Domain          string  `mapstructure:"domain"`
	ScrapeType      string  `mapstructure:"scrape_type"` // category, product, blog, all
	MaxPages        int     `mapstructure:"max_pages"`   // 0 = unlimited
	Concurrency     int     `mapstructure:"concurrency"`
	DelaySeconds    float64 `mapstructure:"delay_seconds"`
	SeedFile        string  `mapstructure:"seed_file"`
	ProductURLFile  string  `mapstructure:"product_url_file"`
	CategoryURLFile string  `mapstructure:"category_url_file"`
}

// StateConfig selects the crawl-progress backend.
type StateConfig struct {
	Backend string `mapstructure:"backend"` // file or redis
	Dir     string `mapstructure:"dir"`
}

// OutputConfig controls the tabular output.
type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"` // csv, xlsx, or both
	Vendor string `mapstructure:"vendor"`
}

// DatabaseConfig holds the optional record-repository connection.
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// RedisConfig holds Redis connection details for the redis state backend.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
}

// Load loads configuration from YAML file with environment variable overrides
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("config.yaml file not found in current directory")
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the configuration for contradictions. An invalid
// configuration is fatal for the run.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeItems:
		if c.Ebay.Store == "" {
			return fmt.Errorf("items mode requires ebay.store")
		}
	case ModeLinks:
		if c.Crawl.Domain == "" {
			return fmt.Errorf("links mode requires crawl.domain")
		}
		if c.Crawl.Concurrency <= 0 {
			return fmt.Errorf("crawl.concurrency must be positive, got %d", c.Crawl.Concurrency)
		}
		switch c.Crawl.ScrapeType {
		case "category", "product", "blog", "all":
		default:
			return fmt.Errorf("crawl.scrape_type must be category, product, blog or all, got %q", c.Crawl.ScrapeType)
		}
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeItems, ModeLinks, c.Mode)
	}

	switch c.Ebay.CompatMode {
	case CompatSkip, CompatSampled, CompatExhaustive:
	default:
		return fmt.Errorf("ebay.compat_mode must be skip, sampled or exhaustive, got %q", c.Ebay.CompatMode)
	}

	if c.Ebay.DelaySeconds < 0 || c.Crawl.DelaySeconds < 0 {
		return fmt.Errorf("delay_seconds cannot be negative")
	}
	if c.Ebay.MaxItems < 0 {
		return fmt.Errorf("ebay.max_items cannot be negative")
	}
	if c.Crawl.MaxPages < 0 {
		return fmt.Errorf("crawl.max_pages cannot be negative")
	}

	switch c.State.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("state.backend must be file or redis, got %q", c.State.Backend)
	}

	switch c.Output.Format {
	case "csv", "xlsx", "both":
	default:
		return fmt.Errorf("output.format must be csv, xlsx or both, got %q", c.Output.Format)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("mode", ModeItems)

	viper.SetDefault("ebay.base_url", "https://www.ebay.co.uk")
	viper.SetDefault("ebay.timeout", 30)
	viper.SetDefault("ebay.items_per_page", 72)
	viper.SetDefault("ebay.delay_seconds", 3.0)
	viper.SetDefault("ebay.max_items", 0)
	viper.SetDefault("ebay.compat_mode", CompatSampled)
	viper.SetDefault("ebay.resume", false)
	viper.SetDefault("ebay.blocked_wait_seconds", 5)

	viper.SetDefault("crawl.scrape_type", "all")
	viper.SetDefault("crawl.max_pages", 0)
	viper.SetDefault("crawl.concurrency", 2)
	viper.SetDefault("crawl.delay_seconds", 1.0)

	viper.SetDefault("state.backend", "file")
	viper.SetDefault("state.dir", "./scraped-sites")

	viper.SetDefault("output.dir", "./scraped-sites")
	viper.SetDefault("output.format", "csv")
	viper.SetDefault("output.vendor", "")

	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "ebaystore")
	viper.SetDefault("database.user", "ebaystore_user")
	viper.SetDefault("database.password", "ebaystore_pass")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.database", 0)
}
