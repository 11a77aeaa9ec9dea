package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"suumo_crawler/models"
)

// Config is loaded once at startup and never mutated afterwards.
// Components receive copies of the sections they need.
type Config struct {
	Site      SiteConfig
	Crawl     CrawlConfig
	Scheduler SchedulerConfig
	Postgres  PostgresConfig
	S3        S3Config
	Redis     RedisConfig
	Media     MediaConfig
	DBPath    string
	LogLevel  string
	LogPath   string
	ConfigDir string
	Mappings  MappingConfig
	Lines     []models.Line
	Targets   map[string]*TargetConfig
}

// SiteConfig describes the portal's HTTP surface
type SiteConfig struct {
	BaseURL        string
	UserAgent      string
	Accept         string
	AcceptLanguage string
	Timeout        time.Duration
	ProxyURL       string
}

type CrawlConfig struct {
	Delay      time.Duration
	MaxPages   int
	SkipImages bool
	DryRun     bool
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
	// MinGap skips a scheduled target run when its last run finished more recently
	MinGap time.Duration
}

type PostgresConfig struct {
	URL string
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

// Enabled reports whether photos should go to S3 instead of local disk
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

type RedisConfig struct {
	URL    string
	Stream string
}

type MediaConfig struct {
	LocalDir string
	MaxBytes int64
	Timeout  time.Duration
}

// TargetConfig is a configured crawl start point, one per config/targets/*.yaml
type TargetConfig struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	StartURL   string `yaml:"start_url"`
	MaxPages   int    `yaml:"max_pages"`
	DelayMS    int    `yaml:"delay_ms"`
	SkipImages bool   `yaml:"skip_images"`
	DryRun     bool   `yaml:"dry_run"`
	Disabled   bool   `yaml:"disabled"`
}

type stationsFile struct {
	Lines []models.Line `yaml:"lines"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Site: SiteConfig{
			BaseURL:        getEnv("SUUMO_BASE_URL", "https://suumo.jp"),
			UserAgent:      getEnv("SCRAPER_USER_AGENT", DefaultUserAgent),
			Accept:         getEnv("SCRAPER_ACCEPT", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"),
			AcceptLanguage: getEnv("SCRAPER_ACCEPT_LANGUAGE", "ja,en-US;q=0.9,en;q=0.8"),
			Timeout:        getEnvDuration("SCRAPER_TIMEOUT", 30*time.Second),
			ProxyURL:       os.Getenv("HTTP_PROXY_URL"),
		},
		Crawl: CrawlConfig{
			Delay:      time.Duration(getEnvInt("SCRAPE_DELAY_MS", 2000)) * time.Millisecond,
			MaxPages:   getEnvInt("SCRAPE_MAX_PAGES", 0),
			SkipImages: os.Getenv("SCRAPE_SKIP_IMAGES") == "true",
			DryRun:     os.Getenv("SCRAPE_DRY_RUN") == "true",
		},
		Scheduler: SchedulerConfig{
			Cron:   os.Getenv("SCRAPE_CRON"),
			MinGap: getEnvDuration("SCRAPE_MIN_GAP", 15*time.Minute),
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		S3: S3Config{
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    getEnv("S3_REGION", "ap-northeast-1"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Prefix:    getEnv("S3_PREFIX", "photos"),
		},
		Redis: RedisConfig{
			URL:    os.Getenv("REDIS_URL"),
			Stream: getEnv("GEOCODE_STREAM", "geocode:buildings"),
		},
		Media: MediaConfig{
			LocalDir: getEnv("MEDIA_DIR", "media"),
			MaxBytes: int64(getEnvInt("MEDIA_MAX_BYTES", 20<<20)),
			Timeout:  getEnvDuration("MEDIA_TIMEOUT", 30*time.Second),
		},
		DBPath:    getEnv("DB_PATH", "crawler.db"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPath:   getEnv("LOG_PATH", "crawler.log"),
		ConfigDir: getEnv("CONFIG_DIR", "config"),
		Mappings:  DefaultMappings(),
		Lines:     nil,
		Targets:   make(map[string]*TargetConfig),
	}

	if interval := os.Getenv("SCRAPE_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadMappings(); err != nil {
		return nil, err
	}
	if err := cfg.loadStations(); err != nil {
		return nil, err
	}
	if err := cfg.loadTargets(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadMappings overlays config/mappings.yaml on the built-in tables.
// A table present in the file replaces the default table entirely.
func (c *Config) loadMappings() error {
	data, err := os.ReadFile(filepath.Join(c.ConfigDir, "mappings.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var m MappingConfig
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse mappings.yaml: %w", err)
	}
	if len(m.BuildingTypes) > 0 {
		c.Mappings.BuildingTypes = m.BuildingTypes
	}
	if len(m.RoomTypes) > 0 {
		c.Mappings.RoomTypes = m.RoomTypes
	}
	if len(m.Structures) > 0 {
		c.Mappings.Structures = m.Structures
	}
	return nil
}

func (c *Config) loadStations() error {
	data, err := os.ReadFile(filepath.Join(c.ConfigDir, "stations.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var f stationsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse stations.yaml: %w", err)
	}
	c.Lines = f.Lines
	return nil
}

func (c *Config) loadTargets() error {
	configDir := filepath.Join(c.ConfigDir, "targets")
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var target TargetConfig
		if err := yaml.Unmarshal(data, &target); err != nil {
			return fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
		if target.ID == "" || target.StartURL == "" {
			return fmt.Errorf("%s: id and start_url are required", entry.Name())
		}

		c.Targets[target.ID] = &target
	}

	return nil
}

// CrawlOptions merges a target's overrides over the global crawl defaults
func (c *Config) CrawlOptions(t *TargetConfig) CrawlConfig {
	opts := c.Crawl
	if t == nil {
		return opts
	}
	if t.DelayMS > 0 {
		opts.Delay = time.Duration(t.DelayMS) * time.Millisecond
	}
	if t.MaxPages > 0 {
		opts.MaxPages = t.MaxPages
	}
	opts.SkipImages = opts.SkipImages || t.SkipImages
	opts.DryRun = opts.DryRun || t.DryRun
	return opts
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
