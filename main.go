package main

import (
	"context"
	"flag"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"suumo_crawler/config"
	"suumo_crawler/httputil"
	"suumo_crawler/logging"
	"suumo_crawler/mapper"
	"suumo_crawler/media"
	"suumo_crawler/parser"
	"suumo_crawler/scheduler"
	"suumo_crawler/scraper"
	"suumo_crawler/services"
	"suumo_crawler/storage"
)

var (
	scrapeNow  = flag.Bool("scrape", false, "Crawl all configured targets once and exit")
	target     = flag.String("target", "", "Crawl a single configured target once and exit")
	startURL   = flag.String("url", "", "Crawl an ad hoc search-result URL once and exit")
	maxPages   = flag.Int("max-pages", 0, "Page limit for -url (0 = config default)")
	delay      = flag.Duration("delay", 0, "Politeness delay for -url (0 = config default)")
	skipImages = flag.Bool("skip-images", false, "Do not download photos")
	dryRun     = flag.Bool("dry-run", false, "Parse and resolve without writing anything")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Default.Fatal().Err(err).Msg("Failed to load config")
	}

	logFile, err := logging.Setup(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		logging.Default.Warn().Err(err).Msg("Could not set up file logging")
	} else {
		defer logFile.Close()
	}
	log := logging.For("main")

	log.Info().Msg("Starting suumo_crawler...")
	log.Info().Int("targets", len(cfg.Targets)).Int("lines", len(cfg.Lines)).Msg("Loaded config")
	for id, t := range cfg.Targets {
		log.Info().Str("id", id).Str("name", t.Name).Bool("disabled", t.Disabled).Msg("  target")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clients := httputil.NewClients(cfg.Site, cfg.Media)
	if cfg.Site.ProxyURL != "" {
		log.Info().Str("proxy", maskConnectionString(cfg.Site.ProxyURL)).Msg("Using proxy")
	}

	entities, closeStore := openEntityStore(ctx, cfg, log)
	defer closeStore()

	blobs, err := openBlobStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up photo storage")
	}

	geocoder, closeGeocoder := openGeocodeQueue(ctx, cfg, log)
	defer closeGeocoder()

	history, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open SQLite")
	}
	defer history.Close()
	log.Info().Str("path", cfg.DBPath).Msg("Run history database")

	orchestrator := scraper.NewOrchestrator(cfg, scraper.Deps{
		Fetcher:  httputil.NewPageFetcher(clients.Pages, cfg.Site),
		Parser:   parser.NewSearchResultParser(cfg.Site.BaseURL),
		Mapper:   mapper.New(cfg.Mappings),
		Store:    entities,
		Images:   media.NewIngester(clients.Images, blobs, entities, cfg.Site, cfg.Media.MaxBytes, logging.For("media")),
		Geocoder: geocoder,
		History:  history,
		Log:      logging.For("crawler"),
	})

	// One-shot modes
	switch {
	case *startURL != "":
		opts := scraper.OptionsFrom(cfg.Crawl)
		if *maxPages > 0 {
			opts.MaxPages = *maxPages
		}
		if *delay > 0 {
			opts.RateLimitDelay = *delay
		}
		opts.SkipImages = opts.SkipImages || *skipImages
		opts.DryRun = opts.DryRun || *dryRun

		stats, err := orchestrator.RunURL(ctx, *startURL, opts)
		if err != nil {
			log.Fatal().Err(err).Msg("Crawl failed")
		}
		log.Info().RawJSON("stats", stats.ToJSON()).Msg("Crawl complete")
		return
	case *target != "":
		if err := orchestrator.RunTarget(ctx, *target); err != nil {
			log.Fatal().Err(err).Msg("Crawl failed")
		}
		log.Info().Msg("Crawl complete")
		return
	case *scrapeNow:
		if err := orchestrator.RunAll(ctx); err != nil {
			log.Fatal().Err(err).Msg("Crawl failed")
		}
		log.Info().Msg("Crawl complete")
		return
	}

	// Daemon mode
	sched := scheduler.New(cfg.Scheduler, orchestrator, history, logging.For("scheduler"))
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	ev := log.Info().Dur("min_gap", cfg.Scheduler.MinGap)
	if status, err := orchestrator.MarshalStatus(); err == nil {
		ev = ev.RawJSON("status", status)
	}
	ev.Msg("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("Shutting down...")
	cancel()
	sched.Stop()
	log.Info().Msg("Goodbye!")
}

// openEntityStore connects to Postgres when DATABASE_URL is set and falls back
// to an in-process store otherwise
func openEntityStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.Store, func()) {
	if cfg.Postgres.URL == "" {
		log.Warn().Msg("DATABASE_URL not set, using in-memory store (nothing is persisted)")
		return storage.NewMemoryStore(), func() {}
	}

	pg, err := storage.NewPostgresStore(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Postgres")
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schema")
	}
	log.Info().Str("url", maskConnectionString(cfg.Postgres.URL)).Msg("Connected to Postgres")
	return pg, pg.Close
}

func openBlobStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.BlobStore, error) {
	if cfg.S3.Enabled() {
		uploader, err := storage.NewS3Uploader(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		log.Info().Str("bucket", cfg.S3.Bucket).Str("example", uploader.PublicURL("buildings/...")).Msg("Photos go to S3")
		return uploader, nil
	}
	local, err := storage.NewLocalBlobStore(cfg.Media.LocalDir)
	if err != nil {
		return nil, err
	}
	log.Info().Str("dir", cfg.Media.LocalDir).Msg("Photos go to local disk")
	return local, nil
}

func openGeocodeQueue(ctx context.Context, cfg *config.Config, log zerolog.Logger) (services.GeocodeQueue, func()) {
	if cfg.Redis.URL == "" {
		return services.NewLogGeocodeQueue(logging.For("geocode")), func() {}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	q, err := services.NewRedisGeocodeQueue(pingCtx, cfg.Redis.URL, cfg.Redis.Stream)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, geocode tasks will only be logged")
		return services.NewLogGeocodeQueue(logging.For("geocode")), func() {}
	}
	log.Info().Str("stream", cfg.Redis.Stream).Msg("Geocode tasks go to Redis")
	return q, func() { q.Close() }
}

// maskConnectionString masks the password in a connection string for logging
func maskConnectionString(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil || u.User == nil {
		return connStr
	}
	return u.Redacted()
}
