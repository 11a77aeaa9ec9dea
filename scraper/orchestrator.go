package scraper

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"suumo_crawler/config"
	"suumo_crawler/mapper"
	"suumo_crawler/models"
	"suumo_crawler/parser"
	"suumo_crawler/services"
	"suumo_crawler/storage"
)

// PageFetcher returns the UTF-8 HTML of a search-result page
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// ImageIngester downloads one image and attaches it to its owner
type ImageIngester interface {
	DownloadAndAttachErr(ctx context.Context, imageURL string, owner models.PhotoOwner, photoType models.PhotoType, displayOrder int, sourceURL string) error
}

// RunHistory records runs and operator-visible log lines
type RunHistory interface {
	CreateRun(run *models.ScrapeRun) (int64, error)
	UpdateRun(run *models.ScrapeRun) error
	Log(runID *int64, level models.LogLevel, message, targetID string) error
	GetLastRunTime(targetID string) (time.Time, error)
}

// Deps are the collaborators an Orchestrator drives. Images, Geocoder and
// History are optional.
type Deps struct {
	Fetcher  PageFetcher
	Parser   *parser.SearchResultParser
	Mapper   *mapper.Mapper
	Store    storage.Store
	Images   ImageIngester
	Geocoder services.GeocodeQueue
	History  RunHistory
	Log      zerolog.Logger
}

// Options control a single Scrape call
type Options struct {
	RateLimitDelay time.Duration
	MaxPages       int
	SkipImages     bool
	DryRun         bool
}

// OptionsFrom converts merged crawl config into Scrape options
func OptionsFrom(c config.CrawlConfig) Options {
	return Options{
		RateLimitDelay: c.Delay,
		MaxPages:       c.MaxPages,
		SkipImages:     c.SkipImages,
		DryRun:         c.DryRun,
	}
}

type Orchestrator struct {
	cfg      *config.Config
	fetcher  PageFetcher
	parser   *parser.SearchResultParser
	mapper   *mapper.Mapper
	store    storage.Store
	images   ImageIngester
	geocoder services.GeocodeQueue
	history  RunHistory
	lines    []models.Line
	baseURL  *url.URL
	logger   zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	paused atomic.Bool
	// serializes runs so only one request is ever in flight against the site
	runMu sync.Mutex
}

func NewOrchestrator(cfg *config.Config, deps Deps) *Orchestrator {
	base, err := url.Parse(cfg.Site.BaseURL)
	if err != nil || base.Host == "" {
		base = nil
	}
	return &Orchestrator{
		cfg:      cfg,
		fetcher:  deps.Fetcher,
		parser:   deps.Parser,
		mapper:   deps.Mapper,
		store:    deps.Store,
		images:   deps.Images,
		geocoder: deps.Geocoder,
		history:  deps.History,
		lines:    cfg.Lines,
		baseURL:  base,
		logger:   deps.Log,
		sleep:    sleepCtx,
		now:      time.Now,
	}
}

// Scrape crawls from startURL until pagination ends, MaxPages is reached or a
// page cannot be fetched. Per-item failures are recorded in the returned stats
// and never abort the crawl.
func (o *Orchestrator) Scrape(ctx context.Context, startURL string, opts Options) *models.CrawlStats {
	stats := &models.CrawlStats{StartURL: startURL, StartedAt: o.now()}
	defer func() { stats.FinishedAt = o.now() }()

	log := o.logger.With().Str("start_url", startURL).Logger()
	if opts.DryRun {
		log.Info().Msg("Dry run: nothing will be written")
	}

	current := o.absolute(startURL)
	for page := 1; current != ""; page++ {
		html, err := o.fetcher.Fetch(ctx, current)
		if err != nil {
			log.Error().Err(err).Int("page", page).Str("url", current).Msg("Page fetch failed")
			stats.AddError(models.ErrorKindNetwork, fmt.Sprintf("page %d %s", page, current), err.Error())
			return stats
		}
		stats.PagesCrawled++

		result := o.parser.Parse(html)
		if page == 1 {
			stats.TotalCount = result.TotalCount
		}
		log.Info().Int("page", page).Int("listings", len(result.Listings)).Msg("Parsed page")

		for i := range result.Listings {
			o.processListing(ctx, &result.Listings[i], opts, stats)
			stats.ListingsSeen++
			if err := o.sleep(ctx, opts.RateLimitDelay); err != nil {
				stats.AddError(models.ErrorKindNetwork, "crawl", err.Error())
				return stats
			}
		}

		if result.NextPageURL == "" {
			log.Info().Int("page", page).Msg("Reached last page")
			break
		}
		if opts.MaxPages > 0 && page >= opts.MaxPages {
			log.Info().Int("max_pages", opts.MaxPages).Msg("Reached page limit")
			break
		}
		current = o.absolute(result.NextPageURL)
		if err := o.sleep(ctx, opts.RateLimitDelay); err != nil {
			stats.AddError(models.ErrorKindNetwork, "crawl", err.Error())
			return stats
		}
	}

	log.Info().
		Int("pages", stats.PagesCrawled).
		Int("buildings_created", stats.BuildingsCreated).
		Int("buildings_updated", stats.BuildingsUpdated).
		Int("rooms_created", stats.RoomsCreated).
		Int("rooms_updated", stats.RoomsUpdated).
		Int("images", stats.ImagesDownloaded).
		Int("errors", len(stats.Errors)).
		Msg("Crawl finished")
	return stats
}

// IsPaused reports whether scheduled runs are currently suppressed
func (o *Orchestrator) IsPaused() bool {
	return o.paused.Load()
}

func (o *Orchestrator) absolute(href string) string {
	if o.baseURL == nil {
		return href
	}
	return parser.ResolveURL(o.baseURL, href)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
