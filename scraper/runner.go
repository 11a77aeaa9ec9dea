package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"suumo_crawler/config"
	"suumo_crawler/models"
)

// maxLoggedErrors caps how many per-item errors are copied into the run log
const maxLoggedErrors = 50

func (o *Orchestrator) RunAll(ctx context.Context) error {
	if o.IsPaused() {
		o.logger.Info().Msg("Crawler is paused, skipping run")
		return nil
	}

	for _, id := range o.TargetIDs() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := o.RunTarget(ctx, id); err != nil {
			o.logger.Error().Err(err).Str("target", id).Msg("Error running target")
		}
	}
	return nil
}

// RunDue is RunAll for scheduled ticks: targets that finished a run within
// the configured minimum gap are skipped
func (o *Orchestrator) RunDue(ctx context.Context) error {
	if o.IsPaused() {
		o.logger.Info().Msg("Crawler is paused, skipping run")
		return nil
	}

	for _, id := range o.TargetIDs() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !o.due(id) {
			o.logger.Info().Str("target", id).Msg("Target ran recently, skipping")
			continue
		}
		if err := o.RunTarget(ctx, id); err != nil {
			o.logger.Error().Err(err).Str("target", id).Msg("Error running target")
		}
	}
	return nil
}

func (o *Orchestrator) due(targetID string) bool {
	gap := o.cfg.Scheduler.MinGap
	if gap <= 0 || o.history == nil {
		return true
	}
	last, err := o.history.GetLastRunTime(targetID)
	if err != nil {
		o.logger.Warn().Err(err).Str("target", targetID).Msg("Could not read last run time")
		return true
	}
	return last.IsZero() || o.now().Sub(last) >= gap
}

func (o *Orchestrator) RunTarget(ctx context.Context, targetID string) error {
	target, ok := o.cfg.Targets[targetID]
	if !ok {
		return fmt.Errorf("unknown target: %s", targetID)
	}
	if target.Disabled {
		o.logger.Info().Str("target", targetID).Msg("Target disabled, skipping")
		return nil
	}
	_, err := o.Run(ctx, target)
	return err
}

// Run crawls one target and records the run in the history store
func (o *Orchestrator) Run(ctx context.Context, target *config.TargetConfig) (*models.CrawlStats, error) {
	return o.run(ctx, target.ID, target.StartURL, OptionsFrom(o.cfg.CrawlOptions(target)))
}

// RunURL crawls an ad hoc start URL with explicit options
func (o *Orchestrator) RunURL(ctx context.Context, startURL string, opts Options) (*models.CrawlStats, error) {
	return o.run(ctx, "adhoc", startURL, opts)
}

func (o *Orchestrator) run(ctx context.Context, targetID, startURL string, opts Options) (*models.CrawlStats, error) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	run := &models.ScrapeRun{
		TargetID:  targetID,
		StartURL:  startURL,
		StartedAt: o.now(),
		Status:    models.RunStatusRunning,
	}
	if o.history != nil {
		id, err := o.history.CreateRun(run)
		if err != nil {
			return nil, fmt.Errorf("create run: %w", err)
		}
		run.ID = id
	}

	o.record(run.ID, models.LogLevelInfo, fmt.Sprintf("Starting crawl of %s", startURL), targetID)

	stats := o.Scrape(ctx, startURL, opts)

	finished := stats.FinishedAt
	run.FinishedAt = &finished
	run.Status = stats.Status()
	run.PagesCrawled = stats.PagesCrawled
	run.BuildingsCreated = stats.BuildingsCreated
	run.BuildingsUpdated = stats.BuildingsUpdated
	run.RoomsCreated = stats.RoomsCreated
	run.RoomsUpdated = stats.RoomsUpdated
	run.ImagesDownloaded = stats.ImagesDownloaded
	run.ErrorsCount = len(stats.Errors)
	run.Stats = stats.ToJSON()

	for i, e := range stats.Errors {
		if i == maxLoggedErrors {
			o.record(run.ID, models.LogLevelWarn, fmt.Sprintf("%d more errors not logged", len(stats.Errors)-i), targetID)
			break
		}
		o.record(run.ID, models.LogLevelWarn, fmt.Sprintf("[%s] %s: %s", e.Kind, e.Context, e.Message), targetID)
	}

	level := models.LogLevelInfo
	if run.Status == models.RunStatusFailed {
		level = models.LogLevelError
	}
	o.record(run.ID, level, fmt.Sprintf(
		"Finished (%s): %d pages, buildings %d new/%d updated, rooms %d new/%d updated, %d images, %d errors",
		run.Status, run.PagesCrawled, run.BuildingsCreated, run.BuildingsUpdated,
		run.RoomsCreated, run.RoomsUpdated, run.ImagesDownloaded, run.ErrorsCount,
	), targetID)

	if o.history != nil {
		if err := o.history.UpdateRun(run); err != nil {
			return stats, fmt.Errorf("update run: %w", err)
		}
	}
	return stats, nil
}

func (o *Orchestrator) HandleCommand(ctx context.Context, cmd *models.Command) error {
	params, err := cmd.ParseParams()
	if err != nil {
		return fmt.Errorf("parse params: %w", err)
	}

	switch cmd.Command {
	case models.CmdScrapeNow:
		return o.RunAll(ctx)
	case models.CmdScrapeTarget:
		if params.URL != "" {
			opts := OptionsFrom(o.cfg.Crawl)
			if params.MaxPages > 0 {
				opts.MaxPages = params.MaxPages
			}
			opts.DryRun = opts.DryRun || params.DryRun
			_, err := o.RunURL(ctx, params.URL, opts)
			return err
		}
		if params.Target != "" {
			return o.RunTarget(ctx, params.Target)
		}
		return o.RunAll(ctx)
	case models.CmdPause:
		o.paused.Store(true)
		o.logger.Info().Msg("Crawler paused")
	case models.CmdResume:
		o.paused.Store(false)
		o.logger.Info().Msg("Crawler resumed")
	default:
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}
	return nil
}

func (o *Orchestrator) record(runID int64, level models.LogLevel, message, targetID string) {
	ev := o.logger.Info()
	switch level {
	case models.LogLevelWarn:
		ev = o.logger.Warn()
	case models.LogLevelError:
		ev = o.logger.Error()
	}
	ev.Str("target", targetID).Msg(message)

	if o.history == nil {
		return
	}
	var id *int64
	if runID != 0 {
		id = &runID
	}
	if err := o.history.Log(id, level, message, targetID); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to write run log")
	}
}

// TargetIDs returns the configured target ids in a stable order
func (o *Orchestrator) TargetIDs() []string {
	ids := make([]string, 0, len(o.cfg.Targets))
	for id := range o.cfg.Targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MarshalStatus reports pause state and configured targets as JSON
func (o *Orchestrator) MarshalStatus() ([]byte, error) {
	status := map[string]interface{}{
		"paused":  o.IsPaused(),
		"targets": o.TargetIDs(),
	}
	return json.Marshal(status)
}
