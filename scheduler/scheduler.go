package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"suumo_crawler/config"
	"suumo_crawler/models"
)

// Runner is the part of the orchestrator the scheduler drives. Ticks call
// RunDue; TriggerNow calls RunAll.
type Runner interface {
	RunAll(ctx context.Context) error
	RunDue(ctx context.Context) error
	HandleCommand(ctx context.Context, cmd *models.Command) error
}

// CommandQueue is the operator command inbox
type CommandQueue interface {
	GetPendingCommands() ([]models.Command, error)
	MarkCommandProcessed(id int64) error
}

type Scheduler struct {
	cfg      config.SchedulerConfig
	runner   Runner
	commands CommandQueue
	log      zerolog.Logger
	cron     *cron.Cron
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once

	pollInterval time.Duration
}

func New(cfg config.SchedulerConfig, runner Runner, commands CommandQueue, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		runner:       runner,
		commands:     commands,
		log:          log,
		cron:         cron.New(),
		stopCh:       make(chan struct{}),
		pollInterval: 2 * time.Second,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.commands != nil {
		go s.pollCommands(ctx)
	}

	if s.cfg.Cron != "" {
		s.log.Info().Str("cron", s.cfg.Cron).Msg("Starting scheduler")
		_, err := s.cron.AddFunc(s.cfg.Cron, func() {
			if err := s.runner.RunDue(ctx); err != nil {
				s.log.Error().Err(err).Msg("Scheduled run error")
			}
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else if s.cfg.Interval > 0 {
		s.log.Info().Dur("interval", s.cfg.Interval).Msg("Starting scheduler")
		s.ticker = time.NewTicker(s.cfg.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					if err := s.runner.RunDue(ctx); err != nil {
						s.log.Error().Err(err).Msg("Scheduled run error")
					}
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		s.log.Info().Msg("No schedule configured, daemon will only respond to commands")
	}

	return nil
}

// Stop halts scheduling and waits for a running cron job; safe to call twice
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.cron != nil {
			<-s.cron.Stop().Done()
		}
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
	})
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.processCommands(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// processCommands drains the inbox once; a failing command is still marked
// processed so it is not retried forever
func (s *Scheduler) processCommands(ctx context.Context) {
	cmds, err := s.commands.GetPendingCommands()
	if err != nil {
		s.log.Error().Err(err).Msg("Error getting commands")
		return
	}

	for i := range cmds {
		cmd := &cmds[i]
		s.log.Info().Str("command", string(cmd.Command)).Int64("id", cmd.ID).Msg("Processing command")
		if err := s.runner.HandleCommand(ctx, cmd); err != nil {
			s.log.Error().Err(err).Str("command", string(cmd.Command)).Msg("Command error")
		}
		if err := s.commands.MarkCommandProcessed(cmd.ID); err != nil {
			s.log.Error().Err(err).Int64("id", cmd.ID).Msg("Error marking command processed")
		}
	}
}

func (s *Scheduler) TriggerNow(ctx context.Context) error {
	return s.runner.RunAll(ctx)
}
