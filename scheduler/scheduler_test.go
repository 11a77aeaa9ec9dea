package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suumo_crawler/config"
	"suumo_crawler/models"
	"suumo_crawler/storage"
)

type fakeRunner struct {
	mu       sync.Mutex
	runs     int
	ticks    int
	commands []models.CommandType
	params   []models.CommandParams
	fail     models.CommandType
}

func (r *fakeRunner) RunAll(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
	return nil
}

func (r *fakeRunner) RunDue(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks++
	return nil
}

func (r *fakeRunner) HandleCommand(_ context.Context, cmd *models.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd.Command)
	p, err := cmd.ParseParams()
	if err != nil {
		return err
	}
	r.params = append(r.params, p)
	if cmd.Command == r.fail {
		return errors.New("boom")
	}
	return nil
}

func (r *fakeRunner) runCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func (r *fakeRunner) tickCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks
}

func newSQLite(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "crawler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestProcessCommands_DrainsInbox(t *testing.T) {
	store := newSQLite(t)
	runner := &fakeRunner{fail: models.CmdPause}
	s := New(config.SchedulerConfig{}, runner, store, zerolog.Nop())

	_, err := store.EnqueueCommand(models.CmdScrapeTarget, models.CommandParams{Target: "shibuya"})
	require.NoError(t, err)
	_, err = store.EnqueueCommand(models.CmdPause, models.CommandParams{})
	require.NoError(t, err)

	s.processCommands(context.Background())

	assert.Equal(t, []models.CommandType{models.CmdScrapeTarget, models.CmdPause}, runner.commands)
	assert.Equal(t, "shibuya", runner.params[0].Target)

	pending, err := store.GetPendingCommands()
	require.NoError(t, err)
	assert.Empty(t, pending, "failed commands are marked processed too")
}

func TestStart_InvalidCron(t *testing.T) {
	s := New(config.SchedulerConfig{Cron: "not a cron"}, &fakeRunner{}, nil, zerolog.Nop())
	err := s.Start(context.Background())
	assert.Error(t, err)
}

func TestStart_IntervalTriggersRuns(t *testing.T) {
	runner := &fakeRunner{}
	s := New(config.SchedulerConfig{Interval: 10 * time.Millisecond}, runner, nil, zerolog.Nop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return runner.tickCount() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, runner.runCount(), "ticks only run due targets")
}

func TestStop_Twice(t *testing.T) {
	s := New(config.SchedulerConfig{Interval: time.Hour}, &fakeRunner{}, nil, zerolog.Nop())
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	assert.NotPanics(t, s.Stop)
}

func TestTriggerNow(t *testing.T) {
	runner := &fakeRunner{}
	s := New(config.SchedulerConfig{}, runner, nil, zerolog.Nop())
	require.NoError(t, s.TriggerNow(context.Background()))
	assert.Equal(t, 1, runner.runCount())
	assert.Zero(t, runner.tickCount())
}
