package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_DIR", t.TempDir())
	t.Setenv("SCRAPE_DELAY_MS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://suumo.jp", cfg.Site.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Crawl.Delay)
	assert.Equal(t, DefaultMappings(), cfg.Mappings)
	assert.Empty(t, cfg.Lines)
	assert.Empty(t, cfg.Targets)
}

func TestLoad_Files(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("SCRAPE_DELAY_MS", "1500")
	t.Setenv("SCRAPE_INTERVAL", "6h")
	t.Setenv("SCRAPE_MIN_GAP", "30m")

	writeFile(t, filepath.Join(dir, "mappings.yaml"), "room_types:\n  1LDK: one_ldk\n  1K: one_k\n")
	writeFile(t, filepath.Join(dir, "stations.yaml"), "lines:\n  - id: l1\n    name: JR山手線\n    stations:\n      - {id: s1, name: 渋谷}\n")
	writeFile(t, filepath.Join(dir, "targets", "a.yaml"), "id: a\nstart_url: https://suumo.jp/x\nmax_pages: 2\n")
	writeFile(t, filepath.Join(dir, "targets", "notes.txt"), "ignored")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.Crawl.Delay)
	assert.Equal(t, 6*time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.MinGap)
	assert.Equal(t, OrderedMap{{"1LDK", "one_ldk"}, {"1K", "one_k"}}, cfg.Mappings.RoomTypes)
	assert.Equal(t, DefaultMappings().BuildingTypes, cfg.Mappings.BuildingTypes, "tables absent from the file keep defaults")
	require.Len(t, cfg.Lines, 1)
	assert.Equal(t, "s1", cfg.Lines[0].Stations[0].ID)
	require.Contains(t, cfg.Targets, "a")
	assert.Equal(t, 2, cfg.Targets["a"].MaxPages)
}

func TestLoad_InvalidTarget(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)
	writeFile(t, filepath.Join(dir, "targets", "bad.yaml"), "name: missing id\n")

	_, err := Load()
	assert.Error(t, err)
}

func TestOrderedMap_PreservesOrder(t *testing.T) {
	var m MappingConfig
	require.NoError(t, yaml.Unmarshal([]byte("room_types:\n  Z: z\n  A: a\n  M: m\n"), &m))
	require.Len(t, m.RoomTypes, 3)
	assert.Equal(t, "Z", m.RoomTypes[0].Key)
	assert.Equal(t, "M", m.RoomTypes[2].Key)

	v, ok := m.RoomTypes.Lookup("A")
	assert.True(t, ok)
	assert.Equal(t, "a", v)
	_, ok = m.RoomTypes.Lookup("B")
	assert.False(t, ok)
}

func TestOrderedMap_RejectsSequence(t *testing.T) {
	var m MappingConfig
	assert.Error(t, yaml.Unmarshal([]byte("room_types:\n  - a\n"), &m))
}

func TestCrawlOptions(t *testing.T) {
	cfg := &Config{Crawl: CrawlConfig{Delay: time.Second, MaxPages: 10}}
	opts := cfg.CrawlOptions(&TargetConfig{DelayMS: 3000, SkipImages: true})
	assert.Equal(t, 3*time.Second, opts.Delay)
	assert.Equal(t, 10, opts.MaxPages)
	assert.True(t, opts.SkipImages)
	assert.Equal(t, time.Second, cfg.Crawl.Delay, "defaults are not mutated")
}
