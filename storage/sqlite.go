package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"suumo_crawler/models"
)

// SQLiteStore keeps crawl run history, run logs and operator commands
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scrape_runs (
		id INTEGER PRIMARY KEY,
		target_id TEXT,
		start_url TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		pages_crawled INTEGER DEFAULT 0,
		buildings_created INTEGER DEFAULT 0,
		buildings_updated INTEGER DEFAULT 0,
		rooms_created INTEGER DEFAULT 0,
		rooms_updated INTEGER DEFAULT 0,
		images_downloaded INTEGER DEFAULT 0,
		errors_count INTEGER DEFAULT 0,
		stats JSON
	);

	CREATE TABLE IF NOT EXISTS crawl_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		target_id TEXT
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at) WHERE processed_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_logs_run ON crawl_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_target ON scrape_runs(target_id, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateRun(run *models.ScrapeRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO scrape_runs (target_id, start_url, started_at, status)
		VALUES (?, ?, ?, ?)`,
		run.TargetID, run.StartURL, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.ScrapeRun) error {
	var stats any
	if len(run.Stats) > 0 {
		stats = string(run.Stats)
	}
	_, err := s.db.Exec(`
		UPDATE scrape_runs SET finished_at = ?, status = ?, pages_crawled = ?,
			buildings_created = ?, buildings_updated = ?, rooms_created = ?, rooms_updated = ?,
			images_downloaded = ?, errors_count = ?, stats = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.PagesCrawled,
		run.BuildingsCreated, run.BuildingsUpdated, run.RoomsCreated, run.RoomsUpdated,
		run.ImagesDownloaded, run.ErrorsCount, stats, run.ID)
	return err
}

func (s *SQLiteStore) GetRun(id int64) (*models.ScrapeRun, error) {
	var run models.ScrapeRun
	var startURL, stats sql.NullString
	var finished sql.NullTime
	err := s.db.QueryRow(`
		SELECT id, target_id, start_url, started_at, finished_at, status, pages_crawled,
			buildings_created, buildings_updated, rooms_created, rooms_updated,
			images_downloaded, errors_count, stats
		FROM scrape_runs WHERE id = ?`, id).Scan(
		&run.ID, &run.TargetID, &startURL, &run.StartedAt, &finished, &run.Status, &run.PagesCrawled,
		&run.BuildingsCreated, &run.BuildingsUpdated, &run.RoomsCreated, &run.RoomsUpdated,
		&run.ImagesDownloaded, &run.ErrorsCount, &stats)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.StartURL = startURL.String
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	if stats.Valid {
		run.Stats = json.RawMessage(stats.String)
	}
	return &run, nil
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, targetID string) error {
	_, err := s.db.Exec(`
		INSERT INTO crawl_logs (run_id, timestamp, level, message, target_id)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, targetID)
	return err
}

func (s *SQLiteStore) GetLogs(runID int64) ([]models.CrawlLog, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, timestamp, level, message, target_id
		FROM crawl_logs WHERE run_id = ? ORDER BY timestamp, id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.CrawlLog
	for rows.Next() {
		var l models.CrawlLog
		if err := rows.Scan(&l.ID, &l.RunID, &l.Timestamp, &l.Level, &l.Message, &l.TargetID); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// GetLastRunTime returns when the target last finished a run, zero if never
func (s *SQLiteStore) GetLastRunTime(targetID string) (time.Time, error) {
	var lastRun time.Time
	err := s.db.QueryRow(`
		SELECT finished_at FROM scrape_runs
		WHERE target_id = ? AND finished_at IS NOT NULL
		ORDER BY finished_at DESC LIMIT 1`, targetID).Scan(&lastRun)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	return lastRun, err
}

func (s *SQLiteStore) EnqueueCommand(cmd models.CommandType, params models.CommandParams) (int64, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return 0, err
	}
	result, err := s.db.Exec(`INSERT INTO commands (command, params, created_at) VALUES (?, ?, ?)`,
		cmd, string(data), time.Now())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, params, created_at, processed_at
		FROM commands WHERE processed_at IS NULL ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params sql.NullString
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt, &cmd.ProcessedAt); err != nil {
			return nil, err
		}
		if params.Valid {
			cmd.Params = json.RawMessage(params.String)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}
