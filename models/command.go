package models

import (
	"encoding/json"
	"time"
)

type CommandType string

const (
	CmdScrapeNow    CommandType = "scrape_now"
	CmdScrapeTarget CommandType = "scrape_target"
	CmdPause        CommandType = "pause"
	CmdResume       CommandType = "resume"
)

// Command is an operator request queued in the run-history database
type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}

type CommandParams struct {
	Target   string `json:"target,omitempty"`
	URL      string `json:"url,omitempty"`
	MaxPages int    `json:"max_pages,omitempty"`
	DryRun   bool   `json:"dry_run,omitempty"`
}

// ParseParams decodes Params, tolerating an empty payload
func (c *Command) ParseParams() (CommandParams, error) {
	var p CommandParams
	if len(c.Params) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(c.Params, &p); err != nil {
		return p, err
	}
	return p, nil
}
