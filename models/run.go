package models

import (
	"encoding/json"
	"time"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

// ScrapeRun is the persisted history row for one crawl invocation
type ScrapeRun struct {
	ID               int64           `json:"id" db:"id"`
	TargetID         string          `json:"target_id" db:"target_id"`
	StartURL         string          `json:"start_url" db:"start_url"`
	StartedAt        time.Time       `json:"started_at" db:"started_at"`
	FinishedAt       *time.Time      `json:"finished_at" db:"finished_at"`
	Status           RunStatus       `json:"status" db:"status"`
	PagesCrawled     int             `json:"pages_crawled" db:"pages_crawled"`
	BuildingsCreated int             `json:"buildings_created" db:"buildings_created"`
	BuildingsUpdated int             `json:"buildings_updated" db:"buildings_updated"`
	RoomsCreated     int             `json:"rooms_created" db:"rooms_created"`
	RoomsUpdated     int             `json:"rooms_updated" db:"rooms_updated"`
	ImagesDownloaded int             `json:"images_downloaded" db:"images_downloaded"`
	ErrorsCount      int             `json:"errors_count" db:"errors_count"`
	Stats            json.RawMessage `json:"stats" db:"stats"`
}

// ErrorKind classifies a recoverable crawl error
type ErrorKind string

const (
	ErrorKindNetwork    ErrorKind = "network"
	ErrorKindParse      ErrorKind = "parse"
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindImage      ErrorKind = "image"
	ErrorKindStore      ErrorKind = "store"
)

// CrawlError is one recoverable failure recorded during a crawl
type CrawlError struct {
	Context string    `json:"context"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind"`
}

// Outcome is what happened to a single building, room or image
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeCreated
	OutcomeUpdated
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// ItemResult is the per-item report accumulated into CrawlStats
type ItemResult struct {
	Outcome Outcome
	Err     *CrawlError
}

func Created() ItemResult { return ItemResult{Outcome: OutcomeCreated} }
func Updated() ItemResult { return ItemResult{Outcome: OutcomeUpdated} }
func Skipped() ItemResult { return ItemResult{Outcome: OutcomeSkipped} }

// Failed builds a failed result carrying the error that caused it
func Failed(kind ErrorKind, context string, err error) ItemResult {
	return ItemResult{
		Outcome: OutcomeFailed,
		Err:     &CrawlError{Context: context, Message: err.Error(), Kind: kind},
	}
}

// CrawlStats aggregates one crawl invocation
type CrawlStats struct {
	StartURL         string       `json:"start_url"`
	StartedAt        time.Time    `json:"started_at"`
	FinishedAt       time.Time    `json:"finished_at"`
	PagesCrawled     int          `json:"pages_crawled"`
	ListingsSeen     int          `json:"listings_seen"`
	TotalCount       int          `json:"total_count"`
	BuildingsCreated int          `json:"buildings_created"`
	BuildingsUpdated int          `json:"buildings_updated"`
	BuildingsSkipped int          `json:"buildings_skipped"`
	RoomsCreated     int          `json:"rooms_created"`
	RoomsUpdated     int          `json:"rooms_updated"`
	RoomsSkipped     int          `json:"rooms_skipped"`
	ImagesDownloaded int          `json:"images_downloaded"`
	ImagesSkipped    int          `json:"images_skipped"`
	Errors           []CrawlError `json:"errors"`
}

// RecordBuilding folds a building result into the counters
func (s *CrawlStats) RecordBuilding(r ItemResult) {
	switch r.Outcome {
	case OutcomeCreated:
		s.BuildingsCreated++
	case OutcomeUpdated:
		s.BuildingsUpdated++
	default:
		s.BuildingsSkipped++
	}
	s.recordErr(r)
}

// RecordRoom folds a room result into the counters
func (s *CrawlStats) RecordRoom(r ItemResult) {
	switch r.Outcome {
	case OutcomeCreated:
		s.RoomsCreated++
	case OutcomeUpdated:
		s.RoomsUpdated++
	default:
		s.RoomsSkipped++
	}
	s.recordErr(r)
}

// RecordImage folds an image result into the counters; failures count as not downloaded
func (s *CrawlStats) RecordImage(r ItemResult) {
	switch r.Outcome {
	case OutcomeCreated:
		s.ImagesDownloaded++
	case OutcomeSkipped:
		s.ImagesSkipped++
	}
	s.recordErr(r)
}

// AddError records a failure that is not tied to a single item
func (s *CrawlStats) AddError(kind ErrorKind, context, message string) {
	s.Errors = append(s.Errors, CrawlError{Context: context, Message: message, Kind: kind})
}

func (s *CrawlStats) recordErr(r ItemResult) {
	if r.Err != nil {
		s.Errors = append(s.Errors, *r.Err)
	}
}

// Status derives the run status from the collected counters
func (s *CrawlStats) Status() RunStatus {
	if len(s.Errors) == 0 {
		return RunStatusCompleted
	}
	if s.PagesCrawled == 0 {
		return RunStatusFailed
	}
	return RunStatusPartial
}

// ToJSON returns JSON-serializable metadata for run history
func (s *CrawlStats) ToJSON() json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}
