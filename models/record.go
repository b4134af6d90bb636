// Package models defines the shared data model for the harvest pipeline:
// candidates discovered from the catalog, the final metadata record, and
// the two append-only audit log entry types.
package models

import "time"

// LogStatus is the outcome recorded on an audit log row.
type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusError   LogStatus = "error"
)

// CandidateItem is a document discovered via the catalog, awaiting
// processing. TitleHint and OrganizationHint are stub bibliographic
// fields from the catalog; they fill gaps the AI response leaves empty.
type CandidateItem struct {
	URL              string
	TitleHint        string
	OrganizationHint string
}

// PdfMetadataRecord is the enriched metadata persisted for a document
// once every pipeline stage has succeeded. One record exists per
// distinct source URL; PdfPath is unique and derived from the URL.
type PdfMetadataRecord struct {
	ID            int64
	URL           string
	Title         string
	Summary       string
	Tags          []string
	YearPublished int
	Organization  string
	Country       string
	Language      string
	PdfPath       string
	CreatedAt     time.Time
}

// DownloadLogEntry records a single download attempt, success or
// failure. Rows are append-only: retries produce additional rows.
type DownloadLogEntry struct {
	ID              int64
	RunID           string
	URL             string
	LocalPath       string
	Status          LogStatus
	ErrorMessage    string
	DurationSeconds float64
	Timestamp       time.Time
}

// ExtractionLogEntry records a single AI extraction attempt with the
// exact prompts sent and the raw response received. Rows are
// append-only. URL ties the attempt back to its source document so the
// audit trail is queryable per URL.
type ExtractionLogEntry struct {
	ID              int64
	RunID           string
	URL             string
	SysPrompt       string
	Prompt          string
	Response        string
	Status          LogStatus
	ErrorMessage    string
	DurationSeconds float64
	Timestamp       time.Time
}
