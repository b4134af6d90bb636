package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"pdfharvest/models"
)

// Repository persists metadata records and the append-only audit logs.
type Repository struct {
	db *DB
	sb sq.StatementBuilderType
}

// NewRepository wires a repository on top of an open database.
func NewRepository(db *DB) *Repository {
	return &Repository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// Exists reports whether a metadata record for the URL is already
// stored. This is the idempotency check that lets a re-run skip
// already-processed candidates.
func (r *Repository) Exists(ctx context.Context, url string) (bool, error) {
	query, args, err := r.sb.
		Select("1").
		From("pdf_metadata").
		Where(sq.Eq{"url": url}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build exists query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &PersistenceError{Op: "exists lookup", Err: err}
	}
	return true, nil
}

// StoreMetadata inserts the final metadata record and returns its ID.
// A second insert for the same URL or path returns ErrDuplicate so that
// concurrent or repeated runs never create duplicate records.
func (r *Repository) StoreMetadata(ctx context.Context, rec models.PdfMetadataRecord) (int64, error) {
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return 0, fmt.Errorf("failed to encode tags: %w", err)
	}

	query, args, err := r.sb.
		Insert("pdf_metadata").
		Columns("url", "title", "summary", "tags", "year_published",
			"organization", "country", "language", "pdf_path").
		Values(rec.URL, rec.Title, rec.Summary, string(tags), rec.YearPublished,
			rec.Organization, rec.Country, rec.Language, rec.PdfPath).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build insert: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, &PersistenceError{Op: "store metadata", Err: err}
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, &PersistenceError{Op: "store metadata", Err: err}
	}
	return id, nil
}

// GetMetadata returns the stored record for a URL, or nil when absent.
func (r *Repository) GetMetadata(ctx context.Context, url string) (*models.PdfMetadataRecord, error) {
	query, args, err := r.sb.
		Select("id", "url", "title", "summary", "tags", "year_published",
			"organization", "country", "language", "pdf_path", "created_at").
		From("pdf_metadata").
		Where(sq.Eq{"url": url}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	var rec models.PdfMetadataRecord
	var tags string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&rec.ID, &rec.URL, &rec.Title, &rec.Summary, &tags, &rec.YearPublished,
		&rec.Organization, &rec.Country, &rec.Language, &rec.PdfPath, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get metadata", Err: err}
	}

	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags for %s: %w", url, err)
		}
	}
	return &rec, nil
}

// AppendDownloadLog appends one download attempt row. Never updates.
func (r *Repository) AppendDownloadLog(ctx context.Context, entry models.DownloadLogEntry) error {
	query, args, err := r.sb.
		Insert("download_logs").
		Columns("run_id", "url", "local_path", "status", "error_message",
			"duration_seconds", "timestamp").
		Values(entry.RunID, entry.URL, entry.LocalPath, string(entry.Status),
			entry.ErrorMessage, entry.DurationSeconds, logTimestamp(entry.Timestamp)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build download log insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return &PersistenceError{Op: "append download log", Err: err}
	}
	return nil
}

// AppendExtractionLog appends one AI extraction attempt row. Never updates.
func (r *Repository) AppendExtractionLog(ctx context.Context, entry models.ExtractionLogEntry) error {
	query, args, err := r.sb.
		Insert("extraction_logs").
		Columns("run_id", "url", "sys_prompt", "prompt", "response", "status",
			"error_message", "duration_seconds", "timestamp").
		Values(entry.RunID, entry.URL, entry.SysPrompt, entry.Prompt, entry.Response,
			string(entry.Status), entry.ErrorMessage, entry.DurationSeconds,
			logTimestamp(entry.Timestamp)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build extraction log insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return &PersistenceError{Op: "append extraction log", Err: err}
	}
	return nil
}

// CountDownloadLogs returns the number of download attempt rows for a URL.
func (r *Repository) CountDownloadLogs(ctx context.Context, url string) (int, error) {
	return r.countByURL(ctx, "download_logs", url)
}

// CountExtractionLogs returns the number of extraction attempt rows for a URL.
func (r *Repository) CountExtractionLogs(ctx context.Context, url string) (int, error) {
	return r.countByURL(ctx, "extraction_logs", url)
}

func (r *Repository) countByURL(ctx context.Context, table, url string) (int, error) {
	query, args, err := r.sb.
		Select("COUNT(*)").
		From(table).
		Where(sq.Eq{"url": url}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, &PersistenceError{Op: "count " + table, Err: err}
	}
	return count, nil
}

// Stats summarizes stored record and log row counts for status reporting.
type Stats struct {
	MetadataRecords int
	DownloadLogs    int
	ExtractionLogs  int
}

// GetStats returns row counts across the three tables.
func (r *Repository) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	for _, q := range []struct {
		table string
		dest  *int
	}{
		{"pdf_metadata", &stats.MetadataRecords},
		{"download_logs", &stats.DownloadLogs},
		{"extraction_logs", &stats.ExtractionLogs},
	} {
		query, args, err := r.sb.Select("COUNT(*)").From(q.table).ToSql()
		if err != nil {
			return Stats{}, fmt.Errorf("failed to build stats query: %w", err)
		}
		if err := r.db.QueryRowContext(ctx, query, args...).Scan(q.dest); err != nil {
			return Stats{}, &PersistenceError{Op: "stats " + q.table, Err: err}
		}
	}
	return stats, nil
}

// Ping verifies store connectivity. Used before dispatching work so a
// dead store fails the run up front rather than per item.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return &PersistenceError{Op: "ping", Err: err}
	}
	return nil
}

func logTimestamp(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now().UTC()
	}
	return ts.UTC()
}
