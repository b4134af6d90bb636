// Package fetcher downloads candidate documents to path-addressed local
// storage. Every attempt, success or failure, appends exactly one row to
// the download log; transient failures are retried with backoff.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pdfharvest/internal/common"
	"pdfharvest/models"
	"pdfharvest/pkg/retry"
)

// Browser-like agents rotated per request; some hosts reject obvious bots.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// AttemptLogger receives one download log row per fetch attempt.
type AttemptLogger interface {
	AppendDownloadLog(ctx context.Context, entry models.DownloadLogEntry) error
}

// Result describes a successfully downloaded document.
type Result struct {
	LocalPath   string
	Data        []byte
	ContentHash string
}

// Fetcher downloads documents with retry and audit logging.
type Fetcher struct {
	client   *http.Client
	dir      string
	maxBytes int64
	policy   retry.Policy
	logs     AttemptLogger
	logger   *slog.Logger
	runID    string
}

// New builds a fetcher from download configuration. runID is stamped
// onto every log row this fetcher appends.
func New(cfg models.DownloadConfig, logs AttemptLogger, logger *slog.Logger, runID string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout(),
		},
		dir:      cfg.Dir,
		maxBytes: int64(cfg.MaxMB) * 1024 * 1024,
		policy: retry.Policy{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: time.Duration(cfg.BackoffSeconds * float64(time.Second)),
			MaxDelay:     30 * time.Second,
		},
		logs:   logs,
		logger: logger,
		runID:  runID,
	}
}

// LocalPath returns the deterministic storage path for a URL. Re-fetching
// the same URL always targets the same path.
func (f *Fetcher) LocalPath(rawURL string) string {
	return filepath.Join(f.dir, common.FileNameForURL(rawURL))
}

// Fetch downloads the document at rawURL to its deterministic local
// path. On a malformed URL it logs a single failed attempt and returns
// ErrInvalidURL; transient errors are retried up to the configured
// limit with one log row per attempt.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	cleaned := common.SanitizeURL(rawURL)
	if err := common.ValidateURL(cleaned); err != nil {
		invalidErr := fmt.Errorf("%w: %v", ErrInvalidURL, err)
		if logErr := f.logAttempt(ctx, rawURL, "", 0, invalidErr); logErr != nil {
			return nil, logErr
		}
		return nil, invalidErr
	}

	localPath := f.LocalPath(cleaned)
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	var result *Result
	err := retry.Do(ctx, f.policy, func(ctx context.Context, attempt int) error {
		start := time.Now()
		data, fetchErr := f.download(ctx, cleaned)
		duration := time.Since(start).Seconds()

		loggedPath := ""
		if fetchErr == nil {
			loggedPath = localPath
		}
		if logErr := f.logAttempt(ctx, cleaned, loggedPath, duration, fetchErr); logErr != nil {
			// Losing the audit trail is worse than losing the download.
			return retry.Permanent(logErr)
		}
		if fetchErr != nil {
			if IsTransient(fetchErr) {
				return fetchErr
			}
			return retry.Permanent(fetchErr)
		}

		if writeErr := os.WriteFile(localPath, data, 0o644); writeErr != nil {
			return retry.Permanent(fmt.Errorf("failed to write %s: %w", localPath, writeErr))
		}
		result = &Result{
			LocalPath:   localPath,
			Data:        data,
			ContentHash: common.ContentHash(data),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept", "application/pdf,text/html;q=0.9,*/*;q=0.8")
	if parsed, err := url.Parse(rawURL); err == nil {
		req.Header.Set("Referer", parsed.Scheme+"://"+parsed.Host)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{Code: resp.StatusCode}
	}

	// Not fatal: some hosts mislabel PDFs, and HTML landing pages are
	// handled downstream. Worth a note in the run log though.
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "pdf") && !strings.Contains(contentType, "html") {
		f.logger.Warn("Unexpected content type", "url", rawURL, "content_type", contentType)
	}

	if resp.ContentLength > 0 && resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: content-length %d bytes", ErrTooLarge, resp.ContentLength)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: body over %d bytes", ErrTooLarge, f.maxBytes)
	}
	return data, nil
}

func (f *Fetcher) logAttempt(ctx context.Context, url, localPath string, duration float64, fetchErr error) error {
	entry := models.DownloadLogEntry{
		RunID:           f.runID,
		URL:             url,
		LocalPath:       localPath,
		Status:          models.LogStatusSuccess,
		DurationSeconds: duration,
		Timestamp:       time.Now().UTC(),
	}
	if fetchErr != nil {
		entry.Status = models.LogStatusError
		entry.ErrorMessage = classifyMessage(fetchErr)
	}
	// The attempt happened, so its row must land even when the run is
	// being cancelled mid-stage.
	return f.logs.AppendDownloadLog(context.WithoutCancel(ctx), entry)
}
