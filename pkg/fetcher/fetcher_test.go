package fetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"pdfharvest/models"
	"pdfharvest/pkg/db"
)

// memoryLog collects appended download log rows.
type memoryLog struct {
	mu      sync.Mutex
	entries []models.DownloadLogEntry
	failAll bool
}

func (m *memoryLog) AppendDownloadLog(ctx context.Context, entry models.DownloadLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errors.New("store unreachable")
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryLog) byStatus(status models.LogStatus) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, e := range m.entries {
		if e.Status == status {
			count++
		}
	}
	return count
}

func newTestFetcher(t *testing.T, logs AttemptLogger) *Fetcher {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return New(models.DownloadConfig{
		Dir:            t.TempDir(),
		MaxMB:          1,
		TimeoutSeconds: 5,
		MaxAttempts:    3,
		BackoffSeconds: 0,
	}, logs, logger, "run-test")
}

func TestFetchSuccessWritesFileAndLogsOnce(t *testing.T) {
	payload := []byte("%PDF-1.4 fake document body")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	logs := &memoryLog{}
	f := newTestFetcher(t, logs)

	result, err := f.Fetch(context.Background(), server.URL+"/papers/sample.pdf")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(result.Data) != string(payload) {
		t.Error("Fetch() returned wrong data")
	}

	onDisk, err := os.ReadFile(result.LocalPath)
	if err != nil {
		t.Fatalf("downloaded file missing: %v", err)
	}
	if string(onDisk) != string(payload) {
		t.Error("file on disk does not match response body")
	}

	if got := f.LocalPath(server.URL + "/papers/sample.pdf"); got != result.LocalPath {
		t.Errorf("LocalPath() = %q not deterministic, result path %q", got, result.LocalPath)
	}

	if len(logs.entries) != 1 || logs.entries[0].Status != models.LogStatusSuccess {
		t.Errorf("got %d log entries, want 1 success entry", len(logs.entries))
	}
	if logs.entries[0].LocalPath != result.LocalPath {
		t.Errorf("log entry path = %q, want %q", logs.entries[0].LocalPath, result.LocalPath)
	}
}

func TestFetchRetriesTransientAndLogsEveryAttempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	logs := &memoryLog{}
	f := newTestFetcher(t, logs)

	_, err := f.Fetch(context.Background(), server.URL+"/always500.pdf")
	if err == nil {
		t.Fatal("Fetch() error = nil, want HTTP status error")
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusInternalServerError {
		t.Errorf("Fetch() error = %v, want HTTPStatusError{500}", err)
	}

	// Retry limit of 3 means exactly 3 failed attempts, each logged.
	if got := logs.byStatus(models.LogStatusError); got != 3 {
		t.Errorf("got %d error log entries, want 3", got)
	}
}

func TestFetchPermanentFailureLogsOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	logs := &memoryLog{}
	f := newTestFetcher(t, logs)

	_, err := f.Fetch(context.Background(), server.URL+"/missing.pdf")
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Fatalf("Fetch() error = %v, want HTTPStatusError{404}", err)
	}

	if len(logs.entries) != 1 {
		t.Errorf("got %d log entries, want 1 (404 is not retried)", len(logs.entries))
	}
}

func TestFetchInvalidURL(t *testing.T) {
	logs := &memoryLog{}
	f := newTestFetcher(t, logs)

	_, err := f.Fetch(context.Background(), "not a url at all")
	if !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("Fetch() error = %v, want ErrInvalidURL", err)
	}
	if len(logs.entries) != 1 || logs.entries[0].Status != models.LogStatusError {
		t.Errorf("got %d log entries, want 1 error entry for invalid URL", len(logs.entries))
	}
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	big := make([]byte, 2*1024*1024)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(big)
	}))
	defer server.Close()

	logs := &memoryLog{}
	f := newTestFetcher(t, logs) // MaxMB is 1

	_, err := f.Fetch(context.Background(), server.URL+"/huge.pdf")
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Fetch() error = %v, want ErrTooLarge", err)
	}
	if len(logs.entries) != 1 {
		t.Errorf("got %d log entries, want 1 (size cap is not retried)", len(logs.entries))
	}
}

func TestFetchSurfacesLogAppendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	logs := &memoryLog{failAll: true}
	f := newTestFetcher(t, logs)

	_, err := f.Fetch(context.Background(), server.URL+"/sample.pdf")
	if err == nil {
		t.Fatal("Fetch() error = nil, want log-append failure to propagate")
	}
}

func TestIsTransientClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "server error", err: &HTTPStatusError{Code: 503}, want: true},
		{name: "rate limit", err: &HTTPStatusError{Code: 429}, want: true},
		{name: "not found", err: &HTTPStatusError{Code: 404}, want: false},
		{name: "forbidden", err: &HTTPStatusError{Code: 403}, want: false},
		{name: "invalid url", err: ErrInvalidURL, want: false},
		{name: "too large", err: ErrTooLarge, want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFetchCancellationIsNotAStorageFault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte("%PDF-1.4 late body"))
	}))
	defer server.Close()

	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	repo := db.NewRepository(database)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	f := New(models.DownloadConfig{
		Dir:            t.TempDir(),
		MaxMB:          1,
		TimeoutSeconds: 5,
		MaxAttempts:    3,
	}, repo, logger, "run-test")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	url := server.URL + "/slow.pdf"
	_, err = f.Fetch(ctx, url)
	if err == nil {
		t.Fatal("Fetch() error = nil, want cancellation error")
	}
	if db.IsPersistenceError(err) {
		t.Fatalf("cancellation reported as a storage fault: %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch() error = %v, want context.Canceled", err)
	}

	// The interrupted attempt still left its audit row.
	count, err := repo.CountDownloadLogs(context.Background(), url)
	if err != nil {
		t.Fatalf("CountDownloadLogs() error = %v", err)
	}
	if count != 1 {
		t.Errorf("download log rows = %d, want 1", count)
	}
}
