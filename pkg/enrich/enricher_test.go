package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"pdfharvest/models"
	"pdfharvest/pkg/db"
)

// scriptedClient returns canned responses or errors per call.
type scriptedClient struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

func (c *scriptedClient) Complete(ctx context.Context, sysPrompt, userPrompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.responses) {
		return c.responses[i], nil
	}
	return "", fmt.Errorf("unexpected call %d", i)
}

type extractionLog struct {
	mu      sync.Mutex
	entries []models.ExtractionLogEntry
}

func (l *extractionLog) AppendExtractionLog(ctx context.Context, entry models.ExtractionLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func testPrompts() models.PromptConfig {
	return models.PromptConfig{
		SysPrompt:          "You extract bibliographic metadata as JSON.",
		UserPromptTemplate: "Extract metadata from: {input_text}",
		ResponseKeys:       testKeys,
		MaxInputChars:      1000,
	}
}

func testAI() models.AIConfig {
	return models.AIConfig{MaxAttempts: 3, BackoffSeconds: 0}
}

func testCandidate() models.CandidateItem {
	return models.CandidateItem{
		URL:              "https://example.org/doc.pdf",
		TitleHint:        "Catalog Title",
		OrganizationHint: "Catalog Org",
	}
}

func TestEnrichSuccess(t *testing.T) {
	client := &scriptedClient{responses: []string{validResponse}}
	logs := &extractionLog{}
	e := New(client, testPrompts(), testAI(), logs, "run-test")

	rec, err := e.Enrich(context.Background(), testCandidate(), "document text", "english")
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if rec.Title != "Climate Adaptation Strategies" {
		t.Errorf("title = %q, want AI value to win over catalog hint", rec.Title)
	}

	if len(logs.entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(logs.entries))
	}
	entry := logs.entries[0]
	if entry.Status != models.LogStatusSuccess {
		t.Errorf("log status = %q, want success", entry.Status)
	}
	if !strings.Contains(entry.Prompt, "document text") {
		t.Errorf("log prompt = %q, want substituted input text", entry.Prompt)
	}
	if entry.Response != validResponse {
		t.Error("log entry must carry the exact raw response")
	}
}

func TestEnrichRetriesTransientErrors(t *testing.T) {
	client := &scriptedClient{
		errs:      []error{&APIError{Code: 429}, &APIError{Code: 503}, nil},
		responses: []string{"", "", validResponse},
	}
	logs := &extractionLog{}
	e := New(client, testPrompts(), testAI(), logs, "run-test")

	rec, err := e.Enrich(context.Background(), testCandidate(), "text", "")
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if rec == nil {
		t.Fatal("Enrich() returned nil record")
	}

	// Two failed attempts plus the success, each separately logged.
	if len(logs.entries) != 3 {
		t.Errorf("got %d log entries, want 3", len(logs.entries))
	}
	if logs.entries[0].Status != models.LogStatusError || logs.entries[2].Status != models.LogStatusSuccess {
		t.Error("log entries do not reflect the attempt sequence")
	}
}

func TestEnrichSchemaFailureIsNotRetried(t *testing.T) {
	client := &scriptedClient{responses: []string{`{"title": "only a title"}`}}
	logs := &extractionLog{}
	e := New(client, testPrompts(), testAI(), logs, "run-test")

	_, err := e.Enrich(context.Background(), testCandidate(), "text", "")
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Enrich() error = %v, want SchemaError", err)
	}

	if client.calls != 1 {
		t.Errorf("client called %d times, want 1 (schema failures are not retried)", client.calls)
	}
	if len(logs.entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(logs.entries))
	}
	// Diagnosability: the raw response must survive in the log.
	if logs.entries[0].Response != `{"title": "only a title"}` {
		t.Error("raw response missing from failed attempt's log entry")
	}
	if logs.entries[0].Status != models.LogStatusError {
		t.Errorf("log status = %q, want error", logs.entries[0].Status)
	}
}

func TestEnrichHintsFillEmptyFields(t *testing.T) {
	response := `{
		"title": "",
		"summary": "s",
		"tags": ["a"],
		"year_published": 2021,
		"organization": "",
		"country": "c",
		"language": ""
	}`
	client := &scriptedClient{responses: []string{response}}
	e := New(client, testPrompts(), testAI(), &extractionLog{}, "run-test")

	rec, err := e.Enrich(context.Background(), testCandidate(), "text", "spanish")
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if rec.Title != "Catalog Title" {
		t.Errorf("title = %q, want catalog hint to fill empty AI field", rec.Title)
	}
	if rec.Organization != "Catalog Org" {
		t.Errorf("organization = %q, want catalog hint", rec.Organization)
	}
	if rec.Language != "spanish" {
		t.Errorf("language = %q, want detected hint", rec.Language)
	}
}

// cancellingClient cancels the run context mid-call, the way a signal
// arriving during an inference request would.
type cancellingClient struct {
	cancel context.CancelFunc
}

func (c *cancellingClient) Complete(ctx context.Context, sysPrompt, userPrompt string) (string, error) {
	c.cancel()
	return "", ctx.Err()
}

// ctxCheckingLog refuses writes on a dead context, matching the real
// repository's behavior.
type ctxCheckingLog struct {
	extractionLog
}

func (l *ctxCheckingLog) AppendExtractionLog(ctx context.Context, entry models.ExtractionLogEntry) error {
	if err := ctx.Err(); err != nil {
		return &db.PersistenceError{Op: "append extraction log", Err: err}
	}
	return l.extractionLog.AppendExtractionLog(ctx, entry)
}

func TestEnrichCancellationStillLogsAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logs := &ctxCheckingLog{}
	e := New(&cancellingClient{cancel: cancel}, testPrompts(), testAI(), logs, "run-test")

	_, err := e.Enrich(ctx, testCandidate(), "text", "")
	if err == nil {
		t.Fatal("Enrich() error = nil, want cancellation error")
	}
	if db.IsPersistenceError(err) {
		t.Fatalf("cancellation reported as a storage fault: %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Enrich() error = %v, want context.Canceled", err)
	}

	// The interrupted attempt still left its audit row.
	if len(logs.entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(logs.entries))
	}
	if logs.entries[0].Status != models.LogStatusError {
		t.Errorf("log status = %q, want error", logs.entries[0].Status)
	}
}
