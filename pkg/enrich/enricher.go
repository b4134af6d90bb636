package enrich

import (
	"context"
	"time"

	"pdfharvest/models"
	"pdfharvest/pkg/retry"
)

// AttemptLogger receives one extraction log row per inference attempt.
type AttemptLogger interface {
	AppendExtractionLog(ctx context.Context, entry models.ExtractionLogEntry) error
}

// Enricher produces a metadata record from extracted document text.
type Enricher struct {
	client  InferenceClient
	prompts models.PromptConfig
	policy  retry.Policy
	logs    AttemptLogger
	runID   string
}

// New builds an enricher. runID is stamped onto every log row.
func New(client InferenceClient, prompts models.PromptConfig, ai models.AIConfig, logs AttemptLogger, runID string) *Enricher {
	return &Enricher{
		client:  client,
		prompts: prompts,
		policy: retry.Policy{
			MaxAttempts:  ai.MaxAttempts,
			InitialDelay: time.Duration(ai.BackoffSeconds * float64(time.Second)),
			MaxDelay:     30 * time.Second,
		},
		logs:  logs,
		runID: runID,
	}
}

// Enrich prompts the inference service with the document text and
// validates the structured response. Transient service errors are
// retried with backoff; a schema-invalid response fails immediately
// since re-asking the same prompt is a content problem, not a fault.
// Stub fields from the candidate and the detected language fill any
// gaps the AI response leaves empty.
func (e *Enricher) Enrich(ctx context.Context, item models.CandidateItem, text, languageHint string) (*models.PdfMetadataRecord, error) {
	sysPrompt := e.prompts.SysPrompt
	userPrompt := BuildUserPrompt(e.prompts.UserPromptTemplate, text, e.prompts.MaxInputChars)

	var record *models.PdfMetadataRecord
	err := retry.Do(ctx, e.policy, func(ctx context.Context, attempt int) error {
		start := time.Now()
		raw, callErr := e.client.Complete(ctx, sysPrompt, userPrompt)
		duration := time.Since(start).Seconds()

		var parsed *models.PdfMetadataRecord
		var parseErr error
		if callErr == nil {
			parsed, parseErr = ParseMetadata(raw, e.prompts.ResponseKeys)
		}

		entry := models.ExtractionLogEntry{
			RunID:           e.runID,
			URL:             item.URL,
			SysPrompt:       sysPrompt,
			Prompt:          userPrompt,
			Response:        raw,
			Status:          models.LogStatusSuccess,
			DurationSeconds: duration,
			Timestamp:       time.Now().UTC(),
		}
		switch {
		case callErr != nil:
			entry.Status = models.LogStatusError
			entry.ErrorMessage = callErr.Error()
		case parseErr != nil:
			entry.Status = models.LogStatusError
			entry.ErrorMessage = parseErr.Error()
		}
		// The call happened, so its row must land even when the run is
		// being cancelled mid-stage.
		if logErr := e.logs.AppendExtractionLog(context.WithoutCancel(ctx), entry); logErr != nil {
			return retry.Permanent(logErr)
		}

		if callErr != nil {
			if isTransientAIError(callErr) {
				return callErr
			}
			return retry.Permanent(callErr)
		}
		if parseErr != nil {
			return retry.Permanent(parseErr)
		}

		record = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	applyHints(record, item, languageHint)
	return record, nil
}

// applyHints resolves stub-vs-AI precedence: the AI value wins when
// present, catalog hints and detected language only fill empty fields.
func applyHints(rec *models.PdfMetadataRecord, item models.CandidateItem, languageHint string) {
	if rec.Title == "" {
		rec.Title = item.TitleHint
	}
	if rec.Organization == "" {
		rec.Organization = item.OrganizationHint
	}
	if rec.Language == "" {
		rec.Language = languageHint
	}
}
