package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pdfharvest/models"
	"pdfharvest/pkg/db"
	"pdfharvest/pkg/fetcher"
	"pdfharvest/pkg/textextract"
)

// DocumentFetcher downloads a candidate and reports the local copy.
type DocumentFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Result, error)
}

// TextExtractor turns downloaded bytes into plain text.
type TextExtractor interface {
	Extract(data []byte, sourceURL string) (string, error)
}

// MetadataEnricher produces a validated metadata record from document
// text.
type MetadataEnricher interface {
	Enrich(ctx context.Context, item models.CandidateItem, text, languageHint string) (*models.PdfMetadataRecord, error)
}

// MetadataStore is the slice of the repository the orchestrator needs.
type MetadataStore interface {
	Exists(ctx context.Context, url string) (bool, error)
	StoreMetadata(ctx context.Context, rec models.PdfMetadataRecord) (int64, error)
}

// Orchestrator drives candidates through fetch, extract, enrich, and
// persist with a bounded worker pool. Item failures are isolated;
// storage faults abort the whole run.
type Orchestrator struct {
	logger    *slog.Logger
	fetcher   DocumentFetcher
	extractor TextExtractor
	enricher  MetadataEnricher
	store     MetadataStore
	workers   int
	aiSlots   chan struct{}
	runID     string
}

// New wires an orchestrator. aiConcurrency caps simultaneous inference
// calls across all workers; zero means no cap beyond the worker count.
func New(logger *slog.Logger, f DocumentFetcher, x TextExtractor, e MetadataEnricher, store MetadataStore, workers, aiConcurrency int, runID string) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	o := &Orchestrator{
		logger:    logger,
		fetcher:   f,
		extractor: x,
		enricher:  e,
		store:     store,
		workers:   workers,
		runID:     runID,
	}
	if aiConcurrency > 0 {
		o.aiSlots = make(chan struct{}, aiConcurrency)
	}
	return o
}

// Run consumes candidates until the channel closes or a storage fault
// forces an abort. The returned summary covers every candidate that
// reached a terminal state; the error is non-nil only for run-fatal
// conditions.
func (o *Orchestrator) Run(ctx context.Context, candidates <-chan models.CandidateItem) (RunSummary, []Result, error) {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.logger.Info("Starting pipeline run", "run_id", o.runID, "workers", o.workers)

	var wg sync.WaitGroup
	results := make(chan Result)

	for w := 1; w <= o.workers; w++ {
		wg.Add(1)
		go o.worker(ctx, w, &wg, candidates, results)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	summary := RunSummary{RunID: o.runID}
	var all []Result
	var runErr error
	for result := range results {
		summary.record(result)
		all = append(all, result)
		if result.Fatal && runErr == nil {
			runErr = fmt.Errorf("storage fault, aborting run: %w", result.Error)
			cancel()
		}
		if summary.Candidates%10 == 0 {
			o.logger.Info("Progress",
				"processed", summary.Candidates,
				"stored", summary.Stored,
				"skipped", summary.Skipped,
				"failed", summary.Failed())
		}
	}

	summary.TotalTimeSeconds = time.Since(start).Seconds()
	o.logger.Info("Pipeline run finished",
		"run_id", o.runID,
		"candidates", summary.Candidates,
		"stored", summary.Stored,
		"skipped", summary.Skipped,
		"failed", summary.Failed(),
		"seconds", summary.TotalTimeSeconds)
	return summary, all, runErr
}

func (o *Orchestrator) worker(ctx context.Context, id int, wg *sync.WaitGroup, jobs <-chan models.CandidateItem, results chan<- Result) {
	defer wg.Done()
	for {
		// Cancellation stops dequeuing; the item already in flight has
		// finished by the time we get back here.
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case item, ok := <-jobs:
			if !ok {
				return
			}
			o.logger.Info("Worker started candidate", "worker_id", id, "url", item.URL)
			result := o.processItem(ctx, item)
			o.logger.Info("Worker finished candidate", "worker_id", id, "url", item.URL, "state", result.State)
			// The collector drains until all workers exit, so this
			// send cannot block; every terminal result is recorded.
			results <- result
		}
	}
}

func (o *Orchestrator) processItem(ctx context.Context, item models.CandidateItem) Result {
	result := Result{URL: item.URL, State: StateDiscovered}

	exists, err := o.store.Exists(ctx, item.URL)
	if err != nil {
		return o.fail(result, StatePersistFailed, err)
	}
	if exists {
		result.State = StateSkipped
		return result
	}

	result.State = StateFetching
	fetched, err := o.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		return o.fail(result, StateFetchFailed, err)
	}
	result.State = StateFetched
	result.PdfPath = fetched.LocalPath

	result.State = StateExtracting
	text, err := o.extractor.Extract(fetched.Data, item.URL)
	if err != nil {
		return o.fail(result, StateExtractFailed, err)
	}
	result.State = StateExtracted

	languageHint := textextract.DetectLanguage(text)

	result.State = StateEnriching
	if o.aiSlots != nil {
		select {
		case o.aiSlots <- struct{}{}:
		case <-ctx.Done():
			return o.fail(result, StateEnrichFailed, ctx.Err())
		}
	}
	record, err := o.enricher.Enrich(ctx, item, text, languageHint)
	if o.aiSlots != nil {
		<-o.aiSlots
	}
	if err != nil {
		return o.fail(result, StateEnrichFailed, err)
	}
	result.State = StateEnriched

	record.URL = item.URL
	record.PdfPath = fetched.LocalPath

	result.State = StatePersisting
	id, err := o.store.StoreMetadata(ctx, *record)
	if err != nil {
		// Another run, or another worker, stored this URL first.
		if errors.Is(err, db.ErrDuplicate) {
			result.State = StateSkipped
			return result
		}
		return o.fail(result, StatePersistFailed, err)
	}

	result.State = StateStored
	result.RecordID = id
	return result
}

func (o *Orchestrator) fail(result Result, state State, err error) Result {
	result.State = state
	result.Error = err
	// Run-fatal is reserved for store faults. A cancelled run produces
	// context errors all over; those are not storage failures.
	result.Fatal = db.IsPersistenceError(err) &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	if result.Fatal {
		result.State = StatePersistFailed
	}
	o.logger.Error("Candidate failed", "url", result.URL, "state", result.State, "error", err)
	return result
}
