// Package catalog discovers candidate documents through a paginated
// works API (OpenAlex-style). Pages are walked lazily and candidates
// stream out over a channel; workers downstream start processing while
// discovery is still paging.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"pdfharvest/models"
)

const pagePlaceholder = "{page}"

// work mirrors the slice of a catalog row the pipeline cares about.
type work struct {
	DisplayName    string `json:"display_name"`
	BestOALocation *struct {
		PdfURL string `json:"pdf_url"`
		Source *struct {
			DisplayName string `json:"display_name"`
		} `json:"source"`
	} `json:"best_oa_location"`
}

type worksPage struct {
	Results []work `json:"results"`
}

// Client walks the works API and yields candidates.
type Client struct {
	httpClient *http.Client
	apiURL     string
	userAgent  string
	maxItems   int
	pageDelay  time.Duration
	logger     *slog.Logger

	mu  sync.Mutex
	err error
}

// NewClient builds a catalog client from configuration.
func NewClient(cfg models.CatalogConfig, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiURL:     cfg.APIURL,
		userAgent:  cfg.UserAgent,
		maxItems:   cfg.MaxCandidates,
		pageDelay:  time.Duration(cfg.PageDelayMs) * time.Millisecond,
		logger:     logger,
	}
}

// Stream walks catalog pages and sends one CandidateItem per distinct
// PDF URL, up to the configured maximum. The channel closes when the
// catalog is exhausted, the cap is reached, or the context is
// cancelled. Check Err after the channel closes.
func (c *Client) Stream(ctx context.Context) <-chan models.CandidateItem {
	out := make(chan models.CandidateItem)

	go func() {
		defer close(out)

		seen := make(map[string]bool)
		yielded := 0

		for page := 1; ; page++ {
			if ctx.Err() != nil {
				return
			}

			results, err := c.fetchPage(ctx, page)
			if err != nil {
				c.setErr(err)
				return
			}

			sentFromPage := 0
			for _, w := range results {
				item, ok := candidateFromWork(w)
				if !ok || seen[item.URL] {
					continue
				}
				seen[item.URL] = true

				select {
				case out <- item:
				case <-ctx.Done():
					return
				}
				sentFromPage++
				yielded++
				if c.maxItems > 0 && yielded >= c.maxItems {
					c.logger.Debug("Candidate cap reached", "count", yielded)
					return
				}
			}

			c.logger.Debug("Catalog page processed", "page", page, "new_candidates", sentFromPage)

			// An empty page means the catalog is exhausted.
			if sentFromPage == 0 && len(results) == 0 {
				return
			}

			// Polite inter-page delay so discovery stays under the
			// catalog's rate limit.
			if c.pageDelay > 0 {
				select {
				case <-time.After(c.pageDelay):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// Err returns the terminal discovery error, if any. Only meaningful
// after the Stream channel has closed.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *Client) fetchPage(ctx context.Context, page int) ([]work, error) {
	pageURL := strings.ReplaceAll(c.apiURL, pagePlaceholder, strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned HTTP %d for page %d", resp.StatusCode, page)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog response: %w", err)
	}

	var parsed worksPage
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode catalog page %d: %w", page, err)
	}
	return parsed.Results, nil
}

func candidateFromWork(w work) (models.CandidateItem, bool) {
	if w.BestOALocation == nil || w.BestOALocation.PdfURL == "" {
		return models.CandidateItem{}, false
	}

	item := models.CandidateItem{
		URL:       w.BestOALocation.PdfURL,
		TitleHint: w.DisplayName,
	}
	if w.BestOALocation.Source != nil {
		item.OrganizationHint = w.BestOALocation.Source.DisplayName
	}
	return item, true
}
