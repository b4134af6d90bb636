package pipeline

// RunSummary aggregates terminal states across one pipeline run.
type RunSummary struct {
	RunID            string  `json:"run_id"`
	Candidates       int     `json:"candidates"`
	Stored           int     `json:"stored"`
	Skipped          int     `json:"skipped"`
	FetchFailed      int     `json:"fetch_failed"`
	ExtractFailed    int     `json:"extract_failed"`
	EnrichFailed     int     `json:"enrich_failed"`
	PersistFailed    int     `json:"persist_failed"`
	TotalTimeSeconds float64 `json:"total_time_seconds"`
}

func (s *RunSummary) record(r Result) {
	s.Candidates++
	switch r.State {
	case StateStored:
		s.Stored++
	case StateSkipped:
		s.Skipped++
	case StateFetchFailed:
		s.FetchFailed++
	case StateExtractFailed:
		s.ExtractFailed++
	case StateEnrichFailed:
		s.EnrichFailed++
	case StatePersistFailed:
		s.PersistFailed++
	}
}

// Failed returns the number of candidates that ended in any failure
// state.
func (s RunSummary) Failed() int {
	return s.FetchFailed + s.ExtractFailed + s.EnrichFailed + s.PersistFailed
}
