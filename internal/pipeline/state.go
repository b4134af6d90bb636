package pipeline

// State tracks a candidate's position in the processing lifecycle.
// Transitions only move forward; a failed stage pins the item in the
// matching failure state and later stages never run for it.
type State string

const (
	StateDiscovered    State = "discovered"
	StateFetching      State = "fetching"
	StateFetchFailed   State = "fetch_failed"
	StateFetched       State = "fetched"
	StateExtracting    State = "extracting"
	StateExtractFailed State = "extract_failed"
	StateExtracted     State = "extracted"
	StateEnriching     State = "enriching"
	StateEnrichFailed  State = "enrich_failed"
	StateEnriched      State = "enriched"
	StatePersisting    State = "persisting"
	StatePersistFailed State = "persist_failed"
	StateStored        State = "stored"
	StateSkipped       State = "skipped"
)

// Terminal reports whether the item is done, successfully or not.
func (s State) Terminal() bool {
	switch s {
	case StateStored, StateSkipped, StateFetchFailed, StateExtractFailed, StateEnrichFailed, StatePersistFailed:
		return true
	}
	return false
}

// Failed reports whether the item ended in a failure state.
func (s State) Failed() bool {
	switch s {
	case StateFetchFailed, StateExtractFailed, StateEnrichFailed, StatePersistFailed:
		return true
	}
	return false
}
