package db

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicate signals that a metadata record for the URL or path
// already exists. Callers treat it as an idempotent skip, not a fault.
var ErrDuplicate = errors.New("metadata record already exists")

// PersistenceError wraps a store failure that is not an expected
// duplicate. Because the log tables are the audit trail, the
// orchestrator treats any PersistenceError as run-fatal.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistenceError reports whether err carries a store failure.
func IsPersistenceError(err error) bool {
	var perr *PersistenceError
	return errors.As(err, &perr)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
