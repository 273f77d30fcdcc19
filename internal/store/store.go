package store

// Store defines the interface for fit-table persistence.
// Implementations must be thread-safe and handle concurrent access
// gracefully.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if the requested table doesn't exist (Load/Delete)
//   - Return descriptive errors for I/O, serialization, or validation failures
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveFitTable atomically saves one micrograph's fit table under the
	// given run. An existing table for the same micrograph is overwritten.
	// The implementation should use atomic write strategies (temp file +
	// rename) to prevent corruption in case of failures.
	SaveFitTable(runID string, table *FitTable) error

	// LoadFitTable retrieves one micrograph's fit table from a run.
	// Returns ErrNotFound if no table exists for this micrograph.
	LoadFitTable(runID, micrograph string) (*FitTable, error)

	// ListFitTables returns metadata for every table saved under a run.
	// The returned slice may be empty. Returns an error if the run
	// directory cannot be scanned.
	ListFitTables(runID string) ([]FitTableInfo, error)

	// DeleteRun removes a run and all its fit tables.
	// Returns ErrNotFound if the run does not exist.
	DeleteRun(runID string) error
}

// ErrNotFound is returned when a requested fit table or run does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing fit table or run.
type NotFoundError struct {
	RunID      string
	Micrograph string
}

func (e *NotFoundError) Error() string {
	switch {
	case e.Micrograph != "":
		return "fit table not found: " + e.RunID + "/" + e.Micrograph
	case e.RunID != "":
		return "run not found: " + e.RunID
	}
	return "fit table not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
