package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FSStore implements the Store interface using filesystem-based
// persistence. Tables are stored as <baseDir>/runs/<runID>/<micrograph>_bfactor_fit.json.
//
// Thread-safety: this implementation uses atomic file operations (rename)
// and does not require locks. Multiple goroutines can safely call methods
// concurrently as long as they write distinct micrographs.
type FSStore struct {
	baseDir string
}

// NewFSStore creates a new filesystem-based store.
// The baseDir will be created if it doesn't exist.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSStore{baseDir: baseDir}, nil
}

const tableSuffix = "_bfactor_fit.json"

// runDir returns the directory path for a given run ID.
func (fs *FSStore) runDir(runID string) string {
	return filepath.Join(fs.baseDir, "runs", runID)
}

// tablePath returns the path of one micrograph's table file. Micrograph
// names may come from metadata with directory components; only the base
// name is used.
func (fs *FSStore) tablePath(runID, micrograph string) string {
	name := filepath.Base(micrograph)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(fs.runDir(runID), name+tableSuffix)
}

// SaveFitTable atomically saves one micrograph's fit table.
// Uses the temp file + rename pattern to ensure atomicity.
func (fs *FSStore) SaveFitTable(runID string, table *FitTable) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}
	if table == nil {
		return fmt.Errorf("table cannot be nil")
	}
	if table.Micrograph == "" {
		return fmt.Errorf("table micrograph cannot be empty")
	}

	runDir := fs.runDir(runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize fit table: %w", err)
	}

	finalPath := fs.tablePath(runID, table.Micrograph)
	tempPath := finalPath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp fit table: %w", err)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename fit table: %w", err)
	}

	slog.Debug("fit table saved", "run", runID, "micrograph", table.Micrograph, "path", finalPath)
	return nil
}

// LoadFitTable retrieves one micrograph's fit table from a run.
func (fs *FSStore) LoadFitTable(runID, micrograph string) (*FitTable, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	path := fs.tablePath(runID, micrograph)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &NotFoundError{RunID: runID, Micrograph: micrograph}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat fit table: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fit table: %w", err)
	}

	var table FitTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to deserialize fit table: %w", err)
	}

	return &table, nil
}

// ListFitTables returns metadata for every table saved under a run.
func (fs *FSStore) ListFitTables(runID string) ([]FitTableInfo, error) {
	runDir := fs.runDir(runID)

	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		return []FitTableInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat run directory: %w", err)
	}

	entries, err := os.ReadDir(runDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read run directory: %w", err)
	}

	var infos []FitTableInfo

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), tableSuffix) {
			continue
		}

		path := filepath.Join(runDir, entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("failed to read fit table for listing", "path", path, "error", err)
			continue
		}

		var table FitTable
		if err := json.Unmarshal(data, &table); err != nil {
			slog.Warn("skipping corrupted fit table", "path", path, "error", err)
			continue
		}

		info := table.ToInfo()
		info.Path = path
		infos = append(infos, info)
	}

	slog.Debug("listed fit tables", "run", runID, "count", len(infos))
	return infos, nil
}

// DeleteRun removes a run directory and all its fit tables.
func (fs *FSStore) DeleteRun(runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	runDir := fs.runDir(runID)

	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		return &NotFoundError{RunID: runID}
	} else if err != nil {
		return fmt.Errorf("failed to stat run directory: %w", err)
	}

	if err := os.RemoveAll(runDir); err != nil {
		return fmt.Errorf("failed to remove run directory: %w", err)
	}

	slog.Debug("run deleted", "run", runID, "path", runDir)
	return nil
}
