package dedup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

// Snapshot is the portable export envelope.
type Snapshot struct {
	ProcessedListings map[string]domain.ProcessedRecord `json:"processedListings"`
	ExportedAt        time.Time                         `json:"exportedAt"`
	TotalEntries      int                               `json:"totalEntries"`
}

// ImportResult reports the outcome of Import.
type ImportResult struct {
	Success       bool   `json:"success"`
	ImportedCount int    `json:"importedCount"`
	Error         string `json:"error,omitempty"`
}

// Export captures the whole store.
func (s *Store) Export() Snapshot {
	all := s.ExportAll()
	return Snapshot{
		ProcessedListings: all,
		ExportedAt:        s.now(),
		TotalEntries:      len(all),
	}
}

// Import replaces the store contents with snap. Failures are reported in
// the result and leave the store unchanged.
func (s *Store) Import(snap Snapshot) ImportResult {
	if snap.ProcessedListings == nil {
		return ImportResult{Error: fmt.Sprintf("%v: missing processedListings", ErrInvalidRecord)}
	}
	n, err := s.ImportAll(snap.ProcessedListings)
	if err != nil {
		return ImportResult{Error: err.Error()}
	}
	return ImportResult{Success: true, ImportedCount: n}
}

// SaveFile writes the store snapshot to path as JSON, replacing it
// atomically.
func (s *Store) SaveFile(path string) error {
	data, err := json.MarshalIndent(s.Export(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// LoadFile imports the snapshot at path. A missing file is not an error and
// leaves the store empty.
func (s *Store) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path) //nolint:gosec // snapshot path from config
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0, fmt.Errorf("%w: decoding snapshot: %w", ErrInvalidRecord, err)
	}
	if snap.ProcessedListings == nil {
		return 0, fmt.Errorf("%w: missing processedListings", ErrInvalidRecord)
	}
	return s.ImportAll(snap.ProcessedListings)
}
