package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kalambet/verdant/internal/extract"
)

// Snapshot is the orchestrator's compact memory of the last successful run.
// It holds only the fields needed to prime the next prompt, never the raw
// agent output, which would grow the prompt without bound.
type Snapshot struct {
	Timestamp     time.Time                          `json:"timestamp"`
	PlantStatus   string                             `json:"plant_status,omitempty"`
	GrowthStage   int                                `json:"growth_stage,omitempty"`
	LastOperation map[string]extract.OperationDetail `json:"last_operation,omitempty"`
	LastComment   string                             `json:"last_comment,omitempty"`
}

// ContextStore persists the snapshot at a fixed path.
type ContextStore struct {
	path string
}

// NewContextStore creates a store backed by the given file path.
func NewContextStore(path string) *ContextStore {
	return &ContextStore{path: path}
}

// Load returns the stored snapshot. ok is false when none exists; absence is
// first-run state, not an error.
func (s *ContextStore) Load() (Snapshot, bool) {
	var snap Snapshot
	if !loadJSON(s.path, &snap) {
		return Snapshot{}, false
	}
	return snap, true
}

// Save durably replaces the snapshot.
func (s *ContextStore) Save(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("saving context snapshot: %w", err)
	}
	return nil
}
