package state

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SessionRecord identifies the single active agent session. CreatedAt bounds
// the session's lifetime; a zero CreatedAt (legacy record written before the
// field existed) means the lifetime is never enforced until the session is
// naturally rotated.
type SessionRecord struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// SessionStore persists the session record at a fixed path.
type SessionStore struct {
	path string
}

// NewSessionStore creates a store backed by the given file path.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Load returns the current session record. ok is false when no usable record
// exists (missing file, malformed JSON, empty session id); all equivalent to
// "no session yet".
func (s *SessionStore) Load() (SessionRecord, bool) {
	var rec SessionRecord
	if !loadJSON(s.path, &rec) {
		return SessionRecord{}, false
	}
	if rec.SessionID == "" {
		return SessionRecord{}, false
	}
	return rec, true
}

// Save durably replaces the session record.
func (s *SessionStore) Save(sessionID string, createdAt time.Time) error {
	data, err := json.MarshalIndent(SessionRecord{SessionID: sessionID, CreatedAt: createdAt}, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("saving session record: %w", err)
	}
	return nil
}

// Clear removes the session record. Clearing an already-absent record is not
// an error.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing session record: %w", err)
	}
	return nil
}
