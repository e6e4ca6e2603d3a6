package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ExecutionLog is one append-only record of a monitoring run that received an
// agent response. DataJSON holds the extracted structured result (or the
// raw_output fallback) exactly as produced by the extractor.
type ExecutionLog struct {
	ID        string
	Timestamp time.Time // always UTC
	SessionID string
	DataJSON  string
}
