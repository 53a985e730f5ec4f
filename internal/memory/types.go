// Package memory stores user-authored notes with their embeddings and
// retrieves them by vector similarity.
package memory

import (
	"errors"
	"time"
)

// Record is a stored memory. Records are immutable once written.
type Record struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Hit is a record returned by a similarity query. Smaller Distance means
// more similar (cosine distance, 0..2).
type Hit struct {
	Record
	Distance float64 `json:"distance"`
}

var (
	// ErrEmptyText is returned when text to insert or query is blank.
	ErrEmptyText = errors.New("text must not be empty")
	// ErrInvalidMetadata is returned for metadata values that are not scalars.
	ErrInvalidMetadata = errors.New("metadata values must be strings, numbers or booleans")
	// ErrInvalidLimit is returned when a query asks for fewer than one result.
	ErrInvalidLimit = errors.New("result limit must be positive")
)
