// Package session persists per-session turn snapshots. The pipeline itself
// is stateless and round-trips session state through the client; the store
// keeps a server-side copy so a session can be resumed or inspected.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/napfox-dev/napfox/internal/fields"
	"github.com/napfox-dev/napfox/internal/pipeline"
)

// Common errors for store operations.
var (
	// ErrSessionNotFound is returned when a session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("session store is closed")
)

// Snapshot is the state of one session after a turn.
type Snapshot struct {
	// SessionID is the unique session identifier.
	SessionID string `json:"sessionId"`
	// Messages is the transcript as of this turn.
	Messages []pipeline.Message `json:"messages"`
	// Fields is the merged slot set as of this turn.
	Fields fields.Extracted `json:"extractedFields"`
	// QuestionsAsked is the dialogue controller's question counter.
	QuestionsAsked int `json:"questionsAsked"`
	// Status is the last turn's status.
	Status string `json:"status"`
	// UpdatedAt is when the snapshot was written.
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store abstracts snapshot persistence.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save creates or replaces the snapshot for a session.
	Save(ctx context.Context, snap *Snapshot) error

	// Load retrieves the latest snapshot for a session.
	// Returns ErrSessionNotFound if the session doesn't exist.
	Load(ctx context.Context, sessionID string) (*Snapshot, error)

	// Delete removes a session's snapshot.
	Delete(ctx context.Context, sessionID string) error

	// Close releases any resources held by the store.
	Close() error
}
