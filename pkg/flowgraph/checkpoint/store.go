// Package checkpoint persists run state between nodes so that an
// interrupted run can be resumed.
package checkpoint

import (
	"context"
	"errors"
	"time"
)

// Store persists checkpoints. Implementations must be safe for concurrent use.
//
// A run keeps one checkpoint per node. A node that runs again in a later
// loop iteration overwrites its checkpoint and moves to the end of the
// sequence.
type Store interface {
	// Save stores a checkpoint for a run at a specific node.
	Save(ctx context.Context, runID, nodeID string, data []byte) error

	// Load retrieves a checkpoint. Returns ErrNotFound if it doesn't exist.
	Load(ctx context.Context, runID, nodeID string) ([]byte, error)

	// List returns all checkpoints for a run, ordered by sequence.
	// Returns an empty slice (not an error) if the run has no checkpoints.
	List(ctx context.Context, runID string) ([]Info, error)

	// Runs returns one summary per stored run, most recently updated first.
	Runs(ctx context.Context) ([]RunSummary, error)

	// Delete removes a specific checkpoint. Missing checkpoints are not an error.
	Delete(ctx context.Context, runID, nodeID string) error

	// DeleteRun removes all checkpoints for a run.
	DeleteRun(ctx context.Context, runID string) error

	// Close releases any resources.
	Close() error
}

// Info provides checkpoint metadata without loading the state.
type Info struct {
	RunID     string
	NodeID    string
	Sequence  int
	Timestamp time.Time
	Size      int64
}

// RunSummary describes a stored run.
type RunSummary struct {
	RunID       string
	Checkpoints int
	LastNodeID  string
	UpdatedAt   time.Time
}

var (
	// ErrNotFound indicates a checkpoint doesn't exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)
