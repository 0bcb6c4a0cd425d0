// Package storage persists mined data records behind a backend-agnostic
// repository interface. Backends register themselves by kind (sqlite,
// postgres, mssql) and are selected by configuration.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Config is the minimal configuration needed to create a repository.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is
//     backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// RecordRow is one gnode of one mined record, flattened for persistence.
type RecordRow struct {
	// RecordIndex is the record's position in the run's output.
	RecordIndex int

	// GNodeIndex is the gnode's position within the record.
	GNodeIndex int

	// ParentID is the node-index identity of the gnode's parent.
	ParentID string

	// StartIndex and EndIndex are the half-open sibling range under ParentID.
	StartIndex int
	EndIndex   int

	// Content is the serialized HTML of the span.
	Content string
}

// Repository is a backend-agnostic sink for mined records.
//
// This interface is intentionally minimal: schema creation plus bulk insert.
// Each backend implements the semantics in its own idiomatic way.
type Repository interface {
	// Close releases backend resources. Treat as "call once" at shutdown.
	Close()

	// EnsureSchema creates the mined_records table if needed. Idempotent,
	// safe to run on every invocation.
	EnsureSchema(ctx context.Context) error

	// InsertRecords bulk-inserts the rows of one run under runID and returns
	// the number of rows written.
	InsertRecords(ctx context.Context, runID string, rows []RecordRow) (int64, error)
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "postgres", "sqlite").
//
// Call Register from an init() function in a backend package. Registering
// the same kind twice panics: failing fast beats ambiguous backend selection.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
//
// Concurrency: safe for concurrent use with Register; New takes a read lock
// while selecting the factory.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("storage: unsupported kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
