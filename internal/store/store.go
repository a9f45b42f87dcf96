package store

import (
	"context"
	"errors"

	"github.com/modelrelay/relay-api/internal/store/model"
)

// ErrNotFound is returned when a lookup misses.
var ErrNotFound = errors.New("record not found")

// Repository is the main contract for the data layer.
type Repository interface {
	Models() ModelRepository
	Logs() LogRepository

	Close() error
}

// ModelRepository owns the model configuration collection.
type ModelRepository interface {
	// List returns every stored configuration.
	List(ctx context.Context) ([]model.ModelConfig, error)
	// Get returns one configuration by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*model.ModelConfig, error)
	// Upsert inserts or fully replaces the record with cfg.ID.
	Upsert(ctx context.Context, cfg *model.ModelConfig) error
	// Delete removes the record if present; a missing id is not an error.
	Delete(ctx context.Context, id string) error
}

// LogRepository owns the bounded telemetry log.
type LogRepository interface {
	// Append stores one entry and prunes the collection to its retention cap.
	Append(ctx context.Context, entry *model.LogEntry) error
	// Summary aggregates the retained entries.
	Summary(ctx context.Context) (*model.Summary, error)
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]model.LogEntry, error)
}
