package model

import (
	"database/sql"
	"time"
)

// ModelConfig is a stored upstream endpoint profile. APIKeyEnc carries the
// provider credential encrypted at rest and is excluded from every JSON
// encoding; only the relay's decrypt step ever reads it.
type ModelConfig struct {
	ID        string            `db:"id" json:"id"`
	Name      string            `db:"name" json:"name"`
	Protocol  string            `db:"protocol" json:"protocol"`
	BaseURL   string            `db:"base_url" json:"baseUrl"`
	Path      string            `db:"path" json:"path"`
	Model     string            `db:"model" json:"model"`
	Params    map[string]any    `db:"-" json:"params"`
	Stream    bool              `db:"stream" json:"stream"`
	Headers   map[string]string `db:"-" json:"headers"`
	APIKeyEnc string            `db:"api_key_enc" json:"-"`
}

// Log entry status values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// LogEntry records the outcome of one relayed call. Code is set only for
// error outcomes and holds the HTTP status reported to the caller.
type LogEntry struct {
	ID        string        `db:"id" json:"id"`
	Model     string        `db:"model" json:"model"`
	Status    string        `db:"status" json:"status"`
	Code      sql.NullInt64 `db:"code" json:"code,omitempty"`
	LatencyMS int64         `db:"latency_ms" json:"latencyMs"`
	CreatedAt time.Time     `db:"created_at" json:"createdAt"`
}

// Summary aggregates the retained telemetry log.
type Summary struct {
	Total    int64 `db:"total" json:"total"`
	Failures int64 `db:"failures" json:"failures"`
	AvgMS    int64 `db:"avg_ms" json:"avgMs"`
}
