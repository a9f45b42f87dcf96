package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/modelrelay/relay-api/internal/store"
	"github.com/modelrelay/relay-api/internal/store/model"
)

// retainedEntries is the telemetry retention cap: only this many of the
// newest log entries survive an append.
const retainedEntries = 10000

// Repository implements store.Repository over a single SQLite database.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Models() store.ModelRepository {
	return &modelRepo{db: r.db}
}

func (r *Repository) Logs() store.LogRepository {
	return &logRepo{db: r.db}
}

// modelRow mirrors the model_configs table; params and headers live in JSON
// text columns and are unpacked at the repository boundary.
type modelRow struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Protocol    string `db:"protocol"`
	BaseURL     string `db:"base_url"`
	Path        string `db:"path"`
	Model       string `db:"model"`
	ParamsJSON  string `db:"params_json"`
	Stream      bool   `db:"stream"`
	HeadersJSON string `db:"headers_json"`
	APIKeyEnc   string `db:"api_key_enc"`
}

func (row *modelRow) toConfig() (*model.ModelConfig, error) {
	cfg := &model.ModelConfig{
		ID:        row.ID,
		Name:      row.Name,
		Protocol:  row.Protocol,
		BaseURL:   row.BaseURL,
		Path:      row.Path,
		Model:     row.Model,
		Stream:    row.Stream,
		APIKeyEnc: row.APIKeyEnc,
	}
	if err := json.Unmarshal([]byte(row.ParamsJSON), &cfg.Params); err != nil {
		return nil, fmt.Errorf("decode params for %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.HeadersJSON), &cfg.Headers); err != nil {
		return nil, fmt.Errorf("decode headers for %s: %w", row.ID, err)
	}
	return cfg, nil
}

func toRow(cfg *model.ModelConfig) (*modelRow, error) {
	params := cfg.Params
	if params == nil {
		params = map[string]any{}
	}
	headers := cfg.Headers
	if headers == nil {
		headers = map[string]string{}
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return nil, fmt.Errorf("encode headers: %w", err)
	}

	return &modelRow{
		ID:          cfg.ID,
		Name:        cfg.Name,
		Protocol:    cfg.Protocol,
		BaseURL:     cfg.BaseURL,
		Path:        cfg.Path,
		Model:       cfg.Model,
		ParamsJSON:  string(paramsJSON),
		Stream:      cfg.Stream,
		HeadersJSON: string(headersJSON),
		APIKeyEnc:   cfg.APIKeyEnc,
	}, nil
}

type modelRepo struct {
	db *sqlx.DB
}

func (r *modelRepo) List(ctx context.Context) ([]model.ModelConfig, error) {
	var rows []modelRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT * FROM model_configs`); err != nil {
		return nil, err
	}

	configs := make([]model.ModelConfig, 0, len(rows))
	for i := range rows {
		cfg, err := rows[i].toConfig()
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	return configs, nil
}

func (r *modelRepo) Get(ctx context.Context, id string) (*model.ModelConfig, error) {
	var row modelRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM model_configs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toConfig()
}

func (r *modelRepo) Upsert(ctx context.Context, cfg *model.ModelConfig) error {
	row, err := toRow(cfg)
	if err != nil {
		return err
	}

	// Whole-record replace: an existing id keeps no fields from its prior
	// version, including the stored credential.
	query := `
	INSERT OR REPLACE INTO model_configs (
		id, name, protocol, base_url, path, model,
		params_json, stream, headers_json, api_key_enc
	) VALUES (
		:id, :name, :protocol, :base_url, :path, :model,
		:params_json, :stream, :headers_json, :api_key_enc
	)`
	_, err = r.db.NamedExecContext(ctx, query, row)
	return err
}

func (r *modelRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM model_configs WHERE id = ?`, id)
	return err
}

type logRepo struct {
	db *sqlx.DB
}

func (r *logRepo) Append(ctx context.Context, entry *model.LogEntry) error {
	query := `
	INSERT INTO log_entries (id, model, status, code, latency_ms, created_at)
	VALUES (:id, :model, :status, :code, :latency_ms, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return err
	}

	// Drop everything beyond the newest retainedEntries rows.
	prune := `
	DELETE FROM log_entries WHERE seq NOT IN (
		SELECT seq FROM log_entries ORDER BY seq DESC LIMIT ?
	)`
	_, err := r.db.ExecContext(ctx, prune, retainedEntries)
	return err
}

func (r *logRepo) Summary(ctx context.Context) (*model.Summary, error) {
	var s model.Summary
	query := `
	SELECT
		COUNT(*) AS total,
		COALESCE(SUM(CASE WHEN status != 'ok' THEN 1 ELSE 0 END), 0) AS failures,
		COALESCE(CAST(ROUND(AVG(latency_ms)) AS INTEGER), 0) AS avg_ms
	FROM log_entries`
	if err := r.db.GetContext(ctx, &s, query); err != nil {
		return nil, err
	}
	return &s, nil
}

// Recent returns the newest entries first. It exists for inspection and
// tests; the HTTP surface only exposes the aggregate summary.
func (r *logRepo) Recent(ctx context.Context, limit int) ([]model.LogEntry, error) {
	var entries []model.LogEntry
	query := `
	SELECT id, model, status, code, latency_ms, created_at
	FROM log_entries ORDER BY seq DESC LIMIT ?`
	err := r.db.SelectContext(ctx, &entries, query, limit)
	return entries, err
}
