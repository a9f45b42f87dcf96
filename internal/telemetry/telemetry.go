package telemetry

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modelrelay/relay-api/internal/store"
	"github.com/modelrelay/relay-api/internal/store/model"
)

// Service records relay outcomes and serves the aggregate view. Recording is
// best-effort: a failed append is logged and swallowed so telemetry can
// never fail a relay call.
type Service interface {
	RecordSuccess(upstreamModel string, latency time.Duration)
	RecordFailure(upstreamModel string, code int, latency time.Duration)
	Summary(ctx context.Context) (*model.Summary, error)
}

type service struct {
	logger *zap.Logger
	repo   store.Repository
}

func NewService(logger *zap.Logger, repo store.Repository) Service {
	return &service{logger: logger, repo: repo}
}

func (s *service) RecordSuccess(upstreamModel string, latency time.Duration) {
	s.append(&model.LogEntry{
		Model:     upstreamModel,
		Status:    model.StatusOK,
		LatencyMS: latency.Milliseconds(),
	})
}

func (s *service) RecordFailure(upstreamModel string, code int, latency time.Duration) {
	s.append(&model.LogEntry{
		Model:     upstreamModel,
		Status:    model.StatusError,
		Code:      sql.NullInt64{Int64: int64(code), Valid: true},
		LatencyMS: latency.Milliseconds(),
	})
}

func (s *service) append(entry *model.LogEntry) {
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()

	// Detached context: the caller may already be cancelled (client gone)
	// while the outcome still deserves a record.
	if err := s.repo.Logs().Append(context.Background(), entry); err != nil {
		s.logger.Error("failed to append telemetry entry",
			zap.String("model", entry.Model),
			zap.Error(err),
		)
	}
}

func (s *service) Summary(ctx context.Context) (*model.Summary, error) {
	return s.repo.Logs().Summary(ctx)
}
