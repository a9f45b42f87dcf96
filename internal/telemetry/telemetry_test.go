package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/modelrelay/relay-api/internal/store/model"
	"github.com/modelrelay/relay-api/internal/store/sqlite"
)

func newTestService(t *testing.T) Service {
	t.Helper()

	repo, err := sqlite.NewStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return NewService(zap.NewNop(), repo)
}

func TestSummary_Empty(t *testing.T) {
	svc := newTestService(t)

	s, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &model.Summary{}, s)
}

func TestRecord_SuccessAndFailure(t *testing.T) {
	svc := newTestService(t)

	svc.RecordSuccess("gpt-x", 120*time.Millisecond)
	svc.RecordFailure("gpt-x", 502, 80*time.Millisecond)
	svc.RecordFailure("", 500, 40*time.Millisecond)

	s, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.Total)
	assert.Equal(t, int64(2), s.Failures)
	assert.Equal(t, int64(80), s.AvgMS) // round(240/3)
}
