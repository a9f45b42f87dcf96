package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/modelrelay/relay-api/internal/httpclient"
	"github.com/modelrelay/relay-api/internal/registry"
	"github.com/modelrelay/relay-api/internal/store"
	"github.com/modelrelay/relay-api/internal/store/model"
	"github.com/modelrelay/relay-api/internal/telemetry"
	"github.com/modelrelay/relay-api/pkg/api"
)

// ErrBadRequest means the merged request was incomplete (missing target,
// model, credential, or messages). No outbound call was attempted and no
// telemetry entry was written.
var ErrBadRequest = errors.New("bad request")

// TransportError wraps a network-level failure reaching the upstream. The
// caller is owed a fixed 502; one error telemetry entry was written.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "upstream transport failure: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Chunk is one forwarded piece of a streamed upstream body.
type Chunk struct {
	Data []byte
	Err  error
}

// Outcome is a completed relay decision. Exactly one of the two shapes is
// populated: a buffered body with its status, or a live chunk channel.
type Outcome struct {
	Streaming bool
	Status    int
	Body      []byte
	Chunks    <-chan Chunk
}

// streamBufSize bounds how much of the upstream body is in flight per read;
// chunks are forwarded as they arrive, never accumulated.
const streamBufSize = 32 * 1024

// Service forwards chat requests to the effective upstream and records one
// telemetry entry per attempted call.
type Service interface {
	Relay(ctx context.Context, req *api.ChatRequest) (*Outcome, error)
}

type service struct {
	logger    *zap.Logger
	registry  registry.Service
	telemetry telemetry.Service
	client    httpclient.HTTPClient
	decrypt   func(blob string) (string, error)
}

func NewService(logger *zap.Logger, reg registry.Service, tel telemetry.Service, client httpclient.HTTPClient, decrypt func(string) (string, error)) Service {
	if client == nil {
		client = &http.Client{}
	}
	return &service{
		logger:    logger,
		registry:  reg,
		telemetry: tel,
		client:    client,
		decrypt:   decrypt,
	}
}

func (s *service) Relay(ctx context.Context, req *api.ChatRequest) (*Outcome, error) {
	cfg := s.loadConfig(ctx, req.ModelID)
	res := resolve(req, cfg, s.credential(req, cfg))

	if !res.valid(req) {
		return nil, ErrBadRequest
	}

	start := time.Now()
	resp, err := httpclient.PostJSON(ctx, s.client, res.URL, res.Headers, res.Body)
	if err != nil {
		s.telemetry.RecordFailure(res.Model, http.StatusBadGateway, time.Since(start))
		return nil, &TransportError{Err: err}
	}

	if res.Stream {
		return s.streamOutcome(ctx, resp, res.Model, start)
	}
	return s.bufferedOutcome(resp, res.Model, start)
}

// loadConfig fetches the referenced configuration; an unknown id or a store
// failure degrades to "no configuration" so explicit request fields can
// still carry the call.
func (s *service) loadConfig(ctx context.Context, modelID string) *model.ModelConfig {
	if modelID == "" {
		return nil
	}
	cfg, err := s.registry.Get(ctx, modelID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("model config lookup failed", zap.String("id", modelID), zap.Error(err))
		}
		return nil
	}
	return cfg
}

// credential settles the effective API key: an explicit one wins; otherwise
// the stored blob is decrypted. Decrypt failures intentionally degrade to an
// empty credential, which then fails request validation.
func (s *service) credential(req *api.ChatRequest, cfg *model.ModelConfig) string {
	if req.APIKey != "" {
		return req.APIKey
	}
	if cfg == nil || cfg.APIKeyEnc == "" {
		return ""
	}
	plain, err := s.decrypt(cfg.APIKeyEnc)
	if err != nil {
		s.logger.Warn("stored credential unusable", zap.String("id", cfg.ID), zap.Error(err))
		return ""
	}
	return plain
}

func (s *service) streamOutcome(ctx context.Context, resp *http.Response, upstreamModel string, start time.Time) (*Outcome, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		s.telemetry.RecordFailure(upstreamModel, resp.StatusCode, time.Since(start))

		wrapped, _ := json.Marshal(map[string]any{
			"error":  "upstream_error",
			"status": resp.StatusCode,
			"body":   string(body),
		})
		return &Outcome{Status: resp.StatusCode, Body: wrapped}, nil
	}

	ch := make(chan Chunk)
	go s.forward(ctx, resp, upstreamModel, start, ch)

	return &Outcome{Streaming: true, Status: http.StatusOK, Chunks: ch}, nil
}

// forward pumps the upstream body to the chunk channel in arrival order.
// One telemetry entry is written when the stream ends, unless the client
// cancelled first.
func (s *service) forward(ctx context.Context, resp *http.Response, upstreamModel string, start time.Time, ch chan<- Chunk) {
	defer close(ch)
	defer func() { _ = resp.Body.Close() }()

	buf := make([]byte, streamBufSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case ch <- Chunk{Data: data}:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.telemetry.RecordSuccess(upstreamModel, time.Since(start))
				return
			}
			if ctx.Err() != nil {
				// Client-initiated teardown; nothing to record.
				return
			}
			s.telemetry.RecordFailure(upstreamModel, http.StatusBadGateway, time.Since(start))
			select {
			case ch <- Chunk{Err: err}:
			case <-ctx.Done():
			}
			return
		}
	}
}

func (s *service) bufferedOutcome(resp *http.Response, upstreamModel string, start time.Time) (*Outcome, error) {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	latency := time.Since(start)
	if err != nil {
		s.telemetry.RecordFailure(upstreamModel, http.StatusBadGateway, latency)
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.telemetry.RecordFailure(upstreamModel, resp.StatusCode, latency)

		// Forward structured provider errors verbatim; wrap anything else.
		if !json.Valid(body) {
			body, _ = json.Marshal(map[string]string{"body": string(body)})
		}
		return &Outcome{Status: resp.StatusCode, Body: body}, nil
	}

	s.telemetry.RecordSuccess(upstreamModel, latency)
	return &Outcome{Status: resp.StatusCode, Body: body}, nil
}
