package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/modelrelay/relay-api/internal/crypto"
	"github.com/modelrelay/relay-api/internal/registry"
	"github.com/modelrelay/relay-api/internal/store/cache"
	"github.com/modelrelay/relay-api/internal/store/model"
	"github.com/modelrelay/relay-api/internal/store/sqlite"
	"github.com/modelrelay/relay-api/internal/telemetry"
	"github.com/modelrelay/relay-api/pkg/api"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type stack struct {
	relay     Service
	registry  registry.Service
	telemetry telemetry.Service
	cipher    *crypto.Cipher
}

func newTestStack(t *testing.T) *stack {
	t.Helper()

	repo, err := sqlite.NewStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	logger := zap.NewNop()
	cipher := crypto.NewCipher(testKey)
	reg := registry.NewService(logger, repo, cipher, cache.NewMemoryCache())
	tel := telemetry.NewService(logger, repo)

	return &stack{
		relay:     NewService(logger, reg, tel, nil, cipher.Decrypt),
		registry:  reg,
		telemetry: tel,
		cipher:    cipher,
	}
}

func (s *stack) upsert(t *testing.T, req *api.ModelUpsertRequest) string {
	t.Helper()
	id, err := s.registry.Upsert(context.Background(), req)
	require.NoError(t, err)
	return id
}

func (s *stack) summary(t *testing.T) *model.Summary {
	t.Helper()
	sum, err := s.telemetry.Summary(context.Background())
	require.NoError(t, err)
	return sum
}

// drain collects every chunk until the channel closes, concatenating the
// payload and keeping the first error encountered.
func drain(t *testing.T, ch <-chan Chunk) ([]byte, error) {
	t.Helper()
	var buf bytes.Buffer
	var firstErr error
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return buf.Bytes(), firstErr
			}
			if c.Err != nil && firstErr == nil {
				firstErr = c.Err
			}
			buf.Write(c.Data)
		case <-time.After(5 * time.Second):
			t.Fatal("stream did not terminate")
		}
	}
}

func TestRelay_BufferedSuccessWithStoredConfig(t *testing.T) {
	s := newTestStack(t)

	var gotAuth, gotCustom string
	var gotBody map[string]any
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCustom = r.Header.Get("X-Extra")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello"}}]}`))
	}))
	defer upstream.Close()

	id := s.upsert(t, &api.ModelUpsertRequest{
		BaseURL: upstream.URL,
		Model:   "gpt-x",
		APIKey:  "secret",
		Stream:  boolPtr(false),
		Params:  map[string]any{"temperature": 0.5},
		Headers: map[string]string{"X-Extra": "cfg"},
	})

	out, err := s.relay.Relay(context.Background(), &api.ChatRequest{
		ModelID:  id,
		Messages: testMessages(),
	})
	require.NoError(t, err)

	assert.False(t, out.Streaming)
	assert.Equal(t, http.StatusOK, out.Status)
	assert.JSONEq(t, `{"choices":[{"message":{"content":"hello"}}]}`, string(out.Body))

	assert.Equal(t, "Bearer secret", gotAuth, "stored credential decrypted and forwarded")
	assert.Equal(t, "cfg", gotCustom)
	assert.Equal(t, "gpt-x", gotBody["model"])
	assert.Equal(t, 0.5, gotBody["temperature"])
	assert.Equal(t, false, gotBody["stream"])

	sum := s.summary(t)
	assert.Equal(t, int64(1), sum.Total)
	assert.Equal(t, int64(0), sum.Failures)
}

func TestRelay_BufferedUpstreamErrorPassthrough(t *testing.T) {
	s := newTestStack(t)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate_limited"}`))
	}))
	defer upstream.Close()

	out, err := s.relay.Relay(context.Background(), &api.ChatRequest{
		BaseURL:  upstream.URL,
		Model:    "gpt-x",
		APIKey:   "secret",
		Stream:   boolPtr(false),
		Messages: testMessages(),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusTooManyRequests, out.Status)
	assert.JSONEq(t, `{"error":"rate_limited"}`, string(out.Body), "structured provider error passes through verbatim")

	sum := s.summary(t)
	assert.Equal(t, int64(1), sum.Total)
	assert.Equal(t, int64(1), sum.Failures)
}

func TestRelay_BufferedUpstreamErrorNonJSONWrapped(t *testing.T) {
	s := newTestStack(t)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("gateway exploded"))
	}))
	defer upstream.Close()

	out, err := s.relay.Relay(context.Background(), &api.ChatRequest{
		BaseURL:  upstream.URL,
		Model:    "gpt-x",
		APIKey:   "secret",
		Stream:   boolPtr(false),
		Messages: testMessages(),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadGateway, out.Status)
	assert.JSONEq(t, `{"body":"gateway exploded"}`, string(out.Body))
}

func TestRelay_StreamingForwardsBytesInOrder(t *testing.T) {
	s := newTestStack(t)

	chunks := []string{
		"data: {\"delta\":\"a\"}\n\n",
		"data: {\"delta\":\"b\"}\n\n",
		"data: [DONE]\n\n",
	}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, c := range chunks {
			_, _ = io.WriteString(w, c)
			flusher.Flush()
			time.Sleep(5 * time.Millisecond)
		}
	}))
	defer upstream.Close()

	out, err := s.relay.Relay(context.Background(), &api.ChatRequest{
		BaseURL:  upstream.URL,
		Model:    "gpt-x",
		APIKey:   "secret",
		Messages: testMessages(),
	})
	require.NoError(t, err)
	require.True(t, out.Streaming)

	got, streamErr := drain(t, out.Chunks)
	require.NoError(t, streamErr)
	assert.Equal(t, chunks[0]+chunks[1]+chunks[2], string(got))

	sum := s.summary(t)
	assert.Equal(t, int64(1), sum.Total)
	assert.Equal(t, int64(0), sum.Failures)
}

func TestRelay_StreamingUpstreamErrorWrapped(t *testing.T) {
	s := newTestStack(t)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("overloaded"))
	}))
	defer upstream.Close()

	out, err := s.relay.Relay(context.Background(), &api.ChatRequest{
		BaseURL:  upstream.URL,
		Model:    "gpt-x",
		APIKey:   "secret",
		Messages: testMessages(),
	})
	require.NoError(t, err)

	assert.False(t, out.Streaming, "error responses are buffered even for stream requests")
	assert.Equal(t, http.StatusServiceUnavailable, out.Status)
	assert.JSONEq(t, `{"error":"upstream_error","status":503,"body":"overloaded"}`, string(out.Body))

	sum := s.summary(t)
	assert.Equal(t, int64(1), sum.Total)
	assert.Equal(t, int64(1), sum.Failures)
}

func TestRelay_IncompleteRequestNotLogged(t *testing.T) {
	s := newTestStack(t)

	tests := []struct {
		name string
		req  *api.ChatRequest
	}{
		{"no messages", &api.ChatRequest{BaseURL: "https://a.com", Model: "m", APIKey: "k"}},
		{"no credential", &api.ChatRequest{BaseURL: "https://a.com", Model: "m", Messages: testMessages()}},
		{"no target", &api.ChatRequest{Model: "m", APIKey: "k", Messages: testMessages()}},
		{"unknown model id only", &api.ChatRequest{ModelID: "nope", Messages: testMessages()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := s.relay.Relay(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrBadRequest)
			assert.Nil(t, out)
		})
	}

	assert.Equal(t, int64(0), s.summary(t).Total, "failed validation never writes telemetry")
}

func TestRelay_TransportFailure(t *testing.T) {
	s := newTestStack(t)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close() // nothing listening

	out, err := s.relay.Relay(context.Background(), &api.ChatRequest{
		BaseURL:  upstream.URL,
		Model:    "gpt-x",
		APIKey:   "secret",
		Messages: testMessages(),
	})
	require.Error(t, err)
	assert.Nil(t, out)

	var te *TransportError
	assert.ErrorAs(t, err, &te)

	sum := s.summary(t)
	assert.Equal(t, int64(1), sum.Total)
	assert.Equal(t, int64(1), sum.Failures)
}

func TestRelay_UndecryptableCredentialBecomesBadRequest(t *testing.T) {
	s := newTestStack(t)

	id := s.upsert(t, &api.ModelUpsertRequest{
		BaseURL: "https://api.example.com",
		Model:   "gpt-x",
		APIKey:  "secret",
	})

	// Swap the decryptor for one holding a different key so the stored blob
	// no longer authenticates.
	otherKey := "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"
	s.relay = NewService(zap.NewNop(), s.registry, s.telemetry, nil, crypto.NewCipher(otherKey).Decrypt)

	out, err := s.relay.Relay(context.Background(), &api.ChatRequest{
		ModelID:  id,
		Messages: testMessages(),
	})
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Nil(t, out)
	assert.Equal(t, int64(0), s.summary(t).Total)
}

func TestRelay_InlineFieldsOverrideStoredConfig(t *testing.T) {
	s := newTestStack(t)

	var gotBody map[string]any
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	id := s.upsert(t, &api.ModelUpsertRequest{
		BaseURL: "https://unreachable.example.com",
		Model:   "cfg-model",
		APIKey:  "secret",
	})

	out, err := s.relay.Relay(context.Background(), &api.ChatRequest{
		ModelID:  id,
		BaseURL:  upstream.URL,
		Model:    "req-model",
		Stream:   boolPtr(false),
		Messages: testMessages(),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, out.Status)
	assert.Equal(t, "req-model", gotBody["model"])
}
