package relay

import (
	"strings"

	"github.com/modelrelay/relay-api/internal/registry"
	"github.com/modelrelay/relay-api/internal/store/model"
	"github.com/modelrelay/relay-api/pkg/api"
)

// resolution is the fully merged view of one relay call: every effective
// value computed by the request > configuration > default rule.
type resolution struct {
	URL     string
	Model   string
	Stream  bool
	Headers map[string]string
	Body    map[string]any

	baseURL string
	apiKey  string
}

// resolve merges an incoming request with an optional stored configuration.
// cfg may be nil (unknown or absent modelId); apiKey is the already-settled
// effective credential.
func resolve(req *api.ChatRequest, cfg *model.ModelConfig, apiKey string) *resolution {
	if cfg == nil {
		cfg = &model.ModelConfig{Stream: true}
	}

	baseURL := firstNonEmpty(req.BaseURL, cfg.BaseURL)
	path := firstNonEmpty(req.Path, cfg.Path, registry.DefaultPath)
	upstreamModel := firstNonEmpty(req.Model, cfg.Model)

	stream := cfg.Stream
	if req.Stream != nil {
		stream = *req.Stream
	}

	res := &resolution{
		URL:     joinURL(baseURL, path),
		Model:   upstreamModel,
		Stream:  stream,
		Headers: mergeHeaders(apiKey, cfg.Headers, req.Headers),
		Body:    buildBody(upstreamModel, req.Messages, mergeParams(cfg.Params, req.Params), stream),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
	return res
}

// valid reports whether the resolution names a reachable, authorized target.
func (r *resolution) valid(req *api.ChatRequest) bool {
	return r.baseURL != "" && r.Model != "" && r.apiKey != "" && req.Messages != nil
}

// joinURL strips one trailing slash from base and collapses leading slashes
// on path to exactly one.
func joinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// mergeHeaders layers config headers then request headers over the two
// baseline entries; later layers win, including over Authorization.
func mergeHeaders(apiKey string, cfgHeaders, reqHeaders map[string]string) map[string]string {
	out := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + apiKey,
	}
	for k, v := range cfgHeaders {
		out[k] = v
	}
	for k, v := range reqHeaders {
		out[k] = v
	}
	return out
}

// mergeParams is a shallow merge with request keys winning.
func mergeParams(cfgParams, reqParams map[string]any) map[string]any {
	out := make(map[string]any, len(cfgParams)+len(reqParams))
	for k, v := range cfgParams {
		out[k] = v
	}
	for k, v := range reqParams {
		out[k] = v
	}
	return out
}

// buildBody assembles the outbound payload. Params may override model and
// messages; the effective stream flag always has the final word.
func buildBody(upstreamModel string, messages []api.Message, params map[string]any, stream bool) map[string]any {
	body := map[string]any{
		"model":    upstreamModel,
		"messages": messages,
	}
	for k, v := range params {
		body[k] = v
	}
	body["stream"] = stream
	return body
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
