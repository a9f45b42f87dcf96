package api

import "encoding/json"

// ChatRequest is the body of POST /api/chat. A caller either references a
// stored model configuration by id or supplies the upstream coordinates
// inline; inline fields always win over the stored configuration.
type ChatRequest struct {
	ModelID string `json:"modelId,omitempty"`
	BaseURL string `json:"baseUrl,omitempty"`
	Path    string `json:"path,omitempty"`
	Model   string `json:"model,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`

	// Stream is a tri-state: nil falls through to the configuration value,
	// which itself defaults to true.
	Stream *bool `json:"stream,omitempty"`

	// Params are extra body fields merged into the outbound payload.
	Params map[string]any `json:"params,omitempty"`

	// Headers are extra HTTP headers merged into the outbound request.
	Headers map[string]string `json:"headers,omitempty"`

	Messages []Message `json:"messages" binding:"required"`
}

// Message is one turn of the conversation. Content stays raw JSON so
// multimodal payloads pass through the relay byte-for-byte.
type Message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content,omitempty"`
}

// ModelUpsertRequest is the body of POST /api/models. All fields are
// optional; missing ones fall back to registry defaults. APIKey arrives in
// plaintext and is encrypted before it is stored.
type ModelUpsertRequest struct {
	ID       string            `json:"id,omitempty"`
	Name     string            `json:"name,omitempty"`
	Protocol string            `json:"protocol,omitempty"`
	BaseURL  string            `json:"baseUrl,omitempty"`
	Path     string            `json:"path,omitempty"`
	Model    string            `json:"model,omitempty"`
	Params   map[string]any    `json:"params,omitempty"`
	Stream   *bool             `json:"stream,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
	APIKey   string            `json:"apiKey,omitempty"`
}
