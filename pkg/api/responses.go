package api

// UpsertResponse acknowledges a model configuration write.
type UpsertResponse struct {
	ID string `json:"id"`
}

// MetricsResponse is the aggregate view over the telemetry log.
type MetricsResponse struct {
	Total    int64 `json:"total"`
	Failures int64 `json:"failures"`
	AvgMs    int64 `json:"avgMs"`
}

// ErrorResponse is the generic error body. Specific endpoints add fields
// (status, body, message) on top of the error tag.
type ErrorResponse struct {
	Error string `json:"error"`
}
