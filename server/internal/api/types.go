package api

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status      string `json:"status"`
	RecordCount int    `json:"record_count"`
	Error       string `json:"error,omitempty"`
}

// RecordResponse is one record in GET /api/v1/records or
// GET /api/v1/records/{key}.
type RecordResponse struct {
	Key      string `json:"key"`
	URL      string `json:"url"`
	Artifact string `json:"artifact"`
	ImageURL string `json:"image_url"`
}

// RecordsResponse is the full record list with its generation time, as
// pushed to WebSocket clients.
type RecordsResponse struct {
	Records     []RecordResponse `json:"records"`
	GeneratedAt string           `json:"generated_at"` // RFC3339
}

// GenerateRequest is the JSON body accepted by POST /api/v1/generate.
type GenerateRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// GenerateResponse is the payload for a successful POST /api/v1/generate.
type GenerateResponse struct {
	RecordResponse
	Message string `json:"message"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
