package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Run describes a dubbing run in a transport-friendly format.
type Run struct {
	ID                string     `json:"id"`
	SourceURI         string     `json:"sourceUri"`
	Status            string     `json:"status"`
	VoiceProfile      string     `json:"voiceProfile,omitempty"`
	ReferenceDuration float64    `json:"referenceDuration,omitempty"`
	ErrorMessage      string     `json:"errorMessage,omitempty"`
	CreatedAt         string     `json:"createdAt,omitempty"`
	UpdatedAt         string     `json:"updatedAt,omitempty"`
	Languages         []Language `json:"languages,omitempty"`
}

// Language is the outcome of one target language within a run.
type Language struct {
	Name         string  `json:"name"`
	Code         string  `json:"code"`
	Status       string  `json:"status"`
	Stage        string  `json:"stage,omitempty"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
	AudioURI     string  `json:"audioUri,omitempty"`
	VideoURI     string  `json:"videoUri,omitempty"`
	Chunks       int     `json:"chunks"`
	SpeedRatio   float64 `json:"speedRatio,omitempty"`
	Deviation    float64 `json:"deviation,omitempty"`
	UpdatedAt    string  `json:"updatedAt,omitempty"`
}

// RunListResponse wraps a collection of runs.
type RunListResponse struct {
	Runs []Run `json:"runs"`
}

// RunResponse wraps a single run.
type RunResponse struct {
	Run Run `json:"run"`
}

// StartRunRequest is the body of POST /api/runs.
type StartRunRequest struct {
	RunID     string   `json:"runId,omitempty"`
	Bucket    string   `json:"bucket,omitempty"`
	VideoKey  string   `json:"videoKey"`
	Languages []string `json:"languages,omitempty"`
}

// StartRunResponse acknowledges an accepted run.
type StartRunResponse struct {
	RunID     string `json:"runId"`
	RequestID string `json:"requestId"`
}

// ErrorResponse is returned for every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}
