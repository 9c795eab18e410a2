// Package remote provides the HTTP client for the processing backend: the
// upload/process/download/status contract the selection engine submits
// committed time ranges to.
package remote

// Status represents the status of a remote processing job.
type Status string

// Remote job statuses.
const (
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// IsTerminal returns true if the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// UploadResult is the backend's record of an uploaded source video.
type UploadResult struct {
	ID       string  `json:"id"`
	Filename string  `json:"filename"`
	Size     int64   `json:"size"`
	Duration float64 `json:"duration"`
	URL      string  `json:"url"`
}

// ProcessRequest carries the committed time range and the two source video
// identifiers to the backend. Times are expressed in seconds.
type ProcessRequest struct {
	FirstVideoID  string  `json:"first_video_id"`
	SecondVideoID string  `json:"second_video_id,omitempty"`
	StartTime     float64 `json:"start_time"`
	EndTime       float64 `json:"end_time"`
	Branch        string  `json:"branch,omitempty"`
}

// ProcessResult is the backend's response to a process request.
type ProcessResult struct {
	ID        string            `json:"id"`
	Status    Status            `json:"status"`
	OutputURL string            `json:"output_url,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// StatusResult is the backend's response to a status poll.
type StatusResult struct {
	ID       string `json:"id"`
	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
}

// errorResponse is the backend's error payload shape.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
