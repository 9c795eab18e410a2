// Package server provides the HTTP surface of the trimming service:
// uploads, timelines, interactive sessions, processing jobs, and downloads.
// DTOs are kept separate from domain types.
package server

// UploadResponse is the HTTP representation of a stored upload.
type UploadResponse struct {
	// ID is the stable identifier for the uploaded video.
	ID string `json:"id"`
	// Filename is the original client-side filename.
	Filename string `json:"filename"`
	// Size is the stored size in bytes.
	Size int64 `json:"size"`
	// Duration is the probed duration in seconds.
	Duration float64 `json:"duration"`
	// URL is the path the stored file is served from.
	URL string `json:"url"`
}

// SamplePointDTO is one timeline sample point.
type SamplePointDTO struct {
	Index int     `json:"index"`
	Time  float64 `json:"time"`
}

// ThumbnailDTO is one captured (or placeholder) thumbnail.
type ThumbnailDTO struct {
	Index  int     `json:"index"`
	Time   float64 `json:"time"`
	Status string  `json:"status"`
	// Image is the base64-encoded JPEG, present for captured thumbnails.
	Image []byte `json:"image,omitempty"`
	// Label is the timestamp text shown on failed-capture placeholders.
	Label string `json:"label,omitempty"`
}

// TimelineResponse is the sampled timeline of an upload.
type TimelineResponse struct {
	UploadID   string           `json:"upload_id"`
	Interval   float64          `json:"interval"`
	Samples    []SamplePointDTO `json:"samples"`
	Thumbnails []ThumbnailDTO   `json:"thumbnails"`
}

// ProcessRequest is the HTTP request body for submitting a time range.
type ProcessRequest struct {
	// FirstVideoID is the video the range was selected on.
	FirstVideoID string `json:"first_video_id" validate:"required"`
	// SecondVideoID is the optional splice video.
	SecondVideoID string `json:"second_video_id,omitempty"`
	// StartTime is the range start in seconds.
	StartTime float64 `json:"start_time" validate:"gte=0"`
	// EndTime is the range end in seconds; must exceed StartTime.
	EndTime float64 `json:"end_time" validate:"gtfield=StartTime"`
	// Branch selects the pipeline variant.
	Branch string `json:"branch,omitempty" validate:"omitempty,oneof=trim splice"`
	// PushToS3 indicates whether to upload the output for delivery.
	PushToS3 bool `json:"push_to_s3,omitempty"`
}

// ProcessResponse is the HTTP response after submitting a time range.
type ProcessResponse struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	OutputURL string            `json:"output_url,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// JobResponse is the HTTP response for polling a job.
type JobResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Error     string `json:"error,omitempty"`
	OutputURL string `json:"output_url,omitempty"`
}

// CreateSessionRequest starts an interactive trimming session on an upload.
type CreateSessionRequest struct {
	UploadID string `json:"upload_id" validate:"required"`
	// Interval is the sampling interval in seconds (default 1).
	Interval float64 `json:"interval,omitempty" validate:"gte=0"`
	// MaxFrames caps the number of sample points (default 60).
	MaxFrames int `json:"max_frames,omitempty" validate:"gte=0,lte=600"`
}

// SelectionDTO is the normalized committed frame range.
type SelectionDTO struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// TimeRangeDTO is the projected time range in seconds.
type TimeRangeDTO struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// SessionResponse is a snapshot of one trimming session.
type SessionResponse struct {
	ID        string        `json:"id"`
	UploadID  string        `json:"upload_id"`
	Frames    int           `json:"frames"`
	Mode      string        `json:"mode"`
	Selection *SelectionDTO `json:"selection,omitempty"`
	TimeRange *TimeRangeDTO `json:"time_range,omitempty"`
}

// PointerEventRequest is one platform-neutral pointer event.
type PointerEventRequest struct {
	Kind   string `json:"kind" validate:"required,oneof=down enter up"`
	Target string `json:"target,omitempty" validate:"omitempty,oneof=frame start-marker end-marker"`
	Index  int    `json:"index"`
	Ctrl   bool   `json:"ctrl,omitempty"`
	Shift  bool   `json:"shift,omitempty"`
}

// PreviewResponse is the bounded preview playback snapshot.
type PreviewResponse struct {
	Position float64 `json:"position"`
	Playing  bool    `json:"playing"`
}

// PreviewSeekRequest moves the preview cursor.
type PreviewSeekRequest struct {
	Time float64 `json:"time" validate:"gte=0"`
}

// SubmitSessionRequest submits a session's committed range for processing.
type SubmitSessionRequest struct {
	SecondVideoID string `json:"second_video_id,omitempty"`
	Branch        string `json:"branch,omitempty" validate:"omitempty,oneof=trim splice"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
