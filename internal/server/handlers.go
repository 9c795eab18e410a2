package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/framepick/framepick-api/internal/job"
	"github.com/framepick/framepick-api/internal/timeline"
	"github.com/framepick/framepick-api/internal/upload"
)

// maxUploadBytes caps multipart upload size.
const maxUploadBytes = 2 << 30

// TimelineDefaults are the sampling parameters used when a request does not
// override them.
type TimelineDefaults struct {
	Interval  float64
	MaxFrames int
}

// DefaultTimelineDefaults returns the package-level sampling defaults.
func DefaultTimelineDefaults() TimelineDefaults {
	return TimelineDefaults{
		Interval:  timeline.DefaultInterval,
		MaxFrames: timeline.DefaultMaxFrames,
	}
}

// normalize fills zero fields from the package defaults.
func (d TimelineDefaults) normalize() TimelineDefaults {
	if d.Interval <= 0 {
		d.Interval = timeline.DefaultInterval
	}
	if d.MaxFrames <= 0 {
		d.MaxFrames = timeline.DefaultMaxFrames
	}
	return d
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	uploads            *upload.Service
	jobs               *job.TrimService
	sessions           *SessionHandlers
	validator          *validator.Validate
	logger             *slog.Logger
	defaults           TimelineDefaults
	enableAsyncProcess bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, Process only creates the job and returns immediately
// without starting the pipeline.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// WithTimelineDefaults sets the sampling parameters used when requests do not
// specify their own.
func WithTimelineDefaults(d TimelineDefaults) HandlerOption {
	return func(h *Handlers) {
		h.defaults = d.normalize()
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(uploads *upload.Service, jobs *job.TrimService, sessions *SessionHandlers, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		uploads:            uploads,
		jobs:               jobs,
		sessions:           sessions,
		validator:          validator.New(),
		logger:             logger,
		defaults:           DefaultTimelineDefaults(),
		enableAsyncProcess: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	if sessions != nil {
		sessions.validator = h.validator
		sessions.logger = logger
		sessions.defaults = h.defaults
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateUpload handles POST /uploads requests.
func (h *Handlers) CreateUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		h.logger.Warn("missing upload file",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required", "MISSING_FILE")
		return
	}
	defer func() { _ = file.Close() }()

	u, err := h.uploads.Store(r.Context(), header.Filename, file)
	if err != nil {
		if errors.Is(err, upload.ErrInvalidMedia) {
			writeError(w, http.StatusUnprocessableEntity, "unreadable or zero-duration media", "INVALID_MEDIA")
			return
		}
		h.logger.Error("failed to store upload",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to store upload", "UPLOAD_FAILED")
		return
	}

	writeJSON(w, http.StatusCreated, toUploadResponse(u))
}

// GetUpload handles GET /uploads/{id} requests.
func (h *Handlers) GetUpload(w http.ResponseWriter, r *http.Request) {
	u, ok := h.findUpload(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toUploadResponse(u))
}

// ListUploads handles GET /uploads requests.
func (h *Handlers) ListUploads(w http.ResponseWriter, r *http.Request) {
	uploads, err := h.uploads.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list uploads",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list uploads", "UPLOAD_LIST_FAILED")
		return
	}
	resp := make([]UploadResponse, 0, len(uploads))
	for _, u := range uploads {
		resp = append(resp, toUploadResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetUploadFile handles GET /uploads/{id}/file requests, streaming the
// stored source video.
func (h *Handlers) GetUploadFile(w http.ResponseWriter, r *http.Request) {
	uploadID := r.PathValue("id")
	rc, u, err := h.uploads.OpenFile(r.Context(), uploadID)
	if err != nil {
		if errors.Is(err, upload.ErrUploadNotFound) {
			writeError(w, http.StatusNotFound, "upload not found", "UPLOAD_NOT_FOUND")
			return
		}
		h.logger.Error("failed to open upload file",
			slog.String("upload_id", uploadID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to open upload", "UPLOAD_OPEN_FAILED")
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", `inline; filename="`+u.Filename+`"`)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("upload stream interrupted",
			slog.String("upload_id", uploadID),
			slog.String("error", err.Error()),
		)
	}
}

// GetTimeline handles GET /uploads/{id}/timeline requests: it samples the
// upload and captures one thumbnail per sample point.
func (h *Handlers) GetTimeline(w http.ResponseWriter, r *http.Request) {
	uploadID := r.PathValue("id")

	interval := queryFloat(r, "interval", h.defaults.Interval)
	maxFrames := queryInt(r, "max_frames", h.defaults.MaxFrames)

	samples, rendered, err := h.uploads.Timeline(r.Context(), uploadID, interval, maxFrames)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrUploadNotFound):
			writeError(w, http.StatusNotFound, "upload not found", "UPLOAD_NOT_FOUND")
		case errors.Is(err, timeline.ErrInvalidMedia):
			writeError(w, http.StatusUnprocessableEntity, "media duration is not positive", "INVALID_MEDIA")
		default:
			h.logger.Error("failed to build timeline",
				slog.String("upload_id", uploadID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to build timeline", "TIMELINE_FAILED")
		}
		return
	}

	resp := TimelineResponse{
		UploadID: uploadID,
		Interval: interval,
	}
	for _, sp := range samples {
		resp.Samples = append(resp.Samples, SamplePointDTO{Index: sp.Index, Time: sp.Time})
	}
	for _, t := range rendered {
		resp.Thumbnails = append(resp.Thumbnails, ThumbnailDTO{
			Index:  t.Index,
			Time:   t.Time,
			Status: string(t.Status),
			Image:  t.Image,
			Label:  t.Label,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Process handles POST /process requests.
func (h *Handlers) Process(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	input := job.TrimInput{
		FirstVideoID:  req.FirstVideoID,
		SecondVideoID: req.SecondVideoID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Branch:        job.Branch(req.Branch),
		PushToS3:      req.PushToS3,
	}

	created, err := h.jobs.CreateJob(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrUploadNotFound):
			writeError(w, http.StatusNotFound, err.Error(), "UPLOAD_NOT_FOUND")
		case errors.Is(err, job.ErrInvalidTimeRange),
			errors.Is(err, job.ErrInvalidBranch),
			errors.Is(err, job.ErrSecondVideoRequired):
			writeError(w, http.StatusBadRequest, err.Error(), "INVALID_REQUEST")
		default:
			h.logger.Error("failed to create job",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		}
		return
	}

	// Run the pipeline in the background with a detached context so the
	// request ending does not cancel processing.
	if h.enableAsyncProcess {
		go func(ctx context.Context, jobID string, inp job.TrimInput) {
			if _, processErr := h.jobs.ProcessExistingJob(ctx, jobID, inp); processErr != nil {
				h.logger.Error("background processing failed",
					slog.String("job_id", jobID),
					slog.String("error", processErr.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), created.ID, input)
	}

	writeJSON(w, http.StatusAccepted, ProcessResponse{
		ID:     created.ID,
		Status: string(created.Status),
		Metadata: map[string]string{
			"branch": string(created.Branch),
		},
	})
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	found, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, JobResponse{
		ID:        found.ID,
		Status:    string(found.Status),
		Progress:  found.Progress,
		Error:     found.Error,
		OutputURL: found.OutputURL,
	})
}

// Download handles GET /download/{id} requests, streaming the processed
// output of a completed job.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	rc, err := h.jobs.Output(r.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, job.ErrJobNotFound):
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
		case errors.Is(err, job.ErrOutputNotReady):
			writeError(w, http.StatusConflict, "output not ready", "OUTPUT_NOT_READY")
		default:
			h.logger.Error("failed to open output",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to open output", "DOWNLOAD_FAILED")
		}
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", `attachment; filename="`+jobID+`.mp4"`)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("download stream interrupted",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

func (h *Handlers) findUpload(w http.ResponseWriter, r *http.Request) (*upload.Upload, bool) {
	uploadID := r.PathValue("id")
	u, err := h.uploads.Get(r.Context(), uploadID)
	if err != nil {
		if errors.Is(err, upload.ErrUploadNotFound) {
			writeError(w, http.StatusNotFound, "upload not found", "UPLOAD_NOT_FOUND")
			return nil, false
		}
		h.logger.Error("failed to get upload",
			slog.String("upload_id", uploadID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get upload", "UPLOAD_FETCH_FAILED")
		return nil, false
	}
	return u, true
}

func toUploadResponse(u *upload.Upload) UploadResponse {
	return UploadResponse{
		ID:       u.ID,
		Filename: u.Filename,
		Size:     u.Size,
		Duration: u.Duration,
		URL:      u.URL,
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
