package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/framepick/framepick-api/internal/job"
	"github.com/framepick/framepick-api/internal/media"
	"github.com/framepick/framepick-api/internal/remote"
	"github.com/framepick/framepick-api/internal/selection"
	"github.com/framepick/framepick-api/internal/session"
	"github.com/framepick/framepick-api/internal/thumbs"
	"github.com/framepick/framepick-api/internal/timeline"
	"github.com/framepick/framepick-api/internal/upload"
)

// SessionHandlers exposes interactive trimming sessions over HTTP: a client
// creates a session on an upload, streams pointer events into it, and
// submits the committed range for processing.
type SessionHandlers struct {
	manager   *session.Manager
	uploads   *upload.Service
	processor media.Processor
	jobs      *job.TrimService
	remote    remote.Client
	validator *validator.Validate
	logger    *slog.Logger
	defaults  TimelineDefaults
}

// NewSessionHandlers creates the session HTTP handlers. The remote client is
// optional: when nil, session submits fall through to the local trim service.
func NewSessionHandlers(manager *session.Manager, uploads *upload.Service, processor media.Processor, jobs *job.TrimService, remoteClient remote.Client) *SessionHandlers {
	return &SessionHandlers{
		manager:   manager,
		uploads:   uploads,
		processor: processor,
		jobs:      jobs,
		remote:    remoteClient,
		validator: validator.New(),
		logger:    slog.Default(),
		defaults:  DefaultTimelineDefaults(),
	}
}

// Create handles POST /sessions requests: it builds the frame timeline for
// the upload and registers a new session over it.
func (h *SessionHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	u, err := h.uploads.Get(r.Context(), req.UploadID)
	if err != nil {
		if errors.Is(err, upload.ErrUploadNotFound) {
			writeError(w, http.StatusNotFound, "upload not found", "UPLOAD_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get upload",
			slog.String("upload_id", req.UploadID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get upload", "UPLOAD_FETCH_FAILED")
		return
	}

	interval := req.Interval
	if interval <= 0 {
		interval = h.defaults.Interval
	}
	maxFrames := req.MaxFrames
	if maxFrames <= 0 {
		maxFrames = h.defaults.MaxFrames
	}
	sampler := timeline.NewSampler(interval, maxFrames)
	renderer := thumbs.NewRenderer(thumbs.WithLogger(h.logger))

	opts := []session.Option{session.WithLogger(h.logger)}
	if h.remote != nil {
		opts = append(opts, session.WithRemote(h.remote))
	}
	sess := session.New(u.ID, sampler, renderer, opts...)

	src := media.NewFrameSource(h.processor, u.Path)
	if err := sess.BuildTimeline(r.Context(), src, u.Duration); err != nil {
		if errors.Is(err, timeline.ErrInvalidMedia) {
			writeError(w, http.StatusUnprocessableEntity, "media duration is not positive", "INVALID_MEDIA")
			return
		}
		h.logger.Error("failed to build session timeline",
			slog.String("upload_id", u.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to build timeline", "TIMELINE_FAILED")
		return
	}

	h.manager.Put(sess)
	writeJSON(w, http.StatusCreated, h.snapshot(sess))
}

// Get handles GET /sessions/{id} requests.
func (h *SessionHandlers) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.find(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.snapshot(sess))
}

// Delete handles DELETE /sessions/{id} requests.
func (h *SessionHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if err := h.manager.Delete(sessionID); err != nil {
		writeError(w, http.StatusNotFound, "session not found", "SESSION_NOT_FOUND")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleEvent handles POST /sessions/{id}/events requests: one pointer
// event fed into the selection state machine.
func (h *SessionHandlers) HandleEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.find(w, r)
	if !ok {
		return
	}

	var req PointerEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	ev, err := toPointerEvent(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_EVENT")
		return
	}

	if err := sess.HandlePointer(ev); err != nil {
		if errors.Is(err, session.ErrNoTimeline) {
			writeError(w, http.StatusConflict, "session has no timeline", "NO_TIMELINE")
			return
		}
		h.logger.Error("failed to handle pointer event",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to handle event", "EVENT_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, h.snapshot(sess))
}

// GetPreview handles GET /sessions/{id}/preview requests.
func (h *SessionHandlers) GetPreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.find(w, r)
	if !ok {
		return
	}
	st := sess.PreviewState()
	writeJSON(w, http.StatusOK, PreviewResponse{Position: st.Position, Playing: st.Playing})
}

// PreviewPlay handles POST /sessions/{id}/preview/play requests.
func (h *SessionHandlers) PreviewPlay(w http.ResponseWriter, r *http.Request) {
	h.previewControl(w, r, func(s *session.Session) error { return s.PreviewPlay() })
}

// PreviewPause handles POST /sessions/{id}/preview/pause requests.
func (h *SessionHandlers) PreviewPause(w http.ResponseWriter, r *http.Request) {
	h.previewControl(w, r, func(s *session.Session) error { return s.PreviewPause() })
}

// PreviewSeek handles POST /sessions/{id}/preview/seek requests.
func (h *SessionHandlers) PreviewSeek(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.find(w, r)
	if !ok {
		return
	}

	var req PreviewSeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := sess.PreviewSeek(req.Time); err != nil {
		writeError(w, http.StatusConflict, "no committed selection", "NO_SELECTION")
		return
	}
	st := sess.PreviewState()
	writeJSON(w, http.StatusOK, PreviewResponse{Position: st.Position, Playing: st.Playing})
}

// Submit handles POST /sessions/{id}/submit requests: the committed time
// range goes to the processing backend (or the local trim service when no
// backend is configured). Session state is preserved on failure so the
// client can retry without rebuilding the timeline.
func (h *SessionHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.find(w, r)
	if !ok {
		return
	}

	var req SubmitSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	if h.remote != nil {
		result, err := sess.Submit(r.Context(), req.SecondVideoID, req.Branch)
		if err != nil {
			h.submitError(w, sess.ID, err)
			return
		}
		writeJSON(w, http.StatusAccepted, ProcessResponse{
			ID:        result.ID,
			Status:    string(result.Status),
			OutputURL: result.OutputURL,
			Metadata:  result.Metadata,
		})
		return
	}

	tr, ok := sess.TimeRange()
	if !ok {
		writeError(w, http.StatusConflict, "no committed selection", "NO_SELECTION")
		return
	}

	input := job.TrimInput{
		FirstVideoID:  sess.UploadID,
		SecondVideoID: req.SecondVideoID,
		StartTime:     tr.Start,
		EndTime:       tr.End,
		Branch:        job.Branch(req.Branch),
	}
	created, err := h.jobs.CreateJob(r.Context(), input)
	if err != nil {
		h.submitError(w, sess.ID, err)
		return
	}

	go func(ctx context.Context, jobID string, inp job.TrimInput) {
		if _, processErr := h.jobs.ProcessExistingJob(ctx, jobID, inp); processErr != nil {
			h.logger.Error("background processing failed",
				slog.String("job_id", jobID),
				slog.String("error", processErr.Error()),
			)
		}
	}(context.WithoutCancel(r.Context()), created.ID, input)

	writeJSON(w, http.StatusAccepted, ProcessResponse{
		ID:     created.ID,
		Status: string(created.Status),
	})
}

func (h *SessionHandlers) submitError(w http.ResponseWriter, sessionID string, err error) {
	switch {
	case errors.Is(err, session.ErrNoTimeRange):
		writeError(w, http.StatusConflict, "no committed selection", "NO_SELECTION")
	case errors.Is(err, upload.ErrUploadNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "UPLOAD_NOT_FOUND")
	case errors.Is(err, job.ErrSecondVideoRequired), errors.Is(err, job.ErrInvalidBranch):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_REQUEST")
	case errors.Is(err, remote.ErrUpstreamFailure),
		errors.Is(err, remote.ErrServerError),
		errors.Is(err, remote.ErrRateLimited):
		h.logger.Error("upstream submission failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "processing backend rejected the submission", "UPSTREAM_FAILURE")
	default:
		h.logger.Error("failed to submit session",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to submit", "SUBMIT_FAILED")
	}
}

func (h *SessionHandlers) previewControl(w http.ResponseWriter, r *http.Request, fn func(*session.Session) error) {
	sess, ok := h.find(w, r)
	if !ok {
		return
	}
	if err := fn(sess); err != nil {
		writeError(w, http.StatusConflict, "no committed selection", "NO_SELECTION")
		return
	}
	st := sess.PreviewState()
	writeJSON(w, http.StatusOK, PreviewResponse{Position: st.Position, Playing: st.Playing})
}

func (h *SessionHandlers) find(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sessionID := r.PathValue("id")
	sess, err := h.manager.Get(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found", "SESSION_NOT_FOUND")
		return nil, false
	}
	return sess, true
}

func (h *SessionHandlers) snapshot(sess *session.Session) SessionResponse {
	resp := SessionResponse{
		ID:       sess.ID,
		UploadID: sess.UploadID,
		Frames:   len(sess.Samples()),
		Mode:     sess.Mode().String(),
	}
	if r, ok := sess.Selection(); ok {
		resp.Selection = &SelectionDTO{Start: r.Start, End: r.End}
	}
	if tr, ok := sess.TimeRange(); ok {
		resp.TimeRange = &TimeRangeDTO{Start: tr.Start, End: tr.End}
	}
	return resp
}

var errUnknownEvent = errors.New("unknown event kind or target")

// toPointerEvent maps wire-level event names onto the selection machine's
// event types.
func toPointerEvent(req PointerEventRequest) (selection.PointerEvent, error) {
	ev := selection.PointerEvent{
		Index: req.Index,
		Ctrl:  req.Ctrl,
		Shift: req.Shift,
	}

	switch req.Kind {
	case "down":
		ev.Kind = selection.PointerDown
	case "enter":
		ev.Kind = selection.PointerEnter
	case "up":
		ev.Kind = selection.PointerUp
	default:
		return selection.PointerEvent{}, errUnknownEvent
	}

	switch req.Target {
	case "", "frame":
		ev.Target = selection.TargetFrame
	case "start-marker":
		ev.Target = selection.TargetStartMarker
	case "end-marker":
		ev.Target = selection.TargetEndMarker
	default:
		return selection.PointerEvent{}, errUnknownEvent
	}

	return ev, nil
}
