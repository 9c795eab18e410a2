package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func (f *fixture) createSession(t *testing.T, uploadID string) SessionResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/sessions", CreateSessionRequest{UploadID: uploadID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[SessionResponse](t, rec)
}

func (f *fixture) sendEvent(t *testing.T, sessionID string, ev PointerEventRequest) SessionResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/sessions/"+sessionID+"/events", ev)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[SessionResponse](t, rec)
}

func newSessionFixture(t *testing.T) (*fixture, UploadResponse) {
	t.Helper()
	f := newFixture(t)
	f.processor.On("ProbeDuration", mock.Anything, mock.Anything).Return(30.0, nil)
	f.processor.On("ExtractFrame", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]byte("jpeg"), nil)
	u := f.uploadFile(t, "clip.mp4", "video")
	return f, u
}

func TestCreateSession(t *testing.T) {
	f, u := newSessionFixture(t)

	resp := f.createSession(t, u.ID)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, u.ID, resp.UploadID)
	assert.Equal(t, 30, resp.Frames)
	assert.Equal(t, "idle", resp.Mode)
	assert.Nil(t, resp.Selection)
	assert.Nil(t, resp.TimeRange)
}

func TestCreateSession_UnknownUpload(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/sessions", CreateSessionRequest{UploadID: "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "UPLOAD_NOT_FOUND", decode[ErrorResponse](t, rec).Code)
}

func TestCreateSession_MissingUploadID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/sessions", CreateSessionRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[ErrorResponse](t, rec).Code)
}

func TestSession_DragSelection(t *testing.T) {
	f, u := newSessionFixture(t)
	created := f.createSession(t, u.ID)

	resp := f.sendEvent(t, created.ID, PointerEventRequest{Kind: "down", Index: 5})
	assert.Equal(t, "dragging-new", resp.Mode)

	f.sendEvent(t, created.ID, PointerEventRequest{Kind: "enter", Index: 10})
	resp = f.sendEvent(t, created.ID, PointerEventRequest{Kind: "up"})

	assert.Equal(t, "idle", resp.Mode)
	require.NotNil(t, resp.Selection)
	assert.Equal(t, 5, resp.Selection.Start)
	assert.Equal(t, 10, resp.Selection.End)
	require.NotNil(t, resp.TimeRange)
	assert.InDelta(t, 5.0, resp.TimeRange.Start, 0.001)
	assert.InDelta(t, 11.0, resp.TimeRange.End, 0.001)
}

func TestSession_ModifierSelection(t *testing.T) {
	f, u := newSessionFixture(t)
	created := f.createSession(t, u.ID)

	f.sendEvent(t, created.ID, PointerEventRequest{Kind: "down", Index: 3, Ctrl: true})
	resp := f.sendEvent(t, created.ID, PointerEventRequest{Kind: "down", Index: 8, Shift: true})

	require.NotNil(t, resp.Selection)
	assert.Equal(t, 3, resp.Selection.Start)
	assert.Equal(t, 8, resp.Selection.End)
}

func TestSession_InvalidEvent(t *testing.T) {
	f, u := newSessionFixture(t)
	created := f.createSession(t, u.ID)

	rec := f.do(t, http.MethodPost, "/sessions/"+created.ID+"/events",
		PointerEventRequest{Kind: "wiggle", Index: 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSession_EventOnUnknownSession(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/sessions/missing/events",
		PointerEventRequest{Kind: "down", Index: 3})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", decode[ErrorResponse](t, rec).Code)
}

func TestSession_PreviewFlow(t *testing.T) {
	f, u := newSessionFixture(t)
	created := f.createSession(t, u.ID)

	// Controls are rejected before a selection is committed.
	rec := f.do(t, http.MethodPost, "/sessions/"+created.ID+"/preview/play", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "NO_SELECTION", decode[ErrorResponse](t, rec).Code)

	f.sendEvent(t, created.ID, PointerEventRequest{Kind: "down", Index: 10})
	f.sendEvent(t, created.ID, PointerEventRequest{Kind: "enter", Index: 20})
	f.sendEvent(t, created.ID, PointerEventRequest{Kind: "up"})

	rec = f.do(t, http.MethodGet, "/sessions/"+created.ID+"/preview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[PreviewResponse](t, rec)
	assert.InDelta(t, 10.0, state.Position, 0.001)
	assert.False(t, state.Playing)

	rec = f.do(t, http.MethodPost, "/sessions/"+created.ID+"/preview/play", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[PreviewResponse](t, rec).Playing)

	rec = f.do(t, http.MethodPost, "/sessions/"+created.ID+"/preview/pause", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[PreviewResponse](t, rec).Playing)

	rec = f.do(t, http.MethodPost, "/sessions/"+created.ID+"/preview/seek",
		PreviewSeekRequest{Time: 99})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 21.0, decode[PreviewResponse](t, rec).Position, 0.001)
}

func TestSession_SubmitWithoutSelection(t *testing.T) {
	f, u := newSessionFixture(t)
	created := f.createSession(t, u.ID)

	rec := f.do(t, http.MethodPost, "/sessions/"+created.ID+"/submit",
		SubmitSessionRequest{Branch: "trim"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "NO_SELECTION", decode[ErrorResponse](t, rec).Code)
}

func TestSession_SubmitLocalFallback(t *testing.T) {
	f, u := newSessionFixture(t)
	created := f.createSession(t, u.ID)

	f.sendEvent(t, created.ID, PointerEventRequest{Kind: "down", Index: 5})
	f.sendEvent(t, created.ID, PointerEventRequest{Kind: "enter", Index: 10})
	f.sendEvent(t, created.ID, PointerEventRequest{Kind: "up"})

	// The fallback runs the trim pipeline in the background.
	f.processor.On("Cut", mock.Anything, mock.Anything, mock.Anything, 5.0, 11.0).
		Return(nil).Maybe()

	rec := f.do(t, http.MethodPost, "/sessions/"+created.ID+"/submit",
		SubmitSessionRequest{Branch: "trim"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	resp := decode[ProcessResponse](t, rec)
	assert.NotEmpty(t, resp.ID)

	rec = f.do(t, http.MethodGet, "/jobs/"+resp.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteSession(t *testing.T) {
	f, u := newSessionFixture(t)
	created := f.createSession(t, u.ID)

	rec := f.do(t, http.MethodDelete, "/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
