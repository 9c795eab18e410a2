package session

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/framepick/framepick-api/internal/remote"
	"github.com/framepick/framepick-api/internal/selection"
	"github.com/framepick/framepick-api/internal/thumbs"
	"github.com/framepick/framepick-api/internal/timeline"
)

// stubSource is a thumbs.Source producing a fixed frame for every position.
type stubSource struct{}

func (stubSource) Seek(t float64) <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (stubSource) Capture(ctx context.Context, w, h int) ([]byte, error) {
	return []byte("jpeg"), nil
}

// recordingListener collects notifications.
type recordingListener struct {
	built      int
	committed  []selection.Range
	timeRanges []timeline.TimeRange
	seeks      []float64
}

func (r *recordingListener) TimelineBuilt(samples []timeline.SamplePoint, thumbnails []thumbs.Thumbnail) {
	r.built++
}

func (r *recordingListener) SelectionCommitted(rng selection.Range, tr timeline.TimeRange) {
	r.committed = append(r.committed, rng)
	r.timeRanges = append(r.timeRanges, tr)
}

func (r *recordingListener) PreviewSeeked(t float64) {
	r.seeks = append(r.seeks, t)
}

// mockRemote implements remote.Client for testing.
type mockRemote struct {
	mock.Mock
}

func (m *mockRemote) Upload(ctx context.Context, filename string, data io.Reader) (remote.UploadResult, error) {
	args := m.Called(ctx, filename, data)
	return args.Get(0).(remote.UploadResult), args.Error(1)
}

func (m *mockRemote) Process(ctx context.Context, req remote.ProcessRequest) (remote.ProcessResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(remote.ProcessResult), args.Error(1)
}

func (m *mockRemote) Status(ctx context.Context, jobID string) (remote.StatusResult, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).(remote.StatusResult), args.Error(1)
}

func (m *mockRemote) Download(ctx context.Context, jobID string) (io.ReadCloser, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func newBuiltSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	sess := New("upload-1", timeline.NewSampler(1, 60), thumbs.NewRenderer(), opts...)
	require.NoError(t, sess.BuildTimeline(context.Background(), stubSource{}, 30))
	return sess
}

func drag(t *testing.T, sess *Session, from, to int) {
	t.Helper()
	require.NoError(t, sess.HandlePointer(selection.PointerEvent{Kind: selection.PointerDown, Index: from}))
	require.NoError(t, sess.HandlePointer(selection.PointerEvent{Kind: selection.PointerEnter, Index: to}))
	require.NoError(t, sess.HandlePointer(selection.PointerEvent{Kind: selection.PointerUp}))
}

func TestSession_BuildTimeline(t *testing.T) {
	sess := New("upload-1", timeline.NewSampler(1, 60), thumbs.NewRenderer())
	listener := &recordingListener{}
	sess.Subscribe(listener)

	require.NoError(t, sess.BuildTimeline(context.Background(), stubSource{}, 30))

	assert.Len(t, sess.Samples(), 30)
	assert.Len(t, sess.Thumbnails(), 30)
	assert.Equal(t, 1, listener.built)
	assert.Equal(t, selection.ModeIdle, sess.Mode())

	_, ok := sess.Selection()
	assert.False(t, ok)
}

func TestSession_BuildTimeline_InvalidDuration(t *testing.T) {
	sess := New("upload-1", timeline.NewSampler(1, 60), thumbs.NewRenderer())

	err := sess.BuildTimeline(context.Background(), stubSource{}, 0)
	assert.ErrorIs(t, err, timeline.ErrInvalidMedia)
}

func TestSession_HandlePointer_NoTimeline(t *testing.T) {
	sess := New("upload-1", timeline.NewSampler(1, 60), thumbs.NewRenderer())

	err := sess.HandlePointer(selection.PointerEvent{Kind: selection.PointerDown, Index: 3})
	assert.ErrorIs(t, err, ErrNoTimeline)
}

func TestSession_DragCommitsAndAttachesPreview(t *testing.T) {
	sess := newBuiltSession(t)
	listener := &recordingListener{}
	sess.Subscribe(listener)

	drag(t, sess, 5, 10)

	r, ok := sess.Selection()
	require.True(t, ok)
	assert.Equal(t, selection.Range{Start: 5, End: 10}, r)

	tr, ok := sess.TimeRange()
	require.True(t, ok)
	assert.InDelta(t, 5.0, tr.Start, 0.001)
	assert.InDelta(t, 11.0, tr.End, 0.001)

	require.Len(t, listener.committed, 1)
	assert.Equal(t, selection.Range{Start: 5, End: 10}, listener.committed[0])

	// Preview is attached at the range start, paused.
	st := sess.PreviewState()
	assert.InDelta(t, 5.0, st.Position, 0.001)
	assert.False(t, st.Playing)
}

func TestSession_PlainClickCommitsAndSeeks(t *testing.T) {
	sess := newBuiltSession(t)
	listener := &recordingListener{}
	sess.Subscribe(listener)

	require.NoError(t, sess.HandlePointer(selection.PointerEvent{Kind: selection.PointerDown, Index: 7}))
	require.NoError(t, sess.HandlePointer(selection.PointerEvent{Kind: selection.PointerUp}))

	require.Len(t, listener.committed, 1)
	assert.Equal(t, selection.Range{Start: 7, End: 7}, listener.committed[0])
	require.Len(t, listener.seeks, 1)
	assert.InDelta(t, 7.0, listener.seeks[0], 0.001)

	// Single-frame commit projects onto the widened range.
	tr, ok := sess.TimeRange()
	require.True(t, ok)
	assert.InDelta(t, 7.0, tr.Start, 0.001)
	assert.InDelta(t, 9.0, tr.End, 0.001)
}

func TestSession_RebuildResetsSelection(t *testing.T) {
	sess := newBuiltSession(t)
	drag(t, sess, 5, 10)

	require.NoError(t, sess.BuildTimeline(context.Background(), stubSource{}, 12))

	assert.Len(t, sess.Samples(), 12)
	_, ok := sess.Selection()
	assert.False(t, ok)
	_, ok = sess.TimeRange()
	assert.False(t, ok)
	assert.ErrorIs(t, sess.PreviewPlay(), ErrNoTimeRange)
}

func TestSession_PreviewControlsRequireCommit(t *testing.T) {
	sess := newBuiltSession(t)

	assert.ErrorIs(t, sess.PreviewPlay(), ErrNoTimeRange)
	assert.ErrorIs(t, sess.PreviewPause(), ErrNoTimeRange)
	assert.ErrorIs(t, sess.PreviewSeek(5), ErrNoTimeRange)
}

func TestSession_PreviewSeekClamps(t *testing.T) {
	sess := newBuiltSession(t)
	drag(t, sess, 10, 20)

	require.NoError(t, sess.PreviewSeek(99))
	assert.InDelta(t, 21.0, sess.PreviewState().Position, 0.001)

	require.NoError(t, sess.PreviewSeek(0))
	assert.InDelta(t, 10.0, sess.PreviewState().Position, 0.001)
}

func TestSession_Overlay(t *testing.T) {
	sess := newBuiltSession(t)

	_, ok := sess.Overlay(timeline.UniformGeometry{FrameWidth: 100})
	assert.False(t, ok)

	drag(t, sess, 2, 4)
	ov, ok := sess.Overlay(timeline.UniformGeometry{FrameWidth: 100})
	require.True(t, ok)
	assert.InDelta(t, 200.0, ov.Left, 0.001)
	assert.InDelta(t, 300.0, ov.Width, 0.001)
}

func TestSession_Submit(t *testing.T) {
	client := &mockRemote{}
	sess := newBuiltSession(t, WithRemote(client))
	drag(t, sess, 5, 10)

	client.On("Process", mock.Anything, remote.ProcessRequest{
		FirstVideoID: "upload-1",
		StartTime:    5,
		EndTime:      11,
		Branch:       "trim",
	}).Return(remote.ProcessResult{ID: "job-1", Status: remote.StatusQueued}, nil)

	result, err := sess.Submit(context.Background(), "", "trim")
	require.NoError(t, err)
	assert.Equal(t, "job-1", result.ID)
	client.AssertExpectations(t)
}

func TestSession_Submit_NoSelection(t *testing.T) {
	client := &mockRemote{}
	sess := newBuiltSession(t, WithRemote(client))

	_, err := sess.Submit(context.Background(), "", "trim")
	assert.ErrorIs(t, err, ErrNoTimeRange)
}

func TestSession_Submit_NoRemote(t *testing.T) {
	sess := newBuiltSession(t)
	drag(t, sess, 5, 10)

	_, err := sess.Submit(context.Background(), "", "trim")
	assert.ErrorIs(t, err, ErrNoRemote)
}

func TestSession_Submit_FailurePreservesState(t *testing.T) {
	client := &mockRemote{}
	sess := newBuiltSession(t, WithRemote(client))
	drag(t, sess, 5, 10)

	client.On("Process", mock.Anything, mock.Anything).
		Return(remote.ProcessResult{}, remote.ErrUpstreamFailure)

	_, err := sess.Submit(context.Background(), "", "trim")
	assert.ErrorIs(t, err, remote.ErrUpstreamFailure)

	// Timeline and selection survive the failure for a retry.
	assert.Len(t, sess.Samples(), 30)
	r, ok := sess.Selection()
	require.True(t, ok)
	assert.Equal(t, selection.Range{Start: 5, End: 10}, r)
	tr, ok := sess.TimeRange()
	require.True(t, ok)
	assert.InDelta(t, 5.0, tr.Start, 0.001)
}

func TestManager(t *testing.T) {
	m := NewManager()
	sess := New("upload-1", timeline.NewSampler(1, 60), thumbs.NewRenderer())

	m.Put(sess)

	found, err := m.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, found.ID)

	require.NoError(t, m.Delete(sess.ID))
	_, err = m.Get(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.True(t, errors.Is(m.Delete(sess.ID), ErrSessionNotFound))
}
