package upload

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/framepick/framepick-api/internal/media"
	"github.com/framepick/framepick-api/internal/storage"
	"github.com/framepick/framepick-api/internal/thumbs"
)

// mockProcessor implements media.Processor for testing.
type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockProcessor) ExtractFrame(ctx context.Context, path string, t float64, w, h int) ([]byte, error) {
	args := m.Called(ctx, path, t, w, h)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockProcessor) Cut(ctx context.Context, src, dst string, start, end float64) error {
	args := m.Called(ctx, src, dst, start, end)
	return args.Error(0)
}

func (m *mockProcessor) Join(ctx context.Context, paths []string, output string) error {
	args := m.Called(ctx, paths, output)
	return args.Error(0)
}

func newServiceFixture(t *testing.T) (*Service, *mockProcessor) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	processor := &mockProcessor{}
	svc := NewService(NewMemoryRepository(), store, processor)
	return svc, processor
}

func TestService_Store(t *testing.T) {
	svc, processor := newServiceFixture(t)
	processor.On("ProbeDuration", mock.Anything, mock.Anything).Return(42.5, nil)

	u, err := svc.Store(context.Background(), "clip.mp4", strings.NewReader("video bytes"))
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "clip.mp4", u.Filename)
	assert.Equal(t, int64(len("video bytes")), u.Size)
	assert.InDelta(t, 42.5, u.Duration, 0.001)
	assert.Equal(t, "/uploads/"+u.ID+"/file", u.URL)
	assert.NotEmpty(t, u.Path)

	// The record is in the catalog and the file is readable.
	rc, stored, err := svc.OpenFile(context.Background(), u.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	_ = rc.Close()
	assert.Equal(t, "video bytes", string(data))
	assert.Equal(t, u.ID, stored.ID)
}

func TestService_Store_RejectsInvalidMedia(t *testing.T) {
	svc, processor := newServiceFixture(t)
	processor.On("ProbeDuration", mock.Anything, mock.Anything).
		Return(0.0, media.ErrInvalidMedia)

	_, err := svc.Store(context.Background(), "broken.mp4", strings.NewReader("not a video"))
	assert.ErrorIs(t, err, ErrInvalidMedia)

	// Nothing lands in the catalog.
	all, listErr := svc.List(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, all)
}

func TestService_Get_NotFound(t *testing.T) {
	svc, _ := newServiceFixture(t)

	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUploadNotFound)
}

func TestService_Timeline(t *testing.T) {
	svc, processor := newServiceFixture(t)
	processor.On("ProbeDuration", mock.Anything, mock.Anything).Return(5.0, nil)
	processor.On("ExtractFrame", mock.Anything, mock.Anything, mock.Anything,
		thumbs.DefaultWidth, thumbs.DefaultHeight).
		Return([]byte("jpeg"), nil)

	u, err := svc.Store(context.Background(), "clip.mp4", strings.NewReader("video"))
	require.NoError(t, err)

	samples, rendered, err := svc.Timeline(context.Background(), u.ID, 1, 60)
	require.NoError(t, err)
	require.Len(t, samples, 5)
	require.Len(t, rendered, 5)
	for i, th := range rendered {
		assert.Equal(t, i, th.Index)
		assert.Equal(t, thumbs.StatusCaptured, th.Status)
	}
	processor.AssertNumberOfCalls(t, "ExtractFrame", 5)
}

func TestService_Timeline_FailedCaptureGetsPlaceholder(t *testing.T) {
	svc, processor := newServiceFixture(t)
	processor.On("ProbeDuration", mock.Anything, mock.Anything).Return(3.0, nil)
	processor.On("ExtractFrame", mock.Anything, mock.Anything, 1.0, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)
	processor.On("ExtractFrame", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]byte("jpeg"), nil)

	u, err := svc.Store(context.Background(), "clip.mp4", strings.NewReader("video"))
	require.NoError(t, err)

	_, rendered, err := svc.Timeline(context.Background(), u.ID, 1, 60)
	require.NoError(t, err)
	require.Len(t, rendered, 3)
	assert.Equal(t, thumbs.StatusFailed, rendered[1].Status)
	assert.Equal(t, "0:01", rendered[1].Label)
	assert.Equal(t, thumbs.StatusCaptured, rendered[0].Status)
	assert.Equal(t, thumbs.StatusCaptured, rendered[2].Status)
}

func TestService_Timeline_UnknownUpload(t *testing.T) {
	svc, _ := newServiceFixture(t)

	_, _, err := svc.Timeline(context.Background(), "missing", 1, 60)
	assert.ErrorIs(t, err, ErrUploadNotFound)
}
