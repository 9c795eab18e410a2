package job

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/framepick/framepick-api/internal/storage"
	"github.com/framepick/framepick-api/internal/upload"
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

// writeOutput makes a mocked pipeline step produce its output file, the way
// ffmpeg would.
func writeOutput(pathArg int) func(mock.Arguments) {
	return func(args mock.Arguments) {
		_ = os.WriteFile(args.String(pathArg), []byte("video"), 0600)
	}
}

func newServiceFixture(t *testing.T) (*TrimService, *MemoryRepository, upload.Repository, *mockProcessor) {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	uploads := upload.NewMemoryRepository()
	processor := &mockProcessor{}
	repo := NewMemoryRepository()
	svc := NewTrimService(repo, uploads, processor, store)
	return svc, repo, uploads, processor
}

func seedUpload(t *testing.T, repo upload.Repository, id string) *upload.Upload {
	t.Helper()
	u := upload.New("source.mp4", 1024, 60)
	u.ID = id
	u.Path = "/data/" + id + ".mp4"
	require.NoError(t, repo.Save(context.Background(), u))
	return u
}

func TestTrimService_CreateJob(t *testing.T) {
	svc, _, uploads, _ := newServiceFixture(t)
	seedUpload(t, uploads, "upload-1")

	j, err := svc.CreateJob(context.Background(), TrimInput{
		FirstVideoID: "upload-1",
		StartTime:    5,
		EndTime:      11,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, j.Status)
	assert.Equal(t, BranchTrim, j.Branch)
	assert.InDelta(t, 5.0, j.StartTime, 0.001)
	assert.InDelta(t, 11.0, j.EndTime, 0.001)

	persisted, err := svc.GetJob(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, j.ID, persisted.ID)
}

func TestTrimService_CreateJob_Validation(t *testing.T) {
	svc, _, uploads, _ := newServiceFixture(t)
	seedUpload(t, uploads, "upload-1")

	tests := []struct {
		name    string
		input   TrimInput
		wantErr error
	}{
		{
			name:    "inverted range",
			input:   TrimInput{FirstVideoID: "upload-1", StartTime: 11, EndTime: 5},
			wantErr: ErrInvalidTimeRange,
		},
		{
			name:    "empty range",
			input:   TrimInput{FirstVideoID: "upload-1", StartTime: 5, EndTime: 5},
			wantErr: ErrInvalidTimeRange,
		},
		{
			name:    "unknown branch",
			input:   TrimInput{FirstVideoID: "upload-1", StartTime: 5, EndTime: 11, Branch: "explode"},
			wantErr: ErrInvalidBranch,
		},
		{
			name:    "splice without second video",
			input:   TrimInput{FirstVideoID: "upload-1", StartTime: 5, EndTime: 11, Branch: BranchSplice},
			wantErr: ErrSecondVideoRequired,
		},
		{
			name:    "unknown first video",
			input:   TrimInput{FirstVideoID: "missing", StartTime: 5, EndTime: 11},
			wantErr: upload.ErrUploadNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateJob(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTrimService_ProcessExistingJob_Trim(t *testing.T) {
	svc, _, uploads, processor := newServiceFixture(t)
	first := seedUpload(t, uploads, "upload-1")

	input := TrimInput{FirstVideoID: "upload-1", StartTime: 5, EndTime: 11}
	created, err := svc.CreateJob(context.Background(), input)
	require.NoError(t, err)

	processor.On("Cut", mock.Anything, first.Path, mock.Anything, 5.0, 11.0).
		Run(writeOutput(2)).
		Return(nil)

	done, err := svc.ProcessExistingJob(context.Background(), created.ID, input)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.GetStatus())
	assert.Equal(t, 100, done.Progress)
	assert.NotEmpty(t, done.OutputPath)
	assert.Empty(t, done.OutputURL)

	// The output is stored and downloadable.
	rc, err := svc.Output(context.Background(), created.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	_ = rc.Close()
	assert.Equal(t, "video", string(data))

	processor.AssertExpectations(t)
}

func TestTrimService_ProcessExistingJob_Splice(t *testing.T) {
	svc, _, uploads, processor := newServiceFixture(t)
	first := seedUpload(t, uploads, "upload-1")
	second := seedUpload(t, uploads, "upload-2")

	input := TrimInput{
		FirstVideoID:  "upload-1",
		SecondVideoID: "upload-2",
		StartTime:     5,
		EndTime:       11,
		Branch:        BranchSplice,
	}
	created, err := svc.CreateJob(context.Background(), input)
	require.NoError(t, err)

	processor.On("Cut", mock.Anything, first.Path, mock.Anything, 5.0, 11.0).
		Run(writeOutput(2)).
		Return(nil)
	processor.On("Join", mock.Anything, mock.MatchedBy(func(paths []string) bool {
		return len(paths) == 2 && paths[1] == second.Path
	}), mock.Anything).
		Run(writeOutput(2)).
		Return(nil)

	done, err := svc.ProcessExistingJob(context.Background(), created.ID, input)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.GetStatus())

	processor.AssertExpectations(t)
}

func TestTrimService_ProcessExistingJob_CutFails(t *testing.T) {
	svc, repo, uploads, processor := newServiceFixture(t)
	seedUpload(t, uploads, "upload-1")

	input := TrimInput{FirstVideoID: "upload-1", StartTime: 5, EndTime: 11}
	created, err := svc.CreateJob(context.Background(), input)
	require.NoError(t, err)

	processor.On("Cut", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("non-keyframe boundary"))

	_, err = svc.ProcessExistingJob(context.Background(), created.ID, input)
	require.Error(t, err)

	persisted, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, persisted.Status)
	assert.Contains(t, persisted.Error, "cut range")
}

func TestTrimService_ProcessExistingJob_NotFound(t *testing.T) {
	svc, _, _, _ := newServiceFixture(t)

	_, err := svc.ProcessExistingJob(context.Background(), "missing", TrimInput{})
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestTrimService_Output_NotReady(t *testing.T) {
	svc, _, uploads, _ := newServiceFixture(t)
	seedUpload(t, uploads, "upload-1")

	created, err := svc.CreateJob(context.Background(), TrimInput{
		FirstVideoID: "upload-1",
		StartTime:    5,
		EndTime:      11,
	})
	require.NoError(t, err)

	_, err = svc.Output(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrOutputNotReady)
}
