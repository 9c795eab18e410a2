package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Static errors for remote client operations.
var (
	// ErrBaseURLRequired is returned when the backend base URL is not provided.
	ErrBaseURLRequired = errors.New("remote: base URL is required")
	// ErrJobIDRequired is returned when the job ID is not provided.
	ErrJobIDRequired = errors.New("remote: job ID is required")
	// ErrUploadIDRequired is returned when the upload ID is not provided.
	ErrUploadIDRequired = errors.New("remote: upload ID is required")
	// ErrUpstreamFailure is returned when the backend reports a non-success
	// response. Callers keep their selection and timeline state so the user
	// can retry without rebuilding.
	ErrUpstreamFailure = errors.New("remote: upstream failure")
	// ErrServerError is returned when the backend returns a 5xx status code.
	ErrServerError = errors.New("remote: server error")
	// ErrRateLimited is returned when the backend returns a 429 status code.
	ErrRateLimited = errors.New("remote: rate limited")
)

// Client defines the interface to the processing backend.
type Client interface {
	// Upload sends a source video and returns its stable identifier.
	Upload(ctx context.Context, filename string, data io.Reader) (UploadResult, error)

	// Process submits a committed time range for processing and returns the
	// created job.
	Process(ctx context.Context, req ProcessRequest) (ProcessResult, error)

	// Status polls a processing job.
	Status(ctx context.Context, jobID string) (StatusResult, error)

	// Download streams the processed output. The caller closes the reader.
	Download(ctx context.Context, jobID string) (io.ReadCloser, error)
}

// HTTPClient is the HTTP implementation of Client.
type HTTPClient struct {
	baseURL     string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(hc *HTTPClient) {
		hc.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseBackoff = d
	}
}

// NewClient creates a new backend HTTP client.
func NewClient(baseURL string, opts ...ClientOption) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}

	c := &HTTPClient{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		maxRetries:  3,
		baseBackoff: 1 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Upload sends a source video as multipart form data.
func (c *HTTPClient) Upload(ctx context.Context, filename string, data io.Reader) (UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return UploadResult{}, fmt.Errorf("remote: create form file: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return UploadResult{}, fmt.Errorf("remote: copy upload data: %w", err)
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("remote: close multipart writer: %w", err)
	}

	url := c.baseURL + "/uploads"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return UploadResult{}, fmt.Errorf("remote: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("remote: upload: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var result UploadResult
	if err := c.decodeResponse(resp, &result); err != nil {
		return UploadResult{}, err
	}
	return result, nil
}

// Process submits a committed time range for processing.
func (c *HTTPClient) Process(ctx context.Context, req ProcessRequest) (ProcessResult, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("remote: marshal request: %w", err)
	}

	url := c.baseURL + "/process"
	var result ProcessResult
	if err := c.doRequestWithRetry(ctx, http.MethodPost, url, bodyBytes, &result); err != nil {
		return ProcessResult{}, err
	}
	return result, nil
}

// Status polls a processing job.
func (c *HTTPClient) Status(ctx context.Context, jobID string) (StatusResult, error) {
	if jobID == "" {
		return StatusResult{}, ErrJobIDRequired
	}

	url := fmt.Sprintf("%s/jobs/%s", c.baseURL, jobID)
	var result StatusResult
	if err := c.doRequestWithRetry(ctx, http.MethodGet, url, nil, &result); err != nil {
		return StatusResult{}, err
	}
	return result, nil
}

// Download streams the processed output for a completed job.
func (c *HTTPClient) Download(ctx context.Context, jobID string) (io.ReadCloser, error) {
	if jobID == "" {
		return nil, ErrJobIDRequired
	}

	url := fmt.Sprintf("%s/download/%s", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("remote: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: download: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return nil, c.statusError(resp)
	}

	return resp.Body, nil
}

// doRequestWithRetry performs an HTTP request with bounded retries and
// exponential backoff on 5xx and 429 responses.
func (c *HTTPClient) doRequestWithRetry(ctx context.Context, method, url string, body []byte, out any) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.baseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return fmt.Errorf("remote: cancelled: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return fmt.Errorf("remote: create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("remote: request failed: %w", err)
			continue
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = c.statusError(resp)
			_ = resp.Body.Close()
			continue
		}

		err = c.decodeResponse(resp, out)
		_ = resp.Body.Close()
		return err
	}

	return lastErr
}

// decodeResponse decodes a 2xx response into out and maps non-success
// responses to ErrUpstreamFailure.
func (c *HTTPClient) decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	return nil
}

// statusError maps an HTTP error response to a sentinel error, preserving
// the backend's error message when one is present.
func (c *HTTPClient) statusError(resp *http.Response) error {
	base := ErrUpstreamFailure
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		base = ErrRateLimited
	case resp.StatusCode >= 500:
		base = ErrServerError
	}

	var payload errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload); err == nil && payload.Error != "" {
		return fmt.Errorf("%w: status %d: %s", base, resp.StatusCode, payload.Error)
	}
	return fmt.Errorf("%w: status %d", base, resp.StatusCode)
}
