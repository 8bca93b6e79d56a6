// Raw HTTP access to the transcription backend
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scribe/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "http://localhost:8000"
	maxResponseBytes = 32 << 20
)

// APIService performs paced requests against the backend and maps failure statuses to sentinel errors.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     TokenFunc
	logger     *log.Logger
}

// NewAPIService creates an [APIService]. A non-positive requestsPerMinute disables pacing.
func NewAPIService(baseURL string, client *http.Client, requestsPerMinute int, logger *log.Logger) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		limiter:    limiter,
		logger:     logger,
	}
}

// SetTokenFunc sets the bearer token source.
func (a *APIService) SetTokenFunc(fn TokenFunc) { a.tokens = fn }

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Detail     string
	err        error
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v: status %d: %s", e.err, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%v: status %d", e.err, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return e.err }

func statusError(code int, body []byte) error {
	var detail struct {
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(body, &detail)

	var err error
	switch code {
	case http.StatusTooManyRequests:
		err = shared.ErrQuotaExceeded
	case http.StatusForbidden:
		err = shared.ErrPremiumRequired
	default:
		err = shared.ErrAPIRequest
	}
	return &StatusError{StatusCode: code, Detail: detail.Detail, err: err}
}

// Do sends req through client after waiting for the limiter and attaching the bearer token.
//
// Redirect responses are returned as-is when client does not follow them; other non-2xx statuses become a [StatusError].
func (a *APIService) Do(ctx context.Context, client *http.Client, req *http.Request) (*APIResponse, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	if a.tokens != nil {
		if token := a.tokens(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	a.logger.Debug("backend request", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "duration", time.Since(start))

	apiResp := &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return apiResp, nil
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return apiResp, nil
	default:
		return apiResp, statusError(resp.StatusCode, body)
	}
}

// URL joins path onto the base URL.
func (a *APIService) URL(path string) string {
	return a.baseURL + path
}
