package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scribe/internal/entitlement"
	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/shared"
)

const (
	UploadPath         = "/api/v1/upload"
	UploadYouTubePath  = "/api/v1/upload-youtube"
	CheckoutPath       = "/api/v1/create-checkout-session"
	DefaultProHeader   = "X-Scribe-Pro"
	defaultContentType = "application/octet-stream"
)

// TranscriptionService talks to the transcription backend.
type TranscriptionService struct {
	api    *APIService
	header string
}

// NewTranscriptionService creates a [TranscriptionService] from the backend settings.
func NewTranscriptionService(cfg shared.BackendConfig, client *http.Client, logger *log.Logger) *TranscriptionService {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout.Duration}
	}
	header := cfg.EntitlementHeader
	if header == "" {
		header = DefaultProHeader
	}
	return &TranscriptionService{
		api:    NewAPIService(cfg.BaseURL, client, cfg.RequestsPerMinute, logger),
		header: header,
	}
}

// SetTokenFunc sets the bearer token source used for every request.
func (s *TranscriptionService) SetTokenFunc(fn TokenFunc) { s.api.SetTokenFunc(fn) }

// UploadFile posts file to the upload endpoint.
func (s *TranscriptionService) UploadFile(ctx context.Context, file AudioFile, access entitlement.Access) (*models.TranscriptionResult, error) {
	if file.Body == nil {
		return nil, fmt.Errorf("%w: file body is required", shared.ErrInvalidInput)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	contentType := file.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart file part: %w", err)
	}
	if _, err := io.Copy(part, file.Body); err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return s.postMultipart(ctx, UploadPath, mw.FormDataContentType(), &buf, access)
}

// UploadYouTube posts a YouTube URL and requester id to the YouTube endpoint.
func (s *TranscriptionService) UploadYouTube(ctx context.Context, videoURL, userID string, access entitlement.Access) (*models.TranscriptionResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("url", videoURL); err != nil {
		return nil, fmt.Errorf("failed to write url field: %w", err)
	}
	if err := mw.WriteField("user_id", userID); err != nil {
		return nil, fmt.Errorf("failed to write user_id field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return s.postMultipart(ctx, UploadYouTubePath, mw.FormDataContentType(), &buf, access)
}

func (s *TranscriptionService) postMultipart(ctx context.Context, path, contentType string, body io.Reader, access entitlement.Access) (*models.TranscriptionResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.api.URL(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(s.header, access.Header())

	resp, err := s.api.Do(ctx, s.api.httpClient, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, err: shared.ErrAPIRequest}
	}

	var result models.TranscriptionResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return &result, nil
}

// CreateCheckoutSession submits the checkout form and returns the redirect target without following it.
func (s *TranscriptionService) CreateCheckoutSession(ctx context.Context, subjectID string) (string, error) {
	if strings.TrimSpace(subjectID) == "" {
		return "", shared.ErrNotAuthenticated
	}

	form := url.Values{"id": {subjectID}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.api.URL(CheckoutPath), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	noFollow := *s.api.httpClient
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, err := s.api.Do(ctx, &noFollow, req)
	if err != nil {
		return "", err
	}

	if location := resp.Headers.Get("Location"); location != "" {
		return location, nil
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err == nil && payload.URL != "" {
		return payload.URL, nil
	}
	return "", fmt.Errorf("%w: checkout response has no redirect", shared.ErrAPIRequest)
}

var (
	_ Transcriber     = (*TranscriptionService)(nil)
	_ CheckoutCreator = (*TranscriptionService)(nil)
)
