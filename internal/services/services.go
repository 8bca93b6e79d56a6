// package services contains the HTTP client for the transcription backend
package services

import (
	"context"
	"io"

	"github.com/desertthunder/scribe/internal/entitlement"
	"github.com/desertthunder/scribe/internal/models"
)

// Transcriber submits audio for transcription.
type Transcriber interface {
	// UploadFile sends an audio file as multipart field "file".
	UploadFile(ctx context.Context, file AudioFile, access entitlement.Access) (*models.TranscriptionResult, error)

	// UploadYouTube asks the backend to fetch and transcribe a YouTube video.
	UploadYouTube(ctx context.Context, videoURL, userID string, access entitlement.Access) (*models.TranscriptionResult, error)
}

// CheckoutCreator starts a payment checkout for a subject.
type CheckoutCreator interface {
	// CreateCheckoutSession returns the URL of the external checkout page.
	CreateCheckoutSession(ctx context.Context, subjectID string) (string, error)
}

// AudioFile is an audio payload read into memory or streamed from disk.
type AudioFile struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// TokenFunc returns the bearer token to attach to backend requests, or "" for none.
type TokenFunc func(ctx context.Context) string
