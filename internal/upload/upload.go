// package upload mediates user-initiated transcription requests to the backend
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scribe/internal/entitlement"
	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/services"
	"github.com/desertthunder/scribe/internal/shared"
	"github.com/gabriel-vasile/mimetype"
)

// User-facing messages.
const (
	MsgSelectAudio     = "Please select an audio file"
	MsgAcceptTerms     = "you must agree to the terms of service"
	MsgEnterURL        = "Please enter a YouTube URL"
	MsgSignIn          = "Please sign in to transcribe from YouTube"
	MsgPremiumOnly     = "YouTube transcription is only available for premium subscribers"
	MsgQuotaExhausted  = "You have used all of your free transcriptions. Subscribe to Pro for unlimited transcriptions."
	MsgPremiumRequired = "YouTube transcription is only available for premium subscribers. Subscribe to Pro to unlock it."
	MsgTransient       = "Something went wrong while transcribing. Please try again."
)

// Phase is a step of the outcome state machine.
type Phase int

const (
	Idle Phase = iota
	Pending
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// Request is either a [FileUpload] or a [YouTubeUpload].
type Request interface {
	isRequest()
	Describe() string
}

// FileUpload is an audio file picked by the user.
type FileUpload struct {
	Name        string
	ContentType string // detected from Data when empty
	Data        []byte
}

func (FileUpload) isRequest() {}

func (f FileUpload) Describe() string { return f.Name }

// YouTubeUpload is a YouTube link submitted by a signed-in user.
type YouTubeUpload struct {
	URL         string
	RequesterID string
}

func (YouTubeUpload) isRequest() {}

func (y YouTubeUpload) Describe() string { return y.URL }

// Outcome is the state of the most recent request.
type Outcome struct {
	Phase   Phase
	Request Request
	Result  *models.TranscriptionResult // set when Succeeded
	Err     *Error                      // set when Failed
}

// Orchestrator submits one request at a time and tracks its [Outcome].
//
// Callers must not submit while the outcome is Pending; the shell disables its submit controls for that.
// If they do anyway, the last request to resolve wins.
type Orchestrator struct {
	backend services.Transcriber
	logger  *log.Logger

	mu      sync.Mutex
	access  entitlement.Access
	outcome Outcome
	updates chan Outcome
}

// NewOrchestrator creates an idle [Orchestrator]. The logger may be nil.
func NewOrchestrator(backend services.Transcriber, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Orchestrator{
		backend: backend,
		logger:  logger,
		updates: make(chan Outcome, 8),
	}
}

// SetAccess replaces the entitlement snapshot. Call it on every session update.
func (o *Orchestrator) SetAccess(access entitlement.Access) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.access = access
}

// Access returns the current entitlement snapshot.
func (o *Orchestrator) Access() entitlement.Access {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.access
}

// Outcome returns the current outcome.
func (o *Orchestrator) Outcome() Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcome
}

// Updates delivers outcome transitions. Updates are dropped when nobody is reading.
func (o *Orchestrator) Updates() <-chan Outcome {
	return o.updates
}

func (o *Orchestrator) transition(next Outcome) {
	o.mu.Lock()
	o.outcome = next
	o.mu.Unlock()

	select {
	case o.updates <- next:
	default:
	}
}

// ValidateFile checks that file is audio and that the terms were accepted, returning the detected content type.
func ValidateFile(file FileUpload, tosAccepted bool) (string, error) {
	contentType := DetectContentType(file)
	if !IsAudio(contentType) {
		return contentType, &Error{
			Kind:    KindValidation,
			Message: MsgSelectAudio,
			Err:     fmt.Errorf("%w: %s", shared.ErrInvalidFileType, contentType),
		}
	}
	if !tosAccepted {
		return contentType, &Error{Kind: KindValidation, Message: MsgAcceptTerms, Err: shared.ErrTermsNotAccepted}
	}
	return contentType, nil
}

// DetectContentType returns the declared content type, sniffing the payload when it is missing or generic.
func DetectContentType(file FileUpload) string {
	ct := strings.ToLower(strings.TrimSpace(file.ContentType))
	if ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if len(file.Data) == 0 {
		return ct
	}
	return mimetype.Detect(file.Data).String()
}

// IsAudio reports whether contentType names an audio type. Parameters are ignored.
func IsAudio(contentType string) bool {
	if mt := mimetype.Lookup(contentType); mt != nil {
		for m := mt; m != nil; m = m.Parent() {
			if strings.HasPrefix(m.String(), "audio/") {
				return true
			}
		}
	}
	base, _, _ := strings.Cut(contentType, ";")
	return strings.HasPrefix(strings.TrimSpace(base), "audio/")
}

// SubmitFile validates file locally and, when valid, uploads it.
//
// Validation failures return an [*Error] without touching the network or the current outcome.
func (o *Orchestrator) SubmitFile(ctx context.Context, file FileUpload, tosAccepted bool) (*models.TranscriptionResult, error) {
	contentType, err := ValidateFile(file, tosAccepted)
	if err != nil {
		o.logger.Debug("file rejected", "file", file.Name, "content_type", contentType, "error", err)
		return nil, err
	}

	access := o.Access()
	audio := services.AudioFile{Name: file.Name, ContentType: contentType, Body: bytes.NewReader(file.Data)}

	return o.run(ctx, file, func(ctx context.Context) (*models.TranscriptionResult, error) {
		return o.backend.UploadFile(ctx, audio, access)
	})
}

// ValidateYouTube applies the local checks for a YouTube submission.
func ValidateYouTube(url, requesterID string, access entitlement.Access) error {
	if strings.TrimSpace(url) == "" {
		return &Error{Kind: KindValidation, Message: MsgEnterURL, Err: shared.ErrEmptyURL}
	}
	if strings.TrimSpace(requesterID) == "" {
		return &Error{Kind: KindAuthorization, Message: MsgSignIn, Err: shared.ErrNotAuthenticated}
	}
	if !access.Pro {
		return &Error{Kind: KindAuthorization, Message: MsgPremiumOnly, Err: shared.ErrNotPro}
	}
	return nil
}

// SubmitYouTubeURL checks the URL, the requester and the Pro entitlement locally, then submits the link.
//
// The backend re-checks entitlement; these checks only spare the user a round trip.
func (o *Orchestrator) SubmitYouTubeURL(ctx context.Context, url, requesterID string) (*models.TranscriptionResult, error) {
	access := o.Access()
	if err := ValidateYouTube(url, requesterID, access); err != nil {
		o.logger.Debug("youtube submission rejected", "error", err)
		return nil, err
	}

	url = strings.TrimSpace(url)
	req := YouTubeUpload{URL: url, RequesterID: requesterID}
	return o.run(ctx, req, func(ctx context.Context) (*models.TranscriptionResult, error) {
		return o.backend.UploadYouTube(ctx, url, requesterID, access)
	})
}

// Submit dispatches req to [Orchestrator.SubmitFile] or [Orchestrator.SubmitYouTubeURL].
func (o *Orchestrator) Submit(ctx context.Context, req Request, tosAccepted bool) (*models.TranscriptionResult, error) {
	switch r := req.(type) {
	case FileUpload:
		return o.SubmitFile(ctx, r, tosAccepted)
	case YouTubeUpload:
		return o.SubmitYouTubeURL(ctx, r.URL, r.RequesterID)
	default:
		return nil, fmt.Errorf("%w: unknown request %T", shared.ErrInvalidArgument, req)
	}
}

func (o *Orchestrator) run(ctx context.Context, req Request, call func(context.Context) (*models.TranscriptionResult, error)) (*models.TranscriptionResult, error) {
	o.transition(Outcome{Phase: Pending, Request: req})
	o.logger.Info("submitting for transcription", "source", req.Describe())

	result, err := call(ctx)
	if err != nil {
		uerr := Classify(err)
		o.logger.Error("transcription failed", "source", req.Describe(), "kind", uerr.Kind, "error", err)
		o.transition(Outcome{Phase: Failed, Request: req, Err: uerr})
		return nil, uerr
	}

	o.logger.Info("transcription complete", "source", req.Describe(), "notation", result.HasNotation(), "note_events", result.HasNoteEvents())
	o.transition(Outcome{Phase: Succeeded, Request: req, Result: result})
	return result, nil
}

// Classify maps a backend error onto the user-facing taxonomy.
func Classify(err error) *Error {
	var uerr *Error
	if errors.As(err, &uerr) {
		return uerr
	}
	switch {
	case errors.Is(err, shared.ErrQuotaExceeded):
		return &Error{Kind: KindQuotaExceeded, Message: MsgQuotaExhausted, Err: err}
	case errors.Is(err, shared.ErrPremiumRequired):
		return &Error{Kind: KindPremiumRequired, Message: MsgPremiumRequired, Err: err}
	default:
		return &Error{Kind: KindTransient, Message: MsgTransient, Err: err}
	}
}
