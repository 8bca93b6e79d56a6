// package models defines the data model shared by the transcription client
package models

import (
	"fmt"
	"strings"
	"time"
)

// Model defines the base interface for persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// TranscriptionResult is the payload returned by the transcription backend.
//
// Both fields are optional; an empty string means the backend did not return that part.
type TranscriptionResult struct {
	NotationMarkup string `json:"mxml,omitempty"` // MusicXML score
	NoteEvents     string `json:"midi,omitempty"` // base64 encoded standard MIDI file
}

// HasNotation reports whether the result carries notation markup.
func (r *TranscriptionResult) HasNotation() bool {
	return r != nil && strings.TrimSpace(r.NotationMarkup) != ""
}

// HasNoteEvents reports whether the result carries a note event stream.
func (r *TranscriptionResult) HasNoteEvents() bool {
	return r != nil && strings.TrimSpace(r.NoteEvents) != ""
}

// Source identifies what was submitted for transcription.
type Source string

const (
	SourceFile    Source = "file"
	SourceYouTube Source = "youtube"
)

// Transcription is a successful transcription kept in the local history.
type Transcription struct {
	id         string
	sequence   int
	SubjectID  string
	Source     Source
	SourceName string // file name or YouTube URL
	Title      string // score title, when the notation carried one
	Result     TranscriptionResult
	createdAt  time.Time
	deletedAt  *time.Time
}

// NewTranscription creates an unsaved [Transcription] stamped with the current time.
func NewTranscription(subjectID string, source Source, sourceName, title string, result TranscriptionResult) *Transcription {
	return &Transcription{
		SubjectID:  subjectID,
		Source:     source,
		SourceName: sourceName,
		Title:      title,
		Result:     result,
		createdAt:  time.Now().UTC(),
	}
}

func (t *Transcription) ID() string { return t.id }
func (t *Transcription) SetID(id string) { t.id = id }

// Sequence is the history number shown to the user (#1, #2, ...).
func (t *Transcription) Sequence() int { return t.sequence }
func (t *Transcription) SetSequence(n int) { t.sequence = n }
func (t *Transcription) CreatedAt() time.Time { return t.createdAt }
func (t *Transcription) SetCreatedAt(at time.Time) { t.createdAt = at }
func (t *Transcription) DeletedAt() *time.Time { return t.deletedAt }
func (t *Transcription) SetDeletedAt(at *time.Time) { t.deletedAt = at }

// Validate checks that the record identifies its source and holds something worth replaying.
func (t *Transcription) Validate() error {
	switch t.Source {
	case SourceFile, SourceYouTube:
	default:
		return fmt.Errorf("unknown source %q", t.Source)
	}
	if strings.TrimSpace(t.SourceName) == "" {
		return fmt.Errorf("source name is required")
	}
	if !t.Result.HasNotation() && !t.Result.HasNoteEvents() {
		return fmt.Errorf("transcription has neither notation nor note events")
	}
	return nil
}

// DisplayName is the score title when known, otherwise the source name.
func (t *Transcription) DisplayName() string {
	if t.Title != "" {
		return t.Title
	}
	return t.SourceName
}

var _ Model = (*Transcription)(nil)
