package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/shared"
)

// TranscriptionRepository implements [models.Repository] for the transcription history.
type TranscriptionRepository struct {
	db *sql.DB
}

// NewTranscriptionRepository creates a new [TranscriptionRepository] with the given database connection
func NewTranscriptionRepository(db *sql.DB) *TranscriptionRepository {
	return &TranscriptionRepository{db: db}
}

const transcriptionColumns = `id, sequence, subject_id, source, source_name, title, mxml, midi, created_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTranscription(row rowScanner) (*models.Transcription, error) {
	var (
		id, subjectID, source, sourceName, title, mxml, midi string
		sequence                                             int
		createdAt                                            time.Time
		deletedAt                                            sql.NullTime
	)

	if err := row.Scan(&id, &sequence, &subjectID, &source, &sourceName, &title, &mxml, &midi, &createdAt, &deletedAt); err != nil {
		return nil, err
	}

	t := models.NewTranscription(subjectID, models.Source(source), sourceName, title, models.TranscriptionResult{
		NotationMarkup: mxml,
		NoteEvents:     midi,
	})
	t.SetID(id)
	t.SetSequence(sequence)
	t.SetCreatedAt(createdAt)
	if deletedAt.Valid {
		t.SetDeletedAt(&deletedAt.Time)
	}
	return t, nil
}

// Create validates and inserts a transcription with a generated ID and sequence
func (r *TranscriptionRepository) Create(t *models.Transcription) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "transcriptions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO transcriptions (id, sequence, subject_id, source, source_name, title, mxml, midi, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query, id, sequence, t.SubjectID, string(t.Source), t.SourceName, t.Title,
		t.Result.NotationMarkup, t.Result.NoteEvents, t.CreatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert transcription: %w", err)
	}

	t.SetID(id)
	t.SetSequence(sequence)
	return nil
}

// Get retrieves a transcription by ID, excluding soft-deleted entries
func (r *TranscriptionRepository) Get(id string) (*models.Transcription, error) {
	query := `SELECT ` + transcriptionColumns + ` FROM transcriptions WHERE id = ? AND deleted_at IS NULL`

	t, err := scanTranscription(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrTranscriptNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transcription: %w", err)
	}
	return t, nil
}

// GetBySequence retrieves a transcription by its history number
func (r *TranscriptionRepository) GetBySequence(sequence int) (*models.Transcription, error) {
	query := `SELECT ` + transcriptionColumns + ` FROM transcriptions WHERE sequence = ? AND deleted_at IS NULL`

	t, err := scanTranscription(r.db.QueryRow(query, sequence))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: #%d", shared.ErrTranscriptNotFound, sequence)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transcription: %w", err)
	}
	return t, nil
}

// Delete soft-deletes a transcription by ID
func (r *TranscriptionRepository) Delete(id string) error {
	query := `
		UPDATE transcriptions
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete transcription: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w or already deleted: %s", shared.ErrTranscriptNotFound, id)
	}
	return nil
}

// List retrieves transcriptions newest first, excluding soft-deleted entries.
//
// Supported criteria: "subject_id" (string), "source" ([models.Source]) and "limit" (int).
func (r *TranscriptionRepository) List(criteria map[string]any) ([]*models.Transcription, error) {
	query := `SELECT ` + transcriptionColumns + ` FROM transcriptions WHERE deleted_at IS NULL`
	args := []any{}

	if subjectID, ok := criteria["subject_id"].(string); ok && subjectID != "" {
		query += " AND subject_id = ?"
		args = append(args, subjectID)
	}
	if source, ok := criteria["source"].(models.Source); ok && source != "" {
		query += " AND source = ?"
		args = append(args, string(source))
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcriptions: %w", err)
	}
	defer rows.Close()

	var transcriptions []*models.Transcription
	for rows.Next() {
		t, err := scanTranscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcription: %w", err)
		}
		transcriptions = append(transcriptions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return transcriptions, nil
}

var _ models.Repository[*models.Transcription] = (*TranscriptionRepository)(nil)
