// package viewer adapts a transcription result to the score renderer, the player and the exporter
package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scribe/internal/formatter"
	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/notation"
	"github.com/desertthunder/scribe/internal/playback"
	"github.com/desertthunder/scribe/internal/shared"
)

// Viewer holds the rendered score and the loaded note events for the current result.
//
// A result whose notation cannot be rendered is logged and leaves the previous score in place.
type Viewer struct {
	player   *playback.Player
	exporter *formatter.Exporter
	logger   *log.Logger

	mu       sync.Mutex
	score    *notation.Score
	rendered string
	width    int
}

// New creates a viewer. logger may be nil.
func New(player *playback.Player, exporter *formatter.Exporter, logger *log.Logger) *Viewer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Viewer{player: player, exporter: exporter, logger: logger, width: 80}
}

// Apply loads result. Errors are returned for the caller's information; they never clear prior state.
func (v *Viewer) Apply(result *models.TranscriptionResult) error {
	if result == nil {
		return nil
	}

	var errs []error
	if result.HasNotation() {
		if err := v.applyNotation(result.NotationMarkup); err != nil {
			v.logger.Error("failed to render notation", "error", err)
			errs = append(errs, err)
		}
	}

	if result.HasNoteEvents() {
		events, err := playback.Decode(result.NoteEvents)
		if err != nil {
			v.logger.Error("failed to decode note events", "error", err)
			errs = append(errs, err)
		} else {
			v.player.Load(events)
			v.logger.Debug("note events loaded", "events", len(events), "length", playback.Length(events))
		}
	}

	return errors.Join(errs...)
}

func (v *Viewer) applyNotation(markup string) error {
	score, err := notation.Parse(markup)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.score = score
	v.rendered = notation.Render(score, v.width)
	return nil
}

// Resize re-renders the score for a new terminal width.
func (v *Viewer) Resize(width int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.width = width
	if v.score != nil {
		v.rendered = notation.Render(v.score, width)
	}
}

// Score returns the current score, or nil.
func (v *Viewer) Score() *notation.Score {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.score
}

// View returns the rendered score.
func (v *Viewer) View() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rendered
}

// Playable reports whether note events are loaded.
func (v *Viewer) Playable() bool { return v.player.Loaded() }

// PlayerState is the player's current state.
func (v *Viewer) PlayerState() playback.State { return v.player.State() }

// Toggle starts playback or stops it when already playing.
func (v *Viewer) Toggle() error { return v.player.Toggle() }

// OnStateChange registers fn for player state transitions.
func (v *Viewer) OnStateChange(fn func(playback.State)) { v.player.OnStateChange(fn) }

// Stop cancels playback and releases held notes.
func (v *Viewer) Stop() { v.player.Stop() }

// Exporting reports whether an export is in flight.
func (v *Viewer) Exporting() bool { return v.exporter.Busy() }

// Export writes the current score in format f.
func (v *Viewer) Export(ctx context.Context, f formatter.Format) (string, error) {
	score := v.Score()
	if score == nil {
		return "", fmt.Errorf("%w: no score rendered", shared.ErrInvalidArgument)
	}

	path, err := v.exporter.Export(ctx, score, f)
	if err != nil {
		v.logger.Error("export failed", "error", err)
		return "", err
	}
	return path, nil
}
