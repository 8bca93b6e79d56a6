package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/scribe/internal/formatter"
	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/playback"
	"github.com/desertthunder/scribe/internal/shared"
	"github.com/urfave/cli/v3"
)

type historyEntry struct {
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	Source     string    `json:"source"`
	SourceName string    `json:"source_name"`
	Notation   bool      `json:"notation"`
	NoteEvents bool      `json:"note_events"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoryList prints saved transcriptions for the signed-in account.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	history, err := r.historyStore()
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	if source := strings.ToLower(strings.TrimSpace(cmd.String("source"))); source != "" {
		switch models.Source(source) {
		case models.SourceFile, models.SourceYouTube:
			criteria["source"] = models.Source(source)
		default:
			return fmt.Errorf("%w: source must be file or youtube", shared.ErrInvalidArgument)
		}
	}
	if !cmd.Bool("all") {
		_, access := r.currentAccess(ctx)
		criteria["subject_id"] = access.SubjectID
	}

	items, err := history.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		entries := make([]historyEntry, 0, len(items))
		for _, t := range items {
			entries = append(entries, historyEntry{
				Number:     t.Sequence(),
				Title:      t.Title,
				Source:     string(t.Source),
				SourceName: t.SourceName,
				Notation:   t.Result.HasNotation(),
				NoteEvents: t.Result.HasNoteEvents(),
				CreatedAt:  t.CreatedAt(),
			})
		}
		return r.writeJSON(entries, true)
	}

	if len(items) == 0 {
		return r.writePlain("No transcriptions yet. Try 'scribe transcribe file <path> --accept-terms'.\n")
	}

	r.writePlainHeader("Transcription History")
	for _, t := range items {
		playable := ""
		if t.Result.HasNoteEvents() {
			playable = " ▶"
		}
		r.writePlain("#%-4d %-32s %-8s %s%s\n", t.Sequence(), t.DisplayName(), t.Source, t.CreatedAt().Local().Format("2006-01-02 15:04"), playable)
	}
	return nil
}

func (r *Runner) lookup(cmd *cli.Command) (*models.Transcription, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(cmd.StringArg("number")), "#")
	if raw == "" {
		return nil, fmt.Errorf("%w: transcription number", shared.ErrMissingArgument)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("%w: %q is not a transcription number", shared.ErrInvalidArgument, raw)
	}

	history, err := r.historyStore()
	if err != nil {
		return nil, err
	}
	return history.GetBySequence(n)
}

// HistoryShow renders a saved score.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	t, err := r.lookup(cmd)
	if err != nil {
		return err
	}

	v := r.newViewer(nil)
	if err := v.Apply(&t.Result); err != nil {
		r.writePlain("! Part of this transcription could not be displayed: %v\n", err)
	}

	r.writePlainHeader(fmt.Sprintf("#%d %s", t.Sequence(), t.DisplayName()))
	r.writePlain("Source: %s (%s)\n", t.SourceName, t.Source)
	r.writePlain("Created: %s\n\n", t.CreatedAt().Local().Format(time.RFC1123))
	if view := v.View(); view != "" {
		r.writePlain("%s\n", view)
	} else {
		r.writePlain("(no notation)\n")
	}
	if v.Playable() {
		r.writePlain("\n▶ scribe history play %d\n", t.Sequence())
	}
	return nil
}

// HistoryPlay plays a saved transcription's note events, printing each note as it sounds.
//
// Playback stops when the schedule finishes or the command is interrupted.
func (r *Runner) HistoryPlay(ctx context.Context, cmd *cli.Command) error {
	t, err := r.lookup(cmd)
	if err != nil {
		return err
	}
	if !t.Result.HasNoteEvents() {
		return fmt.Errorf("#%d: %w", t.Sequence(), shared.ErrNothingToPlay)
	}

	v := r.newViewer(func(ev playback.VoiceEvent) {
		if ev.On {
			r.writePlain("♪ %s ", playback.NoteName(ev.Key))
		}
	})
	if err := v.Apply(&t.Result); err != nil {
		return err
	}

	finished := make(chan struct{}, 1)
	v.OnStateChange(func(s playback.State) {
		if s == playback.Idle {
			select {
			case finished <- struct{}{}:
			default:
			}
		}
	})

	r.writePlain("Playing #%d %s (ctrl+c to stop)\n", t.Sequence(), t.DisplayName())
	if err := v.Toggle(); err != nil {
		return err
	}

	select {
	case <-finished:
	case <-ctx.Done():
		v.Stop()
	}
	return r.writePlain("\n■ Stopped\n")
}

// HistoryExport writes a saved score to the export directory.
func (r *Runner) HistoryExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	t, err := r.lookup(cmd)
	if err != nil {
		return err
	}

	v := r.newViewer(nil)
	if err := v.Apply(&t.Result); err != nil {
		return err
	}

	path, err := v.Export(ctx, format)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Exported #%d to %s\n", t.Sequence(), path)
}

// HistoryDelete removes a transcription from the history.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	t, err := r.lookup(cmd)
	if err != nil {
		return err
	}

	history, err := r.historyStore()
	if err != nil {
		return err
	}
	if err := history.Delete(t.ID()); err != nil {
		return err
	}

	r.logger.Info("transcription deleted", "id", t.ID(), "number", t.Sequence())
	return r.writePlain("✓ Deleted #%d %s\n", t.Sequence(), t.DisplayName())
}
