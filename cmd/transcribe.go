package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/scribe/internal/entitlement"
	"github.com/desertthunder/scribe/internal/formatter"
	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/notation"
	"github.com/desertthunder/scribe/internal/shared"
	"github.com/desertthunder/scribe/internal/tasks"
	"github.com/desertthunder/scribe/internal/ui"
	"github.com/desertthunder/scribe/internal/upload"
	"github.com/urfave/cli/v3"
)

// TranscribeFile uploads a local recording.
func (r *Runner) TranscribeFile(ctx context.Context, cmd *cli.Command) error {
	path := strings.TrimSpace(cmd.StringArg("path"))
	if path == "" {
		return fmt.Errorf("%w: audio file path", shared.ErrMissingArgument)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read audio file: %w", err)
	}
	req := upload.FileUpload{Name: filepath.Base(path), Data: data}

	return r.submit(ctx, cmd, req, func(o *upload.Orchestrator, _ entitlement.Access) (*models.TranscriptionResult, error) {
		return o.SubmitFile(ctx, req, cmd.Bool("accept-terms"))
	})
}

// TranscribeYouTube submits a YouTube link. Pro only.
func (r *Runner) TranscribeYouTube(ctx context.Context, cmd *cli.Command) error {
	url := strings.TrimSpace(cmd.StringArg("url"))

	return r.submit(ctx, cmd, nil, func(o *upload.Orchestrator, access entitlement.Access) (*models.TranscriptionResult, error) {
		return o.SubmitYouTubeURL(ctx, url, access.SubjectID)
	})
}

// submit resolves the session, runs one orchestrated submission and presents the result.
//
// req may be nil when the request is built by the orchestrator itself.
func (r *Runner) submit(ctx context.Context, cmd *cli.Command, req upload.Request, run func(*upload.Orchestrator, entitlement.Access) (*models.TranscriptionResult, error)) error {
	var format formatter.Format
	if name := cmd.String("export"); name != "" {
		f, err := formatter.ParseFormat(name)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		format = f
	}

	backend, err := r.transcriptionBackend()
	if err != nil {
		return err
	}
	_, access := r.currentAccess(ctx)

	o := upload.NewOrchestrator(backend, r.logger)
	o.SetAccess(access)

	r.writePlain("Transcribing...\n")
	result, err := run(o, access)
	if err != nil {
		return r.reportUploadError(err)
	}
	if req == nil {
		req = o.Outcome().Request
	}

	v := r.newViewer(nil)
	if err := v.Apply(result); err != nil {
		r.writePlain("! Part of the result could not be displayed: %v\n", err)
	}
	if view := v.View(); view != "" {
		r.writePlain("\n%s\n", view)
	}

	r.writePlain("✓ Transcription complete\n")

	if !cmd.Bool("no-save") {
		t, err := r.saveResult(access, req, result, v.Score())
		if err != nil {
			r.logger.Error("failed to save transcription", "error", err)
			r.writePlain("! Could not save to history: %v\n", err)
		} else {
			r.writePlain("Saved as #%d (scribe history show %d)\n", t.Sequence(), t.Sequence())
		}
	}

	if format != "" {
		path, err := v.Export(ctx, format)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported to %s\n", path)
	}
	return nil
}

// saveResult records a successful submission in the local history.
func (r *Runner) saveResult(access entitlement.Access, req upload.Request, result *models.TranscriptionResult, score *notation.Score) (*models.Transcription, error) {
	history, err := r.historyStore()
	if err != nil {
		return nil, err
	}

	source := models.SourceFile
	if _, ok := req.(upload.YouTubeUpload); ok {
		source = models.SourceYouTube
	}
	title := ""
	if score != nil {
		title = score.Title
	}

	t := models.NewTranscription(access.SubjectID, source, req.Describe(), title, *result)
	if err := history.Create(t); err != nil {
		return nil, err
	}
	return t, nil
}

// reportUploadError prints the user-facing message, with a subscription prompt for upgrade-worthy failures.
func (r *Runner) reportUploadError(err error) error {
	uerr := upload.Classify(err)
	r.logger.Debug("submission failed", "kind", uerr.Kind, "error", err)

	if uerr.NeedsUpgrade() {
		r.writePlain("%s\n", ui.RenderPaywall(uerr.Message))
		r.writePlain("Run 'scribe plans' to compare plans or 'scribe subscribe' to upgrade.\n")
	}
	return uerr
}

// TranscribeBatch uploads several files with a bounded worker pool.
func (r *Runner) TranscribeBatch(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("%w: at least one audio file", shared.ErrMissingArgument)
	}

	var format formatter.Format
	if name := cmd.String("format"); name != "" {
		f, err := formatter.ParseFormat(name)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		format = f
	}

	backend, err := r.transcriptionBackend()
	if err != nil {
		return err
	}
	_, access := r.currentAccess(ctx)

	var history tasks.HistoryStore
	if store, err := r.historyStore(); err != nil {
		r.logger.Warn("history unavailable, results will not be saved", "error", err)
	} else {
		history = store
	}

	engine := tasks.NewBatchEngine(backend, history, r.logger)

	r.writePlain("Transcribing %d files...\n\n", len(paths))

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.Validate:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.Upload:
				r.writePlain("   %s\n", update.Message)
			case tasks.Complete:
				r.writePlain("✓ %s\n", update.Message)
			default:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	result, err := engine.Transcribe(ctx, progressCh, paths, tasks.BatchOpts{
		AcceptTerms: cmd.Bool("accept-terms"),
		Access:      access,
		NumWorkers:  int(cmd.Int("workers")),
		RateLimit:   cmd.Float("rate"),
		Format:      format,
		OutputDir:   cmd.String("output"),
	})
	close(progressCh)
	<-done

	if result == nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Batch Complete!")
	r.writePlain("Succeeded: %d/%d\n", result.Succeeded, result.Total)
	if result.Skipped > 0 {
		r.writePlain("Skipped: %d\n", result.Skipped)
	}
	if result.OutputDirectory != "" && format != "" {
		r.writePlain("Output: %s\n", result.OutputDirectory)
	}

	var quota bool
	if result.Failed > 0 {
		r.writePlain("\nFailed %d files:\n", result.Failed)
		for _, res := range result.Results {
			if res.Err == nil {
				continue
			}
			r.writePlain("  - %s: %s\n", filepath.Base(res.Path), res.Err.Message)
			quota = quota || res.Err.NeedsUpgrade()
		}
	}
	if quota {
		r.writePlain("\nRun 'scribe subscribe' to upgrade to Pro for unlimited transcriptions.\n")
	}

	if err != nil {
		return err
	}
	if result.Succeeded == 0 {
		return errors.New("no files were transcribed")
	}
	return nil
}
