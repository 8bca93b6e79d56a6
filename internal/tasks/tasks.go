package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scribe/internal/entitlement"
	"github.com/desertthunder/scribe/internal/formatter"
	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/notation"
	"github.com/desertthunder/scribe/internal/services"
	"github.com/desertthunder/scribe/internal/shared"
	"github.com/desertthunder/scribe/internal/upload"
	"golang.org/x/time/rate"
)

// HistoryStore persists successful transcriptions.
type HistoryStore interface {
	Create(t *models.Transcription) error
}

// BatchOpts contains configuration for batch transcriptions.
type BatchOpts struct {
	AcceptTerms bool               // Terms of service accepted for every file in the batch
	Access      entitlement.Access // Entitlement sent with each upload
	NumWorkers  int                // Concurrent uploads (default: 2, max: 4)
	RateLimit   float64            // Uploads started per second (default: 1)
	Format      formatter.Format   // Export format; empty skips exporting
	OutputDir   string             // Export directory (default: scribe_batch_{epoch})
}

// FileResult is the outcome for a single file.
type FileResult struct {
	Path          string
	Transcription *models.Transcription // nil on failure
	Files         []string              // exported documents
	Err           *upload.Error
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Total           int
	Succeeded       int
	Failed          int
	Skipped         int // never attempted because the batch was cancelled
	OutputDirectory string
	ManifestPath    string
	Results         []FileResult
}

type batchJob struct {
	step int
	path string
	file upload.FileUpload
}

// BatchEngine transcribes many local files against one backend.
type BatchEngine struct {
	backend services.Transcriber
	history HistoryStore
	logger  *log.Logger
}

// NewBatchEngine creates a [BatchEngine]. history and logger may be nil.
func NewBatchEngine(backend services.Transcriber, history HistoryStore, logger *log.Logger) *BatchEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &BatchEngine{backend: backend, history: history, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *BatchEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Transcribe uploads each path with a bounded worker pool.
//
// Files that fail to read or validate are reported without an upload. Once the backend reports an exhausted quota
// no further uploads are started.
func (e *BatchEngine) Transcribe(ctx context.Context, prog chan<- ProgressUpdate, paths []string, opts BatchOpts) (*BatchResult, error) {
	if e.backend == nil {
		return nil, fmt.Errorf("%w: transcription service not initialized", shared.ErrServiceUnavailable)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files to transcribe", shared.ErrMissingArgument)
	}
	if !opts.AcceptTerms {
		return nil, &upload.Error{Kind: upload.KindValidation, Message: upload.MsgAcceptTerms, Err: shared.ErrTermsNotAccepted}
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 2
	}
	if opts.NumWorkers > 4 {
		opts.NumWorkers = 4
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1
	}
	if opts.Format != "" {
		if opts.OutputDir == "" {
			opts.OutputDir = fmt.Sprintf("scribe_batch_%d", time.Now().Unix())
		}
		if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// dispatch only gates new work. Uploads already issued run on ctx to completion.
	dispatch, stop := context.WithCancel(ctx)
	defer stop()

	total := len(paths)
	result := &BatchResult{
		Total:           total,
		OutputDirectory: opts.OutputDir,
		Results:         make([]FileResult, 0, total),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan batchJob, total)
	results := make(chan FileResult, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.worker(ctx, dispatch, stop, &wg, prog, total, jobs, results, opts)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)

		for i, path := range paths {
			if dispatch.Err() != nil {
				return
			}

			file, uerr := readAudio(path)
			if uerr != nil {
				e.logger.Debug("file rejected", "path", path, "error", uerr)
				results <- FileResult{Path: path, Err: uerr}
				continue
			}

			if err := limiter.Wait(dispatch); err != nil {
				return
			}
			jobs <- batchJob{step: i + 1, path: path, file: file}
			e.sendProgress(prog, queuedUpdate(i+1, total, path))
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Err == nil {
			result.Succeeded++
			e.sendProgress(prog, completedUpdate(completed, total, res))
		} else {
			result.Failed++
			e.sendProgress(prog, failedUpdate(completed, total, res))
		}
	}
	result.Skipped = total - len(result.Results)

	e.logger.Info("batch finished", "total", total, "succeeded", result.Succeeded, "failed", result.Failed, "skipped", result.Skipped)

	if opts.Format != "" {
		manifestPath := filepath.Join(opts.OutputDir, "batch_manifest.json")
		if err := writeManifest(result, manifestPath); err != nil {
			return result, fmt.Errorf("batch completed but failed to write manifest: %w", err)
		}
		result.ManifestPath = manifestPath
	}
	return result, nil
}

// worker drains jobs. Once dispatch is done, queued jobs are dropped and count as skipped.
func (e *BatchEngine) worker(
	ctx, dispatch context.Context,
	stop context.CancelFunc,
	wg *sync.WaitGroup,
	prog chan<- ProgressUpdate,
	total int,
	jobs <-chan batchJob,
	results chan<- FileResult,
	opts BatchOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if dispatch.Err() != nil {
			continue
		}

		res := e.transcribeOne(ctx, prog, total, job, opts)
		if res.Err != nil && res.Err.Kind == upload.KindQuotaExceeded {
			e.logger.Warn("quota exhausted, no further uploads will start")
			stop()
		}
		results <- res
	}
}

func (e *BatchEngine) transcribeOne(ctx context.Context, prog chan<- ProgressUpdate, total int, job batchJob, opts BatchOpts) FileResult {
	res := FileResult{Path: job.path}
	e.sendProgress(prog, uploadingUpdate(job.step, total, job.path))

	o := upload.NewOrchestrator(e.backend, e.logger)
	o.SetAccess(opts.Access)

	out, err := o.SubmitFile(ctx, job.file, opts.AcceptTerms)
	if err != nil {
		res.Err = upload.Classify(err)
		return res
	}

	var score *notation.Score
	if out.HasNotation() {
		if score, err = notation.Parse(out.NotationMarkup); err != nil {
			e.logger.Warn("notation could not be parsed", "path", job.path, "error", err)
		}
	}

	title := ""
	if score != nil {
		title = score.Title
	}
	res.Transcription = models.NewTranscription(opts.Access.SubjectID, models.SourceFile, job.file.Name, title, *out)

	if e.history != nil {
		if err := e.history.Create(res.Transcription); err != nil {
			e.logger.Error("failed to save transcription", "path", job.path, "error", err)
		} else {
			e.sendProgress(prog, savedUpdate(job.step, total, &res))
		}
	}

	if opts.Format == "" {
		return res
	}

	if score == nil {
		res.Err = &upload.Error{Kind: upload.KindRender, Message: "No notation to export", Err: shared.ErrMalformedNotation}
		return res
	}

	path, err := exportScore(score, job.file.Name, opts)
	if err != nil {
		res.Err = &upload.Error{Kind: upload.KindRender, Message: "Export failed", Err: err}
		return res
	}
	res.Files = append(res.Files, path)
	return res
}

// exportScore writes score named after its title, or the audio file's name when untitled.
func exportScore(score *notation.Score, audioName string, opts BatchOpts) (string, error) {
	name := score.Title
	if name == "" {
		name = audioName
	}

	data, err := formatter.Render(score, opts.Format)
	if err != nil {
		return "", err
	}

	path := filepath.Join(opts.OutputDir, strings.TrimSuffix(notation.ExportFilename(name), ".pdf")+opts.Format.Ext())
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

func readAudio(path string) (upload.FileUpload, *upload.Error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return upload.FileUpload{}, &upload.Error{Kind: upload.KindValidation, Message: upload.MsgSelectAudio, Err: err}
	}
	return upload.FileUpload{Name: filepath.Base(path), Data: data}, nil
}

type manifestEntry struct {
	Path     string   `json:"path"`
	Sequence int      `json:"sequence,omitempty"`
	Title    string   `json:"title,omitempty"`
	Files    []string `json:"files,omitempty"`
	Error    string   `json:"error,omitempty"`
}

type manifest struct {
	CreatedAt time.Time       `json:"created_at"`
	Total     int             `json:"total"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Skipped   int             `json:"skipped"`
	Entries   []manifestEntry `json:"entries"`
}

func writeManifest(result *BatchResult, path string) error {
	m := manifest{
		CreatedAt: time.Now().UTC(),
		Total:     result.Total,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Skipped:   result.Skipped,
		Entries:   make([]manifestEntry, 0, len(result.Results)),
	}
	for _, res := range result.Results {
		entry := manifestEntry{Path: res.Path, Files: res.Files}
		if res.Transcription != nil {
			entry.Sequence = res.Transcription.Sequence()
			entry.Title = res.Transcription.Title
		}
		if res.Err != nil {
			entry.Error = res.Err.Error()
		}
		m.Entries = append(m.Entries, entry)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
