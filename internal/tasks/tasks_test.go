package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scribe/internal/entitlement"
	"github.com/desertthunder/scribe/internal/formatter"
	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/services"
	"github.com/desertthunder/scribe/internal/shared"
	th "github.com/desertthunder/scribe/internal/testing"
	"github.com/desertthunder/scribe/internal/upload"
	"go.uber.org/goleak"
)

var wavHeader = append([]byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00"), make([]byte, 32)...)

const titledScore = `<score-partwise><movement-title>%s</movement-title><part-list><score-part id="P1"><part-name>Violin</part-name></score-part></part-list><part id="P1"><measure number="1"><note><pitch><step>A</step><octave>4</octave></pitch><duration>4</duration><type>whole</type></note></measure></part></score-partwise>`

// fakeTranscriber answers per file name; unknown names succeed with an untitled score.
type fakeTranscriber struct {
	mu      sync.Mutex
	names   []string
	errs    map[string]error
	results map[string]*models.TranscriptionResult
	access  entitlement.Access
}

func (f *fakeTranscriber) UploadFile(_ context.Context, file services.AudioFile, access entitlement.Access) (*models.TranscriptionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, file.Name)
	f.access = access

	if err := f.errs[file.Name]; err != nil {
		return nil, err
	}
	if res, ok := f.results[file.Name]; ok {
		return res, nil
	}
	return &models.TranscriptionResult{NotationMarkup: "<score-partwise/>", NoteEvents: "TVRoZA=="}, nil
}

func (f *fakeTranscriber) UploadYouTube(context.Context, string, string, entitlement.Access) (*models.TranscriptionResult, error) {
	return nil, errors.New("not used")
}

func (f *fakeTranscriber) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := append([]string(nil), f.names...)
	sort.Strings(names)
	return names
}

// gatedTranscriber holds slow.wav in flight until quota.wav has been answered with a 429.
type gatedTranscriber struct {
	started chan struct{}
	release chan struct{}
	slowErr chan error
}

func newGatedTranscriber() *gatedTranscriber {
	return &gatedTranscriber{started: make(chan struct{}), release: make(chan struct{}), slowErr: make(chan error, 1)}
}

func (g *gatedTranscriber) UploadFile(ctx context.Context, file services.AudioFile, _ entitlement.Access) (*models.TranscriptionResult, error) {
	switch file.Name {
	case "slow.wav":
		close(g.started)
		select {
		case <-g.release:
			g.slowErr <- nil
			return &models.TranscriptionResult{NotationMarkup: "<score-partwise/>"}, nil
		case <-ctx.Done():
			g.slowErr <- ctx.Err()
			return nil, ctx.Err()
		}
	case "quota.wav":
		<-g.started
		time.AfterFunc(50*time.Millisecond, func() { close(g.release) })
		return nil, shared.ErrQuotaExceeded
	default:
		return &models.TranscriptionResult{}, nil
	}
}

func (g *gatedTranscriber) UploadYouTube(context.Context, string, string, entitlement.Access) (*models.TranscriptionResult, error) {
	return nil, errors.New("not used")
}

type memoryHistory struct {
	mu    sync.Mutex
	saved []*models.Transcription
}

func (m *memoryHistory) Create(t *models.Transcription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.SetSequence(len(m.saved) + 1)
	m.saved = append(m.saved, t)
	return nil
}

func writeFiles(t *testing.T, files map[string][]byte) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(files))
	for name, data := range files {
		path := filepath.Join(dir, name)
		th.MustWriteFile(t, path, data)
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func TestBatchTranscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("uploads valid files and saves history", func(t *testing.T) {
		backend := &fakeTranscriber{}
		history := &memoryHistory{}
		var logs bytes.Buffer
		engine := NewBatchEngine(backend, history, log.New(&logs))
		paths := writeFiles(t, map[string][]byte{"a.wav": wavHeader, "b.wav": wavHeader})
		access := entitlement.Access{Authenticated: true, SubjectID: "auth0|abc"}

		progress := make(chan ProgressUpdate, 32)
		result, err := engine.Transcribe(ctx, progress, paths, BatchOpts{AcceptTerms: true, Access: access, RateLimit: 1000})
		if err != nil {
			t.Fatalf("Transcribe() error = %v", err)
		}

		if result.Total != 2 || result.Succeeded != 2 || result.Failed != 0 || result.Skipped != 0 {
			t.Errorf("unexpected counts %+v", result)
		}
		if got := backend.calls(); strings.Join(got, ",") != "a.wav,b.wav" {
			t.Errorf("uploaded %v", got)
		}
		if backend.access != access {
			t.Errorf("access = %+v, want %+v", backend.access, access)
		}
		if len(history.saved) != 2 {
			t.Fatalf("expected 2 saved transcriptions, got %d", len(history.saved))
		}
		for _, tr := range history.saved {
			if tr.SubjectID != "auth0|abc" || tr.Source != models.SourceFile {
				t.Errorf("unexpected history entry %+v", tr)
			}
		}
		if result.ManifestPath != "" {
			t.Error("no manifest without an export format")
		}
		if n := strings.Count(logs.String(), "transcription complete"); n != 2 {
			t.Errorf("expected 2 orchestrated submissions in the log, got %d:\n%s", n, logs.String())
		}

		close(progress)
		phases := map[Phase]int{}
		for update := range progress {
			phases[update.Phase]++
		}
		if phases[Upload] != 2 || phases[Complete] != 2 || phases[Save] != 2 {
			t.Errorf("unexpected progress %v", phases)
		}
	})

	t.Run("rejects invalid files locally", func(t *testing.T) {
		backend := &fakeTranscriber{}
		engine := NewBatchEngine(backend, nil, nil)
		paths := writeFiles(t, map[string][]byte{"notes.txt": []byte("just some text"), "take.wav": wavHeader})
		paths = append(paths, filepath.Join(t.TempDir(), "missing.wav"))

		result, err := engine.Transcribe(ctx, nil, paths, BatchOpts{AcceptTerms: true, RateLimit: 1000})
		if err != nil {
			t.Fatalf("Transcribe() error = %v", err)
		}
		if result.Succeeded != 1 || result.Failed != 2 {
			t.Errorf("unexpected counts %+v", result)
		}
		if got := backend.calls(); len(got) != 1 || got[0] != "take.wav" {
			t.Errorf("only the valid file should be uploaded, got %v", got)
		}
		for _, res := range result.Results {
			if res.Err != nil && res.Err.Message != upload.MsgSelectAudio {
				t.Errorf("%s: message = %q", res.Path, res.Err.Message)
			}
		}
	})

	t.Run("requires accepted terms", func(t *testing.T) {
		backend := &fakeTranscriber{}
		engine := NewBatchEngine(backend, nil, nil)
		paths := writeFiles(t, map[string][]byte{"a.wav": wavHeader})

		_, err := engine.Transcribe(ctx, nil, paths, BatchOpts{})
		if !errors.Is(err, shared.ErrTermsNotAccepted) {
			t.Fatalf("expected ErrTermsNotAccepted, got %v", err)
		}
		if len(backend.calls()) != 0 {
			t.Error("no uploads expected")
		}
	})

	t.Run("quota stops the batch", func(t *testing.T) {
		backend := &fakeTranscriber{errs: map[string]error{"a.wav": shared.ErrQuotaExceeded}}
		engine := NewBatchEngine(backend, nil, nil)
		paths := writeFiles(t, map[string][]byte{"a.wav": wavHeader, "b.wav": wavHeader, "c.wav": wavHeader})

		result, err := engine.Transcribe(ctx, nil, paths, BatchOpts{AcceptTerms: true, NumWorkers: 1, RateLimit: 1000})
		if err != nil {
			t.Fatalf("Transcribe() error = %v", err)
		}
		if len(backend.calls()) != 1 {
			t.Errorf("expected a single upload, got %v", backend.calls())
		}
		if result.Failed != 1 || result.Skipped != 2 {
			t.Errorf("unexpected counts %+v", result)
		}
		if !result.Results[0].Err.NeedsUpgrade() {
			t.Error("quota failure should ask for an upgrade")
		}
	})

	t.Run("quota lets in-flight uploads finish", func(t *testing.T) {
		backend := newGatedTranscriber()
		engine := NewBatchEngine(backend, nil, nil)
		paths := writeFiles(t, map[string][]byte{"quota.wav": wavHeader, "slow.wav": wavHeader, "tail.wav": wavHeader})

		result, err := engine.Transcribe(ctx, nil, paths, BatchOpts{AcceptTerms: true, NumWorkers: 2, RateLimit: 1000})
		if err != nil {
			t.Fatalf("Transcribe() error = %v", err)
		}
		if err := <-backend.slowErr; err != nil {
			t.Fatalf("in-flight upload was aborted: %v", err)
		}
		if result.Succeeded != 1 || result.Failed != 1 || result.Skipped != 1 {
			t.Errorf("unexpected counts %+v", result)
		}
		for _, res := range result.Results {
			switch filepath.Base(res.Path) {
			case "slow.wav":
				if res.Err != nil {
					t.Errorf("slow.wav failed: %v", res.Err)
				}
			case "quota.wav":
				if res.Err == nil || res.Err.Kind != upload.KindQuotaExceeded {
					t.Errorf("quota.wav error = %v", res.Err)
				}
			default:
				t.Errorf("unexpected result for %s", res.Path)
			}
		}
	})

	t.Run("exports scores with a manifest", func(t *testing.T) {
		backend := &fakeTranscriber{results: map[string]*models.TranscriptionResult{
			"reel.wav": {NotationMarkup: strings.Replace(titledScore, "%s", "The Reel", 1)},
			"jig.wav":  {NoteEvents: "TVRoZA=="},
		}}
		engine := NewBatchEngine(backend, nil, nil)
		paths := writeFiles(t, map[string][]byte{"reel.wav": wavHeader, "jig.wav": wavHeader, "air.wav": wavHeader})
		out := filepath.Join(t.TempDir(), "out")

		result, err := engine.Transcribe(ctx, nil, paths, BatchOpts{AcceptTerms: true, RateLimit: 1000, Format: formatter.FormatMarkdown, OutputDir: out})
		if err != nil {
			t.Fatalf("Transcribe() error = %v", err)
		}

		th.AssertFileExists(t, filepath.Join(out, "The Reel.md"))
		th.AssertFileExists(t, filepath.Join(out, "air.md"))
		if result.Succeeded != 2 || result.Failed != 1 {
			t.Errorf("unexpected counts %+v", result)
		}

		var m manifest
		if err := json.Unmarshal([]byte(th.MustReadFile(t, result.ManifestPath)), &m); err != nil {
			t.Fatalf("invalid manifest: %v", err)
		}
		if m.Total != 3 || len(m.Entries) != 3 {
			t.Errorf("unexpected manifest %+v", m)
		}
	})

	t.Run("no files", func(t *testing.T) {
		engine := NewBatchEngine(&fakeTranscriber{}, nil, nil)
		if _, err := engine.Transcribe(ctx, nil, nil, BatchOpts{AcceptTerms: true}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		backend := &fakeTranscriber{}
		engine := NewBatchEngine(backend, nil, nil)
		paths := writeFiles(t, map[string][]byte{"a.wav": wavHeader, "b.wav": wavHeader})

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		result, err := engine.Transcribe(cctx, nil, paths, BatchOpts{AcceptTerms: true, RateLimit: 1000})
		if err != nil {
			t.Fatalf("Transcribe() error = %v", err)
		}
		if result.Skipped != 2 || len(backend.calls()) != 0 {
			t.Errorf("expected every file skipped, got %+v", result)
		}
	})
}

func TestPhaseString(t *testing.T) {
	for phase, want := range map[Phase]string{Validate: "validate", Upload: "upload", Save: "save", Export: "export", Complete: "complete", Phase(99): ""} {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
