package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scribe/internal/entitlement"
	"github.com/desertthunder/scribe/internal/formatter"
	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/playback"
	"github.com/desertthunder/scribe/internal/repositories"
	"github.com/desertthunder/scribe/internal/services"
	"github.com/desertthunder/scribe/internal/session"
	"github.com/desertthunder/scribe/internal/shared"
	"github.com/desertthunder/scribe/internal/viewer"
	"github.com/urfave/cli/v3"
)

// credentialProvider names the identity provider row in the credentials table.
const credentialProvider = "auth0"

// Backend is the transcription service surface the CLI drives.
type Backend interface {
	services.Transcriber
	services.CheckoutCreator
}

// HistoryStore is the local transcription history.
type HistoryStore interface {
	Create(t *models.Transcription) error
	GetBySequence(sequence int) (*models.Transcription, error)
	List(criteria map[string]any) ([]*models.Transcription, error)
	Delete(id string) error
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database, session provider and backend client are created on first use so that commands like
// setup and about work without a complete configuration.
type Runner struct {
	config     *shared.Config
	configPath string
	configured bool
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	openURL    func(string) error
	clock      playback.Clock

	db       *sql.DB
	provider session.Provider
	backend  Backend
	history  HistoryStore
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Provider, Backend and History replace the configured implementations. Used by tests.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	OpenURL    func(string) error
	Clock      playback.Clock
	Provider   session.Provider
	Backend    Backend
	History    HistoryStore
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	configured := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}
	if opts.Clock == nil {
		opts.Clock = playback.SystemClock
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		configured: configured,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		openURL:    opts.OpenURL,
		clock:      opts.Clock,
		provider:   opts.Provider,
		backend:    opts.Backend,
		history:    opts.History,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, transcribeCommand, historyCommand, plansCommand, subscribeCommand,
		portalCommand, aboutCommand, termsCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by the runner and every dependency it creates afterwards.
func (r *Runner) SetLogger(l *log.Logger) { r.logger = l }

// Before loads the configuration named by --config, applies the log level flags and reports missing settings.
//
// Missing required settings are logged rather than fatal so setup, about and terms work before configuration
// exists. Commands that reach the backend or identity provider fail with [shared.ErrMissingConfig].
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	switch {
	case cmd.Bool("verbose"):
		shared.SetLogLevel(r.logger, log.DebugLevel)
	case cmd.Bool("quiet"):
		shared.SetLogLevel(r.logger, log.WarnLevel)
	}

	if !r.configured {
		if err := r.loadConfig(cmd.String("config")); err != nil {
			return ctx, err
		}
	}

	warnings, err := r.config.Validate()
	for _, w := range warnings {
		r.logger.Warn(w)
	}
	if err != nil {
		r.logger.Warn("configuration incomplete, run 'scribe setup check'", "error", err)
	}
	return ctx, nil
}

func (r *Runner) loadConfig(path string) error {
	r.configPath = path
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		r.config.ApplyEnv(os.LookupEnv)
		r.configured = true
		return nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return err
	}
	r.config = config
	r.configured = true
	return nil
}

// After releases the database.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

// Close closes the database if it was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	r.db = db
	return db, nil
}

func (r *Runner) sessionProvider() (session.Provider, error) {
	if r.provider != nil {
		return r.provider, nil
	}

	db, err := r.database()
	if err != nil {
		return nil, err
	}

	auth := r.config.Auth
	provider, err := session.NewOIDCProvider(session.OIDCConfig{
		Domain:       auth.Domain,
		ClientID:     auth.ClientID,
		Audience:     auth.Audience,
		ClaimKey:     auth.Claim,
		RedirectURL:  auth.CallbackURL(),
		CallbackAddr: auth.CallbackAddr(),
	}, repositories.NewCredentialRepository(db, credentialProvider), r.logger)
	if err != nil {
		return nil, err
	}
	provider.SetBrowser(r.openURL)

	r.provider = provider
	return provider, nil
}

func (r *Runner) transcriptionBackend() (Backend, error) {
	if r.backend != nil {
		return r.backend, nil
	}
	if r.config.Backend.BaseURL == "" {
		return nil, fmt.Errorf("%w: backend.base_url (%s)", shared.ErrMissingConfig, shared.EnvBackendBase)
	}

	svc := services.NewTranscriptionService(r.config.Backend, r.httpClient, shared.WithLogger(r.logger, "service", "backend"))

	provider, err := r.sessionProvider()
	if err != nil {
		r.logger.Warn("requests will be sent without a bearer token", "error", err)
	} else if tp, ok := provider.(interface{ AccessToken(context.Context) string }); ok {
		svc.SetTokenFunc(tp.AccessToken)
	}

	r.backend = svc
	return svc, nil
}

func (r *Runner) historyStore() (HistoryStore, error) {
	if r.history != nil {
		return r.history, nil
	}
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	r.history = repositories.NewTranscriptionRepository(db)
	return r.history, nil
}

// currentAccess loads the session and resolves its entitlement. A provider that cannot be created yields an
// anonymous session so read-only commands keep working.
func (r *Runner) currentAccess(ctx context.Context) (session.Session, entitlement.Access) {
	provider, err := r.sessionProvider()
	if err != nil {
		r.logger.Debug("session provider unavailable", "error", err)
		return session.Anonymous, entitlement.Access{}
	}

	s, err := provider.Session(ctx)
	if err != nil {
		r.logger.Warn("failed to load session", "error", err)
	}
	return s, entitlement.Resolve(s)
}

// newViewer builds a viewer whose player sounds notes through listener (which may be nil).
func (r *Runner) newViewer(listener func(playback.VoiceEvent)) *viewer.Viewer {
	leadIn := r.config.Playback.LeadIn.Duration
	if leadIn == 0 {
		leadIn = -1
	}
	player := playback.NewPlayer(r.clock, playback.NewVoices(listener), leadIn, r.logger)
	return viewer.New(player, formatter.NewExporter(r.config.Export.Directory, r.logger), r.logger)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
