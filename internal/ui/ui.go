package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/scribe/internal/entitlement"
	"github.com/desertthunder/scribe/internal/formatter"
	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/playback"
	"github.com/desertthunder/scribe/internal/services"
	"github.com/desertthunder/scribe/internal/session"
	"github.com/desertthunder/scribe/internal/shared"
	"github.com/desertthunder/scribe/internal/upload"
	"github.com/desertthunder/scribe/internal/viewer"
)

// History stores and lists past transcriptions.
type History interface {
	Create(t *models.Transcription) error
	List(criteria map[string]any) ([]*models.Transcription, error)
}

// Deps are the collaborators the shell drives. History, Checkout and OpenURL may be nil.
type Deps struct {
	Provider     session.Provider
	Orchestrator *upload.Orchestrator
	Viewer       *viewer.Viewer
	Checkout     services.CheckoutCreator
	History      History
	PortalURL    string
	ExportFormat formatter.Format
	OpenURL      func(string) error
	Logger       *log.Logger
}

type focus int

const (
	focusNone focus = iota
	focusFile
	focusYouTube
)

// Model represents the TUI application state.
type Model struct {
	ctx  context.Context
	deps Deps

	page        Page
	sess        session.Session
	access      entitlement.Access
	terms       bool
	submitting  bool
	outcome     upload.Outcome
	focus       focus
	fileInput   textinput.Model
	urlInput    textinput.Model
	spinner     spinner.Model
	paywall     string
	accountOpen bool
	status      string
	statusErr   bool
	banner      string
	checkout    bool
	historyList list.Model
	width       int
	height      int
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model opened on page.
func NewModel(ctx context.Context, deps Deps, page Page) *Model {
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}
	if deps.ExportFormat == "" {
		deps.ExportFormat = formatter.FormatPDF
	}
	if deps.OpenURL == nil {
		deps.OpenURL = shared.OpenBrowser
	}

	fileInput := textinput.New()
	fileInput.Placeholder = "path/to/recording.wav"
	fileInput.Prompt = "♪ "

	urlInput := textinput.New()
	urlInput.Placeholder = "https://www.youtube.com/watch?v=..."
	urlInput.Prompt = "▶ "

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	historyList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	historyList.Title = "Transcription History"

	return &Model{
		ctx:         ctx,
		deps:        deps,
		page:        page,
		sess:        session.Loading,
		fileInput:   fileInput,
		urlInput:    urlInput,
		spinner:     sp,
		historyList: historyList,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init loads the session and starts listening for upload outcomes.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadSession(), m.waitForOutcome(), m.spinner.Tick}
	if m.page == HistoryPage {
		cmds = append(cmds, m.loadHistory())
	}
	return tea.Batch(cmds...)
}

// Pending reports whether a submission is in flight.
func (m *Model) Pending() bool {
	return m.submitting || m.outcome.Phase == upload.Pending
}

// Controls is the current control truth table.
func (m *Model) Controls() ControlSet {
	v := m.deps.Viewer
	return Controls(m.sess, m.access, m.Pending()).
		WithTerms(m.terms).
		WithResult(v.Score() != nil, v.Playable(), v.Exporting())
}

// Page returns the current page.
func (m *Model) Page() Page { return m.page }

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.deps.Viewer.Resize(max(msg.Width-4, 20))
		m.historyList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSessionLoaded:
		data := msg.data.(sessionLoaded)
		if data.err != nil {
			m.deps.Logger.Error("failed to load session", "error", data.err)
		}
		m.setSession(data.session)
		return m, nil

	case MsgAuthDone:
		if err, _ := msg.data.(error); err != nil {
			m.setStatus(fmt.Sprintf("Sign-in failed: %v", err), true)
		}
		return m, m.loadSession()

	case MsgOutcome:
		m.outcome = msg.data.(upload.Outcome)
		return m, m.waitForOutcome()

	case MsgSubmitDone:
		m.submitting = false
		m.handleSubmitDone(msg.data.(submitDone))
		return m, nil

	case MsgExportDone:
		data := msg.data.(exportDone)
		if data.err != nil {
			m.setStatus(fmt.Sprintf("Export failed: %v", data.err), true)
		} else {
			m.setStatus("Exported to "+data.path, false)
		}
		return m, nil

	case MsgCheckoutDone:
		data := msg.data.(checkoutDone)
		if data.err != nil {
			m.deps.Logger.Error("checkout failed", "error", data.err)
			m.banner = SubscriptionFailed
			return m, nil
		}
		m.checkout = true
		m.banner = ""
		m.setStatus("Complete checkout in your browser, then press r to refresh.", false)
		return m, nil

	case MsgHistoryLoaded:
		data := msg.data.(historyLoaded)
		if data.err != nil {
			m.setStatus(fmt.Sprintf("Could not load history: %v", data.err), true)
			return m, nil
		}
		cmd := m.historyList.SetItems(historyItems(data.items))
		return m, cmd

	case MsgPlaybackTick:
		if m.deps.Viewer.PlayerState() != playback.Idle {
			return m, playbackTick()
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) setSession(s session.Session) {
	wasPro := m.access.Pro
	m.sess = s
	m.access = entitlement.Resolve(s)
	m.deps.Orchestrator.SetAccess(m.access)

	if m.checkout && m.access.Pro && !wasPro {
		m.checkout = false
		m.banner = SubscriptionSucceeded
	}
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m *Model) handleSubmitDone(d submitDone) {
	if d.err != nil {
		uerr := upload.Classify(d.err)
		if uerr.NeedsUpgrade() {
			m.paywall = uerr.Message
			m.setStatus("", false)
			return
		}
		m.setStatus(uerr.Message, true)
		return
	}

	m.setStatus("Transcription complete", false)
	if err := m.deps.Viewer.Apply(d.result); err != nil {
		m.setStatus("Transcription complete, but part of the result could not be displayed", true)
	}

	if m.deps.History == nil || d.result == nil {
		return
	}

	source := models.SourceFile
	if _, ok := d.request.(upload.YouTubeUpload); ok {
		source = models.SourceYouTube
	}
	title := ""
	if score := m.deps.Viewer.Score(); score != nil {
		title = score.Title
	}
	t := models.NewTranscription(m.access.SubjectID, source, d.request.Describe(), title, *d.result)
	if err := m.deps.History.Create(t); err != nil {
		m.deps.Logger.Error("failed to save transcription", "error", err)
	}
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.deps.Viewer.Stop()
		return m, tea.Quit
	}

	if m.paywall != "" {
		switch {
		case key.Matches(msg, m.keys.enter):
			m.paywall = ""
			return m.navigate(SubscriptionsPage)
		case key.Matches(msg, m.keys.back):
			m.paywall = ""
		}
		return m, nil
	}

	if m.focus != focusNone {
		return m.handleInputKeys(msg)
	}

	if m.accountOpen {
		switch {
		case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.account):
			m.accountOpen = false
			return m, nil
		case key.Matches(msg, m.keys.subscriptions):
			m.accountOpen = false
			return m.navigate(SubscriptionsPage)
		}
	}

	if m.page == HistoryPage && m.historyList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.historyList, cmd = m.historyList.Update(msg)
		return m, cmd
	}

	controls := m.Controls()

	switch {
	case key.Matches(msg, m.keys.quit):
		m.deps.Viewer.Stop()
		return m, tea.Quit
	case key.Matches(msg, m.keys.home):
		return m.navigate(HomePage)
	case key.Matches(msg, m.keys.about):
		return m.navigate(AboutPage)
	case key.Matches(msg, m.keys.terms):
		return m.navigate(TermsPage)
	case key.Matches(msg, m.keys.subscriptions):
		return m.navigate(SubscriptionsPage)
	case key.Matches(msg, m.keys.history):
		return m.navigate(HistoryPage)
	case key.Matches(msg, m.keys.refresh):
		return m, m.loadSession()
	case key.Matches(msg, m.keys.account):
		if controls.Enabled(AccountPanel) {
			m.accountOpen = true
		}
		return m, nil
	case key.Matches(msg, m.keys.login):
		return m, m.toggleLogin(controls)
	case key.Matches(msg, m.keys.manage):
		if controls.Enabled(ManageSubscription) {
			m.openPortal()
		}
		return m, nil
	case key.Matches(msg, m.keys.play):
		return m, m.togglePlayback(controls)
	case key.Matches(msg, m.keys.export):
		return m, m.export(controls)
	}

	switch m.page {
	case HomePage:
		return m.handleHomeKeys(msg, controls)
	case SubscriptionsPage:
		if key.Matches(msg, m.keys.enter) {
			return m, m.subscribe(controls)
		}
	case HistoryPage:
		return m.handleHistoryKeys(msg)
	}
	return m, nil
}

func (m *Model) handleHomeKeys(msg tea.KeyMsg, controls ControlSet) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.accept):
		if controls.Enabled(TermsCheckbox) {
			m.terms = !m.terms
		}
	case key.Matches(msg, m.keys.file):
		if !controls.Enabled(FileUpload) {
			if !m.terms {
				m.setStatus(upload.MsgAcceptTerms, true)
			}
			return m, nil
		}
		m.focus = focusFile
		return m, m.fileInput.Focus()
	case key.Matches(msg, m.keys.youtube):
		if !controls.Enabled(YouTubeInput) {
			if err := upload.ValidateYouTube("-", m.access.SubjectID, m.access); err != nil {
				if uerr := upload.Classify(err); uerr.NeedsUpgrade() {
					m.paywall = uerr.Message
				} else {
					m.setStatus(uerr.Message, true)
				}
			}
			return m, nil
		}
		m.focus = focusYouTube
		return m, m.urlInput.Focus()
	}
	return m, nil
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.blur()
		return m, nil
	case key.Matches(msg, m.keys.enter):
		var cmd tea.Cmd
		if m.focus == focusFile {
			cmd = m.submitFile(strings.TrimSpace(m.fileInput.Value()))
		} else {
			cmd = m.submitYouTube(m.urlInput.Value())
		}
		m.blur()
		return m, cmd
	}

	var cmd tea.Cmd
	if m.focus == focusFile {
		m.fileInput, cmd = m.fileInput.Update(msg)
	} else {
		m.urlInput, cmd = m.urlInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleHistoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		return m.navigate(HomePage)
	case key.Matches(msg, m.keys.enter):
		item, ok := m.historyList.SelectedItem().(historyItem)
		if !ok {
			return m, nil
		}
		if err := m.deps.Viewer.Apply(&item.transcription.Result); err != nil {
			m.setStatus("Part of this transcription could not be displayed", true)
		} else {
			m.setStatus(fmt.Sprintf("Loaded #%d", item.transcription.Sequence()), false)
		}
		return m.navigate(HomePage)
	}

	var cmd tea.Cmd
	m.historyList, cmd = m.historyList.Update(msg)
	return m, cmd
}

func (m *Model) blur() {
	m.focus = focusNone
	m.fileInput.Blur()
	m.urlInput.Blur()
}

func (m *Model) navigate(p Page) (tea.Model, tea.Cmd) {
	m.page = p
	m.accountOpen = false
	if p == HistoryPage {
		return m, m.loadHistory()
	}
	return m, nil
}

func (m *Model) toggleLogin(controls ControlSet) tea.Cmd {
	ctx, provider := m.ctx, m.deps.Provider
	switch {
	case controls.Enabled(Login):
		m.setSession(session.Loading)
		return func() tea.Msg { return authDoneMsg(provider.Login(ctx)) }
	case controls.Enabled(Logout):
		return func() tea.Msg { return authDoneMsg(provider.Logout(ctx)) }
	}
	return nil
}

func (m *Model) openPortal() {
	if m.deps.PortalURL == "" {
		m.deps.Logger.Error("customer portal not defined")
		m.setStatus("The billing portal is not configured.", true)
		return
	}
	if err := m.deps.OpenURL(m.deps.PortalURL); err != nil {
		m.deps.Logger.Error("failed to open billing portal", "error", err)
		m.setStatus("Could not open the billing portal.", true)
		return
	}
	m.accountOpen = false
}

func (m *Model) subscribe(controls ControlSet) tea.Cmd {
	if !m.access.Authenticated {
		return m.toggleLogin(controls)
	}
	if !controls.Enabled(Subscribe) || m.deps.Checkout == nil {
		return nil
	}

	ctx, checkout, open, subject := m.ctx, m.deps.Checkout, m.deps.OpenURL, m.access.SubjectID
	return func() tea.Msg {
		url, err := checkout.CreateCheckoutSession(ctx, subject)
		if err == nil {
			err = open(url)
		}
		return checkoutDoneMsg(url, err)
	}
}

func (m *Model) togglePlayback(controls ControlSet) tea.Cmd {
	if !controls.Enabled(Play) {
		return nil
	}
	if err := m.deps.Viewer.Toggle(); err != nil {
		m.setStatus(err.Error(), true)
		return nil
	}
	return playbackTick()
}

func (m *Model) export(controls ControlSet) tea.Cmd {
	if !controls.Enabled(Export) {
		return nil
	}
	ctx, v, format := m.ctx, m.deps.Viewer, m.deps.ExportFormat
	return func() tea.Msg {
		path, err := v.Export(ctx, format)
		return exportDoneMsg(path, err)
	}
}

func (m *Model) submitFile(path string) tea.Cmd {
	if path == "" {
		m.setStatus(upload.MsgSelectAudio, true)
		return nil
	}

	m.submitting = true
	m.setStatus("", false)
	ctx, o, terms := m.ctx, m.deps.Orchestrator, m.terms
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		req := upload.FileUpload{Name: filepath.Base(path), Data: data}
		if err != nil {
			return submitDoneMsg(req, nil, &upload.Error{Kind: upload.KindValidation, Message: upload.MsgSelectAudio, Err: err})
		}
		result, err := o.SubmitFile(ctx, req, terms)
		return submitDoneMsg(req, result, err)
	}
}

func (m *Model) submitYouTube(url string) tea.Cmd {
	m.submitting = true
	m.setStatus("", false)
	ctx, o, subject := m.ctx, m.deps.Orchestrator, m.access.SubjectID
	return func() tea.Msg {
		req := upload.YouTubeUpload{URL: strings.TrimSpace(url), RequesterID: subject}
		result, err := o.SubmitYouTubeURL(ctx, url, subject)
		return submitDoneMsg(req, result, err)
	}
}

func (m *Model) loadSession() tea.Cmd {
	ctx, provider := m.ctx, m.deps.Provider
	return func() tea.Msg {
		s, err := provider.Session(ctx)
		return sessionLoadedMsg(s, err)
	}
}

func (m *Model) loadHistory() tea.Cmd {
	history, subject := m.deps.History, m.access.SubjectID
	if history == nil {
		return nil
	}
	return func() tea.Msg {
		criteria := map[string]any{}
		if subject != "" {
			criteria["subject_id"] = subject
		}
		items, err := history.List(criteria)
		return historyLoadedMsg(items, err)
	}
}

// waitForOutcome blocks on the orchestrator's update channel; it is re-issued after every outcome.
func (m *Model) waitForOutcome() tea.Cmd {
	ctx, updates := m.ctx, m.deps.Orchestrator.Updates()
	return func() tea.Msg {
		select {
		case o := <-updates:
			return outcomeMsg(o)
		case <-ctx.Done():
			return nil
		}
	}
}

func playbackTick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg { return playbackTickMsg() })
}

// View renders the UI based on the current page.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader() + "\n\n")

	switch {
	case m.paywall != "":
		b.WriteString(RenderPaywall(m.paywall))
	case m.accountOpen:
		b.WriteString(RenderAccount(m.sess, m.access))
	default:
		b.WriteString(m.renderPage())
	}

	if m.status != "" {
		style := styles.ok
		if m.statusErr {
			style = styles.err
		}
		b.WriteString("\n\n" + style.Render(m.status))
	}

	b.WriteString("\n\n" + m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) renderHeader() string {
	nav := make([]string, 0, 5)
	for _, p := range []Page{HomePage, AboutPage, TermsPage, SubscriptionsPage, HistoryPage} {
		name := p.String()
		if p == m.page {
			nav = append(nav, styles.ok.Render(name))
		} else {
			nav = append(nav, styles.muted.Render(name))
		}
	}

	controls := m.Controls()
	var account string
	switch {
	case m.sess.IsLoading:
		account = m.spinner.View() + " signing in"
	case controls.Visible(Logout):
		account = m.sess.Identity.DisplayName + " " + styles.chip.Render(m.access.Plan())
	case controls.Visible(Login):
		account = styles.help.Render("l: log in")
	}

	return styles.title.Render("🎻 String Scribe") + "  " + strings.Join(nav, " · ") + "   " + account
}

func (m *Model) renderPage() string {
	switch m.page {
	case HomePage:
		return m.renderHome()
	case AboutPage:
		return AboutText
	case TermsPage:
		return TermsText
	case SubscriptionsPage:
		view := RenderSubscriptions(m.access, m.banner)
		if m.Controls().Enabled(Subscribe) {
			view += styles.help.Render("enter: Go Pro")
		} else if !m.access.Authenticated {
			view += styles.help.Render("enter: log in")
		}
		return view
	case HistoryPage:
		if m.deps.History == nil {
			return styles.muted.Render("History is not available.")
		}
		return m.historyList.View()
	default:
		return NotFoundText + "\n\n" + styles.help.Render("h: Go Home")
	}
}

func (m *Model) renderHome() string {
	controls := m.Controls()
	var b strings.Builder

	b.WriteString(styles.title.Render("Upload Audio") + "\n")
	b.WriteString("Upload an audio file to generate violin sheet music\n\n")

	check := "[ ]"
	if m.terms {
		check = "[x]"
	}
	b.WriteString(check + " I agree to the Terms of Service " + styles.help.Render("(x)") + "\n")
	b.WriteString(m.renderInput(m.fileInput, controls.Enabled(FileUpload), m.focus == focusFile) + "\n\n")

	ytTitle := "YouTube URL"
	ytCopy := "Paste a YouTube URL to transcribe the audio directly"
	if !m.access.Pro {
		ytTitle += " (Premium Only)"
		ytCopy = "Upgrade to premium to transcribe YouTube videos"
	}
	b.WriteString(styles.ok.Render(ytTitle) + "\n" + styles.muted.Render(ytCopy) + "\n")
	b.WriteString(m.renderInput(m.urlInput, controls.Enabled(YouTubeInput), m.focus == focusYouTube) + "\n")

	if m.Pending() {
		what := "your audio"
		if m.outcome.Request != nil {
			what = m.outcome.Request.Describe()
		}
		b.WriteString("\n" + m.spinner.View() + " Transcribing " + what + "...\n")
	}

	if view := m.deps.Viewer.View(); view != "" {
		b.WriteString("\n" + view + "\n")
	}

	if controls.Visible(Play) {
		label := "▶ Play"
		switch m.deps.Viewer.PlayerState() {
		case playback.Playing:
			label = "■ Stop"
		case playback.Stopping:
			label = "… Stopping"
		}
		b.WriteString("\n" + label + " " + styles.help.Render("(p)"))
	}
	if controls.Visible(Export) {
		if controls.Enabled(Export) {
			b.WriteString("   Export " + strings.ToUpper(string(m.deps.ExportFormat)) + " " + styles.help.Render("(e)"))
		} else {
			b.WriteString("   " + m.spinner.View() + " Exporting...")
		}
	}
	return b.String()
}

func (m *Model) renderInput(in textinput.Model, enabled, focused bool) string {
	if !enabled && !focused {
		value := in.Value()
		if value == "" {
			value = in.Placeholder
		}
		return styles.muted.Render(in.Prompt + value)
	}
	return in.View()
}
