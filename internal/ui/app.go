package ui

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/scholar/internal/api"
	"github.com/five82/scholar/internal/config"
	"github.com/five82/scholar/internal/edit"
	"github.com/five82/scholar/internal/learner"
	"github.com/five82/scholar/internal/prefs"
	"github.com/five82/scholar/internal/resource"
	"github.com/five82/scholar/internal/validate"
)

// promptKind selects what the one-line prompt is collecting.
type promptKind int

const (
	promptNone promptKind = iota
	promptSearch
	promptCoupon
)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Settings  config.Settings
	Prefs     prefs.Prefs
	PrefsPath string

	Dashboard *learner.DashboardController
	Profile   *learner.ProfileController
	// Channel and Email are nil when staff tools are disabled.
	Channel *learner.ChannelController
	Email   *learner.EmailController
	// FinancialAid is nil when financial aid is disabled.
	FinancialAid func(programID int64) (*learner.FinancialAidController, error)

	// Changes receives a value whenever cached state may have changed.
	Changes <-chan struct{}
	// Expired receives the resource name when the session expired.
	Expired <-chan string
	Offline func() bool
	Logger  *slog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	dashboard *learner.DashboardController
	profile   *learner.ProfileController
	channel   *learner.ChannelController
	email     *learner.EmailController
	newAid    func(programID int64) (*learner.FinancialAidController, error)
	aidForms  map[int64]*learner.FinancialAidController
	changes   <-chan struct{}
	expired   <-chan string
	offline   func() bool
	logger    *slog.Logger
	prefsPath string
	prefs     prefs.Prefs
	username  string

	// UI state
	theme    Theme
	keys     keyMap
	width    int
	height   int
	ready    bool
	showHelp bool
	spinner  spinner.Model

	// Dashboard state
	selected    int
	restored    bool
	query       string
	prompt      textinput.Model
	promptKind  promptKind
	lastUpdated time.Time

	// Open form, nil on the dashboard
	form *formState

	// Banners
	status         string
	statusIsError  bool
	sessionExpired bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	theme := GetTheme(opts.Prefs.Theme)
	keys := DefaultKeyMap()
	keys.NewChannel.SetEnabled(opts.Channel != nil)
	keys.ComposeEmail.SetEnabled(opts.Email != nil)
	keys.FinancialAid.SetEnabled(opts.FinancialAid != nil)

	prompt := textinput.New()
	prompt.CharLimit = 80

	return Model{
		ctx:       ctx,
		dashboard: opts.Dashboard,
		profile:   opts.Profile,
		channel:   opts.Channel,
		email:     opts.Email,
		newAid:    opts.FinancialAid,
		aidForms:  make(map[int64]*learner.FinancialAidController),
		changes:   opts.Changes,
		expired:   opts.Expired,
		offline:   opts.Offline,
		logger:    logger,
		prefsPath: prefsPath,
		prefs:     opts.Prefs,
		username:  opts.Settings.Username,
		theme:     theme,
		keys:      keys,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Accent))),
		),
		prompt: prompt,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tickCmd(),
		waitForChange(m.changes),
		waitForExpiry(m.expired),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case changeMsg:
		m.handleChange()
		return m, waitForChange(m.changes)

	case expiredMsg:
		m.sessionExpired = true
		m.logger.Info("session expired", "resource", string(msg))
		return m, waitForExpiry(m.expired)

	case savedMsg:
		return m.handleSaved(msg), nil

	case actionMsg:
		if errors.Is(msg.err, resource.ErrSuperseded) {
			m.flash(msg.label+" sent, showing the latest data", false)
			return m, nil
		}
		if msg.err != nil {
			m.flash(msg.label+" failed: "+describeError(msg.err), true)
			return m, nil
		}
		if msg.label == "Refresh" {
			m.sessionExpired = false
		}
		m.flash(msg.label+" done", false)
		return m, nil

	case tickMsg:
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	if banner := m.renderBanner(); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
	}
	if m.form != nil {
		b.WriteString(m.renderForm())
	} else {
		b.WriteString(m.renderDashboard())
	}
	return b.String()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.form != nil {
		return m.handleFormKey(msg)
	}
	if m.promptKind != promptNone {
		return m.handlePromptKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.rememberSelection()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.CycleTheme):
		m.cycleTheme()
	case key.Matches(msg, m.keys.Escape):
		m.query = ""
		m.selected = 0
	case key.Matches(msg, m.keys.Search):
		cmd := m.openPrompt(promptSearch, "/ ", m.query)
		return m, cmd
	case key.Matches(msg, m.keys.Coupon):
		cmd := m.openPrompt(promptCoupon, "coupon ", "")
		return m, cmd
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshCmd()
	case key.Matches(msg, m.keys.Enroll):
		return m, m.enrollCmd()
	case key.Matches(msg, m.keys.ToggleArchive):
		m.toggleArchived()
	case key.Matches(msg, m.keys.EditProfile):
		m.openProfile()
	case key.Matches(msg, m.keys.FinancialAid):
		m.openFinancialAid()
	case key.Matches(msg, m.keys.NewChannel):
		m.openChannel()
	case key.Matches(msg, m.keys.ComposeEmail):
		m.openEmail()
	default:
		m.moveSelection(msg)
	}
	return m, nil
}

func (m *Model) moveSelection(msg tea.KeyMsg) {
	count := len(m.visiblePrograms())
	if count == 0 {
		return
	}
	switch {
	case key.Matches(msg, m.keys.Down):
		m.selected = min(m.selected+1, count-1)
	case key.Matches(msg, m.keys.Up):
		m.selected = max(m.selected-1, 0)
	case key.Matches(msg, m.keys.Top):
		m.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selected = count - 1
	}
}

func (m *Model) openPrompt(kind promptKind, label, value string) tea.Cmd {
	m.promptKind = kind
	m.prompt.Prompt = label
	m.prompt.SetValue(value)
	m.prompt.CursorEnd()
	return m.prompt.Focus()
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		if m.promptKind == promptSearch {
			m.query = ""
		}
		m.closePrompt()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		kind, value := m.promptKind, strings.TrimSpace(m.prompt.Value())
		m.closePrompt()
		if kind == promptCoupon && value != "" {
			return m, m.attachCouponCmd(value)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	if m.promptKind == promptSearch {
		m.query = m.prompt.Value()
		m.selected = 0
	}
	return m, cmd
}

func (m *Model) closePrompt() {
	m.promptKind = promptNone
	m.prompt.Blur()
}

func (m *Model) openForm(b formBinding) {
	fs, err := newFormState(b)
	if err != nil {
		m.flash(describeError(err), true)
		return
	}
	m.form = fs
	m.status = ""
}

func (m *Model) openProfile() {
	if m.profile == nil {
		return
	}
	if !m.profile.State().Loaded() {
		m.flash("Profile not loaded yet", true)
		return
	}
	m.openForm(bindForm("Profile", m.profile.Form, func() (edit.Session[api.Profile], error) {
		return m.profile.Start(validate.UIState{learner.UIProfileStep: "personal"})
	}, profileFields))
}

func (m *Model) openFinancialAid() {
	if m.newAid == nil {
		return
	}
	program, ok := m.selectedProgram()
	if !ok {
		return
	}
	if !program.FinancialAidAvailability {
		m.flash("Financial aid is not offered for "+program.Title, true)
		return
	}
	c, ok := m.aidForms[program.ID]
	if !ok {
		var err error
		if c, err = m.newAid(program.ID); err != nil {
			m.flash(describeError(err), true)
			return
		}
		m.aidForms[program.ID] = c
	}
	m.openForm(bindForm("Financial aid: "+program.Title, c.Form, func() (edit.Session[api.FinancialAid], error) {
		return c.Start(nil)
	}, financialAidFields))
}

func (m *Model) openChannel() {
	if m.channel == nil {
		return
	}
	m.openForm(bindForm("New channel", m.channel.Form, func() (edit.Session[api.Channel], error) {
		return m.channel.Start(nil)
	}, channelFields))
}

func (m *Model) openEmail() {
	if m.email == nil {
		return
	}
	if _, err := m.email.Start(nil); err != nil {
		m.flash(describeError(err), true)
		return
	}
	if program, ok := m.selectedProgram(); ok {
		if _, err := m.email.ToProgram(program.ID); err != nil {
			m.flash(describeError(err), true)
			return
		}
	}
	m.openForm(bindForm("Email", m.email.Form, func() (edit.Session[api.Email], error) {
		return m.email.Start(nil)
	}, emailFields))
}

// handleChange re-reads state after the store changed.
func (m *Model) handleChange() {
	dash := m.dashboard.Dashboard()
	if dash.GetStatus == resource.StatusSuccess {
		m.lastUpdated = time.Now()
	}
	if !m.restored && dash.Loaded() {
		m.restored = true
		for i, p := range m.visiblePrograms() {
			if p.ID == m.prefs.LastProgram {
				m.selected = i
			}
		}
	}
	if n := len(m.visiblePrograms()); m.selected >= n {
		m.selected = max(n-1, 0)
	}
	if m.form != nil {
		m.form.refresh()
	}
}

func (m *Model) cycleTheme() {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent))
	m.updatePrefs(func(p *prefs.Prefs) { p.Theme = m.theme.Name })
}

func (m *Model) toggleArchived() {
	hide := !m.prefs.HideArchived
	m.updatePrefs(func(p *prefs.Prefs) { p.HideArchived = hide })
}

func (m *Model) rememberSelection() {
	if program, ok := m.selectedProgram(); ok {
		m.updatePrefs(func(p *prefs.Prefs) { p.LastProgram = program.ID })
	}
}

func (m *Model) updatePrefs(fn func(*prefs.Prefs)) {
	fn(&m.prefs)
	if m.prefsPath == "" {
		return
	}
	if _, err := prefs.Update(m.prefsPath, fn); err != nil {
		m.logger.Warn("save preferences", "error", err)
	}
}

func (m *Model) flash(text string, isError bool) {
	m.status = text
	m.statusIsError = isError
}

// Commands

func (m Model) refreshCmd() tea.Cmd {
	ctx, dash, profile := m.ctx, m.dashboard, m.profile
	return func() tea.Msg {
		err := dash.Refresh(ctx, false)
		if profile != nil {
			if _, perr := profile.Load(ctx).Wait(ctx); err == nil {
				err = perr
			}
		}
		return actionMsg{label: "Refresh", err: err}
	}
}

func (m Model) enrollCmd() tea.Cmd {
	program, ok := m.selectedProgram()
	if !ok {
		return nil
	}
	pending := m.dashboard.Enroll(m.ctx, program.ID)
	ctx := m.ctx
	return func() tea.Msg {
		_, err := pending.Wait(ctx)
		return actionMsg{label: "Enrollment in " + program.Title, err: err}
	}
}

func (m Model) attachCouponCmd(code string) tea.Cmd {
	pending := m.dashboard.AttachCoupon(m.ctx, code)
	ctx := m.ctx
	return func() tea.Msg {
		_, err := pending.Wait(ctx)
		return actionMsg{label: "Coupon " + code, err: err}
	}
}

// Messages

type tickMsg time.Time

type changeMsg struct{}

type expiredMsg string

type savedMsg struct {
	title string
	err   error
}

type actionMsg struct {
	label string
	err   error
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changeMsg{}
	}
}

func waitForExpiry(ch <-chan string) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		res, ok := <-ch
		if !ok {
			return nil
		}
		return expiredMsg(res)
	}
}

// describeError renders err for the status line.
func describeError(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *api.HTTPError
	if errors.As(err, &httpErr) {
		for _, field := range []string{"detail", "error", "non_field_errors"} {
			if msg := httpErr.FieldMessage(field); msg != "" {
				return msg
			}
		}
		return "server returned " + strconv.Itoa(httpErr.StatusCode)
	}
	if errors.Is(err, resource.ErrSuperseded) {
		return "superseded by a newer request"
	}
	return err.Error()
}

// Run starts the Bubble Tea program and blocks until it exits or the
// context is cancelled.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
