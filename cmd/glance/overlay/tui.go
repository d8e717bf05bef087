package overlaycmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.uber.org/zap"

	"github.com/glancelabs/glance/pkg/assistant"
	"github.com/glancelabs/glance/pkg/cliui"
	"github.com/glancelabs/glance/pkg/recorder"
	"github.com/glancelabs/glance/pkg/session"
	"github.com/glancelabs/glance/pkg/store"
	"github.com/glancelabs/glance/pkg/vision"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

type overlayState int

const (
	stateHidden overlayState = iota
	stateInput
	statePending
	stateReply
)

const maxSuggestionKeys = 4

var (
	overlayTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	overlayMutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	overlayAccentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	overlayStatusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	overlayPendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Italic(true)
)

type overlayKeyMap struct {
	Toggle     key.Binding
	Ask        key.Binding
	Submit     key.Binding
	Dismiss    key.Binding
	Suggestion key.Binding
	Clear      key.Binding
	Quit       key.Binding
}

func (k overlayKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Submit, k.Dismiss, k.Suggestion, k.Quit}
}

func (k overlayKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Toggle, k.Ask, k.Submit, k.Dismiss}, {k.Suggestion, k.Clear, k.Quit}}
}

// newOverlayKeyMap builds the bindings around the two configurable keys.
func newOverlayKeyMap(toggleKey, askKey string) overlayKeyMap {
	return overlayKeyMap{
		Toggle:     key.NewBinding(key.WithKeys(toggleKey), key.WithHelp(toggleKey, "show/hide")),
		Ask:        key.NewBinding(key.WithKeys(askKey), key.WithHelp(askKey, "new question")),
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "ask")),
		Dismiss:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss")),
		Suggestion: key.NewBinding(key.WithKeys("1", "2", "3", "4"), key.WithHelp("1-4", "follow up")),
		Clear:      key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear history")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// submitter is the slice of the runner the model drives. Tests substitute a
// stub so no capture or network happens.
type submitter interface {
	Submit(ctx context.Context, q assistant.Query) (<-chan assistant.Outcome, uint64, error)
}

type askResultMsg struct {
	outcome assistant.Outcome
}

type autoHideMsg struct {
	gen uint64
}

type overlayOpts struct {
	submitter submitter
	history   *session.Log
	rec       *recorder.Pool
	st        *store.Store
	sessionID string
	provider  string
	toggleKey string
	askKey    string
	autoHide  time.Duration
	logger    *zap.Logger
}

type overlayModel struct {
	submitter submitter
	history   *session.Log
	rec       *recorder.Pool
	st        *store.Store
	sessionID string
	provider  string
	autoHide  time.Duration
	logger    *zap.Logger

	state  overlayState
	keys   overlayKeyMap
	help   help.Model
	input  textinput.Model
	spin   spinner.Model
	body   viewport.Model
	width  int
	height int

	pendingGen      uint64
	dismissedGen    uint64
	pendingCancel   context.CancelFunc
	pendingQuestion string

	reply   assistant.StructuredReply
	hideGen uint64
	status  string
}

func newOverlayModel(opts overlayOpts) overlayModel {
	input := textinput.New()
	input.Placeholder = "Ask about your screen..."
	input.CharLimit = 2000
	input.Width = 64
	input.PromptStyle = overlayAccentStyle

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = overlayAccentStyle

	log := opts.logger
	if log == nil {
		log = zap.NewNop()
	}

	return overlayModel{
		submitter: opts.submitter,
		history:   opts.history,
		rec:       opts.rec,
		st:        opts.st,
		sessionID: opts.sessionID,
		provider:  opts.provider,
		autoHide:  opts.autoHide,
		logger:    log,
		state:     stateHidden,
		keys:      newOverlayKeyMap(opts.toggleKey, opts.askKey),
		help:      help.New(),
		input:     input,
		spin:      spin,
		body:      viewport.New(76, 14),
	}
}

func (m overlayModel) Init() bubbletea.Cmd {
	return nil
}

func (m overlayModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.body.Width = min(msg.Width-4, 100)
		m.body.Height = max(msg.Height-10, 4)
		if m.state == stateReply {
			m.setReplyContent()
		}
		return m, nil
	case spinner.TickMsg:
		if m.state != statePending {
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case askResultMsg:
		return m.onOutcome(msg.outcome)
	case autoHideMsg:
		if m.state == stateReply && msg.gen == m.hideGen {
			m.state = stateHidden
		}
		return m, nil
	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m overlayModel) View() string {
	switch m.state {
	case stateHidden:
		return m.viewHidden()
	case stateInput:
		return m.viewInput()
	case statePending:
		return m.viewPending()
	case stateReply:
		return m.viewReply()
	}
	return m.viewHidden()
}

func (m overlayModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.cancelPending()
		return m, bubbletea.Quit
	}

	// The toggle key works from every state.
	if key.Matches(msg, m.keys.Toggle) {
		return m.toggle()
	}

	switch m.state {
	case stateHidden:
		if msg.String() == "q" {
			return m, bubbletea.Quit
		}
		if key.Matches(msg, m.keys.Ask) {
			return m.showInput()
		}
		return m, nil

	case stateInput:
		switch {
		case key.Matches(msg, m.keys.Submit):
			return m.submit(strings.TrimSpace(m.input.Value()))
		case key.Matches(msg, m.keys.Dismiss):
			m.state = stateHidden
			return m, nil
		case key.Matches(msg, m.keys.Clear):
			m.history.Clear()
			m.status = "History cleared."
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case statePending:
		if key.Matches(msg, m.keys.Dismiss) {
			return m.dismissPending()
		}
		return m, nil

	case stateReply:
		switch {
		case key.Matches(msg, m.keys.Dismiss):
			m.state = stateHidden
			return m, nil
		case key.Matches(msg, m.keys.Ask):
			return m.showInput()
		case key.Matches(msg, m.keys.Suggestion):
			if idx, ok := suggestionIndex(msg.String()); ok && idx < len(m.reply.SuggestedQuestions) {
				return m.submit(m.reply.SuggestedQuestions[idx])
			}
			return m, nil
		case msg.String() == "q":
			return m, bubbletea.Quit
		}
		var cmd bubbletea.Cmd
		m.body, cmd = m.body.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m overlayModel) toggle() (bubbletea.Model, bubbletea.Cmd) {
	if m.state != stateHidden {
		m.state = stateHidden
		return m, nil
	}
	// Reopening while an ask is in flight goes back to the spinner.
	if m.pendingCancel != nil {
		m.state = statePending
		return m, m.spin.Tick
	}
	return m.showInput()
}

func (m overlayModel) showInput() (bubbletea.Model, bubbletea.Cmd) {
	m.state = stateInput
	m.status = ""
	return m, m.input.Focus()
}

func (m overlayModel) submit(question string) (bubbletea.Model, bubbletea.Cmd) {
	if question == "" {
		m.status = "Type a question first."
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch, gen, err := m.submitter.Submit(ctx, assistant.Query{
		Question:   question,
		Prior:      m.history.Turns(),
		Screenshot: true,
	})
	if err != nil {
		cancel()
		m.status = friendly(err, m.provider)
		return m, nil
	}

	m.pendingGen = gen
	m.pendingCancel = cancel
	m.pendingQuestion = question
	m.state = statePending
	m.input.Reset()
	m.status = ""

	return m, bubbletea.Batch(m.spin.Tick, waitForOutcome(ch))
}

// waitForOutcome relays the runner's result into the update loop.
func waitForOutcome(ch <-chan assistant.Outcome) bubbletea.Cmd {
	return func() bubbletea.Msg {
		return askResultMsg{outcome: <-ch}
	}
}

// dismissPending cancels the in-flight ask and hands the question back to
// the input so nothing typed is lost.
func (m overlayModel) dismissPending() (bubbletea.Model, bubbletea.Cmd) {
	m.cancelPending()
	m.dismissedGen = m.pendingGen
	m.state = stateInput
	m.input.SetValue(m.pendingQuestion)
	m.input.CursorEnd()
	m.status = "Canceled."
	return m, m.input.Focus()
}

func (m *overlayModel) cancelPending() {
	if m.pendingCancel != nil {
		m.pendingCancel()
		m.pendingCancel = nil
	}
}

func (m overlayModel) onOutcome(o assistant.Outcome) (bubbletea.Model, bubbletea.Cmd) {
	// Results for dismissed asks arrive after the user moved on.
	if o.Gen <= m.dismissedGen {
		return m, nil
	}

	if o.Gen == m.pendingGen {
		m.cancelPending()
	}

	if o.Err != nil {
		m.logger.Debug("ask failed", zap.Uint64("gen", o.Gen), zap.Error(o.Err))
		m.status = friendly(o.Err, m.provider)
		m.state = stateInput
		m.input.SetValue(o.Question)
		m.input.CursorEnd()
		return m, m.input.Focus()
	}

	turn := assistant.NewTurn(o.Question, o.Reply)
	m.history.Append(turn)
	m.enqueueRecord(turn, o.Usage)

	m.reply = o.Reply
	m.setReplyContent()
	m.state = stateReply
	m.status = ""

	if m.autoHide > 0 {
		m.hideGen++
		gen := m.hideGen
		return m, bubbletea.Tick(m.autoHide, func(time.Time) bubbletea.Msg {
			return autoHideMsg{gen: gen}
		})
	}
	return m, nil
}

// enqueueRecord persists the turn off the update loop. The in-memory history
// already holds it, so a failed write only costs durable history.
func (m *overlayModel) enqueueRecord(turn assistant.Turn, usage vision.Usage) {
	if m.rec == nil || m.st == nil {
		return
	}

	st, sessionID := m.st, m.sessionID
	m.rec.Enqueue(recorder.Job{
		Name: "record turn",
		Fn: func(ctx context.Context) error {
			return st.RecordTurn(ctx, sessionID, turn)
		},
	})

	if usage.TotalTokens > 0 {
		tokens := int64(usage.TotalTokens)
		m.rec.Enqueue(recorder.Job{
			Name: "record usage",
			Fn: func(ctx context.Context) error {
				return st.AddUsage(ctx, sessionID, tokens)
			},
		})
	}
}

func (m *overlayModel) setReplyContent() {
	rendered, err := cliui.RenderMarkdown(m.reply.Markdown())
	if err != nil {
		rendered = m.reply.Markdown()
	}
	m.body.SetContent(rendered)
	m.body.GotoTop()
}

func (m overlayModel) viewHidden() string {
	hint := fmt.Sprintf("%s to ask · q quits", m.keys.Toggle.Help().Key)
	if m.pendingCancel != nil {
		hint = fmt.Sprintf("answering... · %s to watch", m.keys.Toggle.Help().Key)
	}
	return "\n  " + overlayTitleStyle.Render("glance") + " " + overlayMutedStyle.Render(hint) + "\n"
}

func (m overlayModel) viewInput() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.header())
	b.WriteString("\n\n  ")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if n := m.history.Len(); n > 0 {
		b.WriteString("  " + overlayMutedStyle.Render(fmt.Sprintf("%d turns in this conversation", n)) + "\n")
	}
	b.WriteString(m.statusLine())
	b.WriteString("\n  " + m.help.View(m.keys) + "\n")
	return b.String()
}

func (m overlayModel) viewPending() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.header())
	b.WriteString("\n\n  ")
	b.WriteString(m.spin.View())
	b.WriteString(overlayPendingStyle.Render(m.pendingQuestion))
	b.WriteString("\n\n  " + overlayMutedStyle.Render("esc cancels") + "\n")
	return b.String()
}

func (m overlayModel) viewReply() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.header())
	b.WriteString("\n\n")
	b.WriteString(m.body.View())
	b.WriteString("\n")

	if len(m.reply.SuggestedQuestions) > 0 {
		b.WriteString("\n")
		for i, q := range m.reply.SuggestedQuestions {
			if i >= maxSuggestionKeys {
				break
			}
			b.WriteString(fmt.Sprintf("  %s %s\n",
				overlayAccentStyle.Render(fmt.Sprintf("%d.", i+1)),
				overlayMutedStyle.Render(q)))
		}
	}

	b.WriteString(m.statusLine())
	b.WriteString("\n  " + m.help.View(m.keys) + "\n")
	return b.String()
}

func (m overlayModel) header() string {
	return "  " + overlayTitleStyle.Render("glance") + " " + overlayMutedStyle.Render(m.provider)
}

func (m overlayModel) statusLine() string {
	if m.status == "" {
		return ""
	}
	return "\n  " + overlayStatusStyle.Render(m.status) + "\n"
}

// friendly maps failure sentinels onto short actionable status lines.
func friendly(err error, provider string) string {
	switch {
	case errors.Is(err, assistant.ErrBusy):
		return "Still working on the last question."
	case errors.Is(err, assistant.ErrCredentialMissing):
		return fmt.Sprintf("No API key configured. Run: glance auth %s", provider)
	case errors.Is(err, assistant.ErrCredentialInvalid):
		return fmt.Sprintf("API key rejected. Run: glance auth %s", provider)
	case errors.Is(err, assistant.ErrQuotaExceeded):
		return "Rate limited. Give it a moment and retry."
	case errors.Is(err, assistant.ErrCaptureUnavailable):
		return "Screen capture unavailable. Check recording permissions."
	case errors.Is(err, context.Canceled):
		return "Canceled."
	default:
		return "Request failed. Details are in glance.log."
	}
}

func suggestionIndex(pressed string) (int, bool) {
	switch pressed {
	case "1", "2", "3", "4":
		return int(pressed[0] - '1'), true
	default:
		return 0, false
	}
}
