package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/fwojciec/campus"
	"github.com/mattn/go-runewidth"
)

var _ tea.Model = Model{}

// sidebarWidth is the total width of the conversation list, border
// included. The sidebar is hidden on terminals narrower than twice that.
const sidebarWidth = 28

const mainHelp = "enter send · ^n new · ^d delete · ^o persona · ^t year · ^b sidebar · ^l sign out"

// Model is the Bubble Tea model for the campus TUI. It renders the latest
// controller view and turns keys into controller operations.
type Model struct {
	// Input is the message input. Exported for test access.
	Input textinput.Model
	// Email and Password are the login fields. Exported for test access.
	Email    textinput.Model
	Password textinput.Model
	// Viewport is the scrollable transcript. Exported for test access.
	Viewport viewport.Model

	ctx     context.Context
	session Session
	views   <-chan campus.View
	theme   campus.Theme
	styles  Styles

	view     campus.View
	answers  map[string]*AssistantTextBlock // keyed by message ID
	thinking *ThinkingBlock

	authMode    campus.AuthMode
	submitting  bool
	selected    int // sidebar cursor (-1 = none)
	hideSidebar bool
	confirm     *ConfirmMsg
	notice      string
	err         error

	width  int
	height int
	ready  bool
}

// New creates a TUI Model driving session. Blocking operations run with ctx.
func New(ctx context.Context, session Session, theme campus.Theme) Model {
	styles := NewStyles(theme)

	email := textinput.New()
	email.Placeholder = "you@university.edu"
	email.Prompt = ""
	email.Width = 32
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = ""
	password.Width = 32
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	input := textinput.New()
	input.Prompt = "› "
	input.CharLimit = 0

	m := Model{
		Input:    input,
		Email:    email,
		Password: password,
		ctx:      ctx,
		session:  session,
		views:    session.Views(),
		theme:    theme,
		styles:   styles,
		answers:  make(map[string]*AssistantTextBlock),
		thinking: NewThinkingBlock(styles),
		selected: -1,
	}
	m.view = session.View()
	m.Input.Placeholder = placeholder(m.view.Year)
	if m.view.Phase == campus.PhaseMain {
		m.Email.Blur()
		m.Input.Focus()
	}
	return m
}

// AuthMode returns whether the login screen signs in or creates an account.
func (m Model) AuthMode() campus.AuthMode { return m.authMode }

// Selected returns the sidebar cursor, or -1 when nothing is selected.
func (m Model) Selected() int { return m.selected }

// SidebarVisible returns whether the conversation list is shown.
func (m Model) SidebarVisible() bool { return !m.hideSidebar }

// Prompt returns the pending yes/no question, if any.
func (m Model) Prompt() string {
	if m.confirm == nil {
		return ""
	}
	return m.confirm.Prompt
}

// Notice returns the last informational message.
func (m Model) Notice() string { return m.notice }

// Err returns the last error, if any.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, listenForView(m.views))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ViewMsg:
		var cmd tea.Cmd
		m, cmd = m.applyView(msg.View)
		return m, tea.Batch(cmd, listenForView(m.views))

	case AuthDoneMsg:
		m.submitting = false
		return m, nil

	case SendDoneMsg:
		return m, nil

	case ConfirmMsg:
		m.confirm = &msg
		return m, nil

	case DeleteDoneMsg:
		m.confirm = nil
		switch {
		case msg.Err != nil:
			m.err = msg.Err
		case msg.Deleted:
			m.notice = "Chat deleted."
			m.selected = indexOf(m.view.Conversations, m.view.Current)
		}
		return m, nil

	case SignOutDoneMsg:
		m.err = msg.Err
		return m, nil

	case spinner.TickMsg:
		if !m.view.Sending() {
			return m, nil
		}
		_, cmd := m.thinking.Update(msg)
		m.refresh(true)
		return m, cmd
	}

	// Cursor blinks and other component messages.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	m.Email, cmd = m.Email.Update(msg)
	cmds = append(cmds, cmd)
	m.Password, cmd = m.Password.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	switch m.view.Phase {
	case campus.PhaseAuth:
		return m.loginView()
	case campus.PhaseMain:
		return m.mainView()
	default:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.styles.Muted.Render("Loading..."))
	}
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	if !m.ready {
		m.Viewport = viewport.New(msg.Width, 1)
		m.ready = true
	}
	m = m.layout()
	m.Viewport.GotoBottom()
	return m
}

// layout sizes the viewport and input to the main column and re-renders
// the transcript.
func (m Model) layout() Model {
	inputH := 1
	statusHeight := 1
	borderHeight := 2 // newlines between sections
	vpHeight := max(m.height-inputH-statusHeight-borderHeight, 1)

	width := m.mainWidth()
	m.Viewport.Width = width
	m.Viewport.Height = vpHeight
	m.Input.Width = max(width-lipgloss.Width(m.Input.Prompt)-1, 1)
	m.refresh(false)
	return m
}

func (m Model) sidebarShown() bool {
	return !m.hideSidebar && m.width >= 2*sidebarWidth
}

func (m Model) mainWidth() int {
	if m.sidebarShown() {
		return m.width - sidebarWidth
	}
	return m.width
}

// refresh re-renders the transcript. The viewport follows the bottom when
// it was already there or when follow is set.
func (m *Model) refresh(follow bool) {
	if !m.ready {
		return
	}
	atBottom := m.Viewport.AtBottom()
	m.Viewport.SetContent(m.renderContent())
	if follow || atBottom {
		m.Viewport.GotoBottom()
	}
}

func (m Model) applyView(v campus.View) (Model, tea.Cmd) {
	prev := m.view
	m.view = v
	m.Input.Placeholder = placeholder(v.Year)

	var cmds []tea.Cmd
	if prev.Phase != v.Phase {
		switch v.Phase {
		case campus.PhaseMain:
			m.submitting = false
			m.Password.SetValue("")
			m.Email.Blur()
			m.Password.Blur()
			cmds = append(cmds, m.Input.Focus())
		case campus.PhaseAuth:
			m.Input.SetValue("")
			m.Input.Blur()
			m.Password.Blur()
			m.selected = -1
			if m.confirm != nil {
				m.confirm.Answer <- false
				m.confirm = nil
			}
			m.notice = ""
			m.err = nil
			cmds = append(cmds, m.Email.Focus())
		}
	}

	if v.Current != "" {
		m.selected = indexOf(v.Conversations, v.Current)
	} else if m.selected >= len(v.Conversations) {
		m.selected = len(v.Conversations) - 1
	}

	if v.Current != prev.Current {
		clear(m.answers)
	}
	if v.Sending() && !prev.Sending() {
		cmds = append(cmds, m.thinking.Tick())
	}

	follow := v.Current != prev.Current ||
		len(v.Messages) != len(prev.Messages) ||
		v.Sending() != prev.Sending() ||
		v.SendError != prev.SendError
	m.refresh(follow)
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.confirm != nil {
		return m.handleConfirmKey(msg)
	}
	switch m.view.Phase {
	case campus.PhaseAuth:
		return m.handleAuthKey(msg)
	case campus.PhaseMain:
		return m.handleMainKey(msg)
	}
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var answer bool
	switch msg.String() {
	case "y", "Y":
		answer = true
	case "n", "N", "esc":
	default:
		return m, nil
	}
	m.confirm.Answer <- answer
	m.confirm = nil
	return m, nil
}

func (m Model) handleAuthKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		if m.Email.Focused() {
			m.Email.Blur()
			return m, m.Password.Focus()
		}
		m.Password.Blur()
		return m, m.Email.Focus()

	case tea.KeyCtrlS:
		if m.authMode == campus.AuthSignIn {
			m.authMode = campus.AuthSignUp
		} else {
			m.authMode = campus.AuthSignIn
		}
		return m, nil

	case tea.KeyEnter:
		if m.submitting {
			return m, nil
		}
		m.submitting = true
		cr := campus.Credentials{
			Email:    strings.TrimSpace(m.Email.Value()),
			Password: m.Password.Value(),
			Mode:     m.authMode,
		}
		return m, submitCredentials(m.ctx, m.session, cr)
	}

	var cmd tea.Cmd
	if m.Email.Focused() {
		m.Email, cmd = m.Email.Update(msg)
	} else {
		m.Password, cmd = m.Password.Update(msg)
	}
	return m, cmd
}

func (m Model) handleMainKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	m.err = nil

	switch msg.Type {
	case tea.KeyEnter:
		text := m.Input.Value()
		if m.view.Sending() || strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.session.SetInput(text)
		deliver, err := m.session.BeginSend()
		if errors.Is(err, campus.ErrSendInFlight) {
			return m, nil
		}
		if err != nil {
			m.err = err
			return m, nil
		}
		m.Input.SetValue("")
		return m, send(m.ctx, deliver, text)

	case tea.KeyCtrlN:
		m.selected = -1
		m.session.NewChat()
		return m, nil

	case tea.KeyCtrlUp:
		return m.moveSelection(-1), nil

	case tea.KeyCtrlDown:
		return m.moveSelection(1), nil

	case tea.KeyCtrlD:
		return m.startDelete()

	case tea.KeyCtrlO:
		m.session.CyclePersona()
		return m, nil

	case tea.KeyCtrlT:
		if _, err := m.session.CycleYear(); err != nil {
			m.err = err
		}
		return m, nil

	case tea.KeyCtrlB:
		m.hideSidebar = !m.hideSidebar
		return m.layout(), nil

	case tea.KeyCtrlL:
		return m, signOut(m.ctx, m.session)

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.Viewport, cmd = m.Viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	m.session.SetInput(m.Input.Value())
	return m, cmd
}

func (m Model) moveSelection(delta int) Model {
	n := len(m.view.Conversations)
	if n == 0 {
		return m
	}
	i := m.selected + delta
	if m.selected < 0 {
		i = 0
		if delta < 0 {
			i = n - 1
		}
	}
	i = min(max(i, 0), n-1)
	m.selected = i
	m.session.Open(m.view.Conversations[i].ID)
	return m
}

// startDelete asks the controller to delete the selected conversation. The
// controller's confirmation question comes back as a ConfirmMsg and blocks
// the delete until the user answers it.
func (m Model) startDelete() (tea.Model, tea.Cmd) {
	id := m.view.Current
	if m.selected >= 0 && m.selected < len(m.view.Conversations) {
		id = m.view.Conversations[m.selected].ID
	}
	if id == "" {
		return m, nil
	}
	prompts := make(chan ConfirmMsg, 1)
	ctx := m.ctx
	confirm := campus.ConfirmFunc(func(prompt string) bool {
		answer := make(chan bool, 1)
		select {
		case prompts <- ConfirmMsg{Prompt: prompt, Answer: answer}:
		case <-ctx.Done():
			return false
		}
		select {
		case ok := <-answer:
			return ok
		case <-ctx.Done():
			return false
		}
	})
	return m, tea.Batch(
		deleteConversation(ctx, m.session, id, confirm),
		listenForConfirm(ctx, prompts),
	)
}

func (m Model) renderContent() string {
	width := m.Viewport.Width
	blocks := m.blocks()
	if len(blocks) == 0 {
		return lipgloss.Place(width, m.Viewport.Height, lipgloss.Center, lipgloss.Center,
			m.styles.Muted.Render("Start a new conversation..."))
	}
	var b strings.Builder
	var prev MessageBlock
	for _, block := range blocks {
		b.WriteString(blockSeparator(prev, block))
		b.WriteString(block.View(width))
		prev = block
	}
	return b.String()
}

func (m Model) blocks() []MessageBlock {
	var blocks []MessageBlock
	for _, msg := range m.view.Messages {
		switch msg.Role {
		case campus.RoleUser:
			blocks = append(blocks, NewUserMessageBlock(msg.Content, m.theme, m.styles))
		case campus.RoleAssistant:
			block, ok := m.answers[msg.ID]
			if !ok {
				block = NewAssistantTextBlock(msg.Content, m.theme)
				m.answers[msg.ID] = block
			}
			blocks = append(blocks, block)
		}
	}
	if m.view.Sending() {
		blocks = append(blocks, m.thinking)
	}
	if m.view.SendError != "" {
		blocks = append(blocks, NewErrorBlock(m.view.SendError, m.styles))
	}
	return blocks
}

func (m Model) mainView() string {
	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	column := b.String()

	if !m.sidebarShown() {
		return column
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), column)
}

func (m Model) sidebarView() string {
	// Border and right padding take two columns.
	inner := sidebarWidth - 2

	lines := []string{m.styles.Accent.Render("Chats"), ""}
	if len(m.view.Conversations) == 0 {
		lines = append(lines, m.styles.Muted.Render("No chats yet"))
	}
	for i, c := range m.view.Conversations {
		marker := "  "
		style := lipgloss.NewStyle()
		if c.ID == m.view.Current {
			marker = "▸ "
			style = m.styles.Accent
		}
		title := runewidth.FillRight(runewidth.Truncate(c.Title, inner-2, "…"), inner-2)
		line := style.Render(marker + title)
		if i == m.selected {
			line = m.styles.Selected.Render(marker + title)
		}
		lines = append(lines, line)
	}

	footer := ""
	if m.view.Identity != nil {
		footer = m.styles.Muted.Render(runewidth.Truncate(m.view.Identity.Email, inner, "…"))
	}
	// Keep the identity pinned to the last row.
	for len(lines) < m.height-1 {
		lines = append(lines, "")
	}
	if len(lines) > m.height-1 {
		lines = lines[:max(m.height-1, 0)]
	}
	lines = append(lines, footer)

	return m.styles.Sidebar.
		Width(sidebarWidth - 1).
		Height(m.height).
		MaxHeight(m.height).
		Render(strings.Join(lines, "\n"))
}

func (m Model) statusLine() string {
	width := m.mainWidth()
	switch {
	case m.confirm != nil:
		return ansi.Truncate(m.styles.Error.Render(m.confirm.Prompt+" (y/n)"), width, "…")
	case m.err != nil:
		return ansi.Truncate(m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err)), width, "…")
	}

	badges := m.styles.Success.Render(fmt.Sprintf("Year %s · %s", m.view.Year, m.view.Persona))
	help := mainHelp
	if m.notice != "" {
		help = m.notice
	}
	return ansi.Truncate(badges+"  "+m.styles.Muted.Render(help), width, "…")
}

func (m Model) loginView() string {
	mode := "Sign in"
	toggle := "^s create account"
	if m.authMode == campus.AuthSignUp {
		mode = "Create account"
		toggle = "^s sign in"
	}

	var b strings.Builder
	b.WriteString(m.styles.Accent.Render("Campus Assistant"))
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render(mode))
	b.WriteString("\n\n")
	b.WriteString("Email     ")
	b.WriteString(m.Email.View())
	b.WriteString("\n")
	b.WriteString("Password  ")
	b.WriteString(m.Password.View())
	b.WriteString("\n\n")
	switch {
	case m.submitting:
		b.WriteString(m.styles.Muted.Render("Please wait..."))
		b.WriteString("\n\n")
	case m.view.AuthError != "":
		b.WriteString(m.styles.Error.Render(m.view.AuthError))
		b.WriteString("\n\n")
	}
	b.WriteString(m.styles.Muted.Render("enter submit · tab switch field · " + toggle + " · ^c quit"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ansiColor(m.theme.Accent)).
		Padding(1, 2).
		Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func placeholder(y campus.Year) string {
	return fmt.Sprintf("Ask Year %s question...", y)
}

func indexOf(convs []campus.Conversation, id string) int {
	for i, c := range convs {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// listenForView returns a command that waits for the next controller view.
func listenForView(ch <-chan campus.View) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return nil
		}
		return ViewMsg{View: v}
	}
}

// listenForConfirm returns a command that waits for a confirmation question.
func listenForConfirm(ctx context.Context, ch <-chan ConfirmMsg) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-ch:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}

func submitCredentials(ctx context.Context, s Session, cr campus.Credentials) tea.Cmd {
	return func() tea.Msg {
		return AuthDoneMsg{Err: s.SubmitCredentials(ctx, cr)}
	}
}

func send(ctx context.Context, deliver func(context.Context) error, text string) tea.Cmd {
	return func() tea.Msg {
		return SendDoneMsg{Text: text, Err: deliver(ctx)}
	}
}

func deleteConversation(ctx context.Context, s Session, id string, confirm campus.Confirmer) tea.Cmd {
	return func() tea.Msg {
		deleted, err := s.DeleteConversation(ctx, id, confirm)
		return DeleteDoneMsg{Deleted: deleted, Err: err}
	}
}

func signOut(ctx context.Context, s Session) tea.Cmd {
	return func() tea.Msg {
		return SignOutDoneMsg{Err: s.SignOut(ctx)}
	}
}
