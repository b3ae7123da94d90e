// Package main provides the clinicops CLI entry point.
// This file implements the interactive console using bubbletea.
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clinicops/cmd/clinic/config"
	"clinicops/cmd/clinic/ui"
	"clinicops/internal/auth"
	"clinicops/internal/session"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const consoleTimeout = 2 * time.Minute

// consoleModel is the main model for the interactive console. Presentation
// state (busy flag, error line, panel) lives here; conversation state lives in
// the session context and is only read for rendering.
type consoleModel struct {
	// UI components
	textinput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	styles    ui.Styles
	renderer  *glamour.TermRenderer

	// Presentation state
	busy    bool
	status  string
	errText string
	panel   string
	width   int
	height  int
	ready   bool
	config  config.Config

	// Per-submission options
	tool           session.ToolMode
	mode           session.ConversationMode
	useWeb         bool
	includeCatalog bool

	// Backend
	engine *engine
}

// Messages for tea updates
type (
	validatedMsg struct {
		identity *auth.Identity
	}
	conversationMsg struct{}
	sentMsg         struct{}
	panelMsg        string
	errMsg          struct {
		err error
	}
)

// initConsole initializes the interactive console model
func initConsole(eng *engine) consoleModel {
	cfg, _ := config.Load()

	styles := ui.DefaultStyles()
	if cfg.Theme == "dark" {
		styles = ui.NewStyles(ui.DarkTheme())
	}

	ti := textinput.New()
	ti.Placeholder = "Ask a clinical question... (Enter to send, Ctrl+C to exit)"
	ti.Focus()
	ti.Prompt = "│ "
	ti.CharLimit = 4096
	ti.Width = 80
	ti.PromptStyle = styles.Prompt
	ti.TextStyle = styles.UserInput

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	vp := viewport.New(80, 20)
	vp.SetContent("")

	var renderer *glamour.TermRenderer
	if styles.Theme.IsDark {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
	} else {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithStylePath("light"),
			glamour.WithWordWrap(80),
		)
	}

	return consoleModel{
		textinput: ti,
		viewport:  vp,
		spinner:   sp,
		styles:    styles,
		renderer:  renderer,
		config:    cfg,
		tool:      session.ToolChat,
		mode:      session.ModeAuto,
		engine:    eng,
	}
}

func (m consoleModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.validateCmd(),
	)
}

// validateCmd confirms a previously stored token and, when valid, performs the
// initial task refresh and conversation load.
func (m consoleModel) validateCmd() tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), consoleTimeout)
		defer cancel()

		identity, err := eng.session.Validate(ctx)
		if err != nil {
			return errMsg{err}
		}
		if identity == nil {
			return validatedMsg{}
		}
		if err := eng.session.LoadSelectedConversation(ctx); err != nil {
			return errMsg{err}
		}
		return validatedMsg{identity: identity}
	}
}

// loadCmd re-synchronizes the conversation for the current selection.
func (m consoleModel) loadCmd() tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), consoleTimeout)
		defer cancel()

		if err := eng.session.LoadSelectedConversation(ctx); err != nil {
			return errMsg{err}
		}
		return conversationMsg{}
	}
}

// sendCmd submits the typed query through the turn pipeline.
func (m consoleModel) sendCmd(query string) tea.Cmd {
	eng := m.engine
	opts := session.SendOptions{
		UseWebSources:          m.useWeb,
		IncludeProtocolCatalog: m.includeCatalog,
		ConversationMode:       m.mode,
		Tool:                   m.tool,
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), consoleTimeout)
		defer cancel()

		if _, err := eng.session.SendMessage(ctx, query, opts, nil); err != nil {
			return errMsg{err}
		}
		return sentMsg{}
	}
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			if !m.busy {
				return m.handleSubmit()
			}
		}

		if !m.busy {
			m.textinput, tiCmd = m.textinput.Update(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4
		footerHeight := 3
		inputHeight := 3

		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, msg.Height-headerHeight-footerHeight-inputHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = msg.Height - headerHeight - footerHeight - inputHeight
		}

		m.textinput.Width = msg.Width - 4

		if m.renderer != nil {
			m.renderer, _ = glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(msg.Width-8),
			)
		}
		m.viewport.SetContent(m.renderTimeline())

	case spinner.TickMsg:
		if m.busy {
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}

	case validatedMsg:
		m.busy = false
		m.status = ""
		if msg.identity == nil {
			m.panel = "Not logged in. Use /login <username> <password>."
		}
		m.viewport.SetContent(m.renderTimeline())
		m.viewport.GotoBottom()

	case conversationMsg:
		m.busy = false
		m.status = ""
		m.viewport.SetContent(m.renderTimeline())
		m.viewport.GotoBottom()

	case sentMsg:
		m.busy = false
		m.status = ""
		m.textinput.Reset()
		m.viewport.SetContent(m.renderTimeline())
		m.viewport.GotoBottom()

	case panelMsg:
		m.busy = false
		m.status = ""
		m.panel = string(msg)

	case errMsg:
		// Failed submissions keep the typed query in the composer
		m.busy = false
		m.status = ""
		m.errText = msg.err.Error()
	}

	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m consoleModel) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textinput.Value())
	if input == "" {
		return m, nil
	}

	m.errText = ""
	m.panel = ""

	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}

	m.busy = true
	m.status = "Sending..."

	return m, tea.Batch(
		m.spinner.Tick,
		m.sendCmd(input),
	)
}

// renderTimeline renders the synchronized history plus the last-response
// disclaimer. Mode and tool chips are re-derived from extracted facts per turn.
func (m consoleModel) renderTimeline() string {
	history := m.engine.session.History()
	if len(history) == 0 {
		return m.styles.Muted.Render("No conversation yet. Type a message to begin.")
	}

	var sb strings.Builder
	for _, item := range history {
		mode := session.InferResponseMode(item.ExtractedFacts)
		tool := session.LookupTool(session.InferTool(item.ExtractedFacts))

		modeChip := m.styles.ClinicalChip.Render("clinical")
		if mode == session.ResponseGeneral {
			modeChip = m.styles.GeneralChip.Render("general")
		}
		toolChip := m.styles.ToolChip.Render(tool.Label)
		chips := modeChip + " " + toolChip
		if item.EffectiveSpecialty != "" {
			chips += " " + m.styles.Badge.Render(item.EffectiveSpecialty)
		}

		sb.WriteString(m.styles.Prompt.Render("You: "))
		sb.WriteString(m.styles.UserInput.Render(item.UserQuery))
		sb.WriteString("\n")

		answer := item.AssistantAnswer
		if m.renderer != nil {
			if rendered, err := m.renderer.Render(answer); err == nil {
				answer = strings.TrimRight(rendered, "\n")
			}
		}
		sb.WriteString(m.styles.AgentResponse.Render(answer))
		sb.WriteString("\n")
		sb.WriteString(chips)
		sb.WriteString("\n\n")
	}

	if resp := m.engine.session.LastResponse(); resp != nil && resp.NonDiagnosticWarning != "" {
		sb.WriteString(m.styles.Warning.Render(resp.NonDiagnosticWarning))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m consoleModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()

	chatView := m.styles.Content.Render(m.viewport.View())

	if m.panel != "" {
		chatView += "\n" + m.styles.Panel.Render(m.panel)
	}

	if m.busy {
		chatView += "\n" + m.styles.Spinner.Render(m.spinner.View()) + " " + m.status
	}

	if m.errText != "" {
		chatView += "\n" + m.styles.Error.Render("Error: "+m.errText)
	}

	inputStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.styles.Theme.Accent).
		Padding(0, 1)

	inputArea := inputStyle.Render(m.textinput.View())

	footer := m.renderFooter()

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		chatView,
		inputArea,
		footer,
	)
}

func (m consoleModel) renderHeader() string {
	title := m.styles.Header.Render(" ⚕ clinicops ")

	var who string
	if identity := m.engine.session.Identity(); identity != nil {
		who = m.styles.Success.Render(fmt.Sprintf("● %s (%s)", identity.Username, identity.Specialty))
	} else {
		who = m.styles.Muted.Render("○ anonymous")
	}

	caseLabel := m.styles.Muted.Render("no case")
	if task, ok := m.engine.session.SelectedTask(); ok {
		caseLabel = m.styles.Bold.Render(fmt.Sprintf("case #%d %s", task.ID, task.Title))
	}

	sessionLabel := m.styles.Muted.Render(m.engine.session.SessionID())

	headerLine := lipgloss.JoinHorizontal(
		lipgloss.Center,
		title,
		"  ",
		who,
		"  ",
		caseLabel,
		"  ",
		sessionLabel,
	)

	tool := session.LookupTool(m.tool)
	options := fmt.Sprintf("tool: %s • mode: %s • web: %v • catalog: %v", tool.Label, m.mode, m.useWeb, m.includeCatalog)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		headerLine,
		m.styles.Muted.Render(options),
		m.styles.RenderDivider(m.width),
	)
}

func (m consoleModel) renderFooter() string {
	help := m.styles.Muted.Render("Enter: send • /help: commands • Ctrl+C: exit")
	return lipgloss.NewStyle().
		MarginTop(1).
		Render(help)
}

// runConsole starts the interactive console
func runConsole() error {
	eng, err := newEngine()
	if err != nil {
		return err
	}

	p := tea.NewProgram(
		initConsole(eng),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err = p.Run()
	return err
}
