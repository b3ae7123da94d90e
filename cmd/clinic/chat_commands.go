package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"clinicops/internal/session"

	tea "github.com/charmbracelet/bubbletea"
)

// handleCommand dispatches slash commands typed into the composer.
func (m consoleModel) handleCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	cmd := parts[0]

	switch cmd {
	case "/quit", "/exit", "/q":
		return m, tea.Quit

	case "/help":
		m.panel = helpText
		m.textinput.Reset()
		return m, nil

	case "/login":
		if len(parts) != 3 {
			m.errText = "usage: /login <username> <password>"
			return m, nil
		}
		m.textinput.Reset()
		m.busy = true
		m.status = "Logging in..."
		return m, tea.Batch(m.spinner.Tick, m.loginCmd(parts[1], parts[2]))

	case "/logout":
		m.engine.session.Logout()
		m.textinput.Reset()
		m.panel = "Logged out."
		m.viewport.SetContent(m.renderTimeline())
		return m, nil

	case "/session":
		if len(parts) == 1 {
			m.panel = "Session: " + m.engine.session.SessionID() + "\nUse /session new to rotate, or /session <id> to switch."
			m.textinput.Reset()
			return m, nil
		}
		if parts[1] == "new" {
			id := m.engine.session.RotateSession()
			m.panel = "Session rotated: " + id
		} else {
			m.engine.session.SetSessionID(parts[1])
			m.panel = "Session switched: " + parts[1]
		}
		m.textinput.Reset()
		m.busy = true
		m.status = "Loading conversation..."
		return m, tea.Batch(m.spinner.Tick, m.loadCmd())

	case "/case":
		if len(parts) != 2 {
			m.errText = "usage: /case <id>"
			return m, nil
		}
		id, err := strconv.Atoi(parts[1])
		if err != nil {
			m.errText = "case id must be a number"
			return m, nil
		}
		if err := m.engine.session.SelectTask(id); err != nil {
			m.errText = err.Error()
			return m, nil
		}
		m.textinput.Reset()
		m.busy = true
		m.status = "Loading conversation..."
		return m, tea.Batch(m.spinner.Tick, m.loadCmd())

	case "/newcase":
		if len(parts) < 2 {
			m.errText = "usage: /newcase <title...> [@patientRef]"
			return m, nil
		}
		args := parts[1:]
		patientRef := ""
		if last := args[len(args)-1]; strings.HasPrefix(last, "@") {
			patientRef = strings.TrimPrefix(last, "@")
			args = args[:len(args)-1]
		}
		if len(args) == 0 {
			m.errText = "usage: /newcase <title...> [@patientRef]"
			return m, nil
		}
		title := strings.Join(args, " ")
		m.textinput.Reset()
		m.busy = true
		m.status = "Creating case..."
		return m, tea.Batch(m.spinner.Tick, m.newCaseCmd(title, patientRef))

	case "/tasks":
		m.textinput.Reset()
		m.busy = true
		m.status = "Refreshing cases..."
		return m, tea.Batch(m.spinner.Tick, m.tasksCmd())

	case "/tool":
		if len(parts) == 1 {
			m.panel = renderToolCatalog(m.tool)
			m.textinput.Reset()
			return m, nil
		}
		candidate := session.ToolMode(parts[1])
		if !validTool(candidate) {
			m.errText = "unknown tool: " + parts[1]
			return m, nil
		}
		m.tool = candidate
		m.panel = "Tool: " + session.LookupTool(candidate).Label
		m.textinput.Reset()
		return m, nil

	case "/mode":
		if len(parts) != 2 {
			m.errText = "usage: /mode <auto|general|clinical>"
			return m, nil
		}
		switch session.ConversationMode(parts[1]) {
		case session.ModeAuto, session.ModeGeneral, session.ModeClinical:
			m.mode = session.ConversationMode(parts[1])
			m.panel = "Conversation mode: " + parts[1]
		default:
			m.errText = "usage: /mode <auto|general|clinical>"
			return m, nil
		}
		m.textinput.Reset()
		return m, nil

	case "/web":
		m.useWeb = !m.useWeb
		m.panel = fmt.Sprintf("Web sources: %v", m.useWeb)
		m.textinput.Reset()
		return m, nil

	case "/catalog":
		m.includeCatalog = !m.includeCatalog
		m.panel = fmt.Sprintf("Protocol catalog: %v", m.includeCatalog)
		m.textinput.Reset()
		return m, nil

	case "/memory":
		m.panel = m.renderMemoryPanel()
		m.textinput.Reset()
		return m, nil

	case "/trace":
		m.panel = m.renderTracePanel()
		m.textinput.Reset()
		return m, nil

	default:
		m.errText = "unknown command: " + cmd + " (see /help)"
		return m, nil
	}
}

func (m consoleModel) loginCmd(username, password string) tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), consoleTimeout)
		defer cancel()

		identity, err := eng.session.Login(ctx, username, password)
		if err != nil {
			return errMsg{err}
		}
		if err := eng.session.LoadSelectedConversation(ctx); err != nil {
			return errMsg{err}
		}
		return validatedMsg{identity: identity}
	}
}

func (m consoleModel) newCaseCmd(title, patientRef string) tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), consoleTimeout)
		defer cancel()

		if _, err := eng.session.CreateTask(ctx, title, patientRef); err != nil {
			return errMsg{err}
		}
		if err := eng.session.LoadSelectedConversation(ctx); err != nil {
			return errMsg{err}
		}
		return conversationMsg{}
	}
}

func (m consoleModel) tasksCmd() tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), consoleTimeout)
		defer cancel()

		if err := eng.session.RefreshTasks(ctx); err != nil {
			return errMsg{err}
		}

		tasks := eng.session.Tasks()
		if len(tasks) == 0 {
			return panelMsg("No care tasks.")
		}
		selected, _ := eng.session.SelectedTask()

		var sb strings.Builder
		sb.WriteString("Care tasks:\n")
		for _, task := range tasks {
			marker := "  "
			if task.ID == selected.ID {
				marker = "* "
			}
			sb.WriteString(fmt.Sprintf("%s#%-4d %-10s %s\n", marker, task.ID, task.ClinicalPriority, task.Title))
		}
		sb.WriteString("Use /case <id> to switch.")
		return panelMsg(sb.String())
	}
}

func (m consoleModel) renderMemoryPanel() string {
	memory := m.engine.session.Memory()
	if memory == nil {
		return "No memory snapshot loaded."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Session memory — %d interactions\n", memory.InteractionsCount))
	if len(memory.TopDomains) > 0 {
		sb.WriteString("Domains: " + strings.Join(memory.TopDomains, ", ") + "\n")
	}
	if len(memory.TopExtractedFacts) > 0 {
		sb.WriteString("Facts:\n")
		for _, fact := range memory.TopExtractedFacts {
			sb.WriteString("  - " + fact + "\n")
		}
	}
	if memory.PatientReference != nil {
		sb.WriteString(fmt.Sprintf("Patient %s — %d interactions\n", *memory.PatientReference, memory.PatientInteractionsCount))
		if len(memory.PatientTopDomains) > 0 {
			sb.WriteString("Patient domains: " + strings.Join(memory.PatientTopDomains, ", ") + "\n")
		}
		for _, fact := range memory.PatientTopExtractedFacts {
			sb.WriteString("  - " + fact + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m consoleModel) renderTracePanel() string {
	resp := m.engine.session.LastResponse()
	if resp == nil {
		return "No response yet."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Last response — mode: %s, tool: %s, workflow: %s\n",
		resp.ResponseMode, resp.ToolMode, resp.WorkflowName))
	sb.WriteString(fmt.Sprintf("Sources: %d knowledge, %d web\n",
		len(resp.KnowledgeSources), len(resp.WebSources)))
	sb.WriteString(fmt.Sprintf("llm_used: %s  llm_endpoint: %s\n",
		session.TraceValue(resp.InterpretabilityTrace, "llm_used"),
		session.TraceValue(resp.InterpretabilityTrace, "llm_endpoint")))
	sb.WriteString(fmt.Sprintf("query_expanded: %s  matched_endpoints: %s\n",
		session.TraceValue(resp.InterpretabilityTrace, "query_expanded"),
		session.TraceValue(resp.InterpretabilityTrace, "matched_endpoints")))
	if len(resp.InterpretabilityTrace) > 0 {
		sb.WriteString("Trace:\n")
		for _, entry := range resp.InterpretabilityTrace {
			sb.WriteString("  " + entry + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderToolCatalog(active session.ToolMode) string {
	var sb strings.Builder
	sb.WriteString("Assistant tools:\n")
	for _, tool := range session.ToolCatalog {
		marker := "  "
		if tool.Key == active {
			marker = "* "
		}
		sb.WriteString(fmt.Sprintf("%s%-12s %s\n", marker, tool.Key, tool.Hint))
	}
	sb.WriteString("Use /tool <key> to switch.")
	return sb.String()
}

func validTool(key session.ToolMode) bool {
	for _, tool := range session.ToolCatalog {
		if tool.Key == key {
			return true
		}
	}
	return false
}

const helpText = `Commands:
  /login <user> <pass>     Authenticate against the backend
  /logout                  Clear the stored token (local only)
  /session [new|<id>]      Show, rotate or switch the session id
  /case <id>               Select a care task
  /newcase <title...> [@patientRef]
                           Create and select a care task
  /tasks                   Refresh and list care tasks
  /tool [key]              Show the tool catalog or switch tool
  /mode <auto|general|clinical>
                           Set the conversation mode
  /web                     Toggle web sources
  /catalog                 Toggle the protocol catalog
  /memory                  Show the memory snapshot
  /trace                   Show the last response trace
  /quit                    Exit`
