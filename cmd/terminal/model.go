package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sevigo/code-mentor/internal/core"
)

const asciiLogo = `
 ██████╗ ██████╗ ██████╗ ███████╗   ███╗   ███╗███████╗███╗   ██╗████████╗ ██████╗ ██████╗
██╔════╝██╔═══██╗██╔══██╗██╔════╝   ████╗ ████║██╔════╝████╗  ██║╚══██╔══╝██╔═══██╗██╔══██╗
██║     ██║   ██║██║  ██║█████╗     ██╔████╔██║█████╗  ██╔██╗ ██║   ██║   ██║   ██║██████╔╝
██║     ██║   ██║██║  ██║██╔══╝     ██║╚██╔╝██║██╔══╝  ██║╚██╗██║   ██║   ██║   ██║██╔══██╗
╚██████╗╚██████╔╝██████╔╝███████╗   ██║ ╚═╝ ██║███████╗██║ ╚████║   ██║   ╚██████╔╝██║  ██║
 ╚═════╝ ╚═════╝ ╚═════╝ ╚══════╝   ╚═╝     ╚═╝╚══════╝╚═╝  ╚═══╝   ╚═╝    ╚═════╝ ╚═╝  ╚═╝

                          EMPATHETIC CODE REVIEW v1.0
`

type model struct {
	styles   styles
	pipeline *reviewPipeline
	offline  bool

	// UI Components
	viewport  viewport.Model
	textarea  textarea.Model
	spinner   spinner.Model
	isLoading bool

	// Session State
	snippetSource string // file the snippet came from, for status display
	snippet       string
	language      string
	comments      []string
	lastReport    string // raw Markdown of the most recent review
	history       []string
}

func initialModel(theme ThemeName) *model {
	styles := GetTheme(theme)
	ta := textarea.New()
	ta.Placeholder = "Enter a review comment or a /command..."
	ta.Focus()
	ta.Prompt = styles.prompt.Render("► ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))

	return &model{
		styles:    styles,
		textarea:  ta,
		spinner:   sp,
		isLoading: true,
		history:   []string{styles.ascii.Render(asciiLogo), "", "⚙ PREPARING REVIEW PIPELINE..."},
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(initializePipelineCmd(), m.spinner.Tick)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	m.spinner, spCmd = m.spinner.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}

			m.textarea.Reset()
			return m, m.processCommand(input)
		}

	case pipelineReadyMsg:
		m.isLoading = false
		if msg.err != nil {
			m.append("", m.styles.error.Render(msg.err.Error()))
			return m, nil
		}
		m.pipeline = msg.pipeline
		m.offline = msg.offline
		m.append("", m.styles.success.Render("✓ SYSTEM ONLINE"))
		if m.offline {
			m.append(m.styles.inactive.Render("No language model reachable; using the rule-based deriver."))
		}
		m.append("", "Load a snippet with /snippet, queue comments, then /review. Type /help for all commands.")
		return m, nil

	case reviewDoneMsg:
		m.isLoading = false
		if msg.err != nil {
			m.append("", m.styles.error.Render("REVIEW FAILED: "+msg.err.Error()))
			return m, nil
		}
		m.lastReport = msg.markdown
		m.append("", m.styles.success.Render(fmt.Sprintf("✓ REPORT READY (%d section(s))", msg.sections)), "", msg.rendered)
		m.append(m.styles.inactive.Render("Use '/save [file]' to keep the Markdown."))
		return m, nil

	case reportSavedMsg:
		if msg.err != nil {
			m.append("", m.styles.error.Render(msg.err.Error()))
		} else {
			m.append("", m.styles.success.Render("✓ Report written to "+msg.path))
		}
		return m, nil

	case errorMsg:
		m.isLoading = false
		m.append("", m.styles.error.Render("⚠ "+msg.err.Error()))
		return m, nil

	case tea.WindowSizeMsg:
		m.styles.header.Width(msg.Width - 4)
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 10
		m.textarea.SetWidth(msg.Width - 10)
		m.viewport.SetContent(strings.Join(m.history, "\n"))
	}

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m *model) View() string {
	if m.pipeline == nil && m.isLoading {
		return fmt.Sprintf("\n  %s BOOTING SYSTEM...\n\n", m.spinner.View())
	}

	var statusParts []string
	if m.snippetSource != "" {
		statusParts = append(statusParts, fmt.Sprintf("SNIPPET: %s", m.snippetSource))
	} else {
		statusParts = append(statusParts, "SNIPPET: None Loaded")
	}
	if m.language != "" {
		statusParts = append(statusParts, fmt.Sprintf("LANG: %s", m.language))
	}
	statusParts = append(statusParts, fmt.Sprintf("COMMENTS: %d", len(m.comments)))

	if m.offline {
		statusParts = append(statusParts, m.styles.inactive.Render("○ RULE-BASED"))
	} else if m.pipeline != nil {
		statusParts = append(statusParts, fmt.Sprintf("🤖 %s (%s)", m.pipeline.cfg.GeneratorModelName, m.pipeline.cfg.LLMProvider))
	}

	status := m.styles.inactive.Render(strings.Join(statusParts, " │ "))

	var loadingIndicator string
	if m.isLoading {
		loadingIndicator = " " + m.spinner.View() + " " + m.styles.success.Render("PROCESSING...")
	}

	return m.styles.app.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.styles.viewport.Render(m.viewport.View()),
			"",
			m.styles.footer.Render(
				lipgloss.JoinHorizontal(lipgloss.Left,
					m.textarea.View(),
					loadingIndicator,
				),
			),
			status,
		),
	)
}

// append adds lines to the scrollback and keeps the viewport pinned to the
// bottom.
func (m *model) append(lines ...string) {
	m.history = append(m.history, lines...)
	m.viewport.SetContent(strings.Join(m.history, "\n"))
	m.viewport.GotoBottom()
}

func (m *model) processCommand(input string) tea.Cmd {
	m.append(m.styles.prompt.Render("► ") + input)

	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}
	command := parts[0]
	args := parts[1:]

	switch command {
	case "/snippet":
		if len(args) != 1 {
			m.append(m.styles.error.Render("USAGE: /snippet [path_to_file]"))
			return nil
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			m.append(m.styles.error.Render("Could not read snippet: " + err.Error()))
			return nil
		}
		m.snippet = string(data)
		m.snippetSource = args[0]
		m.append(m.styles.success.Render(fmt.Sprintf("✓ Snippet loaded from %s (%d bytes)", args[0], len(data))))
		return nil

	case "/lang":
		if len(args) != 1 {
			m.append(m.styles.error.Render("USAGE: /lang [name]"))
			return nil
		}
		m.language = args[0]
		m.append(m.styles.success.Render("✓ Language set to " + m.language))
		return nil

	case "/comment", "/c":
		if len(args) < 1 {
			m.append(m.styles.error.Render("USAGE: /comment [review comment text]"))
			return nil
		}
		m.comments = append(m.comments, strings.Join(args, " "))
		m.append(m.styles.command.Render(fmt.Sprintf("→ Comment #%d queued.", len(m.comments))))
		return nil

	case "/list", "/ls":
		if len(m.comments) == 0 {
			m.append(m.styles.inactive.Render("No comments queued yet. Type one directly or use '/comment [text]'."))
			return nil
		}
		var b strings.Builder
		b.WriteString(m.styles.success.Render("QUEUED COMMENTS:"))
		for i, c := range m.comments {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, c))
		}
		m.append(b.String())
		return nil

	case "/clear":
		m.comments = nil
		m.lastReport = ""
		m.append(m.styles.success.Render("✓ Comment queue cleared."))
		return nil

	case "/review":
		if m.pipeline == nil {
			m.append(m.styles.error.Render("The review pipeline is not ready yet."))
			return nil
		}
		if m.snippet == "" && len(m.comments) == 0 {
			m.append(m.styles.error.Render("Nothing to review. Load a snippet with /snippet or queue comments first."))
			return nil
		}
		req := &core.ReviewRequest{
			CodeSnippet:    m.snippet,
			ReviewComments: m.comments,
			Language:       m.language,
		}
		m.isLoading = true
		m.append("", m.styles.command.Render(fmt.Sprintf("→ GENERATING REPORT for %d comment(s)... (this may take a while)", len(m.comments))))
		return tea.Batch(m.spinner.Tick, generateReviewCmd(m.pipeline, req.Snippet(), req.Comments(), m.viewport.Width))

	case "/save":
		if len(args) != 1 {
			m.append(m.styles.error.Render("USAGE: /save [path_to_file]"))
			return nil
		}
		if m.lastReport == "" {
			m.append(m.styles.error.Render("No report to save yet. Run /review first."))
			return nil
		}
		return saveReportCmd(args[0], m.lastReport)

	case "/theme":
		if len(args) != 1 {
			names := make([]string, 0, len(ListThemes()))
			for _, t := range ListThemes() {
				names = append(names, string(t))
			}
			m.append(m.styles.inactive.Render("USAGE: /theme [" + strings.Join(names, "|") + "]"))
			return nil
		}
		m.styles = GetTheme(ThemeName(args[0]))
		m.textarea.Prompt = m.styles.prompt.Render("► ")
		m.append(m.styles.success.Render("✓ Theme set to " + args[0]))
		return nil

	case "/help", "/h":
		helpText := m.styles.success.Render("AVAILABLE COMMANDS:") + `

  /snippet [path]      Load the code snippet under review from a file.
  /lang [name]         Set the language tag for code fences.
  /comment [text]      Queue a review comment (or just type the comment).
  /list, /ls           List all queued comments.
  /clear               Drop queued comments and the last report.
  /review              Generate the empathetic review report.
  /save [path]         Write the last report's Markdown to a file.
  /theme [name]        Switch the color theme.
  /help                Show this help message.
  /exit, /quit         Exit Code-Mentor.

  ` + m.styles.inactive.Render("TIP: Any input without a leading / is queued as a review comment.")
		m.append("", helpText)
		return nil

	case "/exit", "/quit":
		return tea.Quit

	default:
		if strings.HasPrefix(command, "/") {
			m.append("", m.styles.error.Render(fmt.Sprintf("UNKNOWN COMMAND: %s", command)), m.styles.inactive.Render("Type /help for assistance."))
			return nil
		}
		// Bare input is a review comment.
		m.comments = append(m.comments, input)
		m.append(m.styles.command.Render(fmt.Sprintf("→ Comment #%d queued.", len(m.comments))))
		return nil
	}
}
