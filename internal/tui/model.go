// Package tui is the interactive terminal front end: one input for the video
// URL, one for questions, and a scrolling log of the conversation.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"videorag/internal/domain"
	"videorag/internal/service"
)

// SessionPort is the TUI-facing subset of a session.
type SessionPort interface {
	Ingest(ctx context.Context, ref string) (domain.IngestResult, error)
	Ask(ctx context.Context, question string) string
}

type focus int

const (
	focusURL focus = iota
	focusQuestion
)

type ingestDoneMsg struct {
	result domain.IngestResult
	err    error
}

type answerMsg struct {
	question string
	answer   string
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx      context.Context
	session  SessionPort
	url      textinput.Model
	question textinput.Model
	viewport viewport.Model
	focus    focus
	turns    []domain.Turn
	summary  string
	status   string
	busy     bool
	ready    bool
}

// New creates a new TUI model instance. ref, when set, pre-fills the URL input.
func New(ctx context.Context, session SessionPort, ref string) Model {
	url := textinput.New()
	url.Prompt = "URL > "
	url.Placeholder = "YouTube URL or video id, then Enter"
	url.CharLimit = 0
	url.SetValue(ref)
	url.Focus()

	q := textinput.New()
	q.Prompt = "Ask > "
	q.Placeholder = "Type a question and press Enter"
	q.CharLimit = 0

	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		session:  session,
		url:      url,
		question: q,
		viewport: vp,
		status:   "Enter a video URL. Tab switches fields.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and completion events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, lh := logBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + 2*(ih+1) // header and summary, status, two inputs
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-lh)
		m.refreshLog()
		return m, nil
	case ingestDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = service.IngestErrorText(msg.err)
			return m, nil
		}
		m.status = service.IngestSuccessText(msg.result)
		m.summary = msg.result.Summary
		m.turns = nil
		m.refreshLog()
		cmd := m.setFocus(focusQuestion)
		return m, cmd
	case answerMsg:
		m.busy = false
		m.status = "Ready."
		m.turns = append(m.turns, domain.Turn{Question: msg.question, Answer: msg.answer})
		m.refreshLog()
		m.viewport.GotoBottom()
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab, tea.KeyShiftTab:
			next := focusQuestion
			if m.focus == focusQuestion {
				next = focusURL
			}
			cmd := m.setFocus(next)
			return m, cmd
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			return m.submit()
		}
	}
	var cmd tea.Cmd
	if m.focus == focusURL {
		m.url, cmd = m.url.Update(msg)
	} else {
		m.question, cmd = m.question.Update(msg)
	}
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.busy {
		m.status = "Still working, please wait."
		return m, nil
	}
	switch m.focus {
	case focusURL:
		ref := strings.TrimSpace(m.url.Value())
		if ref == "" {
			return m, nil
		}
		m.busy = true
		m.status = "Fetching transcript..."
		return m, m.ingest(ref)
	default:
		q := strings.TrimSpace(m.question.Value())
		if q == "" {
			return m, nil
		}
		m.busy = true
		m.status = "Thinking..."
		m.question.Reset()
		return m, m.ask(q)
	}
}

func (m Model) ingest(ref string) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		res, err := session.Ingest(ctx, ref)
		return ingestDoneMsg{result: res, err: err}
	}
}

func (m Model) ask(q string) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		return answerMsg{question: q, answer: session.Ask(ctx, q)}
	}
}

func (m *Model) setFocus(f focus) tea.Cmd {
	m.focus = f
	if f == focusURL {
		m.question.Blur()
		return m.url.Focus()
	}
	m.url.Blur()
	return m.question.Focus()
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Video Q&A")
	summary := summaryStyle.Render(m.summary)
	log := logBoxStyle.Render(m.viewport.View())
	url := inputBoxStyle.Render(m.url.View())
	question := inputBoxStyle.Render(m.question.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + summary + "\n" + log + "\n" + url + "\n" + question + "\n" + status
}

func (m *Model) refreshLog() {
	m.viewport.SetContent(renderTurns(m.turns, m.viewport.Width))
}

func renderTurns(turns []domain.Turn, width int) string {
	if len(turns) == 0 {
		return "No questions yet."
	}
	wrap := lipgloss.NewStyle().Width(max(10, width-4))
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(userStyle.Render("You: "))
		b.WriteString(wrap.Render(t.Question))
		b.WriteString("\n")
		b.WriteString(assistantStyle.Render("Assistant: "))
		b.WriteString(wrap.Render(t.Answer))
	}
	return b.String()
}

var (
	logBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	summaryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)
