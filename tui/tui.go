// Package tui is a terminal interface for the log search session.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pierredavidbelanger/logscope/session"
)

var fieldLabels = map[session.Field]string{
	session.FieldSearch:           "Search",
	session.FieldLevel:            "Level",
	session.FieldResourceID:       "Resource ID",
	session.FieldTraceID:          "Trace ID",
	session.FieldSpanID:           "Span ID",
	session.FieldCommit:           "Commit",
	session.FieldParentResourceID: "Parent resource",
	session.FieldStartTime:        "Start time",
	session.FieldEndTime:          "End time",
	session.FieldRegex:            "Regex",
	session.FieldMessage:          "Message",
}

var fieldPlaceholders = map[session.Field]string{
	session.FieldSearch:    "Search logs...",
	session.FieldLevel:     "debug, info, warn, error",
	session.FieldStartTime: "2006-01-02T15:04",
	session.FieldEndTime:   "2006-01-02T15:04",
}

type searchDoneMsg struct {
	session session.Session
}

// Model is the bubbletea model of the search screen.
type Model struct {
	ctx      context.Context
	ctrl     *session.Controller
	loc      *time.Location
	inputs   []textinput.Model
	focus    int
	advanced bool
	selected int
	pending  int
	detail   bool
	detailVP viewport.Model
	status   string
	width    int
	height   int
	session  session.Session
}

func New(ctx context.Context, ctrl *session.Controller, loc *time.Location) *Model {
	if loc == nil {
		loc = time.Local
	}
	m := &Model{
		ctx:      ctx,
		ctrl:     ctrl,
		loc:      loc,
		detailVP: viewport.New(80, 20),
		width:    100,
		height:   30,
		session:  ctrl.Session(),
	}
	for _, field := range session.Fields {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = fieldPlaceholders[field]
		in.CharLimit = 512
		in.Width = 48
		in.SetValue(ctrl.Form().Get(field))
		m.inputs = append(m.inputs, in)
	}
	m.inputs[0].Focus()
	return m
}

// Run starts the terminal interface and blocks until the user quits.
func Run(ctx context.Context, ctrl *session.Controller, loc *time.Location) error {
	p := tea.NewProgram(New(ctx, ctrl, loc), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.trigger())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.detailVP.Width = msg.Width - 4
		m.detailVP.Height = msg.Height - 6
		return m, nil

	case searchDoneMsg:
		if m.pending > 0 {
			m.pending--
		}
		m.session = m.ctrl.Session()
		if m.selected >= len(m.session.Entries) {
			m.selected = 0
		}
		return m, nil

	case tea.KeyMsg:
		if m.detail {
			return m.handleDetailKey(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter":
		return m, m.trigger()
	case "ctrl+n", "pgdown":
		if !m.session.HasNext() {
			return m, nil
		}
		return m, m.navigate(1)
	case "ctrl+p", "pgup":
		if !m.session.HasPrev() {
			return m, nil
		}
		return m, m.navigate(-1)
	case "ctrl+l":
		m.ctrl.ClearFilters()
		for i := range m.inputs {
			m.inputs[i].SetValue("")
		}
		m.status = "Filters cleared"
		return m, nil
	case "ctrl+a":
		m.advanced = !m.advanced
		if !m.advanced {
			m.setFocus(0)
		}
		return m, nil
	case "tab":
		m.setFocus(m.focus + 1)
		return m, nil
	case "shift+tab":
		m.setFocus(m.focus - 1)
		return m, nil
	case "up":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "down":
		if m.selected < len(m.session.Entries)-1 {
			m.selected++
		}
		return m, nil
	case "ctrl+o":
		m.openDetail()
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "q", "ctrl+o":
		m.detail = false
		return m, nil
	}
	var cmd tea.Cmd
	m.detailVP, cmd = m.detailVP.Update(msg)
	return m, cmd
}

func (m *Model) visibleInputs() int {
	if m.advanced {
		return len(m.inputs)
	}
	return 1
}

func (m *Model) setFocus(i int) {
	n := m.visibleInputs()
	i = (i%n + n) % n
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
}

func (m *Model) syncForm() {
	form := m.ctrl.Form()
	for i, field := range session.Fields {
		form.Set(field, m.inputs[i].Value())
	}
}

// trigger copies the inputs into the form and starts a new search.
func (m *Model) trigger() tea.Cmd {
	m.syncForm()
	m.pending++
	m.status = ""
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return searchDoneMsg{ctrl.Trigger(ctx)}
	}
}

func (m *Model) navigate(delta int) tea.Cmd {
	m.pending++
	m.status = ""
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		if delta > 0 {
			s, _ := ctrl.NextPage(ctx)
			return searchDoneMsg{s}
		}
		s, _ := ctrl.PrevPage(ctx)
		return searchDoneMsg{s}
	}
}

func (m *Model) openDetail() {
	if m.selected >= len(m.session.Entries) {
		return
	}
	_, text, err := m.ctrl.Detail(m.session.Entries[m.selected].ID)
	if err != nil {
		m.status = fmt.Sprintf("Unable to show details: %s", err)
		return
	}
	m.detailVP.SetContent(text)
	m.detailVP.GotoTop()
	m.detail = true
}

func (m *Model) View() string {
	if m.detail {
		return m.viewDetail()
	}

	sb := strings.Builder{}
	sb.WriteString(m.viewFilters())
	sb.WriteString("\n")
	sb.WriteString(m.viewResults())
	sb.WriteString("\n")
	sb.WriteString(m.viewPagination())
	sb.WriteString("\n")
	if m.status != "" {
		sb.WriteString(subtleStyle.Render(m.status))
		sb.WriteString("\n")
	}
	sb.WriteString(subtleStyle.Render("enter search • tab next field • ctrl+a advanced • ctrl+l clear • ↑/↓ select • ctrl+o details • ctrl+p/ctrl+n page • ctrl+c quit"))
	return sb.String()
}

func (m *Model) viewFilters() string {
	sb := strings.Builder{}
	for i := 0; i < m.visibleInputs(); i++ {
		sb.WriteString(labelStyle.Render(fieldLabels[session.Fields[i]]))
		sb.WriteString(m.inputs[i].View())
		sb.WriteString("\n")
	}
	if !m.advanced {
		sb.WriteString(subtleStyle.Render("Advanced filters hidden (ctrl+a)"))
		sb.WriteString("\n")
	}
	return boxStyle.Render(strings.TrimSuffix(sb.String(), "\n"))
}

func (m *Model) viewResults() string {
	s := m.session
	sb := strings.Builder{}

	title := titleStyle.Render("Logs") + " " + textStyle.Render(s.CountLabel())
	if m.pending > 0 {
		title += " " + subtleStyle.Render("searching...")
	}
	sb.WriteString(title)
	sb.WriteString("\n")

	if msg := s.Message(); msg != "" && len(s.Entries) == 0 {
		if s.State == session.StateError {
			sb.WriteString(errorStyle.Render(msg))
		} else {
			sb.WriteString(subtleStyle.Render(msg))
		}
		sb.WriteString("\n")
		return sb.String()
	}

	for i, e := range s.Entries {
		r := e.Record
		header := fmt.Sprintf("%s %s", levelBadge(r.Level), subtleStyle.Render(r.Timestamp.In(m.loc).Format("2006-01-02 15:04:05")))
		message := r.Message
		if i == m.selected {
			message = selectedStyle.Render(message)
		} else {
			message = textStyle.Render(message)
		}
		details := subtleStyle.Render(fmt.Sprintf("  resource: %s  trace: %s  commit: %s", dash(r.ResourceID), dash(r.TraceID), dash(r.Commit)))
		sb.WriteString(header + " " + message + "\n" + details + "\n")
	}

	return sb.String()
}

func (m *Model) viewPagination() string {
	s := m.session
	prev := subtleStyle.Render("‹ prev")
	if s.HasPrev() {
		prev = enabledStyle.Render("‹ prev")
	}
	next := subtleStyle.Render("next ›")
	if s.HasNext() {
		next = enabledStyle.Render("next ›")
	}
	return fmt.Sprintf("%s  %s  %s", prev, textStyle.Render(s.PageLabel()), next)
}

func (m *Model) viewDetail() string {
	sb := strings.Builder{}
	sb.WriteString(titleStyle.Render("Log details"))
	sb.WriteString("\n")
	sb.WriteString(boxStyle.Render(m.detailVP.View()))
	sb.WriteString("\n")
	sb.WriteString(subtleStyle.Render("↑/↓ scroll • esc close"))
	return sb.String()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
