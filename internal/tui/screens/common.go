package screens

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/emilianohg/studytrack/internal/models"
	"github.com/emilianohg/studytrack/internal/viewmodel"
)

// NavigateMsg is sent when navigation to another screen is requested
type NavigateMsg struct {
	Screen    string
	SubjectID int64
	TaskID    int64
}

func Navigate(screen string) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{Screen: screen}
	}
}

func NavigateWithSubject(screen string, subjectID int64) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{Screen: screen, SubjectID: subjectID}
	}
}

func NavigateToTask(taskID, subjectID int64) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{Screen: "task", TaskID: taskID, SubjectID: subjectID}
	}
}

// BackMsg pops the current screen.
type BackMsg struct{}

func Back() tea.Cmd {
	return func() tea.Msg { return BackMsg{} }
}

// listen delivers the next value of ch wrapped as a message. A closed
// channel ends the loop.
func listen[T any](ch <-chan T, wrap func(T) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return nil
		}
		return wrap(v)
	}
}

type eventMsg struct {
	event viewmodel.Event
}

type noticeExpiredMsg struct {
	id uuid.UUID
}

// notices shows the latest notice of a view model until it expires.
type notices struct {
	events <-chan viewmodel.Event
	stop   func()
	last   viewmodel.Notice
}

func (n *notices) attach(e *viewmodel.Events) tea.Cmd {
	n.detach()
	n.events, n.stop = e.Listen()
	return n.next()
}

func (n *notices) detach() {
	if n.stop != nil {
		n.stop()
		n.stop = nil
	}
}

func (n *notices) next() tea.Cmd {
	return listen(n.events, func(ev viewmodel.Event) tea.Msg { return eventMsg{event: ev} })
}

// handle consumes notice messages. navigateUp is true when the view model asked to leave.
func (n *notices) handle(msg tea.Msg) (cmd tea.Cmd, handled, navigateUp bool) {
	switch msg := msg.(type) {
	case eventMsg:
		switch ev := msg.event.(type) {
		case viewmodel.Notice:
			n.last = ev
			ttl := 3 * time.Second
			if ev.Duration == viewmodel.Long {
				ttl = 8 * time.Second
			}
			expire := tea.Tick(ttl, func(time.Time) tea.Msg { return noticeExpiredMsg{id: ev.ID} })
			return tea.Batch(n.next(), expire), true, false
		case viewmodel.NavigateUp:
			return n.next(), true, true
		}
		return n.next(), true, false
	case noticeExpiredMsg:
		if n.last.ID == msg.id {
			n.last = viewmodel.Notice{}
		}
		return nil, true, false
	}
	return nil, false, false
}

func (n *notices) View() string {
	if n.last.Message == "" {
		return ""
	}
	switch n.last.Kind {
	case viewmodel.KindPersistence:
		return ErrorStyle.Render(n.last.Message) + "\n\n"
	case viewmodel.KindValidation:
		return WarningStyle.Render(n.last.Message) + "\n\n"
	}
	return SuccessStyle.Render(n.last.Message) + "\n\n"
}

func formatDate(millis int64) string {
	return time.UnixMilli(millis).Format("Jan 02, 2006")
}

func formatHours(h float64) string {
	return fmt.Sprintf("%.2fh", h)
}

func priorityStyle(p models.Priority) lipgloss.Style {
	switch p {
	case models.PriorityHigh:
		return ErrorStyle
	case models.PriorityLow:
		return SuccessStyle
	}
	return WarningStyle
}

// swatch renders a subject palette as colored blocks.
func swatch(colors []string) string {
	var b strings.Builder
	for _, c := range colors {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(c)).Render("█"))
	}
	return b.String()
}

func progressBar(p float64, width int) string {
	filled := int(p * float64(width))
	return SuccessStyle.Render(strings.Repeat("█", filled)) + DimStyle.Render(strings.Repeat("░", width-filled))
}

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginBottom(1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	NormalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)

	TimerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Padding(0, 1)
)
