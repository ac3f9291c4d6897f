package screens

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/emilianohg/studytrack/internal/models"
	"github.com/emilianohg/studytrack/internal/reactive"
	"github.com/emilianohg/studytrack/internal/timer"
	"github.com/emilianohg/studytrack/internal/viewmodel"
)

type sessionMode int

const (
	sessionModeTimer sessionMode = iota
	sessionModePick
	sessionModeDelete
)

// Session is the timer screen. The timer keeps running after the screen
// is left; only the view of it goes away.
type Session struct {
	vm     *viewmodel.Session
	width  int
	height int

	state  viewmodel.SessionState
	snap   timer.Snapshot
	loaded bool

	mode          sessionMode
	subjectCursor int
	sessionCursor int

	gen       int
	stateSub  *reactive.Subscription[viewmodel.SessionState]
	listening bool
	notices   notices
}

func NewSession(vm *viewmodel.Session) *Session {
	return &Session{vm: vm, snap: vm.TimerSnapshot()}
}

func (s *Session) SetSize(width, height int) {
	s.width = width
	s.height = height
}

type sessionStateMsg struct {
	gen   int
	state viewmodel.SessionState
}

type timerMsg struct {
	snap timer.Snapshot
}

func (s *Session) Init() tea.Cmd {
	s.Close()
	s.gen++
	s.mode = sessionModeTimer
	s.stateSub = s.vm.State().Subscribe()

	cmds := []tea.Cmd{s.nextState(), s.notices.attach(s.vm.Events())}
	if !s.listening {
		s.listening = true
		cmds = append(cmds, s.nextTick())
	}
	return tea.Batch(cmds...)
}

// Close releases the state subscription. The timer feed belongs to the view
// model and ends when the view model is closed.
func (s *Session) Close() {
	if s.stateSub != nil {
		s.stateSub.Close()
		s.stateSub = nil
	}
	s.notices.detach()
}

func (s *Session) nextState() tea.Cmd {
	gen := s.gen
	return listen(s.stateSub.C, func(st viewmodel.SessionState) tea.Msg { return sessionStateMsg{gen, st} })
}

func (s *Session) nextTick() tea.Cmd {
	return listen(s.vm.Timer(), func(snap timer.Snapshot) tea.Msg { return timerMsg{snap} })
}

func (s *Session) Update(msg tea.Msg) tea.Cmd {
	if cmd, handled, _ := s.notices.handle(msg); handled {
		return cmd
	}

	switch msg := msg.(type) {
	case sessionStateMsg:
		if msg.gen != s.gen || s.stateSub == nil {
			return nil
		}
		s.state = msg.state
		s.loaded = true
		if s.sessionCursor >= len(s.state.Sessions) {
			s.sessionCursor = max(0, len(s.state.Sessions)-1)
		}
		if s.subjectCursor >= len(s.state.Subjects) {
			s.subjectCursor = max(0, len(s.state.Subjects)-1)
		}
		return s.nextState()

	case timerMsg:
		s.snap = msg.snap
		return s.nextTick()

	case tea.KeyMsg:
		switch s.mode {
		case sessionModePick:
			return s.handlePickKey(msg)
		case sessionModeDelete:
			return s.handleDeleteKey(msg)
		}
		return s.handleTimerKey(msg)
	}
	return nil
}

func (s *Session) handleTimerKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "q":
		return Back()
	case "enter", "g":
		s.mode = sessionModePick
		for i, subj := range s.state.Subjects {
			if subj.ID == s.state.Form.SubjectID {
				s.subjectCursor = i
			}
		}
	case "s":
		s.vm.Start()
	case "p":
		s.vm.Stop()
	case "c":
		s.vm.Cancel()
	case "f":
		s.vm.Finish()
	case "up", "k":
		if s.sessionCursor > 0 {
			s.sessionCursor--
		}
	case "down", "j":
		if s.sessionCursor < len(s.state.Sessions)-1 {
			s.sessionCursor++
		}
	case "d":
		if len(s.state.Sessions) > 0 {
			s.mode = sessionModeDelete
		}
	}
	return nil
}

func (s *Session) handlePickKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		s.mode = sessionModeTimer
	case "up", "k":
		if s.subjectCursor > 0 {
			s.subjectCursor--
		}
	case "down", "j":
		if s.subjectCursor < len(s.state.Subjects)-1 {
			s.subjectCursor++
		}
	case "enter":
		if len(s.state.Subjects) > 0 {
			s.vm.SelectSubject(s.state.Subjects[s.subjectCursor])
		}
		s.mode = sessionModeTimer
	}
	return nil
}

func (s *Session) handleDeleteKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		s.vm.DeleteSession(s.state.Sessions[s.sessionCursor])
		s.mode = sessionModeTimer
	case "n", "N", "esc":
		s.mode = sessionModeTimer
	}
	return nil
}

func (s *Session) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("STUDY SESSION"))
	b.WriteString("\n\n")

	b.WriteString(s.notices.View())

	if !s.loaded {
		b.WriteString("Loading...\n")
		return b.String()
	}

	switch s.mode {
	case sessionModePick:
		b.WriteString("Select a subject:\n\n")
		if len(s.state.Subjects) == 0 {
			b.WriteString(DimStyle.Render("  No subjects yet. Add one from the dashboard."))
			b.WriteString("\n")
		}
		for i, subj := range s.state.Subjects {
			line := swatch(subj.Colors) + " " + subj.Name
			if i == s.subjectCursor {
				b.WriteString(SelectedStyle.Render("> "+line) + "\n")
			} else {
				b.WriteString(NormalStyle.Render("  "+line) + "\n")
			}
		}
		b.WriteString(HelpStyle.Render("[↑/↓] Navigate  [enter] Select  [esc] Cancel"))
		return b.String()

	case sessionModeDelete:
		if len(s.state.Sessions) > 0 {
			rs := s.state.Sessions[s.sessionCursor]
			b.WriteString(WarningStyle.Render(fmt.Sprintf(
				"Delete the %s session of %s from %s? Studied hours will drop. (y/n)",
				models.FormatHMS(rs.DurationSeconds), rs.SubjectName, formatDate(rs.StartDate))))
			b.WriteString("\n")
			return b.String()
		}
	}

	subject := DimStyle.Render("no subject selected")
	if s.state.Form.SubjectName != "" {
		subject = s.state.Form.SubjectName
	}
	formatted := s.snap.Formatted
	if formatted == "" {
		formatted = models.FormatHMS(s.snap.ElapsedSeconds)
	}
	box := fmt.Sprintf("%s\n%s\n%s", subject, TimerStyle.Render(formatted), DimStyle.Render(s.snap.State.String()))
	b.WriteString(BoxStyle.Render(box))
	b.WriteString("\n\n")

	b.WriteString(SubtitleStyle.Render("Study sessions"))
	b.WriteString("\n")
	if len(s.state.Sessions) == 0 {
		b.WriteString(DimStyle.Render("  No study sessions yet."))
		b.WriteString("\n")
	}
	for i, rs := range s.state.Sessions {
		line := fmt.Sprintf("%s  %s  %s", rs.SubjectName, formatDate(rs.StartDate), models.FormatHMS(rs.DurationSeconds))
		if i == s.sessionCursor {
			b.WriteString(SelectedStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString(NormalStyle.Render("  "+line) + "\n")
		}
	}

	help := "[enter] Subject  [s] Start  [p] Pause  [c] Cancel  [f] Finish  [d] Delete session  [esc] Back"
	b.WriteString(HelpStyle.Render(help))

	return b.String()
}
