package screens

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/emilianohg/studytrack/internal/models"
	"github.com/emilianohg/studytrack/internal/reactive"
	"github.com/emilianohg/studytrack/internal/viewmodel"
)

type subjectPane int

const (
	paneUpcoming subjectPane = iota
	paneCompleted
	paneRecent
	subjectPaneCount
)

type subjectMode int

const (
	subjectModeList subjectMode = iota
	subjectModeEdit
	subjectModeDelete
	subjectModeDeleteSession
)

type Subject struct {
	vm       *viewmodel.Subject
	palettes [][]string
	width    int
	height   int

	state  viewmodel.SubjectState
	loaded bool

	pane    subjectPane
	cursors [subjectPaneCount]int
	mode    subjectMode

	nameInput  textinput.Model
	goalInput  textinput.Model
	focus      int
	paletteIdx int

	gen      int
	stateSub *reactive.Subscription[viewmodel.SubjectState]
	notices  notices
}

func NewSubject(vm *viewmodel.Subject, palettes [][]string) *Subject {
	name := textinput.New()
	name.Placeholder = "Subject name"
	name.CharLimit = 100
	name.Width = 40

	goal := textinput.New()
	goal.Placeholder = "Goal study hours"
	goal.CharLimit = 7
	goal.Width = 20

	return &Subject{
		vm:        vm,
		palettes:  palettes,
		nameInput: name,
		goalInput: goal,
	}
}

func (s *Subject) SetSize(width, height int) {
	s.width = width
	s.height = height
}

type subjectStateMsg struct {
	gen   int
	state viewmodel.SubjectState
}

func (s *Subject) Init() tea.Cmd {
	s.Close()
	s.gen++
	s.mode = subjectModeList
	s.stateSub = s.vm.State().Subscribe()
	return tea.Batch(s.nextState(), s.notices.attach(s.vm.Events()))
}

func (s *Subject) Close() {
	if s.stateSub != nil {
		s.stateSub.Close()
		s.stateSub = nil
	}
	s.notices.detach()
}

func (s *Subject) Capturing() bool { return s.mode == subjectModeEdit }

func (s *Subject) nextState() tea.Cmd {
	gen := s.gen
	return listen(s.stateSub.C, func(st viewmodel.SubjectState) tea.Msg { return subjectStateMsg{gen, st} })
}

func (s *Subject) Update(msg tea.Msg) tea.Cmd {
	if cmd, handled, up := s.notices.handle(msg); handled {
		if up {
			return tea.Batch(cmd, Back())
		}
		return cmd
	}

	switch msg := msg.(type) {
	case subjectStateMsg:
		if msg.gen != s.gen || s.stateSub == nil {
			return nil
		}
		s.state = msg.state
		s.loaded = true
		s.clampCursor(paneUpcoming, len(s.state.Upcoming))
		s.clampCursor(paneCompleted, len(s.state.Completed))
		s.clampCursor(paneRecent, len(s.state.RecentSessions))
		return s.nextState()

	case tea.KeyMsg:
		switch s.mode {
		case subjectModeEdit:
			return s.handleEditKey(msg)
		case subjectModeDelete, subjectModeDeleteSession:
			return s.handleConfirmKey(msg)
		}
		return s.handleListKey(msg)
	}

	if s.mode == subjectModeEdit {
		return s.updateInputs(msg)
	}
	return nil
}

func (s *Subject) clampCursor(p subjectPane, n int) {
	if s.cursors[p] >= n {
		s.cursors[p] = max(0, n-1)
	}
}

func (s *Subject) paneLen() int {
	switch s.pane {
	case paneUpcoming:
		return len(s.state.Upcoming)
	case paneCompleted:
		return len(s.state.Completed)
	}
	return len(s.state.RecentSessions)
}

func (s *Subject) selectedTask() (models.Task, bool) {
	switch {
	case s.pane == paneUpcoming && len(s.state.Upcoming) > 0:
		return s.state.Upcoming[s.cursors[paneUpcoming]], true
	case s.pane == paneCompleted && len(s.state.Completed) > 0:
		return s.state.Completed[s.cursors[paneCompleted]], true
	}
	return models.Task{}, false
}

func (s *Subject) handleListKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "q":
		return Back()
	case "tab":
		s.pane = (s.pane + 1) % subjectPaneCount
	case "shift+tab":
		s.pane = (s.pane + subjectPaneCount - 1) % subjectPaneCount
	case "up", "k":
		if s.cursors[s.pane] > 0 {
			s.cursors[s.pane]--
		}
	case "down", "j":
		if s.cursors[s.pane] < s.paneLen()-1 {
			s.cursors[s.pane]++
		}
	case " ", "x":
		if task, ok := s.selectedTask(); ok {
			s.vm.ToggleTask(task)
		}
	case "enter":
		if task, ok := s.selectedTask(); ok {
			return NavigateToTask(task.ID, 0)
		}
	case "t":
		return NavigateToTask(0, s.vm.SubjectID())
	case "e":
		if s.state.Form.ID == 0 {
			return nil
		}
		s.mode = subjectModeEdit
		s.focus = 0
		s.nameInput.SetValue(s.state.Form.Name)
		s.goalInput.SetValue(s.state.Form.GoalHours)
		s.nameInput.Focus()
		s.goalInput.Blur()
		return textinput.Blink
	case "D":
		s.mode = subjectModeDelete
	case "d":
		if s.pane == paneRecent && len(s.state.RecentSessions) > 0 {
			s.mode = subjectModeDeleteSession
		}
	}
	return nil
}

func (s *Subject) handleEditKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "shift+tab":
		s.focus = 1 - s.focus
		if s.focus == 0 {
			s.nameInput.Focus()
			s.goalInput.Blur()
		} else {
			s.goalInput.Focus()
			s.nameInput.Blur()
		}
		return nil
	case "ctrl+p":
		if len(s.palettes) > 0 {
			s.paletteIdx = (s.paletteIdx + 1) % len(s.palettes)
			s.vm.SetColors(s.palettes[s.paletteIdx])
		}
		return nil
	case "enter":
		s.vm.SetName(s.nameInput.Value())
		s.vm.SetGoalHours(s.goalInput.Value())
		s.vm.UpdateSubject()
		s.mode = subjectModeList
		s.nameInput.Blur()
		s.goalInput.Blur()
		return nil
	case "esc":
		s.mode = subjectModeList
		s.nameInput.Blur()
		s.goalInput.Blur()
		return nil
	}
	return s.updateInputs(msg)
}

func (s *Subject) updateInputs(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if s.focus == 0 {
		s.nameInput, cmd = s.nameInput.Update(msg)
	} else {
		s.goalInput, cmd = s.goalInput.Update(msg)
	}
	return cmd
}

func (s *Subject) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		if s.mode == subjectModeDelete {
			s.vm.DeleteSubject()
		} else if len(s.state.RecentSessions) > 0 {
			s.vm.DeleteSession(s.state.RecentSessions[s.cursors[paneRecent]])
		}
		s.mode = subjectModeList
	case "n", "N", "esc":
		s.mode = subjectModeList
	}
	return nil
}

func (s *Subject) View() string {
	var b strings.Builder

	title := "SUBJECT"
	if s.state.Form.Name != "" {
		title = strings.ToUpper(s.state.Form.Name)
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n\n")

	b.WriteString(s.notices.View())

	if !s.loaded {
		b.WriteString("Loading...\n")
		return b.String()
	}

	switch s.mode {
	case subjectModeEdit:
		b.WriteString("Edit subject\n\n")
		b.WriteString(s.nameInput.View())
		b.WriteString("\n")
		b.WriteString(s.goalInput.View())
		b.WriteString("\n")
		b.WriteString("Colors: " + swatch(s.vm.Form().Colors))
		b.WriteString("\n\n")
		b.WriteString(HelpStyle.Render("[tab] Next field  [ctrl+p] Colors  [enter] Save  [esc] Cancel"))
		return b.String()

	case subjectModeDelete:
		b.WriteString(WarningStyle.Render(fmt.Sprintf(
			"Delete %s with all its tasks and sessions? This cannot be undone. (y/n)", s.state.Form.Name)))
		b.WriteString("\n")
		return b.String()

	case subjectModeDeleteSession:
		if len(s.state.RecentSessions) > 0 {
			rs := s.state.RecentSessions[s.cursors[paneRecent]]
			b.WriteString(WarningStyle.Render(fmt.Sprintf(
				"Delete the %s session from %s? Studied hours will drop. (y/n)",
				models.FormatHMS(rs.DurationSeconds), formatDate(rs.StartDate))))
			b.WriteString("\n")
			return b.String()
		}
	}

	stats := fmt.Sprintf("%s\nStudied hours: %s of %s\n%s %.0f%%",
		swatch(s.state.Form.Colors),
		formatHours(s.state.StudiedHours), s.state.Form.GoalHours+"h",
		progressBar(s.state.Progress, 30), s.state.Progress*100,
	)
	b.WriteString(BoxStyle.Render(stats))
	b.WriteString("\n\n")

	b.WriteString(s.paneTitle(paneUpcoming, "Upcoming tasks"))
	if len(s.state.Upcoming) == 0 {
		b.WriteString(DimStyle.Render("  No upcoming tasks."))
		b.WriteString("\n")
	}
	for i, t := range s.state.Upcoming {
		line := fmt.Sprintf("[ ] %s  %s  %s", t.Title, formatDate(t.DueDate),
			priorityStyle(t.Priority).Render(t.Priority.String()))
		b.WriteString(s.row(paneUpcoming, i, line))
	}
	b.WriteString("\n")

	b.WriteString(s.paneTitle(paneCompleted, "Completed tasks"))
	if len(s.state.Completed) == 0 {
		b.WriteString(DimStyle.Render("  No completed tasks."))
		b.WriteString("\n")
	}
	for i, t := range s.state.Completed {
		line := fmt.Sprintf("[x] %s  %s", t.Title, formatDate(t.DueDate))
		b.WriteString(s.row(paneCompleted, i, line))
	}
	b.WriteString("\n")

	b.WriteString(s.paneTitle(paneRecent, "Recent study sessions"))
	if len(s.state.RecentSessions) == 0 {
		b.WriteString(DimStyle.Render("  No study sessions yet."))
		b.WriteString("\n")
	}
	for i, rs := range s.state.RecentSessions {
		line := fmt.Sprintf("%s  %s", formatDate(rs.StartDate), models.FormatHMS(rs.DurationSeconds))
		b.WriteString(s.row(paneRecent, i, line))
	}

	help := "[tab] Pane  [space] Toggle task  [enter] Open task  [t] New task  [e] Edit  [D] Delete subject  [d] Delete session  [esc] Back"
	b.WriteString(HelpStyle.Render(help))

	return b.String()
}

func (s *Subject) paneTitle(p subjectPane, title string) string {
	if s.pane == p {
		return SelectedStyle.Render(title) + "\n"
	}
	return SubtitleStyle.Render(title) + "\n"
}

func (s *Subject) row(p subjectPane, i int, line string) string {
	if s.pane == p && s.cursors[p] == i {
		return SelectedStyle.Render("> "+line) + "\n"
	}
	return NormalStyle.Render("  "+line) + "\n"
}
