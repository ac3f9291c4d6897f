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

type dashboardPane int

const (
	paneSubjects dashboardPane = iota
	paneTasks
	paneSessions
	paneCount
)

type dashboardMode int

const (
	dashboardModeList dashboardMode = iota
	dashboardModeAdd
	dashboardModeDeleteSession
)

type Dashboard struct {
	vm       *viewmodel.Dashboard
	palettes [][]string
	width    int
	height   int

	state    viewmodel.DashboardState
	tasks    []models.Task
	sessions []models.Session
	loaded   bool

	pane    dashboardPane
	cursors [paneCount]int
	mode    dashboardMode

	nameInput  textinput.Model
	goalInput  textinput.Model
	focus      int
	paletteIdx int

	gen         int
	stateSub    *reactive.Subscription[viewmodel.DashboardState]
	tasksSub    *reactive.Subscription[[]models.Task]
	sessionsSub *reactive.Subscription[[]models.Session]
	notices     notices
}

func NewDashboard(vm *viewmodel.Dashboard, palettes [][]string) *Dashboard {
	name := textinput.New()
	name.Placeholder = "Subject name"
	name.CharLimit = 100
	name.Width = 40

	goal := textinput.New()
	goal.Placeholder = "Goal study hours"
	goal.CharLimit = 7
	goal.Width = 20

	return &Dashboard{
		vm:        vm,
		palettes:  palettes,
		nameInput: name,
		goalInput: goal,
	}
}

func (d *Dashboard) SetSize(width, height int) {
	d.width = width
	d.height = height
}

// Stream messages carry the generation of the subscriptions that produced
// them so values from before a suspend are dropped.
type dashboardStateMsg struct {
	gen   int
	state viewmodel.DashboardState
}

type dashboardTasksMsg struct {
	gen   int
	tasks []models.Task
}

type dashboardSessionsMsg struct {
	gen      int
	sessions []models.Session
}

func (d *Dashboard) Init() tea.Cmd {
	d.Close()
	d.gen++
	d.mode = dashboardModeList
	d.stateSub = d.vm.State().Subscribe()
	d.tasksSub = d.vm.UpcomingTasks().Subscribe()
	d.sessionsSub = d.vm.RecentSessions().Subscribe()

	return tea.Batch(
		d.nextState(),
		d.nextTasks(),
		d.nextSessions(),
		d.notices.attach(d.vm.Events()),
	)
}

// Close releases the subscriptions while another screen is on top.
func (d *Dashboard) Close() {
	if d.stateSub != nil {
		d.stateSub.Close()
		d.stateSub = nil
	}
	if d.tasksSub != nil {
		d.tasksSub.Close()
		d.tasksSub = nil
	}
	if d.sessionsSub != nil {
		d.sessionsSub.Close()
		d.sessionsSub = nil
	}
	d.notices.detach()
}

func (d *Dashboard) nextState() tea.Cmd {
	gen := d.gen
	return listen(d.stateSub.C, func(s viewmodel.DashboardState) tea.Msg { return dashboardStateMsg{gen, s} })
}

func (d *Dashboard) nextTasks() tea.Cmd {
	gen := d.gen
	return listen(d.tasksSub.C, func(t []models.Task) tea.Msg { return dashboardTasksMsg{gen, t} })
}

func (d *Dashboard) nextSessions() tea.Cmd {
	gen := d.gen
	return listen(d.sessionsSub.C, func(s []models.Session) tea.Msg { return dashboardSessionsMsg{gen, s} })
}

func (d *Dashboard) Update(msg tea.Msg) tea.Cmd {
	if cmd, handled, _ := d.notices.handle(msg); handled {
		return cmd
	}

	switch msg := msg.(type) {
	case dashboardStateMsg:
		if msg.gen != d.gen || d.stateSub == nil {
			return nil
		}
		d.state = msg.state
		d.loaded = true
		d.clampCursor(paneSubjects, len(d.state.Subjects))
		return d.nextState()

	case dashboardTasksMsg:
		if msg.gen != d.gen || d.tasksSub == nil {
			return nil
		}
		d.tasks = msg.tasks
		d.clampCursor(paneTasks, len(d.tasks))
		return d.nextTasks()

	case dashboardSessionsMsg:
		if msg.gen != d.gen || d.sessionsSub == nil {
			return nil
		}
		d.sessions = msg.sessions
		d.clampCursor(paneSessions, len(d.sessions))
		return d.nextSessions()

	case tea.KeyMsg:
		return d.handleKey(msg)
	}

	if d.mode == dashboardModeAdd {
		return d.updateInputs(msg)
	}
	return nil
}

func (d *Dashboard) clampCursor(p dashboardPane, n int) {
	if d.cursors[p] >= n {
		d.cursors[p] = max(0, n-1)
	}
}

func (d *Dashboard) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch d.mode {
	case dashboardModeAdd:
		return d.handleAddKey(msg)
	case dashboardModeDeleteSession:
		return d.handleDeleteKey(msg)
	}
	return d.handleListKey(msg)
}

func (d *Dashboard) paneLen() int {
	switch d.pane {
	case paneSubjects:
		return len(d.state.Subjects)
	case paneTasks:
		return len(d.tasks)
	}
	return len(d.sessions)
}

func (d *Dashboard) handleListKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab":
		d.pane = (d.pane + 1) % paneCount
	case "shift+tab":
		d.pane = (d.pane + paneCount - 1) % paneCount
	case "up", "k":
		if d.cursors[d.pane] > 0 {
			d.cursors[d.pane]--
		}
	case "down", "j":
		if d.cursors[d.pane] < d.paneLen()-1 {
			d.cursors[d.pane]++
		}
	case "a":
		d.mode = dashboardModeAdd
		d.focus = 0
		form := d.vm.Form()
		d.nameInput.SetValue(form.Name)
		d.goalInput.SetValue(form.GoalHours)
		d.nameInput.Focus()
		d.goalInput.Blur()
		return textinput.Blink
	case " ", "x":
		if d.pane == paneTasks && len(d.tasks) > 0 {
			d.vm.ToggleTask(d.tasks[d.cursors[paneTasks]])
		}
	case "d":
		if d.pane == paneSessions && len(d.sessions) > 0 {
			d.mode = dashboardModeDeleteSession
		}
	case "enter":
		switch {
		case d.pane == paneSubjects && len(d.state.Subjects) > 0:
			return NavigateWithSubject("subject", d.state.Subjects[d.cursors[paneSubjects]].ID)
		case d.pane == paneTasks && len(d.tasks) > 0:
			task := d.tasks[d.cursors[paneTasks]]
			return NavigateToTask(task.ID, 0)
		}
	case "t":
		return NavigateToTask(0, 0)
	case "s":
		return Navigate("session")
	}
	return nil
}

func (d *Dashboard) handleAddKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "shift+tab":
		d.focus = 1 - d.focus
		if d.focus == 0 {
			d.nameInput.Focus()
			d.goalInput.Blur()
		} else {
			d.goalInput.Focus()
			d.nameInput.Blur()
		}
		return nil
	case "ctrl+p":
		if len(d.palettes) > 0 {
			d.paletteIdx = (d.paletteIdx + 1) % len(d.palettes)
			d.vm.SetColors(d.palettes[d.paletteIdx])
		}
		return nil
	case "enter":
		d.vm.SetSubjectName(d.nameInput.Value())
		d.vm.SetGoalHours(d.goalInput.Value())
		d.vm.SaveSubject()
		d.mode = dashboardModeList
		d.nameInput.Blur()
		d.goalInput.Blur()
		return nil
	case "esc":
		d.vm.SetSubjectName(d.nameInput.Value())
		d.vm.SetGoalHours(d.goalInput.Value())
		d.mode = dashboardModeList
		d.nameInput.Blur()
		d.goalInput.Blur()
		return nil
	}
	return d.updateInputs(msg)
}

func (d *Dashboard) updateInputs(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if d.focus == 0 {
		d.nameInput, cmd = d.nameInput.Update(msg)
	} else {
		d.goalInput, cmd = d.goalInput.Update(msg)
	}
	return cmd
}

func (d *Dashboard) handleDeleteKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		d.vm.DeleteSession(d.sessions[d.cursors[paneSessions]])
		d.mode = dashboardModeList
	case "n", "N", "esc":
		d.mode = dashboardModeList
	}
	return nil
}

func (d *Dashboard) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("STUDYTRACK"))
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render("Study sessions, subjects and tasks"))
	b.WriteString("\n\n")

	b.WriteString(d.notices.View())

	if !d.loaded {
		b.WriteString("Loading...\n")
		return b.String()
	}

	if d.mode == dashboardModeAdd {
		b.WriteString("New subject\n\n")
		b.WriteString(d.nameInput.View())
		b.WriteString("\n")
		b.WriteString(d.goalInput.View())
		b.WriteString("\n")
		b.WriteString("Colors: " + swatch(d.vm.Form().Colors))
		b.WriteString("\n\n")
		b.WriteString(HelpStyle.Render("[tab] Next field  [ctrl+p] Colors  [enter] Save  [esc] Cancel"))
		return b.String()
	}

	if d.mode == dashboardModeDeleteSession && len(d.sessions) > 0 {
		s := d.sessions[d.cursors[paneSessions]]
		b.WriteString(WarningStyle.Render(fmt.Sprintf(
			"Delete the %s session of %s from %s? Studied hours will drop. (y/n)",
			models.FormatHMS(s.DurationSeconds), s.SubjectName, formatDate(s.StartDate),
		)))
		b.WriteString("\n")
		return b.String()
	}

	stats := fmt.Sprintf(
		"Subjects: %d\nStudied hours: %s\nGoal study hours: %s",
		d.state.SubjectCount,
		formatHours(d.state.StudiedHours),
		formatHours(d.state.GoalHours),
	)
	b.WriteString(BoxStyle.Render(stats))
	b.WriteString("\n\n")

	b.WriteString(d.paneTitle(paneSubjects, "Subjects"))
	if len(d.state.Subjects) == 0 {
		b.WriteString(DimStyle.Render("  No subjects yet. Press 'a' to add one."))
		b.WriteString("\n")
	}
	for i, s := range d.state.Subjects {
		line := fmt.Sprintf("%s %s (goal %s)", swatch(s.Colors), s.Name, formatHours(s.GoalHours))
		b.WriteString(d.row(paneSubjects, i, line))
	}
	b.WriteString("\n")

	b.WriteString(d.paneTitle(paneTasks, "Upcoming tasks"))
	if len(d.tasks) == 0 {
		b.WriteString(DimStyle.Render("  No upcoming tasks."))
		b.WriteString("\n")
	}
	for i, t := range d.tasks {
		line := fmt.Sprintf("[ ] %s  %s  %s  %s",
			t.Title, DimStyle.Render(t.RelatedSubjectName), formatDate(t.DueDate),
			priorityStyle(t.Priority).Render(t.Priority.String()))
		b.WriteString(d.row(paneTasks, i, line))
	}
	b.WriteString("\n")

	b.WriteString(d.paneTitle(paneSessions, "Recent study sessions"))
	if len(d.sessions) == 0 {
		b.WriteString(DimStyle.Render("  No study sessions yet. Press 's' to start one."))
		b.WriteString("\n")
	}
	for i, s := range d.sessions {
		line := fmt.Sprintf("%s  %s  %s", s.SubjectName, formatDate(s.StartDate), models.FormatHMS(s.DurationSeconds))
		b.WriteString(d.row(paneSessions, i, line))
	}

	help := "[tab] Pane  [a] Add subject  [enter] Open  [space] Toggle task  [d] Delete session  [t] New task  [s] Session  [q] Quit"
	b.WriteString(HelpStyle.Render(help))

	return b.String()
}

func (d *Dashboard) paneTitle(p dashboardPane, title string) string {
	if d.pane == p {
		return SelectedStyle.Render(title) + "\n"
	}
	return SubtitleStyle.Render(title) + "\n"
}

func (d *Dashboard) row(p dashboardPane, i int, line string) string {
	if d.pane == p && d.cursors[p] == i {
		return SelectedStyle.Render("> "+line) + "\n"
	}
	return NormalStyle.Render("  "+line) + "\n"
}

// Capturing reports whether keys go to a text input.
func (d *Dashboard) Capturing() bool { return d.mode == dashboardModeAdd }
