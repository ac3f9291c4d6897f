package screens

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/emilianohg/studytrack/internal/models"
	"github.com/emilianohg/studytrack/internal/reactive"
	"github.com/emilianohg/studytrack/internal/viewmodel"
)

const dueDateLayout = "2006-01-02"

const (
	taskFieldTitle = iota
	taskFieldDescription
	taskFieldDueDate
	taskFieldPriority
	taskFieldSubject
	taskFieldComplete
	taskFieldCount
)

type Task struct {
	vm     *viewmodel.Task
	width  int
	height int

	state    viewmodel.TaskState
	loaded   bool
	syncedID int64

	titleInput textinput.Model
	descInput  textinput.Model
	dueInput   textinput.Model
	focus      int
	confirm    bool
	err        error

	gen      int
	stateSub *reactive.Subscription[viewmodel.TaskState]
	notices  notices
}

func NewTask(vm *viewmodel.Task) *Task {
	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = 200
	title.Width = 50

	desc := textinput.New()
	desc.Placeholder = "Description"
	desc.CharLimit = 500
	desc.Width = 50

	due := textinput.New()
	due.Placeholder = dueDateLayout
	due.CharLimit = len(dueDateLayout)
	due.Width = 12

	t := &Task{
		vm:         vm,
		titleInput: title,
		descInput:  desc,
		dueInput:   due,
	}
	t.focusField(taskFieldTitle)
	return t
}

func (t *Task) SetSize(width, height int) {
	t.width = width
	t.height = height
}

type taskStateMsg struct {
	gen   int
	state viewmodel.TaskState
}

func (t *Task) Init() tea.Cmd {
	t.Close()
	t.gen++
	t.confirm = false
	t.stateSub = t.vm.State().Subscribe()
	return tea.Batch(t.nextState(), t.notices.attach(t.vm.Events()), textinput.Blink)
}

func (t *Task) Close() {
	if t.stateSub != nil {
		t.stateSub.Close()
		t.stateSub = nil
	}
	t.notices.detach()
}

func (t *Task) Capturing() bool {
	return t.focus == taskFieldTitle || t.focus == taskFieldDescription || t.focus == taskFieldDueDate
}

func (t *Task) nextState() tea.Cmd {
	gen := t.gen
	return listen(t.stateSub.C, func(st viewmodel.TaskState) tea.Msg { return taskStateMsg{gen, st} })
}

func (t *Task) Update(msg tea.Msg) tea.Cmd {
	if cmd, handled, up := t.notices.handle(msg); handled {
		if up {
			return tea.Batch(cmd, Back())
		}
		return cmd
	}

	switch msg := msg.(type) {
	case taskStateMsg:
		if msg.gen != t.gen || t.stateSub == nil {
			return nil
		}
		t.state = msg.state
		t.loaded = true
		if t.state.Form.ID != t.syncedID {
			t.syncInputs(t.state.Form)
		}
		return t.nextState()

	case tea.KeyMsg:
		if t.confirm {
			return t.handleConfirmKey(msg)
		}
		return t.handleKey(msg)
	}

	return t.updateInput(msg)
}

// syncInputs copies a freshly loaded task into the text inputs.
func (t *Task) syncInputs(form viewmodel.TaskForm) {
	t.syncedID = form.ID
	t.titleInput.SetValue(form.Title)
	t.descInput.SetValue(form.Description)
	if form.DueDate != 0 {
		t.dueInput.SetValue(time.UnixMilli(form.DueDate).Format(dueDateLayout))
	}
}

func (t *Task) focusField(field int) {
	t.focus = field
	t.titleInput.Blur()
	t.descInput.Blur()
	t.dueInput.Blur()
	switch field {
	case taskFieldTitle:
		t.titleInput.Focus()
	case taskFieldDescription:
		t.descInput.Focus()
	case taskFieldDueDate:
		t.dueInput.Focus()
	}
}

func (t *Task) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		return Back()
	case "tab", "down":
		t.focusField((t.focus + 1) % taskFieldCount)
		return nil
	case "shift+tab", "up":
		t.focusField((t.focus + taskFieldCount - 1) % taskFieldCount)
		return nil
	case "ctrl+s":
		return t.save()
	case "ctrl+d":
		if t.state.Form.ID != 0 {
			t.confirm = true
		}
		return nil
	}

	switch t.focus {
	case taskFieldPriority:
		switch msg.String() {
		case "left", "h":
			t.shiftPriority(-1)
		case "right", "l":
			t.shiftPriority(1)
		}
		return nil
	case taskFieldSubject:
		switch msg.String() {
		case "left", "h":
			t.shiftSubject(-1)
		case "right", "l":
			t.shiftSubject(1)
		}
		return nil
	case taskFieldComplete:
		if msg.String() == " " || msg.String() == "enter" {
			t.vm.ToggleComplete()
		}
		return nil
	}

	if msg.String() == "enter" {
		t.focusField(t.focus + 1)
		return nil
	}
	return t.updateInput(msg)
}

func (t *Task) updateInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch t.focus {
	case taskFieldTitle:
		t.titleInput, cmd = t.titleInput.Update(msg)
	case taskFieldDescription:
		t.descInput, cmd = t.descInput.Update(msg)
	case taskFieldDueDate:
		t.dueInput, cmd = t.dueInput.Update(msg)
	}
	return cmd
}

func (t *Task) shiftPriority(delta int) {
	p := int(t.state.Form.Priority) + delta
	if p < int(models.PriorityLow) || p > int(models.PriorityHigh) {
		return
	}
	t.vm.SetPriority(models.Priority(p))
}

func (t *Task) shiftSubject(delta int) {
	subjects := t.state.Subjects
	if len(subjects) == 0 {
		return
	}
	idx := -1
	for i, s := range subjects {
		if s.ID == t.state.Form.SubjectID {
			idx = i
			break
		}
	}
	switch {
	case idx < 0 && delta < 0:
		idx = len(subjects) - 1
	case idx < 0:
		idx = 0
	default:
		idx = (idx + delta + len(subjects)) % len(subjects)
	}
	t.vm.SelectSubject(subjects[idx])
}

func (t *Task) save() tea.Cmd {
	t.err = nil
	if raw := strings.TrimSpace(t.dueInput.Value()); raw != "" {
		due, err := time.ParseInLocation(dueDateLayout, raw, time.Local)
		if err != nil {
			t.err = fmt.Errorf("due date must look like %s", dueDateLayout)
			return nil
		}
		t.vm.SetDueDate(due)
	}
	t.vm.SetTitle(t.titleInput.Value())
	t.vm.SetDescription(t.descInput.Value())
	t.vm.SaveTask()
	return nil
}

func (t *Task) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		t.vm.DeleteTask()
		t.confirm = false
	case "n", "N", "esc":
		t.confirm = false
	}
	return nil
}

func (t *Task) View() string {
	var b strings.Builder

	title := "NEW TASK"
	if t.state.Form.ID != 0 {
		title = "EDIT TASK"
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n\n")

	b.WriteString(t.notices.View())
	if t.err != nil {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", t.err)))
		b.WriteString("\n\n")
	}

	if !t.loaded {
		b.WriteString("Loading...\n")
		return b.String()
	}

	if t.confirm {
		b.WriteString(WarningStyle.Render(fmt.Sprintf("Delete task %q? (y/n)", t.state.Form.Title)))
		b.WriteString("\n")
		return b.String()
	}

	form := t.state.Form
	b.WriteString(t.label(taskFieldTitle, "Title"))
	b.WriteString(t.titleInput.View() + "\n")
	b.WriteString(t.label(taskFieldDescription, "Description"))
	b.WriteString(t.descInput.View() + "\n")
	b.WriteString(t.label(taskFieldDueDate, "Due date"))
	b.WriteString(t.dueInput.View() + "\n")
	b.WriteString(t.label(taskFieldPriority, "Priority"))
	b.WriteString("< " + priorityStyle(form.Priority).Render(form.Priority.String()) + " >\n")

	subject := DimStyle.Render("none")
	if form.SubjectName != "" {
		subject = form.SubjectName
	}
	b.WriteString(t.label(taskFieldSubject, "Subject"))
	b.WriteString("< " + subject + " >\n")

	check := "[ ]"
	if form.IsComplete {
		check = "[x]"
	}
	b.WriteString(t.label(taskFieldComplete, "Completed"))
	b.WriteString(check + "\n")

	help := "[tab] Next field  [←/→] Change  [space] Toggle  [ctrl+s] Save  [ctrl+d] Delete  [esc] Back"
	b.WriteString(HelpStyle.Render(help))

	return b.String()
}

func (t *Task) label(field int, name string) string {
	if t.focus == field {
		return SelectedStyle.Render("> "+name) + "\n"
	}
	return NormalStyle.Render("  "+name) + "\n"
}
