package viewmodel

import (
	"context"
	"log/slog"
	"time"

	"github.com/emilianohg/studytrack/internal/models"
	"github.com/emilianohg/studytrack/internal/reactive"
)

type TaskForm struct {
	ID          int64
	Title       string
	Description string
	DueDate     int64 // epoch millis, 0 until picked
	Priority    models.Priority
	SubjectID   int64
	SubjectName string
	IsComplete  bool
}

type TaskState struct {
	Form     TaskForm
	Subjects []models.Subject
}

// Task backs the add/edit task screen. taskID 0 creates a new task;
// subjectID preselects the related subject.
type Task struct {
	base

	now   func() time.Time
	form  *reactive.Value[TaskForm]
	state *reactive.Combined[TaskState]
}

func NewTask(store Store, log *slog.Logger, opts Options, taskID, subjectID int64) *Task {
	t := &Task{now: time.Now}
	t.init(store, log)
	t.form = reactive.NewValue(TaskForm{Priority: models.PriorityMedium})
	t.state = reactive.Combine2(opts.Grace, t.form, store.StreamAllSubjects(),
		func(form TaskForm, subjects []models.Subject) TaskState {
			return TaskState{Form: form, Subjects: subjects}
		})

	t.load(taskID, subjectID)
	return t
}

func (t *Task) State() *reactive.Combined[TaskState] { return t.state }
func (t *Task) Form() TaskForm { return t.form.Get() }

func (t *Task) load(taskID, subjectID int64) {
	if taskID == 0 && subjectID == 0 {
		return
	}
	t.async(func(ctx context.Context) {
		if taskID != 0 {
			task, err := t.store.GetTaskByID(ctx, taskID)
			if err != nil {
				t.fail("load task", err)
				return
			}
			if task != nil {
				t.form.Set(TaskForm{
					ID:          task.ID,
					Title:       task.Title,
					Description: task.Description,
					DueDate:     task.DueDate,
					Priority:    task.Priority,
					SubjectID:   task.SubjectID,
					SubjectName: task.RelatedSubjectName,
					IsComplete:  task.IsComplete,
				})
			}
		}
		if subjectID != 0 {
			subject, err := t.store.GetSubjectByID(ctx, subjectID)
			if err != nil {
				t.fail("load subject", err)
				return
			}
			if subject != nil {
				t.SelectSubject(*subject)
			}
		}
	})
}

func (t *Task) update(fn func(*TaskForm)) {
	t.form.Update(func(f TaskForm) TaskForm { fn(&f); return f })
}

func (t *Task) SetTitle(title string) { t.update(func(f *TaskForm) { f.Title = title }) }
func (t *Task) SetDescription(desc string) { t.update(func(f *TaskForm) { f.Description = desc }) }
func (t *Task) SetDueDate(due time.Time) { t.update(func(f *TaskForm) { f.DueDate = due.UnixMilli() }) }
func (t *Task) SetPriority(p models.Priority) {
	t.update(func(f *TaskForm) { f.Priority = p })
}
func (t *Task) ToggleComplete() { t.update(func(f *TaskForm) { f.IsComplete = !f.IsComplete }) }

func (t *Task) SelectSubject(subject models.Subject) {
	t.update(func(f *TaskForm) {
		f.SubjectID = subject.ID
		f.SubjectName = subject.Name
	})
}

// SaveTask upserts the form as a whole task and leaves the screen on success.
func (t *Task) SaveTask() {
	form := t.form.Get()
	t.async(func(ctx context.Context) {
		if form.SubjectID == 0 {
			t.reject("Please select a related subject.")
			return
		}
		due := form.DueDate
		if due == 0 {
			due = t.now().UnixMilli()
		}
		task := models.Task{
			ID:                 form.ID,
			Title:              form.Title,
			Description:        form.Description,
			DueDate:            due,
			Priority:           form.Priority,
			SubjectID:          form.SubjectID,
			RelatedSubjectName: form.SubjectName,
			IsComplete:         form.IsComplete,
		}
		if err := t.store.UpsertTask(ctx, &task); err != nil {
			t.fail("save task", err)
			return
		}
		t.update(func(f *TaskForm) { f.ID = task.ID; f.DueDate = due })
		t.notify("Task saved successfully.")
		t.navigateUp()
	})
}

func (t *Task) DeleteTask() {
	form := t.form.Get()
	t.async(func(ctx context.Context) {
		if form.ID == 0 {
			t.reject("No task to delete.")
			return
		}
		if err := t.store.DeleteTask(ctx, form.ID); err != nil {
			t.fail("delete task", err)
			return
		}
		t.notify("Task deleted successfully.")
		t.navigateUp()
	})
}
