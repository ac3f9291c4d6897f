package viewmodel

import (
	"context"
	"log/slog"

	"github.com/emilianohg/studytrack/internal/models"
	"github.com/emilianohg/studytrack/internal/reactive"
)

type DashboardState struct {
	SubjectCount int
	StudiedHours float64
	GoalHours    float64
	Subjects     []models.Subject
	Form         SubjectForm
}

type Dashboard struct {
	base

	palettes [][]string
	form     *reactive.Value[SubjectForm]
	state    *reactive.Combined[DashboardState]
	tasks    *reactive.Combined[[]models.Task]
	sessions *reactive.Combined[[]models.Session]
}

func NewDashboard(store Store, log *slog.Logger, opts Options) *Dashboard {
	d := &Dashboard{palettes: opts.Palettes}
	d.init(store, log)
	d.form = reactive.NewValue(SubjectForm{Colors: d.palette(0)})

	d.state = reactive.Combine5(opts.Grace,
		d.form,
		store.StreamSubjectCount(),
		store.StreamTotalGoalHours(),
		store.StreamAllSubjects(),
		store.StreamTotalDuration(),
		func(form SubjectForm, count int, goal float64, subjects []models.Subject, studied int64) DashboardState {
			return DashboardState{
				SubjectCount: count,
				StudiedHours: models.ToHours(studied),
				GoalHours:    goal,
				Subjects:     subjects,
				Form:         form,
			}
		})
	d.tasks = reactive.Share(opts.Grace, store.StreamAllUpcomingTasks())
	d.sessions = reactive.Share(opts.Grace, store.StreamRecentSessions(opts.DashboardRecentSessions))
	return d
}

func (d *Dashboard) State() *reactive.Combined[DashboardState] { return d.state }
func (d *Dashboard) UpcomingTasks() *reactive.Combined[[]models.Task] { return d.tasks }
func (d *Dashboard) RecentSessions() *reactive.Combined[[]models.Session] { return d.sessions }
func (d *Dashboard) Form() SubjectForm { return d.form.Get() }

func (d *Dashboard) palette(i int) []string {
	if len(d.palettes) == 0 {
		return DefaultOptions().Palettes[0]
	}
	return d.palettes[i%len(d.palettes)]
}

func (d *Dashboard) SetSubjectName(name string) {
	d.form.Update(func(f SubjectForm) SubjectForm { f.Name = name; return f })
}

func (d *Dashboard) SetGoalHours(hours string) {
	d.form.Update(func(f SubjectForm) SubjectForm { f.GoalHours = hours; return f })
}

func (d *Dashboard) SetColors(colors []string) {
	d.form.Update(func(f SubjectForm) SubjectForm { f.Colors = colors; return f })
}

// SaveSubject creates a subject from the dialog form and resets the form on success.
func (d *Dashboard) SaveSubject() {
	form := d.form.Get()
	d.async(func(ctx context.Context) {
		subject, err := form.subject()
		if err == nil {
			subject.ID = 0
			err = d.store.UpsertSubject(ctx, &subject)
		}
		if err != nil {
			d.fail("save subject", err)
			return
		}
		d.form.Set(SubjectForm{Colors: d.palette(int(subject.ID))})
		d.notify("Subject saved successfully.")
	})
}

func (d *Dashboard) ToggleTask(task models.Task) {
	d.async(func(ctx context.Context) { toggleTask(ctx, &d.base, task) })
}

func (d *Dashboard) DeleteSession(session models.Session) {
	d.async(func(ctx context.Context) { deleteSession(ctx, &d.base, session) })
}

func toggleTask(ctx context.Context, b *base, task models.Task) {
	updated, err := b.store.ToggleTaskComplete(ctx, task.ID)
	if err != nil {
		b.fail("update task", err)
		return
	}
	if updated.IsComplete {
		b.notify("Task marked as completed.")
	} else {
		b.notify("Task marked as not completed.")
	}
}

func deleteSession(ctx context.Context, b *base, session models.Session) {
	if err := b.store.DeleteSession(ctx, session); err != nil {
		b.fail("delete session", err)
		return
	}
	b.notify("Session deleted successfully.")
}
