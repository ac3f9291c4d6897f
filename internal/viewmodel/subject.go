package viewmodel

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/emilianohg/studytrack/internal/models"
	"github.com/emilianohg/studytrack/internal/reactive"
)

type SubjectState struct {
	Form           SubjectForm
	StudiedHours   float64
	Progress       float64
	Upcoming       []models.Task
	Completed      []models.Task
	RecentSessions []models.Session
}

// Subject backs the detail screen of one subject.
type Subject struct {
	base

	subjectID int64
	form      *reactive.Value[SubjectForm]
	state     *reactive.Combined[SubjectState]
}

func NewSubject(store Store, log *slog.Logger, opts Options, subjectID int64) *Subject {
	s := &Subject{subjectID: subjectID}
	s.init(store, log)
	s.form = reactive.NewValue(SubjectForm{})

	s.state = reactive.Combine5(opts.Grace,
		s.form,
		store.StreamUpcomingTasksForSubject(subjectID),
		store.StreamCompletedTasksForSubject(subjectID),
		store.StreamRecentSessionsForSubject(subjectID, opts.SubjectRecentSessions),
		store.StreamTotalDurationForSubject(subjectID),
		func(form SubjectForm, upcoming, completed []models.Task, recent []models.Session, total int64) SubjectState {
			studied := models.ToHours(total)
			return SubjectState{
				Form:           form,
				StudiedHours:   studied,
				Progress:       models.Progress(studied, goalOrOne(form.GoalHours)),
				Upcoming:       upcoming,
				Completed:      completed,
				RecentSessions: recent,
			}
		})

	s.load()
	return s
}

func (s *Subject) State() *reactive.Combined[SubjectState] { return s.state }
func (s *Subject) Form() SubjectForm { return s.form.Get() }
func (s *Subject) SubjectID() int64 { return s.subjectID }

func (s *Subject) load() {
	s.async(func(ctx context.Context) {
		subject, err := s.store.GetSubjectByID(ctx, s.subjectID)
		if err != nil {
			s.fail("load subject", err)
			return
		}
		if subject == nil {
			return
		}
		s.form.Set(SubjectForm{
			ID:        subject.ID,
			Name:      subject.Name,
			GoalHours: strconv.FormatFloat(subject.GoalHours, 'f', -1, 64),
			Colors:    subject.Colors,
		})
	})
}

func (s *Subject) SetName(name string) {
	s.form.Update(func(f SubjectForm) SubjectForm { f.Name = name; return f })
}

func (s *Subject) SetGoalHours(hours string) {
	s.form.Update(func(f SubjectForm) SubjectForm { f.GoalHours = hours; return f })
}

func (s *Subject) SetColors(colors []string) {
	s.form.Update(func(f SubjectForm) SubjectForm { f.Colors = colors; return f })
}

func (s *Subject) UpdateSubject() {
	form := s.form.Get()
	s.async(func(ctx context.Context) {
		if form.ID == 0 {
			s.reject("No subject to update.")
			return
		}
		subject, err := form.subject()
		if err == nil {
			err = s.store.UpsertSubject(ctx, &subject)
		}
		if err != nil {
			s.fail("update subject", err)
			return
		}
		s.notify("Subject updated successfully.")
	})
}

// DeleteSubject removes the subject with its tasks and sessions, then asks the screen to leave.
func (s *Subject) DeleteSubject() {
	form := s.form.Get()
	s.async(func(ctx context.Context) {
		if form.ID == 0 {
			s.reject("No subject to delete.")
			return
		}
		if err := s.store.DeleteSubject(ctx, form.ID); err != nil {
			s.fail("delete subject", err)
			return
		}
		s.form.Set(SubjectForm{})
		s.notify("Subject deleted successfully.")
		s.navigateUp()
	})
}

func (s *Subject) ToggleTask(task models.Task) {
	s.async(func(ctx context.Context) { toggleTask(ctx, &s.base, task) })
}

func (s *Subject) DeleteSession(session models.Session) {
	s.async(func(ctx context.Context) { deleteSession(ctx, &s.base, session) })
}
