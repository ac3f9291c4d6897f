package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/emilianohg/studytrack/internal/models"
	"github.com/emilianohg/studytrack/internal/reactive"
)

var ErrNotFound = errors.New("not found")

// Store is the data access boundary used by the rest of the app: writes,
// point reads and streaming queries over subjects, tasks and sessions.
// Every successful write bumps the version of the tables it touched, which
// re-runs the streaming queries built on those tables.
type Store struct {
	db  *sqlx.DB
	log *slog.Logger

	subjects *SubjectRepo
	tasks    *TaskRepo
	sessions *SessionRepo

	locks keyedMutex

	subjectsVersion *reactive.Value[uint64]
	tasksVersion    *reactive.Value[uint64]
	sessionsVersion *reactive.Value[uint64]
}

func NewStore(db *sqlx.DB, log *slog.Logger) *Store {
	return &Store{
		db:              db,
		log:             log,
		subjects:        NewSubjectRepo(db),
		tasks:           NewTaskRepo(db),
		sessions:        NewSessionRepo(db),
		subjectsVersion: reactive.NewValue[uint64](0, reactive.Conflate()),
		tasksVersion:    reactive.NewValue[uint64](0, reactive.Conflate()),
		sessionsVersion: reactive.NewValue[uint64](0, reactive.Conflate()),
	}
}

func (s *Store) changed(versions ...*reactive.Value[uint64]) {
	for _, v := range versions {
		v.Update(func(n uint64) uint64 { return n + 1 })
	}
}

func (s *Store) loadFailed(stream string) func(error) {
	return func(err error) {
		s.log.Error("stream query failed", "stream", stream, "error", err)
	}
}

// Subjects

func (s *Store) UpsertSubject(ctx context.Context, subject *models.Subject) error {
	if err := subject.Validate(); err != nil {
		return err
	}
	if subject.ID != 0 {
		defer s.locks.Lock(subjectKey(subject.ID))()
	}

	if err := s.subjects.Upsert(ctx, subject); err != nil {
		return fmt.Errorf("upsert subject: %w", err)
	}
	s.log.Debug("subject saved", "subject_id", subject.ID)
	s.changed(s.subjectsVersion)
	return nil
}

func (s *Store) GetSubjectByID(ctx context.Context, id int64) (*models.Subject, error) {
	subject, err := s.subjects.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get subject: %w", err)
	}
	return subject, nil
}

// DeleteSubject removes the subject's tasks, then its sessions, then the
// subject itself inside one transaction. Deleting a missing id succeeds.
func (s *Store) DeleteSubject(ctx context.Context, id int64) error {
	defer s.locks.Lock(subjectKey(id))()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete subject: begin: %w", err)
	}
	defer tx.Rollback()

	if err := NewTaskRepo(tx).DeleteBySubjectID(ctx, id); err != nil {
		return fmt.Errorf("delete subject: tasks: %w", err)
	}
	if err := NewSessionRepo(tx).DeleteBySubjectID(ctx, id); err != nil {
		return fmt.Errorf("delete subject: sessions: %w", err)
	}
	if err := NewSubjectRepo(tx).Delete(ctx, id); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete subject: commit: %w", err)
	}

	s.log.Info("subject deleted", "subject_id", id)
	s.changed(s.tasksVersion, s.sessionsVersion, s.subjectsVersion)
	return nil
}

func (s *Store) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	return s.subjects.GetAll(ctx)
}

func (s *Store) StreamAllSubjects() reactive.Source[[]models.Subject] {
	return reactive.NewQuery(s.subjectsVersion, s.subjects.GetAll, s.loadFailed("all subjects"))
}

func (s *Store) StreamSubjectCount() reactive.Source[int] {
	return reactive.NewQuery(s.subjectsVersion, s.subjects.Count, s.loadFailed("subject count"))
}

func (s *Store) StreamTotalGoalHours() reactive.Source[float64] {
	return reactive.NewQuery(s.subjectsVersion, s.subjects.TotalGoalHours, s.loadFailed("total goal hours"))
}

// Tasks

func (s *Store) UpsertTask(ctx context.Context, task *models.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	if task.ID != 0 {
		defer s.locks.Lock(taskKey(task.ID))()
	}

	if err := s.tasks.Upsert(ctx, task); err != nil {
		return fmt.Errorf("upsert task: %w", err)
	}
	s.log.Debug("task saved", "task_id", task.ID, "subject_id", task.SubjectID)
	s.changed(s.tasksVersion)
	return nil
}

func (s *Store) GetTaskByID(ctx context.Context, id int64) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// ToggleTaskComplete flips only the completion flag and returns the task as stored afterwards.
func (s *Store) ToggleTaskComplete(ctx context.Context, id int64) (*models.Task, error) {
	defer s.locks.Lock(taskKey(id))()

	found, err := s.tasks.ToggleComplete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("toggle task: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("toggle task %d: %w", id, ErrNotFound)
	}
	s.changed(s.tasksVersion)

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("toggle task: reload: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("toggle task %d: %w", id, ErrNotFound)
	}
	return task, nil
}

func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	defer s.locks.Lock(taskKey(id))()

	if err := s.tasks.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	s.changed(s.tasksVersion)
	return nil
}

// ListUpcomingTasks lists open tasks of one subject, or of all subjects when subjectID is 0.
func (s *Store) ListUpcomingTasks(ctx context.Context, subjectID int64) ([]models.Task, error) {
	if subjectID == 0 {
		return s.tasks.AllUpcoming(ctx)
	}
	return s.tasks.UpcomingForSubject(ctx, subjectID)
}

func (s *Store) ListCompletedTasks(ctx context.Context, subjectID int64) ([]models.Task, error) {
	return s.tasks.CompletedForSubject(ctx, subjectID)
}

func (s *Store) StreamUpcomingTasksForSubject(subjectID int64) reactive.Source[[]models.Task] {
	return reactive.NewQuery(s.tasksVersion, func(ctx context.Context) ([]models.Task, error) {
		return s.tasks.UpcomingForSubject(ctx, subjectID)
	}, s.loadFailed("upcoming tasks for subject"))
}

func (s *Store) StreamCompletedTasksForSubject(subjectID int64) reactive.Source[[]models.Task] {
	return reactive.NewQuery(s.tasksVersion, func(ctx context.Context) ([]models.Task, error) {
		return s.tasks.CompletedForSubject(ctx, subjectID)
	}, s.loadFailed("completed tasks for subject"))
}

func (s *Store) StreamAllUpcomingTasks() reactive.Source[[]models.Task] {
	return reactive.NewQuery(s.tasksVersion, s.tasks.AllUpcoming, s.loadFailed("all upcoming tasks"))
}

// Sessions

func (s *Store) InsertSession(ctx context.Context, session *models.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	if err := s.sessions.Insert(ctx, session); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	s.log.Info("session saved",
		"session_id", session.ID,
		"subject_id", session.SubjectID,
		"duration_seconds", session.DurationSeconds,
	)
	s.changed(s.sessionsVersion)
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, session models.Session) error {
	defer s.locks.Lock(sessionKey(session.ID))()

	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.changed(s.sessionsVersion)
	return nil
}

// ListSessions lists sessions newest first; subjectID 0 means every subject, limit <= 0 means no limit.
func (s *Store) ListSessions(ctx context.Context, subjectID int64, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = -1
	}
	if subjectID == 0 {
		return s.sessions.Recent(ctx, limit)
	}
	return s.sessions.RecentForSubject(ctx, subjectID, limit)
}

func (s *Store) TotalDurationForSubject(ctx context.Context, subjectID int64) (int64, error) {
	return s.sessions.TotalDurationForSubject(ctx, subjectID)
}

func (s *Store) StreamAllSessions() reactive.Source[[]models.Session] {
	return reactive.NewQuery(s.sessionsVersion, s.sessions.GetAll, s.loadFailed("all sessions"))
}

func (s *Store) StreamRecentSessions(limit int) reactive.Source[[]models.Session] {
	return reactive.NewQuery(s.sessionsVersion, func(ctx context.Context) ([]models.Session, error) {
		return s.sessions.Recent(ctx, limit)
	}, s.loadFailed("recent sessions"))
}

func (s *Store) StreamRecentSessionsForSubject(subjectID int64, limit int) reactive.Source[[]models.Session] {
	return reactive.NewQuery(s.sessionsVersion, func(ctx context.Context) ([]models.Session, error) {
		return s.sessions.RecentForSubject(ctx, subjectID, limit)
	}, s.loadFailed("recent sessions for subject"))
}

func (s *Store) StreamTotalDuration() reactive.Source[int64] {
	return reactive.NewQuery(s.sessionsVersion, s.sessions.TotalDuration, s.loadFailed("total duration"))
}

func (s *Store) StreamTotalDurationForSubject(subjectID int64) reactive.Source[int64] {
	return reactive.NewQuery(s.sessionsVersion, func(ctx context.Context) (int64, error) {
		return s.sessions.TotalDurationForSubject(ctx, subjectID)
	}, s.loadFailed("total duration for subject"))
}
