// Package viewmodel turns repository streams and local form state into one
// snapshot per screen and runs screen actions in the background, reporting
// their outcome as notices.
package viewmodel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emilianohg/studytrack/internal/models"
	"github.com/emilianohg/studytrack/internal/reactive"
	"github.com/emilianohg/studytrack/internal/repository"
)

// Store is the part of the repository the screens use.
type Store interface {
	UpsertSubject(ctx context.Context, subject *models.Subject) error
	GetSubjectByID(ctx context.Context, id int64) (*models.Subject, error)
	DeleteSubject(ctx context.Context, id int64) error
	StreamAllSubjects() reactive.Source[[]models.Subject]
	StreamSubjectCount() reactive.Source[int]
	StreamTotalGoalHours() reactive.Source[float64]

	UpsertTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, id int64) error
	GetTaskByID(ctx context.Context, id int64) (*models.Task, error)
	ToggleTaskComplete(ctx context.Context, id int64) (*models.Task, error)
	StreamUpcomingTasksForSubject(subjectID int64) reactive.Source[[]models.Task]
	StreamCompletedTasksForSubject(subjectID int64) reactive.Source[[]models.Task]
	StreamAllUpcomingTasks() reactive.Source[[]models.Task]

	InsertSession(ctx context.Context, session *models.Session) error
	DeleteSession(ctx context.Context, session models.Session) error
	StreamAllSessions() reactive.Source[[]models.Session]
	StreamRecentSessions(limit int) reactive.Source[[]models.Session]
	StreamRecentSessionsForSubject(subjectID int64, limit int) reactive.Source[[]models.Session]
	StreamTotalDuration() reactive.Source[int64]
	StreamTotalDurationForSubject(subjectID int64) reactive.Source[int64]
}

type Options struct {
	// Grace keeps a combined snapshot alive this long after its last subscriber leaves.
	Grace                   time.Duration
	DashboardRecentSessions int
	SubjectRecentSessions   int
	Palettes                [][]string
}

func DefaultOptions() Options {
	return Options{
		Grace:                   5 * time.Second,
		DashboardRecentSessions: 5,
		SubjectRecentSessions:   10,
		Palettes:                [][]string{{"#D7B1F8", "#7C4DFF"}},
	}
}

// SubjectForm is the editable state of the add/edit subject dialog.
type SubjectForm struct {
	ID        int64
	Name      string
	GoalHours string
	Colors    []string
}

func (f SubjectForm) subject() (models.Subject, error) {
	goal, err := parseGoalHours(f.GoalHours)
	if err != nil {
		return models.Subject{}, err
	}
	s := models.Subject{ID: f.ID, Name: strings.TrimSpace(f.Name), GoalHours: goal, Colors: f.Colors}
	return s, s.Validate()
}

func parseGoalHours(s string) (float64, error) {
	goal, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: goal hours must be a number", models.ErrInvalidSubject)
	}
	return goal, nil
}

// goalOrOne is the goal used for progress while the form holds an unparsable value.
func goalOrOne(s string) float64 {
	goal, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 1
	}
	return goal
}

// base carries what every screen model shares: the store, the event
// channel and the background actions in flight.
type base struct {
	store  Store
	log    *slog.Logger
	events Events

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (b *base) init(store Store, log *slog.Logger) {
	b.store, b.log = store, log
	b.ctx, b.cancel = context.WithCancel(context.Background())
}

func (b *base) Events() *Events { return &b.events }

// Wait blocks until every action started so far has finished.
func (b *base) Wait() { b.wg.Wait() }

// Close abandons pending actions and waits for them to return.
func (b *base) Close() {
	b.cancel()
	b.wg.Wait()
}

func (b *base) async(fn func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn(b.ctx)
	}()
}

func (b *base) notify(message string) {
	b.events.emit(newNotice(message, Short, KindInfo))
}

func (b *base) reject(message string) {
	b.events.emit(newNotice(message, Short, KindValidation))
}

func (b *base) navigateUp() {
	b.events.emit(NavigateUp{})
}

// fail reports err as a validation notice when it is one of the domain's
// validation errors and as a long persistence notice otherwise.
func (b *base) fail(what string, err error) {
	if isValidation(err) {
		b.events.emit(newNotice(fmt.Sprintf("Couldn't %s. %v", what, err), Short, KindValidation))
		return
	}
	b.log.Error("action failed", "action", what, "error", err)
	b.events.emit(newNotice(fmt.Sprintf("Couldn't %s. %v", what, err), Long, KindPersistence))
}

func isValidation(err error) bool {
	return errors.Is(err, models.ErrInvalidSubject) ||
		errors.Is(err, models.ErrInvalidTask) ||
		errors.Is(err, models.ErrInvalidSession) ||
		errors.Is(err, repository.ErrNotFound)
}
