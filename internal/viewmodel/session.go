package viewmodel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emilianohg/studytrack/internal/models"
	"github.com/emilianohg/studytrack/internal/presence"
	"github.com/emilianohg/studytrack/internal/reactive"
	"github.com/emilianohg/studytrack/internal/timer"
)

// SessionForm holds the subject picked for the next (or running) session.
type SessionForm struct {
	SubjectID   int64
	SubjectName string
}

type SessionState struct {
	Form     SessionForm
	Subjects []models.Subject
	Sessions []models.Session
}

// Session backs the timer screen. It reads and drives the shared timer
// through a presence binding and never owns the timer itself.
type Session struct {
	base

	now   func() time.Time
	timer *presence.Binding
	form  *reactive.Value[SessionForm]
	state *reactive.Combined[SessionState]
}

func NewSession(store Store, log *slog.Logger, opts Options, ctrl *presence.Controller) *Session {
	s := &Session{now: time.Now, timer: ctrl.Attach()}
	s.init(store, log)
	s.form = reactive.NewValue(SessionForm{})
	s.state = reactive.Combine3(opts.Grace, s.form, store.StreamAllSubjects(), store.StreamAllSessions(),
		func(form SessionForm, subjects []models.Subject, sessions []models.Session) SessionState {
			return SessionState{Form: form, Subjects: subjects, Sessions: sessions}
		})

	s.restoreSubject()
	return s
}

func (s *Session) State() *reactive.Combined[SessionState] { return s.state }
func (s *Session) Form() SessionForm { return s.form.Get() }

// Timer replays the current timer snapshot and then delivers every tick.
func (s *Session) Timer() <-chan timer.Snapshot { return s.timer.Updates() }
func (s *Session) TimerSnapshot() timer.Snapshot { return s.timer.Current() }

// Close detaches from the timer; a running session keeps going.
func (s *Session) Close() {
	s.timer.Detach()
	s.base.Close()
}

// restoreSubject picks up the subject of a session that was already running
// when the screen opened.
func (s *Session) restoreSubject() {
	snap := s.timer.Current()
	if snap.SubjectID == 0 {
		return
	}
	s.async(func(ctx context.Context) {
		subject, err := s.store.GetSubjectByID(ctx, snap.SubjectID)
		if err != nil {
			s.fail("load subject", err)
			return
		}
		if subject != nil {
			s.form.Set(SessionForm{SubjectID: subject.ID, SubjectName: subject.Name})
		}
	})
}

// SelectSubject binds the next session to subject. The subject of a session
// in progress cannot change.
func (s *Session) SelectSubject(subject models.Subject) {
	if s.timer.Current().State != timer.StateIdle {
		s.reject("Finish or cancel the current session before changing subject.")
		return
	}
	s.form.Set(SessionForm{SubjectID: subject.ID, SubjectName: subject.Name})
	s.timer.Bind(subject.ID)
}

func (s *Session) Start() {
	if s.form.Get().SubjectID == 0 {
		s.reject("Please select a subject to study.")
		return
	}
	s.timer.Handle(timer.ActionStart)
}

func (s *Session) Stop() {
	s.timer.Handle(timer.ActionStop)
}

func (s *Session) Cancel() {
	s.timer.Handle(timer.ActionCancel)
}

// Finish saves the elapsed time as a session. The timer is cancelled only
// once the session is stored; a short session or a failed save leaves it
// exactly as it was.
func (s *Session) Finish() {
	snap := s.timer.Current()
	form := s.form.Get()

	if snap.State == timer.StateIdle {
		s.reject("There is no session in progress.")
		return
	}
	if !snap.CanFinish() {
		s.reject(fmt.Sprintf("A session must last at least %d seconds.", models.MinSessionSeconds))
		return
	}
	if form.SubjectID == 0 {
		s.reject("Please select a subject to study.")
		return
	}

	finishedAt := s.now()
	s.async(func(ctx context.Context) {
		session := models.Session{
			SubjectID:       form.SubjectID,
			SubjectName:     form.SubjectName,
			StartDate:       finishedAt.Add(-time.Duration(snap.ElapsedSeconds) * time.Second).UnixMilli(),
			DurationSeconds: snap.ElapsedSeconds,
		}
		if err := s.store.InsertSession(ctx, &session); err != nil {
			s.fail("save session", err)
			return
		}
		s.timer.Handle(timer.ActionCancel)
		s.notify("Session saved successfully.")
	})
}

func (s *Session) DeleteSession(session models.Session) {
	s.async(func(ctx context.Context) { deleteSession(ctx, &s.base, session) })
}
