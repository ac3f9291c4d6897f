package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/emilianohg/studytrack/internal/models"
)

type SessionRepo struct {
	db sqlx.ExtContext
}

func NewSessionRepo(db sqlx.ExtContext) *SessionRepo {
	return &SessionRepo{db: db}
}

const sessionColumns = `id, subject_id, subject_name, start_date, duration_seconds`

func (r *SessionRepo) Insert(ctx context.Context, s *models.Session) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (subject_id, subject_name, start_date, duration_seconds)
		VALUES (?, ?, ?, ?)
	`, s.SubjectID, s.SubjectName, s.StartDate, s.DurationSeconds)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

func (r *SessionRepo) GetAll(ctx context.Context) ([]models.Session, error) {
	return r.selectSessions(ctx, "SELECT "+sessionColumns+" FROM sessions ORDER BY start_date DESC, id DESC")
}

func (r *SessionRepo) Recent(ctx context.Context, limit int) ([]models.Session, error) {
	return r.selectSessions(ctx,
		"SELECT "+sessionColumns+" FROM sessions ORDER BY start_date DESC, id DESC LIMIT ?", limit)
}

func (r *SessionRepo) RecentForSubject(ctx context.Context, subjectID int64, limit int) ([]models.Session, error) {
	return r.selectSessions(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE subject_id = ?
		ORDER BY start_date DESC, id DESC
		LIMIT ?
	`, subjectID, limit)
}

func (r *SessionRepo) TotalDuration(ctx context.Context) (int64, error) {
	var total int64
	err := sqlx.GetContext(ctx, r.db, &total, "SELECT COALESCE(SUM(duration_seconds), 0) FROM sessions")
	return total, err
}

func (r *SessionRepo) TotalDurationForSubject(ctx context.Context, subjectID int64) (int64, error) {
	var total int64
	err := sqlx.GetContext(ctx, r.db, &total,
		"SELECT COALESCE(SUM(duration_seconds), 0) FROM sessions WHERE subject_id = ?", subjectID)
	return total, err
}

func (r *SessionRepo) CountForSubject(ctx context.Context, subjectID int64) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.db, &count, "SELECT COUNT(*) FROM sessions WHERE subject_id = ?", subjectID)
	return count, err
}

func (r *SessionRepo) selectSessions(ctx context.Context, query string, args ...any) ([]models.Session, error) {
	sessions := []models.Session{}
	if err := sqlx.SelectContext(ctx, r.db, &sessions, query, args...); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	return err
}

func (r *SessionRepo) DeleteBySubjectID(ctx context.Context, subjectID int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE subject_id = ?", subjectID)
	return err
}
