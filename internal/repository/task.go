package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/emilianohg/studytrack/internal/models"
)

type TaskRepo struct {
	db sqlx.ExtContext
}

func NewTaskRepo(db sqlx.ExtContext) *TaskRepo {
	return &TaskRepo{db: db}
}

const taskColumns = `id, title, description, due_date, priority, subject_id, related_subject_name, is_complete`

func (r *TaskRepo) Upsert(ctx context.Context, t *models.Task) error {
	if t.ID == 0 {
		result, err := r.db.ExecContext(ctx, `
			INSERT INTO tasks (title, description, due_date, priority, subject_id, related_subject_name, is_complete)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, t.Title, t.Description, t.DueDate, t.Priority, t.SubjectID, t.RelatedSubjectName, t.IsComplete)
		if err != nil {
			return err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		t.ID = id
		return nil
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, due_date, priority, subject_id, related_subject_name, is_complete)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			due_date = excluded.due_date,
			priority = excluded.priority,
			subject_id = excluded.subject_id,
			related_subject_name = excluded.related_subject_name,
			is_complete = excluded.is_complete
	`, t.ID, t.Title, t.Description, t.DueDate, t.Priority, t.SubjectID, t.RelatedSubjectName, t.IsComplete)
	return err
}

func (r *TaskRepo) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	var t models.Task
	err := sqlx.GetContext(ctx, r.db, &t, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ToggleComplete flips is_complete and reports whether the task existed.
func (r *TaskRepo) ToggleComplete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "UPDATE tasks SET is_complete = NOT is_complete WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *TaskRepo) UpcomingForSubject(ctx context.Context, subjectID int64) ([]models.Task, error) {
	return r.selectTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE subject_id = ? AND is_complete = 0
		ORDER BY due_date ASC, priority DESC, id ASC
	`, subjectID)
}

func (r *TaskRepo) CompletedForSubject(ctx context.Context, subjectID int64) ([]models.Task, error) {
	return r.selectTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE subject_id = ? AND is_complete = 1
		ORDER BY due_date DESC, id DESC
	`, subjectID)
}

func (r *TaskRepo) AllUpcoming(ctx context.Context) ([]models.Task, error) {
	return r.selectTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE is_complete = 0
		ORDER BY due_date ASC, priority DESC, id ASC
	`)
}

func (r *TaskRepo) CountForSubject(ctx context.Context, subjectID int64) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.db, &count, "SELECT COUNT(*) FROM tasks WHERE subject_id = ?", subjectID)
	return count, err
}

func (r *TaskRepo) selectTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	tasks := []models.Task{}
	if err := sqlx.SelectContext(ctx, r.db, &tasks, query, args...); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	return err
}

func (r *TaskRepo) DeleteBySubjectID(ctx context.Context, subjectID int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE subject_id = ?", subjectID)
	return err
}
