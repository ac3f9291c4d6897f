package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/emilianohg/studytrack/internal/models"
)

type SubjectRepo struct {
	db sqlx.ExtContext
}

func NewSubjectRepo(db sqlx.ExtContext) *SubjectRepo {
	return &SubjectRepo{db: db}
}

type subjectRow struct {
	ID        int64   `db:"id"`
	Name      string  `db:"name"`
	GoalHours float64 `db:"goal_hours"`
	Colors    string  `db:"colors"`
}

func (row subjectRow) toModel() (models.Subject, error) {
	s := models.Subject{ID: row.ID, Name: row.Name, GoalHours: row.GoalHours}
	if err := json.Unmarshal([]byte(row.Colors), &s.Colors); err != nil {
		return models.Subject{}, err
	}
	return s, nil
}

// Upsert inserts the subject when it has no id, or writes every column of
// the row with that id, creating it if missing. The assigned id is stored back.
func (r *SubjectRepo) Upsert(ctx context.Context, s *models.Subject) error {
	colorsJSON, err := json.Marshal(s.Colors)
	if err != nil {
		return err
	}

	if s.ID == 0 {
		result, err := r.db.ExecContext(ctx,
			"INSERT INTO subjects (name, goal_hours, colors) VALUES (?, ?, ?)",
			s.Name, s.GoalHours, string(colorsJSON),
		)
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

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO subjects (id, name, goal_hours, colors) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			goal_hours = excluded.goal_hours,
			colors = excluded.colors
	`, s.ID, s.Name, s.GoalHours, string(colorsJSON))
	return err
}

func (r *SubjectRepo) GetByID(ctx context.Context, id int64) (*models.Subject, error) {
	var row subjectRow
	err := sqlx.GetContext(ctx, r.db, &row,
		"SELECT id, name, goal_hours, colors FROM subjects WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubjectRepo) GetAll(ctx context.Context) ([]models.Subject, error) {
	var rows []subjectRow
	if err := sqlx.SelectContext(ctx, r.db, &rows,
		"SELECT id, name, goal_hours, colors FROM subjects ORDER BY id"); err != nil {
		return nil, err
	}

	subjects := make([]models.Subject, 0, len(rows))
	for _, row := range rows {
		s, err := row.toModel()
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, nil
}

func (r *SubjectRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.db, &count, "SELECT COUNT(*) FROM subjects")
	return count, err
}

func (r *SubjectRepo) TotalGoalHours(ctx context.Context) (float64, error) {
	var total float64
	err := sqlx.GetContext(ctx, r.db, &total, "SELECT COALESCE(SUM(goal_hours), 0) FROM subjects")
	return total, err
}

func (r *SubjectRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM subjects WHERE id = ?", id)
	return err
}
