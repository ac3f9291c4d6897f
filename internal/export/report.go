// Package export renders the study history as a YAML report.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/emilianohg/studytrack/internal/models"
)

// Store is the read side of the repository the report needs.
type Store interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	ListSessions(ctx context.Context, subjectID int64, limit int) ([]models.Session, error)
	ListUpcomingTasks(ctx context.Context, subjectID int64) ([]models.Task, error)
	ListCompletedTasks(ctx context.Context, subjectID int64) ([]models.Task, error)
}

type Report struct {
	GeneratedAt  string          `yaml:"generated_at"`
	StudiedHours float64         `yaml:"studied_hours"`
	GoalHours    float64         `yaml:"goal_hours"`
	Subjects     []SubjectReport `yaml:"subjects"`
}

type SubjectReport struct {
	Name           string          `yaml:"name"`
	GoalHours      float64         `yaml:"goal_hours"`
	StudiedHours   float64         `yaml:"studied_hours"`
	Progress       string          `yaml:"progress"`
	UpcomingTasks  int             `yaml:"upcoming_tasks"`
	CompletedTasks int             `yaml:"completed_tasks"`
	Sessions       []SessionReport `yaml:"sessions,omitempty"`
}

type SessionReport struct {
	Started  string `yaml:"started"`
	Duration string `yaml:"duration"`
}

// Build collects every subject with its sessions, newest first.
func Build(ctx context.Context, store Store, now time.Time) (*Report, error) {
	subjects, err := store.ListSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}

	report := &Report{
		GeneratedAt: now.Format(time.RFC3339),
		Subjects:    make([]SubjectReport, 0, len(subjects)),
	}

	var totalSeconds int64
	for _, subject := range subjects {
		sessions, err := store.ListSessions(ctx, subject.ID, 0)
		if err != nil {
			return nil, fmt.Errorf("list sessions of %q: %w", subject.Name, err)
		}
		upcoming, err := store.ListUpcomingTasks(ctx, subject.ID)
		if err != nil {
			return nil, fmt.Errorf("list tasks of %q: %w", subject.Name, err)
		}
		completed, err := store.ListCompletedTasks(ctx, subject.ID)
		if err != nil {
			return nil, fmt.Errorf("list tasks of %q: %w", subject.Name, err)
		}

		var seconds int64
		entries := make([]SessionReport, 0, len(sessions))
		for _, s := range sessions {
			seconds += s.DurationSeconds
			entries = append(entries, SessionReport{
				Started:  s.Started().Format(time.RFC3339),
				Duration: models.FormatHMS(s.DurationSeconds),
			})
		}
		totalSeconds += seconds

		studied := models.ToHours(seconds)
		report.GoalHours += subject.GoalHours
		report.Subjects = append(report.Subjects, SubjectReport{
			Name:           subject.Name,
			GoalHours:      subject.GoalHours,
			StudiedHours:   studied,
			Progress:       fmt.Sprintf("%.0f%%", models.Progress(studied, subject.GoalHours)*100),
			UpcomingTasks:  len(upcoming),
			CompletedTasks: len(completed),
			Sessions:       entries,
		})
	}
	report.StudiedHours = models.ToHours(totalSeconds)

	return report, nil
}

func Write(w io.Writer, report *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("marshal report yaml: %w", err)
	}
	return enc.Close()
}
