package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// MinSessionSeconds is the shortest session that gets persisted.
	MinSessionSeconds = 36

	MinGoalHours = 1.0
	MaxGoalHours = 1000.0
)

var (
	ErrInvalidSubject = errors.New("invalid subject")
	ErrInvalidTask    = errors.New("invalid task")
	ErrInvalidSession = errors.New("invalid session")
)

type Subject struct {
	ID        int64    `db:"id"`
	Name      string   `db:"name"`
	GoalHours float64  `db:"goal_hours"`
	Colors    []string `db:"-"` // ordered palette, "#RRGGBB"
}

func (s Subject) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSubject)
	}
	if math.IsNaN(s.GoalHours) || s.GoalHours < MinGoalHours || s.GoalHours > MaxGoalHours {
		return fmt.Errorf("%w: goal hours must be between %g and %g", ErrInvalidSubject, MinGoalHours, MaxGoalHours)
	}
	if len(s.Colors) == 0 {
		return fmt.Errorf("%w: at least one color is required", ErrInvalidSubject)
	}
	return nil
}

type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

var priorityTitles = map[Priority]string{
	PriorityLow:    "LOW",
	PriorityMedium: "MEDIUM",
	PriorityHigh:   "HIGH",
}

// PriorityFromInt falls back to medium for values outside the known range.
func PriorityFromInt(v int) Priority {
	p := Priority(v)
	if _, ok := priorityTitles[p]; !ok {
		return PriorityMedium
	}
	return p
}

func ParsePriority(s string) (Priority, error) {
	for p, title := range priorityTitles {
		if strings.EqualFold(title, strings.TrimSpace(s)) {
			return p, nil
		}
	}
	return PriorityMedium, fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, s)
}

func (p Priority) String() string {
	if title, ok := priorityTitles[p]; ok {
		return title
	}
	return priorityTitles[PriorityMedium]
}

type Task struct {
	ID          int64    `db:"id"`
	Title       string   `db:"title"`
	Description string   `db:"description"`
	DueDate     int64    `db:"due_date"` // epoch millis
	Priority    Priority `db:"priority"`
	SubjectID   int64    `db:"subject_id"`
	IsComplete  bool     `db:"is_complete"`

	// Denormalized at save time, not updated when the subject is renamed.
	RelatedSubjectName string `db:"related_subject_name"`
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if t.SubjectID <= 0 {
		return fmt.Errorf("%w: a related subject is required", ErrInvalidTask)
	}
	return nil
}

func (t Task) Due() time.Time {
	return time.UnixMilli(t.DueDate)
}

// Session is written once when a timer run is finished and never updated.
type Session struct {
	ID              int64  `db:"id"`
	SubjectID       int64  `db:"subject_id"`
	SubjectName     string `db:"subject_name"`
	StartDate       int64  `db:"start_date"` // epoch millis
	DurationSeconds int64  `db:"duration_seconds"`
}

func (s Session) Validate() error {
	if s.SubjectID <= 0 {
		return fmt.Errorf("%w: a subject is required", ErrInvalidSession)
	}
	if s.DurationSeconds < MinSessionSeconds {
		return fmt.Errorf("%w: duration must be at least %d seconds", ErrInvalidSession, MinSessionSeconds)
	}
	return nil
}

func (s Session) Started() time.Time {
	return time.UnixMilli(s.StartDate)
}

// ToHours converts seconds to hours rounded to two decimals.
func ToHours(seconds int64) float64 {
	return math.Round(float64(seconds)/3600*100) / 100
}

// FormatHMS renders seconds as HH:MM:SS. Hours are not capped at 99.
func FormatHMS(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// Progress is studied/goal clamped to [0,1]. A non-positive goal counts as one hour.
func Progress(studiedHours, goalHours float64) float64 {
	if goalHours <= 0 || math.IsNaN(goalHours) {
		goalHours = 1
	}
	p := studiedHours / goalHours
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
