package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emilianohg/studytrack/internal/models"
)

var subjectCmd = &cobra.Command{
	Use:   "subject",
	Short: "Manage subjects",
}

var subjectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openMigratedEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		goal, _ := cmd.Flags().GetFloat64("goal")
		colors, _ := cmd.Flags().GetStringSlice("colors")
		if len(colors) == 0 {
			colors = e.cfg.SubjectColors[0]
		}

		subject := models.Subject{Name: strings.TrimSpace(args[0]), GoalHours: goal, Colors: colors}
		if err := e.store.UpsertSubject(cmd.Context(), &subject); err != nil {
			return err
		}
		fmt.Printf("Added subject %d: %s (goal %gh)\n", subject.ID, subject.Name, subject.GoalHours)
		return nil
	},
}

var subjectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subjects with their progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openMigratedEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		subjects, err := e.store.ListSubjects(ctx)
		if err != nil {
			return err
		}
		if len(subjects) == 0 {
			fmt.Println("No subjects yet. Add one with 'studytrack subject add'.")
			return nil
		}

		fmt.Printf("%-5s %-30s %10s %10s %8s\n", "ID", "NAME", "STUDIED", "GOAL", "PROGRESS")
		for _, s := range subjects {
			seconds, err := e.store.TotalDurationForSubject(ctx, s.ID)
			if err != nil {
				return err
			}
			studied := models.ToHours(seconds)
			fmt.Printf("%-5d %-30s %9.2fh %9gh %7.0f%%\n",
				s.ID, s.Name, studied, s.GoalHours, models.Progress(studied, s.GoalHours)*100)
		}
		return nil
	},
}

var subjectDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a subject with all its tasks and sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		e, err := openMigratedEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.store.DeleteSubject(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Deleted subject %d\n", id)
		return nil
	},
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// subjectName resolves the name stored alongside tasks and sessions.
func subjectName(ctx context.Context, e *env, id int64) (string, error) {
	subject, err := e.store.GetSubjectByID(ctx, id)
	if err != nil {
		return "", err
	}
	if subject == nil {
		return "", fmt.Errorf("subject %d not found", id)
	}
	return subject.Name, nil
}

func init() {
	subjectAddCmd.Flags().Float64P("goal", "g", 10, "Goal study hours (1-1000)")
	subjectAddCmd.Flags().StringSliceP("colors", "c", nil, "Palette colors as #RRGGBB (default: first configured palette)")

	subjectCmd.AddCommand(subjectAddCmd)
	subjectCmd.AddCommand(subjectListCmd)
	subjectCmd.AddCommand(subjectDeleteCmd)
}
