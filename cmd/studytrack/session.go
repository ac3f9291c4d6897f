package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/emilianohg/studytrack/internal/models"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect recorded study sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		subjectID, _ := cmd.Flags().GetInt64("subject")
		limit, _ := cmd.Flags().GetInt("limit")

		e, err := openMigratedEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		sessions, err := e.store.ListSessions(cmd.Context(), subjectID, limit)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No study sessions yet.")
			return nil
		}

		fmt.Printf("%-5s %-20s %-16s %s\n", "ID", "SUBJECT", "STARTED", "DURATION")
		var total int64
		for _, s := range sessions {
			total += s.DurationSeconds
			fmt.Printf("%-5d %-20s %-16s %s\n",
				s.ID, s.SubjectName, s.Started().Format("2006-01-02 15:04"), models.FormatHMS(s.DurationSeconds))
		}
		fmt.Printf("\nTotal: %s (%.2fh)\n", models.FormatHMS(total), models.ToHours(total))
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session",
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

		if err := e.store.DeleteSession(cmd.Context(), models.Session{ID: id}); err != nil {
			return err
		}
		fmt.Printf("Deleted session %d\n", id)
		return nil
	},
}

// sessionFromTimer builds the session finished at end after elapsed seconds.
func sessionFromTimer(subjectID int64, name string, elapsed int64, end time.Time) models.Session {
	return models.Session{
		SubjectID:       subjectID,
		SubjectName:     name,
		StartDate:       end.Add(-time.Duration(elapsed) * time.Second).UnixMilli(),
		DurationSeconds: elapsed,
	}
}

func init() {
	sessionListCmd.Flags().Int64P("subject", "s", 0, "Only sessions of this subject")
	sessionListCmd.Flags().IntP("limit", "n", 20, "Maximum sessions to show (0 for all)")

	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
}
