package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/emilianohg/studytrack/internal/models"
	"github.com/emilianohg/studytrack/internal/repository"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task to a subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subjectID, _ := cmd.Flags().GetInt64("subject")
		description, _ := cmd.Flags().GetString("description")
		dueRaw, _ := cmd.Flags().GetString("due")
		priorityRaw, _ := cmd.Flags().GetString("priority")

		due := time.Now()
		if dueRaw != "" {
			parsed, err := time.ParseInLocation("2006-01-02", dueRaw, time.Local)
			if err != nil {
				return fmt.Errorf("invalid due date %q (expected YYYY-MM-DD)", dueRaw)
			}
			due = parsed
		}
		priority, err := models.ParsePriority(priorityRaw)
		if err != nil {
			return err
		}

		e, err := openMigratedEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		name, err := subjectName(ctx, e, subjectID)
		if err != nil {
			return err
		}

		task := models.Task{
			Title:              args[0],
			Description:        description,
			DueDate:            due.UnixMilli(),
			Priority:           priority,
			SubjectID:          subjectID,
			RelatedSubjectName: name,
		}
		if err := e.store.UpsertTask(ctx, &task); err != nil {
			return err
		}
		fmt.Printf("Added task %d: %s (%s, due %s)\n", task.ID, task.Title, task.Priority, due.Format("2006-01-02"))
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List upcoming tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		subjectID, _ := cmd.Flags().GetInt64("subject")
		completed, _ := cmd.Flags().GetBool("completed")

		e, err := openMigratedEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		var tasks []models.Task
		if completed {
			tasks, err = e.store.ListCompletedTasks(cmd.Context(), subjectID)
		} else {
			tasks, err = e.store.ListUpcomingTasks(cmd.Context(), subjectID)
		}
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks.")
			return nil
		}

		fmt.Printf("%-5s %-4s %-30s %-20s %-10s %-8s\n", "ID", "DONE", "TITLE", "SUBJECT", "DUE", "PRIORITY")
		for _, t := range tasks {
			done := "[ ]"
			if t.IsComplete {
				done = "[x]"
			}
			fmt.Printf("%-5d %-4s %-30s %-20s %-10s %-8s\n",
				t.ID, done, t.Title, t.RelatedSubjectName, t.Due().Format("2006-01-02"), t.Priority)
		}
		return nil
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Toggle the completion of a task",
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

		task, err := e.store.ToggleTaskComplete(cmd.Context(), id)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("task %d not found", id)
		}
		if err != nil {
			return err
		}
		if task.IsComplete {
			fmt.Printf("Task %d marked as completed\n", id)
		} else {
			fmt.Printf("Task %d marked as not completed\n", id)
		}
		return nil
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task",
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

		if err := e.store.DeleteTask(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Deleted task %d\n", id)
		return nil
	},
}

func init() {
	taskAddCmd.Flags().Int64P("subject", "s", 0, "Related subject id (required)")
	taskAddCmd.Flags().StringP("description", "d", "", "Task description")
	taskAddCmd.Flags().String("due", "", "Due date as YYYY-MM-DD (default: today)")
	taskAddCmd.Flags().StringP("priority", "p", "medium", "low, medium or high")
	_ = taskAddCmd.MarkFlagRequired("subject")

	taskListCmd.Flags().Int64P("subject", "s", 0, "Only tasks of this subject")
	taskListCmd.Flags().Bool("completed", false, "List completed tasks instead")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskDeleteCmd)
}
