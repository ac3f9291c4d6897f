package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/emilianohg/studytrack/internal/db"
	"github.com/emilianohg/studytrack/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a YAML study report",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		e, err := openMigratedEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		report, err := export.Build(cmd.Context(), e.store, time.Now())
		if err != nil {
			return err
		}

		var w io.Writer = os.Stdout
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create report file: %w", err)
			}
			defer f.Close()
			w = f
		}
		if err := export.Write(w, report); err != nil {
			return err
		}
		if out != "" {
			fmt.Printf("Report written to %s\n", out)
		}
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		before, err := db.GetMigrationStatus(e.conn)
		if err != nil {
			return err
		}
		if !before.Pending && !before.Dirty {
			fmt.Printf("Database is up to date (v%d)\n", before.CurrentVersion)
			return nil
		}

		if err := db.RunMigrations(e.conn); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		after, err := db.GetMigrationStatus(e.conn)
		if err != nil {
			return err
		}
		e.log.Info("database migrated", "from", before.CurrentVersion, "to", after.CurrentVersion)
		fmt.Printf("Migrated database from v%d to v%d\n", before.CurrentVersion, after.CurrentVersion)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("out", "o", "", "Write the report to this file instead of stdout")
}
