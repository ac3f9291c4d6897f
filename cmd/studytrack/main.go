package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/emilianohg/studytrack/internal/config"
	"github.com/emilianohg/studytrack/internal/db"
	"github.com/emilianohg/studytrack/internal/presence"
	"github.com/emilianohg/studytrack/internal/repository"
	"github.com/emilianohg/studytrack/internal/timer"
	"github.com/emilianohg/studytrack/internal/tui"
	"github.com/emilianohg/studytrack/internal/viewmodel"
)

var rootCmd = &cobra.Command{
	Use:           "studytrack",
	Short:         "Study session timer and tracker",
	Long:          `Studytrack times your study sessions per subject and keeps track of goals and tasks.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		// Run initial migration if this is a fresh database
		status, err := db.GetMigrationStatus(e.conn)
		if err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		if status.CurrentVersion == 0 {
			if err := db.RunMigrations(e.conn); err != nil {
				return fmt.Errorf("initial migrations: %w", err)
			}
		} else if status.Pending || status.Dirty {
			return fmt.Errorf("database schema at v%d (latest v%d) needs migrating, run 'studytrack migrate' first",
				status.CurrentVersion, status.LatestVersion)
		}

		t := timer.New(nil, e.log)
		defer t.Close()

		statusLine := tui.NewStatusLine()
		sink := presence.MultiSink{presence.NewFileSink(e.cfg.TimerStatusFile, e.log), statusLine}
		ctrl := presence.NewController(t, sink, e.log)
		defer ctrl.Close()

		e.log.Info("studytrack started")
		return tui.Run(e.store, e.log, e.options(), ctrl, statusLine)
	},
}

// env is what every command needs: config, a logger writing to the log
// file, and the store.
type env struct {
	cfg     *config.Config
	log     *slog.Logger
	logFile *os.File
	conn    *sqlx.DB
	store   *repository.Store
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, logFile, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	dbPath, err := config.DatabasePath()
	if err != nil {
		logFile.Close()
		return nil, err
	}
	conn, err := db.Open(dbPath)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &env{
		cfg:     cfg,
		log:     log,
		logFile: logFile,
		conn:    conn,
		store:   repository.NewStore(conn, log),
	}, nil
}

// openMigratedEnv is used by the non-interactive commands, which bring the
// schema up to date before touching data.
func openMigratedEnv() (*env, error) {
	e, err := openEnv()
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(e.conn); err != nil {
		e.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return e, nil
}

func (e *env) Close() {
	e.conn.Close()
	e.logFile.Close()
}

func (e *env) options() viewmodel.Options {
	return viewmodel.Options{
		Grace:                   e.cfg.SnapshotGrace(),
		DashboardRecentSessions: e.cfg.DashboardRecentSessions,
		SubjectRecentSessions:   e.cfg.SubjectRecentSessions,
		Palettes:                e.cfg.SubjectColors,
	}
}

func newLogger(level string) (*slog.Logger, *os.File, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	if err := config.EnsureDirectories(); err != nil {
		return nil, nil, err
	}
	logPath, err := config.LogPath()
	if err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: lvl})), f, nil
}

func init() {
	rootCmd.AddCommand(subjectCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(timerCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
