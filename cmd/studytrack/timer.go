package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/emilianohg/studytrack/internal/models"
	"github.com/emilianohg/studytrack/internal/presence"
	"github.com/emilianohg/studytrack/internal/timer"
)

var timerCmd = &cobra.Command{
	Use:   "timer <subject-id>",
	Short: "Run a study session in the foreground",
	Long: `Run the session timer without the TUI. Every second the elapsed time is
printed and written to the timer status file. Press Ctrl+C to finish: the
session is saved when it lasted at least 36 seconds.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subjectID, err := parseID(args[0])
		if err != nil {
			return err
		}

		e, err := openMigratedEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		name, err := subjectName(cmd.Context(), e, subjectID)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		t := timer.New(nil, e.log)
		defer t.Close()
		sink := presence.MultiSink{presence.NewFileSink(e.cfg.TimerStatusFile, e.log), presence.LogSink{Log: e.log}}
		ctrl := presence.NewController(t, sink, e.log)
		defer ctrl.Close()

		sub := t.Subscribe()
		defer sub.Close()

		t.Bind(subjectID)
		ctrl.Handle(timer.ActionStart)
		fmt.Printf("Studying %s. Press Ctrl+C to finish.\n", name)

		last := waitForInterrupt(ctx, sub.C)

		snap := t.Stop()
		if snap.ElapsedSeconds < last.ElapsedSeconds {
			snap = last
		}
		fmt.Println()

		if !snap.CanFinish() {
			ctrl.Handle(timer.ActionCancel)
			fmt.Printf("Session lasted %s, shorter than %d seconds. Not saved.\n",
				models.FormatHMS(snap.ElapsedSeconds), models.MinSessionSeconds)
			return nil
		}

		session := sessionFromTimer(subjectID, name, snap.ElapsedSeconds, time.Now())
		// The interrupt already cancelled ctx; the save must still go through.
		if err := e.store.InsertSession(context.WithoutCancel(ctx), &session); err != nil {
			return fmt.Errorf("save %s session: %w", models.FormatHMS(snap.ElapsedSeconds), err)
		}
		ctrl.Handle(timer.ActionCancel)
		fmt.Printf("Saved session %d: %s of %s\n", session.ID, models.FormatHMS(session.DurationSeconds), name)
		return nil
	},
}

// waitForInterrupt prints every tick until ctx is done and returns the last
// snapshot seen.
func waitForInterrupt(ctx context.Context, ticks <-chan timer.Snapshot) timer.Snapshot {
	var last timer.Snapshot
	for {
		select {
		case <-ctx.Done():
			return last
		case snap, ok := <-ticks:
			if !ok {
				return last
			}
			last = snap
			fmt.Printf("\r%s  %s", snap.Formatted, snap.State)
		}
	}
}
