package main

import (
	"testing"
	"time"
)

func TestParseID(t *testing.T) {
	if id, err := parseID("42"); err != nil || id != 42 {
		t.Fatalf("parseID(42) = %d, %v", id, err)
	}
	for _, bad := range []string{"", "0", "-3", "abc"} {
		if _, err := parseID(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestSessionFromTimerBackdatesStart(t *testing.T) {
	end := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	s := sessionFromTimer(3, "Math", 90, end)

	if s.DurationSeconds != 90 || s.SubjectID != 3 || s.SubjectName != "Math" {
		t.Fatalf("unexpected session %+v", s)
	}
	if want := end.Add(-90 * time.Second).UnixMilli(); s.StartDate != want {
		t.Fatalf("start %d, want %d", s.StartDate, want)
	}
}
