package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("STUDYTRACK_HOME", home)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "INFO" || cfg.DashboardRecentSessions != 5 || cfg.SubjectRecentSessions != 10 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if _, err := os.Stat(filepath.Join(home, "config.toml")); err != nil {
		t.Fatalf("config file should be written on first load: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, "db")); err != nil {
		t.Fatalf("db directory should exist: %v", err)
	}
}

func TestLoadReadsFileAndEnvOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("STUDYTRACK_HOME", home)
	t.Setenv("STUDYTRACK_LOG_LEVEL", "DEBUG")

	content := `
log_level = "ERROR"
snapshot_grace_seconds = 2
subject_recent_sessions = 0
subject_colors = [["#000000"], []]
`
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Fatalf("env should override file, got %q", cfg.LogLevel)
	}
	if cfg.SnapshotGraceSeconds != 2 || cfg.SnapshotGrace().Seconds() != 2 {
		t.Fatalf("grace not read from file: %d", cfg.SnapshotGraceSeconds)
	}
	if cfg.SubjectRecentSessions != 10 {
		t.Fatalf("non-positive limit should fall back to default, got %d", cfg.SubjectRecentSessions)
	}
	if len(cfg.SubjectColors) != 1 || cfg.SubjectColors[0][0] != "#000000" {
		t.Fatalf("empty palettes should be dropped, got %v", cfg.SubjectColors)
	}
}

func TestLoadNormalizesFileValues(t *testing.T) {
	defaults := DefaultConfig()

	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "empty timer status file disables it",
			content: `timer_status_file = ""`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.TimerStatusFile != "" {
					t.Fatalf("expected empty timer status file, got %q", cfg.TimerStatusFile)
				}
			},
		},
		{
			name:    "non-positive recent session limits fall back",
			content: "dashboard_recent_sessions = -3\nsubject_recent_sessions = 0",
			check: func(t *testing.T, cfg *Config) {
				if cfg.DashboardRecentSessions != defaults.DashboardRecentSessions {
					t.Fatalf("dashboard limit = %d", cfg.DashboardRecentSessions)
				}
				if cfg.SubjectRecentSessions != defaults.SubjectRecentSessions {
					t.Fatalf("subject limit = %d", cfg.SubjectRecentSessions)
				}
			},
		},
		{
			name:    "negative grace is clamped to zero",
			content: `snapshot_grace_seconds = -4`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.SnapshotGraceSeconds != 0 {
					t.Fatalf("grace = %d", cfg.SnapshotGraceSeconds)
				}
			},
		},
		{
			name:    "only empty palettes fall back to defaults",
			content: `subject_colors = [[], []]`,
			check: func(t *testing.T, cfg *Config) {
				if len(cfg.SubjectColors) != len(defaults.SubjectColors) {
					t.Fatalf("palettes = %v", cfg.SubjectColors)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := t.TempDir()
			t.Setenv("STUDYTRACK_HOME", home)
			if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(tt.content), 0644); err != nil {
				t.Fatalf("write config: %v", err)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}
