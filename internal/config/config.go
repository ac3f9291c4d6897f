package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel                string     `toml:"log_level" env:"STUDYTRACK_LOG_LEVEL"`
	SnapshotGraceSeconds    int        `toml:"snapshot_grace_seconds" env:"STUDYTRACK_SNAPSHOT_GRACE_SECONDS"`
	DashboardRecentSessions int        `toml:"dashboard_recent_sessions" env:"STUDYTRACK_DASHBOARD_RECENT_SESSIONS"`
	SubjectRecentSessions   int        `toml:"subject_recent_sessions" env:"STUDYTRACK_SUBJECT_RECENT_SESSIONS"`
	TimerStatusFile         string     `toml:"timer_status_file" env:"STUDYTRACK_TIMER_STATUS_FILE"`
	SubjectColors           [][]string `toml:"subject_colors"`
}

func DefaultConfig() *Config {
	dir, _ := StudytrackDir()
	return &Config{
		LogLevel:                "INFO",
		SnapshotGraceSeconds:    5,
		DashboardRecentSessions: 5,
		SubjectRecentSessions:   10,
		TimerStatusFile:         filepath.Join(dir, "timer"),
		SubjectColors: [][]string{
			{"#D7B1F8", "#7C4DFF"},
			{"#FFD1A4", "#FF8A3D"},
			{"#A8E6CF", "#2BB673"},
			{"#A6D8FF", "#2F80ED"},
			{"#FFB3C1", "#E63950"},
		},
	}
}

// SnapshotGrace is how long a combined view stays active without subscribers.
func (c *Config) SnapshotGrace() time.Duration {
	return time.Duration(c.SnapshotGraceSeconds) * time.Second
}

// StudytrackDir honours STUDYTRACK_HOME, falling back to ~/.studytrack.
func StudytrackDir() (string, error) {
	if dir := os.Getenv("STUDYTRACK_HOME"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".studytrack"), nil
}

func ConfigPath() (string, error) {
	dir, err := StudytrackDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func DatabasePath() (string, error) {
	dir, err := StudytrackDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "db", "studytrack.sqlite"), nil
}

func LogPath() (string, error) {
	dir, err := StudytrackDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "studytrack.log"), nil
}

func EnsureDirectories() error {
	dir, err := StudytrackDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	dbDir := filepath.Join(dir, "db")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return err
	}

	return nil
}

func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	// First run: persist the defaults so the user has a file to edit
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := EnsureDirectories(); err != nil {
			return nil, err
		}
		if err := Save(cfg); err != nil {
			return nil, err
		}
	} else if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, err
	}

	if err := cleanenv.UpdateEnv(cfg); err != nil {
		return nil, err
	}

	cfg.TimerStatusFile = expandPath(cfg.TimerStatusFile)
	cfg.normalize()

	return cfg, nil
}

func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

func (c *Config) normalize() {
	defaults := DefaultConfig()
	if c.SnapshotGraceSeconds < 0 {
		c.SnapshotGraceSeconds = 0
	}
	if c.DashboardRecentSessions <= 0 {
		c.DashboardRecentSessions = defaults.DashboardRecentSessions
	}
	if c.SubjectRecentSessions <= 0 {
		c.SubjectRecentSessions = defaults.SubjectRecentSessions
	}
	var palettes [][]string
	for _, p := range c.SubjectColors {
		if len(p) > 0 {
			palettes = append(palettes, p)
		}
	}
	if len(palettes) == 0 {
		palettes = defaults.SubjectColors
	}
	c.SubjectColors = palettes
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
