package presence

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileSink mirrors the persistent timer into a small status file that shell
// prompts and status bars can read. The file holds the formatted time on the
// first line and the click target on the second; it is removed on clear.
// An empty path disables the sink.
type FileSink struct {
	path string
	log  *slog.Logger
}

func NewFileSink(path string, log *slog.Logger) *FileSink {
	return &FileSink{path: path, log: log}
}

func (s *FileSink) ShowPersistentTimer(formatted string) {
	if s.path == "" {
		return
	}
	if err := s.write(formatted); err != nil {
		s.log.Warn("failed to write timer status file", "path", s.path, "error", err)
	}
}

func (s *FileSink) ClearPersistentTimer() {
	if s.path == "" {
		return
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("failed to remove timer status file", "path", s.path, "error", err)
	}
}

func (s *FileSink) write(formatted string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	content := fmt.Sprintf("%s\n%s\n", formatted, ClickTarget)
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// MultiSink fans every call out to each sink in order.
type MultiSink []Sink

func (m MultiSink) ShowPersistentTimer(formatted string) {
	for _, s := range m {
		s.ShowPersistentTimer(formatted)
	}
}

func (m MultiSink) ClearPersistentTimer() {
	for _, s := range m {
		s.ClearPersistentTimer()
	}
}

// LogSink records presence changes in the log, used when nothing else displays them.
type LogSink struct {
	Log *slog.Logger
}

func (s LogSink) ShowPersistentTimer(formatted string) {
	s.Log.Debug("timer tick", "elapsed", formatted)
}

func (s LogSink) ClearPersistentTimer() {
	s.Log.Debug("timer presence cleared by sink")
}
