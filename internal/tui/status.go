package tui

import (
	"github.com/emilianohg/studytrack/internal/reactive"
)

// StatusLine is a presence sink that shows the running timer in the
// footer of every screen.
type StatusLine struct {
	text *reactive.Value[string]
}

func NewStatusLine() *StatusLine {
	return &StatusLine{text: reactive.NewValue("", reactive.Conflate())}
}

func (s *StatusLine) ShowPersistentTimer(formatted string) { s.text.Set(formatted) }
func (s *StatusLine) ClearPersistentTimer() { s.text.Set("") }

func (s *StatusLine) Text() string { return s.text.Get() }

func (s *StatusLine) Subscribe() *reactive.Subscription[string] { return s.text.Subscribe() }
