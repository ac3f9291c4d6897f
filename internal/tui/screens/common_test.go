package screens

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/emilianohg/studytrack/internal/viewmodel"
)

func TestNoticesExpireOnlyTheirOwnMessage(t *testing.T) {
	var n notices
	first := viewmodel.Notice{ID: uuid.New(), Message: "Task saved successfully.", Duration: viewmodel.Short, Kind: viewmodel.KindInfo}
	second := viewmodel.Notice{ID: uuid.New(), Message: "Couldn't save task.", Duration: viewmodel.Long, Kind: viewmodel.KindPersistence}

	if _, handled, _ := n.handle(eventMsg{event: first}); !handled {
		t.Fatal("notice not handled")
	}
	n.handle(eventMsg{event: second})

	// The first notice's timer fires after it was replaced.
	n.handle(noticeExpiredMsg{id: first.ID})
	if !strings.Contains(n.View(), second.Message) {
		t.Fatalf("second notice should still show, got %q", n.View())
	}

	n.handle(noticeExpiredMsg{id: second.ID})
	if n.View() != "" {
		t.Fatalf("expected no notice, got %q", n.View())
	}
}

func TestNoticesReportNavigateUp(t *testing.T) {
	var n notices
	_, handled, up := n.handle(eventMsg{event: viewmodel.NavigateUp{}})
	if !handled || !up {
		t.Fatalf("handled=%v navigateUp=%v", handled, up)
	}

	if _, handled, _ := n.handle(struct{}{}); handled {
		t.Fatal("unrelated messages must pass through")
	}
}

func TestListenStopsOnClosedChannel(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 7
	cmd := listen(ch, func(v int) tea.Msg { return v })

	if got := cmd(); got != 7 {
		t.Fatalf("expected 7, got %v", got)
	}
	close(ch)
	if got := cmd(); got != nil {
		t.Fatalf("expected nil after close, got %v", got)
	}
}

func TestProgressBarWidth(t *testing.T) {
	for _, p := range []float64{0, 0.5, 1} {
		bar := progressBar(p, 10)
		if got := strings.Count(bar, "█") + strings.Count(bar, "░"); got != 10 {
			t.Fatalf("progress %v: expected 10 cells, got %d", p, got)
		}
	}
}
