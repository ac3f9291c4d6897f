package tui

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/emilianohg/studytrack/internal/presence"
	"github.com/emilianohg/studytrack/internal/reactive"
	"github.com/emilianohg/studytrack/internal/tui/screens"
	"github.com/emilianohg/studytrack/internal/viewmodel"
)

// Screen is one entry of the navigation stack. Close is called when the
// screen is covered or popped; Init when it becomes visible again.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
	View() string
	SetSize(width, height int)
	Close()
}

// capturer is implemented by screens that route keys to a text input.
type capturer interface {
	Capturing() bool
}

type frame struct {
	screen Screen
	vm     interface{ Close() }
}

type App struct {
	store    viewmodel.Store
	log      *slog.Logger
	opts     viewmodel.Options
	presence *presence.Controller
	status   *StatusLine

	stack  []frame
	width  int
	height int

	statusSub  *reactive.Subscription[string]
	statusText string
}

func NewApp(store viewmodel.Store, log *slog.Logger, opts viewmodel.Options, ctrl *presence.Controller, status *StatusLine) *App {
	return &App{
		store:    store,
		log:      log,
		opts:     opts,
		presence: ctrl,
		status:   status,
	}
}

type statusMsg struct {
	text string
}

func (a *App) Init() tea.Cmd {
	vm := viewmodel.NewDashboard(a.store, a.log, a.opts)
	a.stack = []frame{{screen: screens.NewDashboard(vm, a.opts.Palettes), vm: vm}}

	cmds := []tea.Cmd{a.top().Init()}
	if a.status != nil {
		a.statusSub = a.status.Subscribe()
		cmds = append(cmds, a.nextStatus())
	}
	return tea.Batch(cmds...)
}

func (a *App) nextStatus() tea.Cmd {
	ch := a.statusSub.C
	return func() tea.Msg {
		text, ok := <-ch
		if !ok {
			return nil
		}
		return statusMsg{text}
	}
}

func (a *App) top() Screen {
	return a.stack[len(a.stack)-1].screen
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			a.shutdown()
			return a, tea.Quit
		case "q":
			if c, ok := a.top().(capturer); ok && c.Capturing() {
				break
			}
			if len(a.stack) == 1 {
				a.shutdown()
				return a, tea.Quit
			}
			// Let individual screens handle 'q' for going back
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		for _, f := range a.stack {
			f.screen.SetSize(msg.Width, msg.Height)
		}

	case statusMsg:
		a.statusText = msg.text
		return a, a.nextStatus()

	case screens.NavigateMsg:
		return a, a.push(msg)

	case screens.BackMsg:
		return a, a.pop()
	}

	return a, a.top().Update(msg)
}

func (a *App) push(msg screens.NavigateMsg) tea.Cmd {
	var f frame
	switch msg.Screen {
	case "subject":
		vm := viewmodel.NewSubject(a.store, a.log, a.opts, msg.SubjectID)
		f = frame{screen: screens.NewSubject(vm, a.opts.Palettes), vm: vm}
	case "task":
		vm := viewmodel.NewTask(a.store, a.log, a.opts, msg.TaskID, msg.SubjectID)
		f = frame{screen: screens.NewTask(vm), vm: vm}
	case "session":
		vm := viewmodel.NewSession(a.store, a.log, a.opts, a.presence)
		f = frame{screen: screens.NewSession(vm), vm: vm}
	default:
		a.log.Warn("unknown screen", "screen", msg.Screen)
		return nil
	}

	a.top().Close()
	f.screen.SetSize(a.width, a.height)
	a.stack = append(a.stack, f)
	return f.screen.Init()
}

func (a *App) pop() tea.Cmd {
	if len(a.stack) == 1 {
		return nil
	}
	f := a.stack[len(a.stack)-1]
	a.stack = a.stack[:len(a.stack)-1]
	f.screen.Close()
	f.vm.Close()
	return a.top().Init()
}

func (a *App) shutdown() {
	for i := len(a.stack) - 1; i >= 0; i-- {
		a.stack[i].screen.Close()
		a.stack[i].vm.Close()
	}
	if a.statusSub != nil {
		a.statusSub.Close()
	}
}

func (a *App) View() string {
	content := a.top().View()

	if a.statusText != "" {
		if _, onSession := a.top().(*screens.Session); !onSession {
			content += "\n\n" + screens.TimerStyle.Render("● Studying "+a.statusText)
		}
	}

	return lipgloss.NewStyle().
		Width(a.width).
		Height(a.height).
		Render(content)
}

// Run blocks until the user quits. Timer and presence outlive the program;
// the caller owns them.
func Run(store viewmodel.Store, log *slog.Logger, opts viewmodel.Options, ctrl *presence.Controller, status *StatusLine) error {
	app := NewApp(store, log, opts, ctrl, status)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
