package update

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/sandeepkv93/streakly/internal/digest"
	"github.com/sandeepkv93/streakly/internal/model"
	"github.com/sandeepkv93/streakly/internal/reminder"
	"github.com/sandeepkv93/streakly/internal/tracker"
)

// Service is the tracker surface the TUI drives.
type Service interface {
	Today() model.Date
	Agenda(ctx context.Context) ([]tracker.TodayItem, error)
	Tasks(ctx context.Context) ([]model.Task, error)
	Digest(ctx context.Context) (digest.Digest, error)
	AddTask(ctx context.Context, in tracker.NewTask) (model.Task, error)
	Mark(ctx context.Context, id string, day model.Date, status model.CompletionStatus) error
	EndTask(ctx context.Context, id string, end model.Date) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error
	Streak(ctx context.Context, id string) (int, error)
	Schedule(ctx context.Context, id string) (reminder.ScheduleState, error)
	Sync(ctx context.Context, defensive bool) error
	Rollover(ctx context.Context) (tracker.RolloverResult, error)
}

type View string

const (
	ViewToday  View = "Today"
	ViewDigest View = "Digest"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Today  string
	Digest string
	Help   string
	Quit   string
}

type Options struct {
	// Refresh is how often the model checks for a new day.
	Refresh  time.Duration
	Location *time.Location
}

type Model struct {
	CurrentView    View
	SelectedTaskID string
	Day            model.Date
	Items          []tracker.TodayItem
	Cursor         int
	Digest         digest.Digest
	Schedule       map[string]reminder.ScheduleState
	Palette        CommandPaletteState
	HelpVisible    bool
	Notifications  []Notification
	Status         StatusBar
	Keys           GlobalKeyMap
	Quitting       bool
	LastError      error
	Loading        bool
	Width          int

	svc     Service
	ctx     context.Context
	refresh time.Duration
	loc     *time.Location

	todayTable   table.Model
	commandInput textinput.Model
	syncSpinner  spinner.Model
	helpModel    help.Model
	digestView   viewport.Model
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type Notification struct {
	Body  string
	Level string
	At    time.Time
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// agendaLoadedMsg carries a fresh read of today's tasks and the digest.
type agendaLoadedMsg struct {
	day    model.Date
	items  []tracker.TodayItem
	digest digest.Digest
	err    error
}

type scheduleLoadedMsg struct {
	state reminder.ScheduleState
	err   error
}

// actionDoneMsg reports a write. reload asks for a fresh agenda afterwards.
type actionDoneMsg struct {
	text   string
	err    error
	reload bool
}

type tickMsg time.Time

func NewModel(ctx context.Context, svc Service, opts Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Refresh <= 0 {
		opts.Refresh = time.Minute
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	m := Model{
		CurrentView: ViewToday,
		Schedule:    make(map[string]reminder.ScheduleState),
		Keys: GlobalKeyMap{
			Today:  "1",
			Digest: "2",
			Help:   "?",
			Quit:   "q",
		},
		Loading: true,
		svc:     svc,
		ctx:     ctx,
		refresh: opts.Refresh,
		loc:     opts.Location,
	}
	m.initBubbleComponents()
	return m
}

func (m *Model) initBubbleComponents() {
	cols := []table.Column{
		{Title: "#", Width: 3},
		{Title: "Task", Width: 22},
		{Title: "At", Width: 6},
		{Title: "Every", Width: 9},
		{Title: "Today", Width: 8},
		{Title: "Streak", Width: 6},
	}
	m.todayTable = table.New(table.WithColumns(cols), table.WithRows([]table.Row{}), table.WithFocused(true), table.WithHeight(12))

	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48

	m.syncSpinner = spinner.New()
	m.syncSpinner.Spinner = spinner.Dot

	m.helpModel = help.New()
	m.digestView = viewport.New(54, 16)
}
