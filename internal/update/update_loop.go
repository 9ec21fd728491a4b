package update

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/streakly/internal/tracker"
	"github.com/sandeepkv93/streakly/internal/views"
)

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadAgendaCmd(), m.tickCmd(), m.syncSpinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	next.syncBubbleData()
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = typed.Width
		left, _ := views.PaneWidths(typed.Width)
		m.digestView.Width = left - 2
		m.digestView.Height = max(typed.Height-12, 6)
		m.digestView.SetContent(views.RenderMarkdown(m.Digest.Markdown(), m.digestView.Width-2))
		return m, nil
	case tea.KeyMsg:
		if m.Palette.Active {
			if typed.String() == m.Keys.Help {
				m.HelpVisible = !m.HelpVisible
				return m, nil
			}
			return m.handlePaletteKey(typed)
		}

		switch typed.String() {
		case "/":
			m.Palette.Active = true
			m.Palette.Input = ""
			m.commandInput.Focus()
			m.commandInput.SetValue("")
			m.Status = StatusBar{Text: "command palette active"}
			return m, nil
		case m.Keys.Today:
			m.CurrentView = ViewToday
			return m, nil
		case m.Keys.Digest:
			m.CurrentView = ViewDigest
			return m, nil
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			if m.HelpVisible {
				m.Status = StatusBar{Text: "help shown"}
			} else {
				m.Status = StatusBar{Text: "help hidden"}
			}
			return m, nil
		case "r":
			m.Status = StatusBar{Text: "re-arming reminders"}
			return m, m.rearmCmd()
		case "ctrl+c", m.Keys.Quit:
			m.Quitting = true
			return m, tea.Quit
		}
		if m.CurrentView == ViewToday {
			return m.handleTodayKey(typed)
		}
		if m.CurrentView == ViewDigest {
			var cmd tea.Cmd
			m.digestView, cmd = m.digestView.Update(typed)
			return m, cmd
		}
	case spinner.TickMsg:
		if m.Loading {
			var cmd tea.Cmd
			m.syncSpinner, cmd = m.syncSpinner.Update(typed)
			return m, cmd
		}
	case SwitchViewMsg:
		if isKnownView(typed.View) {
			m.CurrentView = typed.View
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		m.notify(typed.Text, levelFromError(typed.IsError))
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			m.notify(typed.Err.Error(), "error")
		}
		return m, nil
	case agendaLoadedMsg:
		m.Loading = false
		if typed.err != nil {
			m.LastError = typed.err
			m.Status = StatusBar{Text: typed.err.Error(), IsError: true}
			return m, nil
		}
		m.Day = typed.day
		m.Items = typed.items
		m.Digest = typed.digest
		m.digestView.SetContent(views.RenderMarkdown(typed.digest.Markdown(), m.digestView.Width-2))
		if m.Cursor >= len(m.Items) {
			m.Cursor = len(m.Items) - 1
		}
		if m.Cursor < 0 {
			m.Cursor = 0
		}
		cmd := m.selectCurrent()
		return m, cmd
	case scheduleLoadedMsg:
		if typed.err == nil {
			m.Schedule[typed.state.TaskID] = typed.state
		}
		return m, nil
	case actionDoneMsg:
		m.applyAction(typed)
		if typed.reload {
			m.Loading = true
			return m, tea.Batch(m.loadAgendaCmd(), m.syncSpinner.Tick)
		}
		return m, nil
	case tickMsg:
		if !m.Day.IsZero() && m.svc.Today() != m.Day {
			return m, tea.Batch(m.rolloverCmd(), m.tickCmd())
		}
		return m, m.tickCmd()
	}
	return m, nil
}

func (m *Model) applyAction(a actionDoneMsg) {
	switch {
	case a.err == nil:
		m.Status = StatusBar{Text: a.text}
		m.notify(a.text, "info")
	case errors.Is(a.err, tracker.ErrNotScheduled):
		m.Status = StatusBar{Text: "saved; reminder not scheduled: " + a.err.Error(), IsError: true}
		m.notify(m.Status.Text, "warn")
	default:
		m.LastError = a.err
		m.Status = StatusBar{Text: a.err.Error(), IsError: true}
		m.notify(a.err.Error(), "error")
	}
}

func (m Model) View() string {
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}
	if m.Loading {
		status = fmt.Sprintf("%s loading %s", m.syncSpinner.View(), status)
	}

	leftPane := ""
	rightPane := ""
	switch m.CurrentView {
	case ViewToday:
		leftPane = m.renderTodayView()
		rightPane = m.renderDetailPane()
	case ViewDigest:
		leftPane = views.RenderDigestPanel(m.digestView.View())
		rightPane = m.renderDetailPane()
	}
	rightPane += m.renderCommandPalette() + m.renderHelpIfVisible()

	return views.RenderApp(views.AppData{
		Width:        m.Width,
		Header:       fmt.Sprintf("streakly | view: %s | %s | selected: %s", m.CurrentView, m.Day, m.SelectedTaskID),
		LeftPane:     leftPane,
		RightPane:    rightPane,
		StatusLine:   status,
		IsError:      m.Status.IsError,
		Notification: m.renderNotificationsView(),
		Footer:       fmt.Sprintf("keys: %s today | %s digest | / cmd | r rearm | %s help | %s quit", m.Keys.Today, m.Keys.Digest, m.Keys.Help, m.Keys.Quit),
	})
}

func isKnownView(v View) bool {
	switch v {
	case ViewToday, ViewDigest:
		return true
	default:
		return false
	}
}

func (m *Model) syncBubbleData() {
	rows := make([]table.Row, 0, len(m.Items))
	for i, it := range m.Items {
		at := "-"
		if it.Task.TargetTime != nil {
			at = it.Task.TargetTime.String()
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", i+1),
			it.Task.Name,
			at,
			string(it.Task.Frequency),
			it.Status.String(),
			fmt.Sprintf("%d", it.Streak),
		})
	}
	m.todayTable.SetRows(rows)
	if len(rows) > 0 && m.Cursor < len(rows) {
		m.todayTable.SetCursor(m.Cursor)
	}
	m.commandInput.SetValue(m.Palette.Input)
	if m.Palette.Active {
		m.commandInput.Focus()
	}
}

func (m Model) loadAgendaCmd() tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		items, err := svc.Agenda(ctx)
		d, derr := svc.Digest(ctx)
		return agendaLoadedMsg{day: svc.Today(), items: items, digest: d, err: errors.Join(err, derr)}
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) rolloverCmd() tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		res, err := svc.Rollover(ctx)
		return actionDoneMsg{
			text:   fmt.Sprintf("new day %s, %d record(s) closed as missed", res.To, len(res.Resolved)),
			err:    err,
			reload: true,
		}
	}
}

func (m Model) rearmCmd() tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		return actionDoneMsg{text: "reminders re-armed", err: svc.Sync(ctx, true), reload: true}
	}
}
