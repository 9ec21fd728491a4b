package update

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/streakly/internal/model"
	"github.com/sandeepkv93/streakly/internal/tracker"
)

func (m Model) handleTodayKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
		cmd := m.selectCurrent()
		return m, cmd
	case "down", "j":
		if m.Cursor < len(m.Items)-1 {
			m.Cursor++
		}
		cmd := m.selectCurrent()
		return m, cmd
	case " ", "enter":
		sel, ok := m.currentItem()
		if !ok {
			return m, nil
		}
		next := model.StatusYes
		if sel.Status == model.StatusYes {
			next = model.StatusUnset
		}
		return m, m.markCmd(sel, next)
	case "y":
		return m.markSelected(model.StatusYes)
	case "n":
		return m.markSelected(model.StatusNo)
	case "p":
		return m.markSelected(model.StatusPartly)
	case "u":
		return m.markSelected(model.StatusUnset)
	}
	return m, nil
}

func (m Model) markSelected(status model.CompletionStatus) (Model, tea.Cmd) {
	sel, ok := m.currentItem()
	if !ok {
		return m, nil
	}
	return m, m.markCmd(sel, status)
}

func (m Model) markCmd(item tracker.TodayItem, status model.CompletionStatus) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		err := svc.Mark(ctx, item.Task.ID, model.Date{}, status)
		return actionDoneMsg{text: fmt.Sprintf("%s: %s", item.Task.Name, status), err: err, reload: true}
	}
}

// selectCurrent tracks the cursor and fetches the reminder state of a
// time-based selection.
func (m *Model) selectCurrent() tea.Cmd {
	sel, ok := m.currentItem()
	if !ok {
		m.SelectedTaskID = ""
		return nil
	}
	m.SelectedTaskID = sel.Task.ID
	if !sel.Task.IsTimeBased {
		return nil
	}
	svc, ctx, id := m.svc, m.ctx, sel.Task.ID
	return func() tea.Msg {
		st, err := svc.Schedule(ctx, id)
		return scheduleLoadedMsg{state: st, err: err}
	}
}

func (m Model) currentItem() (tracker.TodayItem, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Items) {
		return tracker.TodayItem{}, false
	}
	return m.Items[m.Cursor], true
}
