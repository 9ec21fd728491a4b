package update

import (
	"strings"
	"time"

	"github.com/sandeepkv93/streakly/internal/model"
	"github.com/sandeepkv93/streakly/internal/views"
)

func (m Model) renderTodayView() string {
	done := 0
	for _, it := range m.Items {
		if it.Status == model.StatusYes {
			done++
		}
	}
	return views.RenderTodayPanel(views.TodayPanelData{
		Date:      m.Day.String(),
		TableView: m.todayTable.View(),
		Done:      done,
		Total:     len(m.Items),
	})
}

func (m Model) renderDetailPane() string {
	sel, ok := m.currentItem()
	if !ok {
		return views.RenderTaskDetail(views.TaskDetailData{})
	}
	t := sel.Task
	data := views.TaskDetailData{
		ID:        t.ID,
		Name:      t.Name,
		Frequency: string(t.Frequency),
		StartDate: t.StartDate.String(),
		Status:    sel.Status.String(),
		Streak:    sel.Streak,
	}
	if t.EndDate != nil {
		data.EndDate = t.EndDate.String()
	}
	if t.TargetTime != nil {
		data.TargetTime = t.TargetTime.String()
	}
	if st, ok := m.Schedule[t.ID]; ok {
		data.Phase = string(st.Phase)
		if st.ArmedFor != nil {
			data.ArmedFor = st.ArmedFor.In(m.loc).Format("2006-01-02 15:04")
		}
	}
	return views.RenderTaskDetail(data)
}

func (m Model) renderCommandPalette() string {
	out := views.RenderCommandPalette(m.Palette.Active, m.Palette.Input)
	if out == "" {
		return ""
	}
	return "\n\n" + out
}

func (m Model) renderNotificationsView() string {
	if len(m.Notifications) == 0 {
		return ""
	}
	n := m.Notifications[len(m.Notifications)-1]
	return views.RenderNotification(n.Level, n.Body)
}

func (m *Model) notify(body, level string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	m.Notifications = append(m.Notifications, Notification{
		Body:  body,
		Level: level,
		At:    time.Now().UTC(),
	})
	if len(m.Notifications) > 40 {
		m.Notifications = m.Notifications[len(m.Notifications)-40:]
	}
}
