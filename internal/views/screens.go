package views

import (
	"fmt"
	"strings"
)

type TodayPanelData struct {
	Date      string
	TableView string
	Done      int
	Total     int
}

type TaskDetailData struct {
	ID         string
	Name       string
	Frequency  string
	StartDate  string
	EndDate    string
	TargetTime string
	Status     string
	Streak     int
	Phase      string
	ArmedFor   string
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
}

func RenderTodayPanel(data TodayPanelData) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("today: %s  (%d/%d done)\n", data.Date, data.Done, data.Total))
	b.WriteString("actions: [j/k]move [space]toggle [y]es [n]o [p]artly [u]nset\n")
	if data.Total == 0 {
		b.WriteString("\nnothing is due today. add one with /add <name>")
		return b.String()
	}
	b.WriteString(data.TableView)
	return strings.TrimSpace(b.String())
}

func RenderTaskDetail(data TaskDetailData) string {
	if strings.TrimSpace(data.ID) == "" {
		return "task:\n(no selection)"
	}
	var b strings.Builder
	b.WriteString("task:\n")
	b.WriteString(fmt.Sprintf("name: %s\n", data.Name))
	b.WriteString(fmt.Sprintf("id: %s\n", data.ID))
	b.WriteString(fmt.Sprintf("every: %s\n", data.Frequency))
	active := data.StartDate
	if data.EndDate != "" {
		active += " .. " + data.EndDate
	}
	b.WriteString(fmt.Sprintf("active: %s\n", active))
	b.WriteString(fmt.Sprintf("today: %s\n", StatusBadge(data.Status)))
	b.WriteString(fmt.Sprintf("streak: %s\n", StreakFlames(data.Streak)))
	if data.TargetTime != "" {
		b.WriteString(fmt.Sprintf("\nreminder @%s\n", data.TargetTime))
		if data.Phase != "" {
			b.WriteString(fmt.Sprintf("phase: %s\n", data.Phase))
		}
		if data.ArmedFor != "" {
			b.WriteString(fmt.Sprintf("armed for: %s\n", data.ArmedFor))
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// StreakFlames draws up to seven flames followed by the exact count.
func StreakFlames(n int) string {
	if n <= 0 {
		return "0"
	}
	shown := n
	if shown > 7 {
		shown = 7
	}
	return fmt.Sprintf("%s %d", strings.Repeat("🔥", shown), n)
}

func RenderDigestPanel(rendered string) string {
	if strings.TrimSpace(rendered) == "" {
		return "digest:\n(loading)"
	}
	return "digest:\n" + rendered
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: /%s", input)
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("notification: [%s] %s", strings.ToUpper(level), body)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\n%s view:\n%s\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}
