package views

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

type AppData struct {
	// Width is the terminal width; zero uses the default layout.
	Width        int
	Header       string
	LeftPane     string
	RightPane    string
	StatusLine   string
	IsError      bool
	Footer       string
	Notification string
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	missStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	partStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

const (
	defaultLeftPane  = 62
	defaultRightPane = 54
	minPane          = 30
)

// PaneWidths splits the terminal width between the list and the detail pane,
// keeping the default 62/54 split when there is room for it.
func PaneWidths(total int) (left, right int) {
	if total <= 0 || total >= defaultLeftPane+defaultRightPane+4 {
		return defaultLeftPane, defaultRightPane
	}
	usable := total - 4
	left = max(usable*defaultLeftPane/(defaultLeftPane+defaultRightPane), minPane)
	right = max(usable-left, minPane)
	return left, right
}

func RenderApp(data AppData) string {
	lw, rw := PaneWidths(data.Width)
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Width(lw).Render(data.LeftPane),
		panelStyle.Width(rw).Render(data.RightPane),
	)

	style := statusStyle
	if data.IsError {
		style = errorStyle
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(data.Header))
	b.WriteByte('\n')
	b.WriteString(body)
	b.WriteByte('\n')
	b.WriteString(style.Render(data.StatusLine))
	if data.Notification != "" {
		b.WriteByte('\n')
		b.WriteString(panelStyle.Render(data.Notification))
	}
	if data.Footer != "" {
		b.WriteByte('\n')
		b.WriteString(footerStyle.Render(data.Footer))
	}
	return b.String()
}

// RenderMarkdown renders md for the terminal, falling back to the raw text.
func RenderMarkdown(md string, width int) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(glamour.WithStandardStyle("dark"), glamour.WithWordWrap(width))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}

// StatusBadge colours a completion status word.
func StatusBadge(status string) string {
	switch status {
	case "yes":
		return doneStyle.Render("✔ yes")
	case "no":
		return missStyle.Render("✘ no")
	case "partly":
		return partStyle.Render("◐ partly")
	default:
		return "· " + status
	}
}
