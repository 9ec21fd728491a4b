package digest

import (
	"fmt"
	"strings"

	"github.com/sandeepkv93/streakly/internal/model"
)

type Variant string

const (
	VariantFreshStart       Variant = "fresh_start"
	VariantTasksAwait       Variant = "tasks_await"
	VariantYesterdaySlipped Variant = "yesterday_slipped"
	VariantYesterdayStrong  Variant = "yesterday_strong"
	VariantProgressMade     Variant = "progress_made"

	VariantNoTasks        Variant = "no_tasks"
	VariantDayCompleted   Variant = "day_completed"
	VariantPartialSummary Variant = "partial_summary"

	VariantStreakRisk Variant = "streak_risk"
)

// Stats summarises one day: how many tasks were due and how they ended up.
type Stats struct {
	Total     int
	Completed int
	Pending   int
}

type Message struct {
	Variant Variant
	Title   string
	Body    string
}

// Digest is the set of canned daily messages. Warning is nil when nothing is
// pending today.
type Digest struct {
	Morning Message
	Night   Message
	Warning *Message
}

// Collect counts the tasks due on day and how many of them are marked Yes.
// Partly counts as pending.
func Collect(tasks []model.Task, history model.Completions, day model.Date) Stats {
	var s Stats
	for _, t := range model.DueTasks(tasks, day) {
		s.Total++
		if history.Status(t.ID, day) == model.StatusYes {
			s.Completed++
		}
	}
	s.Pending = s.Total - s.Completed
	return s
}

func Compose(yesterday, today Stats) Digest {
	d := Digest{
		Morning: morning(yesterday, today),
		Night:   night(today),
	}
	if today.Pending > 0 {
		w := warning(today)
		d.Warning = &w
	}
	return d
}

func morning(y, t Stats) Message {
	switch {
	case y.Total == 0 && t.Total == 0:
		return Message{
			Variant: VariantFreshStart,
			Title:   "🌅 Fresh start",
			Body:    "Nothing is scheduled today. A good day to plan a new habit.",
		}
	case y.Total == 0:
		return Message{
			Variant: VariantTasksAwait,
			Title:   "☀️ Good morning",
			Body:    fmt.Sprintf("You have %d task(s) today. Let's start a streak!", t.Total),
		}
	case y.Completed == 0:
		return Message{
			Variant: VariantYesterdaySlipped,
			Title:   "🌱 New day, new chance",
			Body:    fmt.Sprintf("Yesterday slipped away, but today is yours: %d task(s) waiting.", t.Total),
		}
	case y.Completed == y.Total:
		return Message{
			Variant: VariantYesterdayStrong,
			Title:   "🔥 Keep it going",
			Body:    fmt.Sprintf("You finished all %d task(s) yesterday. %d task(s) today.", y.Total, t.Total),
		}
	default:
		return Message{
			Variant: VariantProgressMade,
			Title:   "💪 Progress made",
			Body:    fmt.Sprintf("You finished %d of %d task(s) yesterday. %d task(s) today.", y.Completed, y.Total, t.Total),
		}
	}
}

func night(t Stats) Message {
	switch {
	case t.Total == 0:
		return Message{
			Variant: VariantNoTasks,
			Title:   "🌙 Good night",
			Body:    "No tasks were scheduled today.",
		}
	case t.Completed == t.Total:
		return Message{
			Variant: VariantDayCompleted,
			Title:   "🏆 Day completed",
			Body:    fmt.Sprintf("All %d task(s) done today. Great work!", t.Total),
		}
	default:
		return Message{
			Variant: VariantPartialSummary,
			Title:   "📊 Daily summary",
			Body:    fmt.Sprintf("%d of %d task(s) completed today, %d pending.", t.Completed, t.Total, t.Pending),
		}
	}
}

func warning(t Stats) Message {
	body := fmt.Sprintf("%d tasks are still pending. Finish them before midnight to keep your streaks.", t.Pending)
	if t.Pending == 1 {
		body = "1 task is still pending. Finish it before midnight to keep your streak."
	}
	return Message{
		Variant: VariantStreakRisk,
		Title:   "⚠️ Streak at risk",
		Body:    body,
	}
}

// Markdown renders the digest for terminal display.
func (d Digest) Markdown() string {
	var b strings.Builder
	write := func(label string, m Message) {
		fmt.Fprintf(&b, "### %s\n\n**%s** %s\n\n", label, m.Title, m.Body)
	}
	write("Morning", d.Morning)
	write("Night", d.Night)
	if d.Warning != nil {
		write("Warning", *d.Warning)
	}
	return strings.TrimSpace(b.String())
}
