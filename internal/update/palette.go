package update

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/streakly/internal/commands"
	"github.com/sandeepkv93/streakly/internal/model"
	"github.com/sandeepkv93/streakly/internal/tracker"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePalette()
		m.Status = StatusBar{Text: "command palette closed"}
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		return m.executePaletteCommand()
	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
			m.Palette.Input = m.commandInput.Value()
			return m, nil
		}
		var cmd tea.Cmd
		m.commandInput, cmd = m.commandInput.Update(msg)
		m.Palette.Input = m.commandInput.Value()
		return m, cmd
	}
	return m, nil
}

func (m *Model) closePalette() {
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}

func (m Model) executePaletteCommand() (Model, tea.Cmd) {
	raw := strings.TrimSpace(m.Palette.Input)
	m.closePalette()

	cmd, err := commands.Parse(raw)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}
	if cmd.Type == commands.TypeShow {
		switch cmd.Show.Subject {
		case "digest":
			m.CurrentView = ViewDigest
			return m, nil
		case "today":
			m.CurrentView = ViewToday
			return m, nil
		}
	}

	handlers := paletteHandlers(m.ctx, m.svc, append([]tracker.TodayItem(nil), m.Items...), m.loc)
	m.Status = StatusBar{Text: "running " + string(cmd.Type)}
	return m, func() tea.Msg {
		res, err := commands.Execute(cmd, handlers)
		return actionDoneMsg{text: res.Message, err: err, reload: cmd.Type != commands.TypeShow}
	}
}

func paletteHandlers(ctx context.Context, svc Service, items []tracker.TodayItem, loc *time.Location) commands.Handlers {
	resolve := func(target string) (model.Task, error) {
		return resolveTarget(ctx, svc, items, target)
	}
	return commands.Handlers{
		Add: func(a commands.AddArgs) (commands.Result, error) {
			t, err := svc.AddTask(ctx, tracker.NewTask{
				Name:       a.Name,
				StartDate:  a.StartDate,
				EndDate:    a.EndDate,
				Frequency:  a.Frequency,
				TargetTime: a.TargetTime,
			})
			if t.ID == "" {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("added %s (%s)", t.Name, t.Frequency)}, err
		},
		Done: func(a commands.TargetArgs) (commands.Result, error) {
			t, err := resolve(a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("%s: done", t.Name)}, svc.Mark(ctx, t.ID, model.Date{}, model.StatusYes)
		},
		Mark: func(a commands.MarkArgs) (commands.Result, error) {
			t, err := resolve(a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("%s: %s", t.Name, a.Status)}, svc.Mark(ctx, t.ID, model.Date{}, a.Status)
		},
		End: func(a commands.EndArgs) (commands.Result, error) {
			t, err := resolve(a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			ended, err := svc.EndTask(ctx, t.ID, a.Date)
			if ended.EndDate == nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("%s ends %s", ended.Name, ended.EndDate)}, err
		},
		Delete: func(a commands.TargetArgs) (commands.Result, error) {
			t, err := resolve(a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("deleted %s", t.Name)}, svc.DeleteTask(ctx, t.ID)
		},
		Rearm: func() (commands.Result, error) {
			return commands.Result{Message: "reminders re-armed"}, svc.Sync(ctx, true)
		},
		Show: func(s commands.ShowArgs) (commands.Result, error) {
			t, err := resolve(s.Target)
			if err != nil {
				return commands.Result{}, err
			}
			switch s.Subject {
			case "streak":
				n, err := svc.Streak(ctx, t.ID)
				if err != nil {
					return commands.Result{}, err
				}
				return commands.Result{Message: fmt.Sprintf("%s streak: %d", t.Name, n)}, nil
			default:
				st, err := svc.Schedule(ctx, t.ID)
				if err != nil {
					return commands.Result{}, err
				}
				msg := fmt.Sprintf("%s reminder: %s", t.Name, st.Phase)
				if st.ArmedFor != nil {
					msg += " for " + st.ArmedFor.In(loc).Format("2006-01-02 15:04")
				}
				return commands.Result{Message: msg}, nil
			}
		},
	}
}

// resolveTarget accepts a 1-based position in today's list, a task id or id
// prefix, or a case-insensitive task name.
func resolveTarget(ctx context.Context, svc Service, items []tracker.TodayItem, target string) (model.Task, error) {
	target = strings.TrimSpace(target)
	if n, err := strconv.Atoi(target); err == nil {
		if n < 1 || n > len(items) {
			return model.Task{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("no task at position %d", n)}
		}
		return items[n-1].Task, nil
	}
	tasks, err := svc.Tasks(ctx)
	if err != nil {
		return model.Task{}, err
	}
	var matches []model.Task
	for _, t := range tasks {
		if t.ID == target || strings.EqualFold(t.Name, target) {
			return t, nil
		}
		if strings.HasPrefix(t.ID, target) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return model.Task{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("no task matches %q", target)}
	default:
		return model.Task{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("%q matches %d tasks", target, len(matches))}
	}
}
