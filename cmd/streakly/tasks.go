package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/streakly/internal/model"
	"github.com/sandeepkv93/streakly/internal/tracker"
	"github.com/sandeepkv93/streakly/internal/views"
)

type appFunc func() *app

func addCmd(current appFunc) *cobra.Command {
	var (
		every, at, from, until string
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a recurring task",
		Long: `Add a recurring task.

Examples:
  streakly add "Read 20 pages" --at 21:30
  streakly add Gym --every alternate_days --from 2026-02-09
  streakly add "Pay rent" --every monthly --until 2026-12-31`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := tracker.NewTask{
				Name:      strings.Join(args, " "),
				Frequency: model.Frequency(every),
			}
			var err error
			if at != "" {
				tod, err := model.ParseTimeOfDay(at)
				if err != nil {
					return err
				}
				in.TargetTime = &tod
			}
			if from != "" {
				if in.StartDate, err = model.ParseDate(from); err != nil {
					return err
				}
			}
			if until != "" {
				end, err := model.ParseDate(until)
				if err != nil {
					return err
				}
				in.EndDate = &end
			}
			t, err := current().svc.AddTask(cmd.Context(), in)
			if t.ID == "" {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s) id=%s\n", t.Name, t.Frequency, t.ID)
			return warnOnly(cmd, err)
		},
	}
	cmd.Flags().StringVarP(&every, "every", "e", string(model.FrequencyDaily), "daily, alternate_days, weekly or monthly")
	cmd.Flags().StringVar(&at, "at", "", "reminder time HH:MM (makes the task time-based)")
	cmd.Flags().StringVar(&from, "from", "", "start date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&until, "until", "", "inclusive end date YYYY-MM-DD")
	return cmd
}

func listCmd(current appFunc) *cobra.Command {
	var all, active bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show today's tasks with their streaks",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			defer w.Flush()
			if all || active {
				var tasks []model.Task
				var err error
				if active {
					tasks, err = a.svc.ActiveTasks(cmd.Context(), model.Date{})
				} else {
					tasks, err = a.svc.Tasks(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "ID\tTASK\tEVERY\tAT\tACTIVE")
				for _, t := range tasks {
					span := t.StartDate.String() + " .."
					if t.EndDate != nil {
						span += " " + t.EndDate.String()
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Frequency, targetOf(t), span)
				}
				return nil
			}
			items, err := a.svc.Agenda(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\n", a.svc.Today())
			fmt.Fprintln(w, "#\tTASK\tAT\tTODAY\tSTREAK\tID")
			for i, it := range items {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n", i+1, it.Task.Name, targetOf(it.Task), it.Status, it.Streak, it.Task.ID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list every task, not only today's")
	cmd.Flags().BoolVar(&active, "active", false, "list tasks running today, due or not")
	return cmd
}

func markCmd(current appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "mark <task> <yes|no|partly|unset>",
		Short: "Record today's status for a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := model.ParseStatus(args[1])
			if err != nil {
				return err
			}
			return markTask(cmd, current(), args[0], status)
		},
	}
}

func markTask(cmd *cobra.Command, a *app, target string, status model.CompletionStatus) error {
	t, err := findTask(cmd, a, target)
	if err != nil {
		return err
	}
	err = a.svc.Mark(cmd.Context(), t.ID, model.Date{}, status)
	if err != nil && !isWarning(err) {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", t.Name, status)
	return warnOnly(cmd, err)
}

func endCmd(current appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "end <task> [YYYY-MM-DD]",
		Short: "Stop a task after a date, keeping its history",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			t, err := findTask(cmd, a, args[0])
			if err != nil {
				return err
			}
			var end model.Date
			if len(args) == 2 {
				if end, err = model.ParseDate(args[1]); err != nil {
					return err
				}
			}
			ended, err := a.svc.EndTask(cmd.Context(), t.ID, end)
			if ended.EndDate == nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s ends %s\n", ended.Name, ended.EndDate)
			return warnOnly(cmd, err)
		},
	}
}

func deleteCmd(current appFunc) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <task>",
		Aliases: []string{"rm"},
		Short:   "Delete a task and its history",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			t, err := findTask(cmd, a, args[0])
			if err != nil {
				return err
			}
			err = a.svc.DeleteTask(cmd.Context(), t.ID)
			if err != nil && !isWarning(err) {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", t.Name)
			return warnOnly(cmd, err)
		},
	}
}

func streakCmd(current appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "streak <task>",
		Short: "Show a task's current streak",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			t, err := findTask(cmd, a, args[0])
			if err != nil {
				return err
			}
			n, err := a.svc.Streak(cmd.Context(), t.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", t.Name, views.StreakFlames(n))
			return nil
		},
	}
}

func digestCmd(current appFunc) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Show the morning, night and streak-risk messages for today",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := current().svc.Digest(cmd.Context())
			if err != nil {
				return err
			}
			if plain {
				fmt.Fprintln(cmd.OutOrStdout(), d.Markdown())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), views.RenderMarkdown(d.Markdown(), 80))
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print markdown without terminal styling")
	return cmd
}

func scheduleCmd(current appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule <task>",
		Short: "Show the reminder state of a time-based task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			t, err := findTask(cmd, a, args[0])
			if err != nil {
				return err
			}
			st, err := a.svc.Schedule(cmd.Context(), t.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", t.Name, st.Phase)
			if !st.DueDate.IsZero() {
				fmt.Fprintf(out, "due: %s (flag=%t)\n", st.DueDate, st.DedupFlag)
			}
			if st.ArmedFor != nil {
				fmt.Fprintf(out, "armed for: %s\n", st.ArmedFor.In(a.loc).Format("2006-01-02 15:04 MST"))
			}
			return nil
		},
	}
}

// findTask resolves a task id, unique id prefix, or case-insensitive name.
func findTask(cmd *cobra.Command, a *app, target string) (model.Task, error) {
	tasks, err := a.svc.Tasks(cmd.Context())
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
		return model.Task{}, fmt.Errorf("no task matches %q", target)
	default:
		return model.Task{}, fmt.Errorf("%q matches %d tasks; use more of the id", target, len(matches))
	}
}

func targetOf(t model.Task) string {
	if t.TargetTime == nil {
		return "-"
	}
	return t.TargetTime.String()
}

func isWarning(err error) bool {
	return errors.Is(err, tracker.ErrNotScheduled)
}

// warnOnly prints a recoverable scheduling problem without failing the command.
func warnOnly(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	if !isWarning(err) {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\nrun `streakly permission` to grant reminders, then `streakly rearm`\n", err)
	return nil
}
