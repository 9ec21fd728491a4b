package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/streakly/internal/alarm"
	"github.com/sandeepkv93/streakly/internal/httpapi"
	"github.com/sandeepkv93/streakly/internal/reminder"
	"github.com/sandeepkv93/streakly/internal/tracker"
	"github.com/sandeepkv93/streakly/internal/update"
)

func rearmCmd(current appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "rearm",
		Short: "Cancel and re-register every reminder",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := current().svc.Sync(cmd.Context(), true); err != nil {
				return warnOnly(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "reminders re-armed")
			return nil
		},
	}
}

func permissionCmd(current appFunc) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "permission",
		Short: "Check or request permission to deliver reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			out := cmd.OutOrStdout()
			if check {
				fmt.Fprintf(out, "granted: %t\n", a.port.HasPermission(cmd.Context()))
				return nil
			}
			if err := a.port.RequestPermission(cmd.Context()); err != nil {
				if errors.Is(err, alarm.ErrPermissionDenied) {
					return fmt.Errorf("%w; install a desktop notifier or set alarms.require_notifier=false", err)
				}
				return err
			}
			fmt.Fprintln(out, "granted")
			if err := a.svc.Sync(cmd.Context(), true); err != nil {
				return warnOnly(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "only report whether permission is held")
	return cmd
}

func daemonCmd(current appFunc) *cobra.Command {
	var noHTTP bool
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Deliver reminders, roll days over and serve call-ins",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			ctx := cmd.Context()

			handler := reminder.NewFireHandler(a.state, a.notifier(), a.logger, a.loc)
			host := alarm.NewHost(a.repo, handler.Handle, a.logger, alarm.HostConfig{
				PollInterval:   a.cfg.Alarms.PollInterval,
				Buffer:         a.cfg.Scheduler.Buffer,
				FiredCacheSize: a.cfg.Alarms.FiredCacheSize,
				FiredCacheTTL:  a.cfg.Alarms.FiredCacheTTL,
				MaxAttempts:    a.cfg.Alarms.MaxAttempts,
			})

			var srv *httpapi.Server
			if !noHTTP && a.cfg.HTTP.Addr != "" {
				var err error
				srv, err = httpapi.New(a.svc, a.logger, httpapi.Config{Addr: a.cfg.HTTP.Addr, Mode: a.cfg.HTTP.Mode})
				if err != nil {
					return err
				}
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			var wg sync.WaitGroup
			errCh := make(chan error, 3)
			run := func(name string, fn func(context.Context) error) {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := fn(ctx); err != nil {
						errCh <- fmt.Errorf("%s: %w", name, err)
						cancel()
					}
				}()
			}
			run("alarm host", host.Run)
			run("rollover", func(ctx context.Context) error {
				return watchRollover(ctx, a, a.cfg.Rollover.CheckInterval)
			})
			if srv != nil {
				run("http", srv.Run)
			}
			a.logger.Infof(ctx, "daemon started tz=%s", a.loc)

			wg.Wait()
			close(errCh)
			a.logger.Infof(context.Background(), "daemon stopped")
			return <-errCh
		},
	}
	cmd.Flags().BoolVar(&noHTTP, "no-http", false, "do not serve the HTTP call-ins")
	return cmd
}

// watchRollover closes finished days whenever the local date changes.
func watchRollover(ctx context.Context, a *app, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			res, err := a.svc.Rollover(ctx)
			if err != nil && !errors.Is(err, tracker.ErrNotScheduled) {
				a.logger.Errorf(ctx, "rollover: %v", err)
				continue
			}
			if err != nil {
				a.logger.Warnf(ctx, "%v", err)
			}
			if res.Rolled {
				a.logger.Infof(ctx, "rolled over %s..%s resolved=%d", res.From, res.To, len(res.Resolved))
			}
		}
	}
}

func tuiCmd(current appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive tracker",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			m := update.NewModel(cmd.Context(), a.svc, update.Options{Location: a.loc})
			_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		},
	}
}
