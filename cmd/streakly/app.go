package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/streakly/internal/alarm"
	"github.com/sandeepkv93/streakly/internal/config"
	"github.com/sandeepkv93/streakly/internal/notify"
	"github.com/sandeepkv93/streakly/internal/reminder"
	"github.com/sandeepkv93/streakly/internal/storage"
	"github.com/sandeepkv93/streakly/internal/tracker"
	"github.com/sandeepkv93/streakly/pkg/log"
)

// permissionFallbackKey records that the user accepted log-only reminders when
// no desktop notifier is installed.
const permissionFallbackKey = "permissionFallback"

// app is the wiring shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger log.Logger
	loc    *time.Location
	repo   *storage.SQLiteRepository
	port   *alarm.Durable
	state  reminder.StateStore
	engine *reminder.Engine
	svc    *tracker.Service
}

func newApp(ctx context.Context, configPath string, quiet bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	logger := log.NewNop()
	if !quiet {
		logger = log.Init(log.ZapConfig{
			Level:        cfg.Logger.Level,
			Mode:         cfg.Logger.Mode,
			Encoding:     cfg.Logger.Encoding,
			ColorEnabled: cfg.Logger.ColorEnabled,
		})
	}

	repo, err := storage.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Storage.Path, err)
	}

	a := &app{cfg: cfg, logger: logger, loc: loc, repo: repo}
	a.state = reminder.NewRepositoryState(repo)
	a.port = alarm.NewDurable(repo, logger, alarm.WithPermission(a.permitted,
		alarm.Escalation{Name: "desktop-notifier", Request: a.requireDesktopHelper},
		alarm.Escalation{Name: "log-fallback", Request: a.acceptLogFallback},
	))

	morning, night, warning := cfg.DailyTimes()
	a.engine = reminder.NewEngine(a.port, a.state, logger, reminder.Config{
		Location:      loc,
		LookaheadDays: cfg.Reminders.LookaheadDays,
		Morning:       morning,
		Night:         night,
		Warning:       warning,
		DailyCooldown: cfg.Reminders.DailyCooldown,
	})
	a.svc = tracker.New(repo, a.engine, a.state, logger, loc)

	if err := a.recover(ctx); err != nil {
		_ = repo.Close()
		return nil, err
	}
	return a, nil
}

// recover closes any days missed while nothing was running and re-arms every
// reminder. Scheduling problems are reported but never block the command.
func (a *app) recover(ctx context.Context) error {
	if _, err := a.svc.Rollover(ctx); err != nil && !errors.Is(err, tracker.ErrNotScheduled) {
		return err
	}
	if err := a.svc.Sync(ctx, true); err != nil {
		if !errors.Is(err, tracker.ErrNotScheduled) {
			return err
		}
		a.logger.Warnf(ctx, "%v", err)
	}
	return nil
}

func (a *app) Close() error {
	_ = a.logger.Sync()
	return a.repo.Close()
}

func (a *app) permitted(ctx context.Context) bool {
	if !a.cfg.Alarms.RequireNotifier || (notify.Exec{}).Available() {
		return true
	}
	entry, err := a.repo.GetState(ctx, permissionFallbackKey)
	return err == nil && entry.Value == "true"
}

func (a *app) requireDesktopHelper(context.Context) error {
	exec := notify.Exec{}
	if exec.Available() {
		return nil
	}
	if bin := exec.Binary(); bin != "" {
		return fmt.Errorf("%s not found on PATH", bin)
	}
	return notify.ErrUnsupported
}

func (a *app) acceptLogFallback(ctx context.Context) error {
	return a.repo.SetState(ctx, permissionFallbackKey, "true")
}

// notifier is where fired alarms are shown.
func (a *app) notifier() notify.Notifier {
	out := notify.Multi{notify.Log{Logger: a.logger}}
	if a.cfg.Notifications.Desktop {
		out = append(out, notify.Exec{})
	}
	return notify.NewRateLimited(out, a.cfg.Notifications.RatePerMinute)
}
