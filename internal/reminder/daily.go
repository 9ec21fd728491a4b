package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/sandeepkv93/streakly/internal/alarm"
	"github.com/sandeepkv93/streakly/internal/digest"
	"github.com/sandeepkv93/streakly/internal/model"
)

// Notifier is the call-out for the fixed daily notifications.
type Notifier interface {
	Notify(ctx context.Context, kind alarm.Kind, title, body string, when time.Time) error
}

// PortNotifier delivers daily notifications by arming the Alarm Port under one
// key per kind, so a later schedule replaces an earlier one.
type PortNotifier struct {
	port alarm.Port
}

func NewPortNotifier(port alarm.Port) *PortNotifier {
	return &PortNotifier{port: port}
}

func (n *PortNotifier) Notify(ctx context.Context, kind alarm.Kind, title, body string, when time.Time) error {
	return n.port.Arm(ctx, DailyAlarmKey(kind), when, alarm.Payload{
		Kind:    kind,
		DueDate: model.LocalDate(when).String(),
		Title:   title,
		Body:    body,
	})
}

func (n *PortNotifier) Cancel(ctx context.Context, kind alarm.Kind) error {
	return n.port.Disarm(ctx, DailyAlarmKey(kind))
}

type DailyResult struct {
	Suppressed bool
	Digest     digest.Digest
	Morning    time.Time
	Night      time.Time
	Warning    *time.Time
}

// ScheduleDaily composes the digest and schedules the morning, night and
// (when tasks are pending) warning notifications. Repeated calls on the same
// day within the cooldown are suppressed.
func (e *Engine) ScheduleDaily(ctx context.Context, tasks []model.Task, history model.Completions) (DailyResult, error) {
	unlock := e.lock("daily")
	defer unlock()

	now := e.clock()
	today := model.LocalDate(now)

	if e.dailyGuardActive(ctx, today, now) {
		e.logger.Debugf(ctx, "daily notifications already scheduled for %s", today)
		return DailyResult{Suppressed: true}, nil
	}

	d := digest.Compose(
		digest.Collect(tasks, history, today.AddDays(-1)),
		digest.Collect(tasks, history, today),
	)
	res := DailyResult{
		Digest:  d,
		Morning: e.nextAt(e.cfg.Morning, now),
		Night:   e.nextAt(e.cfg.Night, now),
	}

	if err := e.notifier.Notify(ctx, alarm.KindMorning, d.Morning.Title, d.Morning.Body, res.Morning); err != nil {
		return res, e.dailyFailure(alarm.KindMorning, res.Morning, err)
	}
	if err := e.notifier.Notify(ctx, alarm.KindNight, d.Night.Title, d.Night.Body, res.Night); err != nil {
		return res, e.dailyFailure(alarm.KindNight, res.Night, err)
	}
	if d.Warning != nil {
		at := e.nextAt(e.cfg.Warning, now)
		if err := e.notifier.Notify(ctx, alarm.KindWarning, d.Warning.Title, d.Warning.Body, at); err != nil {
			return res, e.dailyFailure(alarm.KindWarning, at, err)
		}
		res.Warning = &at
	} else if c, ok := e.notifier.(interface {
		Cancel(ctx context.Context, kind alarm.Kind) error
	}); ok {
		if err := c.Cancel(ctx, alarm.KindWarning); err != nil {
			e.logger.Warnf(ctx, "cancel streak warning: %v", err)
		}
	}

	if err := e.state.Set(ctx, KeyLastScheduledDate, today.String()); err != nil {
		return res, &ScheduleError{Kind: KindTransientStoreFailure, TaskID: "daily", At: now, Err: err}
	}
	if err := e.state.Set(ctx, KeyLastScheduledTime, encodeInstant(now)); err != nil {
		return res, &ScheduleError{Kind: KindTransientStoreFailure, TaskID: "daily", At: now, Err: err}
	}
	e.logger.Infof(ctx, "daily notifications scheduled morning=%s night=%s warning=%t",
		res.Morning.Format(time.RFC3339), res.Night.Format(time.RFC3339), res.Warning != nil)
	return res, nil
}

func (e *Engine) dailyGuardActive(ctx context.Context, today model.Date, now time.Time) bool {
	lastDate, ok, err := e.state.Get(ctx, KeyLastScheduledDate)
	if err != nil {
		e.logger.Warnf(ctx, "read %s: %v", KeyLastScheduledDate, err)
		return false
	}
	if !ok || lastDate != today.String() {
		return false
	}
	rawTime, ok, err := e.state.Get(ctx, KeyLastScheduledTime)
	if err != nil || !ok {
		return false
	}
	last, valid := decodeInstant(rawTime)
	if !valid {
		return false
	}
	return now.Sub(last) < e.cfg.DailyCooldown
}

// nextAt is tod today, or tomorrow if the clock is already past it.
func (e *Engine) nextAt(tod model.TimeOfDay, now time.Time) time.Time {
	today := model.LocalDate(now)
	at := tod.On(today, e.cfg.Location)
	if !at.After(now) {
		at = tod.On(today.AddDays(1), e.cfg.Location)
	}
	return at
}

func (e *Engine) dailyFailure(kind alarm.Kind, at time.Time, err error) error {
	k := KindTransientStoreFailure
	if isPermission(err) {
		k = KindPermissionDenied
	}
	return &ScheduleError{Kind: k, TaskID: "daily:" + string(kind), At: at, Err: fmt.Errorf("notify %s: %w", kind, err)}
}
