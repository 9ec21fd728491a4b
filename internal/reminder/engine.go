package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sandeepkv93/streakly/internal/alarm"
	"github.com/sandeepkv93/streakly/internal/model"
	"github.com/sandeepkv93/streakly/pkg/log"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseArmed     Phase = "armed"
	PhaseFired     Phase = "fired"
	PhaseCompleted Phase = "completed"
)

// ScheduleState is a time-based task's position in the Idle, Armed, Fired,
// Completed cycle, as recorded in the state store.
type ScheduleState struct {
	TaskID    string
	Phase     Phase
	DueDate   model.Date
	DedupFlag bool
	ArmedFor  *time.Time
}

type Config struct {
	Location      *time.Location
	LookaheadDays int
	Morning       model.TimeOfDay
	Night         model.TimeOfDay
	Warning       model.TimeOfDay
	DailyCooldown time.Duration
}

func DefaultConfig() Config {
	return Config{
		Location:      time.Local,
		LookaheadDays: 62,
		Morning:       model.TimeOfDay{Hour: 8},
		Night:         model.TimeOfDay{Hour: 21},
		Warning:       model.TimeOfDay{Hour: 22},
		DailyCooldown: time.Hour,
	}
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

type passMode string

const (
	modeChanged   passMode = "tasks_changed"
	modeRollover  passMode = "day_rolled"
	modeDefensive passMode = "defensive"
)

// Engine turns due, incomplete, time-based tasks into exactly one armed alarm
// each. Passes are idempotent; a per-task lock keeps two concurrent passes
// from racing on the same alarm key.
type Engine struct {
	port     alarm.Port
	state    StateStore
	notifier Notifier
	logger   log.Logger
	cfg      Config
	now      func() time.Time
	locks    sync.Map

	mu        sync.Mutex
	tasks     []model.Task
	history   model.Completions
	completed map[string]model.Date
}

func NewEngine(port alarm.Port, state StateStore, logger log.Logger, cfg Config, opts ...Option) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.LookaheadDays <= 0 {
		cfg.LookaheadDays = DefaultConfig().LookaheadDays
	}
	e := &Engine{
		port:    port,
		state:   state,
		logger:  logger,
		cfg:     cfg,
		now:       time.Now,
		history:   model.Completions{},
		completed: make(map[string]model.Date),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.notifier == nil {
		e.notifier = NewPortNotifier(port)
	}
	return e
}

// OnTasksChanged re-derives and re-arms every task after an edit.
func (e *Engine) OnTasksChanged(ctx context.Context, tasks []model.Task, history model.Completions) (Report, error) {
	e.setSnapshot(tasks, history)
	return e.pass(ctx, modeChanged)
}

// DefensiveRearm is the process-start recovery pass: every active task is
// re-armed even when the state store says it already is.
func (e *Engine) DefensiveRearm(ctx context.Context, tasks []model.Task, history model.Completions) (Report, error) {
	e.setSnapshot(tasks, history)
	return e.pass(ctx, modeDefensive)
}

// Observe replaces the engine's view of tasks and completions without running a
// pass.
func (e *Engine) Observe(tasks []model.Task, history model.Completions) {
	e.setSnapshot(tasks, history)
}

// OnDayRolled re-evaluates the last known tasks against the new day.
func (e *Engine) OnDayRolled(ctx context.Context) (Report, error) {
	if err := e.pruneFlags(ctx, e.today()); err != nil {
		e.logger.Warnf(ctx, "prune schedule flags: %v", err)
	}
	return e.pass(ctx, modeRollover)
}

// OnTaskCompleted cancels the task's pending alarm and clears its dedup flag.
// Until the next day the task stays disarmed.
func (e *Engine) OnTaskCompleted(ctx context.Context, taskID string) error {
	unlock := e.lock(taskID)
	defer unlock()

	today := e.today()
	e.mu.Lock()
	e.history.Set(taskID, today, model.StatusYes)
	e.completed[taskID] = today
	e.mu.Unlock()

	var rep Report
	e.disarm(ctx, taskID, today, &rep)
	e.logFailures(ctx, rep)
	return rep.Err()
}

// Reopen forgets a same-day completion after the task is unmarked, so the next
// pass may arm it again.
func (e *Engine) Reopen(taskID string) {
	unlock := e.lock(taskID)
	defer unlock()
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.completed, taskID)
}

// OnTaskDeleted disarms the task and purges every key it owns in the state
// store.
func (e *Engine) OnTaskDeleted(ctx context.Context, taskID string) error {
	unlock := e.lock(taskID)
	defer unlock()

	var errs []error
	if err := e.port.Disarm(ctx, TaskAlarmKey(taskID)); err != nil {
		errs = append(errs, err)
	}
	for _, prefix := range []string{scheduledFlagPrefix + taskID + ":", firedFlagPrefix + taskID + ":"} {
		keys, err := e.state.Keys(ctx, prefix)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, k := range keys {
			if err := e.state.Remove(ctx, k); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := e.state.Remove(ctx, armedAtKey(taskID)); err != nil {
		errs = append(errs, err)
	}

	e.mu.Lock()
	kept := e.tasks[:0:0]
	for _, t := range e.tasks {
		if t.ID != taskID {
			kept = append(kept, t)
		}
	}
	e.tasks = kept
	e.history.Forget(taskID)
	delete(e.completed, taskID)
	e.mu.Unlock()

	if len(errs) > 0 {
		err := &ScheduleError{Kind: KindTransientStoreFailure, TaskID: taskID, Err: errors.Join(errs...)}
		e.logger.Warnf(ctx, "%v", err)
		return err
	}
	return nil
}

// State reports the recorded schedule state of a task.
func (e *Engine) State(ctx context.Context, taskID string) (ScheduleState, error) {
	st := ScheduleState{TaskID: taskID, Phase: PhaseIdle}
	now := e.clock()
	today := model.LocalDate(now)

	e.mu.Lock()
	completed := e.history.Status(taskID, today) == model.StatusYes || e.completed[taskID] == today
	e.mu.Unlock()

	recorded, hasRecord, err := e.armedAt(ctx, taskID)
	if err != nil {
		return st, err
	}
	if hasRecord {
		st.DueDate = model.LocalDate(recorded.In(e.cfg.Location))
		if recorded.After(now) {
			at := recorded
			st.ArmedFor = &at
		}
	}
	if insp, ok := e.port.(alarm.Inspector); ok {
		at, live, err := insp.Armed(ctx, TaskAlarmKey(taskID))
		if err != nil {
			return st, err
		}
		st.ArmedFor = nil
		if live {
			st.ArmedFor = &at
			st.DueDate = model.LocalDate(at.In(e.cfg.Location))
		}
	}

	fired := false
	if !st.DueDate.IsZero() {
		if _, st.DedupFlag, err = e.state.Get(ctx, scheduledFlagKey(taskID, st.DueDate)); err != nil {
			return st, err
		}
		if _, fired, err = e.state.Get(ctx, firedFlagKey(taskID, st.DueDate)); err != nil {
			return st, err
		}
	}

	switch {
	case completed:
		st.Phase = PhaseCompleted
	case fired && st.ArmedFor == nil:
		st.Phase = PhaseFired
	case st.ArmedFor != nil:
		st.Phase = PhaseArmed
	}
	return st, nil
}

func (e *Engine) pass(ctx context.Context, mode passMode) (Report, error) {
	tasks, history := e.snapshot()
	now := e.clock()
	permitted := e.port.HasPermission(ctx)
	if !permitted {
		e.logger.Warnf(ctx, "alarm permission missing; time-based reminders stay idle until granted")
	}

	var rep Report
	for _, t := range tasks {
		e.scheduleTask(ctx, t, history, now, mode, permitted, &rep)
	}
	e.logFailures(ctx, rep)
	e.logger.Infof(ctx, "reminder pass=%s armed=%d unchanged=%d disarmed=%d skipped=%d errors=%d",
		mode, rep.Armed, rep.Unchanged, rep.Disarmed, rep.Skipped, len(rep.Errors))
	return rep, rep.Err()
}

func (e *Engine) scheduleTask(ctx context.Context, t model.Task, history model.Completions, now time.Time, mode passMode, permitted bool, rep *Report) {
	if !t.IsTimeBased {
		rep.Skipped++
		return
	}
	unlock := e.lock(t.ID)
	defer unlock()

	if err := t.Validate(); err != nil {
		rep.fail(KindInvalidTaskState, t.ID, time.Time{}, err)
		return
	}
	today := model.LocalDate(now)
	if t.Ended(today) || history.Status(t.ID, today) == model.StatusYes || e.completedOn(t.ID, today) {
		e.disarm(ctx, t.ID, today, rep)
		return
	}

	at, due, ok := e.nextTrigger(t, now)
	if !ok {
		e.disarm(ctx, t.ID, today, rep)
		return
	}

	flagKey := scheduledFlagKey(t.ID, due)
	_, flagged, flagErr := e.state.Get(ctx, flagKey)
	armed, hasArmed, armedErr := e.armedAt(ctx, t.ID)
	readErr := errors.Join(flagErr, armedErr)
	if readErr == nil && mode != modeDefensive && flagged && hasArmed && armed.Equal(at) {
		rep.Unchanged++
		return
	}
	// Unknown state counts as not yet armed; Arm replaces, so this cannot stack.
	// The read error only surfaces when arming fails too.
	withRead := func(err error) error {
		if readErr == nil {
			return err
		}
		return errors.Join(err, readErr)
	}

	if !permitted {
		rep.fail(KindPermissionDenied, t.ID, at, withRead(alarm.ErrPermissionDenied))
		return
	}
	if err := e.port.Arm(ctx, TaskAlarmKey(t.ID), at, taskPayload(t, due)); err != nil {
		kind := KindTransientStoreFailure
		if errors.Is(err, alarm.ErrPermissionDenied) {
			kind = KindPermissionDenied
		}
		rep.fail(kind, t.ID, at, withRead(err))
		return
	}
	if readErr != nil {
		e.logger.Debugf(ctx, "task %s armed despite unreadable schedule state: %v", t.ID, readErr)
	}

	if hasArmed && !armed.Equal(at) {
		if old := model.LocalDate(armed.In(e.cfg.Location)); old != due {
			if err := e.state.Remove(ctx, scheduledFlagKey(t.ID, old)); err != nil {
				rep.fail(KindTransientStoreFailure, t.ID, at, err)
			}
		}
	}
	if err := e.state.Set(ctx, flagKey, "true"); err != nil {
		rep.fail(KindTransientStoreFailure, t.ID, at, fmt.Errorf("set dedup flag: %w", err))
	}
	if err := e.state.Set(ctx, armedAtKey(t.ID), encodeInstant(at)); err != nil {
		rep.fail(KindTransientStoreFailure, t.ID, at, fmt.Errorf("record armed instant: %w", err))
	}
	rep.Armed++
}

// nextTrigger is today's target time if today is due and it is still ahead,
// otherwise the target time on the next due day.
func (e *Engine) nextTrigger(t model.Task, now time.Time) (time.Time, model.Date, bool) {
	today := model.LocalDate(now)
	if model.IsDue(t, today) {
		if at := t.TargetTime.On(today, e.cfg.Location); at.After(now) {
			return at, today, true
		}
	}
	d, ok := model.NextDueDate(t, today.AddDays(1), e.cfg.LookaheadDays)
	if !ok {
		return time.Time{}, model.Date{}, false
	}
	return t.TargetTime.On(d, e.cfg.Location), d, true
}

// disarm drops any pending alarm for the task along with its bookkeeping.
func (e *Engine) disarm(ctx context.Context, taskID string, today model.Date, rep *Report) {
	armed, hasArmed, err := e.armedAt(ctx, taskID)
	if err != nil {
		rep.fail(KindTransientStoreFailure, taskID, time.Time{}, err)
	}
	if err := e.port.Disarm(ctx, TaskAlarmKey(taskID)); err != nil {
		rep.fail(KindTransientStoreFailure, taskID, armed, err)
		return
	}
	keys := []string{scheduledFlagKey(taskID, today)}
	if hasArmed {
		if d := model.LocalDate(armed.In(e.cfg.Location)); d != today {
			keys = append(keys, scheduledFlagKey(taskID, d))
		}
		keys = append(keys, armedAtKey(taskID))
	}
	for _, k := range keys {
		if err := e.state.Remove(ctx, k); err != nil {
			rep.fail(KindTransientStoreFailure, taskID, armed, err)
		}
	}
	if hasArmed {
		rep.Disarmed++
	} else {
		rep.Skipped++
	}
}

func (e *Engine) armedAt(ctx context.Context, taskID string) (time.Time, bool, error) {
	raw, ok, err := e.state.Get(ctx, armedAtKey(taskID))
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	at, valid := decodeInstant(raw)
	return at, valid, nil
}

// pruneFlags drops dedup flags for days that have passed. Fired flags are kept
// one extra day so a late duplicate fire for yesterday is still recognised.
func (e *Engine) pruneFlags(ctx context.Context, today model.Date) error {
	var errs []error
	for prefix, keepFrom := range map[string]model.Date{
		scheduledFlagPrefix: today,
		firedFlagPrefix:     today.AddDays(-1),
	} {
		keys, err := e.state.Keys(ctx, prefix)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, k := range keys {
			d, ok := flagDate(k)
			if !ok || !d.Before(keepFrom) {
				continue
			}
			if err := e.state.Remove(ctx, k); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) logFailures(ctx context.Context, rep Report) {
	for _, se := range rep.Errors {
		e.logger.Warnf(log.WithFields(ctx, "task_id", se.TaskID, "kind", string(se.Kind)), "%v", se)
	}
}

func (e *Engine) setSnapshot(tasks []model.Task, history model.Completions) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = append([]model.Task(nil), tasks...)
	if history == nil {
		history = model.Completions{}
	}
	e.history = history.Clone()
}

func (e *Engine) snapshot() ([]model.Task, model.Completions) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Task(nil), e.tasks...), e.history.Clone()
}

func (e *Engine) completedOn(taskID string, today model.Date) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completed[taskID] == today
}

func (e *Engine) lock(key string) func() {
	v, _ := e.locks.LoadOrStore(key, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (e *Engine) clock() time.Time {
	return e.now().In(e.cfg.Location)
}

func (e *Engine) today() model.Date {
	return model.LocalDate(e.clock())
}
