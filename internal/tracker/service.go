package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/streakly/internal/digest"
	"github.com/sandeepkv93/streakly/internal/model"
	"github.com/sandeepkv93/streakly/internal/reminder"
	"github.com/sandeepkv93/streakly/internal/storage"
	"github.com/sandeepkv93/streakly/pkg/log"
)

var (
	ErrNotDue = errors.New("tracker: task is not due on that day")
	// ErrNotScheduled wraps recoverable reminder failures that followed a
	// successful write. The write itself is kept.
	ErrNotScheduled = errors.New("tracker: saved, but reminders could not be fully scheduled")
)

// historyDays bounds how much completion history is loaded; the streak walk
// never looks further back.
const historyDays = 366

// Engine is the reminder engine surface the tracker drives.
type Engine interface {
	OnTasksChanged(ctx context.Context, tasks []model.Task, history model.Completions) (reminder.Report, error)
	DefensiveRearm(ctx context.Context, tasks []model.Task, history model.Completions) (reminder.Report, error)
	Observe(tasks []model.Task, history model.Completions)
	OnDayRolled(ctx context.Context) (reminder.Report, error)
	OnTaskCompleted(ctx context.Context, taskID string) error
	Reopen(taskID string)
	OnTaskDeleted(ctx context.Context, taskID string) error
	ScheduleDaily(ctx context.Context, tasks []model.Task, history model.Completions) (reminder.DailyResult, error)
	State(ctx context.Context, taskID string) (reminder.ScheduleState, error)
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDs(next func() string) Option {
	return func(s *Service) { s.newID = next }
}

// Service owns tasks and their completion history and keeps the reminder
// engine informed of every change.
type Service struct {
	repo   storage.Repository
	engine Engine
	state  reminder.StateStore
	logger log.Logger
	loc    *time.Location
	now    func() time.Time
	newID  func() string
}

func New(repo storage.Repository, engine Engine, state reminder.StateStore, logger log.Logger, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.Local
	}
	s := &Service{
		repo:   repo,
		engine: engine,
		state:  state,
		logger: logger,
		loc:    loc,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Today() model.Date {
	return model.LocalDate(s.now().In(s.loc))
}

type NewTask struct {
	Name       string
	StartDate  model.Date
	EndDate    *model.Date
	Frequency  model.Frequency
	TargetTime *model.TimeOfDay
}

func (s *Service) AddTask(ctx context.Context, in NewTask) (model.Task, error) {
	start := in.StartDate
	if start.IsZero() {
		start = s.Today()
	}
	freq := in.Frequency
	if freq == "" {
		freq = model.FrequencyDaily
	}
	task := model.Task{
		ID:          s.newID(),
		Name:        strings.TrimSpace(in.Name),
		StartDate:   start,
		EndDate:     in.EndDate,
		Frequency:   freq,
		IsTimeBased: in.TargetTime != nil,
		TargetTime:  in.TargetTime,
		CreatedAt:   s.now().UTC(),
	}
	if err := task.Validate(); err != nil {
		return model.Task{}, err
	}
	if err := s.repo.CreateTask(ctx, fromModelTask(task)); err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	s.logger.Infof(ctx, "task created id=%s name=%q frequency=%s", task.ID, task.Name, task.Frequency)
	return task, s.Sync(ctx, false)
}

func (s *Service) Task(ctx context.Context, id string) (model.Task, error) {
	row, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	return toModelTask(row)
}

func (s *Service) Tasks(ctx context.Context) ([]model.Task, error) {
	return s.listTasks(ctx, storage.TaskListFilter{})
}

// ActiveTasks lists tasks that have started and not ended on day, whether or
// not they are due that day. A zero day means today.
func (s *Service) ActiveTasks(ctx context.Context, day model.Date) ([]model.Task, error) {
	if day.IsZero() {
		day = s.Today()
	}
	return s.listTasks(ctx, storage.TaskListFilter{ActiveOn: day.String()})
}

func (s *Service) listTasks(ctx context.Context, filter storage.TaskListFilter) ([]model.Task, error) {
	rows, err := s.repo.ListTasks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	out := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		t, err := toModelTask(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// EndTask soft-ends a task: history stays, scheduling stops after end.
func (s *Service) EndTask(ctx context.Context, id string, end model.Date) (model.Task, error) {
	task, err := s.Task(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if end.IsZero() {
		end = s.Today()
	}
	task.EndDate = &end
	if err := task.Validate(); err != nil {
		return model.Task{}, err
	}
	if err := s.repo.UpdateTask(ctx, fromModelTask(task)); err != nil {
		return model.Task{}, fmt.Errorf("end task: %w", err)
	}
	s.logger.Infof(ctx, "task ended id=%s end=%s", id, end)
	return task, s.Sync(ctx, false)
}

// DeleteTask removes the task with its history and purges its schedule state.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	s.logger.Infof(ctx, "task deleted id=%s", id)
	if err := s.engine.OnTaskDeleted(ctx, id); err != nil {
		return fmt.Errorf("%w: %w", ErrNotScheduled, err)
	}
	return nil
}

// Mark records status for the task on day. Only today is writable.
func (s *Service) Mark(ctx context.Context, id string, day model.Date, status model.CompletionStatus) error {
	today := s.Today()
	if day.IsZero() {
		day = today
	}
	if err := model.CheckWritable(day, today); err != nil {
		return err
	}
	if !status.IsValid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidStatus, status)
	}
	task, err := s.Task(ctx, id)
	if err != nil {
		return err
	}
	if !model.IsDue(task, day) {
		return fmt.Errorf("%w: %s on %s", ErrNotDue, task.Name, day)
	}

	if status == model.StatusUnset {
		err = s.repo.DeleteCompletion(ctx, id, day.String())
	} else {
		err = s.repo.UpsertCompletion(ctx, storage.Completion{TaskID: id, Date: day.String(), Status: string(status), UpdatedAt: s.now().UTC()})
	}
	if err != nil {
		return fmt.Errorf("mark %s: %w", id, err)
	}
	s.logger.Infof(ctx, "task marked id=%s day=%s status=%s", id, day, status)

	if status == model.StatusYes && task.IsTimeBased {
		if err := s.engine.OnTaskCompleted(ctx, id); err != nil {
			return fmt.Errorf("%w: %w", ErrNotScheduled, err)
		}
		return nil
	}
	if task.IsTimeBased {
		s.engine.Reopen(id)
	}
	return s.Sync(ctx, false)
}

type TodayItem struct {
	Task   model.Task
	Status model.CompletionStatus
	Streak int
}

// Agenda lists the tasks due today with their status and streak.
func (s *Service) Agenda(ctx context.Context) ([]TodayItem, error) {
	tasks, history, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	today := s.Today()
	due := model.DueTasks(tasks, today)
	out := make([]TodayItem, 0, len(due))
	for _, t := range due {
		out = append(out, TodayItem{
			Task:   t,
			Status: history.Status(t.ID, today),
			Streak: model.CurrentStreak(t, history, today),
		})
	}
	return out, nil
}

func (s *Service) Streak(ctx context.Context, id string) (int, error) {
	task, err := s.Task(ctx, id)
	if err != nil {
		return 0, err
	}
	history, err := s.history(ctx, id)
	if err != nil {
		return 0, err
	}
	return model.CurrentStreak(task, history, s.Today()), nil
}

func (s *Service) Digest(ctx context.Context) (digest.Digest, error) {
	tasks, history, err := s.load(ctx)
	if err != nil {
		return digest.Digest{}, err
	}
	today := s.Today()
	return digest.Compose(
		digest.Collect(tasks, history, today.AddDays(-1)),
		digest.Collect(tasks, history, today),
	), nil
}

func (s *Service) Schedule(ctx context.Context, id string) (reminder.ScheduleState, error) {
	if _, err := s.Task(ctx, id); err != nil {
		return reminder.ScheduleState{}, err
	}
	return s.engine.State(ctx, id)
}

// Sync hands the current tasks to the engine and refreshes the daily
// notifications. defensive forces every alarm to be re-armed, as on process
// start.
func (s *Service) Sync(ctx context.Context, defensive bool) error {
	tasks, history, err := s.load(ctx)
	if err != nil {
		return err
	}
	var passErr error
	if defensive {
		_, passErr = s.engine.DefensiveRearm(ctx, tasks, history)
	} else {
		_, passErr = s.engine.OnTasksChanged(ctx, tasks, history)
	}
	_, dailyErr := s.engine.ScheduleDaily(ctx, tasks, history)
	if err := errors.Join(passErr, dailyErr); err != nil {
		return fmt.Errorf("%w: %w", ErrNotScheduled, err)
	}
	return nil
}

type RolloverResult struct {
	Rolled   bool
	From     model.Date
	To       model.Date
	Resolved []model.Resolution
}

// Rollover closes every day between the last rollover and yesterday, then
// lets the engine re-evaluate for today.
func (s *Service) Rollover(ctx context.Context) (RolloverResult, error) {
	today := s.Today()
	res := RolloverResult{To: today}

	raw, ok, err := s.state.Get(ctx, reminder.KeyLastRolloverDate)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", reminder.KeyLastRolloverDate, err)
	}
	if !ok {
		return res, s.state.Set(ctx, reminder.KeyLastRolloverDate, today.String())
	}
	last, err := model.ParseDate(raw)
	if err != nil || !last.Before(today) {
		if err != nil {
			s.logger.Warnf(ctx, "resetting unreadable %s=%q", reminder.KeyLastRolloverDate, raw)
			return res, s.state.Set(ctx, reminder.KeyLastRolloverDate, today.String())
		}
		return res, nil
	}

	tasks, history, err := s.load(ctx)
	if err != nil {
		return res, err
	}
	from := last
	if floor := today.AddDays(-historyDays); from.Before(floor) {
		from = floor
	}
	res.From = from
	for d := from; d.Before(today); d = d.AddDays(1) {
		resolved := model.AutoResolve(tasks, history, d)
		for _, r := range resolved {
			if err := s.repo.UpsertCompletion(ctx, storage.Completion{
				TaskID: r.TaskID, Date: r.Date.String(), Status: string(model.StatusNo), UpdatedAt: s.now().UTC(),
			}); err != nil {
				return res, fmt.Errorf("resolve %s on %s: %w", r.TaskID, r.Date, err)
			}
		}
		model.Apply(history, resolved)
		res.Resolved = append(res.Resolved, resolved...)
	}
	if err := s.state.Set(ctx, reminder.KeyLastRolloverDate, today.String()); err != nil {
		return res, err
	}
	res.Rolled = true
	s.logger.Infof(ctx, "day rolled %s -> %s resolved=%d", from, today, len(res.Resolved))

	s.engine.Observe(tasks, history)
	_, passErr := s.engine.OnDayRolled(ctx)
	_, dailyErr := s.engine.ScheduleDaily(ctx, tasks, history)
	if err := errors.Join(passErr, dailyErr); err != nil {
		return res, fmt.Errorf("%w: %w", ErrNotScheduled, err)
	}
	return res, nil
}

func (s *Service) load(ctx context.Context) ([]model.Task, model.Completions, error) {
	tasks, err := s.Tasks(ctx)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.repo.ListCompletions(ctx, storage.CompletionListFilter{
		From: s.Today().AddDays(-historyDays).String(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("list completions: %w", err)
	}
	history, err := toCompletions(rows)
	if err != nil {
		return nil, nil, err
	}
	return tasks, history, nil
}

func (s *Service) history(ctx context.Context, id string) (model.Completions, error) {
	rows, err := s.repo.ListCompletions(ctx, storage.CompletionListFilter{
		TaskID: id,
		From:   s.Today().AddDays(-historyDays).String(),
	})
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return toCompletions(rows)
}
