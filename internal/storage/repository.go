package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("storage: not found")

type Repository interface {
	CreateTask(ctx context.Context, in Task) error
	GetTask(ctx context.Context, id string) (Task, error)
	UpdateTask(ctx context.Context, in Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error)

	UpsertCompletion(ctx context.Context, in Completion) error
	DeleteCompletion(ctx context.Context, taskID, date string) error
	ListCompletions(ctx context.Context, filter CompletionListFilter) ([]Completion, error)

	StateStore
	AlarmStore
}

// StateStore is a flat string key/value table used for scheduling bookkeeping.
type StateStore interface {
	GetState(ctx context.Context, key string) (StateEntry, error)
	SetState(ctx context.Context, key, value string) error
	DeleteState(ctx context.Context, key string) error
	ListStateKeys(ctx context.Context, prefix string) ([]string, error)
}

// AlarmStore persists armed one-shot alarms, at most one per key.
type AlarmStore interface {
	UpsertAlarm(ctx context.Context, in Alarm) error
	GetAlarm(ctx context.Context, key string) (Alarm, error)
	DeleteAlarm(ctx context.Context, key string) error
	// DeleteAlarmAt removes the alarm only if it is still armed for triggerAt.
	DeleteAlarmAt(ctx context.Context, key string, triggerAt time.Time) error
	ListAlarms(ctx context.Context, filter AlarmListFilter) ([]Alarm, error)
}
