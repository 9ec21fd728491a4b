package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "streakly-test.db")
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	return repo
}

func parseRFC3339(t *testing.T, value string) time.Time {
	t.Helper()
	out, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return out
}

func strPtr(v string) *string { return &v }

func TestTaskCRUDAndList(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := parseRFC3339(t, "2026-02-09T12:00:00Z")

	task := Task{
		ID:          "task-1",
		Name:        "Read",
		StartDate:   "2026-02-01",
		Frequency:   "daily",
		IsTimeBased: true,
		TargetTime:  strPtr("09:00"),
		CreatedAt:   created,
	}
	if err := repo.CreateTask(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	got, err := repo.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Name != "Read" || got.TargetTime == nil || *got.TargetTime != "09:00" || !got.IsTimeBased || got.EndDate != nil {
		t.Fatalf("unexpected task get result: %#v", got)
	}

	task.Name = "Read 20 pages"
	task.EndDate = strPtr("2026-02-10")
	if err := repo.UpdateTask(ctx, task); err != nil {
		t.Fatalf("update task: %v", err)
	}

	active, err := repo.ListTasks(ctx, TaskListFilter{ActiveOn: "2026-02-10"})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Read 20 pages" {
		t.Fatalf("unexpected active list: %#v", active)
	}
	ended, err := repo.ListTasks(ctx, TaskListFilter{ActiveOn: "2026-02-11"})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(ended) != 0 {
		t.Fatalf("expected ended task to be filtered, got %#v", ended)
	}

	if err := repo.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	_, err = repo.GetTask(ctx, task.ID)
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
	if err := repo.DeleteTask(ctx, task.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on second delete, got: %v", err)
	}
}

func TestCompletionUpsertListAndCascade(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := parseRFC3339(t, "2026-02-09T12:00:00Z")

	if err := repo.CreateTask(ctx, Task{ID: "t", Name: "T", StartDate: "2026-02-01", Frequency: "daily", CreatedAt: now}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	for _, c := range []Completion{
		{TaskID: "t", Date: "2026-02-07", Status: "yes", UpdatedAt: now},
		{TaskID: "t", Date: "2026-02-08", Status: "partly", UpdatedAt: now},
		{TaskID: "t", Date: "2026-02-08", Status: "no", UpdatedAt: now},
		{TaskID: "t", Date: "2026-02-09", Status: "yes", UpdatedAt: now},
	} {
		if err := repo.UpsertCompletion(ctx, c); err != nil {
			t.Fatalf("upsert completion: %v", err)
		}
	}

	list, err := repo.ListCompletions(ctx, CompletionListFilter{TaskID: "t", From: "2026-02-08", To: "2026-02-09"})
	if err != nil {
		t.Fatalf("list completions: %v", err)
	}
	if len(list) != 2 || list[0].Status != "no" || list[1].Date != "2026-02-09" {
		t.Fatalf("unexpected completions: %#v", list)
	}

	if err := repo.DeleteCompletion(ctx, "t", "2026-02-09"); err != nil {
		t.Fatalf("delete completion: %v", err)
	}
	if err := repo.DeleteCompletion(ctx, "t", "2026-02-09"); err != nil {
		t.Fatalf("delete missing completion: %v", err)
	}

	if err := repo.DeleteTask(ctx, "t"); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	rest, err := repo.ListCompletions(ctx, CompletionListFilter{})
	if err != nil {
		t.Fatalf("list completions: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("expected completions to cascade, got %#v", rest)
	}
}

func TestCompletionRejectsUnknownStatus(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := parseRFC3339(t, "2026-02-09T12:00:00Z")
	if err := repo.CreateTask(ctx, Task{ID: "t", Name: "T", StartDate: "2026-02-01", Frequency: "daily", CreatedAt: now}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := repo.UpsertCompletion(ctx, Completion{TaskID: "t", Date: "2026-02-09", Status: "maybe"}); err == nil {
		t.Fatalf("expected check constraint failure")
	}
}

func TestStateSetGetPrefix(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for _, k := range []string{"scheduledFlag:a_1:2026-02-09", "scheduledFlag:a_1:2026-02-10", "scheduledFlag:ab1:2026-02-09", "armedAt:a_1"} {
		if err := repo.SetState(ctx, k, "true"); err != nil {
			t.Fatalf("set state %s: %v", k, err)
		}
	}
	if err := repo.SetState(ctx, "armedAt:a_1", "1770624000000"); err != nil {
		t.Fatalf("overwrite state: %v", err)
	}
	got, err := repo.GetState(ctx, "armedAt:a_1")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if got.Value != "1770624000000" {
		t.Fatalf("unexpected state value: %q", got.Value)
	}

	keys, err := repo.ListStateKeys(ctx, "scheduledFlag:a_1:")
	if err != nil {
		t.Fatalf("list keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("prefix must match literally, got %v", keys)
	}

	if err := repo.DeleteState(ctx, "armedAt:a_1"); err != nil {
		t.Fatalf("delete state: %v", err)
	}
	if _, err := repo.GetState(ctx, "armedAt:a_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAlarmUpsertReplacesAndConditionalDelete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	first := parseRFC3339(t, "2026-02-09T09:00:00Z")
	second := parseRFC3339(t, "2026-02-09T10:00:00Z")

	if err := repo.UpsertAlarm(ctx, Alarm{Key: "task:a", TriggerAt: first, Payload: `{"taskId":"a"}`}); err != nil {
		t.Fatalf("upsert alarm: %v", err)
	}
	if err := repo.UpsertAlarm(ctx, Alarm{Key: "task:a", TriggerAt: second, Payload: `{"taskId":"a"}`}); err != nil {
		t.Fatalf("replace alarm: %v", err)
	}

	all, err := repo.ListAlarms(ctx, AlarmListFilter{})
	if err != nil {
		t.Fatalf("list alarms: %v", err)
	}
	if len(all) != 1 || !all[0].TriggerAt.Equal(second) {
		t.Fatalf("expected a single alarm at %s, got %#v", second, all)
	}

	due, err := repo.ListAlarms(ctx, AlarmListFilter{DueBy: &first})
	if err != nil {
		t.Fatalf("list due alarms: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("alarm at 10:00 is not due at 09:00: %#v", due)
	}

	if err := repo.DeleteAlarmAt(ctx, "task:a", first); err != ErrNotFound {
		t.Fatalf("stale delete should miss, got %v", err)
	}
	if err := repo.DeleteAlarmAt(ctx, "task:a", second); err != nil {
		t.Fatalf("delete alarm: %v", err)
	}
	if _, err := repo.GetAlarm(ctx, "task:a"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteAlarm(ctx, "task:a"); err != nil {
		t.Fatalf("delete missing alarm: %v", err)
	}
}
