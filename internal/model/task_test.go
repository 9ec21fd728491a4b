package model

import (
	"errors"
	"testing"
)

func TestTaskValidateSuccess(t *testing.T) {
	at := TimeOfDay{Hour: 9}
	task := Task{
		ID:          "task-1",
		Name:        "Meditate",
		StartDate:   NewDate(2026, 2, 1),
		Frequency:   FrequencyDaily,
		IsTimeBased: true,
		TargetTime:  &at,
	}
	if err := task.Validate(); err != nil {
		t.Fatalf("expected valid task, got error: %v", err)
	}
}

func TestTaskValidateTargetTimeMatchesTimeBased(t *testing.T) {
	task := Task{ID: "task-1", Name: "Read", StartDate: NewDate(2026, 2, 1), Frequency: FrequencyWeekly, IsTimeBased: true}
	if err := task.Validate(); !errors.Is(err, ErrMissingTargetTime) {
		t.Fatalf("expected ErrMissingTargetTime, got: %v", err)
	}

	at := TimeOfDay{Hour: 7, Minute: 30}
	task.IsTimeBased = false
	task.TargetTime = &at
	if err := task.Validate(); !errors.Is(err, ErrUnexpectedTargetTime) {
		t.Fatalf("expected ErrUnexpectedTargetTime, got: %v", err)
	}
}

func TestTaskValidateEndBeforeStart(t *testing.T) {
	end := NewDate(2026, 1, 31)
	task := Task{ID: "task-1", Name: "Read", StartDate: NewDate(2026, 2, 1), EndDate: &end, Frequency: FrequencyDaily}
	if err := task.Validate(); !errors.Is(err, ErrInvalidEndDate) {
		t.Fatalf("expected ErrInvalidEndDate, got: %v", err)
	}
	task.Frequency = Frequency("hourly")
	task.EndDate = nil
	if err := task.Validate(); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got: %v", err)
	}
}

func TestTaskEnded(t *testing.T) {
	end := NewDate(2026, 2, 10)
	task := Task{ID: "task-1", Name: "Read", StartDate: NewDate(2026, 2, 1), EndDate: &end, Frequency: FrequencyDaily}
	if task.Ended(end) {
		t.Fatal("end date is inclusive")
	}
	if !task.Ended(end.AddDays(1)) {
		t.Fatal("expected task ended the day after end date")
	}
}

func TestCheckWritable(t *testing.T) {
	today := NewDate(2026, 2, 6)
	if err := CheckWritable(today, today); err != nil {
		t.Fatalf("expected today writable, got %v", err)
	}
	if err := CheckWritable(today.AddDays(-1), today); !errors.Is(err, ErrReadOnlyDay) {
		t.Fatalf("expected ErrReadOnlyDay, got %v", err)
	}
}

func TestAutoResolve(t *testing.T) {
	day := NewDate(2026, 2, 6)
	tasks := []Task{
		{ID: "a", Name: "A", StartDate: NewDate(2026, 2, 1), Frequency: FrequencyDaily},
		{ID: "b", Name: "B", StartDate: NewDate(2026, 2, 1), Frequency: FrequencyDaily},
		{ID: "c", Name: "C", StartDate: NewDate(2026, 2, 1), Frequency: FrequencyDaily},
		{ID: "d", Name: "D", StartDate: NewDate(2026, 2, 3), Frequency: FrequencyAlternateDays},
	}
	history := Completions{}
	history.Set("a", day, StatusYes)
	history.Set("b", day, StatusPartly)

	got := AutoResolve(tasks, history, day)
	if len(got) != 2 || got[0].TaskID != "b" || got[1].TaskID != "c" {
		t.Fatalf("unexpected resolutions: %+v", got)
	}
	Apply(history, got)
	if history.Status("b", day) != StatusNo || history.Status("c", day) != StatusNo {
		t.Fatalf("expected resolved records to be No: %+v", history)
	}
	if history.Status("a", day) != StatusYes {
		t.Fatal("completed record must be untouched")
	}
}
