package model

import (
	"testing"
	"time"
)

func mustDate(t *testing.T, raw string) Date {
	t.Helper()
	d, err := ParseDate(raw)
	if err != nil {
		t.Fatalf("parse date %q: %v", raw, err)
	}
	return d
}

func taskWith(t *testing.T, freq Frequency, start string) Task {
	t.Helper()
	return Task{
		ID:        "task-1",
		Name:      "Stretch",
		StartDate: mustDate(t, start),
		Frequency: freq,
	}
}

func TestIsDueFalseBeforeStart(t *testing.T) {
	for _, freq := range []Frequency{FrequencyDaily, FrequencyAlternateDays, FrequencyWeekly, FrequencyMonthly} {
		task := taskWith(t, freq, "2026-02-10")
		for i := 1; i <= 40; i++ {
			d := task.StartDate.AddDays(-i)
			if IsDue(task, d) {
				t.Fatalf("%s: expected not due on %s before start", freq, d)
			}
		}
	}
}

func TestIsDueDailyCoversWholeRange(t *testing.T) {
	task := taskWith(t, FrequencyDaily, "2026-02-01")
	end := mustDate(t, "2026-03-15")
	task.EndDate = &end

	for d := task.StartDate; !d.After(end); d = d.AddDays(1) {
		if !IsDue(task, d) {
			t.Fatalf("expected daily task due on %s", d)
		}
	}
	if IsDue(task, end.AddDays(1)) {
		t.Fatalf("expected daily task not due after end date")
	}
}

func TestIsDueAlternateDays(t *testing.T) {
	task := taskWith(t, FrequencyAlternateDays, "2026-02-01")
	want := map[string]bool{
		"2026-02-01": true,
		"2026-02-02": false,
		"2026-02-03": true,
		"2026-02-04": false,
		"2026-03-01": true, // 28 days after start
	}
	for raw, due := range want {
		if got := IsDue(task, mustDate(t, raw)); got != due {
			t.Fatalf("alternate days %s: got %v want %v", raw, got, due)
		}
	}
}

func TestIsDueWeeklyMatchesModSeven(t *testing.T) {
	task := taskWith(t, FrequencyWeekly, "2026-02-03")
	for i := 0; i < 120; i++ {
		d := task.StartDate.AddDays(i)
		if got, want := IsDue(task, d), i%7 == 0; got != want {
			t.Fatalf("weekly offset %d (%s): got %v want %v", i, d, got, want)
		}
	}
}

func TestIsDueMonthlySkipsShortMonths(t *testing.T) {
	task := taskWith(t, FrequencyMonthly, "2026-01-31")
	if !IsDue(task, mustDate(t, "2026-03-31")) {
		t.Fatal("expected due on 31st of March")
	}
	for d := mustDate(t, "2026-02-01"); d.Month == time.February; d = d.AddDays(1) {
		if IsDue(task, d) {
			t.Fatalf("expected no February occurrence, got %s", d)
		}
	}
	if IsDue(task, mustDate(t, "2026-04-30")) {
		t.Fatal("expected 30 April not to be rounded into the cycle")
	}
}

func TestIsDueIsStableAcrossZones(t *testing.T) {
	task := taskWith(t, FrequencyAlternateDays, "2026-03-07")
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2026-03-08 is the US spring-forward day; the local day still counts as
	// exactly one day after the start.
	late := time.Date(2026, 3, 8, 23, 30, 0, 0, ny)
	if IsDue(task, LocalDate(late)) {
		t.Fatalf("expected offset 1 day to be off-cycle")
	}
	if !IsDue(task, LocalDate(late.Add(time.Hour))) {
		t.Fatalf("expected offset 2 days to be due")
	}
}

func TestNextDueDate(t *testing.T) {
	task := taskWith(t, FrequencyWeekly, "2026-02-02")
	next, ok := NextDueDate(task, mustDate(t, "2026-02-04"), 62)
	if !ok || next.String() != "2026-02-09" {
		t.Fatalf("unexpected next due: %s ok=%v", next, ok)
	}

	end := mustDate(t, "2026-02-08")
	task.EndDate = &end
	if _, ok := NextDueDate(task, mustDate(t, "2026-02-04"), 62); ok {
		t.Fatal("expected no next due date past the end date")
	}

	before, ok := NextDueDate(task, mustDate(t, "2026-01-01"), 62)
	if !ok || before != task.StartDate {
		t.Fatalf("expected start date as first due, got %s", before)
	}
}
