package model

import "testing"

func TestCurrentStreakScenario(t *testing.T) {
	task := taskWith(t, FrequencyDaily, "2026-02-01")
	history := Completions{}
	for _, raw := range []string{"2026-02-01", "2026-02-02", "2026-02-03", "2026-02-04", "2026-02-05"} {
		history.Set(task.ID, mustDate(t, raw), StatusYes)
	}
	if got := CurrentStreak(task, history, mustDate(t, "2026-02-06")); got != 5 {
		t.Fatalf("expected streak 5, got %d", got)
	}

	history.Set(task.ID, mustDate(t, "2026-02-06"), StatusYes)
	if got := CurrentStreak(task, history, mustDate(t, "2026-02-06")); got != 6 {
		t.Fatalf("expected streak 6 once today is done, got %d", got)
	}
}

func TestCurrentStreakStopsAtFirstMiss(t *testing.T) {
	today := mustDate(t, "2026-03-20")
	for n := 0; n < 10; n++ {
		for _, breaker := range []CompletionStatus{StatusUnset, StatusNo, StatusPartly} {
			task := taskWith(t, FrequencyDaily, "2026-01-01")
			history := Completions{}
			for i := 1; i <= n; i++ {
				history.Set(task.ID, today.AddDays(-i), StatusYes)
			}
			history.Set(task.ID, today.AddDays(-(n + 1)), breaker)
			history.Set(task.ID, today.AddDays(-(n + 2)), StatusYes)
			if got := CurrentStreak(task, history, today); got != n {
				t.Fatalf("n=%d breaker=%s: got %d", n, breaker, got)
			}
		}
	}
}

func TestCurrentStreakSkipsNonDueDays(t *testing.T) {
	task := taskWith(t, FrequencyAlternateDays, "2026-02-01")
	history := Completions{}
	for _, raw := range []string{"2026-02-01", "2026-02-03", "2026-02-05"} {
		history.Set(task.ID, mustDate(t, raw), StatusYes)
	}
	// 02-06 is off-cycle and unset; it must not break the run.
	if got := CurrentStreak(task, history, mustDate(t, "2026-02-06")); got != 3 {
		t.Fatalf("expected streak 3 across off days, got %d", got)
	}
}

func TestCurrentStreakIsCapped(t *testing.T) {
	task := taskWith(t, FrequencyDaily, "2020-01-01")
	today := mustDate(t, "2026-01-01")
	history := Completions{}
	for d := task.StartDate; d.Before(today); d = d.AddDays(1) {
		history.Set(task.ID, d, StatusYes)
	}
	if got := CurrentStreak(task, history, today); got != streakWalkLimit {
		t.Fatalf("expected capped streak %d, got %d", streakWalkLimit, got)
	}
}
