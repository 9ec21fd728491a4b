package scheduler

import (
	"fmt"
	"testing"
	"time"
)

func TestEngineEmitsInTriggerOrder(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	now := time.Now()
	if err := engine.Schedule(Event{Key: "later", TriggerAt: now.Add(80 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule later: %v", err)
	}
	if err := engine.Schedule(Event{Key: "sooner", TriggerAt: now.Add(20 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule sooner: %v", err)
	}

	first := waitEvent(t, engine.C(), time.Second)
	second := waitEvent(t, engine.C(), time.Second)
	if first.Key != "sooner" || second.Key != "later" {
		t.Fatalf("unexpected order: first=%s second=%s", first.Key, second.Key)
	}
}

func TestScheduleSameKeyReplaces(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	now := time.Now()
	if err := engine.Schedule(Event{Key: "task:a", TriggerAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := engine.Schedule(Event{Key: "task:a", TriggerAt: now.Add(20 * time.Millisecond)}); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if engine.Len() != 1 {
		t.Fatalf("expected one pending event, got %d", engine.Len())
	}

	ev := waitEvent(t, engine.C(), time.Second)
	if ev.Key != "task:a" {
		t.Fatalf("unexpected key %q", ev.Key)
	}
	if engine.Len() != 0 {
		t.Fatalf("expected empty queue after fire, got %d", engine.Len())
	}
	select {
	case extra := <-engine.C():
		t.Fatalf("replaced trigger fired again: %+v", extra)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestCancelRemovesPendingEvent(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	now := time.Now()
	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("k%d", i)
		if err := engine.Schedule(Event{Key: key, TriggerAt: now.Add(time.Duration(30+i*10) * time.Millisecond)}); err != nil {
			t.Fatalf("schedule %s: %v", key, err)
		}
	}
	if !engine.Cancel("k0") {
		t.Fatalf("expected cancel to find k0")
	}
	if engine.Cancel("k0") {
		t.Fatalf("second cancel should report nothing pending")
	}
	if _, ok := engine.Pending("k0"); ok {
		t.Fatalf("k0 still pending after cancel")
	}

	first := waitEvent(t, engine.C(), time.Second)
	second := waitEvent(t, engine.C(), time.Second)
	if first.Key != "k1" || second.Key != "k2" {
		t.Fatalf("unexpected events after cancel: %s, %s", first.Key, second.Key)
	}
}

func TestEngineNonBlockingDropsWhenConsumerIsSlow(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	defer engine.Stop()

	at := time.Now().Add(20 * time.Millisecond)
	for i := 0; i < 25; i++ {
		if err := engine.Schedule(Event{
			Key:       fmt.Sprintf("evt-%d", i),
			TriggerAt: at,
		}); err != nil {
			t.Fatalf("schedule event: %v", err)
		}
	}

	time.Sleep(120 * time.Millisecond)
	if engine.Dropped() == 0 {
		t.Fatalf("expected dropped events > 0, got %d", engine.Dropped())
	}
}

func TestScheduleValidatesEvent(t *testing.T) {
	engine := NewEngine(1)
	if err := engine.Schedule(Event{Key: "bad"}); err != ErrInvalidTriggerTime {
		t.Fatalf("expected ErrInvalidTriggerTime, got %v", err)
	}
	if err := engine.Schedule(Event{TriggerAt: time.Now()}); err != ErrMissingKey {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
}

func TestScheduleAfterStopFails(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	engine.Stop()
	if err := engine.Schedule(Event{Key: "late", TriggerAt: time.Now()}); err != ErrStopped {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func waitEvent(t *testing.T, ch <-chan Event, timeout time.Duration) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event")
		return Event{}
	}
}
