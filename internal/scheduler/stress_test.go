package scheduler

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// Many tasks are armed concurrently, half are then cancelled; exactly the
// surviving keys fire, each once.
func TestEngineStressArmThenCancelHalf(t *testing.T) {
	engine := NewEngine(4096)
	engine.Start()
	defer engine.Stop()

	const workers = 8
	const perWorker = 150
	base := time.Now().Add(150 * time.Millisecond)

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWorker {
				key := fmt.Sprintf("task:%d-%d", w, i)
				at := base.Add(time.Duration(i%40) * time.Millisecond)
				if err := engine.Schedule(Event{Key: key, TriggerAt: at}); err != nil {
					t.Errorf("schedule %s: %v", key, err)
					return
				}
				if i%2 == 1 {
					engine.Cancel(key)
				}
			}
		}()
	}
	wg.Wait()

	want := workers * perWorker / 2
	if got := engine.Len(); got != want {
		t.Fatalf("expected %d pending after cancels, got %d", want, got)
	}

	seen := make(map[string]int, want)
	deadline := time.After(5 * time.Second)
	for len(seen) < want {
		select {
		case <-deadline:
			t.Fatalf("timeout: fired=%d want=%d dropped=%d", len(seen), want, engine.Dropped())
		case ev := <-engine.C():
			seen[ev.Key]++
		}
	}
	for key, n := range seen {
		if n != 1 {
			t.Fatalf("%s fired %d times", key, n)
		}
		var w, i int
		if _, err := fmt.Sscanf(key, "task:%d-%d", &w, &i); err != nil || i%2 == 1 {
			t.Fatalf("cancelled key fired: %s", key)
		}
	}
	if engine.Dropped() != 0 {
		t.Fatalf("expected zero drops with an active consumer, got %d", engine.Dropped())
	}
}

func TestEngineStressRescheduleSameKeys(t *testing.T) {
	engine := NewEngine(64)
	engine.Start()
	defer engine.Stop()

	const keys = 16
	const rounds = 50
	now := time.Now()
	var wg sync.WaitGroup
	for r := range rounds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < keys; k++ {
				delay := time.Duration(30+(r+k)%20) * time.Millisecond
				if err := engine.Schedule(Event{Key: fmt.Sprintf("key-%d", k), TriggerAt: now.Add(delay)}); err != nil {
					t.Errorf("schedule failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	if got := engine.Len(); got > keys {
		t.Fatalf("queue holds %d events for %d keys", got, keys)
	}
}
