package scheduler

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidTriggerTime = errors.New("scheduler: invalid trigger time")
	ErrMissingKey         = errors.New("scheduler: event key is required")
	ErrStopped            = errors.New("scheduler: engine stopped")
)

// Event is a one-shot timer entry. At most one event per Key is pending at a
// time; scheduling a key again replaces the earlier trigger.
type Event struct {
	Key       string
	TriggerAt time.Time
}

type entry struct {
	event Event
	index int
}

// entryHeap orders pending entries by trigger instant and keeps each entry's
// index current so Fix and Remove work by key.
type entryHeap []*entry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return h[i].event.TriggerAt.Before(h[j].event.TriggerAt) }

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}

func (h *entryHeap) Push(x any) {
	en := x.(*entry)
	en.index = len(*h)
	*h = append(*h, en)
}

func (h *entryHeap) Pop() any {
	old := *h
	en := old[len(old)-1]
	old[len(old)-1] = nil
	en.index = -1
	*h = old[:len(old)-1]
	return en
}

type Option func(*Engine)

// WithClock replaces time.Now when deciding which entries are due.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine delivers each scheduled Event on C once its trigger instant passes.
// Sends never block; an event that finds C full is counted in Dropped.
type Engine struct {
	mu      sync.Mutex
	pending entryHeap
	byKey   map[string]*entry
	now     func() time.Time
	out     chan Event
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped atomic.Uint64
}

func NewEngine(bufferSize int, opts ...Option) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	e := &Engine{
		byKey:  make(map[string]*entry),
		now:    time.Now,
		out:    make(chan Event, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) C() <-chan Event {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

// Schedule queues ev, replacing any pending event with the same key.
func (e *Engine) Schedule(ev Event) error {
	if ev.Key == "" {
		return ErrMissingKey
	}
	if ev.TriggerAt.IsZero() {
		return ErrInvalidTriggerTime
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrStopped
	}

	if en, ok := e.byKey[ev.Key]; ok {
		en.event = ev
		heap.Fix(&e.pending, en.index)
	} else {
		en := &entry{event: ev}
		heap.Push(&e.pending, en)
		e.byKey[ev.Key] = en
	}
	e.signalWakeup()
	return nil
}

// Cancel drops the pending event for key. It reports whether one existed.
func (e *Engine) Cancel(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	en, ok := e.byKey[key]
	if !ok {
		return false
	}
	heap.Remove(&e.pending, en.index)
	delete(e.byKey, key)
	e.signalWakeup()
	return true
}

// Pending returns the trigger instant queued for key.
func (e *Engine) Pending(key string) (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	en, ok := e.byKey[key]
	if !ok {
		return time.Time{}, false
	}
	return en.event.TriggerAt, true
}

func (e *Engine) Keys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.byKey))
	for k := range e.byKey {
		out = append(out, k)
	}
	return out
}

func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

func (e *Engine) Dropped() uint64 {
	return e.dropped.Load()
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	for {
		if next, ok := e.peek(); ok {
			timer.Reset(max(next.TriggerAt.Sub(e.now()), 0))
		} else {
			timer.Stop()
		}

		select {
		case <-timer.C:
			for _, ev := range e.popDue(e.now()) {
				select {
				case e.out <- ev:
				default:
					e.dropped.Add(1)
				}
			}
		case <-e.wakeup:
		case <-e.stopCh:
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (Event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) == 0 {
		return Event{}, false
	}
	return e.pending[0].event, true
}

func (e *Engine) popDue(now time.Time) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	var due []Event
	for len(e.pending) > 0 && !e.pending[0].event.TriggerAt.After(now) {
		en := heap.Pop(&e.pending).(*entry)
		delete(e.byKey, en.event.Key)
		due = append(due, en.event)
	}
	return due
}
