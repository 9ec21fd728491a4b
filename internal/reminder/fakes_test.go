package reminder

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sandeepkv93/streakly/internal/alarm"
	"github.com/sandeepkv93/streakly/internal/notify"
)

var errStoreDown = errors.New("store down")

type armedAlarm struct {
	at      time.Time
	payload alarm.Payload
}

type fakePort struct {
	mu        sync.Mutex
	armed     map[string]armedAlarm
	armCalls  int
	denied    bool
	armErr    error
	permAsked int
	ops       []string
}

func newFakePort() *fakePort {
	return &fakePort{armed: make(map[string]armedAlarm)}
}

func (p *fakePort) Arm(_ context.Context, key string, at time.Time, payload alarm.Payload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.armCalls++
	p.ops = append(p.ops, "arm:"+key)
	if p.denied {
		return alarm.ErrPermissionDenied
	}
	if p.armErr != nil {
		return p.armErr
	}
	p.armed[key] = armedAlarm{at: at, payload: payload}
	return nil
}

func (p *fakePort) Disarm(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, "disarm:"+key)
	delete(p.armed, key)
	return nil
}

func (p *fakePort) HasPermission(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.denied
}

func (p *fakePort) RequestPermission(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.permAsked++
	if p.denied {
		return alarm.ErrPermissionDenied
	}
	return nil
}

func (p *fakePort) Armed(_ context.Context, key string) (time.Time, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.armed[key]
	return a.at, ok, nil
}

func (p *fakePort) get(key string) (armedAlarm, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.armed[key]
	return a, ok
}

func (p *fakePort) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ops...)
}

func (p *fakePort) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.armed)
}

// fire simulates the platform delivering an alarm: the entry is consumed.
func (p *fakePort) fire(key string) (alarm.Payload, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.armed[key]
	delete(p.armed, key)
	return a.payload, ok
}

type memState struct {
	mu      sync.Mutex
	data    map[string]string
	failGet bool
	failSet bool
}

func newMemState() *memState {
	return &memState{data: make(map[string]string)}
}

func (s *memState) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return "", false, errStoreDown
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memState) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet {
		return errStoreDown
	}
	s.data[key] = value
	return nil
}

func (s *memState) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *memState) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0)
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *memState) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type sentLog struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (s *sentLog) Send(_ context.Context, n notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return nil
}
