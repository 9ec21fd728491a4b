package alarm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/sandeepkv93/streakly/internal/scheduler"
	"github.com/sandeepkv93/streakly/internal/storage"
	"github.com/sandeepkv93/streakly/pkg/log"
)

// Handler runs when an alarm fires. It receives only the key and the stored
// payload.
type Handler func(ctx context.Context, key string, payload Payload) error

type HostConfig struct {
	PollInterval   time.Duration
	Buffer         int
	FiredCacheSize int
	FiredCacheTTL  time.Duration
	// MaxAttempts bounds how often a failing handler is retried, once per
	// poll, before the alarm is dropped.
	MaxAttempts int
}

// Host mirrors the durable alarm table into an in-process timer heap and runs
// the handler when an instant is reached. Rows armed while the host was down
// and already past due fire on the first sync.
type Host struct {
	store   storage.AlarmStore
	handler Handler
	logger  log.Logger
	cfg     HostConfig
	sched   *scheduler.Engine
	fired   *expirable.LRU[string, struct{}]
	tries   *expirable.LRU[string, int]
}

func NewHost(store storage.AlarmStore, handler Handler, logger log.Logger, cfg HostConfig) *Host {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.FiredCacheSize <= 0 {
		cfg.FiredCacheSize = 256
	}
	if cfg.FiredCacheTTL <= 0 {
		cfg.FiredCacheTTL = 36 * time.Hour
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Host{
		store:   store,
		handler: handler,
		logger:  logger,
		cfg:     cfg,
		sched:   scheduler.NewEngine(cfg.Buffer),
		fired:   expirable.NewLRU[string, struct{}](cfg.FiredCacheSize, nil, cfg.FiredCacheTTL),
		tries:   expirable.NewLRU[string, int](cfg.FiredCacheSize, nil, cfg.FiredCacheTTL),
	}
}

// Run blocks until ctx is done.
func (h *Host) Run(ctx context.Context) error {
	h.sched.Start()
	defer h.sched.Stop()

	if err := h.Sync(ctx); err != nil {
		h.logger.Errorf(ctx, "alarm host initial sync: %v", err)
	}

	ticker := time.NewTicker(h.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := h.Sync(ctx); err != nil {
				h.logger.Warnf(ctx, "alarm host sync: %v", err)
			}
		case ev, ok := <-h.sched.C():
			if !ok {
				return nil
			}
			if err := h.fire(ctx, ev); err != nil {
				h.logger.Errorf(ctx, "alarm %s: %v", ev.Key, err)
			}
		}
	}
}

// Sync makes the timer heap match the alarm table.
func (h *Host) Sync(ctx context.Context) error {
	rows, err := h.store.ListAlarms(ctx, storage.AlarmListFilter{})
	if err != nil {
		return fmt.Errorf("list alarms: %w", err)
	}
	live := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		live[row.Key] = struct{}{}
		if at, ok := h.sched.Pending(row.Key); ok && at.Equal(row.TriggerAt) {
			continue
		}
		if err := h.sched.Schedule(scheduler.Event{Key: row.Key, TriggerAt: row.TriggerAt}); err != nil {
			return fmt.Errorf("schedule %s: %w", row.Key, err)
		}
	}
	for _, key := range h.sched.Keys() {
		if _, ok := live[key]; !ok {
			h.sched.Cancel(key)
		}
	}
	return nil
}

func (h *Host) fire(ctx context.Context, ev scheduler.Event) error {
	row, err := h.store.GetAlarm(ctx, ev.Key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if !row.TriggerAt.Equal(ev.TriggerAt) {
		// Re-armed since the heap last synced.
		return h.sched.Schedule(scheduler.Event{Key: row.Key, TriggerAt: row.TriggerAt})
	}

	id := firedID(row)
	if h.fired.Contains(id) {
		return h.consume(ctx, row)
	}

	payload, err := DecodePayload(row.Payload)
	if err != nil {
		h.logger.Warnf(ctx, "dropping alarm %s with bad payload: %v", row.Key, err)
		return h.consume(ctx, row)
	}
	if err := h.handler(ctx, row.Key, payload); err != nil {
		n, _ := h.tries.Get(id)
		n++
		if n < h.cfg.MaxAttempts {
			h.tries.Add(id, n)
			return fmt.Errorf("handler attempt %d/%d: %w", n, h.cfg.MaxAttempts, err)
		}
		h.tries.Remove(id)
		h.logger.Errorf(ctx, "alarm %s dropped after %d attempts: %v", row.Key, n, err)
		return h.consume(ctx, row)
	}
	h.tries.Remove(id)
	h.fired.Add(id, struct{}{})
	h.logger.Infof(ctx, "alarm fired key=%s scheduled=%s", row.Key, row.TriggerAt.Format(time.RFC3339))
	return h.consume(ctx, row)
}

// consume deletes the row unless it was re-armed for a different instant in the
// meantime.
func (h *Host) consume(ctx context.Context, row storage.Alarm) error {
	err := h.store.DeleteAlarmAt(ctx, row.Key, row.TriggerAt)
	if errors.Is(err, storage.ErrNotFound) {
		return h.Sync(ctx)
	}
	return err
}

func firedID(row storage.Alarm) string {
	return fmt.Sprintf("%s@%d", row.Key, row.TriggerAt.UnixMilli())
}
