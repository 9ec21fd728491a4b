package alarm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/streakly/internal/storage"
	"github.com/sandeepkv93/streakly/pkg/log"
)

// Escalation is one step of the permission request chain, e.g. installing or
// enabling a desktop notification helper.
type Escalation struct {
	Name    string
	Request func(ctx context.Context) error
}

type DurableOption func(*Durable)

// WithPermission installs the check consulted before every Arm and the ordered
// chain RequestPermission walks.
func WithPermission(check func(ctx context.Context) bool, chain ...Escalation) DurableOption {
	return func(d *Durable) {
		d.permitted = check
		d.chain = chain
	}
}

func WithClock(now func() time.Time) DurableOption {
	return func(d *Durable) { d.now = now }
}

// Durable is a Port whose alarms survive process exit: each Arm is a row in
// the alarm table that a Host later fires.
type Durable struct {
	store     storage.AlarmStore
	logger    log.Logger
	permitted func(ctx context.Context) bool
	chain     []Escalation
	now       func() time.Time
}

var (
	_ Port      = (*Durable)(nil)
	_ Inspector = (*Durable)(nil)
)

func NewDurable(store storage.AlarmStore, logger log.Logger, opts ...DurableOption) *Durable {
	d := &Durable{
		store:     store,
		logger:    logger,
		permitted: func(context.Context) bool { return true },
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Durable) Arm(ctx context.Context, key string, at time.Time, payload Payload) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("alarm: key is required")
	}
	if at.IsZero() {
		return ErrInvalidTrigger
	}
	if !d.HasPermission(ctx) {
		return fmt.Errorf("%w: arm %s at %s", ErrPermissionDenied, key, at.Format(time.RFC3339))
	}
	raw, err := EncodePayload(payload)
	if err != nil {
		return err
	}
	if err := d.store.UpsertAlarm(ctx, storage.Alarm{
		Key:       key,
		TriggerAt: at,
		Payload:   raw,
		ArmedAt:   d.now(),
	}); err != nil {
		return fmt.Errorf("alarm: persist %s: %w", key, err)
	}
	d.logger.Debugf(ctx, "alarm armed key=%s at=%s", key, at.Format(time.RFC3339))
	return nil
}

func (d *Durable) Disarm(ctx context.Context, key string) error {
	if err := d.store.DeleteAlarm(ctx, key); err != nil {
		return fmt.Errorf("alarm: disarm %s: %w", key, err)
	}
	return nil
}

func (d *Durable) Armed(ctx context.Context, key string) (time.Time, bool, error) {
	row, err := d.store.GetAlarm(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return row.TriggerAt, true, nil
}

func (d *Durable) HasPermission(ctx context.Context) bool {
	return d.permitted(ctx)
}

// RequestPermission tries each escalation in order and stops at the first one
// after which the permission check passes.
func (d *Durable) RequestPermission(ctx context.Context) error {
	if d.HasPermission(ctx) {
		return nil
	}
	for _, step := range d.chain {
		if err := step.Request(ctx); err != nil {
			d.logger.Warnf(ctx, "permission escalation %q failed: %v", step.Name, err)
			continue
		}
		if d.HasPermission(ctx) {
			d.logger.Infof(ctx, "permission granted via %q", step.Name)
			return nil
		}
	}
	return ErrPermissionDenied
}
