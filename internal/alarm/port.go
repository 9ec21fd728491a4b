// Package alarm defines the one-shot wake-up contract the reminder engine arms
// against, a SQLite-backed implementation of it and the host loop that fires
// due alarms.
package alarm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrPermissionDenied = errors.New("alarm: permission denied")
	ErrInvalidPayload   = errors.New("alarm: invalid payload")
	ErrInvalidTrigger   = errors.New("alarm: invalid trigger instant")
)

// Port arms at most one pending wake-up per key. Arm on an armed key replaces
// the earlier instant.
type Port interface {
	Arm(ctx context.Context, key string, at time.Time, payload Payload) error
	Disarm(ctx context.Context, key string) error
	HasPermission(ctx context.Context) bool
	RequestPermission(ctx context.Context) error
}

// Inspector is implemented by ports that can report what is currently armed.
type Inspector interface {
	Armed(ctx context.Context, key string) (time.Time, bool, error)
}

type Kind string

const (
	KindTask    Kind = "task"
	KindMorning Kind = "morning"
	KindNight   Kind = "night"
	KindWarning Kind = "warning"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindTask, KindMorning, KindNight, KindWarning:
		return true
	default:
		return false
	}
}

// Payload is everything the fire handler needs. It is serialised with the
// alarm so that firing never depends on the process that armed it.
type Payload struct {
	TaskID   string `json:"taskId,omitempty"`
	TaskName string `json:"taskName,omitempty"`
	Kind     Kind   `json:"kind"`
	DueDate  string `json:"dueDate,omitempty"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

func (p Payload) Validate() error {
	if !p.Kind.IsValid() {
		return fmt.Errorf("%w: kind %q", ErrInvalidPayload, p.Kind)
	}
	if p.Kind == KindTask {
		if strings.TrimSpace(p.TaskID) == "" || strings.TrimSpace(p.TaskName) == "" {
			return fmt.Errorf("%w: task alarm without taskId or taskName", ErrInvalidPayload)
		}
	}
	return nil
}

func EncodePayload(p Payload) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(raw), nil
}

func DecodePayload(raw string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := p.Validate(); err != nil {
		return Payload{}, err
	}
	return p, nil
}
