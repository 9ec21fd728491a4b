package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStatus = errors.New("model: invalid completion status")
	ErrReadOnlyDay   = errors.New("model: only today's completion record is writable")
)

type CompletionStatus string

const (
	StatusUnset  CompletionStatus = ""
	StatusYes    CompletionStatus = "yes"
	StatusNo     CompletionStatus = "no"
	StatusPartly CompletionStatus = "partly"
)

func (s CompletionStatus) IsValid() bool {
	switch s {
	case StatusUnset, StatusYes, StatusNo, StatusPartly:
		return true
	default:
		return false
	}
}

func (s CompletionStatus) String() string {
	if s == StatusUnset {
		return "unset"
	}
	return string(s)
}

func ParseStatus(raw string) (CompletionStatus, error) {
	switch raw {
	case "", "unset":
		return StatusUnset, nil
	case "yes", "y", "done":
		return StatusYes, nil
	case "no", "n":
		return StatusNo, nil
	case "partly", "partial", "p":
		return StatusPartly, nil
	default:
		return StatusUnset, fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

// Completions is the completion history keyed by task id, then day. Missing
// entries read as StatusUnset.
type Completions map[string]map[Date]CompletionStatus

func (c Completions) Status(taskID string, d Date) CompletionStatus {
	if c == nil {
		return StatusUnset
	}
	return c[taskID][d]
}

func (c Completions) Set(taskID string, d Date, s CompletionStatus) {
	days, ok := c[taskID]
	if !ok {
		days = make(map[Date]CompletionStatus)
		c[taskID] = days
	}
	if s == StatusUnset {
		delete(days, d)
		return
	}
	days[d] = s
}

func (c Completions) Forget(taskID string) {
	delete(c, taskID)
}

func (c Completions) Clone() Completions {
	out := make(Completions, len(c))
	for id, days := range c {
		cp := make(map[Date]CompletionStatus, len(days))
		for d, s := range days {
			cp[d] = s
		}
		out[id] = cp
	}
	return out
}

// CheckWritable enforces that only today's record may change; every other day
// is history.
func CheckWritable(day, today Date) error {
	if day != today {
		return fmt.Errorf("%w: %s (today is %s)", ErrReadOnlyDay, day, today)
	}
	return nil
}
