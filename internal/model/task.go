package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidFrequency     = errors.New("model: invalid task frequency")
	ErrInvalidEndDate       = errors.New("model: end date before start date")
	ErrMissingTargetTime    = errors.New("model: target time required for time-based task")
	ErrUnexpectedTargetTime = errors.New("model: target time set on task that is not time-based")
)

type Frequency string

const (
	FrequencyDaily         Frequency = "daily"
	FrequencyAlternateDays Frequency = "alternate_days"
	FrequencyWeekly        Frequency = "weekly"
	FrequencyMonthly       Frequency = "monthly"
)

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyAlternateDays, FrequencyWeekly, FrequencyMonthly:
		return true
	default:
		return false
	}
}

// Task is a recurring personal task. ID and StartDate never change once the
// task exists; EndDate may be set later to soft-end it.
type Task struct {
	ID          string
	Name        string
	StartDate   Date
	EndDate     *Date
	Frequency   Frequency
	IsTimeBased bool
	TargetTime  *TimeOfDay
	CreatedAt   time.Time
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("model: task name is required")
	}
	if t.StartDate.IsZero() {
		return errors.New("model: task start date is required")
	}
	if !t.Frequency.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, t.Frequency)
	}
	if t.EndDate != nil && t.EndDate.Before(t.StartDate) {
		return fmt.Errorf("%w: %s < %s", ErrInvalidEndDate, t.EndDate, t.StartDate)
	}
	if t.IsTimeBased && t.TargetTime == nil {
		return ErrMissingTargetTime
	}
	if !t.IsTimeBased && t.TargetTime != nil {
		return ErrUnexpectedTargetTime
	}
	if t.TargetTime != nil && !t.TargetTime.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidTimeOfDay, t.TargetTime)
	}
	return nil
}

// Ended reports whether today is past the task's inclusive end date.
func (t Task) Ended(today Date) bool {
	return t.EndDate != nil && today.After(*t.EndDate)
}
