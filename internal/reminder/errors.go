package reminder

import (
	"errors"
	"fmt"
	"time"
)

type ErrorKind string

const (
	KindPermissionDenied      ErrorKind = "permission_denied"
	KindTransientStoreFailure ErrorKind = "transient_store_failure"
	KindInvalidTaskState      ErrorKind = "invalid_task_state"
)

// ScheduleError is a recoverable per-task failure. A pass collects these and
// keeps going; the next pass retries.
type ScheduleError struct {
	Kind   ErrorKind
	TaskID string
	At     time.Time
	Err    error
}

func (e *ScheduleError) Error() string {
	if e.At.IsZero() {
		return fmt.Sprintf("reminder: %s task=%s: %v", e.Kind, e.TaskID, e.Err)
	}
	return fmt.Sprintf("reminder: %s task=%s at=%s: %v", e.Kind, e.TaskID, e.At.Format(time.RFC3339), e.Err)
}

func (e *ScheduleError) Unwrap() error { return e.Err }

// Report tallies one pass.
type Report struct {
	Armed     int
	Unchanged int
	Disarmed  int
	Skipped   int
	Errors    []*ScheduleError
}

func (r *Report) fail(kind ErrorKind, taskID string, at time.Time, err error) {
	r.Errors = append(r.Errors, &ScheduleError{Kind: kind, TaskID: taskID, At: at, Err: err})
}

// Err joins the pass errors, or returns nil when every task succeeded.
func (r Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// PermissionDenied reports whether any task in the pass was refused by the
// Alarm Port for lack of permission.
func (r Report) PermissionDenied() bool {
	for _, e := range r.Errors {
		if e.Kind == KindPermissionDenied {
			return true
		}
	}
	return false
}
