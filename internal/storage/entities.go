package storage

import "time"

// Calendar days are stored as YYYY-MM-DD text and times of day as HH:MM.
type Task struct {
	ID          string
	Name        string
	StartDate   string
	EndDate     *string
	Frequency   string
	IsTimeBased bool
	TargetTime  *string
	CreatedAt   time.Time
}

type Completion struct {
	TaskID    string
	Date      string
	Status    string
	UpdatedAt time.Time
}

type StateEntry struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

type Alarm struct {
	Key       string
	TriggerAt time.Time
	Payload   string
	ArmedAt   time.Time
}

type TaskListFilter struct {
	// ActiveOn keeps tasks whose [start, end] range contains the day.
	ActiveOn string
	Limit    int
	Offset   int
}

type CompletionListFilter struct {
	TaskID string
	From   string
	To     string
	Limit  int
	Offset int
}

type AlarmListFilter struct {
	DueBy  *time.Time
	Limit  int
	Offset int
}
