package model

// Resolution is a completion record that day-end rollover forces to No.
type Resolution struct {
	TaskID string
	Date   Date
	From   CompletionStatus
}

// AutoResolve lists every task due on day whose record is still Unset or
// Partly. Applying the resolutions closes the day: those records become No.
func AutoResolve(tasks []Task, history Completions, day Date) []Resolution {
	out := make([]Resolution, 0)
	for _, t := range tasks {
		if !IsDue(t, day) {
			continue
		}
		switch s := history.Status(t.ID, day); s {
		case StatusUnset, StatusPartly:
			out = append(out, Resolution{TaskID: t.ID, Date: day, From: s})
		}
	}
	return out
}

// Apply writes the resolutions into history as StatusNo.
func Apply(history Completions, resolutions []Resolution) {
	for _, r := range resolutions {
		history.Set(r.TaskID, r.Date, StatusNo)
	}
}
