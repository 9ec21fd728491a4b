package model

// IsDue reports whether t is scheduled on day d. Evaluation is purely on
// calendar days, so it gives the same answer regardless of the time of day or
// DST state of the caller.
func IsDue(t Task, d Date) bool {
	if d.Before(t.StartDate) {
		return false
	}
	if t.EndDate != nil && d.After(*t.EndDate) {
		return false
	}
	offset := d.DaysSince(t.StartDate)

	switch t.Frequency {
	case FrequencyDaily:
		return true
	case FrequencyAlternateDays:
		return offset%2 == 0
	case FrequencyWeekly:
		return offset%7 == 0
	case FrequencyMonthly:
		// Months shorter than the start day-of-month are skipped, not clamped.
		return d.Day == t.StartDate.Day
	default:
		return false
	}
}

// NextDueDate returns the first due day at or after from, looking at most
// limit days ahead. ok is false when the task has ended or no due day exists in
// that window.
func NextDueDate(t Task, from Date, limit int) (Date, bool) {
	if from.Before(t.StartDate) {
		from = t.StartDate
	}
	for i := 0; i <= limit; i++ {
		d := from.AddDays(i)
		if t.EndDate != nil && d.After(*t.EndDate) {
			return Date{}, false
		}
		if IsDue(t, d) {
			return d, true
		}
	}
	return Date{}, false
}

// DueTasks filters tasks down to the ones due on d, preserving order.
func DueTasks(tasks []Task, d Date) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if IsDue(t, d) {
			out = append(out, t)
		}
	}
	return out
}
