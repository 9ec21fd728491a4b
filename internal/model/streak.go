package model

// streakWalkLimit caps the backward walk so a long-lived task cannot turn a
// streak lookup into an unbounded scan.
const streakWalkLimit = 365

// CurrentStreak counts consecutive completed due days ending yesterday, plus
// today when today is already done. Non-due days are skipped without breaking
// the run, and an unfinished today never breaks it either.
func CurrentStreak(t Task, history Completions, today Date) int {
	streak := 0
	day := today.AddDays(-1)
	for i := 0; i < streakWalkLimit; i++ {
		if day.Before(t.StartDate) {
			break
		}
		if IsDue(t, day) {
			if history.Status(t.ID, day) != StatusYes {
				break
			}
			streak++
		}
		day = day.AddDays(-1)
	}
	if IsDue(t, today) && history.Status(t.ID, today) == StatusYes {
		streak++
	}
	return streak
}
