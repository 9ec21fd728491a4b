package reminder

import (
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/streakly/internal/alarm"
	"github.com/sandeepkv93/streakly/internal/model"
)

// State store keys. These strings are the persisted encoding of ScheduleState
// and of the daily orchestrator guard.
const (
	KeyLastScheduledDate = "lastScheduledDate"
	KeyLastScheduledTime = "lastScheduledTime"
	KeyLastRolloverDate  = "lastRolloverDate"

	scheduledFlagPrefix = "scheduledFlag:"
	firedFlagPrefix     = "firedFlag:"
	armedAtPrefix       = "armedAt:"
)

func scheduledFlagKey(taskID string, d model.Date) string {
	return scheduledFlagPrefix + taskID + ":" + d.String()
}

func firedFlagKey(owner string, d model.Date) string {
	return firedFlagPrefix + owner + ":" + d.String()
}

func armedAtKey(taskID string) string {
	return armedAtPrefix + taskID
}

// flagDate extracts the trailing date from a scheduledFlag or firedFlag key.
func flagDate(key string) (model.Date, bool) {
	i := strings.LastIndexByte(key, ':')
	if i < 0 {
		return model.Date{}, false
	}
	d, err := model.ParseDate(key[i+1:])
	if err != nil {
		return model.Date{}, false
	}
	return d, true
}

// TaskAlarmKey is the Alarm Port key for a task; one task never holds more
// than one pending alarm.
func TaskAlarmKey(taskID string) string {
	return "task:" + taskID
}

func DailyAlarmKey(kind alarm.Kind) string {
	return "daily:" + string(kind)
}

func encodeInstant(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func decodeInstant(raw string) (time.Time, bool) {
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
