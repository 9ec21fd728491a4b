package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/streakly/internal/digest"
	"github.com/sandeepkv93/streakly/internal/model"
	"github.com/sandeepkv93/streakly/internal/reminder"
	"github.com/sandeepkv93/streakly/internal/storage"
	"github.com/sandeepkv93/streakly/internal/tracker"
	"github.com/sandeepkv93/streakly/pkg/log"
)

type fakeTracker struct {
	today    model.Date
	items    []tracker.TodayItem
	digest   digest.Digest
	markErr  error
	syncErr  error
	states   map[string]reminder.ScheduleState
	rollover tracker.RolloverResult

	marked    []string
	syncs     []bool
	rolloverN int
}

func (f *fakeTracker) Today() model.Date { return f.today }

func (f *fakeTracker) Agenda(context.Context) ([]tracker.TodayItem, error) { return f.items, nil }

func (f *fakeTracker) Digest(context.Context) (digest.Digest, error) { return f.digest, nil }

func (f *fakeTracker) Mark(_ context.Context, id string, _ model.Date, _ model.CompletionStatus) error {
	f.marked = append(f.marked, id)
	return f.markErr
}

func (f *fakeTracker) Schedule(_ context.Context, id string) (reminder.ScheduleState, error) {
	st, ok := f.states[id]
	if !ok {
		return reminder.ScheduleState{}, storage.ErrNotFound
	}
	return st, nil
}

func (f *fakeTracker) Sync(_ context.Context, defensive bool) error {
	f.syncs = append(f.syncs, defensive)
	return f.syncErr
}

func (f *fakeTracker) Rollover(context.Context) (tracker.RolloverResult, error) {
	f.rolloverN++
	return f.rollover, nil
}

func newTestServer(t *testing.T, ft *fakeTracker) *Server {
	t.Helper()
	srv, err := New(ft, log.NewNop(), Config{Mode: gin.TestMode})
	require.NoError(t, err)
	return srv
}

func do(srv *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewRequiresTracker(t *testing.T) {
	_, err := New(nil, log.NewNop(), Config{})
	assert.Error(t, err)
}

func TestToday(t *testing.T) {
	tod := model.TimeOfDay{Hour: 9, Minute: 30}
	ft := &fakeTracker{
		today: model.NewDate(2026, 2, 6),
		items: []tracker.TodayItem{
			{Task: model.Task{ID: "t1", Name: "Read", Frequency: model.FrequencyDaily, IsTimeBased: true, TargetTime: &tod}, Status: model.StatusYes, Streak: 4},
			{Task: model.Task{ID: "t2", Name: "Walk", Frequency: model.FrequencyWeekly}},
		},
	}
	rec := do(newTestServer(t, ft), http.MethodGet, "/v1/today")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Date  string     `json:"date"`
		Tasks []taskItem `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2026-02-06", body.Date)
	require.Len(t, body.Tasks, 2)
	assert.Equal(t, "09:30", body.Tasks[0].TargetTime)
	assert.Equal(t, 4, body.Tasks[0].Streak)
	assert.Equal(t, "unset", body.Tasks[1].Status)
}

func TestDigestMarkdown(t *testing.T) {
	ft := &fakeTracker{digest: digest.Compose(digest.Stats{}, digest.Stats{Total: 1, Pending: 1})}
	rec := do(newTestServer(t, ft), http.MethodGet, "/v1/digest?format=markdown")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "### Morning")
}

func TestTasksChangedAndRearm(t *testing.T) {
	ft := &fakeTracker{}
	srv := newTestServer(t, ft)

	assert.Equal(t, http.StatusOK, do(srv, http.MethodPost, "/v1/tasks-changed").Code)
	assert.Equal(t, http.StatusOK, do(srv, http.MethodPost, "/v1/rearm").Code)
	assert.Equal(t, []bool{false, true}, ft.syncs)
}

func TestCompleteMapsErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{name: "ok", code: http.StatusOK},
		{name: "not scheduled", err: fmt.Errorf("%w: %w", tracker.ErrNotScheduled, errors.New("denied")), code: http.StatusAccepted},
		{name: "missing", err: storage.ErrNotFound, code: http.StatusNotFound},
		{name: "not due", err: tracker.ErrNotDue, code: http.StatusConflict},
		{name: "boom", err: errors.New("disk"), code: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ft := &fakeTracker{markErr: tc.err}
			rec := do(newTestServer(t, ft), http.MethodPost, "/v1/tasks/t9/complete")
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, []string{"t9"}, ft.marked)
		})
	}
}

func TestSchedule(t *testing.T) {
	armed := time.Date(2026, 2, 7, 9, 0, 0, 0, time.UTC)
	ft := &fakeTracker{states: map[string]reminder.ScheduleState{
		"t1": {TaskID: "t1", Phase: reminder.PhaseArmed, DueDate: model.NewDate(2026, 2, 7), DedupFlag: true, ArmedFor: &armed},
	}}
	srv := newTestServer(t, ft)

	rec := do(srv, http.MethodGet, "/v1/tasks/t1/schedule")
	require.Equal(t, http.StatusOK, rec.Code)
	var view scheduleView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "armed", view.Phase)
	assert.Equal(t, "2026-02-07", view.DueDate)
	require.NotNil(t, view.ArmedFor)
	assert.True(t, view.ArmedFor.Equal(armed))

	assert.Equal(t, http.StatusNotFound, do(srv, http.MethodGet, "/v1/tasks/nope/schedule").Code)
}

func TestDayRolled(t *testing.T) {
	ft := &fakeTracker{rollover: tracker.RolloverResult{
		Rolled:   true,
		To:       model.NewDate(2026, 2, 7),
		Resolved: []model.Resolution{{TaskID: "t1", Date: model.NewDate(2026, 2, 6)}},
	}}
	rec := do(newTestServer(t, ft), http.MethodPost, "/v1/day-rolled")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["rolled"])
	assert.EqualValues(t, 1, body["resolved"])
	assert.Equal(t, 1, ft.rolloverN)
}

func TestHealth(t *testing.T) {
	ft := &fakeTracker{today: model.NewDate(2026, 2, 6)}
	rec := do(newTestServer(t, ft), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
