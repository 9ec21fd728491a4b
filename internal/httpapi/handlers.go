package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sandeepkv93/streakly/internal/model"
	"github.com/sandeepkv93/streakly/internal/reminder"
	"github.com/sandeepkv93/streakly/internal/storage"
	"github.com/sandeepkv93/streakly/internal/tracker"
)

type taskItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Frequency  string `json:"frequency"`
	TargetTime string `json:"targetTime,omitempty"`
	Status     string `json:"status"`
	Streak     int    `json:"streak"`
}

type scheduleView struct {
	TaskID    string     `json:"taskId"`
	Phase     string     `json:"phase"`
	DueDate   string     `json:"dueDate,omitempty"`
	DedupFlag bool       `json:"dedupFlag"`
	ArmedFor  *time.Time `json:"armedFor,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "today": s.tracker.Today().String()})
}

func (s *Server) today(c *gin.Context) {
	items, err := s.tracker.Agenda(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]taskItem, 0, len(items))
	for _, it := range items {
		ti := taskItem{
			ID:        it.Task.ID,
			Name:      it.Task.Name,
			Frequency: string(it.Task.Frequency),
			Status:    it.Status.String(),
			Streak:    it.Streak,
		}
		if it.Task.TargetTime != nil {
			ti.TargetTime = it.Task.TargetTime.String()
		}
		out = append(out, ti)
	}
	c.JSON(http.StatusOK, gin.H{"date": s.tracker.Today().String(), "tasks": out})
}

func (s *Server) digest(c *gin.Context) {
	d, err := s.tracker.Digest(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if c.Query("format") == "markdown" {
		c.String(http.StatusOK, d.Markdown())
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) tasksChanged(c *gin.Context) {
	s.ack(c, s.tracker.Sync(c.Request.Context(), false))
}

func (s *Server) rearm(c *gin.Context) {
	s.ack(c, s.tracker.Sync(c.Request.Context(), true))
}

func (s *Server) dayRolled(c *gin.Context) {
	res, err := s.tracker.Rollover(c.Request.Context())
	if err != nil && !errors.Is(err, tracker.ErrNotScheduled) {
		s.fail(c, err)
		return
	}
	body := gin.H{"rolled": res.Rolled, "date": res.To.String(), "resolved": len(res.Resolved)}
	if err != nil {
		body["warning"] = err.Error()
		c.JSON(http.StatusAccepted, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) complete(c *gin.Context) {
	err := s.tracker.Mark(c.Request.Context(), c.Param("id"), model.Date{}, model.StatusYes)
	s.ack(c, err)
}

func (s *Server) schedule(c *gin.Context) {
	st, err := s.tracker.Schedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toScheduleView(st))
}

func toScheduleView(st reminder.ScheduleState) scheduleView {
	return scheduleView{
		TaskID:    st.TaskID,
		Phase:     string(st.Phase),
		DueDate:   st.DueDate.String(),
		DedupFlag: st.DedupFlag,
		ArmedFor:  st.ArmedFor,
	}
}

// ack answers a call-in. A write that succeeded but could not be fully
// scheduled is accepted with a warning; the next re-arm pass retries it.
func (s *Server) ack(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case errors.Is(err, tracker.ErrNotScheduled):
		s.logger.Warnf(c.Request.Context(), "call-in %s: %v", c.FullPath(), err)
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "warning": err.Error()})
	default:
		s.fail(c, err)
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, model.ErrReadOnlyDay), errors.Is(err, tracker.ErrNotDue):
		code = http.StatusConflict
	case errors.Is(err, model.ErrInvalidStatus), errors.Is(err, model.ErrInvalidDate):
		code = http.StatusBadRequest
	}
	if code == http.StatusInternalServerError {
		s.logger.Errorf(c.Request.Context(), "call-in %s: %v", c.FullPath(), err)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
