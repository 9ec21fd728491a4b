package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/streakly/internal/alarm"
	"github.com/sandeepkv93/streakly/internal/model"
	"github.com/sandeepkv93/streakly/internal/notify"
	"github.com/sandeepkv93/streakly/pkg/log"
)

const (
	taskTitleFormat = "⏰ %s time"
	taskBody        = "Have you completed it?"
)

func taskPayload(t model.Task, due model.Date) alarm.Payload {
	return alarm.Payload{
		TaskID:   t.ID,
		TaskName: t.Name,
		Kind:     alarm.KindTask,
		DueDate:  due.String(),
		Title:    fmt.Sprintf(taskTitleFormat, t.Name),
		Body:     taskBody,
	}
}

func isPermission(err error) bool {
	return errors.Is(err, alarm.ErrPermissionDenied)
}

// FireHandler displays a fired alarm. It works from the payload and the state
// store alone and records a fired flag per owner and day, so a duplicate fire
// is shown once.
type FireHandler struct {
	state  StateStore
	out    notify.Notifier
	logger log.Logger
	loc    *time.Location
	now    func() time.Time
}

func NewFireHandler(state StateStore, out notify.Notifier, logger log.Logger, loc *time.Location) *FireHandler {
	if loc == nil {
		loc = time.Local
	}
	return &FireHandler{state: state, out: out, logger: logger, loc: loc, now: time.Now}
}

// Handle has the alarm.Handler signature.
func (h *FireHandler) Handle(ctx context.Context, key string, p alarm.Payload) error {
	if err := p.Validate(); err != nil {
		h.logger.Warnf(ctx, "ignoring alarm %s: %v", key, err)
		return nil
	}
	now := h.now().In(h.loc)

	day, err := model.ParseDate(p.DueDate)
	if err != nil {
		day = model.LocalDate(now)
	}
	owner := p.TaskID
	if p.Kind != alarm.KindTask {
		owner = "daily-" + string(p.Kind)
	}
	flag := firedFlagKey(owner, day)

	_, seen, err := h.state.Get(ctx, flag)
	if err != nil {
		h.logger.Warnf(ctx, "read %s: %v", flag, err)
	}
	if seen {
		h.logger.Debugf(ctx, "alarm %s already shown for %s", key, day)
		return nil
	}

	err = h.out.Send(ctx, notify.Notification{
		Title: p.Title,
		Body:  p.Body,
		Level: string(p.Kind),
		At:    now,
	})
	if !notify.Delivered(err) {
		return fmt.Errorf("show %s: %w", key, err)
	}
	if err != nil {
		h.logger.Warnf(ctx, "alarm %s shown with errors: %v", key, err)
	}
	if err := h.state.Set(ctx, flag, encodeInstant(now)); err != nil {
		h.logger.Warnf(ctx, "record %s: %v", flag, err)
	}
	return nil
}
