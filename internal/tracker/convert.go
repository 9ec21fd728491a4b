package tracker

import (
	"fmt"

	"github.com/sandeepkv93/streakly/internal/model"
	"github.com/sandeepkv93/streakly/internal/storage"
)

func toModelTask(in storage.Task) (model.Task, error) {
	start, err := model.ParseDate(in.StartDate)
	if err != nil {
		return model.Task{}, fmt.Errorf("task %s start: %w", in.ID, err)
	}
	out := model.Task{
		ID:          in.ID,
		Name:        in.Name,
		StartDate:   start,
		Frequency:   model.Frequency(in.Frequency),
		IsTimeBased: in.IsTimeBased,
		CreatedAt:   in.CreatedAt,
	}
	if in.EndDate != nil {
		end, err := model.ParseDate(*in.EndDate)
		if err != nil {
			return model.Task{}, fmt.Errorf("task %s end: %w", in.ID, err)
		}
		out.EndDate = &end
	}
	if in.TargetTime != nil {
		tod, err := model.ParseTimeOfDay(*in.TargetTime)
		if err != nil {
			return model.Task{}, fmt.Errorf("task %s target: %w", in.ID, err)
		}
		out.TargetTime = &tod
	}
	return out, nil
}

func fromModelTask(in model.Task) storage.Task {
	out := storage.Task{
		ID:          in.ID,
		Name:        in.Name,
		StartDate:   in.StartDate.String(),
		Frequency:   string(in.Frequency),
		IsTimeBased: in.IsTimeBased,
		CreatedAt:   in.CreatedAt,
	}
	if in.EndDate != nil {
		s := in.EndDate.String()
		out.EndDate = &s
	}
	if in.TargetTime != nil {
		s := in.TargetTime.String()
		out.TargetTime = &s
	}
	return out
}

func toCompletions(rows []storage.Completion) (model.Completions, error) {
	out := model.Completions{}
	for _, r := range rows {
		d, err := model.ParseDate(r.Date)
		if err != nil {
			return nil, err
		}
		status := model.CompletionStatus(r.Status)
		if !status.IsValid() {
			return nil, fmt.Errorf("%w: %q", model.ErrInvalidStatus, r.Status)
		}
		out.Set(r.TaskID, d, status)
	}
	return out, nil
}
