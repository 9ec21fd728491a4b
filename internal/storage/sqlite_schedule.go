package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

func (r *SQLiteRepository) GetState(ctx context.Context, key string) (StateEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT key, value, updated_at FROM schedule_state WHERE key = ?`, key)
	var out StateEntry
	var updated string
	if err := row.Scan(&out.Key, &out.Value, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StateEntry{}, ErrNotFound
		}
		return StateEntry{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return StateEntry{}, err
	}
	out.UpdatedAt = updatedAt
	return out, nil
}

func (r *SQLiteRepository) SetState(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO schedule_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, mustTime(r.now()),
	)
	return err
}

func (r *SQLiteRepository) DeleteState(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM schedule_state WHERE key = ?`, key)
	return err
}

// ListStateKeys matches prefix literally; LIKE would treat '_' in task ids as a
// wildcard.
func (r *SQLiteRepository) ListStateKeys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT key FROM schedule_state
		WHERE substr(key, 1, length(?)) = ?
		ORDER BY key ASC`, prefix, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		out = append(out, key)
	}
	return out, rows.Err()
}

// UpsertAlarm arms key for in.TriggerAt, replacing any earlier trigger for the
// same key.
func (r *SQLiteRepository) UpsertAlarm(ctx context.Context, in Alarm) error {
	armed := in.ArmedAt
	if armed.IsZero() {
		armed = r.now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alarms (key, trigger_at_ms, payload, armed_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			trigger_at_ms = excluded.trigger_at_ms,
			payload = excluded.payload,
			armed_at = excluded.armed_at`,
		in.Key, in.TriggerAt.UnixMilli(), in.Payload, mustTime(armed),
	)
	return err
}

func (r *SQLiteRepository) GetAlarm(ctx context.Context, key string) (Alarm, error) {
	row := r.db.QueryRowContext(ctx, `SELECT key, trigger_at_ms, payload, armed_at FROM alarms WHERE key = ?`, key)
	item, err := scanAlarm(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Alarm{}, ErrNotFound
		}
		return Alarm{}, err
	}
	return item, nil
}

// DeleteAlarm is a no-op for keys that are not armed.
func (r *SQLiteRepository) DeleteAlarm(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM alarms WHERE key = ?`, key)
	return err
}

func (r *SQLiteRepository) DeleteAlarmAt(ctx context.Context, key string, triggerAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM alarms WHERE key = ? AND trigger_at_ms = ?`, key, triggerAt.UnixMilli())
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListAlarms(ctx context.Context, filter AlarmListFilter) ([]Alarm, error) {
	query := `SELECT key, trigger_at_ms, payload, armed_at FROM alarms`
	args := make([]any, 0, 3)
	if filter.DueBy != nil {
		query += ` WHERE trigger_at_ms <= ?`
		args = append(args, filter.DueBy.UnixMilli())
	}
	query += ` ORDER BY trigger_at_ms ASC, key ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Alarm, 0)
	for rows.Next() {
		item, scanErr := scanAlarm(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanAlarm(s scanner) (Alarm, error) {
	var out Alarm
	var triggerMs int64
	var armed string
	if err := s.Scan(&out.Key, &triggerMs, &out.Payload, &armed); err != nil {
		return Alarm{}, err
	}
	armedAt, err := parseRequiredTime(armed)
	if err != nil {
		return Alarm{}, err
	}
	out.TriggerAt = time.UnixMilli(triggerMs)
	out.ArmedAt = armedAt
	return out, nil
}
