package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteTimeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// OpenSQLite opens the database at path and applies migrations.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) CreateTask(ctx context.Context, in Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, name, start_date, end_date, frequency, is_time_based, target_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Name, in.StartDate, nullString(in.EndDate), in.Frequency,
		boolInt(in.IsTimeBased), nullString(in.TargetTime), mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id string) (Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, start_date, end_date, frequency, is_time_based, target_time, created_at
		FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	return task, nil
}

// UpdateTask rewrites the mutable columns. id and start_date are fixed at
// creation.
func (r *SQLiteRepository) UpdateTask(ctx context.Context, in Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET name = ?, end_date = ?, frequency = ?, is_time_based = ?, target_time = ?
		WHERE id = ?`,
		in.Name, nullString(in.EndDate), in.Frequency, boolInt(in.IsTimeBased), nullString(in.TargetTime), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error) {
	query := `SELECT id, name, start_date, end_date, frequency, is_time_based, target_time, created_at FROM tasks`
	args := make([]any, 0, 4)
	if filter.ActiveOn != "" {
		query += ` WHERE start_date <= ? AND (end_date IS NULL OR end_date >= ?)`
		args = append(args, filter.ActiveOn, filter.ActiveOn)
	}
	query += ` ORDER BY created_at ASC, id ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpsertCompletion(ctx context.Context, in Completion) error {
	updated := in.UpdatedAt
	if updated.IsZero() {
		updated = r.now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO completions (task_id, date, status, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(task_id, date) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`,
		in.TaskID, in.Date, in.Status, mustTime(updated),
	)
	return err
}

// DeleteCompletion resets a day back to unset. Deleting a missing row is not an
// error.
func (r *SQLiteRepository) DeleteCompletion(ctx context.Context, taskID, date string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM completions WHERE task_id = ? AND date = ?`, taskID, date)
	return err
}

func (r *SQLiteRepository) ListCompletions(ctx context.Context, filter CompletionListFilter) ([]Completion, error) {
	query := `SELECT task_id, date, status, updated_at FROM completions`
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if filter.TaskID != "" {
		clauses = append(clauses, "task_id = ?")
		args = append(args, filter.TaskID)
	}
	if filter.From != "" {
		clauses = append(clauses, "date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		clauses = append(clauses, "date <= ?")
		args = append(args, filter.To)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY date ASC, task_id ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Completion, 0)
	for rows.Next() {
		item, scanErr := scanCompletion(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func optionalString(v sql.NullString) *string {
	if !v.Valid || v.String == "" {
		return nil
	}
	s := v.String
	return &s
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		if limit <= 0 {
			sql += " LIMIT -1"
		}
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (Task, error) {
	var out Task
	var end sql.NullString
	var timeBased int
	var target sql.NullString
	var created string
	if err := s.Scan(&out.ID, &out.Name, &out.StartDate, &end, &out.Frequency, &timeBased, &target, &created); err != nil {
		return Task{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Task{}, err
	}
	out.EndDate = optionalString(end)
	out.IsTimeBased = timeBased == 1
	out.TargetTime = optionalString(target)
	out.CreatedAt = createdAt
	return out, nil
}

func scanCompletion(s scanner) (Completion, error) {
	var out Completion
	var updated string
	if err := s.Scan(&out.TaskID, &out.Date, &out.Status, &updated); err != nil {
		return Completion{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return Completion{}, err
	}
	out.UpdatedAt = updatedAt
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
