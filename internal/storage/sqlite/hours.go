package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"scrum/internal/date"
	"scrum/internal/lifecycle"
	"scrum/internal/models"
)

// queryEntries reads hour entries matching the given WHERE clause, ordered by
// date then id.
func queryEntries(ctx context.Context, q querier, where string, args ...any) ([]models.HourEntry, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, task_id, worker_id, date, hours FROM hours `+where+` ORDER BY date, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list hours: %w", err)
	}
	defer rows.Close()

	var entries []models.HourEntry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(scan func(dest ...any) error) (models.HourEntry, error) {
	var (
		e      models.HourEntry
		worker sql.NullInt64
		day    string
	)
	if err := scan(&e.ID, &e.TaskID, &worker, &day, &e.Hours); err != nil {
		return models.HourEntry{}, fmt.Errorf("scan hour entry: %w", err)
	}
	d, err := date.Parse(day)
	if err != nil {
		return models.HourEntry{}, fmt.Errorf("hour entry %d: %w", e.ID, err)
	}
	e.Date = d
	e.WorkerID = worker.Int64
	return e, nil
}

func sumHours(entries []models.HourEntry) float64 {
	var total float64
	for _, e := range entries {
		total += e.Hours
	}
	return total
}

// GetHourEntry fetches one hour entry by id.
func (s *Store) GetHourEntry(ctx context.Context, id int64) (e models.HourEntry, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		e, err = scanEntry(tx.QueryRowContext(ctx, `SELECT id, task_id, worker_id, date, hours FROM hours WHERE id = ?`, id).Scan)
		if errors.Is(err, sql.ErrNoRows) {
			return models.NotFoundf("hour entry %d", id)
		}
		return err
	})
	return e, err
}

// AddHours logs work on a task. The task moves to in progress unless it is
// already there; the in-progress date is the entry's date.
func (s *Store) AddHours(ctx context.Context, taskRef models.Ref, day date.Date, workerRef models.Ref, hours float64) (e models.HourEntry, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if !(hours > 0) {
			return models.Invalidf("hours must be positive, got %v", hours)
		}
		if day.IsZero() {
			return models.Invalidf("hour entry needs a date")
		}
		task, err := resolve(ctx, tx, taskKind, taskRef)
		if err != nil {
			return err
		}
		worker, err := resolve(ctx, tx, workerKind, workerRef)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO hours(task_id, worker_id, date, hours) VALUES(?, ?, ?, ?)`,
			task.ID, worker.ID, day.String(), hours)
		if err != nil {
			return fmt.Errorf("insert hours: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("hour entry id: %w", err)
		}

		current, err := loadTask(ctx, tx, task.ID)
		if err != nil {
			return err
		}
		if err := s.fire(ctx, tx, current, lifecycle.LogHours, day.Time); err != nil {
			return err
		}
		e = models.HourEntry{ID: id, TaskID: task.ID, WorkerID: worker.ID, Date: day, Hours: hours}
		return nil
	})
	if err == nil {
		s.logger.Debug("hours added", slog.Int64("entry", e.ID), slog.Int64("task", e.TaskID), slog.Float64("hours", e.Hours))
	}
	return e, err
}

// RemoveHours deletes one hour entry. Task status is left as it is.
func (s *Store) RemoveHours(ctx context.Context, entryID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM hours WHERE id = ?`, entryID)
		if err != nil {
			return fmt.Errorf("delete hours: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return models.NotFoundf("hour entry %d", entryID)
		}
		return nil
	})
}

// RemoveHoursFor deletes every entry a worker logged on a task for one day and
// returns how many were removed.
func (s *Store) RemoveHoursFor(ctx context.Context, taskRef models.Ref, day date.Date, workerRef models.Ref) (removed int64, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		task, err := resolve(ctx, tx, taskKind, taskRef)
		if err != nil {
			return err
		}
		worker, err := resolve(ctx, tx, workerKind, workerRef)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM hours WHERE task_id = ? AND worker_id = ? AND date = ?`, task.ID, worker.ID, day.String())
		if err != nil {
			return fmt.Errorf("delete hours: %w", err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}
