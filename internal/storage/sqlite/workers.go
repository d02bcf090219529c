package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"scrum/internal/models"
)

// ListWorkers returns all workers ordered by id.
func (s *Store) ListWorkers(ctx context.Context) (workers []models.Worker, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, name FROM workers ORDER BY id`)
		if err != nil {
			return fmt.Errorf("list workers: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var w models.Worker
			if err := rows.Scan(&w.ID, &w.Name); err != nil {
				return fmt.Errorf("scan worker: %w", err)
			}
			workers = append(workers, w)
		}
		return rows.Err()
	})
	return workers, err
}

// GetWorker fetches a single worker by id or name.
func (s *Store) GetWorker(ctx context.Context, ref models.Ref) (models.Worker, error) {
	key, err := s.ResolveWorker(ctx, ref)
	if err != nil {
		return models.Worker{}, err
	}
	return models.Worker{ID: key.ID, Name: key.Name}, nil
}

// AddWorker persists a new worker.
func (s *Store) AddWorker(ctx context.Context, name string) (w models.Worker, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		name, err := s.checkName(ctx, tx, workerKind, name)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO workers(name) VALUES(?)`, name)
		if err != nil {
			return fmt.Errorf("insert worker: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("worker id: %w", err)
		}
		w = models.Worker{ID: id, Name: name}
		return nil
	})
	if err == nil {
		s.logger.Debug("worker added", slog.String("worker", w.Key().String()))
	}
	return w, err
}

// RemoveWorker deletes a worker. The worker is dropped from every task assignment
// and its hour entries are kept with no worker.
func (s *Store) RemoveWorker(ctx context.Context, ref models.Ref) error {
	var key models.Key
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		key, err = resolve(ctx, tx, workerKind, ref)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_workers WHERE worker_id = ?`, key.ID); err != nil {
			return fmt.Errorf("unassign worker: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE hours SET worker_id = NULL WHERE worker_id = ?`, key.ID); err != nil {
			return fmt.Errorf("detach worker hours: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM workers WHERE id = ?`, key.ID); err != nil {
			return fmt.Errorf("delete worker: %w", err)
		}
		return nil
	})
	if err == nil {
		s.logger.Debug("worker removed", slog.String("worker", key.String()))
	}
	return err
}

// WorkerTasks lists the tasks a worker is assigned to.
func (s *Store) WorkerTasks(ctx context.Context, ref models.Ref) (tasks []models.Task, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		key, err := resolve(ctx, tx, workerKind, ref)
		if err != nil {
			return err
		}
		all, err := loadTasks(ctx, tx)
		if err != nil {
			return err
		}
		for _, t := range all {
			for _, w := range t.WorkerIDs {
				if w == key.ID {
					tasks = append(tasks, t)
					break
				}
			}
		}
		return nil
	})
	return tasks, err
}

// WorkerEntries lists every hour entry logged by a worker.
func (s *Store) WorkerEntries(ctx context.Context, ref models.Ref) (entries []models.HourEntry, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		key, err := resolve(ctx, tx, workerKind, ref)
		if err != nil {
			return err
		}
		entries, err = queryEntries(ctx, tx, `WHERE worker_id = ?`, key.ID)
		return err
	})
	return entries, err
}

// WorkerHours sums every hour logged by a worker.
func (s *Store) WorkerHours(ctx context.Context, ref models.Ref) (float64, error) {
	entries, err := s.WorkerEntries(ctx, ref)
	if err != nil {
		return 0, err
	}
	return sumHours(entries), nil
}

// WorkerSprints lists the sprints whose goal closure contains a task assigned to
// the worker.
func (s *Store) WorkerSprints(ctx context.Context, ref models.Ref) (sprints []models.Sprint, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		key, err := resolve(ctx, tx, workerKind, ref)
		if err != nil {
			return err
		}
		snaps, err := loadSnapshots(ctx, tx)
		if err != nil {
			return err
		}
		for _, snap := range snaps {
			if snapshotHasWorker(snap, key.ID) {
				sprints = append(sprints, snap.Sprint)
			}
		}
		return nil
	})
	return sprints, err
}

func snapshotHasWorker(snap models.SprintSnapshot, workerID int64) bool {
	for _, t := range snap.Tasks {
		for _, w := range t.WorkerIDs {
			if w == workerID {
				return true
			}
		}
	}
	return false
}
