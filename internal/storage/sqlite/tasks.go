package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"scrum/internal/lifecycle"
	"scrum/internal/models"
	"scrum/internal/resolver"
)

const taskColumns = `id, name, status, length_hours, description, backlog_date, new_date, inprogress_date, finished_date`

func scanTask(scan func(dest ...any) error) (models.Task, error) {
	var (
		t      models.Task
		status string
		dates  [4]sql.NullTime
	)
	if err := scan(&t.ID, &t.Name, &status, &t.LengthHours, &t.Description, &dates[0], &dates[1], &dates[2], &dates[3]); err != nil {
		return models.Task{}, fmt.Errorf("scan task: %w", err)
	}
	t.Status = models.Status(status)
	t.StatusDates = make(map[models.Status]time.Time, len(models.Statuses))
	for i, st := range models.Statuses {
		if dates[i].Valid {
			t.StatusDates[st] = dates[i].Time
		}
	}
	return t, nil
}

// loadTasks reads every task with its assignments and dependencies, ordered by id.
func loadTasks(ctx context.Context, q querier) ([]models.Task, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	var tasks []models.Task
	index := make(map[int64]int)
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[t.ID] = len(tasks)
		tasks = append(tasks, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = eachPair(ctx, q, `SELECT task_id, worker_id FROM task_workers ORDER BY task_id, worker_id`, func(taskID, workerID int64) {
		if i, ok := index[taskID]; ok {
			tasks[i].WorkerIDs = append(tasks[i].WorkerIDs, workerID)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("list task workers: %w", err)
	}
	err = eachPair(ctx, q, `SELECT task_id, dep_task_id FROM task_deps ORDER BY task_id, dep_task_id`, func(taskID, depID int64) {
		if i, ok := index[taskID]; ok {
			tasks[i].DependencyIDs = append(tasks[i].DependencyIDs, depID)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("list task deps: %w", err)
	}
	return tasks, nil
}

// loadTask reads one task with its assignments and dependencies.
func loadTask(ctx context.Context, q querier, id int64) (models.Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, models.NotFoundf("task %d", id)
		}
		return models.Task{}, err
	}
	err = eachPair(ctx, q, `SELECT task_id, worker_id FROM task_workers WHERE task_id = ? ORDER BY worker_id`, func(_, workerID int64) {
		t.WorkerIDs = append(t.WorkerIDs, workerID)
	}, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("task workers: %w", err)
	}
	err = eachPair(ctx, q, `SELECT task_id, dep_task_id FROM task_deps WHERE task_id = ? ORDER BY dep_task_id`, func(_, depID int64) {
		t.DependencyIDs = append(t.DependencyIDs, depID)
	}, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("task deps: %w", err)
	}
	return t, nil
}

func eachPair(ctx context.Context, q querier, query string, fn func(a, b int64), args ...any) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a, b int64
		if err := rows.Scan(&a, &b); err != nil {
			return err
		}
		fn(a, b)
	}
	return rows.Err()
}

// dependencyGraph reads the full depends-on relation.
func dependencyGraph(ctx context.Context, q querier) (resolver.Graph, error) {
	g := resolver.Graph{}
	rows, err := q.QueryContext(ctx, `SELECT id FROM tasks`)
	if err != nil {
		return nil, fmt.Errorf("list task ids: %w", err)
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan task id: %w", err)
		}
		g[id] = nil
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	err = eachPair(ctx, q, `SELECT task_id, dep_task_id FROM task_deps ORDER BY task_id, dep_task_id`, func(taskID, depID int64) {
		g[taskID] = append(g[taskID], depID)
	})
	if err != nil {
		return nil, fmt.Errorf("list task deps: %w", err)
	}
	return g, nil
}

func validateLength(length float64) error {
	if !(length > 0) {
		return models.Invalidf("task length must be positive, got %v", length)
	}
	return nil
}

// ListTasks returns all tasks ordered by id.
func (s *Store) ListTasks(ctx context.Context) (tasks []models.Task, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		tasks, err = loadTasks(ctx, tx)
		return err
	})
	return tasks, err
}

// GetTask fetches a single task by id or name.
func (s *Store) GetTask(ctx context.Context, ref models.Ref) (t models.Task, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		key, err := resolve(ctx, tx, taskKind, ref)
		if err != nil {
			return err
		}
		t, err = loadTask(ctx, tx, key.ID)
		return err
	})
	return t, err
}

// AddTask creates a task in the backlog.
func (s *Store) AddTask(ctx context.Context, in models.NewTask) (t models.Task, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		name, err := s.checkName(ctx, tx, taskKind, in.Name)
		if err != nil {
			return err
		}
		if err := validateLength(in.LengthHours); err != nil {
			return err
		}
		workerIDs, err := resolveAll(ctx, tx, workerKind, in.Workers)
		if err != nil {
			return err
		}
		depIDs, err := resolveAll(ctx, tx, taskKind, in.Deps)
		if err != nil {
			return err
		}
		created := in.CreatedAt
		if created.IsZero() {
			created = s.now()
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO tasks(name, status, length_hours, description, backlog_date) VALUES(?, ?, ?, ?, ?)`,
			name, string(models.StatusBacklog), in.LengthHours, strings.TrimSpace(in.Description), created)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("task id: %w", err)
		}
		if err := replaceWorkers(ctx, tx, id, workerIDs); err != nil {
			return err
		}
		if err := replaceDeps(ctx, tx, id, depIDs); err != nil {
			return err
		}
		t, err = loadTask(ctx, tx, id)
		return err
	})
	if err == nil {
		s.logger.Debug("task added", slog.String("task", t.Key().String()))
	}
	return t, err
}

func replaceWorkers(ctx context.Context, tx *sql.Tx, taskID int64, workerIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_workers WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("clear task workers: %w", err)
	}
	for _, w := range workerIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO task_workers(task_id, worker_id) VALUES(?, ?)`, taskID, w); err != nil {
			return fmt.Errorf("assign worker: %w", err)
		}
	}
	return nil
}

func replaceDeps(ctx context.Context, tx *sql.Tx, taskID int64, depIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_deps WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("clear task deps: %w", err)
	}
	for _, d := range depIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO task_deps(task_id, dep_task_id) VALUES(?, ?)`, taskID, d); err != nil {
			return fmt.Errorf("add dependency: %w", err)
		}
	}
	return nil
}

// RemoveTask deletes a task after stripping it from every other task's
// dependencies. Its hour entries and sprint goal memberships go with it.
func (s *Store) RemoveTask(ctx context.Context, ref models.Ref) error {
	var key models.Key
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		key, err = resolve(ctx, tx, taskKind, ref)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM task_deps WHERE dep_task_id = ?`, key.ID)
		if err != nil {
			return fmt.Errorf("strip dependency: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.logger.Debug("stripped dependency", slog.String("task", key.String()), slog.Int64("dependents", n))
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, key.ID); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
	if err == nil {
		s.logger.Debug("task removed", slog.String("task", key.String()))
	}
	return err
}

// updateTask resolves ref, applies fn inside the transaction and returns the
// updated task.
func (s *Store) updateTask(ctx context.Context, ref models.Ref, what string, fn func(tx *sql.Tx, current models.Task) error) (t models.Task, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		key, err := resolve(ctx, tx, taskKind, ref)
		if err != nil {
			return err
		}
		current, err := loadTask(ctx, tx, key.ID)
		if err != nil {
			return err
		}
		if err := fn(tx, current); err != nil {
			return err
		}
		t, err = loadTask(ctx, tx, key.ID)
		return err
	})
	if err == nil {
		s.logger.Debug("task updated", slog.String("task", t.Key().String()), slog.String("fields", what))
	}
	return t, err
}

// UpdateTask applies every set field of u in one transaction. All fields are
// validated and all references resolved before the first write, so a rejected
// update leaves the task untouched.
//
// New dependencies must not close a cycle. Tasks newly pulled into the closure
// of a running or upcoming sprint leave the backlog. Setting the current status
// again refreshes its timestamp.
func (s *Store) UpdateTask(ctx context.Context, ref models.Ref, u models.TaskUpdate) (models.Task, error) {
	return s.updateTask(ctx, ref, strings.Join(u.Fields(), ","), func(tx *sql.Tx, current models.Task) error {
		if u.LengthHours != nil {
			if err := validateLength(*u.LengthHours); err != nil {
				return err
			}
		}
		if u.Status != nil {
			if err := lifecycle.Set(current.Status, *u.Status); err != nil {
				return err
			}
		}
		var workerIDs, depIDs []int64
		var err error
		if u.Workers != nil {
			if workerIDs, err = resolveAll(ctx, tx, workerKind, *u.Workers); err != nil {
				return err
			}
		}
		if u.Deps != nil {
			if depIDs, err = resolveAll(ctx, tx, taskKind, *u.Deps); err != nil {
				return err
			}
			g, err := dependencyGraph(ctx, tx)
			if err != nil {
				return err
			}
			if err := resolver.CheckEdges(g, current.ID, depIDs); err != nil {
				return err
			}
		}

		if u.Workers != nil {
			if err := replaceWorkers(ctx, tx, current.ID, workerIDs); err != nil {
				return err
			}
		}
		if u.LengthHours != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE tasks SET length_hours = ? WHERE id = ?`, *u.LengthHours, current.ID); err != nil {
				return fmt.Errorf("update task length: %w", err)
			}
		}
		if u.Description != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE tasks SET description = ? WHERE id = ?`, strings.TrimSpace(*u.Description), current.ID); err != nil {
				return fmt.Errorf("update task description: %w", err)
			}
		}
		if u.Status != nil {
			at := u.StatusAt
			if at.IsZero() {
				at = s.now()
			}
			if err := writeStatus(ctx, tx, current, *u.Status, at); err != nil {
				return err
			}
		}
		if u.Deps != nil {
			if err := replaceDeps(ctx, tx, current.ID, depIDs); err != nil {
				return err
			}
			return s.enterOpenSprints(ctx, tx)
		}
		return nil
	})
}

// UpdateTaskWorkers replaces a task's assigned workers.
func (s *Store) UpdateTaskWorkers(ctx context.Context, ref models.Ref, workers []models.Ref) (models.Task, error) {
	return s.UpdateTask(ctx, ref, models.TaskUpdate{Workers: &workers})
}

// UpdateTaskDeps replaces a task's dependencies. Self dependencies and edges
// that would close a cycle are rejected.
func (s *Store) UpdateTaskDeps(ctx context.Context, ref models.Ref, deps []models.Ref) (models.Task, error) {
	return s.UpdateTask(ctx, ref, models.TaskUpdate{Deps: &deps})
}

// UpdateTaskLength changes a task's estimate.
func (s *Store) UpdateTaskLength(ctx context.Context, ref models.Ref, length float64) (models.Task, error) {
	return s.UpdateTask(ctx, ref, models.TaskUpdate{LengthHours: &length})
}

// UpdateTaskDescription changes a task's free-form description.
func (s *Store) UpdateTaskDescription(ctx context.Context, ref models.Ref, description string) (models.Task, error) {
	return s.UpdateTask(ctx, ref, models.TaskUpdate{Description: &description})
}

// UpdateTaskStatus sets a task's status explicitly. A zero at means now.
func (s *Store) UpdateTaskStatus(ctx context.Context, ref models.Ref, status models.Status, at time.Time) (models.Task, error) {
	return s.UpdateTask(ctx, ref, models.TaskUpdate{Status: &status, StatusAt: at})
}

// FinishTask is the explicit finish action.
func (s *Store) FinishTask(ctx context.Context, ref models.Ref) (models.Task, error) {
	return s.updateTask(ctx, ref, "status", func(tx *sql.Tx, current models.Task) error {
		return s.fire(ctx, tx, current, lifecycle.Finish, s.now())
	})
}

// fire applies a lifecycle event to t and persists the resulting status, stamped
// with at.
func (s *Store) fire(ctx context.Context, tx *sql.Tx, t models.Task, ev lifecycle.Event, at time.Time) error {
	next, changed := lifecycle.Fire(t.Status, ev)
	if !changed {
		return nil
	}
	return writeStatus(ctx, tx, t, next, at)
}

func writeStatus(ctx context.Context, tx *sql.Tx, t models.Task, status models.Status, at time.Time) error {
	lifecycle.Apply(&t, status, at)
	query := fmt.Sprintf(`UPDATE tasks SET status = ?, %s = ? WHERE id = ?`, status.Column())
	if _, err := tx.ExecContext(ctx, query, string(t.Status), t.StatusDates[status], t.ID); err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return nil
}

// Order returns the dependency closure of the referenced goal tasks in
// execution order.
func (s *Store) Order(ctx context.Context, goals []models.Ref) (tasks []models.Task, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		ids, err := resolveAll(ctx, tx, taskKind, goals)
		if err != nil {
			return err
		}
		tasks, err = orderedTasks(ctx, tx, ids)
		return err
	})
	return tasks, err
}

// orderedTasks resolves the closure of goalIDs and loads the tasks in order.
func orderedTasks(ctx context.Context, q querier, goalIDs []int64) ([]models.Task, error) {
	g, err := dependencyGraph(ctx, q)
	if err != nil {
		return nil, err
	}
	order, err := resolver.Order(g, goalIDs)
	if err != nil {
		return nil, err
	}
	all, err := loadTasks(ctx, q)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]models.Task, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}
	out := make([]models.Task, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, nil
}

// TaskEntries lists the hour entries logged against a task.
func (s *Store) TaskEntries(ctx context.Context, ref models.Ref) (entries []models.HourEntry, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		key, err := resolve(ctx, tx, taskKind, ref)
		if err != nil {
			return err
		}
		entries, err = queryEntries(ctx, tx, `WHERE task_id = ?`, key.ID)
		return err
	})
	return entries, err
}

// TaskHours sums every hour logged against a task.
func (s *Store) TaskHours(ctx context.Context, ref models.Ref) (float64, error) {
	entries, err := s.TaskEntries(ctx, ref)
	if err != nil {
		return 0, err
	}
	return sumHours(entries), nil
}

// TaskSprints lists the sprints whose goal closure contains the task.
func (s *Store) TaskSprints(ctx context.Context, ref models.Ref) (sprints []models.Sprint, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		key, err := resolve(ctx, tx, taskKind, ref)
		if err != nil {
			return err
		}
		snaps, err := loadSnapshots(ctx, tx)
		if err != nil {
			return err
		}
		for _, snap := range snaps {
			for _, t := range snap.Tasks {
				if t.ID == key.ID {
					sprints = append(sprints, snap.Sprint)
					break
				}
			}
		}
		return nil
	})
	return sprints, err
}
