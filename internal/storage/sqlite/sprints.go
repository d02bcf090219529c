package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"scrum/internal/date"
	"scrum/internal/lifecycle"
	"scrum/internal/models"
)

func scanSprint(scan func(dest ...any) error) (models.Sprint, error) {
	var (
		sp         models.Sprint
		start, end string
	)
	if err := scan(&sp.ID, &sp.Name, &start, &end); err != nil {
		return models.Sprint{}, fmt.Errorf("scan sprint: %w", err)
	}
	var err error
	if sp.StartDate, err = date.Parse(start); err != nil {
		return models.Sprint{}, fmt.Errorf("sprint %d start: %w", sp.ID, err)
	}
	if sp.EndDate, err = date.Parse(end); err != nil {
		return models.Sprint{}, fmt.Errorf("sprint %d end: %w", sp.ID, err)
	}
	return sp, nil
}

// loadSprints reads every sprint with its goal task ids, ordered by id.
func loadSprints(ctx context.Context, q querier) ([]models.Sprint, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, start_date, end_date FROM sprints ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sprints: %w", err)
	}
	var sprints []models.Sprint
	index := make(map[int64]int)
	for rows.Next() {
		sp, err := scanSprint(rows.Scan)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[sp.ID] = len(sprints)
		sprints = append(sprints, sp)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = eachPair(ctx, q, `SELECT sprint_id, task_id FROM sprint_goals ORDER BY sprint_id, task_id`, func(sprintID, taskID int64) {
		if i, ok := index[sprintID]; ok {
			sprints[i].GoalTaskIDs = append(sprints[i].GoalTaskIDs, taskID)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("list sprint goals: %w", err)
	}
	return sprints, nil
}

func loadSprint(ctx context.Context, q querier, id int64) (models.Sprint, error) {
	sp, err := scanSprint(q.QueryRowContext(ctx, `SELECT id, name, start_date, end_date FROM sprints WHERE id = ?`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Sprint{}, models.NotFoundf("sprint %d", id)
	}
	if err != nil {
		return models.Sprint{}, err
	}
	err = eachPair(ctx, q, `SELECT sprint_id, task_id FROM sprint_goals WHERE sprint_id = ? ORDER BY task_id`, func(_, taskID int64) {
		sp.GoalTaskIDs = append(sp.GoalTaskIDs, taskID)
	}, id)
	if err != nil {
		return models.Sprint{}, fmt.Errorf("sprint goals: %w", err)
	}
	return sp, nil
}

// snapshot reads a sprint's goal closure in execution order plus the hour
// entries of those tasks.
func snapshot(ctx context.Context, q querier, sp models.Sprint) (models.SprintSnapshot, error) {
	tasks, err := orderedTasks(ctx, q, sp.GoalTaskIDs)
	if err != nil {
		return models.SprintSnapshot{}, fmt.Errorf("sprint %s: %w", sp.Key(), err)
	}
	var entries []models.HourEntry
	if len(tasks) > 0 {
		placeholders, args := inClause(tasks)
		entries, err = queryEntries(ctx, q, `WHERE task_id IN (`+placeholders+`)`, args...)
		if err != nil {
			return models.SprintSnapshot{}, err
		}
	}
	return models.SprintSnapshot{Sprint: sp, Tasks: tasks, Entries: entries}, nil
}

// inClause builds the placeholder list and arguments for the task ids.
func inClause(tasks []models.Task) (string, []any) {
	marks := make([]string, 0, len(tasks))
	args := make([]any, 0, len(tasks))
	for _, t := range tasks {
		marks = append(marks, "?")
		args = append(args, t.ID)
	}
	return strings.Join(marks, ", "), args
}

func loadSnapshots(ctx context.Context, q querier) ([]models.SprintSnapshot, error) {
	sprints, err := loadSprints(ctx, q)
	if err != nil {
		return nil, err
	}
	snaps := make([]models.SprintSnapshot, 0, len(sprints))
	for _, sp := range sprints {
		snap, err := snapshot(ctx, q, sp)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func validateWindow(start, end date.Date) error {
	if start.IsZero() || end.IsZero() {
		return models.Invalidf("sprint needs a start and an end date")
	}
	if end.Before(start) {
		return models.Invalidf("sprint ends %s before it starts %s", end, start)
	}
	return nil
}

// ListSprints returns all sprints ordered by id.
func (s *Store) ListSprints(ctx context.Context) (sprints []models.Sprint, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		sprints, err = loadSprints(ctx, tx)
		return err
	})
	return sprints, err
}

// GetSprint fetches a single sprint by id or name.
func (s *Store) GetSprint(ctx context.Context, ref models.Ref) (sp models.Sprint, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		key, err := resolve(ctx, tx, sprintKind, ref)
		if err != nil {
			return err
		}
		sp, err = loadSprint(ctx, tx, key.ID)
		return err
	})
	return sp, err
}

// AddSprint creates a sprint and, in the same transaction, moves every backlog
// task of its goal closure to new. A cyclic closure aborts without writing.
func (s *Store) AddSprint(ctx context.Context, name string, goals []models.Ref, start, end date.Date) (sp models.Sprint, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		name, err := s.checkName(ctx, tx, sprintKind, name)
		if err != nil {
			return err
		}
		if err := validateWindow(start, end); err != nil {
			return err
		}
		if len(goals) == 0 {
			return models.Invalidf("sprint %q needs at least one goal task", name)
		}
		goalIDs, err := resolveAll(ctx, tx, taskKind, goals)
		if err != nil {
			return err
		}
		closure, err := orderedTasks(ctx, tx, goalIDs)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO sprints(name, start_date, end_date) VALUES(?, ?, ?)`, name, start.String(), end.String())
		if err != nil {
			return fmt.Errorf("insert sprint: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sprint id: %w", err)
		}
		for _, g := range goalIDs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO sprint_goals(sprint_id, task_id) VALUES(?, ?)`, id, g); err != nil {
				return fmt.Errorf("add sprint goal: %w", err)
			}
		}
		for _, t := range closure {
			if err := s.fire(ctx, tx, t, lifecycle.EnterSprint, s.now()); err != nil {
				return err
			}
		}
		sp, err = loadSprint(ctx, tx, id)
		return err
	})
	if err == nil {
		s.logger.Debug("sprint added", slog.String("sprint", sp.Key().String()), slog.Int("goals", len(sp.GoalTaskIDs)))
	}
	return sp, err
}

// enterOpenSprints re-applies the enter-sprint event to the closure of every
// sprint that has not ended yet. It is idempotent.
func (s *Store) enterOpenSprints(ctx context.Context, tx *sql.Tx) error {
	sprints, err := loadSprints(ctx, tx)
	if err != nil {
		return err
	}
	today := date.Of(s.now())
	for _, sp := range sprints {
		if today.After(sp.EndDate) {
			continue
		}
		closure, err := orderedTasks(ctx, tx, sp.GoalTaskIDs)
		if err != nil {
			return err
		}
		for _, t := range closure {
			if err := s.fire(ctx, tx, t, lifecycle.EnterSprint, s.now()); err != nil {
				return err
			}
		}
	}
	return nil
}

// RemoveSprint deletes a sprint. Task statuses are left as they are.
func (s *Store) RemoveSprint(ctx context.Context, ref models.Ref) error {
	var key models.Key
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		key, err = resolve(ctx, tx, sprintKind, ref)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sprints WHERE id = ?`, key.ID); err != nil {
			return fmt.Errorf("delete sprint: %w", err)
		}
		return nil
	})
	if err == nil {
		s.logger.Debug("sprint removed", slog.String("sprint", key.String()))
	}
	return err
}

// UpdateSprintDates moves a sprint's window. A zero start or end keeps the
// current value.
func (s *Store) UpdateSprintDates(ctx context.Context, ref models.Ref, start, end date.Date) (sp models.Sprint, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		key, err := resolve(ctx, tx, sprintKind, ref)
		if err != nil {
			return err
		}
		current, err := loadSprint(ctx, tx, key.ID)
		if err != nil {
			return err
		}
		if start.IsZero() {
			start = current.StartDate
		}
		if end.IsZero() {
			end = current.EndDate
		}
		if err := validateWindow(start, end); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE sprints SET start_date = ?, end_date = ? WHERE id = ?`, start.String(), end.String(), key.ID); err != nil {
			return fmt.Errorf("update sprint dates: %w", err)
		}
		sp, err = loadSprint(ctx, tx, key.ID)
		return err
	})
	return sp, err
}

// UpdateSprintStart moves only the start date.
func (s *Store) UpdateSprintStart(ctx context.Context, ref models.Ref, start date.Date) (models.Sprint, error) {
	if start.IsZero() {
		return models.Sprint{}, models.Invalidf("missing start date")
	}
	return s.UpdateSprintDates(ctx, ref, start, date.Date{})
}

// UpdateSprintEnd moves only the end date.
func (s *Store) UpdateSprintEnd(ctx context.Context, ref models.Ref, end date.Date) (models.Sprint, error) {
	if end.IsZero() {
		return models.Sprint{}, models.Invalidf("missing end date")
	}
	return s.UpdateSprintDates(ctx, ref, date.Date{}, end)
}

// SprintSnapshot reads everything the analytics need for one sprint in a single
// transaction.
func (s *Store) SprintSnapshot(ctx context.Context, ref models.Ref) (snap models.SprintSnapshot, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		key, err := resolve(ctx, tx, sprintKind, ref)
		if err != nil {
			return err
		}
		sp, err := loadSprint(ctx, tx, key.ID)
		if err != nil {
			return err
		}
		snap, err = snapshot(ctx, tx, sp)
		return err
	})
	return snap, err
}

// SprintSnapshots reads a snapshot of every sprint.
func (s *Store) SprintSnapshots(ctx context.Context) (snaps []models.SprintSnapshot, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		snaps, err = loadSnapshots(ctx, tx)
		return err
	})
	return snaps, err
}
