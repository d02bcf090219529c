package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"scrum/internal/models"
)

// kind names one of the entity tables that can be referenced by id or name.
type kind struct {
	table string
	label string
}

var (
	workerKind = kind{table: "workers", label: "worker"}
	taskKind   = kind{table: "tasks", label: "task"}
	sprintKind = kind{table: "sprints", label: "sprint"}
)

// resolve turns a reference into the canonical key of exactly one row.
func resolve(ctx context.Context, q querier, k kind, ref models.Ref) (models.Key, error) {
	switch ref.Kind {
	case models.RefByID, models.RefCanonical:
		var key models.Key
		err := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT id, name FROM %s WHERE id = ?`, k.table), ref.ID).
			Scan(&key.ID, &key.Name)
		if errors.Is(err, sql.ErrNoRows) {
			return models.Key{}, models.NotFoundf("%s %s", k.label, ref)
		}
		if err != nil {
			return models.Key{}, fmt.Errorf("resolve %s: %w", k.label, err)
		}
		if ref.Kind == models.RefCanonical && key.Name != ref.Name {
			return models.Key{}, models.NotFoundf("%s %s (id %d is named %q)", k.label, ref, key.ID, key.Name)
		}
		return key, nil
	default:
		name := strings.TrimSpace(ref.Name)
		if name == "" {
			return models.Key{}, models.Invalidf("empty %s reference", k.label)
		}
		rows, err := q.QueryContext(ctx, fmt.Sprintf(`SELECT id, name FROM %s WHERE name = ? ORDER BY id`, k.table), name)
		if err != nil {
			return models.Key{}, fmt.Errorf("resolve %s: %w", k.label, err)
		}
		defer rows.Close()

		var matches []models.Key
		for rows.Next() {
			var key models.Key
			if err := rows.Scan(&key.ID, &key.Name); err != nil {
				return models.Key{}, fmt.Errorf("scan %s: %w", k.label, err)
			}
			matches = append(matches, key)
		}
		if err := rows.Err(); err != nil {
			return models.Key{}, err
		}
		switch len(matches) {
		case 0:
			return models.Key{}, models.NotFoundf("%s %q", k.label, name)
		case 1:
			return matches[0], nil
		default:
			keys := make([]string, 0, len(matches))
			for _, m := range matches {
				keys = append(keys, m.String())
			}
			return models.Key{}, models.Ambiguousf("%s %q matches %s", k.label, name, strings.Join(keys, ", "))
		}
	}
}

// resolveAll resolves refs in order and drops duplicates.
func resolveAll(ctx context.Context, q querier, k kind, refs []models.Ref) ([]int64, error) {
	ids := make([]int64, 0, len(refs))
	seen := make(map[int64]bool, len(refs))
	for _, ref := range refs {
		key, err := resolve(ctx, q, k, ref)
		if err != nil {
			return nil, err
		}
		if !seen[key.ID] {
			seen[key.ID] = true
			ids = append(ids, key.ID)
		}
	}
	return ids, nil
}

// checkName validates a new display name and, in strict mode, its uniqueness.
func (s *Store) checkName(ctx context.Context, q querier, k kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", models.Invalidf("%s name must not be empty", k.label)
	}
	if models.ParseRef(name).Kind != models.RefByName {
		return "", models.Invalidf("%s name %q reads as an id or an id:name key", k.label, name)
	}
	if !s.strict {
		return name, nil
	}
	var count int
	if err := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE name = ?`, k.table), name).Scan(&count); err != nil {
		return "", fmt.Errorf("check %s name: %w", k.label, err)
	}
	if count > 0 {
		return "", models.Invalidf("%s %q already exists", k.label, name)
	}
	return name, nil
}

// ResolveWorker returns the canonical key of a worker reference.
func (s *Store) ResolveWorker(ctx context.Context, ref models.Ref) (key models.Key, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		key, err = resolve(ctx, tx, workerKind, ref)
		return err
	})
	return key, err
}

// ResolveTask returns the canonical key of a task reference.
func (s *Store) ResolveTask(ctx context.Context, ref models.Ref) (key models.Key, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		key, err = resolve(ctx, tx, taskKind, ref)
		return err
	})
	return key, err
}

// ResolveSprint returns the canonical key of a sprint reference.
func (s *Store) ResolveSprint(ctx context.Context, ref models.Ref) (key models.Key, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		key, err = resolve(ctx, tx, sprintKind, ref)
		return err
	})
	return key, err
}
