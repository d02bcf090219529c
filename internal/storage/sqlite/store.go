package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3"
)

const memoryPath = ":memory:"

// Options tunes how a Store behaves.
type Options struct {
	// StrictNames rejects a new worker, task or sprint whose name is already taken.
	StrictNames bool
	// LockTimeout bounds the wait for the exclusive lock on the database file.
	LockTimeout time.Duration
	// Clock supplies "now" for status timestamps; nil means time.Now.
	Clock func() time.Time
}

// Store is the single owner of persisted workers, tasks, hour entries and sprints.
// Every exported method runs as one transaction.
type Store struct {
	db     *sql.DB
	lock   *flock.Flock
	logger *slog.Logger
	strict bool
	now    func() time.Time
}

// Open initializes a new SQLite store, takes the process lock and runs the
// required migrations.
func Open(dbPath string, logger *slog.Logger, opts Options) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	var lock *flock.Flock
	if dbPath != memoryPath {
		if err := ensureDir(dbPath); err != nil {
			return nil, err
		}
		l, err := acquireLock(dbPath, opts.LockTimeout)
		if err != nil {
			return nil, err
		}
		logger.Info("acquired store lock", slog.String("path", l.Path()))
		lock = l
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		releaseLock(lock)
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, lock: lock, logger: logger, strict: opts.StrictNames, now: opts.Clock}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		releaseLock(lock)
		return nil, err
	}

	return s, nil
}

// Close releases the database resources and the process lock.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	releaseLock(s.lock)
	return err
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func acquireLock(dbPath string, timeout time.Duration) (*flock.Flock, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	lock := flock.New(dbPath + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("store %s is in use by another process", dbPath)
	}
	return lock, nil
}

func releaseLock(lock *flock.Flock) {
	if lock != nil {
		_ = lock.Unlock()
	}
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS workers (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS tasks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'backlog'
                CHECK (status IN ('backlog', 'new', 'inprogress', 'finished')),
            length_hours REAL NOT NULL CHECK (length_hours > 0),
            description TEXT NOT NULL DEFAULT '',
            backlog_date DATETIME,
            new_date DATETIME,
            inprogress_date DATETIME,
            finished_date DATETIME
        );`,
		`CREATE TABLE IF NOT EXISTS task_workers (
            task_id INTEGER NOT NULL,
            worker_id INTEGER NOT NULL,
            PRIMARY KEY (task_id, worker_id),
            FOREIGN KEY(task_id) REFERENCES tasks(id) ON DELETE CASCADE,
            FOREIGN KEY(worker_id) REFERENCES workers(id) ON DELETE CASCADE
        );`,
		`CREATE TABLE IF NOT EXISTS task_deps (
            task_id INTEGER NOT NULL,
            dep_task_id INTEGER NOT NULL,
            PRIMARY KEY (task_id, dep_task_id),
            CHECK (task_id <> dep_task_id),
            FOREIGN KEY(task_id) REFERENCES tasks(id) ON DELETE CASCADE,
            FOREIGN KEY(dep_task_id) REFERENCES tasks(id) ON DELETE CASCADE
        );`,
		`CREATE TABLE IF NOT EXISTS hours (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_id INTEGER NOT NULL,
            worker_id INTEGER,
            date TEXT NOT NULL,
            hours REAL NOT NULL CHECK (hours > 0),
            FOREIGN KEY(task_id) REFERENCES tasks(id) ON DELETE CASCADE,
            FOREIGN KEY(worker_id) REFERENCES workers(id) ON DELETE SET NULL
        );`,
		`CREATE TABLE IF NOT EXISTS sprints (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            start_date TEXT NOT NULL,
            end_date TEXT NOT NULL,
            CHECK (end_date >= start_date)
        );`,
		`CREATE TABLE IF NOT EXISTS sprint_goals (
            sprint_id INTEGER NOT NULL,
            task_id INTEGER NOT NULL,
            PRIMARY KEY (sprint_id, task_id),
            FOREIGN KEY(sprint_id) REFERENCES sprints(id) ON DELETE CASCADE,
            FOREIGN KEY(task_id) REFERENCES tasks(id) ON DELETE CASCADE
        );`,
		`CREATE INDEX IF NOT EXISTS idx_workers_name ON workers(name);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_name ON tasks(name);`,
		`CREATE INDEX IF NOT EXISTS idx_sprints_name ON sprints(name);`,
		`CREATE INDEX IF NOT EXISTS idx_task_workers_worker ON task_workers(worker_id);`,
		`CREATE INDEX IF NOT EXISTS idx_task_deps_dep ON task_deps(dep_task_id);`,
		`CREATE INDEX IF NOT EXISTS idx_hours_task ON hours(task_id, date);`,
		`CREATE INDEX IF NOT EXISTS idx_hours_worker ON hours(worker_id);`,
		`CREATE INDEX IF NOT EXISTS idx_sprint_goals_task ON sprint_goals(task_id);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// querier is satisfied by *sql.Tx; helpers take it so they always run inside
// the caller's transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn in a transaction that is committed when fn returns nil and
// rolled back on any error or panic.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
