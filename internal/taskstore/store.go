// Package taskstore persists annotation tasks and the label configs rendered
// for them in SQLite.
//
// The pure-Go modernc.org/sqlite driver is used by default; building with
// the cgo_sqlite tag switches to github.com/mattn/go-sqlite3.
package taskstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a task or render does not exist.
var ErrNotFound = errors.New("not found")

// Task is one unit of annotation work: a project type and its input data.
type Task struct {
	ID      int64
	Project string
	// Data is the task's input data as a JSON object.
	Data    json.RawMessage
	Created time.Time
}

// Render is a label config rendered for a task.
type Render struct {
	ID     int64
	TaskID int64
	// Format is the output encoding, "xml" or "json".
	Format string
	Output []byte
	// Issues is the number of problems reported while rendering.
	Issues  int
	Created time.Time
}

// Store is a SQLite-backed task store. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens the database at dataSource and makes sure the schema exists.
func Open(dataSource string) (*Store, error) {
	db, err := openDB(dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to open task database: %w", err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)

	if err := SetupSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// SetupSchema creates the tables used by the store. It is idempotent and
// safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {
	const (
		schemaTasks = `
CREATE TABLE IF NOT EXISTS tasks (
    task_id INTEGER PRIMARY KEY,
    project TEXT NOT NULL,
    data TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
`
		schemaTasksIndex = `CREATE INDEX IF NOT EXISTS tasks_project ON tasks (project, task_id);`
		schemaRenders    = `
CREATE TABLE IF NOT EXISTS renders (
    render_id INTEGER PRIMARY KEY,
    task_id INTEGER NOT NULL REFERENCES tasks (task_id),
    format TEXT NOT NULL,
    output BLOB NOT NULL,
    issues INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);
`
		schemaRendersIndex = `CREATE INDEX IF NOT EXISTS renders_task ON renders (task_id, render_id);`
	)

	for _, stmt := range []string{schemaTasks, schemaTasksIndex, schemaRenders, schemaRendersIndex} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to set up task schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts a task and returns it with its assigned ID. The data must be a
// JSON object.
func (s *Store) Put(ctx context.Context, project string, data json.RawMessage) (*Task, error) {
	t := &Task{Project: project, Data: data}
	if err := insertTask(ctx, s.db, t, time.Now().UTC()); err != nil {
		return nil, err
	}
	return t, nil
}

// PutAll inserts tasks in a single transaction and sets their IDs. Either
// every task is stored or none is.
func (s *Store) PutAll(ctx context.Context, tasks []*Task) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin task import: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for i, t := range tasks {
		if err := insertTask(ctx, tx, t, now); err != nil {
			return fmt.Errorf("task %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit task import: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertTask(ctx context.Context, db execer, t *Task, now time.Time) error {
	if t.Project == "" {
		return errors.New("task project must not be empty")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(t.Data, &fields); err != nil {
		return fmt.Errorf("task data must be a JSON object: %w", err)
	}
	if fields == nil {
		return errors.New("task data must be a JSON object, got null")
	}

	res, err := db.ExecContext(ctx,
		"INSERT INTO tasks (project, data, created_at) VALUES (?, ?, ?)",
		t.Project, string(t.Data), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read task id: %w", err)
	}
	t.ID = id
	t.Created = now.Truncate(time.Millisecond)
	return nil
}

// Get returns the task with the given ID.
func (s *Store) Get(ctx context.Context, id int64) (*Task, error) {
	t := &Task{ID: id}
	var data string
	var created int64
	err := s.db.QueryRowContext(ctx,
		"SELECT project, data, created_at FROM tasks WHERE task_id = ?", id).
		Scan(&t.Project, &data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task %d: %w", id, err)
	}
	t.Data = json.RawMessage(data)
	t.Created = time.UnixMilli(created).UTC()
	return t, nil
}

// ListByProject returns every task of a project in insertion order.
func (s *Store) ListByProject(ctx context.Context, project string) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT task_id, data, created_at FROM tasks WHERE project = ? ORDER BY task_id", project)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks of %s: %w", project, err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t := &Task{Project: project}
		var data string
		var created int64
		if err := rows.Scan(&t.ID, &data, &created); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		t.Data = json.RawMessage(data)
		t.Created = time.UnixMilli(created).UTC()
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// SaveRender stores a rendered label config and sets its ID.
func (s *Store) SaveRender(ctx context.Context, r *Render) error {
	if r.Created.IsZero() {
		r.Created = time.Now().UTC().Truncate(time.Millisecond)
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO renders (task_id, format, output, issues, created_at) VALUES (?, ?, ?, ?, ?)",
		r.TaskID, r.Format, r.Output, r.Issues, r.Created.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save render of task %d: %w", r.TaskID, err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

// LatestRender returns the most recent render of a task.
func (s *Store) LatestRender(ctx context.Context, taskID int64) (*Render, error) {
	r := &Render{TaskID: taskID}
	var created int64
	err := s.db.QueryRowContext(ctx,
		"SELECT render_id, format, output, issues, created_at FROM renders WHERE task_id = ? ORDER BY render_id DESC LIMIT 1", taskID).
		Scan(&r.ID, &r.Format, &r.Output, &r.Issues, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("render of task %d: %w", taskID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load render of task %d: %w", taskID, err)
	}
	r.Created = time.UnixMilli(created).UTC()
	return r, nil
}
