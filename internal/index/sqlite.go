// Package index maintains a sqlite read-model of entity statuses and
// notifications. Writes arrive as batches on a channel and are applied
// by a single writer goroutine, so the engine loop never blocks on the
// database. The index is a derived view, in-memory by default; the
// engine state is the source of truth.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// InMemoryPath opens a private in-memory database.
const InMemoryPath = ":memory:"

type EntityRow struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Status string `json:"status"`
	Tick   uint64 `json:"tick"`
}

type NotificationRow struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Level   string `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Read    bool   `json:"read"`
	Tick    uint64 `json:"tick"`
}

// Batch is one export from the engine: the entity statuses and
// notification queues as of Tick.
type Batch struct {
	Tick          uint64
	Digest        string
	Balance       int
	Entities      []EntityRow
	Notifications []NotificationRow
}

type SQLiteIndex struct {
	db *sql.DB

	ch   chan Batch
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

func Open(path string) (*SQLiteIndex, error) {
	if path == "" {
		path = InMemoryPath
	}
	if path != InMemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan Batch, 64),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS entities (
			kind TEXT NOT NULL,
			id TEXT NOT NULL,
			status TEXT NOT NULL,
			tick INTEGER NOT NULL,
			PRIMARY KEY (kind, id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_entities_status ON entities(kind, status);`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			role TEXT NOT NULL,
			level TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			read INTEGER NOT NULL,
			tick INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_role ON notifications(role, tick);`,
		`CREATE TABLE IF NOT EXISTS exports (
			tick INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			balance INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Sink is the write side handed to the engine.
func (s *SQLiteIndex) Sink() chan<- Batch { return s.ch }

// Write enqueues a batch, dropping it if the writer is backed up.
func (s *SQLiteIndex) Write(b Batch) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- b:
	default:
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()
	for b := range s.ch {
		s.applyBatch(ctx, b)
	}
}

func (s *SQLiteIndex) applyBatch(ctx context.Context, b Batch) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range b.Entities {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO entities(kind,id,status,tick) VALUES(?,?,?,?)`,
			e.Kind, e.ID, e.Status, int64(e.Tick),
		); err != nil {
			return
		}
	}
	// Notifications are replaced wholesale: clears must disappear.
	if _, err := tx.Exec(`DELETE FROM notifications`); err != nil {
		return
	}
	for _, n := range b.Notifications {
		read := 0
		if n.Read {
			read = 1
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO notifications(id,role,level,title,message,read,tick) VALUES(?,?,?,?,?,?,?)`,
			n.ID, n.Role, n.Level, n.Title, n.Message, read, int64(n.Tick),
		); err != nil {
			return
		}
	}
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO exports(tick,digest,balance,recorded_at) VALUES(?,?,?,?)`,
		int64(b.Tick), b.Digest, b.Balance, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return
	}
	_ = tx.Commit()
}

// Entities returns current rows, optionally filtered by kind.
func (s *SQLiteIndex) Entities(ctx context.Context, kind string) ([]EntityRow, error) {
	q := `SELECT kind,id,status,tick FROM entities`
	args := []any{}
	if kind != "" {
		q += ` WHERE kind=?`
		args = append(args, kind)
	}
	q += ` ORDER BY kind,id`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EntityRow
	for rows.Next() {
		var r EntityRow
		var tick int64
		if err := rows.Scan(&r.Kind, &r.ID, &r.Status, &tick); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Notifications returns the queue for one role, newest first, or all
// roles when role is empty.
func (s *SQLiteIndex) Notifications(ctx context.Context, role string) ([]NotificationRow, error) {
	q := `SELECT id,role,level,title,message,read,tick FROM notifications`
	args := []any{}
	if role != "" {
		q += ` WHERE role=?`
		args = append(args, role)
	}
	q += ` ORDER BY tick DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NotificationRow
	for rows.Next() {
		var r NotificationRow
		var read int
		var tick int64
		if err := rows.Scan(&r.ID, &r.Role, &r.Level, &r.Title, &r.Message, &read, &tick); err != nil {
			return nil, err
		}
		r.Read = read != 0
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LastExport returns the most recent export row.
func (s *SQLiteIndex) LastExport(ctx context.Context) (tick uint64, digest string, balance int, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT tick,digest,balance FROM exports ORDER BY tick DESC LIMIT 1`)
	var t int64
	if err = row.Scan(&t, &digest, &balance); err != nil {
		if err == sql.ErrNoRows {
			return 0, "", 0, fmt.Errorf("no exports recorded")
		}
		return 0, "", 0, err
	}
	return uint64(t), digest, balance, nil
}
