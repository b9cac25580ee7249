package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"weekplan/internal/task"
)

// sqliteBackend keeps the task lists in a private in-memory SQLite
// database. Nothing is written to disk; the data lives as long as the store.
type sqliteBackend struct {
	db *sql.DB
	// zones caches locations by name for rows read back.
	zones map[string]*time.Location
}

// OpenSQLite creates a store backed by an in-memory SQLite database.
func OpenSQLite(opts ...Option) (*Store, error) {
	s := newStore(nil, opts...)
	b, err := openSQLiteBackend()
	if err != nil {
		return nil, err
	}
	s.backend = b
	return s, nil
}

func openSQLiteBackend() (*sqliteBackend, error) {
	db, err := sql.Open("sqlite", sqliteMemoryDSN("weekplan-"+uuid.NewString()))
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	// A shared-cache memory database disappears with its last connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	b := &sqliteBackend{db: db, zones: map[string]*time.Location{}}
	if err := b.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: sqlite schema: %w", err)
	}
	return b, nil
}

func (b *sqliteBackend) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS days (
	day_key TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS tasks (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	day_key TEXT NOT NULL REFERENCES days(day_key),
	id TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	start_at TEXT NOT NULL,
	start_zone TEXT NOT NULL DEFAULT '',
	end_at TEXT NOT NULL,
	end_zone TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS tasks_day ON tasks(day_key, seq);`
	_, err := b.db.Exec(ddl)
	return err
}

func (b *sqliteBackend) append(key string, t task.Task) error {
	tx, err := b.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := insertTask(tx, key, t); err != nil {
		return err
	}
	return tx.Commit()
}

func insertTask(tx *sql.Tx, key string, t task.Task) error {
	if _, err := tx.Exec(`INSERT OR IGNORE INTO days (day_key) VALUES (?);`, key); err != nil {
		return err
	}
	_, err := tx.Exec(`INSERT INTO tasks (day_key, id, title, start_at, start_zone, end_at, end_zone, location)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		key, t.ID.String(), t.Title,
		formatTime(t.Start), t.Start.Location().String(),
		formatTime(t.End), t.End.Location().String(),
		t.Location)
	return err
}

func (b *sqliteBackend) list(key string) ([]task.Task, error) {
	rows, err := b.db.Query(`SELECT id, title, start_at, start_zone, end_at, end_zone, location
FROM tasks WHERE day_key = ? ORDER BY seq;`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []task.Task{}
	for rows.Next() {
		var t task.Task
		var id, startStr, startZone, endStr, endZone string
		if err := rows.Scan(&id, &t.Title, &startStr, &startZone, &endStr, &endZone, &t.Location); err != nil {
			return nil, err
		}
		if t.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("task id %q: %w", id, err)
		}
		if t.Start, err = b.parseTime(startStr, startZone); err != nil {
			return nil, err
		}
		if t.End, err = b.parseTime(endStr, endZone); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (b *sqliteBackend) replace(key string, t task.Task) (bool, error) {
	// Only the first match is replaced, like the in-memory list.
	res, err := b.db.Exec(`UPDATE tasks
SET title = ?, start_at = ?, start_zone = ?, end_at = ?, end_zone = ?, location = ?
WHERE seq = (SELECT seq FROM tasks WHERE day_key = ? AND id = ? ORDER BY seq LIMIT 1);`,
		t.Title,
		formatTime(t.Start), t.Start.Location().String(),
		formatTime(t.End), t.End.Location().String(),
		t.Location, key, t.ID.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (b *sqliteBackend) delete(key string, id uuid.UUID) (int, error) {
	res, err := b.db.Exec(`DELETE FROM tasks WHERE day_key = ? AND id = ?;`, key, id.String())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (b *sqliteBackend) move(from, to string, t task.Task) (bool, error) {
	tx, err := b.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM tasks WHERE day_key = ? AND id = ?;`, from, t.ID.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if err := insertTask(tx, to, t); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (b *sqliteBackend) keys() ([]string, error) {
	rows, err := b.db.Query(`SELECT day_key FROM days;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (b *sqliteBackend) close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// parseTime restores a timestamp in the zone it was written with. Zones
// that cannot be loaded by name keep the stored UTC offset, so the wall
// clock is unchanged either way.
func (b *sqliteBackend) parseTime(v, zone string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, errors.Join(fmt.Errorf("bad timestamp %q", v), err)
	}
	loc := b.zone(zone)
	if loc == nil {
		return t, nil
	}
	_, stored := t.Zone()
	named := t.In(loc)
	if _, off := named.Zone(); off != stored {
		// Same name, different rules (e.g. a time.FixedZone).
		return t, nil
	}
	return named, nil
}

func (b *sqliteBackend) zone(name string) *time.Location {
	switch name {
	case "":
		return nil
	case "Local":
		return time.Local
	case "UTC":
		return time.UTC
	}
	if loc, ok := b.zones[name]; ok {
		return loc
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc = nil
	}
	b.zones[name] = loc
	return loc
}

func sqliteMemoryDSN(name string) string {
	u := url.URL{
		Scheme: "file",
		Opaque: name,
	}
	q := url.Values{}
	q.Set("mode", "memory")
	q.Set("cache", "shared")
	q.Set("_pragma", "foreign_keys(1)")
	u.RawQuery = q.Encode()
	return u.String()
}
