package waypoint

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore appends waypoints to a SQLite table. Each process writes under
// its own session ID, and seq restarts at 0 for every session.
type SQLiteStore struct {
	db      *sql.DB
	session string
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStore, path, err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS waypoints (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			session     TEXT NOT NULL,
			seq         INTEGER NOT NULL,
			x           DOUBLE NOT NULL,
			y           DOUBLE NOT NULL,
			yaw         DOUBLE NOT NULL,
			recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create schema in %s: %w", ErrStore, path, err)
	}

	return &SQLiteStore{db: db, session: uuid.NewString()}, nil
}

// Session returns this process's session ID.
func (s *SQLiteStore) Session() string {
	return s.session
}

// Append inserts one row. The insert is committed before it returns.
func (s *SQLiteStore) Append(wp Waypoint) error {
	_, err := s.db.Exec(
		`INSERT INTO waypoints (session, seq, x, y, yaw, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		s.session, wp.ID, wp.X, wp.Y, wp.Yaw, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: insert waypoint %d: %w", ErrStore, wp.ID, err)
	}
	return nil
}

// Count returns the number of rows across all sessions.
func (s *SQLiteStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM waypoints`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %w", ErrStore, err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LoadSQLite reads every stored waypoint in insertion order. IDs follow that
// order, matching LoadCSV.
func LoadSQLite(path string) ([]Waypoint, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("read waypoint database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT x, y, yaw FROM waypoints ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query waypoints: %w", err)
	}
	defer rows.Close()

	var wps []Waypoint
	for rows.Next() {
		wp := Waypoint{ID: len(wps)}
		if err := rows.Scan(&wp.X, &wp.Y, &wp.Yaw); err != nil {
			return nil, fmt.Errorf("scan waypoint: %w", err)
		}
		wps = append(wps, wp)
	}
	return wps, rows.Err()
}
