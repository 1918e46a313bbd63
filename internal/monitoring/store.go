package monitoring

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store persists daily rollups to a SQLite database so the rolling
// window survives restarts. All writes are best effort; the Monitor
// logs and continues when the store fails.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the rollup database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening metrics db: %w", err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS daily_stats (
		day TEXT PRIMARY KEY,
		requests INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		total_time_ms INTEGER NOT NULL DEFAULT 0
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating daily_stats table: %w", err)
	}
	return &Store{db: db}, nil
}

// Load returns all rollups on or after the cutoff day (inclusive).
func (s *Store) Load(cutoff string) (map[string]*DailyStat, error) {
	rows, err := s.db.Query(
		`SELECT day, requests, errors, total_time_ms FROM daily_stats WHERE day >= ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("loading daily stats: %w", err)
	}
	defer rows.Close()

	daily := make(map[string]*DailyStat)
	for rows.Next() {
		var day string
		stat := &DailyStat{}
		if err := rows.Scan(&day, &stat.Requests, &stat.Errors, &stat.TotalTime); err != nil {
			return nil, fmt.Errorf("scanning daily stats: %w", err)
		}
		daily[day] = stat
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading daily stats: %w", err)
	}
	return daily, nil
}

// Upsert writes the full rollup for one day.
func (s *Store) Upsert(day string, stat DailyStat) error {
	_, err := s.db.Exec(
		`INSERT INTO daily_stats (day, requests, errors, total_time_ms) VALUES (?, ?, ?, ?)
		 ON CONFLICT(day) DO UPDATE SET
		   requests = excluded.requests,
		   errors = excluded.errors,
		   total_time_ms = excluded.total_time_ms`,
		day, stat.Requests, stat.Errors, stat.TotalTime)
	return err
}

// Prune deletes rollups older than the cutoff day.
func (s *Store) Prune(cutoff string) error {
	_, err := s.db.Exec(`DELETE FROM daily_stats WHERE day < ?`, cutoff)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
