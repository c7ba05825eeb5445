package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/schedule"
)

// SQLiteStore persists schedule entries in a SQLite database so manual locks
// and planned hours survive restarts.
type SQLiteStore struct {
	db *sql.DB
}

var _ schedule.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	schema := `CREATE TABLE IF NOT EXISTS schedule_entries (
        date TEXT NOT NULL,
        hour INTEGER NOT NULL,
        manual INTEGER NOT NULL DEFAULT 0,
        entry TEXT NOT NULL,
        PRIMARY KEY (date, hour)
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Schedule(date string) (map[int]model.ScheduleEntry, error) {
	rows, err := s.db.Query(`SELECT entry FROM schedule_entries WHERE date = ?`, date)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := map[int]model.ScheduleEntry{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var e model.ScheduleEntry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("unmarshal entry: %w", err)
		}
		out[e.Hour] = e
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Hour(date string, hour int) (model.ScheduleEntry, bool, error) {
	var data string
	err := s.db.QueryRow(
		`SELECT entry FROM schedule_entries WHERE date = ? AND hour = ?`, date, hour).Scan(&data)
	if err == sql.ErrNoRows {
		return model.ScheduleEntry{}, false, nil
	}
	if err != nil {
		return model.ScheduleEntry{}, false, err
	}
	var e model.ScheduleEntry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return model.ScheduleEntry{}, false, fmt.Errorf("unmarshal entry: %w", err)
	}
	return e, true, nil
}

func (s *SQLiteStore) Set(entry model.ScheduleEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO schedule_entries (date, hour, manual, entry) VALUES (?, ?, ?, ?)
         ON CONFLICT(date, hour) DO UPDATE SET manual = excluded.manual, entry = excluded.entry`,
		entry.Date, entry.Hour, boolInt(entry.Manual), string(b))
	return err
}

func (s *SQLiteStore) ClearHour(date string, hour int) error {
	_, err := s.db.Exec(`DELETE FROM schedule_entries WHERE date = ? AND hour = ?`, date, hour)
	return err
}

func (s *SQLiteStore) ClearDate(date string) error {
	_, err := s.db.Exec(`DELETE FROM schedule_entries WHERE date = ?`, date)
	return err
}

func (s *SQLiteStore) SetManual(date string, hour int, manual bool) error {
	e, ok, err := s.Hour(date, hour)
	if err != nil || !ok {
		return err
	}
	e.Manual = manual
	return s.Set(e)
}

func (s *SQLiteStore) ManualHours(date string) (map[int]bool, error) {
	rows, err := s.db.Query(
		`SELECT hour FROM schedule_entries WHERE date = ? AND manual = 1`, date)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := map[int]bool{}
	for rows.Next() {
		var h int
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out[h] = true
	}
	return out, rows.Err()
}

// ReplaceAuto runs inside one transaction so a failed recompute commit leaves
// the previous schedule intact.
func (s *SQLiteStore) ReplaceAuto(dates []string, entries []model.ScheduleEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, date := range dates {
		if _, err := tx.Exec(
			`DELETE FROM schedule_entries WHERE date = ? AND manual = 0`, date); err != nil {
			return err
		}
	}
	for _, e := range entries {
		e.Manual = false
		b, err := json.Marshal(e)
		if err != nil {
			return err
		}
		// Manual slots win: the conflict target only fires for auto rows,
		// manual rows were not deleted above and stay as they are.
		if _, err := tx.Exec(
			`INSERT INTO schedule_entries (date, hour, manual, entry) VALUES (?, ?, 0, ?)
             ON CONFLICT(date, hour) DO NOTHING`,
			e.Date, e.Hour, string(b)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Cleanup(cutoff time.Time) error {
	_, err := s.db.Exec(
		`DELETE FROM schedule_entries WHERE date < ?`, cutoff.Format(model.DateLayout))
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
