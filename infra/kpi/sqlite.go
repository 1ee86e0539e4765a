package kpi

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	core "github.com/kilianp07/microgrid/core/metrics/eco"
	"github.com/kilianp07/microgrid/core/model"
)

// SQLiteStore persists daily energy records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS eco_kpi (
        source TEXT,
        day INTEGER,
        generated REAL,
        PRIMARY KEY(source, day)
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Add accumulates the record into its source and day.
func (s *SQLiteStore) Add(r core.Record) error {
	d := core.Day(r.Date)
	_, err := s.db.Exec(`INSERT INTO eco_kpi (source, day, generated)
        VALUES (?, ?, ?)
        ON CONFLICT(source, day) DO UPDATE SET
            generated = generated + excluded.generated`,
		r.Source.String(), d.Unix(), r.GeneratedKWh)
	return err
}

// Query returns records in the range [start,end].
func (s *SQLiteStore) Query(source model.SourceKind, start, end time.Time) ([]core.Record, error) {
	start = core.Day(start)
	end = core.Day(end)
	rows, err := s.db.Query(`SELECT day, generated
        FROM eco_kpi WHERE source = ? AND day >= ? AND day <= ? ORDER BY day`,
		source.String(), start.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []core.Record
	for rows.Next() {
		var ts int64
		var gen float64
		if err := rows.Scan(&ts, &gen); err != nil {
			return nil, err
		}
		res = append(res, core.Record{
			Source:       source,
			Date:         time.Unix(ts, 0).UTC(),
			GeneratedKWh: gen,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
