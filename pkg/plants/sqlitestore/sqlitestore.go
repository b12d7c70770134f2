// Package sqlitestore keeps plant records in a SQLite database, for sites
// that manage their survey in a spreadsheet-like tool rather than a JSON file.
//
// Records are returned in insertion order, which is the order the viewer's
// list selector shows them in.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/matzehuels/ecomap/pkg/errors"
	"github.com/matzehuels/ecomap/pkg/plants"
)

const schema = `
CREATE TABLE IF NOT EXISTS plants (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL DEFAULT '',
    x REAL,
    y REAL,
    label TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    photo TEXT NOT NULL DEFAULT ''
);
`

// Store is a plants.Source backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path and ensures the plants table
// exists. Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		dsn = path + "?_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps ":memory:" databases alive across queries.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Load returns all plants in insertion order.
func (s *Store) Load(ctx context.Context) ([]plants.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, x, y, label, description, photo FROM plants ORDER BY seq`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "query plants from %s", s.path)
	}
	defer rows.Close()

	var out []plants.Record
	for rows.Next() {
		var (
			r    plants.Record
			x, y sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.Name, &x, &y, &r.Label, &r.Description, &r.Photo); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRecord, err, "scan plant row")
		}
		if x.Valid {
			r.X = &x.Float64
		}
		if y.Valid {
			r.Y = &y.Float64
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read plants from %s", s.path)
	}
	return out, nil
}

// Replace swaps the whole table for records in one transaction. Records
// without an id are rejected; a repeated id keeps the first occurrence.
func (s *Store) Replace(ctx context.Context, records []plants.Record) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, err, "begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM plants`); err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, err, "clear plants")
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO plants (id, name, x, y, label, description, photo) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, err, "prepare insert")
	}
	defer stmt.Close()

	n := 0
	for i, r := range records {
		if r.ID == "" {
			return 0, errors.New(errors.ErrCodeInvalidRecord, "record #%d has no id", i)
		}
		res, err := stmt.ExecContext(ctx, r.ID, r.Name, nullable(r.X), nullable(r.Y), r.Label, r.Description, r.Photo)
		if err != nil {
			return 0, errors.Wrap(errors.ErrCodeInternal, err, "insert plant %q", r.ID)
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			n++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, err, "commit plants")
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

var _ plants.Source = (*Store)(nil)
