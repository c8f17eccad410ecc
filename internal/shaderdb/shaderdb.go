// Package shaderdb loads the shader → donor package lookup table shared
// by all resolution steps. The table is published as a CSV but can also
// be compiled into a SQLite index for large installations.
package shaderdb

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrDatabaseMissing is returned when the database source cannot be read.
var ErrDatabaseMissing = errors.New("shader database missing")

// DB is an immutable shader name → donor package name lookup table.
// Safe for concurrent readers after Load returns.
type DB struct {
	packages map[string]string
}

// Load reads a shader database from path. The format is chosen by
// extension: .db/.sqlite/.sqlite3 load the compiled SQLite index,
// everything else is parsed as CSV.
func Load(path string) (*DB, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return loadSQLite(path)
	default:
		return loadCSV(path)
	}
}

// loadCSV parses the published CSV in a single pass. The header row is
// skipped; rows with fewer than two columns are dropped, as are rows
// whose package field is empty or the literal "None".
func loadCSV(path string) (*DB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDatabaseMissing, path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // rows vary in trailing columns

	packages := make(map[string]string)
	header := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse shader database %s: %w", path, err)
		}
		if header {
			header = false
			continue
		}
		if len(row) < 2 {
			continue
		}
		shader, pkg := row[0], row[1]
		if pkg == "" || pkg == "None" {
			continue
		}
		packages[shader] = pkg
	}

	return &DB{packages: packages}, nil
}

func loadSQLite(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDatabaseMissing, path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open shader index %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT shader, package FROM shaders`)
	if err != nil {
		return nil, fmt.Errorf("query shader index %s: %w", path, err)
	}
	defer rows.Close()

	packages := make(map[string]string)
	for rows.Next() {
		var shader, pkg string
		if err := rows.Scan(&shader, &pkg); err != nil {
			return nil, fmt.Errorf("scan shader index row: %w", err)
		}
		if pkg == "" || pkg == "None" {
			continue
		}
		packages[shader] = pkg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read shader index %s: %w", path, err)
	}

	return &DB{packages: packages}, nil
}

// Lookup returns the donor package for a shader name.
func (d *DB) Lookup(shader string) (string, bool) {
	pkg, ok := d.packages[shader]
	return pkg, ok
}

// Len returns the number of known shaders.
func (d *DB) Len() int {
	return len(d.packages)
}

// ImportCSV compiles the CSV database at csvPath into a SQLite index at
// outPath, replacing any previous index. The same row filtering as
// loadCSV applies.
func ImportCSV(csvPath, outPath string) (int, error) {
	src, err := loadCSV(csvPath)
	if err != nil {
		return 0, err
	}

	if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("remove old shader index %s: %w", outPath, err)
	}

	db, err := sql.Open("sqlite", outPath)
	if err != nil {
		return 0, fmt.Errorf("create shader index %s: %w", outPath, err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE shaders (shader TEXT PRIMARY KEY, package TEXT NOT NULL)`); err != nil {
		return 0, fmt.Errorf("create shaders table: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO shaders (shader, package) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	for shader, pkg := range src.packages {
		if _, err := stmt.Exec(shader, pkg); err != nil {
			stmt.Close()
			tx.Rollback()
			return 0, fmt.Errorf("insert shader %s: %w", shader, err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}

	return len(src.packages), nil
}
