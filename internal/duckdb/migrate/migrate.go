// Package migrate applies the embedded schema migrations that shape the
// logs database. Files under migrations/ are named NNN_description.sql
// and run in version order, each inside its own transaction.
package migrate

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Runner tracks and applies schema migrations on one database handle.
type Runner struct{ db *sql.DB }

// NewRunner wraps db in a migration runner.
func NewRunner(db *sql.DB) *Runner { return &Runner{db: db} }

type step struct {
	version int
	file    string
	body    string
}

func parseVersion(name string) (int, error) {
	prefix, _, found := strings.Cut(name, "_")
	if !found {
		return 0, fmt.Errorf("migration %s is not NNN_name.sql", name)
	}
	v, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("parsing version from %s: %w", name, err)
	}
	return v, nil
}

func loadSteps() ([]step, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("list embedded migrations: %w", err)
	}

	steps := make([]step, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		v, err := parseVersion(e.Name())
		if err != nil {
			return nil, err
		}
		body, err := migrationFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		steps = append(steps, step{version: v, file: e.Name(), body: string(body)})
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].version < steps[j].version })
	return steps, nil
}

func (r *Runner) ensureVersionTable() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       VARCHAR NOT NULL,
		applied_at TIMESTAMP DEFAULT current_timestamp
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	return nil
}

func (r *Runner) currentVersion() (int, error) {
	var v sql.NullInt64
	if err := r.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading applied version: %w", err)
	}
	if !v.Valid {
		return 0, nil
	}
	return int(v.Int64), nil
}

// apply runs one migration and records it, all in a single transaction
// so a failed step leaves no partial schema behind.
func (r *Runner) apply(s step) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx for %s: %w", s.file, err)
	}
	if _, err := tx.Exec(s.body); err != nil {
		tx.Rollback()
		return fmt.Errorf("executing %s: %w", s.file, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", s.version, s.file); err != nil {
		tx.Rollback()
		return fmt.Errorf("recording %s: %w", s.file, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", s.file, err)
	}
	return nil
}

// Run brings the schema up to the newest embedded version. Already
// applied steps are skipped, so calling Run repeatedly is safe.
func (r *Runner) Run() error {
	if err := r.ensureVersionTable(); err != nil {
		return err
	}
	steps, err := loadSteps()
	if err != nil {
		return err
	}
	current, err := r.currentVersion()
	if err != nil {
		return err
	}

	for _, s := range steps {
		if s.version <= current {
			continue
		}
		if err := r.apply(s); err != nil {
			return err
		}
		log.Printf("migrate: applied %s", s.file)
	}
	return nil
}

// Status reports the highest applied version and how many embedded
// steps are still waiting.
func (r *Runner) Status() (current int, pending int, err error) {
	if err = r.ensureVersionTable(); err != nil {
		return 0, 0, err
	}
	current, err = r.currentVersion()
	if err != nil {
		return 0, 0, err
	}
	steps, err := loadSteps()
	if err != nil {
		return 0, 0, err
	}
	for _, s := range steps {
		if s.version > current {
			pending++
		}
	}
	return current, pending, nil
}
