package state

import (
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Ledger is a local migration accounting store. One row is recorded per
// migrated stylesheet so "lines migrated" numbers survive between runs.
// Ledger methods are safe to call on a nil receiver - recording is simply
// disabled when no database path was configured.
type Ledger struct {
	conn *sqlite.Conn
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS migrations (
	id INTEGER PRIMARY KEY,
	recorded_at TEXT NOT NULL,
	theme TEXT NOT NULL,
	theme_group TEXT NOT NULL,
	source_lines INTEGER NOT NULL,
	output_lines INTEGER NOT NULL,
	variables_converted INTEGER NOT NULL,
	mixins_converted INTEGER NOT NULL,
	functions_converted INTEGER NOT NULL,
	imports_removed INTEGER NOT NULL,
	elapsed_ms INTEGER NOT NULL,
	outcome TEXT NOT NULL
);`

// MigrationRecord is a single ledger row.
type MigrationRecord struct {
	Theme              string
	Group              string
	SourceLines        int
	OutputLines        int
	VariablesConverted int
	MixinsConverted    int
	FunctionsConverted int
	ImportsRemoved     int
	Elapsed            time.Duration
	Outcome            string
}

// OpenLedger opens (creating when necessary) the migration ledger at path.
// Empty path disables recording and returns nil Ledger without an error.
func OpenLedger(path string) (*Ledger, error) {
	if len(path) == 0 {
		return nil, nil
	}
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return nil, fmt.Errorf("unable to open stats ledger: %w", err)
	}
	if err := sqlitex.ExecuteTransient(conn, ledgerSchema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to prepare stats ledger schema: %w", err)
	}
	return &Ledger{conn: conn}, nil
}

// Record stores a single migration result.
func (l *Ledger) Record(rec MigrationRecord) error {
	if l == nil || l.conn == nil {
		return nil
	}
	return sqlitex.Execute(l.conn,
		`INSERT INTO migrations (recorded_at, theme, theme_group, source_lines, output_lines,
			variables_converted, mixins_converted, functions_converted, imports_removed, elapsed_ms, outcome)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				time.Now().UTC().Format(time.RFC3339),
				rec.Theme,
				rec.Group,
				rec.SourceLines,
				rec.OutputLines,
				rec.VariablesConverted,
				rec.MixinsConverted,
				rec.FunctionsConverted,
				rec.ImportsRemoved,
				rec.Elapsed.Milliseconds(),
				rec.Outcome,
			},
		})
}

// LinesMigrated returns the total number of source lines ever migrated for a theme.
func (l *Ledger) LinesMigrated(theme string) (int64, error) {
	if l == nil || l.conn == nil {
		return 0, nil
	}
	var total int64
	err := sqlitex.Execute(l.conn,
		`SELECT COALESCE(SUM(source_lines), 0) FROM migrations WHERE theme = ?`,
		&sqlitex.ExecOptions{
			Args: []any{theme},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				total = stmt.ColumnInt64(0)
				return nil
			},
		})
	return total, err
}

// Close releases the underlying database connection.
func (l *Ledger) Close() error {
	if l == nil || l.conn == nil {
		return nil
	}
	return l.conn.Close()
}
