package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// DB wraps a connection to one workspace's task database.
type DB struct {
	*sql.DB
	path   string
	logger *zap.Logger
}

// Open opens (or creates) the task database at path, applies the schema and
// any pending column migrations. Safe to call against an existing file.
func Open(path string, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	db := &DB{DB: conn, path: path, logger: logger}
	if err := db.ApplySchema(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := db.ApplyMigrations(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// Path returns the filesystem location of the backing file.
func (db *DB) Path() string {
	return db.path
}

// ApplySchema executes the schema statements in order. A statement failing
// because the object already exists is treated as success; any other failure
// is logged and skipped so one bad statement cannot abort the bootstrap.
func (db *DB) ApplySchema() error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			db.logger.Error("schema statement failed, skipping",
				zap.String("statement", firstLine(stmt)),
				zap.Error(err))
		}
	}
	return nil
}

// ApplyMigrations additively adds columns an older database file lacks.
// It only ever adds columns, never drops or renames, and is a no-op when
// the file is already current.
func (db *DB) ApplyMigrations() error {
	cols := map[string]map[string]bool{}

	for _, m := range migrationColumns {
		existing, ok := cols[m.table]
		if !ok {
			var err error
			existing, err = db.tableColumns(m.table)
			if err != nil {
				return fmt.Errorf("inspect table %s: %w", m.table, err)
			}
			cols[m.table] = existing
		}

		if existing[m.column] {
			continue
		}

		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.table, m.column, m.definition)
		if _, err := db.Exec(stmt); err != nil {
			// Concurrent re-apply or stale introspection; duplicates are fine.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			db.logger.Error("migration failed, skipping",
				zap.String("table", m.table),
				zap.String("column", m.column),
				zap.Error(err))
			continue
		}
		existing[m.column] = true
		db.logger.Info("added column",
			zap.String("table", m.table),
			zap.String("column", m.column))
	}

	return nil
}

// tableColumns returns the set of column names on a table.
func (db *DB) tableColumns(table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := map[string]bool{}
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
