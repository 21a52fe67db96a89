package workspace

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tgienger/taskdesk/internal/models"
)

// DefaultWorkspaceID is the distinguished workspace that always exists and
// can never be deleted.
const DefaultWorkspaceID = "default"

const registrySchema = `
CREATE TABLE IF NOT EXISTS workspaces (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_used DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	is_active INTEGER NOT NULL DEFAULT 0,
	db_path TEXT NOT NULL
)`

// Registry is the metadata database listing all workspaces. It lives
// independently of any task database and is the single source of truth for
// which backing file is active.
type Registry struct {
	*sql.DB
}

// OpenRegistry opens (or creates) the registry database at path.
func OpenRegistry(path string) (*Registry, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open registry %s: %w", path, err)
	}
	if _, err := conn.Exec(registrySchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize registry: %w", err)
	}
	return &Registry{conn}, nil
}

const workspaceColumns = "id, name, description, created_at, last_used, is_active, db_path"

func scanWorkspace(row interface{ Scan(...any) error }) (*models.Workspace, error) {
	w := &models.Workspace{}
	err := row.Scan(&w.ID, &w.Name, &w.Description, &w.CreatedAt, &w.LastUsed, &w.IsActive, &w.DBPath)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// List returns all workspaces, the active one first.
func (r *Registry) List() ([]models.Workspace, error) {
	rows, err := r.Query("SELECT " + workspaceColumns + " FROM workspaces ORDER BY is_active DESC, created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workspaces []models.Workspace
	for rows.Next() {
		w, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		workspaces = append(workspaces, *w)
	}
	return workspaces, rows.Err()
}

// Get retrieves a workspace by id. Returns nil when absent.
func (r *Registry) Get(id string) (*models.Workspace, error) {
	w, err := scanWorkspace(r.QueryRow("SELECT "+workspaceColumns+" FROM workspaces WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// GetActive returns the active workspace, or nil when none is marked
// active (a fresh registry before bootstrap).
func (r *Registry) GetActive() (*models.Workspace, error) {
	w, err := scanWorkspace(r.QueryRow("SELECT " + workspaceColumns + " FROM workspaces WHERE is_active = 1"))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Count returns the number of registered workspaces.
func (r *Registry) Count() (int, error) {
	var n int
	err := r.QueryRow("SELECT COUNT(*) FROM workspaces").Scan(&n)
	return n, err
}

// Insert registers a workspace row.
func (r *Registry) Insert(w models.Workspace) error {
	_, err := r.Exec(`
		INSERT INTO workspaces (id, name, description, is_active, db_path)
		VALUES (?, ?, ?, ?, ?)
	`, w.ID, w.Name, w.Description, w.IsActive, w.DBPath)
	return err
}

// Activate marks the given workspace active and every other one inactive,
// as a single transaction so exactly one workspace is ever active.
func (r *Registry) Activate(id string) error {
	tx, err := r.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE workspaces SET is_active = 0"); err != nil {
		return err
	}
	result, err := tx.Exec(`
		UPDATE workspaces SET is_active = 1, last_used = CURRENT_TIMESTAMP WHERE id = ?
	`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("workspace %s not found", id)
	}

	return tx.Commit()
}

// Remove deletes a workspace row. Returns false when nothing was removed.
func (r *Registry) Remove(id string) (bool, error) {
	result, err := r.Exec("DELETE FROM workspaces WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}
