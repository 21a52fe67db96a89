package workspace

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tgienger/taskdesk/internal/config"
	"github.com/tgienger/taskdesk/internal/db"
	"github.com/tgienger/taskdesk/internal/models"
)

// Sentinel errors for workspace invariant violations. Checked before any
// mutation happens.
var (
	ErrDefaultWorkspace = fmt.Errorf("the default workspace cannot be deleted")
	ErrWorkspaceActive  = fmt.Errorf("the active workspace cannot be deleted")
)

// Manager owns the lifecycle of workspace database files and the single
// cached connection to the active one. Construct one at process start and
// pass it to everything needing current-workspace access; there is no
// global instance.
type Manager struct {
	cfg    *config.Config
	reg    *Registry
	logger *zap.Logger

	mu      sync.Mutex
	current *db.DB
}

// NewManager opens the registry and bootstraps it: on first startup the
// default workspace is synthesized and, if a legacy single-database file
// exists at the old location, it is adopted as the default's backing file
// (best-effort; a failed copy does not abort startup).
func NewManager(cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(cfg.WorkspacesDir(), 0755); err != nil {
		return nil, fmt.Errorf("create workspaces directory: %w", err)
	}

	reg, err := OpenRegistry(cfg.RegistryPath())
	if err != nil {
		return nil, err
	}

	m := &Manager{cfg: cfg, reg: reg, logger: logger}
	if err := m.bootstrap(); err != nil {
		reg.Close()
		return nil, err
	}
	return m, nil
}

func (m *Manager) bootstrap() error {
	n, err := m.reg.Count()
	if err != nil {
		return err
	}
	if n == 0 {
		dbPath := m.workspacePath(DefaultWorkspaceID)
		err := m.reg.Insert(models.Workspace{
			ID:       DefaultWorkspaceID,
			Name:     "Default",
			IsActive: true,
			DBPath:   dbPath,
		})
		if err != nil {
			return fmt.Errorf("create default workspace: %w", err)
		}
		m.logger.Info("created default workspace", zap.String("path", dbPath))

		// One-time legacy migration: adopt the old single-database file.
		legacy := m.cfg.LegacyDBPath()
		if _, statErr := os.Stat(legacy); statErr == nil {
			if copyErr := copyFile(legacy, dbPath); copyErr != nil {
				m.logger.Warn("legacy database migration failed",
					zap.String("source", legacy), zap.Error(copyErr))
			} else {
				m.logger.Info("migrated legacy database", zap.String("source", legacy))
			}
		}
		return nil
	}

	// Repair a registry left with no active row.
	active, err := m.reg.GetActive()
	if err != nil {
		return err
	}
	if active == nil {
		return m.reg.Activate(DefaultWorkspaceID)
	}
	return nil
}

func (m *Manager) workspacePath(id string) string {
	return filepath.Join(m.cfg.WorkspacesDir(), id+".db")
}

// List returns all registered workspaces.
func (m *Manager) List() ([]models.Workspace, error) {
	return m.reg.List()
}

// Get returns a workspace by id, or nil when absent.
func (m *Manager) Get(id string) (*models.Workspace, error) {
	return m.reg.Get(id)
}

// Active returns the active workspace.
func (m *Manager) Active() (*models.Workspace, error) {
	return m.reg.GetActive()
}

// CurrentDB returns the connection to the active workspace's database,
// opening it lazily (schema and migrations applied on open) and caching it
// until a switch or Close. The returned handle is connection-scoped: after
// Switch it must not be reused.
func (m *Manager) CurrentDB() (*db.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return m.current, nil
	}

	active, err := m.reg.GetActive()
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, fmt.Errorf("no active workspace")
	}

	conn, err := db.Open(active.DBPath, m.logger)
	if err != nil {
		return nil, err
	}
	m.current = conn
	m.logger.Info("opened workspace database",
		zap.String("workspace", active.ID), zap.String("path", active.DBPath))
	return conn, nil
}

// Switch activates the target workspace, closing the previous connection
// before the next CurrentDB call opens the new file. Any task store handle
// obtained earlier is invalid after a switch.
func (m *Manager) Switch(id string) error {
	target, err := m.reg.Get(id)
	if err != nil {
		return err
	}
	if target == nil {
		return fmt.Errorf("workspace %s not found", id)
	}

	if err := m.reg.Activate(id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		if err := m.current.Close(); err != nil {
			m.logger.Warn("closing previous workspace connection", zap.Error(err))
		}
		m.current = nil
	}

	m.logger.Info("switched workspace", zap.String("workspace", id))
	return nil
}

// Create registers a new workspace and initializes its backing file from
// the schema. The new workspace is not activated.
func (m *Manager) Create(name, description string) (*models.Workspace, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("workspace name is required")
	}

	id := uuid.NewString()
	dbPath := m.workspacePath(id)

	err := m.reg.Insert(models.Workspace{
		ID:          id,
		Name:        name,
		Description: description,
		DBPath:      dbPath,
	})
	if err != nil {
		return nil, err
	}

	// Initialize the file up front so stats and export work immediately.
	conn, err := db.Open(dbPath, m.logger)
	if err != nil {
		m.reg.Remove(id)
		return nil, fmt.Errorf("initialize workspace database: %w", err)
	}
	conn.Close()

	m.logger.Info("created workspace", zap.String("workspace", id), zap.String("name", name))
	return m.reg.Get(id)
}

// Delete removes a workspace's registry row and backing file. Refused for
// the default workspace and for the currently active one.
func (m *Manager) Delete(id string) error {
	if id == DefaultWorkspaceID {
		return ErrDefaultWorkspace
	}
	active, err := m.reg.GetActive()
	if err != nil {
		return err
	}
	if active != nil && active.ID == id {
		return ErrWorkspaceActive
	}

	target, err := m.reg.Get(id)
	if err != nil {
		return err
	}
	if target == nil {
		return fmt.Errorf("workspace %s not found", id)
	}

	if _, err := m.reg.Remove(id); err != nil {
		return err
	}
	if err := os.Remove(target.DBPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove workspace file: %w", err)
	}

	m.logger.Info("deleted workspace", zap.String("workspace", id))
	return nil
}

// Stats returns advisory counts for a workspace, not necessarily the
// active one, over a short-lived independent connection. A missing backing
// file or missing tables yield zeroes rather than an error.
func (m *Manager) Stats(id string) (*models.WorkspaceStats, error) {
	target, err := m.reg.Get(id)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("workspace %s not found", id)
	}

	stats := &models.WorkspaceStats{}
	if _, err := os.Stat(target.DBPath); err != nil {
		return stats, nil
	}

	conn, err := sql.Open("sqlite3", target.DBPath)
	if err != nil {
		return stats, nil
	}
	defer conn.Close()

	if tableExists(conn, "tasks") {
		conn.QueryRow("SELECT COUNT(*) FROM tasks").Scan(&stats.TaskCount)
		conn.QueryRow("SELECT COUNT(*) FROM tasks WHERE status = ?", models.StatusCompleted).
			Scan(&stats.CompletedTaskCount)
	}
	if tableExists(conn, "tags") {
		conn.QueryRow("SELECT COUNT(*) FROM tags").Scan(&stats.TagCount)
	}

	return stats, nil
}

// Export byte-copies a workspace's backing file to destPath.
func (m *Manager) Export(id, destPath string) error {
	target, err := m.reg.Get(id)
	if err != nil {
		return err
	}
	if target == nil {
		return fmt.Errorf("workspace %s not found", id)
	}
	if _, err := os.Stat(target.DBPath); err != nil {
		return fmt.Errorf("workspace %s has no backing file", id)
	}
	return copyFile(target.DBPath, destPath)
}

// Import validates an external database file, copies it into the workspace
// directory under a fresh id, registers it and applies migrations so older
// exports become forward-compatible. The imported workspace is not
// activated.
func (m *Manager) Import(sourcePath, name string) (*models.Workspace, error) {
	if err := m.Validate(sourcePath); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	}

	id := uuid.NewString()
	dbPath := m.workspacePath(id)
	if err := copyFile(sourcePath, dbPath); err != nil {
		return nil, fmt.Errorf("copy database file: %w", err)
	}

	// Bring the imported schema up to date.
	conn, err := db.Open(dbPath, m.logger)
	if err != nil {
		os.Remove(dbPath)
		return nil, fmt.Errorf("migrate imported database: %w", err)
	}
	conn.Close()

	err = m.reg.Insert(models.Workspace{
		ID:     id,
		Name:   name,
		DBPath: dbPath,
	})
	if err != nil {
		os.Remove(dbPath)
		return nil, err
	}

	m.logger.Info("imported workspace",
		zap.String("workspace", id), zap.String("source", sourcePath))
	return m.reg.Get(id)
}

// Validate checks that path is a readable SQLite database containing a
// tasks table.
func (m *Manager) Validate(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("database file not found: %s", path)
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("not a readable database: %w", err)
	}
	defer conn.Close()

	if !tableExists(conn, "tasks") {
		return fmt.Errorf("not a task database: %s has no tasks table", path)
	}
	return nil
}

// Close releases the cached connection and the registry.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.Close()
		m.current = nil
	}
	return m.reg.Close()
}

func tableExists(conn *sql.DB, name string) bool {
	var got string
	err := conn.QueryRow(`
		SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?
	`, name).Scan(&got)
	return err == nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
