package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tgienger/taskdesk/internal/config"
	"github.com/tgienger/taskdesk/internal/db"
	"github.com/tgienger/taskdesk/internal/models"
)

func newTestManager(t *testing.T) (*Manager, *config.Config) {
	t.Helper()
	cfg := &config.Config{DataDir: t.TempDir()}
	m, err := NewManager(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m, cfg
}

// requireOneActive asserts the exactly-one-active invariant.
func requireOneActive(t *testing.T, m *Manager) *models.Workspace {
	t.Helper()
	workspaces, err := m.List()
	require.NoError(t, err)

	var active *models.Workspace
	for i := range workspaces {
		if workspaces[i].IsActive {
			require.Nil(t, active, "more than one active workspace")
			active = &workspaces[i]
		}
	}
	require.NotNil(t, active, "no active workspace")
	return active
}

func TestBootstrapCreatesDefault(t *testing.T) {
	m, _ := newTestManager(t)

	active := requireOneActive(t, m)
	require.Equal(t, DefaultWorkspaceID, active.ID)
	require.Equal(t, "Default", active.Name)
}

func TestBootstrapAdoptsLegacyDatabase(t *testing.T) {
	cfg := &config.Config{DataDir: t.TempDir()}
	require.NoError(t, os.MkdirAll(cfg.DataDir, 0755))

	legacy, err := db.Open(cfg.LegacyDBPath(), zap.NewNop())
	require.NoError(t, err)
	_, err = legacy.CreateTask(models.TaskInput{Title: "from the old days"})
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	m, err := NewManager(cfg, zap.NewNop())
	require.NoError(t, err)
	defer m.Close()

	stats, err := m.Stats(DefaultWorkspaceID)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TaskCount)
}

func TestExactlyOneActiveAcrossLifecycle(t *testing.T) {
	m, _ := newTestManager(t)

	w1, err := m.Create("work", "")
	require.NoError(t, err)
	w2, err := m.Create("home", "")
	require.NoError(t, err)
	requireOneActive(t, m)

	require.NoError(t, m.Switch(w1.ID))
	require.Equal(t, w1.ID, requireOneActive(t, m).ID)

	require.NoError(t, m.Switch(w2.ID))
	require.Equal(t, w2.ID, requireOneActive(t, m).ID)

	// The deleted workspace is never the active one afterwards.
	require.NoError(t, m.Delete(w1.ID))
	require.Equal(t, w2.ID, requireOneActive(t, m).ID)
}

func TestSwitchServesTheNewFile(t *testing.T) {
	m, _ := newTestManager(t)

	// Two tasks in the default workspace.
	store, err := m.CurrentDB()
	require.NoError(t, err)
	_, err = store.CreateTask(models.TaskInput{Title: "one"})
	require.NoError(t, err)
	_, err = store.CreateTask(models.TaskInput{Title: "two"})
	require.NoError(t, err)

	w2, err := m.Create("empty", "")
	require.NoError(t, err)
	require.NoError(t, m.Switch(w2.ID))

	// The cached connection was replaced; the new workspace is empty.
	store, err = m.CurrentDB()
	require.NoError(t, err)
	roots, err := store.GetTree()
	require.NoError(t, err)
	require.Empty(t, roots)

	_, err = store.CreateTask(models.TaskInput{Title: "only here"})
	require.NoError(t, err)

	s1, err := m.Stats(DefaultWorkspaceID)
	require.NoError(t, err)
	require.Equal(t, 2, s1.TaskCount)

	s2, err := m.Stats(w2.ID)
	require.NoError(t, err)
	require.Equal(t, 1, s2.TaskCount)
}

func TestDeleteGuards(t *testing.T) {
	m, _ := newTestManager(t)

	require.ErrorIs(t, m.Delete(DefaultWorkspaceID), ErrDefaultWorkspace)

	w, err := m.Create("temp", "")
	require.NoError(t, err)
	require.NoError(t, m.Switch(w.ID))
	require.ErrorIs(t, m.Delete(w.ID), ErrWorkspaceActive)

	require.Error(t, m.Delete("no-such-id"))
}

func TestDeleteRemovesBackingFile(t *testing.T) {
	m, _ := newTestManager(t)

	w, err := m.Create("doomed", "")
	require.NoError(t, err)
	_, err = os.Stat(w.DBPath)
	require.NoError(t, err)

	require.NoError(t, m.Delete(w.ID))

	_, err = os.Stat(w.DBPath)
	require.True(t, os.IsNotExist(err))

	got, err := m.Get(w.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStatsCountsAndMissingFile(t *testing.T) {
	m, _ := newTestManager(t)

	store, err := m.CurrentDB()
	require.NoError(t, err)
	done := models.StatusCompleted
	task, err := store.CreateTask(models.TaskInput{Title: "t1"})
	require.NoError(t, err)
	_, err = store.UpdateTask(task.ID, models.TaskUpdate{Status: &done})
	require.NoError(t, err)
	_, err = store.CreateTask(models.TaskInput{Title: "t2"})
	require.NoError(t, err)
	_, err = store.GetOrCreateTag("home", "", "")
	require.NoError(t, err)

	stats, err := m.Stats(DefaultWorkspaceID)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TaskCount)
	require.Equal(t, 1, stats.CompletedTaskCount)
	require.Equal(t, 1, stats.TagCount)

	// A missing backing file yields zeroes, not an error.
	w, err := m.Create("hollow", "")
	require.NoError(t, err)
	require.NoError(t, os.Remove(w.DBPath))

	stats, err = m.Stats(w.ID)
	require.NoError(t, err)
	require.Zero(t, stats.TaskCount)
	require.Zero(t, stats.CompletedTaskCount)
	require.Zero(t, stats.TagCount)

	_, err = m.Stats("no-such-id")
	require.Error(t, err)
}

func TestExportImportRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)

	store, err := m.CurrentDB()
	require.NoError(t, err)
	_, err = store.CreateTask(models.TaskInput{Title: "travels well"})
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, m.Export(DefaultWorkspaceID, dest))

	imported, err := m.Import(dest, "restored")
	require.NoError(t, err)
	require.Equal(t, "restored", imported.Name)
	require.NotEqual(t, DefaultWorkspaceID, imported.ID)
	require.False(t, imported.IsActive)

	stats, err := m.Stats(imported.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TaskCount)
	requireOneActive(t, m)
}

func TestImportRejectsInvalidFile(t *testing.T) {
	m, _ := newTestManager(t)

	garbage := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(garbage, []byte("not a database"), 0644))

	_, err := m.Import(garbage, "bad")
	require.Error(t, err)

	_, err = m.Import(filepath.Join(t.TempDir(), "missing.db"), "bad")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	m, cfg := newTestManager(t)

	// Opening the active workspace initializes its backing file.
	_, err := m.CurrentDB()
	require.NoError(t, err)

	require.NoError(t, m.Validate(filepath.Join(cfg.WorkspacesDir(), DefaultWorkspaceID+".db")))
	require.Error(t, m.Validate(filepath.Join(cfg.DataDir, "nope.db")))
}
