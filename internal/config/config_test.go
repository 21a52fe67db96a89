package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileAbsent(t *testing.T) {
	t.Setenv("TASKDESK_CONFIG", filepath.Join(t.TempDir(), "config.yaml"))
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.NotEmpty(t, cfg.DataDir)
	require.Equal(t, filepath.Join(cfg.DataDir, "workspaces"), cfg.WorkspacesDir())
	require.Equal(t, filepath.Join(cfg.DataDir, "workspaces.db"), cfg.RegistryPath())
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /srv/taskdesk\n"), 0644))
	t.Setenv("TASKDESK_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/srv/taskdesk", cfg.DataDir)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	t.Setenv("TASKDESK_CONFIG", path)

	cfg := &Config{DataDir: "/tmp/elsewhere"}
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)
	require.Equal(t, cfg.DataDir, loaded.DataDir)
}
