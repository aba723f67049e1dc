package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// chdir switches into dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

// isolate points both config locations at empty temp dirs.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	for _, env := range keys {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
	chdir(t, t.TempDir())
	return xdg
}

func TestGlobalPath(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		require.Equal(t, "/custom/config/stepform/stepform.yml", GlobalPath())
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		got := GlobalPath()
		require.True(t, filepath.IsAbs(got), "expected absolute path, got %s", got)
		require.Equal(t, "stepform.yml", filepath.Base(got))
	})
}

func TestLoad_NoConfig(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.False(t, Exists())
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t)

	global := Default()
	global.DataDir = "/var/lib/stepform"
	global.LogLevel = "debug"
	global.Theme = "global-theme"
	require.NoError(t, WriteGlobal(global))

	project := Default()
	project.DataDir = ".forms"
	project.LogLevel = "debug"
	project.Theme = "global-theme"
	project.Persist = false
	require.NoError(t, WriteProject(project))

	t.Setenv("STEPFORM_LOG_LEVEL", "error")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, Exists())
	require.Equal(t, ".forms", cfg.DataDir, "project file overrides global")
	require.False(t, cfg.Persist, "project file overrides default")
	require.Equal(t, "error", cfg.LogLevel, "env overrides files")
	require.Equal(t, "global-theme", cfg.Theme)
}

func TestLoad_EnvBool(t *testing.T) {
	isolate(t)
	t.Setenv("STEPFORM_PERSIST", "false")

	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.Persist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty data dir", func(c *Config) { c.DataDir = " " }, true},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"uppercase level", func(c *Config) { c.LogLevel = "WARN" }, false},
		{"empty mcp addr", func(c *Config) { c.MCPAddr = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(ProjectPath(), []byte("log_level: [unterminated"), 0644))

	_, err := Load()
	require.Error(t, err)
}
