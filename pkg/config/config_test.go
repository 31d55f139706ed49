package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveJobs(t *testing.T) {
	tests := []struct {
		name     string
		jobs     int
		failFast bool
		want     int
	}{
		{name: "default passes through", jobs: 4, want: 4},
		{name: "zero clamps to one", jobs: 0, want: 1},
		{name: "negative clamps to one", jobs: -3, want: 1},
		{name: "above max clamps to max", jobs: 100, want: MaxJobs},
		{name: "fail fast forces one worker", jobs: 8, failFast: true, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Jobs: tt.jobs}
			assert.Equal(t, tt.want, cfg.EffectiveJobs(tt.failFast))
		})
	}
}

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultJobs, cfg.Jobs)
	assert.Equal(t, "main", cfg.DefaultRef)
	assert.Equal(t, "python3", cfg.Python)
	assert.False(t, cfg.NoBackup)
	assert.False(t, cfg.AllowManualMap)
	assert.NotEmpty(t, cfg.Home, "home resolves even without configuration")
}

func TestLoadFromConfigFile(t *testing.T) {
	t.Run("toml", func(t *testing.T) {
		dir := t.TempDir()
		content := "home = \"/srv/skillsync\"\njobs = 2\nallow_manual_map = true\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644))

		cfg, err := LoadFrom(dir)
		require.NoError(t, err)
		assert.Equal(t, "/srv/skillsync", cfg.Home)
		assert.Equal(t, 2, cfg.Jobs)
		assert.True(t, cfg.AllowManualMap)
		assert.Equal(t, "main", cfg.DefaultRef, "unset keys keep defaults")
	})

	t.Run("yaml", func(t *testing.T) {
		dir := t.TempDir()
		content := "jobs: 6\npython: python3.12\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))

		cfg, err := LoadFrom(dir)
		require.NoError(t, err)
		assert.Equal(t, 6, cfg.Jobs)
		assert.Equal(t, "python3.12", cfg.Python)
	})

	t.Run("toml wins over yaml", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("jobs = 3\n"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("jobs: 7\n"), 0644))

		cfg, err := LoadFrom(dir)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Jobs)
	})
}

func TestLoadFromEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("jobs = 2\n"), 0644))

	t.Setenv("SKILLSYNC_JOBS", "5")
	t.Setenv("SKILLSYNC_NO_BACKUP", "true")
	t.Setenv("SKILLSYNC_DEFAULT_REF", "release")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Jobs, "environment wins over the config file")
	assert.True(t, cfg.NoBackup)
	assert.Equal(t, "release", cfg.DefaultRef)
}

func TestRender(t *testing.T) {
	cfg := &Config{Home: "/srv/skillsync", Jobs: 4, DefaultRef: "main", Python: "python3"}
	out, err := Render(cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "home = '/srv/skillsync'")
	assert.Contains(t, out, "jobs = 4")
}
