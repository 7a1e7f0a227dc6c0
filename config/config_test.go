package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snacktrack/tastekit/core"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.yaml", "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.Server.Addr)
	assert.Equal(t, core.DefaultColdStartThreshold, cfg.Engine.ColdStartThreshold)
	assert.Equal(t, 2*time.Second, cfg.Engine.ScorerTimeout)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  addr: ":9000"
engine:
  cold_start_threshold: 10
  scorer_timeout: 500ms
  rules:
    - "recipe.calories <= 900.0"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.Engine.ColdStartThreshold)
	assert.Equal(t, 500*time.Millisecond, cfg.Engine.ScorerTimeout)
	assert.Equal(t, []string{"recipe.calories <= 900.0"}, cfg.Engine.Rules)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TASTEKIT_DATABASE_DSN", "postgres://env/override")
	cfg, err := Load(writeFile(t, "config.yaml", "database:\n  dsn: postgres://file\n"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/override", cfg.Database.DSN)
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	_, err := Load(writeFile(t, "config.yaml", "engine:\n  cold_start_threshold: -1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cold_start_threshold")
}

func TestDietConstraintsBuiltin(t *testing.T) {
	cfg := &Config{}
	got, err := cfg.DietConstraints()
	require.NoError(t, err)
	assert.Contains(t, got, core.DietVegan)
}

func TestDietConstraintsOverrideFile(t *testing.T) {
	path := writeFile(t, "diets.yaml", `
pescatarian:
  excluded_ingredients: [meat, poultry]
  preferred_labels: [pescatarian]
`)
	cfg := &Config{}
	cfg.Engine.DietConstraintsFile = path

	got, err := cfg.DietConstraints()
	require.NoError(t, err)
	require.Contains(t, got, core.DietType("pescatarian"))
	assert.Equal(t, []string{"meat", "poultry"}, got["pescatarian"].ExcludedIngredients)
}
