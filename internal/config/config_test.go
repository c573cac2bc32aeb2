package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semqa/internal/domain"
	"semqa/internal/scene"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv(DefaultAPIURLEnv, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.Server.BaseURL)
	assert.True(t, cfg.Server.UseGRPC)
	assert.Equal(t, domain.DefaultModel, cfg.Search.Filters.EmbeddingModel)
	assert.Equal(t, 2000, cfg.Search.Filters.YearFrom)
	assert.Equal(t, 2024, cfg.Search.Filters.YearTo)
	assert.Equal(t, scene.DefaultParams(), cfg.Scene.Params)
	assert.Equal(t, 64, cfg.Scene.PreviewDims)
}

func TestLoadAppliesDefaultsAndClamps(t *testing.T) {
	t.Setenv(DefaultAPIURLEnv, "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  base_url: https://research.example.org
  timeout_secs: 0
search:
  filters:
    countries: [Germany]
scene:
  point_size: 9
  color_scheme: green
  fps: 0
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://research.example.org", cfg.Server.BaseURL)
	assert.Equal(t, 30, cfg.Server.TimeoutSecs)
	assert.Equal(t, []string{"Germany"}, cfg.Search.Filters.Countries)
	assert.Equal(t, domain.DefaultModel, cfg.Search.Filters.EmbeddingModel)
	assert.Equal(t, scene.MaxPointSize, cfg.Scene.PointSize)
	assert.Equal(t, scene.Green, cfg.Scene.ColorScheme)
	assert.Equal(t, scene.DefaultFPS, cfg.Scene.FPS)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesBaseURL(t *testing.T) {
	t.Setenv(DefaultAPIURLEnv, "http://override:9000")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://override:9000", cfg.Server.BaseURL)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(DefaultAPIURLEnv, "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Scene.ColorScheme = scene.Blue
	cfg.Search.UseMultiQuery = true
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestTransportConversion(t *testing.T) {
	cfg := Default()
	tc := cfg.Transport()
	assert.Equal(t, 30*time.Second, tc.Timeout)
	assert.Equal(t, 250*time.Millisecond, tc.Resilience.InitialBackoff)
	assert.Equal(t, 2, tc.Resilience.MaxAttempts)
	assert.True(t, tc.Resilience.BreakerEnabled)
	assert.Equal(t, 30*time.Second, tc.Resilience.BreakerOpenTimeout)

	assert.Equal(t, 64, cfg.Projector().PreviewDims)
}
