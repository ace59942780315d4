package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	"visit-route-engine/internal/domain"
	"visit-route-engine/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsMatchEngineDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	opts, err := cfg.EngineOptions()
	require.NoError(t, err)
	assert.Equal(t, services.DefaultOptions(), opts)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Provider.Enabled)
	assert.Positive(t, cfg.Server.RequestTimeout())
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "route.yaml")
	yaml := `
engine:
  travel_buffer: 5m
  profile: time_first
  workday_start: "07:30"
provider:
  enabled: true
  base_url: http://maps.internal
  api_key: file-key
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("ROUTE_PROVIDER_API_KEY", "env-key")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/routes")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Provider.APIKey)
	assert.Equal(t, "postgres://u:p@localhost/routes", cfg.Database.URL)

	opts, err := cfg.EngineOptions()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, opts.TravelBuffer)
	assert.Equal(t, services.ProfileTimeFirst, opts.Profile)
	assert.Equal(t, domain.MustClock("07:30"), opts.WorkdayStart)
}

func TestValidationRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"bad clock":        "engine:\n  lunch_window_start: noon\n",
		"unknown profile":  "engine:\n  profile: fastest\n",
		"provider no key":  "provider:\n  enabled: true\n",
		"cheap late":       "engine:\n  penalties:\n    early_per_minute: 5\n    late_per_minute: 1\n",
		"inverted workday": "engine:\n  workday_start: \"18:00\"\n  workday_end: \"08:00\"\n",
		"short write":      "server:\n  write_timeout: 1s\n",
	}
	for name, yaml := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "route.yaml")
			require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
