package configuration

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfiguration(t *testing.T) {
	t.Run("configuration_struct_exists", func(t *testing.T) {
		require.NotNil(t, &C, "Configuration should not be nil")
		require.NotNil(t, &C.App, "App configuration should exist")
		require.NotNil(t, &C.Database, "Database configuration should exist")
	})

	t.Run("scheduler_defaults_applied", func(t *testing.T) {
		cfg := Config{}
		initScheduler(&cfg)

		require.Equal(t, 15, cfg.Scheduler.SweepIntervalSeconds)
		require.Contains(t, cfg.Scheduler.Platforms, "twitter")
		require.Contains(t, cfg.Scheduler.Platforms, "youtube")
	})

	t.Run("app_defaults_applied", func(t *testing.T) {
		cfg := Config{}
		initApp(&cfg)

		require.Equal(t, 10001, cfg.App.Port)
	})
}
