package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardar-lang/ardar/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, config.Default().Validate())
}

func TestValidateRejectsNonPositiveTunables(t *testing.T) {
	cfg := config.Default()
	cfg.MaxCallDepth = 0
	require.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.MaxRegisters = -1
	require.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.QueueCapacity = 0
	require.Error(t, cfg.Validate())
}
