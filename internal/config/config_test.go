package config

import (
	"testing"
	"time"

	"gridsheet/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"API_BASE_URL", "API_TIMEOUT", "SAVE_MODE", "PORT", "FORMULAS_ENABLED", "SPARE_ROWS", "SESSION_IDLE_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, SaveModeBulk, cfg.API.SaveMode)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Server.SessionIdle)
	assert.True(t, cfg.Sheet.FormulasEnabled)
	assert.Equal(t, 1, cfg.Sheet.SpareRows)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://sheets.example.com/api/")
	t.Setenv("API_TIMEOUT", "5s")
	t.Setenv("SAVE_MODE", "ROW")
	t.Setenv("FORMULAS_ENABLED", "false")
	t.Setenv("SPARE_ROWS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://sheets.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, SaveModeRow, cfg.API.SaveMode)
	assert.False(t, cfg.Sheet.FormulasEnabled)
	assert.Equal(t, 3, cfg.Sheet.SpareRows)
}

func TestValidateAfterOverride(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("SAVE_MODE", "")

	cfg, err := Load()
	require.NoError(t, err)

	cfg.API.BaseURL = "https://other.example.com/api"
	assert.NoError(t, cfg.Validate())

	cfg.API.BaseURL = "other"
	assert.Error(t, cfg.Validate())

	assert.True(t, SaveModeRow.Valid())
	assert.False(t, SaveMode("stream").Valid())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "relative base url", key: "API_BASE_URL", value: "/api"},
		{name: "unknown save mode", key: "SAVE_MODE", value: "stream"},
		{name: "no spare rows", key: "SPARE_ROWS", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
