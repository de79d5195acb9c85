package config

import (
	"testing"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, "Europe/Rome", cfg.Economy.Timezone)
	assert.Equal(t, 3, cfg.Economy.WeeklyExchanges)
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
}

func TestLoad_ReadsListsAndRejectsBadValues(t *testing.T) {
	t.Setenv("API_KEYS", "k1,k2")
	t.Setenv("STORE_TYPE", "memory")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Economy.APIKeys)

	t.Setenv("STORE_TYPE", "postgres")
	_, err = Load()
	assert.ErrorContains(t, err, "STORE_DSN")

	t.Setenv("STORE_TYPE", "memory")
	t.Setenv("ECONOMY_TIMEZONE", "Mars/Olympus")
	_, err = Load()
	assert.ErrorContains(t, err, "timezone")
}
