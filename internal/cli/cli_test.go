package cli

import (
	"bytes"
	"testing"
	"time"

	"cardvault-api/internal/app"
	"cardvault-api/internal/config"
	"cardvault-api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBuilder(t *testing.T) Builder {
	t.Helper()
	cfg := &config.Config{
		Cache: config.CacheConfig{Type: "memory", TTL: time.Minute},
		Store: config.StoreConfig{Type: "memory"},
		Economy: config.EconomyConfig{
			Timezone:        "Europe/Rome",
			CatalogFile:     "../../configs/catalog.yaml",
			LedgerCacheTTL:  time.Minute,
			TradeTTL:        24 * time.Hour,
			WeeklyExchanges: 3,
			DailyDraws:      1,
			SacrificeReward: 3,
		},
	}
	store := repository.NewMemoryTableStore()
	return func() (*app.App, error) {
		return app.Assemble(cfg, store)
	}
}

func run(t *testing.T, build Builder, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommandWith(build)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestGrantBonus_AccumulatesAcrossRuns(t *testing.T) {
	build := testBuilder(t)

	out, err := run(t, build, "grant-bonus", "--user", "u1", "--credits", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "u1 now has 2 bonus credit(s)")

	out, err = run(t, build, "grant-bonus", "--user", "u1", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"bonus_credits": 3`)
}

func TestGrantBonus_RejectsBadInput(t *testing.T) {
	build := testBuilder(t)

	_, err := run(t, build, "grant-bonus", "--credits", "2")
	require.Error(t, err)

	_, err = run(t, build, "grant-bonus", "--user", "u1", "--credits", "0")
	require.Error(t, err)
}

func TestStats_ListsTables(t *testing.T) {
	build := testBuilder(t)
	_, err := run(t, build, "grant-bonus", "--user", "u1")
	require.NoError(t, err)

	out, err := run(t, build, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "catalog items:")
	assert.Contains(t, out, "tables:")
	assert.Contains(t, out, "counters")
}

func TestBoardSweepAndDiscoveries_OnEmptyEconomy(t *testing.T) {
	build := testBuilder(t)

	out, err := run(t, build, "board")
	require.NoError(t, err)
	assert.Contains(t, out, "board is empty")

	out, err = run(t, build, "sweep-trades")
	require.NoError(t, err)
	assert.Contains(t, out, "expired 0 trade request(s)")

	out, err = run(t, build, "discoveries", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "DISCOVERER")
}

func TestRoot_RejectsUnknownFormat(t *testing.T) {
	_, err := run(t, testBuilder(t), "stats", "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
