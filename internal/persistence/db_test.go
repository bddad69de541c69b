package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/grandsim/internal/scenario"
	"github.com/talgya/grandsim/internal/types"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "run.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMetaRoundTrip(t *testing.T) {
	db := openTestDB(t)
	_, ok := db.GetMeta("last_day")
	assert.False(t, ok)

	require.NoError(t, db.SetMeta("last_day", "1836.3.4"))
	v, ok := db.GetMeta("last_day")
	require.True(t, ok)
	assert.Equal(t, "1836.3.4", v)

	require.NoError(t, db.SetMeta("last_day", "1836.3.5"))
	v, _ = db.GetMeta("last_day")
	assert.Equal(t, "1836.3.5", v)
}

func TestRecordDayPersistsBitExactPrices(t *testing.T) {
	db := openTestDB(t)
	sim, es, err := scenario.Generate(scenario.DefaultGenConfig()).Build()
	require.NoError(t, err)
	require.True(t, es.IsOK())

	for day := 0; day < 3; day++ {
		d := sim.Tick()
		db.RecordTick(sim, d)
	}

	rows, err := db.PriceHistory("grain")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	grain, _ := sim.Market.Catalogue().Lookup("grain")
	assert.Equal(t, int64(sim.Market.Good(grain).Price()), rows[2].Price,
		"persisted raw value matches the in-memory fixed point exactly")
	assert.Equal(t, int64(types.NewDate(1836, 1, 2)), rows[0].Day)

	ledger, err := db.CountryLedger("ALB")
	require.NoError(t, err)
	require.Len(t, ledger, 3)
	assert.Greater(t, ledger[2].Population, int64(0))
}
