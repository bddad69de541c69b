// Package persistence provides SQLite-backed recording of simulation
// output: daily price samples, country ledgers and run metadata. The
// scheduler writes between ticks; readers query offline.
package persistence

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/grandsim/internal/country"
	"github.com/talgya/grandsim/internal/engine"
	"github.com/talgya/grandsim/internal/market"
	"github.com/talgya/grandsim/internal/types"
)

// DB wraps a SQLite connection for simulation recording.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS price_samples (
		day INTEGER NOT NULL,
		good TEXT NOT NULL,
		price INTEGER NOT NULL,
		demand INTEGER NOT NULL,
		supply INTEGER NOT NULL,
		traded INTEGER NOT NULL,
		PRIMARY KEY (day, good)
	);

	CREATE TABLE IF NOT EXISTS country_ledgers (
		day INTEGER NOT NULL,
		tag TEXT NOT NULL,
		treasury INTEGER NOT NULL,
		tax_collected INTEGER NOT NULL,
		population INTEGER NOT NULL,
		PRIMARY KEY (day, tag)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// PriceRow is one persisted price sample.
type PriceRow struct {
	Day    int64  `db:"day"`
	Good   string `db:"good"`
	Price  int64  `db:"price"`
	Demand int64  `db:"demand"`
	Supply int64  `db:"supply"`
	Traded int64  `db:"traded"`
}

// LedgerRow is one persisted country ledger line.
type LedgerRow struct {
	Day          int64  `db:"day"`
	Tag          string `db:"tag"`
	Treasury     int64  `db:"treasury"`
	TaxCollected int64  `db:"tax_collected"`
	Population   int64  `db:"population"`
}

// RecordDay stores the day's price samples and country ledgers in one
// transaction. Fixed-point values persist as their raw integer form so
// reloads are bit-exact.
func (db *DB) RecordDay(date types.Date, m *market.Manager, countries []*country.Instance) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for i := 0; i < m.Len(); i++ {
		g := m.Good(types.GoodIndex(i))
		if !g.IsAvailable() {
			continue
		}
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO price_samples (day, good, price, demand, supply, traded)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			int64(date), g.Definition().Identifier,
			int64(g.Price()), int64(g.TotalDemandYesterday()),
			int64(g.TotalSupplyYesterday()), int64(g.QuantityTradedYesterday()),
		)
		if err != nil {
			return fmt.Errorf("insert price sample: %w", err)
		}
	}

	for _, c := range countries {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO country_ledgers (day, tag, treasury, tax_collected, population)
			 VALUES (?, ?, ?, ?, ?)`,
			int64(date), c.Tag(),
			int64(c.Treasury()), int64(c.TaxCollectedYesterday()), c.TotalPopulation(),
		)
		if err != nil {
			return fmt.Errorf("insert country ledger: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// PriceHistory loads the persisted samples for one good, day ascending.
func (db *DB) PriceHistory(good string) ([]PriceRow, error) {
	var rows []PriceRow
	err := db.conn.Select(&rows,
		`SELECT day, good, price, demand, supply, traded
		 FROM price_samples WHERE good = ? ORDER BY day`, good)
	if err != nil {
		return nil, fmt.Errorf("load price history: %w", err)
	}
	return rows, nil
}

// CountryLedger loads the persisted ledger for one tag, day ascending.
func (db *DB) CountryLedger(tag string) ([]LedgerRow, error) {
	var rows []LedgerRow
	err := db.conn.Select(&rows,
		`SELECT day, tag, treasury, tax_collected, population
		 FROM country_ledgers WHERE tag = ? ORDER BY day`, tag)
	if err != nil {
		return nil, fmt.Errorf("load country ledger: %w", err)
	}
	return rows, nil
}

// SetMeta stores a run metadata value.
func (db *DB) SetMeta(key, value string) error {
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value)
	return err
}

// GetMeta loads a run metadata value; ok is false when absent.
func (db *DB) GetMeta(key string) (string, bool) {
	var value string
	err := db.conn.Get(&value, `SELECT value FROM meta WHERE key = ?`, key)
	if err != nil {
		return "", false
	}
	return value, true
}

// RecordTick records a finished day from the scheduler goroutine, between
// ticks. Failures are logged, never fatal to the simulation.
func (db *DB) RecordTick(sim *engine.Simulation, d engine.Digest) {
	if err := db.RecordDay(types.Date(d.Day), sim.Market, sim.Countries); err != nil {
		slog.Error("failed to record day", "day", d.Date, "error", err)
	}
	if err := db.SetMeta("last_day", d.Date); err != nil {
		slog.Error("failed to record meta", "error", err)
	}
}
