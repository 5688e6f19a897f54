// Package postgres loads the regional fee matrix from Postgres. The matrix
// is operator-maintained reference data (handling, insurance, gateway and
// shipping pricing per destination); the engine falls back to the built-in
// matrix for any tier the database doesn't cover.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"landed-cost/internal/fees"
	"landed-cost/pkg/region"
)

// Store reads fee schedule records.
type Store struct {
	db *sql.DB
}

// NewStore opens a connection pool against dsn (postgres:// URL or key=value
// form) and verifies connectivity.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

const feeColumns = `
	handling_fixed, handling_pct, handling_cap,
	insurance_rate, gateway_fee_rate, gateway_fee_fixed,
	base_shipping, cost_per_kg, free_shipping_threshold
`

// LoadResolver reads the whole matrix and builds a fee resolver over it.
// Tiers absent from the database keep the built-in defaults.
func (s *Store) LoadResolver(ctx context.Context) (*fees.Resolver, error) {
	countries, err := s.loadCountries(ctx)
	if err != nil {
		return nil, err
	}
	continents, err := s.loadContinents(ctx)
	if err != nil {
		return nil, err
	}
	global, err := s.loadGlobal(ctx)
	if err != nil {
		return nil, err
	}
	return fees.NewResolverWithMatrix(countries, continents, global), nil
}

func (s *Store) loadCountries(ctx context.Context) (map[string]fees.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT country_code, `+feeColumns+` FROM fee_schedules_country`)
	if err != nil {
		return nil, fmt.Errorf("failed to query country fee schedules: %w", err)
	}
	defer rows.Close()

	out := make(map[string]fees.Record)
	for rows.Next() {
		var code string
		rec, err := scanRecord(rows, &code)
		if err != nil {
			return nil, err
		}
		out[code] = rec
	}
	return out, rows.Err()
}

func (s *Store) loadContinents(ctx context.Context) (map[region.Continent]fees.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT continent, `+feeColumns+` FROM fee_schedules_continent`)
	if err != nil {
		return nil, fmt.Errorf("failed to query continent fee schedules: %w", err)
	}
	defer rows.Close()

	out := make(map[region.Continent]fees.Record)
	for rows.Next() {
		var continent string
		rec, err := scanRecord(rows, &continent)
		if err != nil {
			return nil, err
		}
		out[region.Continent(continent)] = rec
	}
	return out, rows.Err()
}

func (s *Store) loadGlobal(ctx context.Context) (*fees.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT 'global', `+feeColumns+` FROM fee_schedules_global LIMIT 1`)
	var label string
	rec, err := scanRecord(row, &label)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner, key *string) (fees.Record, error) {
	var (
		rec          fees.Record
		handlingCap  sql.NullString
		freeShipping sql.NullString
		fixed, pct, insurance, gwRate, gwFixed, baseShip, perKg string
	)
	err := row.Scan(key, &fixed, &pct, &handlingCap, &insurance, &gwRate, &gwFixed, &baseShip, &perKg, &freeShipping)
	if err != nil {
		return fees.Record{}, err
	}

	if rec.HandlingFixed, err = decimal.NewFromString(fixed); err != nil {
		return fees.Record{}, fmt.Errorf("bad handling_fixed %q: %w", fixed, err)
	}
	if rec.HandlingPct, err = decimal.NewFromString(pct); err != nil {
		return fees.Record{}, fmt.Errorf("bad handling_pct %q: %w", pct, err)
	}
	if rec.InsuranceRate, err = decimal.NewFromString(insurance); err != nil {
		return fees.Record{}, fmt.Errorf("bad insurance_rate %q: %w", insurance, err)
	}
	if rec.GatewayFeeRate, err = decimal.NewFromString(gwRate); err != nil {
		return fees.Record{}, fmt.Errorf("bad gateway_fee_rate %q: %w", gwRate, err)
	}
	if rec.GatewayFeeFixed, err = decimal.NewFromString(gwFixed); err != nil {
		return fees.Record{}, fmt.Errorf("bad gateway_fee_fixed %q: %w", gwFixed, err)
	}
	if rec.BaseShipping, err = decimal.NewFromString(baseShip); err != nil {
		return fees.Record{}, fmt.Errorf("bad base_shipping %q: %w", baseShip, err)
	}
	if rec.CostPerKg, err = decimal.NewFromString(perKg); err != nil {
		return fees.Record{}, fmt.Errorf("bad cost_per_kg %q: %w", perKg, err)
	}
	if handlingCap.Valid {
		capped, err := decimal.NewFromString(handlingCap.String)
		if err != nil {
			return fees.Record{}, fmt.Errorf("bad handling_cap %q: %w", handlingCap.String, err)
		}
		rec.HandlingCap = &capped
	}
	if freeShipping.Valid {
		threshold, err := decimal.NewFromString(freeShipping.String)
		if err != nil {
			return fees.Record{}, fmt.Errorf("bad free_shipping_threshold %q: %w", freeShipping.String, err)
		}
		rec.FreeShippingThreshold = &threshold
	}
	return rec, nil
}
