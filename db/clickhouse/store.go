// Package clickhouse persists rate snapshots: point-in-time captures of the
// exchange and jurisdiction rates each quote was computed from. Columnar
// storage fits the workload: high-cardinality rate keys, append-heavy writes,
// time-travel reads for quote reproduction.
package clickhouse

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"landed-cost/internal/engine"
	"landed-cost/pkg/platform"
)

// StoredSnapshot is one persisted rate capture.
type StoredSnapshot struct {
	ID           uuid.UUID       `ch:"id"`
	RateKey      string          `ch:"rate_key"`
	Jurisdiction string          `ch:"jurisdiction"`
	ItemClass    string          `ch:"item_class"`
	Rate         decimal.Decimal `ch:"rate"`
	CustomsRate  decimal.Decimal `ch:"customs_rate"`
	Source       string          `ch:"source"`
	Hash         string          `ch:"hash"`
	CapturedAt   time.Time       `ch:"captured_at"`
	CreatedAt    time.Time       `ch:"created_at"`
}

// Config holds ClickHouse connection configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Debug    bool
}

// DefaultConfig returns default development configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     9000,
		Database: "landedcost",
		Username: "default",
		Password: "",
		Debug:    false,
	}
}

// ConfigFromEnv reads connection settings from CLICKHOUSE_* variables.
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()
	cfg.Host = platform.GetEnv("CLICKHOUSE_HOST", cfg.Host)
	cfg.Port = platform.GetEnvInt("CLICKHOUSE_PORT", cfg.Port)
	cfg.Database = platform.GetEnv("CLICKHOUSE_DATABASE", cfg.Database)
	cfg.Username = platform.GetEnv("CLICKHOUSE_USERNAME", cfg.Username)
	cfg.Password = platform.GetEnv("CLICKHOUSE_PASSWORD", cfg.Password)
	cfg.Debug = platform.GetEnvBool("CLICKHOUSE_DEBUG", cfg.Debug)
	return cfg
}

// Store implements engine.SnapshotRecorder on ClickHouse.
type Store struct {
	conn clickhouse.Conn
	cfg  *Config
}

var _ engine.SnapshotRecorder = (*Store)(nil)

// NewStore opens a connection to the snapshot store.
func NewStore(cfg *Config) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	return &Store{conn: conn, cfg: cfg}, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Record persists one rate snapshot and returns its ID. Identical captures
// (same key and rates) are deduplicated by content hash: quotes computed from
// the same rate data share one snapshot row.
func (s *Store) Record(ctx context.Context, snap engine.RateSnapshot) (uuid.UUID, error) {
	hash := snapshotHash(snap)

	if existing, err := s.findByHash(ctx, snap.Key, hash); err != nil {
		return uuid.Nil, err
	} else if existing != uuid.Nil {
		return existing, nil
	}

	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}
	query := `
		INSERT INTO rate_snapshots (
			id, rate_key, jurisdiction, item_class, rate, customs_rate,
			source, hash, captured_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	err := s.conn.Exec(ctx, query,
		snap.ID,
		snap.Key,
		snap.Jurisdiction,
		snap.ItemClass,
		snap.Rate,
		snap.CustomsRate,
		string(snap.Source),
		hash,
		snap.CapturedAt,
		time.Now(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert rate snapshot: %w", err)
	}
	return snap.ID, nil
}

// findByHash looks up an existing snapshot with identical content.
func (s *Store) findByHash(ctx context.Context, rateKey, hash string) (uuid.UUID, error) {
	query := `
		SELECT id FROM rate_snapshots FINAL
		WHERE rate_key = ? AND hash = ? AND _deleted = 0
		LIMIT 1
	`
	row := s.conn.QueryRow(ctx, query, rateKey, hash)

	var id uuid.UUID
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return uuid.Nil, nil
		}
		return uuid.Nil, fmt.Errorf("failed to find snapshot by hash: %w", err)
	}
	return id, nil
}

// GetSnapshot retrieves a snapshot by ID. Returns nil when not found.
func (s *Store) GetSnapshot(ctx context.Context, id uuid.UUID) (*StoredSnapshot, error) {
	query := `
		SELECT id, rate_key, jurisdiction, item_class, rate, customs_rate,
			   source, hash, captured_at, created_at
		FROM rate_snapshots FINAL
		WHERE id = ? AND _deleted = 0
	`
	row := s.conn.QueryRow(ctx, query, id)

	var snap StoredSnapshot
	err := row.Scan(
		&snap.ID, &snap.RateKey, &snap.Jurisdiction, &snap.ItemClass,
		&snap.Rate, &snap.CustomsRate, &snap.Source, &snap.Hash,
		&snap.CapturedAt, &snap.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return &snap, nil
}

// ListSnapshots lists the capture history for one rate key, newest first.
func (s *Store) ListSnapshots(ctx context.Context, rateKey string, limit int) ([]*StoredSnapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, rate_key, jurisdiction, item_class, rate, customs_rate,
			   source, hash, captured_at, created_at
		FROM rate_snapshots FINAL
		WHERE rate_key = ? AND _deleted = 0
		ORDER BY captured_at DESC
		LIMIT ?
	`
	rows, err := s.conn.Query(ctx, query, rateKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*StoredSnapshot
	for rows.Next() {
		var snap StoredSnapshot
		if err := rows.Scan(
			&snap.ID, &snap.RateKey, &snap.Jurisdiction, &snap.ItemClass,
			&snap.Rate, &snap.CustomsRate, &snap.Source, &snap.Hash,
			&snap.CapturedAt, &snap.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, &snap)
	}
	return snaps, nil
}

// CountSnapshots returns how many captures exist for one rate key.
func (s *Store) CountSnapshots(ctx context.Context, rateKey string) (int, error) {
	query := `SELECT count() FROM rate_snapshots FINAL WHERE rate_key = ? AND _deleted = 0`
	row := s.conn.QueryRow(ctx, query, rateKey)
	var count uint64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return int(count), nil
}

// snapshotHash is the content hash used for dedupe: key plus both rates.
// Captured-at is deliberately excluded so re-captures of unchanged rates
// collapse into one row.
func snapshotHash(snap engine.RateSnapshot) string {
	payload := snap.Key + "|" + snap.Rate.String() + "|" + snap.CustomsRate.String() + "|" + string(snap.Source)
	h := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(h[:])
}
