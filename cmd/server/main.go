// Package main provides the landed-cost quote API server.
package main

import (
	"context"
	"time"

	"landed-cost/api"
	"landed-cost/db/clickhouse"
	"landed-cost/db/postgres"
	"landed-cost/internal/engine"
	"landed-cost/internal/fees"
	"landed-cost/pkg/platform"
)

func main() {
	log := platform.NewLogger("quote-api")
	cfg := engine.ConfigFromEnv()

	// Fee matrix from Postgres when configured; built-in matrix otherwise.
	var feeResolver *fees.Resolver
	if dsn := platform.GetEnv("FEES_DSN", ""); dsn != "" {
		store, err := postgres.NewStore(context.Background(), dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to fee schedule store")
		}
		defer store.Close()

		loadCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		feeResolver, err = store.LoadResolver(loadCtx)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load fee matrix")
		}
		log.Info().Msg("fee matrix loaded from postgres")
	}

	// Rate snapshot audit store is optional: quotes work without it, they
	// just lose snapshot IDs in their audit trail.
	var snapshots *clickhouse.Store
	if platform.GetEnvBool("CLICKHOUSE_ENABLED", false) {
		store, err := clickhouse.NewStore(clickhouse.ConfigFromEnv())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to snapshot store")
		}
		defer store.Close()
		snapshots = store
		log.Info().Msg("rate snapshot store connected")
	}

	var recorder engine.SnapshotRecorder
	if snapshots != nil {
		recorder = snapshots
	}
	orch := engine.Build(cfg, log, feeResolver, recorder)

	server := api.NewServer(orch, snapshots, nil, log)
	if err := server.StartWithGracefulShutdown(); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
