package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/openshelf/circulation-go/catalog"
	"github.com/openshelf/circulation-go/circulation"
	"github.com/openshelf/circulation-go/config"
	"github.com/openshelf/circulation-go/httpapi"
	"github.com/openshelf/circulation-go/inventory/memoryengine"
	"github.com/openshelf/circulation-go/inventory/postgresengine"
	"github.com/openshelf/circulation-go/projection"
	"github.com/openshelf/circulation-go/shell"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), debug)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	return cmd
}

func runServe(ctx context.Context, debug bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger(debug)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, cleanup, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	bus := shell.NewFanOutBus()
	defer bus.Close()

	locks := shell.NewKeyedLock()

	catalogManager, err := catalog.NewManager(store,
		catalog.WithEventPublisher(bus),
		catalog.WithKeyedLock(locks),
	)
	if err != nil {
		return err
	}

	circulationManager, err := circulation.NewManager(store,
		circulation.WithEventPublisher(bus),
		circulation.WithKeyedLock(locks),
		circulation.WithBorrowLimit(cfg.BorrowLimit),
		circulation.WithLoanPeriod(cfg.LoanPeriod()),
	)
	if err != nil {
		return err
	}

	cache := projection.NewReconciliationCache()
	stopConsuming := cache.ConsumeFrom(bus, projection.DefaultSubscriberBuffer)
	defer stopConsuming()

	if err := cache.Rebuild(ctx, store); err != nil {
		return err
	}

	server, err := httpapi.NewServer(catalogManager, circulationManager,
		httpapi.WithReconciliationCache(cache),
		httpapi.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrors := make(chan error, 1)

	go func() {
		logger.Info("http server listening", "addr", httpServer.Addr, "engine", cfg.StoreEngine)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrors <- err
		}
	}()

	select {
	case err := <-serveErrors:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return httpServer.Shutdown(shutdownCtx)
}

// buildStore creates the inventory store selected by the configuration and
// returns a cleanup function for its connections.
func buildStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (shell.InventoryStore, func(), error) {
	switch cfg.StoreEngine {
	case config.EngineMemory:
		store, err := memoryengine.NewInventoryStore()
		if err != nil {
			return nil, nil, err
		}

		return store, func() {}, nil

	case config.EnginePostgres:
		poolConfig, err := cfg.PostgresPoolConfig()
		if err != nil {
			return nil, nil, err
		}

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, nil, err
		}

		replicaConfig, err := cfg.PostgresReplicaPoolConfig()
		if err != nil {
			pool.Close()
			return nil, nil, err
		}

		if replicaConfig == nil {
			store, err := postgresengine.NewInventoryStoreFromPGXPool(pool,
				postgresengine.WithLogger(logger),
				postgresengine.WithContextualLogger(logger),
			)
			if err != nil {
				pool.Close()
				return nil, nil, err
			}

			return store, pool.Close, nil
		}

		replica, err := pgxpool.NewWithConfig(ctx, replicaConfig)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}

		store, err := postgresengine.NewInventoryStoreFromPGXPoolWithReplica(pool, replica,
			postgresengine.WithLogger(logger),
			postgresengine.WithContextualLogger(logger),
		)
		if err != nil {
			pool.Close()
			replica.Close()

			return nil, nil, err
		}

		cleanup := func() {
			pool.Close()
			replica.Close()
		}

		return store, cleanup, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown store engine %q", config.ErrInvalidConfiguration, cfg.StoreEngine)
	}
}
