// Package postgresengine provides a PostgreSQL implementation of the inventory store.
//
// Records are stored one row per (kind, id) with a JSONB payload, supporting
// multiple database adapters (pgx, sql.DB, sqlx). Cross-record invariants are
// enforced with guarded commits: the guards and the write are compiled into a
// single conditional SQL statement, so a commit is atomic without an explicit
// transaction and without a read-check-write race window.
//
// Key features:
//   - Multiple database adapter support (PGX, SQL, SQLX)
//   - Atomic multi-record commits with guard violation detection
//   - Record scanning with JSONB predicate filtering
//   - Read-replica routing for relaxed reads (PGX adapter)
//   - Configurable table name, dual-logger support, metrics and tracing hooks
//
// Usage examples:
//
//	// Basic usage
//	db, _ := pgxpool.New(context.Background(), dsn)
//	store, _ := postgresengine.NewInventoryStoreFromPGXPool(db)
//
//	// With configuration
//	store, _ := postgresengine.NewInventoryStoreFromPGXPool(
//		db,
//		postgresengine.WithTableName("my_records"),
//		postgresengine.WithLogger(logger),
//	)
//
//	records, _ := store.Scan(ctx, filter)
//	err := store.Commit(ctx, records, inventory.GuardAbsent(conflictFilter))
package postgresengine
