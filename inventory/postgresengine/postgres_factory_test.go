package postgresengine_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/circulation-go/inventory"
	"github.com/openshelf/circulation-go/inventory/postgresengine"
)

func Test_FactoryFunctions_ShouldFail_WithNilDatabaseConnection(t *testing.T) {
	testCases := []struct {
		name        string
		factoryFunc func() (*postgresengine.InventoryStore, error)
	}{
		{
			name: "NewInventoryStoreFromPGXPool with nil",
			factoryFunc: func() (*postgresengine.InventoryStore, error) {
				return postgresengine.NewInventoryStoreFromPGXPool(nil)
			},
		},
		{
			name: "NewInventoryStoreFromPGXPoolWithReplica with nil replica",
			factoryFunc: func() (*postgresengine.InventoryStore, error) {
				return postgresengine.NewInventoryStoreFromPGXPoolWithReplica(nil, nil)
			},
		},
		{
			name: "NewInventoryStoreFromSQLDB with nil",
			factoryFunc: func() (*postgresengine.InventoryStore, error) {
				return postgresengine.NewInventoryStoreFromSQLDB(nil)
			},
		},
		{
			name: "NewInventoryStoreFromSQLX with nil",
			factoryFunc: func() (*postgresengine.InventoryStore, error) {
				return postgresengine.NewInventoryStoreFromSQLX(nil)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			_, err := tc.factoryFunc()

			// assert
			assert.ErrorIs(t, err, inventory.ErrNilDatabaseConnection)
		})
	}
}

func Test_FactoryFunctions_ShouldFail_WithEmptyTableName(t *testing.T) {
	dsn := requireDSN(t)

	t.Run("NewInventoryStoreFromSQLDB with empty table name", func(t *testing.T) {
		db, err := sql.Open("postgres", dsn)
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		_, err = postgresengine.NewInventoryStoreFromSQLDB(db, postgresengine.WithTableName(""))

		assert.ErrorIs(t, err, inventory.ErrEmptyTableName)
	})

	t.Run("NewInventoryStoreFromSQLX with empty table name", func(t *testing.T) {
		db, err := sqlx.Open("postgres", dsn)
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		_, err = postgresengine.NewInventoryStoreFromSQLX(db, postgresengine.WithTableName(""))

		assert.ErrorIs(t, err, inventory.ErrEmptyTableName)
	})
}

func Test_FactoryFunctions_SQLAndSQLXAdapters_RoundTrip(t *testing.T) {
	dsn := requireDSN(t)
	ctx := context.Background()

	// the pgx-backed setup creates and truncates the test table
	setupStore(t)

	t.Run("database/sql adapter", func(t *testing.T) {
		// arrange
		db, err := sql.Open("postgres", dsn)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		store, err := postgresengine.NewInventoryStoreFromSQLDB(db, postgresengine.WithTableName(testTableName))
		require.NoError(t, err)

		record := givenRecord(t, "book", `{"title": "Walden"}`)

		// act
		require.NoError(t, store.Put(ctx, record))
		loaded, err := store.Get(ctx, record.Kind, record.ID)

		// assert
		require.NoError(t, err)
		assert.JSONEq(t, string(record.PayloadJSON), string(loaded.PayloadJSON))
	})

	t.Run("sqlx adapter", func(t *testing.T) {
		// arrange
		db, err := sqlx.Open("postgres", dsn)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		store, err := postgresengine.NewInventoryStoreFromSQLX(db, postgresengine.WithTableName(testTableName))
		require.NoError(t, err)

		record := givenRecord(t, "book", `{"title": "Moby-Dick"}`)

		// act
		require.NoError(t, store.Put(ctx, record))
		loaded, err := store.Get(ctx, record.Kind, record.ID)

		// assert
		require.NoError(t, err)
		assert.JSONEq(t, string(record.PayloadJSON), string(loaded.PayloadJSON))
	})
}

func requireDSN(t *testing.T) string {
	t.Helper()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set, skipping postgres engine tests")
	}

	return dsn
}
