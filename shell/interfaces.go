package shell

import (
	"context"

	"github.com/openshelf/circulation-go/inventory"
)

// InventoryStore is the store contract the managers depend on. Both the
// Postgres engine and the memory engine satisfy it.
type InventoryStore interface {
	Get(ctx context.Context, kind inventory.RecordKindString, id inventory.RecordIDString) (inventory.StorableRecord, error)
	Put(ctx context.Context, record inventory.StorableRecord) error
	Scan(ctx context.Context, filter inventory.Filter) (inventory.StorableRecords, error)
	Delete(ctx context.Context, kind inventory.RecordKindString, id inventory.RecordIDString) error
	Commit(ctx context.Context, records inventory.StorableRecords, guards ...inventory.Guard) error
	DeleteGuarded(ctx context.Context, kind inventory.RecordKindString, id inventory.RecordIDString, guards ...inventory.Guard) error
}
