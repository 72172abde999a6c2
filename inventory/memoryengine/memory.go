package memoryengine

import (
	"context"
	"sort"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/openshelf/circulation-go/inventory"
)

var json = jsoniter.ConfigFastest

// InventoryStore is an in-memory keyed record store with the same guard
// semantics as the Postgres engine. A single mutex covers guard evaluation
// and the write, which makes every commit atomic.
type InventoryStore struct {
	mu               sync.RWMutex
	records          map[inventory.RecordKindString]map[inventory.RecordIDString]inventory.StorableRecord
	simulatedLatency time.Duration
}

// Option defines a functional option for configuring the in-memory InventoryStore.
type Option func(*InventoryStore) error

// WithSimulatedLatency makes every operation sleep for the given duration
// before taking the lock. Useful in concurrency tests to widen race windows.
func WithSimulatedLatency(latency time.Duration) Option {
	return func(s *InventoryStore) error {
		s.simulatedLatency = latency
		return nil
	}
}

// NewInventoryStore creates a new in-memory InventoryStore with optional configuration.
func NewInventoryStore(options ...Option) (*InventoryStore, error) {
	store := &InventoryStore{
		records: make(map[inventory.RecordKindString]map[inventory.RecordIDString]inventory.StorableRecord),
	}

	for _, option := range options {
		if err := option(store); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// Get retrieves a single record by kind and id.
// Returns inventory.ErrRecordNotFound when no such record exists.
func (s *InventoryStore) Get(ctx context.Context, kind inventory.RecordKindString, id inventory.RecordIDString) (
	inventory.StorableRecord,
	error,
) {

	var empty inventory.StorableRecord

	if err := s.simulateLatency(ctx); err != nil {
		return empty, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, found := s.records[kind][id]
	if !found {
		return empty, inventory.ErrRecordNotFound
	}

	return copyRecord(record), nil
}

// Put upserts a single record, preserving created_at for existing rows.
func (s *InventoryStore) Put(ctx context.Context, record inventory.StorableRecord) error {
	if err := s.simulateLatency(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.putLocked(record)

	return nil
}

// Scan retrieves all records matching the filter, ordered by created_at then id.
// An empty result is not an error.
func (s *InventoryStore) Scan(ctx context.Context, filter inventory.Filter) (inventory.StorableRecords, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.scanLocked(filter), nil
}

// Commit atomically upserts all supplied records if every guard holds.
// Returns inventory.ErrGuardViolated when a guard fails; nothing is written then.
func (s *InventoryStore) Commit(ctx context.Context, records inventory.StorableRecords, guards ...inventory.Guard) error {
	if len(records) == 0 {
		return nil
	}

	if err := s.simulateLatency(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.guardsHoldLocked(guards) {
		return inventory.ErrGuardViolated
	}

	for _, record := range records {
		s.putLocked(record)
	}

	return nil
}

// Delete removes a single record by kind and id.
// Returns inventory.ErrRecordNotFound when no such record exists.
func (s *InventoryStore) Delete(ctx context.Context, kind inventory.RecordKindString, id inventory.RecordIDString) error {
	if err := s.simulateLatency(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.records[kind][id]; !found {
		return inventory.ErrRecordNotFound
	}

	delete(s.records[kind], id)

	return nil
}

// DeleteGuarded removes a single record by kind and id if every guard holds,
// evaluated atomically with the delete. Returns inventory.ErrGuardViolated
// when the record is missing or a guard fails.
func (s *InventoryStore) DeleteGuarded(
	ctx context.Context,
	kind inventory.RecordKindString,
	id inventory.RecordIDString,
	guards ...inventory.Guard,
) error {

	if err := s.simulateLatency(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.records[kind][id]; !found {
		return inventory.ErrGuardViolated
	}

	if !s.guardsHoldLocked(guards) {
		return inventory.ErrGuardViolated
	}

	delete(s.records[kind], id)

	return nil
}

func (s *InventoryStore) putLocked(record inventory.StorableRecord) {
	kindRecords, found := s.records[record.Kind]
	if !found {
		kindRecords = make(map[inventory.RecordIDString]inventory.StorableRecord)
		s.records[record.Kind] = kindRecords
	}

	stored := copyRecord(record)

	if existing, exists := kindRecords[record.ID]; exists {
		stored.CreatedAt = existing.CreatedAt
	}

	kindRecords[record.ID] = stored
}

func (s *InventoryStore) scanLocked(filter inventory.Filter) inventory.StorableRecords {
	matches := make(inventory.StorableRecords, 0)

	for _, kindRecords := range s.records {
		for _, record := range kindRecords {
			if matchesFilter(record, filter) {
				matches = append(matches, copyRecord(record))
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}

		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})

	return matches
}

func (s *InventoryStore) guardsHoldLocked(guards []inventory.Guard) bool {
	for _, guard := range guards {
		anyMatch := false

		for _, kindRecords := range s.records {
			for _, record := range kindRecords {
				if matchesFilter(record, guard.Filter()) {
					anyMatch = true
					break
				}
			}

			if anyMatch {
				break
			}
		}

		switch guard.Mode() {
		case inventory.GuardModeAbsent:
			if anyMatch {
				return false
			}
		case inventory.GuardModePresent:
			if !anyMatch {
				return false
			}
		}
	}

	return true
}

// matchesFilter evaluates a filter against a record the way the Postgres
// engine's where clause does: filter items are ORed, within an item the kinds
// are ORed and the predicates are combined per the item's all/any flag.
// Predicates match top-level string fields of the JSON payload.
func matchesFilter(record inventory.StorableRecord, filter inventory.Filter) bool {
	for _, item := range filter.Items() {
		if !kindMatches(record.Kind, item.Kinds()) {
			continue
		}

		if predicatesMatch(record.PayloadJSON, item.Predicates(), item.AllPredicatesMustMatch()) {
			return true
		}
	}

	return false
}

func kindMatches(kind inventory.RecordKindString, kinds []inventory.RecordKindString) bool {
	if len(kinds) == 0 {
		return true
	}

	for _, candidate := range kinds {
		if candidate == kind {
			return true
		}
	}

	return false
}

func predicatesMatch(payloadJSON []byte, predicates []inventory.FilterPredicate, allMustMatch bool) bool {
	if len(predicates) == 0 {
		return true
	}

	var payload map[string]any
	if err := json.Unmarshal(payloadJSON, &payload); err != nil {
		return false
	}

	for _, predicate := range predicates {
		value, isString := payload[predicate.Key()].(string)
		matched := isString && value == predicate.Val()

		if allMustMatch && !matched {
			return false
		}

		if !allMustMatch && matched {
			return true
		}
	}

	return allMustMatch
}

func copyRecord(record inventory.StorableRecord) inventory.StorableRecord {
	payloadCopy := make([]byte, len(record.PayloadJSON))
	copy(payloadCopy, record.PayloadJSON)
	record.PayloadJSON = payloadCopy

	return record
}

func (s *InventoryStore) simulateLatency(ctx context.Context) error {
	if s.simulatedLatency <= 0 {
		return nil
	}

	select {
	case <-time.After(s.simulatedLatency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
