package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"CreditProcess/internal/creditreq"
)

// MemStore is the in-memory backend used for dev runs and tests.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]creditreq.Record
	ids     *PushIDGenerator
}

func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[string]creditreq.Record),
		ids:     NewPushIDGenerator(),
	}
}

func (m *MemStore) All(ctx context.Context) (map[string]creditreq.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]creditreq.Record, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out, nil
}

func (m *MemStore) Get(ctx context.Context, key string) (creditreq.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	if !ok {
		return creditreq.Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemStore) Push(ctx context.Context, rec creditreq.Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := m.ids.Next()
	m.records[key] = rec
	return key, nil
}

func (m *MemStore) Update(ctx context.Context, key string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return ErrNotFound
	}
	// Merge through the JSON names so partial maps use the store keys.
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	var asMap map[string]interface{}
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return err
	}
	for k, v := range fields {
		asMap[k] = v
	}
	merged, err := json.Marshal(asMap)
	if err != nil {
		return err
	}
	var updated creditreq.Record
	if err := json.Unmarshal(merged, &updated); err != nil {
		return fmt.Errorf("invalid field value: %w", err)
	}
	m.records[key] = updated
	return nil
}

func (m *MemStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

func (m *MemStore) Pairs(ctx context.Context) (map[creditreq.Pair]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pairs := make(map[creditreq.Pair]struct{}, len(m.records))
	for _, rec := range m.records {
		if p := rec.Pair(); !p.Empty() {
			pairs[p] = struct{}{}
		}
	}
	return pairs, nil
}
