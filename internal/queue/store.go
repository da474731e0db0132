// Package queue buffers classification writes that could not reach the
// remote store and replays them once it is back.
package queue

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"detailinfra/internal/vehicle"
)

// PlaceholderPrefix marks row ids that were assigned locally and have never
// been seen by the remote store.
const PlaceholderPrefix = "local_"

// PendingWrite is a row waiting to be upserted remotely. Revision grows on
// every in-place edit so a drain never drops an edit it did not send.
type PendingWrite struct {
	vehicle.Row
	QueuedAt time.Time `json:"queued_at"`
	Revision int       `json:"revision,omitempty"`
}

// IsPlaceholder reports whether id was assigned by the queue.
func IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, PlaceholderPrefix)
}

func newPlaceholderID() string {
	return PlaceholderPrefix + uuid.NewString()
}

// LocalQueueStore persists pending writes in enqueue order. Items are
// addressed by their placeholder id so concurrent writers never overwrite
// each other's items.
type LocalQueueStore interface {
	// List returns every item, oldest first.
	List(ctx context.Context) ([]PendingWrite, error)
	// Append adds an item, or replaces the item with the same id in place.
	Append(ctx context.Context, item PendingWrite) error
	// Remove deletes each item unless the stored copy has a different
	// Revision, which means it was edited after it was listed.
	Remove(ctx context.Context, items ...PendingWrite) error
	Close() error
}

// MemoryStore keeps pending writes in process memory. Nothing survives a
// restart; use it for tests and for deployments without a writable disk.
type MemoryStore struct {
	mu    sync.Mutex
	items []PendingWrite
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) List(context.Context) ([]PendingWrite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PendingWrite(nil), m.items...), nil
}

func (m *MemoryStore) Append(_ context.Context, item PendingWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == item.ID {
			m.items[i] = item
			return nil
		}
	}
	m.items = append(m.items, item)
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, items ...PendingWrite) error {
	if len(items) == 0 {
		return nil
	}
	drop := make(map[string]int, len(items))
	for _, it := range items {
		drop[it.ID] = it.Revision
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.items[:0]
	for _, it := range m.items {
		if rev, ok := drop[it.ID]; !ok || rev != it.Revision {
			kept = append(kept, it)
		}
	}
	m.items = kept
	return nil
}

func (m *MemoryStore) Close() error { return nil }
