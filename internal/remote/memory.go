package remote

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"detailinfra/internal/vehicle"
)

// Memory is an in-process Store. It can be switched offline to exercise the
// queueing paths without a database.
type Memory struct {
	mu      sync.Mutex
	rows    []vehicle.Row
	offline bool
}

func NewMemory(rows ...vehicle.Row) *Memory {
	m := &Memory{}
	for _, r := range rows {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		m.rows = append(m.rows, r)
	}
	return m
}

// SetOffline makes every call fail with ErrUnavailable until switched back.
func (m *Memory) SetOffline(offline bool) {
	m.mu.Lock()
	m.offline = offline
	m.mu.Unlock()
}

func (m *Memory) Select(_ context.Context, f Filter) ([]vehicle.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return nil, ErrUnavailable
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	var out []vehicle.Row
	for _, r := range m.rows {
		if f.Matches(r) {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) Insert(_ context.Context, row vehicle.Row) (vehicle.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return vehicle.Row{}, ErrUnavailable
	}
	if m.indexOf(row.Key()) >= 0 {
		return vehicle.Row{}, ErrDuplicate
	}
	row.ID = uuid.NewString()
	m.rows = append(m.rows, row)
	return row, nil
}

func (m *Memory) Upsert(_ context.Context, row vehicle.Row) (vehicle.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return vehicle.Row{}, ErrUnavailable
	}
	if i := m.indexOf(row.Key()); i >= 0 {
		row.ID = m.rows[i].ID
		m.rows[i] = row
		return row, nil
	}
	row.ID = uuid.NewString()
	m.rows = append(m.rows, row)
	return row, nil
}

func (m *Memory) Update(_ context.Context, id string, p Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return ErrUnavailable
	}
	for i := range m.rows {
		if m.rows[i].ID != id {
			continue
		}
		if p.Luxury != nil {
			m.rows[i].Luxury = *p.Luxury
		}
		if p.Category != nil {
			m.rows[i].Category = *p.Category
		}
		if p.Notes != nil {
			m.rows[i].Notes = *p.Notes
		}
		return nil
	}
	return ErrNotFound
}

func (m *Memory) indexOf(key string) int {
	for i, r := range m.rows {
		if r.Key() == key {
			return i
		}
	}
	return -1
}
