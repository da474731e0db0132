// Package remote talks to the authoritative vehicle classification store.
package remote

import (
	"context"
	"errors"

	"detailinfra/internal/vehicle"
)

var (
	// ErrUnavailable is returned when the store cannot be reached or is
	// disabled. Callers queue writes locally when they see it.
	ErrUnavailable = errors.New("remote store unavailable")
	ErrNotFound    = errors.New("classification row not found")
	ErrDuplicate   = errors.New("classification row already exists")
)

// DefaultLimit caps unfiltered selects.
const DefaultLimit = 5000

// Filter narrows a select. Empty fields match everything; Make and Model
// compare case-insensitively.
type Filter struct {
	Make  string
	Model string
	Limit int
}

// Matches reports whether r passes the make and model filters.
func (f Filter) Matches(r vehicle.Row) bool {
	if f.Make != "" && vehicle.Normalize(f.Make) != vehicle.Normalize(r.Make) {
		return false
	}
	if f.Model != "" && vehicle.Normalize(f.Model) != vehicle.Normalize(r.Model) {
		return false
	}
	return true
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Luxury   *bool             `json:"is_luxury,omitempty"`
	Category *vehicle.Category `json:"type_category,omitempty"`
	Notes    *string           `json:"notes,omitempty"`
}

// Store is the remote classification table.
type Store interface {
	Select(ctx context.Context, f Filter) ([]vehicle.Row, error)
	Insert(ctx context.Context, row vehicle.Row) (vehicle.Row, error)
	// Upsert replaces any row with the same make/model, compared
	// case-insensitively.
	Upsert(ctx context.Context, row vehicle.Row) (vehicle.Row, error)
	Update(ctx context.Context, id string, p Patch) error
}

// Disabled is the store used when no database is configured. Reads come
// back empty and every write fails with ErrUnavailable.
type Disabled struct{}

func (Disabled) Select(context.Context, Filter) ([]vehicle.Row, error) { return nil, nil }

func (Disabled) Insert(context.Context, vehicle.Row) (vehicle.Row, error) {
	return vehicle.Row{}, ErrUnavailable
}

func (Disabled) Upsert(context.Context, vehicle.Row) (vehicle.Row, error) {
	return vehicle.Row{}, ErrUnavailable
}

func (Disabled) Update(context.Context, string, Patch) error { return ErrUnavailable }
