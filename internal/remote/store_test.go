package remote

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detailinfra/internal/db"
	"detailinfra/internal/vehicle"
)

func TestDisabled(t *testing.T) {
	ctx := context.Background()
	var s Store = Disabled{}

	rows, err := s.Select(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = s.Insert(ctx, vehicle.Row{Make: "Honda", Model: "Civic"})
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = s.Upsert(ctx, vehicle.Row{Make: "Honda", Model: "Civic"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, s.Update(ctx, "x", Patch{}), ErrUnavailable)
}

func TestMemory_UpsertReplacesCaseInsensitively(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	first, err := m.Upsert(ctx, vehicle.Row{Make: "Honda", Model: "Civic", Category: vehicle.CompactSedan})
	require.NoError(t, err)
	second, err := m.Upsert(ctx, vehicle.Row{Make: "HONDA", Model: "civic ", Category: vehicle.MidSizeSUV})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	rows, err := m.Select(ctx, Filter{Make: "honda"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, vehicle.MidSizeSUV, rows[0].Category)
}

func TestMemory_InsertDuplicate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(vehicle.Row{Make: "Ford", Model: "F-150", Category: vehicle.TruckVan})
	_, err := m.Insert(ctx, vehicle.Row{Make: "ford", Model: "f-150", Category: vehicle.TruckVan})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemory_UpdatePatch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(vehicle.Row{ID: "r1", Make: "Lexus", Model: "RX", Category: vehicle.MidSizeSUV, Luxury: true})

	off := false
	require.NoError(t, m.Update(ctx, "r1", Patch{Luxury: &off}))
	rows, err := m.Select(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Luxury)
	assert.Equal(t, vehicle.MidSizeSUV, rows[0].Category)

	assert.ErrorIs(t, m.Update(ctx, "missing", Patch{Luxury: &off}), ErrNotFound)
}

func TestMemory_Offline(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.SetOffline(true)
	_, err := m.Select(ctx, Filter{})
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = m.Upsert(ctx, vehicle.Row{Make: "A", Model: "B"})
	assert.ErrorIs(t, err, ErrUnavailable)

	m.SetOffline(false)
	_, err = m.Upsert(ctx, vehicle.Row{Make: "A", Model: "B"})
	assert.NoError(t, err)
}

func TestPostgresIntegration(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
		return
	}
	ctx := t.Context()
	pool, err := db.NewPool(ctx, dbURL)
	require.NoError(t, err)
	defer pool.Close()
	_, err = db.Migrate(ctx, pool)
	require.NoError(t, err)

	s := NewPostgres(pool)
	mk := "Itest" + uuid.NewString()[:8]
	defer func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM vehicle_classification WHERE lower(make) = lower($1)`, mk)
	}()

	inserted, err := s.Insert(ctx, vehicle.Row{Make: mk, Model: "Alpha", Category: vehicle.CompactSedan, YearStart: vehicle.IntPtr(2020)})
	require.NoError(t, err)
	assert.NotEmpty(t, inserted.ID)

	_, err = s.Insert(ctx, vehicle.Row{Make: mk, Model: "ALPHA", Category: vehicle.CompactSedan})
	assert.True(t, errors.Is(err, ErrDuplicate), "expected duplicate, got %v", err)

	upserted, err := s.Upsert(ctx, vehicle.Row{Make: mk, Model: "alpha", Category: vehicle.TruckVan, Notes: "lifted"})
	require.NoError(t, err)
	assert.Equal(t, inserted.ID, upserted.ID)

	on := true
	require.NoError(t, s.Update(ctx, inserted.ID, Patch{Luxury: &on}))

	rows, err := s.Select(ctx, Filter{Make: mk})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, vehicle.TruckVan, rows[0].Category)
	assert.True(t, rows[0].Luxury)
	assert.Equal(t, "lifted", rows[0].Notes)
	assert.Nil(t, rows[0].YearStart)

	assert.ErrorIs(t, s.Update(ctx, uuid.NewString(), Patch{Luxury: &on}), ErrNotFound)
}
