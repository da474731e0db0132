package syncer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"detailinfra/internal/queue"
	"detailinfra/internal/remote"
	"detailinfra/internal/vehicle"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingDrainer struct {
	calls atomic.Int32
}

func (c *countingDrainer) Drain(context.Context) (queue.DrainResult, error) {
	c.calls.Add(1)
	return queue.DrainResult{}, nil
}

func TestWorker_DrainsOnTickAndStops(t *testing.T) {
	d := &countingDrainer{}
	w := New(d, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return d.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorker_SyncsQueueWhenRemoteReturns(t *testing.T) {
	rs := remote.NewMemory()
	rs.SetOffline(true)
	store := queue.NewMemoryStore()
	q := queue.New(store, rs)
	_, err := q.Enqueue(context.Background(), vehicle.Row{Make: "Honda", Model: "Civic", Category: vehicle.CompactSedan})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- New(q, 5*time.Millisecond, nil).Run(ctx) }()

	rs.SetOffline(false)
	require.Eventually(t, func() bool {
		items, err := store.List(context.Background())
		return err == nil && len(items) == 0
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	rows, err := rs.Select(context.Background(), remote.Filter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWorker_ZeroIntervalDrainsOnce(t *testing.T) {
	d := &countingDrainer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(d, 0, nil).Run(ctx) }()

	require.Eventually(t, func() bool { return d.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), d.calls.Load())
}
