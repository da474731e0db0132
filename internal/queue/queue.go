package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"detailinfra/internal/remote"
	"detailinfra/internal/vehicle"
)

// DrainResult counts the outcome of one drain pass.
type DrainResult struct {
	Succeeded int `json:"succeeded"`
	Remaining int `json:"remaining"`
}

// Queue pairs a local store with the remote store it replays into.
type Queue struct {
	store   LocalQueueStore
	remote  remote.Store
	limiter *rate.Limiter
	log     *zap.Logger
	now     func() time.Time
}

type Option func(*Queue)

// WithLimiter paces remote upserts during a drain.
func WithLimiter(l *rate.Limiter) Option {
	return func(q *Queue) { q.limiter = l }
}

func WithLogger(l *zap.Logger) Option {
	return func(q *Queue) { q.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

func New(store LocalQueueStore, rs remote.Store, opts ...Option) *Queue {
	q := &Queue{
		store:  store,
		remote: rs,
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue stores row under a fresh placeholder id. Rows are not
// de-duplicated here; MergedView resolves repeated keys.
func (q *Queue) Enqueue(ctx context.Context, row vehicle.Row) (PendingWrite, error) {
	row.ID = newPlaceholderID()
	item := PendingWrite{Row: row, QueuedAt: q.now().UTC()}
	if err := q.store.Append(ctx, item); err != nil {
		return PendingWrite{}, fmt.Errorf("enqueue %s %s: %w", row.Make, row.Model, err)
	}
	q.log.Info("classification queued locally",
		zap.String("id", row.ID),
		zap.String("make", row.Make),
		zap.String("model", row.Model))
	return item, nil
}

func (q *Queue) Pending(ctx context.Context) ([]PendingWrite, error) {
	return q.store.List(ctx)
}

// Drain upserts every pending write in queue order. Items that succeed are
// removed by id; failed items stay queued in their original position.
// Items enqueued while a drain runs are left for the next pass.
func (q *Queue) Drain(ctx context.Context) (DrainResult, error) {
	items, err := q.store.List(ctx)
	if err != nil {
		return DrainResult{}, fmt.Errorf("list pending writes: %w", err)
	}
	if len(items) == 0 {
		return DrainResult{}, nil
	}

	var done []PendingWrite
	var firstErr error
	for _, item := range items {
		if q.limiter != nil {
			if err := q.limiter.Wait(ctx); err != nil {
				firstErr = err
				break
			}
		}
		row := item.Row
		row.ID = ""
		if _, err := q.remote.Upsert(ctx, row); err != nil {
			q.log.Debug("pending write not synced",
				zap.String("id", item.ID),
				zap.Error(err))
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				firstErr = err
				break
			}
			continue
		}
		done = append(done, item)
	}

	if err := q.store.Remove(ctx, done...); err != nil {
		return DrainResult{}, fmt.Errorf("remove synced writes: %w", err)
	}
	res := DrainResult{Succeeded: len(done), Remaining: len(items) - len(done)}
	if rest, err := q.store.List(ctx); err == nil {
		res.Remaining = len(rest)
	}
	if res.Succeeded > 0 {
		q.log.Info("offline queue drained",
			zap.Int("succeeded", res.Succeeded),
			zap.Int("remaining", res.Remaining))
	}
	return res, firstErr
}

// Patch applies p to a queued row. It returns remote.ErrNotFound when id is
// not queued.
func (q *Queue) Patch(ctx context.Context, id string, p remote.Patch) error {
	items, err := q.store.List(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.ID != id {
			continue
		}
		if p.Luxury != nil {
			item.Luxury = *p.Luxury
		}
		if p.Category != nil {
			item.Category = *p.Category
		}
		if p.Notes != nil {
			item.Notes = *p.Notes
		}
		item.Revision++
		return q.store.Append(ctx, item)
	}
	return fmt.Errorf("patch %s: %w", id, remote.ErrNotFound)
}

// View is the merged read of remote rows and queued rows. A failing remote
// read is treated as an empty remote set so queued rows stay visible.
func (q *Queue) View(ctx context.Context, f remote.Filter) ([]vehicle.Row, error) {
	items, err := q.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending writes: %w", err)
	}
	remoteRows, err := q.remote.Select(ctx, f)
	if err != nil {
		q.log.Warn("remote select failed; showing queued rows only", zap.Error(err))
		remoteRows = nil
	}
	queued := make([]vehicle.Row, 0, len(items))
	for _, it := range items {
		if f.Matches(it.Row) {
			queued = append(queued, it.Row)
		}
	}
	return MergedView(remoteRows, queued), nil
}

// MergedView unions remote and queued rows by make/model key. Remote rows
// always win; among queued rows sharing a key the last one wins. Remote
// order is kept and queued rows follow in queue order.
func MergedView(remoteRows, queued []vehicle.Row) []vehicle.Row {
	out := make([]vehicle.Row, 0, len(remoteRows)+len(queued))
	seen := make(map[string]struct{}, len(remoteRows))
	for _, r := range remoteRows {
		seen[r.Key()] = struct{}{}
		out = append(out, r)
	}

	last := make(map[string]int, len(queued))
	for i, r := range queued {
		last[r.Key()] = i
	}
	for i, r := range queued {
		k := r.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		if last[k] != i {
			continue
		}
		out = append(out, r)
	}
	return out
}
