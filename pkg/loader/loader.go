// Package loader implements a request-scoped batching and caching engine for
// keyed lookups. Concurrently registered loads are coalesced into one
// invocation of a bulk-fetch function; results are cached by key for the
// lifetime of the loader instance.
//
// Unlike event-loop bound dataloader implementations, the batch-collection
// window is explicit: registering a load returns a thunk, and the first thunk
// invocation (or an explicit Flush, or reaching MaxBatch) dispatches every
// load registered since the previous dispatch.
package loader

import (
	"context"
	"fmt"
	"sync"
)

// Result carries the outcome for a single key of a batch. A non-nil Err marks
// the failure sentinel for that position; it fails only the calls awaiting
// that key.
type Result[V any] struct {
	Value V
	Err   error
}

// BatchFn is the bulk-fetch function. It must return one Result per input
// key, in the same order as the input keys. It must not panic on individual
// key failures; those are reported positionally via Result.Err.
type BatchFn[K any, V any] func(ctx context.Context, keys []K) []Result[V]

// KeyFn derives the cache/coalescing identity of a key. Two keys that map to
// the same string hit the same cache entry and batch item.
type KeyFn[K any] func(key K) string

// Thunk resolves a single pending load. Invoking it dispatches the current
// batch if the load is still pending.
type Thunk[V any] func() (V, error)

// ThunkMany resolves a set of pending loads, preserving registration order.
type ThunkMany[V any] func() []Result[V]

type call[V any] struct {
	done chan struct{}
	res  Result[V]
}

func (c *call[V]) complete(res Result[V]) {
	c.res = res
	close(c.done)
}

type pending[K any, V any] struct {
	key  K
	call *call[V]
}

// Options configures a Loader.
type Options[K any, V any] struct {
	// KeyFn derives cache keys. Defaults to IdentityKey.
	KeyFn KeyFn[K]
	// MaxBatch bounds the batch size; reaching it dispatches immediately.
	// Zero means unbounded.
	MaxBatch int
}

// Loader batches and caches loads for a single scope (typically one inbound
// request). It holds no cross-request state; callers choose the scope by
// choosing the loader's lifetime.
type Loader[K any, V any] struct {
	batchFn  BatchFn[K, V]
	keyFn    KeyFn[K]
	maxBatch int

	mu      sync.Mutex
	cache   map[string]*call[V]
	pending []pending[K, V]
}

// New creates a Loader around the given bulk-fetch function.
func New[K any, V any](batchFn BatchFn[K, V], opts Options[K, V]) *Loader[K, V] {
	keyFn := opts.KeyFn
	if keyFn == nil {
		keyFn = IdentityKey[K]
	}
	return &Loader[K, V]{
		batchFn:  batchFn,
		keyFn:    keyFn,
		maxBatch: opts.MaxBatch,
		cache:    make(map[string]*call[V]),
	}
}

// IdentityKey formats the key with the fmt package. Suitable for scalar keys.
func IdentityKey[K any](key K) string {
	return fmt.Sprintf("%v", key)
}

// Load registers a load for key and returns a thunk resolving its value.
// Repeated loads with an equal key within the loader's lifetime share one
// batch item and one cached result; the bulk-fetch function sees the key at
// most once.
func (l *Loader[K, V]) Load(ctx context.Context, key K) Thunk[V] {
	l.mu.Lock()
	ck := l.keyFn(key)
	c, ok := l.cache[ck]
	if !ok {
		c = &call[V]{done: make(chan struct{})}
		l.cache[ck] = c
		l.pending = append(l.pending, pending[K, V]{key: key, call: c})
	}
	shouldFlush := l.maxBatch > 0 && len(l.pending) >= l.maxBatch
	l.mu.Unlock()

	if shouldFlush {
		l.Flush(ctx)
	}

	return func() (V, error) {
		select {
		case <-c.done:
		default:
			l.Flush(ctx)
			<-c.done
		}
		return c.res.Value, c.res.Err
	}
}

// LoadMany registers a load per key and returns a thunk resolving all of
// them. The result sequence preserves the order and length of keys,
// duplicates included.
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) ThunkMany[V] {
	thunks := make([]Thunk[V], len(keys))
	for i, key := range keys {
		thunks[i] = l.Load(ctx, key)
	}
	return func() []Result[V] {
		results := make([]Result[V], len(thunks))
		for i, thunk := range thunks {
			results[i].Value, results[i].Err = thunk()
		}
		return results
	}
}

// Flush dispatches every load registered since the previous dispatch. It is
// safe to call with nothing pending.
func (l *Loader[K, V]) Flush(ctx context.Context) {
	l.mu.Lock()
	batch := l.pending
	l.pending = nil
	l.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	keys := make([]K, len(batch))
	for i, p := range batch {
		keys[i] = p.key
	}

	results := l.batchFn(ctx, keys)
	if len(results) != len(keys) {
		err := fmt.Errorf("loader: bulk-fetch returned %d results for %d keys", len(results), len(keys))
		for _, p := range batch {
			var zero V
			p.call.complete(Result[V]{Value: zero, Err: err})
		}
		return
	}

	for i, p := range batch {
		p.call.complete(results[i])
	}
}
