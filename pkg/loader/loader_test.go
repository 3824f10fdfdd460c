package loader

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoBatch(ctx context.Context, keys []int) []Result[int] {
	results := make([]Result[int], len(keys))
	for i, k := range keys {
		results[i] = Result[int]{Value: k * 10}
	}
	return results
}

func TestLoader_CoalescesIntoOneBatch(t *testing.T) {
	var batches [][]int
	l := New(func(ctx context.Context, keys []int) []Result[int] {
		batches = append(batches, keys)
		return echoBatch(ctx, keys)
	}, Options[int, int]{})

	ctx := context.Background()
	t1 := l.Load(ctx, 1)
	t2 := l.Load(ctx, 2)
	t3 := l.Load(ctx, 3)

	v, err := t2()
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	v, err = t1()
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	v, err = t3()
	require.NoError(t, err)
	assert.Equal(t, 30, v)

	require.Len(t, batches, 1)
	assert.Equal(t, []int{1, 2, 3}, batches[0])
}

func TestLoader_LoadManyPreservesOrderAndLength(t *testing.T) {
	l := New(echoBatch, Options[int, int]{})

	thunk := l.LoadMany(context.Background(), []int{5, 3, 5, 1})
	results := thunk()

	require.Len(t, results, 4)
	assert.Equal(t, 50, results[0].Value)
	assert.Equal(t, 30, results[1].Value)
	assert.Equal(t, 50, results[2].Value)
	assert.Equal(t, 10, results[3].Value)
}

func TestLoader_PerKeyFailureIsolation(t *testing.T) {
	sentinel := errors.New("no row for key")
	l := New(func(ctx context.Context, keys []int) []Result[int] {
		results := make([]Result[int], len(keys))
		for i, k := range keys {
			if k == 2 {
				results[i] = Result[int]{Err: sentinel}
				continue
			}
			results[i] = Result[int]{Value: k}
		}
		return results
	}, Options[int, int]{})

	ctx := context.Background()
	ok1 := l.Load(ctx, 1)
	bad := l.Load(ctx, 2)
	ok2 := l.Load(ctx, 3)

	v, err := ok1()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = bad()
	assert.ErrorIs(t, err, sentinel)

	v, err = ok2()
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestLoader_RepeatedKeyHitsCache(t *testing.T) {
	var calls int
	var seen []string
	l := New(func(ctx context.Context, keys []string) []Result[string] {
		calls++
		seen = append(seen, keys...)
		results := make([]Result[string], len(keys))
		for i, k := range keys {
			results[i] = Result[string]{Value: "v:" + k}
		}
		return results
	}, Options[string, string]{})

	ctx := context.Background()
	first := l.Load(ctx, "a")
	v, err := first()
	require.NoError(t, err)
	assert.Equal(t, "v:a", v)

	second := l.Load(ctx, "a")
	v, err = second()
	require.NoError(t, err)
	assert.Equal(t, "v:a", v)

	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"a"}, seen, "bulk-fetch must see a repeated key at most once")
}

func TestLoader_DuplicateKeysInOneBatchShareOneItem(t *testing.T) {
	var batches [][]string
	l := New(func(ctx context.Context, keys []string) []Result[string] {
		batches = append(batches, keys)
		results := make([]Result[string], len(keys))
		for i, k := range keys {
			results[i] = Result[string]{Value: k}
		}
		return results
	}, Options[string, string]{})

	results := l.LoadMany(context.Background(), []string{"x", "x", "y"})()
	require.Len(t, results, 3)
	assert.Equal(t, "x", results[0].Value)
	assert.Equal(t, "x", results[1].Value)
	assert.Equal(t, "y", results[2].Value)

	require.Len(t, batches, 1)
	assert.Equal(t, []string{"x", "y"}, batches[0])
}

func TestLoader_MaxBatchDispatchesEarly(t *testing.T) {
	var batches [][]int
	l := New(func(ctx context.Context, keys []int) []Result[int] {
		batches = append(batches, keys)
		return echoBatch(ctx, keys)
	}, Options[int, int]{MaxBatch: 2})

	ctx := context.Background()
	l.Load(ctx, 1)
	l.Load(ctx, 2) // reaches MaxBatch, dispatches
	t3 := l.Load(ctx, 3)

	_, err := t3()
	require.NoError(t, err)

	require.Len(t, batches, 2)
	assert.Equal(t, []int{1, 2}, batches[0])
	assert.Equal(t, []int{3}, batches[1])
}

func TestLoader_LengthMismatchFailsWholeBatch(t *testing.T) {
	l := New(func(ctx context.Context, keys []int) []Result[int] {
		return nil
	}, Options[int, int]{})

	results := l.LoadMany(context.Background(), []int{1, 2})()
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Error(t, r.Err)
	}
}

func TestLoader_ConcurrentLoadsAreSafe(t *testing.T) {
	l := New(echoBatch, Options[int, int]{MaxBatch: 4})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := l.Load(context.Background(), i%8)()
			require.NoError(t, err)
			assert.Equal(t, (i%8)*10, v)
		}(i)
	}
	wg.Wait()
}

type searchKey struct {
	Search      string   `json:"search,omitempty"`
	SKUs        []string `json:"skus,omitempty"`
	PageSize    int      `json:"pageSize"`
	CurrentPage int      `json:"currentPage"`
}

func TestJSONKey_StructurallyEqualKeysCollide(t *testing.T) {
	a := searchKey{Search: "shirt", PageSize: 20, CurrentPage: 1}
	b := searchKey{Search: "shirt", PageSize: 20, CurrentPage: 1}
	c := searchKey{Search: "shirt", PageSize: 20, CurrentPage: 2}

	assert.Equal(t, JSONKey(a), JSONKey(b))
	assert.NotEqual(t, JSONKey(a), JSONKey(c))
}
