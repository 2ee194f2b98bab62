package queue

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBuilder struct {
	built []string
	fail  map[string]error
	panic string
}

func (r *recordingBuilder) BuildPackage(_ context.Context, name, version string) error {
	id := name + "-" + version
	if id == r.panic {
		panic("boom")
	}
	r.built = append(r.built, id)
	if err := r.fail[id]; err != nil {
		return err
	}
	return nil
}

func backends(t *testing.T) map[string]func(t *testing.T, maxAttempts int) Queue {
	return map[string]func(t *testing.T, maxAttempts int) Queue{
		"sqlite": func(t *testing.T, maxAttempts int) Queue {
			q, err := OpenSQLite(t.Context(), filepath.Join(t.TempDir(), "queue.db"), maxAttempts)
			require.NoError(t, err)
			t.Cleanup(func() { _ = q.Close() })
			return q
		},
		"redis": func(t *testing.T, maxAttempts int) Queue {
			mr := miniredis.RunT(t)
			q, err := NewRedis(&redis.Options{Addr: mr.Addr()}, "test", maxAttempts)
			require.NoError(t, err)
			t.Cleanup(func() { _ = q.Close() })
			return q
		},
	}
}

func TestQueue_Lock(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			q := open(t, 3)
			ctx := t.Context()

			locked, err := q.IsLocked(ctx)
			require.NoError(t, err)
			assert.False(t, locked)

			require.NoError(t, q.Lock(ctx))
			locked, err = q.IsLocked(ctx)
			require.NoError(t, err)
			assert.True(t, locked)

			require.NoError(t, q.Unlock(ctx))
			locked, err = q.IsLocked(ctx)
			require.NoError(t, err)
			assert.False(t, locked)
		})
	}
}

func TestQueue_BuildsInPriorityOrder(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			q := open(t, 3)
			ctx := t.Context()

			require.NoError(t, q.Add(ctx, "low", "1.0.0", 10))
			require.NoError(t, q.Add(ctx, "first", "0.1.0", 0))
			require.NoError(t, q.Add(ctx, "second", "0.2.0", 0))
			require.NoError(t, q.Add(ctx, "first", "0.1.0", 0)) // duplicate

			n, err := q.PendingCount(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			b := &recordingBuilder{}
			for i := 0; i < 3; i++ {
				require.NoError(t, q.BuildNextQueued(ctx, b))
			}
			assert.Equal(t, []string{"first-0.1.0", "second-0.2.0", "low-1.0.0"}, b.built)

			n, err = q.PendingCount(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestQueue_EmptyBuildsNothing(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			q := open(t, 3)
			b := &recordingBuilder{}
			require.NoError(t, q.BuildNextQueued(t.Context(), b))
			assert.Empty(t, b.built)
		})
	}
}

func TestQueue_FailedItemsRetryUntilExhausted(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			q := open(t, 2)
			ctx := t.Context()
			buildErr := errors.New("manifest broken")
			b := &recordingBuilder{fail: map[string]error{"broken-0.1.0": buildErr}}

			require.NoError(t, q.Add(ctx, "broken", "0.1.0", 0))

			err := q.BuildNextQueued(ctx, b)
			require.ErrorIs(t, err, buildErr)
			n, err := q.PendingCount(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n, "first failure keeps the item pending")

			err = q.BuildNextQueued(ctx, b)
			require.ErrorIs(t, err, buildErr)
			n, err = q.PendingCount(ctx)
			require.NoError(t, err)
			assert.Zero(t, n, "item dropped after max attempts")

			failed, err := q.(interface {
				Failed(context.Context) ([]Item, error)
			}).Failed(ctx)
			require.NoError(t, err)
			assert.Equal(t, []Item{{Name: "broken", Version: "0.1.0", Attempts: 2}}, failed)

			require.NoError(t, q.BuildNextQueued(ctx, b))
			assert.Len(t, b.built, 2)

			require.NoError(t, q.Add(ctx, "broken", "0.1.0", 0))
			n, err = q.PendingCount(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n, "re-adding resets exhausted attempts")

			failed, err = q.(interface {
				Failed(context.Context) ([]Item, error)
			}).Failed(ctx)
			require.NoError(t, err)
			assert.Empty(t, failed)
		})
	}
}

func TestQueue_PanicCountsAsAttempt(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			q := open(t, 1)
			ctx := t.Context()
			require.NoError(t, q.Add(ctx, "crash", "1.0.0", 0))

			assert.Panics(t, func() {
				_ = q.BuildNextQueued(ctx, &recordingBuilder{panic: "crash-1.0.0"})
			})
			n, err := q.PendingCount(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestSQLite_ClaimedItemIsNotPending(t *testing.T) {
	q, err := OpenSQLite(t.Context(), filepath.Join(t.TempDir(), "queue.db"), 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	ctx := t.Context()

	require.NoError(t, q.Add(ctx, "only", "1.0.0", 0))

	// A second worker polling while the first is building finds nothing to claim.
	var nested []string
	outer := PackageBuilderFunc(func(ctx context.Context, name, version string) error {
		n, err := q.PendingCount(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		require.NoError(t, q.BuildNextQueued(ctx, PackageBuilderFunc(func(_ context.Context, name, _ string) error {
			nested = append(nested, name)
			return nil
		})))
		return nil
	})
	require.NoError(t, q.BuildNextQueued(ctx, outer))
	assert.Empty(t, nested)

	items, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRedis_FailedSet(t *testing.T) {
	mr := miniredis.RunT(t)
	q, err := NewRedis(&redis.Options{Addr: mr.Addr()}, "test", 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	ctx := t.Context()

	require.NoError(t, q.Add(ctx, "broken", "0.1.0", 0))
	err = q.BuildNextQueued(ctx, &recordingBuilder{fail: map[string]error{"broken-0.1.0": errors.New("x")}})
	require.Error(t, err)

	failed, err := q.Failed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Item{{Name: "broken", Version: "0.1.0", Attempts: 1}}, failed)
	assert.True(t, mr.Exists("pkgdocs:test:failed"))
	assert.True(t, mr.Exists("pkgdocs:test:item:broken/0.1.0"))
}

func TestNewRedis_RequiresNamespace(t *testing.T) {
	_, err := NewRedis(&redis.Options{Addr: "localhost:0"}, "", 1)
	require.Error(t, err)
}
