package checkpoint

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithMemoryClock(fixedClock))
	state := suspendedState("sess-1")

	require.NoError(t, store.Save(ctx, "sess-1", state, 1))

	cp, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", cp.SessionID)
	assert.Equal(t, int64(1), cp.Step)
	assert.Equal(t, fixedNow, cp.SavedAt)
	assert.Equal(t, state, cp.State, "load after save must return exactly the saved state")

	again, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, cp, again, "repeated loads without a save must be identical")
}

func TestMemoryStore_LoadDoesNotAlias(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithMemoryClock(fixedClock))
	state := suspendedState("sess-1")
	require.NoError(t, store.Save(ctx, "sess-1", state, 1))

	// Mutating the caller's copy after save must not leak into the store.
	state.Questions[0].Text = "mutated"
	*state.Feedback["q1"].Score = 0

	cp, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "What is 2+2?", cp.State.Questions[0].Text)
	assert.InDelta(t, 9.0, *cp.State.Feedback["q1"].Score, 1e-9)

	cp.State.NeedsReview[0] = "changed"
	reloaded, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"q2"}, reloaded.State.NeedsReview)
}

func TestMemoryStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithMemoryClock(fixedClock))

	first := suspendedState("sess-1")
	second := suspendedState("sess-1")
	second.Step = 2
	second.NeedsReview = []string{"q1", "q2"}

	require.NoError(t, store.Save(ctx, "sess-1", first, 1))
	require.NoError(t, store.Save(ctx, "sess-1", second, 2))

	cp, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), cp.Step)
	assert.Equal(t, second, cp.State)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Load(ctx, "never-started")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, "sess-1", suspendedState("sess-1"), 1))
	require.NoError(t, store.Delete(ctx, "sess-1"))

	_, err = store.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.Delete(ctx, "sess-1"), "deleting a missing session is not an error")
}

func TestMemoryStore_EmptySessionID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	assert.ErrorIs(t, store.Save(ctx, "", suspendedState(""), 1), ErrEmptySessionID)
	_, err := store.Load(ctx, "")
	assert.ErrorIs(t, err, ErrEmptySessionID)
	assert.ErrorIs(t, store.Delete(ctx, ""), ErrEmptySessionID)
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	now := fixedNow
	store := NewMemoryStore(
		WithMemoryTTL(time.Hour),
		WithMemoryClock(func() time.Time { return now }),
	)

	require.NoError(t, store.Save(ctx, "a", suspendedState("a"), 1))
	now = now.Add(30 * time.Minute)
	require.NoError(t, store.Save(ctx, "b", suspendedState("b"), 1))

	now = now.Add(45 * time.Minute)
	_, err := store.Load(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound, "a expired after one hour")

	_, err = store.Load(ctx, "b")
	assert.NoError(t, err, "b is still within its ttl")

	require.NoError(t, store.Save(ctx, "c", suspendedState("c"), 1))
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids)

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 2, store.Prune())
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_ConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const sessions = 32
	var wg sync.WaitGroup
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("sess-%d", i)
			for step := int64(1); step <= 5; step++ {
				assert.NoError(t, store.Save(ctx, id, suspendedState(id), step))
				_, err := store.Load(ctx, id)
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	for i := range sessions {
		id := fmt.Sprintf("sess-%d", i)
		cp, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, cp.State.SessionID)
		assert.Equal(t, int64(5), cp.Step)
	}
}
