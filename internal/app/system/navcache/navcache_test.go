package navcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func countingLoader(calls *int, value []string) func(context.Context) ([]string, error) {
	return func(context.Context) ([]string, error) {
		*calls++
		return value, nil
	}
}

func TestFetch_ReusesValueWithinTTL(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := New(nil, nil, WithClock(clk.Now))
	calls := 0
	load := countingLoader(&calls, []string{"shoes", "bags"})

	v, err := Fetch(ctx, c, "categories", load)
	require.NoError(t, err)
	assert.Equal(t, []string{"shoes", "bags"}, v)
	assert.Equal(t, 1, calls)

	clk.Advance(4*time.Minute + 59*time.Second)
	v, err = Fetch(ctx, c, "categories", load)
	require.NoError(t, err)
	assert.Equal(t, []string{"shoes", "bags"}, v)
	assert.Equal(t, 1, calls, "second fetch within TTL must not call the loader")
}

func TestFetch_RefetchesAfterTTL(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := New(nil, nil, WithClock(clk.Now))
	calls := 0
	load := countingLoader(&calls, []string{"summer"})

	_, err := Fetch(ctx, c, "collections", load)
	require.NoError(t, err)

	clk.Advance(5*time.Minute + time.Second)
	_, err = Fetch(ctx, c, "collections", load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestFetch_KeysHaveIndependentTimestamps(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := New(nil, nil, WithClock(clk.Now))
	catCalls, colCalls := 0, 0

	_, _ = Fetch(ctx, c, "categories", countingLoader(&catCalls, nil))
	clk.Advance(3 * time.Minute)
	_, _ = Fetch(ctx, c, "collections", countingLoader(&colCalls, nil))
	clk.Advance(3 * time.Minute)

	_, _ = Fetch(ctx, c, "categories", countingLoader(&catCalls, nil))
	_, _ = Fetch(ctx, c, "collections", countingLoader(&colCalls, nil))

	assert.Equal(t, 2, catCalls, "categories are 6m old and must reload")
	assert.Equal(t, 1, colCalls, "collections are 3m old and must be reused")
}

func TestFetch_LoaderErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	c := New(nil, nil)
	boom := errors.New("db down")

	_, err := Fetch(ctx, c, "categories", func(context.Context) ([]string, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	calls := 0
	_, err = Fetch(ctx, c, "categories", countingLoader(&calls, []string{"x"}))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	c := New(nil, nil)
	calls := 0
	load := countingLoader(&calls, []string{"x"})

	_, _ = Fetch(ctx, c, "categories", load)
	require.NoError(t, c.Invalidate(ctx, "categories"))
	_, _ = Fetch(ctx, c, "categories", load)

	assert.Equal(t, 2, calls)
}

func TestWithTTL(t *testing.T) {
	c := New(nil, nil, WithTTL(time.Minute))
	assert.Equal(t, time.Minute, c.TTL())
	assert.True(t, c.Stale(time.Time{}))
}
