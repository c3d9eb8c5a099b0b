package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestGetSetExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string, int](time.Minute, clock.now)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	clock.advance(59 * time.Second)
	_, ok = c.Get("a")
	assert.True(t, ok)

	clock.advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestZeroTTLDisablesCaching(t *testing.T) {
	c := New[string, int](0, nil)
	c.Set("a", 1)
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestGetOrLoad(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := New[string, string](time.Minute, clock.now)

	calls := 0
	load := func() (string, error) {
		calls++
		return "report", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("k", load)
		require.NoError(t, err)
		assert.Equal(t, "report", v)
	}
	assert.Equal(t, 1, calls)

	clock.advance(2 * time.Minute)
	_, err := c.GetOrLoad("k", load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGetOrLoadDropsResultOverlappingPurge(t *testing.T) {
	c := New[string, string](time.Minute, nil)

	v, err := c.GetOrLoad("k", func() (string, error) {
		c.Purge()
		return "stale", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "stale", v)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())

	v, err = c.GetOrLoad("k", func() (string, error) { return "fresh", nil })
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "fresh", got)
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := New[string, int](time.Minute, nil)
	boom := errors.New("db down")

	_, err := c.GetOrLoad("k", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, err := c.GetOrLoad("k", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestPurgeAndSweep(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := New[int, int](time.Minute, clock.now)

	c.Set(1, 1)
	clock.advance(30 * time.Second)
	c.Set(2, 2)
	clock.advance(45 * time.Second)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 1, c.Sweep())
	_, ok := c.Get(2)
	assert.True(t, ok)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}
