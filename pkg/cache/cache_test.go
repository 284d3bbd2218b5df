package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Region string    `json:"region"`
	Values []float64 `json:"values"`
}

func TestMemoryCache_TypedRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	in := payload{Region: "Indore", Values: []float64{0.1, 0.2}}
	require.NoError(t, mc.Set(ctx, "k", in, time.Minute))

	var out payload
	require.NoError(t, mc.Get(ctx, "k", &out))
	assert.Equal(t, in, out)

	var s string
	require.NoError(t, mc.Set(ctx, "s", "plain", 0))
	require.NoError(t, mc.Get(ctx, "s", &s))
	assert.Equal(t, "plain", s)
}

func TestMemoryCache_MissAndExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	var out payload
	assert.ErrorIs(t, mc.Get(ctx, "absent", &out), ErrCacheMiss)

	require.NoError(t, mc.Set(ctx, "short", payload{}, time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	assert.ErrorIs(t, mc.Get(ctx, "short", &out), ErrCacheMiss)

	ok, err := mc.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_EvictsAtCapacity(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	require.NoError(t, mc.Set(ctx, "b", 2, 0))
	require.NoError(t, mc.Set(ctx, "c", 3, 0))
	assert.Equal(t, 2, mc.Len())

	require.NoError(t, mc.Set(ctx, "c", 4, 0))
	assert.Equal(t, 2, mc.Len())
}

func TestLayeredCache_ReadsThroughRemote(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote, WithLayeredMemoryTTL(time.Minute))
	defer lc.Close()

	require.NoError(t, remote.Set(ctx, "fit", payload{Region: "Sagar"}, 0))

	var out payload
	require.NoError(t, lc.Get(ctx, "fit", &out))
	assert.Equal(t, "Sagar", out.Region)

	require.NoError(t, remote.Delete(ctx, "fit"))
	out = payload{}
	require.NoError(t, lc.Get(ctx, "fit", &out), "second read is served from L1")
	assert.Equal(t, "Sagar", out.Region)

	require.NoError(t, lc.Set(ctx, "new", payload{Region: "Guna"}, time.Hour))
	ok, err := remote.Exists(ctx, "new")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, lc.Delete(ctx, "new"))
	assert.ErrorIs(t, lc.Get(ctx, "new", &out), ErrCacheMiss)
}

func TestFingerprint(t *testing.T) {
	d := []time.Time{time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)}

	a := Fingerprint(d, []float64{0.1, 0.2})
	assert.Equal(t, a, Fingerprint(d, []float64{0.1, 0.2}))
	assert.NotEqual(t, a, Fingerprint(d, []float64{0.1, 0.2000001}))
	assert.NotEqual(t, a, Fingerprint(d[:1], []float64{0.1}))
	assert.Len(t, a, 16)
}

func TestGenerateKeyWithParams(t *testing.T) {
	assert.Equal(t, "fit:soybean-mp:Indore:abc", GenerateKeyWithParams("fit", "soybean-mp", "Indore", "abc"))
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	require.NoError(t, mc.Set(ctx, "b", 2, 0))

	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	require.NoError(t, mc.Set(ctx, "c", 3, 0))

	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &v))
	assert.Equal(t, 1, v)
}
