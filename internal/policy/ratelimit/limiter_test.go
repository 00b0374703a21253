package ratelimit

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLimiterAllowPerKey(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 0.001, Burst: 2})

	require.True(t, l.Allow("worker-a"))
	require.True(t, l.Allow("worker-a"))
	require.False(t, l.Allow("worker-a"), "burst exhausted")
	require.True(t, l.Allow("worker-b"), "keys have independent buckets")
	require.Equal(t, 2, l.Tracked())
}

func TestLimiterDisabledWhenRateNotPositive(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("worker"))
	}
}

func TestLimiterEmptyKeySharesBucket(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 0.001, Burst: 1})
	require.True(t, l.Allow(""))
	require.False(t, l.Allow("unknown"))
}

func TestLimiterResetsWhenFull(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 1, Burst: 1})
	for i := 0; i < maxKeys; i++ {
		l.Allow(fmt.Sprintf("client-%d", i))
	}
	require.Equal(t, maxKeys, l.Tracked())
	l.Allow("one-more")
	require.Equal(t, 1, l.Tracked())
}
