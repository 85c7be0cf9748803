package dedup

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObserveNewThenSeen(t *testing.T) {
	r, err := New(4)
	require.NoError(t, err)

	require.Equal(t, WasNew, r.Observe([]byte("a")))
	require.Equal(t, WasSeen, r.Observe([]byte("a")))
	require.Equal(t, WasNew, r.Observe([]byte("b")))
}

func TestEvictionAtCapacity(t *testing.T) {
	r, err := New(2)
	require.NoError(t, err)

	require.Equal(t, WasNew, r.Observe([]byte("a")))
	require.Equal(t, WasNew, r.Observe([]byte("b")))
	require.Equal(t, WasNew, r.Observe([]byte("c"))) // evicts "a"

	require.Equal(t, WasNew, r.Observe([]byte("a")), "a should have been evicted")
	require.Equal(t, WasSeen, r.Observe([]byte("c")))
}

func TestWithinCapacityWindowAlwaysSeen(t *testing.T) {
	r, err := New(1000)
	require.NoError(t, err)

	require.Equal(t, WasNew, r.Observe([]byte("dup")))
	for i := 0; i < 998; i++ {
		r.Observe([]byte(fmt.Sprintf("filler-%d", i)))
	}
	require.Equal(t, WasSeen, r.Observe([]byte("dup")))
}
