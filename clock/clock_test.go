package clock

import (
	"sync"
	"testing"

	"weavecore/atomid"

	"github.com/stretchr/testify/require"
)

func TestNewTimestampMonotonic(t *testing.T) {
	c := New()
	prev := c.NewTimestamp()
	for i := 0; i < 50; i++ {
		ts := c.NewTimestamp()
		require.True(t, prev < ts)
		prev = ts
	}
}

func TestCheckTimestampRaisesHighWaterMark(t *testing.T) {
	c := New()
	require.Equal(t, uint64(0), c.Step())

	c.CheckTimestamp(atomid.EncodeTimestamp(500))
	require.Equal(t, uint64(500), c.Step())

	// A lower observed timestamp never lowers the mark.
	c.CheckTimestamp(atomid.EncodeTimestamp(10))
	require.Equal(t, uint64(500), c.Step())

	next := c.NewTimestamp()
	n, err := atomid.DecodeTimestamp(next)
	require.NoError(t, err)
	require.Greater(t, n, uint64(500))
}

func TestCheckTimestampIgnoresMalformedInput(t *testing.T) {
	c := New()
	c.CheckTimestamp("not-a-timestamp")
	require.Equal(t, uint64(0), c.Step())
}

func TestConcurrentNewTimestampNeverRepeats(t *testing.T) {
	c := New()
	const n = 200
	seen := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- c.NewTimestamp()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[string]struct{}, n)
	for ts := range seen {
		unique[ts] = struct{}{}
	}
	require.Len(t, unique, n)
}
