package atomid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAndAccessors(t *testing.T) {
	id := New("10000", "A")
	require.Equal(t, "10000", id.Body())
	require.Equal(t, "A", id.Source())
	require.Equal(t, ID("10000+A"), id)
}

func TestBaseID(t *testing.T) {
	require.Equal(t, ID("00000+swarm"), Base)
	require.Equal(t, "00000", Base.Body())
	require.Equal(t, BaseSource, Base.Source())
}

func TestLessGreater(t *testing.T) {
	a := New("10000", "A")
	b := New("10000", "B")
	require.True(t, a.Less(b))
	require.True(t, b.Greater(a))
	require.False(t, a.Greater(a))
}

func TestSpecRoundTrip(t *testing.T) {
	id := New("1000Z01", "peerA")
	spec := SpecOf(id)
	require.Equal(t, "1000Z01", spec.Body)
	require.Equal(t, "peerA", spec.Ext)
	require.Equal(t, id, spec.ID())
}

func TestSplitBodyNoSuffix(t *testing.T) {
	ts, seq, err := SplitBody("10000")
	require.NoError(t, err)
	require.Equal(t, "10000", ts)
	require.Equal(t, 0, seq)
}

func TestSplitBodyWithSuffix(t *testing.T) {
	ts, seq, err := SplitBody("1000Z" + EncodeSeq(5))
	require.NoError(t, err)
	require.Equal(t, "1000Z", ts)
	require.Equal(t, 5, seq)
}

func TestSplitBodyRejectsShortBody(t *testing.T) {
	_, _, err := SplitBody("100")
	require.Error(t, err)
}

func TestSplitBodyRejectsMalformedSuffix(t *testing.T) {
	_, _, err := SplitBody("10000x")
	require.Error(t, err)
}

func TestEncodeDecodeTimestampRoundTrip(t *testing.T) {
	for _, n := range []uint64{0, 1, 61, 62, 3843, 1_000_000} {
		enc := EncodeTimestamp(n)
		require.Len(t, enc, tsLen)
		got, err := DecodeTimestamp(enc)
		require.NoError(t, err)
		require.Equal(t, n, got)
	}
}

func TestEncodeSeqRoundTrip(t *testing.T) {
	for n := 0; n < base*base; n += 37 {
		enc := EncodeSeq(n)
		require.Len(t, enc, seqLen)
		got, err := decodeSeq(enc)
		require.NoError(t, err)
		require.Equal(t, n, got)
	}
}

// Fixed-width base-62 encoding must preserve numeric order as string order:
// the concurrent-insertion tie-break depends on comparing generated ids as
// plain strings.
func TestEncodeFixedPreservesOrder(t *testing.T) {
	prev := ""
	for n := uint64(0); n < 200; n++ {
		enc := EncodeTimestamp(n)
		if prev != "" {
			require.True(t, prev < enc, "encoding of %d should sort before encoding of %d", n-1, n)
		}
		prev = enc
	}
}
