package replica

import (
	"testing"

	"weavecore/atomid"
	"weavecore/delta"
	"weavecore/ops"
	"weavecore/weave"

	"github.com/stretchr/testify/require"
)

func TestInsertCharsAtAndText(t *testing.T) {
	r := New(Configuration{Source: "A"})
	_, err := r.InsertCharsAt(atomid.Base, "Hi", nil)
	require.NoError(t, err)
	require.Equal(t, "Hi", r.Text())
}

func TestSetReplacesText(t *testing.T) {
	r := New(Configuration{Source: "A"})
	_, err := r.InsertCharsAt(atomid.Base, "old", nil)
	require.NoError(t, err)

	require.NoError(t, r.Set("new", nil))
	require.Equal(t, "new", r.Text())
}

func TestTwoReplicasConvergeViaDeltaRoundTrip(t *testing.T) {
	a := New(Configuration{Source: "A"})
	b := New(Configuration{Source: "B"})

	ins := map[atomid.ID]ops.InsertRun{atomid.Base: {Value: "Hi"}}
	spec, err := a.Insert(ins)
	require.NoError(t, err)

	records, err := a.DeltaFromInsert(ins)
	require.NoError(t, err)

	err = delta.ApplyDelta(b.engine, b.weave, spec, records)
	require.NoError(t, err)

	require.Equal(t, a.Text(), b.Text())
}

func TestAddMarkThenRemoveMark(t *testing.T) {
	r := New(Configuration{Source: "A"})
	_, err := r.InsertCharsAt(atomid.Base, "a", nil)
	require.NoError(t, err)

	atom, err := r.GetCharAt(1)
	require.NoError(t, err)
	ids := map[atomid.ID]struct{}{atom.ID: {}}

	_, err = r.AddMark(ids, "bold", true)
	require.NoError(t, err)
	atom, err = r.GetCharAt(1)
	require.NoError(t, err)
	require.Equal(t, weave.Attrs{"bold": true}, atom.Attrs)

	_, err = r.RemoveMark(ids, "bold")
	require.NoError(t, err)
	atom, err = r.GetCharAt(1)
	require.NoError(t, err)
	require.Nil(t, atom.Attrs)
}

func TestRmCharsRemovesByID(t *testing.T) {
	r := New(Configuration{Source: "A"})
	_, err := r.InsertCharsAt(atomid.Base, "abc", nil)
	require.NoError(t, err)

	atomB, err := r.GetCharAt(2)
	require.NoError(t, err)

	_, err = r.RmChars(map[atomid.ID]struct{}{atomB.ID: {}})
	require.NoError(t, err)
	require.Equal(t, "ac", r.Text())
}

func TestGetCharRelativeToThroughReplica(t *testing.T) {
	r := New(Configuration{Source: "A"})
	_, err := r.InsertCharsAt(atomid.Base, "abc", nil)
	require.NoError(t, err)

	ref, err := r.GetCharRelativeTo(weave.EOF, -1, weave.WrapLimit)
	require.NoError(t, err)
	atom, err := r.GetCharAt(r.IndexOf(ref.ID(), true))
	require.NoError(t, err)
	require.Equal(t, 'c', atom.Ch)
}
