package weave

import (
	"weavecore/atomid"

	"golang.org/x/exp/maps"
)

// Bucket is a tombstone bucket: the set of ids that were deleted at a
// position, accumulated onto the atom that absorbed them.
type Bucket map[atomid.ID]struct{}

func newBucket() Bucket {
	return make(Bucket)
}

func (b Bucket) has(id atomid.ID) bool {
	_, ok := b[id]
	return ok
}

func (b Bucket) add(id atomid.ID) {
	b[id] = struct{}{}
}

// merge absorbs other's members into b.
func (b Bucket) merge(other Bucket) {
	for id := range other {
		b[id] = struct{}{}
	}
}

func (b Bucket) clone() Bucket {
	if len(b) == 0 {
		return nil
	}
	out := make(Bucket, len(b))
	for id := range b {
		out[id] = struct{}{}
	}
	return out
}

// Atom is a single character plus its primary id, tombstone bucket, and
// optional attributes. Atoms are owned by the Weave that holds them; callers
// only ever see copies (see Clone), never the live instance.
type Atom struct {
	ID         atomid.ID
	Ch         rune
	DeletedIDs Bucket
	Attrs      Attrs
}

// Clone returns a defensive copy of a, safe to hand to callers without
// exposing the weave's internal bucket or attribute map to mutation.
func (a Atom) Clone() Atom {
	return Atom{
		ID:         a.ID,
		Ch:         a.Ch,
		DeletedIDs: a.DeletedIDs.clone(),
		Attrs:      Attrs(maps.Clone(map[string]any(a.Attrs))),
	}
}

func newBaseAtom() Atom {
	return Atom{ID: atomid.Base, Ch: 0, DeletedIDs: newBucket()}
}
