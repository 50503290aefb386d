// Package weave implements the ordered atom sequence at the heart of the CRDT:
// per-position tombstone buckets, attribute storage, and the low-level atom
// contract (insert/delete/set-attributes/match) that the operation engine and
// delta bridge build on.
package weave

import (
	"strings"

	"weavecore/atomid"

	"golang.org/x/xerrors"
)

// Weave is the ordered sequence of atoms held by a single replica. The zero
// value is not usable; construct with New.
type Weave struct {
	atoms []Atom
}

// New returns a weave containing only the fixed base atom.
func New() *Weave {
	return &Weave{atoms: []Atom{newBaseAtom()}}
}

// Len returns the number of live atoms, always ≥ 1 (the base atom).
func (w *Weave) Len() int {
	return len(w.atoms)
}

func (w *Weave) bounds(p int) error {
	if p < 0 || p >= len(w.atoms) {
		return xerrors.Errorf("weave: position %d out of [0,%d): %w", p, len(w.atoms), ErrBounds)
	}
	return nil
}

// GetChar returns a defensive copy of the atom at position p.
func (w *Weave) GetChar(p int) (Atom, error) {
	if err := w.bounds(p); err != nil {
		return Atom{}, err
	}
	return w.atoms[p].Clone(), nil
}

// raw returns the live atom at p without copying, for internal use only.
func (w *Weave) raw(p int) *Atom {
	return &w.atoms[p]
}

// InsertChar splices a fresh atom at position p (1 ≤ p ≤ Len()), with
// normalized attrs and an empty tombstone bucket.
func (w *Weave) InsertChar(p int, ch rune, id atomid.ID, attrs Attrs) error {
	if p < 1 || p > len(w.atoms) {
		return xerrors.Errorf("weave: insert position %d out of [1,%d]: %w", p, len(w.atoms), ErrBounds)
	}
	if w.contains(id) {
		return xerrors.Errorf("weave: id %q already present: %w", id, ErrConfig)
	}
	atom := Atom{ID: id, Ch: ch, DeletedIDs: newBucket(), Attrs: Normalize(attrs)}
	w.atoms = append(w.atoms, Atom{})
	copy(w.atoms[p+1:], w.atoms[p:])
	w.atoms[p] = atom
	return nil
}

// DeleteChar removes the atom at position p (1 ≤ p < Len()), merging its id
// and its own bucket into the bucket of the preceding atom.
func (w *Weave) DeleteChar(p int) error {
	if p < 1 || p >= len(w.atoms) {
		return xerrors.Errorf("weave: delete position %d out of [1,%d): %w", p, len(w.atoms), ErrBounds)
	}
	removed := w.atoms[p]
	pred := w.raw(p - 1)
	if pred.DeletedIDs == nil {
		pred.DeletedIDs = newBucket()
	}
	pred.DeletedIDs.add(removed.ID)
	pred.DeletedIDs.merge(removed.DeletedIDs)
	w.atoms = append(w.atoms[:p], w.atoms[p+1:]...)
	return nil
}

// SetCharAttr replaces the attrs of the atom at position p (1 ≤ p < Len())
// wholesale with normalize(clone(attrs)).
func (w *Weave) SetCharAttr(p int, attrs Attrs) error {
	if p == 0 {
		return xerrors.Errorf("weave: cannot set attributes on the base atom: %w", ErrBaseAtom)
	}
	if p < 0 || p >= len(w.atoms) {
		return xerrors.Errorf("weave: set-attr position %d out of [0,%d): %w", p, len(w.atoms), ErrBounds)
	}
	w.raw(p).Attrs = Clone(attrs)
	return nil
}

func (w *Weave) contains(id atomid.ID) bool {
	return w.IndexOf(id, true) >= 0
}

// MatchesOne reports whether the atom at p has primary id equal to id, or
// (when includeDeleted) id is a member of its tombstone bucket.
func (w *Weave) MatchesOne(p int, id atomid.ID, includeDeleted bool) (bool, error) {
	if err := w.bounds(p); err != nil {
		return false, err
	}
	a := w.raw(p)
	if a.ID == id {
		return true, nil
	}
	if includeDeleted && a.DeletedIDs.has(id) {
		return true, nil
	}
	return false, nil
}

// MatchesAny reports whether the atom at p's primary id is in ids, or (when
// includeDeleted) its tombstone bucket intersects ids.
func (w *Weave) MatchesAny(p int, ids map[atomid.ID]struct{}, includeDeleted bool) (bool, error) {
	if err := w.bounds(p); err != nil {
		return false, err
	}
	a := w.raw(p)
	if _, ok := ids[a.ID]; ok {
		return true, nil
	}
	if includeDeleted {
		for id := range a.DeletedIDs {
			if _, ok := ids[id]; ok {
				return true, nil
			}
		}
	}
	return false, nil
}

// MatchCountOne returns 1 if id hits the primary id or (when includeDeleted)
// the bucket, 0 otherwise. (It never returns 2: a given id cannot be both
// live and tombstoned per the weave's uniqueness invariant.)
func (w *Weave) MatchCountOne(p int, id atomid.ID, includeDeleted bool) (int, error) {
	ok, err := w.MatchesOne(p, id, includeDeleted)
	if err != nil {
		return 0, err
	}
	if ok {
		return 1, nil
	}
	return 0, nil
}

// MatchCountAny returns the number of ids from ids that hit the primary id (0
// or 1) plus, when includeDeleted, the size of the bucket/ids intersection.
func (w *Weave) MatchCountAny(p int, ids map[atomid.ID]struct{}, includeDeleted bool) (int, error) {
	if err := w.bounds(p); err != nil {
		return 0, err
	}
	a := w.raw(p)
	count := 0
	if _, ok := ids[a.ID]; ok {
		count++
	}
	if includeDeleted {
		for id := range a.DeletedIDs {
			if _, ok := ids[id]; ok {
				count++
			}
		}
	}
	return count, nil
}

// Text returns the concatenation of Ch over all live atoms (the base atom
// contributes nothing, its Ch is the zero rune).
func (w *Weave) Text() string {
	var b strings.Builder
	for i := 1; i < len(w.atoms); i++ {
		b.WriteRune(w.atoms[i].Ch)
	}
	return b.String()
}
