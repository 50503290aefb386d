package weave

import (
	"weavecore/atomid"

	"golang.org/x/xerrors"
)

// WrapMode controls how GetCharRelativeTo reconciles an out-of-range
// position.
type WrapMode string

const (
	WrapWrap  WrapMode = "wrap"
	WrapLimit WrapMode = "limit"
	WrapEOF   WrapMode = "eof"
	WrapError WrapMode = "error"
)

// IndexOf returns the first position whose atom matches id, or -1 if none
// does.
func (w *Weave) IndexOf(id atomid.ID, includeDeleted bool) int {
	for p := range w.atoms {
		if ok, _ := w.MatchesOne(p, id, includeDeleted); ok {
			return p
		}
	}
	return -1
}

// GetCharAt is GetChar under the name used by the observable surface.
func (w *Weave) GetCharAt(p int) (Atom, error) {
	return w.GetChar(p)
}

func (w *Weave) refAt(p int) CharRef {
	return Ref(w.atoms[p].ID)
}

// GetCharRelativeTo finds the position of ref (including tombstones, or Len()
// — one past the end — when ref is the EOF sentinel), adds relative, and
// reconciles the result per mode.
func (w *Weave) GetCharRelativeTo(ref CharRef, relative int, mode WrapMode) (CharRef, error) {
	length := w.Len()

	base := length
	if !ref.IsEOF() {
		idx := w.IndexOf(ref.ID(), true)
		if idx < 0 {
			return CharRef{}, xerrors.Errorf("weave: getCharRelativeTo: id %q: %w", ref.ID(), ErrUnknownRef)
		}
		base = idx
	}
	target := base + relative

	switch mode {
	case WrapWrap:
		m := target % length
		if m < 0 {
			m += length
		}
		return w.refAt(m), nil
	case WrapLimit:
		if target < 0 {
			target = 0
		}
		if target > length-1 {
			target = length - 1
		}
		return w.refAt(target), nil
	case WrapEOF:
		if target < 0 {
			target = 0
		}
		if target >= length {
			return EOF, nil
		}
		return w.refAt(target), nil
	case WrapError:
		if target < 0 || target >= length {
			return CharRef{}, xerrors.Errorf("weave: getCharRelativeTo: position %d out of [0,%d): %w", target, length, ErrBounds)
		}
		return w.refAt(target), nil
	default:
		return CharRef{}, xerrors.Errorf("weave: unrecognized wrap mode %q: %w", mode, ErrConfig)
	}
}

// posForRange resolves a CharRef to a position for GetTextRange purposes: EOF
// (and, symmetrically, "omitted") both mean "the last live atom".
func (w *Weave) posForRange(ref CharRef) (int, error) {
	if ref.IsEOF() {
		return w.Len() - 1, nil
	}
	idx := w.IndexOf(ref.ID(), true)
	if idx < 0 {
		return 0, xerrors.Errorf("weave: getTextRange: id %q: %w", ref.ID(), ErrUnknownRef)
	}
	return idx, nil
}

// GetTextRange returns the atoms strictly after from, up to and including to.
// A nil to means "up to the last live atom". from == to (by resolved
// position) yields an empty slice.
func (w *Weave) GetTextRange(from CharRef, to *CharRef) ([]Atom, error) {
	fromIdx, err := w.posForRange(from)
	if err != nil {
		return nil, err
	}
	toIdx := w.Len() - 1
	if to != nil {
		toIdx, err = w.posForRange(*to)
		if err != nil {
			return nil, err
		}
	}
	if toIdx < fromIdx {
		return nil, xerrors.Errorf("weave: getTextRange: to precedes from: %w", ErrRangeOrder)
	}
	if toIdx == fromIdx {
		return []Atom{}, nil
	}
	out := make([]Atom, 0, toIdx-fromIdx)
	for p := fromIdx + 1; p <= toIdx; p++ {
		out = append(out, w.atoms[p].Clone())
	}
	return out, nil
}

func (w *Weave) posForCompare(ref CharRef) (int, error) {
	if ref.IsEOF() {
		return w.Len(), nil
	}
	idx := w.IndexOf(ref.ID(), true)
	if idx < 0 {
		return 0, xerrors.Errorf("weave: compareCharPos: id %q: %w", ref.ID(), ErrUnknownRef)
	}
	return idx, nil
}

// CompareCharPos returns <0, 0, or >0 by weave position; the EOF sentinel
// compares greater than every real atom and equal to itself.
func (w *Weave) CompareCharPos(a, b CharRef) (int, error) {
	pa, err := w.posForCompare(a)
	if err != nil {
		return 0, err
	}
	pb, err := w.posForCompare(b)
	if err != nil {
		return 0, err
	}
	return pa - pb, nil
}
