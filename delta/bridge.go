package delta

import (
	"sort"
	"unicode/utf8"

	"weavecore/atomid"
	"weavecore/ops"
	"weavecore/weave"

	"golang.org/x/xerrors"
)

func atomIDAt(w *weave.Weave, p int) (atomid.ID, error) {
	atom, err := w.GetChar(p)
	if err != nil {
		return "", xerrors.Errorf("delta: atom_id_at(%d): %w", p, err)
	}
	return atom.ID, nil
}

// ApplyDelta walks records, collecting a single ins map and a single rm map
// against the weave's state before either has taken effect, then applies
// remove before insert through the engine so insert anchors still resolve
// to live or freshly tombstoned ids.
func ApplyDelta(e *ops.Engine, w *weave.Weave, spec atomid.Spec, records []Record) error {
	ins := make(map[atomid.ID]ops.InsertRun)
	rm := make(map[atomid.ID]struct{})

	cursor := 1
	for _, r := range records {
		switch r.Kind {
		case KindRetain:
			cursor += r.Retain
		case KindInsert:
			anchor, err := atomIDAt(w, cursor-1)
			if err != nil {
				return err
			}
			ins[anchor] = ops.InsertRun{Value: r.Insert, Attributes: r.Attributes}
		case KindDelete:
			for j := 0; j < r.Delete; j++ {
				id, err := atomIDAt(w, cursor+j)
				if err != nil {
					return err
				}
				rm[id] = struct{}{}
			}
			cursor += r.Delete
		default:
			return xerrors.Errorf("delta: unrecognized record kind %q", r.Kind)
		}
	}

	if err := e.Remove(w, spec, rm); err != nil {
		return err
	}
	return e.Insert(w, spec, ins)
}

// FromInsert is called after ins has been applied via Engine.Insert. It
// reconstructs the delta an editor should apply to mirror the remote insert:
// a retain/insert pair per anchor, in weave order, stopping once every
// anchor from the op has been accounted for.
func FromInsert(w *weave.Weave, ins map[atomid.ID]ops.InsertRun) ([]Record, error) {
	type item struct {
		pos int
		run ops.InsertRun
	}
	items := make([]item, 0, len(ins))
	for id, run := range ins {
		pos := w.IndexOf(id, true)
		if pos < 0 {
			return nil, xerrors.Errorf("delta: fromInsert: anchor %q: %w", id, weave.ErrUnknownRef)
		}
		items = append(items, item{pos: pos, run: run})
	}
	sort.Slice(items, func(a, b int) bool { return items[a].pos < items[b].pos })

	var records []Record
	cursor := 1
	subtracted := 0
	for _, it := range items {
		oldPos := it.pos - subtracted
		if gap := oldPos - (cursor - 1); gap > 0 {
			records = append(records, RetainRecord(gap))
			cursor += gap
		}
		records = append(records, InsertRecord(it.run.Value, it.run.Attributes))
		subtracted += utf8.RuneCountInString(it.run.Value)
	}
	return records, nil
}

// FromRemove is called after rm has been applied via Engine.Remove. It scans
// weave positions for tombstone-bucket hits against rm's ids and emits a
// retain/delete pair per surviving atom that absorbed some of them, stopping
// once every id in rm has been accounted for.
func FromRemove(w *weave.Weave, rm map[atomid.ID]struct{}) []Record {
	var records []Record
	cursor := 1
	matched := 0
	target := len(rm)

	for p := 0; p < w.Len() && matched < target; p++ {
		count, err := w.MatchCountAny(p, rm, true)
		if err != nil || count == 0 {
			continue
		}
		if p >= 1 {
			if gap := p - (cursor - 1); gap > 0 {
				records = append(records, RetainRecord(gap))
			}
			cursor = p + 1
		}
		records = append(records, DeleteRecord(count))
		matched += count
	}
	return records
}
