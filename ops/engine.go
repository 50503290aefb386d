// Package ops implements the operation engine: the three replicated
// operations (insert, remove, setAttributes) applied against a *weave.Weave.
// Engine is grounded on the teacher's CRDT operation handling
// (backend/peer/impl/crdt.go), generalized from the teacher's fixed CRDTOp
// vocabulary to the weave's anchor/tombstone addressing scheme.
package ops

import (
	"sort"

	"weavecore/atomid"
	"weavecore/clock"
	"weavecore/weave"

	"github.com/rs/zerolog"
	"golang.org/x/exp/maps"
)

// InsertRun is a run of characters to be inserted immediately after a single
// anchor atom, all sharing the same attributes.
type InsertRun struct {
	Value      string
	Attributes weave.Attrs
}

// Engine applies ops against a weave, minting ids from a clock.Source and
// logging anything it cannot resolve instead of failing the whole op.
type Engine struct {
	Clock clock.Source
	Log   zerolog.Logger
}

// NewEngine returns an Engine bound to the given clock and logger.
func NewEngine(c clock.Source, log zerolog.Logger) *Engine {
	return &Engine{Clock: c, Log: log}
}

func (e *Engine) warnUnmatched(op string, id atomid.ID) {
	e.Log.Warn().Str("op", op).Str("id", string(id)).Msg("ops: reference id not found in weave")
}

// Insert applies an insert op: ins maps an anchor atom id (live or
// tombstoned) to the run of characters to splice in immediately after it.
// Anchors not found in the weave are logged and skipped; everything else
// applies. The generated ids all share the timestamp parsed from spec.Body;
// within that timestamp each character gets a distinct, monotonically
// increasing sub-sequence suffix, starting one past spec.Body's own suffix (at
// 1 when it has none) so a run's first generated id never collides with the
// op's own originating id.
func (e *Engine) Insert(w *weave.Weave, spec atomid.Spec, ins map[atomid.ID]InsertRun) error {
	ts, seqi, err := atomid.SplitBody(spec.Body)
	if err != nil {
		return err
	}
	seqi++

	remaining := maps.Clone(ins)

	i := 0
	for i < w.Len() && len(remaining) > 0 {
		matchedID, matched := e.findAnchor(w, i, remaining)
		if !matched {
			i++
			continue
		}
		run := remaining[matchedID]
		delete(remaining, matchedID)

		// The run's first generated id is the tie-break threshold: an
		// existing atom sorts closer to the anchor than this run exactly
		// when its id is lexicographically greater than that first id.
		comparisonKey := atomid.New(ts+atomid.EncodeSeq(seqi), spec.Ext)

		j := i + 1
		for j < w.Len() {
			atom, err := w.GetChar(j)
			if err != nil {
				return err
			}
			if !atom.ID.Greater(comparisonKey) {
				break
			}
			j++
		}

		for _, c := range run.Value {
			genBody := ts + atomid.EncodeSeq(seqi)
			seqi++
			genID := atomid.New(genBody, spec.Ext)
			if err := w.InsertChar(j, c, genID, run.Attributes); err != nil {
				return err
			}
			j++
		}
		// Deliberately do not jump to j: position i (the anchor atom
		// itself) hasn't moved, and its tombstone bucket may hold more
		// than one still-unconsumed reference id (spec S4's co-tombstone
		// addressing). Re-examine i before moving on.
	}

	for id := range remaining {
		e.warnUnmatched("insert", id)
	}

	e.Clock.CheckTimestamp(ts)
	return nil
}

func (e *Engine) findAnchor(w *weave.Weave, p int, remaining map[atomid.ID]InsertRun) (atomid.ID, bool) {
	for id := range remaining {
		ok, err := w.MatchesOne(p, id, true)
		if err == nil && ok {
			return id, true
		}
	}
	return atomid.ID(""), false
}

// Remove applies a remove op: rm is the set of live atom ids to tombstone.
// Ids not currently live (already removed, or never existed) are logged and
// skipped. Removals are applied from the highest weave position downward so
// that one deletion's index shift never invalidates another's.
func (e *Engine) Remove(w *weave.Weave, spec atomid.Spec, rm map[atomid.ID]struct{}) error {
	type hit struct {
		id  atomid.ID
		pos int
	}
	hits := make([]hit, 0, len(rm))
	for id := range rm {
		pos := w.IndexOf(id, false)
		if pos < 0 {
			e.warnUnmatched("remove", id)
			continue
		}
		hits = append(hits, hit{id: id, pos: pos})
	}
	sort.Slice(hits, func(a, b int) bool { return hits[a].pos > hits[b].pos })
	for _, h := range hits {
		if err := w.DeleteChar(h.pos); err != nil {
			return err
		}
	}
	if ts, _, err := atomid.SplitBody(spec.Body); err == nil {
		e.Clock.CheckTimestamp(ts)
	}
	return nil
}

// SetAttributes applies a setAttributes op: attrs maps a live atom id to its
// replacement attribute set (last-writer-wins, no merge). Ids not currently
// live are logged and skipped.
func (e *Engine) SetAttributes(w *weave.Weave, spec atomid.Spec, attrs map[atomid.ID]weave.Attrs) error {
	for id, a := range attrs {
		pos := w.IndexOf(id, false)
		if pos < 0 {
			e.warnUnmatched("setAttributes", id)
			continue
		}
		if err := w.SetCharAttr(pos, a); err != nil {
			return err
		}
	}
	if ts, _, err := atomid.SplitBody(spec.Body); err == nil {
		e.Clock.CheckTimestamp(ts)
	}
	return nil
}
