// Package replica wires weave.Weave, ops.Engine, the delta bridge,
// clock.Source and replication.Replication into the single stateful façade a
// caller interacts with: Replica. Grounded on the teacher's node/NewPeer
// construction (backend/peer/impl/impl.go) — a Configuration struct handed
// to a constructor, a zerolog.Logger sliced out for this concern, everything
// else built fresh and stitched onto the returned value.
package replica

import (
	"io"
	"os"
	"time"

	"weavecore/atomid"
	"weavecore/clock"
	"weavecore/delta"
	"weavecore/ops"
	"weavecore/replication"
	"weavecore/weave"

	"github.com/rs/zerolog"
	"golang.org/x/xerrors"
)

// Configuration carries the externally supplied collaborators spec.md §2
// names: the replica's own source/replica id, its clock, and the
// replication channel it broadcasts applied ops over.
type Configuration struct {
	// Source identifies this replica in every atom id it mints.
	Source string
	// Clock mints and folds in timestamps. Defaults to clock.New() if nil.
	Clock clock.Source
	// Replication broadcasts locally applied op specs (encoded by the
	// caller) and delivers remote ones. Defaults to a fresh
	// replication.Hub if nil.
	Replication replication.Replication
	// Log receives structured per-op tracing. A nil Log defaults to a
	// console writer at info level, matching the teacher's own
	// newLogger default.
	Log *zerolog.Logger
}

var consoleOut = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger().Level(level)
}

// Replica is the stateful façade: a weave, the engine that mutates it, and
// the collaborators needed to mint ids and exchange ops.
type Replica struct {
	source string
	clock  clock.Source
	repl   replication.Replication
	log    zerolog.Logger

	weave  *weave.Weave
	engine *ops.Engine

	// opSeq is a per-replica monotonically increasing counter surfaced in
	// log entries for tracing one applied op across Insert/Remove/
	// SetAttributes calls. It plays no role in CRDT convergence, which is
	// governed entirely by atom id comparison.
	opSeq uint64
}

// New returns a Replica over a fresh weave (containing only the base atom).
func New(conf Configuration) *Replica {
	if conf.Clock == nil {
		conf.Clock = clock.New()
	}
	log := newLogger(consoleOut, zerolog.InfoLevel)
	if conf.Log != nil {
		log = *conf.Log
	}
	if conf.Replication == nil {
		conf.Replication = replication.NewHub(log)
	}

	r := &Replica{
		source: conf.Source,
		clock:  conf.Clock,
		repl:   conf.Replication,
		log:    log,
		weave:  weave.New(),
	}
	r.engine = ops.NewEngine(r.clock, r.log)
	return r
}

func (r *Replica) nextSpec() atomid.Spec {
	return atomid.Spec{Body: r.clock.NewTimestamp(), Ext: r.source}
}

func (r *Replica) traceOp(kind string, spec atomid.Spec) {
	r.opSeq++
	r.log.Debug().
		Uint64("opSeq", r.opSeq).
		Str("kind", kind).
		Str("ts", spec.Body).
		Str("source", spec.Ext).
		Msg("replica: applying op")
}

// Insert applies a local insert against the replica's own weave, minting a
// fresh op spec from its clock, and returns the spec so the caller can
// broadcast it (e.g. via DeltaFromInsert) to other replicas.
func (r *Replica) Insert(ins map[atomid.ID]ops.InsertRun) (atomid.Spec, error) {
	spec := r.nextSpec()
	r.traceOp("insert", spec)
	if err := r.engine.Insert(r.weave, spec, ins); err != nil {
		return spec, xerrors.Errorf("replica: insert: %w", err)
	}
	return spec, nil
}

// Remove applies a local remove against the replica's own weave.
func (r *Replica) Remove(rm map[atomid.ID]struct{}) (atomid.Spec, error) {
	spec := r.nextSpec()
	r.traceOp("remove", spec)
	if err := r.engine.Remove(r.weave, spec, rm); err != nil {
		return spec, xerrors.Errorf("replica: remove: %w", err)
	}
	return spec, nil
}

// SetAttributes applies a local setAttributes against the replica's own
// weave.
func (r *Replica) SetAttributes(attrs map[atomid.ID]weave.Attrs) (atomid.Spec, error) {
	spec := r.nextSpec()
	r.traceOp("setAttributes", spec)
	if err := r.engine.SetAttributes(r.weave, spec, attrs); err != nil {
		return spec, xerrors.Errorf("replica: setAttributes: %w", err)
	}
	return spec, nil
}

// ApplyRemoteInsert applies an insert op received with its originating spec
// (from a remote replica via Replication), rather than minting a fresh one.
func (r *Replica) ApplyRemoteInsert(spec atomid.Spec, ins map[atomid.ID]ops.InsertRun) error {
	r.traceOp("remote-insert", spec)
	return r.engine.Insert(r.weave, spec, ins)
}

// ApplyRemoteRemove mirrors ApplyRemoteInsert for a remove op.
func (r *Replica) ApplyRemoteRemove(spec atomid.Spec, rm map[atomid.ID]struct{}) error {
	r.traceOp("remote-remove", spec)
	return r.engine.Remove(r.weave, spec, rm)
}

// ApplyRemoteSetAttributes mirrors ApplyRemoteInsert for a setAttributes op.
func (r *Replica) ApplyRemoteSetAttributes(spec atomid.Spec, attrs map[atomid.ID]weave.Attrs) error {
	r.traceOp("remote-setAttributes", spec)
	return r.engine.SetAttributes(r.weave, spec, attrs)
}

// Text returns the replica's current text.
func (r *Replica) Text() string { return r.weave.Text() }

// Len returns the replica's current weave length (including the base atom).
func (r *Replica) Len() int { return r.weave.Len() }

// GetCharAt returns the atom at position p.
func (r *Replica) GetCharAt(p int) (weave.Atom, error) { return r.weave.GetChar(p) }

// IndexOf returns the first position whose atom matches id.
func (r *Replica) IndexOf(id atomid.ID, includeDeleted bool) int {
	return r.weave.IndexOf(id, includeDeleted)
}

// GetTextRange returns the atoms strictly after from, up to and including to.
func (r *Replica) GetTextRange(from weave.CharRef, to *weave.CharRef) ([]weave.Atom, error) {
	return r.weave.GetTextRange(from, to)
}

// GetCharRelativeTo resolves ref, adds relative, and reconciles per mode.
func (r *Replica) GetCharRelativeTo(ref weave.CharRef, relative int, mode weave.WrapMode) (weave.CharRef, error) {
	return r.weave.GetCharRelativeTo(ref, relative, mode)
}

// CompareCharPos compares two positions by weave order.
func (r *Replica) CompareCharPos(a, b weave.CharRef) (int, error) {
	return r.weave.CompareCharPos(a, b)
}

// DeltaFromInsert reconstructs the delta describing an insert op already
// applied to this replica's weave.
func (r *Replica) DeltaFromInsert(ins map[atomid.ID]ops.InsertRun) ([]delta.Record, error) {
	return delta.FromInsert(r.weave, ins)
}

// DeltaFromRemove reconstructs the delta describing a remove op already
// applied to this replica's weave.
func (r *Replica) DeltaFromRemove(rm map[atomid.ID]struct{}) []delta.Record {
	return delta.FromRemove(r.weave, rm)
}

// ApplyDelta applies an OT-style delta against this replica's weave, minting
// a fresh local op spec.
func (r *Replica) ApplyDelta(records []delta.Record) error {
	spec := r.nextSpec()
	r.traceOp("delta", spec)
	return delta.ApplyDelta(r.engine, r.weave, spec, records)
}

// InsertCharsAt inserts value (with attrs applied to every character)
// immediately after the atom named by after.
func (r *Replica) InsertCharsAt(after atomid.ID, value string, attrs weave.Attrs) (atomid.Spec, error) {
	return r.Insert(map[atomid.ID]ops.InsertRun{after: {Value: value, Attributes: attrs}})
}

// RmChars removes the given set of atom ids.
func (r *Replica) RmChars(chars map[atomid.ID]struct{}) (atomid.Spec, error) {
	return r.Remove(chars)
}

// Set replaces the replica's entire text: it removes every currently live
// character (anchored from the base atom) and inserts newText in its place,
// applied as a single local op spec so the two halves share one timestamp.
func (r *Replica) Set(newText string, attrs weave.Attrs) error {
	atoms, err := r.weave.GetTextRange(weave.Ref(atomid.Base), nil)
	if err != nil {
		return xerrors.Errorf("replica: set: %w", err)
	}
	rm := make(map[atomid.ID]struct{}, len(atoms))
	for _, a := range atoms {
		rm[a.ID] = struct{}{}
	}

	spec := r.nextSpec()
	r.traceOp("set", spec)
	if err := r.engine.Remove(r.weave, spec, rm); err != nil {
		return xerrors.Errorf("replica: set: %w", err)
	}
	ins := map[atomid.ID]ops.InsertRun{atomid.Base: {Value: newText, Attributes: attrs}}
	if err := r.engine.Insert(r.weave, spec, ins); err != nil {
		return xerrors.Errorf("replica: set: %w", err)
	}
	return nil
}

// AddMark merges key:value into the current attribute set of every live id
// in ids, then applies the merged result as a single
// setAttributes op. Sugar over ops.SetAttributes, not a second CRDT: the
// merge-then-replace is exactly what spec.md already requires callers to do
// for "old + new" attribute merging.
func (r *Replica) AddMark(ids map[atomid.ID]struct{}, key string, value any) (atomid.Spec, error) {
	return r.mergeMark(ids, key, value)
}

// RemoveMark clears key from the current attribute set of every live id in
// ids, then applies the result as a single setAttributes op.
func (r *Replica) RemoveMark(ids map[atomid.ID]struct{}, key string) (atomid.Spec, error) {
	return r.mergeMark(ids, key, nil)
}

func (r *Replica) mergeMark(ids map[atomid.ID]struct{}, key string, value any) (atomid.Spec, error) {
	attrs := make(map[atomid.ID]weave.Attrs, len(ids))
	for id := range ids {
		pos := r.weave.IndexOf(id, false)
		if pos < 0 {
			continue
		}
		atom, err := r.weave.GetChar(pos)
		if err != nil {
			return atomid.Spec{}, err
		}
		merged := weave.Clone(atom.Attrs)
		if merged == nil {
			merged = weave.Attrs{}
		}
		if value == nil {
			delete(merged, key)
		} else {
			merged[key] = value
		}
		attrs[id] = merged
	}
	return r.SetAttributes(attrs)
}
