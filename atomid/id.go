// Package atomid implements the atom id wire format from the data model: a
// Lamport-style timestamp paired with a replica (source) identifier, encoded as
// "TTTTT+SRC" or "TTTTTss+SRC" when a sub-sequence suffix is present.
package atomid

import (
	"strings"

	"golang.org/x/xerrors"
)

// ID is an atom id, compared lexicographically as a string throughout the core.
type ID string

// BaseSource is the fixed source of the weave's base atom.
const BaseSource = "swarm"

// Base is the id of the fixed base atom: "00000+swarm".
const Base ID = "00000" + sep + BaseSource

const sep = "+"

// New builds an id from a body (timestamp, optionally with a 2-char
// sub-sequence suffix) and a source.
func New(body, source string) ID {
	return ID(body + sep + source)
}

// Body returns the timestamp portion (everything before the last "+").
func (id ID) Body() string {
	s := string(id)
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s
	}
	return s[:i]
}

// Source returns the replica portion (everything after the last "+").
func (id ID) Source() string {
	s := string(id)
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return ""
	}
	return s[i+len(sep):]
}

// Less reports whether id sorts strictly before other, lexicographically as
// strings — the order the concurrent-insertion tie-break and convergence rely
// on.
func (id ID) Less(other ID) bool {
	return string(id) < string(other)
}

// Greater reports whether id sorts strictly after other.
func (id ID) Greater(other ID) bool {
	return string(id) > string(other)
}

// Spec is the op spec carrying the (body, ext) parts of the originating atom
// id — enough to reconstruct ids generated while applying an op.
type Spec struct {
	Body string // timestamp portion, "TTTTT" or "TTTTTss"
	Ext  string // source portion
}

// ID reconstructs the full atom id this spec was derived from.
func (s Spec) ID() ID {
	return New(s.Body, s.Ext)
}

// SpecOf splits an id into the op spec addressing it.
func SpecOf(id ID) Spec {
	return Spec{Body: id.Body(), Ext: id.Source()}
}

const tsLen = 5
const seqLen = 2

// SplitBody parses a body into its fixed-width timestamp and optional 2-char
// sub-sequence suffix, per §4.2 step 1. A missing suffix decodes as seq 0.
func SplitBody(body string) (ts string, seq int, err error) {
	if len(body) < tsLen {
		return "", 0, xerrors.Errorf("atomid: body %q shorter than timestamp width %d", body, tsLen)
	}
	ts = body[:tsLen]
	rest := body[tsLen:]
	if rest == "" {
		return ts, 0, nil
	}
	if len(rest) != seqLen {
		return "", 0, xerrors.Errorf("atomid: body %q has malformed sub-sequence suffix %q", body, rest)
	}
	seq, err = decodeSeq(rest)
	if err != nil {
		return "", 0, xerrors.Errorf("atomid: decoding sub-sequence suffix of %q: %w", body, err)
	}
	return ts, seq, nil
}

// alphabet is ordered to match ASCII/string comparison order (digits, then
// uppercase, then lowercase), so that for a fixed encoding width, numeric
// order and lexicographic string order of the encoded form coincide.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
const base = len(alphabet)

// encodeFixed renders n as a fixed-width base-62 string, most significant
// digit first.
func encodeFixed(n uint64, width int) string {
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = alphabet[n%uint64(base)]
		n /= uint64(base)
	}
	return string(buf)
}

func decodeFixed(s string) (uint64, error) {
	var n uint64
	for _, c := range s {
		idx := strings.IndexRune(alphabet, c)
		if idx < 0 {
			return 0, xerrors.Errorf("atomid: invalid base-62 character %q", c)
		}
		n = n*uint64(base) + uint64(idx)
	}
	return n, nil
}

// EncodeSeq renders a non-negative sub-sequence counter as the fixed
// 2-character suffix appended to a timestamp within a single tick's run of
// generated ids.
func EncodeSeq(n int) string {
	return encodeFixed(uint64(n), seqLen)
}

func decodeSeq(s string) (int, error) {
	if len(s) != seqLen {
		return 0, xerrors.Errorf("atomid: sub-sequence suffix must be %d characters, got %q", seqLen, s)
	}
	n, err := decodeFixed(s)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// EncodeTimestamp renders a monotonic counter as the fixed 5-character
// timestamp body a ClockSource hands out.
func EncodeTimestamp(n uint64) string {
	return encodeFixed(n, tsLen)
}

// DecodeTimestamp parses a 5-character timestamp body back into its counter
// value.
func DecodeTimestamp(s string) (uint64, error) {
	if len(s) != tsLen {
		return 0, xerrors.Errorf("atomid: timestamp must be %d characters, got %q", tsLen, s)
	}
	return decodeFixed(s)
}
