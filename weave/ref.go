package weave

import "weavecore/atomid"

// CharRef names a position in the weave for the navigation queries: either a
// concrete atom id (live or tombstoned) or the EOF sentinel, "past the last
// live atom".
type CharRef struct {
	id  atomid.ID
	eof bool
}

// Ref wraps an atom id as a CharRef.
func Ref(id atomid.ID) CharRef {
	return CharRef{id: id}
}

// EOF is the sentinel CharRef recognized by the navigation queries.
var EOF = CharRef{eof: true}

// IsEOF reports whether r is the EOF sentinel.
func (r CharRef) IsEOF() bool {
	return r.eof
}

// ID returns the wrapped id. Calling it on the EOF sentinel returns the zero
// id; callers must check IsEOF first.
func (r CharRef) ID() atomid.ID {
	return r.id
}
