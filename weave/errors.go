package weave

import "golang.org/x/xerrors"

// Sentinel errors for the error kinds from the error handling design: Bounds,
// Base-atom violation, Range ordering, Unknown reference, Configuration.
var (
	ErrBounds     = xerrors.New("weave: position out of bounds")
	ErrBaseAtom   = xerrors.New("weave: base atom cannot be altered")
	ErrRangeOrder = xerrors.New("weave: range end precedes range start")
	ErrUnknownRef = xerrors.New("weave: reference id not found")
	ErrConfig     = xerrors.New("weave: invalid configuration")
)
