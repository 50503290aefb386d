package weave

import "golang.org/x/exp/maps"

// Attrs is a per-atom attribute map: attribute name to non-empty value.
type Attrs map[string]any

// isFalsy mirrors the host-language "falsy" test the normalization rule is
// written against: absent, empty string, zero number, or false.
func isFalsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == ""
	case int:
		return x == 0
	case int64:
		return x == 0
	case float64:
		return x == 0
	default:
		return false
	}
}

// Normalize drops falsy-valued keys and reports "no attributes" (nil) if
// nothing remains, per the attribute normalization rule.
func Normalize(attrs Attrs) Attrs {
	if len(attrs) == 0 {
		return nil
	}
	out := make(Attrs, len(attrs))
	for k, v := range attrs {
		if !isFalsy(v) {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Clone returns a normalized deep-enough copy of attrs, safe to attach to an
// atom without aliasing the caller's map.
func Clone(attrs Attrs) Attrs {
	if len(attrs) == 0 {
		return nil
	}
	return Normalize(Attrs(maps.Clone(map[string]any(attrs))))
}
