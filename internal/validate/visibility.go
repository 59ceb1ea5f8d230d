package validate

import (
	"maps"
	"slices"
)

// Visibility is the set of fields whose errors may be shown. Errors stay
// hidden until the user touched the field or tried to submit.
type Visibility map[string]struct{}

// Reveal adds fields to the set.
func (v Visibility) Reveal(fields ...string) {
	for _, f := range fields {
		v[f] = struct{}{}
	}
}

// RevealAll adds every key of errs.
func (v Visibility) RevealAll(errs ErrorMap) {
	for f := range errs {
		v[f] = struct{}{}
	}
}

// Has reports whether field is visible.
func (v Visibility) Has(field string) bool {
	_, ok := v[field]
	return ok
}

// Fields returns the visible fields sorted.
func (v Visibility) Fields() []string {
	return slices.Sorted(maps.Keys(v))
}

// Clone returns an independent copy.
func (v Visibility) Clone() Visibility {
	if v == nil {
		return Visibility{}
	}
	return maps.Clone(v)
}

// Visible filters errs down to the fields in vis.
func Visible(errs ErrorMap, vis Visibility) ErrorMap {
	out := ErrorMap{}
	for f, msg := range errs {
		if vis.Has(f) {
			out[f] = msg
		}
	}
	return out
}
