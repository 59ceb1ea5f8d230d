// Package validate composes independent field checks into one error map and
// decides which of those errors the user is allowed to see.
package validate

import (
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"
)

// ErrorMap maps a field key to a human-readable message. A field absent
// from the map is valid.
type ErrorMap map[string]string

// Empty reports whether no field has an error.
func (m ErrorMap) Empty() bool {
	return len(m) == 0
}

// Keys returns the field keys in sorted order.
func (m ErrorMap) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// Clone returns an independent copy.
func (m ErrorMap) Clone() ErrorMap {
	if m == nil {
		return ErrorMap{}
	}
	return maps.Clone(m)
}

// Error reports a draft that failed validation.
type Error struct {
	Fields ErrorMap
}

func (e *Error) Error() string {
	keys := e.Fields.Keys()
	if len(keys) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(keys, ", ")
}

// UIState carries screen state some validators need (e.g. which form step
// is active). It is never mutated by validators.
type UIState map[string]any

// Bool returns the named flag, false when absent or not a bool.
func (u UIState) Bool(key string) bool {
	v, _ := u[key].(bool)
	return v
}

// Validator inspects a draft and reports errors for the fields it owns.
type Validator[T any] func(draft T, ui UIState) ErrorMap

// Pipeline runs validators in order and shallow-merges their output. When
// two validators report the same field, the earlier one wins, which keeps
// results deterministic.
type Pipeline[T any] struct {
	validators []Validator[T]
}

// NewPipeline builds a pipeline from vs.
func NewPipeline[T any](vs ...Validator[T]) Pipeline[T] {
	return Pipeline[T]{validators: slices.Clone(vs)}
}

// With returns a pipeline extended with vs.
func (p Pipeline[T]) With(vs ...Validator[T]) Pipeline[T] {
	return Pipeline[T]{validators: append(slices.Clone(p.validators), vs...)}
}

// Len returns the number of validators.
func (p Pipeline[T]) Len() int {
	return len(p.validators)
}

// Run validates draft.
func (p Pipeline[T]) Run(draft T, ui UIState) ErrorMap {
	out := ErrorMap{}
	for _, v := range p.validators {
		for field, msg := range v(draft, ui) {
			if _, taken := out[field]; !taken {
				out[field] = msg
			}
		}
	}
	return out
}

// RequiredMessage is reported for missing values.
const RequiredMessage = "This field is required"

// Required reports field when get returns only whitespace.
func Required[T any](field string, get func(T) string) Validator[T] {
	return func(draft T, _ UIState) ErrorMap {
		if strings.TrimSpace(get(draft)) == "" {
			return ErrorMap{field: RequiredMessage}
		}
		return nil
	}
}

// Match reports message for field when the value does not match re. Empty
// values are left to Required.
func Match[T any](field string, re *regexp.Regexp, message string, get func(T) string) Validator[T] {
	return func(draft T, _ UIState) ErrorMap {
		value := get(draft)
		if value == "" || re.MatchString(value) {
			return nil
		}
		return ErrorMap{field: message}
	}
}

// DateRangeMessage is reported when an end date precedes its start date.
const DateRangeMessage = "End date must be after start date"

// DateRange reports field when end is set and before start. A zero end
// means the range is still open.
func DateRange[T any](field string, get func(T) (start, end time.Time)) Validator[T] {
	return func(draft T, _ UIState) ErrorMap {
		start, end := get(draft)
		if start.IsZero() || end.IsZero() || !end.Before(start) {
			return nil
		}
		return ErrorMap{field: DateRangeMessage}
	}
}

// When runs v only while cond holds for the UI state.
func When[T any](cond func(UIState) bool, v Validator[T]) Validator[T] {
	return func(draft T, ui UIState) ErrorMap {
		if !cond(ui) {
			return nil
		}
		return v(draft, ui)
	}
}
