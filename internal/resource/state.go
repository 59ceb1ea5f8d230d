package resource

import "maps"

// State is the cached view of one resource (or one subject of a namespaced
// resource). Data is retained across failed refreshes, so Err and HasData may
// both be set: the UI falls back to the last known good value.
type State[T any] struct {
	Data    T
	HasData bool
	Err     error

	GetStatus   Status
	PostStatus  Status
	PatchStatus Status

	// Quiet is true when the most recent request asked for no spinner.
	Quiet bool
}

// Status returns the status recorded for op.
func (s State[T]) Status(op Op) Status {
	switch op {
	case OpGet:
		return s.GetStatus
	case OpPost:
		return s.PostStatus
	case OpPatch:
		return s.PatchStatus
	}
	return ""
}

// Processing reports whether any operation is in flight.
func (s State[T]) Processing() bool {
	return s.GetStatus == StatusProcessing ||
		s.PostStatus == StatusProcessing ||
		s.PatchStatus == StatusProcessing
}

// ShowSpinner reports whether the UI should overlay a spinner.
func (s State[T]) ShowSpinner() bool {
	return s.Processing() && !s.Quiet
}

// Loaded reports whether data was ever fetched successfully.
func (s State[T]) Loaded() bool {
	return s.HasData
}

func (s State[T]) withStatus(op Op, status Status) State[T] {
	switch op {
	case OpGet:
		s.GetStatus = status
	case OpPost:
		s.PostStatus = status
	case OpPatch:
		s.PatchStatus = status
	}
	return s
}

// Reduce applies one event to a single resource state. It is pure: the
// input is not modified. Stale and edit events leave the state unchanged.
func Reduce[T any](d *Descriptor[T], s State[T], e Event) State[T] {
	if e.Stale {
		return s
	}
	switch e.Kind {
	case KindRequest:
		// Whatever else was in flight for this slice can no longer commit.
		for _, op := range []Op{OpGet, OpPost, OpPatch} {
			if op != e.Op && s.Status(op) == StatusProcessing {
				s = s.withStatus(op, "")
			}
		}
		s = s.withStatus(e.Op, StatusProcessing)
		s.Quiet = e.NoSpinner
	case KindSuccess:
		next, _ := e.Payload.(T)
		if e.Op == OpGet {
			s.Data = next
		} else {
			s.Data = d.merge(s.Data, s.HasData, next, e.Op)
		}
		s.HasData = true
		s.Err = nil
		s = s.withStatus(e.Op, StatusSuccess)
	case KindFailure:
		s.Err = e.Err
		s = s.withStatus(e.Op, StatusFailure)
	case KindClear:
		return State[T]{}
	}
	return s
}

// ReduceNamespaced applies one event to a subject-keyed state map. Slices are
// created lazily on first use. A clear event with an empty subject resets the
// whole map; otherwise only that subject's slice is dropped.
func ReduceNamespaced[T any](d *Descriptor[T], states map[string]State[T], e Event) map[string]State[T] {
	if e.Stale || e.Kind == KindEdit {
		return states
	}
	if e.Kind == KindClear && e.Subject == "" {
		return map[string]State[T]{}
	}
	next := maps.Clone(states)
	if next == nil {
		next = make(map[string]State[T])
	}
	if e.Kind == KindClear {
		delete(next, e.Subject)
		return next
	}
	next[e.Subject] = Reduce(d, next[e.Subject], e)
	return next
}
