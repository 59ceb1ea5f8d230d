package resource

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Resource is a registered descriptor bound to a Store. Its actions emit the
// request event synchronously and resolve asynchronously; its cache is
// mutated only by the reducer the Store invokes.
type Resource[T any] struct {
	desc  Descriptor[T]
	store *Store

	mu     sync.RWMutex
	states map[string]State[T]
}

// Register validates d and installs its reducer in store.
func Register[T any](store *Store, d Descriptor[T]) (*Resource[T], error) {
	if store == nil {
		return nil, fmt.Errorf("register %s: store is nil", d.Name)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	r := &Resource[T]{
		desc:   d,
		store:  store,
		states: make(map[string]State[T]),
	}
	if err := store.register(d.Name, r.reduce); err != nil {
		return nil, err
	}
	return r, nil
}

// MustRegister is Register that panics on error, for static wiring.
func MustRegister[T any](store *Store, d Descriptor[T]) *Resource[T] {
	r, err := Register(store, d)
	if err != nil {
		panic(err)
	}
	return r
}

// reduce is the resource's slot in the root combinator.
func (r *Resource[T]) reduce(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = ReduceNamespaced(&r.desc, r.states, e)
}

// Name returns the descriptor name.
func (r *Resource[T]) Name() string { return r.desc.Name }

// Namespaced reports whether state is keyed by subject.
func (r *Resource[T]) Namespaced() bool { return r.desc.Namespaced }

// Descriptor returns a copy of the descriptor.
func (r *Resource[T]) Descriptor() Descriptor[T] { return r.desc }

// Store returns the store the resource is registered with.
func (r *Resource[T]) Store() *Store { return r.store }

// State returns the cached state for subject. Non-namespaced resources
// ignore the subject. A subject never fetched returns the zero State.
func (r *Resource[T]) State(subject string) State[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.states[r.key(subject)]
}

// Subjects returns the subjects that currently have cached state, sorted.
func (r *Resource[T]) Subjects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.states))
	for k := range r.states {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Get fetches the resource.
func (r *Resource[T]) Get(ctx context.Context, args Args) *Future[T] {
	return r.Do(ctx, OpGet, args)
}

// Post creates or submits through the resource.
func (r *Resource[T]) Post(ctx context.Context, args Args) *Future[T] {
	return r.Do(ctx, OpPost, args)
}

// Patch updates the resource.
func (r *Resource[T]) Patch(ctx context.Context, args Args) *Future[T] {
	return r.Do(ctx, OpPatch, args)
}

// Clear resets the cache. With no subjects the whole resource is reset;
// otherwise only the named subjects. In-flight requests for the cleared
// slices can no longer commit.
func (r *Resource[T]) Clear(subjects ...string) {
	if !r.desc.Namespaced || len(subjects) == 0 {
		r.store.Dispatch(Event{Kind: KindClear, Resource: r.desc.Name})
		return
	}
	for _, subject := range subjects {
		if strings.TrimSpace(subject) == "" {
			continue
		}
		r.store.Dispatch(Event{Kind: KindClear, Resource: r.desc.Name, Subject: subject})
	}
}

// Do issues op. Exactly one request event is dispatched before Do returns,
// followed later by exactly one success or failure event. Calls rejected
// before dispatch (unsupported op, missing subject) emit nothing.
func (r *Resource[T]) Do(ctx context.Context, op Op, args Args) *Future[T] {
	return r.DoCommit(ctx, op, args, nil)
}

// DoCommit is Do with control over what a successful call commits: the
// decoded response is passed through commit and the result becomes the
// success payload the future resolves with. A nil commit keeps the response.
func (r *Resource[T]) DoCommit(ctx context.Context, op Op, args Args, commit func(resp T) T) *Future[T] {
	if !r.desc.Supports(op) {
		return Rejected[T](fmt.Errorf("%s %s: %w", r.desc.Name, op, ErrUnsupportedOp))
	}
	if r.desc.Namespaced && strings.TrimSpace(args.Subject) == "" {
		return Rejected[T](fmt.Errorf("%s %s: subject is required", r.desc.Name, op))
	}
	subject := r.key(args.Subject)
	if ctx == nil {
		ctx = context.Background()
	}

	req := r.store.Dispatch(Event{
		Kind:      KindRequest,
		Resource:  r.desc.Name,
		Subject:   subject,
		Op:        op,
		NoSpinner: r.desc.noSpinner(op, args),
	})

	f, resolve := NewFuture[T]()
	go func() {
		v, err := r.perform(ctx, op, args)
		if err == nil && commit != nil {
			v = commit(v)
		}
		kind := KindSuccess
		var payload any = v
		if err != nil {
			kind = KindFailure
			payload = nil
		}
		done := r.store.Dispatch(Event{
			Kind:     kind,
			Resource: r.desc.Name,
			Subject:  subject,
			Op:       op,
			Seq:      req.Seq,
			Payload:  payload,
			Err:      err,
		})
		var zero T
		switch {
		case done.Stale:
			resolve(zero, fmt.Errorf("%s %s: %w", r.desc.Name, op, ErrSuperseded))
		case err != nil:
			resolve(zero, err)
		default:
			resolve(v, nil)
		}
	}()
	return f
}

func (r *Resource[T]) perform(ctx context.Context, op Op, args Args) (v T, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero T
			v, err = zero, &PanicError{Value: p}
		}
	}()
	url, err := r.desc.URLFor(op, args)
	if err != nil {
		return v, fmt.Errorf("build %s url: %w", r.desc.Name, err)
	}
	raw, err := r.desc.Fetch(ctx, url, r.desc.options(op, args))
	if err != nil {
		return v, err
	}
	return r.desc.transform(op, raw)
}

func (r *Resource[T]) key(subject string) string {
	if !r.desc.Namespaced {
		return ""
	}
	return subject
}
