package resource

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrorHook observes committed failures. It is how callers react to
// authentication errors without the core performing redirects itself.
type ErrorHook func(resource, subject string, err error)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithErrorHook installs a hook called after every committed failure event.
func WithErrorHook(hook ErrorHook) Option {
	return func(s *Store) {
		s.onError = hook
	}
}

// Store is the root reducer combinator. It serializes every dispatch so
// reducer transitions run to completion one at a time, owns the sequencing
// guard, and fans events out to observers.
type Store struct {
	mu        sync.Mutex
	reducers  map[string]func(Event)
	observers map[uint64]func(Event)
	nextObs   uint64
	seq       *Sequencer
	entropy   *ulid.MonotonicEntropy

	logger  *slog.Logger
	onError ErrorHook
}

// NewStore builds an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		reducers:  make(map[string]func(Event)),
		observers: make(map[uint64]func(Event)),
		seq:       NewSequencer(),
		entropy:   ulid.Monotonic(rand.Reader, 0),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) register(name string, reduce func(Event)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reducers[name]; exists {
		return fmt.Errorf("resource %q already registered", name)
	}
	s.reducers[name] = reduce
	return nil
}

// Subscribe registers fn to receive every dispatched event, stale ones
// included, in dispatch order. fn runs with dispatch serialized and must not
// call Dispatch. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextObs++
	id := s.nextObs
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Dispatch applies e and returns it with ID, Type, Seq and Stale filled in.
// Request events without a Seq are assigned the next sequence number;
// success and failure events are checked against the sequencing guard and
// marked stale when a later request of any operation exists for the same
// resource and subject.
func (s *Store) Dispatch(e Event) Event {
	s.mu.Lock()

	e.ID = ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy)
	e.Type = typeFor(e)

	switch e.Kind {
	case KindRequest:
		if e.Seq == 0 {
			e.Seq = s.seq.Next(e.Resource, e.Subject)
		}
	case KindSuccess, KindFailure:
		e.Stale = !s.seq.IsCurrent(e.Resource, e.Subject, e.Seq)
	case KindClear:
		s.seq.Void(e.Resource, e.Subject)
	}

	if e.Kind != KindEdit && !e.Stale {
		if reduce, ok := s.reducers[e.Resource]; ok {
			reduce(e)
		}
	}

	for _, fn := range s.observers {
		fn(e)
	}

	s.mu.Unlock()

	s.log(e)
	if e.Kind == KindFailure && !e.Stale && s.onError != nil {
		s.onError(e.Resource, e.Subject, e.Err)
	}
	return e
}

func (s *Store) log(e Event) {
	attrs := []any{
		"type", e.Type,
		"subject", e.Subject,
		"seq", e.Seq,
	}
	switch {
	case e.Stale:
		s.logger.Debug("discarded stale response", attrs...)
	case e.Kind == KindFailure:
		s.logger.Warn("resource operation failed", append(attrs, "error", e.Err)...)
	default:
		s.logger.Debug("dispatch", attrs...)
	}
}
