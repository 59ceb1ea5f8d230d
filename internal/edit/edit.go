// Package edit manages local drafts of server resources.
//
// A session starts from the cached value, accepts field patches, re-validates
// after each one and either commits through the resource's POST or PATCH
// operation or is discarded. One session exists per subject; all updates and
// saves for a subject are serialized by the Manager.
//
//	none ──StartEdit──> editing ──Save──> saving ──success──> none
//	                       ^                 │
//	                       └─────failure─────┘ (draft kept)
package edit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/five82/scholar/internal/resource"
	"github.com/five82/scholar/internal/validate"
)

var (
	// ErrNoSession is returned for operations on a subject that is not being edited.
	ErrNoSession = errors.New("no edit session")
	// ErrSaveInProgress is returned when a draft is changed or saved while a save is pending.
	ErrSaveInProgress = errors.New("save already in progress")
)

// Session is a snapshot of one edit session.
type Session[T any] struct {
	Subject    string
	Baseline   T
	Draft      T
	Errors     validate.ErrorMap
	Visibility validate.Visibility
	Saving     bool
	// SaveErr is the last failed save, cleared by the next save attempt.
	SaveErr error
}

// VisibleErrors returns the errors the UI may render.
func (s Session[T]) VisibleErrors() validate.ErrorMap {
	return validate.Visible(s.Errors, s.Visibility)
}

// Options tune a Manager.
type Options[T any] struct {
	// SaveOp is the operation used to commit. Defaults to PATCH.
	SaveOp resource.Op
	// Args builds the operation arguments from the draft. Defaults to
	// Args{Subject: subject, Body: draft}.
	Args   func(subject string, draft T) resource.Args
	Logger *slog.Logger
}

// Manager owns the edit sessions of one resource.
type Manager[T any] struct {
	res      *resource.Resource[T]
	pipeline validate.Pipeline[T]
	saveOp   resource.Op
	args     func(subject string, draft T) resource.Args
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session[T]
}

type session[T any] struct {
	baseline   T
	draft      T
	errors     validate.ErrorMap
	visibility validate.Visibility
	ui         validate.UIState
	saving     bool
	saveErr    error
}

// NewManager builds a Manager committing through res.
func NewManager[T any](res *resource.Resource[T], pipeline validate.Pipeline[T], opts Options[T]) (*Manager[T], error) {
	if res == nil {
		return nil, fmt.Errorf("edit manager: resource is nil")
	}
	saveOp := opts.SaveOp
	if saveOp == "" {
		saveOp = resource.OpPatch
	}
	d := res.Descriptor()
	if !d.Supports(saveOp) {
		return nil, fmt.Errorf("edit manager %s: %s: %w", res.Name(), saveOp, resource.ErrUnsupportedOp)
	}
	args := opts.Args
	if args == nil {
		args = func(subject string, draft T) resource.Args {
			return resource.Args{Subject: subject, Body: draft}
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager[T]{
		res:      res,
		pipeline: pipeline,
		saveOp:   saveOp,
		args:     args,
		logger:   logger,
		sessions: make(map[string]*session[T]),
	}, nil
}

// StartEdit opens a session for subject seeded from the cached value. If a
// session already exists its draft is kept and its errors are re-derived;
// ui replaces the stored UI state when non-nil.
func (m *Manager[T]) StartEdit(subject string, ui validate.UIState) (Session[T], error) {
	m.mu.Lock()
	snap, err := m.startLocked(subject, ui)
	m.mu.Unlock()
	if err != nil {
		return snap, err
	}
	m.emit(subject, resource.EditStart, nil)
	return snap, nil
}

func (m *Manager[T]) startLocked(subject string, ui validate.UIState) (Session[T], error) {
	if s, ok := m.sessions[subject]; ok {
		if ui != nil {
			s.ui = ui
		}
		s.errors = m.pipeline.Run(s.draft, s.ui)
		return s.snapshot(subject), nil
	}

	baseline := m.res.State(subject).Data
	draft, err := clone(baseline)
	if err != nil {
		return Session[T]{}, fmt.Errorf("start %s edit: %w", m.res.Name(), err)
	}
	s := &session[T]{
		baseline:   baseline,
		draft:      draft,
		errors:     validate.ErrorMap{},
		visibility: validate.Visibility{},
		ui:         ui,
	}
	m.sessions[subject] = s
	return s.snapshot(subject), nil
}

// UpdateDraft shallow-merges patch (JSON field name -> value) into the draft
// and re-validates. Visibility is unchanged.
func (m *Manager[T]) UpdateDraft(subject string, patch map[string]any) (Session[T], error) {
	m.mu.Lock()
	snap, err := m.updateLocked(subject, patch)
	m.mu.Unlock()
	if err != nil {
		return snap, err
	}
	m.emit(subject, resource.EditUpdate, patch)
	return snap, nil
}

func (m *Manager[T]) updateLocked(subject string, patch map[string]any) (Session[T], error) {
	s, ok := m.sessions[subject]
	if !ok {
		return Session[T]{}, fmt.Errorf("update %s draft: %w", m.res.Name(), ErrNoSession)
	}
	if s.saving {
		return s.snapshot(subject), fmt.Errorf("update %s draft: %w", m.res.Name(), ErrSaveInProgress)
	}
	draft, err := applyPatch(s.draft, patch)
	if err != nil {
		return s.snapshot(subject), fmt.Errorf("update %s draft: %w", m.res.Name(), err)
	}
	s.draft = draft
	s.errors = m.pipeline.Run(s.draft, s.ui)
	return s.snapshot(subject), nil
}

// SetVisibility reveals errors for fields, typically once the user has
// left them.
func (m *Manager[T]) SetVisibility(subject string, fields ...string) (Session[T], error) {
	m.mu.Lock()
	s, ok := m.sessions[subject]
	if !ok {
		m.mu.Unlock()
		return Session[T]{}, fmt.Errorf("set %s visibility: %w", m.res.Name(), ErrNoSession)
	}
	s.visibility.Reveal(fields...)
	snap := s.snapshot(subject)
	m.mu.Unlock()

	m.emit(subject, resource.EditSetVisibility, fields)
	return snap, nil
}

// RevealAll makes every current error visible.
func (m *Manager[T]) RevealAll(subject string) (Session[T], error) {
	m.mu.Lock()
	s, ok := m.sessions[subject]
	if !ok {
		m.mu.Unlock()
		return Session[T]{}, fmt.Errorf("reveal %s errors: %w", m.res.Name(), ErrNoSession)
	}
	s.visibility.RevealAll(s.errors)
	snap := s.snapshot(subject)
	m.mu.Unlock()

	m.emit(subject, resource.EditSetVisibility, snap.Errors.Keys())
	return snap, nil
}

// Save validates the draft captured at call time. Invalid drafts reveal
// all errors and are rejected with *validate.Error without any network
// call. Valid drafts are sent through the save operation; on success the
// captured draft is committed as the new cached value and the session is
// destroyed. Fields the server filled in (ids, statuses) are kept; an empty
// response commits the draft unchanged. On failure the session is kept
// with SaveErr set so the user can retry. The returned future resolves after
// that bookkeeping.
func (m *Manager[T]) Save(ctx context.Context, subject string) *resource.Future[T] {
	m.mu.Lock()
	s, ok := m.sessions[subject]
	if !ok {
		m.mu.Unlock()
		return resource.Rejected[T](fmt.Errorf("save %s: %w", m.res.Name(), ErrNoSession))
	}
	if s.saving {
		m.mu.Unlock()
		return resource.Rejected[T](fmt.Errorf("save %s: %w", m.res.Name(), ErrSaveInProgress))
	}

	s.errors = m.pipeline.Run(s.draft, s.ui)
	if !s.errors.Empty() {
		s.visibility.RevealAll(s.errors)
		fields := s.errors.Clone()
		m.mu.Unlock()

		m.emit(subject, resource.EditSetVisibility, fields.Keys())
		m.logger.Debug("save blocked by validation", "resource", m.res.Name(), "subject", subject, "fields", fields.Keys())
		return resource.Rejected[T](&validate.Error{Fields: fields})
	}

	s.saving = true
	s.saveErr = nil
	draft := s.draft
	m.mu.Unlock()

	m.emit(subject, resource.EditSave, nil)
	pending := m.res.DoCommit(ctx, m.saveOp, m.args(subject, draft), func(resp T) T {
		settled, err := settle(draft, resp)
		if err != nil {
			m.logger.Debug("save response ignored", "resource", m.res.Name(), "subject", subject, "error", err)
			return draft
		}
		return settled
	})

	out, resolve := resource.NewFuture[T]()
	go func() {
		v, err := pending.Wait(context.Background())

		m.mu.Lock()
		committed := false
		if cur, ok := m.sessions[subject]; ok && cur == s {
			if err != nil {
				s.saving = false
				s.saveErr = err
			} else {
				delete(m.sessions, subject)
				committed = true
			}
		}
		m.mu.Unlock()

		if committed {
			m.emit(subject, resource.EditClear, nil)
		}
		if err != nil {
			m.logger.Warn("save failed", "resource", m.res.Name(), "subject", subject, "error", err)
		}
		resolve(v, err)
	}()
	return out
}

// Discard drops the session without saving. Discarding a subject with no
// session is a no-op.
func (m *Manager[T]) Discard(subject string) {
	m.mu.Lock()
	_, ok := m.sessions[subject]
	delete(m.sessions, subject)
	m.mu.Unlock()
	if ok {
		m.emit(subject, resource.EditClear, nil)
	}
}

// Session returns a snapshot of the session for subject.
func (m *Manager[T]) Session(subject string) (Session[T], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[subject]
	if !ok {
		return Session[T]{}, false
	}
	return s.snapshot(subject), true
}

// Editing reports whether subject has an open session.
func (m *Manager[T]) Editing(subject string) bool {
	_, ok := m.Session(subject)
	return ok
}

// emit publishes an edit event. It must be called without m.mu held.
func (m *Manager[T]) emit(subject, action string, payload any) {
	m.res.Store().Dispatch(resource.Event{
		Kind:     resource.KindEdit,
		Type:     resource.EditEvent(m.res.Name(), action),
		Resource: m.res.Name(),
		Subject:  subject,
		Payload:  payload,
	})
}

func (s *session[T]) snapshot(subject string) Session[T] {
	draft, err := clone(s.draft)
	if err != nil {
		draft = s.draft
	}
	return Session[T]{
		Subject:    subject,
		Baseline:   s.baseline,
		Draft:      draft,
		Errors:     s.errors.Clone(),
		Visibility: s.visibility.Clone(),
		Saving:     s.saving,
		SaveErr:    s.saveErr,
	}
}

// clone deep-copies v through its JSON form.
func clone[T any](v T) (T, error) {
	var out T
	raw, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("clone draft: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("clone draft: %w", err)
	}
	return out, nil
}

// applyPatch overlays top-level JSON fields of patch onto draft.
func applyPatch[T any](draft T, patch map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(draft)
	if err != nil {
		return out, fmt.Errorf("encode draft: %w", err)
	}
	fields := map[string]any{}
	if string(raw) != "null" {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return out, fmt.Errorf("draft is not an object: %w", err)
		}
	}
	for k, v := range patch {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return out, fmt.Errorf("encode patch: %w", err)
	}
	if err := json.Unmarshal(merged, &out); err != nil {
		return out, fmt.Errorf("apply patch: %w", err)
	}
	return out, nil
}

// settle layers the non-empty top-level fields of resp over draft. A null
// or empty resp leaves the draft as is.
func settle[T any](draft, resp T) (T, error) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return draft, fmt.Errorf("encode response: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) == 0 {
		return draft, nil
	}
	patch := make(map[string]any, len(fields))
	for k, v := range fields {
		if emptyJSON(v) {
			continue
		}
		patch[k] = v
	}
	if len(patch) == 0 {
		return draft, nil
	}
	return applyPatch(draft, patch)
}

func emptyJSON(v json.RawMessage) bool {
	switch string(v) {
	case "null", `""`, "0", "false", "[]", "{}":
		return true
	}
	return false
}
