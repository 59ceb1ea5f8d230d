package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// Op names an operation a resource supports.
type Op string

const (
	OpGet   Op = "GET"
	OpPost  Op = "POST"
	OpPatch Op = "PATCH"
)

// Status is the lifecycle of one operation kind. The zero value means the
// operation was never attempted.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailure    Status = "failure"
)

// Args carries the structured arguments of one operation call.
type Args struct {
	// Subject selects the namespace slice. Ignored for non-namespaced resources.
	Subject string
	Params  map[string]string
	Query   url.Values
	Body    any
}

// Param returns the named path parameter, or "" when unset.
func (a Args) Param(name string) string {
	if a.Params == nil {
		return ""
	}
	return a.Params[name]
}

// RequestOptions are handed to the transport alongside the URL.
type RequestOptions struct {
	Method string
	Body   any
	Header http.Header
}

// FetchFunc is the transport collaborator. It returns the raw response body
// or an error; non-2xx responses must be reported as errors.
type FetchFunc func(ctx context.Context, url string, opts RequestOptions) (json.RawMessage, error)

// Descriptor is the static configuration of one server resource family.
// Descriptors are values; do not mutate one after Register.
type Descriptor[T any] struct {
	Name       string
	Ops        []Op
	Namespaced bool

	// SuppressSpinner marks requests as background work (noSpinner).
	SuppressSpinner func(op Op, args Args) bool
	URLFor          func(op Op, args Args) (string, error)
	OptionsFor      func(op Op, args Args) RequestOptions
	Fetch           FetchFunc
	// Transform decodes a successful response body. Defaults to JSON decoding into T.
	Transform func(op Op, raw json.RawMessage) (T, error)
	// Merge folds a post/patch result into the cached value. Defaults to replace.
	Merge func(prev T, hadPrev bool, next T, op Op) T
}

// ErrUnsupportedOp is returned when an operation is not listed in Descriptor.Ops.
var ErrUnsupportedOp = errors.New("operation not supported")

func (d *Descriptor[T]) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("descriptor name is empty")
	}
	if len(d.Ops) == 0 {
		return fmt.Errorf("descriptor %s: no operations", d.Name)
	}
	for _, op := range d.Ops {
		switch op {
		case OpGet, OpPost, OpPatch:
		default:
			return fmt.Errorf("descriptor %s: unknown operation %q", d.Name, op)
		}
	}
	if d.URLFor == nil {
		return fmt.Errorf("descriptor %s: URLFor is required", d.Name)
	}
	if d.Fetch == nil {
		return fmt.Errorf("descriptor %s: Fetch is required", d.Name)
	}
	return nil
}

// Supports reports whether op is listed in the descriptor.
func (d *Descriptor[T]) Supports(op Op) bool {
	return slices.Contains(d.Ops, op)
}

// Events returns the event types derived from the descriptor.
func (d *Descriptor[T]) Events() EventSet {
	set := EventSet{
		Request: make(map[Op]EventType, len(d.Ops)),
		Success: make(map[Op]EventType, len(d.Ops)),
		Failure: make(map[Op]EventType, len(d.Ops)),
		Clear:   ClearEvent(d.Name),
	}
	for _, op := range d.Ops {
		set.Request[op] = RequestEvent(d.Name, op)
		set.Success[op] = SuccessEvent(d.Name, op)
		set.Failure[op] = FailureEvent(d.Name, op)
	}
	return set
}

func (d *Descriptor[T]) noSpinner(op Op, args Args) bool {
	if d.SuppressSpinner == nil {
		return false
	}
	return d.SuppressSpinner(op, args)
}

func (d *Descriptor[T]) options(op Op, args Args) RequestOptions {
	if d.OptionsFor != nil {
		opts := d.OptionsFor(op, args)
		if opts.Method == "" {
			opts.Method = string(op)
		}
		return opts
	}
	opts := RequestOptions{Method: string(op)}
	if op != OpGet {
		opts.Body = args.Body
	}
	return opts
}

func (d *Descriptor[T]) transform(op Op, raw json.RawMessage) (T, error) {
	if d.Transform != nil {
		return d.Transform(op, raw)
	}
	var out T
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s response: %w", d.Name, err)
	}
	return out, nil
}

func (d *Descriptor[T]) merge(prev T, hadPrev bool, next T, op Op) T {
	if d.Merge == nil {
		return next
	}
	return d.Merge(prev, hadPrev, next, op)
}
