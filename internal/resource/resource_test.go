package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type coupon struct {
	Code string `json:"code"`
}

// gate releases one scripted response per call number.
type gate struct {
	mu    sync.Mutex
	chans map[string]chan reply
	calls []string
}

type reply struct {
	body string
	err  error
}

func newGate() *gate {
	return &gate{chans: make(map[string]chan reply)}
}

func (g *gate) ch(n string) chan reply {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.chans[n]
	if !ok {
		c = make(chan reply, 1)
		g.chans[n] = c
	}
	return c
}

func (g *gate) release(n, body string, err error) {
	g.ch(n) <- reply{body: body, err: err}
}

func (g *gate) fetch(ctx context.Context, rawURL string, _ RequestOptions) (json.RawMessage, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	n := u.Query().Get("n")
	g.mu.Lock()
	g.calls = append(g.calls, rawURL)
	g.mu.Unlock()
	select {
	case r := <-g.ch(n):
		if r.err != nil {
			return nil, r.err
		}
		return json.RawMessage(r.body), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gate) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func couponsDescriptor(g *gate) Descriptor[[]coupon] {
	return Descriptor[[]coupon]{
		Name: "coupons",
		Ops:  []Op{OpGet, OpPost},
		URLFor: func(op Op, args Args) (string, error) {
			return "/api/v0/coupons/?n=" + args.Param("n"), nil
		},
		Fetch: g.fetch,
		Merge: func(prev []coupon, _ bool, next []coupon, _ Op) []coupon {
			return append(append([]coupon(nil), prev...), next...)
		},
	}
}

func dashboardDescriptor(g *gate) Descriptor[map[string]any] {
	return Descriptor[map[string]any]{
		Name:       "dashboard",
		Ops:        []Op{OpGet},
		Namespaced: true,
		SuppressSpinner: func(_ Op, args Args) bool {
			return args.Param("background") == "1"
		},
		URLFor: func(_ Op, args Args) (string, error) {
			return fmt.Sprintf("/api/v0/dashboard/%s/?n=%s", args.Subject, args.Param("n")), nil
		},
		Fetch: g.fetch,
	}
}

func wait[T any](t *testing.T, f *Future[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := f.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "future did not resolve")
	return v, err
}

func n(i string) Args {
	return Args{Params: map[string]string{"n": i}}
}

func TestEventNamesDerivedFromDescriptor(t *testing.T) {
	d := couponsDescriptor(newGate())
	set := d.Events()

	assert.Equal(t, EventType("COUPONS_REQUEST_GET"), set.Request[OpGet])
	assert.Equal(t, EventType("COUPONS_GET_SUCCESS"), set.Success[OpGet])
	assert.Equal(t, EventType("COUPONS_POST_FAILURE"), set.Failure[OpPost])
	assert.Equal(t, EventType("COUPONS_CLEAR"), set.Clear)
	assert.NotContains(t, set.Request, OpPatch)

	assert.Equal(t, EventType("AUTOMATIC_EMAILS_REQUEST_PATCH"), RequestEvent("automatic-emails", OpPatch))
	assert.Equal(t, EventType("PROFILE_START_EDIT"), EditEvent("profile", EditStart))
}

func TestRegisterRejectsInvalidDescriptors(t *testing.T) {
	store := NewStore()
	g := newGate()

	_, err := Register(store, Descriptor[int]{Ops: []Op{OpGet}, URLFor: couponsDescriptor(g).URLFor, Fetch: g.fetch})
	require.Error(t, err)

	_, err = Register(store, Descriptor[int]{Name: "x", Ops: []Op{"DELETE"}, URLFor: couponsDescriptor(g).URLFor, Fetch: g.fetch})
	require.ErrorContains(t, err, "unknown operation")

	_, err = Register(store, Descriptor[int]{Name: "x", Ops: []Op{OpGet}, Fetch: g.fetch})
	require.ErrorContains(t, err, "URLFor")

	_, err = Register(store, couponsDescriptor(g))
	require.NoError(t, err)
	_, err = Register(store, couponsDescriptor(g))
	require.ErrorContains(t, err, "already registered")
}

func TestGetIsProcessingBeforeSettling(t *testing.T) {
	g := newGate()
	coupons := MustRegister(NewStore(), couponsDescriptor(g))

	f := coupons.Get(context.Background(), n("1"))

	st := coupons.State("")
	assert.Equal(t, StatusProcessing, st.GetStatus)
	assert.True(t, st.Processing())
	assert.True(t, st.ShowSpinner())
	_, ok, _ := f.Result()
	assert.False(t, ok)

	g.release("1", `[{"code":"A"}]`, nil)
	got, err := wait(t, f)
	require.NoError(t, err)
	assert.Equal(t, []coupon{{Code: "A"}}, got)

	st = coupons.State("")
	assert.Equal(t, StatusSuccess, st.GetStatus)
	assert.False(t, st.Processing())
	assert.Equal(t, []coupon{{Code: "A"}}, st.Data)
	assert.NoError(t, st.Err)
}

func TestFailureKeepsPreviousData(t *testing.T) {
	g := newGate()
	coupons := MustRegister(NewStore(), couponsDescriptor(g))

	g.release("1", `[{"code":"A"}]`, nil)
	_, err := wait(t, coupons.Get(context.Background(), n("1")))
	require.NoError(t, err)

	boom := errors.New("boom")
	g.release("2", "", boom)
	_, err = wait(t, coupons.Get(context.Background(), n("2")))
	require.ErrorIs(t, err, boom)

	st := coupons.State("")
	assert.Equal(t, StatusFailure, st.GetStatus)
	assert.ErrorIs(t, st.Err, boom)
	assert.True(t, st.HasData)
	assert.Equal(t, []coupon{{Code: "A"}}, st.Data)
}

func TestExactlyOneResolutionEventPerRequest(t *testing.T) {
	g := newGate()
	store := NewStore()
	coupons := MustRegister(store, couponsDescriptor(g))

	var mu sync.Mutex
	var kinds []Kind
	unsubscribe := store.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, e.Kind)
	})
	defer unsubscribe()

	f := coupons.Get(context.Background(), n("1"))
	g.release("1", `not json`, nil)
	_, err := wait(t, f)
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Kind{KindRequest, KindFailure}, kinds)
	assert.Equal(t, StatusFailure, coupons.State("").GetStatus)
}

func TestTransportPanicBecomesFailure(t *testing.T) {
	d := Descriptor[int]{
		Name:   "prices",
		Ops:    []Op{OpGet},
		URLFor: func(Op, Args) (string, error) { return "/prices", nil },
		Fetch: func(context.Context, string, RequestOptions) (json.RawMessage, error) {
			panic("connection reset")
		},
	}
	prices := MustRegister(NewStore(), d)

	_, err := wait(t, prices.Get(context.Background(), Args{}))
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "connection reset", pe.Value)
	assert.Equal(t, StatusFailure, prices.State("").GetStatus)
}

func TestClearTwiceEqualsClearOnce(t *testing.T) {
	g := newGate()
	coupons := MustRegister(NewStore(), couponsDescriptor(g))

	g.release("1", `[{"code":"A"}]`, nil)
	_, err := wait(t, coupons.Get(context.Background(), n("1")))
	require.NoError(t, err)

	coupons.Clear()
	once := coupons.State("")
	coupons.Clear()
	twice := coupons.State("")

	assert.Equal(t, State[[]coupon]{}, once)
	assert.Equal(t, once, twice)
}

func TestCouponsLastIssuedGetWins(t *testing.T) {
	g := newGate()
	coupons := MustRegister(NewStore(), couponsDescriptor(g))

	first := coupons.Get(context.Background(), n("1"))
	second := coupons.Get(context.Background(), n("2"))

	g.release("2", `[{"code":"B"}]`, nil)
	_, err := wait(t, second)
	require.NoError(t, err)

	go func() {
		time.Sleep(200 * time.Millisecond)
		g.release("1", `[{"code":"A"}]`, nil)
	}()
	_, err = wait(t, first)
	require.ErrorIs(t, err, ErrSuperseded)
	assert.True(t, first.Superseded())

	st := coupons.State("")
	assert.Equal(t, []coupon{{Code: "B"}}, st.Data)
	assert.Equal(t, StatusSuccess, st.GetStatus)
}

func TestStaleFailureDoesNotOverwrite(t *testing.T) {
	g := newGate()
	store := NewStore()
	coupons := MustRegister(store, couponsDescriptor(g))

	var mu sync.Mutex
	var stale []Event
	store.Subscribe(func(e Event) {
		if e.Stale {
			mu.Lock()
			stale = append(stale, e)
			mu.Unlock()
		}
	})

	first := coupons.Get(context.Background(), n("1"))
	second := coupons.Get(context.Background(), n("2"))
	g.release("2", `[{"code":"B"}]`, nil)
	_, err := wait(t, second)
	require.NoError(t, err)

	g.release("1", "", errors.New("late"))
	_, err = wait(t, first)
	require.ErrorIs(t, err, ErrSuperseded)

	st := coupons.State("")
	assert.NoError(t, st.Err)
	assert.Equal(t, StatusSuccess, st.GetStatus)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, stale, 1)
	assert.Equal(t, EventType("COUPONS_GET_FAILURE"), stale[0].Type)
}

func TestPostDoesNotResetGetStatus(t *testing.T) {
	g := newGate()
	coupons := MustRegister(NewStore(), couponsDescriptor(g))

	g.release("1", `[{"code":"A"}]`, nil)
	_, err := wait(t, coupons.Get(context.Background(), n("1")))
	require.NoError(t, err)

	g.release("2", `[{"code":"C"}]`, nil)
	_, err = wait(t, coupons.Post(context.Background(), n("2")))
	require.NoError(t, err)

	st := coupons.State("")
	assert.Equal(t, StatusSuccess, st.GetStatus)
	assert.Equal(t, StatusSuccess, st.PostStatus)
	assert.Equal(t, []coupon{{Code: "A"}, {Code: "C"}}, st.Data)
}

type profile struct {
	FirstName string `json:"first_name"`
}

func profileDescriptor(g *gate) Descriptor[profile] {
	return Descriptor[profile]{
		Name:       "profiles",
		Ops:        []Op{OpGet, OpPatch},
		Namespaced: true,
		URLFor: func(_ Op, args Args) (string, error) {
			return fmt.Sprintf("/api/v0/profiles/%s/?n=%s", args.Subject, args.Param("n")), nil
		},
		Fetch: g.fetch,
	}
}

func TestLaterPatchVoidsEarlierGet(t *testing.T) {
	g := newGate()
	profiles := MustRegister(NewStore(), profileDescriptor(g))

	get := profiles.Get(context.Background(), Args{Subject: "ada", Params: map[string]string{"n": "1"}})
	g.release("2", `{"first_name":"New"}`, nil)
	saved, err := wait(t, profiles.Patch(context.Background(), Args{Subject: "ada", Params: map[string]string{"n": "2"}}))
	require.NoError(t, err)
	assert.Equal(t, "New", saved.FirstName)

	g.release("1", `{"first_name":"Old"}`, nil)
	_, err = wait(t, get)
	require.ErrorIs(t, err, ErrSuperseded)

	st := profiles.State("ada")
	assert.Equal(t, profile{FirstName: "New"}, st.Data)
	assert.Equal(t, StatusSuccess, st.PatchStatus)
	assert.False(t, st.Processing(), "superseded get must not leave the slice processing")
}

func TestSequencingIsIndependentPerSubject(t *testing.T) {
	g := newGate()
	profiles := MustRegister(NewStore(), profileDescriptor(g))

	get := profiles.Get(context.Background(), Args{Subject: "ada", Params: map[string]string{"n": "1"}})
	g.release("2", `{"first_name":"Grace"}`, nil)
	_, err := wait(t, profiles.Patch(context.Background(), Args{Subject: "grace", Params: map[string]string{"n": "2"}}))
	require.NoError(t, err)

	g.release("1", `{"first_name":"Ada"}`, nil)
	_, err = wait(t, get)
	require.NoError(t, err)
	assert.Equal(t, "Ada", profiles.State("ada").Data.FirstName)
}

func TestUnsupportedOpEmitsNothing(t *testing.T) {
	g := newGate()
	store := NewStore()
	coupons := MustRegister(store, couponsDescriptor(g))
	var count int
	store.Subscribe(func(Event) { count++ })

	_, err := wait(t, coupons.Patch(context.Background(), n("1")))
	require.ErrorIs(t, err, ErrUnsupportedOp)
	assert.Zero(t, count)
	assert.Zero(t, g.callCount())
}

func TestNamespacedFailureIsolatedPerSubject(t *testing.T) {
	g := newGate()
	dash := MustRegister(NewStore(), dashboardDescriptor(g))

	bArgs := Args{Subject: "b", Params: map[string]string{"n": "b1"}}
	g.release("b1", `{"programs":1}`, nil)
	_, err := wait(t, dash.Get(context.Background(), bArgs))
	require.NoError(t, err)
	before := dash.State("b")

	aArgs := Args{Subject: "a", Params: map[string]string{"n": "a1"}}
	g.release("a1", "", errors.New("offline"))
	_, err = wait(t, dash.Get(context.Background(), aArgs))
	require.Error(t, err)

	assert.Equal(t, before, dash.State("b"))
	assert.Equal(t, StatusFailure, dash.State("a").GetStatus)
	assert.False(t, dash.State("a").HasData)
	assert.Equal(t, []string{"a", "b"}, dash.Subjects())

	dash.Clear("a")
	assert.Equal(t, []string{"b"}, dash.Subjects())
	dash.Clear()
	assert.Empty(t, dash.Subjects())
}

func TestNamespacedRequiresSubject(t *testing.T) {
	dash := MustRegister(NewStore(), dashboardDescriptor(newGate()))
	_, err := wait(t, dash.Get(context.Background(), Args{}))
	require.ErrorContains(t, err, "subject is required")
}

func TestBackgroundRequestSuppressesSpinner(t *testing.T) {
	g := newGate()
	dash := MustRegister(NewStore(), dashboardDescriptor(g))

	f := dash.Get(context.Background(), Args{Subject: "a", Params: map[string]string{"n": "1", "background": "1"}})
	st := dash.State("a")
	assert.True(t, st.Processing())
	assert.False(t, st.ShowSpinner())

	g.release("1", `{}`, nil)
	_, err := wait(t, f)
	require.NoError(t, err)
}

func TestClearVoidsInFlightRequest(t *testing.T) {
	g := newGate()
	dash := MustRegister(NewStore(), dashboardDescriptor(g))

	f := dash.Get(context.Background(), Args{Subject: "a", Params: map[string]string{"n": "1"}})
	dash.Clear("a")
	g.release("1", `{"late":true}`, nil)

	_, err := wait(t, f)
	require.ErrorIs(t, err, ErrSuperseded)
	assert.Empty(t, dash.Subjects())
}

func TestErrorHookSeesCommittedFailures(t *testing.T) {
	g := newGate()
	var mu sync.Mutex
	var seen []string
	store := NewStore(WithErrorHook(func(resource, subject string, err error) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, resource+"/"+subject+": "+err.Error())
	}))
	dash := MustRegister(store, dashboardDescriptor(g))

	g.release("1", "", errors.New("unauthorized"))
	_, err := wait(t, dash.Get(context.Background(), Args{Subject: "a", Params: map[string]string{"n": "1"}}))
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"dashboard/a: unauthorized"}, seen)
}

func TestReduceIsPure(t *testing.T) {
	d := couponsDescriptor(newGate())
	start := map[string]State[[]coupon]{"": {Data: []coupon{{Code: "A"}}, HasData: true}}

	next := ReduceNamespaced(&d, start, Event{Kind: KindRequest, Resource: "coupons", Op: OpGet})

	assert.Equal(t, Status(""), start[""].GetStatus)
	assert.Equal(t, StatusProcessing, next[""].GetStatus)
	assert.Equal(t, start[""].Data, next[""].Data)

	same := ReduceNamespaced(&d, next, Event{Kind: KindSuccess, Op: OpGet, Stale: true, Payload: []coupon{{Code: "Z"}}})
	assert.Equal(t, next, same)
}
