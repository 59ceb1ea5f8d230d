package learner

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/scholar/internal/api"
	"github.com/five82/scholar/internal/resource"
	"github.com/five82/scholar/internal/validate"
)

type call struct {
	method string
	path   string
	body   any
}

// fakeAPI answers from canned bodies keyed by "METHOD path". Unlisted
// non-GET calls echo their body.
type fakeAPI struct {
	mu        sync.Mutex
	calls     []call
	responses map[string]string
	errs      map[string]error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{responses: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeAPI) on(method, path, body string) { f.responses[method+" "+path] = body }

func (f *fakeAPI) fail(method, path string, err error) { f.errs[method+" "+path] = err }

func (f *fakeAPI) FetchJSON(_ context.Context, method, path string, body any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: method, path: path, body: body})
	key := method + " " + path
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	if resp, ok := f.responses[key]; ok {
		return json.RawMessage(resp), nil
	}
	if method != "GET" {
		return json.Marshal(body)
	}
	return nil, &api.HTTPError{StatusCode: 404, Path: path}
}

func (f *fakeAPI) callsTo(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.method == method && c.path == path {
			n++
		}
	}
	return n
}

func setup(t *testing.T, opts ...resource.Option) (*Registry, *Validation, *fakeAPI) {
	t.Helper()
	f := newFakeAPI()
	reg, err := NewRegistry(resource.NewStore(opts...), f)
	require.NoError(t, err)
	v, err := NewValidation()
	require.NoError(t, err)
	return reg, v, f
}

func wait[T any](t *testing.T, fut *resource.Future[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return fut.Wait(ctx)
}

func TestChannelNameRule(t *testing.T) {
	v, err := NewValidation()
	require.NoError(t, err)

	valid := api.Channel{Title: "Title", Description: "About", ProgramID: 1}
	for _, name := range []string{"_b", "b"} {
		ch := valid
		ch.Name = name
		assert.Equal(t, validate.ErrorMap{"name": ChannelNameMessage}, v.Channel.Run(ch, nil), "name %q", name)
	}
	ch := valid
	ch.Name = "bb_bb"
	assert.Empty(t, v.Channel.Run(ch, nil))

	assert.Equal(t, validate.ErrorMap{
		"name":               validate.RequiredMessage,
		"title":              validate.RequiredMessage,
		"public_description": validate.RequiredMessage,
		"program_id":         validate.RequiredMessage,
	}, v.Channel.Run(api.Channel{}, nil))
}

func TestProfileValidation(t *testing.T) {
	v, err := NewValidation()
	require.NoError(t, err)

	p := api.Profile{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		DateOfBirth: "1990-01-01",
		Country:     "GB",
		WorkHistory: []api.Employment{
			{CompanyName: "Engine Co", Position: "Analyst", StartDate: "2015-01-01", EndDate: "2016-01-01"},
			{CompanyName: "Loom", Position: "Lead", StartDate: "2018-01-01", EndDate: "2017-01-01"},
		},
		Education: []api.Education{
			{DegreeName: "BSc", SchoolName: "Uni", GraduationDate: "1989-06-01"},
		},
	}
	assert.Equal(t, validate.ErrorMap{
		"work_history[1].end_date":     validate.DateRangeMessage,
		"education[0].graduation_date": GraduationMessage,
	}, v.Profile.Run(p, nil))

	assert.Equal(t, validate.ErrorMap{
		"work_history[1].end_date": validate.DateRangeMessage,
	}, v.Profile.Run(p, validate.UIState{UIProfileStep: "employment"}))

	assert.Empty(t, v.Profile.Run(p, validate.UIState{UIProfileStep: "personal"}))

	p.FirstName = ""
	p.Country = "Narnia"
	errs := v.Profile.Run(p, validate.UIState{UIProfileStep: "personal"})
	assert.Equal(t, validate.RequiredMessage, errs["first_name"])
	assert.Equal(t, CountryMessage, errs["country"])
}

func TestProfileHistoryCheckedOnlyOnItsStep(t *testing.T) {
	v, err := NewValidation()
	require.NoError(t, err)

	p := api.Profile{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Education:   []api.Education{{}},
		WorkHistory: []api.Employment{{}},
	}
	assert.Empty(t, v.Profile.Run(p, validate.UIState{UIProfileStep: "personal"}))

	assert.Equal(t, validate.ErrorMap{
		"education[0].degree_name": validate.RequiredMessage,
		"education[0].school_name": validate.RequiredMessage,
	}, v.Profile.Run(p, validate.UIState{UIProfileStep: "education"}))

	assert.Equal(t, validate.ErrorMap{
		"work_history[0].company_name": validate.RequiredMessage,
		"work_history[0].position":     validate.RequiredMessage,
		"work_history[0].start_date":   validate.RequiredMessage,
	}, v.Profile.Run(p, validate.UIState{UIProfileStep: "employment"}))

	all := v.Profile.Run(p, nil)
	assert.Len(t, all, 5)
	assert.Contains(t, all, "education[0].school_name")
	assert.Contains(t, all, "work_history[0].start_date")
}

func TestFinancialAidValidation(t *testing.T) {
	v, err := NewValidation()
	require.NoError(t, err)

	assert.Empty(t, v.FinancialAid.Run(api.FinancialAid{ProgramID: 1, OriginalIncome: 5000, OriginalCurrency: "USD"}, nil))
	assert.Equal(t, validate.ErrorMap{
		"original_income":   IncomeMessage,
		"original_currency": CurrencyMessage,
	}, v.FinancialAid.Run(api.FinancialAid{ProgramID: 1, OriginalIncome: -1, OriginalCurrency: "XYZ"}, nil))
}

func TestProfileEditRoundTrip(t *testing.T) {
	reg, v, f := setup(t)
	f.on("GET", "/api/v0/profiles/ada/", `{"username":"ada","first_name":"Ada","last_name":"Lovelace"}`)

	c, err := NewProfileController(reg, v, "ada", nil)
	require.NoError(t, err)
	_, err = wait(t, c.Load(context.Background()))
	require.NoError(t, err)

	_, err = c.Start(nil)
	require.NoError(t, err)
	s, err := c.Set("first_name", "")
	require.NoError(t, err)
	assert.Empty(t, s.VisibleErrors())

	_, err = wait(t, c.Save(context.Background()))
	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, f.callsTo("PATCH", "/api/v0/profiles/ada/"))

	_, err = c.Set("first_name", "Augusta")
	require.NoError(t, err)
	saved, err := wait(t, c.Save(context.Background()))
	require.NoError(t, err)
	assert.Equal(t, "Augusta", saved.FirstName)
	assert.Equal(t, "Augusta", c.State().Data.FirstName)
	assert.Equal(t, 1, f.callsTo("PATCH", "/api/v0/profiles/ada/"))
	_, open := c.Session()
	assert.False(t, open)
}

func TestEmailTargetsProgramOrLearner(t *testing.T) {
	reg, v, f := setup(t)
	f.on("POST", "/api/v0/mail/program/4/", `{"errors":{}}`)
	f.on("POST", "/api/v0/mail/learner/grace/", `{}`)

	c, err := NewEmailController(reg, v, nil)
	require.NoError(t, err)

	_, err = c.Start(nil)
	require.NoError(t, err)
	s, err := c.Patch(map[string]any{"email_subject": "Hello", "email_body": "Welcome"})
	require.NoError(t, err)
	assert.Equal(t, validate.ErrorMap{"recipients": RecipientsMessage}, s.Errors)

	_, err = c.ToProgram(4)
	require.NoError(t, err)
	_, err = wait(t, c.Save(context.Background()))
	require.NoError(t, err)
	assert.Equal(t, 1, f.callsTo("POST", "/api/v0/mail/program/4/"))

	s, err = c.Start(nil)
	require.NoError(t, err)
	assert.Empty(t, s.Draft.EmailSubject, "a sent email starts a fresh draft")

	_, err = c.Patch(map[string]any{"email_subject": "Hi", "email_body": "Body"})
	require.NoError(t, err)
	_, err = c.ToLearner("grace")
	require.NoError(t, err)
	_, err = wait(t, c.Save(context.Background()))
	require.NoError(t, err)
	assert.Equal(t, 1, f.callsTo("POST", "/api/v0/mail/learner/grace/"))
}

func TestFinancialAidIsPerProgram(t *testing.T) {
	reg, v, f := setup(t)
	f.on("POST", "/api/v0/financial_aid_request/", `{"id":9,"program_id":3,"original_income":5000,"original_currency":"USD","status":"pending-manual-approval"}`)

	c, err := NewFinancialAidController(reg, v, 3, nil)
	require.NoError(t, err)
	s, err := c.Start(nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, s.Draft.ProgramID)

	_, err = c.Patch(map[string]any{"original_income": 5000, "original_currency": "USD"})
	require.NoError(t, err)
	got, err := wait(t, c.Save(context.Background()))
	require.NoError(t, err)
	assert.Equal(t, "pending-manual-approval", got.Status)

	assert.Equal(t, []string{"3"}, reg.FinancialAid.Subjects())

	_, err = NewFinancialAidController(reg, v, 0, nil)
	assert.Error(t, err)
}

func TestDashboardRefreshIsBackgroundAndIsolatesFailures(t *testing.T) {
	reg, _, f := setup(t)
	f.on("GET", "/api/v0/dashboard/ada/", `{"programs":[{"id":1,"title":"Data, Economics, and Development Policy"}]}`)
	boom := errors.New("prices down")
	f.fail("GET", "/api/v0/course_prices/ada/", boom)

	var mu sync.Mutex
	var requests []resource.Event
	reg.Store.Subscribe(func(e resource.Event) {
		if e.Kind == resource.KindRequest {
			mu.Lock()
			requests = append(requests, e)
			mu.Unlock()
		}
	})

	c := NewDashboardController(reg, "ada")
	err := c.Refresh(context.Background(), true)
	assert.ErrorIs(t, err, boom)

	assert.True(t, c.Dashboard().Loaded())
	assert.Equal(t, resource.StatusSuccess, c.Dashboard().GetStatus)
	assert.Equal(t, resource.StatusFailure, c.Prices().GetStatus)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, requests, 2)
	for _, e := range requests {
		assert.True(t, e.NoSpinner, "%s should be background", e.Type)
	}
	assert.Len(t, c.Search("economics"), 1)
	assert.Empty(t, c.Search("physics"))
}

func TestCouponsAttachAndPrice(t *testing.T) {
	reg, _, f := setup(t)
	f.on("GET", "/api/v0/coupons/", `[{"coupon_code":"OLD","amount_type":"fixed-discount","amount":"10","program_id":1}]`)
	f.on("POST", "/api/v0/coupons/HALF%2FOFF/users/", `{"message":"ok","coupon":{"coupon_code":"HALF/OFF","amount_type":"percent-discount","amount":"0.5","program_id":1}}`)
	f.on("GET", "/api/v0/course_prices/ada/", `[{"program_id":1,"price":1000}]`)

	c := NewDashboardController(reg, "ada")
	_, err := wait(t, reg.Coupons.Get(context.Background(), resource.Args{}))
	require.NoError(t, err)
	_, err = wait(t, reg.Prices.Get(context.Background(), resource.Args{Subject: "ada"}))
	require.NoError(t, err)

	price, ok := c.Price(1)
	require.True(t, ok)
	assert.Equal(t, 990.0, price)

	_, err = wait(t, c.AttachCoupon(context.Background(), "HALF/OFF"))
	require.NoError(t, err)
	coupons := reg.Coupons.State("").Data
	require.Len(t, coupons, 1)
	assert.Equal(t, "HALF/OFF", coupons[0].CouponCode)

	price, ok = c.Price(1)
	require.True(t, ok)
	assert.Equal(t, 500.0, price)

	_, ok = c.Price(2)
	assert.False(t, ok)
}

func TestEnrollAndAutomaticEmailUpsert(t *testing.T) {
	reg, _, f := setup(t)
	f.on("GET", "/api/v0/enrolledprograms/", `[{"id":1,"title":"A"}]`)
	f.on("POST", "/api/v0/enrolledprograms/", `{"id":2,"title":"B"}`)
	f.on("GET", "/api/v0/mail/automatic_email/", `[{"id":5,"enabled":true},{"id":6,"enabled":true}]`)
	f.on("PATCH", "/api/v0/mail/automatic_email/6/", `{"id":6,"enabled":false}`)

	c := NewDashboardController(reg, "ada")
	_, err := wait(t, reg.Enrollments.Get(context.Background(), resource.Args{}))
	require.NoError(t, err)
	_, err = wait(t, c.Enroll(context.Background(), 2))
	require.NoError(t, err)
	assert.Equal(t, []api.Enrollment{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}, reg.Enrollments.State("").Data)

	_, err = wait(t, reg.AutomaticEmails.Get(context.Background(), resource.Args{}))
	require.NoError(t, err)
	_, err = wait(t, c.SetAutomaticEmail(context.Background(), 6, false))
	require.NoError(t, err)
	assert.Equal(t, []api.AutomaticEmail{{ID: 5, Enabled: true}, {ID: 6, Enabled: false}}, reg.AutomaticEmails.State("").Data)
}

func TestReauthHook(t *testing.T) {
	var mu sync.Mutex
	var expired []string
	hook := ReauthHook(func(res, subject string, _ error) {
		mu.Lock()
		expired = append(expired, res+"/"+subject)
		mu.Unlock()
	})
	reg, _, f := setup(t, resource.WithErrorHook(hook))
	f.fail("GET", "/api/v0/dashboard/ada/", &api.HTTPError{StatusCode: 400, Path: "/api/v0/dashboard/ada/"})
	f.fail("GET", "/api/v0/profiles/ada/", &api.HTTPError{StatusCode: 400, Path: "/api/v0/profiles/ada/"})
	f.fail("GET", "/api/v0/programs/", &api.HTTPError{StatusCode: 401, Path: "/api/v0/programs/"})

	_, _ = wait(t, reg.Dashboard.Get(context.Background(), resource.Args{Subject: "ada"}))
	_, _ = wait(t, reg.Profile.Get(context.Background(), resource.Args{Subject: "ada"}))
	_, _ = wait(t, reg.Programs.Get(context.Background(), resource.Args{}))

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"dashboard/ada", "programs/"}, expired)
}

func TestResetClearsLearnerState(t *testing.T) {
	reg, _, f := setup(t)
	f.on("GET", "/api/v0/dashboard/ada/", `{"programs":[]}`)
	f.on("GET", "/api/v0/dashboard/grace/", `{"programs":[]}`)
	_, err := wait(t, reg.Dashboard.Get(context.Background(), resource.Args{Subject: "ada"}))
	require.NoError(t, err)
	_, err = wait(t, reg.Dashboard.Get(context.Background(), resource.Args{Subject: "grace"}))
	require.NoError(t, err)

	NewDashboardController(reg, "ada").Reset()
	assert.Equal(t, []string{"grace"}, reg.Dashboard.Subjects())
}
