package learner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/five82/scholar/internal/api"
	"github.com/five82/scholar/internal/resource"
)

// Resource names. They also prefix every derived event type.
const (
	ProfileName         = "profile"
	DashboardName       = "dashboard"
	ProgramsName        = "programs"
	EnrollmentsName     = "enrollments"
	CouponsName         = "coupons"
	PricesName          = "prices"
	FinancialAidName    = "financial_aid"
	ChannelsName        = "channels"
	AutomaticEmailsName = "automatic_emails"
	EmailName           = "email"
)

// ParamBackground marks a request as background refresh work; the UI shows
// no spinner for it.
const ParamBackground = "background"

// Registry holds every registered learner resource.
type Registry struct {
	Store           *resource.Store
	Profile         *resource.Resource[api.Profile]
	Dashboard       *resource.Resource[api.Dashboard]
	Programs        *resource.Resource[[]api.Program]
	Enrollments     *resource.Resource[[]api.Enrollment]
	Coupons         *resource.Resource[[]api.Coupon]
	Prices          *resource.Resource[[]api.CoursePrice]
	FinancialAid    *resource.Resource[api.FinancialAid]
	Channels        *resource.Resource[api.Channel]
	AutomaticEmails *resource.Resource[[]api.AutomaticEmail]
	Email           *resource.Resource[api.Email]
}

// NewRegistry registers all learner resources in store, fetching through f.
func NewRegistry(store *resource.Store, f api.Fetcher) (*Registry, error) {
	if f == nil {
		return nil, fmt.Errorf("learner registry: fetcher is nil")
	}
	fetch := fetchVia(f)
	r := &Registry{Store: store}

	var err error
	if r.Profile, err = resource.Register(store, profileDescriptor(fetch)); err != nil {
		return nil, err
	}
	if r.Dashboard, err = resource.Register(store, dashboardDescriptor(fetch)); err != nil {
		return nil, err
	}
	if r.Programs, err = resource.Register(store, programsDescriptor(fetch)); err != nil {
		return nil, err
	}
	if r.Enrollments, err = resource.Register(store, enrollmentsDescriptor(fetch)); err != nil {
		return nil, err
	}
	if r.Coupons, err = resource.Register(store, couponsDescriptor(fetch)); err != nil {
		return nil, err
	}
	if r.Prices, err = resource.Register(store, pricesDescriptor(fetch)); err != nil {
		return nil, err
	}
	if r.FinancialAid, err = resource.Register(store, financialAidDescriptor(fetch)); err != nil {
		return nil, err
	}
	if r.Channels, err = resource.Register(store, channelsDescriptor(fetch)); err != nil {
		return nil, err
	}
	if r.AutomaticEmails, err = resource.Register(store, automaticEmailsDescriptor(fetch)); err != nil {
		return nil, err
	}
	if r.Email, err = resource.Register(store, emailDescriptor(fetch)); err != nil {
		return nil, err
	}
	return r, nil
}

// fetchVia adapts the API client to the resource transport signature. URLs
// built by the descriptors are paths relative to the API root.
func fetchVia(f api.Fetcher) resource.FetchFunc {
	return func(ctx context.Context, path string, opts resource.RequestOptions) (json.RawMessage, error) {
		return f.FetchJSON(ctx, opts.Method, path, opts.Body)
	}
}

func background(_ resource.Op, args resource.Args) bool {
	v, _ := strconv.ParseBool(args.Param(ParamBackground))
	return v
}

// path joins escaped segments under /api/v0/ and appends args.Query.
func path(args resource.Args, segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	p := "/api/v0/" + strings.Join(escaped, "/") + "/"
	if len(args.Query) > 0 {
		p += "?" + args.Query.Encode()
	}
	return p
}

func subjectPath(prefix string) func(resource.Op, resource.Args) (string, error) {
	return func(_ resource.Op, args resource.Args) (string, error) {
		if strings.TrimSpace(args.Subject) == "" {
			return "", fmt.Errorf("%s: subject is empty", prefix)
		}
		return path(args, prefix, args.Subject), nil
	}
}

func profileDescriptor(fetch resource.FetchFunc) resource.Descriptor[api.Profile] {
	return resource.Descriptor[api.Profile]{
		Name:       ProfileName,
		Ops:        []resource.Op{resource.OpGet, resource.OpPatch},
		Namespaced: true,
		URLFor:     subjectPath("profiles"),
		Fetch:      fetch,
	}
}

func dashboardDescriptor(fetch resource.FetchFunc) resource.Descriptor[api.Dashboard] {
	return resource.Descriptor[api.Dashboard]{
		Name:            DashboardName,
		Ops:             []resource.Op{resource.OpGet},
		Namespaced:      true,
		SuppressSpinner: background,
		URLFor:          subjectPath("dashboard"),
		Fetch:           fetch,
	}
}

func pricesDescriptor(fetch resource.FetchFunc) resource.Descriptor[[]api.CoursePrice] {
	return resource.Descriptor[[]api.CoursePrice]{
		Name:            PricesName,
		Ops:             []resource.Op{resource.OpGet},
		Namespaced:      true,
		SuppressSpinner: background,
		URLFor:          subjectPath("course_prices"),
		Fetch:           fetch,
	}
}

func programsDescriptor(fetch resource.FetchFunc) resource.Descriptor[[]api.Program] {
	return resource.Descriptor[[]api.Program]{
		Name: ProgramsName,
		Ops:  []resource.Op{resource.OpGet},
		URLFor: func(_ resource.Op, args resource.Args) (string, error) {
			return path(args, "programs"), nil
		},
		Fetch: fetch,
	}
}

func enrollmentsDescriptor(fetch resource.FetchFunc) resource.Descriptor[[]api.Enrollment] {
	return resource.Descriptor[[]api.Enrollment]{
		Name: EnrollmentsName,
		Ops:  []resource.Op{resource.OpGet, resource.OpPost},
		URLFor: func(_ resource.Op, args resource.Args) (string, error) {
			return path(args, "enrolledprograms"), nil
		},
		Fetch:     fetch,
		Transform: oneOrMany[api.Enrollment](EnrollmentsName),
		Merge: func(prev []api.Enrollment, _ bool, next []api.Enrollment, _ resource.Op) []api.Enrollment {
			return upsert(prev, next, func(e api.Enrollment) int64 { return e.ID })
		},
	}
}

func couponsDescriptor(fetch resource.FetchFunc) resource.Descriptor[[]api.Coupon] {
	return resource.Descriptor[[]api.Coupon]{
		Name: CouponsName,
		Ops:  []resource.Op{resource.OpGet, resource.OpPost},
		URLFor: func(op resource.Op, args resource.Args) (string, error) {
			if op == resource.OpGet {
				return path(args, "coupons"), nil
			}
			code := strings.TrimSpace(args.Param("code"))
			if code == "" {
				return "", fmt.Errorf("coupon code is empty")
			}
			return path(args, "coupons", code, "users"), nil
		},
		Fetch: fetch,
		Transform: func(op resource.Op, raw json.RawMessage) ([]api.Coupon, error) {
			if op == resource.OpGet {
				return decode[[]api.Coupon](CouponsName, raw)
			}
			att, err := decode[api.CouponAttachment](CouponsName, raw)
			if err != nil {
				return nil, err
			}
			return []api.Coupon{att.Coupon}, nil
		},
		Merge: func(prev []api.Coupon, _ bool, next []api.Coupon, _ resource.Op) []api.Coupon {
			return MergeCoupons(prev, next)
		},
	}
}

func financialAidDescriptor(fetch resource.FetchFunc) resource.Descriptor[api.FinancialAid] {
	return resource.Descriptor[api.FinancialAid]{
		Name:       FinancialAidName,
		Ops:        []resource.Op{resource.OpPost},
		Namespaced: true,
		URLFor: func(_ resource.Op, args resource.Args) (string, error) {
			return path(args, "financial_aid_request"), nil
		},
		Fetch: fetch,
	}
}

func channelsDescriptor(fetch resource.FetchFunc) resource.Descriptor[api.Channel] {
	return resource.Descriptor[api.Channel]{
		Name: ChannelsName,
		Ops:  []resource.Op{resource.OpPost},
		URLFor: func(_ resource.Op, args resource.Args) (string, error) {
			return path(args, "mail", "channels"), nil
		},
		Fetch: fetch,
	}
}

func automaticEmailsDescriptor(fetch resource.FetchFunc) resource.Descriptor[[]api.AutomaticEmail] {
	return resource.Descriptor[[]api.AutomaticEmail]{
		Name: AutomaticEmailsName,
		Ops:  []resource.Op{resource.OpGet, resource.OpPatch},
		URLFor: func(op resource.Op, args resource.Args) (string, error) {
			if op == resource.OpGet {
				return path(args, "mail", "automatic_email"), nil
			}
			id := args.Param("id")
			if _, err := strconv.ParseInt(id, 10, 64); err != nil {
				return "", fmt.Errorf("automatic email id %q: %w", id, err)
			}
			return path(args, "mail", "automatic_email", id), nil
		},
		Fetch:     fetch,
		Transform: oneOrMany[api.AutomaticEmail](AutomaticEmailsName),
		Merge: func(prev []api.AutomaticEmail, _ bool, next []api.AutomaticEmail, _ resource.Op) []api.AutomaticEmail {
			return upsert(prev, next, func(e api.AutomaticEmail) int64 { return e.ID })
		},
	}
}

func emailDescriptor(fetch resource.FetchFunc) resource.Descriptor[api.Email] {
	return resource.Descriptor[api.Email]{
		Name: EmailName,
		Ops:  []resource.Op{resource.OpPost},
		URLFor: func(_ resource.Op, args resource.Args) (string, error) {
			if id := args.Param("program_id"); id != "" && id != "0" {
				return path(args, "mail", "program", id), nil
			}
			if username := args.Param("username"); username != "" {
				return path(args, "mail", "learner", username), nil
			}
			return "", fmt.Errorf("email has no recipients")
		},
		Fetch: fetch,
	}
}

func decode[T any](name string, raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s response: %w", name, err)
	}
	return out, nil
}

// oneOrMany decodes GET responses as lists and POST/PATCH responses as a
// single entry wrapped in a list, so Merge can fold it into the cache.
func oneOrMany[E any](name string) func(resource.Op, json.RawMessage) ([]E, error) {
	return func(op resource.Op, raw json.RawMessage) ([]E, error) {
		if op == resource.OpGet {
			return decode[[]E](name, raw)
		}
		one, err := decode[E](name, raw)
		if err != nil {
			return nil, err
		}
		return []E{one}, nil
	}
}

// upsert replaces entries of prev sharing an id with next and appends the rest.
func upsert[E any](prev, next []E, id func(E) int64) []E {
	out := slices.Clone(prev)
	for _, n := range next {
		i := slices.IndexFunc(out, func(p E) bool { return id(p) == id(n) })
		if i >= 0 {
			out[i] = n
			continue
		}
		out = append(out, n)
	}
	return out
}
