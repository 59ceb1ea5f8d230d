package learner

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/five82/scholar/internal/api"
	"github.com/five82/scholar/internal/edit"
	"github.com/five82/scholar/internal/resource"
	"github.com/five82/scholar/internal/validate"
)

// Form binds an edit manager to one subject for a screen.
type Form[T any] struct {
	subject string
	res     *resource.Resource[T]
	edits   *edit.Manager[T]
}

func newForm[T any](subject string, res *resource.Resource[T], pipeline validate.Pipeline[T], opts edit.Options[T]) (*Form[T], error) {
	m, err := edit.NewManager(res, pipeline, opts)
	if err != nil {
		return nil, err
	}
	return &Form[T]{subject: subject, res: res, edits: m}, nil
}

// Subject returns the subject the form edits.
func (f *Form[T]) Subject() string { return f.subject }

// State returns the cached resource state behind the form.
func (f *Form[T]) State() resource.State[T] { return f.res.State(f.subject) }

// Start opens (or resumes) the edit session.
func (f *Form[T]) Start(ui validate.UIState) (edit.Session[T], error) {
	return f.edits.StartEdit(f.subject, ui)
}

// Set changes one field of the draft by its JSON name.
func (f *Form[T]) Set(field string, value any) (edit.Session[T], error) {
	return f.edits.UpdateDraft(f.subject, map[string]any{field: value})
}

// Patch changes several draft fields at once.
func (f *Form[T]) Patch(patch map[string]any) (edit.Session[T], error) {
	return f.edits.UpdateDraft(f.subject, patch)
}

// Touch reveals errors for fields the user has left.
func (f *Form[T]) Touch(fields ...string) (edit.Session[T], error) {
	return f.edits.SetVisibility(f.subject, fields...)
}

// Save commits the draft.
func (f *Form[T]) Save(ctx context.Context) *resource.Future[T] {
	return f.edits.Save(ctx, f.subject)
}

// Discard drops the draft.
func (f *Form[T]) Discard() { f.edits.Discard(f.subject) }

// Session returns the current session snapshot.
func (f *Form[T]) Session() (edit.Session[T], bool) { return f.edits.Session(f.subject) }

// ProfileController drives the profile screen of one learner.
type ProfileController struct {
	*Form[api.Profile]
}

// NewProfileController builds the controller for username.
func NewProfileController(reg *Registry, v *Validation, username string, logger *slog.Logger) (*ProfileController, error) {
	f, err := newForm(username, reg.Profile, v.Profile, edit.Options[api.Profile]{
		SaveOp: resource.OpPatch,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	return &ProfileController{Form: f}, nil
}

// Load fetches the profile.
func (c *ProfileController) Load(ctx context.Context) *resource.Future[api.Profile] {
	return c.res.Get(ctx, resource.Args{Subject: c.subject})
}

// ChannelController drives the create-channel form.
type ChannelController struct {
	*Form[api.Channel]
}

// NewChannelController builds the create-channel form controller.
func NewChannelController(reg *Registry, v *Validation, logger *slog.Logger) (*ChannelController, error) {
	f, err := newForm("", reg.Channels, v.Channel, edit.Options[api.Channel]{
		SaveOp: resource.OpPost,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	return &ChannelController{Form: f}, nil
}

// EmailController drives the compose-email form.
type EmailController struct {
	*Form[api.Email]
}

// NewEmailController builds the compose-email form controller.
func NewEmailController(reg *Registry, v *Validation, logger *slog.Logger) (*EmailController, error) {
	f, err := newForm("", reg.Email, v.Email, edit.Options[api.Email]{
		SaveOp: resource.OpPost,
		Args: func(subject string, draft api.Email) resource.Args {
			return resource.Args{
				Subject: subject,
				Params: map[string]string{
					"program_id": strconv.FormatInt(draft.ProgramID, 10),
					"username":   draft.Username,
				},
				Body: draft,
			}
		},
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	return &EmailController{Form: f}, nil
}

// ToProgram addresses the draft to every learner of programID.
func (c *EmailController) ToProgram(programID int64) (edit.Session[api.Email], error) {
	return c.Patch(map[string]any{"program_id": programID, "username": ""})
}

// ToLearner addresses the draft to one learner.
func (c *EmailController) ToLearner(username string) (edit.Session[api.Email], error) {
	return c.Patch(map[string]any{"program_id": 0, "username": username})
}

// FinancialAidController drives the financial aid request form of one
// program. Each program has its own slice of financial aid state.
type FinancialAidController struct {
	*Form[api.FinancialAid]
	programID int64
}

// NewFinancialAidController builds the form for programID.
func NewFinancialAidController(reg *Registry, v *Validation, programID int64, logger *slog.Logger) (*FinancialAidController, error) {
	if programID <= 0 {
		return nil, fmt.Errorf("financial aid: program id %d is invalid", programID)
	}
	f, err := newForm(strconv.FormatInt(programID, 10), reg.FinancialAid, v.FinancialAid, edit.Options[api.FinancialAid]{
		SaveOp: resource.OpPost,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	return &FinancialAidController{Form: f, programID: programID}, nil
}

// Start opens the session with the program preset.
func (c *FinancialAidController) Start(ui validate.UIState) (edit.Session[api.FinancialAid], error) {
	s, err := c.Form.Start(ui)
	if err != nil || s.Draft.ProgramID == c.programID {
		return s, err
	}
	return c.Set("program_id", c.programID)
}

// DashboardController drives the dashboard screen of one learner.
type DashboardController struct {
	reg      *Registry
	username string
}

// NewDashboardController builds the controller for username.
func NewDashboardController(reg *Registry, username string) *DashboardController {
	return &DashboardController{reg: reg, username: username}
}

// Username returns the learner the dashboard belongs to.
func (c *DashboardController) Username() string { return c.username }

// Refresh fetches the dashboard and course prices together. Background
// refreshes suppress the spinner. Both requests run to completion and
// record their own outcome; the first failure is returned.
func (c *DashboardController) Refresh(ctx context.Context, bg bool) error {
	args := resource.Args{
		Subject: c.username,
		Params:  map[string]string{ParamBackground: strconv.FormatBool(bg)},
	}
	var g errgroup.Group
	g.Go(func() error {
		_, err := c.reg.Dashboard.Get(ctx, args).Wait(ctx)
		return err
	})
	g.Go(func() error {
		_, err := c.reg.Prices.Get(ctx, args).Wait(ctx)
		return err
	})
	return g.Wait()
}

// LoadCatalog fetches programs, enrollments and coupons.
func (c *DashboardController) LoadCatalog(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		_, err := c.reg.Programs.Get(ctx, resource.Args{}).Wait(ctx)
		return err
	})
	g.Go(func() error {
		_, err := c.reg.Enrollments.Get(ctx, resource.Args{}).Wait(ctx)
		return err
	})
	g.Go(func() error {
		_, err := c.reg.Coupons.Get(ctx, resource.Args{}).Wait(ctx)
		return err
	})
	return g.Wait()
}

// Dashboard returns the cached dashboard state.
func (c *DashboardController) Dashboard() resource.State[api.Dashboard] {
	return c.reg.Dashboard.State(c.username)
}

// Prices returns the cached price state.
func (c *DashboardController) Prices() resource.State[[]api.CoursePrice] {
	return c.reg.Prices.State(c.username)
}

// Search filters the cached dashboard programs by title.
func (c *DashboardController) Search(query string) []api.DashboardProgram {
	return SearchPrograms(c.Dashboard().Data.Programs, query)
}

// Price returns the program price after the learner's coupon, and whether a
// price is known.
func (c *DashboardController) Price(programID int64) (float64, bool) {
	p, ok := PriceFor(c.Prices().Data, programID)
	if !ok {
		return 0, false
	}
	coupon, ok := CouponFor(c.reg.Coupons.State("").Data, programID)
	if !ok {
		return AdjustedPrice(p.Price, nil), true
	}
	return AdjustedPrice(p.Price, &coupon), true
}

// Enroll enrolls the learner in programID.
func (c *DashboardController) Enroll(ctx context.Context, programID int64) *resource.Future[[]api.Enrollment] {
	return c.reg.Enrollments.Post(ctx, resource.Args{Body: api.EnrollmentRequest{ProgramID: programID}})
}

// AttachCoupon attaches code to the learner.
func (c *DashboardController) AttachCoupon(ctx context.Context, code string) *resource.Future[[]api.Coupon] {
	return c.reg.Coupons.Post(ctx, resource.Args{
		Params: map[string]string{"code": code},
		Body:   map[string]string{"username": c.username},
	})
}

// SetAutomaticEmail enables or disables one automatic email.
func (c *DashboardController) SetAutomaticEmail(ctx context.Context, id int64, enabled bool) *resource.Future[[]api.AutomaticEmail] {
	return c.reg.AutomaticEmails.Patch(ctx, resource.Args{
		Params: map[string]string{"id": strconv.FormatInt(id, 10)},
		Body:   map[string]bool{"enabled": enabled},
	})
}

// Reset drops every cached slice owned by the learner, e.g. after sign-out.
func (c *DashboardController) Reset() {
	c.reg.Dashboard.Clear(c.username)
	c.reg.Prices.Clear(c.username)
	c.reg.Profile.Clear(c.username)
	c.reg.Coupons.Clear()
	c.reg.Enrollments.Clear()
}
