package learner

import (
	"fmt"
	"maps"
	"regexp"
	"strings"
	"time"

	"github.com/five82/scholar/internal/api"
	"github.com/five82/scholar/internal/validate"
)

// ChannelNamePattern is the rule for discussion channel names.
var ChannelNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_]{2,20}$`)

// Validation messages shown verbatim in forms.
const (
	ChannelNameMessage = "Name must be 3-21 characters and contain only letters, numbers and underscores. It cannot start with an underscore."
	CurrencyMessage    = "Please select a valid currency"
	CountryMessage     = "Please select a valid country"
	IncomeMessage      = "Income must be greater than zero"
	RecipientsMessage  = "Choose a program or a learner to email"
	GraduationMessage  = "Graduation date must be after date of birth"
)

// UIState keys understood by the learner validators.
const (
	// UIProfileStep is the active profile form step ("personal",
	// "education" or "employment"). History entries are only checked on
	// their own step or when the step is unset.
	UIProfileStep = "profile_step"
)

// Validation holds the configured validator engine and the per-form
// pipelines built on it.
type Validation struct {
	Engine       *validate.Engine
	Profile      validate.Pipeline[api.Profile]
	Channel      validate.Pipeline[api.Channel]
	Email        validate.Pipeline[api.Email]
	FinancialAid validate.Pipeline[api.FinancialAid]
}

// NewValidation builds the engine with the learner tags and messages.
func NewValidation() (*Validation, error) {
	e := validate.NewEngine()
	if err := e.RegisterPattern("channel_name", ChannelNamePattern, ChannelNameMessage); err != nil {
		return nil, err
	}
	e.RegisterMessage("iso4217", CurrencyMessage)
	e.RegisterMessage("iso3166_1_alpha2", CountryMessage)
	e.RegisterMessage("gt", IncomeMessage)

	return &Validation{
		Engine: e,
		Profile: validate.NewPipeline(
			validate.Struct[api.Profile](e),
			validate.When(stepIs("education"), entries(e, "education", func(p api.Profile) []api.Education { return p.Education })),
			validate.When(stepIs("employment"), entries(e, "work_history", func(p api.Profile) []api.Employment { return p.WorkHistory })),
			workHistoryDates,
			graduationAfterBirth,
		),
		Channel: validate.NewPipeline(
			validate.Struct[api.Channel](e),
		),
		Email: validate.NewPipeline(
			validate.Struct[api.Email](e),
			emailRecipients,
		),
		FinancialAid: validate.NewPipeline(
			validate.Struct[api.FinancialAid](e),
		),
	}, nil
}

func onStep(ui validate.UIState, step string) bool {
	cur, _ := ui[UIProfileStep].(string)
	return cur == "" || cur == step
}

func stepIs(step string) func(validate.UIState) bool {
	return func(ui validate.UIState) bool { return onStep(ui, step) }
}

// entries checks each element of a profile history list with the struct
// engine, keying errors as field[i].name.
func entries[E any](e *validate.Engine, field string, list func(api.Profile) []E) validate.Validator[api.Profile] {
	return func(p api.Profile, _ validate.UIState) validate.ErrorMap {
		out := validate.ErrorMap{}
		for i, entry := range list(p) {
			for k, msg := range e.Check(entry) {
				out[fmt.Sprintf("%s[%d].%s", field, i, k)] = msg
			}
		}
		return out
	}
}

func workHistoryDates(p api.Profile, ui validate.UIState) validate.ErrorMap {
	if !onStep(ui, "employment") {
		return nil
	}
	out := validate.ErrorMap{}
	for i, job := range p.WorkHistory {
		check := validate.DateRange(fmt.Sprintf("work_history[%d].end_date", i), func(e api.Employment) (time.Time, time.Time) {
			return e.Start(), e.End()
		})
		maps.Copy(out, check(job, ui))
	}
	return out
}

func graduationAfterBirth(p api.Profile, ui validate.UIState) validate.ErrorMap {
	if !onStep(ui, "education") {
		return nil
	}
	birth := api.ParseDate(p.DateOfBirth)
	out := validate.ErrorMap{}
	for i, ed := range p.Education {
		check := validate.DateRange(fmt.Sprintf("education[%d].graduation_date", i), func(ed api.Education) (time.Time, time.Time) {
			return birth, api.ParseDate(ed.GraduationDate)
		})
		for k := range check(ed, ui) {
			out[k] = GraduationMessage
		}
	}
	return out
}

func emailRecipients(e api.Email, _ validate.UIState) validate.ErrorMap {
	if e.ProgramID > 0 || strings.TrimSpace(e.Username) != "" {
		return nil
	}
	return validate.ErrorMap{"recipients": RecipientsMessage}
}
