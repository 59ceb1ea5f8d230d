package validate

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type channelDraft struct {
	Name        string      `json:"name" validate:"required,handle"`
	Title       string      `json:"title" validate:"required"`
	Description string      `json:"description"`
	Sessions    []termDraft `json:"sessions" validate:"dive"`
}

type termDraft struct {
	Label string `json:"label" validate:"required"`
}

var (
	handleRe  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_]{2,20}$`)
	handleMsg = "Name must be 3-21 characters using letters, numbers and underscores"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine()
	require.NoError(t, e.RegisterPattern("handle", handleRe, handleMsg))
	return e
}

func TestPatternProducesSameMessageForEveryViolation(t *testing.T) {
	v := Struct[channelDraft](newTestEngine(t))

	for _, name := range []string{"_b", "b"} {
		errs := v(channelDraft{Name: name, Title: "t"}, nil)
		assert.Equal(t, ErrorMap{"name": handleMsg}, errs, "name %q", name)
	}
	assert.Empty(t, v(channelDraft{Name: "bb_bb", Title: "t"}, nil))
}

func TestEngineUsesJSONPathsAndRequiredMessage(t *testing.T) {
	v := Struct[channelDraft](newTestEngine(t))

	errs := v(channelDraft{Sessions: []termDraft{{Label: "ok"}, {}}}, nil)
	assert.Equal(t, ErrorMap{
		"name":              RequiredMessage,
		"title":             RequiredMessage,
		"sessions[1].label": RequiredMessage,
	}, errs)
}

func TestPipelineMergesDeterministically(t *testing.T) {
	first := func(channelDraft, UIState) ErrorMap { return ErrorMap{"name": "first", "title": "bad title"} }
	second := func(channelDraft, UIState) ErrorMap { return ErrorMap{"name": "second", "description": "short"} }

	p := NewPipeline[channelDraft](first, second)
	want := ErrorMap{"name": "first", "title": "bad title", "description": "short"}
	for i := 0; i < 20; i++ {
		assert.Equal(t, want, p.Run(channelDraft{}, nil))
	}
	assert.Equal(t, []string{"description", "name", "title"}, p.Run(channelDraft{}, nil).Keys())
}

func TestRequiredMatchAndWhen(t *testing.T) {
	name := func(d channelDraft) string { return d.Name }
	p := NewPipeline(
		Required("name", name),
		Match("name", handleRe, handleMsg, name),
		When(func(ui UIState) bool { return ui.Bool("publishing") }, Required("description", func(d channelDraft) string { return d.Description })),
	)

	assert.Equal(t, ErrorMap{"name": RequiredMessage}, p.Run(channelDraft{Name: "  "}, nil))
	assert.Equal(t, ErrorMap{"name": handleMsg}, p.Run(channelDraft{Name: "_b"}, nil))
	assert.True(t, p.Run(channelDraft{Name: "bb_bb"}, nil).Empty())
	assert.Equal(t, ErrorMap{"description": RequiredMessage}, p.Run(channelDraft{Name: "bb_bb"}, UIState{"publishing": true}))
}

func TestDateRange(t *testing.T) {
	jan := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	type span struct{ start, end time.Time }
	v := DateRange("end_date", func(s span) (time.Time, time.Time) { return s.start, s.end })

	assert.Nil(t, v(span{jan, jun}, nil))
	assert.Nil(t, v(span{jan, time.Time{}}, nil))
	assert.Equal(t, ErrorMap{"end_date": DateRangeMessage}, v(span{jun, jan}, nil))
}

func TestVisibleFiltersHiddenErrors(t *testing.T) {
	errs := ErrorMap{"name": "bad", "title": "missing"}
	vis := Visibility{}
	assert.Empty(t, Visible(errs, vis))

	vis.Reveal("title")
	assert.Equal(t, ErrorMap{"title": "missing"}, Visible(errs, vis))

	vis.RevealAll(errs)
	assert.Equal(t, errs, Visible(errs, vis))
	assert.Equal(t, []string{"name", "title"}, vis.Fields())
}

func TestErrorMessageListsFields(t *testing.T) {
	err := &Error{Fields: ErrorMap{"title": "x", "name": "y"}}
	assert.Equal(t, "validation failed: name, title", err.Error())
}
