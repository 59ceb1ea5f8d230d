package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/scholar/internal/edit"
	"github.com/five82/scholar/internal/learner"
	"github.com/five82/scholar/internal/validate"
)

type fieldKind int

const (
	fieldText fieldKind = iota
	fieldInt
	fieldFloat
)

const numberMessage = "Must be a number"

// formField is one editable draft field, addressed by its JSON name.
type formField struct {
	key   string
	label string
	kind  fieldKind
}

// formView is the draft-type independent view of an edit session.
type formView struct {
	values  map[string]string
	visible validate.ErrorMap
	saving  bool
	saveErr error
}

// formBinding erases the draft type of a learner form so one screen can
// drive all of them.
type formBinding struct {
	title   string
	fields  []formField
	start   func() (formView, error)
	set     func(field string, value any) (formView, error)
	touch   func(field string) (formView, error)
	save    func(ctx context.Context) tea.Cmd
	current func() (formView, bool)
	discard func()
}

func bindForm[T any](title string, f *learner.Form[T], start func() (edit.Session[T], error), fields []formField) formBinding {
	return formBinding{
		title:  title,
		fields: fields,
		start: func() (formView, error) {
			s, err := start()
			return viewOf(s, fields), err
		},
		set: func(field string, value any) (formView, error) {
			s, err := f.Set(field, value)
			return viewOf(s, fields), err
		},
		touch: func(field string) (formView, error) {
			s, err := f.Touch(field)
			return viewOf(s, fields), err
		},
		save: func(ctx context.Context) tea.Cmd {
			pending := f.Save(ctx)
			return func() tea.Msg {
				_, err := pending.Wait(ctx)
				return savedMsg{title: title, err: err}
			}
		},
		current: func() (formView, bool) {
			s, ok := f.Session()
			if !ok {
				return formView{}, false
			}
			return viewOf(s, fields), true
		},
		discard: f.Discard,
	}
}

func viewOf[T any](s edit.Session[T], fields []formField) formView {
	v := formView{
		values:  make(map[string]string, len(fields)),
		visible: s.VisibleErrors(),
		saving:  s.Saving,
		saveErr: s.SaveErr,
	}
	raw, err := json.Marshal(s.Draft)
	if err != nil {
		return v
	}
	var draft map[string]any
	if json.Unmarshal(raw, &draft) != nil {
		return v
	}
	for _, f := range fields {
		v.values[f.key] = formatValue(draft[f.key])
	}
	return v
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == 0 {
			return ""
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// parseField converts input text to the JSON value the draft expects.
func parseField(kind fieldKind, text string) (any, error) {
	text = strings.TrimSpace(text)
	switch kind {
	case fieldInt:
		if text == "" {
			return 0, nil
		}
		return strconv.ParseInt(text, 10, 64)
	case fieldFloat:
		if text == "" {
			return 0.0, nil
		}
		return strconv.ParseFloat(text, 64)
	default:
		return text, nil
	}
}

// formState is an open form screen.
type formState struct {
	binding   formBinding
	inputs    []textinput.Model
	focus     int
	view      formView
	parseErrs map[string]string
}

func newFormState(b formBinding) (*formState, error) {
	view, err := b.start()
	if err != nil {
		return nil, err
	}
	fs := &formState{
		binding:   b,
		inputs:    make([]textinput.Model, len(b.fields)),
		view:      view,
		parseErrs: map[string]string{},
	}
	for i, f := range b.fields {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 500
		in.Width = 40
		in.Placeholder = f.label
		in.SetValue(view.values[f.key])
		fs.inputs[i] = in
	}
	if len(fs.inputs) > 0 {
		fs.inputs[0].Focus()
	}
	return fs, nil
}

// edited pushes the focused input into the draft.
func (fs *formState) edited() error {
	f := fs.binding.fields[fs.focus]
	value, err := parseField(f.kind, fs.inputs[fs.focus].Value())
	if err != nil {
		fs.parseErrs[f.key] = numberMessage
		return nil
	}
	delete(fs.parseErrs, f.key)
	view, err := fs.binding.set(f.key, value)
	if err != nil {
		return err
	}
	fs.view = view
	return nil
}

// move blurs the focused field, reveals its errors and focuses the field
// delta positions away.
func (fs *formState) move(delta int) error {
	if len(fs.inputs) == 0 {
		return nil
	}
	left := fs.binding.fields[fs.focus].key
	fs.inputs[fs.focus].Blur()
	fs.focus = (fs.focus + delta + len(fs.inputs)) % len(fs.inputs)
	fs.inputs[fs.focus].Focus()
	view, err := fs.binding.touch(left)
	if err != nil {
		return err
	}
	fs.view = view
	return nil
}

// refresh re-reads the session; false means it no longer exists.
func (fs *formState) refresh() bool {
	view, ok := fs.binding.current()
	if ok {
		fs.view = view
	}
	return ok
}

// errorFor returns the message shown under field, if any.
func (fs *formState) errorFor(field string) string {
	if msg, ok := fs.parseErrs[field]; ok {
		return msg
	}
	return fs.view.visible[field]
}

// unboundErrors returns visible error keys with no input of their own,
// e.g. "recipients" or nested history entries.
func (fs *formState) unboundErrors() []string {
	var out []string
	for _, k := range fs.view.visible.Keys() {
		if !slices.ContainsFunc(fs.binding.fields, func(f formField) bool { return f.key == k }) {
			out = append(out, k)
		}
	}
	return out
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	fs := m.form
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.Escape):
		fs.binding.discard()
		m.form = nil
		m.flash("Discarded "+strings.ToLower(fs.binding.title), false)
		return m, nil
	case key.Matches(msg, m.keys.Save):
		if fs.view.saving {
			return m, nil
		}
		if len(fs.parseErrs) > 0 {
			m.flash("Fix the highlighted fields", true)
			return m, nil
		}
		cmd := fs.binding.save(m.ctx)
		fs.refresh()
		return m, cmd
	case key.Matches(msg, m.keys.NextField):
		if err := fs.move(1); err != nil {
			m.flash(err.Error(), true)
		}
		return m, nil
	case key.Matches(msg, m.keys.PrevField):
		if err := fs.move(-1); err != nil {
			m.flash(err.Error(), true)
		}
		return m, nil
	}

	if len(fs.inputs) == 0 || fs.view.saving {
		return m, nil
	}
	before := fs.inputs[fs.focus].Value()
	var cmd tea.Cmd
	fs.inputs[fs.focus], cmd = fs.inputs[fs.focus].Update(msg)
	if fs.inputs[fs.focus].Value() != before {
		if err := fs.edited(); err != nil {
			m.flash(err.Error(), true)
		}
	}
	return m, cmd
}

// handleSaved reports a finished save.
func (m Model) handleSaved(msg savedMsg) Model {
	var verr *validate.Error
	switch {
	case msg.err == nil:
		m.flash(msg.title+" saved", false)
	case errors.As(msg.err, &verr):
		m.flash(fmt.Sprintf("%s has %d invalid field(s)", msg.title, len(verr.Fields)), true)
	case errors.Is(msg.err, edit.ErrSaveInProgress):
		return m
	default:
		m.flash(msg.title+" not saved: "+describeError(msg.err), true)
	}
	if m.form != nil && m.form.binding.title == msg.title && !m.form.refresh() {
		m.form = nil
	}
	return m
}

func (m Model) renderForm() string {
	fs := m.form
	styles := m.theme.Styles()
	labelStyle := styles.MutedText.Width(22)

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(fs.binding.title))
	b.WriteString("\n\n")
	for i, f := range fs.binding.fields {
		label := f.label
		if i == fs.focus {
			label = "› " + label
		} else {
			label = "  " + label
		}
		b.WriteString(labelStyle.Render(label))
		b.WriteString(fs.inputs[i].View())
		b.WriteString("\n")
		if msg := fs.errorFor(f.key); msg != "" {
			b.WriteString(labelStyle.Render(""))
			b.WriteString(styles.DangerText.Render(msg))
			b.WriteString("\n")
		}
	}
	for _, field := range fs.unboundErrors() {
		b.WriteString("\n")
		b.WriteString(styles.DangerText.Render(fs.view.visible[field]))
	}
	if len(fs.unboundErrors()) > 0 {
		b.WriteString("\n")
	}
	b.WriteString("\n")
	switch {
	case fs.view.saving:
		b.WriteString(m.spinner.View() + styles.MutedText.Render(" Saving..."))
	case fs.view.saveErr != nil:
		b.WriteString(styles.DangerText.Render("Last save failed: " + describeError(fs.view.saveErr)))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Border)).
		Padding(1, 2).
		Render(b.String())
}

var (
	profileFields = []formField{
		{key: "first_name", label: "First name"},
		{key: "last_name", label: "Last name"},
		{key: "preferred_name", label: "Preferred name"},
		{key: "country", label: "Country (ISO code)"},
		{key: "city", label: "City"},
		{key: "date_of_birth", label: "Date of birth"},
		{key: "about_me", label: "About me"},
	}
	financialAidFields = []formField{
		{key: "original_income", label: "Yearly income", kind: fieldFloat},
		{key: "original_currency", label: "Currency (ISO code)"},
	}
	channelFields = []formField{
		{key: "name", label: "Name"},
		{key: "title", label: "Title"},
		{key: "public_description", label: "Description"},
		{key: "channel_type", label: "Type"},
		{key: "program_id", label: "Program ID", kind: fieldInt},
	}
	emailFields = []formField{
		{key: "program_id", label: "Program ID", kind: fieldInt},
		{key: "username", label: "Learner"},
		{key: "email_subject", label: "Subject"},
		{key: "email_body", label: "Body"},
	}
)
