package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Engine runs struct-tag validation and renders messages in English, keyed
// by JSON field path (e.g. "first_name").
type Engine struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewEngine builds an Engine with the default English translations and the
// shared "required" message.
func NewEngine() *Engine {
	v := validator.New(validator.WithRequiredStructEnabled())

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, translator)

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	e := &Engine{validate: v, translator: translator}
	e.translate("required", RequiredMessage, true)
	return e
}

// RegisterPattern adds a string tag that must match re. Empty strings pass;
// combine with "required" when the field is mandatory. Every failure renders
// the same fixed message.
func (e *Engine) RegisterPattern(tag string, re *regexp.Regexp, message string) error {
	err := e.validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || re.MatchString(s)
	})
	if err != nil {
		return fmt.Errorf("register %s: %w", tag, err)
	}
	e.translate(tag, message, false)
	return nil
}

// RegisterMessage overrides the message rendered for an existing tag.
func (e *Engine) RegisterMessage(tag, message string) {
	e.translate(tag, message, true)
}

func (e *Engine) translate(tag, text string, override bool) {
	_ = e.validate.RegisterTranslation(
		tag, e.translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Check validates a struct value. The first failing rule per field wins.
func (e *Engine) Check(v any) ErrorMap {
	err := e.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ErrorMap{"": err.Error()}
	}
	out := ErrorMap{}
	for _, fe := range fieldErrs {
		key := fieldKey(fe.Namespace())
		if _, taken := out[key]; !taken {
			out[key] = fe.Translate(e.translator)
		}
	}
	return out
}

// Struct adapts the engine into a pipeline validator.
func Struct[T any](e *Engine) Validator[T] {
	return func(draft T, _ UIState) ErrorMap {
		return e.Check(draft)
	}
}

// fieldKey drops the top-level type name from a validator namespace.
func fieldKey(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}
