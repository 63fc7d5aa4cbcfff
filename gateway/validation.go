package gateway

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/example/foodcart/pkg/orders"
	"github.com/go-playground/locales/ru"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	ru_translations "github.com/go-playground/validator/v10/translations/ru"
)

var personName = regexp.MustCompile(`^\p{L}[\p{L} '\-]*$`)

// requestValidator checks request bodies and renders failures as Russian
// messages keyed by JSON field path.
type requestValidator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func newRequestValidator() (*requestValidator, error) {
	locale := ru.New()
	trans, _ := ut.New(locale, locale).GetTranslator("ru")

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := ru_translations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, err
	}

	custom := []struct {
		tag     string
		fn      validator.Func
		message string
	}{
		{"person_name", func(fl validator.FieldLevel) bool {
			return personName.MatchString(fl.Field().String())
		}, "{0} может содержать только буквы, пробел, дефис и апостроф"},
		{"ru_phone", func(fl validator.FieldLevel) bool {
			_, err := orders.NormalizePhone(fl.Field().String())
			return err == nil
		}, "Введен некорректный номер телефона"},
	}
	for _, c := range custom {
		if err := v.RegisterValidation(c.tag, c.fn); err != nil {
			return nil, err
		}
		if err := registerMessage(v, trans, c.tag, c.message); err != nil {
			return nil, err
		}
	}
	// unique is only used on order items
	if err := registerMessage(v, trans, "unique", "{0} не должен содержать повторяющиеся товары"); err != nil {
		return nil, err
	}

	return &requestValidator{validate: v, trans: trans}, nil
}

func registerMessage(v *validator.Validate, trans ut.Translator, tag, message string) error {
	return v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, message, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field())
			return msg
		})
}

// Check returns nil or the failures keyed by field path, e.g.
// "items[1].quantity".
func (rv *requestValidator) Check(req interface{}) map[string]string {
	err := rv.validate.Struct(req)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"non_field_errors": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		out[field] = fe.Translate(rv.trans)
	}
	return out
}
