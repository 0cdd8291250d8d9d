package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MinPhoneDigits is the fewest digits a phone number may carry after
// normalization.
const MinPhoneDigits = 10

// New returns a validator with the custom rules registered and field names
// reported by their form tag, so messages can be keyed the way the page posts them.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	RegisterValidators(v)
	return v
}

// RegisterValidators registers custom validators to the validator instance
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("single_line", SingleLine)
}

// SingleLine rejects values containing CR or LF. Names end up in mail
// headers, so they must stay on one line.
func SingleLine(fl validator.FieldLevel) bool {
	return !strings.ContainsAny(fl.Field().String(), "\r\n")
}

// NormalizePhone keeps digits and a single leading '+', dropping everything
// else. It returns "" when fewer than MinPhoneDigits digits remain.
// Normalizing an already normalized number returns it unchanged.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var b strings.Builder
	digits := 0
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}

	if digits < MinPhoneDigits {
		return ""
	}
	return b.String()
}
