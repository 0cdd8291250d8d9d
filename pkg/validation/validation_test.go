package validation_test

import (
	"errors"
	"strings"
	"testing"

	"rsi-website-backend/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"(555) 123-4567", "5551234567"},
		{"+1 (555) 123-4567", "+15551234567"},
		{"  555.123.4567  ", "5551234567"},
		{"+44 20 7946 0958", "+442079460958"},
		{"555-123-456", ""},      // nine digits
		{"++15551234567", "+15551234567"},
		{"1+5551234567", "15551234567"}, // '+' only kept in leading position
		{"call me", ""},
		{"", ""},
		{"   ", ""},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, validation.NormalizePhone(tc.in))
		})
	}
}

func TestNormalizePhoneIdempotent(t *testing.T) {
	inputs := []string{
		"(555) 123-4567",
		"+1 555 123 4567",
		"555-123-45",
		"+++000 000 0000 ext. 12",
		"tel: 0044 (0) 20 7946 0958",
	}

	for _, in := range inputs {
		once := validation.NormalizePhone(in)
		assert.Equal(t, once, validation.NormalizePhone(once), "input %q", in)
	}
}

func TestNormalizePhoneRequiresTenDigits(t *testing.T) {
	for n := 0; n < validation.MinPhoneDigits; n++ {
		assert.Empty(t, validation.NormalizePhone(strings.Repeat("7", n)))
	}
	assert.Equal(t, "7777777777", validation.NormalizePhone(strings.Repeat("7", 10)))
}

type form struct {
	Name    string `form:"name" validate:"required,max=5,single_line"`
	Email   string `form:"email" validate:"required,email"`
	Message string `form:"message" validate:"required"`
}

func TestFieldErrors(t *testing.T) {
	v := validation.New()

	err := v.Struct(form{Name: "a\nb", Email: "not-an-email"})
	require.Error(t, err)

	fields := validation.FieldErrors(err)
	assert.Equal(t, "Name must be a single line.", fields["name"])
	assert.Equal(t, "Please enter a valid email address.", fields["email"])
	assert.Equal(t, "Message is required.", fields["message"])

	err = v.Struct(form{Name: "toolong", Email: "a@b.co", Message: "hi"})
	require.Error(t, err)
	assert.Equal(t, "Name must be at most 5 characters.", validation.FieldErrors(err)["name"])
}

func TestFieldErrorsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, validation.FieldErrors(errors.New("boom")))
}
