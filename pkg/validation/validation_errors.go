package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// FieldLabels maps form field names to user-friendly labels
var FieldLabels = map[string]string{
	"name":    "Name",
	"email":   "Email",
	"phone":   "Phone",
	"subject": "Subject",
	"message": "Message",
}

// PhoneInvalidMessage is shown on the phone field when normalization fails.
const PhoneInvalidMessage = "Please enter a valid phone number."

// FieldErrors converts validator.ValidationErrors to one message per form
// field. The first failing rule of a field wins.
func FieldErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		// Not a validation error, nothing is attributable to a field
		return nil
	}

	messages := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		if _, seen := messages[e.Field()]; seen {
			continue
		}
		messages[e.Field()] = formatSingleError(e)
	}
	return messages
}

// formatSingleError formats a single validation error to a user-friendly message
func formatSingleError(e validator.FieldError) string {
	label := getFieldLabel(e.Field())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", label)

	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label, e.Param())

	case "email":
		return "Please enter a valid email address."

	case "single_line":
		return fmt.Sprintf("%s must be a single line.", label)

	default:
		// Fallback for unknown tags
		return fmt.Sprintf("%s is invalid.", label)
	}
}

// getFieldLabel returns the user-friendly label for a field
func getFieldLabel(fieldName string) string {
	if label, ok := FieldLabels[fieldName]; ok {
		return label
	}
	return fieldName
}
