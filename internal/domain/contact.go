package domain

import (
	"context"
	"net/http"
)

// DefaultContactSubject pre-fills the subject field of an empty form.
const DefaultContactSubject = "General Inquiry"

// User-facing messages. Every failure maps to one of these; details only go
// to the operational log.
const (
	MsgInvalidFields  = "Please correct the highlighted fields and try again."
	MsgSpamDetected   = "Spam detected. If this is an error, please contact us by phone."
	MsgCaptchaFailed  = "reCAPTCHA verification failed. Please try again."
	MsgDeliveryFailed = "There was an error sending your message. Please try again later."
	MsgContactSent    = "Your message has been sent successfully!"
)

// ContactForm represents a contact form submission as posted by the page or
// the JSON API.
type ContactForm struct {
	Name    string `form:"name" json:"name" validate:"required,max=200,single_line"`
	Email   string `form:"email" json:"email" validate:"required,max=300,email"`
	Phone   string `form:"phone" json:"phone" validate:"required,max=30"`
	Subject string `form:"subject" json:"subject" validate:"required,max=200"`
	Message string `form:"message" json:"message" validate:"required,max=5000"`

	// Website is the honeypot: hidden from people, filled in by bots.
	Website        string `form:"website" json:"website"`
	RecaptchaToken string `form:"g-recaptcha-response" json:"recaptcha_token"`
}

// OutcomeStatus classifies how a submission ended.
type OutcomeStatus string

const (
	OutcomeSuccess        OutcomeStatus = "success"
	OutcomeInvalid        OutcomeStatus = "invalid"
	OutcomeSpam           OutcomeStatus = "spam"
	OutcomeCaptchaFailed  OutcomeStatus = "captcha_failed"
	OutcomeDeliveryFailed OutcomeStatus = "delivery_failed"
)

// Outcome is the result of handling one submission.
type Outcome struct {
	Status      OutcomeStatus
	Message     string
	FieldErrors map[string]string
}

func (o Outcome) Success() bool {
	return o.Status == OutcomeSuccess
}

// HTTPStatus maps the outcome onto a response code.
func (o Outcome) HTTPStatus() int {
	switch o.Status {
	case OutcomeSuccess:
		return http.StatusOK
	case OutcomeInvalid:
		return http.StatusUnprocessableEntity
	case OutcomeSpam, OutcomeCaptchaFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ContactUsecase defines the interface for contact form operations
type ContactUsecase interface {
	// SubmitContact validates the form, runs the spam and CAPTCHA checks and
	// sends the internal notice and the visitor confirmation.
	SubmitContact(ctx context.Context, form *ContactForm, remoteAddr string) Outcome
}
