package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"rsi-website-backend/internal/domain"
	"rsi-website-backend/pkg/email"
	"rsi-website-backend/pkg/logger"
	"rsi-website-backend/pkg/security"
	"rsi-website-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

// CaptchaVerifier checks a challenge-response token. A nil error means the
// challenge was passed.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Mailer sends the two contact emails.
type Mailer interface {
	SendInternalNotice(ctx context.Context, data email.ContactData) error
	SendVisitorConfirmation(ctx context.Context, data email.ContactData) error
}

type contactUsecase struct {
	mailer   Mailer
	captcha  CaptchaVerifier
	validate *validator.Validate
	events   *security.SecurityLogger
	now      func() time.Time
}

// NewContactUsecase creates a new contact usecase
func NewContactUsecase(mailer Mailer, captcha CaptchaVerifier, validate *validator.Validate, events *security.SecurityLogger) domain.ContactUsecase {
	if validate == nil {
		validate = validation.New()
	}
	if events == nil {
		events = security.NopLogger()
	}
	return &contactUsecase{
		mailer:   mailer,
		captcha:  captcha,
		validate: validate,
		events:   events,
		now:      time.Now,
	}
}

// SubmitContact runs the gates in order, stopping at the first failure:
// field validation, phone normalization, honeypot, CAPTCHA, then the two
// sends.
func (uc *contactUsecase) SubmitContact(ctx context.Context, form *domain.ContactForm, remoteAddr string) domain.Outcome {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	form.Subject = strings.TrimSpace(form.Subject)
	form.Message = strings.TrimSpace(form.Message)

	if err := uc.validate.Struct(form); err != nil {
		fields := validation.FieldErrors(err)
		if fields == nil {
			logger.Log.Error("contact form validation errored", "error", err)
			fields = map[string]string{}
		}
		uc.events.LogContactEvent(ctx, security.EventValidationFailed, form.Email, remoteAddr, map[string]interface{}{"fields": fieldNames(fields)})
		return invalid(fields)
	}

	phone := validation.NormalizePhone(form.Phone)
	if phone == "" {
		uc.events.LogContactEvent(ctx, security.EventValidationFailed, form.Email, remoteAddr, map[string]interface{}{"fields": []string{"phone"}})
		return invalid(map[string]string{"phone": validation.PhoneInvalidMessage})
	}
	form.Phone = phone

	if form.Website != "" {
		uc.events.LogContactEvent(ctx, security.EventSpamRejected, form.Email, remoteAddr, nil)
		return domain.Outcome{Status: domain.OutcomeSpam, Message: domain.MsgSpamDetected}
	}

	if err := uc.captcha.Verify(ctx, form.RecaptchaToken, remoteAddr); err != nil {
		uc.events.LogContactEvent(ctx, security.EventCaptchaFailed, form.Email, remoteAddr, map[string]interface{}{"reason": err.Error()})
		return domain.Outcome{Status: domain.OutcomeCaptchaFailed, Message: domain.MsgCaptchaFailed}
	}

	data := email.ContactData{
		Name:        form.Name,
		Email:       form.Email,
		Phone:       phone,
		Subject:     form.Subject,
		Message:     form.Message,
		SubmittedAt: uc.now().UTC(),
	}

	if err := uc.mailer.SendInternalNotice(ctx, data); err != nil {
		return uc.deliveryFailed(ctx, "internal_notice", form.Email, err)
	}
	if err := uc.mailer.SendVisitorConfirmation(ctx, data); err != nil {
		return uc.deliveryFailed(ctx, "visitor_confirmation", form.Email, err)
	}

	uc.events.LogContactEvent(ctx, security.EventContactSubmitted, form.Email, remoteAddr, nil)
	return domain.Outcome{Status: domain.OutcomeSuccess, Message: domain.MsgContactSent}
}

// deliveryFailed logs the send failure without message content and maps it
// to the generic outcome. The submission is dropped, not queued.
func (uc *contactUsecase) deliveryFailed(ctx context.Context, stage, submitter string, err error) domain.Outcome {
	kind := "delivery"
	if errors.Is(err, email.ErrNotConfigured) {
		kind = "configuration"
	}
	logger.Log.WarnContext(ctx, "failed to send contact email",
		"stage", stage,
		"kind", kind,
		"submitter", security.MaskEmail(submitter),
		"request_id", security.RequestIDFromContext(ctx),
		"error", err,
	)
	return domain.Outcome{Status: domain.OutcomeDeliveryFailed, Message: domain.MsgDeliveryFailed}
}

func invalid(fields map[string]string) domain.Outcome {
	return domain.Outcome{
		Status:      domain.OutcomeInvalid,
		Message:     domain.MsgInvalidFields,
		FieldErrors: fields,
	}
}

func fieldNames(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	return names
}
