package v1

import (
	"net/http"
	"strings"

	"rsi-website-backend/internal/delivery/http/middleware"
	"rsi-website-backend/internal/delivery/http/response"
	"rsi-website-backend/internal/domain"
	"rsi-website-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// ThanksPath is where a successful form post is redirected.
const ThanksPath = "/contact/thanks"

type ContactHandler struct {
	contactUC domain.ContactUsecase
	siteName  string
	siteKey   string
}

// contactPage is the view model of templates/contact.html.
type contactPage struct {
	SiteName  string
	SiteKey   string
	CSRFToken string
	Form      domain.ContactForm
	Message   string
	Errors    map[string]string
}

// NewContactHandler registers the contact page on pages and the JSON variant
// on api. Both submit routes share the limiter so the budget is per client
// rather than per route.
func NewContactHandler(pages, api *gin.RouterGroup, contactUC domain.ContactUsecase, siteName, siteKey string, limiter gin.HandlerFunc) {
	handler := &ContactHandler{
		contactUC: contactUC,
		siteName:  siteName,
		siteKey:   siteKey,
	}

	pages.GET("/contact", handler.ShowContactForm)
	pages.POST("/contact", limiter, handler.SubmitContactForm)
	pages.GET(ThanksPath, handler.ShowThanks)

	api.POST("/contact", limiter, handler.SubmitContact)
}

// ShowContactForm renders an empty form. ?subject= pre-selects the subject.
func (h *ContactHandler) ShowContactForm(c *gin.Context) {
	form := domain.ContactForm{Subject: domain.DefaultContactSubject}
	if q := strings.TrimSpace(c.Query("subject")); q != "" {
		form.Subject = q
	}
	h.renderForm(c, http.StatusOK, form, "", nil)
}

// SubmitContactForm handles the page post. Success redirects with 303 so a
// reload of the thank-you page cannot resubmit; any failure re-renders the
// form with the visitor's input and the messages.
func (h *ContactHandler) SubmitContactForm(c *gin.Context) {
	var form domain.ContactForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderForm(c, http.StatusBadRequest, form, domain.MsgInvalidFields, nil)
		return
	}

	outcome := h.contactUC.SubmitContact(c.Request.Context(), &form, c.ClientIP())
	if outcome.Success() {
		c.Redirect(http.StatusSeeOther, ThanksPath)
		return
	}

	h.renderForm(c, outcome.HTTPStatus(), form, outcome.Message, outcome.FieldErrors)
}

// ShowThanks renders the confirmation page.
func (h *ContactHandler) ShowThanks(c *gin.Context) {
	c.HTML(http.StatusOK, "thanks.html", gin.H{
		"SiteName": h.siteName,
		"Message":  domain.MsgContactSent,
	})
}

// SubmitContact godoc
// @Summary      Submit Contact Form
// @Description  Send a message through the contact form. This is a public endpoint.
// @Tags         contact
// @Accept       json
// @Produce      json
// @Param        contact  body      domain.ContactForm  true  "Contact Form Data"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /contact [post]
func (h *ContactHandler) SubmitContact(c *gin.Context) {
	var form domain.ContactForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}

	outcome := h.contactUC.SubmitContact(c.Request.Context(), &form, c.ClientIP())
	if outcome.Success() {
		response.Success(c, http.StatusOK, outcome.Message, nil)
		return
	}

	err := apperror.New(outcome.HTTPStatus(), outcome.Message, nil)
	if len(outcome.FieldErrors) > 0 {
		err = err.WithDetails(outcome.FieldErrors)
	}
	c.Error(err)
}

func (h *ContactHandler) renderForm(c *gin.Context, status int, form domain.ContactForm, message string, fieldErrors map[string]string) {
	if fieldErrors == nil {
		fieldErrors = map[string]string{}
	}
	// never echo the honeypot or the single-use CAPTCHA token back
	form.Website = ""
	form.RecaptchaToken = ""

	c.HTML(status, "contact.html", contactPage{
		SiteName:  h.siteName,
		SiteKey:   h.siteKey,
		CSRFToken: c.GetString(middleware.CSRFTokenContextKey),
		Form:      form,
		Message:   message,
		Errors:    fieldErrors,
	})
}
