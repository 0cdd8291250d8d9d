package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// TemplateData is the complete set of values a body template may reference.
// The HTML variant escapes every field; the text variant uses them verbatim.
type TemplateData struct {
	Name        string
	Email       string
	Phone       string
	Subject     string
	Message     string
	SiteName    string
	Year        int
	SubmittedAt string
	FromEmail   string
}

// Body is one message rendered in both representations.
type Body struct {
	Text string
	HTML string
}

type bodyTemplate struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

var (
	internalNotificationTemplate = mustLoadTemplate("internal_notification")
	visitorConfirmationTemplate  = mustLoadTemplate("visitor_confirmation")
)

func mustLoadTemplate(name string) bodyTemplate {
	html := htmltemplate.Must(htmltemplate.New(name + ".html").
		Funcs(htmltemplate.FuncMap{"breaks": htmlWithBreaks}).
		ParseFS(templateFS, "templates/"+name+".html"))
	text := texttemplate.Must(texttemplate.New(name + ".txt").
		ParseFS(templateFS, "templates/"+name+".txt"))
	return bodyTemplate{html: html, text: text}
}

func (t bodyTemplate) render(data TemplateData) (Body, error) {
	var html, text bytes.Buffer
	if err := t.html.Execute(&html, data); err != nil {
		return Body{}, fmt.Errorf("failed to execute html template: %w", err)
	}
	if err := t.text.Execute(&text, data); err != nil {
		return Body{}, fmt.Errorf("failed to execute text template: %w", err)
	}
	return Body{Text: text.String(), HTML: html.String()}, nil
}

// RenderInternalNotification renders the staff notification body.
func RenderInternalNotification(data TemplateData) (Body, error) {
	return internalNotificationTemplate.render(data)
}

// RenderVisitorConfirmation renders the confirmation sent to the submitter.
func RenderVisitorConfirmation(data TemplateData) (Body, error) {
	return visitorConfirmationTemplate.render(data)
}

// htmlWithBreaks escapes s and turns each line break into <br>.
func htmlWithBreaks(s string) htmltemplate.HTML {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	safe := htmltemplate.HTMLEscapeString(s)
	safe = strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(safe)
	return htmltemplate.HTML(strings.ReplaceAll(safe, "\n", "<br>"))
}

const submittedAtLayout = "2006-01-02 15:04:05"

func newTemplateData(data ContactData, siteName, fromEmail string, now time.Time) TemplateData {
	now = now.UTC()
	submitted := data.SubmittedAt
	if submitted.IsZero() {
		submitted = now
	}
	return TemplateData{
		Name:        data.Name,
		Email:       data.Email,
		Phone:       data.Phone,
		Subject:     data.Subject,
		Message:     data.Message,
		SiteName:    siteName,
		Year:        now.Year(),
		SubmittedAt: submitted.UTC().Format(submittedAtLayout),
		FromEmail:   fromEmail,
	}
}
