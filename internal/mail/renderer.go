package mail

import (
	"bytes"
	"embed"
	"fmt"
	"net/url"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/*.md.tmpl
var templateFS embed.FS

const (
	ticketCreatedTemplate = "ticket_created.md.tmpl"
	ticketRepliedTemplate = "ticket_replied.md.tmpl"
)

// TicketCreatedData feeds the confirmation sent after a ticket is opened.
type TicketCreatedData struct {
	CustomerName    string
	CustomerEmail   string
	ReferenceNumber string
	Summary         string
	Description     string
}

// TicketRepliedData feeds the mail sent when an agent answers a ticket.
type TicketRepliedData struct {
	CustomerName    string
	CustomerEmail   string
	ReferenceNumber string
	Summary         string
	AgentName       string
	Message         string
}

// Renderer turns markdown templates into plain and HTML email bodies.
type Renderer struct {
	appName   string
	baseURL   string
	templates *template.Template
	md        goldmark.Markdown
	policy    *bluemonday.Policy
}

// NewRenderer parses the embedded templates. baseURL prefixes links back to
// the status check page.
func NewRenderer(appName, baseURL string) (*Renderer, error) {
	tmpl, err := template.New("mail").Funcs(sprig.FuncMap()).ParseFS(templateFS, "templates/*.md.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.Linkify),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	return &Renderer{
		appName:   appName,
		baseURL:   baseURL,
		templates: tmpl,
		md:        md,
		policy:    bluemonday.UGCPolicy(),
	}, nil
}

// StatusURL links to the public status check for a reference number.
func (r *Renderer) StatusURL(reference string) string {
	return r.baseURL + "/tickets/status/check?reference_number=" + url.QueryEscape(reference)
}

func (r *Renderer) TicketCreated(data TicketCreatedData) (Message, error) {
	subject := "Support Ticket Created - " + data.ReferenceNumber
	return r.render(ticketCreatedTemplate, data.CustomerEmail, data.CustomerName, subject, map[string]any{
		"AppName":         r.appName,
		"CustomerName":    data.CustomerName,
		"ReferenceNumber": data.ReferenceNumber,
		"Summary":         data.Summary,
		"Description":     data.Description,
		"StatusURL":       r.StatusURL(data.ReferenceNumber),
	})
}

func (r *Renderer) TicketReplied(data TicketRepliedData) (Message, error) {
	subject := fmt.Sprintf("Re: %s [#%s]", data.Summary, data.ReferenceNumber)
	return r.render(ticketRepliedTemplate, data.CustomerEmail, data.CustomerName, subject, map[string]any{
		"AppName":         r.appName,
		"ReferenceNumber": data.ReferenceNumber,
		"Summary":         data.Summary,
		"AgentName":       data.AgentName,
		"Message":         data.Message,
		"StatusURL":       r.StatusURL(data.ReferenceNumber),
	})
}

func (r *Renderer) render(name, to, toName, subject string, data map[string]any) (Message, error) {
	var plain bytes.Buffer
	if err := r.templates.ExecuteTemplate(&plain, name, data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", name, err)
	}

	var rendered bytes.Buffer
	if err := r.md.Convert(plain.Bytes(), &rendered); err != nil {
		return Message{}, fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}

	return Message{
		To:        to,
		ToName:    toName,
		Subject:   subject,
		PlainBody: plain.String(),
		HTMLBody:  r.policy.Sanitize(rendered.String()),
	}, nil
}
