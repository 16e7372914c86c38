// Package notify delivers verification and password reset emails for the
// engine. SMTP sends real mail; Writer prints rendered messages for local
// runs.
package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	goContacts "github.com/MrEthical07/goContacts"
	"github.com/MrEthical07/goContacts/token"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    []byte
}

type templateData struct {
	Host      string
	Username  string
	Token     string
	ExpiresAt time.Time
}

// Renderer turns notifications into HTML emails whose links point at Host.
type Renderer struct {
	Host string
}

// Render builds the message for n. Only verification and reset
// notifications are known.
func (r Renderer) Render(n goContacts.Notification) (Message, error) {
	var subject, name string
	switch n.Purpose {
	case token.PurposeVerification:
		subject, name = "Confirm your email", "verify_email.html"
	case token.PurposeReset:
		subject, name = "Reset Password request", "reset_password_email.html"
	default:
		return Message{}, fmt.Errorf("notify: no template for purpose %s", n.Purpose)
	}

	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, name, templateData{
		Host:      r.Host,
		Username:  n.Username,
		Token:     n.Token,
		ExpiresAt: n.ExpiresAt.UTC(),
	})
	if err != nil {
		return Message{}, fmt.Errorf("notify: render %s: %w", name, err)
	}
	return Message{To: n.To, Subject: subject, HTML: buf.Bytes()}, nil
}
