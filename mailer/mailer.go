package mailer

import (
	"bytes"
	"context"
	htmltmpl "html/template"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers transactional mail.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Kind selects one of the built-in templates.
type Kind string

const (
	KindPasswordReset Kind = "password_reset"
	KindConfirmEmail  Kind = "confirm_email"
)

type templateData struct {
	AppName string
	Link    string
}

type template struct {
	subject string
	text    *texttmpl.Template
	html    *htmltmpl.Template
}

var templates = map[Kind]template{
	KindPasswordReset: {
		subject: "Reset your password",
		text: texttmpl.Must(texttmpl.New("reset.txt").Parse(
			"Someone asked to reset the password for your {{.AppName}} account.\n\n" +
				"Follow this link to choose a new password:\n{{.Link}}\n\n" +
				"If this wasn't you, you can ignore this email.\n")),
		html: htmltmpl.Must(htmltmpl.New("reset.html").Parse(
			`<p>Someone asked to reset the password for your {{.AppName}} account.</p>` +
				`<p><a href="{{.Link}}">Choose a new password</a></p>` +
				`<p>If this wasn't you, you can ignore this email.</p>`)),
	},
	KindConfirmEmail: {
		subject: "Confirm your email",
		text: texttmpl.Must(texttmpl.New("confirm.txt").Parse(
			"Welcome to {{.AppName}}!\n\nConfirm your email address to finish signing up:\n{{.Link}}\n")),
		html: htmltmpl.Must(htmltmpl.New("confirm.html").Parse(
			`<p>Welcome to {{.AppName}}!</p><p><a href="{{.Link}}">Confirm your email address</a> to finish signing up.</p>`)),
	},
}

// Render builds a message from one of the built-in templates.
func Render(kind Kind, to, appName, link string) (Message, error) {
	tmpl, ok := templates[kind]
	if !ok {
		return Message{}, errors.Errorf("[mailer Render] unknown template %q", kind)
	}
	data := templateData{AppName: appName, Link: link}

	var text, html bytes.Buffer
	if err := tmpl.text.Execute(&text, data); err != nil {
		return Message{}, errors.Wrap(err, "[mailer Render] text")
	}
	if err := tmpl.html.Execute(&html, data); err != nil {
		return Message{}, errors.Wrap(err, "[mailer Render] html")
	}
	return Message{
		To:      to,
		Subject: "[" + appName + "] " + tmpl.subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
