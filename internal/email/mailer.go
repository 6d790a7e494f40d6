package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"lumenstage/api/internal/config"
)

// SMTPMailer sends transactional mail over plain SMTP. Callers treat every
// send as best effort.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, to, displayName, verificationToken string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", m.cfg.SiteURL, verificationToken)
	body, err := render(welcomeTemplate, map[string]string{
		"Name": displayName,
		"Link": link,
	})
	if err != nil {
		return err
	}
	return m.send(ctx, to, "Verify your Lumenstage email", body)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, resetToken string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.cfg.SiteURL, resetToken)
	body, err := render(resetTemplate, map[string]string{
		"Link": link,
	})
	if err != nil {
		return err
	}
	return m.send(ctx, to, "Reset your Lumenstage password", body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n",
		from, to, subject, body,
	))

	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)
	return smtp.SendMail(addr, auth, from, []string{to}, msg)
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

var welcomeTemplate = template.Must(template.New("welcome").Parse(`
<p>Hi {{.Name}},</p>
<p>Thanks for joining Lumenstage. Confirm your email address to activate your account:</p>
<p><a href="{{.Link}}">Verify email address</a></p>
<p>If you did not create an account, ignore this message.</p>
`))

var resetTemplate = template.Must(template.New("reset").Parse(`
<p>You requested a password reset. The link below is valid for one hour:</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>If you did not request this, your password is unchanged and you can ignore this message.</p>
`))
