package utils

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
)

//go:embed templates/*.html
var templateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type EmailData struct {
	Name    string
	Message string
	OrderID uint
	Status  string
	Total   string
}

type MailConfig struct {
	From        string
	Password    string
	SMTPHost    string
	SMTPAddress string
}

type Mailer struct {
	cfg  MailConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(cfg MailConfig) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail}
}

// Enabled reports whether SMTP is configured. A disabled mailer drops mail.
func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.From != "" && m.cfg.SMTPAddress != ""
}

func (m *Mailer) SendEmail(emailTo, emailSubject string, data EmailData, templateName string) error {
	if !m.Enabled() {
		return nil
	}

	var body bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("template execution error: %w", err)
	}

	message := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n%s",
		m.cfg.From,
		emailTo,
		emailSubject,
		body.String(),
	)

	var auth smtp.Auth
	if m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.SMTPHost)
	}

	if err := m.send(m.cfg.SMTPAddress, auth, m.cfg.From, []string{emailTo}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
