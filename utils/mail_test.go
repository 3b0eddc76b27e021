package utils

import (
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendEmail(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	mailer := NewMailer(MailConfig{From: "orders@farmart.co.ke", SMTPHost: "smtp.example.com", SMTPAddress: "smtp.example.com:587"})
	mailer.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	err := mailer.SendEmail("buyer@example.com", "Order #3 confirmed", EmailData{
		Name:    "Achieng",
		Message: "Your order has been confirmed.",
		OrderID: 3,
		Status:  "confirmed",
		Total:   "300.00",
	}, "order_status.html")
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"buyer@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Order #3 confirmed")
	assert.Contains(t, gotMsg, "Hello Achieng")
	assert.Contains(t, gotMsg, "KES 300.00")
}

func TestSendEmailFailures(t *testing.T) {
	mailer := NewMailer(MailConfig{From: "orders@farmart.co.ke", SMTPAddress: "smtp.example.com:587"})
	mailer.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := mailer.SendEmail("buyer@example.com", "subject", EmailData{}, "order_status.html")
	assert.ErrorContains(t, err, "connection refused")

	err = mailer.SendEmail("buyer@example.com", "subject", EmailData{}, "missing.html")
	assert.ErrorContains(t, err, "template")
}

func TestDisabledMailerDropsMail(t *testing.T) {
	var nilMailer *Mailer
	assert.False(t, nilMailer.Enabled())
	assert.NoError(t, nilMailer.SendEmail("a@example.com", "s", EmailData{}, "order_status.html"))

	mailer := NewMailer(MailConfig{})
	mailer.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("disabled mailer must not send")
		return nil
	}
	assert.False(t, mailer.Enabled())
	assert.NoError(t, mailer.SendEmail("a@example.com", "s", EmailData{}, "order_status.html"))
}
