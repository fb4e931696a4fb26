package main

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/sirupsen/logrus"
)

// Mailer delivers account emails. Implementations must not block past the
// request's context lifetime.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
	SendPasswordResetEmail(ctx context.Context, email, token string) error
}

// SMTPMailer sends over plain SMTP with optional AUTH.
type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	BaseURL  string
}

func (m *SMTPMailer) send(email, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		m.From, email, subject, body)
	addr := m.Host + ":" + m.Port
	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}
	return smtp.SendMail(addr, auth, m.From, []string{email}, []byte(msg))
}

func (m *SMTPMailer) SendVerificationEmail(_ context.Context, email, token string) error {
	link := fmt.Sprintf("%s/auth/verify-email/%s", m.BaseURL, token)
	body := fmt.Sprintf("Welcome to Tasknest!\n\nPlease verify your email address by visiting:\n\n%s\n", link)
	return m.send(email, "Verify your email", body)
}

func (m *SMTPMailer) SendPasswordResetEmail(_ context.Context, email, token string) error {
	link := fmt.Sprintf("%s/reset-password/%s", m.BaseURL, token)
	body := fmt.Sprintf("A password reset was requested for your account.\n\nReset it here:\n\n%s\n\nThe link expires in one hour. If you did not request this, ignore this email.\n", link)
	return m.send(email, "Reset your password", body)
}

// LogMailer writes the links to the log instead of sending. Development only.
type LogMailer struct{}

func (LogMailer) SendVerificationEmail(_ context.Context, email, token string) error {
	logrus.WithFields(logrus.Fields{"email": email, "token": token}).Info("verification email (log backend)")
	return nil
}

func (LogMailer) SendPasswordResetEmail(_ context.Context, email, token string) error {
	logrus.WithFields(logrus.Fields{"email": email, "token": token}).Info("password reset email (log backend)")
	return nil
}
