package notification

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strings"
	"sync"
)

// Mailer sends the aging alert emails. Configuration comes from the
// SMTP_* environment variables; when SMTP_HOST is unset Send becomes a
// no-op that still records the message, which keeps dry runs and tests
// off the network.
type Mailer struct {
	Host       string
	Port       string
	User       string
	Password   string
	From       string
	Recipients []string

	mu     sync.Mutex
	recent []string
}

// NewMailerFromEnv builds a Mailer from SMTP_HOST, SMTP_PORT, SMTP_USER,
// SMTP_PASS, SMTP_FROM and ALERT_RECIPIENTS (comma separated).
func NewMailerFromEnv() *Mailer {
	m := &Mailer{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     os.Getenv("SMTP_PORT"),
		User:     os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASS"),
		From:     os.Getenv("SMTP_FROM"),
	}
	if m.Port == "" {
		m.Port = "587"
	}
	if m.From == "" {
		m.From = m.User
	}
	for _, rcpt := range strings.Split(os.Getenv("ALERT_RECIPIENTS"), ",") {
		rcpt = strings.TrimSpace(rcpt)
		if rcpt != "" {
			m.Recipients = append(m.Recipients, rcpt)
		}
	}
	return m
}

// Configured reports whether an SMTP endpoint and at least one recipient
// are set.
func (m *Mailer) Configured() bool {
	return m.Host != "" && len(m.Recipients) > 0
}

// Send delivers one HTML mail to the configured recipients over
// STARTTLS. The subject is appended to the recent tail either way.
func (m *Mailer) Send(subject, htmlBody string) error {
	m.remember(subject)
	if !m.Configured() {
		return nil
	}

	msg := m.buildMessage(subject, htmlBody)
	addr := net.JoinHostPort(m.Host, m.Port)

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.Host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if m.User != "" {
		auth := smtp.PlainAuth("", m.User, m.Password, m.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(m.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range m.Recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return client.Quit()
}

func (m *Mailer) buildMessage(subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(m.Recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

func (m *Mailer) remember(subject string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recent = append(m.recent, subject)
	if len(m.recent) > 50 {
		m.recent = m.recent[len(m.recent)-50:]
	}
}

// Recent returns a copy of the recently sent subjects, newest last.
func (m *Mailer) Recent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.recent))
	copy(out, m.recent)
	return out
}
