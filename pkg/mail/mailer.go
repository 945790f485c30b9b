package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"
)

// ErrSMTPDisabled signals that SMTP delivery is disabled via configuration.
var ErrSMTPDisabled = errors.New("smtp: delivery disabled")

// Message represents an outbound plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSettings capture the runtime configuration required by the SMTP mailer.
type SMTPSettings struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
	Timeout  time.Duration
}

type smtpMailer struct {
	cfg  SMTPSettings
	dial func(ctx context.Context, network, address string) (net.Conn, error)
}

// NewSMTPMailer validates the settings and returns a Mailer. A disabled configuration
// yields a mailer whose Send always returns ErrSMTPDisabled.
func NewSMTPMailer(cfg SMTPSettings) (Mailer, error) {
	if cfg.Enabled {
		if strings.TrimSpace(cfg.Host) == "" {
			return nil, errors.New("smtp: host is required when enabled")
		}
		if cfg.Port == 0 {
			return nil, errors.New("smtp: port is required when enabled")
		}
		if _, err := mail.ParseAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("smtp: invalid from address: %w", err)
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	dialer := &net.Dialer{Timeout: cfg.Timeout}
	return &smtpMailer{cfg: cfg, dial: dialer.DialContext}, nil
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Enabled {
		return ErrSMTPDisabled
	}
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return fmt.Errorf("smtp: invalid recipient %q: %w", msg.To, err)
	}

	address := net.JoinHostPort(m.cfg.Host, fmt.Sprint(m.cfg.Port))
	conn, err := m.dial(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("smtp: dial %s: %w", address, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	tlsConfig := &tls.Config{ServerName: m.cfg.Host}
	if m.cfg.UseTLS {
		conn = tls.Client(conn, tlsConfig)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp: new client: %w", err)
	}
	defer client.Close()

	if !m.cfg.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("smtp: start tls: %w", err)
			}
		}
	}
	if m.cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			return fmt.Errorf("smtp: auth: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp: mail from: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp: rcpt to: %w", err)
	}
	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp: data: %w", err)
	}
	if _, err := wc.Write([]byte(formatMessage(m.cfg.From, msg))); err != nil {
		_ = wc.Close()
		return fmt.Errorf("smtp: write body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp: close body: %w", err)
	}
	return client.Quit()
}

func formatMessage(from string, msg Message) string {
	headers := []string{
		"From: " + from,
		"To: " + msg.To,
		"Subject: " + headerSafe(msg.Subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
	}
	return strings.Join(headers, "\r\n") + "\r\n" + msg.Body
}

func headerSafe(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}
