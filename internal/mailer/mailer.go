// Package mailer sends ticket confirmation e-mails over SMTP. When
// SMTP credentials are absent the mailer runs disabled and only logs
// what it would have sent, which keeps local development brokers
// working without an e-mail account.
package mailer

import (
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/openpass/event-checkin/internal/queue"
)

// Mailer holds SMTP settings loaded from the environment.
type Mailer struct {
	host     string
	port     string
	user     string
	password string
	from     string
	fromName string
	enabled  bool
}

// NewFromEnv builds a Mailer from EMAIL_* environment variables. The
// mailer is enabled only when host, user and password are all set.
func NewFromEnv() *Mailer {
	m := &Mailer{
		host:     os.Getenv("EMAIL_HOST"),
		port:     os.Getenv("EMAIL_PORT"),
		user:     os.Getenv("EMAIL_USER"),
		password: os.Getenv("EMAIL_PASSWORD"),
		from:     os.Getenv("EMAIL_FROM"),
		fromName: os.Getenv("EMAIL_FROM_NAME"),
	}
	if m.port == "" {
		m.port = "587"
	}
	if m.from == "" {
		m.from = m.user
	}
	if m.fromName == "" {
		m.fromName = "Event Check-in"
	}
	m.enabled = m.host != "" && m.user != "" && m.password != ""
	if !m.enabled {
		log.Info().Msg("mailer: SMTP credentials not set, e-mail sending disabled")
	}
	return m
}

// SendTicketIssued e-mails the attendee their ticket, including the
// scan token presented at the door.
func (m *Mailer) SendTicketIssued(ev queue.TicketIssuedEvent) error {
	subject := fmt.Sprintf("Your ticket for %s", ev.EventName)
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\n"+
			"Your ticket for %s is ready.\r\n\r\n"+
			"When: %s\r\n"+
			"Where: %s\r\n\r\n"+
			"Present this code at the entrance:\r\n\r\n    %s\r\n\r\n"+
			"See you there!\r\n",
		ev.UserName,
		ev.EventName,
		ev.EventDate.Format("Monday, 2 January 2006 at 15:04 MST"),
		ev.Location,
		ev.Token,
	)

	if !m.enabled {
		log.Info().
			Str("to", ev.UserEmail).
			Str("subject", subject).
			Msg("mailer disabled, skipping send")
		return nil
	}

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s <%s>", m.fromName, m.from),
		fmt.Sprintf("To: %s", ev.UserEmail),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	addr := m.host + ":" + m.port
	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	if err := smtp.SendMail(addr, auth, m.from, []string{ev.UserEmail}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", ev.UserEmail, err)
	}
	log.Info().Str("to", ev.UserEmail).Uint64("ticket_id", ev.TicketID).Msg("ticket e-mail sent")
	return nil
}
