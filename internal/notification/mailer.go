package notification

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/pkg/errors"
	"github.com/tripplan/tripplan-api/internal/config"
)

// InviteMailer delivers shared trip invite links.
type InviteMailer interface {
	SendInvite(recipientEmail, tripName, inviteURL string) error
}

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPInviteMailer sends invite emails using an SMTP server.
type SMTPInviteMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	send     sendFunc
}

// NewSMTPInviteMailer constructs a new SMTPInviteMailer from config.
func NewSMTPInviteMailer(cfg config.EmailConfig) (*SMTPInviteMailer, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil, errors.New("smtp_host is required")
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("email from address is required")
	}

	return &SMTPInviteMailer{
		host:     strings.TrimSpace(cfg.SMTPHost),
		port:     cfg.SMTPPort,
		username: strings.TrimSpace(cfg.Username),
		password: cfg.Password,
		from:     strings.TrimSpace(cfg.From),
		send:     smtp.SendMail,
	}, nil
}

// SendInvite mails the invite link of a shared trip.
func (m *SMTPInviteMailer) SendInvite(recipientEmail, tripName, inviteURL string) error {
	message := []byte(buildInviteMessage(m.from, recipientEmail, tripName, inviteURL))
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	if err := m.send(addr, auth, m.from, []string{recipientEmail}, message); err != nil {
		return errors.Wrapf(err, "send invite to %s", recipientEmail)
	}
	return nil
}

func buildInviteMessage(from, to, tripName, inviteURL string) string {
	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		from, to, fmt.Sprintf("You have been invited to plan %s", tripName))

	body := strings.Builder{}
	body.WriteString("Hello,\n\n")
	body.WriteString(fmt.Sprintf("You've been invited to the trip %q on TripPlan.\n", tripName))
	body.WriteString("Open the link below while signed in to join it:\n\n")
	body.WriteString(inviteURL + "\n\n")
	body.WriteString("This link expires soon. If you did not expect this email, you can ignore it.\n\n")
	body.WriteString("Happy travels,\nThe TripPlan Team\n")

	return headers + body.String()
}
