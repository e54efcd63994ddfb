package config

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"time"

	mail "github.com/go-mail/mail/v2"

	"github.com/google/uuid"
)

// MailMessage is one outgoing email.
type MailMessage struct {
	To      []string
	Subject string
	HTML    string
}

// DeliveryReceipt is returned for every successfully dispatched message.
type DeliveryReceipt struct {
	MessageID string    `json:"message_id"`
	SentAt    time.Time `json:"sent_at"`
}

// Mailer dispatches email. The invitation and signup flows treat a Send
// failure as a delivery failure and roll back the record they just
// persisted, so implementations must return an error on any transport
// problem rather than queueing silently.
type Mailer interface {
	Send(msg MailMessage) (*DeliveryReceipt, error)
}

// SMTPMailer sends mail over SMTP with mandatory STARTTLS. Settings are
// read from the environment at send time so godotenv.Load in main is
// honored regardless of package init order.
type SMTPMailer struct{}

type smtpSettings struct {
	host          string
	port          int
	user          string
	pass          string
	from          string
	skipTLSVerify bool
}

func loadSMTPSettings() smtpSettings {
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if port == 0 {
		port = 587
	}
	return smtpSettings{
		host:          os.Getenv("SMTP_HOST"),
		port:          port,
		user:          os.Getenv("SMTP_USER"),
		pass:          os.Getenv("SMTP_PASS"),
		from:          os.Getenv("SMTP_FROM"), // e.g. "Peer Review Portal <no-reply@your.org>"
		skipTLSVerify: os.Getenv("SMTP_SKIP_TLS_VERIFY") == "1",
	}
}

func (SMTPMailer) Send(msg MailMessage) (*DeliveryReceipt, error) {
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("no recipients")
	}

	s := loadSMTPSettings()
	if s.host == "" || s.from == "" {
		return nil, fmt.Errorf("smtp not configured (SMTP_HOST/SMTP_FROM)")
	}

	messageID := uuid.NewString()

	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", fmt.Sprintf("<%s@peer-review-api>", messageID))
	m.SetBody("text/html", msg.HTML)

	d := mail.NewDialer(s.host, s.port, s.user, s.pass)

	// Force STARTTLS on port 587 (Gmail / Office365 compatible).
	d.StartTLSPolicy = mail.MandatoryStartTLS

	// ServerName must match the SMTP hostname; InsecureSkipVerify is for
	// dev only (set SMTP_SKIP_TLS_VERIFY=1 to bypass cert checks).
	d.TLSConfig = &tls.Config{
		ServerName:         s.host,
		InsecureSkipVerify: s.skipTLSVerify,
	}

	if err := d.DialAndSend(m); err != nil {
		return nil, err
	}

	return &DeliveryReceipt{MessageID: messageID, SentAt: time.Now()}, nil
}
