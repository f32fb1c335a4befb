// Package notify watches stored certificates for upcoming expiry and sends at
// most one alert per day across all cooperating instances.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wneessen/go-mail"

	"certhub/internal/domain"
)

// Mailer delivers one expiry alert.
type Mailer interface {
	Send(ctx context.Context, cfg domain.MailConfig, subject, htmlBody string) error
}

// SMTPMailer sends through an authenticated SMTP submission port. The sender
// address doubles as the SMTP username, matching app-password providers.
type SMTPMailer struct {
	host string
	port int
	log  *slog.Logger
}

// NewSMTPMailer builds a mailer. Empty host defaults to the Gmail submission
// endpoint current installations use.
func NewSMTPMailer(host string, port int, log *slog.Logger) *SMTPMailer {
	if host == "" {
		host = "smtp.gmail.com"
	}
	if port <= 0 {
		port = 587
	}
	if log == nil {
		log = slog.Default()
	}
	return &SMTPMailer{host: host, port: port, log: log}
}

func (m *SMTPMailer) Send(ctx context.Context, cfg domain.MailConfig, subject, htmlBody string) error {
	if cfg.Sender == "" || cfg.AppPassword == "" {
		return fmt.Errorf("mail sender and app password are required")
	}
	if len(cfg.Recipients) == 0 {
		return fmt.Errorf("no mail recipients configured")
	}

	msg := mail.NewMsg()
	if err := msg.From(cfg.Sender); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(cfg.Recipients...); err != nil {
		return fmt.Errorf("set recipients: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(m.host,
		mail.WithPort(m.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Sender),
		mail.WithPassword(cfg.AppPassword),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	m.log.Info("expiry alert sent", "recipients", len(cfg.Recipients))
	return nil
}

// buildIssuanceMail renders the one-off mail announcing a new certificate.
func buildIssuanceMail(rec domain.IssuanceRecord) (string, string) {
	name := rec.TradeName
	if name == "" {
		name = rec.LegalName
	}
	if name == "" {
		name = rec.TaxpayerID.Formatted()
	}
	subject := fmt.Sprintf("New certificate: %s — %s", name, rec.DocumentType.DisplayName())

	var b strings.Builder
	fmt.Fprintf(&b, "<p><b>%s</b> (%s) has a new %s certificate.</p>",
		name, rec.TaxpayerID.Formatted(), rec.DocumentType.DisplayName())
	if !rec.ExpiresOn.IsZero() {
		fmt.Fprintf(&b, "<p>Valid until %s.</p>", rec.ExpiresOn.String())
	}
	return subject, b.String()
}

// buildAlert renders the alert subject and body for a batch of expiring
// certificates, most urgent first.
func buildAlert(expiring []Expiring) (string, string) {
	subject := fmt.Sprintf("Certificate expiry alert: %d document(s) need attention", len(expiring))

	var b strings.Builder
	b.WriteString("<h2>Certificates close to expiry</h2><ul>")
	for _, e := range expiring {
		name := e.Record.TradeName
		if name == "" {
			name = e.Record.LegalName
		}
		if name == "" {
			name = e.Record.TaxpayerID.Formatted()
		}
		switch {
		case e.DaysLeft < 0:
			fmt.Fprintf(&b, "<li><b>%s</b> — %s expired on %s</li>",
				name, e.Record.DocumentType.DisplayName(), e.Record.ExpiresOn.String())
		case e.DaysLeft == 0:
			fmt.Fprintf(&b, "<li><b>%s</b> — %s expires today</li>",
				name, e.Record.DocumentType.DisplayName())
		default:
			fmt.Fprintf(&b, "<li><b>%s</b> — %s expires in %d day(s), on %s</li>",
				name, e.Record.DocumentType.DisplayName(), e.DaysLeft, e.Record.ExpiresOn.String())
		}
	}
	b.WriteString("</ul>")
	return subject, b.String()
}
