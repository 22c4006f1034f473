package mail

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	gomail "github.com/wneessen/go-mail"
)

// ReceiptNotifier delivers a donation receipt to the donor. Best effort:
// callers log failures and move on, a settled payment is never rolled back
// because a receipt could not be sent.
type ReceiptNotifier interface {
	SendReceipt(ctx context.Context, to, donorName, campaignTitle string, amount decimal.Decimal) error
}

type smtpNotifier struct {
	host string
	port int
	from string
}

func NewSMTPNotifier(host string, port int, from string) ReceiptNotifier {
	return &smtpNotifier{host: host, port: port, from: from}
}

func (n *smtpNotifier) SendReceipt(ctx context.Context, to, donorName, campaignTitle string, amount decimal.Decimal) error {
	msg := gomail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("receipt from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("receipt to address: %w", err)
	}
	msg.Subject("Thank you for your donation")
	msg.SetBodyString(gomail.TypeTextPlain, fmt.Sprintf(
		"Dear %s,\n\nYour donation of ₹%s to %q was received successfully.\n\nThank you for your support.\n",
		donorName, amount.StringFixed(2), campaignTitle,
	))

	client, err := gomail.NewClient(n.host,
		gomail.WithPort(n.port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// NoopNotifier is used when SMTP is not configured; receipts are logged only.
type NoopNotifier struct{}

func (NoopNotifier) SendReceipt(_ context.Context, to, donorName, campaignTitle string, amount decimal.Decimal) error {
	log.WithFields(log.Fields{
		"to":       to,
		"campaign": campaignTitle,
		"amount":   amount.StringFixed(2),
	}).Info("receipt notifier not configured, skipping email")
	return nil
}
