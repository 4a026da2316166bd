// Package email provides the email client for sending duplication summaries.
package email

import (
	"fmt"

	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/email/templates"
	"github.com/resendlabs/resend-go"
)

// Service defines the interface for sending emails, allowing for mock implementations in tests.
type Service interface {
	SendBulkSummary(toEmail string, summary templates.BulkSummaryProps) error
}

// ResendClient is the concrete implementation of the email Service using the Resend API.
type ResendClient struct {
	client *resend.Client
	from   string
}

// NewService creates a new email service client, returning the Service interface.
func NewService(apiKey, from string) (Service, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY is required")
	}
	return &ResendClient{
		client: resend.NewClient(apiKey),
		from:   from,
	}, nil
}

// SendBulkSummary composes and sends the bulk duplication summary.
func (c *ResendClient) SendBulkSummary(toEmail string, summary templates.BulkSummaryProps) error {
	html, err := render(summary)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{toEmail},
		Subject: subject(summary),
		Html:    html,
	}

	if _, err := c.client.Emails.Send(params); err != nil {
		return fmt.Errorf("failed to send summary email via Resend: %w", err)
	}
	return nil
}

func subject(s templates.BulkSummaryProps) string {
	return fmt.Sprintf("Duplicated %d/%d posts to %s", s.Succeeded, s.Requested, s.DestTenant)
}

func render(summary templates.BulkSummaryProps) (string, error) {
	body, err := templates.GetBulkSummaryContent(summary)
	if err != nil {
		return "", fmt.Errorf("failed to render summary: %w", err)
	}
	html, err := templates.GetEmailLayout(templates.EmailLayoutProps{
		Preheader:  subject(summary),
		Content:    body,
		FooterText: "Sent by the post duplication service",
	})
	if err != nil {
		return "", fmt.Errorf("failed to render layout: %w", err)
	}
	return html, nil
}
