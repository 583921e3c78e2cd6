package mail

import (
	"context"
	"fmt"

	"receptionist-server/internal/observability"

	"github.com/resend/resend-go/v2"
)

type ResendClient struct {
	client *resend.Client
	logger *observability.Logger
}

func NewResendClient(apiKey string, logger *observability.Logger) (*ResendClient, error) {
	client := resend.NewClient(apiKey)
	if client == nil {
		return nil, fmt.Errorf("failed to create Resend client")
	}

	return &ResendClient{
		client: client,
		logger: logger,
	}, nil
}

func (c *ResendClient) SendEmail(ctx context.Context, from, to, subject, htmlContent string) (string, error) {
	return c.send(ctx, &resend.SendEmailRequest{
		From:    from,
		To:      []string{to},
		Subject: subject,
		Html:    htmlContent,
	})
}

// SendEmailWithAttachment sends an email carrying a single binary attachment,
// e.g. the booking confirmation PDF.
func (c *ResendClient) SendEmailWithAttachment(ctx context.Context, from, to, subject, htmlContent,
	filename string, attachment []byte) (string, error) {
	return c.send(ctx, &resend.SendEmailRequest{
		From:    from,
		To:      []string{to},
		Subject: subject,
		Html:    htmlContent,
		Attachments: []*resend.Attachment{
			{Filename: filename, Content: attachment},
		},
	})
}

func (c *ResendClient) send(ctx context.Context, params *resend.SendEmailRequest) (string, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "email_to", Value: params.To},
		observability.Field{Key: "email_subject", Value: params.Subject},
	)

	res, err := c.client.Emails.Send(params)
	if err != nil {
		c.logger.Error(ctx, "failed to send email", err)
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	c.logger.Info(ctx, "email sent successfully")
	return res.Id, nil
}
