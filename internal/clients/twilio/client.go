package twilio

import (
	"context"
	"fmt"

	"receptionist-server/internal/observability"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// smsBodyLimit is Twilio's maximum SMS body length.
const smsBodyLimit = 1600

// Client wraps the Twilio REST client for outbound SMS and webhook
// signature validation.
type Client struct {
	rest       *twilio.RestClient
	validator  twilioclient.RequestValidator
	fromNumber string
	logger     *observability.Logger
}

// NewClient creates a Twilio client.
func NewClient(accountSID, authToken, fromNumber string, logger *observability.Logger) *Client {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Client{
		rest:       rest,
		validator:  twilioclient.NewRequestValidator(authToken),
		fromNumber: fromNumber,
		logger:     logger,
	}
}

// SendSMS sends a text message and returns the message SID.
func (c *Client) SendSMS(ctx context.Context, to, body string) (string, error) {
	if len(body) > smsBodyLimit {
		c.logger.Warn(ctx, "SMS body exceeds limit, truncating")
		body = body[:smsBodyLimit-3] + "..."
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.fromNumber)
	params.SetBody(body)

	resp, err := c.rest.Api.CreateMessage(params)
	if err != nil {
		c.logger.Error(observability.WithFields(ctx,
			observability.Field{Key: "sms_to", Value: to},
		), "failed to send SMS", err)
		return "", fmt.Errorf("twilio: failed to send SMS: %w", err)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	c.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "sms_to", Value: to},
		observability.Field{Key: "message_sid", Value: sid},
	), "SMS sent successfully")
	return sid, nil
}

// ValidateSignature checks the X-Twilio-Signature header on a webhook request.
func (c *Client) ValidateSignature(url string, params map[string]string, signature string) bool {
	return c.validator.Validate(url, params, signature)
}
