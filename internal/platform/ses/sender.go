// Package ses implements draft email delivery over AWS SES v2.
package ses

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/draftwire/newsletter-api/internal/config"
)

// sesClient is the slice of the SES v2 API the sender uses, abstracted
// for testing.
type sesClient interface {
	SendEmail(
		ctx context.Context,
		params *sesv2.SendEmailInput,
		optFns ...func(*sesv2.Options),
	) (*sesv2.SendEmailOutput, error)
}

// Sender delivers HTML email through AWS SES v2.
type Sender struct {
	client    sesClient
	fromEmail string
	logger    *slog.Logger
}

// NewSender creates a Sender from the given AWS configuration and email
// settings. Returns an error if no from-address is configured.
func NewSender(awsCfg aws.Config, emailCfg config.EmailConfig, logger *slog.Logger) (*Sender, error) {
	if emailCfg.FromAddress == "" {
		return nil, fmt.Errorf("email from address is not configured")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Sender{
		client:    sesv2.NewFromConfig(awsCfg),
		fromEmail: emailCfg.FromAddress,
		logger:    logger.With(slog.String("component", "ses_sender")),
	}, nil
}

// Send delivers an HTML email and returns the provider's message ID.
func (s *Sender) Send(ctx context.Context, to, subject, htmlBody string) (string, error) {
	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody)},
				},
			},
		},
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "SES send failed",
			"to", to,
			"error", err)
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	messageID := aws.ToString(out.MessageId)
	s.logger.InfoContext(ctx, "email sent",
		"to", to,
		"message_id", messageID)

	return messageID, nil
}
