package service

import (
	"context"
	"fmt"
	"html"

	"chromabloom/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// CycleNotifier tells a caregiver that a child's cycle rolled over
type CycleNotifier interface {
	NotifyCycleClosed(ctx context.Context, caregiver *models.Caregiver, child *models.Child, closure *models.CycleClosure) error
}

// sesSender is the part of the SES client the service uses
type sesSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService sends cycle summaries via Amazon SES
type EmailService struct {
	client    sesSender
	fromEmail string
	fromName  string
	enabled   bool
	logger    *zap.Logger
}

// NewEmailService creates a new email service. An empty fromEmail yields a
// disabled service that skips every send.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName string, logger *zap.Logger) (*EmailService, error) {
	if fromEmail == "" {
		logger.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, logger: logger}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("email service enabled", zap.String("from", fromEmail), zap.String("region", awsRegion))
	return newEmailServiceWithClient(sesv2.NewFromConfig(cfg), fromEmail, fromName, logger), nil
}

func newEmailServiceWithClient(client sesSender, fromEmail, fromName string, logger *zap.Logger) *EmailService {
	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
		logger:    logger,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// NotifyCycleClosed emails the caregiver the new cycle's difficulty and
// dates along with how the closed cycle went.
func (s *EmailService) NotifyCycleClosed(ctx context.Context, caregiver *models.Caregiver, child *models.Child, closure *models.CycleClosure) error {
	if !s.enabled {
		return nil
	}
	if caregiver == nil || caregiver.Email == "" {
		s.logger.Debug("skipping cycle email, no caregiver address")
		return nil
	}

	childName := "your child"
	if child != nil && child.Name != "" {
		childName = child.Name
	}
	plan := closure.NewPlan
	start := plan.CycleStart.Format("Mon 2 Jan 2006")
	end := plan.CycleEnd.Format("Mon 2 Jan 2006")
	rate := closure.FeatureVector.AvgCompletionRate * 100

	subject := fmt.Sprintf("New routine cycle for %s", childName)
	textBody := fmt.Sprintf(`Hi %s,

%s finished a routine cycle with an average completion of %.0f%% across %d activity runs.

The next cycle runs from %s to %s at %s difficulty with %d activities.

This is an automated email from ChromaBloom. Please do not reply.
`, caregiver.Name, childName, rate, closure.FeatureVector.RunsCount, start, end, plan.Difficulty, len(plan.Activities))

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<p>Hi %s,</p>
	<p>%s finished a routine cycle with an average completion of <strong>%.0f%%</strong> across %d activity runs.</p>
	<p>The next cycle runs from <strong>%s</strong> to <strong>%s</strong> at <strong>%s</strong> difficulty with %d activities.</p>
	<p style="font-size: 12px; color: #666;">This is an automated email from ChromaBloom. Please do not reply.</p>
</body>
</html>
`, html.EscapeString(caregiver.Name), html.EscapeString(childName), rate, closure.FeatureVector.RunsCount,
		start, end, plan.Difficulty, len(plan.Activities))

	return s.sendEmail(ctx, caregiver.Email, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	fields := []zap.Field{zap.String("to", toEmail), zap.String("subject", subject)}
	if result.MessageId != nil {
		fields = append(fields, zap.String("message_id", *result.MessageId))
	}
	s.logger.Info("email sent", fields...)
	return nil
}

var _ CycleNotifier = (*EmailService)(nil)
