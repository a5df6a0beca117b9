package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	pkglogger "github.com/BradenHooton/stayhub/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/skip2/go-qrcode"
)

// EmailService delivers one-time codes and reset links.
type EmailService interface {
	SendOTP(ctx context.Context, to, code string, expiresIn time.Duration) error
	SendPasswordReset(ctx context.Context, to, link string, expiresIn time.Duration) error
}

// SESClient is the subset of the SES API used for delivery.
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// AWSSESEmailService sends mail through Amazon SES.
type AWSSESEmailService struct {
	client      SESClient
	fromAddress string
	logger      *slog.Logger
}

func NewAWSSESEmailService(ctx context.Context, region, fromAddress string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSESEmailServiceWithClient(ses.NewFromConfig(cfg), fromAddress, logger), nil
}

func NewSESEmailServiceWithClient(client SESClient, fromAddress string, logger *slog.Logger) *AWSSESEmailService {
	return &AWSSESEmailService{client: client, fromAddress: fromAddress, logger: logger}
}

var otpEmailHTML = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Your StayHub verification code</h2>
  <p style="font-size: 28px; letter-spacing: 6px;"><strong>{{.Code}}</strong></p>
  <p>The code expires in {{.Minutes}} minutes. If you did not request it, you can ignore this email.</p>
</body>
</html>`))

var resetEmailHTML = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Reset your StayHub password</h2>
  <p><a href="{{.Link}}">Choose a new password</a></p>
  {{if .QRCode}}<p>Or scan this code on your phone:</p><p><img alt="reset link" src="{{.QRCode}}"></p>{{end}}
  <p>The link expires in {{.Minutes}} minutes. If you did not request a reset, you can ignore this email.</p>
</body>
</html>`))

func (s *AWSSESEmailService) SendOTP(ctx context.Context, to, code string, expiresIn time.Duration) error {
	minutes := int(expiresIn.Minutes())

	var html strings.Builder
	if err := otpEmailHTML.Execute(&html, map[string]any{"Code": code, "Minutes": minutes}); err != nil {
		return fmt.Errorf("failed to render otp email: %w", err)
	}
	text := fmt.Sprintf("Your StayHub verification code is %s.\n\nThe code expires in %d minutes.\n", code, minutes)

	return s.send(ctx, to, "Your StayHub verification code", html.String(), text)
}

func (s *AWSSESEmailService) SendPasswordReset(ctx context.Context, to, link string, expiresIn time.Duration) error {
	minutes := int(expiresIn.Minutes())

	qr, err := ResetLinkQRCode(link)
	if err != nil {
		s.logger.Warn("failed to render reset link qr code", slog.Any("error", err))
	}

	var html strings.Builder
	data := map[string]any{"Link": template.URL(link), "QRCode": template.URL(qr), "Minutes": minutes}
	if err := resetEmailHTML.Execute(&html, data); err != nil {
		return fmt.Errorf("failed to render reset email: %w", err)
	}
	text := fmt.Sprintf("Reset your StayHub password:\n\n%s\n\nThe link expires in %d minutes.\n", link, minutes)

	return s.send(ctx, to, "Reset your StayHub password", html.String(), text)
}

func (s *AWSSESEmailService) send(ctx context.Context, to, subject, html, text string) error {
	input := &ses.SendEmailInput{
		Source:      aws.String(s.fromAddress),
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(html), Charset: aws.String("UTF-8")},
				Text: &types.Content{Data: aws.String(text), Charset: aws.String("UTF-8")},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send email via SES",
			slog.String("email", pkglogger.SanitizedEmail(to)),
			slog.String("subject", subject),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		slog.String("email", pkglogger.SanitizedEmail(to)),
		slog.String("subject", subject),
		slog.String("message_id", aws.ToString(result.MessageId)))
	return nil
}

// ResetLinkQRCode renders link as a PNG data URL for embedding in HTML mail.
func ResetLinkQRCode(link string) (string, error) {
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// LogEmailService writes mail to the log instead of sending it. Codes and links
// are redacted in production.
type LogEmailService struct {
	logger *slog.Logger
	env    string
}

func NewLogEmailService(logger *slog.Logger, env string) *LogEmailService {
	return &LogEmailService{logger: logger, env: env}
}

func (s *LogEmailService) SendOTP(ctx context.Context, to, code string, expiresIn time.Duration) error {
	s.logger.InfoContext(ctx, "otp email",
		slog.String("email", pkglogger.SanitizedEmail(to)),
		pkglogger.RedactedAttr("code", code, s.env),
		slog.Duration("expires_in", expiresIn))
	return nil
}

func (s *LogEmailService) SendPasswordReset(ctx context.Context, to, link string, expiresIn time.Duration) error {
	s.logger.InfoContext(ctx, "password reset email",
		slog.String("email", pkglogger.SanitizedEmail(to)),
		pkglogger.RedactedAttr("link", link, s.env),
		slog.Duration("expires_in", expiresIn))
	return nil
}
