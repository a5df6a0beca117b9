package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSESClient struct {
	input *ses.SendEmailInput
	err   error
}

func (m *mockSESClient) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.input = params
	if m.err != nil {
		return nil, m.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestAWSSESEmailService_SendOTP(t *testing.T) {
	client := &mockSESClient{}
	svc := NewSESEmailServiceWithClient(client, "no-reply@stayhub.test", slog.New(slog.NewJSONHandler(io.Discard, nil)))

	require.NoError(t, svc.SendOTP(context.Background(), "guest@example.com", "042917", 10*time.Minute))
	require.NotNil(t, client.input)
	assert.Equal(t, "no-reply@stayhub.test", aws.ToString(client.input.Source))
	assert.Equal(t, []string{"guest@example.com"}, client.input.Destination.ToAddresses)
	assert.Contains(t, aws.ToString(client.input.Message.Body.Html.Data), "042917")
	assert.Contains(t, aws.ToString(client.input.Message.Body.Text.Data), "10 minutes")
}

func TestAWSSESEmailService_SendPasswordReset(t *testing.T) {
	client := &mockSESClient{}
	svc := NewSESEmailServiceWithClient(client, "no-reply@stayhub.test", slog.New(slog.NewJSONHandler(io.Discard, nil)))
	link := "https://app.stayhub.test/user/auth/reset-password/?token=042917___2024-03-09T14%3A05%3A07.123Z"

	require.NoError(t, svc.SendPasswordReset(context.Background(), "guest@example.com", link, 15*time.Minute))
	html := aws.ToString(client.input.Message.Body.Html.Data)
	assert.Contains(t, html, "data:image/png;base64,")
	assert.Contains(t, aws.ToString(client.input.Message.Body.Text.Data), link)
}

func TestAWSSESEmailService_SendFailure(t *testing.T) {
	client := &mockSESClient{err: errors.New("throttled")}
	svc := NewSESEmailServiceWithClient(client, "no-reply@stayhub.test", slog.New(slog.NewJSONHandler(io.Discard, nil)))

	err := svc.SendOTP(context.Background(), "guest@example.com", "042917", 10*time.Minute)
	assert.ErrorContains(t, err, "throttled")
}

func TestResetLinkQRCode(t *testing.T) {
	qr, err := ResetLinkQRCode("https://app.stayhub.test/user/auth/reset-password/?token=1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(qr, "data:image/png;base64,"))
}

func TestLogEmailService_RedactsInProduction(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	require.NoError(t, NewLogEmailService(logger, "production").SendOTP(context.Background(), "guest@example.com", "042917", time.Minute))
	assert.NotContains(t, buf.String(), "042917")
	assert.NotContains(t, buf.String(), "guest@example.com")

	buf.Reset()
	require.NoError(t, NewLogEmailService(logger, "development").SendOTP(context.Background(), "guest@example.com", "042917", time.Minute))
	assert.Contains(t, buf.String(), "042917")
}
