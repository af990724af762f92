package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/hoaxify/hoaxify-server/internal/logging"
)

// Service sends transactional mail over SMTP. Both send methods are designed
// to be called from goroutines so registration and reset requests never
// block on the mail server.
type Service struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	frontendURL  string
}

func NewService(smtpHost, smtpPort, smtpUser, smtpPassword, frontendURL string) *Service {
	return &Service{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUser:     smtpUser,
		smtpPassword: smtpPassword,
		fromEmail:    smtpUser,
		frontendURL:  frontendURL,
	}
}

// SendAccountActivation mails the one-shot activation token to a freshly
// registered account.
func (s *Service) SendAccountActivation(ctx context.Context, toEmail, token string) error {
	logger := logging.GetLoggerFromContext(ctx)

	body, err := renderTemplate(activationTemplate, map[string]string{
		"Link":  fmt.Sprintf("%s/activate?token=%s", s.frontendURL, token),
		"Token": token,
	})
	if err != nil {
		logger.Error("failed to render activation email", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "Account Activation", body); err != nil {
		logger.Error("failed to send activation email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("activation email sent", "email", toEmail)
	return nil
}

// SendPasswordReset mails the one-shot password reset token.
func (s *Service) SendPasswordReset(ctx context.Context, toEmail, token string) error {
	logger := logging.GetLoggerFromContext(ctx)

	body, err := renderTemplate(passwordResetTemplate, map[string]string{
		"Link":  fmt.Sprintf("%s/password-reset?token=%s", s.frontendURL, token),
		"Token": token,
	})
	if err != nil {
		logger.Error("failed to render password reset email", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "Password Reset", body); err != nil {
		logger.Error("failed to send password reset email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("password reset email sent", "email", toEmail)
	return nil
}

func (s *Service) sendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	return smtp.SendMail(addr, auth, s.fromEmail, []string{to}, msg)
}

func renderTemplate(tmpl string, data map[string]string) (string, error) {
	t, err := template.New("email").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}

const activationTemplate = `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto;">
    <h2>Activate your account</h2>
    <p>Thanks for signing up! Click the button below to activate your account.</p>
    <p><a href="{{.Link}}" style="display: inline-block; background-color: #4F46E5; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px;">Activate Account</a></p>
    <p>Or use this activation token directly: <strong>{{.Token}}</strong></p>
    <p>If you did not create an account, you can safely ignore this email.</p>
</body>
</html>
`

const passwordResetTemplate = `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto;">
    <h2>Reset your password</h2>
    <p>You requested to reset your password. Click the button below to choose a new one.</p>
    <p><a href="{{.Link}}" style="display: inline-block; background-color: #4F46E5; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px;">Reset Password</a></p>
    <p>Or use this reset token directly: <strong>{{.Token}}</strong></p>
    <p>If you did not request a password reset, you can safely ignore this email. Your password will remain unchanged.</p>
</body>
</html>
`
