package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/SURE-Trust/certificate-service/internal/config"
	"github.com/SURE-Trust/certificate-service/internal/events"
	"github.com/SURE-Trust/certificate-service/internal/models"
)

type notificationService struct {
	client     *sendgrid.Client
	from       *mail.Email
	appBaseURL string
	logger     *slog.Logger
}

// NewNotificationService builds the SendGrid-backed mailer. With no API
// key configured every send becomes a logged no-op, which keeps local
// development working without outbound mail.
func NewNotificationService(cfg config.MailConfig, appBaseURL string, logger *slog.Logger) NotificationService {
	s := &notificationService{
		from:       mail.NewEmail(cfg.FromName, cfg.FromEmail),
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		logger:     logger,
	}
	if cfg.SendGridAPIKey != "" {
		s.client = sendgrid.NewSendClient(cfg.SendGridAPIKey)
	}
	return s
}

func (s *notificationService) SendCertificateIssued(ctx context.Context, toEmail, holderName, refNo, verificationURL string) error {
	subject := "Your SURE Trust certificate is ready"
	plain := fmt.Sprintf(
		"Dear %s,\n\nYour certificate has been issued.\n\nReference No: %s\nVerify at: %s\n\nRegards,\nSURE Trust",
		holderName, refNo, verificationURL)
	html := fmt.Sprintf(
		"<p>Dear %s,</p><p>Your certificate has been issued.</p><p><strong>Reference No:</strong> %s<br><strong>Verify at:</strong> <a href=%q>%s</a></p><p>Regards,<br>SURE Trust</p>",
		holderName, refNo, verificationURL, verificationURL)

	return s.send(ctx, toEmail, holderName, subject, plain, html)
}

func (s *notificationService) SendVerificationEmail(ctx context.Context, user *models.User, token string) error {
	link := fmt.Sprintf("%s/api/v1/auth/verify-email?token=%s", s.appBaseURL, token)
	subject := "Verify your email address"
	plain := fmt.Sprintf(
		"Dear %s,\n\nPlease confirm your email address by opening this link:\n%s\n\nThe link expires in 24 hours.",
		user.FullName(), link)
	html := fmt.Sprintf(
		"<p>Dear %s,</p><p>Please confirm your email address by clicking <a href=%q>this link</a>.</p><p>The link expires in 24 hours.</p>",
		user.FullName(), link)

	return s.send(ctx, user.Email, user.FullName(), subject, plain, html)
}

func (s *notificationService) SendPasswordResetEmail(ctx context.Context, user *models.User, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.appBaseURL, token)
	subject := "Reset your password"
	plain := fmt.Sprintf(
		"Dear %s,\n\nA password reset was requested for your account. Open this link to set a new password:\n%s\n\nIf you did not request this, ignore this email.",
		user.FullName(), link)
	html := fmt.Sprintf(
		"<p>Dear %s,</p><p>A password reset was requested for your account. Click <a href=%q>here</a> to set a new password.</p><p>If you did not request this, ignore this email.</p>",
		user.FullName(), link)

	return s.send(ctx, user.Email, user.FullName(), subject, plain, html)
}

func (s *notificationService) send(ctx context.Context, toEmail, toName, subject, plain, html string) error {
	if s.client == nil {
		s.logger.Info("mail disabled, skipping send", "to", toEmail, "subject", subject)
		return nil
	}

	msg := mail.NewSingleEmail(s.from, subject, mail.NewEmail(toName, toEmail), plain, html)
	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	s.logger.Debug("email sent", "to", toEmail, "subject", subject)
	return nil
}

// Run consumes the event stream and mails certificate holders on issuance.
// Messages are acked unconditionally: a failed email is logged, never
// redelivered forever.
func (s *notificationService) Run(ctx context.Context, subscriber message.Subscriber, topic string) error {
	messages, err := subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			s.handleMessage(ctx, msg)
			msg.Ack()
		}
	}
}

func (s *notificationService) handleMessage(ctx context.Context, msg *message.Message) {
	var envelope events.Event
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		s.logger.Error("unparseable event payload", "error", err, "message_id", msg.UUID)
		return
	}
	if envelope.Type != events.EventCertificateIssued {
		return
	}

	// Data round-trips through JSON because the envelope carries it as a
	// generic map after unmarshaling.
	raw, err := json.Marshal(envelope.Data)
	if err != nil {
		s.logger.Error("remarshal event data", "error", err, "message_id", msg.UUID)
		return
	}
	var issued events.CertificateIssuedEvent
	if err := json.Unmarshal(raw, &issued); err != nil {
		s.logger.Error("decode certificate.issued payload", "error", err, "message_id", msg.UUID)
		return
	}
	if issued.HolderEmail == "" {
		return
	}

	if err := s.SendCertificateIssued(ctx, issued.HolderEmail, issued.HolderName, issued.RefNo, issued.VerificationURL); err != nil {
		s.logger.Error("failed to send issuance email", "error", err, "ref_no", issued.RefNo)
	}
}
