// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/rapidaai/meet/pkg/commons"
)

// Sender delivers transactional mail: meeting invitations and reminders.
type Sender interface {
	Send(ctx context.Context, toEmail, subject, plainText, htmlBody string) error
}

type sendgridSender struct {
	client   *sendgrid.Client
	fromName string
	fromMail string
	logger   commons.Logger
}

func NewSendgridSender(apiKey, fromName, fromMail string, logger commons.Logger) Sender {
	return &sendgridSender{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: fromName,
		fromMail: fromMail,
		logger:   logger,
	}
}

func (s *sendgridSender) Send(ctx context.Context, toEmail, subject, plainText, htmlBody string) error {
	from := mail.NewEmail(s.fromName, s.fromMail)
	to := mail.NewEmail("", toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlBody)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("email rejected with status %d: %s", response.StatusCode, response.Body)
	}
	s.logger.Debugw("email sent", "to", toEmail, "subject", subject)
	return nil
}

// noopSender is used when no sendgrid key is configured and by tests.
type noopSender struct {
	logger commons.Logger
}

func NewNoopSender(logger commons.Logger) Sender {
	return &noopSender{logger: logger}
}

func (s *noopSender) Send(ctx context.Context, toEmail, subject, plainText, htmlBody string) error {
	s.logger.Infow("email delivery disabled, dropping message", "to", toEmail, "subject", subject)
	return nil
}
