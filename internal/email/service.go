// Package email delivers outbound mail through the Resend API. Group
// broadcast is the only caller; delivery failures surface as ErrDelivery
// so the API layer can distinguish them from authorization failures.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/campusmate/server/internal/config"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// ErrDelivery wraps any failure of the external mail integration.
var ErrDelivery = errors.New("mail delivery failed")

type Service struct {
	config config.EmailConfig
	client *resend.Client
	logger zerolog.Logger
}

func NewService(cfg config.EmailConfig, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled {
		if err := validateAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
	}

	svc := &Service{
		config: cfg,
		logger: logger.With().Str("component", "email").Logger(),
	}
	if cfg.Enabled {
		svc.client = resend.NewClient(cfg.ResendAPIKey)
	}
	return svc, nil
}

// Send delivers a message to every recipient in a single API call. The
// call is bounded by the configured send timeout; the caller holds no
// locks while waiting. When the service is disabled the message is
// logged and dropped.
func (s *Service) Send(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return fmt.Errorf("%w: no recipients", ErrDelivery)
	}
	for _, addr := range to {
		if err := validateAddress(addr); err != nil {
			return fmt.Errorf("%w: invalid recipient %q: %s", ErrDelivery, addr, err)
		}
	}
	if strings.TrimSpace(subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrDelivery)
	}

	if !s.config.Enabled {
		s.logger.Info().
			Strs("to", to).
			Str("subject", subject).
			Msg("email service disabled, dropping message")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.SendTimeout)
	defer cancel()

	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.config.From,
		To:      to,
		Subject: subject,
		Text:    body,
	})
	if err != nil {
		var rateLimitErr *resend.RateLimitError
		if errors.As(err, &rateLimitErr) {
			s.logger.Warn().
				Str("limit", rateLimitErr.Limit).
				Str("reset", rateLimitErr.Reset).
				Msg("resend rate limit exceeded")
		}
		return fmt.Errorf("%w: %s", ErrDelivery, err)
	}

	s.logger.Info().
		Str("email_id", sent.Id).
		Int("recipients", len(to)).
		Str("subject", subject).
		Msg("email sent")
	return nil
}

// validateAddress checks format and rejects header injection attempts.
func validateAddress(address string) error {
	addr, err := mail.ParseAddress(address)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}
