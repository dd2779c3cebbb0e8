// Package mailer delivers account emails such as password reset links.
package mailer

import (
	"context"
	"net/url"

	"go.uber.org/zap"
)

type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer writes the reset link to the debug log instead of sending it. It
// is the default until an SMTP or provider integration is configured.
type LogMailer struct {
	logger  *zap.Logger
	linkURL string
}

// NewLogMailer builds a LogMailer. linkURL is the page that accepts the reset
// token, e.g. "pizzeria://reset-password".
func NewLogMailer(logger *zap.Logger, linkURL string) *LogMailer {
	return &LogMailer{logger: logger, linkURL: linkURL}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.logger.Info("password reset requested", zap.String("email", email))
	// The link carries a live reset token
	m.logger.Debug("password reset link",
		zap.String("email", email),
		zap.String("link", m.link(token)),
	)
	return nil
}

func (m *LogMailer) link(token string) string {
	u, err := url.Parse(m.linkURL)
	if err != nil || m.linkURL == "" {
		return token
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
