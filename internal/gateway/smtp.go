package gateway

import (
	"context"
	"fmt"

	"github.com/aniladanir/lead-funnel/internal/domain"
	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPGateway relays email messages through an SMTP server.
type SMTPGateway struct {
	from   string
	dialer *gomail.Dialer
}

func NewSMTPGateway(cfg SMTPConfig) *SMTPGateway {
	return &SMTPGateway{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
	}
}

func (g *SMTPGateway) Send(ctx context.Context, msg domain.OutboundMessage) (domain.Receipt, error) {
	if msg.Channel != domain.ChannelEmail {
		return domain.Receipt{}, fmt.Errorf("smtp gateway cannot send %q messages", msg.Channel)
	}
	if err := ctx.Err(); err != nil {
		return domain.Receipt{}, err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", g.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := g.dialer.DialAndSend(m); err != nil {
		return domain.Receipt{}, fmt.Errorf("failed to send email over smtp: %w", err)
	}

	return domain.Receipt{}, nil
}
