package gateway

import (
	"context"
	"log/slog"

	"github.com/aniladanir/lead-funnel/internal/domain"
	"github.com/google/uuid"
)

// LogGateway only logs messages. It is the default when no provider is set up.
type LogGateway struct {
	logger *slog.Logger
}

func NewLogGateway(logger *slog.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

func (g *LogGateway) Send(_ context.Context, msg domain.OutboundMessage) (domain.Receipt, error) {
	id := uuid.NewString()
	g.logger.Info("outbound message",
		slog.String("channel", string(msg.Channel)),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
		slog.String("messageId", id),
	)
	return domain.Receipt{ProviderID: id}, nil
}
