// Package gateway hands outbound lead messages to a delivery provider.
package gateway

import (
	"context"
	"fmt"

	"github.com/aniladanir/lead-funnel/internal/domain"
)

type Gateway interface {
	Send(ctx context.Context, msg domain.OutboundMessage) (domain.Receipt, error)
}

// Router dispatches each message to the gateway registered for its channel.
type Router struct {
	routes   map[domain.Channel]Gateway
	fallback Gateway
}

func NewRouter(fallback Gateway) *Router {
	return &Router{
		routes:   make(map[domain.Channel]Gateway),
		fallback: fallback,
	}
}

// Route registers gw for channel and returns the router for chaining.
func (r *Router) Route(channel domain.Channel, gw Gateway) *Router {
	r.routes[channel] = gw
	return r
}

func (r *Router) Send(ctx context.Context, msg domain.OutboundMessage) (domain.Receipt, error) {
	if gw, ok := r.routes[msg.Channel]; ok {
		return gw.Send(ctx, msg)
	}
	if r.fallback == nil {
		return domain.Receipt{}, fmt.Errorf("no gateway for channel %q", msg.Channel)
	}
	return r.fallback.Send(ctx, msg)
}
