package ports

import (
	"context"

	"github.com/aretw0/ussdgw/pkg/domain"
)

// DialogHandler is the inbound port of the gateway.
// Adapters (HTTP, MCP, the terminal simulator) translate their payloads into a
// domain.Request and render the returned directive.
type DialogHandler interface {
	Handle(ctx context.Context, req domain.Request) domain.Directive
}
