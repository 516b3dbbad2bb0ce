package dispatcher

import (
	"context"

	"github.com/garyjia/mission-orders/internal/domain/event"
)

// Handler reacts to a mission event
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}
