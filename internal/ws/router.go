package ws

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/proto"

	"github.com/lanthing-go/ltsignal/internal/protocol"
)

// HandlerFunc handles one decoded inbound message.
type HandlerFunc func(ctx context.Context, c *Conn, id protocol.ID, msg proto.Message)

// Router dispatches decoded messages by type ID. Routes are registered
// during startup, before connections are accepted, and read-only after.
type Router struct {
	reg      *protocol.Registry
	routes   map[protocol.ID]HandlerFunc
	fallback HandlerFunc
}

// NewRouter creates a Router whose routes are limited to the IDs in reg.
func NewRouter(reg *protocol.Registry) *Router {
	return &Router{
		reg:    reg,
		routes: make(map[protocol.ID]HandlerFunc),
	}
}

// Handle routes id to h. IDs missing from the registry are rejected with
// protocol.ErrUnknownMessageType.
func (r *Router) Handle(id protocol.ID, h HandlerFunc) error {
	if !r.reg.Contains(id) {
		return fmt.Errorf("route %d: %w", id, protocol.ErrUnknownMessageType)
	}
	r.routes[id] = h
	return nil
}

// Fallback sets the handler for known IDs without a route.
func (r *Router) Fallback(h HandlerFunc) {
	r.fallback = h
}

// Dispatch calls the handler for id. It reports false when neither a route
// nor a fallback exists.
func (r *Router) Dispatch(ctx context.Context, c *Conn, id protocol.ID, msg proto.Message) bool {
	h, ok := r.routes[id]
	if !ok {
		h = r.fallback
	}
	if h == nil {
		return false
	}
	h(ctx, c, id, msg)
	return true
}
