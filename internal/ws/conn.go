package ws

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"nhooyr.io/websocket"

	"github.com/lanthing-go/ltsignal/internal/codec"
	"github.com/lanthing-go/ltsignal/internal/protocol"
)

// Send errors.
var (
	ErrSendBufferFull = errors.New("send buffer full")
	ErrConnClosed     = errors.New("connection closed")
)

// UnknownPolicy decides what happens to a connection that sends a type ID
// missing from the registry.
type UnknownPolicy int

const (
	// DropUnknown logs and discards the message.
	DropUnknown UnknownPolicy = iota
	// CloseOnUnknown closes the connection with StatusPolicyViolation.
	CloseOnUnknown
)

// ParseUnknownPolicy parses "drop" or "close".
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drop", "":
		return DropUnknown, nil
	case "close":
		return CloseOnUnknown, nil
	default:
		return DropUnknown, fmt.Errorf("unknown message policy %q", s)
	}
}

func (p UnknownPolicy) String() string {
	if p == CloseOnUnknown {
		return "close"
	}
	return "drop"
}

// Options tune a connection.
type Options struct {
	MaxMessageSize int
	SendBufferSize int
	UnknownPolicy  UnknownPolicy
}

// Conn wraps a WebSocket connection with read/write pumps.
type Conn struct {
	id     string
	ws     *websocket.Conn
	hub    *Hub
	codec  *codec.Codec
	router *Router
	log    *zap.Logger
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	cancel context.CancelFunc

	opts Options
}

// NewConn creates a new Conn.
func NewConn(id string, ws *websocket.Conn, hub *Hub, c *codec.Codec, router *Router, opts Options, log *zap.Logger) *Conn {
	if opts.SendBufferSize <= 0 {
		opts.SendBufferSize = 256
	}
	return &Conn{
		id:     id,
		ws:     ws,
		hub:    hub,
		codec:  c,
		router: router,
		log:    log.With(zap.String("conn", id)),
		send:   make(chan []byte, opts.SendBufferSize),
		done:   make(chan struct{}),
		cancel: func() {},
		opts:   opts,
	}
}

// ID returns the connection ID.
func (c *Conn) ID() string {
	return c.id
}

// Run starts the read and write pumps. It blocks until the connection is closed.
func (c *Conn) Run(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	c.hub.Register(c)
	defer c.hub.Unregister(c)

	if c.opts.MaxMessageSize > 0 {
		c.ws.SetReadLimit(int64(c.opts.MaxMessageSize))
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		c.writePump(ctx)
	}()

	go func() {
		defer wg.Done()
		c.readPump(ctx)
	}()

	wg.Wait()
	c.ws.Close(websocket.StatusNormalClosure, "")
}

// readPump reads messages from the WebSocket and dispatches them.
func (c *Conn) readPump(ctx context.Context) {
	defer c.close()

	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				c.log.Info("Connection closed normally")
			} else {
				c.log.Info("Read error", zap.Error(err))
			}
			return
		}

		if typ != websocket.MessageBinary {
			c.log.Warn("Received non-binary message, closing")
			c.ws.Close(websocket.StatusUnsupportedData, "binary frames only")
			return
		}

		id, msg, err := c.codec.Decode(data)
		switch {
		case errors.Is(err, protocol.ErrUnknownMessageType):
			c.log.Warn("Unknown message type from peer",
				zap.Uint32("msg_id", uint32(id)),
				zap.Stringer("policy", c.opts.UnknownPolicy),
			)
			if c.opts.UnknownPolicy == CloseOnUnknown {
				c.ws.Close(websocket.StatusPolicyViolation, "unknown message type")
				return
			}
			continue
		case err != nil:
			c.log.Warn("Dropping undecodable message", zap.Error(err))
			continue
		}

		if !c.router.Dispatch(ctx, c, id, msg) {
			c.log.Debug("No handler for message, dropping",
				zap.Uint32("msg_id", uint32(id)),
				zap.String("msg_type", string(msg.ProtoReflect().Descriptor().FullName())),
			)
		}
	}
}

// writePump writes messages from the send channel to the WebSocket.
func (c *Conn) writePump(ctx context.Context) {
	defer c.close()

	for {
		select {
		case data := <-c.send:
			if err := c.ws.Write(ctx, websocket.MessageBinary, data); err != nil {
				c.log.Info("Write error", zap.Error(err))
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Send encodes msg and queues it for writing. A schema missing from the
// registry is a local defect: it is logged loudly and the send is
// aborted, but the connection stays up.
func (c *Conn) Send(msg proto.Message) error {
	data, err := c.codec.Encode(msg)
	if err != nil {
		fields := []zap.Field{zap.String("go_type", fmt.Sprintf("%T", msg)), zap.Error(err)}
		if name, ok := protocol.MessageName(msg); ok {
			fields = append(fields, zap.String("msg_type", string(name)))
		}
		c.log.Error("Refusing to send message", fields...)
		return err
	}

	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.log.Warn("Send buffer full, dropping message", zap.Int("bytes", len(data)))
		return ErrSendBufferFull
	}
}

// Close closes the connection from the server side.
func (c *Conn) Close(reason string) {
	c.ws.Close(websocket.StatusNormalClosure, reason)
	c.close()
}

// close cancels the connection context, closing both pumps.
func (c *Conn) close() {
	c.once.Do(func() {
		close(c.done)
		c.cancel()
	})
}

// connID generates a unique connection ID.
func connID() string {
	return "conn-" + uuid.NewString()
}
