package ws

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/protobuf/proto"

	"github.com/lanthing-go/ltsignal/internal/protocol"
)

func TestRouterHandleUnknownID(t *testing.T) {
	r := NewRouter(protocol.Default())
	noop := func(context.Context, *Conn, protocol.ID, proto.Message) {}

	if err := r.Handle(protocol.IDOpenConnection, noop); err != nil {
		t.Fatalf("Handle(OpenConnection): %v", err)
	}
	if err := r.Handle(4001, noop); !errors.Is(err, protocol.ErrUnknownMessageType) {
		t.Errorf("Handle(4001) error = %v, want ErrUnknownMessageType", err)
	}
}

func TestRouterDispatch(t *testing.T) {
	var routed, fallback []protocol.ID

	r := NewRouter(protocol.Default())
	r.Handle(protocol.IDLoginDevice, func(_ context.Context, _ *Conn, id protocol.ID, _ proto.Message) {
		routed = append(routed, id)
	})

	ctx := context.Background()
	msg := protocol.LoginDevice.New().Interface()

	if !r.Dispatch(ctx, nil, protocol.IDLoginDevice, msg) {
		t.Error("Dispatch(LoginDevice) = false with a route")
	}
	if r.Dispatch(ctx, nil, protocol.IDJoinRoom, msg) {
		t.Error("Dispatch(JoinRoom) = true without route or fallback")
	}

	r.Fallback(func(_ context.Context, _ *Conn, id protocol.ID, _ proto.Message) {
		fallback = append(fallback, id)
	})
	if !r.Dispatch(ctx, nil, protocol.IDJoinRoom, msg) {
		t.Error("Dispatch(JoinRoom) = false with a fallback")
	}

	if len(routed) != 1 || routed[0] != protocol.IDLoginDevice {
		t.Errorf("routed = %v", routed)
	}
	if len(fallback) != 1 || fallback[0] != protocol.IDJoinRoom {
		t.Errorf("fallback = %v", fallback)
	}
}
