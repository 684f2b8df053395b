// Package codec turns protocol messages into typed payloads and back,
// using the registry to pick the numeric header and the body schema.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"

	"github.com/lanthing-go/ltsignal/internal/protocol"
)

// HeaderSize is the size of the type ID that precedes every body.
const HeaderSize = 4

// Decode errors. Unknown IDs are reported with protocol.ErrUnknownMessageType.
var (
	ErrShortPayload  = errors.New("payload shorter than type header")
	ErrMalformedBody = errors.New("malformed message body")
)

// Codec encodes and decodes typed payloads: a little-endian uint32 type ID
// followed by the protobuf body.
type Codec struct {
	reg *protocol.Registry
	mo  proto.MarshalOptions
	uo  proto.UnmarshalOptions
}

// New creates a Codec over reg.
func New(reg *protocol.Registry) *Codec {
	return &Codec{
		reg: reg,
		mo:  proto.MarshalOptions{Deterministic: true},
		uo:  proto.UnmarshalOptions{},
	}
}

// Encode resolves the ID of msg and returns the typed payload. An
// unregistered schema fails with protocol.ErrUnregisteredMessageType and
// produces no output.
func (c *Codec) Encode(msg proto.Message) ([]byte, error) {
	id, err := c.reg.IDOf(msg)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, HeaderSize, HeaderSize+c.mo.Size(msg))
	binary.LittleEndian.PutUint32(buf, uint32(id))

	buf, err = c.mo.MarshalAppend(buf, msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %d: %w", id, err)
	}
	return buf, nil
}

// Decode reads the type ID and unmarshals the body into a new message of
// the registered schema. The ID is returned whenever the header could be
// read, including for unknown types, so callers can log it.
func (c *Codec) Decode(data []byte) (protocol.ID, proto.Message, error) {
	if len(data) < HeaderSize {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrShortPayload, len(data))
	}
	id := protocol.ID(binary.LittleEndian.Uint32(data))

	msg, err := c.reg.NewMessage(id)
	if err != nil {
		return id, nil, err
	}
	if err := c.uo.Unmarshal(data[HeaderSize:], msg); err != nil {
		return id, nil, fmt.Errorf("%w: id %d: %v", ErrMalformedBody, id, err)
	}
	return id, msg, nil
}

// PeekID reads the type ID without decoding the body.
func PeekID(data []byte) (protocol.ID, bool) {
	if len(data) < HeaderSize {
		return 0, false
	}
	return protocol.ID(binary.LittleEndian.Uint32(data)), true
}
