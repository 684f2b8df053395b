// Package protocol binds the numeric message-type IDs carried on the wire
// to the protobuf schemas of the lanthing signaling protocol.
//
// The table is compiled in and built once during package initialization.
// After that the Registry is read-only and safe for concurrent use.
package protocol

import "fmt"

// ID is a numeric protocol message-type identifier. A released ID is part
// of the wire contract and must never be bound to another schema.
type ID uint32

// Message-type IDs. The thousands digit names the protocol area.
const (
	IDLoginDevice         ID = 1001
	IDLoginDeviceAck      ID = 1002
	IDLoginUser           ID = 1003
	IDLoginUserAck        ID = 1004
	IDAllocateDeviceID    ID = 1005
	IDAllocateDeviceIDAck ID = 1006

	IDSignalingMessage    ID = 2001
	IDSignalingMessageAck ID = 2002
	IDJoinRoom            ID = 2003
	IDJoinRoomAck         ID = 2004

	IDRequestConnection    ID = 3001
	IDRequestConnectionAck ID = 3002
	IDOpenConnection       ID = 3003
	IDOpenConnectionAck    ID = 3004
	IDCloseConnection      ID = 3005
)

// Area is the protocol sub-area an ID belongs to by numeric range.
type Area int

const (
	AreaUnknown Area = iota
	AreaDevice
	AreaSignaling
	AreaConnection
)

// AreaOf reports the area an ID falls in by convention. The registry does
// not enforce the convention; new entries are expected to follow it.
func AreaOf(id ID) Area {
	switch {
	case id >= 1000 && id < 2000:
		return AreaDevice
	case id >= 2000 && id < 3000:
		return AreaSignaling
	case id >= 3000 && id < 4000:
		return AreaConnection
	default:
		return AreaUnknown
	}
}

func (a Area) String() string {
	switch a {
	case AreaDevice:
		return "device"
	case AreaSignaling:
		return "signaling"
	case AreaConnection:
		return "connection"
	case AreaUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("area(%d)", int(a))
	}
}
