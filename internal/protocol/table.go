package protocol

// defaultRegistry is built during package initialization; a malformed table
// panics before main runs.
var defaultRegistry = MustNew(DefaultEntries()...)

// Default returns the registry of the compiled-in protocol table.
func Default() *Registry {
	return defaultRegistry
}

// DefaultEntries returns the compiled-in protocol table. Released IDs are
// never rebound; retire an entry by removing it and add new ones in the
// range of their area.
func DefaultEntries() []Entry {
	return []Entry{
		// Device and account lifecycle.
		{ID: IDLoginDevice, Type: LoginDevice},
		{ID: IDLoginDeviceAck, Type: LoginDeviceAck},
		{ID: IDLoginUser, Type: LoginUser},
		{ID: IDLoginUserAck, Type: LoginUserAck},
		{ID: IDAllocateDeviceID, Type: AllocateDeviceID},
		{ID: IDAllocateDeviceIDAck, Type: AllocateDeviceIDAck},

		// Signaling rooms.
		{ID: IDSignalingMessage, Type: SignalingMessage},
		{ID: IDSignalingMessageAck, Type: SignalingMessageAck},
		{ID: IDJoinRoom, Type: JoinRoom},
		{ID: IDJoinRoomAck, Type: JoinRoomAck},

		// Connection negotiation.
		{ID: IDRequestConnection, Type: RequestConnection},
		{ID: IDRequestConnectionAck, Type: RequestConnectionAck},
		{ID: IDOpenConnection, Type: OpenConnection},
		{ID: IDOpenConnectionAck, Type: OpenConnectionAck},
		{ID: IDCloseConnection, Type: CloseConnection},
	}
}
