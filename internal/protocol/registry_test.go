package protocol

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func TestDefaultRoundTrip(t *testing.T) {
	reg := Default()
	require.Equal(t, len(DefaultEntries()), reg.Len())

	for _, e := range reg.Entries() {
		t.Run(string(e.Name()), func(t *testing.T) {
			mt, err := reg.ResolveByID(e.ID)
			require.NoError(t, err)
			assert.Equal(t, e.Name(), mt.Descriptor().FullName())

			id, err := reg.ResolveByType(e.Type)
			require.NoError(t, err)
			assert.Equal(t, e.ID, id)

			// inverse in both directions
			back, err := reg.ResolveByType(mt)
			require.NoError(t, err)
			assert.Equal(t, e.ID, back)
		})
	}
}

func TestScenario(t *testing.T) {
	reg, err := New(
		Entry{ID: 1001, Type: LoginDevice},
		Entry{ID: 1002, Type: LoginDeviceAck},
		Entry{ID: 3001, Type: RequestConnection},
	)
	require.NoError(t, err)

	mt, err := reg.ResolveByID(1001)
	require.NoError(t, err)
	assert.Equal(t, protoreflect.FullName("ltproto.server.LoginDevice"), mt.Descriptor().FullName())

	id, err := reg.ResolveByType(RequestConnection)
	require.NoError(t, err)
	assert.Equal(t, ID(3001), id)

	_, err = reg.ResolveByID(4000)
	assert.ErrorIs(t, err, ErrUnknownMessageType)
}

func TestResolveByIDUnknown(t *testing.T) {
	reg := Default()
	for _, id := range []ID{0, 1, 999, 1007, 2005, 3006, 4000, 4001, 9999, 0xffffffff} {
		_, err := reg.ResolveByID(id)
		if !errors.Is(err, ErrUnknownMessageType) {
			t.Errorf("ResolveByID(%d) error = %v, want ErrUnknownMessageType", id, err)
		}
	}
}

func TestResolveByTypeUnregistered(t *testing.T) {
	reg := Default()

	tests := []struct {
		name string
		mt   protoreflect.MessageType
	}{
		{name: "foreign schema", mt: (&structpb.Struct{}).ProtoReflect().Type()},
		{name: "another foreign schema", mt: (&timestamppb.Timestamp{}).ProtoReflect().Type()},
		{name: "nil type", mt: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.ResolveByType(tt.mt)
			assert.ErrorIs(t, err, ErrUnregisteredMessageType)
		})
	}

	// Registered in the schema set but not in a smaller table.
	small := MustNew(Entry{ID: IDJoinRoom, Type: JoinRoom})
	_, err := small.ResolveByType(JoinRoomAck)
	assert.ErrorIs(t, err, ErrUnregisteredMessageType)
}

func TestIDOf(t *testing.T) {
	reg := Default()

	id, err := reg.IDOf(OpenConnectionAck.New().Interface())
	require.NoError(t, err)
	assert.Equal(t, IDOpenConnectionAck, id)

	_, err = reg.IDOf(&structpb.Value{})
	assert.ErrorIs(t, err, ErrUnregisteredMessageType)

	_, err = reg.IDOf(nil)
	assert.ErrorIs(t, err, ErrUnregisteredMessageType)

	for _, m := range []proto.Message{(*dynamicpb.Message)(nil), (*structpb.Value)(nil)} {
		assert.NotPanics(t, func() {
			_, err = reg.IDOf(m)
		}, "IDOf(%T nil)", m)
		assert.ErrorIs(t, err, ErrUnregisteredMessageType, "IDOf(%T nil)", m)
	}
}

func TestMessageName(t *testing.T) {
	name, ok := MessageName(JoinRoom.New().Interface())
	assert.True(t, ok)
	assert.Equal(t, JoinRoom.Descriptor().FullName(), name)

	_, ok = MessageName(nil)
	assert.False(t, ok)

	_, ok = MessageName((*dynamicpb.Message)(nil))
	assert.False(t, ok)
}

func TestNewMessage(t *testing.T) {
	reg := Default()

	m, err := reg.NewMessage(IDCloseConnection)
	require.NoError(t, err)
	assert.Equal(t, CloseConnection.Descriptor().FullName(), m.ProtoReflect().Descriptor().FullName())

	_, err = reg.NewMessage(9999)
	assert.ErrorIs(t, err, ErrUnknownMessageType)
}

func TestContains(t *testing.T) {
	reg := Default()
	for _, e := range DefaultEntries() {
		assert.True(t, reg.Contains(e.ID), "Contains(%d)", e.ID)
	}
	for _, id := range []ID{0, 1, 14, 107, 1000, 1999, 2000, 3000, 4000, 4001, 9999} {
		assert.False(t, reg.Contains(id), "Contains(%d)", id)
	}
}

func TestNewRejectsMalformedTables(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		wantErr error
	}{
		{
			name: "duplicate id",
			entries: []Entry{
				{ID: 1001, Type: LoginDevice},
				{ID: 1001, Type: LoginDeviceAck},
			},
			wantErr: ErrDuplicateID,
		},
		{
			name: "duplicate type",
			entries: []Entry{
				{ID: 1001, Type: LoginDevice},
				{ID: 1002, Type: LoginDevice},
			},
			wantErr: ErrDuplicateType,
		},
		{
			name: "duplicated default table",
			entries: append(DefaultEntries(), DefaultEntries()...),
			wantErr: ErrDuplicateID,
		},
		{
			name:    "zero id",
			entries: []Entry{{ID: 0, Type: JoinRoom}},
			wantErr: ErrInvalidEntry,
		},
		{
			name:    "nil type",
			entries: []Entry{{ID: 2003}},
			wantErr: ErrInvalidEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := New(tt.entries...)
			assert.Nil(t, reg)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMustNewPanics(t *testing.T) {
	assert.Panics(t, func() {
		MustNew(Entry{ID: 1, Type: JoinRoom}, Entry{ID: 1, Type: JoinRoomAck})
	})
}

func TestEntriesSortedCopy(t *testing.T) {
	reg := MustNew(
		Entry{ID: 3001, Type: RequestConnection},
		Entry{ID: 1001, Type: LoginDevice},
		Entry{ID: 2003, Type: JoinRoom},
	)

	entries := reg.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []ID{1001, 2003, 3001}, []ID{entries[0].ID, entries[1].ID, entries[2].ID})

	entries[0].ID = 7
	assert.True(t, reg.Contains(1001))
	assert.Equal(t, ID(1001), reg.Entries()[0].ID)
}

func TestDefaultTableFollowsAreaConvention(t *testing.T) {
	want := map[protoreflect.FullName]Area{
		"ltproto.server":    AreaDevice,
		"ltproto.signaling": AreaSignaling,
	}
	connection := map[ID]bool{
		IDRequestConnection:    true,
		IDRequestConnectionAck: true,
		IDOpenConnection:       true,
		IDOpenConnectionAck:    true,
		IDCloseConnection:      true,
	}

	for _, e := range DefaultEntries() {
		area := AreaOf(e.ID)
		require.NotEqual(t, AreaUnknown, area, "id %d outside every area", e.ID)

		if connection[e.ID] {
			assert.Equal(t, AreaConnection, area, "id %d", e.ID)
			continue
		}
		assert.Equal(t, want[e.Type.Descriptor().ParentFile().Package()], area, "id %d (%s)", e.ID, e.Name())
	}
}

func TestAreaOf(t *testing.T) {
	tests := []struct {
		id   ID
		want Area
	}{
		{999, AreaUnknown},
		{1000, AreaDevice},
		{1999, AreaDevice},
		{2001, AreaSignaling},
		{3005, AreaConnection},
		{4001, AreaUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AreaOf(tt.id), "AreaOf(%d)", tt.id)
	}
	assert.Equal(t, "signaling", AreaSignaling.String())
	assert.Equal(t, "unknown", AreaUnknown.String())
}

func TestConcurrentLookups(t *testing.T) {
	reg := Default()
	entries := reg.Entries()

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				e := entries[(g+i)%len(entries)]
				mt, err := reg.ResolveByID(e.ID)
				if err != nil {
					t.Errorf("ResolveByID(%d): %v", e.ID, err)
					return
				}
				if id, err := reg.ResolveByType(mt); err != nil || id != e.ID {
					t.Errorf("ResolveByType(%s) = %d, %v", e.Name(), id, err)
					return
				}
				if reg.Contains(ID(9000 + i)) {
					t.Errorf("Contains(%d) = true", 9000+i)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}
