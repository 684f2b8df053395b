package protocol

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Lookup errors. Callers branch on them with errors.Is.
var (
	// ErrUnknownMessageType means a peer sent an ID this build does not know.
	ErrUnknownMessageType = errors.New("unknown message type")
	// ErrUnregisteredMessageType means local code tried to send a schema
	// that was never declared in the table.
	ErrUnregisteredMessageType = errors.New("unregistered message type")
)

// Construction errors.
var (
	ErrInvalidEntry  = errors.New("invalid registry entry")
	ErrDuplicateID   = errors.New("duplicate message id")
	ErrDuplicateType = errors.New("duplicate message type")
)

// Entry binds one numeric ID to one message schema.
type Entry struct {
	ID   ID
	Type protoreflect.MessageType
}

// Name returns the full protobuf name of the entry's schema.
func (e Entry) Name() protoreflect.FullName {
	return e.Type.Descriptor().FullName()
}

// Registry is an immutable bidirectional table between IDs and message
// schemas. Schemas are compared by full protobuf name.
type Registry struct {
	entries []Entry
	byID    map[ID]Entry
	byName  map[protoreflect.FullName]ID
}

// New builds a Registry from entries. Any zero ID, nil type, duplicate ID
// or duplicate schema fails the whole construction.
func New(entries ...Entry) (*Registry, error) {
	r := &Registry{
		entries: make([]Entry, 0, len(entries)),
		byID:    make(map[ID]Entry, len(entries)),
		byName:  make(map[protoreflect.FullName]ID, len(entries)),
	}

	for i, e := range entries {
		if e.ID == 0 {
			return nil, fmt.Errorf("%w: entry %d has zero id", ErrInvalidEntry, i)
		}
		if e.Type == nil {
			return nil, fmt.Errorf("%w: entry %d (id %d) has nil type", ErrInvalidEntry, i, e.ID)
		}
		if prev, ok := r.byID[e.ID]; ok {
			return nil, fmt.Errorf("%w: %d bound to both %s and %s", ErrDuplicateID, e.ID, prev.Name(), e.Name())
		}
		name := e.Name()
		if prevID, ok := r.byName[name]; ok {
			return nil, fmt.Errorf("%w: %s bound to both %d and %d", ErrDuplicateType, name, prevID, e.ID)
		}

		r.byID[e.ID] = e
		r.byName[name] = e.ID
		r.entries = append(r.entries, e)
	}

	sort.Slice(r.entries, func(i, j int) bool { return r.entries[i].ID < r.entries[j].ID })
	return r, nil
}

// MustNew is like New but panics on error. It is meant for compiled-in
// tables, where a construction failure is a protocol-definition bug.
func MustNew(entries ...Entry) *Registry {
	r, err := New(entries...)
	if err != nil {
		panic(fmt.Sprintf("protocol: build registry: %v", err))
	}
	return r
}

// ResolveByID returns the schema registered under id.
func (r *Registry) ResolveByID(id ID) (protoreflect.MessageType, error) {
	e, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownMessageType, id)
	}
	return e.Type, nil
}

// ResolveByType returns the ID registered for mt.
func (r *Registry) ResolveByType(mt protoreflect.MessageType) (ID, error) {
	if mt == nil {
		return 0, fmt.Errorf("%w: nil type", ErrUnregisteredMessageType)
	}
	return r.ResolveByName(mt.Descriptor().FullName())
}

// ResolveByName returns the ID registered for the schema with the given
// full protobuf name.
func (r *Registry) ResolveByName(name protoreflect.FullName) (ID, error) {
	id, ok := r.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnregisteredMessageType, name)
	}
	return id, nil
}

// IDOf returns the ID for an outbound message instance.
func (r *Registry) IDOf(m proto.Message) (ID, error) {
	name, ok := MessageName(m)
	if !ok {
		return 0, fmt.Errorf("%w: nil message", ErrUnregisteredMessageType)
	}
	return r.ResolveByName(name)
}

// MessageName returns the full schema name of m. It reports false for a nil
// interface and for a typed nil pointer, which dynamicpb cannot describe.
func MessageName(m proto.Message) (protoreflect.FullName, bool) {
	if m == nil {
		return "", false
	}
	if v := reflect.ValueOf(m); v.Kind() == reflect.Pointer && v.IsNil() {
		return "", false
	}
	return m.ProtoReflect().Descriptor().FullName(), true
}

// NewMessage returns an empty message of the schema registered under id.
func (r *Registry) NewMessage(id ID) (proto.Message, error) {
	mt, err := r.ResolveByID(id)
	if err != nil {
		return nil, err
	}
	return mt.New().Interface(), nil
}

// Contains reports whether id is registered.
func (r *Registry) Contains(id ID) bool {
	_, ok := r.byID[id]
	return ok
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Entries returns a copy of the table ordered by ID.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
