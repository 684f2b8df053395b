package protocol

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Schema files linked at init. Kept out of protoregistry.GlobalFiles so a
// generated package with the same names can coexist.
var schemaFiles = mustLinkSchemas(serverSchema(), signalingSchema())

// Message schemas of the ltproto.server package.
var (
	LoginDevice          = mustMessageType("ltproto.server.LoginDevice")
	LoginDeviceAck       = mustMessageType("ltproto.server.LoginDeviceAck")
	LoginUser            = mustMessageType("ltproto.server.LoginUser")
	LoginUserAck         = mustMessageType("ltproto.server.LoginUserAck")
	AllocateDeviceID     = mustMessageType("ltproto.server.AllocateDeviceID")
	AllocateDeviceIDAck  = mustMessageType("ltproto.server.AllocateDeviceIDAck")
	RequestConnection    = mustMessageType("ltproto.server.RequestConnection")
	RequestConnectionAck = mustMessageType("ltproto.server.RequestConnectionAck")
	OpenConnection       = mustMessageType("ltproto.server.OpenConnection")
	OpenConnectionAck    = mustMessageType("ltproto.server.OpenConnectionAck")
	CloseConnection      = mustMessageType("ltproto.server.CloseConnection")
)

// Message schemas of the ltproto.signaling package.
var (
	SignalingMessage    = mustMessageType("ltproto.signaling.SignalingMessage")
	SignalingMessageAck = mustMessageType("ltproto.signaling.SignalingMessageAck")
	JoinRoom            = mustMessageType("ltproto.signaling.JoinRoom")
	JoinRoomAck         = mustMessageType("ltproto.signaling.JoinRoomAck")
)

// Schemas returns the linked schema files. The result must not be
// modified.
func Schemas() *protoregistry.Files {
	return schemaFiles
}

func mustLinkSchemas(fdps ...*descriptorpb.FileDescriptorProto) *protoregistry.Files {
	files := new(protoregistry.Files)
	for _, fdp := range fdps {
		fd, err := protodesc.NewFile(fdp, files)
		if err != nil {
			panic(fmt.Sprintf("protocol: link %s: %v", fdp.GetName(), err))
		}
		if err := files.RegisterFile(fd); err != nil {
			panic(fmt.Sprintf("protocol: register %s: %v", fdp.GetName(), err))
		}
	}
	return files
}

func mustMessageType(name protoreflect.FullName) protoreflect.MessageType {
	d, err := schemaFiles.FindDescriptorByName(name)
	if err != nil {
		panic(fmt.Sprintf("protocol: find %s: %v", name, err))
	}
	md, ok := d.(protoreflect.MessageDescriptor)
	if !ok {
		panic(fmt.Sprintf("protocol: %s is not a message", name))
	}
	return dynamicpb.NewMessageType(md)
}

func serverSchema() *descriptorpb.FileDescriptorProto {
	const pkg = ".ltproto.server."
	params := messageField("streaming_params", 0, pkg+"StreamingParams")

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("ltproto/server.proto"),
		Package: proto.String("ltproto.server"),
		Syntax:  proto.String("proto3"),
		EnumType: []*descriptorpb.EnumDescriptorProto{
			enum("ConnectionType", "Control", "FileTransfer"),
		},
		MessageType: []*descriptorpb.DescriptorProto{
			message("StreamingParams",
				scalar("video_width", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32),
				scalar("video_height", 2, descriptorpb.FieldDescriptorProto_TYPE_INT32),
				scalar("screen_refresh_rate", 3, descriptorpb.FieldDescriptorProto_TYPE_INT32),
				scalar("enable_driver_input", 4, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
				scalar("enable_gamepad", 5, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
			),
			message("LoginDevice",
				scalar("device_id", 1, descriptorpb.FieldDescriptorProto_TYPE_INT64),
				scalar("allow_control", 2, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
			),
			withEnums(message("LoginDeviceAck",
				enumField("err_code", 1, pkg+"LoginDeviceAck.ErrCode"),
			), enum("ErrCode", "Success", "InvalidID", "InvalidStatus")),
			message("LoginUser",
				scalar("user_id", 1, descriptorpb.FieldDescriptorProto_TYPE_INT64),
				scalar("access_token", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
			),
			message("LoginUserAck",
				scalar("err_code", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32),
			),
			message("AllocateDeviceID"),
			message("AllocateDeviceIDAck",
				scalar("device_id", 1, descriptorpb.FieldDescriptorProto_TYPE_INT64),
			),
			message("RequestConnection",
				enumField("conn_type", 1, pkg+"ConnectionType"),
				scalar("device_id", 2, descriptorpb.FieldDescriptorProto_TYPE_INT64),
				scalar("access_token", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				numbered(params, 4),
			),
			withEnums(message("RequestConnectionAck",
				enumField("err_code", 1, pkg+"RequestConnectionAck.ErrCode"),
				scalar("device_id", 2, descriptorpb.FieldDescriptorProto_TYPE_INT64),
				scalar("client_id", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("room_id", 4, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("auth_token", 5, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("p2p_username", 6, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("p2p_password", 7, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("signaling_addr", 8, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("signaling_port", 9, descriptorpb.FieldDescriptorProto_TYPE_INT32),
			), enum("ErrCode", "Success", "Invalid", "PeerNotOnline", "Timeout")),
			message("OpenConnection",
				scalar("service_id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("room_id", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("auth_token", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("p2p_username", 4, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("p2p_password", 5, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("signaling_addr", 6, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("signaling_port", 7, descriptorpb.FieldDescriptorProto_TYPE_INT32),
				scalar("access_token", 8, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				numbered(params, 9),
			),
			withEnums(message("OpenConnectionAck",
				enumField("err_code", 1, pkg+"OpenConnectionAck.ErrCode"),
				numbered(params, 2),
			), enum("ErrCode", "Success", "Invalid")),
			withEnums(message("CloseConnection",
				enumField("reason", 1, pkg+"CloseConnection.Reason"),
				scalar("room_id", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
			), enum("Reason", "ClientClose", "HostClose", "TimeoutClose")),
		},
	}
}

func signalingSchema() *descriptorpb.FileDescriptorProto {
	const pkg = ".ltproto.signaling."

	keyValue := func(name string) *descriptorpb.DescriptorProto {
		return message(name,
			scalar("key", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
			scalar("value", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
		)
	}

	signaling := withEnums(message("SignalingMessage",
		enumField("level", 1, pkg+"SignalingMessage.Level"),
		messageField("core_message", 2, pkg+"SignalingMessage.CoreMessage"),
		messageField("rtc_message", 3, pkg+"SignalingMessage.RtcMessage"),
	), enum("Level", "Core", "Rtc"))
	signaling.NestedType = []*descriptorpb.DescriptorProto{keyValue("CoreMessage"), keyValue("RtcMessage")}

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("ltproto/signaling.proto"),
		Package: proto.String("ltproto.signaling"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			signaling,
			message("SignalingMessageAck",
				scalar("err_code", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32),
			),
			message("JoinRoom",
				scalar("session_id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("room_id", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
			),
			message("JoinRoomAck",
				scalar("err_code", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32),
			),
		},
	}
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{
		Name:  proto.String(name),
		Field: fields,
	}
}

func withEnums(m *descriptorpb.DescriptorProto, enums ...*descriptorpb.EnumDescriptorProto) *descriptorpb.DescriptorProto {
	m.EnumType = append(m.EnumType, enums...)
	return m
}

// enum declares values numbered from zero in order, as proto3 requires.
func enum(name string, values ...string) *descriptorpb.EnumDescriptorProto {
	e := &descriptorpb.EnumDescriptorProto{Name: proto.String(name)}
	for i, v := range values {
		e.Value = append(e.Value, &descriptorpb.EnumValueDescriptorProto{
			Name:   proto.String(v),
			Number: proto.Int32(int32(i)),
		})
	}
	return e
}

func scalar(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
}

func enumField(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	f := scalar(name, number, descriptorpb.FieldDescriptorProto_TYPE_ENUM)
	f.TypeName = proto.String(typeName)
	return f
}

func messageField(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	f := scalar(name, number, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
	f.TypeName = proto.String(typeName)
	return f
}

// numbered returns a copy of f with a new field number.
func numbered(f *descriptorpb.FieldDescriptorProto, number int32) *descriptorpb.FieldDescriptorProto {
	c := proto.Clone(f).(*descriptorpb.FieldDescriptorProto)
	c.Number = proto.Int32(number)
	return c
}
