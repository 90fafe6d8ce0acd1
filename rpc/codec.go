// Package rpc exposes the annotator over gRPC without protobuf code
// generation: services are registered through hand-written
// [grpc.ServiceDesc] values and the request/response types are plain Go
// structs carried as JSON.
//
// Importing the package replaces the "proto" codec with a wrapper that
// JSON-encodes the types declared here and delegates every other message
// to the standard proto codec, so generated services keep working on the
// same server.
package rpc

import (
	"encoding/json"
	"fmt"

	grpcEncoding "google.golang.org/grpc/encoding"
	_ "google.golang.org/grpc/encoding/proto" // default proto codec registers first
	"google.golang.org/protobuf/proto"
)

// message is implemented by every type carried as JSON.
type message interface {
	isMessage()
}

func init() {
	grpcEncoding.RegisterCodec(codec{})
}

type codec struct{}

func (codec) Name() string { return "proto" }

func (codec) Marshal(v any) ([]byte, error) {
	if _, ok := v.(message); ok {
		return json.Marshal(v)
	}
	if m, ok := v.(proto.Message); ok {
		return proto.Marshal(m)
	}
	return nil, fmt.Errorf("rpc codec: unsupported message type %T", v)
}

func (codec) Unmarshal(data []byte, v any) error {
	if _, ok := v.(message); ok {
		return json.Unmarshal(data, v)
	}
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, m)
	}
	return fmt.Errorf("rpc codec: unsupported message type %T", v)
}
