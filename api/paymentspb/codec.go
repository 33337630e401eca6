package paymentspb

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is the gRPC content-subtype this package's JSON codec answers
// to. Callers must dial with grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName))
// (or pass it per-call) so outgoing requests negotiate it; the server picks
// it up automatically from the incoming content-type header.
const codecName = "json"

// jsonCodec implements encoding.Codec by marshaling the plain DTOs in this
// package as JSON instead of wire-format protobuf, since no protobuf
// toolchain generated real message types for them.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
