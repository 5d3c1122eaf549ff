package audioclient

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// JSONCodecName is the gRPC content-subtype this package's requests (and
// internal/rpcsvc's) are sent with (content-type "application/grpc+json"),
// registered below in place of the "proto" codec protoc-gen-go-grpc would
// normally wire up.
const JSONCodecName = "json"

const jsonCodecName = JSONCodecName

// jsonCodec implements google.golang.org/grpc/encoding.Codec over plain
// JSON-tagged structs, so this package's gRPC client/service pair needs
// no generated protobuf stubs.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
