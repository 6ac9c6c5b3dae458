// Package emblemgrpc exposes the vault application over gRPC.
//
// Messages are the emblem/types structs encoded with cramberry, so
// there is no generated protobuf code. Clients force the codec
// registered here and the server picks it from the content subtype.
package emblemgrpc

import (
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"google.golang.org/grpc/encoding"
)

const codecName = "cramberry"

// CramberryCodec is the encoding.Codec for every emblem RPC.
type CramberryCodec struct{}

var _ encoding.Codec = CramberryCodec{}

// Marshal encodes a request or response struct.
func (CramberryCodec) Marshal(v any) ([]byte, error) {
	data, err := cramberry.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return data, nil
}

// Unmarshal decodes into a request or response struct.
func (CramberryCodec) Unmarshal(data []byte, v any) error {
	if err := cramberry.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}

// Name implements encoding.Codec.
func (CramberryCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(CramberryCodec{})
}
