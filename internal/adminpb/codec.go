package adminpb

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// wireMessage is satisfied by every request/response type in this
// package; codec uses it instead of requiring the full proto.Message
// reflection interface.
type wireMessage interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

// codec implements grpc/encoding.Codec (formerly "Codec", still accepted
// under the "proto" name grpc-go looks up by default) over wireMessage
// instead of proto.Message reflection, avoiding a dependency on
// protoc-generated types for this small, fixed message set.
type codec struct{}

func (codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("adminpb: codec: %T does not implement wireMessage", v)
	}
	return m.Marshal()
}

func (codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("adminpb: codec: %T does not implement wireMessage", v)
	}
	return m.Unmarshal(data)
}

func (codec) Name() string { return "proto" }

func init() {
	encoding.RegisterCodec(codec{})
}
