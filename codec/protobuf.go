package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

// Protobuf serializes generated message types. ctor must return a fresh,
// non-nil message, e.g. func() *pb.User { return &pb.User{} }.
type Protobuf[T proto.Message] struct {
	new func() T
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	b, err := proto.Marshal(v)
	return b, encodeErr(err)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	if c.new == nil {
		var zero T
		return zero, decodeErr(errors.New("protobuf codec has no constructor"))
	}
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, decodeErr(err)
}
