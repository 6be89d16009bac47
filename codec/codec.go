// Package codec turns cached values into bytes and back.
//
// A Codec is chosen per binding and must round-trip every value the wrapped
// call can return. Failures are joined with ErrEncode or ErrDecode so callers
// can tell a serialization problem apart from a backend one.
package codec

import "errors"

var (
	ErrEncode = errors.New("codec: encode failed")
	ErrDecode = errors.New("codec: decode failed")
)

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

func encodeErr(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrEncode, err)
}

func decodeErr(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrDecode, err)
}
