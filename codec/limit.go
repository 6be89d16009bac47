package codec

import "fmt"

// Limit rejects payloads larger than MaxDecode before handing them to Inner.
// Entries in a shared backend may be written by other processes; this keeps
// an oversized one from being decoded at all. MaxDecode <= 0 disables the check.
type Limit[V any] struct {
	Inner     Codec[V]
	MaxDecode int
}

func (c Limit[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }

func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, decodeErr(fmt.Errorf("payload too large: %d > %d", len(b), c.MaxDecode))
	}
	return c.Inner.Decode(b)
}
