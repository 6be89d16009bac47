package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

func TestSingleRoundTrip(t *testing.T) {
	for _, payload := range [][]byte{nil, []byte("hello"), {0, 1, 2, 3, 4}} {
		p, err := DecodeSingle(EncodeSingle(payload))
		if err != nil {
			t.Fatalf("DecodeSingle error: %v", err)
		}
		if !bytes.Equal(p, payload) {
			t.Fatalf("payload mismatch: got %x want %x", p, payload)
		}
	}
}

func TestSingleRejectsTrailingBytes(t *testing.T) {
	enc := append(EncodeSingle([]byte("x")), 0xDE, 0xAD)
	if _, err := DecodeSingle(enc); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt on trailing bytes, got %v", err)
	}
}

func TestSingleCorruptHeadersAndLengths(t *testing.T) {
	enc := EncodeSingle([]byte("abc"))

	mutate := func(i int, v byte) []byte {
		b := append([]byte(nil), enc...)
		b[i] = v
		return b
	}

	cases := map[string][]byte{
		"bad magic":   mutate(0, 'X'),
		"bad version": mutate(4, version+1),
		"list kind":   mutate(5, kindList),
		"short":       enc[:hdrLen+2],
		"truncated":   enc[:len(enc)-1],
		"empty":       nil,
	}
	for name, b := range cases {
		if _, err := DecodeSingle(b); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("%s: expected ErrCorrupt, got %v", name, err)
		}
	}

	huge := append([]byte(nil), enc...)
	binary.BigEndian.PutUint32(huge[hdrLen:], 0xFFFFFFFF)
	if _, err := DecodeSingle(huge); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("oversized vlen: expected ErrCorrupt, got %v", err)
	}
}

func TestListRoundTrip(t *testing.T) {
	in := [][]byte{[]byte("a"), nil, []byte(strings.Repeat("z", 300)), {0}}
	out, err := DecodeList(EncodeList(in))
	if err != nil {
		t.Fatalf("DecodeList error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if !bytes.Equal(out[i], in[i]) {
			t.Fatalf("item %d: got %x want %x", i, out[i], in[i])
		}
	}
}

func TestListEmpty(t *testing.T) {
	out, err := DecodeList(EncodeList(nil))
	if err != nil {
		t.Fatalf("DecodeList error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty list, got %d items", len(out))
	}
}

func TestListCorrupt(t *testing.T) {
	enc := EncodeList([][]byte{[]byte("one"), []byte("two")})

	inflated := append([]byte(nil), enc...)
	binary.BigEndian.PutUint32(inflated[hdrLen:], 1<<30)

	fewer := append([]byte(nil), enc...)
	binary.BigEndian.PutUint32(fewer[hdrLen:], 1)

	cases := map[string][]byte{
		"inflated count": inflated,
		"fewer items":    fewer, // leaves trailing bytes
		"truncated":      enc[:len(enc)-2],
		"trailing":       append(append([]byte(nil), enc...), 0),
		"single frame":   EncodeSingle([]byte("x")),
		"no count":       enc[:hdrLen],
	}
	for name, b := range cases {
		if _, err := DecodeList(b); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("%s: expected ErrCorrupt, got %v", name, err)
		}
	}
}

func TestKindsDoNotCross(t *testing.T) {
	if _, err := DecodeSingle(EncodeList([][]byte{[]byte("x")})); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("list frame decoded as single: %v", err)
	}
}
