// Package wire frames cached payloads so a reader can tell a single value
// from a list and reject anything it did not write.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version    byte = 1
	kindSingle byte = 1
	kindList   byte = 2

	hdrLen = 4 + 1 + 1
)

var (
	ErrCorrupt = errors.New("wire: corrupt entry")
	magic4     = [...]byte{'A', 'S', 'D', 'C'}
)

func header(kind byte, grow int) *bytes.Buffer {
	var buf bytes.Buffer
	buf.Grow(hdrLen + grow)
	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kind)
	return &buf
}

func checkHeader(b []byte, kind byte) bool {
	return len(b) >= hdrLen && bytes.Equal(b[:4], magic4[:]) && b[4] == version && b[5] == kind
}

func putU32(buf *bytes.Buffer, n int) {
	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(n))
	buf.Write(u4[:])
}

// readChunk reads vlen(u32 be) | payload(vlen) at off.
func readChunk(b []byte, off int) (payload []byte, next int, ok bool) {
	if off+4 > len(b) {
		return nil, 0, false
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen > len(b)-off {
		return nil, 0, false
	}
	return b[off : off+vlen], off + vlen, true
}

// Single: magic(4) | ver(1) | kind(1=single) | vlen(u32 be) | payload(vlen)
func EncodeSingle(payload []byte) []byte {
	buf := header(kindSingle, 4+len(payload))
	putU32(buf, len(payload))
	buf.Write(payload)
	return buf.Bytes()
}

func DecodeSingle(b []byte) ([]byte, error) {
	if !checkHeader(b, kindSingle) {
		return nil, ErrCorrupt
	}
	p, off, ok := readChunk(b, hdrLen)
	if !ok || off != len(b) {
		return nil, ErrCorrupt
	}
	return p, nil
}

// List: magic(4) | ver(1) | kind(2=list) | n(u32 be) | (vlen(u32 be) | payload(vlen)) * n
func EncodeList(items [][]byte) []byte {
	total := 4
	for _, it := range items {
		total += 4 + len(it)
	}
	buf := header(kindList, total)
	putU32(buf, len(items))
	for _, it := range items {
		putU32(buf, len(it))
		buf.Write(it)
	}
	return buf.Bytes()
}

func DecodeList(b []byte) ([][]byte, error) {
	if !checkHeader(b, kindList) || len(b) < hdrLen+4 {
		return nil, ErrCorrupt
	}
	off := hdrLen
	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	// every item needs at least its 4-byte length
	if n < 0 || n > (len(b)-off)/4 {
		return nil, ErrCorrupt
	}

	items := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		var (
			p  []byte
			ok bool
		)
		p, off, ok = readChunk(b, off)
		if !ok {
			return nil, ErrCorrupt
		}
		items = append(items, p)
	}
	if off != len(b) {
		return nil, ErrCorrupt
	}
	return items, nil
}
