package keys

import (
	"encoding"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fxamacker/cbor/v2"
)

// maxHashDepth bounds the argument walk; deeper values are treated as cyclic.
const maxHashDepth = 64

var hashEnc = func() cbor.EncMode {
	eo := cbor.CoreDetEncOptions()
	eo.Time = cbor.TimeRFC3339Nano
	em, err := eo.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

var (
	timeType            = reflect.TypeOf(time.Time{})
	bigIntType          = reflect.TypeOf(big.Int{})
	cborMarshalerType   = reflect.TypeOf((*cbor.Marshaler)(nil)).Elem()
	binaryMarshalerType = reflect.TypeOf((*encoding.BinaryMarshaler)(nil)).Elem()
)

// HashArgs returns 16 hex chars identifying the argument values. Equal values
// hash equally regardless of identity or map iteration order; swapping two
// arguments changes the hash.
//
// Struct state the encoder cannot see makes a value unhashable: a struct with
// unexported fields must implement cbor.Marshaler or encoding.BinaryMarshaler
// (time.Time and big.Int are encoded natively).
func HashArgs(values []any) (string, error) {
	if values == nil {
		values = []any{}
	}
	for i, v := range values {
		if err := checkHashable(reflect.ValueOf(v), 0); err != nil {
			return "", fmt.Errorf("%w: argument %d: %w", ErrUnhashable, i, err)
		}
	}
	b, err := hashEnc.Marshal(values)
	if err != nil {
		return "", errors.Join(ErrUnhashable, err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(b)), nil
}

// checkHashable rejects values whose encoding would drop part of their state.
func checkHashable(v reflect.Value, depth int) error {
	if !v.IsValid() {
		return nil
	}
	if depth > maxHashDepth {
		return errors.New("value nested too deeply or cyclic")
	}
	t := v.Type()
	if t == timeType || t == bigIntType || t.Implements(cborMarshalerType) || t.Implements(binaryMarshalerType) {
		return nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return checkHashable(v.Elem(), depth+1)
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := checkHashable(v.Index(i), depth+1); err != nil {
				return err
			}
		}
	case reflect.Map:
		it := v.MapRange()
		for it.Next() {
			if err := checkHashable(it.Key(), depth+1); err != nil {
				return err
			}
			if err := checkHashable(it.Value(), depth+1); err != nil {
				return err
			}
		}
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() && !(sf.Anonymous && embedsExported(sf.Type)) {
				return fmt.Errorf("%s has unexported field %s", t, sf.Name)
			}
			if sf.Tag.Get("cbor") == "-" || (sf.Tag.Get("cbor") == "" && sf.Tag.Get("json") == "-") {
				return fmt.Errorf("%s field %s is excluded from encoding", t, sf.Name)
			}
			if err := checkHashable(v.Field(i), depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// embedsExported reports whether an embedded field of type t is flattened by
// the encoder: an unexported embedded struct (or pointer to one) still
// contributes its exported fields.
func embedsExported(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}
