package keys

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func (a accessor) apply(cur any) (any, error) {
	switch a.kind {
	case accessCall:
		return call(cur, a.name)
	case accessIndex:
		return index(cur, a.index)
	default:
		return property(cur, a.name)
	}
}

// deref follows pointers and interfaces, failing on nil.
func deref(v reflect.Value, what string) (reflect.Value, error) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return v, fmt.Errorf("%w: %s on nil %s", ErrEval, what, v.Type())
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return v, fmt.Errorf("%w: %s on nil", ErrEval, what)
	}
	return v, nil
}

// property resolves .name: struct field, then map key, then zero-arg
// getter (Name or GetName).
func property(cur any, name string) (any, error) {
	what := "." + name
	raw := reflect.ValueOf(cur)
	v, err := deref(raw, what)
	if err != nil {
		return nil, err
	}

	switch v.Kind() {
	case reflect.Struct:
		for _, n := range uniq(name, upperFirst(name)) {
			if out, ok, err := field(v, n, what); ok {
				return out, err
			}
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String {
			if mv := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key())); mv.IsValid() {
				return mv.Interface(), nil
			}
		}
	}

	up := upperFirst(name)
	if out, ok, err := invoke(raw, v, uniq(name, up, "Get"+up)); ok {
		return out, err
	}
	return nil, fmt.Errorf("%w: %s not found on %s", ErrEval, what, v.Type())
}

// call resolves .name(): a zero-arg method. Java-style getters (getX, isX)
// also match Go's X / GetX / IsX and a field X. toString() stringifies.
func call(cur any, name string) (any, error) {
	what := "." + name + "()"
	if name == "toString" {
		if cur == nil {
			return nil, fmt.Errorf("%w: %s on nil", ErrEval, what)
		}
		return stringify(cur), nil
	}
	raw := reflect.ValueOf(cur)
	v, err := deref(raw, what)
	if err != nil {
		return nil, err
	}

	up := upperFirst(name)
	names := []string{name, up}
	var fname string
	for _, prefix := range []string{"get", "is"} {
		if rest, ok := strings.CutPrefix(name, prefix); ok && rest != "" {
			if r, _ := utf8.DecodeRuneInString(rest); unicode.IsUpper(r) {
				names = append(names, upperFirst(prefix)+rest, rest)
				fname = rest
			}
		}
	}
	if out, ok, err := invoke(raw, v, uniq(names...)); ok {
		return out, err
	}
	if fname != "" && v.Kind() == reflect.Struct {
		if out, ok, err := field(v, fname, what); ok {
			return out, err
		}
	}
	return nil, fmt.Errorf("%w: %s not found on %s", ErrEval, what, v.Type())
}

// field reads field n of struct v, following embedded pointers. ok is false
// when v has no such readable field.
func field(v reflect.Value, n, what string) (any, bool, error) {
	sf, ok := v.Type().FieldByName(n)
	if !ok || !sf.IsExported() {
		return nil, false, nil
	}
	f, err := v.FieldByIndexErr(sf.Index)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %s: %w", ErrEval, what, err)
	}
	if !f.CanInterface() {
		return nil, false, nil
	}
	return f.Interface(), true, nil
}

// invoke calls the first method in names found on raw (pointer receivers)
// or v. ok is false when none exists.
func invoke(raw, v reflect.Value, names []string) (out any, ok bool, err error) {
	for _, n := range names {
		m := raw.MethodByName(n)
		if !m.IsValid() {
			m = v.MethodByName(n)
		}
		if !m.IsValid() && v.Kind() != reflect.Pointer {
			p := reflect.New(v.Type())
			p.Elem().Set(v)
			m = p.MethodByName(n)
		}
		if !m.IsValid() {
			continue
		}
		mt := m.Type()
		if mt.NumIn() != 0 || mt.NumOut() == 0 || mt.NumOut() > 2 {
			return nil, true, fmt.Errorf("%w: method %s must take no arguments and return a value", ErrEval, n)
		}
		if mt.NumOut() == 2 && mt.Out(1) != errorType {
			return nil, true, fmt.Errorf("%w: method %s second result is not an error", ErrEval, n)
		}
		res, err := callMethod(m, n)
		if err != nil {
			return nil, true, err
		}
		if len(res) == 2 && !res[1].IsNil() {
			return nil, true, fmt.Errorf("%w: %s: %w", ErrEval, n, res[1].Interface().(error))
		}
		return res[0].Interface(), true, nil
	}
	return nil, false, nil
}

// callMethod runs m, turning a panic (a method promoted through a nil
// embedded pointer, say) into ErrEval.
func callMethod(m reflect.Value, n string) (res []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s panicked: %v", ErrEval, n, r)
		}
	}()
	return m.Call(nil), nil
}

func index(cur any, idx any) (any, error) {
	what := fmt.Sprintf("[%v]", idx)
	v, err := deref(reflect.ValueOf(cur), what)
	if err != nil {
		return nil, err
	}

	switch v.Kind() {
	case reflect.Map:
		kt := v.Type().Key()
		var k reflect.Value
		switch i := idx.(type) {
		case string:
			if kt.Kind() == reflect.String {
				k = reflect.ValueOf(i).Convert(kt)
			}
		case int64:
			if isIntKind(kt.Kind()) {
				if overflows(kt, i) {
					return nil, fmt.Errorf("%w: %s overflows %s", ErrEval, what, kt)
				}
				k = reflect.ValueOf(i).Convert(kt)
			}
		}
		if !k.IsValid() {
			return nil, fmt.Errorf("%w: %s cannot index %s", ErrEval, what, v.Type())
		}
		mv := v.MapIndex(k)
		if !mv.IsValid() {
			return nil, fmt.Errorf("%w: %s not in map", ErrEval, what)
		}
		return mv.Interface(), nil

	case reflect.Slice, reflect.Array, reflect.String:
		i, ok := idx.(int64)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot index %s", ErrEval, what, v.Type())
		}
		if v.Kind() == reflect.String {
			runes := []rune(v.String())
			if i < 0 || i >= int64(len(runes)) {
				return nil, fmt.Errorf("%w: %s out of range", ErrEval, what)
			}
			return string(runes[i]), nil
		}
		if i < 0 || i >= int64(v.Len()) {
			return nil, fmt.Errorf("%w: %s out of range", ErrEval, what)
		}
		return v.Index(int(i)).Interface(), nil
	}
	return nil, fmt.Errorf("%w: %s cannot index %s", ErrEval, what, v.Type())
}

// stringify renders v for concatenation; nil renders as "null".
func stringify(v any) string {
	if v == nil {
		return "null"
	}
	if s, ok := asString(v); ok {
		return s
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return "null"
	}
	return fmt.Sprint(v)
}

func asInt(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return 0, false
	}
	switch {
	case rv.CanInt():
		return rv.Int(), true
	case rv.CanUint():
		return int64(rv.Uint()), true
	}
	return 0, false
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// overflows reports whether i does not fit integer type t.
func overflows(t reflect.Type, i int64) bool {
	z := reflect.Zero(t)
	if z.CanInt() {
		return z.OverflowInt(i)
	}
	return i < 0 || z.OverflowUint(uint64(i))
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func uniq(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
