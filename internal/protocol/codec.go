package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

const maxDepth = 64

var (
	errCycle       = errors.New("cyclic value")
	errTooDeep     = fmt.Errorf("value nested deeper than %d levels", maxDepth)
	errTrailing    = errors.New("trailing bytes after envelope")
	errUnsupported = errors.New("unsupported value")
	errNotMap      = errors.New("envelope is not a map")
)

// CodecError is returned when an envelope cannot be encoded or a payload
// cannot be decoded.
type CodecError struct {
	Op  string
	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("%s envelope: %v", e.Op, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// Encode serializes env as MessagePack. Map keys are sorted, so equal
// envelopes always produce equal bytes.
func Encode(env Envelope) ([]byte, error) {
	data, err := canonicalMap(env.Data, nil)
	if err != nil {
		return nil, &CodecError{Op: "encode", Err: err}
	}
	env.Data = data

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(&env); err != nil {
		return nil, &CodecError{Op: "encode", Err: err}
	}
	return buf.Bytes(), nil
}

// Decode parses a MessagePack envelope. Integers in Data come back as int64
// (uint64 only above math.MaxInt64), floats as float64, arrays as []any and
// maps as map[string]any.
func Decode(b []byte) (Envelope, error) {
	r := bytes.NewReader(b)
	dec := msgpack.NewDecoder(r)
	dec.UseLooseInterfaceDecoding(true)

	code, err := dec.PeekCode()
	if err != nil {
		return Envelope{}, &CodecError{Op: "decode", Err: err}
	}
	// msgpack also fills a struct from nil or from its array form.
	if !msgpcode.IsFixedMap(code) && code != msgpcode.Map16 && code != msgpcode.Map32 {
		return Envelope{}, &CodecError{Op: "decode", Err: fmt.Errorf("%w: code 0x%02x", errNotMap, code)}
	}

	var env Envelope
	if err := dec.Decode(&env); err != nil {
		return Envelope{}, &CodecError{Op: "decode", Err: err}
	}
	if r.Len() > 0 {
		return Envelope{}, &CodecError{Op: "decode", Err: errTrailing}
	}
	if env.Data != nil {
		env.Data = narrow(env.Data).(map[string]any)
	}
	return env, nil
}

// canonicalMap converts m into the supported value subset. path holds the
// map and slice pointers currently being walked.
func canonicalMap(m map[string]any, path []uintptr) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	v, err := canonical(reflect.ValueOf(m), path)
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

func canonical(v reflect.Value, path []uintptr) (any, error) {
	if len(path) > maxDepth {
		return nil, errTooDeep
	}
	if !v.IsValid() {
		return nil, nil
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return canonical(v.Elem(), path)
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("%w: unsigned %d overflows int64", errUnsupported, u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return append([]byte(nil), v.Bytes()...), nil
		}
		if v.Len() > 0 {
			p := v.Pointer()
			if onPath(path, p) {
				return nil, errCycle
			}
			path = append(path, p)
		}
		return canonicalList(v, path)
	case reflect.Array:
		return canonicalList(v, path)
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map key type %s", errUnsupported, v.Type().Key())
		}
		if v.IsNil() {
			return nil, nil
		}
		p := v.Pointer()
		if onPath(path, p) {
			return nil, errCycle
		}
		path = append(path, p)

		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			item, err := canonical(iter.Value(), path)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", iter.Key().String(), err)
			}
			out[iter.Key().String()] = item
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupported, v.Type())
	}
}

func canonicalList(v reflect.Value, path []uintptr) ([]any, error) {
	out := make([]any, v.Len())
	for i := range out {
		item, err := canonical(v.Index(i), path)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = item
	}
	return out, nil
}

func onPath(path []uintptr, p uintptr) bool {
	for _, q := range path {
		if q == p {
			return true
		}
	}
	return false
}

// narrow rewrites loosely decoded unsigned integers into int64 when they
// fit.
func narrow(v any) any {
	switch t := v.(type) {
	case uint64:
		if t <= math.MaxInt64 {
			return int64(t)
		}
		return t
	case map[string]any:
		for k, item := range t {
			t[k] = narrow(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = narrow(item)
		}
		return t
	default:
		return v
	}
}
