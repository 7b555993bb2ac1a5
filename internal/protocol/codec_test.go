package protocol

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
	}{
		{
			name: "request envelope",
			env: Envelope{
				Service:   "login",
				Data:      map[string]any{"user": "alice"},
				Timestamp: "2025-11-20T10:00:00.123Z",
				Clock:     7,
			},
		},
		{
			name: "reply with nested payload",
			env: Envelope{
				Data: map[string]any{
					"status":   "sucesso",
					"users":    []any{"alice", "bob"},
					"count":    int64(-3),
					"ratio":    0.25,
					"online":   true,
					"missing":  nil,
					"raw":      []byte{0x01, 0x02},
					"detail":   map[string]any{"code": int64(404), "tags": []any{"a", int64(1), false}},
					"big":      int64(math.MaxInt64),
					"negative": int64(math.MinInt64),
				},
				Clock: 42,
			},
		},
		{
			name: "event without data",
			env:  Envelope{Service: "publish", Clock: 1},
		},
		{
			name: "empty data map",
			env:  Envelope{Service: "users", Data: map[string]any{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Encode(tt.env)
			require.NoError(t, err)

			got, err := Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.env, got)
		})
	}
}

func TestEncode_WidensNumbers(t *testing.T) {
	raw, err := Encode(Envelope{Data: map[string]any{
		"int":     42,
		"uint8":   uint8(7),
		"float32": float32(1.5),
		"names":   []string{"x", "y"},
		"nested":  map[string]int{"n": 1},
	}})
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Data["int"])
	assert.Equal(t, int64(7), got.Data["uint8"])
	assert.Equal(t, float64(1.5), got.Data["float32"])
	assert.Equal(t, []any{"x", "y"}, got.Data["names"])
	assert.Equal(t, map[string]any{"n": int64(1)}, got.Data["nested"])
}

func TestEncode_IsCanonical(t *testing.T) {
	a := map[string]any{}
	b := map[string]any{}
	keys := []string{"k1", "k2", "k3", "k4", "k5", "k6", "k7", "k8"}
	for i, k := range keys {
		a[k] = int64(i)
	}
	for i := len(keys) - 1; i >= 0; i-- {
		b[keys[i]] = int64(i)
	}

	rawA, err := Encode(Envelope{Data: a})
	require.NoError(t, err)
	rawB, err := Encode(Envelope{Data: b})
	require.NoError(t, err)
	assert.Equal(t, rawA, rawB)
}

func TestEncode_Errors(t *testing.T) {
	cyclicMap := map[string]any{}
	cyclicMap["self"] = cyclicMap

	cyclicList := make([]any, 1)
	cyclicList[0] = cyclicList

	tests := []struct {
		name string
		data map[string]any
	}{
		{name: "cyclic map", data: cyclicMap},
		{name: "cyclic slice", data: map[string]any{"list": cyclicList}},
		{name: "func value", data: map[string]any{"fn": func() {}}},
		{name: "channel value", data: map[string]any{"ch": make(chan int)}},
		{name: "non-string keys", data: map[string]any{"m": map[int]string{1: "a"}}},
		{name: "unsigned overflow", data: map[string]any{"u": uint64(math.MaxUint64)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(Envelope{Service: "publish", Data: tt.data})
			require.Error(t, err)

			var codecErr *CodecError
			require.True(t, errors.As(err, &codecErr))
			assert.Equal(t, "encode", codecErr.Op)
		})
	}
}

func TestEncode_SharedValueIsNotACycle(t *testing.T) {
	shared := map[string]any{"v": int64(1)}
	_, err := Encode(Envelope{Data: map[string]any{"a": shared, "b": shared}})
	assert.NoError(t, err)
}

func TestDecode_Errors(t *testing.T) {
	valid, err := Encode(Envelope{Service: "publish", Clock: 3})
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "empty input", raw: nil},
		{name: "reserved code", raw: []byte{0xc1}},
		{name: "truncated map", raw: []byte{0x81}},
		{name: "trailing bytes", raw: append(append([]byte{}, valid...), 0x00)},
		{name: "nil", raw: []byte{0xc0}},
		{name: "empty array", raw: []byte{0x90}},
		{name: "array form", raw: []byte{0x94, 0xa1, 0x78, 0xc0, 0xa0, 0x05}},
		{name: "string", raw: []byte{0xa1, 0x78}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw)
			require.Error(t, err)

			var codecErr *CodecError
			require.True(t, errors.As(err, &codecErr))
			assert.Equal(t, "decode", codecErr.Op)
		})
	}
}

func TestDecode_ForeignEncoderUnsignedInts(t *testing.T) {
	// Other encoders pick the smallest integer code, which loose decoding
	// reports as uint64.
	raw, err := msgpack.Marshal(map[string]any{
		"service": "publish",
		"data":    map[string]any{"n": uint16(300)},
		"clock":   uint8(9),
	})
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(300), got.Data["n"])
	assert.Equal(t, int64(9), got.Clock)
	assert.Equal(t, "publish", got.Service)
}

func TestDecode_MissingFields(t *testing.T) {
	raw, err := msgpack.Marshal(map[string]any{"clock": 5})
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Clock)
	assert.Empty(t, got.Status())
	assert.False(t, got.Succeeded())
}
