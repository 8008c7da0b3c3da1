package message

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawMessage wraps buffers shorter than the identity header so single-byte
// bit patterns can be exercised directly.
func rawMessage(data []byte, schema *Schema) *Message {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Message{data: buf, schema: schema}
}

func TestField_SingleByteScenario(t *testing.T) {
	schema := MustSchema("flag", 0, map[string]Field{
		"flag": {Offset: 2, Width: 3},
	})
	m := rawMessage([]byte{0b10110100}, schema)

	got, err := m.Field("flag")
	require.NoError(t, err)
	assert.Equal(t, uint64(0b110), got, "bits 2..4 of 1011_0100, MSB first")

	require.NoError(t, m.SetField("flag", 0b011))
	assert.Equal(t, []byte{0b10011100}, m.Data())

	got, err = m.Field("flag")
	require.NoError(t, err)
	assert.Equal(t, uint64(0b011), got)
}

func TestField_StraddlesByteBoundary(t *testing.T) {
	schema := MustSchema("straddle", 0, map[string]Field{
		"nibble": {Offset: 6, Width: 4},
	})
	m := rawMessage([]byte{0xFF, 0x00}, schema)

	got, err := m.Field("nibble")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), got)
}

func TestBits_KnownValues(t *testing.T) {
	data := []byte{0xa7, 0x12, 0x34, 0x56, 0x5b, 0xde, 0xad, 0xbe, 0xef}
	m := rawMessage(data, nil)

	tests := []struct {
		name   string
		offset int
		width  int
		want   uint64
	}{
		{"first byte", 0, 8, 0xa7},
		{"single msb", 0, 1, 1},
		{"single lsb of byte 0", 7, 1, 1},
		{"address", 8, 24, 0x123456},
		{"nibble across bytes", 4, 8, 0x71},
		{"odd width", 9, 5, 0b00100},
		{"full 64 bits", 8, 64, 0x1234565bdeadbeef},
		{"tail", 40, 32, 0xdeadbeef},
		{"last bit", 71, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Bits(tt.offset, tt.width)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, "Bits(%d, %d)", tt.offset, tt.width)
		})
	}
}

func TestBits_AgreesWithBitAt(t *testing.T) {
	data := []byte{0x5a, 0xc3, 0x0f, 0xf0, 0x99, 0x66}
	m := rawMessage(data, nil)

	for offset := 0; offset < m.BitLen(); offset++ {
		for width := 1; width <= 40 && offset+width <= m.BitLen(); width++ {
			var want uint64
			for i := offset; i < offset+width; i++ {
				bit, err := m.BitAt(i)
				require.NoError(t, err)
				want = want<<1 | uint64(bit)
			}
			got, err := m.Bits(offset, width)
			require.NoError(t, err)
			if got != want {
				t.Fatalf("Bits(%d, %d) = %#x, want %#x", offset, width, got, want)
			}
		}
	}
}

func TestBitAt(t *testing.T) {
	m := rawMessage([]byte{0b10000001, 0b01000000}, nil)

	want := []uint8{1, 0, 0, 0, 0, 0, 0, 1, 0, 1, 0, 0, 0, 0, 0, 0}
	for i, w := range want {
		got, err := m.BitAt(i)
		require.NoError(t, err)
		assert.Equal(t, w, got, "bit %d", i)
	}

	for _, i := range []int{-1, 16, 17, 1 << 20} {
		_, err := m.BitAt(i)
		assert.ErrorIs(t, err, ErrOutOfRange, "index %d", i)
	}
}

func TestSetField_Errors(t *testing.T) {
	schema := MustSchema("errs", 8, map[string]Field{
		"ok":       {Offset: 0, Width: 4},
		"tooFar":   {Offset: 4, Width: 5},
		"wide":     {Offset: 0, Width: 8},
		"boundary": {Offset: 7, Width: 1},
	})

	tests := []struct {
		name    string
		key     string
		value   uint64
		wantErr error
	}{
		{"unknown key", "missing", 1, ErrUnknownField},
		{"past end", "tooFar", 1, ErrOutOfRange},
		{"value overflow", "ok", 16, ErrValueTooLarge},
		{"value overflow wide", "wide", 256, ErrValueTooLarge},
		{"single bit overflow", "boundary", 2, ErrValueTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := rawMessage([]byte{0xa5, 0x5a}, schema)
			before := m.Data()

			err := m.SetField(tt.key, tt.value)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, "set", fe.Op)
			assert.Equal(t, tt.key, fe.Field)

			assert.Equal(t, before, m.Data(), "buffer must be unchanged after failed set")
		})
	}
}

func TestField_Errors(t *testing.T) {
	schema := MustSchema("errs", 0, map[string]Field{
		"inside":  {Offset: 0, Width: 16},
		"outside": {Offset: 9, Width: 8},
	})
	m := rawMessage([]byte{0x01, 0x02}, schema)

	_, err := m.Field("nope")
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = m.Field("outside")
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = m.Field("inside")
	assert.NoError(t, err)

	noSchema := rawMessage([]byte{0x01}, nil)
	_, err = noSchema.Field("inside")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestBits_RangeErrors(t *testing.T) {
	m := rawMessage([]byte{0xff, 0xff}, nil)

	_, err := m.Bits(-1, 4)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = m.Bits(12, 5)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = m.Bits(0, 0)
	assert.ErrorIs(t, err, ErrInvalidField)
	_, err = m.Bits(0, 65)
	assert.ErrorIs(t, err, ErrInvalidField)
	_, err = m.Bits(math.MaxInt-3, 8)
	assert.ErrorIs(t, err, ErrOutOfRange, "offset+width overflows int")
	_, err = m.BitAt(math.MaxInt)
	assert.ErrorIs(t, err, ErrOutOfRange)

	before := m.Data()
	assert.ErrorIs(t, m.SetBits(10, 8, 0), ErrOutOfRange)
	assert.ErrorIs(t, m.SetBits(0, 3, 8), ErrValueTooLarge)
	assert.ErrorIs(t, m.SetBits(math.MaxInt-3, 8, 1), ErrOutOfRange)
	assert.Equal(t, before, m.Data())
}

func TestSetBits_PreservesNeighbours(t *testing.T) {
	patterns := []byte{0x00, 0xff, 0xa5, 0x5a}

	for _, fill := range patterns {
		for offset := 0; offset < 24; offset++ {
			for width := 1; offset+width <= 24 && width <= 20; width++ {
				orig := bytes.Repeat([]byte{fill}, 3)
				m := rawMessage(orig, nil)

				value := uint64(0x5a5a5) & (uint64(1)<<uint(width) - 1)
				require.NoError(t, m.SetBits(offset, width, value))

				got, err := m.Bits(offset, width)
				require.NoError(t, err)
				require.Equal(t, value, got)

				ref := rawMessage(orig, nil)
				for i := 0; i < m.BitLen(); i++ {
					if i >= offset && i < offset+width {
						continue
					}
					a, _ := m.BitAt(i)
					b, _ := ref.BitAt(i)
					if a != b {
						t.Fatalf("fill %#02x: SetBits(%d, %d) changed bit %d", fill, offset, width, i)
					}
				}
			}
		}
	}
}

func TestSetField_DoesNotDisturbOtherFields(t *testing.T) {
	schema := MustSchema("packed", 0, map[string]Field{
		"a": {Offset: 0, Width: 3},
		"b": {Offset: 3, Width: 7},
		"c": {Offset: 10, Width: 1},
		"d": {Offset: 11, Width: 13},
	})
	m := rawMessage([]byte{0xde, 0xad, 0xbe}, schema)

	before, err := m.Fields()
	require.NoError(t, err)

	require.NoError(t, m.SetField("b", 0x15))

	after, err := m.Fields()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x15), after["b"])
	for _, key := range []string{"a", "c", "d"} {
		assert.Equal(t, before[key], after[key], "field %s", key)
	}
}

func TestFields_UsesBitsOffset(t *testing.T) {
	schema := MustSchema("offset", 40, map[string]Field{
		"hi": {Offset: 0, Width: 4},
		"lo": {Offset: 4, Width: 4},
	})
	m, err := New([]byte{0xa7, 0x01, 0x02, 0x03, 0x04, 0x9c}, schema)
	require.NoError(t, err)

	fields, err := m.Fields()
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"hi": 0x9, "lo": 0xc}, fields)
}

func TestFits(t *testing.T) {
	assert.True(t, fits(0, 1))
	assert.True(t, fits(1, 1))
	assert.False(t, fits(2, 1))
	assert.True(t, fits(^uint64(0), 64))
	assert.False(t, fits(uint64(1)<<63, 63))
	assert.True(t, fits(uint64(1)<<63-1, 63))
}

func TestField_LargestOffsetIsOutOfRange(t *testing.T) {
	schema := MustSchema("far", MaxBitOffset, map[string]Field{
		"far": {Offset: MaxBitOffset, Width: 64},
	})
	m := rawMessage([]byte{0xa7, 0x12, 0x34, 0x56, 0x5b, 0x04}, schema)

	_, err := m.Field("far")
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, m.SetField("far", 1), ErrOutOfRange)
	_, err = m.Fields()
	assert.ErrorIs(t, err, ErrOutOfRange)
}
