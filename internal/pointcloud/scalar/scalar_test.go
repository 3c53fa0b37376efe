package scalar

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pointbake/internal/pointcloud/schema"
)

func TestDecodeEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	samples := map[schema.TypeID][]float64{
		schema.Int8:    {math.MinInt8, -1, 0, 1, math.MaxInt8},
		schema.Uint8:   {0, 1, 128, math.MaxUint8},
		schema.Int16:   {math.MinInt16, -300, 0, 300, math.MaxInt16},
		schema.Uint16:  {0, 256, 40000, math.MaxUint16},
		schema.Int32:   {math.MinInt32, -70000, 0, 70000, math.MaxInt32},
		schema.Uint32:  {0, 1 << 20, math.MaxUint32},
		schema.Int64:   {-(1 << 52), -5, 0, 5, 1 << 52},
		schema.Uint64:  {0, 1 << 40, 1 << 53},
		schema.Float32: {-1.5, 0, 0.25, 3.1415927, 1e30},
		schema.Float64: {-1e-300, 0, math.Pi, 1e300},
	}

	for _, id := range schema.AllTypes {
		vals, ok := samples[id]
		require.True(t, ok, "no samples for %v", id)

		w, err := id.Width()
		require.NoError(t, err)

		for _, v := range vals {
			buf := make([]byte, int(w)+3)
			require.NoError(t, Encode(buf, id, 3, v))
			got, err := Decode(buf, id, 3)
			require.NoError(t, err)

			if id == schema.Float32 {
				assert.Equal(t, float64(float32(v)), got, "%v %v", id, v)
			} else {
				assert.Equal(t, v, got, "%v %v", id, v)
			}
		}
	}
}

func TestDecodeSignExtension(t *testing.T) {
	buf := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

	tests := []struct {
		id   schema.TypeID
		want float64
	}{
		{schema.Int8, -1},
		{schema.Uint8, 255},
		{schema.Int16, -1},
		{schema.Uint16, 65535},
		{schema.Int32, -1},
		{schema.Uint32, 4294967295},
		{schema.Int64, -1},
	}
	for _, tt := range tests {
		got, err := Decode(buf, tt.id, 0)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.id.String())
	}
}

func TestDecodeLittleEndian(t *testing.T) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[4:], 0x01020304)

	got, err := Decode(buf, schema.Uint32, 4)
	require.NoError(t, err)
	assert.Equal(t, float64(0x01020304), got)
}

func TestDecodeOutOfBounds(t *testing.T) {
	buf := make([]byte, 10)

	tests := []struct {
		id  schema.TypeID
		off int
	}{
		{schema.Float64, 3},
		{schema.Uint32, 7},
		{schema.Uint8, 10},
		{schema.Int16, -1},
	}
	for _, tt := range tests {
		_, err := Decode(buf, tt.id, tt.off)
		var oob *OutOfBoundsError
		if assert.True(t, errors.As(err, &oob), "%v@%d: %v", tt.id, tt.off, err) {
			assert.Equal(t, tt.off, oob.Offset)
			assert.Equal(t, 10, oob.Len)
		}
	}

	// Exactly at the end is fine.
	_, err := Decode(buf, schema.Uint16, 8)
	assert.NoError(t, err)
}

func TestDecodeUnsupportedType(t *testing.T) {
	_, err := Decode(make([]byte, 16), schema.TypeID(99), 0)
	var ute *schema.UnsupportedTypeError
	assert.ErrorAs(t, err, &ute)

	err = Encode(make([]byte, 16), schema.TypeInvalid, 0, 1)
	assert.ErrorAs(t, err, &ute)
}

func TestDecodeColorChannel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		id   schema.TypeID
		v    float64
		want uint8
	}{
		{"normalized float", schema.Float32, 0.5, 128},
		{"byte-range float", schema.Float32, 200.0, 200},
		{"exactly one", schema.Float64, 1.0, 1},
		{"just under one", schema.Float64, 0.999, 255},
		{"zero", schema.Uint8, 0, 0},
		{"uint8 passthrough", schema.Uint8, 77, 77},
		{"uint16 low", schema.Uint16, 255, 255},
		{"uint16 saturates", schema.Uint16, 65535, 255},
		{"negative", schema.Int16, -20, 0},
		{"fraction truncates", schema.Float32, 12.75, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := tt.id.Width()
			buf := make([]byte, w)
			require.NoError(t, Encode(buf, tt.id, 0, tt.v))
			got, err := DecodeColorChannel(buf, tt.id, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColorByteNaN(t *testing.T) {
	assert.Equal(t, uint8(0), ColorByte(math.NaN()))
	assert.Equal(t, uint8(255), ColorByte(math.Inf(1)))
}

func TestEncodeOutOfBounds(t *testing.T) {
	err := Encode(make([]byte, 3), schema.Float32, 0, 1)
	var oob *OutOfBoundsError
	assert.ErrorAs(t, err, &oob)
}
