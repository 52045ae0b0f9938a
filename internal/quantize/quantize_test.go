package quantize

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		input   string
		want    Method
		wantErr bool
	}{
		{"", MethodNone, false},
		{"none", MethodNone, false},
		{"int8", MethodInt8, false},
		{"int16", MethodInt16, false},
		{"gzip", "", true},
		{"INT8", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMethod(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestCompress_EmptyVector(t *testing.T) {
	_, err := Compress(nil, MethodInt8)
	assert.Error(t, err)
}

func TestCompress_None_RoundTripExact(t *testing.T) {
	vec := []float32{0.25, -1.5, 3.125, 0}

	c, err := Compress(vec, MethodNone)
	require.NoError(t, err)
	assert.Equal(t, MethodNone, c.Method)
	assert.Equal(t, float32(0), c.MaxError())

	got, err := Decompress(c)
	require.NoError(t, err)
	assert.Equal(t, vec, got)
}

func TestCompress_Int8_RoundTripWithinBound(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vec := make([]float32, 768)
	for i := range vec {
		vec[i] = rng.Float32()*2 - 1
	}

	c, err := Compress(vec, MethodInt8)
	require.NoError(t, err)
	assert.Len(t, c.Data, 768)
	assert.Equal(t, 768, c.Dimensions)

	got, err := Decompress(c)
	require.NoError(t, err)
	require.Len(t, got, 768)

	bound := float64(c.MaxError())
	for i := range vec {
		assert.InDelta(t, vec[i], got[i], bound, "element %d", i)
	}
}

func TestCompress_Int16_RoundTripWithinBound(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vec := make([]float32, 1536)
	for i := range vec {
		vec[i] = rng.Float32()*10 - 5
	}

	c, err := Compress(vec, MethodInt16)
	require.NoError(t, err)
	assert.Len(t, c.Data, 1536*2)

	got, err := Decompress(c)
	require.NoError(t, err)

	bound := float64(c.MaxError())
	for i := range vec {
		assert.InDelta(t, vec[i], got[i], bound, "element %d", i)
	}

	// int16 is strictly tighter than int8 on the same range.
	c8, err := Compress(vec, MethodInt8)
	require.NoError(t, err)
	assert.Less(t, c.MaxError(), c8.MaxError())
}

func TestCompress_ConstantVector(t *testing.T) {
	vec := []float32{0.5, 0.5, 0.5, 0.5}

	c, err := Compress(vec, MethodInt8)
	require.NoError(t, err)
	assert.Equal(t, c.Min, c.Max)

	got, err := Decompress(c)
	require.NoError(t, err)
	assert.Equal(t, vec, got)
}

func TestCompress_ExtremesAreExact(t *testing.T) {
	vec := []float32{-2, -1, 0, 1, 3}

	for _, m := range []Method{MethodInt8, MethodInt16} {
		c, err := Compress(vec, m)
		require.NoError(t, err)

		got, err := Decompress(c)
		require.NoError(t, err)
		assert.InDelta(t, float64(-2), float64(got[0]), 1e-5, "min via %s", m)
		assert.InDelta(t, float64(3), float64(got[4]), 1e-4, "max via %s", m)
	}
}

func TestDecompress_PayloadSizeMismatch(t *testing.T) {
	c := &Compressed{
		Data:       []byte{1, 2, 3},
		Method:     MethodInt8,
		Min:        0,
		Max:        1,
		Dimensions: 4,
	}
	_, err := Decompress(c)
	assert.Error(t, err)

	c.Method = MethodInt16
	_, err = Decompress(c)
	assert.Error(t, err)
}

func TestDecompress_Nil(t *testing.T) {
	_, err := Decompress(nil)
	assert.Error(t, err)
}

func TestRatio(t *testing.T) {
	vec := make([]float32, 1024)
	for i := range vec {
		vec[i] = float32(math.Sin(float64(i)))
	}

	c8, err := Compress(vec, MethodInt8)
	require.NoError(t, err)
	c16, err := Compress(vec, MethodInt16)
	require.NoError(t, err)

	assert.InDelta(t, 0.25, c8.Ratio(), 0.01)
	assert.InDelta(t, 0.5, c16.Ratio(), 0.01)
}

func TestEncodeDecodeFloats(t *testing.T) {
	vec := []float32{1.5, -2.25, 0, float32(math.Pi)}
	assert.Equal(t, vec, DecodeFloats(EncodeFloats(vec)))
	assert.Nil(t, EncodeFloats(nil))
	assert.Nil(t, DecodeFloats(nil))
}
