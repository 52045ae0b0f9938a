// Package quantize provides lossy integer quantisation of embedding
// vectors to cut storage size (~75% for int8, ~50% for int16).
package quantize

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/corpus-ai/corpus/internal/core/domain"
)

// Method selects a quantisation scheme.
type Method string

const (
	// MethodNone stores vectors uncompressed.
	MethodNone Method = "none"

	// MethodInt8 maps the float range linearly onto [0,255].
	MethodInt8 Method = "int8"

	// MethodInt16 maps the float range linearly onto [0,65535].
	MethodInt16 Method = "int16"
)

// ParseMethod validates a configured method string.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodNone, MethodInt8, MethodInt16, "":
		if s == "" {
			return MethodNone, nil
		}
		return Method(s), nil
	default:
		return "", fmt.Errorf("%w: unknown compression method %q", domain.ErrInvalidInput, s)
	}
}

// quantRange returns the integer range for a method.
func (m Method) quantRange() float32 {
	if m == MethodInt16 {
		return 65535
	}
	return 255
}

// Compressed is a quantised vector plus the metadata needed to
// reconstruct it.
type Compressed struct {
	// Data is the packed little-endian integer payload. For MethodNone
	// it is the raw float32 encoding.
	Data []byte

	// Method is how Data was produced.
	Method Method

	// Min and Max bound the original float range.
	Min float32
	Max float32

	// Dimensions is the original vector length.
	Dimensions int
}

// MaxError returns the quantisation error bound per element:
// (max-min)/quantRange. Zero for MethodNone.
func (c *Compressed) MaxError() float32 {
	if c.Method == MethodNone {
		return 0
	}
	return (c.Max - c.Min) / c.Method.quantRange()
}

// Compress quantises a vector. The round trip through Decompress is
// lossy: each element is reconstructed within MaxError of the original.
func Compress(vector []float32, method Method) (*Compressed, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty vector", domain.ErrInvalidInput)
	}

	if method == MethodNone {
		return &Compressed{
			Data:       EncodeFloats(vector),
			Method:     MethodNone,
			Dimensions: len(vector),
		}, nil
	}

	min, max := vector[0], vector[0]
	for _, v := range vector[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	c := &Compressed{
		Method:     method,
		Min:        min,
		Max:        max,
		Dimensions: len(vector),
	}

	qr := method.quantRange()
	scale := float32(0)
	if max > min {
		scale = qr / (max - min)
	}

	if method == MethodInt8 {
		c.Data = make([]byte, len(vector))
		for i, v := range vector {
			c.Data[i] = byte(roundUint((v - min) * scale))
		}
		return c, nil
	}

	c.Data = make([]byte, len(vector)*2)
	for i, v := range vector {
		binary.LittleEndian.PutUint16(c.Data[i*2:], uint16(roundUint((v-min)*scale)))
	}
	return c, nil
}

// Decompress reconstructs the float vector from quantised form.
func Decompress(c *Compressed) ([]float32, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil compressed vector", domain.ErrInvalidInput)
	}

	switch c.Method {
	case MethodNone:
		return DecodeFloats(c.Data), nil

	case MethodInt8:
		if len(c.Data) != c.Dimensions {
			return nil, fmt.Errorf("%w: int8 payload is %d bytes for %d dimensions",
				domain.ErrInvalidInput, len(c.Data), c.Dimensions)
		}
		out := make([]float32, c.Dimensions)
		span := c.Max - c.Min
		for i, b := range c.Data {
			out[i] = float32(b)/255*span + c.Min
		}
		return out, nil

	case MethodInt16:
		if len(c.Data) != c.Dimensions*2 {
			return nil, fmt.Errorf("%w: int16 payload is %d bytes for %d dimensions",
				domain.ErrInvalidInput, len(c.Data), c.Dimensions)
		}
		out := make([]float32, c.Dimensions)
		span := c.Max - c.Min
		for i := range out {
			q := binary.LittleEndian.Uint16(c.Data[i*2:])
			out[i] = float32(q)/65535*span + c.Min
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: unknown compression method %q", domain.ErrInvalidInput, c.Method)
	}
}

// Ratio returns compressed size over original float32 size, including
// the fixed metadata overhead.
func (c *Compressed) Ratio() float64 {
	original := c.Dimensions * 4
	if original == 0 {
		return 1
	}
	return float64(len(c.Data)+16) / float64(original)
}

// roundUint rounds a non-negative float to the nearest integer.
func roundUint(v float32) uint32 {
	if v <= 0 {
		return 0
	}
	return uint32(v + 0.5)
}

// EncodeFloats packs a float32 slice little-endian for storage.
func EncodeFloats(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeFloats unpacks a little-endian float32 slice.
func DecodeFloats(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
