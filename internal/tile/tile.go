// Package tile renders raw device memory as a printable tile in one of the
// device's numeric data formats.
package tile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnsupportedFormat is returned for formats the renderer cannot decode,
// including the block-float formats.
var ErrUnsupportedFormat = errors.New("tile: unsupported data format")

// Format is the device data format code carried in pci_read_tile requests.
type Format uint8

const (
	Float32   Format = 0
	Float16   Format = 1
	Float16B  Format = 5
	Int32     Format = 8
	UInt16    Format = 9
	Int8      Format = 14
	UInt32    Format = 24
	UInt8     Format = 30
	RawUInt8  Format = 0xf0
	RawUInt16 Format = 0xf1
	RawUInt32 Format = 0xf2
)

// RowWidth is the number of elements printed per line, one tile row.
const RowWidth = 32

var formatNames = map[Format]string{
	Float32:   "Float32",
	Float16:   "Float16",
	Float16B:  "Float16_b",
	Int32:     "Int32",
	UInt16:    "UInt16",
	Int8:      "Int8",
	UInt32:    "UInt32",
	UInt8:     "UInt8",
	RawUInt8:  "RawUInt8",
	RawUInt16: "RawUInt16",
	RawUInt32: "RawUInt32",
}

func (f Format) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// ParseFormat looks a format up by name (case-insensitive).
func ParseFormat(name string) (Format, error) {
	for f, n := range formatNames {
		if strings.EqualFold(n, name) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// ElementSize returns the byte width of one element of f.
func (f Format) ElementSize() (int, bool) {
	switch f {
	case Int8, UInt8, RawUInt8:
		return 1, true
	case Float16, Float16B, UInt16, RawUInt16:
		return 2, true
	case Float32, Int32, UInt32, RawUInt32:
		return 4, true
	}
	return 0, false
}

// Render decodes data as a sequence of f elements and prints them RowWidth
// per line.
func Render(data []byte, f Format) (string, error) {
	size, ok := f.ElementSize()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	if len(data)%size != 0 {
		return "", fmt.Errorf("tile: %d bytes is not a whole number of %s elements", len(data), f)
	}

	var b strings.Builder
	count := len(data) / size
	for i := 0; i < count; i++ {
		if i > 0 {
			if i%RowWidth == 0 {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(element(data[i*size:(i+1)*size], f))
	}
	return b.String(), nil
}

func element(p []byte, f Format) string {
	switch f {
	case Float32:
		return fmt.Sprintf("%.4f", math.Float32frombits(binary.LittleEndian.Uint32(p)))
	case Float16:
		return fmt.Sprintf("%.4f", float16ToFloat32(binary.LittleEndian.Uint16(p)))
	case Float16B:
		return fmt.Sprintf("%.4f", math.Float32frombits(uint32(binary.LittleEndian.Uint16(p))<<16))
	case Int32:
		return fmt.Sprintf("%d", int32(binary.LittleEndian.Uint32(p)))
	case UInt32:
		return fmt.Sprintf("%d", binary.LittleEndian.Uint32(p))
	case UInt16:
		return fmt.Sprintf("%d", binary.LittleEndian.Uint16(p))
	case Int8:
		return fmt.Sprintf("%d", int8(p[0]))
	case UInt8:
		return fmt.Sprintf("%d", p[0])
	case RawUInt8:
		return fmt.Sprintf("0x%02x", p[0])
	case RawUInt16:
		return fmt.Sprintf("0x%04x", binary.LittleEndian.Uint16(p))
	case RawUInt32:
		return fmt.Sprintf("0x%08x", binary.LittleEndian.Uint32(p))
	}
	return "?"
}

// float16ToFloat32 widens an IEEE 754 half-precision value.
func float16ToFloat32(value uint16) float32 {
	sign := uint32(value>>15) & 0x1
	exponent := uint32(value>>10) & 0x1F
	mantissa := uint32(value & 0x3FF)

	var bits uint32
	switch {
	case exponent == 0 && mantissa == 0:
		bits = sign << 31
	case exponent == 0:
		// Subnormal: normalize the mantissa.
		e := int32(127 - 15 + 1)
		for mantissa&0x400 == 0 {
			mantissa <<= 1
			e--
		}
		mantissa &= 0x3FF
		bits = (sign << 31) | (uint32(e) << 23) | (mantissa << 13)
	case exponent == 0x1F:
		bits = (sign << 31) | 0x7F800000 | (mantissa << 13)
	default:
		bits = (sign << 31) | ((exponent + 127 - 15) << 23) | (mantissa << 13)
	}
	return math.Float32frombits(bits)
}
