package dataframe

import (
	"strconv"

	"github.com/rholderried/SCI-Master/internal/ascii"
)

// MaxValues bounds the number of values a request or response carries.
const MaxValues = 10

// Value is the wire value union: a 32-bit hex value or a float, depending on which
// ValueCodec the Master was configured with. Only the field matching the
// active codec is meaningful.
type Value struct {
	Hex   uint32
	Float float32
}

// HexValue constructs a Value for hex mode.
func HexValue(v uint32) Value { return Value{Hex: v} }

// FloatValue constructs a Value for decimal mode.
func FloatValue(v float32) Value { return Value{Float: v} }

// ValueCodec renders and parses the wire representation of a numeric
// identifier or value. It is the runtime stand-in for the device's
// compile-time hex/decimal mode selector.
type ValueCodec interface {
	// RenderID writes num (a 16-bit signed identifier) as ASCII into dst,
	// returning the number of bytes written.
	RenderID(dst []byte, num int16) int
	// RenderValue writes v as ASCII into dst, returning the number of
	// bytes written.
	RenderValue(dst []byte, v Value) int
	// ParseID reads an identifier from src. ok is false on malformed
	// input.
	ParseID(src []byte) (num int16, ok bool)
	// ParseValue reads a value from src. ok is false on malformed input.
	ParseValue(src []byte) (v Value, ok bool)
	// ParseCount reads a plain unsigned count (a data length or an error
	// number) from src. ok is false on malformed input.
	ParseCount(src []byte) (n uint32, ok bool)
}

// HexCodec renders identifiers as shrinking hex words and values as
// shrinking hex dwords.
type HexCodec struct{}

func (HexCodec) RenderID(dst []byte, num int16) int {
	return ascii.HexToStrWord(dst, uint16(num), true)
}

func (HexCodec) RenderValue(dst []byte, v Value) int {
	return ascii.HexToStrDword(dst, v.Hex, true)
}

func (HexCodec) ParseID(src []byte) (int16, bool) {
	val, ok := ascii.StrToHex(src)
	if !ok {
		return 0, false
	}
	return int16(uint16(val)), true
}

func (HexCodec) ParseValue(src []byte) (Value, bool) {
	val, ok := ascii.StrToHex(src)
	if !ok {
		return Value{}, false
	}
	return HexValue(val), true
}

func (HexCodec) ParseCount(src []byte) (uint32, bool) {
	return ascii.StrToHex(src)
}

// DecimalCodec renders identifiers and values as rounded signed decimal
// ASCII with a fixed maximum number of afterpoint digits.
type DecimalCodec struct {
	// MaxAfterpoint bounds fractional digits rendered by FtoA. Zero means
	// ascii.DefaultMaxAfterpoint.
	MaxAfterpoint int
}

func (c DecimalCodec) RenderID(dst []byte, num int16) int {
	return ascii.FtoA(dst, float32(num), true, c.MaxAfterpoint)
}

func (c DecimalCodec) RenderValue(dst []byte, v Value) int {
	return ascii.FtoA(dst, v.Float, true, c.MaxAfterpoint)
}

func (DecimalCodec) ParseID(src []byte) (int16, bool) {
	f, err := strconv.ParseFloat(string(src), 32)
	if err != nil {
		return 0, false
	}
	return int16(f), true
}

func (DecimalCodec) ParseValue(src []byte) (Value, bool) {
	f, err := strconv.ParseFloat(string(src), 32)
	if err != nil {
		return Value{}, false
	}
	return FloatValue(float32(f)), true
}

func (DecimalCodec) ParseCount(src []byte) (uint32, bool) {
	f, err := strconv.ParseFloat(string(src), 32)
	if err != nil || f < 0 {
		return 0, false
	}
	return uint32(f), true
}
