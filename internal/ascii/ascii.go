// Package ascii implements the integer/float <-> ASCII conversions used by
// the dataframe codec: hex-nibble rendering and parsing, and a fixed-afterpoint
// decimal float renderer with trailing-zero trim.
package ascii

// DefaultMaxAfterpoint is the default number of digits rendered after the
// decimal point by FtoA when the caller passes a non-positive or
// out-of-range value.
const DefaultMaxAfterpoint = 5

var pow10 = [...]uint32{1, 10, 100, 1000, 10000, 100000, 1000000, 10000000, 100000000, 1000000000}

const hexDigits = "0123456789ABCDEF"

// FtoA renders val as signed decimal ASCII into dst and returns the number
// of bytes written. maxAfterpoint bounds how many fractional digits are
// considered (clamped to DefaultMaxAfterpoint when <= 0 or too large for
// the internal power-of-ten table); round applies a half-ULP correction
// toward val's sign before truncating. Trailing zero fractional digits are
// trimmed, and the decimal point itself is omitted once nothing survives
// that trim. dst must be large enough to hold the rendered value (a sign
// byte, up to 10 integer digits, a dot, and up to maxAfterpoint digits is
// always sufficient).
func FtoA(dst []byte, val float32, round bool, maxAfterpoint int) int {
	if maxAfterpoint <= 0 || maxAfterpoint >= len(pow10) {
		maxAfterpoint = DefaultMaxAfterpoint
	}

	var signum float32
	switch {
	case val < 0:
		signum = -1
	case val > 0:
		signum = 1
	}

	rval := val
	if round {
		rval += signum * 0.5 / float32(pow10[maxAfterpoint])
	}

	intPart := int32(rval)
	afterPoint := uint32(signum * (rval - float32(intPart)) * float32(pow10[maxAfterpoint]))

	n := 0
	if signum < 0 {
		dst[n] = '-'
		n++
		intPart = -intPart
	}

	// Count integer digits, mirroring the device's own magnitude detection.
	exp := -1
	decimator := uint32(1)
	for tmp := intPart; tmp > 0; tmp /= 10 {
		exp++
		if exp > 0 {
			decimator *= 10
		}
	}

	if exp < 0 {
		dst[n] = '0'
		n++
	} else {
		v := intPart
		for exp >= 0 {
			digit := v / int32(decimator)
			dst[n] = byte(digit) + '0'
			n++
			v -= digit * int32(decimator)
			decimator /= 10
			exp--
		}
	}

	if afterPoint > 0 {
		var tmp [9]byte
		decimator = pow10[maxAfterpoint-1]
		for i := 0; i < maxAfterpoint; i++ {
			digit := afterPoint / decimator
			afterPoint -= digit * decimator
			decimator /= 10
			tmp[i] = byte(digit) + '0'
		}

		last := maxAfterpoint - 1
		for last >= 0 && tmp[last] == '0' {
			last--
		}
		if last >= 0 {
			dst[n] = '.'
			n++
			for i := 0; i <= last; i++ {
				dst[n] = tmp[i]
				n++
			}
		}
	}

	return n
}

// HexToStrByte renders val as big-endian hex ASCII (2 nibbles). shrink
// drops leading zero nibbles, but always leaves at least one digit.
func HexToStrByte(dst []byte, val uint8, shrink bool) int {
	return hexToStr(dst, uint32(val), 2, shrink)
}

// HexToStrWord renders val as big-endian hex ASCII (4 nibbles). shrink
// drops leading zero nibbles, but always leaves at least one digit.
func HexToStrWord(dst []byte, val uint16, shrink bool) int {
	return hexToStr(dst, uint32(val), 4, shrink)
}

// HexToStrDword renders val as big-endian hex ASCII (8 nibbles). shrink
// drops leading zero nibbles, but always leaves at least one digit.
func HexToStrDword(dst []byte, val uint32, shrink bool) int {
	return hexToStr(dst, val, 8, shrink)
}

func hexToStr(dst []byte, val uint32, nibbles int, shrink bool) int {
	var tmp [8]byte
	for i := 0; i < nibbles; i++ {
		shift := uint(nibbles-1-i) * 4
		tmp[i] = hexDigits[(val>>shift)&0xF]
	}
	start := 0
	if shrink {
		for start < nibbles-1 && tmp[start] == '0' {
			start++
		}
	}
	return copy(dst, tmp[start:nibbles])
}

// StrToHex parses up to 8 hex nibbles ('0'-'9', 'A'-'F') from src, stopping
// at the first NUL byte or the end of src. An empty input yields (0, true).
// Any other out-of-range byte within the first 8 nibbles fails the parse.
func StrToHex(src []byte) (val uint32, ok bool) {
	limit := len(src)
	if limit > 8 {
		limit = 8
	}
	for i := 0; i < limit; i++ {
		c := src[i]
		if c == 0 {
			return val, true
		}
		nibble, valid := hexNibble(c)
		if !valid {
			return 0, false
		}
		val = (val << 4) | nibble
	}
	return val, true
}

func hexNibble(c byte) (uint32, bool) {
	switch {
	case c >= '0' && c <= '9':
		return uint32(c - '0'), true
	case c >= 'A' && c <= 'F':
		return uint32(c-'A') + 10, true
	default:
		return 0, false
	}
}

// FillByteBufBigEndian copies src into dst in reverse byte order.
func FillByteBufBigEndian(dst, src []byte) {
	n := len(src)
	for i := 0; i < n; i++ {
		dst[i] = src[n-1-i]
	}
}
