package dataframe

import "go.uber.org/zap"

// Build renders req onto the start of dst, returning the number of bytes
// written. Values beyond the MaxValues'th are ignored. If the rendered
// form would not fit within c.TxCap bytes, it returns
// ErrMessageExceedsTxBufferSize and 0; the caller must not commit
// anything to the TX buffer in that case.
func (c *Codec) Build(dst []byte, req Request) (int, error) {
	sigil, ok := req.Kind.sigil()
	if !ok {
		c.log.Debug("dataframe: request kind has no sigil", zap.Uint8("kind", uint8(req.Kind)))
		return 0, ErrUnknownDatatype
	}

	n := c.Values.RenderID(dst, req.Num)
	dst[n] = sigil
	n++

	values := req.Values
	if len(values) > MaxValues {
		values = values[:MaxValues]
	}

	for i, v := range values {
		var tmp [16]byte
		vn := c.Values.RenderValue(tmp[:], v)

		need := n + vn
		if i < len(values)-1 {
			need++ // room for the separating comma
		}
		if need > c.TxCap {
			// The trailing comma left after the previous value (if any)
			// is backed out by simply not committing anything: the
			// caller must treat a non-nil error as an empty TX buffer.
			c.log.Debug("dataframe: request exceeds tx buffer capacity",
				zap.Int("cap", c.TxCap), zap.Int("attempted", n+vn))
			return 0, ErrMessageExceedsTxBufferSize
		}
		n += copy(dst[n:], tmp[:vn])

		if i < len(values)-1 {
			dst[n] = ','
			n++
		}
	}

	return n, nil
}
