package dataframe

import (
	"bytes"

	"go.uber.org/zap"
)

func findSigil(buf []byte) (idx int, sigil byte, ok bool) {
	for i, b := range buf {
		// index 0 ('#') is reserved and not part of the response grammar.
		for _, s := range sigils[1:] {
			if b == s {
				return i, b, true
			}
		}
	}
	return 0, 0, false
}

// Parse decodes one transfer-mode response frame (the payload strictly
// between STX and ETX, already de-framed by the datalink layer).
func (c *Codec) Parse(frame []byte) (Response, error) {
	i, sigil, ok := findSigil(frame)
	if !ok {
		c.log.Debug("dataframe: no sigil found in response frame")
		return Response{}, ErrCommandIdentifierNotFound
	}

	kind, _ := kindForSigil(sigil)

	num, ok := c.Values.ParseID(frame[:i])
	if !ok {
		c.log.Debug("dataframe: response id conversion failed", zap.ByteString("field", frame[:i]))
		return Response{}, ErrNumberConversionFailed
	}

	resp := Response{Kind: kind, Num: num, Raw: frame}

	rest := frame[i+1:]

	ack, consumed := readAck(rest)
	resp.Ack = ack

	var body []byte
	if consumed > 0 {
		rest = rest[consumed:]
		ctrl := rest
		if j := bytes.IndexByte(rest, ';'); j >= 0 {
			ctrl = rest[:j]
			body = rest[j+1:]
		} else {
			body = nil
		}

		if len(ctrl) > 0 {
			switch {
			case ack == AckData || ack == AckUpstream:
				n, ok := c.Values.ParseCount(ctrl)
				if !ok {
					c.log.Debug("dataframe: ctrl field (data length) conversion failed")
					return Response{}, ErrNumberConversionFailed
				}
				resp.DataLength = n
			case ack == AckError:
				n, ok := c.Values.ParseCount(ctrl)
				if !ok {
					c.log.Debug("dataframe: ctrl field (err num) conversion failed")
					return Response{}, ErrNumberConversionFailed
				}
				resp.ErrNum = uint16(n)
			case kind == KindGetVar:
				v, ok := c.Values.ParseValue(ctrl)
				if !ok {
					c.log.Debug("dataframe: ctrl field (get_var value) conversion failed")
					return Response{}, ErrNumberConversionFailed
				}
				resp.Values = append(resp.Values, v)
				resp.ValueCount = 1
			}
		}
	} else {
		// Consecutive-data frame: everything after the sigil is the
		// value list directly.
		body = rest
	}

	if len(body) > 0 {
		if err := c.parseValueList(&resp, body); err != nil {
			return Response{}, err
		}
	}

	return resp, nil
}

func (c *Codec) parseValueList(resp *Response, body []byte) error {
	for i, field := range bytes.Split(body, []byte{','}) {
		if i >= MaxValues {
			break
		}
		if len(field) == 0 {
			continue
		}
		v, ok := c.Values.ParseValue(field)
		if !ok {
			c.log.Debug("dataframe: value field conversion failed", zap.ByteString("field", field))
			return ErrParameterConversionFailed
		}
		resp.Values = append(resp.Values, v)
		resp.ValueCount++
	}
	return nil
}

func readAck(rest []byte) (Ack, int) {
	if len(rest) < 4 || rest[3] != ';' {
		return AckData, 0
	}
	ack, ok := ackForToken(string(rest[:3]))
	if !ok {
		return AckData, 0
	}
	return ack, 4
}

// ParseStream treats frame as opaque stream-mode payload (already
// de-framed by the datalink layer's stream receive state machine).
func ParseStream(frame []byte) Response {
	return Response{
		Kind:       KindUpstream,
		Ack:        AckUpstream,
		ValueCount: uint8(len(frame)),
		Raw:        frame,
	}
}
