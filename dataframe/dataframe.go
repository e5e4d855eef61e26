// Package dataframe implements the ASCII request/response grammar carried
// inside each datalink frame: rendering requests for the wire, and
// parsing the device's transfer-mode and stream-mode replies.
package dataframe

import "go.uber.org/zap"

// Kind identifies the request/response type, carried on the wire as a
// one-character sigil.
type Kind uint8

const (
	KindNone Kind = iota
	KindGetVar
	KindSetVar
	KindCommand
	KindUpstream
	KindDownstream
)

// sigils are indexed by Kind; index 0 ('#') is reserved and never emitted
// by KindNone requests, which the builder never renders.
var sigils = [...]byte{'#', '?', '!', ':', '>', '<'}

func (k Kind) sigil() (byte, bool) {
	if k == KindNone || int(k) >= len(sigils) {
		return 0, false
	}
	return sigils[k], true
}

func kindForSigil(b byte) (Kind, bool) {
	for i, s := range sigils {
		if s == b {
			return Kind(i), true
		}
	}
	return KindNone, false
}

func (k Kind) String() string {
	switch k {
	case KindGetVar:
		return "get_var"
	case KindSetVar:
		return "set_var"
	case KindCommand:
		return "command"
	case KindUpstream:
		return "upstream"
	case KindDownstream:
		return "downstream"
	default:
		return "none"
	}
}

// Ack is the response's acknowledgement token.
type Ack uint8

const (
	AckSuccess Ack = iota
	AckData
	AckUpstream
	AckError
	AckUnknown
)

var ackTokens = [...]string{"ACK", "DAT", "UPS", "ERR", "NAK"}

func (a Ack) String() string {
	if int(a) < len(ackTokens) {
		return ackTokens[a]
	}
	return "???"
}

func ackForToken(tok string) (Ack, bool) {
	for i, t := range ackTokens {
		if t == tok {
			return Ack(i), true
		}
	}
	return AckUnknown, false
}

// Request is one outbound message: an identifier, a kind, and up to
// MaxValues values.
type Request struct {
	Kind   Kind
	Num    int16
	Values []Value
}

// Response is one parsed inbound message (transfer mode).
type Response struct {
	Kind       Kind
	Num        int16
	Ack        Ack
	Values     []Value
	ValueCount uint8
	ErrNum     uint16
	DataLength uint32
	Raw        []byte
}

// Codec bundles a ValueCodec with its buffer-capacity limits and logs
// parse/build failures.
type Codec struct {
	Values ValueCodec
	TxCap  int
	log    *zap.Logger
}

// NewCodec builds a Codec. txCap bounds how large a rendered request may
// be (TX_PACKET_LENGTH in the wire spec). log may be nil.
func NewCodec(values ValueCodec, txCap int, log *zap.Logger) *Codec {
	if log == nil {
		log = zap.NewNop()
	}
	return &Codec{Values: values, TxCap: txCap, log: log}
}
