package scimaster

import "github.com/rholderried/SCI-Master/dataframe"

// Request, Response, and Value are re-exported from dataframe so that
// callers driving Master through InitiateRequest never need to import the
// subpackage directly for the common case.
type (
	Request  = dataframe.Request
	Response = dataframe.Response
	Value    = dataframe.Value
	Kind     = dataframe.Kind
	Ack      = dataframe.Ack
)

const (
	KindGetVar     = dataframe.KindGetVar
	KindSetVar     = dataframe.KindSetVar
	KindCommand    = dataframe.KindCommand
	KindUpstream   = dataframe.KindUpstream
	KindDownstream = dataframe.KindDownstream
)

const (
	AckSuccess  = dataframe.AckSuccess
	AckData     = dataframe.AckData
	AckUpstream = dataframe.AckUpstream
	AckError    = dataframe.AckError
	AckUnknown  = dataframe.AckUnknown
)

// HexValue and FloatValue construct a Value for hex and decimal mode
// respectively; see dataframe.HexValue / dataframe.FloatValue.
func HexValue(v uint32) Value    { return dataframe.HexValue(v) }
func FloatValue(v float32) Value { return dataframe.FloatValue(v) }
