package scimaster

import (
	"time"

	"go.uber.org/zap"

	"github.com/rholderried/SCI-Master/dataframe"
	"github.com/rholderried/SCI-Master/datalink"
	"github.com/rholderried/SCI-Master/internal/ascii"
)

// ValueMode selects the wire representation of identifiers and values.
type ValueMode uint8

const (
	Hex ValueMode = iota
	Decimal
)

// TransmitMode selects the datalink's transmit strategy.
type TransmitMode uint8

const (
	Blocking TransmitMode = iota
	NonBlocking
)

// Options configures a Master. See the With* functions.
type Options struct {
	RxPacketLength int
	TxPacketLength int
	ValueMode      ValueMode
	TransmitMode   TransmitMode
	FTOAAfterpoint int
	Logger         *zap.Logger

	// RetryDelay controls what Step does after each transmit step that
	// leaves the frame unfinished (including when the host's tx callback
	// reports it cannot accept bytes right now), in either transmit mode:
	//   - negative: nonblock, leave the next step to the next Step
	//   - zero: yield (runtime.Gosched) and continue inline
	//   - positive: sleep for the duration and continue inline
	RetryDelay time.Duration
}

var defaultOptions = Options{
	RxPacketLength: 128,
	TxPacketLength: 128,
	ValueMode:      Hex,
	TransmitMode:   Blocking,
	FTOAAfterpoint: ascii.DefaultMaxAfterpoint,
	RetryDelay:     -1,
}

// Option configures a Master at construction time.
type Option func(*Options)

// WithRxPacketLength sets the RX ring buffer capacity (RX_PACKET_LENGTH).
func WithRxPacketLength(n int) Option {
	return func(o *Options) { o.RxPacketLength = n }
}

// WithTxPacketLength sets the TX ring buffer capacity (TX_PACKET_LENGTH).
func WithTxPacketLength(n int) Option {
	return func(o *Options) { o.TxPacketLength = n }
}

// WithValueMode selects hex or decimal rendering for identifiers and
// values.
func WithValueMode(m ValueMode) Option {
	return func(o *Options) { o.ValueMode = m }
}

// WithTransmitMode selects byte-by-byte blocking or buffered non-blocking
// transmission.
func WithTransmitMode(m TransmitMode) Option {
	return func(o *Options) { o.TransmitMode = m }
}

// WithFTOAAfterpoint bounds the fractional digits rendered in decimal
// mode.
func WithFTOAAfterpoint(n int) Option {
	return func(o *Options) { o.FTOAAfterpoint = n }
}

// WithLogger injects a structured logger. The default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *Options) { o.Logger = log }
}

// WithRetryDelay sets the wait policy applied between transmit steps of an
// unfinished frame; see Options.RetryDelay.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Options) { o.RetryDelay = d }
}

func (o *Options) valueCodec() dataframe.ValueCodec {
	if o.ValueMode == Decimal {
		return dataframe.DecimalCodec{MaxAfterpoint: o.FTOAAfterpoint}
	}
	return dataframe.HexCodec{}
}

func (o *Options) transmitter(cb Callbacks) datalink.Transmitter {
	if o.TransmitMode == NonBlocking {
		return datalink.NewNonBlockingTransmitter(cb.TxNonBlocking, cb.TxBusy)
	}
	return datalink.NewBlockingTransmitter(cb.TxBlocking)
}
