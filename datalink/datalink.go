// Package datalink implements the byte-oriented framing and de-framing
// layer of the protocol: STX/ETX delimited frame assembly (transfer mode),
// a byte-counted stream variant (stream mode), a pluggable transmit state
// machine, and the side-channel debug trigger mini-parser.
//
// Datalink holds no reference to any particular transport; receive bytes
// are pushed in by the caller one at a time, and transmission is driven
// through the Transmitter strategy selected at construction.
package datalink

import (
	"errors"

	"code.hybscloud.com/iox"
	"go.uber.org/zap"

	"github.com/rholderried/SCI-Master/internal/fifo"
)

const (
	stx = 0x02
	etx = 0x03
)

// ErrWouldBlock is returned by a Transmitter when it cannot accept any
// bytes right now; the caller should poll TransmitStateMachine again on
// the next Step.
var ErrWouldBlock = iox.ErrWouldBlock

// ReceiveState is the frame-assembly receive sub-state.
type ReceiveState uint8

const (
	RxIdle ReceiveState = iota
	RxWaitStx
	RxBusy
	RxPending
	RxError
)

func (s ReceiveState) String() string {
	switch s {
	case RxIdle:
		return "idle"
	case RxWaitStx:
		return "wait_stx"
	case RxBusy:
		return "busy"
	case RxPending:
		return "pending"
	case RxError:
		return "error"
	default:
		return "unknown"
	}
}

// TransmitState is the transmit side-channel state.
type TransmitState uint8

const (
	TxIdle TransmitState = iota
	TxSendStx
	TxSendBuffer
	TxSendEtx
	TxReady
	TxError
)

func (s TransmitState) String() string {
	switch s {
	case TxIdle:
		return "idle"
	case TxSendStx:
		return "send_stx"
	case TxSendBuffer:
		return "send_buffer"
	case TxSendEtx:
		return "send_etx"
	case TxReady:
		return "ready"
	case TxError:
		return "error"
	default:
		return "unknown"
	}
}

// debugState is the side-channel "Dbg<digit>" trigger mini-parser state.
type debugState uint8

const (
	dbgIdle debugState = iota
	dbgS1
	dbgS2
	dbgS3
)

// NumDebugHooks is the size of the debug hook table (one slot per digit).
const NumDebugHooks = 10

// Datalink is the framing/de-framing and transmit state machine. The zero
// value is not ready for use; construct one with New.
type Datalink struct {
	log *zap.Logger

	rState ReceiveState
	tState TransmitState
	dbg    debugState

	debugHooks [NumDebugHooks]func()

	transmitter Transmitter
	txBuf       []byte
	txOff       int

	streamBytesToGo    uint32
	streamMsgByteCount int
}

// New constructs a Datalink that transmits through the given Transmitter
// strategy (byte-by-byte blocking, or buffered non-blocking — see
// NewBlockingTransmitter / NewNonBlockingTransmitter).
func New(transmitter Transmitter, log *zap.Logger) *Datalink {
	if log == nil {
		log = zap.NewNop()
	}
	return &Datalink{transmitter: transmitter, log: log}
}

// ReceiveState reports the current frame-assembly receive sub-state.
func (d *Datalink) ReceiveState() ReceiveState { return d.rState }

// TransmitState reports the current transmit sub-state.
func (d *Datalink) TransmitState() TransmitState { return d.tState }

// SetDebugHook installs fn as the callback for digit i (0-9). A nil fn
// clears the slot.
func (d *Datalink) SetDebugHook(i int, fn func()) {
	if i < 0 || i >= NumDebugHooks {
		return
	}
	d.debugHooks[i] = fn
}

// StartRx arms the receiver to wait for the next STX, moving Idle to
// WaitStx. The caller does this when it expects a reply.
func (d *Datalink) StartRx() { d.rState = RxWaitStx }

// AcknowledgeRx returns the receiver from Pending to Idle once the owner
// has consumed the completed frame.
func (d *Datalink) AcknowledgeRx() { d.rState = RxIdle }

// ReceiveTransfer feeds one byte through the frame-assembly (transfer
// mode) receive state machine, appending payload bytes between STX and
// ETX into rx. StartRx must have been called if a reply is expected;
// outside of that, a stray STX still opens a frame from Idle directly.
func (d *Datalink) ReceiveTransfer(rx *fifo.Buffer, b byte) {
	switch d.rState {
	case RxIdle:
		if b == stx {
			rx.Flush()
			d.rState = RxBusy
		}
	case RxWaitStx:
		if b == stx {
			rx.Flush()
			d.rState = RxBusy
		} else {
			d.rState = RxIdle
		}
	case RxBusy:
		switch b {
		case etx:
			d.rState = RxPending
		case stx:
			d.log.Debug("datalink: stray STX mid-frame, resetting receiver")
			d.rState = RxIdle
		default:
			rx.Put(b)
		}
	case RxPending:
		// No input consumed until AcknowledgeRx.
	}

	if d.rState == RxIdle {
		d.feedDebug(b)
	} else {
		d.dbg = dbgIdle
	}
}

// BeginStream switches the receiver into byte-counted stream mode with the
// given total byte budget and arms it to wait for the next STX.
func (d *Datalink) BeginStream(byteBudget uint32) {
	d.streamBytesToGo = byteBudget
	d.streamMsgByteCount = 0
	d.rState = RxWaitStx
}

// EndStream restores stream-mode bookkeeping to its rest state. The caller
// is responsible for switching back to calling ReceiveTransfer.
func (d *Datalink) EndStream() {
	d.streamBytesToGo = 0
	d.streamMsgByteCount = 0
}

// ReceiveStream feeds one byte through the byte-counted stream receive
// state machine switched in via BeginStream.
func (d *Datalink) ReceiveStream(rx *fifo.Buffer, b byte) {
	switch d.rState {
	case RxWaitStx:
		if b == stx {
			rx.Flush()
			d.streamMsgByteCount = 0
			d.rState = RxBusy
		}
	case RxBusy:
		if d.streamBytesToGo > 0 && d.streamMsgByteCount < rx.Cap() {
			rx.Put(b)
			d.streamBytesToGo--
			d.streamMsgByteCount++
		} else if b == etx {
			d.rState = RxPending
		} else {
			d.log.Debug("datalink: stream frame ended without budget exhaustion")
			d.rState = RxIdle
		}
	case RxPending:
		// No input consumed until AcknowledgeRx.
	}
}

func (d *Datalink) feedDebug(b byte) {
	switch d.dbg {
	case dbgIdle:
		if b == 'D' {
			d.dbg = dbgS1
		}
	case dbgS1:
		if b == 'b' {
			d.dbg = dbgS2
		} else {
			d.dbg = dbgIdle
		}
	case dbgS2:
		if b == 'g' {
			d.dbg = dbgS3
		} else {
			d.dbg = dbgIdle
		}
	case dbgS3:
		if b >= '0' && b <= '9' {
			if hook := d.debugHooks[b-'0']; hook != nil {
				hook()
			}
		}
		d.dbg = dbgIdle
	}
}

// Transmit arms the transmit state machine with the current contents of
// tx. The TX buffer is read once, here, at arming time; the state machine
// does not revisit it. It reports false unless the transmitter is
// currently Idle.
func (d *Datalink) Transmit(tx *fifo.Buffer) bool {
	if d.tState != TxIdle {
		return false
	}
	d.txBuf = tx.Read()
	d.txOff = 0
	d.tState = TxSendStx
	return true
}

// AcknowledgeTx returns the transmitter from Ready to Idle.
func (d *Datalink) AcknowledgeTx() {
	d.tState = TxIdle
	d.txBuf = nil
	d.txOff = 0
}

// TransmitStateMachine advances the transmit state machine by one step:
// STX, then the buffered payload (one byte per call for a blocking
// Transmitter, the whole remaining buffer for a non-blocking one), then
// ETX, ending in Ready. It is a no-op outside SendStx/SendBuffer/SendEtx.
func (d *Datalink) TransmitStateMachine() {
	switch d.tState {
	case TxSendStx:
		d.send([]byte{stx}, TxSendBuffer)
	case TxSendBuffer:
		if d.txOff >= len(d.txBuf) {
			d.tState = TxSendEtx
			return
		}
		n, err := d.transmitter.Send(d.txBuf[d.txOff:])
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				return
			}
			d.log.Debug("datalink: transmit failed", zap.Error(err))
			d.tState = TxError
			return
		}
		d.txOff += n
		if d.txOff >= len(d.txBuf) {
			d.tState = TxSendEtx
		}
	case TxSendEtx:
		d.send([]byte{etx}, TxReady)
	}
}

func (d *Datalink) send(b []byte, next TransmitState) {
	n, err := d.transmitter.Send(b)
	if err != nil {
		if errors.Is(err, ErrWouldBlock) {
			return
		}
		d.log.Debug("datalink: transmit failed", zap.Error(err))
		d.tState = TxError
		return
	}
	if n > 0 {
		d.tState = next
	}
}
