// Package scimaster ties the datalink, dataframe, and transfer packages
// together into the protocol-level state machine a host drives directly:
// feed inbound bytes in, call Step on a cadence, issue requests, and get
// results back through Callbacks.
package scimaster

import (
	"errors"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/rholderried/SCI-Master/dataframe"
	"github.com/rholderried/SCI-Master/datalink"
	"github.com/rholderried/SCI-Master/internal/fifo"
	"github.com/rholderried/SCI-Master/transfer"
)

// State is the protocol-level state the host can observe between Step
// calls.
type State uint8

const (
	StateIdle State = iota
	StateSending
	StateReceiving
	StateEvaluating
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateReceiving:
		return "receiving"
	case StateEvaluating:
		return "evaluating"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// receiveMode selects which datalink framing the master is currently
// listening with: transfer mode for ordinary request/response traffic,
// or stream mode while an Upstream transfer is being reassembled.
type receiveMode uint8

const (
	modeTransfer receiveMode = iota
	modeStream
)

// Master is the protocol-level façade: one outstanding request at a time,
// bound to however many frames it takes to satisfy it. It is not safe for
// concurrent use by multiple goroutines; see SafeMaster for that.
type Master struct {
	opts Options
	log  *zap.Logger

	rxBacking []byte
	txBacking []byte
	rx        fifo.Buffer
	tx        fifo.Buffer

	dl    *datalink.Datalink
	codec *dataframe.Codec
	ctrl  *transfer.Controller

	state State
	mode  receiveMode
}

// New builds a Master from the given options. The master is not ready to
// drive a transfer until Init wires the host's callbacks.
func New(opts ...Option) *Master {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}

	m := &Master{opts: o, log: log}
	m.rxBacking = make([]byte, o.RxPacketLength)
	m.txBacking = make([]byte, o.TxPacketLength)
	m.rx.Init(m.rxBacking)
	m.tx.Init(m.txBacking)
	m.codec = dataframe.NewCodec(o.valueCodec(), o.TxPacketLength, log)
	return m
}

// Init wires the host's callbacks, installs the debug hook table, and
// resets the protocol to Idle. It must be called once before the first
// InitiateRequest/Receive/Step.
func (m *Master) Init(callbacks Callbacks) {
	m.dl = datalink.New(m.opts.transmitter(callbacks), m.log)
	for i, fn := range callbacks.Debug {
		if fn != nil {
			m.dl.SetDebugHook(i, fn)
		}
	}

	m.ctrl = transfer.New(
		transfer.Callbacks{
			SetVar:   callbacks.SetVar,
			GetVar:   callbacks.GetVar,
			Command:  callbacks.Command,
			Upstream: callbacks.Upstream,
		},
		transfer.Hooks{
			Request:         m.InitiateRequest,
			InitiateStream:  m.InitiateStream,
			FinishStream:    m.FinishStream,
			ReleaseProtocol: m.ReleaseProtocol,
		},
		m.log,
	)

	m.rx.Flush()
	m.tx.Flush()
	m.state = StateIdle
	m.mode = modeTransfer
}

// State reports the current protocol-level state.
func (m *Master) State() State { return m.state }

// InitiateRequest renders req into the TX buffer and arms the transmit
// state machine, moving Idle to Sending. It reports false, leaving the
// protocol untouched, if a transfer is already in progress or req fails
// to render (oversized, or an unrenderable Kind).
func (m *Master) InitiateRequest(req dataframe.Request) bool {
	if m.state != StateIdle {
		return false
	}

	m.tx.Flush()
	free, ok := m.tx.Reserve()
	if !ok {
		return false
	}
	n, err := m.codec.Build(free, req)
	if err != nil {
		m.log.Debug("scimaster: request build failed", zap.Error(err))
		return false
	}
	m.tx.Commit(n)

	if !m.dl.Transmit(&m.tx) {
		return false
	}
	m.state = StateSending
	return true
}

// RequestGetVar issues a GetVar request for the given variable number.
func (m *Master) RequestGetVar(num int16) bool {
	return m.ctrl.Start(dataframe.Request{Kind: dataframe.KindGetVar, Num: num})
}

// RequestSetVar issues a SetVar request writing value to the given
// variable number.
func (m *Master) RequestSetVar(num int16, value dataframe.Value) bool {
	return m.ctrl.Start(dataframe.Request{Kind: dataframe.KindSetVar, Num: num, Values: []dataframe.Value{value}})
}

// RequestCommand issues a Command request carrying up to
// dataframe.MaxValues parameter values.
func (m *Master) RequestCommand(num int16, values []dataframe.Value) bool {
	return m.ctrl.Start(dataframe.Request{Kind: dataframe.KindCommand, Num: num, Values: values})
}

// Receive feeds inbound bytes through the active datalink receive mode.
// It is safe to call with any length, including zero.
func (m *Master) Receive(data []byte) {
	for _, b := range data {
		if m.mode == modeStream {
			m.dl.ReceiveStream(&m.rx, b)
		} else {
			m.dl.ReceiveTransfer(&m.rx, b)
		}
	}
}

// Step advances the protocol state machine by one tick: advancing the
// transmit side (see driveTransmit), acknowledging a completed receive frame,
// and handing a fully evaluated response to the transfer controller.
// The host calls this on whatever cadence its transport polls at.
func (m *Master) Step() {
	switch m.state {
	case StateSending:
		m.driveTransmit()
	case StateReceiving:
		if m.dl.ReceiveState() == datalink.RxPending {
			m.dl.AcknowledgeRx()
			m.state = StateEvaluating
		}
	case StateEvaluating:
		m.evaluate()
	case StateIdle, StateError:
		// Idle has nothing to drive; Error is terminal until the host
		// calls ReleaseProtocol.
	}
}

// driveTransmit advances the transmit state machine, consulting
// Options.RetryDelay after every step that leaves the frame unfinished,
// whether that step made progress or the Transmitter reported it has no
// room: a negative delay leaves the next step to the next Step call, zero
// yields and continues inline, and a positive delay sleeps and continues
// inline. By default (RetryDelay < 0) this advances one state-machine step
// (STX, one payload byte or chunk, or ETX) per Step, matching the
// teacher's one-byte-per-tick framing loop.
func (m *Master) driveTransmit() {
	for {
		m.dl.TransmitStateMachine()
		switch m.dl.TransmitState() {
		case datalink.TxReady:
			m.dl.AcknowledgeTx()
			m.state = StateReceiving
			m.dl.StartRx()
			return
		case datalink.TxError:
			m.log.Warn("scimaster: transmit failed")
			m.state = StateError
			return
		}

		switch {
		case m.opts.RetryDelay < 0:
			return
		case m.opts.RetryDelay == 0:
			runtime.Gosched()
		default:
			time.Sleep(m.opts.RetryDelay)
		}
	}
}

func (m *Master) evaluate() {
	raw := m.rx.Read()

	var resp dataframe.Response
	var err error
	if m.mode == modeStream {
		resp = dataframe.ParseStream(raw)
	} else {
		resp, err = m.codec.Parse(raw)
	}
	m.rx.Flush()

	if err != nil {
		m.log.Debug("scimaster: parse failed", zap.Error(err))
		m.state = StateError
		return
	}

	if hErr := m.ctrl.HandleResponse(resp); hErr != nil {
		if errors.Is(hErr, dataframe.ErrFeatureNotImplemented) {
			hErr = ErrFeatureNotImplemented
		}
		m.log.Debug("scimaster: transfer controller rejected response", zap.Error(hErr))
	}
}

// InitiateStream switches the receiver into byte-counted stream mode for
// an Upstream transfer of count bytes. It is a transfer.Hooks collaborator
// and not normally called directly.
func (m *Master) InitiateStream(count uint32) {
	m.mode = modeStream
	m.dl.BeginStream(count)
}

// FinishStream restores transfer-mode framing once an Upstream transfer
// is fully reassembled.
func (m *Master) FinishStream() {
	m.mode = modeTransfer
	m.dl.EndStream()
}

// ReleaseProtocol returns the protocol to Idle. The transfer controller
// calls this on every completed sub-exchange; a host may also call it
// directly to recover from StateError, since the core implements no
// transfer timeout of its own.
func (m *Master) ReleaseProtocol() {
	m.state = StateIdle
}

// Abort terminates whatever transfer is in progress at the transfer-
// controller level and releases the protocol. Use this, rather than
// ReleaseProtocol, when a multi-frame Command or Upstream transfer needs
// to be torn down mid-flight rather than simply unstuck from Error.
func (m *Master) Abort() {
	m.ctrl.Abort()
}
