// Package transfer implements the multi-message state machine that binds
// one outstanding request to however many responses it takes to satisfy
// it: single-shot acknowledgement for GetVar/SetVar, fragment reassembly
// for Command, and stream-mode escalation and reassembly for Upstream.
package transfer

import (
	"go.uber.org/zap"

	"github.com/rholderried/SCI-Master/dataframe"
)

// TransferAck is the application's verdict on a completed sub-exchange.
type TransferAck uint8

const (
	Success TransferAck = iota
	RepeatRequest
	Abort
)

// Callbacks are the host's result sinks, one per request kind.
type Callbacks struct {
	SetVar   func(ack dataframe.Ack, num int16, errNum uint16) TransferAck
	GetVar   func(ack dataframe.Ack, num int16, value dataframe.Value, errNum uint16) TransferAck
	Command  func(ack dataframe.Ack, num int16, data []dataframe.Value, errNum uint16) TransferAck
	Upstream func(num int16, data []byte) TransferAck
}

// Hooks are the collaborators the controller drives to issue follow-up
// requests and manage the datalink's stream mode. Request must itself be
// non-reentrant with respect to the caller: it is expected to route
// through the owning master's InitiateRequest, which is only valid once
// ReleaseProtocol has run.
type Hooks struct {
	Request         func(req dataframe.Request) bool
	InitiateStream  func(count uint32)
	FinishStream    func()
	ReleaseProtocol func()
}

// Controller is the per-master transfer state machine. It is reactive:
// the owner feeds it one parsed Response at a time via HandleResponse.
type Controller struct {
	log       *zap.Logger
	callbacks Callbacks
	hooks     Hooks

	request       dataframe.Request
	expectedCount uint32
	receivedCount uint32
	transferCount uint32

	results        []dataframe.Value
	upstreamBuffer []byte
}

// New builds a Controller. log may be nil.
func New(callbacks Callbacks, hooks Hooks, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{callbacks: callbacks, hooks: hooks, log: log}
}

// Start records req as the outstanding transfer and issues it via the
// Request hook.
func (c *Controller) Start(req dataframe.Request) bool {
	c.request = req
	return c.hooks.Request(req)
}

// releaseAndMaybeRepeat always releases the protocol before possibly
// re-issuing the same request, keeping the release-before-request
// ordering the mutually recursive callback chain depends on.
func (c *Controller) releaseAndMaybeRepeat(result TransferAck) {
	c.hooks.ReleaseProtocol()
	if result == RepeatRequest {
		c.hooks.Request(c.request)
	}
}

// HandleResponse dispatches resp against the kind of the currently
// outstanding request.
func (c *Controller) HandleResponse(resp dataframe.Response) error {
	switch c.request.Kind {
	case dataframe.KindSetVar:
		return c.handleSetVar(resp)
	case dataframe.KindGetVar:
		return c.handleGetVar(resp)
	case dataframe.KindCommand:
		return c.handleCommand(resp)
	case dataframe.KindUpstream:
		return c.handleUpstream(resp)
	case dataframe.KindDownstream:
		c.log.Debug("transfer: downstream response received (reserved, never emitted by the device)")
		c.hooks.ReleaseProtocol()
		return dataframe.ErrFeatureNotImplemented
	default:
		c.hooks.ReleaseProtocol()
		return nil
	}
}

func (c *Controller) handleSetVar(resp dataframe.Response) error {
	result := c.callbacks.SetVar(resp.Ack, resp.Num, resp.ErrNum)
	c.releaseAndMaybeRepeat(result)
	return nil
}

func (c *Controller) handleGetVar(resp dataframe.Response) error {
	var val dataframe.Value
	if len(resp.Values) > 0 {
		val = resp.Values[0]
	}
	result := c.callbacks.GetVar(resp.Ack, resp.Num, val, resp.ErrNum)
	c.releaseAndMaybeRepeat(result)
	return nil
}

func (c *Controller) handleCommand(resp dataframe.Response) error {
	switch resp.Ack {
	case dataframe.AckData:
		return c.handleCommandData(resp)
	case dataframe.AckUpstream:
		return c.handleCommandUpstream(resp)
	default: // Success, Error, Unknown(NAK): no further fragments expected.
		c.callbacks.Command(resp.Ack, resp.Num, nil, resp.ErrNum)
		c.hooks.ReleaseProtocol()
		return nil
	}
}

func (c *Controller) handleCommandData(resp dataframe.Response) error {
	if c.results == nil {
		c.expectedCount = resp.DataLength
		c.results = make([]dataframe.Value, c.expectedCount)
	}

	if uint32(len(resp.Values)) > c.expectedCount-c.receivedCount {
		c.log.Debug("transfer: command fragment overruns announced data length",
			zap.Uint32("expected", c.expectedCount), zap.Uint32("received", c.receivedCount))
		c.abortCommand()
		return dataframe.ErrExpectedDataLengthNotMet
	}

	n := copy(c.results[c.receivedCount:], resp.Values)
	c.receivedCount += uint32(n)
	c.transferCount++

	if c.receivedCount == c.expectedCount {
		c.callbacks.Command(dataframe.AckData, resp.Num, c.results, 0)
		c.results = nil
		c.receivedCount = 0
		c.expectedCount = 0
		c.transferCount = 0
		c.hooks.ReleaseProtocol()
		return nil
	}

	c.request.Values = nil
	c.hooks.ReleaseProtocol()
	c.hooks.Request(c.request)
	return nil
}

func (c *Controller) abortCommand() {
	c.results = nil
	c.receivedCount = 0
	c.expectedCount = 0
	c.transferCount = 0
	c.hooks.ReleaseProtocol()
}

func (c *Controller) handleCommandUpstream(resp dataframe.Response) error {
	c.expectedCount = resp.DataLength
	c.upstreamBuffer = make([]byte, c.expectedCount)
	c.receivedCount = 0

	c.hooks.InitiateStream(c.expectedCount)

	c.request = dataframe.Request{Kind: dataframe.KindUpstream, Num: resp.Num}
	c.hooks.ReleaseProtocol()
	c.hooks.Request(c.request)
	return nil
}

func (c *Controller) handleUpstream(resp dataframe.Response) error {
	n := copy(c.upstreamBuffer[c.receivedCount:], resp.Raw[:resp.ValueCount])
	c.receivedCount += uint32(n)

	if c.receivedCount < c.expectedCount {
		c.hooks.ReleaseProtocol()
		c.hooks.Request(c.request)
		return nil
	}

	c.hooks.FinishStream()
	c.callbacks.Upstream(c.request.Num, c.upstreamBuffer)
	c.upstreamBuffer = nil
	c.receivedCount = 0
	c.expectedCount = 0
	c.hooks.ReleaseProtocol()
	return nil
}

// Abort terminates whatever transfer is in progress, frees
// transfer-scoped memory, and releases the protocol. It is the host's
// escape hatch for timeouts: the core implements no timer of its own.
func (c *Controller) Abort() {
	c.results = nil
	c.upstreamBuffer = nil
	c.receivedCount = 0
	c.expectedCount = 0
	c.transferCount = 0
	c.hooks.ReleaseProtocol()
}
