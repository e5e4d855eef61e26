package scimaster

import (
	"sync"

	"github.com/rholderried/SCI-Master/dataframe"
)

// SafeMaster wraps a Master with a mutex so a host can drive Receive from
// an I/O goroutine and Step/request methods from another without
// coordinating itself. The core's own state machine is not concurrent;
// this is purely a convenience for hosts that are.
type SafeMaster struct {
	mu sync.Mutex
	m  *Master
}

// NewSafe builds a SafeMaster around a freshly constructed Master.
func NewSafe(opts ...Option) *SafeMaster {
	return &SafeMaster{m: New(opts...)}
}

// Init wires the host's callbacks. See Master.Init.
func (s *SafeMaster) Init(callbacks Callbacks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.Init(callbacks)
}

// State reports the current protocol-level state.
func (s *SafeMaster) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.State()
}

// InitiateRequest issues a raw request. See Master.InitiateRequest.
func (s *SafeMaster) InitiateRequest(req dataframe.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.InitiateRequest(req)
}

// RequestGetVar issues a GetVar request. See Master.RequestGetVar.
func (s *SafeMaster) RequestGetVar(num int16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.RequestGetVar(num)
}

// RequestSetVar issues a SetVar request. See Master.RequestSetVar.
func (s *SafeMaster) RequestSetVar(num int16, value dataframe.Value) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.RequestSetVar(num, value)
}

// RequestCommand issues a Command request. See Master.RequestCommand.
func (s *SafeMaster) RequestCommand(num int16, values []dataframe.Value) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.RequestCommand(num, values)
}

// Receive feeds inbound bytes to the master. See Master.Receive.
func (s *SafeMaster) Receive(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.Receive(data)
}

// Step advances the protocol state machine by one tick. See Master.Step.
func (s *SafeMaster) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.Step()
}

// Abort tears down whatever transfer is in progress. See Master.Abort.
func (s *SafeMaster) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.Abort()
}
