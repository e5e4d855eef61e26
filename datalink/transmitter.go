package datalink

// Transmitter abstracts the host-supplied transmit path selected at
// construction. Send offers buf (the remaining untransmitted tail of the
// frame) to the host and reports how many bytes were accepted. A blocking
// transmitter always accepts everything it is handed, one byte at a time;
// a non-blocking transmitter may accept nothing, in which case it must
// return ErrWouldBlock so TransmitStateMachine retries on the next Step.
type Transmitter interface {
	Send(buf []byte) (int, error)
}

// BlockingSendFunc synchronously writes a single byte to the wire,
// blocking until it is sent.
type BlockingSendFunc func(b byte)

type blockingTransmitter struct {
	send BlockingSendFunc
}

// NewBlockingTransmitter builds a Transmitter that writes one byte per
// Send call via a synchronous, blocking host callback. This drives the
// transmit state machine through its payload one byte per Step.
func NewBlockingTransmitter(send BlockingSendFunc) Transmitter {
	return &blockingTransmitter{send: send}
}

func (t *blockingTransmitter) Send(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	t.send(buf[0])
	return 1, nil
}

// NonBlockingSendFunc offers buf to the host and returns how many leading
// bytes were accepted (which may be fewer than len(buf), or zero).
type NonBlockingSendFunc func(buf []byte) int

// BusyFunc reports whether the underlying link currently has no room to
// accept anything.
type BusyFunc func() bool

type nonBlockingTransmitter struct {
	send NonBlockingSendFunc
	busy BusyFunc
}

// NewNonBlockingTransmitter builds a Transmitter that offers the whole
// remaining buffer to the host in one call. busy is consulted first and
// may be nil if the host has no separate busy query.
func NewNonBlockingTransmitter(send NonBlockingSendFunc, busy BusyFunc) Transmitter {
	return &nonBlockingTransmitter{send: send, busy: busy}
}

func (t *nonBlockingTransmitter) Send(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if t.busy != nil && t.busy() {
		return 0, ErrWouldBlock
	}
	n := t.send(buf)
	if n == 0 {
		return 0, ErrWouldBlock
	}
	return n, nil
}
