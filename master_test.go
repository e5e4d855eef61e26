package scimaster_test

import (
	"testing"

	"github.com/rholderried/SCI-Master/dataframe"
	scimaster "github.com/rholderried/SCI-Master"
	"github.com/rholderried/SCI-Master/transfer"
)

const (
	stx = 0x02
	etx = 0x03
)

// driveToReceiving steps m until it reaches StateReceiving (capturing
// whatever bytes the blocking transmitter emitted), failing the test if
// that never happens within a generous number of ticks.
func driveToReceiving(t *testing.T, m *scimaster.Master) {
	t.Helper()
	for i := 0; i < 10; i++ {
		m.Step()
		if m.State() == scimaster.StateReceiving {
			return
		}
	}
	t.Fatalf("master stuck in state %v, never reached Receiving", m.State())
}

func frame(body string) []byte {
	out := make([]byte, 0, len(body)+2)
	out = append(out, stx)
	out = append(out, body...)
	out = append(out, etx)
	return out
}

func TestMasterGetVarSuccessEndToEnd(t *testing.T) {
	var txBytes []byte
	var gotAck dataframe.Ack
	var gotNum int16
	var gotVal dataframe.Value

	m := scimaster.New()
	m.Init(scimaster.Callbacks{
		GetVar: func(ack dataframe.Ack, num int16, value dataframe.Value, errNum uint16) transfer.TransferAck {
			gotAck, gotNum, gotVal = ack, num, value
			return transfer.Success
		},
		TxBlocking: func(b byte) { txBytes = append(txBytes, b) },
	})

	if !m.RequestGetVar(1) {
		t.Fatalf("RequestGetVar returned false")
	}
	driveToReceiving(t, m)

	if got, want := string(txBytes), string(frame("1?")); got != want {
		t.Fatalf("transmitted = %q, want %q", got, want)
	}

	m.Receive(frame("1?ACK;2A"))
	m.Step() // Receiving -> Evaluating
	m.Step() // Evaluating -> handled, Idle

	if gotAck != dataframe.AckSuccess || gotNum != 1 || gotVal.Hex != 0x2A {
		t.Fatalf("callback args = %v, %v, %+v", gotAck, gotNum, gotVal)
	}
	if m.State() != scimaster.StateIdle {
		t.Fatalf("state = %v, want Idle", m.State())
	}
}

func TestMasterSetVarErrorEndToEnd(t *testing.T) {
	var txBytes []byte
	var gotAck dataframe.Ack
	var gotErrNum uint16

	m := scimaster.New()
	m.Init(scimaster.Callbacks{
		SetVar: func(ack dataframe.Ack, num int16, errNum uint16) transfer.TransferAck {
			gotAck, gotErrNum = ack, errNum
			return transfer.Success
		},
		TxBlocking: func(b byte) { txBytes = append(txBytes, b) },
	})

	if !m.RequestSetVar(10, dataframe.HexValue(0xDEAD)) {
		t.Fatalf("RequestSetVar returned false")
	}
	driveToReceiving(t, m)

	if got, want := string(txBytes), string(frame("A!DEAD")); got != want {
		t.Fatalf("transmitted = %q, want %q", got, want)
	}

	m.Receive(frame("A!ERR;7"))
	m.Step()
	m.Step()

	if gotAck != dataframe.AckError || gotErrNum != 7 {
		t.Fatalf("callback args = %v, %v", gotAck, gotErrNum)
	}
	if m.State() != scimaster.StateIdle {
		t.Fatalf("state = %v, want Idle", m.State())
	}
}

func TestMasterCommandFragmentationEndToEnd(t *testing.T) {
	var calls int
	var gotData []dataframe.Value

	m := scimaster.New()
	m.Init(scimaster.Callbacks{
		Command: func(ack dataframe.Ack, num int16, data []dataframe.Value, errNum uint16) transfer.TransferAck {
			calls++
			gotData = data
			return transfer.Success
		},
		TxBlocking: func(b byte) {},
	})

	if !m.RequestCommand(0xFF, nil) {
		t.Fatalf("RequestCommand returned false")
	}
	driveToReceiving(t, m)

	// Announces 3 total values, delivers 2; the master must re-request
	// the next fragment rather than fire the callback yet.
	m.Receive(frame("FF:DAT;3;FF,3"))
	m.Step()
	m.Step()
	if calls != 0 {
		t.Fatalf("command callback fired before the final fragment")
	}
	if m.State() != scimaster.StateSending {
		t.Fatalf("state = %v, want Sending (fragment re-request)", m.State())
	}

	driveToReceiving(t, m)
	m.Receive(frame("FF:1"))
	m.Step()
	m.Step()

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if len(gotData) != 3 || gotData[0].Hex != 0xFF || gotData[1].Hex != 0x3 || gotData[2].Hex != 0x1 {
		t.Fatalf("gotData = %+v", gotData)
	}
	if m.State() != scimaster.StateIdle {
		t.Fatalf("state = %v, want Idle", m.State())
	}
}

// Stream-mode chunk size is the RX buffer capacity: ETX is only
// recognized once that many bytes have landed (or the announced budget
// runs out first). With a 16-byte capacity and a 20-byte upstream
// transfer, that's one full 16-byte fragment followed by a 4-byte
// trailer.
func TestMasterCommandUpstreamEndToEnd(t *testing.T) {
	var gotNum int16
	var gotData []byte

	first := make([]byte, 16)
	for i := range first {
		first[i] = byte(i)
	}
	second := []byte{0xAA, 0xBB, 0xCC, 0xDD}

	m := scimaster.New(scimaster.WithRxPacketLength(16))
	m.Init(scimaster.Callbacks{
		Upstream: func(num int16, data []byte) transfer.TransferAck {
			gotNum = num
			gotData = append([]byte(nil), data...)
			return transfer.Success
		},
		TxBlocking: func(b byte) {},
	})

	if !m.RequestCommand(0xFF, nil) {
		t.Fatalf("RequestCommand returned false")
	}
	driveToReceiving(t, m)
	m.Receive(frame("FF:UPS;14")) // hex 0x14 = 20 bytes total
	m.Step()
	m.Step()

	if m.State() != scimaster.StateSending {
		t.Fatalf("state = %v, want Sending (upstream follow-up request)", m.State())
	}
	driveToReceiving(t, m)

	m.Receive(frame(string(first)))
	m.Step()
	m.Step()
	if m.State() != scimaster.StateSending {
		t.Fatalf("state = %v, want Sending (second stream fragment request)", m.State())
	}
	driveToReceiving(t, m)

	m.Receive(frame(string(second)))
	m.Step()
	m.Step()

	if gotNum != 0xFF {
		t.Fatalf("gotNum = %v, want 0xFF", gotNum)
	}
	want := append(append([]byte(nil), first...), second...)
	if string(gotData) != string(want) {
		t.Fatalf("gotData = %v, want %v", gotData, want)
	}
	if m.State() != scimaster.StateIdle {
		t.Fatalf("state = %v, want Idle", m.State())
	}
}

func TestMasterParseFailureEntersErrorState(t *testing.T) {
	m := scimaster.New()
	m.Init(scimaster.Callbacks{TxBlocking: func(b byte) {}})

	if !m.RequestGetVar(1) {
		t.Fatalf("RequestGetVar returned false")
	}
	driveToReceiving(t, m)

	m.Receive(frame("XYZ"))
	m.Step()
	m.Step()

	if m.State() != scimaster.StateError {
		t.Fatalf("state = %v, want Error", m.State())
	}

	m.ReleaseProtocol()
	if m.State() != scimaster.StateIdle {
		t.Fatalf("state after ReleaseProtocol = %v, want Idle", m.State())
	}
}

func TestMasterInitiateRequestRejectsWhileNotIdle(t *testing.T) {
	m := scimaster.New()
	m.Init(scimaster.Callbacks{TxBlocking: func(b byte) {}})

	if !m.RequestGetVar(1) {
		t.Fatalf("first RequestGetVar returned false")
	}
	driveToReceiving(t, m)

	if m.InitiateRequest(dataframe.Request{Kind: dataframe.KindGetVar, Num: 2}) {
		t.Fatalf("InitiateRequest succeeded while a transfer was outstanding")
	}
}

func TestMasterNonBlockingRetryDelayDrainsInline(t *testing.T) {
	var txBytes []byte
	busyCalls := 0

	m := scimaster.New(
		scimaster.WithTransmitMode(scimaster.NonBlocking),
		scimaster.WithRetryDelay(0),
	)
	m.Init(scimaster.Callbacks{
		GetVar: func(ack dataframe.Ack, num int16, value dataframe.Value, errNum uint16) transfer.TransferAck {
			return transfer.Success
		},
		TxNonBlocking: func(buf []byte) int {
			txBytes = append(txBytes, buf...)
			return len(buf)
		},
		TxBusy: func() bool {
			busyCalls++
			return busyCalls <= 2 // busy for the first two polls, then drains
		},
	})

	if !m.RequestGetVar(1) {
		t.Fatalf("RequestGetVar returned false")
	}
	// A single Step must retry inline (RetryDelay == 0) until the link
	// stops reporting busy and the whole frame is out, rather than
	// requiring one Step per retry.
	m.Step()
	if m.State() != scimaster.StateReceiving {
		t.Fatalf("state = %v, want Receiving after one Step with inline retry", m.State())
	}
	if got, want := string(txBytes), string(frame("1?")); got != want {
		t.Fatalf("transmitted = %q, want %q", got, want)
	}
	if busyCalls < 3 {
		t.Fatalf("busyCalls = %d, want at least 3 (two busy + one free)", busyCalls)
	}
}

func TestMasterBuildOverflowKeepsProtocolIdle(t *testing.T) {
	m := scimaster.New(scimaster.WithTxPacketLength(4))
	m.Init(scimaster.Callbacks{TxBlocking: func(b byte) {}})

	ok := m.InitiateRequest(dataframe.Request{
		Kind: dataframe.KindCommand,
		Num:  1,
		Values: []dataframe.Value{
			dataframe.HexValue(0x1111),
			dataframe.HexValue(0x2222),
		},
	})
	if ok {
		t.Fatalf("InitiateRequest succeeded despite an oversized request")
	}
	if m.State() != scimaster.StateIdle {
		t.Fatalf("state = %v, want Idle after a rejected request", m.State())
	}
}
