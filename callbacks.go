package scimaster

import (
	"github.com/rholderried/SCI-Master/dataframe"
	"github.com/rholderried/SCI-Master/datalink"
	"github.com/rholderried/SCI-Master/transfer"
)

// Callbacks bundles every host-supplied hook the master façade needs: the
// four result sinks that receive decoded transfers, the transmit path,
// and the debug side-channel table.
type Callbacks struct {
	// Result sinks.
	SetVar   func(ack dataframe.Ack, num int16, errNum uint16) transfer.TransferAck
	GetVar   func(ack dataframe.Ack, num int16, value dataframe.Value, errNum uint16) transfer.TransferAck
	Command  func(ack dataframe.Ack, num int16, data []dataframe.Value, errNum uint16) transfer.TransferAck
	Upstream func(num int16, data []byte) transfer.TransferAck

	// Link. TxBlocking is used in Blocking transmit mode; TxNonBlocking
	// and TxBusy are used in NonBlocking mode.
	TxBlocking    func(b byte)
	TxNonBlocking func(buf []byte) int
	TxBusy        func() bool

	// Debug is a ten-slot table of parameterless callbacks, indexed by
	// the digit following a "Dbg" trigger on the wire. Nil slots are
	// ignored.
	Debug [datalink.NumDebugHooks]func()
}
