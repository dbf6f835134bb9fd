package pc

import (
	"errors"
	"sync/atomic"

	"github.com/streamshim/rtcbridge/internal/engine"
)

// ErrDataChannelClosed is returned by sends on a closed channel.
var ErrDataChannelClosed = errors.New("data channel is closed")

// DataChannelInit holds channel options for CreateDataChannel. Nil pointer
// fields take the engine defaults: ordered, unlimited retransmits.
type DataChannelInit struct {
	Ordered        *bool
	MaxRetransmits *uint16
}

func (init *DataChannelInit) params() (ordered bool, maxRetransmits int32) {
	ordered = true
	maxRetransmits = -1
	if init == nil {
		return
	}
	if init.Ordered != nil {
		ordered = *init.Ordered
	}
	if init.MaxRetransmits != nil {
		maxRetransmits = int32(*init.MaxRetransmits)
	}
	return
}

// DataChannel is a bidirectional message channel over the connection. The
// exported handler fields run on the engine's network thread; set them
// before the channel opens.
type DataChannel struct {
	// OnOpen fires once when the channel becomes usable.
	OnOpen func()
	// OnMessage receives each inbound message. The data slice is owned
	// by the handler.
	OnMessage func(data []byte, isBinary bool)
	// OnClose fires once when the channel shuts down.
	OnClose func()

	dc     *engine.DataChannel
	state  atomic.Int32
	closed atomic.Bool
}

// CreateDataChannel opens a locally initiated channel. The channel is not
// usable until OnOpen fires.
func (pc *PeerConnection) CreateDataChannel(label string, init *DataChannelInit) (*DataChannel, error) {
	if pc.closed.Load() {
		return nil, ErrConnectionClosed
	}

	d := &DataChannel{}
	d.state.Store(int32(DataChannelStateConnecting))

	ordered, maxRetransmits := init.params()
	dc, err := pc.pc.CreateDataChannel(label, ordered, maxRetransmits, d.callbacks())
	if err != nil {
		return nil, err
	}
	d.dc = dc
	return d, nil
}

// adoptDataChannel wraps a channel the remote side opened. It is already
// past the connecting phase when delivered.
func adoptDataChannel(h uintptr, label string) *DataChannel {
	d := &DataChannel{}
	d.state.Store(int32(DataChannelStateOpen))
	d.dc = engine.WrapDataChannel(h, label, d.callbacks())
	return d
}

func (d *DataChannel) callbacks() engine.DataChannelCallbacks {
	return engine.DataChannelCallbacks{
		OnOpen: func() {
			d.state.Store(int32(DataChannelStateOpen))
			if h := d.OnOpen; h != nil {
				h()
			}
		},
		OnMessage: func(data []byte, binary bool) {
			if d.closed.Load() {
				return
			}
			if h := d.OnMessage; h != nil {
				h(data, binary)
			}
		},
		OnClose: func() {
			d.state.Store(int32(DataChannelStateClosed))
			if h := d.OnClose; h != nil {
				h()
			}
		},
	}
}

// Label returns the channel label.
func (d *DataChannel) Label() string { return d.dc.Label() }

// ReadyState returns the channel's lifecycle state.
func (d *DataChannel) ReadyState() DataChannelState {
	if d.closed.Load() {
		return DataChannelStateClosed
	}
	return DataChannelState(d.state.Load())
}

// Send transmits one binary message.
func (d *DataChannel) Send(data []byte) error {
	if d.closed.Load() {
		return ErrDataChannelClosed
	}
	return d.dc.Send(data, true)
}

// SendText transmits one text message.
func (d *DataChannel) SendText(text string) error {
	if d.closed.Load() {
		return ErrDataChannelClosed
	}
	return d.dc.Send([]byte(text), false)
}

// Close shuts the channel down and releases the engine instance. Safe to
// call more than once.
func (d *DataChannel) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.state.Store(int32(DataChannelStateClosed))
	d.dc.Close()
	d.dc.Destroy()
	return nil
}
