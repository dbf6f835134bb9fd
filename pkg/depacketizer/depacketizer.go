// Package depacketizer reassembles RTP packets into complete frames.
package depacketizer

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pion/rtp"

	"github.com/streamshim/rtcbridge/pkg/codec"
)

// Errors
var (
	ErrDepacketizerClosed = errors.New("depacketizer is closed")
	ErrNeedMoreData       = errors.New("need more data")
	ErrBufferTooSmall     = errors.New("buffer too small")
	ErrInvalidPacket      = errors.New("invalid rtp packet")
)

// H264 NAL unit types that mark a frame as a keyframe.
const (
	nalTypeIDR = 5
	nalTypeSPS = 7
)

// FrameInfo contains metadata about a reassembled frame.
type FrameInfo struct {
	Size       int
	Timestamp  uint32
	IsKeyframe bool
}

// Depacketizer reassembles RTP packets into complete frames.
// All operations are allocation-free - caller provides buffers.
type Depacketizer interface {
	// Push adds an RTP packet to the reassembly buffer. Packets must
	// arrive in non-decreasing sequence order; no reordering is done
	// here. The depacketizer holds at most one frame: a packet with a
	// new timestamp discards whatever is buffered, complete or not, so
	// a completed frame must be popped before the next frame's packets
	// are pushed.
	Push(packet []byte) error

	// PopInto pops a complete frame into the provided buffer.
	// Returns ErrNeedMoreData if no complete frame is available.
	PopInto(dst []byte) (FrameInfo, error)

	// Close releases resources.
	Close() error
}

type depacketizer struct {
	codecType codec.Type
	closed    atomic.Bool

	mu        sync.Mutex
	buf       []byte
	timestamp uint32
	started   bool
	complete  bool
	keyframe  bool
}

// New creates a new RTP depacketizer.
func New(codecType codec.Type) (Depacketizer, error) {
	return &depacketizer{codecType: codecType}, nil
}

func (d *depacketizer) Push(packet []byte) error {
	if d.closed.Load() {
		return ErrDepacketizerClosed
	}
	if len(packet) == 0 {
		return nil
	}

	var pkt rtp.Packet
	if err := pkt.Unmarshal(packet); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPacket, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Timestamp boundary: a new frame implicitly discards whatever is
	// accumulated, complete or not.
	if !d.started || pkt.Timestamp != d.timestamp {
		d.buf = d.buf[:0]
		d.timestamp = pkt.Timestamp
		d.started = true
		d.complete = false
		d.keyframe = false
	}

	d.buf = append(d.buf, pkt.Payload...)

	if pkt.Marker {
		d.complete = true
		if d.codecType == codec.H264 && len(d.buf) > 0 {
			nalType := d.buf[0] & 0x1F
			d.keyframe = nalType == nalTypeIDR || nalType == nalTypeSPS
		}
	}
	return nil
}

func (d *depacketizer) PopInto(dst []byte) (FrameInfo, error) {
	if d.closed.Load() {
		return FrameInfo{}, ErrDepacketizerClosed
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.complete {
		return FrameInfo{}, ErrNeedMoreData
	}
	if len(dst) < len(d.buf) {
		// The frame stays available for a retry with a bigger buffer.
		return FrameInfo{}, ErrBufferTooSmall
	}

	info := FrameInfo{
		Size:       copy(dst, d.buf),
		Timestamp:  d.timestamp,
		IsKeyframe: d.keyframe,
	}

	d.buf = d.buf[:0]
	d.started = false
	d.complete = false
	d.keyframe = false
	return info, nil
}

func (d *depacketizer) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buf = nil
	return nil
}
