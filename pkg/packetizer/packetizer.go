// Package packetizer converts encoded frames into RTP packets.
package packetizer

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/pion/rtp"

	"github.com/streamshim/rtcbridge/pkg/codec"
)

// Errors
var (
	ErrPacketizerClosed = errors.New("packetizer is closed")
	ErrBufferTooSmall   = errors.New("buffer too small")
	ErrInvalidData      = errors.New("invalid data")
)

// rtpHeaderSize is the fixed size of the headers this packetizer emits: no
// padding, no extensions, no CSRC.
const rtpHeaderSize = 12

// Config configures an RTP packetizer.
type Config struct {
	Codec       codec.Type
	SSRC        uint32
	PayloadType uint8
	MTU         uint16 // Maximum transmission unit (typically 1200)
	ClockRate   uint32 // RTP clock rate (90000 for video, 48000 for Opus)
}

// PacketInfo describes a single RTP packet in the output buffer.
type PacketInfo struct {
	Offset int // Offset into the buffer where this packet starts
	Size   int // Size of this packet
}

// Packetizer converts encoded frames into RTP packets.
// All operations are allocation-free - caller provides buffers.
type Packetizer interface {
	// PacketizeInto packetizes encoded data into RTP packets.
	// dst is a pre-allocated buffer to hold all packets contiguously.
	// packets is a pre-allocated slice to receive packet info (offset/size).
	// Returns the number of packets written. When dst or packets cannot
	// hold the whole frame, nothing is written and ErrBufferTooSmall is
	// returned; frames are never silently truncated.
	PacketizeInto(data []byte, timestamp uint32, isKeyframe bool, dst []byte, packets []PacketInfo) (int, error)

	// MaxPackets returns the number of packets generated for a frame of
	// the given size.
	MaxPackets(frameSize int) int

	// MaxPacketSize returns the maximum size of a single RTP packet.
	MaxPacketSize() int

	// SequenceNumber returns the sequence number the next packet will use.
	SequenceNumber() uint16

	// Close releases resources.
	Close() error
}

type packetizer struct {
	config Config
	seq    uint16
	closed atomic.Bool
	mu     sync.Mutex
}

// New creates a new RTP packetizer.
func New(cfg Config) (Packetizer, error) {
	if cfg.MTU == 0 {
		cfg.MTU = 1200
	}
	if cfg.MTU <= rtpHeaderSize {
		return nil, ErrInvalidData
	}
	if cfg.ClockRate == 0 {
		cfg.ClockRate = cfg.Codec.ClockRate()
	}
	return &packetizer{config: cfg}, nil
}

func (p *packetizer) PacketizeInto(data []byte, timestamp uint32, isKeyframe bool, dst []byte, packets []PacketInfo) (int, error) {
	if p.closed.Load() {
		return 0, ErrPacketizerClosed
	}
	if len(data) == 0 {
		return 0, ErrInvalidData
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	payloadLimit := int(p.config.MTU) - rtpHeaderSize
	count := (len(data) + payloadLimit - 1) / payloadLimit

	// Reject before writing anything so a failed call leaves no partial
	// output and does not consume sequence numbers.
	if count > len(packets) {
		return 0, ErrBufferTooSmall
	}
	if count*rtpHeaderSize+len(data) > len(dst) {
		return 0, ErrBufferTooSmall
	}

	offset := 0
	for i := 0; i < count; i++ {
		chunk := data[i*payloadLimit:]
		if len(chunk) > payloadLimit {
			chunk = chunk[:payloadLimit]
		}

		hdr := rtp.Header{
			Version:        2,
			Marker:         i == count-1, // marker closes the frame
			PayloadType:    p.config.PayloadType,
			SequenceNumber: p.seq,
			Timestamp:      timestamp, // per frame, not per packet
			SSRC:           p.config.SSRC,
		}
		n, err := hdr.MarshalTo(dst[offset:])
		if err != nil {
			return 0, err
		}
		copy(dst[offset+n:], chunk)

		packets[i] = PacketInfo{Offset: offset, Size: n + len(chunk)}
		offset += n + len(chunk)
		p.seq++ // wraps naturally at 65536
	}

	return count, nil
}

func (p *packetizer) MaxPackets(frameSize int) int {
	payloadLimit := int(p.config.MTU) - rtpHeaderSize
	if frameSize <= 0 {
		return 0
	}
	return (frameSize + payloadLimit - 1) / payloadLimit
}

func (p *packetizer) MaxPacketSize() int {
	return int(p.config.MTU)
}

func (p *packetizer) SequenceNumber() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seq
}

func (p *packetizer) Close() error {
	p.closed.Store(true)
	return nil
}
