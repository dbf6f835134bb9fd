package encoder

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/streamshim/rtcbridge/internal/engine"
	"github.com/streamshim/rtcbridge/pkg/codec"
	"github.com/streamshim/rtcbridge/pkg/frame"
)

// maxOpusPacketSize is the recommended output buffer size for a single Opus
// packet.
const maxOpusPacketSize = 4000

// opusEncoder wraps the engine's synchronous Opus encoder.
type opusEncoder struct {
	enc    *engine.AudioEncoder
	cfg    codec.OpusConfig
	closed atomic.Bool
	mu     sync.Mutex
}

// NewOpusEncoder creates an Opus encoder.
func NewOpusEncoder(cfg codec.OpusConfig) (AudioEncoder, error) {
	if err := validateOpusConfig(cfg); err != nil {
		return nil, err
	}

	bitrate := cfg.Bitrate
	if bitrate == 0 {
		bitrate = codec.DefaultOpusConfig().Bitrate
	}

	enc, err := engine.CreateAudioEncoder(&engine.AudioEncoderConfig{
		SampleRate: int32(cfg.SampleRate),
		Channels:   int32(cfg.Channels),
		BitrateBps: bitrate,
	})
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}

	cfg.Bitrate = bitrate
	return &opusEncoder{enc: enc, cfg: cfg}, nil
}

func validateOpusConfig(cfg codec.OpusConfig) error {
	switch cfg.SampleRate {
	case 8000, 12000, 16000, 24000, 48000:
	default:
		return ErrInvalidConfig
	}
	if cfg.Channels < 1 || cfg.Channels > 2 {
		return ErrInvalidConfig
	}
	if cfg.Bitrate != 0 && (cfg.Bitrate < 6000 || cfg.Bitrate > 510000) {
		return ErrInvalidConfig
	}
	return nil
}

func (e *opusEncoder) EncodeInto(src *frame.AudioFrame, dst []byte) (int, error) {
	if e.closed.Load() {
		return 0, ErrEncoderClosed
	}
	if src == nil || len(src.Samples) == 0 {
		return 0, ErrInvalidFrame
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.enc == nil {
		return 0, ErrEncoderClosed
	}
	return e.enc.EncodeInto(src.Samples, dst)
}

func (e *opusEncoder) MaxEncodedSize() int {
	return maxOpusPacketSize
}

func (e *opusEncoder) SetBitrate(bps uint32) error {
	if e.closed.Load() {
		return ErrEncoderClosed
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.enc == nil {
		return ErrEncoderClosed
	}
	return e.enc.SetBitrate(bps)
}

func (e *opusEncoder) Codec() codec.Type {
	return codec.Opus
}

func (e *opusEncoder) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.enc != nil {
		e.enc.Destroy()
		e.enc = nil
	}
	return nil
}
