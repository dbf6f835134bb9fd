package decoder

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/streamshim/rtcbridge/internal/engine"
	"github.com/streamshim/rtcbridge/pkg/codec"
	"github.com/streamshim/rtcbridge/pkg/frame"
)

// maxOpusFrameMs is the longest frame duration a single Opus packet can
// carry.
const maxOpusFrameMs = 120

// opusDecoder wraps the engine's synchronous Opus decoder.
type opusDecoder struct {
	dec        *engine.AudioDecoder
	sampleRate int
	channels   int
	closed     atomic.Bool
	mu         sync.Mutex
}

// NewOpusDecoder creates an Opus decoder.
func NewOpusDecoder(sampleRate, channels int) (AudioDecoder, error) {
	switch sampleRate {
	case 8000, 12000, 16000, 24000, 48000:
	default:
		return nil, ErrInvalidData
	}
	if channels < 1 || channels > 2 {
		return nil, ErrInvalidData
	}

	dec, err := engine.CreateAudioDecoder(int32(sampleRate), int32(channels))
	if err != nil {
		return nil, fmt.Errorf("create opus decoder: %w", err)
	}
	return &opusDecoder{dec: dec, sampleRate: sampleRate, channels: channels}, nil
}

func (d *opusDecoder) DecodeInto(src []byte, dst *frame.AudioFrame) (int, error) {
	if d.closed.Load() {
		return 0, ErrDecoderClosed
	}
	if len(src) == 0 {
		return 0, ErrInvalidData
	}
	if dst == nil || len(dst.Samples) == 0 {
		return 0, ErrInvalidData
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dec == nil {
		return 0, ErrDecoderClosed
	}

	total, err := d.dec.DecodeInto(src, dst.Samples)
	if err != nil {
		return 0, err
	}

	perChannel := total / d.channels
	dst.SampleRate = d.sampleRate
	dst.Channels = d.channels
	dst.NumSamples = perChannel
	return perChannel, nil
}

func (d *opusDecoder) MaxSamplesPerFrame() int {
	return d.sampleRate * maxOpusFrameMs / 1000
}

func (d *opusDecoder) Codec() codec.Type {
	return codec.Opus
}

func (d *opusDecoder) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dec != nil {
		d.dec.Destroy()
		d.dec = nil
	}
	return nil
}
