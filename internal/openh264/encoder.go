//go:build darwin || linux

package openh264

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/streamshim/rtcbridge/internal/engine"
)

// Encoder is a software H264 encoder instance. Calls must be serialized by
// the owner; the bridge runs synchronously on the calling thread.
type Encoder struct {
	h uintptr
}

// NewEncoder constructs a provider encoder.
func NewEncoder(cfg Config) (*Encoder, error) {
	if err := load(); err != nil {
		return nil, err
	}
	if oh264EncoderAvailable() == 0 {
		return nil, ErrUnavailable
	}

	h := oh264EncoderCreate(
		int32(cfg.Width), int32(cfg.Height),
		cfg.BitrateBps, cfg.Framerate,
		int32(cfg.KeyframeInterval),
	)
	if h == 0 {
		return nil, fmt.Errorf("create openh264 encoder: %s", lastError())
	}
	return &Encoder{h: h}, nil
}

// EncodeInto encodes one I420 frame into dst and returns the bytes written
// plus whether the output is a keyframe. A zero return with nil error means
// the encoder buffered the frame; callers map that to need-more-data.
func (e *Encoder) EncodeInto(y, u, v []byte, yStride, uStride, vStride int, forceKeyframe bool, dst []byte) (int, bool, error) {
	var kf int32
	if forceKeyframe {
		kf = 1
	}

	// Heap-allocated out param; stack variables can move during the C call.
	outKeyframe := new(int32)

	n := oh264EncoderEncode(
		e.h,
		engine.ByteSlicePtr(y), engine.ByteSlicePtr(u), engine.ByteSlicePtr(v),
		int32(yStride), int32(uStride), int32(vStride),
		kf,
		engine.ByteSlicePtr(dst), int32(len(dst)),
		uintptr(unsafe.Pointer(outKeyframe)),
	)
	runtime.KeepAlive(y)
	runtime.KeepAlive(u)
	runtime.KeepAlive(v)
	runtime.KeepAlive(dst)
	runtime.KeepAlive(outKeyframe)

	if n < 0 {
		if n == engine.StatusErrBufferTooSmall {
			return 0, false, engine.ErrBufferTooSmall
		}
		return 0, false, fmt.Errorf("%w: %s", engine.ErrEncodeFailed, lastError())
	}
	return int(n), *outKeyframe != 0, nil
}

// SetRates updates the target bitrate and framerate mid-stream.
func (e *Encoder) SetRates(bitrateBps uint32, framerate float32) error {
	if oh264EncoderSetRates(e.h, bitrateBps, framerate) != 0 {
		return fmt.Errorf("set openh264 rates: %s", lastError())
	}
	return nil
}

// RequestKeyframe asks the bridge to emit a keyframe on the next encode.
func (e *Encoder) RequestKeyframe() {
	if e.h != 0 {
		oh264EncoderRequestKeyframe(e.h)
	}
}

// Destroy releases the bridge instance.
func (e *Encoder) Destroy() {
	if e.h == 0 {
		return
	}
	oh264EncoderDestroy(e.h)
	e.h = 0
}
