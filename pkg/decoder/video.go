package decoder

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/streamshim/rtcbridge/internal/engine"
	"github.com/streamshim/rtcbridge/internal/openh264"
	"github.com/streamshim/rtcbridge/pkg/codec"
	"github.com/streamshim/rtcbridge/pkg/frame"
)

// Backend names reported by videoDecoder.Backend.
const (
	backendNative   = "native"
	backendOpenH264 = "openh264"
)

// videoDecodeBackend is one decoder implementation behind the VideoDecoder
// surface. Calls are serialized by the owning videoDecoder.
type videoDecodeBackend interface {
	decodeInto(src []byte, timestamp uint32, dst *frame.VideoFrame) error
	destroy()
}

// Selection seams. Tests swap these to exercise the backend policy without
// native libraries.
var (
	newNativeVideoDecodeBackend = func(codecType codec.Type) (videoDecodeBackend, error) {
		return createNativeVideoDecodeBackend(codecType)
	}
	newProviderVideoDecodeBackend = func() (videoDecodeBackend, error) {
		return createProviderVideoDecodeBackend()
	}
	providerDecoderAvailable = openh264.DecoderAvailable
	nativeAccelerated        = func() bool { return engine.HasAcceleratedH264() }
	preferSoftwarePolicy     = engine.PreferSoftwareCodecs
)

// videoDecoder is the generic video decoder implementation.
type videoDecoder struct {
	backend     videoDecodeBackend
	backendName string
	codecType   codec.Type
	closed      atomic.Bool
	mu          sync.Mutex
}

func newVideoDecoder(codecType codec.Type, forceSoftware bool) (VideoDecoder, error) {
	backend, name, err := selectVideoDecodeBackend(codecType, forceSoftware)
	if err != nil {
		return nil, fmt.Errorf("create %s decoder: %w", codecType, err)
	}
	return &videoDecoder{
		backend:     backend,
		backendName: name,
		codecType:   codecType,
	}, nil
}

// selectVideoDecodeBackend applies the backend policy and constructs the
// chosen implementation.
func selectVideoDecodeBackend(codecType codec.Type, forceSoftware bool) (videoDecodeBackend, string, error) {
	if codecType == codec.H264 {
		wantSoftware := forceSoftware || preferSoftwarePolicy() || !nativeAccelerated()
		if wantSoftware && providerDecoderAvailable() {
			b, err := newProviderVideoDecodeBackend()
			if err == nil {
				return b, backendOpenH264, nil
			}
			if forceSoftware {
				return nil, "", err
			}
			// Provider init failure falls through to the native engine.
		} else if forceSoftware {
			return nil, "", openh264.ErrUnavailable
		}
	}

	b, err := newNativeVideoDecodeBackend(codecType)
	if err != nil {
		return nil, "", err
	}
	return b, backendNative, nil
}

func (d *videoDecoder) DecodeInto(src []byte, dst *frame.VideoFrame, timestamp uint32, isKeyframe bool) error {
	if d.closed.Load() {
		return ErrDecoderClosed
	}
	if len(src) == 0 {
		return ErrInvalidData
	}
	if dst == nil || len(dst.Data) != 3 {
		return ErrInvalidData
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.backend == nil {
		return ErrDecoderClosed
	}

	if err := d.backend.decodeInto(src, timestamp, dst); err != nil {
		return err
	}
	dst.PTS = timestamp
	dst.IsKeyframe = isKeyframe
	return nil
}

func (d *videoDecoder) Codec() codec.Type {
	return d.codecType
}

// Backend reports which implementation is behind this decoder, "native" or
// "openh264".
func (d *videoDecoder) Backend() string {
	return d.backendName
}

func (d *videoDecoder) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.backend != nil {
		d.backend.destroy()
		d.backend = nil
	}
	return nil
}

// nativeVideoDecodeBackend runs the engine's decoder.
type nativeVideoDecodeBackend struct {
	dec *engine.VideoDecoder
}

func createNativeVideoDecodeBackend(codecType codec.Type) (videoDecodeBackend, error) {
	dec, err := engine.CreateVideoDecoder(engineCodecType(codecType))
	if err != nil {
		return nil, err
	}
	return &nativeVideoDecodeBackend{dec: dec}, nil
}

func (b *nativeVideoDecodeBackend) decodeInto(src []byte, timestamp uint32, dst *frame.VideoFrame) error {
	out, err := b.dec.Decode(src, timestamp)
	if err != nil {
		return err
	}
	if !dst.FillFromPacked(out.Data, int(out.Width), int(out.Height)) {
		return ErrBufferTooSmall
	}
	return nil
}

func (b *nativeVideoDecodeBackend) destroy() {
	b.dec.Destroy()
}

// providerVideoDecodeBackend runs the standalone OpenH264 bridge. The bridge
// emits a packed I420 buffer which is copied into the destination frame's
// planes.
type providerVideoDecodeBackend struct {
	dec     *openh264.Decoder
	scratch []byte
}

func createProviderVideoDecodeBackend() (videoDecodeBackend, error) {
	dec, err := openh264.NewDecoder()
	if err != nil {
		return nil, err
	}
	return &providerVideoDecodeBackend{dec: dec}, nil
}

func (b *providerVideoDecodeBackend) decodeInto(src []byte, timestamp uint32, dst *frame.VideoFrame) error {
	// Size the scratch to the destination's capacity. A decoded frame that
	// does not fit the scratch would not fit the destination either.
	capacity := len(dst.Data[0]) + len(dst.Data[1]) + len(dst.Data[2])
	if cap(b.scratch) < capacity {
		b.scratch = make([]byte, capacity)
	}
	b.scratch = b.scratch[:capacity]

	width, height, err := b.dec.DecodeInto(src, b.scratch)
	if err != nil {
		return err
	}
	if !dst.FillFromPacked(b.scratch, width, height) {
		return ErrBufferTooSmall
	}
	return nil
}

func (b *providerVideoDecodeBackend) destroy() {
	b.dec.Destroy()
}

// engineCodecType maps the public codec type onto the engine's enum.
func engineCodecType(t codec.Type) engine.CodecType {
	switch t {
	case codec.H264:
		return engine.CodecH264
	case codec.VP8:
		return engine.CodecVP8
	case codec.VP9:
		return engine.CodecVP9
	case codec.AV1:
		return engine.CodecAV1
	default:
		return engine.CodecH264
	}
}
