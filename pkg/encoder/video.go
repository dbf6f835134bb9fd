package encoder

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/streamshim/rtcbridge/internal/engine"
	"github.com/streamshim/rtcbridge/internal/openh264"
	"github.com/streamshim/rtcbridge/pkg/codec"
	"github.com/streamshim/rtcbridge/pkg/frame"
)

// Backend names reported by videoEncoder.Backend.
const (
	backendNative   = "native"
	backendOpenH264 = "openh264"
)

// videoBackend is one encoder implementation behind the VideoEncoder
// surface. Calls are serialized by the owning videoEncoder.
type videoBackend interface {
	encodeInto(src *frame.VideoFrame, forceKeyframe bool, dst []byte) (n int, isKeyframe bool, err error)
	setRates(bitrateBps uint32, framerate float32) error
	destroy()
}

// Selection seams. Tests swap these to exercise the backend policy without
// native libraries present.
var (
	newNativeVideoBackend = func(codecType codec.Type, cfg codec.VideoConfig, preferHW bool) (videoBackend, error) {
		return createNativeVideoBackend(codecType, cfg, preferHW)
	}
	newProviderVideoBackend = func(cfg codec.VideoConfig) (videoBackend, error) {
		return createProviderVideoBackend(cfg)
	}
	providerEncoderAvailable = openh264.EncoderAvailable
	nativeAccelerated        = func() bool { return engine.HasAcceleratedH264() }
	preferSoftwarePolicy     = engine.PreferSoftwareCodecs
)

// videoEncoder is the generic video encoder implementation.
type videoEncoder struct {
	backend       videoBackend
	backendName   string
	codecType     codec.Type
	width, height int
	bitrate       uint32
	framerate     float32
	closed        atomic.Bool
	forceKeyframe atomic.Bool
	mu            sync.Mutex
}

// NewVideoEncoder creates a video encoder for any supported codec.
//
// For H264 the software provider is used when the caller or the process
// policy asks for software, or when the platform has no accelerated H264,
// and the provider library can be loaded. Everything else goes to the
// native engine.
func NewVideoEncoder(codecType codec.Type, cfg codec.VideoConfig) (VideoEncoder, error) {
	if !codecType.IsVideo() {
		return nil, ErrUnsupportedCodec
	}
	if err := validateVideoConfig(cfg); err != nil {
		return nil, err
	}

	backend, name, err := selectVideoBackend(codecType, cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s encoder: %w", codecType, err)
	}

	return &videoEncoder{
		backend:     backend,
		backendName: name,
		codecType:   codecType,
		width:       cfg.Width,
		height:      cfg.Height,
		bitrate:     cfg.BitrateOrDefault(),
		framerate:   float32(cfg.FPSOrDefault()),
	}, nil
}

func validateVideoConfig(cfg codec.VideoConfig) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ErrInvalidConfig
	}
	if cfg.Width > 8192 || cfg.Height > 8192 {
		return ErrInvalidConfig
	}
	if cfg.FPS < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// selectVideoBackend applies the backend policy and constructs the chosen
// implementation.
func selectVideoBackend(codecType codec.Type, cfg codec.VideoConfig) (videoBackend, string, error) {
	if codecType == codec.H264 {
		wantSoftware := cfg.PreferSoftware || preferSoftwarePolicy() || !nativeAccelerated()
		if wantSoftware && providerEncoderAvailable() {
			if b, err := newProviderVideoBackend(cfg); err == nil {
				return b, backendOpenH264, nil
			}
			// Provider init failure falls through to the native engine.
		}
	}

	b, err := newNativeVideoBackend(codecType, cfg, cfg.PreferHW)
	if err != nil && codecType == codec.H264 &&
		(errors.Is(err, engine.ErrInitFailed) || errors.Is(err, engine.ErrNotSupported)) {
		// The engine rejected the requested H264 implementation. Retry once
		// with the opposite hardware preference before giving up.
		b, err = newNativeVideoBackend(codecType, cfg, !cfg.PreferHW)
	}
	if err != nil {
		return nil, "", err
	}
	return b, backendNative, nil
}

func (e *videoEncoder) EncodeInto(src *frame.VideoFrame, dst []byte, forceKeyframe bool) (EncodeResult, error) {
	if e.closed.Load() {
		return EncodeResult{}, ErrEncoderClosed
	}
	if src == nil || len(src.Data) != 3 || len(src.Stride) != 3 {
		return EncodeResult{}, ErrInvalidFrame
	}
	if len(dst) < e.MaxEncodedSize() {
		return EncodeResult{}, ErrBufferTooSmall
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.backend == nil {
		return EncodeResult{}, ErrEncoderClosed
	}

	// Consume the one-shot flag only once the call is going to reach the
	// backend, so a request racing Close is not silently lost.
	if e.forceKeyframe.Swap(false) {
		forceKeyframe = true
	}

	n, isKeyframe, err := e.backend.encodeInto(src, forceKeyframe, dst)
	if err != nil {
		return EncodeResult{}, err
	}
	return EncodeResult{N: n, IsKeyframe: isKeyframe}, nil
}

func (e *videoEncoder) MaxEncodedSize() int {
	return e.width * e.height * 3 / 2
}

func (e *videoEncoder) SetBitrate(bps uint32) error {
	if e.closed.Load() {
		return ErrEncoderClosed
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend == nil {
		return ErrEncoderClosed
	}
	if err := e.backend.setRates(bps, e.framerate); err != nil {
		return err
	}
	e.bitrate = bps
	return nil
}

func (e *videoEncoder) SetFramerate(fps float64) error {
	if e.closed.Load() {
		return ErrEncoderClosed
	}
	if fps <= 0 {
		return ErrInvalidConfig
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend == nil {
		return ErrEncoderClosed
	}
	if err := e.backend.setRates(e.bitrate, float32(fps)); err != nil {
		return err
	}
	e.framerate = float32(fps)
	return nil
}

func (e *videoEncoder) RequestKeyFrame() {
	e.forceKeyframe.Store(true)
}

func (e *videoEncoder) Codec() codec.Type {
	return e.codecType
}

// Backend reports which implementation is behind this encoder, "native" or
// "openh264".
func (e *videoEncoder) Backend() string {
	return e.backendName
}

func (e *videoEncoder) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend != nil {
		e.backend.destroy()
		e.backend = nil
	}
	return nil
}

// nativeVideoBackend runs the engine's encoder, hardware or software per the
// engine's own pick.
type nativeVideoBackend struct {
	enc *engine.VideoEncoder
}

func createNativeVideoBackend(codecType codec.Type, cfg codec.VideoConfig, preferHW bool) (videoBackend, error) {
	ffiCfg := &engine.VideoEncoderConfig{
		Width:            int32(cfg.Width),
		Height:           int32(cfg.Height),
		BitrateBps:       cfg.BitrateOrDefault(),
		Framerate:        float32(cfg.FPSOrDefault()),
		KeyframeInterval: int32(cfg.KeyIntervalOrDefault()),
		PreferHW:         boolToInt32(preferHW),
	}

	var profileBytes []byte
	switch codecType {
	case codec.H264:
		profile := string(cfg.Profile)
		if profile == "" {
			profile = string(codec.H264ProfileConstrainedBase)
		}
		profileBytes = engine.CString(profile)
		ffiCfg.H264Profile = &profileBytes[0]
	case codec.VP9:
		ffiCfg.VP9Profile = int32(cfg.VP9Profile)
	}

	enc, err := engine.CreateVideoEncoder(engineCodecType(codecType), ffiCfg)
	runtime.KeepAlive(profileBytes)
	if err != nil {
		return nil, err
	}
	return &nativeVideoBackend{enc: enc}, nil
}

func (b *nativeVideoBackend) encodeInto(src *frame.VideoFrame, forceKeyframe bool, dst []byte) (int, bool, error) {
	out, err := b.enc.Encode(
		src.Data[0], src.Data[1], src.Data[2],
		src.Stride[0], src.Stride[1], src.Stride[2],
		src.PTS, forceKeyframe,
	)
	if err != nil {
		return 0, false, err
	}
	if len(out.Data) > len(dst) {
		return 0, false, ErrBufferTooSmall
	}
	return copy(dst, out.Data), out.Keyframe, nil
}

func (b *nativeVideoBackend) setRates(bitrateBps uint32, framerate float32) error {
	return b.enc.SetRates(bitrateBps, framerate)
}

func (b *nativeVideoBackend) destroy() {
	b.enc.Destroy()
}

// providerVideoBackend runs the standalone OpenH264 bridge.
type providerVideoBackend struct {
	enc *openh264.Encoder
}

func createProviderVideoBackend(cfg codec.VideoConfig) (videoBackend, error) {
	enc, err := openh264.NewEncoder(openh264.Config{
		Width:            cfg.Width,
		Height:           cfg.Height,
		BitrateBps:       cfg.BitrateOrDefault(),
		Framerate:        float32(cfg.FPSOrDefault()),
		KeyframeInterval: cfg.KeyIntervalOrDefault(),
	})
	if err != nil {
		return nil, err
	}
	return &providerVideoBackend{enc: enc}, nil
}

func (b *providerVideoBackend) encodeInto(src *frame.VideoFrame, forceKeyframe bool, dst []byte) (int, bool, error) {
	n, isKeyframe, err := b.enc.EncodeInto(
		src.Data[0], src.Data[1], src.Data[2],
		src.Stride[0], src.Stride[1], src.Stride[2],
		forceKeyframe, dst,
	)
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, ErrNeedMoreData
	}
	return n, isKeyframe, nil
}

func (b *providerVideoBackend) setRates(bitrateBps uint32, framerate float32) error {
	return b.enc.SetRates(bitrateBps, framerate)
}

func (b *providerVideoBackend) destroy() {
	b.enc.Destroy()
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
