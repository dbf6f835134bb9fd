package decoder

import (
	"errors"
	"testing"

	"github.com/streamshim/rtcbridge/internal/openh264"
	"github.com/streamshim/rtcbridge/pkg/codec"
	"github.com/streamshim/rtcbridge/pkg/frame"
)

// fakeDecodeBackend records calls and writes a fixed frame into dst.
type fakeDecodeBackend struct {
	decodeCalls int
	width       int
	height      int
	fill        byte
	decodeErr   error
	destroyed   bool
}

func (f *fakeDecodeBackend) decodeInto(src []byte, timestamp uint32, dst *frame.VideoFrame) error {
	f.decodeCalls++
	if f.decodeErr != nil {
		return f.decodeErr
	}
	packed := make([]byte, f.width*f.height*3/2)
	for i := range packed {
		packed[i] = f.fill
	}
	if !dst.FillFromPacked(packed, f.width, f.height) {
		return ErrBufferTooSmall
	}
	return nil
}

func (f *fakeDecodeBackend) destroy() { f.destroyed = true }

// decodeSelectionEnv swaps the backend seams and restores them when the test
// ends.
type decodeSelectionEnv struct {
	providerAvailable bool
	softwarePolicy    bool
	accelerated       bool

	providerErr error
	nativeErr   error

	providerCalls int
	nativeCalls   int

	provider *fakeDecodeBackend
	native   *fakeDecodeBackend
}

func installDecodeSelection(t *testing.T, env *decodeSelectionEnv) {
	t.Helper()

	origNative := newNativeVideoDecodeBackend
	origProvider := newProviderVideoDecodeBackend
	origAvail := providerDecoderAvailable
	origAccel := nativeAccelerated
	origPolicy := preferSoftwarePolicy
	t.Cleanup(func() {
		newNativeVideoDecodeBackend = origNative
		newProviderVideoDecodeBackend = origProvider
		providerDecoderAvailable = origAvail
		nativeAccelerated = origAccel
		preferSoftwarePolicy = origPolicy
	})

	env.provider = &fakeDecodeBackend{width: 64, height: 64, fill: 0x11}
	env.native = &fakeDecodeBackend{width: 64, height: 64, fill: 0x22}

	providerDecoderAvailable = func() bool { return env.providerAvailable }
	nativeAccelerated = func() bool { return env.accelerated }
	preferSoftwarePolicy = func() bool { return env.softwarePolicy }
	newProviderVideoDecodeBackend = func() (videoDecodeBackend, error) {
		env.providerCalls++
		if env.providerErr != nil {
			return nil, env.providerErr
		}
		return env.provider, nil
	}
	newNativeVideoDecodeBackend = func(codecType codec.Type) (videoDecodeBackend, error) {
		env.nativeCalls++
		if env.nativeErr != nil {
			return nil, env.nativeErr
		}
		return env.native, nil
	}
}

func newTestDecoder(t *testing.T, codecType codec.Type) *videoDecoder {
	t.Helper()
	dec, err := NewVideoDecoder(codecType)
	if err != nil {
		t.Fatalf("NewVideoDecoder: %v", err)
	}
	t.Cleanup(func() { dec.Close() })
	return dec.(*videoDecoder)
}

func TestH264DecoderSelectsProviderWithoutAcceleration(t *testing.T) {
	env := &decodeSelectionEnv{providerAvailable: true, accelerated: false}
	installDecodeSelection(t, env)

	dec := newTestDecoder(t, codec.H264)
	if dec.Backend() != backendOpenH264 {
		t.Errorf("backend = %q, want %q", dec.Backend(), backendOpenH264)
	}
	if env.nativeCalls != 0 {
		t.Errorf("native constructed %d times, want 0", env.nativeCalls)
	}
}

func TestH264DecoderSelectsNativeWhenAccelerated(t *testing.T) {
	env := &decodeSelectionEnv{providerAvailable: true, accelerated: true}
	installDecodeSelection(t, env)

	dec := newTestDecoder(t, codec.H264)
	if dec.Backend() != backendNative {
		t.Errorf("backend = %q, want %q", dec.Backend(), backendNative)
	}
	if env.providerCalls != 0 {
		t.Error("provider should not be constructed on accelerated platforms")
	}
}

func TestH264DecoderProviderFailureFallsToNative(t *testing.T) {
	env := &decodeSelectionEnv{
		providerAvailable: true,
		accelerated:       false,
		providerErr:       errors.New("bridge load failed"),
	}
	installDecodeSelection(t, env)

	dec := newTestDecoder(t, codec.H264)
	if dec.Backend() != backendNative {
		t.Errorf("backend = %q, want %q", dec.Backend(), backendNative)
	}
}

func TestSoftwareH264DecoderDoesNotFallBack(t *testing.T) {
	env := &decodeSelectionEnv{
		providerAvailable: true,
		accelerated:       true,
		providerErr:       errors.New("bridge load failed"),
	}
	installDecodeSelection(t, env)

	if _, err := NewSoftwareH264Decoder(); err == nil {
		t.Fatal("forced software decoder should fail when the provider fails")
	}
	if env.nativeCalls != 0 {
		t.Error("forced software decoder must not construct the native backend")
	}
}

func TestSoftwareH264DecoderRequiresProvider(t *testing.T) {
	env := &decodeSelectionEnv{providerAvailable: false}
	installDecodeSelection(t, env)

	if _, err := NewSoftwareH264Decoder(); !errors.Is(err, openh264.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestVP8DecoderNeverUsesProvider(t *testing.T) {
	env := &decodeSelectionEnv{providerAvailable: true, softwarePolicy: true}
	installDecodeSelection(t, env)

	dec := newTestDecoder(t, codec.VP8)
	if dec.Backend() != backendNative {
		t.Errorf("backend = %q, want %q", dec.Backend(), backendNative)
	}
	if env.providerCalls != 0 {
		t.Error("provider must stay out of non-H264 codecs")
	}
}

func TestNewVideoDecoderRejectsAudioCodec(t *testing.T) {
	installDecodeSelection(t, &decodeSelectionEnv{})
	if _, err := NewVideoDecoder(codec.Opus); !errors.Is(err, ErrUnsupportedCodec) {
		t.Errorf("err = %v, want ErrUnsupportedCodec", err)
	}
}

func TestDecodeIntoFillsFrame(t *testing.T) {
	env := &decodeSelectionEnv{providerAvailable: false}
	installDecodeSelection(t, env)
	dec := newTestDecoder(t, codec.H264)

	dst := frame.NewI420Frame(64, 64)
	if err := dec.DecodeInto([]byte{0x01}, dst, 9000, true); err != nil {
		t.Fatalf("DecodeInto: %v", err)
	}
	if dst.PTS != 9000 || !dst.IsKeyframe {
		t.Errorf("metadata: PTS=%d keyframe=%v", dst.PTS, dst.IsKeyframe)
	}
	if dst.Data[0][0] != 0x22 {
		t.Errorf("Y plane byte = %#x, want backend fill", dst.Data[0][0])
	}
}

func TestDecodeIntoValidation(t *testing.T) {
	installDecodeSelection(t, &decodeSelectionEnv{})
	dec := newTestDecoder(t, codec.H264)

	dst := frame.NewI420Frame(64, 64)
	if err := dec.DecodeInto(nil, dst, 0, false); !errors.Is(err, ErrInvalidData) {
		t.Errorf("empty src: err = %v", err)
	}
	if err := dec.DecodeInto([]byte{0x01}, nil, 0, false); !errors.Is(err, ErrInvalidData) {
		t.Errorf("nil dst: err = %v", err)
	}
}

func TestDecodeIntoUndersizedFrame(t *testing.T) {
	env := &decodeSelectionEnv{providerAvailable: false}
	installDecodeSelection(t, env)
	dec := newTestDecoder(t, codec.H264)

	dst := frame.NewI420Frame(16, 16) // backend produces 64x64
	if err := dec.DecodeInto([]byte{0x01}, dst, 0, false); !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("err = %v, want ErrBufferTooSmall", err)
	}
}

func TestDecodeNeedMoreDataPassthrough(t *testing.T) {
	env := &decodeSelectionEnv{providerAvailable: false}
	installDecodeSelection(t, env)
	dec := newTestDecoder(t, codec.H264)
	env.native.decodeErr = ErrNeedMoreData

	dst := frame.NewI420Frame(64, 64)
	err := dec.DecodeInto([]byte{0x01}, dst, 0, false)
	if !errors.Is(err, ErrNeedMoreData) {
		t.Errorf("err = %v, want ErrNeedMoreData", err)
	}
	if dst.PTS != 0 {
		t.Error("metadata must not be set when no frame was produced")
	}
}

func TestDecoderCloseIsIdempotentAndBlocksUse(t *testing.T) {
	env := &decodeSelectionEnv{providerAvailable: false}
	installDecodeSelection(t, env)
	dec := newTestDecoder(t, codec.H264)

	if err := dec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := dec.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !env.native.destroyed {
		t.Error("backend not destroyed")
	}

	dst := frame.NewI420Frame(64, 64)
	if err := dec.DecodeInto([]byte{0x01}, dst, 0, false); !errors.Is(err, ErrDecoderClosed) {
		t.Errorf("decode after close: err = %v", err)
	}
}

func TestNewOpusDecoderValidation(t *testing.T) {
	if _, err := NewOpusDecoder(44100, 2); !errors.Is(err, ErrInvalidData) {
		t.Errorf("bad sample rate: err = %v", err)
	}
	if _, err := NewOpusDecoder(48000, 3); !errors.Is(err, ErrInvalidData) {
		t.Errorf("bad channels: err = %v", err)
	}
	if _, err := NewAudioDecoder(codec.H264, 48000, 2); !errors.Is(err, ErrUnsupportedCodec) {
		t.Errorf("video codec: err = %v", err)
	}
}
