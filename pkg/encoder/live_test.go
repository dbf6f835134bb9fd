package encoder

import (
	"errors"
	"testing"

	"github.com/streamshim/rtcbridge/internal/engine"
	"github.com/streamshim/rtcbridge/pkg/codec"
	"github.com/streamshim/rtcbridge/pkg/frame"
)

// requireEngine initializes the native engine or skips the test when the
// library is not available on this machine.
func requireEngine(t *testing.T) {
	t.Helper()
	if err := engine.Initialize(engine.Options{}); err != nil {
		t.Skipf("engine unavailable: %v", err)
	}
}

// encodeUntilOutput feeds the same frame until the encoder produces output,
// tolerating pipeline warm-up.
func encodeUntilOutput(t *testing.T, enc VideoEncoder, src *frame.VideoFrame, dst []byte) EncodeResult {
	t.Helper()
	for attempt := 0; attempt < 10; attempt++ {
		src.PTS += 3000
		res, err := enc.EncodeInto(src, dst, attempt == 0)
		if errors.Is(err, ErrNeedMoreData) {
			continue
		}
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		return res
	}
	t.Fatal("encoder produced no output after 10 frames")
	return EncodeResult{}
}

func TestLiveH264EncodeProducesKeyframe(t *testing.T) {
	requireEngine(t)

	enc, err := NewVideoEncoder(codec.H264, codec.VideoConfig{
		Width:   640,
		Height:  480,
		Bitrate: 500_000,
		FPS:     30,
	})
	if err != nil {
		t.Skipf("no H264 encoder on this machine: %v", err)
	}
	defer enc.Close()

	// Flat gray compresses to almost nothing but still exercises the full
	// pipeline.
	src := frame.NewI420Frame(640, 480)
	for p := range src.Data {
		for i := range src.Data[p] {
			src.Data[p][i] = 128
		}
	}
	dst := make([]byte, enc.MaxEncodedSize())

	res := encodeUntilOutput(t, enc, src, dst)
	if res.N == 0 {
		t.Fatal("empty encoded frame")
	}
	if !res.IsKeyframe {
		t.Error("first encoded frame should be a keyframe")
	}

	src.PTS += 3000
	res, err = enc.EncodeInto(src, dst, false)
	if errors.Is(err, ErrNeedMoreData) {
		t.Skip("encoder buffered the delta frame")
	}
	if err != nil {
		t.Fatalf("second encode: %v", err)
	}
	if res.IsKeyframe {
		t.Error("second frame should be a delta frame")
	}
}

func TestLiveOpusEncodeRoundSize(t *testing.T) {
	requireEngine(t)

	enc, err := NewOpusEncoder(codec.DefaultOpusConfig())
	if err != nil {
		t.Skipf("no Opus encoder on this machine: %v", err)
	}
	defer enc.Close()

	src := frame.NewAudioFrame(48000, 2, 960) // one 20ms frame
	dst := make([]byte, enc.MaxEncodedSize())
	n, err := enc.EncodeInto(src, dst)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if n <= 0 || n > enc.MaxEncodedSize() {
		t.Errorf("encoded size = %d", n)
	}
}
