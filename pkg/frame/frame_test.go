package frame

import (
	"testing"
	"time"
)

func TestNewI420Frame(t *testing.T) {
	f := NewI420Frame(640, 480)
	if f.Width != 640 || f.Height != 480 {
		t.Fatalf("geometry = %dx%d", f.Width, f.Height)
	}
	if len(f.Data) != 3 {
		t.Fatalf("plane count = %d", len(f.Data))
	}
	if len(f.Data[0]) != 640*480 {
		t.Errorf("Y size = %d", len(f.Data[0]))
	}
	if len(f.Data[1]) != 320*240 || len(f.Data[2]) != 320*240 {
		t.Errorf("chroma sizes = %d, %d", len(f.Data[1]), len(f.Data[2]))
	}
	if f.Stride[0] != 640 || f.Stride[1] != 320 || f.Stride[2] != 320 {
		t.Errorf("strides = %v", f.Stride)
	}
}

func TestI420OddDimensions(t *testing.T) {
	f := NewI420Frame(641, 481)
	if len(f.Data[1]) != 321*241 {
		t.Errorf("odd chroma size = %d, want %d", len(f.Data[1]), 321*241)
	}
}

func TestFillFromPacked(t *testing.T) {
	const w, h = 4, 2
	packed := make([]byte, w*h+2*2*1)
	for i := range packed {
		packed[i] = byte(i + 1)
	}

	f := NewI420Frame(w, h)
	if !f.FillFromPacked(packed, w, h) {
		t.Fatal("FillFromPacked failed")
	}
	if f.Data[0][0] != 1 || f.Data[0][w*h-1] != byte(w*h) {
		t.Errorf("Y plane = %v", f.Data[0])
	}
	if f.Data[1][0] != byte(w*h+1) {
		t.Errorf("U plane = %v", f.Data[1])
	}
	if f.Data[2][0] != byte(w*h+2+1) {
		t.Errorf("V plane = %v", f.Data[2])
	}
}

func TestFillFromPackedTooSmall(t *testing.T) {
	f := NewI420Frame(4, 4)
	if f.FillFromPacked(make([]byte, 8), 4, 4) {
		t.Error("short packed buffer should be rejected")
	}
	// Frame buffers smaller than the incoming geometry.
	small := NewI420Frame(2, 2)
	if small.FillFromPacked(make([]byte, 4*4*3/2), 4, 4) {
		t.Error("undersized frame should be rejected")
	}
}

func TestVideoFrameClone(t *testing.T) {
	f := NewI420Frame(4, 4)
	f.PTS = 9000
	f.IsKeyframe = true
	f.Data[0][0] = 0xAB

	c := f.Clone()
	if c.PTS != 9000 || !c.IsKeyframe || c.Data[0][0] != 0xAB {
		t.Error("clone lost data")
	}

	c.Data[0][0] = 0xCD
	if f.Data[0][0] != 0xAB {
		t.Error("clone shares plane memory with original")
	}
}

func TestVideoFramePoolRecycle(t *testing.T) {
	pool := NewVideoFramePool(16, 16, 2)

	a := pool.Get()
	a.PTS = 123
	a.IsKeyframe = true
	a.Release()

	b := pool.Get()
	if b.PTS != 0 || b.IsKeyframe {
		t.Error("recycled frame kept stale metadata")
	}
	if b != a {
		t.Error("pool did not recycle the released frame")
	}
}

func TestVideoFramePoolExhaustion(t *testing.T) {
	pool := NewVideoFramePool(8, 8, 1)
	a := pool.Get()
	b := pool.Get() // beyond preallocated size
	if b == nil || len(b.Data[0]) != 64 {
		t.Fatal("exhausted pool should still allocate")
	}
	a.Release()
	b.Release()
}

func TestAudioFrameDuration(t *testing.T) {
	f := NewAudioFrame(48000, 2, 960)
	if len(f.Samples) != 1920 {
		t.Errorf("sample buffer = %d, want 1920", len(f.Samples))
	}
	if f.Duration() != 20*time.Millisecond {
		t.Errorf("Duration = %v, want 20ms", f.Duration())
	}

	var zero AudioFrame
	if zero.Duration() != 0 {
		t.Error("zero frame should have zero duration")
	}
}

func TestAudioFramePoolRecycle(t *testing.T) {
	pool := NewAudioFramePool(48000, 1, 480, 1)

	a := pool.Get()
	a.PTS = 77
	a.Release()

	b := pool.Get()
	if b != a || b.PTS != 0 {
		t.Error("pool did not recycle with reset metadata")
	}
}
