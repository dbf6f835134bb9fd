// Package frame provides video and audio frame types for media processing.
package frame

import (
	"sync"
	"time"
)

// VideoFrame represents a raw video frame in I420 planar layout.
type VideoFrame struct {
	// Width of the frame in pixels.
	Width int

	// Height of the frame in pixels.
	Height int

	// Data contains the [Y, U, V] planes.
	Data [][]byte

	// Stride is the number of bytes per row for each plane.
	Stride []int

	// Timestamp is the presentation timestamp.
	Timestamp time.Duration

	// PTS is the RTP timestamp (90kHz clock).
	PTS uint32

	// IsKeyframe indicates if this frame was decoded from an I-frame.
	IsKeyframe bool

	// pool is the pool this frame belongs to (for recycling).
	pool *VideoFramePool
}

// NewI420Frame creates a video frame with tightly packed plane buffers.
func NewI420Frame(width, height int) *VideoFrame {
	ySize := width * height
	uvWidth := (width + 1) / 2
	uvHeight := (height + 1) / 2
	uvSize := uvWidth * uvHeight

	return &VideoFrame{
		Width:  width,
		Height: height,
		Data: [][]byte{
			make([]byte, ySize),
			make([]byte, uvSize),
			make([]byte, uvSize),
		},
		Stride: []int{width, uvWidth, uvWidth},
	}
}

// YPlane returns the Y plane data.
func (f *VideoFrame) YPlane() []byte {
	if len(f.Data) > 0 {
		return f.Data[0]
	}
	return nil
}

// UPlane returns the U plane data.
func (f *VideoFrame) UPlane() []byte {
	if len(f.Data) > 1 {
		return f.Data[1]
	}
	return nil
}

// VPlane returns the V plane data.
func (f *VideoFrame) VPlane() []byte {
	if len(f.Data) > 2 {
		return f.Data[2]
	}
	return nil
}

// FillFromPacked copies a tightly packed I420 buffer into the frame's
// planes. Returns false when the frame's buffers don't match the geometry.
func (f *VideoFrame) FillFromPacked(packed []byte, width, height int) bool {
	ySize := width * height
	uvWidth := (width + 1) / 2
	uvHeight := (height + 1) / 2
	uvSize := uvWidth * uvHeight

	if len(packed) < ySize+2*uvSize || len(f.Data) != 3 {
		return false
	}
	if len(f.Data[0]) < ySize || len(f.Data[1]) < uvSize || len(f.Data[2]) < uvSize {
		return false
	}

	copy(f.Data[0][:ySize], packed[:ySize])
	copy(f.Data[1][:uvSize], packed[ySize:ySize+uvSize])
	copy(f.Data[2][:uvSize], packed[ySize+uvSize:ySize+2*uvSize])

	f.Width = width
	f.Height = height
	f.Stride[0] = width
	f.Stride[1] = uvWidth
	f.Stride[2] = uvWidth
	return true
}

// Clone creates a deep copy of the frame. The copy does not belong to a
// pool.
func (f *VideoFrame) Clone() *VideoFrame {
	clone := &VideoFrame{
		Width:      f.Width,
		Height:     f.Height,
		Timestamp:  f.Timestamp,
		PTS:        f.PTS,
		IsKeyframe: f.IsKeyframe,
		Data:       make([][]byte, len(f.Data)),
		Stride:     make([]int, len(f.Stride)),
	}
	for i, plane := range f.Data {
		clone.Data[i] = make([]byte, len(plane))
		copy(clone.Data[i], plane)
	}
	copy(clone.Stride, f.Stride)
	return clone
}

// Release returns the frame to its pool for reuse. After calling Release,
// the frame must not be used.
func (f *VideoFrame) Release() {
	if f.pool != nil {
		f.pool.Put(f)
	}
}

// VideoFramePool manages reusable video frames to reduce allocations.
type VideoFramePool struct {
	mu      sync.Mutex
	frames  []*VideoFrame
	maxSize int
	width   int
	height  int
}

// NewVideoFramePool creates a pool for I420 frames of a fixed geometry.
func NewVideoFramePool(width, height, poolSize int) *VideoFramePool {
	pool := &VideoFramePool{
		maxSize: poolSize,
		width:   width,
		height:  height,
		frames:  make([]*VideoFrame, 0, poolSize),
	}
	for i := 0; i < poolSize; i++ {
		f := NewI420Frame(width, height)
		f.pool = pool
		pool.frames = append(pool.frames, f)
	}
	return pool
}

// Get returns a frame from the pool or allocates a new one.
func (p *VideoFramePool) Get() *VideoFrame {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.frames); n > 0 {
		f := p.frames[n-1]
		p.frames = p.frames[:n-1]
		f.Timestamp = 0
		f.PTS = 0
		f.IsKeyframe = false
		return f
	}

	f := NewI420Frame(p.width, p.height)
	f.pool = p
	return f
}

// Put returns a frame to the pool.
func (p *VideoFramePool) Put(f *VideoFrame) {
	if f == nil || f.pool != p {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.frames) < p.maxSize {
		p.frames = append(p.frames, f)
	}
}
