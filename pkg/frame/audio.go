package frame

import (
	"sync"
	"time"
)

// AudioFrame represents raw audio as interleaved signed 16-bit samples.
type AudioFrame struct {
	// SampleRate is the audio sample rate in Hz.
	SampleRate int

	// Channels is the number of audio channels.
	Channels int

	// Samples contains interleaved int16 samples.
	Samples []int16

	// NumSamples is the number of samples per channel.
	NumSamples int

	// Timestamp is the presentation timestamp.
	Timestamp time.Duration

	// PTS is the RTP timestamp.
	PTS uint32

	// pool is the pool this frame belongs to (for recycling).
	pool *AudioFramePool
}

// NewAudioFrame creates an audio frame with an allocated sample buffer.
func NewAudioFrame(sampleRate, channels, numSamples int) *AudioFrame {
	return &AudioFrame{
		SampleRate: sampleRate,
		Channels:   channels,
		NumSamples: numSamples,
		Samples:    make([]int16, numSamples*channels),
	}
}

// Duration returns the duration of the audio in this frame.
func (f *AudioFrame) Duration() time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(f.NumSamples) * time.Second / time.Duration(f.SampleRate)
}

// Clone creates a deep copy of the frame. The copy does not belong to a
// pool.
func (f *AudioFrame) Clone() *AudioFrame {
	clone := &AudioFrame{
		SampleRate: f.SampleRate,
		Channels:   f.Channels,
		NumSamples: f.NumSamples,
		Timestamp:  f.Timestamp,
		PTS:        f.PTS,
		Samples:    make([]int16, len(f.Samples)),
	}
	copy(clone.Samples, f.Samples)
	return clone
}

// Release returns the frame to its pool for reuse.
func (f *AudioFrame) Release() {
	if f.pool != nil {
		f.pool.Put(f)
	}
}

// AudioFramePool manages reusable audio frames to reduce allocations.
type AudioFramePool struct {
	mu         sync.Mutex
	frames     []*AudioFrame
	maxSize    int
	sampleRate int
	channels   int
	numSamples int
}

// NewAudioFramePool creates a pool for audio frames of a fixed shape.
func NewAudioFramePool(sampleRate, channels, numSamples, poolSize int) *AudioFramePool {
	pool := &AudioFramePool{
		maxSize:    poolSize,
		sampleRate: sampleRate,
		channels:   channels,
		numSamples: numSamples,
		frames:     make([]*AudioFrame, 0, poolSize),
	}
	for i := 0; i < poolSize; i++ {
		f := NewAudioFrame(sampleRate, channels, numSamples)
		f.pool = pool
		pool.frames = append(pool.frames, f)
	}
	return pool
}

// Get returns a frame from the pool or allocates a new one.
func (p *AudioFramePool) Get() *AudioFrame {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.frames); n > 0 {
		f := p.frames[n-1]
		p.frames = p.frames[:n-1]
		f.Timestamp = 0
		f.PTS = 0
		return f
	}

	f := NewAudioFrame(p.sampleRate, p.channels, p.numSamples)
	f.pool = p
	return f
}

// Put returns a frame to the pool.
func (p *AudioFramePool) Put(f *AudioFrame) {
	if f == nil || f.pool != p {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.frames) < p.maxSize {
		p.frames = append(p.frames, f)
	}
}
