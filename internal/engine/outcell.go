package engine

import (
	"sync"
	"time"
	"unsafe"
)

// OutputWaitTimeout bounds how long a synchronous encode/decode call waits
// for the engine to deliver output through its callback. Encoders and
// decoders are allowed to buffer internally, so a miss is not an error; it
// surfaces as ErrNeedMoreData.
const OutputWaitTimeout = 200 * time.Millisecond

// Output is one captured callback delivery. Data points into the cell's
// reused buffer and is valid until the next Arm.
type Output struct {
	Data      []byte
	Width     int32
	Height    int32
	Timestamp uint32
	Keyframe  bool
}

// OutputCell turns the engine's callback-delivered codec output into a
// synchronous result. The caller Arms the cell, invokes the engine, then
// Awaits; the callback bridge Completes it from whatever thread the engine
// runs on. The cell holds only its own lock, never the caller's, so a
// callback firing while the caller still holds its serialization mutex
// cannot deadlock.
type OutputCell struct {
	mu    sync.Mutex
	armed bool
	ready bool
	done  chan struct{}

	buf []byte
	out Output
}

// Arm prepares the cell to capture the next delivery. Any output still held
// from the previous capture is invalidated.
func (c *OutputCell) Arm() {
	c.mu.Lock()
	c.armed = true
	c.ready = false
	c.done = make(chan struct{})
	c.mu.Unlock()
}

// CompleteBytes captures an encoded-frame delivery. Stale deliveries, and
// any delivery after the first, are dropped.
func (c *OutputCell) CompleteBytes(data unsafe.Pointer, size int, timestamp uint32, keyframe bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.armed || c.ready {
		return
	}

	c.buf = append(c.buf[:0], unsafe.Slice((*byte)(data), size)...)
	c.out = Output{
		Data:      c.buf,
		Timestamp: timestamp,
		Keyframe:  keyframe,
	}
	c.ready = true
	close(c.done)
}

// CompletePlanes captures a decoded-frame delivery, packing the engine's
// strided I420 planes into a tight layout while the pointers are still
// valid. Stale deliveries are dropped.
func (c *OutputCell) CompletePlanes(y, u, v unsafe.Pointer, yStride, uStride, vStride, width, height int32, timestamp uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.armed || c.ready {
		return
	}

	w, h := int(width), int(height)
	cw, ch := (w+1)/2, (h+1)/2
	total := w*h + 2*cw*ch
	if cap(c.buf) < total {
		c.buf = make([]byte, total)
	}
	c.buf = c.buf[:total]

	packPlane(c.buf[:w*h], y, int(yStride), w, h)
	packPlane(c.buf[w*h:w*h+cw*ch], u, int(uStride), cw, ch)
	packPlane(c.buf[w*h+cw*ch:], v, int(vStride), cw, ch)

	c.out = Output{
		Data:      c.buf,
		Width:     width,
		Height:    height,
		Timestamp: timestamp,
	}
	c.ready = true
	close(c.done)
}

func packPlane(dst []byte, src unsafe.Pointer, stride, width, height int) {
	rows := unsafe.Slice((*byte)(src), stride*(height-1)+width)
	for row := 0; row < height; row++ {
		copy(dst[row*width:(row+1)*width], rows[row*stride:row*stride+width])
	}
}

// Await blocks until the armed delivery arrives or the timeout elapses.
// Timeout means the engine buffered the input; the caller reports
// ErrNeedMoreData. A delivery that races the timeout is still accepted.
func (c *OutputCell) Await(timeout time.Duration) (Output, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-time.After(timeout):
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed = false
	if !c.ready {
		return Output{}, ErrNeedMoreData
	}
	return c.out, nil
}
