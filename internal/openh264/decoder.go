//go:build darwin || linux

package openh264

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/streamshim/rtcbridge/internal/engine"
)

// decodeResult matches Oh264DecodeResult in openh264_bridge.h. Heap
// allocated so the GC cannot move it during the C call on arm64.
type decodeResult struct {
	YPtr    uintptr
	UPtr    uintptr
	VPtr    uintptr
	YStride int32
	UStride int32
	VStride int32
	Width   int32
	Height  int32
	_       int32
}

// Decoder is a software H264 decoder instance. Calls must be serialized by
// the owner.
type Decoder struct {
	h   uintptr
	out *decodeResult
}

// NewDecoder constructs a provider decoder.
func NewDecoder() (*Decoder, error) {
	if err := load(); err != nil {
		return nil, err
	}
	if oh264DecoderAvailable() == 0 {
		return nil, ErrUnavailable
	}

	h := oh264DecoderCreate()
	if h == 0 {
		return nil, fmt.Errorf("create openh264 decoder: %s", lastError())
	}
	return &Decoder{h: h, out: &decodeResult{}}, nil
}

// DecodeInto decodes one encoded frame into dst as tightly packed I420 and
// returns the frame geometry. ErrNeedMoreData means the decoder buffered
// the input; ErrBufferTooSmall means dst cannot hold the frame.
func (d *Decoder) DecodeInto(data []byte, dst []byte) (width, height int, err error) {
	if len(data) == 0 {
		return 0, 0, engine.ErrInvalidParam
	}

	out := d.out
	n := oh264DecoderDecode(d.h, engine.ByteSlicePtr(data), int32(len(data)), uintptr(unsafe.Pointer(out)))
	runtime.KeepAlive(data)
	runtime.KeepAlive(out)

	if n < 0 {
		return 0, 0, fmt.Errorf("%w: %s", engine.ErrDecodeFailed, lastError())
	}
	if n == 0 {
		return 0, 0, engine.ErrNeedMoreData
	}
	if out.YPtr == 0 || out.Width <= 0 || out.Height <= 0 || out.YStride <= 0 || out.UStride <= 0 || out.VStride <= 0 {
		return 0, 0, fmt.Errorf("%w: invalid bridge output %dx%d", engine.ErrDecodeFailed, out.Width, out.Height)
	}

	w, h := int(out.Width), int(out.Height)
	cw, ch := (w+1)/2, (h+1)/2
	total := w*h + 2*cw*ch
	if len(dst) < total {
		return 0, 0, engine.ErrBufferTooSmall
	}

	packPlane(dst[:w*h], out.YPtr, int(out.YStride), w, h)
	packPlane(dst[w*h:w*h+cw*ch], out.UPtr, int(out.UStride), cw, ch)
	packPlane(dst[w*h+cw*ch:total], out.VPtr, int(out.VStride), cw, ch)

	return w, h, nil
}

func packPlane(dst []byte, src uintptr, stride, width, height int) {
	for row := 0; row < height; row++ {
		line := unsafe.Slice((*byte)(unsafe.Pointer(src+uintptr(row*stride))), width)
		copy(dst[row*width:(row+1)*width], line)
	}
}

// Destroy releases the bridge instance.
func (d *Decoder) Destroy() {
	if d.h == 0 {
		return
	}
	oh264DecoderDestroy(d.h)
	d.h = 0
}
