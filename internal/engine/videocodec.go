package engine

import (
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/streamshim/rtcbridge/internal/handle"
)

// The engine delivers codec output on its own threads through C callbacks.
// One bridge per callback kind is registered with purego; per-instance
// routing goes through a generation-checked cookie so a stale pointer from a
// destroyed instance can never be dereferenced.
var (
	videoEncoderCells = handle.NewArena[*OutputCell]()
	videoDecoderCells = handle.NewArena[*OutputCell]()

	encodedFrameBridge uintptr
	decodedFrameBridge uintptr
)

func registerBridges() {
	encodedFrameBridge = purego.NewCallback(onEncodedFrame)
	decodedFrameBridge = purego.NewCallback(onDecodedFrame)
	registerPCBridges()
	registerCaptureBridges()
}

func onEncodedFrame(cookie uintptr, data uintptr, size int32, timestamp uint32, keyframe int32) uintptr {
	cell, ok := videoEncoderCells.Get(handle.ID(cookie))
	if !ok || data == 0 || size <= 0 {
		return 0
	}
	cell.CompleteBytes(unsafe.Pointer(data), int(size), timestamp, keyframe != 0)
	return 0
}

func onDecodedFrame(cookie uintptr, y, u, v uintptr, yStride, uStride, vStride, width, height int32, timestamp uint32) uintptr {
	cell, ok := videoDecoderCells.Get(handle.ID(cookie))
	if !ok || y == 0 || u == 0 || v == 0 || width <= 0 || height <= 0 {
		return 0
	}
	cell.CompletePlanes(
		unsafe.Pointer(y), unsafe.Pointer(u), unsafe.Pointer(v),
		yStride, uStride, vStride, width, height, timestamp,
	)
	return 0
}

// VideoEncoder is a native engine encoder instance. Calls must be
// serialized by the owner; the output cell handles the engine's callback
// thread on its own.
type VideoEncoder struct {
	h      uintptr
	cookie handle.ID
	cell   OutputCell
	errBuf ErrorBuffer
}

// CreateVideoEncoder constructs a native encoder. The engine picks the
// hardware or software implementation according to cfg.PreferHW and returns
// init-failed when no implementation matches the requested format.
func CreateVideoEncoder(codec CodecType, cfg *VideoEncoderConfig) (*VideoEncoder, error) {
	if err := Require(); err != nil {
		return nil, err
	}

	enc := &VideoEncoder{}
	enc.cookie = videoEncoderCells.Put(&enc.cell)

	h := rtcVideoEncoderCreate(int32(codec), cfg.Ptr(), encodedFrameBridge, uintptr(enc.cookie), enc.errBuf.Ptr())
	runtime.KeepAlive(cfg)
	if h == 0 {
		videoEncoderCells.Remove(enc.cookie)
		return nil, enc.errBuf.ToError(StatusErrInitFailed)
	}
	enc.h = h
	return enc, nil
}

// Encode submits one I420 frame and waits for the engine's delivery. The
// returned Output.Data is valid until the next Encode.
func (e *VideoEncoder) Encode(y, u, v []byte, yStride, uStride, vStride int, timestamp uint32, forceKeyframe bool) (Output, error) {
	var kf int32
	if forceKeyframe {
		kf = 1
	}

	e.cell.Arm()
	code := rtcVideoEncoderEncode(
		e.h,
		ByteSlicePtr(y), ByteSlicePtr(u), ByteSlicePtr(v),
		int32(yStride), int32(uStride), int32(vStride),
		timestamp, kf, e.errBuf.Ptr(),
	)
	runtime.KeepAlive(y)
	runtime.KeepAlive(u)
	runtime.KeepAlive(v)
	if code != StatusOK {
		return Output{}, e.errBuf.ToError(code)
	}

	return e.cell.Await(OutputWaitTimeout)
}

// SetRates updates the target bitrate and framerate mid-stream.
func (e *VideoEncoder) SetRates(bitrateBps uint32, framerate float32) error {
	return StatusError(rtcVideoEncoderSetRates(e.h, bitrateBps, framerate))
}

// RequestKeyframe asks the engine to emit a keyframe on the next encode.
func (e *VideoEncoder) RequestKeyframe() error {
	return StatusError(rtcVideoEncoderRequestKeyframe(e.h))
}

// Destroy releases the native instance. The callback is cleared and the
// cookie retired before the backend is torn down, so an in-flight delivery
// lands on a dead cookie instead of freed memory.
func (e *VideoEncoder) Destroy() {
	if e.h == 0 {
		return
	}
	rtcVideoEncoderClearCallback(e.h)
	videoEncoderCells.Remove(e.cookie)
	rtcVideoEncoderDestroy(e.h)
	e.h = 0
}

// VideoDecoder is a native engine decoder instance.
type VideoDecoder struct {
	h      uintptr
	cookie handle.ID
	cell   OutputCell
	errBuf ErrorBuffer
}

// CreateVideoDecoder constructs a native decoder for the given codec.
func CreateVideoDecoder(codec CodecType) (*VideoDecoder, error) {
	if err := Require(); err != nil {
		return nil, err
	}

	dec := &VideoDecoder{}
	dec.cookie = videoDecoderCells.Put(&dec.cell)

	h := rtcVideoDecoderCreate(int32(codec), decodedFrameBridge, uintptr(dec.cookie), dec.errBuf.Ptr())
	if h == 0 {
		videoDecoderCells.Remove(dec.cookie)
		return nil, dec.errBuf.ToError(StatusErrInitFailed)
	}
	dec.h = h
	return dec, nil
}

// Decode submits one encoded frame and waits for the engine's delivery.
// Output.Data holds tightly packed I420 and is valid until the next Decode.
func (d *VideoDecoder) Decode(data []byte, timestamp uint32) (Output, error) {
	d.cell.Arm()
	code := rtcVideoDecoderDecode(d.h, ByteSlicePtr(data), int32(len(data)), timestamp, d.errBuf.Ptr())
	runtime.KeepAlive(data)
	if code != StatusOK {
		return Output{}, d.errBuf.ToError(code)
	}

	return d.cell.Await(OutputWaitTimeout)
}

// Destroy releases the native instance. Same teardown order as the encoder.
func (d *VideoDecoder) Destroy() {
	if d.h == 0 {
		return
	}
	rtcVideoDecoderClearCallback(d.h)
	videoDecoderCells.Remove(d.cookie)
	rtcVideoDecoderDestroy(d.h)
	d.h = 0
}
