//go:build darwin || linux

package openh264

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

var (
	bridgeOnce   sync.Once
	bridgeErr    error
	bridgeHandle uintptr
)

// libopenh264_bridge function pointers.
var (
	oh264Version          func() uintptr
	oh264LastError        func() uintptr
	oh264EncoderAvailable func() int32
	oh264DecoderAvailable func() int32

	oh264EncoderCreate          func(width, height int32, bitrateBps uint32, framerate float32, keyframeInterval int32) uintptr
	oh264EncoderEncode          func(enc uintptr, y, u, v uintptr, yStride, uStride, vStride int32, forceKeyframe int32, dst uintptr, dstCap int32, outKeyframe uintptr) int32
	oh264EncoderSetRates        func(enc uintptr, bitrateBps uint32, framerate float32) int32
	oh264EncoderRequestKeyframe func(enc uintptr)
	oh264EncoderDestroy         func(enc uintptr)

	oh264DecoderCreate  func() uintptr
	oh264DecoderDecode  func(dec uintptr, data uintptr, size int32, out uintptr) int32
	oh264DecoderDestroy func(dec uintptr)
)

func load() error {
	bridgeOnce.Do(func() {
		path, err := resolveBridge()
		if err != nil {
			bridgeErr = err
			return
		}
		if path == "" {
			bridgeErr = fmt.Errorf("%w: set %s or enable download", ErrUnavailable, EnvPath)
			return
		}

		handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			bridgeErr = fmt.Errorf("load openh264 bridge: %w", err)
			return
		}

		if err := registerSymbols(handle); err != nil {
			_ = purego.Dlclose(handle)
			bridgeErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			return
		}
		bridgeHandle = handle
	})
	return bridgeErr
}

func registerSymbols(handle uintptr) error {
	bindings := []struct {
		fptr any
		name string
	}{
		{&oh264Version, "oh264_version"},
		{&oh264LastError, "oh264_last_error"},
		{&oh264EncoderAvailable, "oh264_encoder_available"},
		{&oh264DecoderAvailable, "oh264_decoder_available"},

		{&oh264EncoderCreate, "oh264_encoder_create"},
		{&oh264EncoderEncode, "oh264_encoder_encode"},
		{&oh264EncoderSetRates, "oh264_encoder_set_rates"},
		{&oh264EncoderRequestKeyframe, "oh264_encoder_request_keyframe"},
		{&oh264EncoderDestroy, "oh264_encoder_destroy"},

		{&oh264DecoderCreate, "oh264_decoder_create"},
		{&oh264DecoderDecode, "oh264_decoder_decode"},
		{&oh264DecoderDestroy, "oh264_decoder_destroy"},
	}

	// Resolve every symbol before binding: RegisterLibFunc panics on a
	// missing symbol, and a stale or wrong bridge build must make the
	// availability checks return false instead.
	for _, b := range bindings {
		if _, err := purego.Dlsym(handle, b.name); err != nil {
			return fmt.Errorf("bridge missing symbol %s: %v", b.name, err)
		}
	}
	for _, b := range bindings {
		purego.RegisterLibFunc(b.fptr, handle, b.name)
	}
	return nil
}

// EncoderAvailable reports whether the software encoder can be constructed.
func EncoderAvailable() bool {
	if load() != nil {
		return false
	}
	return oh264EncoderAvailable() != 0
}

// DecoderAvailable reports whether the software decoder can be constructed.
func DecoderAvailable() bool {
	if load() != nil {
		return false
	}
	return oh264DecoderAvailable() != 0
}

// Version returns the bridge version string, or "" when not loaded.
func Version() string {
	if load() != nil {
		return ""
	}
	return goString(oh264Version())
}

func lastError() string {
	ptr := oh264LastError()
	if ptr == 0 {
		return "unknown error"
	}
	return goString(ptr)
}

func goString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	p := unsafe.Pointer(ptr)
	var n int
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(p), n))
}
