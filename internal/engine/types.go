package engine

import "unsafe"

// VideoEncoderConfig matches RtcVideoEncoderConfig in rtcengine.h.
type VideoEncoderConfig struct {
	Width            int32
	Height           int32
	BitrateBps       uint32
	Framerate        float32
	KeyframeInterval int32
	H264Profile      *byte // C string pointer
	VP9Profile       int32
	PreferHW         int32 // bool as int
}

// AudioEncoderConfig matches RtcAudioEncoderConfig in rtcengine.h.
type AudioEncoderConfig struct {
	SampleRate int32
	Channels   int32
	BitrateBps uint32
}

// Ptr returns a pointer to the config as uintptr for FFI calls.
func (c *VideoEncoderConfig) Ptr() uintptr {
	return uintptr(unsafe.Pointer(c))
}

// Ptr returns a pointer to the config as uintptr for FFI calls.
func (c *AudioEncoderConfig) Ptr() uintptr {
	return uintptr(unsafe.Pointer(c))
}

// ByteSlicePtr returns a uintptr to the first element of a byte slice.
// Returns 0 if the slice is empty.
func ByteSlicePtr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

// Int16SlicePtr returns a uintptr to the first element of an int16 slice.
func Int16SlicePtr(s []int16) uintptr {
	if len(s) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&s[0]))
}

// Int32Ptr returns a uintptr to an int32 variable.
func Int32Ptr(p *int32) uintptr {
	return uintptr(unsafe.Pointer(p))
}

// Uint32Ptr returns a uintptr to a uint32 variable.
func Uint32Ptr(p *uint32) uintptr {
	return uintptr(unsafe.Pointer(p))
}

// CString allocates a NUL-terminated C string from a Go string. The caller
// must keep the returned slice alive for as long as the C code reads it.
func CString(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	b[len(s)] = 0
	return b
}

// GoString copies a NUL-terminated C string into a Go string.
func GoString(ptr unsafe.Pointer) string {
	if ptr == nil {
		return ""
	}
	var n int
	for *(*byte)(unsafe.Add(ptr, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(ptr), n))
}

// ByteArrayToString converts a fixed-size NUL-terminated byte array slice
// into a Go string.
func ByteArrayToString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
