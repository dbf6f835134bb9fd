package engine

import "unsafe"

// errorBufferSize matches RTC_ERROR_BUFFER_SIZE in rtcengine.h.
const errorBufferSize = 256

// ErrorBuffer is a fixed-capacity text buffer the shim fills with a
// human-readable diagnostic alongside a status code. Passing Ptr() is always
// optional on the C side; the shim nil-checks before writing.
type ErrorBuffer [errorBufferSize]byte

// Ptr returns the buffer address for FFI calls.
func (b *ErrorBuffer) Ptr() uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}

// String returns the NUL-terminated message, or "" when none was written.
func (b *ErrorBuffer) String() string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b[:])
}

// ToError maps a status code to an error, attaching the buffer's message
// when the shim wrote one.
func (b *ErrorBuffer) ToError(code int32) error {
	if code == StatusOK {
		return nil
	}
	if msg := b.String(); msg != "" {
		return &StatusWithMessage{Code: code, Message: msg}
	}
	return StatusError(code)
}

// StatusWithMessage carries a status code plus the shim's diagnostic text.
// errors.Is matches against the code's sentinel.
type StatusWithMessage struct {
	Code    int32
	Message string
}

func (e *StatusWithMessage) Error() string {
	base := StatusError(e.Code)
	if base == nil {
		return e.Message
	}
	return base.Error() + ": " + e.Message
}

func (e *StatusWithMessage) Unwrap() error {
	return StatusError(e.Code)
}
