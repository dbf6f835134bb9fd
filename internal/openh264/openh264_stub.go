//go:build !darwin && !linux

package openh264

// The bridge is only published for darwin and linux. Other platforms use
// the native engine path exclusively.

// EncoderAvailable reports whether the software encoder can be constructed.
func EncoderAvailable() bool { return false }

// DecoderAvailable reports whether the software decoder can be constructed.
func DecoderAvailable() bool { return false }

// Version returns the bridge version string, or "" when not loaded.
func Version() string { return "" }

// Encoder is a software H264 encoder instance.
type Encoder struct{}

// NewEncoder constructs a provider encoder.
func NewEncoder(Config) (*Encoder, error) { return nil, ErrUnavailable }

// EncodeInto encodes one I420 frame into dst.
func (e *Encoder) EncodeInto(y, u, v []byte, yStride, uStride, vStride int, forceKeyframe bool, dst []byte) (int, bool, error) {
	return 0, false, ErrUnavailable
}

// SetRates updates the target bitrate and framerate mid-stream.
func (e *Encoder) SetRates(bitrateBps uint32, framerate float32) error { return ErrUnavailable }

// RequestKeyframe asks the bridge to emit a keyframe on the next encode.
func (e *Encoder) RequestKeyframe() {}

// Destroy releases the bridge instance.
func (e *Encoder) Destroy() {}

// Decoder is a software H264 decoder instance.
type Decoder struct{}

// NewDecoder constructs a provider decoder.
func NewDecoder() (*Decoder, error) { return nil, ErrUnavailable }

// DecodeInto decodes one encoded frame into dst as tightly packed I420.
func (d *Decoder) DecodeInto(data []byte, dst []byte) (int, int, error) {
	return 0, 0, ErrUnavailable
}

// Destroy releases the bridge instance.
func (d *Decoder) Destroy() {}
