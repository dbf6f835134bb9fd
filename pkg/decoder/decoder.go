// Package decoder provides video and audio decoders backed by the native
// engine or, for H264, the standalone OpenH264 bridge.
package decoder

import (
	"errors"

	"github.com/streamshim/rtcbridge/internal/engine"
	"github.com/streamshim/rtcbridge/pkg/codec"
	"github.com/streamshim/rtcbridge/pkg/frame"
)

// Common errors
var (
	ErrDecoderClosed    = errors.New("decoder is closed")
	ErrInvalidData      = errors.New("invalid encoded data")
	ErrUnsupportedCodec = errors.New("unsupported codec")
	ErrBufferTooSmall   = errors.New("destination buffer too small")

	// ErrNeedMoreData is returned when the backend buffered the input and
	// produced no frame. It is the engine's sentinel so errors.Is matches
	// regardless of which layer surfaced it.
	ErrNeedMoreData = engine.ErrNeedMoreData

	// ErrDecodeFailed aliases the engine's sentinel for the same reason.
	ErrDecodeFailed = engine.ErrDecodeFailed
)

// VideoDecoder decodes compressed video bitstream to raw frames.
// All operations are allocation-free - caller provides buffers.
type VideoDecoder interface {
	// DecodeInto decodes encoded video data into the destination frame.
	// The dst frame must have pre-allocated Data buffers of sufficient size.
	// Use frame.NewI420Frame(width, height) to create a properly sized frame.
	// Returns ErrNeedMoreData if more data is required (e.g., B-frames).
	DecodeInto(src []byte, dst *frame.VideoFrame, timestamp uint32, isKeyframe bool) error

	// Codec returns the codec type of this decoder.
	Codec() codec.Type

	// Backend names the implementation behind this decoder, "native" or
	// "openh264". Fixed for the decoder's lifetime.
	Backend() string

	// Close releases all decoder resources.
	Close() error
}

// AudioDecoder decodes compressed audio bitstream to raw samples.
// All operations are allocation-free - caller provides buffers.
type AudioDecoder interface {
	// DecodeInto decodes encoded audio data into the destination frame.
	// The dst frame must have a pre-allocated Samples buffer of sufficient
	// size. Returns the number of samples decoded per channel.
	DecodeInto(src []byte, dst *frame.AudioFrame) (numSamples int, err error)

	// MaxSamplesPerFrame returns the maximum samples per channel that can
	// be decoded from a single encoded frame. Use this to size buffers.
	MaxSamplesPerFrame() int

	// Codec returns the codec type of this decoder.
	Codec() codec.Type

	// Close releases all decoder resources.
	Close() error
}

// NewVideoDecoder creates a video decoder for the specified codec. For H264
// the software provider is used when the process policy asks for software or
// the platform has no accelerated H264, and the provider library can be
// loaded.
func NewVideoDecoder(codecType codec.Type) (VideoDecoder, error) {
	if !codecType.IsVideo() {
		return nil, ErrUnsupportedCodec
	}
	return newVideoDecoder(codecType, false)
}

// NewSoftwareH264Decoder creates an H264 decoder on the software provider
// regardless of platform acceleration. Fails when the provider library
// cannot be loaded.
func NewSoftwareH264Decoder() (VideoDecoder, error) {
	return newVideoDecoder(codec.H264, true)
}

// NewAudioDecoder creates an audio decoder for the specified codec.
func NewAudioDecoder(codecType codec.Type, sampleRate, channels int) (AudioDecoder, error) {
	switch codecType {
	case codec.Opus:
		return NewOpusDecoder(sampleRate, channels)
	default:
		return nil, ErrUnsupportedCodec
	}
}
