// Package encoder provides video and audio encoders backed by the native
// engine or, for H264, the standalone OpenH264 bridge.
package encoder

import (
	"errors"

	"github.com/streamshim/rtcbridge/internal/engine"
	"github.com/streamshim/rtcbridge/pkg/codec"
	"github.com/streamshim/rtcbridge/pkg/frame"
)

// Common errors
var (
	ErrEncoderClosed    = errors.New("encoder is closed")
	ErrInvalidFrame     = errors.New("invalid frame")
	ErrUnsupportedCodec = errors.New("unsupported codec")
	ErrInvalidConfig    = errors.New("invalid encoder configuration")
	ErrBufferTooSmall   = errors.New("destination buffer too small")

	// ErrNeedMoreData is returned when the backend buffered the frame and
	// produced no output. It is the engine's sentinel so errors.Is matches
	// regardless of which layer surfaced it.
	ErrNeedMoreData = engine.ErrNeedMoreData
)

// EncodeResult contains the result of an encode operation.
type EncodeResult struct {
	// N is the number of bytes written to the destination buffer.
	N int
	// IsKeyframe indicates if the encoded frame is a keyframe.
	IsKeyframe bool
}

// VideoEncoder encodes raw video frames to compressed bitstream.
// All operations are allocation-free - caller provides buffers.
type VideoEncoder interface {
	// EncodeInto encodes a video frame into the destination buffer.
	// Returns the number of bytes written and whether it's a keyframe.
	// Caller must provide a buffer of at least MaxEncodedSize() bytes.
	// Returns ErrNeedMoreData when the backend buffered the frame.
	EncodeInto(src *frame.VideoFrame, dst []byte, forceKeyframe bool) (EncodeResult, error)

	// MaxEncodedSize returns the maximum possible encoded size for the
	// configured resolution. Use this to allocate destination buffers.
	MaxEncodedSize() int

	// SetBitrate updates the target bitrate in bits per second.
	SetBitrate(bps uint32) error

	// SetFramerate updates the target framerate.
	SetFramerate(fps float64) error

	// RequestKeyFrame requests the next frame to be a keyframe.
	RequestKeyFrame()

	// Codec returns the codec type of this encoder.
	Codec() codec.Type

	// Backend names the implementation behind this encoder, "native" or
	// "openh264". Fixed for the encoder's lifetime.
	Backend() string

	// Close releases all encoder resources.
	Close() error
}

// AudioEncoder encodes raw audio samples to compressed bitstream.
// All operations are allocation-free - caller provides buffers.
type AudioEncoder interface {
	// EncodeInto encodes audio samples into the destination buffer.
	// Returns the number of bytes written.
	// Caller must provide a buffer of at least MaxEncodedSize() bytes.
	EncodeInto(src *frame.AudioFrame, dst []byte) (int, error)

	// MaxEncodedSize returns the maximum possible encoded size for a single
	// audio frame. Use this to allocate destination buffers.
	MaxEncodedSize() int

	// SetBitrate updates the target bitrate in bits per second.
	SetBitrate(bps uint32) error

	// Codec returns the codec type of this encoder.
	Codec() codec.Type

	// Close releases all encoder resources.
	Close() error
}

// NewAudioEncoder creates an audio encoder for the specified codec.
func NewAudioEncoder(codecType codec.Type, cfg codec.OpusConfig) (AudioEncoder, error) {
	switch codecType {
	case codec.Opus:
		return NewOpusEncoder(cfg)
	default:
		return nil, ErrUnsupportedCodec
	}
}

// boolToInt32 converts bool to int32 for FFI.
func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
