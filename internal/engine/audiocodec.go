package engine

import "runtime"

// Audio codecs in the engine are synchronous; output comes back through
// caller-provided buffers rather than a callback.

// AudioEncoder is a native engine Opus encoder instance.
type AudioEncoder struct {
	h      uintptr
	errBuf ErrorBuffer
}

// CreateAudioEncoder constructs a native audio encoder.
func CreateAudioEncoder(cfg *AudioEncoderConfig) (*AudioEncoder, error) {
	if err := Require(); err != nil {
		return nil, err
	}

	enc := &AudioEncoder{}
	h := rtcAudioEncoderCreate(cfg.Ptr(), enc.errBuf.Ptr())
	runtime.KeepAlive(cfg)
	if h == 0 {
		return nil, enc.errBuf.ToError(StatusErrInitFailed)
	}
	enc.h = h
	return enc, nil
}

// EncodeInto encodes interleaved PCM samples into dst and returns the number
// of bytes written.
func (e *AudioEncoder) EncodeInto(samples []int16, dst []byte) (int, error) {
	var outSize uint32
	code := rtcAudioEncoderEncode(
		e.h,
		Int16SlicePtr(samples), int32(len(samples)),
		ByteSlicePtr(dst), int32(len(dst)),
		Uint32Ptr(&outSize),
	)
	runtime.KeepAlive(samples)
	runtime.KeepAlive(dst)
	if code != StatusOK {
		return 0, StatusError(code)
	}
	return int(outSize), nil
}

// SetBitrate updates the target bitrate mid-stream.
func (e *AudioEncoder) SetBitrate(bitrateBps uint32) error {
	return StatusError(rtcAudioEncoderSetBitrate(e.h, bitrateBps))
}

// Destroy releases the native instance.
func (e *AudioEncoder) Destroy() {
	if e.h == 0 {
		return
	}
	rtcAudioEncoderDestroy(e.h)
	e.h = 0
}

// AudioDecoder is a native engine Opus decoder instance.
type AudioDecoder struct {
	h      uintptr
	errBuf ErrorBuffer
}

// CreateAudioDecoder constructs a native audio decoder.
func CreateAudioDecoder(sampleRate, channels int32) (*AudioDecoder, error) {
	if err := Require(); err != nil {
		return nil, err
	}

	dec := &AudioDecoder{}
	h := rtcAudioDecoderCreate(sampleRate, channels, dec.errBuf.Ptr())
	if h == 0 {
		return nil, dec.errBuf.ToError(StatusErrInitFailed)
	}
	dec.h = h
	return dec, nil
}

// DecodeInto decodes one packet into dst and returns the number of samples
// written (per channel samples times channels).
func (d *AudioDecoder) DecodeInto(data []byte, dst []int16) (int, error) {
	var outSamples int32
	code := rtcAudioDecoderDecode(
		d.h,
		ByteSlicePtr(data), int32(len(data)),
		Int16SlicePtr(dst), int32(len(dst)),
		Int32Ptr(&outSamples),
	)
	runtime.KeepAlive(data)
	runtime.KeepAlive(dst)
	if code != StatusOK {
		return 0, StatusError(code)
	}
	return int(outSamples), nil
}

// Destroy releases the native instance.
func (d *AudioDecoder) Destroy() {
	if d.h == 0 {
		return
	}
	rtcAudioDecoderDestroy(d.h)
	d.h = 0
}
