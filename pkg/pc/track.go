package pc

import (
	"errors"
	"sync"
	"time"

	"github.com/streamshim/rtcbridge/internal/engine"
	"github.com/streamshim/rtcbridge/internal/handle"
	"github.com/streamshim/rtcbridge/pkg/frame"
)

// Errors
var (
	ErrTrackNotBound = errors.New("track is not bound to a sender")
	ErrWrongKind     = errors.New("frame kind does not match track kind")
	ErrTrackClosed   = errors.New("track is closed")
)

// Track is a local media source. Create one with NewVideoTrack or
// NewAudioTrack, attach it with PeerConnection.AddTrack, then push frames.
type Track struct {
	id       string
	streamID string
	kind     TrackKind

	mu     sync.Mutex
	sender uintptr
}

// NewVideoTrack creates an unbound local video track.
func NewVideoTrack(id, streamID string) *Track {
	return &Track{id: id, streamID: streamID, kind: TrackKindVideo}
}

// NewAudioTrack creates an unbound local audio track.
func NewAudioTrack(id, streamID string) *Track {
	return &Track{id: id, streamID: streamID, kind: TrackKindAudio}
}

// ID returns the track identifier used in SDP.
func (t *Track) ID() string { return t.id }

// StreamID returns the media stream identifier.
func (t *Track) StreamID() string { return t.streamID }

// Kind returns the track's media kind.
func (t *Track) Kind() TrackKind { return t.kind }

func (t *Track) bind(sender uintptr) {
	t.mu.Lock()
	t.sender = sender
	t.mu.Unlock()
}

func (t *Track) unbind() {
	t.mu.Lock()
	t.sender = 0
	t.mu.Unlock()
}

func (t *Track) bound() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sender != 0
}

// WriteVideoFrame pushes one I420 frame into the engine's send pipeline.
// The frame's Timestamp drives capture pacing; leave it zero to let the
// engine stamp on arrival.
func (t *Track) WriteVideoFrame(f *frame.VideoFrame) error {
	if t.kind != TrackKindVideo {
		return ErrWrongKind
	}
	if f == nil || len(f.Data) != 3 || len(f.Stride) != 3 {
		return ErrInvalidTrack
	}

	t.mu.Lock()
	sender := t.sender
	t.mu.Unlock()
	if sender == 0 {
		return ErrTrackNotBound
	}

	return engine.SenderPushVideoFrame(
		sender,
		f.Data[0], f.Data[1], f.Data[2],
		f.Stride[0], f.Stride[1], f.Stride[2],
		f.Width, f.Height,
		f.Timestamp.Microseconds(),
	)
}

// WriteAudioFrame pushes interleaved PCM into the engine's send pipeline.
func (t *Track) WriteAudioFrame(f *frame.AudioFrame) error {
	if t.kind != TrackKindAudio {
		return ErrWrongKind
	}
	if f == nil || f.Channels <= 0 || f.NumSamples <= 0 {
		return ErrInvalidTrack
	}
	total := f.NumSamples * f.Channels
	if total > len(f.Samples) {
		return ErrInvalidTrack
	}

	t.mu.Lock()
	sender := t.sender
	t.mu.Unlock()
	if sender == 0 {
		return ErrTrackNotBound
	}

	return engine.SenderPushAudioFrame(sender, f.Samples[:total], f.SampleRate, f.Channels)
}

// TrackRemote is a track received from the remote peer. Decoded media is
// delivered through the sink handlers; each delivery owns its buffers.
type TrackRemote struct {
	h    uintptr
	kind TrackKind

	mu        sync.Mutex
	videoSink handle.ID
	audioSink handle.ID
	closed    bool
}

func newTrackRemote(h uintptr, kind TrackKind) *TrackRemote {
	return &TrackRemote{h: h, kind: kind}
}

// Kind returns the track's media kind.
func (t *TrackRemote) Kind() TrackKind { return t.kind }

// SetOnVideoFrame starts decoded frame delivery to cb on the engine's
// decode thread. Passing nil stops delivery.
func (t *TrackRemote) SetOnVideoFrame(cb func(*frame.VideoFrame)) error {
	if t.kind != TrackKindVideo {
		return ErrWrongKind
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTrackClosed
	}

	if t.videoSink != 0 {
		engine.TrackDisableVideoSink(t.h, t.videoSink)
		t.videoSink = 0
	}
	if cb == nil {
		return nil
	}

	id, err := engine.TrackEnableVideoSink(t.h, func(width, height int, y, u, v []byte, yStride, uStride, vStride int, timestampUs int64) {
		cb(&frame.VideoFrame{
			Width:     width,
			Height:    height,
			Data:      [][]byte{y, u, v},
			Stride:    []int{yStride, uStride, vStride},
			Timestamp: time.Duration(timestampUs) * time.Microsecond,
		})
	})
	if err != nil {
		return err
	}
	t.videoSink = id
	return nil
}

// SetOnAudioFrame starts PCM delivery to cb on the engine's decode thread.
// Passing nil stops delivery.
func (t *TrackRemote) SetOnAudioFrame(cb func(*frame.AudioFrame)) error {
	if t.kind != TrackKindAudio {
		return ErrWrongKind
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTrackClosed
	}

	if t.audioSink != 0 {
		engine.TrackDisableAudioSink(t.h, t.audioSink)
		t.audioSink = 0
	}
	if cb == nil {
		return nil
	}

	id, err := engine.TrackEnableAudioSink(t.h, func(samples []int16, sampleRate, channels int, timestampUs int64) {
		numSamples := 0
		if channels > 0 {
			numSamples = len(samples) / channels
		}
		cb(&frame.AudioFrame{
			SampleRate: sampleRate,
			Channels:   channels,
			Samples:    samples,
			NumSamples: numSamples,
			Timestamp:  time.Duration(timestampUs) * time.Microsecond,
		})
	})
	if err != nil {
		return err
	}
	t.audioSink = id
	return nil
}

// Close stops delivery and releases the engine track handle.
func (t *TrackRemote) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	if t.videoSink != 0 {
		engine.TrackDisableVideoSink(t.h, t.videoSink)
		t.videoSink = 0
	}
	if t.audioSink != 0 {
		engine.TrackDisableAudioSink(t.h, t.audioSink)
		t.audioSink = 0
	}
	engine.TrackDestroy(t.h)
	return nil
}

// RTPParameters describes one sender's or receiver's RTP stream.
type RTPParameters struct {
	SSRC        uint32
	PayloadType int32
	ClockRate   int32
	BitrateBps  uint32
	MimeType    string
}

func fromEngineParameters(p engine.RTPParameters) RTPParameters {
	return RTPParameters{
		SSRC:        p.SSRC,
		PayloadType: p.PayloadType,
		ClockRate:   p.ClockRate,
		BitrateBps:  p.BitrateBps,
		MimeType:    p.MimeType,
	}
}

// RTPSender sends one local track's media.
type RTPSender struct {
	h     uintptr
	track *Track
}

// Track returns the local track this sender transmits.
func (s *RTPSender) Track() *Track { return s.track }

// GetParameters reads the sender's negotiated RTP parameters.
func (s *RTPSender) GetParameters() (RTPParameters, error) {
	p, err := engine.SenderGetParameters(s.h)
	if err != nil {
		return RTPParameters{}, err
	}
	return fromEngineParameters(p), nil
}

// SetParameters writes the sender's mutable parameters. The engine only
// honors the bitrate today.
func (s *RTPSender) SetParameters(params RTPParameters) error {
	return engine.SenderSetParameters(s.h, engine.RTPParameters{
		SSRC:        params.SSRC,
		PayloadType: params.PayloadType,
		ClockRate:   params.ClockRate,
		BitrateBps:  params.BitrateBps,
		MimeType:    params.MimeType,
	})
}

// RTPReceiver receives one remote track's media.
type RTPReceiver struct {
	h uintptr

	mu    sync.Mutex
	track *TrackRemote
}

// GetParameters reads the receiver's negotiated RTP parameters.
func (r *RTPReceiver) GetParameters() (RTPParameters, error) {
	p, err := engine.ReceiverGetParameters(r.h)
	if err != nil {
		return RTPParameters{}, err
	}
	return fromEngineParameters(p), nil
}

// Track returns the receiver's remote track, or nil if the engine has none.
func (r *RTPReceiver) Track() *TrackRemote {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.track != nil {
		return r.track
	}
	h := engine.ReceiverTrack(r.h)
	if h == 0 {
		return nil
	}
	r.track = newTrackRemote(h, TrackKind(engine.TrackKind(h)))
	return r.track
}

// RTPTransceiver pairs a sender and a receiver over one m-line.
type RTPTransceiver struct {
	h uintptr
}

// Mid returns the transceiver's media stream identification tag, or ""
// before negotiation assigns one.
func (t *RTPTransceiver) Mid() string {
	return engine.TransceiverMid(t.h)
}

// Direction returns the current direction.
func (t *RTPTransceiver) Direction() TransceiverDirection {
	return TransceiverDirection(engine.TransceiverDirection(t.h))
}

// SetDirection sets the preferred direction for the next negotiation.
func (t *RTPTransceiver) SetDirection(d TransceiverDirection) error {
	return engine.TransceiverSetDirection(t.h, int32(d))
}

// Sender returns the transceiver's sender.
func (t *RTPTransceiver) Sender() *RTPSender {
	return &RTPSender{h: engine.TransceiverSender(t.h)}
}

// Receiver returns the transceiver's receiver.
func (t *RTPTransceiver) Receiver() *RTPReceiver {
	return &RTPReceiver{h: engine.TransceiverReceiver(t.h)}
}

// Stop permanently stops the transceiver. Takes effect at the next
// negotiation.
func (t *RTPTransceiver) Stop() error {
	return engine.TransceiverStop(t.h)
}
