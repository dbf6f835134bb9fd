// Package track provides pion-compatible TrackLocal implementations that
// run the engine's encoders. Frames written to a bound track are encoded,
// packetized and handed to pion's RTP writer without per-frame allocation.
package track

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"github.com/streamshim/rtcbridge/pkg/codec"
	"github.com/streamshim/rtcbridge/pkg/encoder"
	"github.com/streamshim/rtcbridge/pkg/frame"
	"github.com/streamshim/rtcbridge/pkg/packetizer"
)

// Errors
var (
	ErrTrackClosed   = errors.New("track is closed")
	ErrNotBound      = errors.New("track not bound")
	ErrAlreadyBound  = errors.New("track already bound")
	ErrInvalidConfig = errors.New("invalid config")
)

// VideoTrackConfig configures a video track.
type VideoTrackConfig struct {
	ID       string
	StreamID string
	Codec    codec.Type
	Width    int
	Height   int
	Bitrate  uint32
	FPS      float64
	MTU      uint16 // RTP MTU (default 1200)

	// PreferSoftware requests the software H264 path regardless of
	// hardware availability. Ignored for other codecs.
	PreferSoftware bool
}

// VideoTrack implements webrtc.TrackLocal over an engine video encoder.
// The encoder and packetizer are created at Bind time, once the negotiated
// payload type and SSRC are known.
type VideoTrack struct {
	id       string
	streamID string
	codec    codec.Type

	config VideoTrackConfig

	mu          sync.Mutex
	enc         encoder.VideoEncoder
	pkt         packetizer.Packetizer
	writer      webrtc.TrackLocalWriter
	codecParams webrtc.RTPCodecParameters

	encBuf     []byte
	packetBuf  []byte
	packetInfo []packetizer.PacketInfo

	closed atomic.Bool
	bound  atomic.Bool
}

// NewVideoTrack creates an unbound video track.
func NewVideoTrack(cfg VideoTrackConfig) (*VideoTrack, error) {
	if cfg.ID == "" {
		return nil, ErrInvalidConfig
	}
	if !cfg.Codec.IsVideo() {
		return nil, ErrInvalidConfig
	}
	if cfg.StreamID == "" {
		cfg.StreamID = cfg.ID
	}
	if cfg.MTU == 0 {
		cfg.MTU = 1200
	}

	return &VideoTrack{
		id:       cfg.ID,
		streamID: cfg.StreamID,
		codec:    cfg.Codec,
		config:   cfg,
	}, nil
}

// ID returns the track ID.
func (t *VideoTrack) ID() string { return t.id }

// RID returns the RTP stream ID; always empty, simulcast is not offered.
func (t *VideoTrack) RID() string { return "" }

// StreamID returns the stream ID.
func (t *VideoTrack) StreamID() string { return t.streamID }

// Kind returns webrtc.RTPCodecTypeVideo.
func (t *VideoTrack) Kind() webrtc.RTPCodecType { return webrtc.RTPCodecTypeVideo }

// Bind is called by pion when the track is added to a peer connection. It
// creates the encoder and packetizer for the negotiated parameters.
func (t *VideoTrack) Bind(ctx webrtc.TrackLocalContext) (webrtc.RTPCodecParameters, error) {
	if t.closed.Load() {
		return webrtc.RTPCodecParameters{}, ErrTrackClosed
	}
	if t.bound.Load() {
		return webrtc.RTPCodecParameters{}, ErrAlreadyBound
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	selected := selectCodecParameters(ctx.CodecParameters(), t.codec.MimeType(), t.codec.ClockRate(), 0)

	enc, err := encoder.NewVideoEncoder(t.codec, codec.VideoConfig{
		Width:          t.config.Width,
		Height:         t.config.Height,
		Bitrate:        t.config.Bitrate,
		FPS:            t.config.FPS,
		PreferSoftware: t.config.PreferSoftware,
	})
	if err != nil {
		return webrtc.RTPCodecParameters{}, err
	}

	pkt, err := packetizer.New(packetizer.Config{
		Codec:       t.codec,
		SSRC:        uint32(ctx.SSRC()),
		PayloadType: uint8(selected.PayloadType),
		MTU:         t.config.MTU,
		ClockRate:   t.codec.ClockRate(),
	})
	if err != nil {
		enc.Close()
		return webrtc.RTPCodecParameters{}, err
	}

	// A keyframe can approach the encoder's output bound; size the RTP
	// buffers for that worst case so steady state never allocates.
	t.encBuf = make([]byte, enc.MaxEncodedSize())
	maxPackets := pkt.MaxPackets(enc.MaxEncodedSize())
	t.packetBuf = make([]byte, maxPackets*pkt.MaxPacketSize())
	t.packetInfo = make([]packetizer.PacketInfo, maxPackets)

	t.enc = enc
	t.pkt = pkt
	t.writer = ctx.WriteStream()
	t.codecParams = selected

	t.bound.Store(true)
	return t.codecParams, nil
}

// Unbind is called when the track is removed from the peer connection.
func (t *VideoTrack) Unbind(webrtc.TrackLocalContext) error {
	if !t.bound.CompareAndSwap(true, false) {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.releaseLocked()
	return nil
}

func (t *VideoTrack) releaseLocked() {
	if t.enc != nil {
		t.enc.Close()
		t.enc = nil
	}
	if t.pkt != nil {
		t.pkt.Close()
		t.pkt = nil
	}
	t.writer = nil
}

// WriteFrame encodes one raw frame and sends the resulting RTP packets.
// Returns nil when the encoder buffered the frame without producing output.
func (t *VideoTrack) WriteFrame(f *frame.VideoFrame, forceKeyframe bool) error {
	if t.closed.Load() {
		return ErrTrackClosed
	}
	if !t.bound.Load() {
		return ErrNotBound
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.enc == nil || t.pkt == nil || t.writer == nil {
		return ErrNotBound
	}

	result, err := t.enc.EncodeInto(f, t.encBuf, forceKeyframe)
	if errors.Is(err, encoder.ErrNeedMoreData) {
		return nil
	}
	if err != nil {
		return err
	}

	return writePackets(t.pkt, t.writer, t.encBuf[:result.N], f.PTS, result.IsKeyframe, t.packetBuf, t.packetInfo)
}

// WriteEncodedData packetizes pre-encoded bitstream and sends it.
func (t *VideoTrack) WriteEncodedData(data []byte, timestamp uint32, isKeyframe bool) error {
	if t.closed.Load() {
		return ErrTrackClosed
	}
	if !t.bound.Load() {
		return ErrNotBound
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pkt == nil || t.writer == nil {
		return ErrNotBound
	}
	return writePackets(t.pkt, t.writer, data, timestamp, isKeyframe, t.packetBuf, t.packetInfo)
}

// WriteRTP sends an already-formed RTP packet, bypassing the encoder.
func (t *VideoTrack) WriteRTP(pkt *rtp.Packet) error {
	if t.closed.Load() {
		return ErrTrackClosed
	}

	t.mu.Lock()
	writer := t.writer
	t.mu.Unlock()
	if writer == nil {
		return ErrNotBound
	}

	buf, err := pkt.Marshal()
	if err != nil {
		return err
	}
	_, err = writer.Write(buf)
	return err
}

// RequestKeyFrame makes the next encoded frame a keyframe.
func (t *VideoTrack) RequestKeyFrame() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enc != nil {
		t.enc.RequestKeyFrame()
	}
}

// SetBitrate adjusts the encoder bitrate. Before binding it only updates
// the stored config.
func (t *VideoTrack) SetBitrate(bps uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enc != nil {
		return t.enc.SetBitrate(bps)
	}
	t.config.Bitrate = bps
	return nil
}

// SetFramerate adjusts the encoder framerate. Before binding it only
// updates the stored config.
func (t *VideoTrack) SetFramerate(fps float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enc != nil {
		return t.enc.SetFramerate(fps)
	}
	t.config.FPS = fps
	return nil
}

// Close releases the encoder and packetizer. Safe to call more than once.
func (t *VideoTrack) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.releaseLocked()
	return nil
}

// AudioTrackConfig configures an Opus audio track.
type AudioTrackConfig struct {
	ID         string
	StreamID   string
	SampleRate int
	Channels   int
	Bitrate    uint32
	MTU        uint16
}

// AudioTrack implements webrtc.TrackLocal over the engine's Opus encoder.
type AudioTrack struct {
	id       string
	streamID string

	config AudioTrackConfig

	mu          sync.Mutex
	enc         encoder.AudioEncoder
	pkt         packetizer.Packetizer
	writer      webrtc.TrackLocalWriter
	codecParams webrtc.RTPCodecParameters

	encBuf     []byte
	packetBuf  []byte
	packetInfo []packetizer.PacketInfo

	closed atomic.Bool
	bound  atomic.Bool
}

// NewAudioTrack creates an unbound audio track. Zero config fields take
// Opus defaults: 48 kHz stereo at 64 kbps.
func NewAudioTrack(cfg AudioTrackConfig) (*AudioTrack, error) {
	if cfg.ID == "" {
		return nil, ErrInvalidConfig
	}
	if cfg.StreamID == "" {
		cfg.StreamID = cfg.ID
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 48000
	}
	if cfg.Channels == 0 {
		cfg.Channels = 2
	}
	if cfg.Bitrate == 0 {
		cfg.Bitrate = 64000
	}
	if cfg.MTU == 0 {
		cfg.MTU = 1200
	}

	return &AudioTrack{
		id:       cfg.ID,
		streamID: cfg.StreamID,
		config:   cfg,
	}, nil
}

// ID returns the track ID.
func (t *AudioTrack) ID() string { return t.id }

// RID returns the RTP stream ID; always empty.
func (t *AudioTrack) RID() string { return "" }

// StreamID returns the stream ID.
func (t *AudioTrack) StreamID() string { return t.streamID }

// Kind returns webrtc.RTPCodecTypeAudio.
func (t *AudioTrack) Kind() webrtc.RTPCodecType { return webrtc.RTPCodecTypeAudio }

// Bind is called by pion when the track is added to a peer connection.
func (t *AudioTrack) Bind(ctx webrtc.TrackLocalContext) (webrtc.RTPCodecParameters, error) {
	if t.closed.Load() {
		return webrtc.RTPCodecParameters{}, ErrTrackClosed
	}
	if t.bound.Load() {
		return webrtc.RTPCodecParameters{}, ErrAlreadyBound
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	selected := selectCodecParameters(ctx.CodecParameters(), codec.Opus.MimeType(), codec.Opus.ClockRate(), uint16(t.config.Channels))

	enc, err := encoder.NewOpusEncoder(codec.OpusConfig{
		SampleRate: t.config.SampleRate,
		Channels:   t.config.Channels,
		Bitrate:    t.config.Bitrate,
	})
	if err != nil {
		return webrtc.RTPCodecParameters{}, err
	}

	pkt, err := packetizer.New(packetizer.Config{
		Codec:       codec.Opus,
		SSRC:        uint32(ctx.SSRC()),
		PayloadType: uint8(selected.PayloadType),
		MTU:         t.config.MTU,
		ClockRate:   codec.Opus.ClockRate(),
	})
	if err != nil {
		enc.Close()
		return webrtc.RTPCodecParameters{}, err
	}

	// Opus packets fit a single MTU; a handful of slots is plenty.
	t.encBuf = make([]byte, enc.MaxEncodedSize())
	maxPackets := pkt.MaxPackets(enc.MaxEncodedSize())
	t.packetBuf = make([]byte, maxPackets*pkt.MaxPacketSize())
	t.packetInfo = make([]packetizer.PacketInfo, maxPackets)

	t.enc = enc
	t.pkt = pkt
	t.writer = ctx.WriteStream()
	t.codecParams = selected

	t.bound.Store(true)
	return t.codecParams, nil
}

// Unbind is called when the track is removed from the peer connection.
func (t *AudioTrack) Unbind(webrtc.TrackLocalContext) error {
	if !t.bound.CompareAndSwap(true, false) {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.releaseLocked()
	return nil
}

func (t *AudioTrack) releaseLocked() {
	if t.enc != nil {
		t.enc.Close()
		t.enc = nil
	}
	if t.pkt != nil {
		t.pkt.Close()
		t.pkt = nil
	}
	t.writer = nil
}

// WriteFrame encodes one PCM frame and sends the resulting RTP packets.
func (t *AudioTrack) WriteFrame(f *frame.AudioFrame) error {
	if t.closed.Load() {
		return ErrTrackClosed
	}
	if !t.bound.Load() {
		return ErrNotBound
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.enc == nil || t.pkt == nil || t.writer == nil {
		return ErrNotBound
	}

	n, err := t.enc.EncodeInto(f, t.encBuf)
	if err != nil {
		return err
	}
	return writePackets(t.pkt, t.writer, t.encBuf[:n], f.PTS, false, t.packetBuf, t.packetInfo)
}

// WriteEncodedData packetizes a pre-encoded Opus packet and sends it.
func (t *AudioTrack) WriteEncodedData(data []byte, timestamp uint32) error {
	if t.closed.Load() {
		return ErrTrackClosed
	}
	if !t.bound.Load() {
		return ErrNotBound
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pkt == nil || t.writer == nil {
		return ErrNotBound
	}
	return writePackets(t.pkt, t.writer, data, timestamp, false, t.packetBuf, t.packetInfo)
}

// SetBitrate adjusts the encoder bitrate. Before binding it only updates
// the stored config.
func (t *AudioTrack) SetBitrate(bps uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enc != nil {
		return t.enc.SetBitrate(bps)
	}
	t.config.Bitrate = bps
	return nil
}

// Close releases the encoder and packetizer. Safe to call more than once.
func (t *AudioTrack) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.releaseLocked()
	return nil
}

// selectCodecParameters picks the negotiated parameters matching mimeType,
// falling back to a synthetic entry when the codec was not negotiated.
func selectCodecParameters(negotiated []webrtc.RTPCodecParameters, mimeType string, clockRate uint32, channels uint16) webrtc.RTPCodecParameters {
	for i := range negotiated {
		if negotiated[i].MimeType == mimeType {
			return negotiated[i]
		}
	}
	return webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:  mimeType,
			ClockRate: clockRate,
			Channels:  channels,
		},
	}
}

// writePackets packetizes one encoded frame and writes every packet.
func writePackets(pkt packetizer.Packetizer, writer webrtc.TrackLocalWriter, data []byte, timestamp uint32, isKeyframe bool, packetBuf []byte, packetInfo []packetizer.PacketInfo) error {
	if len(data) == 0 {
		return nil
	}
	numPackets, err := pkt.PacketizeInto(data, timestamp, isKeyframe, packetBuf, packetInfo)
	if err != nil {
		return err
	}
	for i := 0; i < numPackets; i++ {
		info := packetInfo[i]
		if _, err := writer.Write(packetBuf[info.Offset : info.Offset+info.Size]); err != nil {
			return err
		}
	}
	return nil
}
