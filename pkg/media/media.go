// Package media provides a browser-like capture API: getUserMedia and
// getDisplayMedia resolve constraints against the engine's devices, open a
// native capture, and pump frames into encoding tracks.
package media

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/streamshim/rtcbridge/internal/engine"
	"github.com/streamshim/rtcbridge/pkg/codec"
	"github.com/streamshim/rtcbridge/pkg/frame"
	"github.com/streamshim/rtcbridge/pkg/track"
)

// Errors
var (
	ErrInvalidConstraints = errors.New("invalid constraints")
	ErrTrackEnded         = errors.New("track has ended")
)

// VideoConstraints requests video capture settings.
type VideoConstraints struct {
	Width     IntConstraint
	Height    IntConstraint
	FrameRate FloatConstraint

	FacingMode FacingMode // camera direction hint
	DeviceID   string     // exact device; "" picks the first camera

	// Display capture only. Surface selects monitor or window; ScreenID
	// pins an exact surface from EnumerateScreens.
	Surface  DisplaySurface
	ScreenID *int64

	Codec          codec.Type // default H264
	Bitrate        uint32     // 0 = auto from resolution
	PreferSoftware bool
}

// AudioConstraints requests audio capture settings.
type AudioConstraints struct {
	SampleRate   IntConstraint
	ChannelCount IntConstraint
	DeviceID     string
	Bitrate      uint32 // 0 = 64000

	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// Constraints requests tracks for GetUserMedia or GetDisplayMedia.
type Constraints struct {
	Video *VideoConstraints // nil = no video track
	Audio *AudioConstraints // nil = no audio track
}

// VideoSettings are the concrete values a video track resolved to.
type VideoSettings struct {
	Width     int
	Height    int
	FrameRate float64
	DeviceID  string
}

// AudioSettings are the concrete values an audio track resolved to.
type AudioSettings struct {
	SampleRate   int
	ChannelCount int
	DeviceID     string
}

func resolveVideoSettings(c VideoConstraints) (VideoSettings, error) {
	s := VideoSettings{
		Width:     c.Width.resolve(1280),
		Height:    c.Height.resolve(720),
		FrameRate: c.FrameRate.resolve(30),
		DeviceID:  c.DeviceID,
	}
	if err := c.Width.Validate("width", s.Width); err != nil {
		return VideoSettings{}, err
	}
	if err := c.Height.Validate("height", s.Height); err != nil {
		return VideoSettings{}, err
	}
	if err := c.FrameRate.Validate("frameRate", s.FrameRate); err != nil {
		return VideoSettings{}, err
	}
	if s.Width <= 0 || s.Height <= 0 || s.FrameRate <= 0 {
		return VideoSettings{}, ErrInvalidConstraints
	}
	return s, nil
}

func resolveAudioSettings(c AudioConstraints) (AudioSettings, error) {
	s := AudioSettings{
		SampleRate:   c.SampleRate.resolve(48000),
		ChannelCount: c.ChannelCount.resolve(2),
		DeviceID:     c.DeviceID,
	}
	if err := c.SampleRate.Validate("sampleRate", s.SampleRate); err != nil {
		return AudioSettings{}, err
	}
	if err := c.ChannelCount.Validate("channelCount", s.ChannelCount); err != nil {
		return AudioSettings{}, err
	}
	if s.SampleRate <= 0 || s.ChannelCount <= 0 {
		return AudioSettings{}, ErrInvalidConstraints
	}
	return s, nil
}

// MediaStreamTrack is one capturable media track.
type MediaStreamTrack interface {
	// ID returns the track identifier.
	ID() string

	// Kind returns "video" or "audio".
	Kind() string

	// Label returns the capture device label, or a synthetic one for
	// manually fed tracks.
	Label() string

	// Enabled gates frame delivery; a disabled track silently drops.
	Enabled() bool
	SetEnabled(enabled bool)

	// ReadyState returns "live" or "ended".
	ReadyState() string

	// Stop ends the track and releases its capture device.
	Stop()

	// Clone creates an independent track from the same constraints.
	// Clones are manually fed; they do not share the capture device.
	Clone() (MediaStreamTrack, error)
}

// MediaStream groups tracks, mirroring the browser's MediaStream.
type MediaStream struct {
	id string

	mu          sync.RWMutex
	videoTracks []MediaStreamTrack
	audioTracks []MediaStreamTrack
}

// NewMediaStream creates an empty stream.
func NewMediaStream() *MediaStream {
	return &MediaStream{id: generateID()}
}

// ID returns the stream identifier.
func (s *MediaStream) ID() string { return s.id }

// GetVideoTracks returns the stream's video tracks.
func (s *MediaStream) GetVideoTracks() []MediaStreamTrack {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MediaStreamTrack, len(s.videoTracks))
	copy(out, s.videoTracks)
	return out
}

// GetAudioTracks returns the stream's audio tracks.
func (s *MediaStream) GetAudioTracks() []MediaStreamTrack {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MediaStreamTrack, len(s.audioTracks))
	copy(out, s.audioTracks)
	return out
}

// GetTracks returns every track, video first.
func (s *MediaStream) GetTracks() []MediaStreamTrack {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MediaStreamTrack, 0, len(s.videoTracks)+len(s.audioTracks))
	out = append(out, s.videoTracks...)
	out = append(out, s.audioTracks...)
	return out
}

// GetTrackByID finds a track, or nil.
func (s *MediaStream) GetTrackByID(id string) MediaStreamTrack {
	for _, t := range s.GetTracks() {
		if t.ID() == id {
			return t
		}
	}
	return nil
}

// AddTrack adds a track to the stream.
func (s *MediaStream) AddTrack(t MediaStreamTrack) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Kind() == "video" {
		s.videoTracks = append(s.videoTracks, t)
	} else {
		s.audioTracks = append(s.audioTracks, t)
	}
}

// RemoveTrack removes a track from the stream. The track keeps running.
func (s *MediaStream) RemoveTrack(t MediaStreamTrack) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoTracks = removeByID(s.videoTracks, t.ID())
	s.audioTracks = removeByID(s.audioTracks, t.ID())
}

func removeByID(tracks []MediaStreamTrack, id string) []MediaStreamTrack {
	for i, t := range tracks {
		if t.ID() == id {
			return append(tracks[:i], tracks[i+1:]...)
		}
	}
	return tracks
}

// Active reports whether any track is live.
func (s *MediaStream) Active() bool {
	for _, t := range s.GetTracks() {
		if t.ReadyState() == "live" {
			return true
		}
	}
	return false
}

// Stop ends every track in the stream.
func (s *MediaStream) Stop() {
	for _, t := range s.GetTracks() {
		t.Stop()
	}
}

// videoCapturer is the common surface of the engine's camera and screen
// captures.
type videoCapturer interface {
	Start(engine.VideoFrameFunc) error
	Stop()
	Destroy()
}

type videoStreamTrack struct {
	track       *track.VideoTrack
	constraints VideoConstraints
	settings    VideoSettings
	capture     videoCapturer
	label       string

	enabled atomic.Bool
	ended   atomic.Bool
}

func (t *videoStreamTrack) ID() string                 { return t.track.ID() }
func (t *videoStreamTrack) Kind() string               { return "video" }
func (t *videoStreamTrack) Label() string              { return t.label }
func (t *videoStreamTrack) Enabled() bool              { return t.enabled.Load() }
func (t *videoStreamTrack) SetEnabled(e bool)          { t.enabled.Store(e) }
func (t *videoStreamTrack) GetSettings() VideoSettings { return t.settings }

func (t *videoStreamTrack) ReadyState() string {
	if t.ended.Load() {
		return "ended"
	}
	return "live"
}

func (t *videoStreamTrack) Stop() {
	if !t.ended.CompareAndSwap(false, true) {
		return
	}
	if t.capture != nil {
		t.capture.Stop()
		t.capture.Destroy()
	}
	t.track.Close()
}

func (t *videoStreamTrack) Clone() (MediaStreamTrack, error) {
	return CreateVideoTrack(t.constraints)
}

// WriteFrame feeds one raw frame. Disabled and ended tracks drop silently
// so capture pumps need no coordination with consumers.
func (t *videoStreamTrack) WriteFrame(f *frame.VideoFrame, forceKeyframe bool) error {
	if t.ended.Load() {
		return ErrTrackEnded
	}
	if !t.enabled.Load() {
		return nil
	}
	err := t.track.WriteFrame(f, forceKeyframe)
	if errors.Is(err, track.ErrNotBound) {
		// Not attached to a connection yet.
		return nil
	}
	return err
}

// RequestKeyFrame makes the next encoded frame a keyframe.
func (t *videoStreamTrack) RequestKeyFrame() { t.track.RequestKeyFrame() }

// SetBitrate adjusts the encoder bitrate at runtime.
func (t *videoStreamTrack) SetBitrate(bps uint32) error { return t.track.SetBitrate(bps) }

// pump delivers one captured frame into the encoder.
func (t *videoStreamTrack) pump(width, height int, y, u, v []byte, yStride, uStride, vStride int, timestampUs int64) {
	f := &frame.VideoFrame{
		Width:     width,
		Height:    height,
		Data:      [][]byte{y, u, v},
		Stride:    []int{yStride, uStride, vStride},
		Timestamp: time.Duration(timestampUs) * time.Microsecond,
		PTS:       uint32(timestampUs * 90 / 1000), // 90 kHz RTP clock
	}
	_ = t.WriteFrame(f, false)
}

type audioStreamTrack struct {
	track       *track.AudioTrack
	constraints AudioConstraints
	settings    AudioSettings
	capture     *engine.AudioCapture
	label       string

	enabled atomic.Bool
	ended   atomic.Bool
}

func (t *audioStreamTrack) ID() string                 { return t.track.ID() }
func (t *audioStreamTrack) Kind() string               { return "audio" }
func (t *audioStreamTrack) Label() string              { return t.label }
func (t *audioStreamTrack) Enabled() bool              { return t.enabled.Load() }
func (t *audioStreamTrack) SetEnabled(e bool)          { t.enabled.Store(e) }
func (t *audioStreamTrack) GetSettings() AudioSettings { return t.settings }

func (t *audioStreamTrack) ReadyState() string {
	if t.ended.Load() {
		return "ended"
	}
	return "live"
}

func (t *audioStreamTrack) Stop() {
	if !t.ended.CompareAndSwap(false, true) {
		return
	}
	if t.capture != nil {
		t.capture.Stop()
		t.capture.Destroy()
	}
	t.track.Close()
}

func (t *audioStreamTrack) Clone() (MediaStreamTrack, error) {
	return CreateAudioTrack(t.constraints)
}

// WriteFrame feeds one PCM frame, with the same drop semantics as video.
func (t *audioStreamTrack) WriteFrame(f *frame.AudioFrame) error {
	if t.ended.Load() {
		return ErrTrackEnded
	}
	if !t.enabled.Load() {
		return nil
	}
	err := t.track.WriteFrame(f)
	if errors.Is(err, track.ErrNotBound) {
		return nil
	}
	return err
}

// SetBitrate adjusts the encoder bitrate at runtime.
func (t *audioStreamTrack) SetBitrate(bps uint32) error { return t.track.SetBitrate(bps) }

func (t *audioStreamTrack) pump(samples []int16, sampleRate, channels int, timestampUs int64) {
	numSamples := 0
	if channels > 0 {
		numSamples = len(samples) / channels
	}
	f := &frame.AudioFrame{
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    samples,
		NumSamples: numSamples,
		Timestamp:  time.Duration(timestampUs) * time.Microsecond,
		PTS:        uint32(timestampUs * int64(sampleRate) / 1_000_000),
	}
	_ = t.WriteFrame(f)
}

// CreateVideoTrack builds a manually fed video track: no capture device is
// opened, the caller pushes frames through WriteFrame.
func CreateVideoTrack(constraints VideoConstraints) (MediaStreamTrack, error) {
	return newVideoTrack(constraints, nil, "rtcbridge-video")
}

// CreateAudioTrack builds a manually fed audio track.
func CreateAudioTrack(constraints AudioConstraints) (MediaStreamTrack, error) {
	return newAudioTrack(constraints, nil, "rtcbridge-audio")
}

func newVideoTrack(constraints VideoConstraints, capture videoCapturer, label string) (*videoStreamTrack, error) {
	settings, err := resolveVideoSettings(constraints)
	if err != nil {
		return nil, err
	}
	codecType := constraints.Codec
	if codecType == 0 {
		codecType = codec.H264
	}

	vt, err := track.NewVideoTrack(track.VideoTrackConfig{
		ID:             generateID(),
		Codec:          codecType,
		Width:          settings.Width,
		Height:         settings.Height,
		Bitrate:        constraints.Bitrate,
		FPS:            settings.FrameRate,
		PreferSoftware: constraints.PreferSoftware,
	})
	if err != nil {
		return nil, err
	}

	t := &videoStreamTrack{
		track:       vt,
		constraints: constraints,
		settings:    settings,
		capture:     capture,
		label:       label,
	}
	t.enabled.Store(true)
	return t, nil
}

func newAudioTrack(constraints AudioConstraints, capture *engine.AudioCapture, label string) (*audioStreamTrack, error) {
	settings, err := resolveAudioSettings(constraints)
	if err != nil {
		return nil, err
	}

	at, err := track.NewAudioTrack(track.AudioTrackConfig{
		ID:         generateID(),
		SampleRate: settings.SampleRate,
		Channels:   settings.ChannelCount,
		Bitrate:    constraints.Bitrate,
	})
	if err != nil {
		return nil, err
	}

	t := &audioStreamTrack{
		track:       at,
		constraints: constraints,
		settings:    settings,
		capture:     capture,
		label:       label,
	}
	t.enabled.Store(true)
	return t, nil
}

// GetUserMedia opens camera and microphone captures per the constraints
// and returns a stream of live tracks. Partial failure tears down tracks
// already opened.
func GetUserMedia(constraints Constraints) (*MediaStream, error) {
	if constraints.Video == nil && constraints.Audio == nil {
		return nil, ErrInvalidConstraints
	}

	stream := NewMediaStream()

	if constraints.Video != nil {
		vt, err := openCameraTrack(*constraints.Video)
		if err != nil {
			return nil, err
		}
		stream.AddTrack(vt)
	}

	if constraints.Audio != nil {
		at, err := openMicrophoneTrack(*constraints.Audio)
		if err != nil {
			stream.Stop()
			return nil, err
		}
		stream.AddTrack(at)
	}

	return stream, nil
}

// GetDisplayMedia opens a screen or window capture. Only video constraints
// apply; system audio capture is not offered by the engine.
func GetDisplayMedia(constraints Constraints) (*MediaStream, error) {
	if constraints.Video == nil {
		return nil, ErrInvalidConstraints
	}

	vt, err := openDisplayTrack(*constraints.Video)
	if err != nil {
		return nil, err
	}

	stream := NewMediaStream()
	stream.AddTrack(vt)
	return stream, nil
}

func openCameraTrack(constraints VideoConstraints) (*videoStreamTrack, error) {
	settings, err := resolveVideoSettings(constraints)
	if err != nil {
		return nil, err
	}

	devices, err := EnumerateDevices()
	if err != nil {
		return nil, err
	}
	device, err := pickDevice(devices, DeviceKindVideoInput, constraints.DeviceID)
	if err != nil {
		return nil, err
	}

	capture, err := engine.CreateVideoCapture(device.DeviceID, settings.Width, settings.Height, int(settings.FrameRate))
	if err != nil {
		return nil, err
	}

	constraints.DeviceID = device.DeviceID
	t, err := newVideoTrack(constraints, capture, device.Label)
	if err != nil {
		capture.Destroy()
		return nil, err
	}
	if err := capture.Start(t.pump); err != nil {
		t.Stop()
		return nil, err
	}
	return t, nil
}

func openMicrophoneTrack(constraints AudioConstraints) (*audioStreamTrack, error) {
	settings, err := resolveAudioSettings(constraints)
	if err != nil {
		return nil, err
	}

	devices, err := EnumerateDevices()
	if err != nil {
		return nil, err
	}
	device, err := pickDevice(devices, DeviceKindAudioInput, constraints.DeviceID)
	if err != nil {
		return nil, err
	}

	capture, err := engine.CreateAudioCapture(device.DeviceID, settings.SampleRate, settings.ChannelCount)
	if err != nil {
		return nil, err
	}

	constraints.DeviceID = device.DeviceID
	t, err := newAudioTrack(constraints, capture, device.Label)
	if err != nil {
		capture.Destroy()
		return nil, err
	}
	if err := capture.Start(t.pump); err != nil {
		t.Stop()
		return nil, err
	}
	return t, nil
}

func openDisplayTrack(constraints VideoConstraints) (*videoStreamTrack, error) {
	settings, err := resolveVideoSettings(constraints)
	if err != nil {
		return nil, err
	}

	screens, err := EnumerateScreens()
	if err != nil {
		return nil, err
	}
	screen, err := pickScreen(screens, constraints.Surface, constraints.ScreenID)
	if err != nil {
		return nil, err
	}

	capture, err := engine.CreateScreenCapture(screen.ID, screen.IsWindow, int(settings.FrameRate))
	if err != nil {
		return nil, err
	}

	t, err := newVideoTrack(constraints, capture, screen.Title)
	if err != nil {
		capture.Destroy()
		return nil, err
	}
	if err := capture.Start(t.pump); err != nil {
		t.Stop()
		return nil, err
	}
	return t, nil
}

var idCounter atomic.Uint64

func generateID() string {
	return fmt.Sprintf("rtcbridge-%d", idCounter.Add(1))
}

// AsVideoTrack unwraps the encoding track behind a video MediaStreamTrack.
func AsVideoTrack(t MediaStreamTrack) (*track.VideoTrack, bool) {
	if vt, ok := t.(*videoStreamTrack); ok {
		return vt.track, true
	}
	return nil, false
}

// AsAudioTrack unwraps the encoding track behind an audio MediaStreamTrack.
func AsAudioTrack(t MediaStreamTrack) (*track.AudioTrack, bool) {
	if at, ok := t.(*audioStreamTrack); ok {
		return at.track, true
	}
	return nil, false
}

// pionTrackProvider is satisfied by tracks that can hand out their pion
// TrackLocal for direct integration.
type pionTrackProvider interface {
	pionTrack() webrtc.TrackLocal
}

func (t *videoStreamTrack) pionTrack() webrtc.TrackLocal { return t.track }
func (t *audioStreamTrack) pionTrack() webrtc.TrackLocal { return t.track }
