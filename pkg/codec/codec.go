// Package codec defines codec types and configurations for rtcbridge.
package codec

// Type represents a video or audio codec type.
type Type int

const (
	// Video codecs
	H264 Type = iota
	VP8
	VP9
	AV1

	// Audio codecs
	Opus
)

// String returns the string representation of the codec type.
func (t Type) String() string {
	switch t {
	case H264:
		return "H264"
	case VP8:
		return "VP8"
	case VP9:
		return "VP9"
	case AV1:
		return "AV1"
	case Opus:
		return "Opus"
	default:
		return "Unknown"
	}
}

// MimeType returns the MIME type for the codec.
func (t Type) MimeType() string {
	switch t {
	case H264:
		return "video/H264"
	case VP8:
		return "video/VP8"
	case VP9:
		return "video/VP9"
	case AV1:
		return "video/AV1"
	case Opus:
		return "audio/opus"
	default:
		return ""
	}
}

// IsVideo returns true if this is a video codec.
func (t Type) IsVideo() bool {
	switch t {
	case H264, VP8, VP9, AV1:
		return true
	default:
		return false
	}
}

// IsAudio returns true if this is an audio codec.
func (t Type) IsAudio() bool {
	return t == Opus
}

// ClockRate returns the RTP clock rate for the codec.
func (t Type) ClockRate() uint32 {
	switch t {
	case H264, VP8, VP9, AV1:
		return 90000
	case Opus:
		return 48000
	default:
		return 0
	}
}

// H264Profile represents H.264 profile-level-id values.
type H264Profile string

const (
	H264ProfileBaseline        H264Profile = "42001f" // Baseline Level 3.1
	H264ProfileConstrainedBase H264Profile = "42e01f" // Constrained Baseline Level 3.1
	H264ProfileMain            H264Profile = "4d001f" // Main Level 3.1
	H264ProfileHigh            H264Profile = "64001f" // High Level 3.1
)

// VP9Profile represents VP9 profiles.
type VP9Profile int

const (
	VP9Profile0 VP9Profile = 0 // 8-bit 4:2:0
	VP9Profile1 VP9Profile = 1 // 8-bit 4:2:2/4:4:4
	VP9Profile2 VP9Profile = 2 // 10/12-bit 4:2:0
	VP9Profile3 VP9Profile = 3 // 10/12-bit 4:2:2/4:4:4
)

// VideoConfig contains video encoder configuration shared by all codecs.
type VideoConfig struct {
	// Required
	Width  int
	Height int

	// Bitrate control
	Bitrate uint32 // Target bitrate in bps (0 = auto based on resolution)

	// Quality
	FPS         float64     // Target framerate (0 = 30)
	KeyInterval int         // Keyframe interval in frames (0 = 2 seconds worth)
	Profile     H264Profile // H264 only (empty = ConstrainedBaseline)
	VP9Profile  VP9Profile  // VP9 only

	// Backend selection
	PreferHW       bool // Prefer the hardware encoder when the engine has one
	PreferSoftware bool // Force the software provider path for H264
}

// FPSOrDefault returns FPS or the default framerate.
func (c VideoConfig) FPSOrDefault() float64 {
	if c.FPS <= 0 {
		return 30
	}
	return c.FPS
}

// BitrateOrDefault returns Bitrate or a resolution-derived default.
func (c VideoConfig) BitrateOrDefault() uint32 {
	if c.Bitrate > 0 {
		return c.Bitrate
	}
	return estimateVideoBitrate(c.Width, c.Height)
}

// KeyIntervalOrDefault returns KeyInterval or two seconds of frames.
func (c VideoConfig) KeyIntervalOrDefault() int {
	if c.KeyInterval > 0 {
		return c.KeyInterval
	}
	return int(2 * c.FPSOrDefault())
}

// OpusConfig contains Opus encoder configuration.
type OpusConfig struct {
	SampleRate int    // 8000, 12000, 16000, 24000, or 48000
	Channels   int    // 1 (mono) or 2 (stereo)
	Bitrate    uint32 // Target bitrate in bps (6000-510000)
}

// DefaultVideoConfig returns sensible defaults for the given resolution.
func DefaultVideoConfig(width, height int) VideoConfig {
	return VideoConfig{
		Width:       width,
		Height:      height,
		Bitrate:     estimateVideoBitrate(width, height),
		FPS:         30,
		KeyInterval: 60, // 2 seconds at 30fps
		Profile:     H264ProfileConstrainedBase,
	}
}

// DefaultOpusConfig returns sensible defaults for Opus.
func DefaultOpusConfig() OpusConfig {
	return OpusConfig{
		SampleRate: 48000,
		Channels:   2,
		Bitrate:    64000,
	}
}

// estimateVideoBitrate returns a reasonable bitrate for the resolution.
func estimateVideoBitrate(width, height int) uint32 {
	pixels := width * height
	switch {
	case pixels >= 3840*2160: // 4K
		return 15_000_000
	case pixels >= 2560*1440: // 1440p
		return 8_000_000
	case pixels >= 1920*1080: // 1080p
		return 4_000_000
	case pixels >= 1280*720: // 720p
		return 2_000_000
	case pixels >= 854*480: // 480p
		return 1_000_000
	case pixels >= 640*360: // 360p
		return 500_000
	default:
		return 300_000
	}
}
