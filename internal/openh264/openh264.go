// Package openh264 binds the libopenh264_bridge library, a flat C wrapper
// around Cisco's OpenH264 codec. It is the software H264 provider behind
// pkg/encoder and pkg/decoder; when the bridge is missing or fails to load,
// callers fall through to the native engine path.
package openh264

import "errors"

// Environment variables honored by the provider loader.
const (
	EnvPath            = "RTCBRIDGE_OPENH264_PATH"
	EnvURL             = "RTCBRIDGE_OPENH264_URL"
	EnvVersion         = "RTCBRIDGE_OPENH264_VERSION"
	EnvBaseURL         = "RTCBRIDGE_OPENH264_BASE_URL"
	EnvCacheDir        = "RTCBRIDGE_OPENH264_CACHE_DIR"
	EnvDisableDownload = "RTCBRIDGE_OPENH264_DISABLE_DOWNLOAD"
	EnvSHA256          = "RTCBRIDGE_OPENH264_SHA256"
)

// ErrUnavailable is returned by constructors when the bridge library could
// not be loaded on this platform.
var ErrUnavailable = errors.New("openh264 bridge not available")

// Config configures a provider encoder.
type Config struct {
	Width            int
	Height           int
	BitrateBps       uint32
	Framerate        float32
	KeyframeInterval int
}
