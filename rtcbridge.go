// Package rtcbridge exposes a native real-time media engine to Go: hardware
// and software video codecs, single-frame RTP packetization, peer
// connections, and device capture. The engine library is loaded explicitly
// through Initialize; until then every adapter constructor fails with
// ErrNotInitialized.
package rtcbridge

import (
	"github.com/streamshim/rtcbridge/internal/engine"
)

// Options configures engine initialization.
type Options struct {
	// LibraryPath points at a librtcengine_shim build, skipping the
	// default search (RTCBRIDGE_ENGINE_PATH, local lib/ directories,
	// release auto-download, system paths).
	LibraryPath string

	// DisableDownload turns off the release auto-download fallback.
	DisableDownload bool

	// PreferSoftwareCodecs forces software codec backends process-wide,
	// even on platforms with hardware H264 support.
	PreferSoftwareCodecs bool
}

// ErrNotInitialized is returned by adapter constructors before Initialize
// has succeeded.
var ErrNotInitialized = engine.ErrNotInitialized

// Initialize loads the engine library and binds its entry points. Call it
// once at process start, before constructing encoders, decoders, peer
// connections, or capture devices. Repeat calls are idempotent and return
// the first call's result.
func Initialize(opts Options) error {
	return engine.Initialize(engine.Options{
		LibraryPath:          opts.LibraryPath,
		DisableDownload:      opts.DisableDownload,
		PreferSoftwareCodecs: opts.PreferSoftwareCodecs,
	})
}

// Initialized reports whether Initialize has completed successfully.
func Initialized() bool {
	return engine.Initialized()
}

// EngineVersion returns the loaded engine's version string, or "" before
// initialization.
func EngineVersion() string {
	return engine.Version()
}
