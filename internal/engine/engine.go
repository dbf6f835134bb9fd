// Package engine provides purego bindings to the librtcengine shim, the
// native media engine behind rtcbridge. It owns library loading, the status
// code domain shared with the shim, and the flat codec / peer-connection /
// capture entry points the adapter packages build on.
package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"
)

var (
	// ErrNotInitialized is returned when Initialize has not been called.
	ErrNotInitialized = errors.New("rtcengine not initialized; call rtcbridge.Initialize first")

	// ErrLibraryNotFound is returned when the engine library cannot be found.
	ErrLibraryNotFound = errors.New("librtcengine_shim library not found")

	// Status sentinels matching the shim error codes; support errors.Is().
	ErrInvalidParam        = errors.New("invalid parameter")
	ErrInitFailed          = errors.New("initialization failed")
	ErrEncodeFailed        = errors.New("encode failed")
	ErrDecodeFailed        = errors.New("decode failed")
	ErrOutOfMemory         = errors.New("out of memory")
	ErrNotSupported        = errors.New("not supported")
	ErrNeedMoreData        = errors.New("need more data")
	ErrBufferTooSmall      = errors.New("buffer too small")
	ErrNotFound            = errors.New("not found")
	ErrRenegotiationNeeded = errors.New("renegotiation needed")
)

// Status codes from the shim (int32 to match C int).
const (
	StatusOK                     int32 = 0
	StatusErrInvalidParam        int32 = -1
	StatusErrInitFailed          int32 = -2
	StatusErrEncodeFailed        int32 = -3
	StatusErrDecodeFailed        int32 = -4
	StatusErrOutOfMemory         int32 = -5
	StatusErrNotSupported        int32 = -6
	StatusErrNeedMoreData        int32 = -7
	StatusErrBufferTooSmall      int32 = -8
	StatusErrNotFound            int32 = -9
	StatusErrRenegotiationNeeded int32 = -10
)

// StatusError converts a shim status code to a Go error.
// Returns sentinel errors that support errors.Is() comparisons.
func StatusError(code int32) error {
	switch code {
	case StatusOK:
		return nil
	case StatusErrInvalidParam:
		return ErrInvalidParam
	case StatusErrInitFailed:
		return ErrInitFailed
	case StatusErrEncodeFailed:
		return ErrEncodeFailed
	case StatusErrDecodeFailed:
		return ErrDecodeFailed
	case StatusErrOutOfMemory:
		return ErrOutOfMemory
	case StatusErrNotSupported:
		return ErrNotSupported
	case StatusErrNeedMoreData:
		return ErrNeedMoreData
	case StatusErrBufferTooSmall:
		return ErrBufferTooSmall
	case StatusErrNotFound:
		return ErrNotFound
	case StatusErrRenegotiationNeeded:
		return ErrRenegotiationNeeded
	default:
		return fmt.Errorf("unknown engine status: %d", code)
	}
}

// CodecType matches RtcCodecType in rtcengine.h (int32 to match C int).
type CodecType int32

const (
	CodecH264 CodecType = 0
	CodecVP8  CodecType = 1
	CodecVP9  CodecType = 2
	CodecAV1  CodecType = 3
	CodecOpus CodecType = 10
)

// Environment variables honored by the engine loader.
const (
	EnvEnginePath           = "RTCBRIDGE_ENGINE_PATH"
	EnvEngineDisableDL      = "RTCBRIDGE_ENGINE_DISABLE_DOWNLOAD"
	EnvEngineCacheDir       = "RTCBRIDGE_ENGINE_CACHE_DIR"
	EnvEngineBaseURL        = "RTCBRIDGE_ENGINE_BASE_URL"
	EnvPreferSoftwareCodecs = "RTCBRIDGE_PREFER_SOFTWARE_CODECS"
)

// Options configures engine initialization.
type Options struct {
	// LibraryPath overrides the search for librtcengine_shim.
	LibraryPath string

	// DisableDownload disables the release auto-download fallback.
	DisableDownload bool

	// PreferSoftwareCodecs sets the process-wide software codec policy.
	PreferSoftwareCodecs bool
}

var (
	initMu      sync.Mutex
	initDone    bool
	initErr     error
	libHandle   uintptr
	initialized atomic.Bool

	preferSoftware atomic.Bool
)

// Initialize loads the engine library and binds its entry points. It must be
// called exactly once by the host process before any adapter is constructed;
// repeat calls are idempotent and return the first call's result.
func Initialize(opts Options) error {
	initMu.Lock()
	defer initMu.Unlock()

	if initDone {
		return initErr
	}
	initDone = true

	if opts.PreferSoftwareCodecs || preferSoftwareFromEnv() {
		preferSoftware.Store(true)
	}

	libPath, downloadErr, err := resolveLibrary(opts)
	if err != nil {
		initErr = err
		return initErr
	}

	handle, err := dlopenLibrary(libPath, RTLD_NOW|RTLD_GLOBAL)
	if err != nil {
		if downloadErr != nil {
			initErr = fmt.Errorf("load %s: %w (auto-download failed: %w)", libPath, err, downloadErr)
		} else {
			initErr = fmt.Errorf("load %s: %w", libPath, err)
		}
		return initErr
	}

	if err := registerFunctions(handle); err != nil {
		_ = dlcloseLibrary(handle)
		initErr = err
		return initErr
	}

	if err := checkVersion(); err != nil {
		_ = dlcloseLibrary(handle)
		initErr = err
		return initErr
	}

	registerBridges()

	libHandle = handle
	initialized.Store(true)
	return nil
}

// Initialized reports whether the engine is loaded and usable.
func Initialized() bool {
	return initialized.Load()
}

// Require returns ErrNotInitialized when Initialize has not succeeded.
// Adapter constructors call this instead of lazily loading the library.
func Require() error {
	if !initialized.Load() {
		return ErrNotInitialized
	}
	return nil
}

// PreferSoftwareCodecs reports the process-wide software codec policy.
func PreferSoftwareCodecs() bool {
	return preferSoftware.Load()
}

func preferSoftwareFromEnv() bool {
	value := strings.TrimSpace(os.Getenv(EnvPreferSoftwareCodecs))
	if value == "" {
		return false
	}
	value = strings.ToLower(value)
	return value != "0" && value != "false"
}

// HasAcceleratedH264 reports whether this platform ships a hardware H264
// path in the engine (VideoToolbox on darwin). Overridable in tests.
var HasAcceleratedH264 = func() bool {
	return runtime.GOOS == "darwin"
}

// ExpectedEngineVersion is the shim API version this Go code expects.
// Must match kEngineVersion in shim/rtcengine_common.cc.
const ExpectedEngineVersion = "0.3.1"

// ErrVersionMismatch is returned when the shim version doesn't match.
var ErrVersionMismatch = errors.New("engine version mismatch")

// Version returns the engine shim version, or "" before initialization.
// The bound symbol must not be called unless Initialize succeeded: after a
// failed version check the symbols point into a dlclosed library.
func Version() string {
	if !initialized.Load() || rtcVersion == nil {
		return ""
	}
	ptr := rtcVersion()
	if ptr == 0 {
		return ""
	}
	return GoString(unsafe.Pointer(ptr))
}

func checkVersion() error {
	ptr := rtcVersion()
	if ptr == 0 {
		return fmt.Errorf("%w: engine reported no version", ErrVersionMismatch)
	}
	got := GoString(unsafe.Pointer(ptr))
	if got != ExpectedEngineVersion {
		return fmt.Errorf("%w: engine version %q, expected %q", ErrVersionMismatch, got, ExpectedEngineVersion)
	}
	return nil
}

func findLocalLibrary(opts Options) (string, bool) {
	if opts.LibraryPath != "" {
		if _, err := os.Stat(opts.LibraryPath); err == nil {
			return opts.LibraryPath, true
		}
		return "", false
	}

	if path := os.Getenv(EnvEnginePath); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}

	libName := libraryName()
	platformDir := fmt.Sprintf("%s_%s", runtime.GOOS, runtime.GOARCH)

	var searchPaths []string

	if execPath, err := os.Executable(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(filepath.Dir(execPath), "lib", platformDir, libName))
	}

	if wd, err := os.Getwd(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(wd, "lib", platformDir, libName),
			filepath.Join(wd, "..", "lib", platformDir, libName),
		)
	}

	// Relative to this source file, for development and tests.
	if _, thisFile, _, ok := runtime.Caller(0); ok {
		moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
		searchPaths = append(searchPaths, filepath.Join(moduleRoot, "lib", platformDir, libName))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			absPath, _ := filepath.Abs(path)
			return absPath, true
		}
	}

	return "", false
}

func libraryName() string {
	return libraryNameFor(runtime.GOOS)
}

func libraryNameFor(goos string) string {
	switch goos {
	case "darwin":
		return "librtcengine_shim.dylib"
	case "windows":
		return "rtcengine_shim.dll"
	default:
		return "librtcengine_shim.so"
	}
}
