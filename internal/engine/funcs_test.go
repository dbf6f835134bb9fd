package engine

import (
	"errors"
	"os"
	"runtime"
	"strings"
	"testing"
)

// foreignLibrary returns a loadable shared library that is not the engine
// shim, or skips when none of the well-known locations exist.
func foreignLibrary(t *testing.T) string {
	t.Helper()
	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = []string{
			"/usr/lib/libSystem.B.dylib",
			"/usr/lib/libz.dylib",
		}
	case "linux":
		candidates = []string{
			"/lib/x86_64-linux-gnu/libm.so.6",
			"/lib/aarch64-linux-gnu/libm.so.6",
			"/usr/lib/libm.so.6",
			"/lib/libm.so.6",
		}
	case "windows":
		candidates = []string{`C:\Windows\System32\kernel32.dll`}
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	t.Skip("no loadable system library found")
	return ""
}

func TestRegisterFunctionsRejectsForeignLibrary(t *testing.T) {
	path := foreignLibrary(t)

	handle, err := dlopenLibrary(path, RTLD_NOW|RTLD_GLOBAL)
	if err != nil {
		t.Fatalf("dlopen %s: %v", path, err)
	}
	defer dlcloseLibrary(handle)

	err = registerFunctions(handle)
	if err == nil {
		t.Fatal("registerFunctions accepted a library without rtc symbols")
	}
	if !errors.Is(err, ErrInitFailed) {
		t.Errorf("error %v should wrap ErrInitFailed", err)
	}
	if !strings.Contains(err.Error(), "rtc_version") {
		t.Errorf("error %q should name the missing symbol", err)
	}
}

func TestInitializeReportsMissingSymbols(t *testing.T) {
	initMu.Lock()
	done := initDone
	initMu.Unlock()
	if done {
		t.Skip("engine initialization already attempted in this process")
	}

	err := Initialize(Options{
		LibraryPath:     foreignLibrary(t),
		DisableDownload: true,
	})
	if err == nil {
		t.Fatal("Initialize with a symbol-less library must fail")
	}
	if !errors.Is(err, ErrInitFailed) {
		t.Errorf("error %v should wrap ErrInitFailed", err)
	}
	if Initialized() {
		t.Error("Initialized() true after failed Initialize")
	}
}

func TestVersionRequiresInitialization(t *testing.T) {
	if Initialized() {
		t.Skip("engine loaded in this process")
	}

	// After a failed Initialize the symbols can be bound while the library
	// is already unloaded; Version must not call through them.
	orig := rtcVersion
	rtcVersion = func() uintptr {
		panic("version symbol called without a loaded engine")
	}
	defer func() { rtcVersion = orig }()

	if v := Version(); v != "" {
		t.Errorf("Version() = %q before initialization", v)
	}
}
