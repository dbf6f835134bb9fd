package rtcbridge

import (
	"path/filepath"
	"testing"
)

func TestInitializeMissingLibrary(t *testing.T) {
	if Initialized() {
		t.Skip("engine already loaded in this process")
	}
	if v := EngineVersion(); v != "" {
		t.Errorf("version before init = %q", v)
	}

	opts := Options{
		LibraryPath:     filepath.Join(t.TempDir(), "libmissing.so"),
		DisableDownload: true,
	}
	err := Initialize(opts)
	if err == nil {
		t.Fatal("Initialize with a missing library must fail")
	}
	if Initialized() {
		t.Error("Initialized() true after failed Initialize")
	}

	// Repeat calls return the first call's result.
	if again := Initialize(opts); again != err {
		t.Errorf("repeat Initialize = %v, want %v", again, err)
	}
}
