package engine

import (
	"errors"
	"testing"
)

func TestStatusErrorMapping(t *testing.T) {
	cases := []struct {
		code int32
		want error
	}{
		{StatusErrInvalidParam, ErrInvalidParam},
		{StatusErrInitFailed, ErrInitFailed},
		{StatusErrEncodeFailed, ErrEncodeFailed},
		{StatusErrDecodeFailed, ErrDecodeFailed},
		{StatusErrOutOfMemory, ErrOutOfMemory},
		{StatusErrNotSupported, ErrNotSupported},
		{StatusErrNeedMoreData, ErrNeedMoreData},
		{StatusErrBufferTooSmall, ErrBufferTooSmall},
		{StatusErrNotFound, ErrNotFound},
		{StatusErrRenegotiationNeeded, ErrRenegotiationNeeded},
	}
	for _, tc := range cases {
		if got := StatusError(tc.code); !errors.Is(got, tc.want) {
			t.Errorf("StatusError(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}

	if got := StatusError(StatusOK); got != nil {
		t.Errorf("StatusError(OK) = %v, want nil", got)
	}
	if got := StatusError(-999); got == nil {
		t.Error("unknown status should map to a non-nil error")
	}
}

func TestErrorBufferEmpty(t *testing.T) {
	var buf ErrorBuffer
	if s := buf.String(); s != "" {
		t.Errorf("empty buffer String = %q", s)
	}
	if err := buf.ToError(StatusOK); err != nil {
		t.Errorf("ToError(OK) = %v", err)
	}
	if err := buf.ToError(StatusErrEncodeFailed); !errors.Is(err, ErrEncodeFailed) {
		t.Errorf("ToError without message = %v, want plain sentinel", err)
	}
}

func TestErrorBufferWithMessage(t *testing.T) {
	var buf ErrorBuffer
	copy(buf[:], "bitrate out of range\x00")

	err := buf.ToError(StatusErrInvalidParam)
	if !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("errors.Is failed for %v", err)
	}

	var sm *StatusWithMessage
	if !errors.As(err, &sm) {
		t.Fatalf("expected StatusWithMessage, got %T", err)
	}
	if sm.Message != "bitrate out of range" {
		t.Errorf("Message = %q", sm.Message)
	}
}

func TestRequireBeforeInitialize(t *testing.T) {
	if Initialized() {
		t.Skip("engine already initialized in this process")
	}
	if err := Require(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Require = %v, want ErrNotInitialized", err)
	}
}

func TestLibraryNameFor(t *testing.T) {
	cases := map[string]string{
		"darwin":  "librtcengine_shim.dylib",
		"linux":   "librtcengine_shim.so",
		"freebsd": "librtcengine_shim.so",
		"windows": "rtcengine_shim.dll",
	}
	for goos, want := range cases {
		if got := libraryNameFor(goos); got != want {
			t.Errorf("libraryNameFor(%s) = %q, want %q", goos, got, want)
		}
	}
}

func TestEnginePlatformKeyFor(t *testing.T) {
	if key, err := enginePlatformKeyFor("linux", "amd64"); err != nil || key != "linux_amd64" {
		t.Errorf("linux/amd64 = (%q, %v)", key, err)
	}
	if key, err := enginePlatformKeyFor("darwin", "arm64"); err != nil || key != "darwin_arm64" {
		t.Errorf("darwin/arm64 = (%q, %v)", key, err)
	}
	if _, err := enginePlatformKeyFor("plan9", "386"); err == nil {
		t.Error("plan9/386 should not have a platform key")
	}
}

func TestPreferSoftwareFromEnv(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"0":     false,
		"false": false,
		"FALSE": false,
		"1":     true,
		"true":  true,
		"yes":   true,
	}
	for value, want := range cases {
		t.Setenv(EnvPreferSoftwareCodecs, value)
		if got := preferSoftwareFromEnv(); got != want {
			t.Errorf("preferSoftwareFromEnv(%q) = %v, want %v", value, got, want)
		}
	}
}

func TestEngineManifestParses(t *testing.T) {
	manifest, err := loadEngineManifest()
	if err != nil {
		t.Fatalf("loadEngineManifest: %v", err)
	}
	if manifest.ReleaseTag == "" {
		t.Error("manifest missing release_tag")
	}
	if manifest.BaseURL == "" {
		t.Error("manifest missing base_url")
	}
	for _, platform := range []string{"darwin_arm64", "darwin_amd64", "linux_arm64", "linux_amd64"} {
		asset, ok := manifest.Assets[platform]
		if !ok {
			t.Errorf("manifest missing asset for %s", platform)
			continue
		}
		if asset.File == "" || !isValidSHA256(asset.SHA256) {
			t.Errorf("manifest asset for %s is incomplete", platform)
		}
	}
}
