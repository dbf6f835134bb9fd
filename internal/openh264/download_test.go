package openh264

import (
	"errors"
	"testing"
)

func TestBridgeArchiveNames(t *testing.T) {
	cases := []struct {
		goos, goarch string
		want         string
	}{
		{"darwin", "amd64", "libopenh264_bridge-2.5.1-mac-x64.dylib.bz2"},
		{"darwin", "arm64", "libopenh264_bridge-2.5.1-mac-arm64.dylib.bz2"},
		{"linux", "amd64", "libopenh264_bridge-2.5.1-linux64.so.bz2"},
		{"linux", "arm64", "libopenh264_bridge-2.5.1-linux-arm64.so.bz2"},
	}
	for _, tc := range cases {
		got, err := bridgeArchiveNameFor(tc.goos, tc.goarch, "2.5.1")
		if err != nil {
			t.Errorf("%s/%s: %v", tc.goos, tc.goarch, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s/%s = %q, want %q", tc.goos, tc.goarch, got, tc.want)
		}
	}
}

func TestBridgeArchiveNameUnsupported(t *testing.T) {
	if _, err := bridgeArchiveNameFor("windows", "amd64", "2.5.1"); !errors.Is(err, errBridgeUnsupported) {
		t.Errorf("windows/amd64 = %v, want errBridgeUnsupported", err)
	}
	if _, err := bridgeArchiveNameFor("linux", "386", "2.5.1"); !errors.Is(err, errBridgeUnsupported) {
		t.Errorf("linux/386 = %v, want errBridgeUnsupported", err)
	}
}

func TestBridgeLibraryNames(t *testing.T) {
	if name, err := bridgeLibraryNameFor("darwin"); err != nil || name != "libopenh264_bridge.dylib" {
		t.Errorf("darwin = (%q, %v)", name, err)
	}
	if name, err := bridgeLibraryNameFor("linux"); err != nil || name != "libopenh264_bridge.so" {
		t.Errorf("linux = (%q, %v)", name, err)
	}
	if _, err := bridgeLibraryNameFor("windows"); err == nil {
		t.Error("windows should have no bridge library name")
	}
}

func TestBridgePlatformKeys(t *testing.T) {
	if key, err := bridgePlatformKeyFor("linux", "arm64"); err != nil || key != "linux_arm64" {
		t.Errorf("linux/arm64 = (%q, %v)", key, err)
	}
	if _, err := bridgePlatformKeyFor("windows", "arm64"); !errors.Is(err, errBridgeUnsupported) {
		t.Errorf("windows/arm64 = %v, want errBridgeUnsupported", err)
	}
}

func TestDownloadDisabledValues(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"0":     false,
		"false": false,
		"1":     true,
		"true":  true,
		"TRUE":  true,
	}
	for value, want := range cases {
		t.Setenv(EnvDisableDownload, value)
		if got := isDownloadDisabled(); got != want {
			t.Errorf("isDownloadDisabled(%q) = %v, want %v", value, got, want)
		}
	}
}

func TestBridgeSpecVersionOverride(t *testing.T) {
	t.Setenv(EnvVersion, "3.0.0")
	t.Setenv(EnvURL, "")
	t.Setenv(EnvSHA256, "")

	spec, err := bridgeDownloadSpec()
	if err != nil {
		t.Skipf("platform has no bridge: %v", err)
	}
	if spec.Version != "3.0.0" {
		t.Errorf("Version = %q, want 3.0.0", spec.Version)
	}
}

func TestBridgeSpecRejectsBadSHA(t *testing.T) {
	t.Setenv(EnvSHA256, "not-a-hash")
	if _, err := bridgeDownloadSpec(); err == nil {
		t.Error("bad sha256 should be rejected")
	}
}
