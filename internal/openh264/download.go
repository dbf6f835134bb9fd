package openh264

import (
	"compress/bzip2"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	defaultBridgeVersion = "2.5.1"
	defaultBridgeBaseURL = "https://github.com/streamshim/rtcengine-builds/releases/download/openh264-bridge"

	downloadTimeout   = 10 * time.Minute
	downloadLockDelay = 200 * time.Millisecond
	downloadLockTries = 50
)

var errBridgeUnsupported = errors.New("openh264 bridge not published for this platform")

type bridgeSpec struct {
	URL       string
	Version   string
	Platform  string
	LibName   string
	SHA256    string
	CacheRoot string
}

func resolveBridge() (string, error) {
	if path := strings.TrimSpace(os.Getenv(EnvPath)); path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("openh264 bridge path not found: %w", err)
		}
		return path, nil
	}

	if isDownloadDisabled() {
		return "", nil
	}

	return downloadBridge()
}

func isDownloadDisabled() bool {
	value := strings.TrimSpace(os.Getenv(EnvDisableDownload))
	if value == "" {
		return false
	}
	value = strings.ToLower(value)
	return value != "0" && value != "false"
}

func downloadBridge() (string, error) {
	spec, err := bridgeDownloadSpec()
	if err != nil {
		return "", err
	}

	destDir := filepath.Join(spec.CacheRoot, "openh264", spec.Version, spec.Platform)
	libPath := filepath.Join(destDir, spec.LibName)

	if _, err := os.Stat(libPath); err == nil {
		return libPath, nil
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create openh264 cache dir: %w", err)
	}

	if err := withDownloadLock(destDir, func() error {
		if _, err := os.Stat(libPath); err == nil {
			return nil
		}
		return downloadAndInstallBridge(spec, destDir)
	}); err != nil {
		return "", err
	}

	if _, err := os.Stat(libPath); err != nil {
		return "", fmt.Errorf("openh264 bridge not found after download: %s", libPath)
	}

	return libPath, nil
}

func bridgeDownloadSpec() (bridgeSpec, error) {
	version := strings.TrimSpace(os.Getenv(EnvVersion))
	urlOverride := strings.TrimSpace(os.Getenv(EnvURL))
	if version == "" {
		if urlOverride != "" {
			version = "custom"
		} else {
			version = defaultBridgeVersion
		}
	}

	platform, err := bridgePlatformKey()
	if err != nil {
		return bridgeSpec{}, err
	}

	libName, err := bridgeLibraryName()
	if err != nil {
		return bridgeSpec{}, err
	}

	url := urlOverride
	if url == "" {
		archive, err := bridgeArchiveName(version)
		if err != nil {
			return bridgeSpec{}, err
		}
		baseURL := strings.TrimRight(defaultBridgeBaseURL, "/")
		if override := strings.TrimSpace(os.Getenv(EnvBaseURL)); override != "" {
			baseURL = strings.TrimRight(override, "/")
		}
		url = fmt.Sprintf("%s/%s", baseURL, archive)
	}

	cacheRoot, err := bridgeCacheRoot()
	if err != nil {
		return bridgeSpec{}, err
	}

	sha := strings.TrimSpace(os.Getenv(EnvSHA256))
	if sha != "" && !isValidSHA256(sha) {
		return bridgeSpec{}, fmt.Errorf("invalid openh264 bridge sha256: %q", sha)
	}

	return bridgeSpec{
		URL:       url,
		Version:   version,
		Platform:  platform,
		LibName:   libName,
		SHA256:    sha,
		CacheRoot: cacheRoot,
	}, nil
}

func bridgePlatformKey() (string, error) {
	return bridgePlatformKeyFor(runtime.GOOS, runtime.GOARCH)
}

func bridgePlatformKeyFor(goos, goarch string) (string, error) {
	switch goos {
	case "darwin":
		switch goarch {
		case "amd64":
			return "darwin_amd64", nil
		case "arm64":
			return "darwin_arm64", nil
		}
	case "linux":
		switch goarch {
		case "amd64":
			return "linux_amd64", nil
		case "arm64":
			return "linux_arm64", nil
		}
	}
	return "", fmt.Errorf("%w: %s/%s", errBridgeUnsupported, goos, goarch)
}

func bridgeArchiveName(version string) (string, error) {
	return bridgeArchiveNameFor(runtime.GOOS, runtime.GOARCH, version)
}

func bridgeArchiveNameFor(goos, goarch, version string) (string, error) {
	switch goos {
	case "darwin":
		switch goarch {
		case "amd64":
			return fmt.Sprintf("libopenh264_bridge-%s-mac-x64.dylib.bz2", version), nil
		case "arm64":
			return fmt.Sprintf("libopenh264_bridge-%s-mac-arm64.dylib.bz2", version), nil
		}
	case "linux":
		switch goarch {
		case "amd64":
			return fmt.Sprintf("libopenh264_bridge-%s-linux64.so.bz2", version), nil
		case "arm64":
			return fmt.Sprintf("libopenh264_bridge-%s-linux-arm64.so.bz2", version), nil
		}
	}
	return "", fmt.Errorf("%w: %s/%s", errBridgeUnsupported, goos, goarch)
}

func bridgeLibraryName() (string, error) {
	return bridgeLibraryNameFor(runtime.GOOS)
}

func bridgeLibraryNameFor(goos string) (string, error) {
	switch goos {
	case "darwin":
		return "libopenh264_bridge.dylib", nil
	case "linux":
		return "libopenh264_bridge.so", nil
	}
	return "", fmt.Errorf("no openh264 bridge library name for %s", goos)
}

func bridgeCacheRoot() (string, error) {
	if override := strings.TrimSpace(os.Getenv(EnvCacheDir)); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".rtcbridge"), nil
}

func withDownloadLock(dir string, fn func() error) error {
	lockPath := filepath.Join(dir, ".download.lock")

	for i := 0; i < downloadLockTries; i++ {
		lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_ = lockFile.Close()
			defer os.Remove(lockPath)
			return fn()
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("create download lock: %w", err)
		}
		time.Sleep(downloadLockDelay)
	}

	return fmt.Errorf("timeout waiting for openh264 download lock in %s", dir)
}

func downloadAndInstallBridge(spec bridgeSpec, destDir string) error {
	tmpFile, err := os.CreateTemp(destDir, "openh264-download-*.bz2")
	if err != nil {
		return fmt.Errorf("create openh264 temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	client := &http.Client{Timeout: downloadTimeout}
	resp, err := client.Get(spec.URL)
	if err != nil {
		return fmt.Errorf("download openh264 bridge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download openh264 bridge: unexpected status %s", resp.Status)
	}

	hasher := sha256.New()
	writer := io.Writer(tmpFile)
	if spec.SHA256 != "" {
		writer = io.MultiWriter(tmpFile, hasher)
	}

	if _, copyErr := io.Copy(writer, resp.Body); copyErr != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("download openh264 bridge: %w", copyErr)
	}
	if closeErr := tmpFile.Close(); closeErr != nil {
		return fmt.Errorf("finalize openh264 bridge: %w", closeErr)
	}

	if spec.SHA256 != "" {
		actualSHA := hex.EncodeToString(hasher.Sum(nil))
		if !strings.EqualFold(actualSHA, spec.SHA256) {
			return fmt.Errorf("openh264 bridge sha256 mismatch: expected %s, got %s", spec.SHA256, actualSHA)
		}
	}

	tmpOut, err := os.CreateTemp(destDir, "openh264-extract-*")
	if err != nil {
		return fmt.Errorf("create openh264 extract temp: %w", err)
	}
	tmpOutPath := tmpOut.Name()
	_ = tmpOut.Close()
	defer os.Remove(tmpOutPath)

	if strings.HasSuffix(strings.ToLower(spec.URL), ".bz2") {
		if err := extractBzip2(tmpPath, tmpOutPath); err != nil {
			return fmt.Errorf("extract openh264 bridge: %w", err)
		}
	} else if err := copyFile(tmpPath, tmpOutPath); err != nil {
		return fmt.Errorf("copy openh264 bridge: %w", err)
	}

	finalPath := filepath.Join(destDir, spec.LibName)
	if err := moveFile(tmpOutPath, finalPath); err != nil {
		return fmt.Errorf("install openh264 bridge: %w", err)
	}

	_ = os.Chmod(finalPath, 0o755)
	return nil
}

func extractBzip2(srcPath, destPath string) error {
	in, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer in.Close()

	reader := bzip2.NewReader(in)
	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.CopyN(out, reader, 100<<20); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return out.Sync()
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func isValidSHA256(value string) bool {
	if len(value) != 64 {
		return false
	}
	_, err := hex.DecodeString(value)
	return err == nil
}
