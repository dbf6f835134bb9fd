package engine

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	downloadTimeout   = 10 * time.Minute
	downloadLockDelay = 200 * time.Millisecond
	downloadLockTries = 50
)

type engineManifest struct {
	SchemaVersion int                       `json:"schema_version"`
	BaseURL       string                    `json:"base_url"`
	ReleaseTag    string                    `json:"release_tag"`
	Assets        map[string]engineAssetRef `json:"assets"`
}

type engineAssetRef struct {
	File   string `json:"file"`
	SHA256 string `json:"sha256"`
}

//go:embed engine_manifest.json
var engineManifestData []byte

var (
	engineManifestOnce   sync.Once
	engineManifestErr    error
	engineManifestCached *engineManifest
)

// resolveLibrary finds the engine shim on disk, falling back to the release
// auto-download. The second return value carries a non-fatal download error;
// dlopen may still find the bare library name on the system search path.
func resolveLibrary(opts Options) (string, error, error) {
	if path, ok := findLocalLibrary(opts); ok {
		return path, nil, nil
	}
	if opts.LibraryPath != "" {
		return "", nil, fmt.Errorf("%w: %s", ErrLibraryNotFound, opts.LibraryPath)
	}

	if opts.DisableDownload || isDownloadDisabled() {
		return libraryName(), nil, nil
	}

	path, err := downloadEngine()
	if err != nil {
		return libraryName(), err, nil
	}

	return path, nil, nil
}

func isDownloadDisabled() bool {
	value := strings.TrimSpace(os.Getenv(EnvEngineDisableDL))
	if value == "" {
		return false
	}
	value = strings.ToLower(value)
	return value != "0" && value != "false"
}

func downloadEngine() (string, error) {
	manifest, err := loadEngineManifest()
	if err != nil {
		return "", err
	}

	platform, err := enginePlatformKey()
	if err != nil {
		return "", err
	}

	asset, ok := manifest.Assets[platform]
	if !ok {
		return "", fmt.Errorf("engine manifest missing asset for %s", platform)
	}
	if asset.File == "" {
		return "", fmt.Errorf("engine manifest missing file for %s", platform)
	}
	if !isValidSHA256(asset.SHA256) {
		return "", fmt.Errorf("engine manifest has invalid sha256 for %s: %q", platform, asset.SHA256)
	}
	if manifest.ReleaseTag == "" {
		return "", errors.New("engine manifest missing release_tag")
	}

	baseURL := strings.TrimRight(manifest.BaseURL, "/")
	if override := strings.TrimSpace(os.Getenv(EnvEngineBaseURL)); override != "" {
		baseURL = strings.TrimRight(override, "/")
	}
	if baseURL == "" {
		return "", errors.New("engine manifest base_url is empty")
	}

	url := fmt.Sprintf("%s/%s/%s", baseURL, manifest.ReleaseTag, asset.File)

	cacheRoot, err := engineCacheRoot()
	if err != nil {
		return "", err
	}

	libName := libraryName()
	destDir := filepath.Join(cacheRoot, "engine", manifest.ReleaseTag, platform)
	libPath := filepath.Join(destDir, libName)

	if _, err := os.Stat(libPath); err == nil {
		return libPath, nil
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create engine cache dir: %w", err)
	}

	if err := withDownloadLock(destDir, func() error {
		if _, err := os.Stat(libPath); err == nil {
			return nil
		}
		return downloadAndInstallEngine(url, asset.SHA256, destDir, libName)
	}); err != nil {
		return "", err
	}

	if _, err := os.Stat(libPath); err != nil {
		return "", fmt.Errorf("engine not found after download: %s", libPath)
	}

	return libPath, nil
}

func enginePlatformKey() (string, error) {
	return enginePlatformKeyFor(runtime.GOOS, runtime.GOARCH)
}

func enginePlatformKeyFor(goos, goarch string) (string, error) {
	switch goos {
	case "darwin":
		switch goarch {
		case "arm64":
			return "darwin_arm64", nil
		case "amd64":
			return "darwin_amd64", nil
		}
	case "linux":
		switch goarch {
		case "arm64":
			return "linux_arm64", nil
		case "amd64":
			return "linux_amd64", nil
		}
	}
	return "", fmt.Errorf("unsupported platform for auto-download: %s/%s", goos, goarch)
}

func engineCacheRoot() (string, error) {
	if override := strings.TrimSpace(os.Getenv(EnvEngineCacheDir)); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".rtcbridge"), nil
}

func loadEngineManifest() (*engineManifest, error) {
	engineManifestOnce.Do(func() {
		var parsed engineManifest
		if err := json.Unmarshal(engineManifestData, &parsed); err != nil {
			engineManifestErr = fmt.Errorf("parse engine manifest: %w", err)
			return
		}
		engineManifestCached = &parsed
	})

	if engineManifestErr != nil {
		return nil, engineManifestErr
	}
	if engineManifestCached == nil {
		return nil, errors.New("engine manifest not loaded")
	}
	return engineManifestCached, nil
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

	return fmt.Errorf("timeout waiting for engine download lock in %s", dir)
}

func downloadAndInstallEngine(url, expectedSHA256, destDir, libName string) error {
	tmpFile, err := os.CreateTemp(destDir, "engine-download-*.tgz")
	if err != nil {
		return fmt.Errorf("create download temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	client := &http.Client{Timeout: downloadTimeout}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("download engine archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download engine archive: unexpected status %s", resp.Status)
	}

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmpFile, hasher), resp.Body); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("download engine archive: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("finalize engine archive: %w", err)
	}

	actualSHA := hex.EncodeToString(hasher.Sum(nil))
	if !strings.EqualFold(actualSHA, expectedSHA256) {
		return fmt.Errorf("engine archive sha256 mismatch: expected %s, got %s", expectedSHA256, actualSHA)
	}

	extractDir, err := os.MkdirTemp(destDir, "engine-extract-")
	if err != nil {
		return fmt.Errorf("create extract dir: %w", err)
	}
	defer os.RemoveAll(extractDir)

	if err := extractTarGz(tmpPath, extractDir); err != nil {
		return fmt.Errorf("extract engine archive: %w", err)
	}

	foundLib, err := findFileByName(extractDir, libName)
	if err != nil {
		return err
	}

	finalPath := filepath.Join(destDir, libName)
	if err := moveFile(foundLib, finalPath); err != nil {
		return fmt.Errorf("install engine: %w", err)
	}

	if runtime.GOOS != "windows" {
		_ = os.Chmod(finalPath, 0o755)
	}

	copyOptionalFile(extractDir, "LICENSE", filepath.Join(destDir, "LICENSE"))
	copyOptionalFile(extractDir, "NOTICE", filepath.Join(destDir, "NOTICE"))

	return nil
}

func extractTarGz(archivePath, destDir string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return err
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		cleanName := filepath.Clean(header.Name)
		if strings.HasPrefix(cleanName, "..") || filepath.IsAbs(cleanName) {
			return fmt.Errorf("invalid archive path: %s", header.Name)
		}

		targetPath := filepath.Join(destDir, cleanName)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tarReader); err != nil {
				_ = out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported archive entry: %s", header.Name)
		}
	}
}

func findFileByName(rootDir, name string) (string, error) {
	var found string
	err := filepath.WalkDir(rootDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if entry.Name() == name {
			found = path
			return io.EOF
		}
		return nil
	})
	if errors.Is(err, io.EOF) && found != "" {
		return found, nil
	}
	if err != nil {
		return "", err
	}
	return "", fmt.Errorf("file %s not found in archive", name)
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

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

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

func copyOptionalFile(rootDir, name, destPath string) {
	if existing, err := findFileByName(rootDir, name); err == nil {
		_ = copyFile(existing, destPath)
	}
}

func isValidSHA256(value string) bool {
	if len(value) != 64 {
		return false
	}
	_, err := hex.DecodeString(value)
	return err == nil
}
