package engine

import (
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/streamshim/rtcbridge/internal/handle"
)

const (
	maxDevices = 64
	maxScreens = 64
)

// DeviceKind distinguishes enumerated capture devices.
type DeviceKind int32

const (
	DeviceVideoInput DeviceKind = 0
	DeviceAudioInput DeviceKind = 1
)

// rawDeviceInfo matches RtcDeviceInfo in rtcengine.h.
type rawDeviceInfo struct {
	ID   [256]byte
	Name [256]byte
	Kind int32
}

// DeviceInfo describes one capture device.
type DeviceInfo struct {
	ID   string
	Name string
	Kind DeviceKind
}

// rawScreenInfo matches RtcScreenInfo in rtcengine.h.
type rawScreenInfo struct {
	ID       int64
	IsWindow int32
	Title    [256]byte
}

// ScreenInfo describes one shareable screen or window.
type ScreenInfo struct {
	ID       int64
	IsWindow bool
	Title    string
}

// EnumerateDevices lists the platform's capture devices.
func EnumerateDevices() ([]DeviceInfo, error) {
	if err := Require(); err != nil {
		return nil, err
	}

	var raw [maxDevices]rawDeviceInfo
	var count int32

	code := rtcEnumerateDevices(uintptr(unsafe.Pointer(&raw[0])), maxDevices, Int32Ptr(&count))
	runtime.KeepAlive(&raw)
	if code != StatusOK {
		return nil, StatusError(code)
	}
	if count < 0 {
		count = 0
	}
	if count > maxDevices {
		count = maxDevices
	}

	devices := make([]DeviceInfo, 0, count)
	for i := int32(0); i < count; i++ {
		devices = append(devices, DeviceInfo{
			ID:   ByteArrayToString(raw[i].ID[:]),
			Name: ByteArrayToString(raw[i].Name[:]),
			Kind: DeviceKind(raw[i].Kind),
		})
	}
	return devices, nil
}

// EnumerateScreens lists shareable screens and windows.
func EnumerateScreens() ([]ScreenInfo, error) {
	if err := Require(); err != nil {
		return nil, err
	}

	var raw [maxScreens]rawScreenInfo
	var count int32

	code := rtcEnumerateScreens(uintptr(unsafe.Pointer(&raw[0])), maxScreens, Int32Ptr(&count))
	runtime.KeepAlive(&raw)
	if code != StatusOK {
		return nil, StatusError(code)
	}
	if count < 0 {
		count = 0
	}
	if count > maxScreens {
		count = maxScreens
	}

	screens := make([]ScreenInfo, 0, count)
	for i := int32(0); i < count; i++ {
		screens = append(screens, ScreenInfo{
			ID:       raw[i].ID,
			IsWindow: raw[i].IsWindow != 0,
			Title:    ByteArrayToString(raw[i].Title[:]),
		})
	}
	return screens, nil
}

// Capture frames reuse the track sink callback shapes; the bridges route
// through separate arenas so a capture cookie can never hit a track sink.
var (
	captureVideoSinks = handle.NewArena[VideoFrameFunc]()
	captureAudioSinks = handle.NewArena[AudioFrameFunc]()

	captureVideoBridge uintptr
	captureAudioBridge uintptr
)

func registerCaptureBridges() {
	captureVideoBridge = purego.NewCallback(onCaptureVideoFrame)
	captureAudioBridge = purego.NewCallback(onCaptureAudioFrame)
}

func onCaptureVideoFrame(cookie uintptr, width, height int32, yPlane, uPlane, vPlane uintptr, yStride, uStride, vStride int32, timestampUs int64) uintptr {
	cb, ok := captureVideoSinks.Get(handle.ID(cookie))
	if !ok || cb == nil {
		return 0
	}
	if width <= 0 || height <= 0 || width > 8192 || height > 8192 {
		return 0
	}
	if yStride <= 0 || uStride <= 0 || vStride <= 0 || yStride > 16384 || uStride > 16384 || vStride > 16384 {
		return 0
	}

	ySize := int(yStride) * int(height)
	uvHeight := (int(height) + 1) / 2
	uSize := int(uStride) * uvHeight
	vSize := int(vStride) * uvHeight

	y := make([]byte, ySize)
	u := make([]byte, uSize)
	v := make([]byte, vSize)
	if yPlane != 0 {
		copy(y, unsafe.Slice((*byte)(unsafe.Pointer(yPlane)), ySize))
	}
	if uPlane != 0 {
		copy(u, unsafe.Slice((*byte)(unsafe.Pointer(uPlane)), uSize))
	}
	if vPlane != 0 {
		copy(v, unsafe.Slice((*byte)(unsafe.Pointer(vPlane)), vSize))
	}

	safeCallback(func() {
		cb(int(width), int(height), y, u, v, int(yStride), int(uStride), int(vStride), timestampUs)
	})
	return 0
}

func onCaptureAudioFrame(cookie uintptr, samples uintptr, numSamples, sampleRate, channels int32, timestampUs int64) uintptr {
	cb, ok := captureAudioSinks.Get(handle.ID(cookie))
	if !ok || cb == nil {
		return 0
	}
	if numSamples <= 0 || numSamples > 48000 || channels <= 0 || channels > 8 {
		return 0
	}

	total := int(numSamples) * int(channels)
	pcm := make([]int16, total)
	if samples != 0 {
		copy(pcm, unsafe.Slice((*int16)(unsafe.Pointer(samples)), total))
	}

	safeCallback(func() { cb(pcm, int(sampleRate), int(channels), timestampUs) })
	return 0
}

// VideoCapture is a native camera capture instance.
type VideoCapture struct {
	h      uintptr
	cookie handle.ID
}

// CreateVideoCapture opens a camera device.
func CreateVideoCapture(deviceID string, width, height, fps int) (*VideoCapture, error) {
	if err := Require(); err != nil {
		return nil, err
	}

	cID := CString(deviceID)
	h := rtcVideoCaptureCreate(ByteSlicePtr(cID), int32(width), int32(height), int32(fps))
	runtime.KeepAlive(cID)
	if h == 0 {
		return nil, ErrNotFound
	}
	return &VideoCapture{h: h}, nil
}

// Start begins frame delivery to cb on the capture thread.
func (c *VideoCapture) Start(cb VideoFrameFunc) error {
	c.cookie = captureVideoSinks.Put(cb)
	if code := rtcVideoCaptureStart(c.h, captureVideoBridge, uintptr(c.cookie)); code != StatusOK {
		captureVideoSinks.Remove(c.cookie)
		c.cookie = 0
		return StatusError(code)
	}
	return nil
}

// Stop halts delivery and retires the cookie.
func (c *VideoCapture) Stop() {
	rtcVideoCaptureStop(c.h)
	if c.cookie != 0 {
		captureVideoSinks.Remove(c.cookie)
		c.cookie = 0
	}
}

// Destroy releases the native instance.
func (c *VideoCapture) Destroy() {
	if c.h == 0 {
		return
	}
	c.Stop()
	rtcVideoCaptureDestroy(c.h)
	c.h = 0
}

// ScreenCapture is a native screen or window capture instance.
type ScreenCapture struct {
	h      uintptr
	cookie handle.ID
}

// CreateScreenCapture opens a screen or window for capture.
func CreateScreenCapture(id int64, isWindow bool, fps int) (*ScreenCapture, error) {
	if err := Require(); err != nil {
		return nil, err
	}

	var windowFlag int32
	if isWindow {
		windowFlag = 1
	}
	h := rtcScreenCaptureCreate(id, windowFlag, int32(fps))
	if h == 0 {
		return nil, ErrNotFound
	}
	return &ScreenCapture{h: h}, nil
}

// Start begins frame delivery to cb on the capture thread.
func (c *ScreenCapture) Start(cb VideoFrameFunc) error {
	c.cookie = captureVideoSinks.Put(cb)
	if code := rtcScreenCaptureStart(c.h, captureVideoBridge, uintptr(c.cookie)); code != StatusOK {
		captureVideoSinks.Remove(c.cookie)
		c.cookie = 0
		return StatusError(code)
	}
	return nil
}

// Stop halts delivery and retires the cookie.
func (c *ScreenCapture) Stop() {
	rtcScreenCaptureStop(c.h)
	if c.cookie != 0 {
		captureVideoSinks.Remove(c.cookie)
		c.cookie = 0
	}
}

// Destroy releases the native instance.
func (c *ScreenCapture) Destroy() {
	if c.h == 0 {
		return
	}
	c.Stop()
	rtcScreenCaptureDestroy(c.h)
	c.h = 0
}

// AudioCapture is a native microphone capture instance.
type AudioCapture struct {
	h      uintptr
	cookie handle.ID
}

// CreateAudioCapture opens a microphone device.
func CreateAudioCapture(deviceID string, sampleRate, channels int) (*AudioCapture, error) {
	if err := Require(); err != nil {
		return nil, err
	}

	cID := CString(deviceID)
	h := rtcAudioCaptureCreate(ByteSlicePtr(cID), int32(sampleRate), int32(channels))
	runtime.KeepAlive(cID)
	if h == 0 {
		return nil, ErrNotFound
	}
	return &AudioCapture{h: h}, nil
}

// Start begins PCM delivery to cb on the capture thread.
func (c *AudioCapture) Start(cb AudioFrameFunc) error {
	c.cookie = captureAudioSinks.Put(cb)
	if code := rtcAudioCaptureStart(c.h, captureAudioBridge, uintptr(c.cookie)); code != StatusOK {
		captureAudioSinks.Remove(c.cookie)
		c.cookie = 0
		return StatusError(code)
	}
	return nil
}

// Stop halts delivery and retires the cookie.
func (c *AudioCapture) Stop() {
	rtcAudioCaptureStop(c.h)
	if c.cookie != 0 {
		captureAudioSinks.Remove(c.cookie)
		c.cookie = 0
	}
}

// Destroy releases the native instance.
func (c *AudioCapture) Destroy() {
	if c.h == 0 {
		return
	}
	c.Stop()
	rtcAudioCaptureDestroy(c.h)
	c.h = 0
}
