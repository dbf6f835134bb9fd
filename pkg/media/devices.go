package media

import (
	"errors"

	"github.com/streamshim/rtcbridge/internal/engine"
)

// ErrNoDevice is returned when no capture device matches the constraints.
var ErrNoDevice = errors.New("no matching capture device")

// DeviceKind distinguishes enumerated devices, in the browser's wording.
type DeviceKind string

const (
	DeviceKindVideoInput DeviceKind = "videoinput"
	DeviceKindAudioInput DeviceKind = "audioinput"
)

// DeviceInfo describes one capture device.
type DeviceInfo struct {
	DeviceID string
	Label    string
	Kind     DeviceKind
}

// ScreenInfo describes one shareable screen or window.
type ScreenInfo struct {
	ID       int64
	IsWindow bool
	Title    string
}

// EnumerateDevices lists the platform's capture devices.
func EnumerateDevices() ([]DeviceInfo, error) {
	raw, err := engine.EnumerateDevices()
	if err != nil {
		return nil, err
	}
	devices := make([]DeviceInfo, 0, len(raw))
	for _, d := range raw {
		kind := DeviceKindVideoInput
		if d.Kind == engine.DeviceAudioInput {
			kind = DeviceKindAudioInput
		}
		devices = append(devices, DeviceInfo{DeviceID: d.ID, Label: d.Name, Kind: kind})
	}
	return devices, nil
}

// EnumerateScreens lists shareable screens and windows.
func EnumerateScreens() ([]ScreenInfo, error) {
	raw, err := engine.EnumerateScreens()
	if err != nil {
		return nil, err
	}
	screens := make([]ScreenInfo, 0, len(raw))
	for _, s := range raw {
		screens = append(screens, ScreenInfo{ID: s.ID, IsWindow: s.IsWindow, Title: s.Title})
	}
	return screens, nil
}

// pickDevice resolves a deviceId constraint against the enumerated devices.
// An explicit deviceId that matches nothing is overconstrained; otherwise
// the first device of the right kind wins.
func pickDevice(devices []DeviceInfo, kind DeviceKind, deviceID string) (DeviceInfo, error) {
	for _, d := range devices {
		if d.Kind != kind {
			continue
		}
		if deviceID == "" || d.DeviceID == deviceID {
			return d, nil
		}
	}
	if deviceID != "" {
		return DeviceInfo{}, &OverconstrainedError{Constraint: "deviceId", Message: "device " + deviceID + " not found"}
	}
	return DeviceInfo{}, ErrNoDevice
}

// pickScreen resolves a display-surface request. A nil screenID takes the
// first surface of the requested type; monitors are the default.
func pickScreen(screens []ScreenInfo, surface DisplaySurface, screenID *int64) (ScreenInfo, error) {
	wantWindow := surface == DisplaySurfaceWindow
	for _, s := range screens {
		if screenID != nil {
			if s.ID == *screenID {
				return s, nil
			}
			continue
		}
		if s.IsWindow == wantWindow {
			return s, nil
		}
	}
	if screenID != nil {
		return ScreenInfo{}, &OverconstrainedError{Constraint: "screenId", Message: "screen not found"}
	}
	return ScreenInfo{}, ErrNoDevice
}
