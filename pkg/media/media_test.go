package media

import (
	"errors"
	"testing"

	"github.com/streamshim/rtcbridge/pkg/codec"
)

func TestIntConstraintResolve(t *testing.T) {
	cases := []struct {
		name string
		c    IntConstraint
		def  int
		want int
	}{
		{"unset takes default", IntConstraint{}, 1280, 1280},
		{"exact wins", ExactInt(640), 1280, 640},
		{"ideal wins over default", IdealInt(1920), 1280, 1920},
		{"default clamped to min", RangeInt(1440, 4096), 1280, 1440},
		{"ideal clamped to max", IntConstraint{Ideal: intPtr(4000), Max: intPtr(1920)}, 1280, 1920},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.c.resolve(tc.def); got != tc.want {
				t.Errorf("resolve = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestConstraintValidate(t *testing.T) {
	var oc *OverconstrainedError

	if err := ExactInt(640).Validate("width", 641); !errors.As(err, &oc) {
		t.Errorf("exact mismatch: err = %v", err)
	} else if oc.Constraint != "width" {
		t.Errorf("constraint name = %q", oc.Constraint)
	}
	if err := RangeInt(100, 200).Validate("height", 150); err != nil {
		t.Errorf("in range: err = %v", err)
	}
	if err := RangeFloat(24, 60).Validate("frameRate", 15); !errors.As(err, &oc) {
		t.Errorf("below min: err = %v", err)
	}
}

func TestResolveVideoSettingsDefaults(t *testing.T) {
	s, err := resolveVideoSettings(VideoConstraints{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.Width != 1280 || s.Height != 720 || s.FrameRate != 30 {
		t.Errorf("settings = %+v", s)
	}
}

func TestResolveAudioSettingsDefaults(t *testing.T) {
	s, err := resolveAudioSettings(AudioConstraints{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.SampleRate != 48000 || s.ChannelCount != 2 {
		t.Errorf("settings = %+v", s)
	}
}

func TestPickDevice(t *testing.T) {
	devices := []DeviceInfo{
		{DeviceID: "cam-1", Label: "Front Camera", Kind: DeviceKindVideoInput},
		{DeviceID: "mic-1", Label: "Microphone", Kind: DeviceKindAudioInput},
		{DeviceID: "cam-2", Label: "Rear Camera", Kind: DeviceKindVideoInput},
	}

	d, err := pickDevice(devices, DeviceKindVideoInput, "")
	if err != nil || d.DeviceID != "cam-1" {
		t.Errorf("first camera = %+v, err = %v", d, err)
	}

	d, err = pickDevice(devices, DeviceKindVideoInput, "cam-2")
	if err != nil || d.DeviceID != "cam-2" {
		t.Errorf("exact camera = %+v, err = %v", d, err)
	}

	var oc *OverconstrainedError
	if _, err := pickDevice(devices, DeviceKindVideoInput, "cam-9"); !errors.As(err, &oc) {
		t.Errorf("missing exact device: err = %v", err)
	}
	if _, err := pickDevice(nil, DeviceKindAudioInput, ""); !errors.Is(err, ErrNoDevice) {
		t.Errorf("no devices: err = %v", err)
	}
}

func TestPickScreen(t *testing.T) {
	screens := []ScreenInfo{
		{ID: 10, IsWindow: false, Title: "Display 1"},
		{ID: 20, IsWindow: true, Title: "Editor"},
	}

	s, err := pickScreen(screens, DisplaySurfaceMonitor, nil)
	if err != nil || s.ID != 10 {
		t.Errorf("monitor = %+v, err = %v", s, err)
	}
	s, err = pickScreen(screens, DisplaySurfaceWindow, nil)
	if err != nil || s.ID != 20 {
		t.Errorf("window = %+v, err = %v", s, err)
	}

	id := int64(20)
	s, err = pickScreen(screens, DisplaySurfaceMonitor, &id)
	if err != nil || s.ID != 20 {
		t.Errorf("pinned screen = %+v, err = %v", s, err)
	}

	missing := int64(99)
	var oc *OverconstrainedError
	if _, err := pickScreen(screens, DisplaySurfaceMonitor, &missing); !errors.As(err, &oc) {
		t.Errorf("missing screen: err = %v", err)
	}
}

func TestMediaStreamTracks(t *testing.T) {
	stream := NewMediaStream()
	if stream.ID() == "" {
		t.Error("stream must have an ID")
	}

	vt, err := CreateVideoTrack(VideoConstraints{Codec: codec.VP8})
	if err != nil {
		t.Fatalf("CreateVideoTrack: %v", err)
	}
	at, err := CreateAudioTrack(AudioConstraints{})
	if err != nil {
		t.Fatalf("CreateAudioTrack: %v", err)
	}

	stream.AddTrack(vt)
	stream.AddTrack(at)

	if len(stream.GetVideoTracks()) != 1 || len(stream.GetAudioTracks()) != 1 || len(stream.GetTracks()) != 2 {
		t.Fatalf("track counts = %d/%d/%d", len(stream.GetVideoTracks()), len(stream.GetAudioTracks()), len(stream.GetTracks()))
	}
	if stream.GetTrackByID(vt.ID()) != vt {
		t.Error("GetTrackByID missed the video track")
	}
	if !stream.Active() {
		t.Error("stream with live tracks must be active")
	}

	stream.RemoveTrack(vt)
	if len(stream.GetVideoTracks()) != 0 {
		t.Error("RemoveTrack left the video track behind")
	}

	stream.Stop()
	if at.ReadyState() != "ended" {
		t.Errorf("stopped track state = %q", at.ReadyState())
	}
	if stream.Active() {
		t.Error("stream with only ended tracks must not be active")
	}
}

func TestTrackLifecycle(t *testing.T) {
	mt, err := CreateVideoTrack(VideoConstraints{Codec: codec.VP8})
	if err != nil {
		t.Fatalf("CreateVideoTrack: %v", err)
	}

	if mt.Kind() != "video" || mt.ReadyState() != "live" || !mt.Enabled() {
		t.Errorf("fresh track = %s/%s/enabled=%v", mt.Kind(), mt.ReadyState(), mt.Enabled())
	}

	mt.SetEnabled(false)
	if mt.Enabled() {
		t.Error("SetEnabled(false) ignored")
	}

	mt.Stop()
	mt.Stop() // idempotent
	if mt.ReadyState() != "ended" {
		t.Errorf("state after stop = %q", mt.ReadyState())
	}
}

func TestTrackClone(t *testing.T) {
	mt, err := CreateVideoTrack(VideoConstraints{Width: ExactInt(640), Height: ExactInt(480), Codec: codec.VP8})
	if err != nil {
		t.Fatalf("CreateVideoTrack: %v", err)
	}
	clone, err := mt.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if clone.ID() == mt.ID() {
		t.Error("clone must get a fresh ID")
	}
	vst, ok := clone.(*videoStreamTrack)
	if !ok || vst.settings.Width != 640 || vst.settings.Height != 480 {
		t.Errorf("clone settings = %+v", vst.settings)
	}
}

func TestInvalidVideoConstraints(t *testing.T) {
	if _, err := CreateVideoTrack(VideoConstraints{Width: ExactInt(0)}); !errors.Is(err, ErrInvalidConstraints) {
		t.Errorf("zero exact width: err = %v", err)
	}
	if _, err := CreateVideoTrack(VideoConstraints{Codec: codec.Opus}); err == nil {
		t.Error("audio codec on a video track must fail")
	}
	if _, err := GetUserMedia(Constraints{}); !errors.Is(err, ErrInvalidConstraints) {
		t.Errorf("empty constraints: err = %v", err)
	}
}

func TestPionTrackLocal(t *testing.T) {
	mt, err := CreateAudioTrack(AudioConstraints{})
	if err != nil {
		t.Fatalf("CreateAudioTrack: %v", err)
	}
	pt, ok := PionTrackLocal(mt)
	if !ok || pt == nil {
		t.Fatal("audio MediaStreamTrack must expose a pion TrackLocal")
	}
	if pt.Kind().String() != "audio" {
		t.Errorf("pion kind = %v", pt.Kind())
	}
}

func TestGenerateIDUnique(t *testing.T) {
	a, b := generateID(), generateID()
	if a == b || a == "" {
		t.Errorf("ids = %q, %q", a, b)
	}
}

func intPtr(v int) *int { return &v }
