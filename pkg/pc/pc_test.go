package pc

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/streamshim/rtcbridge/internal/engine"
	"github.com/streamshim/rtcbridge/pkg/codec"
	"github.com/streamshim/rtcbridge/pkg/frame"
)

func TestStateStrings(t *testing.T) {
	cases := []struct {
		got  string
		want string
	}{
		{SignalingStateStable.String(), "stable"},
		{SignalingStateHaveLocalOffer.String(), "have-local-offer"},
		{SignalingStateClosed.String(), "closed"},
		{SignalingState(99).String(), "unknown"},
		{PeerConnectionStateNew.String(), "new"},
		{PeerConnectionStateConnected.String(), "connected"},
		{PeerConnectionStateFailed.String(), "failed"},
		{ICEConnectionStateChecking.String(), "checking"},
		{ICEConnectionStateCompleted.String(), "completed"},
		{ICEGatheringStateGathering.String(), "gathering"},
		{ICEGatheringStateComplete.String(), "complete"},
		{TransceiverDirectionSendRecv.String(), "sendrecv"},
		{TransceiverDirectionRecvOnly.String(), "recvonly"},
		{TransceiverDirectionStopped.String(), "stopped"},
		{DataChannelStateConnecting.String(), "connecting"},
		{DataChannelStateOpen.String(), "open"},
		{TrackKindVideo.String(), "video"},
		{TrackKindAudio.String(), "audio"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("String() = %q, want %q", tc.got, tc.want)
		}
	}
}

func TestSDPTypeRoundTrip(t *testing.T) {
	for _, typ := range []SDPType{SDPTypeOffer, SDPTypeAnswer, SDPTypePranswer, SDPTypeRollback} {
		parsed, ok := NewSDPType(typ.String())
		if !ok || parsed != typ {
			t.Errorf("NewSDPType(%q) = %v, %v", typ.String(), parsed, ok)
		}
	}
	if _, ok := NewSDPType("bogus"); ok {
		t.Error("NewSDPType accepted an unknown type")
	}
}

func TestSessionDescriptionJSON(t *testing.T) {
	desc := SessionDescription{Type: SDPTypeOffer, SDP: "v=0\r\n"}
	raw, err := json.Marshal(desc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded SessionDescription
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != desc {
		t.Errorf("round trip = %+v, want %+v", decoded, desc)
	}
}

func TestDefaultConfiguration(t *testing.T) {
	cfg := DefaultConfiguration()
	if len(cfg.ICEServers) != 1 || len(cfg.ICEServers[0].URLs) != 1 {
		t.Fatalf("config = %+v", cfg)
	}
	if cfg.ICEServers[0].URLs[0] != "stun:stun.l.google.com:19302" {
		t.Errorf("stun url = %q", cfg.ICEServers[0].URLs[0])
	}
}

func TestNativeConfigLayout(t *testing.T) {
	n := newNativeConfig(Configuration{
		ICEServers: []ICEServer{
			{URLs: []string{"stun:a", "stun:b"}},
			{URLs: []string{"turn:c"}, Username: "user", Credential: "pass"},
		},
		ICECandidatePoolSize: 4,
		BundlePolicy:         "max-bundle",
	})

	if n.cfg.ICEServerCount != 2 || len(n.servers) != 2 {
		t.Fatalf("server count = %d", n.cfg.ICEServerCount)
	}
	if n.servers[0].URLCount != 2 || n.servers[1].URLCount != 1 {
		t.Errorf("url counts = %d, %d", n.servers[0].URLCount, n.servers[1].URLCount)
	}
	if n.servers[0].Username != nil || n.servers[1].Username == nil || n.servers[1].Credential == nil {
		t.Error("credential pointers wired to the wrong server")
	}
	if n.cfg.ICECandidatePoolSize != 4 {
		t.Errorf("pool size = %d", n.cfg.ICECandidatePoolSize)
	}
	if n.cfg.BundlePolicy == nil || n.cfg.RTCPMuxPolicy != nil {
		t.Error("policy strings: empty must map to nil, set must map to a C string")
	}
}

func TestNativeConfigEmpty(t *testing.T) {
	n := newNativeConfig(Configuration{})
	if n.cfg.ICEServers != 0 || n.cfg.ICEServerCount != 0 {
		t.Errorf("empty config servers = %#x count %d", n.cfg.ICEServers, n.cfg.ICEServerCount)
	}
}

func TestDataChannelInitParams(t *testing.T) {
	ordered, retransmits := (*DataChannelInit)(nil).params()
	if !ordered || retransmits != -1 {
		t.Errorf("nil init = (%v, %d), want defaults", ordered, retransmits)
	}

	unordered := false
	max := uint16(5)
	ordered, retransmits = (&DataChannelInit{Ordered: &unordered, MaxRetransmits: &max}).params()
	if ordered || retransmits != 5 {
		t.Errorf("init = (%v, %d)", ordered, retransmits)
	}
}

func TestConvertCapabilities(t *testing.T) {
	caps := convertCapabilities([]engine.CodecCapability{
		{Codec: engine.CodecH264, Name: "H264", HWEncode: true},
		{Codec: engine.CodecOpus, Name: "opus"},
		{Codec: engine.CodecType(42), Name: "mystery"},
	})
	if len(caps) != 2 {
		t.Fatalf("capability count = %d, unknown codecs must be dropped", len(caps))
	}
	if caps[0].Codec != codec.H264 || !caps[0].HWEncode {
		t.Errorf("caps[0] = %+v", caps[0])
	}
	if caps[1].Codec != codec.Opus {
		t.Errorf("caps[1] = %+v", caps[1])
	}
}

func TestTrackAccessors(t *testing.T) {
	tr := NewVideoTrack("cam0", "stream0")
	if tr.ID() != "cam0" || tr.StreamID() != "stream0" || tr.Kind() != TrackKindVideo {
		t.Errorf("track = %q/%q/%v", tr.ID(), tr.StreamID(), tr.Kind())
	}
	if NewAudioTrack("mic0", "stream0").Kind() != TrackKindAudio {
		t.Error("audio track kind")
	}
}

func TestUnboundTrackRejectsWrites(t *testing.T) {
	video := NewVideoTrack("cam0", "stream0")
	f := frame.NewI420Frame(64, 64)
	if err := video.WriteVideoFrame(f); !errors.Is(err, ErrTrackNotBound) {
		t.Errorf("unbound video write: err = %v", err)
	}

	audio := NewAudioTrack("mic0", "stream0")
	af := &frame.AudioFrame{SampleRate: 48000, Channels: 1, NumSamples: 480, Samples: make([]int16, 480)}
	if err := audio.WriteAudioFrame(af); !errors.Is(err, ErrTrackNotBound) {
		t.Errorf("unbound audio write: err = %v", err)
	}
}

func TestTrackKindMismatch(t *testing.T) {
	video := NewVideoTrack("cam0", "stream0")
	if err := video.WriteAudioFrame(&frame.AudioFrame{}); !errors.Is(err, ErrWrongKind) {
		t.Errorf("audio into video track: err = %v", err)
	}
	audio := NewAudioTrack("mic0", "stream0")
	if err := audio.WriteVideoFrame(frame.NewI420Frame(16, 16)); !errors.Is(err, ErrWrongKind) {
		t.Errorf("video into audio track: err = %v", err)
	}
}

func TestWriteVideoFrameValidation(t *testing.T) {
	tr := NewVideoTrack("cam0", "stream0")
	tr.bind(1) // fake sender handle; validation runs before any engine call

	if err := tr.WriteVideoFrame(nil); !errors.Is(err, ErrInvalidTrack) {
		t.Errorf("nil frame: err = %v", err)
	}
	bad := &frame.VideoFrame{Width: 4, Height: 4, Data: make([][]byte, 2), Stride: make([]int, 2)}
	if err := tr.WriteVideoFrame(bad); !errors.Is(err, ErrInvalidTrack) {
		t.Errorf("two planes: err = %v", err)
	}
	tr.unbind()
}

func TestWriteAudioFrameValidation(t *testing.T) {
	tr := NewAudioTrack("mic0", "stream0")
	tr.bind(1)

	if err := tr.WriteAudioFrame(nil); !errors.Is(err, ErrInvalidTrack) {
		t.Errorf("nil frame: err = %v", err)
	}
	short := &frame.AudioFrame{SampleRate: 48000, Channels: 2, NumSamples: 480, Samples: make([]int16, 100)}
	if err := tr.WriteAudioFrame(short); !errors.Is(err, ErrInvalidTrack) {
		t.Errorf("short sample slice: err = %v", err)
	}
	tr.unbind()
}
