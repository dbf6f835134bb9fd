package codec

import "testing"

func TestTypeString(t *testing.T) {
	cases := map[Type]string{
		H264:     "H264",
		VP8:      "VP8",
		VP9:      "VP9",
		AV1:      "AV1",
		Opus:     "Opus",
		Type(99): "Unknown",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", typ, got, want)
		}
	}
}

func TestTypeKind(t *testing.T) {
	for _, typ := range []Type{H264, VP8, VP9, AV1} {
		if !typ.IsVideo() || typ.IsAudio() {
			t.Errorf("%v should be video only", typ)
		}
		if typ.ClockRate() != 90000 {
			t.Errorf("%v.ClockRate() = %d, want 90000", typ, typ.ClockRate())
		}
	}
	if !Opus.IsAudio() || Opus.IsVideo() {
		t.Error("Opus should be audio only")
	}
	if Opus.ClockRate() != 48000 {
		t.Errorf("Opus.ClockRate() = %d, want 48000", Opus.ClockRate())
	}
}

func TestTypeMimeType(t *testing.T) {
	if got := H264.MimeType(); got != "video/H264" {
		t.Errorf("H264.MimeType() = %q", got)
	}
	if got := Opus.MimeType(); got != "audio/opus" {
		t.Errorf("Opus.MimeType() = %q", got)
	}
	if got := Type(99).MimeType(); got != "" {
		t.Errorf("unknown MimeType() = %q, want empty", got)
	}
}

func TestVideoConfigDefaults(t *testing.T) {
	cfg := DefaultVideoConfig(1280, 720)
	if cfg.Width != 1280 || cfg.Height != 720 {
		t.Fatalf("resolution = %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Bitrate != 2_000_000 {
		t.Errorf("720p default bitrate = %d", cfg.Bitrate)
	}
	if cfg.FPSOrDefault() != 30 {
		t.Errorf("FPSOrDefault = %v", cfg.FPSOrDefault())
	}
	if cfg.KeyIntervalOrDefault() != 60 {
		t.Errorf("KeyIntervalOrDefault = %d", cfg.KeyIntervalOrDefault())
	}
}

func TestVideoConfigZeroFallbacks(t *testing.T) {
	var cfg VideoConfig
	cfg.Width, cfg.Height = 640, 360
	if cfg.FPSOrDefault() != 30 {
		t.Errorf("FPSOrDefault = %v, want 30", cfg.FPSOrDefault())
	}
	if cfg.BitrateOrDefault() != 500_000 {
		t.Errorf("BitrateOrDefault = %d, want 500000", cfg.BitrateOrDefault())
	}
	if cfg.KeyIntervalOrDefault() != 60 {
		t.Errorf("KeyIntervalOrDefault = %d, want 60", cfg.KeyIntervalOrDefault())
	}
}

func TestBitrateLadder(t *testing.T) {
	cases := []struct {
		w, h int
		want uint32
	}{
		{3840, 2160, 15_000_000},
		{1920, 1080, 4_000_000},
		{1280, 720, 2_000_000},
		{640, 360, 500_000},
		{160, 120, 300_000},
	}
	for _, tc := range cases {
		if got := estimateVideoBitrate(tc.w, tc.h); got != tc.want {
			t.Errorf("estimateVideoBitrate(%d, %d) = %d, want %d", tc.w, tc.h, got, tc.want)
		}
	}
}

func TestDefaultOpusConfig(t *testing.T) {
	cfg := DefaultOpusConfig()
	if cfg.SampleRate != 48000 || cfg.Channels != 2 || cfg.Bitrate != 64000 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}
