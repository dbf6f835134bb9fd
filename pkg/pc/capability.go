package pc

import (
	"github.com/streamshim/rtcbridge/internal/engine"
	"github.com/streamshim/rtcbridge/pkg/codec"
)

// CodecCapability describes one codec the engine can negotiate, with its
// hardware acceleration flags.
type CodecCapability struct {
	Codec    codec.Type
	Name     string
	HWEncode bool
	HWDecode bool
}

var engineCodecToType = map[engine.CodecType]codec.Type{
	engine.CodecH264: codec.H264,
	engine.CodecVP8:  codec.VP8,
	engine.CodecVP9:  codec.VP9,
	engine.CodecAV1:  codec.AV1,
	engine.CodecOpus: codec.Opus,
}

// GetSupportedVideoCodecs queries the engine's video codec set. Codecs the
// adapter has no type for are dropped.
func GetSupportedVideoCodecs() ([]CodecCapability, error) {
	caps, err := engine.SupportedVideoCodecs()
	if err != nil {
		return nil, err
	}
	return convertCapabilities(caps), nil
}

// GetSupportedAudioCodecs queries the engine's audio codec set.
func GetSupportedAudioCodecs() ([]CodecCapability, error) {
	caps, err := engine.SupportedAudioCodecs()
	if err != nil {
		return nil, err
	}
	return convertCapabilities(caps), nil
}

func convertCapabilities(caps []engine.CodecCapability) []CodecCapability {
	out := make([]CodecCapability, 0, len(caps))
	for _, c := range caps {
		t, ok := engineCodecToType[c.Codec]
		if !ok {
			continue
		}
		out = append(out, CodecCapability{
			Codec:    t,
			Name:     c.Name,
			HWEncode: c.HWEncode,
			HWDecode: c.HWDecode,
		})
	}
	return out
}
