package engine

import (
	"runtime"
	"unsafe"
)

const maxCodecCapabilities = 64

// rawCodecCapability matches RtcCodecCapability in rtcengine.h.
type rawCodecCapability struct {
	Codec    int32
	HWEncode int32
	HWDecode int32
	Name     [32]byte
}

// CodecCapability describes one codec the engine can instantiate.
type CodecCapability struct {
	Codec    CodecType
	Name     string
	HWEncode bool
	HWDecode bool
}

// SupportedVideoCodecs queries the engine for its video codec set.
func SupportedVideoCodecs() ([]CodecCapability, error) {
	if err := Require(); err != nil {
		return nil, err
	}
	return queryCapabilities(rtcSupportedVideoCodecs)
}

// SupportedAudioCodecs queries the engine for its audio codec set.
func SupportedAudioCodecs() ([]CodecCapability, error) {
	if err := Require(); err != nil {
		return nil, err
	}
	return queryCapabilities(rtcSupportedAudioCodecs)
}

func queryCapabilities(query func(out uintptr, max int32, outCount uintptr) int32) ([]CodecCapability, error) {
	var raw [maxCodecCapabilities]rawCodecCapability
	var count int32

	code := query(uintptr(unsafe.Pointer(&raw[0])), maxCodecCapabilities, Int32Ptr(&count))
	runtime.KeepAlive(&raw)
	if code != StatusOK {
		return nil, StatusError(code)
	}
	if count < 0 {
		count = 0
	}
	if count > maxCodecCapabilities {
		count = maxCodecCapabilities
	}

	caps := make([]CodecCapability, 0, count)
	for i := int32(0); i < count; i++ {
		caps = append(caps, CodecCapability{
			Codec:    CodecType(raw[i].Codec),
			Name:     ByteArrayToString(raw[i].Name[:]),
			HWEncode: raw[i].HWEncode != 0,
			HWDecode: raw[i].HWDecode != 0,
		})
	}
	return caps, nil
}
