package engine

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// Flat entry points exported by librtcengine_shim. Populated by
// registerFunctions once the library is loaded.
var (
	rtcVersion func() uintptr

	rtcSupportedVideoCodecs func(out uintptr, max int32, outCount uintptr) int32
	rtcSupportedAudioCodecs func(out uintptr, max int32, outCount uintptr) int32

	rtcVideoEncoderCreate          func(codec int32, cfg uintptr, cb uintptr, cookie uintptr, errBuf uintptr) uintptr
	rtcVideoEncoderEncode          func(enc uintptr, y, u, v uintptr, yStride, uStride, vStride int32, timestamp uint32, forceKeyframe int32, errBuf uintptr) int32
	rtcVideoEncoderSetRates        func(enc uintptr, bitrateBps uint32, framerate float32) int32
	rtcVideoEncoderRequestKeyframe func(enc uintptr) int32
	rtcVideoEncoderClearCallback   func(enc uintptr)
	rtcVideoEncoderDestroy         func(enc uintptr)

	rtcVideoDecoderCreate        func(codec int32, cb uintptr, cookie uintptr, errBuf uintptr) uintptr
	rtcVideoDecoderDecode        func(dec uintptr, data uintptr, size int32, timestamp uint32, errBuf uintptr) int32
	rtcVideoDecoderClearCallback func(dec uintptr)
	rtcVideoDecoderDestroy       func(dec uintptr)

	rtcAudioEncoderCreate     func(cfg uintptr, errBuf uintptr) uintptr
	rtcAudioEncoderEncode     func(enc uintptr, samples uintptr, numSamples int32, dst uintptr, dstCap int32, outSize uintptr) int32
	rtcAudioEncoderSetBitrate func(enc uintptr, bitrateBps uint32) int32
	rtcAudioEncoderDestroy    func(enc uintptr)

	rtcAudioDecoderCreate  func(sampleRate, channels int32, errBuf uintptr) uintptr
	rtcAudioDecoderDecode  func(dec uintptr, data uintptr, size int32, dst uintptr, dstCapSamples int32, outSamples uintptr) int32
	rtcAudioDecoderDestroy func(dec uintptr)

	rtcSetSDPCallback          func(cb uintptr)
	rtcSetOpCallback           func(cb uintptr)
	rtcSetPCObserverCallbacks  func(onICECandidate, onSignalingState, onConnectionState, onICEConnectionState, onICEGatheringState, onTrack, onDataChannel uintptr)
	rtcSetDataChannelCallbacks func(onOpen, onMessage, onClose uintptr)
	rtcSetTrackSinkCallbacks   func(onVideoFrame, onAudioFrame uintptr)

	rtcPCCreate               func(cfg uintptr, cookie uintptr, errBuf uintptr) uintptr
	rtcPCCreateOffer          func(pc uintptr, opCookie uintptr) int32
	rtcPCCreateAnswer         func(pc uintptr, opCookie uintptr) int32
	rtcPCSetLocalDescription  func(pc uintptr, sdpType int32, sdp uintptr, opCookie uintptr) int32
	rtcPCSetRemoteDescription func(pc uintptr, sdpType int32, sdp uintptr, opCookie uintptr) int32
	rtcPCAddICECandidate      func(pc uintptr, candidate uintptr, mid uintptr, mlineIndex int32) int32
	rtcPCLocalDescription     func(pc uintptr, outType uintptr, dst uintptr, dstCap int32, outLen uintptr) int32
	rtcPCRemoteDescription    func(pc uintptr, outType uintptr, dst uintptr, dstCap int32, outLen uintptr) int32
	rtcPCSignalingState       func(pc uintptr) int32
	rtcPCConnectionState      func(pc uintptr) int32
	rtcPCICEConnectionState   func(pc uintptr) int32
	rtcPCICEGatheringState    func(pc uintptr) int32
	rtcPCGetStats             func(pc uintptr, out uintptr) int32
	rtcPCClose                func(pc uintptr)
	rtcPCDestroy              func(pc uintptr)

	rtcPCCreateDataChannel func(pc uintptr, label uintptr, ordered int32, maxRetransmits int32, cookie uintptr, errBuf uintptr) uintptr
	rtcDataChannelSend     func(dc uintptr, data uintptr, size int32, binary int32) int32
	rtcDataChannelClose    func(dc uintptr)
	rtcDataChannelDestroy  func(dc uintptr)

	rtcPCAddVideoTrack      func(pc uintptr, trackID uintptr, streamID uintptr, errBuf uintptr) uintptr
	rtcPCAddAudioTrack      func(pc uintptr, trackID uintptr, streamID uintptr, errBuf uintptr) uintptr
	rtcPCRemoveTrack        func(pc uintptr, sender uintptr) int32
	rtcSenderPushVideoFrame func(sender uintptr, y, u, v uintptr, yStride, uStride, vStride int32, width, height int32, timestampUs int64) int32
	rtcSenderPushAudioFrame func(sender uintptr, samples uintptr, numSamples int32, sampleRate int32, channels int32) int32

	rtcSenderGetParameters   func(sender uintptr, out uintptr) int32
	rtcSenderSetParameters   func(sender uintptr, in uintptr) int32
	rtcReceiverGetParameters func(receiver uintptr, out uintptr) int32
	rtcReceiverTrack         func(receiver uintptr) uintptr

	rtcPCTransceivers          func(pc uintptr, out uintptr, max int32, outCount uintptr) int32
	rtcTransceiverMid          func(t uintptr, dst uintptr, dstCap int32) int32
	rtcTransceiverDirection    func(t uintptr) int32
	rtcTransceiverSetDirection func(t uintptr, direction int32) int32
	rtcTransceiverSender       func(t uintptr) uintptr
	rtcTransceiverReceiver     func(t uintptr) uintptr
	rtcTransceiverStop         func(t uintptr) int32

	rtcTrackKind        func(track uintptr) int32
	rtcTrackEnableSink  func(track uintptr, cookie uintptr) int32
	rtcTrackDisableSink func(track uintptr)
	rtcTrackDestroy     func(track uintptr)

	rtcEnumerateDevices func(devices uintptr, maxDevices int32, outCount uintptr) int32
	rtcEnumerateScreens func(screens uintptr, maxScreens int32, outCount uintptr) int32

	rtcVideoCaptureCreate  func(deviceID uintptr, width, height, fps int32) uintptr
	rtcVideoCaptureStart   func(cap uintptr, cb uintptr, cookie uintptr) int32
	rtcVideoCaptureStop    func(cap uintptr)
	rtcVideoCaptureDestroy func(cap uintptr)

	rtcScreenCaptureCreate  func(id int64, isWindow int32, fps int32) uintptr
	rtcScreenCaptureStart   func(cap uintptr, cb uintptr, cookie uintptr) int32
	rtcScreenCaptureStop    func(cap uintptr)
	rtcScreenCaptureDestroy func(cap uintptr)

	rtcAudioCaptureCreate  func(deviceID uintptr, sampleRate, channels int32) uintptr
	rtcAudioCaptureStart   func(cap uintptr, cb uintptr, cookie uintptr) int32
	rtcAudioCaptureStop    func(cap uintptr)
	rtcAudioCaptureDestroy func(cap uintptr)
)

func registerFunctions(handle uintptr) error {
	bindings := []struct {
		fptr any
		name string
	}{
		{&rtcVersion, "rtc_version"},

		{&rtcSupportedVideoCodecs, "rtc_supported_video_codecs"},
		{&rtcSupportedAudioCodecs, "rtc_supported_audio_codecs"},

		{&rtcVideoEncoderCreate, "rtc_video_encoder_create"},
		{&rtcVideoEncoderEncode, "rtc_video_encoder_encode"},
		{&rtcVideoEncoderSetRates, "rtc_video_encoder_set_rates"},
		{&rtcVideoEncoderRequestKeyframe, "rtc_video_encoder_request_keyframe"},
		{&rtcVideoEncoderClearCallback, "rtc_video_encoder_clear_callback"},
		{&rtcVideoEncoderDestroy, "rtc_video_encoder_destroy"},

		{&rtcVideoDecoderCreate, "rtc_video_decoder_create"},
		{&rtcVideoDecoderDecode, "rtc_video_decoder_decode"},
		{&rtcVideoDecoderClearCallback, "rtc_video_decoder_clear_callback"},
		{&rtcVideoDecoderDestroy, "rtc_video_decoder_destroy"},

		{&rtcAudioEncoderCreate, "rtc_audio_encoder_create"},
		{&rtcAudioEncoderEncode, "rtc_audio_encoder_encode"},
		{&rtcAudioEncoderSetBitrate, "rtc_audio_encoder_set_bitrate"},
		{&rtcAudioEncoderDestroy, "rtc_audio_encoder_destroy"},

		{&rtcAudioDecoderCreate, "rtc_audio_decoder_create"},
		{&rtcAudioDecoderDecode, "rtc_audio_decoder_decode"},
		{&rtcAudioDecoderDestroy, "rtc_audio_decoder_destroy"},

		{&rtcSetSDPCallback, "rtc_set_sdp_callback"},
		{&rtcSetOpCallback, "rtc_set_op_callback"},
		{&rtcSetPCObserverCallbacks, "rtc_set_pc_observer_callbacks"},
		{&rtcSetDataChannelCallbacks, "rtc_set_data_channel_callbacks"},
		{&rtcSetTrackSinkCallbacks, "rtc_set_track_sink_callbacks"},

		{&rtcPCCreate, "rtc_pc_create"},
		{&rtcPCCreateOffer, "rtc_pc_create_offer"},
		{&rtcPCCreateAnswer, "rtc_pc_create_answer"},
		{&rtcPCSetLocalDescription, "rtc_pc_set_local_description"},
		{&rtcPCSetRemoteDescription, "rtc_pc_set_remote_description"},
		{&rtcPCAddICECandidate, "rtc_pc_add_ice_candidate"},
		{&rtcPCLocalDescription, "rtc_pc_local_description"},
		{&rtcPCRemoteDescription, "rtc_pc_remote_description"},
		{&rtcPCSignalingState, "rtc_pc_signaling_state"},
		{&rtcPCConnectionState, "rtc_pc_connection_state"},
		{&rtcPCICEConnectionState, "rtc_pc_ice_connection_state"},
		{&rtcPCICEGatheringState, "rtc_pc_ice_gathering_state"},
		{&rtcPCGetStats, "rtc_pc_get_stats"},
		{&rtcPCClose, "rtc_pc_close"},
		{&rtcPCDestroy, "rtc_pc_destroy"},

		{&rtcPCCreateDataChannel, "rtc_pc_create_data_channel"},
		{&rtcDataChannelSend, "rtc_data_channel_send"},
		{&rtcDataChannelClose, "rtc_data_channel_close"},
		{&rtcDataChannelDestroy, "rtc_data_channel_destroy"},

		{&rtcPCAddVideoTrack, "rtc_pc_add_video_track"},
		{&rtcPCAddAudioTrack, "rtc_pc_add_audio_track"},
		{&rtcPCRemoveTrack, "rtc_pc_remove_track"},
		{&rtcSenderPushVideoFrame, "rtc_sender_push_video_frame"},
		{&rtcSenderPushAudioFrame, "rtc_sender_push_audio_frame"},

		{&rtcSenderGetParameters, "rtc_sender_get_parameters"},
		{&rtcSenderSetParameters, "rtc_sender_set_parameters"},
		{&rtcReceiverGetParameters, "rtc_receiver_get_parameters"},
		{&rtcReceiverTrack, "rtc_receiver_track"},

		{&rtcPCTransceivers, "rtc_pc_transceivers"},
		{&rtcTransceiverMid, "rtc_transceiver_mid"},
		{&rtcTransceiverDirection, "rtc_transceiver_direction"},
		{&rtcTransceiverSetDirection, "rtc_transceiver_set_direction"},
		{&rtcTransceiverSender, "rtc_transceiver_sender"},
		{&rtcTransceiverReceiver, "rtc_transceiver_receiver"},
		{&rtcTransceiverStop, "rtc_transceiver_stop"},

		{&rtcTrackKind, "rtc_track_kind"},
		{&rtcTrackEnableSink, "rtc_track_enable_sink"},
		{&rtcTrackDisableSink, "rtc_track_disable_sink"},
		{&rtcTrackDestroy, "rtc_track_destroy"},

		{&rtcEnumerateDevices, "rtc_enumerate_devices"},
		{&rtcEnumerateScreens, "rtc_enumerate_screens"},

		{&rtcVideoCaptureCreate, "rtc_video_capture_create"},
		{&rtcVideoCaptureStart, "rtc_video_capture_start"},
		{&rtcVideoCaptureStop, "rtc_video_capture_stop"},
		{&rtcVideoCaptureDestroy, "rtc_video_capture_destroy"},

		{&rtcScreenCaptureCreate, "rtc_screen_capture_create"},
		{&rtcScreenCaptureStart, "rtc_screen_capture_start"},
		{&rtcScreenCaptureStop, "rtc_screen_capture_stop"},
		{&rtcScreenCaptureDestroy, "rtc_screen_capture_destroy"},

		{&rtcAudioCaptureCreate, "rtc_audio_capture_create"},
		{&rtcAudioCaptureStart, "rtc_audio_capture_start"},
		{&rtcAudioCaptureStop, "rtc_audio_capture_stop"},
		{&rtcAudioCaptureDestroy, "rtc_audio_capture_destroy"},
	}

	// Resolve every symbol before binding: RegisterLibFunc panics on a
	// missing symbol, and a wrong or outdated shim must surface as a
	// returned initialization error instead.
	for _, b := range bindings {
		if _, err := dlsymLibrary(handle, b.name); err != nil {
			return fmt.Errorf("%w: engine shim missing symbol %s: %v", ErrInitFailed, b.name, err)
		}
	}
	for _, b := range bindings {
		purego.RegisterLibFunc(b.fptr, handle, b.name)
	}
	return nil
}
