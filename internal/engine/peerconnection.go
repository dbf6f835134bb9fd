package engine

import (
	"fmt"
	"log"
	"runtime"
	"time"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/streamshim/rtcbridge/internal/handle"
)

// maxSDPSize bounds SDP reads from the engine.
const maxSDPSize = 64 * 1024

// sdpOperationTimeout bounds the wait for offer/answer creation and
// description application. These run on the engine's signaling thread and
// may block on ICE gathering.
const sdpOperationTimeout = 30 * time.Second

// safeCallback wraps a callback invocation with panic recovery. A panic in
// user code must not unwind through the C stack frames underneath the
// bridge.
func safeCallback(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[rtcbridge] panic recovered in callback: %v", r)
		}
	}()
	fn()
}

// PCCallbacks receives peer connection events from the engine's signaling
// thread. All fields are optional.
type PCCallbacks struct {
	OnICECandidate       func(candidate, mid string, mlineIndex int32)
	OnSignalingState     func(state int32)
	OnConnectionState    func(state int32)
	OnICEConnectionState func(state int32)
	OnICEGatheringState  func(state int32)
	OnTrack              func(track, receiver uintptr, kind int32)
	OnDataChannel        func(dc uintptr, label string)
}

// DataChannelCallbacks receives data channel events. All fields are
// optional.
type DataChannelCallbacks struct {
	OnOpen    func()
	OnMessage func(data []byte, binary bool)
	OnClose   func()
}

// VideoFrameFunc receives decoded frames from a remote track sink. Plane
// data is copied out of engine memory before delivery.
type VideoFrameFunc func(width, height int, y, u, v []byte, yStride, uStride, vStride int, timestampUs int64)

// AudioFrameFunc receives PCM from a remote track sink.
type AudioFrameFunc func(samples []int16, sampleRate, channels int, timestampUs int64)

type sdpResult struct {
	code    int32
	sdpType int32
	sdp     string
	message string
}

type opResult struct {
	code    int32
	message string
}

type sdpCell struct {
	done chan sdpResult
}

type opCell struct {
	done chan opResult
}

var (
	pcRegistry = handle.NewArena[*PCCallbacks]()
	dcRegistry = handle.NewArena[*DataChannelCallbacks]()
	sdpCells   = handle.NewArena[*sdpCell]()
	opCells    = handle.NewArena[*opCell]()
	videoSinks = handle.NewArena[VideoFrameFunc]()
	audioSinks = handle.NewArena[AudioFrameFunc]()
)

func registerPCBridges() {
	rtcSetSDPCallback(purego.NewCallback(onSDPComplete))
	rtcSetOpCallback(purego.NewCallback(onOpComplete))
	rtcSetPCObserverCallbacks(
		purego.NewCallback(onICECandidate),
		purego.NewCallback(onSignalingState),
		purego.NewCallback(onConnectionState),
		purego.NewCallback(onICEConnectionState),
		purego.NewCallback(onICEGatheringState),
		purego.NewCallback(onTrack),
		purego.NewCallback(onDataChannel),
	)
	rtcSetDataChannelCallbacks(
		purego.NewCallback(onDataChannelOpen),
		purego.NewCallback(onDataChannelMessage),
		purego.NewCallback(onDataChannelClose),
	)
	rtcSetTrackSinkCallbacks(
		purego.NewCallback(onSinkVideoFrame),
		purego.NewCallback(onSinkAudioFrame),
	)
}

func onSDPComplete(cookie uintptr, code int32, sdpType int32, sdp uintptr, errMsg uintptr) uintptr {
	cell, ok := sdpCells.Remove(handle.ID(cookie))
	if !ok {
		return 0
	}
	res := sdpResult{code: code, sdpType: sdpType}
	if sdp != 0 {
		res.sdp = GoString(unsafe.Pointer(sdp))
	}
	if errMsg != 0 {
		res.message = GoString(unsafe.Pointer(errMsg))
	}
	cell.done <- res
	return 0
}

func onOpComplete(cookie uintptr, code int32, errMsg uintptr) uintptr {
	cell, ok := opCells.Remove(handle.ID(cookie))
	if !ok {
		return 0
	}
	res := opResult{code: code}
	if errMsg != 0 {
		res.message = GoString(unsafe.Pointer(errMsg))
	}
	cell.done <- res
	return 0
}

func onICECandidate(cookie uintptr, candidate uintptr, mid uintptr, mlineIndex int32) uintptr {
	cbs, ok := pcRegistry.Get(handle.ID(cookie))
	if !ok || cbs.OnICECandidate == nil || candidate == 0 {
		return 0
	}
	cand := GoString(unsafe.Pointer(candidate))
	var midStr string
	if mid != 0 {
		midStr = GoString(unsafe.Pointer(mid))
	}
	safeCallback(func() { cbs.OnICECandidate(cand, midStr, mlineIndex) })
	return 0
}

func onSignalingState(cookie uintptr, state int32) uintptr {
	if cbs, ok := pcRegistry.Get(handle.ID(cookie)); ok && cbs.OnSignalingState != nil {
		safeCallback(func() { cbs.OnSignalingState(state) })
	}
	return 0
}

func onConnectionState(cookie uintptr, state int32) uintptr {
	if cbs, ok := pcRegistry.Get(handle.ID(cookie)); ok && cbs.OnConnectionState != nil {
		safeCallback(func() { cbs.OnConnectionState(state) })
	}
	return 0
}

func onICEConnectionState(cookie uintptr, state int32) uintptr {
	if cbs, ok := pcRegistry.Get(handle.ID(cookie)); ok && cbs.OnICEConnectionState != nil {
		safeCallback(func() { cbs.OnICEConnectionState(state) })
	}
	return 0
}

func onICEGatheringState(cookie uintptr, state int32) uintptr {
	if cbs, ok := pcRegistry.Get(handle.ID(cookie)); ok && cbs.OnICEGatheringState != nil {
		safeCallback(func() { cbs.OnICEGatheringState(state) })
	}
	return 0
}

func onTrack(cookie uintptr, track, receiver uintptr, kind int32) uintptr {
	if cbs, ok := pcRegistry.Get(handle.ID(cookie)); ok && cbs.OnTrack != nil {
		safeCallback(func() { cbs.OnTrack(track, receiver, kind) })
	}
	return 0
}

func onDataChannel(cookie uintptr, dc uintptr, label uintptr) uintptr {
	if cbs, ok := pcRegistry.Get(handle.ID(cookie)); ok && cbs.OnDataChannel != nil {
		var labelStr string
		if label != 0 {
			labelStr = GoString(unsafe.Pointer(label))
		}
		safeCallback(func() { cbs.OnDataChannel(dc, labelStr) })
	}
	return 0
}

func onDataChannelOpen(cookie uintptr) uintptr {
	if cbs, ok := dcRegistry.Get(handle.ID(cookie)); ok && cbs.OnOpen != nil {
		safeCallback(cbs.OnOpen)
	}
	return 0
}

func onDataChannelMessage(cookie uintptr, data uintptr, size int32, binary int32) uintptr {
	cbs, ok := dcRegistry.Get(handle.ID(cookie))
	if !ok || cbs.OnMessage == nil || size < 0 {
		return 0
	}
	// Copy out of engine memory before handing to user code.
	msg := make([]byte, size)
	if data != 0 && size > 0 {
		copy(msg, unsafe.Slice((*byte)(unsafe.Pointer(data)), size))
	}
	safeCallback(func() { cbs.OnMessage(msg, binary != 0) })
	return 0
}

func onDataChannelClose(cookie uintptr) uintptr {
	if cbs, ok := dcRegistry.Get(handle.ID(cookie)); ok && cbs.OnClose != nil {
		safeCallback(cbs.OnClose)
	}
	return 0
}

func onSinkVideoFrame(cookie uintptr, width, height int32, yPlane, uPlane, vPlane uintptr, yStride, uStride, vStride int32, timestampUs int64) uintptr {
	cb, ok := videoSinks.Get(handle.ID(cookie))
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

func onSinkAudioFrame(cookie uintptr, samples uintptr, numSamples, sampleRate, channels int32, timestampUs int64) uintptr {
	cb, ok := audioSinks.Get(handle.ID(cookie))
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

// PeerConnectionConfig matches RtcPeerConnectionConfig in rtcengine.h.
type PeerConnectionConfig struct {
	ICEServers           uintptr // pointer to array of ICEServerConfig
	ICEServerCount       int32
	ICECandidatePoolSize int32
	BundlePolicy         *byte // C string
	RTCPMuxPolicy        *byte // C string
}

// ICEServerConfig matches RtcICEServer in rtcengine.h.
type ICEServerConfig struct {
	URLs       uintptr // pointer to array of C strings
	URLCount   int32
	Username   *byte // C string
	Credential *byte // C string
}

// Ptr returns a pointer to the config as uintptr for FFI calls.
func (c *PeerConnectionConfig) Ptr() uintptr {
	return uintptr(unsafe.Pointer(c))
}

// PC is a native engine peer connection instance.
type PC struct {
	h      uintptr
	cookie handle.ID
	errBuf ErrorBuffer
}

// CreatePC constructs a peer connection. The callbacks stay registered
// until Destroy.
func CreatePC(cfg *PeerConnectionConfig, cbs PCCallbacks) (*PC, error) {
	if err := Require(); err != nil {
		return nil, err
	}

	pc := &PC{}
	pc.cookie = pcRegistry.Put(&cbs)

	h := rtcPCCreate(cfg.Ptr(), uintptr(pc.cookie), pc.errBuf.Ptr())
	runtime.KeepAlive(cfg)
	if h == 0 {
		pcRegistry.Remove(pc.cookie)
		return nil, pc.errBuf.ToError(StatusErrInitFailed)
	}
	pc.h = h
	return pc, nil
}

func awaitSDP(start func(opCookie uintptr) int32) (int32, string, error) {
	cell := &sdpCell{done: make(chan sdpResult, 1)}
	id := sdpCells.Put(cell)

	if code := start(uintptr(id)); code != StatusOK {
		sdpCells.Remove(id)
		return 0, "", StatusError(code)
	}

	select {
	case res := <-cell.done:
		if res.code != StatusOK {
			if res.message != "" {
				return 0, "", &StatusWithMessage{Code: res.code, Message: res.message}
			}
			return 0, "", StatusError(res.code)
		}
		return res.sdpType, res.sdp, nil
	case <-time.After(sdpOperationTimeout):
		sdpCells.Remove(id)
		return 0, "", fmt.Errorf("sdp operation timed out after %v", sdpOperationTimeout)
	}
}

func awaitOp(start func(opCookie uintptr) int32) error {
	cell := &opCell{done: make(chan opResult, 1)}
	id := opCells.Put(cell)

	if code := start(uintptr(id)); code != StatusOK {
		opCells.Remove(id)
		return StatusError(code)
	}

	select {
	case res := <-cell.done:
		if res.code != StatusOK {
			if res.message != "" {
				return &StatusWithMessage{Code: res.code, Message: res.message}
			}
			return StatusError(res.code)
		}
		return nil
	case <-time.After(sdpOperationTimeout):
		opCells.Remove(id)
		return fmt.Errorf("sdp operation timed out after %v", sdpOperationTimeout)
	}
}

// CreateOffer asks the engine for an offer and blocks until it is ready.
func (p *PC) CreateOffer() (int32, string, error) {
	return awaitSDP(func(opCookie uintptr) int32 {
		return rtcPCCreateOffer(p.h, opCookie)
	})
}

// CreateAnswer asks the engine for an answer and blocks until it is ready.
func (p *PC) CreateAnswer() (int32, string, error) {
	return awaitSDP(func(opCookie uintptr) int32 {
		return rtcPCCreateAnswer(p.h, opCookie)
	})
}

// SetLocalDescription applies a local description and blocks until the
// engine finishes.
func (p *PC) SetLocalDescription(sdpType int32, sdp string) error {
	cSDP := CString(sdp)
	err := awaitOp(func(opCookie uintptr) int32 {
		return rtcPCSetLocalDescription(p.h, sdpType, ByteSlicePtr(cSDP), opCookie)
	})
	runtime.KeepAlive(cSDP)
	return err
}

// SetRemoteDescription applies a remote description and blocks until the
// engine finishes.
func (p *PC) SetRemoteDescription(sdpType int32, sdp string) error {
	cSDP := CString(sdp)
	err := awaitOp(func(opCookie uintptr) int32 {
		return rtcPCSetRemoteDescription(p.h, sdpType, ByteSlicePtr(cSDP), opCookie)
	})
	runtime.KeepAlive(cSDP)
	return err
}

// AddICECandidate feeds one remote candidate to the engine.
func (p *PC) AddICECandidate(candidate, mid string, mlineIndex int32) error {
	cCand := CString(candidate)
	cMid := CString(mid)
	code := rtcPCAddICECandidate(p.h, ByteSlicePtr(cCand), ByteSlicePtr(cMid), mlineIndex)
	runtime.KeepAlive(cCand)
	runtime.KeepAlive(cMid)
	return StatusError(code)
}

// LocalDescription returns the current local description, or not-found when
// none is set.
func (p *PC) LocalDescription() (int32, string, error) {
	return p.readDescription(rtcPCLocalDescription)
}

// RemoteDescription returns the current remote description, or not-found
// when none is set.
func (p *PC) RemoteDescription() (int32, string, error) {
	return p.readDescription(rtcPCRemoteDescription)
}

func (p *PC) readDescription(read func(pc uintptr, outType uintptr, dst uintptr, dstCap int32, outLen uintptr) int32) (int32, string, error) {
	buf := make([]byte, maxSDPSize)
	var sdpType, outLen int32

	code := read(p.h, Int32Ptr(&sdpType), ByteSlicePtr(buf), int32(len(buf)), Int32Ptr(&outLen))
	runtime.KeepAlive(buf)
	if code != StatusOK {
		return 0, "", StatusError(code)
	}
	if outLen < 0 || int(outLen) > len(buf) {
		return 0, "", ErrInvalidParam
	}
	return sdpType, string(buf[:outLen]), nil
}

// SignalingState returns the engine's signaling state code.
func (p *PC) SignalingState() int32 { return rtcPCSignalingState(p.h) }

// ConnectionState returns the engine's peer connection state code.
func (p *PC) ConnectionState() int32 { return rtcPCConnectionState(p.h) }

// ICEConnectionState returns the engine's ICE connection state code.
func (p *PC) ICEConnectionState() int32 { return rtcPCICEConnectionState(p.h) }

// ICEGatheringState returns the engine's ICE gathering state code.
func (p *PC) ICEGatheringState() int32 { return rtcPCICEGatheringState(p.h) }

// rawStats matches RtcStats in rtcengine.h.
type rawStats struct {
	BytesSent       uint64
	BytesReceived   uint64
	PacketsSent     uint64
	PacketsReceived uint64
	PacketsLost     int64
	RTTMs           float64
}

// Stats is a transport-level stats snapshot. The engine exposes no
// bandwidth estimator, so there are no estimate fields to report.
type Stats struct {
	BytesSent       uint64
	BytesReceived   uint64
	PacketsSent     uint64
	PacketsReceived uint64
	PacketsLost     int64
	RTTMs           float64
}

// GetStats reads the current transport stats snapshot.
func (p *PC) GetStats() (Stats, error) {
	var raw rawStats
	code := rtcPCGetStats(p.h, uintptr(unsafe.Pointer(&raw)))
	runtime.KeepAlive(&raw)
	if code != StatusOK {
		return Stats{}, StatusError(code)
	}
	return Stats(raw), nil
}

// Close initiates shutdown; the instance stays valid until Destroy.
func (p *PC) Close() {
	if p.h != 0 {
		rtcPCClose(p.h)
	}
}

// Destroy releases the native instance and retires the observer cookie.
func (p *PC) Destroy() {
	if p.h == 0 {
		return
	}
	pcRegistry.Remove(p.cookie)
	rtcPCDestroy(p.h)
	p.h = 0
}

// DataChannel is a native engine data channel instance.
type DataChannel struct {
	h      uintptr
	cookie handle.ID
	label  string
}

// CreateDataChannel opens a data channel on the connection.
func (p *PC) CreateDataChannel(label string, ordered bool, maxRetransmits int32, cbs DataChannelCallbacks) (*DataChannel, error) {
	dc := &DataChannel{label: label}
	dc.cookie = dcRegistry.Put(&cbs)

	var orderedFlag int32
	if ordered {
		orderedFlag = 1
	}
	cLabel := CString(label)
	h := rtcPCCreateDataChannel(p.h, ByteSlicePtr(cLabel), orderedFlag, maxRetransmits, uintptr(dc.cookie), p.errBuf.Ptr())
	runtime.KeepAlive(cLabel)
	if h == 0 {
		dcRegistry.Remove(dc.cookie)
		return nil, p.errBuf.ToError(StatusErrInitFailed)
	}
	dc.h = h
	return dc, nil
}

// WrapDataChannel adopts an engine-created channel delivered through
// OnDataChannel and attaches callbacks to it.
func WrapDataChannel(h uintptr, label string, cbs DataChannelCallbacks) *DataChannel {
	dc := &DataChannel{h: h, label: label}
	dc.cookie = dcRegistry.Put(&cbs)
	return dc
}

// Label returns the channel label.
func (dc *DataChannel) Label() string { return dc.label }

// Send transmits one message.
func (dc *DataChannel) Send(data []byte, binary bool) error {
	var binaryFlag int32
	if binary {
		binaryFlag = 1
	}
	code := rtcDataChannelSend(dc.h, ByteSlicePtr(data), int32(len(data)), binaryFlag)
	runtime.KeepAlive(data)
	return StatusError(code)
}

// Close initiates channel shutdown.
func (dc *DataChannel) Close() {
	if dc.h != 0 {
		rtcDataChannelClose(dc.h)
	}
}

// Destroy releases the native instance and retires the cookie.
func (dc *DataChannel) Destroy() {
	if dc.h == 0 {
		return
	}
	dcRegistry.Remove(dc.cookie)
	rtcDataChannelDestroy(dc.h)
	dc.h = 0
}

// AddVideoTrack attaches a local video track and returns the sender handle.
func (p *PC) AddVideoTrack(trackID, streamID string) (uintptr, error) {
	cTrack := CString(trackID)
	cStream := CString(streamID)
	sender := rtcPCAddVideoTrack(p.h, ByteSlicePtr(cTrack), ByteSlicePtr(cStream), p.errBuf.Ptr())
	runtime.KeepAlive(cTrack)
	runtime.KeepAlive(cStream)
	if sender == 0 {
		return 0, p.errBuf.ToError(StatusErrInitFailed)
	}
	return sender, nil
}

// AddAudioTrack attaches a local audio track and returns the sender handle.
func (p *PC) AddAudioTrack(trackID, streamID string) (uintptr, error) {
	cTrack := CString(trackID)
	cStream := CString(streamID)
	sender := rtcPCAddAudioTrack(p.h, ByteSlicePtr(cTrack), ByteSlicePtr(cStream), p.errBuf.Ptr())
	runtime.KeepAlive(cTrack)
	runtime.KeepAlive(cStream)
	if sender == 0 {
		return 0, p.errBuf.ToError(StatusErrInitFailed)
	}
	return sender, nil
}

// RemoveTrack detaches a sender from the connection.
func (p *PC) RemoveTrack(sender uintptr) error {
	return StatusError(rtcPCRemoveTrack(p.h, sender))
}

// SenderPushVideoFrame feeds one I420 frame into a local video track.
func SenderPushVideoFrame(sender uintptr, y, u, v []byte, yStride, uStride, vStride, width, height int, timestampUs int64) error {
	code := rtcSenderPushVideoFrame(
		sender,
		ByteSlicePtr(y), ByteSlicePtr(u), ByteSlicePtr(v),
		int32(yStride), int32(uStride), int32(vStride),
		int32(width), int32(height), timestampUs,
	)
	runtime.KeepAlive(y)
	runtime.KeepAlive(u)
	runtime.KeepAlive(v)
	return StatusError(code)
}

// SenderPushAudioFrame feeds interleaved PCM into a local audio track.
func SenderPushAudioFrame(sender uintptr, samples []int16, sampleRate, channels int) error {
	code := rtcSenderPushAudioFrame(sender, Int16SlicePtr(samples), int32(len(samples)), int32(sampleRate), int32(channels))
	runtime.KeepAlive(samples)
	return StatusError(code)
}

// rawRTPParameters matches RtcRTPParameters in rtcengine.h.
type rawRTPParameters struct {
	SSRC        uint32
	PayloadType int32
	ClockRate   int32
	BitrateBps  uint32
	MimeType    [32]byte
}

// RTPParameters describes one sender's or receiver's RTP stream.
type RTPParameters struct {
	SSRC        uint32
	PayloadType int32
	ClockRate   int32
	BitrateBps  uint32
	MimeType    string
}

// SenderGetParameters reads a sender's RTP parameters.
func SenderGetParameters(sender uintptr) (RTPParameters, error) {
	return readParameters(sender, rtcSenderGetParameters)
}

// ReceiverGetParameters reads a receiver's RTP parameters.
func ReceiverGetParameters(receiver uintptr) (RTPParameters, error) {
	return readParameters(receiver, rtcReceiverGetParameters)
}

func readParameters(h uintptr, read func(h uintptr, out uintptr) int32) (RTPParameters, error) {
	var raw rawRTPParameters
	code := read(h, uintptr(unsafe.Pointer(&raw)))
	runtime.KeepAlive(&raw)
	if code != StatusOK {
		return RTPParameters{}, StatusError(code)
	}
	return RTPParameters{
		SSRC:        raw.SSRC,
		PayloadType: raw.PayloadType,
		ClockRate:   raw.ClockRate,
		BitrateBps:  raw.BitrateBps,
		MimeType:    ByteArrayToString(raw.MimeType[:]),
	}, nil
}

// SenderSetParameters writes a sender's mutable RTP parameters. Only the
// bitrate is writable today.
func SenderSetParameters(sender uintptr, params RTPParameters) error {
	raw := rawRTPParameters{
		SSRC:        params.SSRC,
		PayloadType: params.PayloadType,
		ClockRate:   params.ClockRate,
		BitrateBps:  params.BitrateBps,
	}
	copy(raw.MimeType[:len(raw.MimeType)-1], params.MimeType)
	code := rtcSenderSetParameters(sender, uintptr(unsafe.Pointer(&raw)))
	runtime.KeepAlive(&raw)
	return StatusError(code)
}

// ReceiverTrack returns the track handle owned by a receiver.
func ReceiverTrack(receiver uintptr) uintptr {
	return rtcReceiverTrack(receiver)
}

const maxTransceivers = 32

// Transceivers lists the connection's transceiver handles.
func (p *PC) Transceivers() ([]uintptr, error) {
	var raw [maxTransceivers]uintptr
	var count int32

	code := rtcPCTransceivers(p.h, uintptr(unsafe.Pointer(&raw[0])), maxTransceivers, Int32Ptr(&count))
	runtime.KeepAlive(&raw)
	if code != StatusOK {
		return nil, StatusError(code)
	}
	if count < 0 {
		count = 0
	}
	if count > maxTransceivers {
		count = maxTransceivers
	}

	out := make([]uintptr, count)
	copy(out, raw[:count])
	return out, nil
}

// TransceiverMid returns the transceiver's mid, or "" before negotiation.
func TransceiverMid(t uintptr) string {
	buf := make([]byte, 64)
	n := rtcTransceiverMid(t, ByteSlicePtr(buf), int32(len(buf)))
	runtime.KeepAlive(buf)
	if n <= 0 || int(n) > len(buf) {
		return ""
	}
	return string(buf[:n])
}

// TransceiverDirection returns the transceiver's direction code.
func TransceiverDirection(t uintptr) int32 {
	return rtcTransceiverDirection(t)
}

// TransceiverSetDirection sets the transceiver's preferred direction.
func TransceiverSetDirection(t uintptr, direction int32) error {
	return StatusError(rtcTransceiverSetDirection(t, direction))
}

// TransceiverSender returns the transceiver's sender handle.
func TransceiverSender(t uintptr) uintptr { return rtcTransceiverSender(t) }

// TransceiverReceiver returns the transceiver's receiver handle.
func TransceiverReceiver(t uintptr) uintptr { return rtcTransceiverReceiver(t) }

// TransceiverStop permanently stops the transceiver.
func TransceiverStop(t uintptr) error {
	return StatusError(rtcTransceiverStop(t))
}

// TrackKind returns 0 for video and 1 for audio.
func TrackKind(track uintptr) int32 { return rtcTrackKind(track) }

// TrackEnableVideoSink starts frame delivery from a remote video track.
func TrackEnableVideoSink(track uintptr, cb VideoFrameFunc) (handle.ID, error) {
	id := videoSinks.Put(cb)
	if code := rtcTrackEnableSink(track, uintptr(id)); code != StatusOK {
		videoSinks.Remove(id)
		return 0, StatusError(code)
	}
	return id, nil
}

// TrackDisableVideoSink stops delivery and retires the sink cookie.
func TrackDisableVideoSink(track uintptr, id handle.ID) {
	rtcTrackDisableSink(track)
	videoSinks.Remove(id)
}

// TrackEnableAudioSink starts PCM delivery from a remote audio track.
func TrackEnableAudioSink(track uintptr, cb AudioFrameFunc) (handle.ID, error) {
	id := audioSinks.Put(cb)
	if code := rtcTrackEnableSink(track, uintptr(id)); code != StatusOK {
		audioSinks.Remove(id)
		return 0, StatusError(code)
	}
	return id, nil
}

// TrackDisableAudioSink stops delivery and retires the sink cookie.
func TrackDisableAudioSink(track uintptr, id handle.ID) {
	rtcTrackDisableSink(track)
	audioSinks.Remove(id)
}

// TrackDestroy releases a remote track handle.
func TrackDestroy(track uintptr) {
	rtcTrackDestroy(track)
}
