// Package pc exposes the engine's peer connection as a browser-like API:
// offer/answer negotiation, ICE, local and remote tracks, and data channels.
// SDP and candidate strings pass through the engine untouched.
package pc

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/streamshim/rtcbridge/internal/engine"
)

// Errors
var (
	ErrConnectionClosed  = errors.New("peer connection is closed")
	ErrInvalidTrack      = errors.New("invalid track")
	ErrTrackAlreadyBound = errors.New("track is already bound to a sender")
	ErrSenderNotFound    = errors.New("sender does not belong to this connection")
)

// PeerConnection wraps one engine peer connection. The exported On* handler
// fields are invoked from the engine's signaling thread; set them before
// negotiation begins and do not mutate them afterwards.
type PeerConnection struct {
	// OnICECandidate receives each locally gathered candidate.
	OnICECandidate func(ICECandidate)
	// OnSignalingStateChange fires on every signaling state transition.
	OnSignalingStateChange func(SignalingState)
	// OnConnectionStateChange fires on aggregate state transitions.
	OnConnectionStateChange func(PeerConnectionState)
	// OnICEConnectionStateChange fires on ICE transport transitions.
	OnICEConnectionStateChange func(ICEConnectionState)
	// OnICEGatheringStateChange fires on gathering transitions.
	OnICEGatheringStateChange func(ICEGatheringState)
	// OnTrack fires when a remote track is added by negotiation.
	OnTrack func(*TrackRemote, *RTPReceiver)
	// OnDataChannel fires when the remote side opens a channel.
	OnDataChannel func(*DataChannel)

	pc     *engine.PC
	closed atomic.Bool

	signalingState     atomic.Int32
	connectionState    atomic.Int32
	iceConnectionState atomic.Int32
	iceGatheringState  atomic.Int32

	// mu guards the bookkeeping below. It is never held across engine
	// calls: events arrive on the engine's thread and must not be able
	// to deadlock against an in-flight operation.
	mu           sync.Mutex
	senders      []*RTPSender
	transceivers map[uintptr]*RTPTransceiver
}

// NewPeerConnection creates a peer connection with the given configuration.
func NewPeerConnection(cfg Configuration) (*PeerConnection, error) {
	pc := &PeerConnection{transceivers: make(map[uintptr]*RTPTransceiver)}

	cbs := engine.PCCallbacks{
		OnICECandidate: func(candidate, mid string, mlineIndex int32) {
			if pc.closed.Load() {
				return
			}
			if h := pc.OnICECandidate; h != nil {
				h(ICECandidate{Candidate: candidate, SDPMid: mid, SDPMLineIndex: mlineIndex})
			}
		},
		OnSignalingState: func(state int32) {
			pc.signalingState.Store(state)
			if pc.closed.Load() {
				return
			}
			if h := pc.OnSignalingStateChange; h != nil {
				h(SignalingState(state))
			}
		},
		OnConnectionState: func(state int32) {
			pc.connectionState.Store(state)
			if pc.closed.Load() {
				return
			}
			if h := pc.OnConnectionStateChange; h != nil {
				h(PeerConnectionState(state))
			}
		},
		OnICEConnectionState: func(state int32) {
			pc.iceConnectionState.Store(state)
			if pc.closed.Load() {
				return
			}
			if h := pc.OnICEConnectionStateChange; h != nil {
				h(ICEConnectionState(state))
			}
		},
		OnICEGatheringState: func(state int32) {
			pc.iceGatheringState.Store(state)
			if pc.closed.Load() {
				return
			}
			if h := pc.OnICEGatheringStateChange; h != nil {
				h(ICEGatheringState(state))
			}
		},
		OnTrack: func(track, receiver uintptr, kind int32) {
			if pc.closed.Load() {
				return
			}
			h := pc.OnTrack
			if h == nil {
				// Nobody will ever consume this track; release it
				// instead of leaking the engine handle.
				engine.TrackDestroy(track)
				return
			}
			h(newTrackRemote(track, TrackKind(kind)), &RTPReceiver{h: receiver})
		},
		OnDataChannel: func(dc uintptr, label string) {
			if pc.closed.Load() {
				return
			}
			h := pc.OnDataChannel
			if h == nil {
				return
			}
			h(adoptDataChannel(dc, label))
		},
	}

	native := newNativeConfig(cfg)
	epc, err := engine.CreatePC(&native.cfg, cbs)
	runtime.KeepAlive(native)
	if err != nil {
		return nil, err
	}
	pc.pc = epc
	return pc, nil
}

// CreateOffer asks the engine for an offer. Blocks until the engine's
// signaling thread produces it.
func (pc *PeerConnection) CreateOffer() (SessionDescription, error) {
	if pc.closed.Load() {
		return SessionDescription{}, ErrConnectionClosed
	}
	sdpType, sdp, err := pc.pc.CreateOffer()
	if err != nil {
		return SessionDescription{}, err
	}
	return SessionDescription{Type: SDPType(sdpType), SDP: sdp}, nil
}

// CreateAnswer asks the engine for an answer to the current remote offer.
func (pc *PeerConnection) CreateAnswer() (SessionDescription, error) {
	if pc.closed.Load() {
		return SessionDescription{}, ErrConnectionClosed
	}
	sdpType, sdp, err := pc.pc.CreateAnswer()
	if err != nil {
		return SessionDescription{}, err
	}
	return SessionDescription{Type: SDPType(sdpType), SDP: sdp}, nil
}

// SetLocalDescription applies a local description and blocks until applied.
func (pc *PeerConnection) SetLocalDescription(desc SessionDescription) error {
	if pc.closed.Load() {
		return ErrConnectionClosed
	}
	return pc.pc.SetLocalDescription(int32(desc.Type), desc.SDP)
}

// SetRemoteDescription applies a remote description and blocks until applied.
func (pc *PeerConnection) SetRemoteDescription(desc SessionDescription) error {
	if pc.closed.Load() {
		return ErrConnectionClosed
	}
	return pc.pc.SetRemoteDescription(int32(desc.Type), desc.SDP)
}

// LocalDescription returns the current local description, or nil when none
// has been applied.
func (pc *PeerConnection) LocalDescription() (*SessionDescription, error) {
	if pc.closed.Load() {
		return nil, ErrConnectionClosed
	}
	return readDescription(pc.pc.LocalDescription)
}

// RemoteDescription returns the current remote description, or nil when
// none has been applied.
func (pc *PeerConnection) RemoteDescription() (*SessionDescription, error) {
	if pc.closed.Load() {
		return nil, ErrConnectionClosed
	}
	return readDescription(pc.pc.RemoteDescription)
}

func readDescription(read func() (int32, string, error)) (*SessionDescription, error) {
	sdpType, sdp, err := read()
	if errors.Is(err, engine.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &SessionDescription{Type: SDPType(sdpType), SDP: sdp}, nil
}

// AddICECandidate feeds one remote candidate to the engine.
func (pc *PeerConnection) AddICECandidate(candidate ICECandidate) error {
	if pc.closed.Load() {
		return ErrConnectionClosed
	}
	return pc.pc.AddICECandidate(candidate.Candidate, candidate.SDPMid, candidate.SDPMLineIndex)
}

// SignalingState returns the last observed signaling state.
func (pc *PeerConnection) SignalingState() SignalingState {
	return SignalingState(pc.signalingState.Load())
}

// ConnectionState returns the last observed aggregate state.
func (pc *PeerConnection) ConnectionState() PeerConnectionState {
	if pc.closed.Load() {
		return PeerConnectionStateClosed
	}
	return PeerConnectionState(pc.connectionState.Load())
}

// ICEConnectionState returns the last observed ICE transport state.
func (pc *PeerConnection) ICEConnectionState() ICEConnectionState {
	return ICEConnectionState(pc.iceConnectionState.Load())
}

// ICEGatheringState returns the last observed gathering state.
func (pc *PeerConnection) ICEGatheringState() ICEGatheringState {
	return ICEGatheringState(pc.iceGatheringState.Load())
}

// AddTrack attaches a local track and returns its sender. The track starts
// accepting frames once bound.
func (pc *PeerConnection) AddTrack(track *Track) (*RTPSender, error) {
	if pc.closed.Load() {
		return nil, ErrConnectionClosed
	}
	if track == nil {
		return nil, ErrInvalidTrack
	}
	if track.bound() {
		return nil, ErrTrackAlreadyBound
	}

	var h uintptr
	var err error
	switch track.kind {
	case TrackKindVideo:
		h, err = pc.pc.AddVideoTrack(track.id, track.streamID)
	case TrackKindAudio:
		h, err = pc.pc.AddAudioTrack(track.id, track.streamID)
	default:
		return nil, ErrInvalidTrack
	}
	if err != nil {
		return nil, err
	}

	sender := &RTPSender{h: h, track: track}
	track.bind(h)

	pc.mu.Lock()
	pc.senders = append(pc.senders, sender)
	pc.mu.Unlock()
	return sender, nil
}

// RemoveTrack detaches a sender. The track stops accepting frames.
func (pc *PeerConnection) RemoveTrack(sender *RTPSender) error {
	if pc.closed.Load() {
		return ErrConnectionClosed
	}
	if sender == nil {
		return ErrInvalidTrack
	}

	pc.mu.Lock()
	idx := -1
	for i, s := range pc.senders {
		if s == sender {
			idx = i
			break
		}
	}
	if idx >= 0 {
		pc.senders = append(pc.senders[:idx], pc.senders[idx+1:]...)
	}
	pc.mu.Unlock()
	if idx < 0 {
		return ErrSenderNotFound
	}

	err := pc.pc.RemoveTrack(sender.h)
	if sender.track != nil {
		sender.track.unbind()
	}
	return err
}

// GetSenders lists the senders added through AddTrack.
func (pc *PeerConnection) GetSenders() []*RTPSender {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	out := make([]*RTPSender, len(pc.senders))
	copy(out, pc.senders)
	return out
}

// GetTransceivers lists the connection's transceivers. Wrappers are cached
// so repeated calls return stable identities.
func (pc *PeerConnection) GetTransceivers() ([]*RTPTransceiver, error) {
	if pc.closed.Load() {
		return nil, ErrConnectionClosed
	}
	handles, err := pc.pc.Transceivers()
	if err != nil {
		return nil, err
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()
	out := make([]*RTPTransceiver, 0, len(handles))
	for _, h := range handles {
		t, ok := pc.transceivers[h]
		if !ok {
			t = &RTPTransceiver{h: h}
			pc.transceivers[h] = t
		}
		out = append(out, t)
	}
	return out, nil
}

// GetStats reads the transport stats snapshot.
func (pc *PeerConnection) GetStats() (Stats, error) {
	if pc.closed.Load() {
		return Stats{}, ErrConnectionClosed
	}
	raw, err := pc.pc.GetStats()
	if err != nil {
		return Stats{}, err
	}
	return Stats(raw), nil
}

// Close shuts the connection down and releases the engine instance. Safe to
// call more than once; pending callbacks are silenced before teardown.
func (pc *PeerConnection) Close() error {
	if !pc.closed.CompareAndSwap(false, true) {
		return nil
	}

	pc.mu.Lock()
	senders := pc.senders
	pc.senders = nil
	pc.transceivers = map[uintptr]*RTPTransceiver{}
	pc.mu.Unlock()

	for _, s := range senders {
		if s.track != nil {
			s.track.unbind()
		}
	}

	pc.pc.Close()
	pc.pc.Destroy()
	return nil
}
