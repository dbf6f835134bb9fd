package pc

// SignalingState mirrors the engine's signaling state machine.
type SignalingState int32

const (
	SignalingStateStable             SignalingState = 0
	SignalingStateHaveLocalOffer     SignalingState = 1
	SignalingStateHaveLocalPranswer  SignalingState = 2
	SignalingStateHaveRemoteOffer    SignalingState = 3
	SignalingStateHaveRemotePranswer SignalingState = 4
	SignalingStateClosed             SignalingState = 5
)

func (s SignalingState) String() string {
	switch s {
	case SignalingStateStable:
		return "stable"
	case SignalingStateHaveLocalOffer:
		return "have-local-offer"
	case SignalingStateHaveLocalPranswer:
		return "have-local-pranswer"
	case SignalingStateHaveRemoteOffer:
		return "have-remote-offer"
	case SignalingStateHaveRemotePranswer:
		return "have-remote-pranswer"
	case SignalingStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// PeerConnectionState is the aggregate connection state.
type PeerConnectionState int32

const (
	PeerConnectionStateNew          PeerConnectionState = 0
	PeerConnectionStateConnecting   PeerConnectionState = 1
	PeerConnectionStateConnected    PeerConnectionState = 2
	PeerConnectionStateDisconnected PeerConnectionState = 3
	PeerConnectionStateFailed       PeerConnectionState = 4
	PeerConnectionStateClosed       PeerConnectionState = 5
)

func (s PeerConnectionState) String() string {
	switch s {
	case PeerConnectionStateNew:
		return "new"
	case PeerConnectionStateConnecting:
		return "connecting"
	case PeerConnectionStateConnected:
		return "connected"
	case PeerConnectionStateDisconnected:
		return "disconnected"
	case PeerConnectionStateFailed:
		return "failed"
	case PeerConnectionStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ICEConnectionState tracks the ICE transport.
type ICEConnectionState int32

const (
	ICEConnectionStateNew          ICEConnectionState = 0
	ICEConnectionStateChecking     ICEConnectionState = 1
	ICEConnectionStateConnected    ICEConnectionState = 2
	ICEConnectionStateCompleted    ICEConnectionState = 3
	ICEConnectionStateFailed       ICEConnectionState = 4
	ICEConnectionStateDisconnected ICEConnectionState = 5
	ICEConnectionStateClosed       ICEConnectionState = 6
)

func (s ICEConnectionState) String() string {
	switch s {
	case ICEConnectionStateNew:
		return "new"
	case ICEConnectionStateChecking:
		return "checking"
	case ICEConnectionStateConnected:
		return "connected"
	case ICEConnectionStateCompleted:
		return "completed"
	case ICEConnectionStateFailed:
		return "failed"
	case ICEConnectionStateDisconnected:
		return "disconnected"
	case ICEConnectionStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ICEGatheringState tracks candidate gathering.
type ICEGatheringState int32

const (
	ICEGatheringStateNew       ICEGatheringState = 0
	ICEGatheringStateGathering ICEGatheringState = 1
	ICEGatheringStateComplete  ICEGatheringState = 2
)

func (s ICEGatheringState) String() string {
	switch s {
	case ICEGatheringStateNew:
		return "new"
	case ICEGatheringStateGathering:
		return "gathering"
	case ICEGatheringStateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// SDPType identifies a session description's role in negotiation.
type SDPType int32

const (
	SDPTypeOffer    SDPType = 0
	SDPTypeAnswer   SDPType = 1
	SDPTypePranswer SDPType = 2
	SDPTypeRollback SDPType = 3
)

func (t SDPType) String() string {
	switch t {
	case SDPTypeOffer:
		return "offer"
	case SDPTypeAnswer:
		return "answer"
	case SDPTypePranswer:
		return "pranswer"
	case SDPTypeRollback:
		return "rollback"
	default:
		return "unknown"
	}
}

// NewSDPType parses the lowercase wire form used in signaling JSON.
func NewSDPType(s string) (SDPType, bool) {
	switch s {
	case "offer":
		return SDPTypeOffer, true
	case "answer":
		return SDPTypeAnswer, true
	case "pranswer":
		return SDPTypePranswer, true
	case "rollback":
		return SDPTypeRollback, true
	default:
		return 0, false
	}
}

// TransceiverDirection is a transceiver's negotiated or preferred direction.
type TransceiverDirection int32

const (
	TransceiverDirectionSendRecv TransceiverDirection = 0
	TransceiverDirectionSendOnly TransceiverDirection = 1
	TransceiverDirectionRecvOnly TransceiverDirection = 2
	TransceiverDirectionInactive TransceiverDirection = 3
	TransceiverDirectionStopped  TransceiverDirection = 4
)

func (d TransceiverDirection) String() string {
	switch d {
	case TransceiverDirectionSendRecv:
		return "sendrecv"
	case TransceiverDirectionSendOnly:
		return "sendonly"
	case TransceiverDirectionRecvOnly:
		return "recvonly"
	case TransceiverDirectionInactive:
		return "inactive"
	case TransceiverDirectionStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DataChannelState tracks a data channel's lifecycle.
type DataChannelState int32

const (
	DataChannelStateConnecting DataChannelState = 0
	DataChannelStateOpen       DataChannelState = 1
	DataChannelStateClosing    DataChannelState = 2
	DataChannelStateClosed     DataChannelState = 3
)

func (s DataChannelState) String() string {
	switch s {
	case DataChannelStateConnecting:
		return "connecting"
	case DataChannelStateOpen:
		return "open"
	case DataChannelStateClosing:
		return "closing"
	case DataChannelStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// TrackKind distinguishes media kinds on tracks.
type TrackKind int32

const (
	TrackKindVideo TrackKind = 0
	TrackKindAudio TrackKind = 1
)

func (k TrackKind) String() string {
	switch k {
	case TrackKindVideo:
		return "video"
	case TrackKindAudio:
		return "audio"
	default:
		return "unknown"
	}
}
