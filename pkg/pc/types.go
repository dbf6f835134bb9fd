package pc

import (
	"unsafe"

	"github.com/streamshim/rtcbridge/internal/engine"
)

// SessionDescription is an SDP blob plus its negotiation role. The SDP text
// is carried byte for byte; nothing here parses or rewrites it.
type SessionDescription struct {
	Type SDPType `json:"type"`
	SDP  string  `json:"sdp"`
}

// ICECandidate is one gathered or remote candidate in signaling form.
type ICECandidate struct {
	Candidate     string `json:"candidate"`
	SDPMid        string `json:"sdpMid"`
	SDPMLineIndex int32  `json:"sdpMLineIndex"`
}

// ICEServer configures one STUN or TURN server.
type ICEServer struct {
	URLs       []string
	Username   string
	Credential string
}

// Configuration configures a peer connection.
type Configuration struct {
	ICEServers           []ICEServer
	ICECandidatePoolSize int
	BundlePolicy         string
	RTCPMuxPolicy        string
}

// DefaultConfiguration returns a configuration with a public STUN server,
// enough to gather server-reflexive candidates out of the box.
func DefaultConfiguration() Configuration {
	return Configuration{
		ICEServers: []ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	}
}

// nativeConfig is the C-layout mirror of a Configuration. The pin slices
// keep every nested allocation reachable until the engine has copied the
// struct; callers must KeepAlive the nativeConfig across the create call.
type nativeConfig struct {
	cfg     engine.PeerConnectionConfig
	servers []engine.ICEServerConfig
	urlPtrs [][]uintptr
	strings [][]byte
}

func (n *nativeConfig) cstr(s string) *byte {
	if s == "" {
		return nil
	}
	b := engine.CString(s)
	n.strings = append(n.strings, b)
	return &b[0]
}

func newNativeConfig(cfg Configuration) *nativeConfig {
	n := &nativeConfig{}

	if len(cfg.ICEServers) > 0 {
		n.servers = make([]engine.ICEServerConfig, len(cfg.ICEServers))
		for i, srv := range cfg.ICEServers {
			urls := make([]uintptr, 0, len(srv.URLs))
			for _, u := range srv.URLs {
				if p := n.cstr(u); p != nil {
					urls = append(urls, uintptr(unsafe.Pointer(p)))
				}
			}
			n.urlPtrs = append(n.urlPtrs, urls)

			var urlArray uintptr
			if len(urls) > 0 {
				urlArray = uintptr(unsafe.Pointer(&urls[0]))
			}
			n.servers[i] = engine.ICEServerConfig{
				URLs:       urlArray,
				URLCount:   int32(len(urls)),
				Username:   n.cstr(srv.Username),
				Credential: n.cstr(srv.Credential),
			}
		}
		n.cfg.ICEServers = uintptr(unsafe.Pointer(&n.servers[0]))
		n.cfg.ICEServerCount = int32(len(n.servers))
	}

	n.cfg.ICECandidatePoolSize = int32(cfg.ICECandidatePoolSize)
	n.cfg.BundlePolicy = n.cstr(cfg.BundlePolicy)
	n.cfg.RTCPMuxPolicy = n.cstr(cfg.RTCPMuxPolicy)
	return n
}

// Stats is a transport-level snapshot. The engine has no bandwidth
// estimator, so there are no send-side estimate fields to surface.
type Stats struct {
	BytesSent       uint64
	BytesReceived   uint64
	PacketsSent     uint64
	PacketsReceived uint64
	PacketsLost     int64
	RTTMs           float64
}
