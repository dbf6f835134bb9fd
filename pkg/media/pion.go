package media

import "github.com/pion/webrtc/v4"

// PionTrackLocal extracts the pion TrackLocal behind a MediaStreamTrack,
// for callers integrating with a pion PeerConnection directly.
func PionTrackLocal(t MediaStreamTrack) (webrtc.TrackLocal, bool) {
	if p, ok := t.(pionTrackProvider); ok {
		return p.pionTrack(), true
	}
	return nil, false
}

// AddTracksToPC adds every track in the stream to a pion PeerConnection
// and returns the senders created. Tracks without pion support are
// skipped.
func AddTracksToPC(pc *webrtc.PeerConnection, stream *MediaStream) ([]*webrtc.RTPSender, error) {
	tracks := stream.GetTracks()
	senders := make([]*webrtc.RTPSender, 0, len(tracks))

	for _, t := range tracks {
		pionTrack, ok := PionTrackLocal(t)
		if !ok {
			continue
		}
		sender, err := pc.AddTrack(pionTrack)
		if err != nil {
			return senders, err
		}
		senders = append(senders, sender)
	}
	return senders, nil
}
