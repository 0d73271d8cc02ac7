// Package rtc owns the peer connection for one avatar streaming session:
// the connection state machine with its connect-confirmation debounce, the
// video activity monitor, and the control-channel listener.
package rtc

import (
	"time"

	"github.com/pion/webrtc/v4"
)

// StatsSnapshot is one sampled view of the inbound video stream's counters.
type StatsSnapshot struct {
	At            time.Time
	BytesReceived uint64
	PacketsLost   int64
}

// LossSample is one per-sample packet-loss delta inside a playback window.
type LossSample struct {
	At          time.Time
	PacketsLost int64
}

// Handlers is the dispatch table the state machine binds to a live
// connection. All transport event registration goes through it; binding an
// empty table detaches every handler.
type Handlers struct {
	// ICECandidate receives gathered candidates already flattened to their
	// JSON form; nil marks the end of gathering.
	ICECandidate func(*webrtc.ICECandidateInit)
	ICEState     func(webrtc.ICEConnectionState)
	Track        func(*webrtc.TrackRemote)
	Message      func(string)
}

// Conn is the slice of the peer connection surface the session touches.
type Conn interface {
	// CreateControlChannel opens the out-of-band event channel. Must be
	// called before Bind so the message handler has somewhere to attach.
	CreateControlChannel(label string) error
	Bind(Handlers)
	SetRemoteDescription(webrtc.SessionDescription) error
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	// InboundVideoStats reports the current inbound video counters; false
	// until the first video RTP stream exists.
	InboundVideoStats() (StatsSnapshot, bool)
	// Close stops inbound media and releases the connection.
	Close() error
}

// Engine constructs peer connections. Injected so transport construction
// quirks stay out of the state machine and tests run without a live ICE
// stack.
type Engine interface {
	NewConnection(iceServers []webrtc.ICEServer) (Conn, error)
}
