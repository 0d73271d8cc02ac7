package rtc

import "github.com/pion/webrtc/v4"

// State is the session-level connection state derived from the transport's
// native ICE state. New is both the initial and the recoverable resting
// state; Fail is terminal for the session.
type State int

const (
	StateNew State = iota
	StateConnecting
	StateConnected
	StateFail
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MapICEState is the fixed mapping table from native ICE states. Everything
// outside connected/checking/failed (completed, disconnected, closed, new)
// rests at New.
func MapICEState(s webrtc.ICEConnectionState) State {
	switch s {
	case webrtc.ICEConnectionStateConnected:
		return StateConnected
	case webrtc.ICEConnectionStateChecking:
		return StateConnecting
	case webrtc.ICEConnectionStateFailed:
		return StateFail
	default:
		return StateNew
	}
}

// reportImmediately reports whether a transition into next fires the user
// callback right away. Entry into Connected is the single deferred case: it
// waits behind the confirmation timer to ride out ICE flapping.
func reportImmediately(next State) bool {
	return next != StateConnected
}

// VideoState is the derived playback state of the inbound video stream.
type VideoState int

const (
	VideoStop VideoState = iota
	VideoStart
)

func (v VideoState) String() string {
	if v == VideoStart {
		return "start"
	}
	return "stop"
}
