package signaling

import (
	"github.com/pion/webrtc/v4"
)

// StreamKind tags which presentation flavor a stream is created for.
// The backend multiplexes both kinds on the same endpoints; only the
// creation payload differs.
type StreamKind string

const (
	KindTalk StreamKind = "talk"
	KindClip StreamKind = "clip"
)

// CreateStreamOptions is the single creation contract for both kinds.
// Shared fields are always sent; kind-specific fields are dropped from the
// wire payload when empty.
type CreateStreamOptions struct {
	Kind              StreamKind
	SourceURL         string // talk: still image or video to animate
	PresenterID       string // clip: prerecorded presenter
	DriverID          string // clip
	Warmup            bool
	CompatibilityMode string
}

type createStreamRequest struct {
	SourceURL         string `json:"source_url,omitempty"`
	PresenterID       string `json:"presenter_id,omitempty"`
	DriverID          string `json:"driver_id,omitempty"`
	StreamWarmup      bool   `json:"stream_warmup,omitempty"`
	CompatibilityMode string `json:"compatibility_mode,omitempty"`
}

type createStreamResponse struct {
	ID             string                    `json:"id"`
	SessionID      string                    `json:"session_id"`
	Offer          webrtc.SessionDescription `json:"offer"`
	ICEServers     []webrtc.ICEServer        `json:"ice_servers"`
	SessionTimeout int                       `json:"session_timeout,omitempty"` // seconds, informational
}

type sdpRequest struct {
	SessionID string                    `json:"session_id"`
	Answer    webrtc.SessionDescription `json:"answer"`
}

// iceRequest carries one discovered candidate, or a null candidate as the
// end-of-candidates marker.
type iceRequest struct {
	SessionID     string  `json:"session_id"`
	Candidate     *string `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

type closeStreamRequest struct {
	SessionID string `json:"session_id"`
}

type statusResponse struct {
	Status string `json:"status"`
}
