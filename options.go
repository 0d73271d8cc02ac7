package streamkit

import (
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/vireo-ai/streamkit/internal/rtc"
	"github.com/vireo-ai/streamkit/internal/signaling"
	"github.com/vireo-ai/streamkit/internal/transport"
)

// Auth selects the Authorization scheme for every signaling call.
type Auth = transport.Auth

func Bearer(token string) Auth     { return transport.Bearer(token) }
func Basic(user, pass string) Auth { return transport.Basic(user, pass) }
func ClientKey(key string) Auth    { return transport.ClientKey(key) }

// RetryPolicy controls how rate-limited signaling calls are retried.
type RetryPolicy = transport.RetryPolicy

// FailureContext describes a signaling call that failed for good.
type FailureContext = transport.FailureContext

// StreamKind and StreamOptions shape the stream-creation payload.
type (
	StreamKind    = signaling.StreamKind
	StreamOptions = signaling.CreateStreamOptions
)

const (
	KindTalk = signaling.KindTalk
	KindClip = signaling.KindClip
)

// ConnectionState is the session-level connection state.
type ConnectionState = rtc.State

const (
	ConnectionNew        = rtc.StateNew
	ConnectionConnecting = rtc.StateConnecting
	ConnectionConnected  = rtc.StateConnected
	ConnectionFail       = rtc.StateFail
)

// VideoState is the derived playback state of the inbound video.
type VideoState = rtc.VideoState

const (
	VideoStart = rtc.VideoStart
	VideoStop  = rtc.VideoStop
)

// LossSample is one packet-loss delta from a playback window summary.
type LossSample = rtc.LossSample

// Analytics receives control-channel lifecycle events. Constructed by the
// caller and handed in at creation; the SDK never keeps global state.
type Analytics = rtc.Analytics

// Engine abstracts peer connection construction, mainly for tests.
type Engine = rtc.Engine

// Callbacks surface session events. Invoked from transport and timer
// goroutines; they must return quickly and never block.
type Callbacks struct {
	OnConnectionStateChange func(ConnectionState)
	// OnVideoStateChange carries a bounded packet-loss summary on Stop
	// edges of an observed playback window. The signal is heuristic,
	// derived from byte-counter deltas, not a protocol acknowledgment.
	OnVideoStateChange func(VideoState, []LossSample)
	// OnSrcObjectReady fires once, for the first inbound media track.
	OnSrcObjectReady func(*webrtc.TrackRemote)
}

// Options configures one streaming session.
type Options struct {
	BaseURL string
	AgentID string
	Auth    Auth
	Stream  StreamOptions

	Callbacks Callbacks
	Analytics Analytics

	// OnAPIFailure observes signaling calls that exhausted their retry
	// budget; purely diagnostic.
	OnAPIFailure func(FailureContext)

	// Retry overrides the default 429-only policy.
	Retry *RetryPolicy

	// Engine overrides the default pion-backed media engine.
	Engine Engine

	// Debug enables console logging when no Logger is supplied.
	Debug  bool
	Logger *zerolog.Logger

	// test knobs
	confirmDelay  time.Duration
	statsInterval time.Duration
}
