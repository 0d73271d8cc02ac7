package rtc

import (
	"strings"

	"github.com/rs/zerolog"
)

// Analytics receives control-channel lifecycle events verbatim. The handle
// is constructed by the caller and passed in at session creation; there is
// no process-wide default.
type Analytics interface {
	Report(event, payload string)
}

// NopAnalytics discards every event.
type NopAnalytics struct{}

func (NopAnalytics) Report(string, string) {}

// Control relays server-pushed events arriving as text frames on the
// control data channel.
type Control struct {
	log       zerolog.Logger
	analytics Analytics
	onReady   func()
	onFailed  func()
}

func NewControl(analytics Analytics, onReady, onFailed func(), log zerolog.Logger) *Control {
	if analytics == nil {
		analytics = NopAnalytics{}
	}
	return &Control{
		log:       log.With().Str("module", "rtc.control").Logger(),
		analytics: analytics,
		onReady:   onReady,
		onFailed:  onFailed,
	}
}

// Handle parses one "<event>:<payload>" frame. Frames without the delimiter
// are dropped silently. Most events only feed analytics; ready and failed
// additionally steer the session: ready is the authoritative application-level
// connect signal, failed is a hard playback stop overriding the heuristic.
func (c *Control) Handle(frame string) {
	event, payload, ok := strings.Cut(frame, ":")
	if !ok {
		return
	}

	switch event {
	case "ready":
		c.log.Info().Msg("stream ready")
		c.analytics.Report(event, payload)
		if c.onReady != nil {
			c.onReady()
		}
	case "failed":
		c.log.Warn().Str("payload", payload).Msg("stream failed")
		c.analytics.Report(event, payload)
		if c.onFailed != nil {
			c.onFailed()
		}
	case "created", "started", "done", "video-created", "video-done", "video-error":
		c.analytics.Report(event, payload)
	default:
		c.log.Debug().Str("event", event).Msg("unknown control event")
	}
}
