package rtc

import (
	"fmt"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// pionEngine is the default Engine backed by pion/webrtc.
type pionEngine struct {
	api *webrtc.API
	log zerolog.Logger
}

// NewEngine builds the pion API with default codecs and interceptors (the
// stats the activity monitor polls come from the interceptor chain).
func NewEngine(log zerolog.Logger) (Engine, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	return &pionEngine{
		api: webrtc.NewAPI(
			webrtc.WithMediaEngine(mediaEngine),
			webrtc.WithInterceptorRegistry(registry),
		),
		log: log.With().Str("module", "rtc.engine").Logger(),
	}, nil
}

func (e *pionEngine) NewConnection(iceServers []webrtc.ICEServer) (Conn, error) {
	pc, err := e.api.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, err
	}
	return &pionConn{pc: pc, log: e.log}, nil
}

type pionConn struct {
	pc  *webrtc.PeerConnection
	dc  *webrtc.DataChannel
	log zerolog.Logger
}

func (c *pionConn) CreateControlChannel(label string) error {
	dc, err := c.pc.CreateDataChannel(label, nil)
	if err != nil {
		return err
	}
	c.dc = dc
	return nil
}

// Bind installs the dispatch table. Every hook is wrapped with a nil guard
// so Bind(Handlers{}) detaches cleanly.
func (c *pionConn) Bind(h Handlers) {
	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if h.ICECandidate == nil {
			return
		}
		if cand == nil {
			h.ICECandidate(nil)
			return
		}
		ci := cand.ToJSON()
		h.ICECandidate(&ci)
	})
	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		c.log.Info().Str("ice_state", s.String()).Msg("ICE state")
		if h.ICEState != nil {
			h.ICEState(s)
		}
	})
	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.log.Info().Str("kind", track.Kind().String()).Str("track_id", track.ID()).Msg("remote track")
		if h.Track != nil {
			h.Track(track)
		}
	})
	if c.dc != nil {
		c.dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			if msg.IsString && h.Message != nil {
				h.Message(string(msg.Data))
			}
		})
	}
}

func (c *pionConn) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(desc)
}

func (c *pionConn) CreateAnswer() (webrtc.SessionDescription, error) {
	return c.pc.CreateAnswer(nil)
}

func (c *pionConn) SetLocalDescription(desc webrtc.SessionDescription) error {
	return c.pc.SetLocalDescription(desc)
}

func (c *pionConn) InboundVideoStats() (StatsSnapshot, bool) {
	return inboundVideoSnapshot(c.pc.GetStats(), time.Now())
}

// inboundVideoSnapshot sums the counters over every inbound video stream.
// Report iteration order is not stable, so picking a single entry would be
// nondeterministic whenever more than one video stream arrives.
func inboundVideoSnapshot(report webrtc.StatsReport, at time.Time) (StatsSnapshot, bool) {
	snap := StatsSnapshot{At: at}
	found := false
	for _, s := range report {
		in, ok := s.(webrtc.InboundRTPStreamStats)
		if !ok || in.Kind != "video" {
			continue
		}
		found = true
		snap.BytesReceived += in.BytesReceived
		snap.PacketsLost += int64(in.PacketsLost)
	}
	return snap, found
}

func (c *pionConn) Close() error {
	// Stop inbound media before the connection itself.
	for _, r := range c.pc.GetReceivers() {
		if err := r.Stop(); err != nil {
			c.log.Debug().Err(err).Msg("receiver stop")
		}
	}
	if c.dc != nil {
		if err := c.dc.Close(); err != nil {
			c.log.Debug().Err(err).Msg("control channel close")
		}
	}
	if err := c.pc.Close(); err != nil {
		return err
	}
	c.log.Info().Msg("peer connection closed")
	return nil
}
