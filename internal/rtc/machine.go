package rtc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

const (
	// DefaultConfirmDelay is how long an ICE "connected" signal must hold
	// before the user-facing Connected callback fires.
	DefaultConfirmDelay = 5 * time.Second

	// closeNotifyTimeout bounds the best-effort remote close on teardown.
	closeNotifyTimeout = 5 * time.Second

	controlChannelLabel = "stream-events"
)

// ErrNotReady is returned by Speak before setup has completed or after
// disconnect.
var ErrNotReady = errors.New("session not established")

// Signaler is what the machine needs from the negotiated session.
type Signaler interface {
	AckAnswer(ctx context.Context, answer webrtc.SessionDescription) error
	// SendCandidate is fire-and-forget; nil means end-of-candidates.
	SendCandidate(ctx context.Context, c *webrtc.ICECandidateInit)
	SendPayload(ctx context.Context, payload any) (json.RawMessage, error)
	Close(ctx context.Context) error
}

// Callbacks surface session events to the caller. They are invoked from
// transport and timer goroutines and must not block.
type Callbacks struct {
	OnConnectionState func(State)
	OnVideoState      func(VideoState, []LossSample)
	// OnSrcObjectReady fires for the first inbound media track only; later
	// tracks do not re-fire it.
	OnSrcObjectReady func(*webrtc.TrackRemote)
}

type MachineConfig struct {
	Engine    Engine
	Signaler  Signaler
	Analytics Analytics
	Callbacks Callbacks
	Logger    zerolog.Logger

	ConfirmDelay  time.Duration // 0 means DefaultConfirmDelay
	StatsInterval time.Duration // 0 means DefaultStatsInterval
}

// Machine owns the peer connection and drives it through
// New -> Connecting -> Connected -> {Fail, New}. One machine serves exactly
// one session; after a setup failure or disconnect it is discarded, never
// restarted.
type Machine struct {
	log          zerolog.Logger
	engine       Engine
	sig          Signaler
	cb           Callbacks
	confirmDelay time.Duration

	control *Control
	monitor *Monitor

	mu         sync.Mutex
	conn       Conn
	state      State
	confirm    *time.Timer
	confirmGen uint64
	ready      bool
	closed     bool

	srcReady sync.Once
}

func NewMachine(cfg MachineConfig) *Machine {
	m := &Machine{
		log:          cfg.Logger.With().Str("module", "rtc.machine").Logger(),
		engine:       cfg.Engine,
		sig:          cfg.Signaler,
		cb:           cfg.Callbacks,
		confirmDelay: cfg.ConfirmDelay,
		state:        StateNew,
	}
	if m.confirmDelay <= 0 {
		m.confirmDelay = DefaultConfirmDelay
	}
	m.control = NewControl(cfg.Analytics, m.forceConnected, m.hardStop, cfg.Logger)
	m.monitor = NewMonitor(cfg.StatsInterval, m.emitVideoIfOpen, cfg.Logger)
	return m
}

// Start runs the setup sequence: peer connection, control channel, handler
// dispatch table, remote offer, local answer, answer ack. Fail-fast with no
// partial retry; any error tears down whatever was built and the caller
// discards the machine.
func (m *Machine) Start(ctx context.Context, offer webrtc.SessionDescription, iceServers []webrtc.ICEServer) error {
	conn, err := m.engine.NewConnection(iceServers)
	if err != nil {
		return fmt.Errorf("new peer connection: %w", err)
	}
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	fail := func(step string, err error) error {
		m.abort()
		return fmt.Errorf("%s: %w", step, err)
	}

	if err := conn.CreateControlChannel(controlChannelLabel); err != nil {
		return fail("create control channel", err)
	}
	conn.Bind(Handlers{
		ICECandidate: m.handleICECandidate,
		ICEState:     m.handleICEState,
		Track:        m.handleTrack,
		Message:      m.control.Handle,
	})
	if err := conn.SetRemoteDescription(offer); err != nil {
		return fail("set remote offer", err)
	}
	answer, err := conn.CreateAnswer()
	if err != nil {
		return fail("create answer", err)
	}
	if err := conn.SetLocalDescription(answer); err != nil {
		return fail("set local answer", err)
	}
	if err := m.sig.AckAnswer(ctx, answer); err != nil {
		return fail("ack answer", err)
	}

	m.mu.Lock()
	m.ready = true
	m.mu.Unlock()
	m.log.Info().Msg("setup complete")
	return nil
}

// State returns the current session connection state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Speak forwards a payload over the negotiated session. Valid only once
// setup has completed.
func (m *Machine) Speak(ctx context.Context, payload any) (json.RawMessage, error) {
	m.mu.Lock()
	ok := m.ready && !m.closed
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotReady
	}
	return m.sig.SendPayload(ctx, payload)
}

// Disconnect releases everything the machine owns: timers, the statistics
// poller, handlers, inbound media and the connection itself, then notifies
// the remote side best-effort and fires the terminal callbacks. Idempotent
// and safe before setup completes; it never panics and never returns an
// error.
func (m *Machine) Disconnect() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.state = StateNew
	m.stopConfirmLocked()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	m.monitor.Close()
	if conn != nil {
		conn.Bind(Handlers{}) // detach before close so teardown events stay silent
		if err := conn.Close(); err != nil {
			m.log.Debug().Err(err).Msg("connection close")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), closeNotifyTimeout)
	defer cancel()
	if err := m.sig.Close(ctx); err != nil {
		m.log.Debug().Err(err).Msg("remote close not delivered")
	}

	m.emitVideo(VideoStop, nil)
	m.emitState(StateNew)
	m.log.Info().Msg("disconnected")
}

// abort is the setup-failure teardown: same resource cleanup as Disconnect
// but silent, since no user callback has fired yet and none may.
func (m *Machine) abort() {
	m.mu.Lock()
	m.closed = true
	m.stopConfirmLocked()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	m.monitor.Close()
	if conn != nil {
		conn.Bind(Handlers{})
		if err := conn.Close(); err != nil {
			m.log.Debug().Err(err).Msg("connection close")
		}
	}
}

func (m *Machine) handleICEState(native webrtc.ICEConnectionState) {
	next := MapICEState(native)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.state = next
	if reportImmediately(next) {
		m.stopConfirmLocked()
	} else {
		m.armConfirmLocked()
	}
	m.mu.Unlock()

	m.log.Info().Str("ice_state", native.String()).Str("state", next.String()).Msg("transition")
	if reportImmediately(next) {
		m.emitStateIfOpen(next)
	}
}

// armConfirmLocked starts the connect-confirmation timer. A fresh generation
// invalidates any already-fired timer still waiting on the lock.
func (m *Machine) armConfirmLocked() {
	m.stopConfirmLocked()
	gen := m.confirmGen
	m.confirm = time.AfterFunc(m.confirmDelay, func() { m.confirmElapsed(gen) })
}

func (m *Machine) stopConfirmLocked() {
	if m.confirm != nil {
		m.confirm.Stop()
		m.confirm = nil
	}
	m.confirmGen++
}

func (m *Machine) confirmElapsed(gen uint64) {
	m.mu.Lock()
	if m.closed || gen != m.confirmGen || m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	m.confirm = nil
	// Started under the lock so a concurrent Disconnect either waits here
	// and closes the monitor afterwards, or has already closed it and the
	// start is a no-op. Either way no poller survives teardown.
	if m.conn != nil {
		m.monitor.Start(m.conn)
	}
	m.mu.Unlock()

	m.emitStateIfOpen(StateConnected)
}

// forceConnected is the control channel's ready signal: authoritative, it
// pre-empts the pending confirmation timer and reports Connected now.
func (m *Machine) forceConnected() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.stopConfirmLocked()
	m.state = StateConnected
	if m.conn != nil {
		m.monitor.Start(m.conn)
	}
	m.mu.Unlock()

	m.emitStateIfOpen(StateConnected)
}

// hardStop is the control channel's failed signal: stop polling and force a
// Stop playback callback regardless of what the byte counters say.
func (m *Machine) hardStop() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.monitor.Stop()
	m.emitVideoIfOpen(VideoStop, nil)
}

func (m *Machine) handleICECandidate(c *webrtc.ICECandidateInit) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return
	}

	// Well-formed candidates are forwarded; anything else becomes the null
	// end-of-candidates marker.
	if c != nil && (c.SDPMid == nil || c.SDPMLineIndex == nil) {
		c = nil
	}
	go m.sig.SendCandidate(context.Background(), c)
}

func (m *Machine) handleTrack(track *webrtc.TrackRemote) {
	m.srcReady.Do(func() {
		// The closed re-check lives inside the once: a track that loses the
		// race against Disconnect consumes the slot but stays silent.
		m.mu.Lock()
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return
		}

		m.log.Info().Str("kind", track.Kind().String()).Msg("source ready")
		if m.cb.OnSrcObjectReady != nil {
			m.cb.OnSrcObjectReady(track)
		}
	})
}

func (m *Machine) emitState(s State) {
	if m.cb.OnConnectionState != nil {
		m.cb.OnConnectionState(s)
	}
}

// emitStateIfOpen re-checks teardown right before invoking the callback so
// a late timer or control event cannot report after Disconnect's terminal
// New.
func (m *Machine) emitStateIfOpen(s State) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if !closed {
		m.emitState(s)
	}
}

func (m *Machine) emitVideo(v VideoState, report []LossSample) {
	if m.cb.OnVideoState != nil {
		m.cb.OnVideoState(v, report)
	}
}

func (m *Machine) emitVideoIfOpen(v VideoState, report []LossSample) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if !closed {
		m.emitVideo(v, report)
	}
}
