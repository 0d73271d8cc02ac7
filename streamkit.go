// Package streamkit establishes and supervises one real-time audio/video
// streaming session against a remote avatar-rendering backend. Signaling
// runs over the backend's HTTP API; media flows over a peer-to-peer
// connection the host media engine provides.
//
// Example:
//
//	mgr, err := streamkit.Create(ctx, streamkit.Options{
//	    BaseURL: "https://api.example.com",
//	    AgentID: "agt_1",
//	    Auth:    streamkit.ClientKey(key),
//	    Stream:  streamkit.StreamOptions{Kind: streamkit.KindTalk, SourceURL: imageURL},
//	    Callbacks: streamkit.Callbacks{
//	        OnConnectionStateChange: func(s streamkit.ConnectionState) { log.Println(s) },
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Disconnect()
//
//	_, err = mgr.Speak(ctx, streamkit.Text("hello"))
//
// One manager owns exactly one session. Setup is fail-fast with no partial
// retry: on error, discard the manager and create a new one.
package streamkit

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/vireo-ai/streamkit/internal/rtc"
	"github.com/vireo-ai/streamkit/internal/signaling"
	"github.com/vireo-ai/streamkit/internal/transport"
)

// Manager is the caller-facing surface of one streaming session. It
// exclusively owns the peer connection, the session and every timer; all of
// them are released together by Disconnect.
type Manager struct {
	log     zerolog.Logger
	sess    *signaling.Session
	machine *rtc.Machine
}

// Create negotiates a remote session and connects the peer transport. Any
// setup failure is returned here, before a single user callback has fired.
func Create(ctx context.Context, opts Options) (*Manager, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if opts.AgentID == "" {
		return nil, errors.New("agent id is required")
	}

	logger := resolveLogger(opts)

	retry := transport.DefaultRetryPolicy()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	api, err := transport.NewClient(transport.Config{
		BaseURL:   opts.BaseURL,
		Auth:      opts.Auth,
		Retry:     retry,
		OnFailure: opts.OnAPIFailure,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	neg := signaling.NewNegotiator(api, opts.AgentID, logger)
	sess, err := neg.CreateStream(ctx, opts.Stream)
	if err != nil {
		return nil, err
	}

	engine := opts.Engine
	if engine == nil {
		engine, err = rtc.NewEngine(logger)
		if err != nil {
			return nil, err
		}
	}

	machine := rtc.NewMachine(rtc.MachineConfig{
		Engine:        engine,
		Signaler:      sess,
		Analytics:     opts.Analytics,
		Logger:        logger,
		ConfirmDelay:  opts.confirmDelay,
		StatsInterval: opts.statsInterval,
		Callbacks: rtc.Callbacks{
			OnConnectionState: opts.Callbacks.OnConnectionStateChange,
			OnVideoState:      opts.Callbacks.OnVideoStateChange,
			OnSrcObjectReady:  opts.Callbacks.OnSrcObjectReady,
		},
	})

	if err := machine.Start(ctx, sess.Offer, sess.ICEServers); err != nil {
		// The remote session exists; release it best-effort before
		// handing the failure back.
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := sess.Close(closeCtx); cerr != nil {
			logger.Debug().Err(cerr).Msg("remote session not released after failed setup")
		}
		return nil, err
	}

	logger.Info().Str("stream_id", sess.StreamID).Msg("session established")
	return &Manager{
		log:     logger.With().Str("module", "manager").Logger(),
		sess:    sess,
		machine: machine,
	}, nil
}

func resolveLogger(opts Options) zerolog.Logger {
	if opts.Logger != nil {
		return *opts.Logger
	}
	if opts.Debug {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Logger()
	}
	return zerolog.Nop()
}

// Speak forwards a payload to the live stream. Valid only after Create has
// returned successfully and before Disconnect.
func (m *Manager) Speak(ctx context.Context, payload any) (json.RawMessage, error) {
	return m.machine.Speak(ctx, payload)
}

// Disconnect tears the session down: timers, statistics polling, inbound
// media and the peer connection, then notifies the remote side best-effort.
// Idempotent and always safe to call, in any state.
func (m *Manager) Disconnect() {
	m.machine.Disconnect()
}

// State returns the current connection state.
func (m *Manager) State() ConnectionState {
	return m.machine.State()
}

func (m *Manager) StreamID() string { return m.sess.StreamID }

func (m *Manager) SessionID() string { return m.sess.SessionID }

// SessionTimeout is the idle budget the backend reported at creation,
// zero when it reported none. Informational only.
func (m *Manager) SessionTimeout() time.Duration { return m.sess.SessionTimeout }
