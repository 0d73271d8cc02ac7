// Package signaling negotiates the remote avatar session over the
// {host}/agents/{agentId} HTTP surface: stream creation, SDP answer
// acknowledgment, trickled ICE candidates, speak payloads and teardown.
package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/vireo-ai/streamkit/internal/transport"
)

// ErrMissingSessionID aborts setup before any peer connection exists.
var ErrMissingSessionID = errors.New("create stream response missing session_id")

type Negotiator struct {
	api     *transport.Client
	agentID string
	log     zerolog.Logger
}

func NewNegotiator(api *transport.Client, agentID string, log zerolog.Logger) *Negotiator {
	return &Negotiator{
		api:     api,
		agentID: agentID,
		log:     log.With().Str("module", "signaling").Logger(),
	}
}

func (n *Negotiator) streamsPath() string {
	return fmt.Sprintf("/agents/%s/streams", n.agentID)
}

// CreateStream asks the backend for a new stream and returns the bound
// session. A response without a session id is a hard setup failure.
func (n *Negotiator) CreateStream(ctx context.Context, opts CreateStreamOptions) (*Session, error) {
	req := createStreamRequest{
		StreamWarmup:      opts.Warmup,
		CompatibilityMode: opts.CompatibilityMode,
	}
	switch opts.Kind {
	case KindClip:
		req.PresenterID = opts.PresenterID
		req.DriverID = opts.DriverID
	default:
		req.SourceURL = opts.SourceURL
	}

	var resp createStreamResponse
	if err := n.api.Do(ctx, http.MethodPost, n.streamsPath(), req, &resp); err != nil {
		return nil, fmt.Errorf("create stream: %w", err)
	}
	if resp.SessionID == "" {
		return nil, ErrMissingSessionID
	}

	n.log.Info().Str("stream_id", resp.ID).Msg("stream created")
	return &Session{
		neg:            n,
		StreamID:       resp.ID,
		SessionID:      resp.SessionID,
		Offer:          resp.Offer,
		ICEServers:     resp.ICEServers,
		SessionTimeout: time.Duration(resp.SessionTimeout) * time.Second,
	}, nil
}

// Session is the negotiated remote session. Immutable once created; the
// session id is threaded into every follow-up call transparently.
type Session struct {
	neg *Negotiator

	StreamID       string
	SessionID      string
	Offer          webrtc.SessionDescription
	ICEServers     []webrtc.ICEServer
	SessionTimeout time.Duration // informational idle budget reported by the backend
}

func (s *Session) path() string {
	return s.neg.streamsPath() + "/" + s.StreamID
}

// AckAnswer posts the local SDP answer. Part of the setup critical path.
func (s *Session) AckAnswer(ctx context.Context, answer webrtc.SessionDescription) error {
	var resp statusResponse
	if err := s.neg.api.Do(ctx, http.MethodPost, s.path()+"/sdp", sdpRequest{
		SessionID: s.SessionID,
		Answer:    answer,
	}, &resp); err != nil {
		return fmt.Errorf("ack answer: %w", err)
	}
	return nil
}

// SendCandidate trickles one ICE candidate, or the null end-of-candidates
// marker when c is nil. Fire-and-forget: failures are logged, never returned,
// and never reach the failure hook.
func (s *Session) SendCandidate(ctx context.Context, c *webrtc.ICECandidateInit) {
	req := iceRequest{SessionID: s.SessionID}
	if c != nil {
		req.Candidate = &c.Candidate
		req.SDPMid = c.SDPMid
		req.SDPMLineIndex = c.SDPMLineIndex
	}

	if err := s.neg.api.Do(ctx, http.MethodPost, s.path()+"/ice", req, nil, transport.SkipFailureHook()); err != nil {
		s.neg.log.Debug().Err(err).Str("stream_id", s.StreamID).Msg("ice candidate not delivered")
	}
}

// SendPayload forwards a speak payload with the session id merged in and
// returns the raw response for the caller to interpret.
func (s *Session) SendPayload(ctx context.Context, payload any) (json.RawMessage, error) {
	body := map[string]any{}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, fmt.Errorf("payload must be a JSON object: %w", err)
		}
	}
	body["session_id"] = s.SessionID

	var out json.RawMessage
	if err := s.neg.api.Do(ctx, http.MethodPost, s.path(), body, &out); err != nil {
		return nil, fmt.Errorf("send payload: %w", err)
	}
	return out, nil
}

// Close notifies the backend the stream is done. Best-effort: the caller
// tears down locally regardless of the outcome.
func (s *Session) Close(ctx context.Context) error {
	if err := s.neg.api.Do(ctx, http.MethodDelete, s.path(), closeStreamRequest{
		SessionID: s.SessionID,
	}, nil, transport.SkipFailureHook()); err != nil {
		return fmt.Errorf("close stream: %w", err)
	}
	return nil
}
