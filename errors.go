package streamkit

import (
	"github.com/vireo-ai/streamkit/internal/rtc"
	"github.com/vireo-ai/streamkit/internal/signaling"
	"github.com/vireo-ai/streamkit/internal/transport"
)

var (
	// ErrMissingSessionID means the backend's stream-creation response
	// carried no session id; setup aborts before any peer connection is
	// built.
	ErrMissingSessionID = signaling.ErrMissingSessionID

	// ErrNotReady is returned by Speak before setup completes or after
	// Disconnect.
	ErrNotReady = rtc.ErrNotReady
)

// StatusError is a signaling response that survived the retry policy with a
// non-2xx status.
type StatusError = transport.StatusError
