package rtc

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultStatsInterval is the fixed sampling cadence.
	DefaultStatsInterval = 500 * time.Millisecond
	// lossReportSize bounds the packet-loss summary emitted on a stop edge.
	lossReportSize = 5
)

// StatsSource is where the monitor samples inbound video counters from.
type StatsSource interface {
	InboundVideoStats() (StatsSnapshot, bool)
}

// Monitor derives the playback state heuristically from inbound byte-counter
// deltas. It is best-effort by design: statistics anomalies surface at worst
// as a spurious or missed edge, never as an error.
type Monitor struct {
	log      zerolog.Logger
	interval time.Duration
	emit     func(VideoState, []LossSample)

	mu      sync.Mutex
	stop    chan struct{} // nil while not polling
	closed  bool
	window  []StatsSnapshot
	prev    StatsSnapshot
	hasPrev bool
	playing bool
}

func NewMonitor(interval time.Duration, emit func(VideoState, []LossSample), log zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultStatsInterval
	}
	return &Monitor{
		log:      log.With().Str("module", "rtc.monitor").Logger(),
		interval: interval,
		emit:     emit,
	}
}

// Start begins polling src on the fixed cadence. No-op when already running
// or after Close.
func (m *Monitor) Start(src StatsSource) {
	m.mu.Lock()
	if m.closed || m.stop != nil {
		m.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	m.stop = stop
	m.mu.Unlock()

	m.log.Debug().Dur("interval", m.interval).Msg("stats polling started")
	go m.run(src, stop)
}

// Stop cancels polling and resets the segment state, so a later Start
// observes a fresh window instead of resuming mid-playback. Idempotent;
// emits nothing.
func (m *Monitor) Stop() {
	m.mu.Lock()
	m.stopLocked()
	m.mu.Unlock()
}

// Close stops polling for good; every later Start is a no-op. Teardown
// calls Close so a racing connect confirmation cannot revive the poller.
func (m *Monitor) Close() {
	m.mu.Lock()
	m.closed = true
	m.stopLocked()
	m.mu.Unlock()
}

func (m *Monitor) stopLocked() {
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
	m.window = nil
	m.hasPrev = false
	m.playing = false
}

func (m *Monitor) run(src StatsSource, stop chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if s, ok := src.InboundVideoStats(); ok {
				m.step(s)
			}
		}
	}
}

// step folds one snapshot into the play/pause window. The window only
// accumulates during a playing segment, so memory stays bounded while the
// stream idles.
func (m *Monitor) step(s StatsSnapshot) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}

	if !m.hasPrev {
		m.prev = s
		m.hasPrev = true
		m.mu.Unlock()
		return
	}

	playing := s.BytesReceived > m.prev.BytesReceived
	m.prev = s

	var (
		edge   VideoState
		report []LossSample
		fire   bool
	)
	switch {
	case playing && !m.playing:
		m.playing = true
		m.window = append(m.window[:0], s)
		edge, fire = VideoStart, true
	case !playing && m.playing:
		m.playing = false
		m.window = append(m.window, s)
		report = lossReport(m.window)
		m.window = nil
		edge, fire = VideoStop, true
	case playing:
		m.window = append(m.window, s)
	}
	m.mu.Unlock()

	if fire && m.emit != nil {
		m.log.Debug().Str("video_state", edge.String()).Int("loss_samples", len(report)).Msg("playback edge")
		m.emit(edge, report)
	}
}

// lossReport summarizes a playback window as the top packet-loss deltas
// between consecutive samples, worst first.
func lossReport(window []StatsSnapshot) []LossSample {
	if len(window) < 2 {
		return nil
	}
	out := make([]LossSample, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		out = append(out, LossSample{
			At:          window[i].At,
			PacketsLost: window[i].PacketsLost - window[i-1].PacketsLost,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PacketsLost > out[j].PacketsLost })
	if len(out) > lossReportSize {
		out = out[:lossReportSize]
	}
	return out
}
