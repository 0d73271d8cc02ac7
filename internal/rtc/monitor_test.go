package rtc

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type videoEdge struct {
	state  VideoState
	report []LossSample
}

type edgeRecorder struct {
	mu    sync.Mutex
	edges []videoEdge
}

func (r *edgeRecorder) emit(s VideoState, report []LossSample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges = append(r.edges, videoEdge{state: s, report: report})
}

func (r *edgeRecorder) snapshot() []videoEdge {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]videoEdge(nil), r.edges...)
}

func feed(m *Monitor, bytes []uint64, lost []int64) {
	base := time.Now()
	for i, b := range bytes {
		s := StatsSnapshot{At: base.Add(time.Duration(i) * DefaultStatsInterval), BytesReceived: b}
		if lost != nil {
			s.PacketsLost = lost[i]
		}
		m.step(s)
	}
}

func TestMonitorSingleStartAndStopEdge(t *testing.T) {
	rec := &edgeRecorder{}
	m := NewMonitor(DefaultStatsInterval, rec.emit, zerolog.Nop())

	feed(m, []uint64{0, 0, 100, 200, 200, 200}, nil)

	edges := rec.snapshot()
	require.Len(t, edges, 2, "exactly one Start and one Stop")
	assert.Equal(t, VideoStart, edges[0].state)
	assert.Empty(t, edges[0].report)
	assert.Equal(t, VideoStop, edges[1].state)
	// summary covers the deltas between the samples of the playing window
	assert.Len(t, edges[1].report, 2)
}

func TestMonitorSteadyStatesEmitNothing(t *testing.T) {
	rec := &edgeRecorder{}
	m := NewMonitor(DefaultStatsInterval, rec.emit, zerolog.Nop())

	feed(m, []uint64{0, 0, 0, 0}, nil)
	assert.Empty(t, rec.snapshot())

	feed(m, []uint64{100, 200, 300, 400}, nil)
	edges := rec.snapshot()
	require.Len(t, edges, 1)
	assert.Equal(t, VideoStart, edges[0].state)
}

func TestMonitorLossReportTopFiveDescending(t *testing.T) {
	rec := &edgeRecorder{}
	m := NewMonitor(DefaultStatsInterval, rec.emit, zerolog.Nop())

	// 9 samples: one silent lead-in, seven playing, one flat tail.
	bytes := []uint64{0, 10, 20, 30, 40, 50, 60, 70, 70}
	lost := []int64{0, 0, 5, 6, 15, 17, 24, 27, 27}
	feed(m, bytes, lost)

	edges := rec.snapshot()
	require.Len(t, edges, 2)
	report := edges[1].report
	require.Len(t, report, lossReportSize)

	got := make([]int64, len(report))
	for i, s := range report {
		got[i] = s.PacketsLost
	}
	// window deltas are [5 1 9 2 7 3 0]; top five, worst first
	assert.Equal(t, []int64{9, 7, 5, 3, 2}, got)
}

func TestMonitorRestartsWindowPerSegment(t *testing.T) {
	rec := &edgeRecorder{}
	m := NewMonitor(DefaultStatsInterval, rec.emit, zerolog.Nop())

	feed(m, []uint64{0, 100, 100, 200, 300, 300}, nil)

	edges := rec.snapshot()
	require.Len(t, edges, 4) // start, stop, start, stop
	assert.Equal(t, VideoStart, edges[0].state)
	assert.Equal(t, VideoStop, edges[1].state)
	assert.Equal(t, VideoStart, edges[2].state)
	assert.Equal(t, VideoStop, edges[3].state)
	// the second window must not include samples from the first
	assert.Len(t, edges[3].report, 2)
}

func TestMonitorStopResetsSegmentState(t *testing.T) {
	rec := &edgeRecorder{}
	m := NewMonitor(DefaultStatsInterval, rec.emit, zerolog.Nop())

	feed(m, []uint64{0, 100, 200}, nil)
	m.Stop()
	feed(m, []uint64{300, 400, 400}, nil)

	edges := rec.snapshot()
	require.Len(t, edges, 3)
	assert.Equal(t, VideoStart, edges[0].state)
	assert.Equal(t, VideoStart, edges[1].state, "restart must begin a fresh segment, not resume mid-playback")
	assert.Equal(t, VideoStop, edges[2].state)
	// the new window must not fold in samples observed before the reset
	assert.Len(t, edges[2].report, 1)
}

type countingSource struct {
	bytes atomic.Uint64
	polls atomic.Int32
}

func (s *countingSource) InboundVideoStats() (StatsSnapshot, bool) {
	s.polls.Add(1)
	return StatsSnapshot{At: time.Now(), BytesReceived: s.bytes.Add(1000)}, true
}

func TestMonitorLifecycle(t *testing.T) {
	rec := &edgeRecorder{}
	m := NewMonitor(5*time.Millisecond, rec.emit, zerolog.Nop())
	src := &countingSource{}

	m.Start(src)
	m.Start(src) // second Start is a no-op

	require.Eventually(t, func() bool {
		return src.polls.Load() >= 3
	}, time.Second, time.Millisecond, "poller should sample on its cadence")

	m.Stop()
	m.Stop() // idempotent

	polled := src.polls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, src.polls.Load(), polled+1, "no sampling after Stop")

	// growing byte counter means a single Start edge and no Stop
	edges := rec.snapshot()
	require.NotEmpty(t, edges)
	assert.Equal(t, VideoStart, edges[0].state)
}

func TestMonitorCloseIsTerminal(t *testing.T) {
	rec := &edgeRecorder{}
	m := NewMonitor(5*time.Millisecond, rec.emit, zerolog.Nop())
	src := &countingSource{}

	m.Close()
	m.Start(src)

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, src.polls.Load(), "closed monitor must never poll")

	// straggler samples after Close fold into nothing
	m.step(StatsSnapshot{At: time.Now(), BytesReceived: 1000})
	m.step(StatsSnapshot{At: time.Now(), BytesReceived: 2000})
	assert.Empty(t, rec.snapshot())
}
