package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for one driver frame.
const (
	PhaseTimers    = "timers"
	PhaseIterate   = "iterate"
	PhaseTelemetry = "telemetry"
	PhaseObserve   = "observe"
)

var framePhases = []string{PhaseTimers, PhaseIterate, PhaseTelemetry, PhaseObserve}

// PerfSample holds timing data for a single frame.
type PerfSample struct {
	FrameDuration time.Duration
	Phases        map[string]time.Duration
}

// PerfCollector tracks frame timings over a rolling window.
type PerfCollector struct {
	windowSize  int
	samples     []PerfSample
	writeIndex  int
	sampleCount int

	current    map[string]time.Duration
	frameStart time.Time
	phaseStart time.Time
	lastPhase  string

	now func() time.Time
}

// NewPerfCollector creates a collector averaging over windowSize frames.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize: windowSize,
		samples:    make([]PerfSample, windowSize),
		current:    make(map[string]time.Duration),
		now:        time.Now,
	}
}

// StartFrame begins timing a frame.
func (p *PerfCollector) StartFrame() {
	p.frameStart = p.now()
	p.current = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase ends the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := p.now()
	if p.lastPhase != "" {
		p.current[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndFrame finishes the frame and records its sample.
func (p *PerfCollector) EndFrame() {
	now := p.now()
	if p.lastPhase != "" {
		p.current[p.lastPhase] += now.Sub(p.phaseStart)
		p.lastPhase = ""
	}

	p.samples[p.writeIndex] = PerfSample{
		FrameDuration: now.Sub(p.frameStart),
		Phases:        p.current,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// Full reports whether a whole window has been recorded since the last
// Reset.
func (p *PerfCollector) Full() bool {
	return p.sampleCount == p.windowSize
}

// Reset discards recorded samples.
func (p *PerfCollector) Reset() {
	p.sampleCount = 0
	p.writeIndex = 0
}

// PerfStats holds aggregated frame timings.
type PerfStats struct {
	AvgFrame time.Duration
	MinFrame time.Duration
	MaxFrame time.Duration

	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64 // Share of the average frame

	FramesPerSecond float64
}

// Stats aggregates the current window.
func (p *PerfCollector) Stats() PerfStats {
	stats := PerfStats{
		PhaseAvg: make(map[string]time.Duration),
		PhasePct: make(map[string]float64),
	}
	if p.sampleCount == 0 {
		return stats
	}

	var total time.Duration
	phaseSum := make(map[string]time.Duration)
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.FrameDuration
		if i == 0 || s.FrameDuration < stats.MinFrame {
			stats.MinFrame = s.FrameDuration
		}
		if s.FrameDuration > stats.MaxFrame {
			stats.MaxFrame = s.FrameDuration
		}
		for phase, d := range s.Phases {
			phaseSum[phase] += d
		}
	}

	stats.AvgFrame = total / time.Duration(p.sampleCount)
	for phase, sum := range phaseSum {
		avg := sum / time.Duration(p.sampleCount)
		stats.PhaseAvg[phase] = avg
		if stats.AvgFrame > 0 {
			stats.PhasePct[phase] = float64(avg) / float64(stats.AvgFrame) * 100
		}
	}
	if stats.AvgFrame > 0 {
		stats.FramesPerSecond = float64(time.Second) / float64(stats.AvgFrame)
	}
	return stats
}

// LogStats logs the performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_frame_us", s.AvgFrame.Microseconds(),
		"min_frame_us", s.MinFrame.Microseconds(),
		"max_frame_us", s.MaxFrame.Microseconds(),
		"frames_per_sec", int(s.FramesPerSecond),
	}
	for _, phase := range framePhases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", float64(int(pct*10))/10)
		}
	}
	slog.Info("perf", attrs...)
}

// PerfStatsCSV is the flat CSV form of PerfStats.
type PerfStatsCSV struct {
	Frame        int64   `csv:"frame"`
	AvgFrameUS   int64   `csv:"avg_frame_us"`
	MinFrameUS   int64   `csv:"min_frame_us"`
	MaxFrameUS   int64   `csv:"max_frame_us"`
	FramesPerSec float64 `csv:"frames_per_sec"`
	TimersPct    float64 `csv:"timers_pct"`
	IteratePct   float64 `csv:"iterate_pct"`
	TelemetryPct float64 `csv:"telemetry_pct"`
	ObservePct   float64 `csv:"observe_pct"`
}

// ToCSV converts the stats recorded up to frame.
func (s PerfStats) ToCSV(frame int64) PerfStatsCSV {
	return PerfStatsCSV{
		Frame:        frame,
		AvgFrameUS:   s.AvgFrame.Microseconds(),
		MinFrameUS:   s.MinFrame.Microseconds(),
		MaxFrameUS:   s.MaxFrame.Microseconds(),
		FramesPerSec: s.FramesPerSecond,
		TimersPct:    s.PhasePct[PhaseTimers],
		IteratePct:   s.PhasePct[PhaseIterate],
		TelemetryPct: s.PhasePct[PhaseTelemetry],
		ObservePct:   s.PhasePct[PhaseObserve],
	}
}
