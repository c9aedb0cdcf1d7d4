package profiler

import (
	"log"
	"runtime"
	"time"
)

// Stats is one reporting interval of frame and memory statistics.
type Stats struct {
	FPS         float64
	Frames      int
	HeapMB      float64
	AllocRateMB float64
	GCCount     uint32
	MaxPauseUs  uint64
	SysMB       float64
}

// Profiler tracks frame rate and memory statistics for the render loop.
// It is driven by frame timestamps rather than the wall clock, so a software backend pumping
// frames at a fixed rate reports that rate.
type Profiler struct {
	frameCount     int
	started        bool
	lastTime       time.Duration
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	logger         *log.Logger
}

// NewProfiler creates a new Profiler reporting at the given interval.
//
// Parameters:
//   - interval: the minimum frame time between reports; values <= 0 default to 1 second
//   - logger: the destination for reports, or nil for the standard logger
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(interval time.Duration, logger *log.Logger) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Profiler{
		updateInterval: interval,
		logger:         logger,
	}
}

// Tick should be called once per frame with the frame timestamp.
// Logs performance statistics when the update interval has elapsed since the last report.
//
// Parameters:
//   - now: the timestamp the frame was scheduled with
//
// Returns:
//   - Stats: the statistics of the interval that just closed
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(now time.Duration) (Stats, bool) {
	if !p.started {
		p.started = true
		p.lastTime = now
		runtime.ReadMemStats(&p.memStats)
		p.lastGCCount = p.memStats.NumGC
		p.lastTotalAlloc = p.memStats.TotalAlloc
		return Stats{}, false
	}
	p.frameCount++
	elapsed := now - p.lastTime
	if elapsed < p.updateInterval {
		return Stats{}, false
	}

	runtime.ReadMemStats(&p.memStats)
	// TotalAlloc only grows, so its delta over the interval is the allocation churn.
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	stats := Stats{
		FPS:         float64(p.frameCount) / elapsed.Seconds(),
		Frames:      p.frameCount,
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB: float64(allocDelta) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:     p.memStats.NumGC,
		SysMB:       float64(p.memStats.Sys) / 1024 / 1024,
	}

	// PauseNs is a circular buffer of the last 256 GC pauses
	startIdx := p.lastGCCount
	if stats.GCCount-startIdx > 256 {
		startIdx = stats.GCCount - 256
	}
	for i := startIdx; i < stats.GCCount; i++ {
		stats.MaxPauseUs = max(stats.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
	}

	p.logger.Printf("[Profiler] FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (max: %d µs) | Sys: %.2f MB",
		stats.FPS, stats.HeapMB, stats.AllocRateMB, stats.GCCount, stats.MaxPauseUs, stats.SysMB)

	p.frameCount = 0
	p.lastTime = now
	p.lastGCCount = stats.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return stats, true
}
