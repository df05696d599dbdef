package main

import (
	"fmt"
	"time"

	"github.com/Distortions81/mold-simulation/internal/mold"
)

// frameStats aggregates frame reports and produces a log line once per
// interval.
type frameStats struct {
	interval time.Duration
	now      func() time.Time

	start      time.Time
	frames     int
	dispatches int
	postFrames int
	delta      float64
}

func newFrameStats(interval time.Duration, now func() time.Time) *frameStats {
	if now == nil {
		now = time.Now
	}
	return &frameStats{interval: interval, now: now, start: now()}
}

// observe adds r and returns a summary when the interval has elapsed.
func (s *frameStats) observe(r mold.FrameReport) (string, bool) {
	s.frames++
	s.dispatches += r.Dispatches
	s.delta += float64(r.Measured)
	for _, p := range r.Phases {
		if p == mold.PhasePostProcess {
			s.postFrames++
		}
	}

	t := s.now()
	elapsed := t.Sub(s.start)
	if elapsed < s.interval {
		return "", false
	}
	line := fmt.Sprintf("%d frames in %s (%.1f fps), %d dispatches, %d with post-process, avg frame %.2f ms",
		s.frames, elapsed.Round(time.Millisecond), float64(s.frames)/elapsed.Seconds(),
		s.dispatches, s.postFrames, s.delta/float64(s.frames)*1000)
	*s = frameStats{interval: s.interval, now: s.now, start: t}
	return line, true
}
