// Package player ties the pipeline together: it drives the playlist refresh
// loop, demultiplexes segments into NAL units, feeds the decoder, and paces
// decoded frames against wall-clock time with a fixed-ratio drop policy.
package player

import (
	"time"
)

// Sleep bounds for the pacing delay. Remainders below the floor are not
// worth a syscall; remainders above the ceiling indicate a stalled timeline
// and are capped so the loop stays responsive.
const (
	minPacingSleep = time.Millisecond
	maxPacingSleep = 50 * time.Millisecond
)

// DefaultFrameDuration targets ~30 fps when the stream's frame rate is
// unknown.
const DefaultFrameDuration = 33333 * time.Microsecond

// Pacer decides, for each decoded frame, whether to render it now or drop
// it. The policy is a fixed ratio: after every rendered frame the next
// skipAmount frames are dropped unconditionally. Dropped frames do not
// advance the timeline; the render deadline stays anchored to the last frame
// actually shown, so skipped frames cannot accumulate drift.
//
// Not safe for concurrent use.
type Pacer struct {
	frameDuration time.Duration
	skipAmount    int

	now   func() time.Time
	sleep func(time.Duration)

	lastFrameTime time.Time
	skipRemaining int
	displayed     uint64
	dropped       uint64
}

// NewPacer creates a pacer targeting the given frame duration, dropping
// skipAmount frames after each rendered one. A zero or negative
// frameDuration uses DefaultFrameDuration; a negative skipAmount is treated
// as zero (render every frame).
func NewPacer(frameDuration time.Duration, skipAmount int) *Pacer {
	if frameDuration <= 0 {
		frameDuration = DefaultFrameDuration
	}
	if skipAmount < 0 {
		skipAmount = 0
	}
	return &Pacer{
		frameDuration: frameDuration,
		skipAmount:    skipAmount,
		now:           time.Now,
		sleep:         time.Sleep,
	}
}

// OnFrame consumes one decoded-frame event and reports whether the caller
// should render it. When it returns true, the pacer has already slept off
// any remainder of the frame interval.
func (p *Pacer) OnFrame() bool {
	if p.skipRemaining > 0 {
		p.skipRemaining--
		p.dropped++
		return false
	}

	now := p.now()
	if !p.lastFrameTime.IsZero() {
		if remaining := p.frameDuration - now.Sub(p.lastFrameTime); remaining >= minPacingSleep {
			if remaining > maxPacingSleep {
				remaining = maxPacingSleep
			}
			p.sleep(remaining)
			now = p.now()
		}
	}

	p.lastFrameTime = now
	p.displayed++
	p.skipRemaining = p.skipAmount
	return true
}

// Stats returns the displayed and dropped frame counts so far.
func (p *Pacer) Stats() (displayed, dropped uint64) {
	return p.displayed, p.dropped
}

// DropRate returns the fraction of frames dropped, in [0, 1].
func (p *Pacer) DropRate() float64 {
	total := p.displayed + p.dropped
	if total == 0 {
		return 0
	}
	return float64(p.dropped) / float64(total)
}
