package player

import (
	"testing"
	"time"
)

// fakeClock drives the pacer without real sleeping.
type fakeClock struct {
	t      time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
}

func newTestPacer(frameDuration time.Duration, skipAmount int) (*Pacer, *fakeClock) {
	p := NewPacer(frameDuration, skipAmount)
	c := newFakeClock()
	p.now = c.now
	p.sleep = c.sleep
	return p, c
}

func TestPacer_SkipPattern(t *testing.T) {
	t.Parallel()
	p, _ := newTestPacer(33*time.Millisecond, 3)

	var pattern []bool
	for i := 0; i < 8; i++ {
		pattern = append(pattern, p.OnFrame())
	}

	want := []bool{true, false, false, false, true, false, false, false}
	for i := range want {
		if pattern[i] != want[i] {
			t.Fatalf("pattern = %v, want %v", pattern, want)
		}
	}

	displayed, dropped := p.Stats()
	if displayed != 2 || dropped != 6 {
		t.Errorf("stats = %d displayed / %d dropped, want 2/6", displayed, dropped)
	}
}

func TestPacer_NoSkip(t *testing.T) {
	t.Parallel()
	p, _ := newTestPacer(33*time.Millisecond, 0)

	for i := 0; i < 5; i++ {
		if !p.OnFrame() {
			t.Fatalf("frame %d dropped with skip amount 0", i)
		}
	}
	displayed, dropped := p.Stats()
	if displayed != 5 || dropped != 0 {
		t.Errorf("stats = %d/%d, want 5/0", displayed, dropped)
	}
}

func TestPacer_SleepsRemainderOfInterval(t *testing.T) {
	t.Parallel()
	p, c := newTestPacer(30*time.Millisecond, 0)

	p.OnFrame() // first frame renders immediately, anchors the timeline
	if len(c.sleeps) != 0 {
		t.Fatalf("first frame slept %v", c.sleeps)
	}

	c.t = c.t.Add(10 * time.Millisecond) // decode took 10ms
	p.OnFrame()
	if len(c.sleeps) != 1 || c.sleeps[0] != 20*time.Millisecond {
		t.Errorf("sleeps = %v, want [20ms]", c.sleeps)
	}
}

func TestPacer_NoSleepWhenBehindSchedule(t *testing.T) {
	t.Parallel()
	p, c := newTestPacer(30*time.Millisecond, 0)

	p.OnFrame()
	c.t = c.t.Add(45 * time.Millisecond) // slower than real time
	p.OnFrame()
	if len(c.sleeps) != 0 {
		t.Errorf("slept %v while behind schedule", c.sleeps)
	}
}

func TestPacer_SleepClamped(t *testing.T) {
	t.Parallel()
	p, c := newTestPacer(200*time.Millisecond, 0)

	p.OnFrame()
	c.t = c.t.Add(time.Millisecond)
	p.OnFrame()
	if len(c.sleeps) != 1 || c.sleeps[0] != maxPacingSleep {
		t.Errorf("sleeps = %v, want [%v]", c.sleeps, maxPacingSleep)
	}
}

func TestPacer_TinyRemainderSkipsSleep(t *testing.T) {
	t.Parallel()
	p, c := newTestPacer(30*time.Millisecond, 0)

	p.OnFrame()
	c.t = c.t.Add(30*time.Millisecond - 100*time.Microsecond)
	p.OnFrame()
	if len(c.sleeps) != 0 {
		t.Errorf("slept %v for a sub-millisecond remainder", c.sleeps)
	}
}

func TestPacer_DroppedFramesDoNotAdvanceTimeline(t *testing.T) {
	t.Parallel()
	p, c := newTestPacer(30*time.Millisecond, 1)

	p.OnFrame()                         // rendered, anchors timeline
	c.t = c.t.Add(5 * time.Millisecond) // fast decode
	p.OnFrame()                         // dropped
	c.t = c.t.Add(5 * time.Millisecond)

	// Next rendered frame measures elapsed from the *rendered* frame (10ms
	// ago), not the dropped one, so it sleeps the remaining 20ms.
	p.OnFrame()
	if len(c.sleeps) != 1 || c.sleeps[0] != 20*time.Millisecond {
		t.Errorf("sleeps = %v, want [20ms]", c.sleeps)
	}
}

func TestPacer_DropRate(t *testing.T) {
	t.Parallel()
	p, _ := newTestPacer(33*time.Millisecond, 3)

	if p.DropRate() != 0 {
		t.Errorf("initial drop rate = %f, want 0", p.DropRate())
	}
	for i := 0; i < 8; i++ {
		p.OnFrame()
	}
	if got := p.DropRate(); got != 0.75 {
		t.Errorf("drop rate = %f, want 0.75", got)
	}
}
