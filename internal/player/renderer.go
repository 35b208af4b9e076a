package player

import (
	"log/slog"
	"time"

	"github.com/anhelo/anhelo/internal/media"
)

// Renderer displays a decoded frame. Render is called from the session
// goroutine at the paced frame rate; the frame is only valid for the
// duration of the call.
type Renderer interface {
	Render(frame *media.Frame) error
}

// LogRenderer is a headless renderer that periodically logs frame
// dimensions instead of displaying pixels. Used when no video output is
// attached.
type LogRenderer struct {
	log      *slog.Logger
	every    time.Duration
	lastLog  time.Time
	rendered uint64
}

// NewLogRenderer creates a renderer that logs at most once per interval.
// A zero interval defaults to 2 seconds.
func NewLogRenderer(log *slog.Logger, interval time.Duration) *LogRenderer {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &LogRenderer{log: log.With("component", "render"), every: interval}
}

func (r *LogRenderer) Render(frame *media.Frame) error {
	r.rendered++
	if now := time.Now(); now.Sub(r.lastLog) >= r.every {
		r.lastLog = now
		r.log.Info("rendering",
			"width", frame.Width,
			"height", frame.Height,
			"frames", r.rendered)
	}
	return nil
}
