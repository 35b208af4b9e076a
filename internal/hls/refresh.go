package hls

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Fetcher supplies raw bytes for playlist and segment URLs. Implementations
// block until the body is read or the context is done; any non-success
// response is reported as an error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Consumer receives each fetched segment exactly once. Returning stop=true
// ends the refresh loop cleanly; returning an error ends it with that error.
type Consumer func(seg Segment, data []byte) (stop bool, err error)

// Refresher polls a media playlist and dispatches newly appearing segments in
// playlist order. Dispatch tracking is keyed on the URI of the last
// dispatched segment, not its index, so a sliding live window that rotates
// between fetches does not cause re-dispatch or gaps. If the remembered URI
// has rotated out of the window entirely, the previous segment count is used
// as the start index.
type Refresher struct {
	fetcher  Fetcher
	log      *slog.Logger
	interval time.Duration

	// OnRefresh, if set, is called once per successfully fetched and parsed
	// playlist, before its segments are dispatched.
	OnRefresh func()

	lastURI   string
	lastCount int
}

// NewRefresher creates a refresh loop polling at the given interval. A zero
// interval defaults to 500ms. If log is nil, slog.Default() is used.
func NewRefresher(fetcher Fetcher, interval time.Duration, log *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if log == nil {
		log = slog.Default()
	}
	return &Refresher{
		fetcher:  fetcher,
		log:      log.With("component", "refresher"),
		interval: interval,
	}
}

// Run fetches playlistURL repeatedly until the consumer signals stop, the
// context is cancelled, or a playlist fetch fails. A playlist fetch failure
// is fatal and returned to the caller; a single segment fetch failure is
// logged and skipped, and the loop continues with the next segment.
func (r *Refresher) Run(ctx context.Context, playlistURL string, consume Consumer) error {
	for {
		data, err := r.fetcher.Fetch(ctx, playlistURL)
		if err != nil {
			return fmt.Errorf("playlist fetch: %w", err)
		}

		pl := Parse(data, playlistURL)
		if pl.Kind == KindMaster {
			return fmt.Errorf("refresh: %q is a master playlist, expected media", playlistURL)
		}
		if r.OnRefresh != nil {
			r.OnRefresh()
		}

		stop, err := r.dispatch(ctx, pl, consume)
		if err != nil || stop {
			return err
		}

		if pl.Ended {
			r.log.Info("playlist ended", "segments", r.lastCount)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.interval):
		}
	}
}

func (r *Refresher) dispatch(ctx context.Context, pl *Playlist, consume Consumer) (bool, error) {
	start := r.startIndex(pl)

	for i := start; i < len(pl.Segments); i++ {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		seg := pl.Segments[i]
		data, err := r.fetcher.Fetch(ctx, seg.URI)
		if err != nil {
			r.log.Warn("segment fetch failed, skipping", "uri", seg.URI, "error", err)
			r.lastURI = seg.URI
			continue
		}

		stop, err := consume(seg, data)
		// Even on stop the segment counts as dispatched.
		r.lastURI = seg.URI
		if err != nil {
			return false, err
		}
		if stop {
			return true, nil
		}
	}

	r.lastCount = len(pl.Segments)
	return false, nil
}

// startIndex locates the first not-yet-dispatched segment in a freshly
// fetched playlist.
func (r *Refresher) startIndex(pl *Playlist) int {
	if r.lastURI != "" {
		for i, seg := range pl.Segments {
			if seg.URI == r.lastURI {
				return i + 1
			}
		}
	}
	if r.lastCount > len(pl.Segments) {
		return len(pl.Segments)
	}
	return r.lastCount
}
