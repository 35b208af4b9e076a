package player

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/anhelo/anhelo/internal/h264"
	"github.com/anhelo/anhelo/internal/hls"
	"github.com/anhelo/anhelo/internal/metrics"
	"github.com/anhelo/anhelo/internal/mpegts"
)

// Config carries everything a Session needs. PlaylistURL and Fetcher are
// required; the rest defaults sensibly when zero.
type Config struct {
	PlaylistURL string
	Fetcher     hls.Fetcher

	// FrameDuration is the target interval between rendered frames.
	// Defaults to DefaultFrameDuration.
	FrameDuration time.Duration
	// SkipAmount is the number of decoded frames dropped after each
	// rendered one.
	SkipAmount int
	// RefreshInterval is the media playlist poll interval. Defaults to
	// 500ms.
	RefreshInterval time.Duration

	Renderer    Renderer
	CaptionSink CaptionSink
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Stats is a point-in-time snapshot of session progress, safe to read from
// other goroutines while the session runs.
type Stats struct {
	SegmentsConsumed uint64 `json:"segments_consumed"`
	SegmentsSkipped  uint64 `json:"segments_skipped"`
	FramesDisplayed  uint64 `json:"frames_displayed"`
	FramesDropped    uint64 `json:"frames_dropped"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
}

// DropRate returns the fraction of decoded frames dropped, in [0, 1].
func (s Stats) DropRate() float64 {
	total := s.FramesDisplayed + s.FramesDropped
	if total == 0 {
		return 0
	}
	return float64(s.FramesDropped) / float64(total)
}

// Session owns one playback run: playlist acquisition, the refresh loop,
// demultiplexing, decode, and pacing. All pipeline state lives here; two
// sessions never share decoder or buffer state. Run drives everything on
// the calling goroutine.
type Session struct {
	cfg      Config
	log      *slog.Logger
	demux    *mpegts.Demuxer
	decoder  *h264.Decoder
	pacer    *Pacer
	captions *captionBridge

	segmentsConsumed atomic.Uint64
	segmentsSkipped  atomic.Uint64
	framesDisplayed  atomic.Uint64
	framesDropped    atomic.Uint64
	width            atomic.Int64
	height           atomic.Int64
}

// NewSession validates cfg and builds a session.
func NewSession(cfg Config) (*Session, error) {
	if cfg.PlaylistURL == "" {
		return nil, fmt.Errorf("session: playlist URL required")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("session: fetcher required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Session{
		cfg:     cfg,
		log:     log.With("component", "session"),
		demux:   mpegts.NewDemuxer(log),
		decoder: h264.NewDecoder(log),
		pacer:   NewPacer(cfg.FrameDuration, cfg.SkipAmount),
	}
	if cfg.Renderer == nil {
		s.cfg.Renderer = NewLogRenderer(log, 0)
	}
	if cfg.CaptionSink != nil {
		s.captions = newCaptionBridge(cfg.CaptionSink)
	}
	return s, nil
}

// Run plays the stream until the playlist ends, the context is cancelled,
// or a fatal error occurs. If PlaylistURL points at a master playlist, the
// lowest-resolution variant is selected and played.
func (s *Session) Run(ctx context.Context) error {
	mediaURL, err := s.resolveMediaPlaylist(ctx)
	if err != nil {
		return err
	}

	refresher := hls.NewRefresher(s.cfg.Fetcher, s.cfg.RefreshInterval, s.log)
	if s.cfg.Metrics != nil {
		refresher.OnRefresh = s.cfg.Metrics.IncRefreshes
	}

	err = refresher.Run(ctx, mediaURL, func(seg hls.Segment, data []byte) (bool, error) {
		return s.consumeSegment(ctx, seg, data)
	})
	if err != nil {
		return err
	}

	displayed, dropped := s.pacer.Stats()
	s.log.Info("playback finished", "displayed", displayed, "dropped", dropped)
	return nil
}

// Snapshot returns the current session counters.
func (s *Session) Snapshot() Stats {
	return Stats{
		SegmentsConsumed: s.segmentsConsumed.Load(),
		SegmentsSkipped:  s.segmentsSkipped.Load(),
		FramesDisplayed:  s.framesDisplayed.Load(),
		FramesDropped:    s.framesDropped.Load(),
		Width:            int(s.width.Load()),
		Height:           int(s.height.Load()),
	}
}

// resolveMediaPlaylist fetches the configured playlist and, if it is a
// master playlist, selects a variant to play.
func (s *Session) resolveMediaPlaylist(ctx context.Context) (string, error) {
	data, err := s.cfg.Fetcher.Fetch(ctx, s.cfg.PlaylistURL)
	if err != nil {
		return "", fmt.Errorf("playlist fetch: %w", err)
	}

	pl := hls.Parse(data, s.cfg.PlaylistURL)
	if pl.Kind != hls.KindMaster {
		return s.cfg.PlaylistURL, nil
	}

	variant, ok := hls.SelectVariant(pl.Variants)
	if !ok {
		return "", fmt.Errorf("master playlist %q has no variants", s.cfg.PlaylistURL)
	}
	s.log.Info("variant selected",
		"uri", variant.URI,
		"bandwidth", variant.Bandwidth,
		"height", variant.Height)
	return variant.URI, nil
}

func (s *Session) consumeSegment(ctx context.Context, seg hls.Segment, data []byte) (bool, error) {
	if seg.KeyURI != "" {
		s.log.Warn("encrypted segment skipped, decryption unsupported", "uri", seg.URI)
		s.segmentsSkipped.Add(1)
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.IncSegmentErrors()
		}
		return false, nil
	}

	if err := s.demux.Demux(data, func(es []byte) error {
		return s.consumeElementaryStream(ctx, es)
	}); err != nil {
		return false, err
	}

	s.segmentsConsumed.Add(1)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.IncSegmentsFetched()
	}
	return false, ctx.Err()
}

// consumeElementaryStream splits one PES payload into NAL units and feeds
// them to the decoder, parameter sets first. Rendered frames pass through
// the pacer; the context is checked after each frame event so cancellation
// takes effect mid-segment.
func (s *Session) consumeElementaryStream(ctx context.Context, es []byte) error {
	units := h264.ExtractNALUnits(es)

	return h264.DispatchParamSetsFirst(units, func(u h264.NALUnit) error {
		if u.Type == h264.NALTypeSEI && s.captions != nil {
			if n := s.captions.onSEI(u.Data); n > 0 && s.cfg.Metrics != nil {
				for i := 0; i < n; i++ {
					s.cfg.Metrics.IncCaptions()
				}
			}
		}

		result, frame := s.decoder.Decode(u)
		switch result {
		case h264.ResultFrameReady:
			s.width.Store(int64(frame.Width))
			s.height.Store(int64(frame.Height))
			if s.pacer.OnFrame() {
				if err := s.cfg.Renderer.Render(frame); err != nil {
					return fmt.Errorf("render: %w", err)
				}
				s.framesDisplayed.Add(1)
				if s.cfg.Metrics != nil {
					s.cfg.Metrics.IncFramesDisplayed()
				}
			} else {
				s.framesDropped.Add(1)
				if s.cfg.Metrics != nil {
					s.cfg.Metrics.IncFramesDropped()
				}
			}
			return ctx.Err()

		case h264.ResultParamSetError:
			s.log.Debug("NAL gated on parameter sets", "type", u.Type)

		case h264.ResultHeadersReady:
			w, h := s.decoder.Dimensions()
			s.width.Store(int64(w))
			s.height.Store(int64(h))
		}
		return nil
	})
}
