package player

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anhelo/anhelo/internal/media"
)

// mapFetcher serves canned responses by URL.
type mapFetcher struct {
	responses map[string][]byte
}

func (f *mapFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	data, ok := f.responses[url]
	if !ok {
		return nil, fmt.Errorf("no response for %q", url)
	}
	return data, nil
}

type countingRenderer struct {
	frames []string
}

func (r *countingRenderer) Render(f *media.Frame) error {
	r.frames = append(r.frames, fmt.Sprintf("%dx%d", f.Width, f.Height))
	return nil
}

// annexBSegment is a raw elementary stream (no TS wrapping, so the demuxer
// takes its raw-ES fallback path): baseline SPS for 320x240, a PPS, and
// three slices.
func annexBSegment() []byte {
	var seg []byte
	add := func(nal ...byte) {
		seg = append(seg, 0x00, 0x00, 0x01)
		seg = append(seg, nal...)
	}
	add(0x67, 0x42, 0x00, 0x1E, 0xF8, 0x28, 0x3C)
	add(0x68, 0xCE, 0x38, 0x80)
	add(0x65, 0x88, 0x84, 0x00)
	add(0x41, 0x9A, 0x10, 0x00)
	add(0x41, 0x9A, 0x20, 0x00)
	return seg
}

func endedPlaylist(segURIs ...string) []byte {
	pl := "#EXTM3U\n#EXT-X-TARGETDURATION:2\n"
	for _, uri := range segURIs {
		pl += "#EXTINF:2.0,\n" + uri + "\n"
	}
	pl += "#EXT-X-ENDLIST\n"
	return []byte(pl)
}

func TestSession_PlaysMediaPlaylist(t *testing.T) {
	t.Parallel()

	fetcher := &mapFetcher{responses: map[string][]byte{
		"http://cdn.test/live.m3u8": endedPlaylist("seg0.ts"),
		"http://cdn.test/seg0.ts":   annexBSegment(),
	}}
	renderer := &countingRenderer{}

	s, err := NewSession(Config{
		PlaylistURL:   "http://cdn.test/live.m3u8",
		Fetcher:       fetcher,
		FrameDuration: time.Millisecond,
		SkipAmount:    0,
		Renderer:      renderer,
	})
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, []string{"320x240", "320x240", "320x240"}, renderer.frames)

	stats := s.Snapshot()
	assert.Equal(t, uint64(1), stats.SegmentsConsumed)
	assert.Equal(t, uint64(3), stats.FramesDisplayed)
	assert.Equal(t, uint64(0), stats.FramesDropped)
	assert.Equal(t, 320, stats.Width)
	assert.Equal(t, 240, stats.Height)
}

func TestSession_SelectsVariantFromMaster(t *testing.T) {
	t.Parallel()

	master := []byte("#EXTM3U\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=5000000,RESOLUTION=1920x1080\nhigh.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360\nlow.m3u8\n")

	fetcher := &mapFetcher{responses: map[string][]byte{
		"http://cdn.test/master.m3u8": master,
		"http://cdn.test/low.m3u8":    endedPlaylist("seg0.ts"),
		"http://cdn.test/seg0.ts":     annexBSegment(),
	}}
	renderer := &countingRenderer{}

	s, err := NewSession(Config{
		PlaylistURL:   "http://cdn.test/master.m3u8",
		Fetcher:       fetcher,
		FrameDuration: time.Millisecond,
		Renderer:      renderer,
	})
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background()))
	assert.NotEmpty(t, renderer.frames, "low variant should have played")
}

func TestSession_MasterWithoutVariants(t *testing.T) {
	t.Parallel()

	fetcher := &mapFetcher{responses: map[string][]byte{
		"http://cdn.test/master.m3u8": []byte("#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1\n"),
	}}

	s, err := NewSession(Config{
		PlaylistURL: "http://cdn.test/master.m3u8",
		Fetcher:     fetcher,
	})
	require.NoError(t, err)

	err = s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no variants")
}

func TestSession_SkipsEncryptedSegments(t *testing.T) {
	t.Parallel()

	pl := []byte("#EXTM3U\n#EXT-X-TARGETDURATION:2\n" +
		"#EXT-X-KEY:METHOD=AES-128,URI=\"key.bin\"\n" +
		"#EXTINF:2.0,\nenc.ts\n" +
		"#EXT-X-ENDLIST\n")

	fetcher := &mapFetcher{responses: map[string][]byte{
		"http://cdn.test/live.m3u8": pl,
		"http://cdn.test/enc.ts":    annexBSegment(),
	}}
	renderer := &countingRenderer{}

	s, err := NewSession(Config{
		PlaylistURL:   "http://cdn.test/live.m3u8",
		Fetcher:       fetcher,
		FrameDuration: time.Millisecond,
		Renderer:      renderer,
	})
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background()))

	assert.Empty(t, renderer.frames)
	stats := s.Snapshot()
	assert.Equal(t, uint64(1), stats.SegmentsSkipped)
	assert.Equal(t, uint64(0), stats.SegmentsConsumed)
}

func TestSession_SkipPolicyDropsFrames(t *testing.T) {
	t.Parallel()

	fetcher := &mapFetcher{responses: map[string][]byte{
		"http://cdn.test/live.m3u8": endedPlaylist("seg0.ts"),
		"http://cdn.test/seg0.ts":   annexBSegment(),
	}}
	renderer := &countingRenderer{}

	s, err := NewSession(Config{
		PlaylistURL:   "http://cdn.test/live.m3u8",
		Fetcher:       fetcher,
		FrameDuration: time.Millisecond,
		SkipAmount:    3,
		Renderer:      renderer,
	})
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background()))

	// Three slices with skip amount 3: first renders, next two drop.
	assert.Len(t, renderer.frames, 1)
	stats := s.Snapshot()
	assert.Equal(t, uint64(1), stats.FramesDisplayed)
	assert.Equal(t, uint64(2), stats.FramesDropped)
	assert.InDelta(t, 2.0/3.0, stats.DropRate(), 1e-9)
}

func TestSession_FatalPlaylistError(t *testing.T) {
	t.Parallel()

	s, err := NewSession(Config{
		PlaylistURL: "http://cdn.test/missing.m3u8",
		Fetcher:     &mapFetcher{responses: map[string][]byte{}},
	})
	require.NoError(t, err)

	err = s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "playlist fetch")
}

func TestSession_ConfigValidation(t *testing.T) {
	t.Parallel()

	_, err := NewSession(Config{Fetcher: &mapFetcher{}})
	assert.Error(t, err, "missing playlist URL")

	_, err = NewSession(Config{PlaylistURL: "http://x/y.m3u8"})
	assert.Error(t, err, "missing fetcher")
}

func TestSession_ContextCancelled(t *testing.T) {
	t.Parallel()

	fetcher := &mapFetcher{responses: map[string][]byte{
		"http://cdn.test/live.m3u8": endedPlaylist("seg0.ts"),
		"http://cdn.test/seg0.ts":   annexBSegment(),
	}}

	s, err := NewSession(Config{
		PlaylistURL: "http://cdn.test/live.m3u8",
		Fetcher:     fetcher,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
