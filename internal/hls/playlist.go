// Package hls implements the client side of HTTP Live Streaming: a lenient
// M3U8 playlist parser, lowest-variant selection for master playlists, and a
// refresh loop that dispatches newly appearing media segments exactly once.
package hls

import (
	"net/url"
	"strconv"
	"strings"
)

// Kind distinguishes master playlists (variant lists) from media playlists
// (segment lists).
type Kind int

const (
	KindUnknown Kind = iota
	KindMaster
	KindMedia
)

// Segment is one media segment of a media playlist. URI is absolute: relative
// URIs are resolved against the playlist URL at parse time. KeyURI and KeyIV
// are captured from a preceding #EXT-X-KEY tag; decryption is not supported
// and segments carrying a key are skipped by the session.
type Segment struct {
	URI      string
	Duration float64
	KeyURI   string
	KeyIV    string
}

// Variant is one entry of a master playlist. Bandwidth and Height are zero
// when the corresponding attribute is absent.
type Variant struct {
	URI       string
	Bandwidth int
	Height    int
}

// Playlist is the result of parsing one M3U8 document.
type Playlist struct {
	Kind     Kind
	BaseURL  string
	Segments []Segment
	Variants []Variant
	Ended    bool // #EXT-X-ENDLIST seen
}

// Parse reads an M3U8 document. baseURL is the URL the document was fetched
// from; segment and variant URIs are resolved against it. Unknown tags are
// ignored: lenience toward future tags is deliberate, a playlist is never
// rejected for carrying a tag this client does not understand.
//
// The playlist kind is set by the first recognized tag. A media tag always
// forces KindMedia; a #EXT-X-STREAM-INF tag only sets KindMaster while the
// kind is still undecided, so a playlist can never revert from media to
// master.
func Parse(data []byte, baseURL string) *Playlist {
	pl := &Playlist{BaseURL: baseURL}

	var (
		duration   float64
		pendingInf bool // last tag was #EXT-X-STREAM-INF
		pendingBW  int
		pendingH   int
		keyURI     string
		keyIV      string
	)

	for _, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "#EXTM3U"):
			// Header, nothing to record.

		case strings.HasPrefix(line, "#EXT-X-STREAM-INF:"):
			if pl.Kind != KindMedia {
				pl.Kind = KindMaster
			}
			pendingInf = true
			pendingBW = attrInt(line, "BANDWIDTH=")
			pendingH = attrResolutionHeight(line)

		case strings.HasPrefix(line, "#EXTINF:"):
			pl.Kind = KindMedia
			duration = parseDuration(line[len("#EXTINF:"):])

		case strings.HasPrefix(line, "#EXT-X-TARGETDURATION:"),
			strings.HasPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"):
			pl.Kind = KindMedia

		case strings.HasPrefix(line, "#EXT-X-ENDLIST"):
			pl.Kind = KindMedia
			pl.Ended = true

		case strings.HasPrefix(line, "#EXT-X-KEY:"):
			keyURI, keyIV = parseKey(line)

		case strings.HasPrefix(line, "#"):
			// Unrecognized tag or comment: ignored, not an error.

		default:
			uri := ResolveURL(baseURL, line)
			if pl.Kind == KindMaster {
				v := Variant{URI: uri}
				if pendingInf {
					v.Bandwidth = pendingBW
					v.Height = pendingH
					pendingInf = false
				}
				pl.Variants = append(pl.Variants, v)
			} else {
				pl.Segments = append(pl.Segments, Segment{
					URI:      uri,
					Duration: duration,
					KeyURI:   keyURI,
					KeyIV:    keyIV,
				})
			}
		}
	}

	return pl
}

// SelectVariant picks the playback variant from a master playlist: the
// variant with the smallest declared height wins, with an absent height
// treated as infinitely large. Ties are broken by the smaller bandwidth, but
// only when both contenders declare one; an absent or zero bandwidth never
// wins a tie-break, so the earliest-listed variant is kept. The order is
// total and the result deterministic for a fixed variant list.
func SelectVariant(variants []Variant) (Variant, bool) {
	if len(variants) == 0 {
		return Variant{}, false
	}
	best := 0
	for i := 1; i < len(variants); i++ {
		hi := effectiveHeight(variants[i])
		hb := effectiveHeight(variants[best])
		switch {
		case hi < hb:
			best = i
		case hi == hb:
			if variants[i].Bandwidth > 0 && variants[best].Bandwidth > 0 &&
				variants[i].Bandwidth < variants[best].Bandwidth {
				best = i
			}
		}
	}
	return variants[best], true
}

func effectiveHeight(v Variant) int {
	if v.Height <= 0 {
		return int(^uint(0) >> 1)
	}
	return v.Height
}

// ResolveURL resolves ref against base. Already-absolute refs are returned
// unchanged; otherwise the ref replaces everything after the last path
// segment of base. Falls back to naive last-slash splicing when base does not
// parse as a URL.
func ResolveURL(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if base == "" {
		return ref
	}
	bu, err := url.Parse(base)
	if err == nil {
		ru, err := url.Parse(ref)
		if err == nil {
			return bu.ResolveReference(ru).String()
		}
	}
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		return base[:i+1] + ref
	}
	return ref
}

// attrInt captures an integer attribute by substring search, returning 0 when
// the attribute is absent or malformed.
func attrInt(line, attr string) int {
	i := strings.Index(line, attr)
	if i < 0 {
		return 0
	}
	rest := line[i+len(attr):]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0
	}
	return n
}

// attrResolutionHeight captures the height of a RESOLUTION=WxH attribute.
// The width is not used anywhere, so only the part after 'x' is parsed.
func attrResolutionHeight(line string) int {
	i := strings.Index(line, "RESOLUTION=")
	if i < 0 {
		return 0
	}
	rest := line[i+len("RESOLUTION="):]
	x := strings.IndexByte(rest, 'x')
	if x < 0 {
		return 0
	}
	return attrInt(rest[x:], "x")
}

func parseDuration(s string) float64 {
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// parseKey extracts URI and IV from a #EXT-X-KEY tag. METHOD=NONE clears any
// previously announced key.
func parseKey(line string) (uri, iv string) {
	if strings.Contains(line, "METHOD=NONE") {
		return "", ""
	}
	return attrQuoted(line, "URI="), attrValue(line, "IV=")
}

func attrQuoted(line, attr string) string {
	i := strings.Index(line, attr)
	if i < 0 {
		return ""
	}
	rest := line[i+len(attr):]
	if len(rest) == 0 || rest[0] != '"' {
		return attrValue(line, attr)
	}
	rest = rest[1:]
	if end := strings.IndexByte(rest, '"'); end >= 0 {
		return rest[:end]
	}
	return ""
}

func attrValue(line, attr string) string {
	i := strings.Index(line, attr)
	if i < 0 {
		return ""
	}
	rest := line[i+len(attr):]
	if end := strings.IndexByte(rest, ','); end >= 0 {
		rest = rest[:end]
	}
	return rest
}
