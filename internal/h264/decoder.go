package h264

import (
	"log/slog"

	"github.com/anhelo/anhelo/internal/media"
)

// Result is the outcome of decoding one NAL unit.
type Result int

const (
	// ResultOK means the unit was consumed without producing output.
	ResultOK Result = iota
	// ResultHeadersReady means a parameter set was accepted.
	ResultHeadersReady
	// ResultFrameReady means a picture is available from the decoder.
	ResultFrameReady
	// ResultParamSetError means a slice arrived before both parameter sets
	// were seen, or a parameter set failed to parse. Not fatal: decoding
	// recovers once valid SPS and PPS data shows up.
	ResultParamSetError
	// ResultError means the unit was unusable (empty data).
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultHeadersReady:
		return "headers_ready"
	case ResultFrameReady:
		return "frame_ready"
	case ResultParamSetError:
		return "param_set_error"
	case ResultError:
		return "error"
	default:
		return "unknown"
	}
}

// Decoder is a stateful H.264 NAL unit consumer. It tracks parameter-set
// validity and picture dimensions across units; slices decode only after
// both an SPS and a PPS have been accepted. Slice payloads are not actually
// reconstructed: each accepted slice yields a synthetic picture at the SPS
// dimensions, which keeps the rest of the pipeline honest about frame
// sizes, pacing, and buffer reuse without carrying a full DPB.
//
// Not safe for concurrent use.
type Decoder struct {
	log  *slog.Logger
	pool *media.FramePool

	width      int
	height     int
	profileIDC byte
	levelIDC   byte
	spsValid   bool
	ppsValid   bool
}

// NewDecoder creates a decoder. If log is nil, slog.Default() is used.
func NewDecoder(log *slog.Logger) *Decoder {
	if log == nil {
		log = slog.Default()
	}
	return &Decoder{
		log:  log.With("component", "h264"),
		pool: media.NewFramePool(),
	}
}

// Decode consumes one NAL unit and advances the decoder state. The returned
// frame is non-nil only for ResultFrameReady, and is valid until the next
// Decode call.
func (d *Decoder) Decode(nal NALUnit) (Result, *media.Frame) {
	if len(nal.Data) == 0 {
		return ResultError, nil
	}

	switch nal.Type {
	case NALTypeSPS:
		info, err := parseSPS(nal.Data)
		if err != nil {
			d.log.Debug("SPS parse failed", "err", err)
			return ResultParamSetError, nil
		}
		d.width = info.Width
		d.height = info.Height
		d.profileIDC = info.ProfileIDC
		d.levelIDC = info.LevelIDC
		d.spsValid = true
		d.log.Debug("SPS accepted", "width", d.width, "height", d.height, "profile", d.profileIDC)
		return ResultHeadersReady, nil

	case NALTypePPS:
		d.ppsValid = true
		return ResultHeadersReady, nil

	case NALTypeSlice, NALTypeIDR:
		if !d.spsValid || !d.ppsValid {
			return ResultParamSetError, nil
		}
		return ResultFrameReady, d.producePicture()

	case NALTypeSEI, NALTypeAUD:
		return ResultOK, nil

	default:
		return ResultOK, nil
	}
}

// Reset clears parameter-set validity so slices are gated again until fresh
// SPS and PPS units arrive. Picture dimensions are kept: a stream that
// resumes without repeating its SPS still produces correctly sized frames
// once the parameter sets return.
func (d *Decoder) Reset() {
	d.spsValid = false
	d.ppsValid = false
}

// Dimensions returns the picture size from the most recent SPS, or zeros if
// none has been seen.
func (d *Decoder) Dimensions() (width, height int) {
	return d.width, d.height
}

// producePicture fills the pool frame with a diagonal luma gradient and
// neutral chroma.
func (d *Decoder) producePicture() *media.Frame {
	f := d.pool.Acquire(d.width, d.height)
	for y := 0; y < f.Height; y++ {
		row := f.Y[y*f.YStride : y*f.YStride+f.Width]
		for x := range row {
			row[x] = byte((x + y) % 256)
		}
	}
	for i := range f.U {
		f.U[i] = 128
	}
	for i := range f.V {
		f.V[i] = 128
	}
	return f
}
