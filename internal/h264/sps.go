package h264

import "errors"

// Fallback picture dimensions used when the SPS carries a profile whose
// full syntax we do not walk. Playback continues at a plausible live-stream
// resolution instead of failing the parameter set.
const (
	fallbackWidth  = 1920
	fallbackHeight = 1080
)

const profileBaseline = 66

var errSPSTooShort = errors.New("h264: SPS data too short")

// spsInfo holds the fields extracted from a sequence parameter set.
type spsInfo struct {
	Width      int
	Height     int
	ProfileIDC byte
	LevelIDC   byte
}

// parseSPS extracts picture dimensions from an SPS NAL unit. The input is
// the raw NAL data including the header byte, without a start code.
//
// Only the baseline profile's fixed prefix is walked, just far enough to
// reach pic_width_in_mbs_minus1 and pic_height_in_map_units_minus1; frame
// cropping is ignored, so dimensions are multiples of 16. Any other profile,
// and a baseline SPS too short to finish the walk, falls back to
// fallbackWidth x fallbackHeight rather than erroring.
func parseSPS(nalu []byte) (spsInfo, error) {
	if len(nalu) < 4 {
		return spsInfo{}, errSPSTooShort
	}

	info := spsInfo{
		ProfileIDC: nalu[1],
		LevelIDC:   nalu[3],
	}

	if info.ProfileIDC != profileBaseline {
		info.Width = fallbackWidth
		info.Height = fallbackHeight
		return info, nil
	}

	width, height, err := walkBaselineSPS(nalu[4:])
	if err != nil {
		info.Width = fallbackWidth
		info.Height = fallbackHeight
		return info, nil
	}
	info.Width = width
	info.Height = height
	return info, nil
}

func walkBaselineSPS(data []byte) (width, height int, err error) {
	br := newBitReader(data)

	if _, err := br.readUE(); err != nil { // seq_parameter_set_id
		return 0, 0, err
	}
	if _, err := br.readUE(); err != nil { // log2_max_frame_num_minus4
		return 0, 0, err
	}

	pocType, err := br.readUE()
	if err != nil {
		return 0, 0, err
	}
	if pocType == 0 {
		if _, err := br.readUE(); err != nil { // log2_max_pic_order_cnt_lsb_minus4
			return 0, 0, err
		}
	}

	if _, err := br.readUE(); err != nil { // max_num_ref_frames
		return 0, 0, err
	}
	if _, err := br.readBit(); err != nil { // gaps_in_frame_num_value_allowed_flag
		return 0, 0, err
	}

	widthMbs, err := br.readUE()
	if err != nil {
		return 0, 0, err
	}
	heightMapUnits, err := br.readUE()
	if err != nil {
		return 0, 0, err
	}

	return int(widthMbs+1) * 16, int(heightMapUnits+1) * 16, nil
}
