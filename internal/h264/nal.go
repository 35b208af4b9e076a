// Package h264 implements a minimal H.264 elementary-stream layer: NAL unit
// extraction from Annex B and length-prefixed bitstreams, parameter-set
// parsing, and a decoder state machine that gates frame production on having
// seen valid SPS and PPS data.
package h264

// NAL unit type constants as defined in ITU-T H.264 Table 7-1.
const (
	NALTypeSlice = 1
	NALTypeIDR   = 5
	NALTypeSEI   = 6
	NALTypeSPS   = 7
	NALTypePPS   = 8
	NALTypeAUD   = 9
)

// NALUnit is one extracted NAL unit. Data includes the NAL header byte but
// no start code or length prefix, and aliases the scanned buffer.
type NALUnit struct {
	Type byte
	Data []byte
}

// NALType extracts the 5-bit NAL unit type from raw NAL data.
func NALType(data []byte) byte {
	if len(data) == 0 {
		return 0
	}
	return data[0] & 0x1F
}

// IsParameterSet reports whether the NAL type is SPS or PPS.
func IsParameterSet(nalType byte) bool {
	return nalType == NALTypeSPS || nalType == NALTypePPS
}

// IsSlice reports whether the NAL type is a coded slice (types 1 through 5).
func IsSlice(nalType byte) bool {
	return nalType >= 1 && nalType <= 5
}

// ExtractNALUnits splits an elementary-stream buffer into NAL units. The
// framing is autodetected: if a 0x000001 start-code prefix occurs anywhere in
// the buffer the data is treated as Annex B, otherwise as a sequence of NAL
// units each preceded by a 4-byte big-endian length.
func ExtractNALUnits(data []byte) []NALUnit {
	if hasStartCode(data) {
		return parseAnnexB(data)
	}
	return parseLengthPrefixed(data)
}

// DispatchParamSetsFirst hands units to fn in two passes: all parameter sets
// first, then everything else. Slices that arrive in the same buffer as their
// SPS/PPS therefore never hit the decoder before the parameter sets do. An
// fn error aborts the dispatch.
func DispatchParamSetsFirst(units []NALUnit, fn func(NALUnit) error) error {
	for _, u := range units {
		if IsParameterSet(u.Type) {
			if err := fn(u); err != nil {
				return err
			}
		}
	}
	for _, u := range units {
		if !IsParameterSet(u.Type) {
			if err := fn(u); err != nil {
				return err
			}
		}
	}
	return nil
}

func hasStartCode(data []byte) bool {
	for i := 0; i+2 < len(data); i++ {
		if data[i] == 0 && data[i+1] == 0 && data[i+2] == 1 {
			return true
		}
	}
	return false
}

// parseAnnexB scans for start codes and extracts the NAL units between them.
// Both 3-byte (0x000001) and 4-byte (0x00000001) start codes are recognized.
// Zero-length units are dropped.
func parseAnnexB(data []byte) []NALUnit {
	n := len(data)
	if n < 4 {
		return nil
	}

	type scPos struct {
		scStart   int
		dataStart int
	}

	var positions []scPos
	i := 0
	for i < n-2 {
		if data[i] == 0 && data[i+1] == 0 {
			if i < n-3 && data[i+2] == 0 && data[i+3] == 1 {
				positions = append(positions, scPos{scStart: i, dataStart: i + 4})
				i += 4
				continue
			}
			if data[i+2] == 1 {
				positions = append(positions, scPos{scStart: i, dataStart: i + 3})
				i += 3
				continue
			}
		}
		i++
	}

	var units []NALUnit
	for idx, pos := range positions {
		end := n
		if idx+1 < len(positions) {
			end = positions[idx+1].scStart
		}
		if pos.dataStart >= end {
			continue
		}
		nalData := data[pos.dataStart:end]
		units = append(units, NALUnit{Type: NALType(nalData), Data: nalData})
	}

	return units
}

// parseLengthPrefixed walks 4-byte big-endian length prefixes. A zero length
// or a length running past the buffer end stops the scan; whatever was
// extracted up to that point is returned.
func parseLengthPrefixed(data []byte) []NALUnit {
	var units []NALUnit
	for pos := 0; pos+4 <= len(data); {
		length := int(data[pos])<<24 | int(data[pos+1])<<16 | int(data[pos+2])<<8 | int(data[pos+3])
		pos += 4
		if length == 0 || pos+length > len(data) {
			break
		}
		nalData := data[pos : pos+length]
		units = append(units, NALUnit{Type: NALType(nalData), Data: nalData})
		pos += length
	}
	return units
}
