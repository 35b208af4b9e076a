package mpegts

// PES stream-id range for video elementary streams (ISO 13818-1 table 2-18).
const (
	videoStreamIDMin = 0xE0
	videoStreamIDMax = 0xEF
)

// isVideoPESStart reports whether payload begins a PES packet carrying a
// video elementary stream: the 0x000001 start-code prefix followed by a
// stream id in 0xE0..0xEF.
func isVideoPESStart(payload []byte) bool {
	return len(payload) >= 4 &&
		payload[0] == 0x00 && payload[1] == 0x00 && payload[2] == 0x01 &&
		payload[3] >= videoStreamIDMin && payload[3] <= videoStreamIDMax
}

// assembler accumulates TS payload fragments into one complete PES payload.
// The backing buffer is reused across flushes (and across segments) and only
// ever grows.
type assembler struct {
	buf []byte
}

// add consumes one TS payload belonging to the selected video PID. On a
// unit-start payload any accumulated PES payload is flushed to emit first,
// then the PES header is stripped: the header-data length lives at offset 8,
// elementary-stream bytes start at 9+length. Non-unit-start payloads are
// appended verbatim. emit errors abort the scan and propagate.
func (a *assembler) add(unitStart bool, payload []byte, emit func([]byte) error) error {
	if unitStart {
		if err := a.flush(emit); err != nil {
			return err
		}
		if len(payload) >= 9 &&
			payload[0] == 0x00 && payload[1] == 0x00 && payload[2] == 0x01 {
			headerLen := int(payload[8])
			dataStart := 9 + headerLen
			if dataStart <= len(payload) {
				a.buf = append(a.buf, payload[dataStart:]...)
			}
			return nil
		}
		// Unit start without a parseable PES header: keep the raw bytes
		// rather than dropping the fragment.
	}
	a.buf = append(a.buf, payload...)
	return nil
}

// flush hands the accumulated PES payload to emit and clears the buffer,
// keeping its capacity. Flushing an empty buffer is a no-op.
func (a *assembler) flush(emit func([]byte) error) error {
	if len(a.buf) == 0 {
		return nil
	}
	payload := a.buf
	a.buf = a.buf[:0]
	return emit(payload)
}
