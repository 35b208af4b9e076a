package mpegts

import (
	"log/slog"
)

// Demuxer extracts the single video elementary stream from MPEG-TS segment
// buffers. One Demuxer is reused for the whole session so the PES
// accumulation buffer survives across segments; the video PID lock is
// per-buffer and re-established on every Demux call.
//
// PID discovery is a heuristic, not PAT/PMT table parsing: the first packet
// whose payload begins a video PES packet fixes the video PID for the rest
// of the buffer.
type Demuxer struct {
	log *slog.Logger
	asm assembler
}

// NewDemuxer creates a demuxer. If log is nil, slog.Default() is used.
func NewDemuxer(log *slog.Logger) *Demuxer {
	if log == nil {
		log = slog.Default()
	}
	return &Demuxer{log: log.With("component", "demux")}
}

// FindSync probes for TS packet alignment: the smallest offset in the first
// packet's worth of bytes at which three packets spaced PacketSize apart all
// begin with the sync byte. Returns -1 when the buffer does not look like a
// transport stream.
func FindSync(data []byte) int {
	for off := 0; off < PacketSize; off++ {
		if off+2*PacketSize >= len(data) {
			break
		}
		if data[off] == syncByte &&
			data[off+PacketSize] == syncByte &&
			data[off+2*PacketSize] == syncByte {
			return off
		}
	}
	return -1
}

// IsTransportStream reports whether data passes the sync-byte heuristic.
func IsTransportStream(data []byte) bool {
	return FindSync(data) >= 0
}

// Demux scans data as aligned 188-byte transport packets, reassembles the
// video PES payloads, and hands each complete elementary-stream payload to
// emit. The emitted slice aliases the demuxer's internal buffer and is only
// valid until emit returns.
//
// Malformed packets (bad sync byte, transport error indicator, truncated
// adaptation field) are skipped; a single aligned scan is performed, with no
// mid-buffer resynchronization. An emit error aborts the scan at the next
// packet boundary and is returned unchanged.
func (d *Demuxer) Demux(data []byte, emit func(es []byte) error) error {
	sync := FindSync(data)
	if sync < 0 {
		// Not a transport stream: treat the buffer as raw elementary-stream
		// bytes and hand it straight to the NAL layer.
		d.log.Debug("no TS sync found, treating segment as raw elementary stream", "len", len(data))
		return emit(data)
	}

	videoPID := -1

	for pos := sync; pos+PacketSize <= len(data); pos += PacketSize {
		pkt, err := parsePacket(data[pos : pos+PacketSize])
		if err != nil {
			continue // skip corrupt packets
		}
		if pkt.Header.TransportErrorIndicator || len(pkt.Payload) == 0 {
			continue
		}

		if videoPID == -1 && pkt.Header.PayloadUnitStartIndicator && isVideoPESStart(pkt.Payload) {
			videoPID = int(pkt.Header.PID)
			d.log.Debug("video PID locked", "pid", videoPID)
		}

		if videoPID == -1 || int(pkt.Header.PID) != videoPID {
			continue
		}

		if err := d.asm.add(pkt.Header.PayloadUnitStartIndicator, pkt.Payload, emit); err != nil {
			return err
		}
	}

	return d.asm.flush(emit)
}
