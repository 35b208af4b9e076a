// Package mpegts implements the MPEG-TS half of the ingestion pipeline: a
// 188-byte transport packet parser, a heuristic that locks onto the single
// video elementary stream without PAT/PMT discovery, and PES payload
// reassembly across packet boundaries.
package mpegts

// Packet is a parsed 188-byte MPEG-TS transport stream packet. The payload
// is a view into the caller's buffer, valid only until the buffer is reused.
type Packet struct {
	Header  PacketHeader
	Payload []byte
}

// PacketHeader contains the parsed header fields of a transport stream packet.
type PacketHeader struct {
	PID                       uint16
	ContinuityCounter         uint8
	HasAdaptationField        bool
	HasPayload                bool
	PayloadUnitStartIndicator bool
	TransportErrorIndicator   bool
}
