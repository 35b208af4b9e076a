package mpegts

import (
	"fmt"

	"github.com/anhelo/anhelo/internal/cursor"
)

const (
	// PacketSize is the fixed MPEG-TS transport packet length.
	PacketSize = 188
	syncByte   = 0x47
)

func parsePacket(buf []byte) (Packet, error) {
	var p Packet
	if len(buf) != PacketSize {
		return p, fmt.Errorf("mpegts: packet size %d, expected %d", len(buf), PacketSize)
	}

	c := cursor.New(buf)
	sync, _ := c.U8()
	if sync != syncByte {
		return p, fmt.Errorf("mpegts: invalid sync byte 0x%02X", sync)
	}

	b1, _ := c.U8()
	b2, _ := c.U8()
	b3, _ := c.U8()

	p.Header.TransportErrorIndicator = b1&0x80 != 0
	p.Header.PayloadUnitStartIndicator = b1&0x40 != 0
	p.Header.PID = uint16(b1&0x1F)<<8 | uint16(b2)
	p.Header.HasAdaptationField = b3&0x20 != 0
	p.Header.HasPayload = b3&0x10 != 0
	p.Header.ContinuityCounter = b3 & 0x0F

	if p.Header.HasAdaptationField {
		afLen, err := c.U8()
		if err != nil {
			return p, nil
		}
		if err := c.Skip(int(afLen)); err != nil {
			// Adaptation field length runs past the packet end; no
			// payload can follow.
			return p, nil
		}
	}

	if p.Header.HasPayload {
		p.Payload = c.Rest()
	}

	return p, nil
}
