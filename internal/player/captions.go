package player

import (
	"github.com/zsiec/ccx"
)

// CaptionSink receives decoded CEA-608 caption text. Channel is the 608
// channel number (1-4).
type CaptionSink func(channel int, text string)

// captionBridge pulls CEA-608 byte pairs out of H.264 SEI NAL units and runs
// them through per-channel decoders, forwarding any completed text to the
// sink. SEI units with no caption payload are ignored.
type captionBridge struct {
	decoders map[int]*ccx.CEA608Decoder
	sink     CaptionSink
}

func newCaptionBridge(sink CaptionSink) *captionBridge {
	return &captionBridge{
		decoders: map[int]*ccx.CEA608Decoder{
			1: ccx.NewCEA608Decoder(),
			2: ccx.NewCEA608Decoder(),
			3: ccx.NewCEA608Decoder(),
			4: ccx.NewCEA608Decoder(),
		},
		sink: sink,
	}
}

// onSEI processes one SEI NAL unit (raw NAL data including the header byte).
// Returns the number of caption strings emitted.
func (b *captionBridge) onSEI(seiData []byte) int {
	cd := ccx.ExtractCaptions(seiData)
	if cd == nil {
		return 0
	}

	emitted := 0
	for _, pair := range cd.CC608Pairs {
		dec := b.decoders[pair.Channel]
		if dec == nil {
			continue
		}
		text := dec.Decode(pair.Data[0], pair.Data[1])
		if text != "" {
			b.sink(pair.Channel, text)
			emitted++
		}
	}
	return emitted
}
