package synth

import (
	"context"
	"fmt"

	"dubline/internal/media/audio"
)

// ByteDecoder transcodes encoded audio through an external tool.
type ByteDecoder interface {
	DecodeBytes(ctx context.Context, payload []byte, ext string, format audio.Format) (*audio.Segment, error)
}

// Decoder normalizes TTS payloads into the nominal format. WAV payloads are
// parsed in process; anything else goes through the fallback transcoder.
type Decoder struct {
	format   audio.Format
	fallback ByteDecoder
}

// NewDecoder returns a decoder producing segments in format.
func NewDecoder(format audio.Format, fallback ByteDecoder) *Decoder {
	return &Decoder{format: format, fallback: fallback}
}

// Format returns the nominal output format.
func (d *Decoder) Format() audio.Format {
	return d.format
}

// Decode converts payload, encoded as encoding ("wav", "mp3", "ogg"), to a segment.
func (d *Decoder) Decode(ctx context.Context, payload []byte, encoding string) (*audio.Segment, error) {
	if encoding == "wav" {
		seg, err := audio.DecodeWAVBytes(payload)
		if err != nil {
			return nil, err
		}
		return audio.Convert(seg, d.format)
	}
	if d.fallback == nil {
		return nil, fmt.Errorf("decode %s: no transcoder configured", encoding)
	}
	return d.fallback.DecodeBytes(ctx, payload, "."+encoding, d.format)
}
