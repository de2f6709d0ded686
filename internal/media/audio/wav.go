package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// ErrNotWAV is returned when input bytes are not a RIFF/WAVE PCM file.
var ErrNotWAV = errors.New("not a wav file")

// DecodeWAV reads a PCM WAV stream into a segment.
func DecodeWAV(r io.ReadSeeker) (*Segment, error) {
	dec := wav.NewDecoder(r)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotWAV, err)
	}
	if dec.NumChans < 1 || dec.BitDepth < 8 {
		return nil, ErrNotWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	return FromIntBuffer(buf, int(dec.BitDepth))
}

// DecodeWAVBytes decodes an in-memory WAV payload.
func DecodeWAVBytes(payload []byte) (*Segment, error) {
	return DecodeWAV(bytes.NewReader(payload))
}

// ReadWAVFile decodes the WAV file at path.
func ReadWAVFile(path string) (*Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()
	return DecodeWAV(f)
}

// EncodeWAV writes seg as a PCM WAV stream.
func EncodeWAV(w io.WriteSeeker, seg *Segment) error {
	format := seg.Format()
	if err := format.Validate(); err != nil {
		return err
	}
	enc := wav.NewEncoder(w, format.SampleRate, format.BitDepth, format.Channels, 1)
	if err := enc.Write(seg.IntBuffer()); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// WriteWAVFile encodes seg to path, replacing any existing file.
func WriteWAVFile(path string, seg *Segment) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close wav: %w", closeErr)
		}
	}()
	return EncodeWAV(f, seg)
}
