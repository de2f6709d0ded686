package audio

import (
	"errors"
	"fmt"
	"math"
	"time"

	goaudio "github.com/go-audio/audio"
)

// ErrFormatMismatch is returned when segments with different formats are combined.
var ErrFormatMismatch = errors.New("audio format mismatch")

// Format describes interleaved PCM samples.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Validate ensures the format can describe real audio.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive (got %d)", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("channel count must be positive (got %d)", f.Channels)
	}
	switch f.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth %d", f.BitDepth)
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitDepth)
}

// maxValue is the largest positive sample for the bit depth.
func (f Format) maxValue() int {
	return 1<<(f.BitDepth-1) - 1
}

// Segment holds interleaved integer PCM samples.
type Segment struct {
	format Format
	data   []int
}

// NewSegment returns an empty segment in the given format.
func NewSegment(format Format) *Segment {
	return &Segment{format: format}
}

// FromSamples builds a segment that takes ownership of interleaved samples.
func FromSamples(format Format, samples []int) (*Segment, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if len(samples)%format.Channels != 0 {
		return nil, fmt.Errorf("sample count %d is not a multiple of %d channels", len(samples), format.Channels)
	}
	return &Segment{format: format, data: samples}, nil
}

// FromIntBuffer adopts a go-audio buffer. bitDepth is used when the buffer
// does not record its source depth.
func FromIntBuffer(buf *goaudio.IntBuffer, bitDepth int) (*Segment, error) {
	if buf == nil || buf.Format == nil {
		return nil, errors.New("audio buffer has no format")
	}
	if buf.SourceBitDepth > 0 {
		bitDepth = buf.SourceBitDepth
	}
	return FromSamples(Format{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		BitDepth:   bitDepth,
	}, buf.Data)
}

// Silence returns a zero-valued segment of the requested duration.
func Silence(format Format, d time.Duration) *Segment {
	frames := int(math.Round(d.Seconds() * float64(format.SampleRate)))
	if frames < 0 {
		frames = 0
	}
	return &Segment{format: format, data: make([]int, frames*format.Channels)}
}

// Format returns the segment's sample format.
func (s *Segment) Format() Format {
	return s.format
}

// Samples returns the interleaved samples. Callers must not retain the slice
// across Append calls.
func (s *Segment) Samples() []int {
	return s.data
}

// Frames returns the number of sample frames.
func (s *Segment) Frames() int {
	if s.format.Channels <= 0 {
		return 0
	}
	return len(s.data) / s.format.Channels
}

// Empty reports whether the segment holds no samples.
func (s *Segment) Empty() bool {
	return len(s.data) == 0
}

// Seconds returns the playback duration in seconds.
func (s *Segment) Seconds() float64 {
	if s.format.SampleRate <= 0 {
		return 0
	}
	return float64(s.Frames()) / float64(s.format.SampleRate)
}

// Duration returns the playback duration.
func (s *Segment) Duration() time.Duration {
	return time.Duration(s.Seconds() * float64(time.Second))
}

// Append adds other's samples after s. Both segments must share a format.
func (s *Segment) Append(other *Segment) error {
	if other == nil || other.Empty() {
		return nil
	}
	if s.format != other.format {
		return fmt.Errorf("%w: have %s, got %s", ErrFormatMismatch, s.format, other.format)
	}
	s.data = append(s.data, other.data...)
	return nil
}

// Clone returns a deep copy.
func (s *Segment) Clone() *Segment {
	data := make([]int, len(s.data))
	copy(data, s.data)
	return &Segment{format: s.format, data: data}
}

// IntBuffer exposes the samples as a go-audio buffer sharing the same backing slice.
func (s *Segment) IntBuffer() *goaudio.IntBuffer {
	return &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: s.format.Channels, SampleRate: s.format.SampleRate},
		Data:           s.data,
		SourceBitDepth: s.format.BitDepth,
	}
}

// Mono returns the samples downmixed to one channel and scaled to [-1, 1].
func (s *Segment) Mono() []float64 {
	frames := s.Frames()
	out := make([]float64, frames)
	if frames == 0 {
		return out
	}
	scale := float64(s.format.maxValue())
	ch := s.format.Channels
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < ch; c++ {
			sum += s.data[i*ch+c]
		}
		out[i] = float64(sum) / float64(ch) / scale
	}
	return out
}

// Concat joins segments in order. Every segment must share format.
func Concat(format Format, segments ...*Segment) (*Segment, error) {
	out := NewSegment(format)
	for i, seg := range segments {
		if err := out.Append(seg); err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
	}
	return out, nil
}
