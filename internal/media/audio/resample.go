package audio

import (
	"fmt"
	"math"
)

// Stretch changes the segment's playback length by 1/factor at the same
// sample rate. factor > 1 shortens the audio. Pitch shifts with the speed.
func Stretch(seg *Segment, factor float64) (*Segment, error) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return nil, fmt.Errorf("stretch factor must be positive and finite (got %v)", factor)
	}
	frames := int(math.Round(float64(seg.Frames()) / factor))
	return &Segment{format: seg.format, data: interpolate(seg.data, seg.format.Channels, frames)}, nil
}

// Resample converts seg to a new sample rate, preserving duration.
func Resample(seg *Segment, rate int) (*Segment, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive (got %d)", rate)
	}
	if rate == seg.format.SampleRate {
		return seg.Clone(), nil
	}
	frames := int(math.Round(float64(seg.Frames()) * float64(rate) / float64(seg.format.SampleRate)))
	format := seg.format
	format.SampleRate = rate
	return &Segment{format: format, data: interpolate(seg.data, seg.format.Channels, frames)}, nil
}

// Convert returns seg in the target format, adjusting bit depth, channel
// layout, and sample rate as needed.
func Convert(seg *Segment, target Format) (*Segment, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if seg.format == target {
		return seg, nil
	}
	out := seg
	if seg.format.BitDepth != target.BitDepth {
		out = requantize(out, target.BitDepth)
	}
	if out.format.Channels != target.Channels {
		remixed, err := remix(out, target.Channels)
		if err != nil {
			return nil, err
		}
		out = remixed
	}
	if out.format.SampleRate != target.SampleRate {
		resampled, err := Resample(out, target.SampleRate)
		if err != nil {
			return nil, err
		}
		out = resampled
	}
	return out, nil
}

// interpolate linearly maps interleaved frames onto outFrames frames.
func interpolate(data []int, channels, outFrames int) []int {
	if outFrames <= 0 || channels <= 0 {
		return []int{}
	}
	inFrames := len(data) / channels
	out := make([]int, outFrames*channels)
	if inFrames == 0 {
		return out
	}
	if inFrames == 1 || outFrames == 1 {
		for i := 0; i < outFrames; i++ {
			copy(out[i*channels:(i+1)*channels], data[:channels])
		}
		return out
	}
	step := float64(inFrames-1) / float64(outFrames-1)
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * step
		lo := int(pos)
		if lo >= inFrames-1 {
			lo = inFrames - 2
		}
		frac := pos - float64(lo)
		for c := 0; c < channels; c++ {
			a := float64(data[lo*channels+c])
			b := float64(data[(lo+1)*channels+c])
			out[i*channels+c] = int(math.Round(a + (b-a)*frac))
		}
	}
	return out
}

func requantize(seg *Segment, bitDepth int) *Segment {
	shift := bitDepth - seg.format.BitDepth
	data := make([]int, len(seg.data))
	for i, v := range seg.data {
		if shift > 0 {
			data[i] = v << shift
		} else {
			data[i] = v >> -shift
		}
	}
	format := seg.format
	format.BitDepth = bitDepth
	return &Segment{format: format, data: data}
}

func remix(seg *Segment, channels int) (*Segment, error) {
	from := seg.format.Channels
	frames := seg.Frames()
	data := make([]int, frames*channels)
	switch {
	case channels == 1:
		for i := 0; i < frames; i++ {
			sum := 0
			for c := 0; c < from; c++ {
				sum += seg.data[i*from+c]
			}
			data[i] = sum / from
		}
	case from == 1:
		for i := 0; i < frames; i++ {
			for c := 0; c < channels; c++ {
				data[i*channels+c] = seg.data[i]
			}
		}
	default:
		return nil, fmt.Errorf("cannot remix %d channels to %d", from, channels)
	}
	format := seg.format
	format.Channels = channels
	return &Segment{format: format, data: data}, nil
}
