// Package audio models decoded PCM audio for the synthesis and alignment
// stages.
//
// A Segment wraps a go-audio IntBuffer with its bit depth and exposes the
// operations the dubbing pipeline needs: format-checked concatenation,
// duration, WAV encoding and decoding, and linear-interpolation resampling.
// Segments are not safe for concurrent mutation; each language task owns its
// own accumulator.
//
// Key types:
//   - Format: sample rate, channel count, bit depth
//   - Segment: interleaved integer samples in one Format
//
// Primary entry points:
//   - NewSegment, Append, Duration
//   - DecodeWAV, EncodeWAV
//   - Stretch, Resample, Convert
package audio
