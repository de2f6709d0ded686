// Package align stretches synthesized speech so its duration matches the
// reference track.
//
// The speed ratio is synthesized/reference duration. Two strategies apply it:
//
//   - remap: the samples are played back at rate*ratio and resampled to the
//     nominal rate. Duration matches exactly but pitch moves with the ratio.
//   - atempo: ffmpeg's atempo filter changes tempo and keeps pitch.
//
// Missing the tolerance is logged as a warning and reported in Result; it is
// never an error.
package align
